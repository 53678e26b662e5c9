// Package jsonutil decodes loosely typed JSON scalars returned by upstream APIs.
package jsonutil

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// FlexibleStringValue renders a JSON scalar as text. Delta stores some
// attribute values (phone numbers in particular) as numbers rather than
// strings. Returns empty string for null/empty.
func FlexibleStringValue(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var strVal string
	if err := json.Unmarshal(raw, &strVal); err == nil {
		return strVal
	}

	// json.Number keeps the literal, so long digit strings keep their precision.
	var numVal json.Number
	if err := json.Unmarshal(raw, &numVal); err == nil {
		if i, err := numVal.Int64(); err == nil {
			return strconv.FormatInt(i, 10)
		}
		if f, err := numVal.Float64(); err == nil {
			return strconv.FormatFloat(f, 'g', -1, 64)
		}
		return numVal.String()
	}

	var boolVal bool
	if err := json.Unmarshal(raw, &boolVal); err == nil {
		return strconv.FormatBool(boolVal)
	}

	return string(raw)
}

// IsFalsy reports whether raw holds an "empty" JSON value: null, false, 0,
// "", [] or {}. A missing value is falsy as well.
func IsFalsy(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	switch string(raw) {
	case "", "null", "false", `""`, "[]", "{}":
		return true
	}
	if raw[0] == '"' {
		return false
	}

	var numVal json.Number
	if err := json.Unmarshal(raw, &numVal); err == nil {
		f, err := numVal.Float64()
		return err == nil && f == 0
	}

	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err == nil {
		return len(arr) == 0
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil {
		return len(obj) == 0
	}
	return false
}
