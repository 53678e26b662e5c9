package delta

import (
	"encoding/json"

	"github.com/telefonbog/telefonbog/pkg/jsonutil"
	"github.com/telefonbog/telefonbog/pkg/models"
)

// extractor pulls one raw value out of an instance. A nil result means the
// path was not present.
type extractor func(inst *Instance) json.RawMessage

type fieldRule struct {
	field   string
	extract extractor
	assign  func(rec *models.PersonRecord, value string)
}

// personRules maps every PersonRecord field to its location in an instance.
var personRules = []fieldRule{
	{
		field:   "name",
		extract: relationAttribute(RelEngagementPerson),
		assign:  func(r *models.PersonRecord, v string) { r.Name = v },
	},
	{
		field:   "email",
		extract: attributeValue(AttrEmail),
		assign:  func(r *models.PersonRecord, v string) { r.Email = v },
	},
	{
		field:   "phone",
		extract: attributeValue(AttrPhone),
		assign:  func(r *models.PersonRecord, v string) { r.Phone = v },
	},
	{
		field:   "mobile",
		extract: attributeValue(AttrMobile),
		assign:  func(r *models.PersonRecord, v string) { r.Mobile = v },
	},
	{
		field:   "department",
		extract: relationIdentityName(RelEngagementAdmUnit),
		assign:  func(r *models.PersonRecord, v string) { r.Department = v },
	},
	{
		field:   "username",
		extract: inverseRelationIdentityName(RelEngagementPerson),
		assign:  func(r *models.PersonRecord, v string) { r.Username = v },
	},
}

// Normalize converts an instance into a PersonRecord. Every field that is
// missing or holds an empty value is set to models.NotAvailable.
func Normalize(inst Instance) models.PersonRecord {
	var rec models.PersonRecord
	for _, rule := range personRules {
		value := models.NotAvailable
		if raw := rule.extract(&inst); !jsonutil.IsFalsy(raw) {
			if s := jsonutil.FlexibleStringValue(raw); s != "" {
				value = s
			}
		}
		rule.assign(&rec, value)
	}
	return rec
}

// NormalizeAll converts instances in order.
func NormalizeAll(instances []Instance) []models.PersonRecord {
	records := make([]models.PersonRecord, 0, len(instances))
	for _, inst := range instances {
		records = append(records, Normalize(inst))
	}
	return records
}

// attributeValue reads the first instance attribute with the given key.
func attributeValue(userKey string) extractor {
	return func(inst *Instance) json.RawMessage {
		for _, attr := range inst.Attributes {
			if attr.UserKey == userKey {
				return attr.Value
			}
		}
		return nil
	}
}

// relationIdentityName reads the identity name of the first related object.
func relationIdentityName(relation string) extractor {
	return func(inst *Instance) json.RawMessage {
		ref := firstTypeRef(inst.TypeRefs, relation)
		if ref == nil {
			return nil
		}
		return ref.target().identityName()
	}
}

// relationAttribute reads the first attribute value of the first related
// object. Delta returns only the projected attribute, so position is enough.
func relationAttribute(relation string) extractor {
	return func(inst *Instance) json.RawMessage {
		ref := firstTypeRef(inst.TypeRefs, relation)
		if ref == nil {
			return nil
		}
		attrs := ref.target().Attributes
		if len(attrs) == 0 {
			return nil
		}
		return attrs[0].Value
	}
}

// inverseRelationIdentityName follows the first incoming reference of the
// first related object and reads its identity name.
func inverseRelationIdentityName(relation string) extractor {
	return func(inst *Instance) json.RawMessage {
		ref := firstTypeRef(inst.TypeRefs, relation)
		if ref == nil {
			return nil
		}
		incoming := ref.target().InTypeRefs
		if len(incoming) == 0 {
			return nil
		}
		return incoming[0].target().identityName()
	}
}
