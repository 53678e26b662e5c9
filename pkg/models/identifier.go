package models

// IdentifierKind tells which lookup a search identifier drives.
type IdentifierKind string

const (
	IdentifierCPR      IdentifierKind = "cpr"
	IdentifierUsername IdentifierKind = "username"
)

// SearchIdentifier is a CPR number or a DQ-number (username).
// A CPR value is stored digits-only once validated.
type SearchIdentifier struct {
	Kind  IdentifierKind
	Value string
}

// CPR returns a CPR identifier. The value must already be validated.
func CPR(value string) SearchIdentifier {
	return SearchIdentifier{Kind: IdentifierCPR, Value: value}
}

// Username returns a DQ-number identifier.
func Username(value string) SearchIdentifier {
	return SearchIdentifier{Kind: IdentifierUsername, Value: value}
}
