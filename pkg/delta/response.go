package delta

import "encoding/json"

// QueryResult is one entry of graphQueryResult, matching one graph query.
type QueryResult struct {
	Instances []Instance `json:"instances"`
}

// Instance is one matched engagement. Values are kept raw because Delta is
// loose about scalar types.
type Instance struct {
	Identity   *Identity   `json:"identity,omitempty"`
	Attributes []Attribute `json:"attributes,omitempty"`
	TypeRefs   []TypeRef   `json:"typeRefs,omitempty"`
}

type Identity struct {
	UUID string          `json:"uuid,omitempty"`
	Name json.RawMessage `json:"name,omitempty"`
}

type Attribute struct {
	UserKey string          `json:"userKey"`
	Value   json.RawMessage `json:"value,omitempty"`
}

type TypeRef struct {
	UserKey      string        `json:"userKey"`
	TargetObject *TargetObject `json:"targetObject,omitempty"`
}

type TargetObject struct {
	Identity   *Identity   `json:"identity,omitempty"`
	Attributes []Attribute `json:"attributes,omitempty"`
	InTypeRefs []TypeRef   `json:"inTypeRefs,omitempty"`
}

func (r *TypeRef) target() *TargetObject {
	if r == nil || r.TargetObject == nil {
		return &TargetObject{}
	}
	return r.TargetObject
}

func (o *TargetObject) identityName() json.RawMessage {
	if o == nil || o.Identity == nil {
		return nil
	}
	return o.Identity.Name
}

// firstTypeRef returns the first reference with the given relation key.
func firstTypeRef(refs []TypeRef, userKey string) *TypeRef {
	for i := range refs {
		if refs[i].UserKey == userKey {
			return &refs[i]
		}
	}
	return nil
}
