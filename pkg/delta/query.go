// Package delta talks to the KMD Delta object API: it builds graph queries,
// sends them and reshapes the returned instances into person records.
package delta

// Type and attribute keys in the Delta APOS model.
const (
	TypeEngagement         = "APOS-Types-Engagement"
	TypePerson             = "APOS-Types-Person"
	TypeUser               = "APOS-Types-User"
	TypeAdministrativeUnit = "APOS-Types-AdministrativeUnit"

	AttrEmail          = "APOS-Types-Engagement-Attribute-Email"
	AttrPhone          = "APOS-Types-Engagement-Attribute-Phone"
	AttrMobile         = "APOS-Types-Engagement-Attribute-Mobile"
	AttrSurnameAndName = "APOS-Types-Person-Attribute-SurnameAndName"

	RelEngagementPerson  = "APOS-Types-Engagement-TypeRelation-Person"
	RelEngagementAdmUnit = "APOS-Types-Engagement-TypeRelation-AdmUnit"
	RelUserPerson        = "APOS-Types-User-TypeRelation-Person"
)

// Filter aliases selecting which identifier the query matches on.
const (
	FilterCPR      = "employee.person.$userKey"
	FilterUsername = "employee.person.user.$userKey"
)

const (
	stateActive = "STATE_ACTIVE"
	validNow    = "NOW"
)

// GraphQueryRequest is the body POSTed to the graph-query endpoint.
type GraphQueryRequest struct {
	GraphQueries []GraphQueryEntry `json:"graphQueries"`
}

type GraphQueryEntry struct {
	ComputeAvailablePages bool       `json:"computeAvailablePages"`
	GraphQuery            GraphQuery `json:"graphQuery"`
	ValidDate             string     `json:"validDate"`
	Limit                 int        `json:"limit"`
}

type GraphQuery struct {
	Structure  Structure  `json:"structure"`
	Criteria   Criteria   `json:"criteria"`
	Projection Projection `json:"projection"`
}

type Structure struct {
	Alias      string              `json:"alias"`
	UserKey    string              `json:"userKey"`
	Attributes []StructureAttr     `json:"attributes,omitempty"`
	Relations  []StructureRelation `json:"relations,omitempty"`
}

type StructureAttr struct {
	Alias   string `json:"alias"`
	UserKey string `json:"userKey"`
}

type StructureRelation struct {
	Alias       string              `json:"alias"`
	Title       string              `json:"title,omitempty"`
	UserKey     string              `json:"userKey"`
	TypeUserKey string              `json:"typeUserKey"`
	Direction   string              `json:"direction"`
	Relations   []StructureRelation `json:"relations,omitempty"`
}

// Criteria is either a composite (Type AND/OR with nested Criteria) or a
// MATCH with Operator, Left and Right set.
type Criteria struct {
	Type     string     `json:"type"`
	Operator string     `json:"operator,omitempty"`
	Left     *Operand   `json:"left,omitempty"`
	Right    *Operand   `json:"right,omitempty"`
	Criteria []Criteria `json:"criteria,omitempty"`
}

type Operand struct {
	Source string `json:"source"`
	Alias  string `json:"alias,omitempty"`
	Value  string `json:"value,omitempty"`
}

type Projection struct {
	Identity              bool                 `json:"identity,omitempty"`
	State                 bool                 `json:"state,omitempty"`
	Attributes            []string             `json:"attributes,omitempty"`
	TypeRelations         []RelationProjection `json:"typeRelations,omitempty"`
	IncomingTypeRelations []RelationProjection `json:"incomingTypeRelations,omitempty"`
}

type RelationProjection struct {
	UserKey    string     `json:"userKey"`
	Projection Projection `json:"projection"`
}

// NewGraphQuery returns the active-engagement query matching filterAlias
// against filterValue. The structure and projection are the same for every
// filter; only the first criterion differs.
func NewGraphQuery(filterAlias, filterValue string) *GraphQueryRequest {
	return &GraphQueryRequest{
		GraphQueries: []GraphQueryEntry{{
			ComputeAvailablePages: false,
			GraphQuery: GraphQuery{
				Structure:  engagementStructure(),
				Criteria:   activeMatch(filterAlias, filterValue),
				Projection: engagementProjection(),
			},
			ValidDate: validNow,
			Limit:     1,
		}},
	}
}

func engagementStructure() Structure {
	return Structure{
		Alias:   "employee",
		UserKey: TypeEngagement,
		Attributes: []StructureAttr{
			{Alias: "email", UserKey: AttrEmail},
			{Alias: "phone", UserKey: AttrPhone},
			{Alias: "mobile", UserKey: AttrMobile},
		},
		Relations: []StructureRelation{
			{
				Alias:       "person",
				Title:       RelEngagementPerson,
				UserKey:     RelEngagementPerson,
				TypeUserKey: TypePerson,
				Direction:   "OUT",
				Relations: []StructureRelation{{
					Alias:       "user",
					UserKey:     RelUserPerson,
					TypeUserKey: TypeUser,
					Direction:   "IN",
				}},
			},
			{
				Alias:       "unit",
				Title:       RelEngagementAdmUnit,
				UserKey:     RelEngagementAdmUnit,
				TypeUserKey: TypeAdministrativeUnit,
				Direction:   "OUT",
			},
		},
	}
}

func activeMatch(filterAlias, filterValue string) Criteria {
	return Criteria{
		Type: "AND",
		Criteria: []Criteria{
			equals(filterAlias, filterValue),
			equals("employee.$state", stateActive),
		},
	}
}

func equals(alias, value string) Criteria {
	return Criteria{
		Type:     "MATCH",
		Operator: "EQUAL",
		Left:     &Operand{Source: "DEFINITION", Alias: alias},
		Right:    &Operand{Source: "STATIC", Value: value},
	}
}

func engagementProjection() Projection {
	return Projection{
		Identity:   true,
		State:      true,
		Attributes: []string{AttrMobile, AttrPhone, AttrEmail},
		TypeRelations: []RelationProjection{
			{
				UserKey: RelEngagementPerson,
				Projection: Projection{
					State:      true,
					Attributes: []string{AttrSurnameAndName},
					IncomingTypeRelations: []RelationProjection{{
						UserKey:    RelUserPerson,
						Projection: Projection{Identity: true},
					}},
				},
			},
			{
				UserKey:    RelEngagementAdmUnit,
				Projection: Projection{Identity: true},
			},
		},
	}
}
