package model

import "slices"

// OccupationOthers is the catch-all occupation. It has no sub-field list;
// the alumnus describes it in free text instead.
const OccupationOthers = "Others"

// Occupations lists every accepted occupation field in display order.
var Occupations = []string{
	"Engineering",
	"Medicine",
	"Teaching",
	"Business",
	"Government Service",
	"Armed Forces",
	"Law",
	"Arts & Entertainment",
	"Agriculture",
	"Research & Academia",
	OccupationOthers,
}

// OccupationSubFields maps each listed occupation to the sub-fields it
// accepts. OccupationOthers is intentionally absent.
var OccupationSubFields = map[string][]string{
	"Engineering": {
		"Software Development", "Civil Engineering", "Mechanical Engineering",
		"Electrical Engineering", "Electronics", "Chemical Engineering", "Others",
	},
	"Medicine": {
		"General Medicine", "Surgery", "Pediatrics", "Cardiology", "Neurology",
		"Dentistry", "Others",
	},
	"Teaching": {
		"Primary Education", "Secondary Education", "Higher Education",
		"Special Education", "Others",
	},
	"Business":             {"Entrepreneurship", "Management", "Finance", "Marketing", "Others"},
	"Government Service":   {"Civil Services", "State Services", "Public Sector", "Others"},
	"Armed Forces":         {"Army", "Navy", "Air Force", "Others"},
	"Law":                  {"Corporate Law", "Criminal Law", "Civil Law", "Others"},
	"Arts & Entertainment": {"Music", "Dance", "Acting", "Visual Arts", "Others"},
	"Agriculture":          {"Farming", "Agribusiness", "Agricultural Research", "Others"},
	"Research & Academia":  {"Scientific Research", "Social Sciences", "Humanities", "Others"},
}

// Occupation is a tagged variant: Field picks the variant and SubField is
// either one entry of OccupationSubFields[Field] (optional) or, for
// OccupationOthers, required free text.
type Occupation struct {
	Field    string `json:"occupation"         bson:"field"`
	SubField string `json:"occupationSubField" bson:"subField,omitempty"`
}

// Valid reports whether o is a well-formed variant.
func (o Occupation) Valid() bool {
	if o.Field == OccupationOthers {
		return o.SubField != ""
	}
	subs, ok := OccupationSubFields[o.Field]
	if !ok {
		return false
	}
	return o.SubField == "" || slices.Contains(subs, o.SubField)
}

// ParticipationOthers unlocks the free-text Custom field.
const ParticipationOthers = "Others"

// ParticipationCategories lists every accepted participation category.
var ParticipationCategories = []string{
	"Education",
	"Sports",
	"Music",
	"Dance",
	"Drama",
	"Debate",
	"Science & Technology",
	"Social Service",
	ParticipationOthers,
}

// Participation records the school activities an alumnus took part in.
// Custom may only be set when Categories contains ParticipationOthers.
type Participation struct {
	Categories []string `json:"participation"       bson:"categories"`
	Custom     string   `json:"customParticipation" bson:"custom,omitempty"`
}

func (p Participation) IsEmpty() bool {
	return len(p.Categories) == 0 && p.Custom == ""
}

// Valid reports whether every category is known, none repeats and Custom
// only appears alongside ParticipationOthers.
func (p Participation) Valid() bool {
	seen := make(map[string]bool, len(p.Categories))
	for _, c := range p.Categories {
		if !slices.Contains(ParticipationCategories, c) || seen[c] {
			return false
		}
		seen[c] = true
	}
	if p.Custom != "" && !seen[ParticipationOthers] {
		return false
	}
	return true
}
