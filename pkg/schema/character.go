package schema

import (
	"maps"
	"slices"
)

// AttributeName is one of the fixed attributes a character is rated in.
type AttributeName string

const (
	Intellect AttributeName = "intellect"
	Sense     AttributeName = "sense"
	Agility   AttributeName = "agility"
	Strength  AttributeName = "strength"
	Wit       AttributeName = "wit"
)

// AttributeNames lists every attribute in sheet order.
var AttributeNames = []AttributeName{Intellect, Sense, Agility, Strength, Wit}

func (a AttributeName) Valid() bool {
	return slices.Contains(AttributeNames, a)
}

// MaxNameLength is counted in code points, not bytes.
const MaxNameLength = 256

// Character is the record the character builder edits. Numeric-looking fields
// are kept as text and only parsed where arithmetic happens (see Stat).
type Character struct {
	Name             string                   `json:"name" jsonschema:"maxLength=256" jsonschema_description:"Character name, at most 256 characters"`
	Details          string                   `json:"details" jsonschema_description:"Free-form background and notes"`
	Attributes       map[AttributeName]string `json:"attributes" jsonschema_description:"Attribute ratings keyed by attribute name, stored as numeric text"`
	Hits             string                   `json:"hits" jsonschema_description:"Current hits, stored as numeric text"`
	Fatigue          string                   `json:"fatigue" jsonschema_description:"Current fatigue, stored as numeric text"`
	Comeback         string                   `json:"comeback" jsonschema_description:"Comeback points, stored as numeric text"`
	Traits           []string                 `json:"traits" jsonschema_description:"Trait labels in the order they were picked"`
	ProficientSkills []string                 `json:"proficientSkills" jsonschema_description:"Skills the character is proficient in"`
	Aspects          map[string]string        `json:"aspects" jsonschema_description:"Aspect ratings keyed by aspect name, stored as numeric text"`
	ImageURL         string                   `json:"imageUrl" jsonschema_description:"Portrait URL"`
}

// New returns a character with every field at its default.
func New() Character {
	return Character{
		Attributes:       make(map[AttributeName]string),
		Traits:           []string{},
		ProficientSkills: []string{},
		Aspects:          make(map[string]string),
	}
}

// Clone returns a deep copy with nil collections replaced by empty ones.
func (c Character) Clone() Character {
	out := c
	out.Attributes = make(map[AttributeName]string, len(c.Attributes))
	maps.Copy(out.Attributes, c.Attributes)
	out.Aspects = make(map[string]string, len(c.Aspects))
	maps.Copy(out.Aspects, c.Aspects)
	out.Traits = append([]string{}, c.Traits...)
	out.ProficientSkills = append([]string{}, c.ProficientSkills...)
	return out
}
