package schema

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDefaults(t *testing.T) {
	inputs := map[string]any{
		"nil":          nil,
		"empty object": map[string]any{},
		"number":       42.0,
		"string":       "character",
		"array":        []any{"a", 1.0},
		"bool":         true,
	}

	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				assert.Equal(t, New(), Validate(in))
			})
		})
	}
}

func TestValidateArbitraryJSON(t *testing.T) {
	docs := []string{
		`null`,
		`{}`,
		`[]`,
		`"x"`,
		`{"name":null,"traits":null,"attributes":null}`,
		`{"name":{"first":"A"},"attributes":[1,2],"aspects":"brave","traits":{"a":1}}`,
		`{"unknown":true,"nested":{"deep":[1,2,3]}}`,
	}

	for _, doc := range docs {
		var v any
		require.NoError(t, json.Unmarshal([]byte(doc), &v))

		c := Validate(v)
		assert.NotNil(t, c.Attributes, doc)
		assert.NotNil(t, c.Aspects, doc)
		assert.NotNil(t, c.Traits, doc)
		assert.NotNil(t, c.ProficientSkills, doc)
		assert.Empty(t, c.Name, doc)
	}
}

func TestCheckPartialInput(t *testing.T) {
	c, err := Check(map[string]any{
		"name":   "Wren",
		"hits":   "4",
		"traits": []any{"Stubborn"},
	})
	require.NoError(t, err)

	want := New()
	want.Name = "Wren"
	want.Hits = "4"
	want.Traits = []string{"Stubborn"}
	assert.Equal(t, want, c)
}

func TestCheckReportsCoercions(t *testing.T) {
	c, err := Check(map[string]any{
		"name":       "Wren",
		"hits":       3.0,
		"attributes": map[string]any{"agility": "2", "charm": "1", "wit": 4.0},
		"traits":     []any{"Quick", 7.0, "Sly"},
		"aspects":    "none",
	})

	var derr *DecodeError
	require.ErrorAs(t, err, &derr)

	fields := make([]string, 0, len(derr.Issues))
	for _, is := range derr.Issues {
		fields = append(fields, is.Field)
	}
	assert.ElementsMatch(t, []string{"hits", "attributes.charm", "attributes.wit", "traits[1]", "aspects"}, fields)

	assert.Equal(t, "Wren", c.Name)
	assert.Empty(t, c.Hits, "numbers are not numeric text")
	assert.Equal(t, map[AttributeName]string{Agility: "2"}, c.Attributes)
	assert.Equal(t, []string{"Quick", "Sly"}, c.Traits)
	assert.Equal(t, map[string]string{}, c.Aspects)
}

func TestCheckNameLength(t *testing.T) {
	exact := strings.Repeat("é", MaxNameLength)
	c, err := Check(map[string]any{"name": exact})
	require.NoError(t, err)
	assert.Equal(t, exact, c.Name)

	c, err = Check(map[string]any{"name": exact + "x"})
	require.Error(t, err)
	assert.Empty(t, c.Name)
}

func TestDecodeInvalidJSON(t *testing.T) {
	c, err := Decode([]byte("not json"))

	var derr *DecodeError
	require.ErrorAs(t, err, &derr)
	require.Len(t, derr.Issues, 1)
	assert.Contains(t, derr.Issues[0].Reason, "invalid json")
	assert.Equal(t, New(), c)
	assert.Contains(t, err.Error(), "invalid character")

	assert.Equal(t, New(), Parse(nil))
}

func TestDecodeRoundTrip(t *testing.T) {
	c := New()
	c.Name = "Ossory"
	c.Details = "Lamplighter of the east quarter"
	c.Attributes[Intellect] = "2"
	c.Attributes[Wit] = "3"
	c.Hits = "6"
	c.Fatigue = "1"
	c.Comeback = "0"
	c.Traits = []string{"Patient", "Curious"}
	c.ProficientSkills = []string{"Lore", "Stealth"}
	c.Aspects["Lantern"] = "2"
	c.ImageURL = "https://example.test/images/abc"

	raw, err := json.Marshal(c)
	require.NoError(t, err)

	got, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestCharacterSchema(t *testing.T) {
	raw, err := json.Marshal(CharacterSchema)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))

	props, ok := doc["properties"].(map[string]any)
	require.True(t, ok)
	for _, key := range []string{"name", "details", "attributes", "hits", "fatigue", "comeback", "traits", "proficientSkills", "aspects", "imageUrl"} {
		assert.Contains(t, props, key)
	}

	name := props["name"].(map[string]any)
	assert.EqualValues(t, MaxNameLength, name["maxLength"])

	attrs := props["attributes"].(map[string]any)
	names := attrs["propertyNames"].(map[string]any)
	assert.ElementsMatch(t, []any{"intellect", "sense", "agility", "strength", "wit"}, names["enum"])
}
