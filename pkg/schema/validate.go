package schema

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Issue records one field that was coerced back to its default.
type Issue struct {
	Field  string `json:"field,omitempty"`
	Reason string `json:"reason"`
}

// DecodeError lists every coercion applied while decoding a character. The
// character returned alongside it is still complete and usable.
type DecodeError struct {
	Issues []Issue `json:"issues"`
}

func (e *DecodeError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		if is.Field == "" {
			parts = append(parts, is.Reason)
			continue
		}
		parts = append(parts, is.Field+": "+is.Reason)
	}
	return "invalid character: " + strings.Join(parts, "; ")
}

func (e *DecodeError) add(field, format string, args ...any) {
	e.Issues = append(e.Issues, Issue{Field: field, Reason: fmt.Sprintf(format, args...)})
}

// Validate turns any value into a complete Character. Missing or malformed
// fields take their defaults; it never fails.
func Validate(v any) Character {
	c, _ := Check(v)
	return c
}

// Check is Validate with the coercions reported as a *DecodeError. Absent
// fields are not reported.
func Check(v any) (Character, error) {
	var errs DecodeError
	c := New()

	switch in := v.(type) {
	case nil:
	case map[string]any:
		c = fromObject(in, &errs)
	default:
		errs.add("", "expected object, got %s", kindOf(v))
	}

	if len(errs.Issues) > 0 {
		return c, &errs
	}
	return c, nil
}

// Decode parses JSON text and checks it. Text that is not JSON yields the
// default character and a *DecodeError.
func Decode(raw []byte) (Character, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return New(), &DecodeError{Issues: []Issue{{Reason: "invalid json: " + err.Error()}}}
	}
	return Check(v)
}

// Parse is Decode with the error dropped.
func Parse(raw []byte) Character {
	c, _ := Decode(raw)
	return c
}

func fromObject(obj map[string]any, errs *DecodeError) Character {
	c := New()

	c.Name = stringField(obj, "name", errs)
	if utf8.RuneCountInString(c.Name) > MaxNameLength {
		errs.add("name", "longer than %d characters", MaxNameLength)
		c.Name = ""
	}
	c.Details = stringField(obj, "details", errs)
	c.Hits = stringField(obj, "hits", errs)
	c.Fatigue = stringField(obj, "fatigue", errs)
	c.Comeback = stringField(obj, "comeback", errs)
	c.ImageURL = stringField(obj, "imageUrl", errs)

	c.Traits = listField(obj, "traits", errs)
	c.ProficientSkills = listField(obj, "proficientSkills", errs)

	for k, v := range mapField(obj, "attributes", errs) {
		name := AttributeName(k)
		if !name.Valid() {
			errs.add("attributes."+k, "unknown attribute")
			continue
		}
		c.Attributes[name] = v
	}
	c.Aspects = mapField(obj, "aspects", errs)

	return c
}

func stringField(obj map[string]any, key string, errs *DecodeError) string {
	raw, ok := obj[key]
	if !ok || raw == nil {
		return ""
	}
	s, ok := raw.(string)
	if !ok {
		errs.add(key, "expected string, got %s", kindOf(raw))
		return ""
	}
	return s
}

func listField(obj map[string]any, key string, errs *DecodeError) []string {
	out := []string{}
	raw, ok := obj[key]
	if !ok || raw == nil {
		return out
	}
	items, ok := raw.([]any)
	if !ok {
		errs.add(key, "expected array, got %s", kindOf(raw))
		return out
	}
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			errs.add(fmt.Sprintf("%s[%d]", key, i), "expected string, got %s", kindOf(item))
			continue
		}
		out = append(out, s)
	}
	return out
}

func mapField(obj map[string]any, key string, errs *DecodeError) map[string]string {
	out := make(map[string]string)
	raw, ok := obj[key]
	if !ok || raw == nil {
		return out
	}
	entries, ok := raw.(map[string]any)
	if !ok {
		errs.add(key, "expected object, got %s", kindOf(raw))
		return out
	}
	for k, v := range entries {
		s, ok := v.(string)
		if !ok {
			errs.add(key+"."+k, "expected string, got %s", kindOf(v))
			continue
		}
		out[k] = s
	}
	return out
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64, float32, int, int64, json.Number:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
