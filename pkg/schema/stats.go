package schema

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Tracker names one of the running counters on the sheet.
type Tracker string

const (
	Hits     Tracker = "hits"
	Fatigue  Tracker = "fatigue"
	Comeback Tracker = "comeback"
)

var ErrNameTooLong = fmt.Errorf("name is longer than %d characters", MaxNameLength)

// Stat parses numeric text for arithmetic. Anything unparsable, or below min,
// comes back as min.
func Stat(s string, min int) int {
	s = strings.TrimSpace(s)
	n, err := strconv.Atoi(s)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return min
		}
		switch {
		case f >= math.MaxInt:
			n = math.MaxInt
		case f <= math.MinInt:
			n = math.MinInt
		default:
			n = int(math.Trunc(f))
		}
	}
	if n < min {
		return min
	}
	return n
}

// Attribute returns the numeric rating of an attribute, 0 when unset.
func (c Character) Attribute(name AttributeName) int {
	return Stat(c.Attributes[name], 0)
}

// Aspect returns the numeric rating of an aspect, 0 when unset.
func (c Character) Aspect(name string) int {
	return Stat(c.Aspects[name], 0)
}

// Tracker returns the stored text of a tracker.
func (c Character) Tracker(t Tracker) (string, error) {
	switch t {
	case Hits:
		return c.Hits, nil
	case Fatigue:
		return c.Fatigue, nil
	case Comeback:
		return c.Comeback, nil
	}
	return "", fmt.Errorf("unknown tracker %q", t)
}

// Adjust adds delta to a tracker, never going below min or past math.MaxInt,
// and stores the result back as text.
func (c Character) Adjust(t Tracker, delta, min int) (Character, error) {
	cur, err := c.Tracker(t)
	if err != nil {
		return c, err
	}
	return c.Set(string(t), strconv.Itoa(max(addSaturated(Stat(cur, min), delta), min)))
}

func addSaturated(a, b int) int {
	switch {
	case b > 0 && a > math.MaxInt-b:
		return math.MaxInt
	case b < 0 && a < math.MinInt-b:
		return math.MinInt
	}
	return a + b
}

// Set replaces one field and returns the updated copy. Paths are JSON keys;
// map entries are addressed as "attributes.<name>" or "aspects.<name>", and an
// empty value removes the entry. List fields take a comma separated value.
func (c Character) Set(path, value string) (Character, error) {
	out := c.Clone()

	field, key, keyed := strings.Cut(path, ".")
	if keyed {
		if key == "" {
			return c, fmt.Errorf("missing key in %q", path)
		}
		switch field {
		case "attributes":
			name := AttributeName(key)
			if !name.Valid() {
				return c, fmt.Errorf("unknown attribute %q", key)
			}
			if value == "" {
				delete(out.Attributes, name)
			} else {
				out.Attributes[name] = value
			}
			return out, nil
		case "aspects":
			if value == "" {
				delete(out.Aspects, key)
			} else {
				out.Aspects[key] = value
			}
			return out, nil
		}
		return c, fmt.Errorf("unknown field %q", path)
	}

	switch field {
	case "name":
		if utf8.RuneCountInString(value) > MaxNameLength {
			return c, ErrNameTooLong
		}
		out.Name = value
	case "details":
		out.Details = value
	case "hits":
		out.Hits = value
	case "fatigue":
		out.Fatigue = value
	case "comeback":
		out.Comeback = value
	case "imageUrl":
		out.ImageURL = value
	case "traits":
		out.Traits = splitList(value)
	case "proficientSkills":
		out.ProficientSkills = splitList(value)
	default:
		return c, errors.New("unknown field " + strconv.Quote(path))
	}
	return out, nil
}

func splitList(s string) []string {
	out := []string{}
	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
