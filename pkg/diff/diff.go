// Package diff compares two versions of a character for review before one
// replaces the other.
package diff

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"unicode"

	"github.com/aryann/difflib"

	"charsmith/pkg/schema"
	"charsmith/pkg/utils"
)

type ChangeType int

const (
	Unchanged ChangeType = iota
	Added
	Removed
	Modified
)

type Op int

const (
	Equal Op = iota
	Insert
	Delete
)

type WordDelta struct {
	Op   Op
	Text string
}

type StringDiff struct {
	Old    string
	New    string
	Deltas []WordDelta
}

type FieldDiff struct {
	Path  string
	State ChangeType
	Str   StringDiff
}

// ListDiff pairs similar entries as edits; the rest are adds and removals.
type ListDiff struct {
	Path  string
	Add   []string
	Del   []string
	Edits []StringDiff
}

func (l ListDiff) empty() bool {
	return len(l.Add) == 0 && len(l.Del) == 0 && len(l.Edits) == 0
}

type CharacterDiff struct {
	Name   string
	State  ChangeType
	Fields []FieldDiff
	Lists  []ListDiff
}

// Changed reports whether anything differs.
func (d CharacterDiff) Changed() bool {
	return d.State != Unchanged
}

func blank(c schema.Character) bool {
	return c.Name == "" && c.Details == "" && c.Hits == "" && c.Fatigue == "" && c.Comeback == "" &&
		c.ImageURL == "" && len(c.Attributes) == 0 && len(c.Aspects) == 0 &&
		len(c.Traits) == 0 && len(c.ProficientSkills) == 0
}

// Characters compares oldC with newC field by field. Attribute and aspect
// entries are compared by key.
func Characters(oldC, newC schema.Character) CharacterDiff {
	fd := make([]FieldDiff, 0, 8)
	addFieldDiff := func(path, a, b string) {
		switch {
		case a == b:
			return
		case a == "":
			fd = append(fd, FieldDiff{Path: path, State: Added, Str: strEq("", b)})
		case b == "":
			fd = append(fd, FieldDiff{Path: path, State: Removed, Str: StringDiff{Old: a, Deltas: []WordDelta{{Op: Delete, Text: a}}}})
		default:
			fd = append(fd, FieldDiff{Path: path, State: Modified, Str: strDiff(a, b)})
		}
	}

	addFieldDiff("name", oldC.Name, newC.Name)
	addFieldDiff("details", oldC.Details, newC.Details)
	for _, a := range schema.AttributeNames {
		addFieldDiff("attributes."+string(a), oldC.Attributes[a], newC.Attributes[a])
	}
	addFieldDiff("hits", oldC.Hits, newC.Hits)
	addFieldDiff("fatigue", oldC.Fatigue, newC.Fatigue)
	addFieldDiff("comeback", oldC.Comeback, newC.Comeback)
	for _, k := range mapKeys(oldC.Aspects, newC.Aspects) {
		addFieldDiff("aspects."+k, oldC.Aspects[k], newC.Aspects[k])
	}
	addFieldDiff("imageUrl", oldC.ImageURL, newC.ImageURL)

	var lists []ListDiff
	for _, l := range []ListDiff{
		listDiff("traits", oldC.Traits, newC.Traits),
		listDiff("proficientSkills", oldC.ProficientSkills, newC.ProficientSkills),
	} {
		if !l.empty() {
			lists = append(lists, l)
		}
	}

	state := Unchanged
	switch {
	case len(fd) == 0 && len(lists) == 0:
	case blank(oldC):
		state = Added
	case blank(newC):
		state = Removed
	default:
		state = Modified
	}

	name := newC.Name
	if name == "" {
		name = oldC.Name
	}
	return CharacterDiff{Name: name, State: state, Fields: fd, Lists: lists}
}

func mapKeys(a, b map[string]string) []string {
	keys := make([]string, 0, len(a)+len(b))
	for k := range a {
		keys = append(keys, k)
	}
	for k := range b {
		if _, ok := a[k]; !ok {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys
}

func listDiff(path string, a, b []string) ListDiff {
	adds, dels, edits := diffStringListSmart(a, b)
	return ListDiff{Path: path, Add: adds, Del: dels, Edits: edits}
}

func strEq(a, b string) StringDiff {
	return StringDiff{Old: a, New: b, Deltas: []WordDelta{{Op: Insert, Text: b}}}
}

func strDiff(a, b string) StringDiff {
	if a == b {
		return StringDiff{Old: a, New: b, Deltas: []WordDelta{{Op: Equal, Text: a}}}
	}
	at := tokenizeWords(a)
	bt := tokenizeWords(b)
	recs := difflib.Diff(at, bt)
	deltas := make([]WordDelta, 0, len(recs))
	for _, r := range recs {
		switch r.Delta {
		case difflib.Common:
			deltas = append(deltas, WordDelta{Op: Equal, Text: r.Payload})
		case difflib.LeftOnly:
			deltas = append(deltas, WordDelta{Op: Delete, Text: r.Payload})
		case difflib.RightOnly:
			deltas = append(deltas, WordDelta{Op: Insert, Text: r.Payload})
		}
	}
	return StringDiff{Old: a, New: b, Deltas: coalesceSpaces(deltas)}
}

func coalesceSpaces(in []WordDelta) []WordDelta {
	out := make([]WordDelta, 0, len(in))
	flush := func(op Op, buf *strings.Builder) {
		if buf.Len() == 0 {
			return
		}
		out = append(out, WordDelta{Op: op, Text: buf.String()})
		buf.Reset()
	}
	var curOp Op = -1
	var buf strings.Builder
	for _, d := range in {
		if strings.TrimSpace(d.Text) == "" && d.Op == Equal {
			buf.WriteString(d.Text)
			continue
		}
		if curOp != d.Op && curOp != -1 {
			flush(curOp, &buf)
		}
		if curOp != d.Op {
			curOp = d.Op
		}
		buf.WriteString(d.Text)
	}
	flush(curOp, &buf)
	return out
}

func diffStringListSmart(a, b []string) (adds, dels []string, edits []StringDiff) {
	usedB := make([]bool, len(b))
	for _, as := range a {
		bestJ, best := -1, 0.0
		for j, bs := range b {
			if usedB[j] {
				continue
			}
			s := utils.Similarity(as, bs)
			if s > best {
				bestJ, best = j, s
			}
		}
		if bestJ >= 0 && best >= 0.70 {
			if as != b[bestJ] {
				edits = append(edits, strDiff(as, b[bestJ]))
			}
			usedB[bestJ] = true
		} else {
			dels = append(dels, as)
		}
	}
	for j, bs := range b {
		if !usedB[j] {
			adds = append(adds, bs)
		}
	}
	return
}

const (
	ansiReset = "\x1b[0m"
	fgGreen   = "\x1b[32m"
	fgRed     = "\x1b[31m"
	fgYellow  = "\x1b[33m"
	fgCyan    = "\x1b[36m"
	faint     = "\x1b[2m"
	uline     = "\x1b[4m"
	strike    = "\x1b[9m"
)

func renderStringDiff(sd StringDiff) string {
	var b strings.Builder
	for _, d := range sd.Deltas {
		switch d.Op {
		case Equal:
			b.WriteString(d.Text)
		case Insert:
			fmt.Fprintf(&b, "%s%s%s%s", fgGreen, uline, d.Text, ansiReset)
		case Delete:
			fmt.Fprintf(&b, "%s%s%s%s", fgRed, strike, d.Text, ansiReset)
		}
	}
	return b.String()
}

func tag(state ChangeType) string {
	return map[ChangeType]string{
		Added:     fgGreen + "[+]" + ansiReset,
		Removed:   fgRed + "[-]" + ansiReset,
		Modified:  fgYellow + "[~]" + ansiReset,
		Unchanged: faint + "[=]" + ansiReset,
	}[state]
}

func (d CharacterDiff) Print(w io.Writer) {
	name := d.Name
	if name == "" {
		name = faint + "(unnamed)" + ansiReset
	}
	fmt.Fprintf(w, "%s %s\n", tag(d.State), name)
	for _, f := range d.Fields {
		fmt.Fprintf(w, "  %s %s: %s\n", tag(f.State), f.Path, renderStringDiff(f.Str))
	}
	for _, l := range d.Lists {
		fmt.Fprintf(w, "  %s%s%s\n", fgCyan, l.Path, ansiReset)
		for _, s := range l.Del {
			fmt.Fprintf(w, "    - %s%s%s%s\n", fgRed, strike, s, ansiReset)
		}
		for _, s := range l.Add {
			fmt.Fprintf(w, "    + %s%s%s%s\n", fgGreen, uline, s, ansiReset)
		}
		for _, sd := range l.Edits {
			fmt.Fprintf(w, "    * %s\n", renderStringDiff(sd))
		}
	}
}

// tokenizeWords splits s into runs of whitespace, words, and punctuation so
// the pieces concatenate back to s.
func tokenizeWords(s string) []string {
	var out []string
	var cur []rune
	kind := -1 // 0 space, 1 word, 2 punctuation
	flush := func() {
		if len(cur) == 0 {
			return
		}
		out = append(out, string(cur))
		cur = cur[:0]
	}
	for _, r := range s {
		k := 2
		switch {
		case unicode.IsSpace(r):
			k = 0
		case unicode.IsLetter(r) || unicode.IsNumber(r) || r == '_' || r == '-' || r == '\'':
			k = 1
		}
		if kind == -1 {
			kind = k
		}
		if k != kind {
			flush()
			kind = k
		}
		cur = append(cur, r)
	}
	flush()
	return out
}
