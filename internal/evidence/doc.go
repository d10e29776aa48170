package evidence

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/scry-dev/scry/internal/schema"
	"github.com/scry-dev/scry/internal/source"
)

// Doc scanning recognizes four grammars, strongest first:
//
//  1. an explicit positional parameter list in a signature-style
//     heading ("Resize(width, height) scales ...")
//  2. a dedicated Parameters:/Arguments: section parsed line by line
//     with the grammar "name - type (constraint), description"
//  3. the same line grammar inline anywhere in the text
//  4. a definition-list fallback ("name: type (constraint) ...")
//
// A leading "$" sigil on names is tolerated and stripped, since the
// section grammar predates this tool and shows up verbatim in docs
// ported from other ecosystems.

// sectionHeading matches a "Parameters:" or "Arguments:" heading.
var sectionHeading = regexp.MustCompile(`(?i)^\s*(parameters|arguments|args)\s*:\s*$`)

// otherHeading matches any other "Word:" heading that terminates a
// parameter section.
var otherHeading = regexp.MustCompile(`^\s*[A-Z][A-Za-z ]*:\s*$`)

// paramLine is the dedicated-section line grammar:
// "name - type (constraint), description" with optional bullet and
// optional sigil.
var paramLine = regexp.MustCompile(
	`^\s*[-*]?\s*\$?([A-Za-z_]\w*)\s+-\s+([A-Za-z][\w-]*)(?:\s*\(([^)]*)\))?(?:\s*,\s*(.*))?$`)

// signatureHeading matches "Name(a, b, c)" at the start of the doc.
var signatureHeading = regexp.MustCompile(`^\s*\w+\(([^)]*)\)`)

// defListLine is the definition-list fallback grammar.
var defListLine = regexp.MustCompile(
	`^\s*\$?([a-z_]\w*)\s*:\s*([A-Za-z][\w-]*)(?:\s*\(([^)]*)\))?(?:\s+(.*))?$`)

// ScanDoc produces the documentation-derived partial parameter map.
func ScanDoc(u *source.CallableUnit) map[string]*Finding {
	out := make(map[string]*Finding)
	if u.Doc == "" {
		return out
	}
	lines := strings.Split(u.Doc, "\n")

	scanSignatureHeading(lines, out)
	inSection := scanParamSection(lines, out)

	// Fallback grammars only fire when no dedicated section parsed
	// anything, to avoid double-reading the same lines.
	if !inSection {
		scanInline(lines, out)
		if len(out) == 0 {
			scanDefList(lines, out)
		}
	}

	return out
}

// scanSignatureHeading reads positional parameter names from a
// signature-style first line. Only names and positions come from
// this form.
func scanSignatureHeading(lines []string, out map[string]*Finding) {
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		m := signatureHeading.FindStringSubmatch(line)
		if m == nil {
			return
		}
		pos := 0
		for _, raw := range strings.Split(m[1], ",") {
			name := strings.TrimPrefix(strings.TrimSpace(raw), "$")
			if name == "" {
				continue
			}
			// Drop a declared type if the heading carries one
			// ("width int" form): the name is the first token.
			name = strings.Fields(name)[0]
			p := pos
			ensure(out, name).Position = &p
			pos++
		}
		return
	}
}

// scanParamSection parses the dedicated Parameters:/Arguments:
// section. Reports whether a section was found and yielded entries.
func scanParamSection(lines []string, out map[string]*Finding) bool {
	found := false
	in := false
	for _, line := range lines {
		switch {
		case sectionHeading.MatchString(line):
			in = true
			continue
		case in && otherHeading.MatchString(line):
			in = false
			continue
		}
		if !in {
			continue
		}
		if parseParamLine(line, out) {
			found = true
		}
	}
	return found
}

// scanInline applies the line grammar anywhere in the text, but only
// accepts lines whose type token normalizes: arbitrary prose with a
// dash does not produce findings.
func scanInline(lines []string, out map[string]*Finding) {
	for _, line := range lines {
		m := paramLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if t, _ := normalizeTypeToken(m[2]); t == "" {
			continue
		}
		parseParamLine(line, out)
	}
}

// scanDefList applies the definition-list fallback.
func scanDefList(lines []string, out map[string]*Finding) {
	for _, line := range lines {
		m := defListLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		typ, class := normalizeTypeToken(m[2])
		if typ == "" {
			continue
		}
		f := ensure(out, m[1])
		f.Type = typ
		f.Class = class
		parseConstraintText(m[3], f)
		parseOptionality(m[3]+" "+m[4], f)
	}
}

// parseParamLine parses one "name - type (constraint), description"
// line into the map. Returns whether the line matched.
func parseParamLine(line string, out map[string]*Finding) bool {
	m := paramLine.FindStringSubmatch(line)
	if m == nil {
		return false
	}
	name, typeTok, constraint, desc := m[1], m[2], m[3], m[4]

	f := ensure(out, name)
	typ, class := normalizeTypeToken(typeTok)
	if typ != "" {
		f.Type = typ
		f.Class = class
	}
	parseConstraintText(constraint, f)
	parseOptionality(constraint+" "+desc, f)
	if desc != "" && f.Note == "" {
		f.Note = strings.TrimSpace(desc)
	}
	return true
}

// normalizeTypeToken maps a documentation type token to the
// canonical set. Unrecognized capitalized tokens are treated as
// object class names; anything else is rejected.
func normalizeTypeToken(tok string) (schema.ParamType, string) {
	switch strings.ToLower(tok) {
	case "int", "integer":
		return schema.TypeInteger, ""
	case "float", "number", "num", "double":
		return schema.TypeNumber, ""
	case "bool", "boolean", "flag":
		return schema.TypeBoolean, ""
	case "string", "str", "text":
		return schema.TypeString, ""
	case "array", "list", "slice", "arrayref":
		return schema.TypeArray, ""
	case "map", "hash", "dict", "hashref":
		return schema.TypeMap, ""
	case "code", "coderef", "func", "function", "callback", "closure":
		return schema.TypeCodeRef, ""
	case "object", "obj", "struct", "instance":
		return schema.TypeObject, ""
	}
	if tok != "" && tok[0] >= 'A' && tok[0] <= 'Z' {
		return schema.TypeObject, tok
	}
	return "", ""
}

// Constraint grammars.
var (
	rangeRe      = regexp.MustCompile(`(-?\d+(?:\.\d+)?)\s*-\s*(-?\d+(?:\.\d+)?)`)
	minRe        = regexp.MustCompile(`(?i)\bmin(?:imum)?\s+(-?\d+(?:\.\d+)?)`)
	maxRe        = regexp.MustCompile(`(?i)\bmax(?:imum)?\s+(-?\d+(?:\.\d+)?)`)
	comparisonRe = regexp.MustCompile(`(<=|>=|<|>)\s*(-?\d+(?:\.\d+)?)`)
)

// parseConstraintText extracts min/max bounds from a constraint
// string: "A-B" ranges, "min N"/"max N", "positive",
// "non-negative", and comparison operators. Strict comparisons get
// the inclusive off-by-one adjustment.
func parseConstraintText(text string, f *Finding) {
	if text == "" {
		return
	}

	if m := rangeRe.FindStringSubmatch(text); m != nil {
		lo, err1 := strconv.ParseFloat(m[1], 64)
		hi, err2 := strconv.ParseFloat(m[2], 64)
		if err1 == nil && err2 == nil && lo <= hi {
			f.Min, f.Max = &lo, &hi
			return
		}
	}

	if m := minRe.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			f.Min = &v
		}
	}
	if m := maxRe.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			f.Max = &v
		}
	}

	lower := strings.ToLower(text)
	if strings.Contains(lower, "non-negative") || strings.Contains(lower, "nonnegative") {
		zero := 0.0
		f.Min = &zero
	} else if strings.Contains(lower, "positive") {
		one := 1.0
		f.Min = &one
	}

	for _, m := range comparisonRe.FindAllStringSubmatch(text, -1) {
		v, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		switch m[1] {
		case "<":
			v--
			f.Max = &v
		case "<=":
			f.Max = &v
		case ">":
			v++
			f.Min = &v
		case ">=":
			f.Min = &v
		}
	}
}

// parseOptionality reads explicit optional/required keywords. Status
// is never inferred from absence: no keyword, no finding.
func parseOptionality(text string, f *Finding) {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "optional"):
		f.Optional = schema.Optional
	case strings.Contains(lower, "required") || strings.Contains(lower, "mandatory"):
		f.Optional = schema.Required
	}
}

// ensure returns the finding for name, creating it if needed.
func ensure(m map[string]*Finding, name string) *Finding {
	if f, ok := m[name]; ok {
		return f
	}
	f := &Finding{}
	m[name] = f
	return f
}
