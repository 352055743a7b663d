package structure

import (
	"strings"

	"github.com/gnana997/nativestub/pkg/definition"
	"github.com/gnana997/nativestub/pkg/typemap"
)

// Signature is a parsed "(params) [async] [throws] [-> Ret]" text.
type Signature struct {
	Parameters []definition.ParameterInfo
	ReturnType string
	// HasArrow is false when no return type was written.
	HasArrow bool
}

// ToFunctionSignature maps the textual types. A missing return type maps to
// Void, as in a declaration.
func (s Signature) ToFunctionSignature() definition.FunctionSignature {
	return definition.FunctionSignature{
		Parameters: s.Parameters,
		ReturnType: typemap.Map(s.ReturnType),
	}
}

// ParseSignature parses a parenthesized parameter list with an optional
// effect list and return type. ok is false when text does not start with a
// balanced parameter list.
func ParseSignature(text string) (Signature, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "(") {
		return Signature{}, false
	}
	end := matchingClose(text, 0)
	if end < 0 {
		return Signature{}, false
	}

	sig := Signature{}
	for _, part := range splitTopLevel(text[1:end], ',') {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		sig.Parameters = append(sig.Parameters, parseParameter(part))
	}

	rest := stripEffects(strings.TrimSpace(text[end+1:]))
	if strings.HasPrefix(rest, "->") {
		sig.HasArrow = true
		sig.ReturnType = strings.TrimSpace(rest[2:])
	}
	return sig, true
}

// ParseClosureHeader reads the signature written at the start of a closure
// literal, e.g. `{ (a: Int, b: Int) -> Int in a + b }`.
func ParseClosureHeader(text string) (Signature, bool) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "{")
	text = strings.TrimSpace(text)

	// Capture list.
	if strings.HasPrefix(text, "[") {
		end := matchingClose(text, 0)
		if end < 0 {
			return Signature{}, false
		}
		text = strings.TrimSpace(text[end+1:])
	}

	in := findKeywordIn(text)
	if in < 0 {
		return Signature{}, false
	}
	return ParseSignature(text[:in])
}

func parseParameter(part string) definition.ParameterInfo {
	if eq := indexTopLevel(part, '='); eq >= 0 {
		part = strings.TrimSpace(part[:eq])
	}

	colon := indexTopLevel(part, ':')
	if colon < 0 {
		return definition.ParameterInfo{Type: typemap.Map(cleanType(part))}
	}

	var name *string
	labels := strings.Fields(part[:colon])
	if len(labels) > 0 {
		if last := labels[len(labels)-1]; last != "_" {
			name = definition.StrPtr(last)
		}
	}
	return definition.ParameterInfo{
		Name: name,
		Type: typemap.Map(cleanType(part[colon+1:])),
	}
}

// cleanType drops attributes and ownership modifiers from a written type.
func cleanType(t string) string {
	t = strings.TrimSpace(t)
	for {
		switch {
		case strings.HasPrefix(t, "@"):
			sp := strings.IndexAny(t, " \t")
			if sp < 0 {
				return ""
			}
			t = strings.TrimSpace(t[sp:])
		case strings.HasPrefix(t, "inout "), strings.HasPrefix(t, "borrowing "), strings.HasPrefix(t, "consuming "):
			t = strings.TrimSpace(t[strings.Index(t, " "):])
		default:
			return strings.TrimSuffix(t, "...")
		}
	}
}

func stripEffects(s string) string {
	for {
		switch {
		case strings.HasPrefix(s, "async"):
			s = strings.TrimSpace(s[len("async"):])
		case strings.HasPrefix(s, "rethrows"):
			s = strings.TrimSpace(s[len("rethrows"):])
		case strings.HasPrefix(s, "throws"):
			s = strings.TrimSpace(s[len("throws"):])
		default:
			return s
		}
	}
}

// matchingClose returns the index of the bracket closing the one at open,
// or -1.
func matchingClose(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		if isArrow(s, i) {
			i++
			continue
		}
		switch s[i] {
		case '(', '[', '<':
			depth++
		case ')', ']', '>':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitTopLevel splits s on sep outside any brackets.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		if isArrow(s, i) {
			i++
			continue
		}
		switch s[i] {
		case '(', '[', '<':
			depth++
		case ')', ']', '>':
			depth--
		case sep:
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

func indexTopLevel(s string, c byte) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		if isArrow(s, i) {
			i++
			continue
		}
		switch s[i] {
		case '(', '[', '<':
			depth++
		case ')', ']', '>':
			depth--
		case c:
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func isArrow(s string, i int) bool {
	return s[i] == '-' && i+1 < len(s) && s[i+1] == '>'
}

// findKeywordIn returns the offset of the closure `in` keyword at bracket
// depth zero, or -1.
func findKeywordIn(s string) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		if isArrow(s, i) {
			i++
			continue
		}
		switch s[i] {
		case '(', '[', '<':
			depth++
		case ')', ']', '>':
			depth--
		case 'i':
			if depth == 0 && strings.HasPrefix(s[i:], "in") &&
				(i == 0 || isSpace(s[i-1])) &&
				(i+2 == len(s) || isSpace(s[i+2])) {
				return i
			}
		}
	}
	return -1
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
