package mockgen

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/gnana997/nativestub/pkg/definition"
	"github.com/gnana997/nativestub/pkg/typemap"
)

// reservedWords cannot name a function or parameter in a TypeScript module.
// Module code is strict, so the strict-mode words are included.
var reservedWords = map[string]bool{
	"await": true, "break": true, "case": true, "catch": true, "class": true,
	"const": true, "continue": true, "debugger": true, "default": true,
	"delete": true, "do": true, "else": true, "enum": true, "export": true,
	"extends": true, "false": true, "finally": true, "for": true,
	"function": true, "if": true, "implements": true, "import": true,
	"in": true, "instanceof": true, "interface": true, "let": true,
	"new": true, "null": true, "package": true, "private": true,
	"protected": true, "public": true, "return": true, "static": true,
	"super": true, "switch": true, "this": true, "throw": true, "true": true,
	"try": true, "typeof": true, "var": true, "void": true, "while": true,
	"with": true, "yield": true,
}

// emittedNames are type names the generated code relies on. Aliasing one of
// them would shadow the global.
var emittedNames = map[string]bool{
	"Promise": true,
}

// localName returns a name usable as a binding for name. ok is false when
// name had to be rewritten: reserved words get a trailing underscore and
// other characters that cannot appear in an identifier become underscores.
func localName(name string) (local string, ok bool) {
	if typemap.IsIdentifier(name) && !reservedWords[name] {
		return name, true
	}
	if reservedWords[name] {
		return name + "_", false
	}

	var b strings.Builder
	for i, r := range name {
		switch {
		case r == '_' || r == '$' || unicode.IsLetter(r):
			b.WriteRune(r)
		case unicode.IsDigit(r):
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "_", false
	}
	return b.String(), false
}

// exportName is how name appears in an export clause. Reserved words are
// valid export names; anything else that is not an identifier is quoted.
func exportName(name string) string {
	if typemap.IsIdentifier(name) {
		return name
	}
	return strconv.Quote(name)
}

// RenamedDeclarations lists the function names in m that are not valid
// TypeScript bindings. Their stubs are declared under a local name and
// re-exported under the original one.
func RenamedDeclarations(m definition.ModuleDefinition) []string {
	var names []string
	for _, group := range [][]definition.Declaration{m.Functions, m.AsyncFunctions} {
		for _, decl := range group {
			if decl.Name == nil {
				continue
			}
			if _, ok := localName(*decl.Name); !ok {
				names = append(names, *decl.Name)
			}
		}
	}
	return names
}
