// Package mockgen renders ModuleDefinitions as TypeScript stub modules.
//
// Each stub module declares a placeholder alias for every referenced type,
// then one function per Function and AsyncFunction whose body returns a
// trivial value of the declared type. Properties, events, props and
// lifecycle hooks have no generated counterpart.
package mockgen

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gnana997/nativestub/pkg/definition"
	"github.com/gnana997/nativestub/pkg/parser"
	"github.com/gnana997/nativestub/pkg/typemap"
)

// FileExtension is the extension of written stub files.
const FileExtension = ".ts"

const header = "// Generated by nativestub. DO NOT EDIT.\n"

// TypesToStub returns the sorted set of reference type names used by any
// parameter or return type in mods. Names that are not plain identifiers
// render as any and need no alias. Reserved words and names the stubs
// themselves use, such as Promise, are never aliased.
func TypesToStub(mods ...definition.ModuleDefinition) []string {
	seen := make(map[string]struct{})
	add := func(d typemap.Descriptor) {
		d = d.Innermost()
		if d.Kind != typemap.KindReference || emittedNames[d.Name] || reservedWords[d.Name] {
			return
		}
		if typemap.IsIdentifier(d.Name) {
			seen[d.Name] = struct{}{}
		}
	}

	for _, m := range mods {
		for _, group := range [][]definition.Declaration{m.Functions, m.AsyncFunctions, m.Properties, m.Props, m.OnCreate} {
			for _, decl := range group {
				for _, p := range decl.Signature.Parameters {
					add(p.Type)
				}
				add(decl.Signature.ReturnType)
			}
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// StubValue returns the literal a stub returns for d. ok is false for Void,
// which gets no return statement.
func StubValue(d typemap.Descriptor) (literal string, ok bool) {
	switch d.Kind {
	case typemap.KindVoid:
		return "", false
	case typemap.KindArray:
		return "[]", true
	case typemap.KindPrimitive:
		class, _ := d.Class()
		switch class {
		case typemap.ClassString:
			return "''", true
		case typemap.ClassBoolean:
			return "false", true
		case typemap.ClassNumber:
			return "0", true
		}
	}
	return "null", true
}

// GenerateFunction renders one exported stub function. Async functions wrap
// the return type in Promise but return the same literal.
//
// A name that cannot be a TypeScript binding, such as delete or my-func, is
// declared under a local name and re-exported under the original one.
func GenerateFunction(decl definition.Declaration, async bool) string {
	var buf bytes.Buffer

	params := make([]string, len(decl.Signature.Parameters))
	for i, p := range decl.Signature.Parameters {
		name := p.Label()
		if name == "" {
			name = fmt.Sprintf("arg%d", i)
		}
		name, _ = localName(name)
		params[i] = name + ": " + p.Type.TSType()
	}

	ret := decl.Signature.ReturnType.TSType()
	keyword := "function"
	if async {
		keyword = "async function"
		ret = "Promise<" + ret + ">"
	}

	local, exported := localName(decl.Label())
	if exported {
		buf.WriteString("export ")
	}
	fmt.Fprintf(&buf, "%s %s(%s): %s {\n", keyword, local, strings.Join(params, ", "), ret)
	if literal, ok := StubValue(decl.Signature.ReturnType); ok {
		fmt.Fprintf(&buf, "  return %s;\n", literal)
	}
	buf.WriteString("}\n")
	if !exported {
		fmt.Fprintf(&buf, "export { %s as %s };\n", local, exportName(decl.Label()))
	}
	return buf.String()
}

// GenerateModule renders the complete stub unit for m: aliases, then
// functions, then async functions. The output is deterministic.
func GenerateModule(m definition.ModuleDefinition) string {
	var buf bytes.Buffer
	buf.WriteString(header)

	if aliases := TypesToStub(m); len(aliases) > 0 {
		buf.WriteString("\n")
		for _, name := range aliases {
			fmt.Fprintf(&buf, "export type %s = any;\n", name)
		}
	}

	for _, decl := range m.Functions {
		if decl.Name == nil {
			continue
		}
		buf.WriteString("\n")
		buf.WriteString(GenerateFunction(decl, false))
	}
	for _, decl := range m.AsyncFunctions {
		if decl.Name == nil {
			continue
		}
		buf.WriteString("\n")
		buf.WriteString(GenerateFunction(decl, true))
	}
	return buf.String()
}

// OutputPath returns the file a module's stub is written to.
func OutputPath(outDir string, m definition.ModuleDefinition) string {
	return filepath.Join(outDir, m.Name+FileExtension)
}

// WriteModule writes unit to <outDir>/<Name>.ts, creating outDir as needed.
func WriteModule(outDir string, m definition.ModuleDefinition, unit string) (string, error) {
	if m.Name == "" {
		return "", fmt.Errorf("module from %s has no name", m.SourcePath)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := OutputPath(outDir, m)
	if err := os.WriteFile(path, []byte(unit), 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// Verify parses unit as TypeScript and reports the first syntax error.
func Verify(pm *parser.ParserManager, unit string) error {
	errs, err := pm.Check([]byte(unit))
	if err != nil {
		return fmt.Errorf("failed to parse stub: %w", err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("stub has %d syntax error(s), first at %w", len(errs), errs[0])
	}
	return nil
}
