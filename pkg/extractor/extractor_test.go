package extractor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnana997/nativestub/pkg/definition"
	"github.com/gnana997/nativestub/pkg/source"
	"github.com/gnana997/nativestub/pkg/structure"
	"github.com/gnana997/nativestub/pkg/typemap"
	"github.com/gnana997/nativestub/pkg/util"
)

const calculatorSource = `import ExpoModulesCore

public class CalculatorModule: Module {
  public func definition() -> ModuleDefinition {
    Name("Calculator")

    Function("add") { (a: Int, b: Int) -> Int in
      return a + b
    }

    AsyncFunction("fetchName") { () -> String in
      return "expo"
    }

    AsyncFunction("fetchUser") { (id: String) -> User in
      return User(id: id)
    }

    Function("lookup", lookupHandler)

    Events("onChange", "onError")

    Property("version") {
      return "1.0"
    }

    OnCreate {
      print("created")
    }

    View(CalculatorView.self) {
      Prop("onPress") { (view: CalculatorView, handler: () -> Void) in
      }
      Prop("label") { (view: CalculatorView, label: String) in
      }
    }
  }
}
`

func TestFindModuleRoot(t *testing.T) {
	b := newTreeBuilder(calculatorSource)
	marker := &structure.Node{Kind: structure.NodeMarker, Children: []*structure.Node{b.call("Name", `Name("Calculator")`)}}
	tree := &structure.Node{Children: []*structure.Node{
		{Kind: structure.NodeUnrecognized},
		{Kind: structure.NodeUnrecognized, Children: []*structure.Node{marker}},
	}}

	root, found := FindModuleRoot(tree)
	require.True(t, found)
	assert.Len(t, root, 1)

	_, found = FindModuleRoot(&structure.Node{})
	assert.False(t, found)
	_, found = FindModuleRoot(nil)
	assert.False(t, found)
}

func TestExtractTree_Calculator(t *testing.T) {
	resolver := &fakeResolver{sigs: map[int]definition.FunctionSignature{}}
	b := newTreeBuilder(calculatorSource)
	tree := b.calculatorTree()
	lookupArg := tree.Child(0).Child(0).Child(4).Child(1)
	resolver.sigs[lookupArg.Offset] = definition.FunctionSignature{
		Parameters: []definition.ParameterInfo{{Name: definition.StrPtr("key"), Type: typemap.Primitive("String")}},
		ReturnType: typemap.Primitive("Bool"),
	}

	var warnings definition.Warnings
	def := newTestExtractor(resolver).ExtractTree(context.Background(), tree, b.file, &warnings)
	require.NotNil(t, def)
	assert.Zero(t, warnings.Len(), "%v", warnings.Items())

	assert.Equal(t, "Calculator", def.Name)
	assert.Equal(t, "/src/CalculatorModule.swift", def.SourcePath)

	// Functions keep declaration order across same-label nodes.
	require.Len(t, def.Functions, 2)
	add := def.Functions[0]
	assert.Equal(t, "add", add.Label())
	require.Len(t, add.Signature.Parameters, 2)
	assert.Equal(t, "a", add.Signature.Parameters[0].Label())
	assert.Equal(t, typemap.Primitive("Int"), add.Signature.Parameters[0].Type)
	assert.Equal(t, typemap.Primitive("Int"), add.Signature.ReturnType)

	lookup := def.Functions[1]
	assert.Equal(t, "lookup", lookup.Label())
	assert.Equal(t, typemap.Primitive("Bool"), lookup.Signature.ReturnType)
	assert.Equal(t, []int{lookupArg.Offset}, resolver.calls, "only non-closure types are looked up")

	require.Len(t, def.AsyncFunctions, 2)
	assert.Equal(t, "fetchName", def.AsyncFunctions[0].Label())
	assert.Empty(t, def.AsyncFunctions[0].Signature.Parameters)
	assert.Equal(t, typemap.Primitive("String"), def.AsyncFunctions[0].Signature.ReturnType)
	fetchUser := def.AsyncFunctions[1].Signature
	require.Len(t, fetchUser.Parameters, 1, "header parameters fill in when the tree has none")
	assert.Equal(t, "id", fetchUser.Parameters[0].Label())
	assert.Equal(t, typemap.Reference("User"), fetchUser.ReturnType)

	assert.Equal(t, []definition.EventDeclaration{{Name: "onChange"}, {Name: "onError"}}, def.Events)

	require.Len(t, def.Properties, 1)
	assert.Equal(t, "version", def.Properties[0].Label())
	assert.Equal(t, typemap.Unknown(), def.Properties[0].Signature.ReturnType)

	require.Len(t, def.OnCreate, 1)
	assert.Nil(t, def.OnCreate[0].Name)

	assert.Empty(t, def.Props, "props belong to the view")

	view := def.View
	require.NotNil(t, view)
	assert.Equal(t, "CalculatorView", view.Name)
	assert.Nil(t, view.View)
	require.Len(t, view.Props, 2)

	onPress := view.Props[0]
	assert.Equal(t, "onPress", onPress.Label())
	require.Len(t, onPress.Signature.Parameters, 1)
	assert.Equal(t, "handler", onPress.Signature.Parameters[0].Label())
	assert.Equal(t, typemap.Reference("() -> Void"), onPress.Signature.Parameters[0].Type)

	label := view.Props[1]
	require.Len(t, label.Signature.Parameters, 1)
	assert.Equal(t, typemap.Primitive("String"), label.Signature.Parameters[0].Type)
}

func TestExtractTree_NoMarker(t *testing.T) {
	b := newTreeBuilder(calculatorSource)
	var warnings definition.Warnings
	def := newTestExtractor(&fakeResolver{}).ExtractTree(context.Background(), &structure.Node{}, b.file, &warnings)
	assert.Nil(t, def)
	assert.Zero(t, warnings.Len())
}

func TestExtractTree_EmptyMarker(t *testing.T) {
	b := newTreeBuilder(calculatorSource)
	tree := &structure.Node{Children: []*structure.Node{{Kind: structure.NodeMarker}}}

	var warnings definition.Warnings
	def := newTestExtractor(&fakeResolver{}).ExtractTree(context.Background(), tree, b.file, &warnings)
	assert.Nil(t, def)
	require.Equal(t, 1, warnings.Len())
	assert.Equal(t, definition.WarnStructuralMismatch, warnings.Items()[0].Code)
}

func TestExtract_TypeLookupFailure(t *testing.T) {
	b := newTreeBuilder(calculatorSource)
	root := []*structure.Node{
		b.call("Name", `Name("Calculator")`, b.arg(`"Calculator"`)),
		b.call("Function", `Function("lookup", lookupHandler)`, b.arg(`"lookup"`), b.arg(`lookupHandler`)),
	}
	resolver := &fakeResolver{err: &structure.ToolInvocationError{Command: "sourcekitten", File: b.file.Path, Err: errors.New("exit status 1")}}

	var warnings definition.Warnings
	def := newTestExtractor(resolver).Extract(context.Background(), root, b.file, &warnings)

	require.Len(t, def.Functions, 1)
	assert.Equal(t, definition.UnknownSignature(), def.Functions[0].Signature)
	require.Equal(t, 1, warnings.Len())
	assert.Equal(t, definition.WarnToolInvocation, warnings.Items()[0].Code)
}

func TestExtract_MalformedNodesAreSkipped(t *testing.T) {
	b := newTreeBuilder(calculatorSource)
	root := []*structure.Node{
		{Kind: structure.NodeCall, Name: "Function"},
		b.call("Function", `Function("add") { (a: Int, b: Int) -> Int in`, b.arg(`"add"`)),
	}

	var warnings definition.Warnings
	def := newTestExtractor(&fakeResolver{}).Extract(context.Background(), root, b.file, &warnings)

	require.Len(t, def.Functions, 1)
	assert.Equal(t, "add", def.Functions[0].Label())
	assert.Equal(t, definition.UnknownSignature(), def.Functions[0].Signature)
	assert.Equal(t, 2, warnings.Len())
	assert.Empty(t, def.Name)
	assert.Nil(t, def.View)
}

func TestResolveView_MissingBody(t *testing.T) {
	b := newTreeBuilder(calculatorSource)
	root := []*structure.Node{
		b.call("Name", `Name("Calculator")`, b.arg(`"Calculator"`)),
		b.call("View", `View(CalculatorView.self)`, b.arg(`CalculatorView.self`)),
	}

	var warnings definition.Warnings
	def := newTestExtractor(&fakeResolver{}).Extract(context.Background(), root, b.file, &warnings)
	assert.Equal(t, "Calculator", def.Name)
	assert.Nil(t, def.View)
	require.Equal(t, 1, warnings.Len())
	assert.Equal(t, definition.WarnStructuralMismatch, warnings.Items()[0].Code)
}

func TestResolveView_SingleLevel(t *testing.T) {
	b := newTreeBuilder(calculatorSource)
	inner := b.call("View", `View(CalculatorView.self) {`, b.arg(`CalculatorView.self`),
		b.closure(`{
      Prop(`, `}`, b.statement()))
	b2 := newTreeBuilder(calculatorSource)
	outer := b2.call("View", `View(CalculatorView.self) {`, b2.arg(`CalculatorView.self`),
		b2.closure(`{
      Prop(`, `}`, b2.statement(inner)))

	view := newTestExtractor(&fakeResolver{}).ResolveView(context.Background(), []*structure.Node{outer}, b.file, nil)
	require.NotNil(t, view)
	assert.Nil(t, view.View)
}

func TestStripViewParameters(t *testing.T) {
	param := func(name string) definition.ParameterInfo {
		return definition.ParameterInfo{Name: definition.StrPtr(name), Type: typemap.Unknown()}
	}
	unnamed := definition.ParameterInfo{Type: typemap.Unknown()}

	tests := []struct {
		name   string
		params []definition.ParameterInfo
		want   []string
	}{
		{"empty", nil, nil},
		{"only context", []definition.ParameterInfo{param("view")}, []string{}},
		{"leading context", []definition.ParameterInfo{param("view"), param("handler")}, []string{"handler"}},
		{"unnamed context", []definition.ParameterInfo{unnamed, param("value")}, []string{"value"}},
		{"view elsewhere", []definition.ParameterInfo{param("ctx"), param("view"), param("x")}, []string{"x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := stripViewParameters(tt.params)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			names := make([]string, len(got))
			for i, p := range got {
				names[i] = p.Label()
			}
			assert.Equal(t, tt.want, names)
			if len(got) > 0 {
				assert.NotEqual(t, "view", got[0].Label())
			}
		})
	}
}

// --- helpers ---

type fakeResolver struct {
	sigs  map[int]definition.FunctionSignature
	err   error
	calls []int
}

func (f *fakeResolver) ResolveType(_ context.Context, span structure.Span, _ *source.File) (definition.FunctionSignature, error) {
	f.calls = append(f.calls, span.Offset)
	if f.err != nil {
		return definition.FunctionSignature{}, f.err
	}
	if sig, ok := f.sigs[span.Offset]; ok {
		return sig, nil
	}
	return definition.UnknownSignature(), nil
}

func newTestExtractor(resolver TypeResolver) *Extractor {
	return New(resolver, util.DiscardLogger())
}

// treeBuilder builds declaration trees whose spans point into src. Calls and
// their operands keep separate cursors, since operands are built before the
// call that owns them; each cursor only moves forward.
type treeBuilder struct {
	src  string
	file *source.File
	pos  int
	cpos int
}

func newTreeBuilder(src string) *treeBuilder {
	return &treeBuilder{src: src, file: source.New("/src/CalculatorModule.swift", src)}
}

func (b *treeBuilder) find(text string) int {
	return b.findFrom(b.pos, text)
}

func (b *treeBuilder) findFrom(from int, text string) int {
	i := strings.Index(b.src[from:], text)
	if i < 0 {
		panic("fixture text not found: " + text)
	}
	return from + i
}

func (b *treeBuilder) call(name, text string, children ...*structure.Node) *structure.Node {
	off := b.findFrom(b.cpos, text)
	b.cpos = off + 1
	n := &structure.Node{Kind: structure.NodeCall, RawKind: structure.RawKindCall, Name: name, HasName: true, Offset: off, Length: len(text)}
	n.Children = children
	return n
}

func (b *treeBuilder) arg(text string) *structure.Node {
	off := b.find(text)
	b.pos = off + len(text)
	return &structure.Node{Kind: structure.NodeArgument, RawKind: structure.RawKindArgument, Offset: off, Length: len(text)}
}

// closure spans from the start text to the end text (inclusive) following it.
func (b *treeBuilder) closure(start, end string, children ...*structure.Node) *structure.Node {
	off := b.find(start)
	stop := strings.Index(b.src[off+len(start):], end)
	if stop < 0 {
		panic("fixture closure end not found: " + end)
	}
	length := len(start) + stop + len(end)
	return &structure.Node{Kind: structure.NodeClosure, RawKind: structure.RawKindClosure, Offset: off, Length: length, Children: children}
}

func (b *treeBuilder) param(name, typeName string) *structure.Node {
	return &structure.Node{Kind: structure.NodeParameter, RawKind: structure.RawKindParameter, Name: name, HasName: true, TypeName: typeName}
}

func (b *treeBuilder) statement(children ...*structure.Node) *structure.Node {
	return &structure.Node{Kind: structure.NodeStatement, RawKind: structure.RawKindBrace, Children: children}
}

// calculatorTree mirrors what the structure dump reports for calculatorSource.
func (b *treeBuilder) calculatorTree() *structure.Node {
	name := b.call("Name", `Name("Calculator")`, b.arg(`"Calculator"`))

	add := b.call("Function", `Function("add")`, b.arg(`"add"`))
	add.Children = append(add.Children, b.closure(`{ (a: Int, b: Int) -> Int in`, "}",
		b.param("a", "Int"), b.param("b", "Int"), b.statement()))

	fetchName := b.call("AsyncFunction", `AsyncFunction("fetchName")`, b.arg(`"fetchName"`))
	fetchName.Children = append(fetchName.Children, b.closure(`{ () -> String in`, "}", b.statement()))

	fetchUser := b.call("AsyncFunction", `AsyncFunction("fetchUser")`, b.arg(`"fetchUser"`))
	fetchUser.Children = append(fetchUser.Children, b.closure(`{ (id: String) -> User in`, "}", b.statement()))

	lookup := b.call("Function", `Function("lookup", lookupHandler)`, b.arg(`"lookup"`), b.arg(`lookupHandler`))

	events := b.call("Events", `Events("onChange", "onError")`, b.arg(`"onChange"`), b.arg(`"onError"`))

	version := b.call("Property", `Property("version")`, b.arg(`"version"`))
	version.Children = append(version.Children, b.closure(`{
      return "1.0"`, "}", b.statement()))

	onCreate := b.call("OnCreate", `OnCreate {`)
	onCreate.Children = append(onCreate.Children, b.closure(`{
      print("created")`, "}", b.statement()))

	view := b.call("View", `View(CalculatorView.self)`, b.arg(`CalculatorView.self`))
	viewClosure := b.closure(`{
      Prop("onPress")`, "\n    }")

	onPress := b.call("Prop", `Prop("onPress")`, b.arg(`"onPress"`))
	onPress.Children = append(onPress.Children, b.closure(`{ (view: CalculatorView, handler: () -> Void) in`, "}",
		b.param("view", "CalculatorView"), b.param("handler", "() -> Void"), b.statement()))

	label := b.call("Prop", `Prop("label")`, b.arg(`"label"`))
	label.Children = append(label.Children, b.closure(`{ (view: CalculatorView, label: String) in`, "}",
		b.param("view", "CalculatorView"), b.param("label", "String"), b.statement()))

	viewClosure.Children = []*structure.Node{b.statement(onPress, label)}
	view.Children = append(view.Children, viewClosure)

	marker := &structure.Node{
		Kind:     structure.NodeMarker,
		TypeName: structure.ModuleDefinitionMarker,
		Name:     "definition()",
		HasName:  true,
		Children: []*structure.Node{name, add, fetchName, fetchUser, lookup, events, version, onCreate, view},
	}
	class := &structure.Node{Kind: structure.NodeUnrecognized, Name: "CalculatorModule", HasName: true, Children: []*structure.Node{marker}}
	return &structure.Node{Children: []*structure.Node{class}}
}
