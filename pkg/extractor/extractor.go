// Package extractor turns a declaration tree into a ModuleDefinition.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gnana997/nativestub/pkg/definition"
	"github.com/gnana997/nativestub/pkg/source"
	"github.com/gnana997/nativestub/pkg/structure"
	"github.com/gnana997/nativestub/pkg/typemap"
)

// Category labels are the call names used inside a module definition body.
const (
	LabelName          = "Name"
	LabelFunction      = "Function"
	LabelAsyncFunction = "AsyncFunction"
	LabelEvents        = "Events"
	LabelProperty      = "Property"
	LabelProp          = "Prop"
	LabelOnCreate      = "OnCreate"
	LabelView          = "View"
)

// TypeResolver performs out-of-band type lookups. *structure.Index
// implements it.
type TypeResolver interface {
	ResolveType(ctx context.Context, span structure.Span, file *source.File) (definition.FunctionSignature, error)
}

// Extractor classifies the children of a module-definition marker into
// declaration groups.
//
// Usage:
//
//	ex := extractor.New(index, logger)
//	def := ex.ExtractTree(ctx, tree, file, &warnings)
//	if def == nil {
//	    // file declares no module
//	}
type Extractor struct {
	resolver TypeResolver
	logger   *slog.Logger
}

// New creates an Extractor.
func New(resolver TypeResolver, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{resolver: resolver, logger: logger}
}

// FindModuleRoot searches tree depth-first for the module-definition marker
// and returns its children. found is false when the tree has no marker; a
// marker without children is reported as found with an empty root.
func FindModuleRoot(tree *structure.Node) (root []*structure.Node, found bool) {
	if tree == nil {
		return nil, false
	}
	if tree.Kind == structure.NodeMarker {
		return tree.Children, true
	}
	for _, child := range tree.Children {
		if root, found := FindModuleRoot(child); found {
			return root, true
		}
	}
	return nil, false
}

// ExtractTree locates the module definition in tree and extracts it. It
// returns nil when the file declares no module or the marker is empty.
func (e *Extractor) ExtractTree(ctx context.Context, tree *structure.Node, file *source.File, warnings *definition.Warnings) *definition.ModuleDefinition {
	root, found := FindModuleRoot(tree)
	if !found {
		return nil
	}
	if len(root) == 0 {
		e.warn(warnings, definition.WarnStructuralMismatch, file.Path, "module definition marker has no substructure")
		return nil
	}

	def := e.Extract(ctx, root, file, warnings)
	def.SourcePath = file.Path
	return &def
}

// Extract builds a ModuleDefinition from a module root. Categories are
// visited in a fixed order and nodes sharing a label are all kept in
// declaration order. Malformed nodes are skipped with a warning.
func (e *Extractor) Extract(ctx context.Context, root []*structure.Node, file *source.File, warnings *definition.Warnings) definition.ModuleDefinition {
	def := e.extract(ctx, root, file, warnings)
	def.View = e.ResolveView(ctx, root, file, warnings)
	return def
}

// extract fills every category except View.
func (e *Extractor) extract(ctx context.Context, root []*structure.Node, file *source.File, warnings *definition.Warnings) definition.ModuleDefinition {
	def := definition.ModuleDefinition{}

	if node := first(root, LabelName); node != nil {
		if name, ok := e.identifier(node.Child(0), file, warnings); ok {
			def.Name = name
		}
	}

	def.Functions = e.named(ctx, labeled(root, LabelFunction), file, warnings)
	def.AsyncFunctions = e.named(ctx, labeled(root, LabelAsyncFunction), file, warnings)
	def.Events = e.events(labeled(root, LabelEvents), file, warnings)
	def.Properties = e.named(ctx, labeled(root, LabelProperty), file, warnings)
	def.Props = e.named(ctx, labeled(root, LabelProp), file, warnings)
	def.OnCreate = e.unnamed(ctx, labeled(root, LabelOnCreate), file, warnings)
	return def
}

func (e *Extractor) named(ctx context.Context, nodes []*structure.Node, file *source.File, warnings *definition.Warnings) []definition.Declaration {
	var decls []definition.Declaration
	for _, node := range nodes {
		name, ok := e.identifier(node.Child(0), file, warnings)
		if !ok {
			continue
		}
		decls = append(decls, definition.Declaration{
			Name:      definition.StrPtr(name),
			Signature: e.signature(ctx, node, node.Child(1), file, warnings),
		})
	}
	return decls
}

func (e *Extractor) unnamed(ctx context.Context, nodes []*structure.Node, file *source.File, warnings *definition.Warnings) []definition.Declaration {
	var decls []definition.Declaration
	for _, node := range nodes {
		decls = append(decls, definition.Declaration{
			Signature: e.signature(ctx, node, node.Child(0), file, warnings),
		})
	}
	return decls
}

func (e *Extractor) events(nodes []*structure.Node, file *source.File, warnings *definition.Warnings) []definition.EventDeclaration {
	var events []definition.EventDeclaration
	for _, node := range nodes {
		for _, child := range node.Children {
			name, ok := e.identifier(child, file, warnings)
			if !ok {
				continue
			}
			events = append(events, definition.EventDeclaration{Name: name})
		}
	}
	return events
}

// signature derives types from typeNode. Closures are read locally; anything
// else goes through the resolver. Failures yield an Unknown signature.
func (e *Extractor) signature(ctx context.Context, owner, typeNode *structure.Node, file *source.File, warnings *definition.Warnings) definition.FunctionSignature {
	if typeNode == nil {
		e.warn(warnings, definition.WarnStructuralMismatch, file.Path,
			"%s at offset %d has no type node", owner.Name, owner.Offset)
		return definition.UnknownSignature()
	}

	if closure := asClosure(typeNode); closure != nil {
		return closureSignature(closure, file)
	}

	sig, err := e.resolver.ResolveType(ctx, typeNode.Span(), file)
	if err != nil {
		code := definition.WarnStructuralMismatch
		var tie *structure.ToolInvocationError
		if errors.As(err, &tie) {
			code = definition.WarnToolInvocation
		}
		e.warn(warnings, code, file.Path, "type lookup at offset %d: %v", typeNode.Offset, err)
		return definition.UnknownSignature()
	}
	return sig
}

// asClosure returns n when it is a closure, or the closure wrapped by an
// argument node.
func asClosure(n *structure.Node) *structure.Node {
	switch n.Kind {
	case structure.NodeClosure:
		return n
	case structure.NodeArgument:
		if c := n.Child(0); c != nil && c.Kind == structure.NodeClosure {
			return c
		}
	}
	return nil
}

// closureSignature reads parameter names and types from the closure's
// parameter nodes, filling gaps from the header written in its source text.
// The return type comes from the closure's type tag, then the header arrow,
// and is Unknown when neither is written.
func closureSignature(closure *structure.Node, file *source.File) definition.FunctionSignature {
	var header structure.Signature
	var hasHeader bool
	if text, err := file.Text(closure.Offset, closure.Length); err == nil {
		header, hasHeader = structure.ParseClosureHeader(text)
	}

	sig := definition.FunctionSignature{ReturnType: typemap.Unknown()}

	i := 0
	for _, child := range closure.Children {
		if child.Kind != structure.NodeParameter {
			continue
		}
		p := definition.ParameterInfo{Type: typemap.Unknown()}
		if child.HasName && child.Name != "" && child.Name != "_" {
			p.Name = definition.StrPtr(child.Name)
		}
		if hasHeader && i < len(header.Parameters) {
			if p.Name == nil {
				p.Name = header.Parameters[i].Name
			}
			p.Type = header.Parameters[i].Type
		}
		if child.TypeName != "" {
			p.Type = typemap.Map(child.TypeName)
		}
		sig.Parameters = append(sig.Parameters, p)
		i++
	}
	if i == 0 && hasHeader {
		sig.Parameters = header.Parameters
	}

	if tagged, ok := structure.ParseSignature(closure.TypeName); ok && tagged.HasArrow {
		sig.ReturnType = typemap.Map(tagged.ReturnType)
	} else if hasHeader && header.HasArrow {
		sig.ReturnType = typemap.Map(header.ReturnType)
	}
	return sig
}

// identifier reads the text of n as a bare name.
func (e *Extractor) identifier(n *structure.Node, file *source.File, warnings *definition.Warnings) (string, bool) {
	if n == nil {
		e.warn(warnings, definition.WarnStructuralMismatch, file.Path, "expected an identifier node")
		return "", false
	}
	text, err := file.Identifier(n.Offset, n.Length)
	if err != nil {
		e.warn(warnings, definition.WarnStructuralMismatch, file.Path, "read identifier: %v", err)
		return "", false
	}
	if text == "" {
		e.warn(warnings, definition.WarnStructuralMismatch, file.Path, "empty identifier at offset %d", n.Offset)
		return "", false
	}
	return text, true
}

func (e *Extractor) warn(warnings *definition.Warnings, code definition.WarningCode, file, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	e.logger.Warn(msg, "code", string(code), "file", file)
	if warnings != nil {
		warnings.Add(code, file, "%s", msg)
	}
}

// labeled returns the call nodes named label, in order.
func labeled(root []*structure.Node, label string) []*structure.Node {
	var nodes []*structure.Node
	for _, n := range root {
		if n.Kind == structure.NodeCall && callName(n) == label {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

func first(root []*structure.Node, label string) *structure.Node {
	for _, n := range root {
		if n.Kind == structure.NodeCall && callName(n) == label {
			return n
		}
	}
	return nil
}

// callName drops any receiver qualification, so `Module.Function` reads as
// Function.
func callName(n *structure.Node) string {
	name := n.Name
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return name
}
