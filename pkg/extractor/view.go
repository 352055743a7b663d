package extractor

import (
	"context"
	"strings"

	"github.com/gnana997/nativestub/pkg/definition"
	"github.com/gnana997/nativestub/pkg/source"
	"github.com/gnana997/nativestub/pkg/structure"
)

// viewParameter is the name of the rendering-context parameter props receive.
const viewParameter = "view"

// ResolveView extracts the nested view definition of a module root, or
// returns nil when there is none.
//
// The first View node wins. Its body is reached through a fixed path:
// closure, then the closure's first statement, then that statement's
// children. When the path does not resolve a warning is recorded and nil is
// returned; the rest of the module is unaffected.
//
// The result never carries a View of its own. Every prop loses its first
// parameter and any parameter named "view".
func (e *Extractor) ResolveView(ctx context.Context, root []*structure.Node, file *source.File, warnings *definition.Warnings) *definition.ModuleDefinition {
	node := first(root, LabelView)
	if node == nil {
		return nil
	}

	body, ok := viewBody(node)
	if !ok {
		e.warn(warnings, definition.WarnStructuralMismatch, file.Path,
			"view declaration at offset %d has no closure body", node.Offset)
		return nil
	}

	// One level only: extract does not look for a further View.
	view := e.extract(ctx, body, file, warnings)
	view.View = nil
	view.SourcePath = file.Path

	if view.Name == "" {
		view.Name = viewTypeName(node.Child(0), file)
	}
	for i := range view.Props {
		view.Props[i].Signature.Parameters = stripViewParameters(view.Props[i].Signature.Parameters)
	}
	return &view
}

// viewBody follows View → closure → first statement → children.
func viewBody(node *structure.Node) ([]*structure.Node, bool) {
	typeNode := node.Child(1)
	if typeNode == nil {
		// A lone trailing closure: View { ... }.
		typeNode = node.Child(0)
	}
	if typeNode == nil {
		return nil, false
	}
	closure := asClosure(typeNode)
	if closure == nil {
		return nil, false
	}
	for _, child := range closure.Children {
		if child.Kind == structure.NodeStatement {
			return child.Children, true
		}
	}
	return nil, false
}

// viewTypeName reads the view type argument, e.g. `MyView.self` → MyView.
func viewTypeName(n *structure.Node, file *source.File) string {
	if n == nil || asClosure(n) != nil {
		return ""
	}
	text, err := file.Identifier(n.Offset, n.Length)
	if err != nil {
		return ""
	}
	return strings.TrimSuffix(text, ".self")
}

func stripViewParameters(params []definition.ParameterInfo) []definition.ParameterInfo {
	if len(params) == 0 {
		return params
	}
	kept := make([]definition.ParameterInfo, 0, len(params)-1)
	for _, p := range params[1:] {
		if p.Label() == viewParameter {
			continue
		}
		kept = append(kept, p)
	}
	return kept
}
