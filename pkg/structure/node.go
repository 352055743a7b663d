// Package structure runs the external structural-analysis tool (SourceKitten)
// and turns its output into declaration trees and function signatures.
package structure

import (
	"encoding/json"
	"fmt"
)

// Raw kind tags emitted by the analysis tool.
const (
	RawKindCall      = "source.lang.swift.expr.call"
	RawKindArgument  = "source.lang.swift.expr.argument"
	RawKindClosure   = "source.lang.swift.expr.closure"
	RawKindParameter = "source.lang.swift.decl.var.parameter"
	RawKindBrace     = "source.lang.swift.stmt.brace"

	// ModuleDefinitionMarker is the type tag of the declaration whose body
	// holds a module definition.
	ModuleDefinitionMarker = "ModuleDefinition"
)

// NodeKind is the narrowed shape of a declaration-tree node.
type NodeKind int

const (
	NodeUnrecognized NodeKind = iota
	NodeMarker
	NodeCall
	NodeArgument
	NodeClosure
	NodeParameter
	NodeStatement
)

// String returns the string representation of the node kind.
func (k NodeKind) String() string {
	switch k {
	case NodeMarker:
		return "marker"
	case NodeCall:
		return "call"
	case NodeArgument:
		return "argument"
	case NodeClosure:
		return "closure"
	case NodeParameter:
		return "parameter"
	case NodeStatement:
		return "statement"
	default:
		return "unrecognized"
	}
}

// Node is one declaration-tree node. Children keep declaration order.
type Node struct {
	Kind     NodeKind
	RawKind  string
	TypeName string
	Name     string
	HasName  bool
	Offset   int
	Length   int
	Children []*Node
}

// Span returns the node's byte span.
func (n *Node) Span() Span {
	return Span{Offset: n.Offset, Length: n.Length}
}

// Child returns the i-th child, or nil when out of range.
func (n *Node) Child(i int) *Node {
	if n == nil || i < 0 || i >= len(n.Children) {
		return nil
	}
	return n.Children[i]
}

// Span is a byte range in a source file.
type Span struct {
	Offset int
	Length int
}

// rawNode mirrors the tool's JSON. Only consumed keys are decoded.
type rawNode struct {
	Kind         string    `json:"key.kind"`
	TypeName     string    `json:"key.typename"`
	Name         *string   `json:"key.name"`
	Offset       int       `json:"key.offset"`
	Length       int       `json:"key.length"`
	Substructure []rawNode `json:"key.substructure"`
}

// ParseTree decodes a structure dump and narrows it into Nodes.
func ParseTree(data []byte) (*Node, error) {
	var raw rawNode
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode structure: %w", err)
	}
	return narrow(&raw), nil
}

func narrow(raw *rawNode) *Node {
	n := &Node{
		Kind:     classify(raw),
		RawKind:  raw.Kind,
		TypeName: raw.TypeName,
		Offset:   raw.Offset,
		Length:   raw.Length,
	}
	if raw.Name != nil {
		n.Name = *raw.Name
		n.HasName = true
	}
	if len(raw.Substructure) > 0 {
		n.Children = make([]*Node, len(raw.Substructure))
		for i := range raw.Substructure {
			n.Children[i] = narrow(&raw.Substructure[i])
		}
	}
	return n
}

func classify(raw *rawNode) NodeKind {
	if raw.TypeName == ModuleDefinitionMarker {
		return NodeMarker
	}
	switch raw.Kind {
	case RawKindCall:
		return NodeCall
	case RawKindArgument:
		return NodeArgument
	case RawKindClosure:
		return NodeClosure
	case RawKindParameter:
		return NodeParameter
	case RawKindBrace:
		return NodeStatement
	default:
		return NodeUnrecognized
	}
}
