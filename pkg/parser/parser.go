// Package parser wraps the tree-sitter TypeScript grammar for checking the
// syntax of generated stubs.
package parser

import (
	"fmt"
	"log/slog"
	"sync"

	ts "github.com/tree-sitter/go-tree-sitter"
	ts_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// ParserManager owns a lazily created TypeScript parser.
//
// Memory Management:
// - ParserManager owns the parser and must be closed via Close()
// - Callers own Tree instances returned by Parse and must call tree.Close()
//
// Thread Safety:
// - A tree-sitter parser is not safe for concurrent use, so Parse
//   serializes callers on a mutex
//
// Example:
//
//	manager := NewParserManager(logger)
//	defer manager.Close()
//
//	errs, err := manager.Check([]byte("export function f(): number { return 0; }"))
type ParserManager struct {
	parser *ts.Parser
	mutex  sync.Mutex
	logger *slog.Logger

	stats struct {
		parsesCalled int
	}
}

// NewParserManager creates a new ParserManager instance.
func NewParserManager(logger *slog.Logger) *ParserManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &ParserManager{logger: logger}
}

// Parse parses TypeScript source.
//
// Returns a Tree that MUST be closed by the caller via tree.Close().
// A tree with syntax errors is still returned; use Check to list them.
func (pm *ParserManager) Parse(source []byte) (*ts.Tree, error) {
	pm.mutex.Lock()
	defer pm.mutex.Unlock()

	if pm.parser == nil {
		parser := ts.NewParser()
		if err := parser.SetLanguage(ts.NewLanguage(ts_typescript.LanguageTypescript())); err != nil {
			parser.Close()
			return nil, fmt.Errorf("failed to set typescript language: %w", err)
		}
		pm.parser = parser
		pm.logger.Debug("created typescript parser")
	}

	pm.stats.parsesCalled++
	tree := pm.parser.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("parser.Parse returned nil tree")
	}
	return tree, nil
}

// SyntaxError locates an ERROR or MISSING node. Line and Column are 1-based.
type SyntaxError struct {
	Line    int
	Column  int
	Missing bool
	Kind    string
}

func (e SyntaxError) Error() string {
	if e.Missing {
		return fmt.Sprintf("%d:%d: missing %s", e.Line, e.Column, e.Kind)
	}
	return fmt.Sprintf("%d:%d: syntax error", e.Line, e.Column)
}

// Check parses source and returns every syntax error in document order.
// An empty result means the source is well formed.
func (pm *ParserManager) Check(source []byte) ([]SyntaxError, error) {
	tree, err := pm.Parse(source)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	root := tree.RootNode()
	if !root.HasError() {
		return nil, nil
	}

	var errs []SyntaxError
	collectErrors(root, &errs)
	return errs, nil
}

func collectErrors(node *ts.Node, errs *[]SyntaxError) {
	if node.IsError() || node.IsMissing() {
		start := node.StartPosition()
		*errs = append(*errs, SyntaxError{
			Line:    int(start.Row) + 1,
			Column:  int(start.Column) + 1,
			Missing: node.IsMissing(),
			Kind:    node.Kind(),
		})
		if node.IsMissing() {
			return
		}
	}
	if !node.HasError() {
		return
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		if child := node.Child(i); child != nil {
			collectErrors(child, errs)
		}
	}
}

// Close releases the parser.
//
// MUST be called when ParserManager is no longer needed to avoid memory leaks.
func (pm *ParserManager) Close() error {
	pm.mutex.Lock()
	defer pm.mutex.Unlock()

	pm.logger.Debug("closing ParserManager", "parses_called", pm.stats.parsesCalled)
	if pm.parser != nil {
		pm.parser.Close()
		pm.parser = nil
	}
	return nil
}

// ParsesCalled returns the number of Parse calls.
func (pm *ParserManager) ParsesCalled() int {
	pm.mutex.Lock()
	defer pm.mutex.Unlock()
	return pm.stats.parsesCalled
}
