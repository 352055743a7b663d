// Package definition holds the normalized description of a native module's
// public surface: its functions, events, properties, props, lifecycle hooks
// and nested view.
package definition

import (
	"fmt"

	"github.com/gnana997/nativestub/pkg/typemap"
)

// ParameterInfo is one positional parameter of a signature.
// Name is nil for unlabeled parameters.
type ParameterInfo struct {
	Name *string            `json:"name"`
	Type typemap.Descriptor `json:"type"`
}

// Label returns the parameter name, or "" when unlabeled.
func (p ParameterInfo) Label() string {
	if p.Name == nil {
		return ""
	}
	return *p.Name
}

// FunctionSignature is an ordered parameter list plus a return type.
type FunctionSignature struct {
	Parameters []ParameterInfo    `json:"parameters"`
	ReturnType typemap.Descriptor `json:"returnType"`

	// Raw holds the unparsed tool payload when the type lookup returned no
	// annotated declaration. Empty otherwise.
	Raw string `json:"raw,omitempty"`
}

// UnknownSignature is the signature used when no type information exists.
func UnknownSignature() FunctionSignature {
	return FunctionSignature{ReturnType: typemap.Unknown()}
}

// Declaration is a function, async function, property, prop or lifecycle hook.
// Name is nil for unnamed declarations such as OnCreate.
type Declaration struct {
	Name      *string           `json:"name"`
	Signature FunctionSignature `json:"signature"`
}

// Label returns the declaration name, or "" when unnamed.
func (d Declaration) Label() string {
	if d.Name == nil {
		return ""
	}
	return *d.Name
}

// EventDeclaration carries only an event name.
type EventDeclaration struct {
	Name string `json:"name"`
}

// ModuleDefinition is the extracted surface of one native module.
//
// View, when non-nil, never has a View of its own, and its Props never
// carry the leading view-context parameter.
type ModuleDefinition struct {
	Name           string             `json:"name"`
	Functions      []Declaration      `json:"functions"`
	AsyncFunctions []Declaration      `json:"asyncFunctions"`
	Events         []EventDeclaration `json:"events"`
	Properties     []Declaration      `json:"properties"`
	Props          []Declaration      `json:"props"`
	OnCreate       []Declaration      `json:"onCreate"`
	View           *ModuleDefinition  `json:"view"`

	// SourcePath is the file the definition was extracted from.
	SourcePath string `json:"sourcePath,omitempty"`
}

// StrPtr returns a pointer to s.
func StrPtr(s string) *string {
	return &s
}

// WarningCode identifies the class of a soft failure.
type WarningCode string

const (
	// WarnToolInvocation marks a failed or unparsable external tool call.
	WarnToolInvocation WarningCode = "tool_invocation"
	// WarnStructuralMismatch marks an expected node shape that was absent.
	WarnStructuralMismatch WarningCode = "structural_mismatch"
	// WarnOutput marks a stub that could not be written or verified.
	WarnOutput WarningCode = "output"
)

// Warning represents a non-fatal issue encountered during a run.
type Warning struct {
	Code    WarningCode `json:"code"`
	File    string      `json:"file"`
	Message string      `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s: %s", w.Code, w.File, w.Message)
}

// Warnings collects soft failures for end-of-run reporting.
type Warnings struct {
	items []Warning
}

// Add records a warning. Adding to a nil collector is a no-op.
func (ws *Warnings) Add(code WarningCode, file, format string, args ...any) {
	if ws == nil {
		return
	}
	ws.items = append(ws.items, Warning{
		Code:    code,
		File:    file,
		Message: fmt.Sprintf(format, args...),
	})
}

// Items returns the recorded warnings in insertion order.
func (ws *Warnings) Items() []Warning {
	if ws == nil {
		return nil
	}
	return ws.items
}

// Len returns the number of recorded warnings.
func (ws *Warnings) Len() int {
	if ws == nil {
		return 0
	}
	return len(ws.items)
}
