// Package typemap converts native type names, as they appear in declaration
// trees and cursor-info payloads, into the small set of descriptors the stub
// generator understands.
package typemap

import (
	"strings"
	"unicode"
)

// Kind discriminates a Descriptor.
type Kind int

const (
	KindVoid Kind = iota
	KindUnknown
	KindPrimitive
	KindArray
	KindReference
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindVoid:
		return "void"
	case KindUnknown:
		return "unknown"
	case KindPrimitive:
		return "primitive"
	case KindArray:
		return "array"
	case KindReference:
		return "reference"
	default:
		return "invalid"
	}
}

// PrimitiveClass groups primitive names by the literal family they stub to.
type PrimitiveClass string

const (
	ClassNumber  PrimitiveClass = "number"
	ClassString  PrimitiveClass = "string"
	ClassBoolean PrimitiveClass = "boolean"
)

// UnknownMarker is the type name the extractor uses when a type could not be
// determined.
const UnknownMarker = "unknown"

var primitives = map[string]PrimitiveClass{
	"Int":       ClassNumber,
	"Int8":      ClassNumber,
	"Int16":     ClassNumber,
	"Int32":     ClassNumber,
	"Int64":     ClassNumber,
	"UInt":      ClassNumber,
	"UInt8":     ClassNumber,
	"UInt16":    ClassNumber,
	"UInt32":    ClassNumber,
	"UInt64":    ClassNumber,
	"Float":     ClassNumber,
	"Float32":   ClassNumber,
	"Float64":   ClassNumber,
	"Double":    ClassNumber,
	"CGFloat":   ClassNumber,
	"Number":    ClassNumber,
	"String":    ClassString,
	"Character": ClassString,
	"URL":       ClassString,
	"Bool":      ClassBoolean,
}

// Descriptor is a tagged variant over Void, Unknown, Primitive(name),
// ArrayOf(elem) and Reference(name).
//
// Name is set for Primitive and Reference. Elem is set for Array only.
type Descriptor struct {
	Kind Kind        `json:"kind"`
	Name string      `json:"name,omitempty"`
	Elem *Descriptor `json:"elem,omitempty"`
}

// Void returns the descriptor for an absent type.
func Void() Descriptor { return Descriptor{Kind: KindVoid} }

// Unknown returns the descriptor for an undeterminable type.
func Unknown() Descriptor { return Descriptor{Kind: KindUnknown} }

// Primitive returns a primitive descriptor. The name must be in the primitive table.
func Primitive(name string) Descriptor { return Descriptor{Kind: KindPrimitive, Name: name} }

// Reference returns a descriptor for a named, non-primitive type.
func Reference(name string) Descriptor { return Descriptor{Kind: KindReference, Name: name} }

// ArrayOf wraps elem in one level of array.
func ArrayOf(elem Descriptor) Descriptor {
	return Descriptor{Kind: KindArray, Elem: &elem}
}

// Map converts a type name into a Descriptor. It is total: every input yields
// exactly one descriptor and unrecognized names become references.
//
// Surrounding whitespace and trailing optional markers (? and !) are ignored.
// Each bracket pair unwraps into one ArrayOf level.
func Map(name string) Descriptor {
	name = strings.TrimSpace(name)
	name = strings.TrimRight(name, "?!")
	name = strings.TrimSpace(name)

	switch {
	case name == "", name == "Void", name == "()":
		return Void()
	case len(name) >= 2 && name[0] == '[' && name[len(name)-1] == ']':
		return ArrayOf(Map(name[1 : len(name)-1]))
	case name == UnknownMarker:
		return Unknown()
	}

	if _, ok := primitives[name]; ok {
		return Primitive(name)
	}
	return Reference(name)
}

// Class returns the primitive class of d. ok is false for non-primitives.
func (d Descriptor) Class() (PrimitiveClass, bool) {
	if d.Kind != KindPrimitive {
		return "", false
	}
	c, ok := primitives[d.Name]
	return c, ok
}

// Innermost unwraps every array level and returns the element type.
func (d Descriptor) Innermost() Descriptor {
	for d.Kind == KindArray && d.Elem != nil {
		d = *d.Elem
	}
	return d
}

// String renders d back into native notation, e.g. "[Int]".
func (d Descriptor) String() string {
	switch d.Kind {
	case KindVoid:
		return "Void"
	case KindUnknown:
		return UnknownMarker
	case KindArray:
		if d.Elem == nil {
			return "[]"
		}
		return "[" + d.Elem.String() + "]"
	default:
		return d.Name
	}
}

// TSType renders d as a TypeScript type expression.
//
// References whose names are not plain identifiers (dictionaries, generics,
// closures) have no alias to point at and render as any.
func (d Descriptor) TSType() string {
	switch d.Kind {
	case KindVoid:
		return "void"
	case KindPrimitive:
		if c, ok := d.Class(); ok {
			return string(c)
		}
		return "any"
	case KindArray:
		if d.Elem == nil {
			return "any[]"
		}
		return d.Elem.TSType() + "[]"
	case KindReference:
		if IsIdentifier(d.Name) {
			return d.Name
		}
		return "any"
	default:
		return "any"
	}
}

// IsIdentifier reports whether s can be used verbatim as a TypeScript type name.
func IsIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '$' || unicode.IsLetter(r):
		case i > 0 && unicode.IsDigit(r):
		default:
			return false
		}
	}
	return true
}
