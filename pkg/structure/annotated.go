package structure

import (
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gnana997/nativestub/pkg/definition"
	"github.com/gnana997/nativestub/pkg/typemap"
)

// cursorInfo is the subset of a cursor-info response that carries a
// declaration. The fully annotated form is preferred.
type cursorInfo struct {
	FullyAnnotatedDecl string `json:"key.fully_annotated_decl"`
	AnnotatedDecl      string `json:"key.annotated_decl"`
}

// ParseCursorInfo turns a cursor-info payload into a signature.
//
// When the payload has no annotated declaration the raw payload is kept on
// the result and the return type is Unknown. Only undecodable JSON or
// malformed declaration markup is an error.
func ParseCursorInfo(payload []byte) (definition.FunctionSignature, error) {
	var info cursorInfo
	if err := json.Unmarshal(payload, &info); err != nil {
		return definition.FunctionSignature{}, fmt.Errorf("decode cursor info: %w", err)
	}

	decl := info.FullyAnnotatedDecl
	if decl == "" {
		decl = info.AnnotatedDecl
	}
	if decl == "" {
		sig := definition.UnknownSignature()
		sig.Raw = string(payload)
		return sig, nil
	}
	return ParseAnnotatedDecl(decl)
}

// ParseAnnotatedDecl reads parameter name/type pairs and a return type out of
// an XML-tagged declaration.
//
// Function declarations carry decl.var.parameter and
// decl.function.returntype elements. Variables carry decl.var.type, whose
// text is either a function type or a plain value type.
func ParseAnnotatedDecl(decl string) (definition.FunctionSignature, error) {
	dec := xml.NewDecoder(strings.NewReader(decl))
	dec.Strict = false

	var (
		stack     []string
		params    []definition.ParameterInfo
		current   *paramBuilder
		paramNest int
		returnTxt strings.Builder
		varType   strings.Builder
		hasReturn bool
		hasVar    bool
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return definition.FunctionSignature{}, fmt.Errorf("parse annotated declaration: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			name := t.Name.Local
			inType := within(stack, "decl.function.returntype") || within(stack, "decl.var.type")
			stack = append(stack, name)
			switch name {
			case "decl.var.parameter":
				// Function-typed parameters nest their own parameter elements.
				// Parameters of a function-typed return or variable type are
				// part of that type's text.
				switch {
				case paramNest > 0:
					paramNest++
				case !inType:
					current = &paramBuilder{}
					paramNest = 1
				}
			case "decl.function.returntype":
				hasReturn = true
			case "decl.var.type":
				hasVar = true
			}
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			if t.Name.Local == "decl.var.parameter" && paramNest > 0 {
				paramNest--
				if paramNest == 0 && current != nil {
					params = append(params, current.build())
					current = nil
				}
			}
		case xml.CharData:
			text := string(t)
			switch {
			case current != nil:
				current.add(stack, text)
			case within(stack, "decl.function.returntype"):
				returnTxt.WriteString(text)
			case within(stack, "decl.var.type"):
				varType.WriteString(text)
			}
		}
	}

	switch {
	case len(params) > 0 || hasReturn:
		return definition.FunctionSignature{
			Parameters: params,
			ReturnType: typemap.Map(returnTxt.String()),
		}, nil
	case hasVar:
		text := strings.TrimSpace(varType.String())
		if sig, ok := ParseSignature(text); ok && sig.HasArrow {
			return sig.ToFunctionSignature(), nil
		}
		return definition.FunctionSignature{ReturnType: typemap.Map(text)}, nil
	default:
		// A declaration with no parameters and no return type, e.g. func f().
		return definition.FunctionSignature{ReturnType: typemap.Void()}, nil
	}
}

type paramBuilder struct {
	label    strings.Builder
	name     strings.Builder
	typeText strings.Builder
}

func (b *paramBuilder) add(stack []string, text string) {
	switch {
	case within(stack, "decl.var.parameter.type"):
		b.typeText.WriteString(text)
	case within(stack, "decl.var.parameter.name"):
		b.name.WriteString(text)
	case within(stack, "decl.var.parameter.argument_label"):
		b.label.WriteString(text)
	}
}

// build prefers the internal name, then the argument label. "_" means none.
func (b *paramBuilder) build() definition.ParameterInfo {
	name := strings.TrimSpace(b.name.String())
	if name == "" {
		name = strings.TrimSpace(b.label.String())
	}
	p := definition.ParameterInfo{Type: typemap.Map(b.typeText.String())}
	if name != "" && name != "_" {
		p.Name = definition.StrPtr(name)
	}
	return p
}

func within(stack []string, name string) bool {
	for _, s := range stack {
		if s == name {
			return true
		}
	}
	return false
}
