package response

import (
	"errors"
	"regexp"
	"strings"
)

// ErrInvalidFunction marks a function-shaped field whose header does
// not match the expected declaration pattern. It is fatal for the
// generation attempt and deliberately not retried: the model produced
// code-shaped but unparseable text, and a blind retry is unlikely to
// help.
var ErrInvalidFunction = errors.New("invalid function string")

// FunctionDef is a materialized function: the async-ness, name,
// parameter list and body of a textual declaration, preserved
// verbatim. Generated JavaScript is data on this side of the contract;
// execution happens in the consuming component layer.
type FunctionDef struct {
	Async  bool
	Name   string
	Params string
	Body   string
}

// functionHeader matches `(async)? function NAME? (PARAMS) {` at the
// start of the trimmed input.
var functionHeader = regexp.MustCompile(`^(?:(async)\s+)?function\s*([A-Za-z_$][\w$]*)?\s*\(([^)]*)\)\s*\{`)

// Materialize parses a textual function declaration into a
// FunctionDef. Empty input returns (nil, nil): the feature is absent,
// not broken. The body is sliced between the first '{' and the last
// '}' without tracking brace depth, so a string literal containing an
// unbalanced brace mis-slices.
func Materialize(src string) (*FunctionDef, error) {
	trimmed := strings.TrimSpace(src)
	if trimmed == "" {
		return nil, nil
	}

	match := functionHeader.FindStringSubmatch(trimmed)
	if match == nil {
		return nil, ErrInvalidFunction
	}

	bodyStart := strings.Index(trimmed, "{")
	bodyEnd := strings.LastIndex(trimmed, "}")
	if bodyStart == -1 || bodyEnd <= bodyStart {
		return nil, ErrInvalidFunction
	}

	return &FunctionDef{
		Async:  match[1] == "async",
		Name:   match[2],
		Params: match[3],
		Body:   strings.TrimSpace(trimmed[bodyStart+1 : bodyEnd]),
	}, nil
}

// Source re-synthesizes a normalized declaration of matching
// async-ness around the extracted name, parameters and body.
func (f *FunctionDef) Source() string {
	var b strings.Builder
	if f.Async {
		b.WriteString("async ")
	}
	b.WriteString("function ")
	if f.Name != "" {
		b.WriteString(f.Name)
	}
	b.WriteString("(")
	b.WriteString(f.Params)
	b.WriteString(") {\n")
	if f.Body != "" {
		b.WriteString("  " + strings.ReplaceAll(f.Body, "\n", "\n  ") + "\n")
	}
	b.WriteString("}")
	return b.String()
}
