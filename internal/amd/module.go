// Package amd finds AMD module-definition calls in a JavaScript bundle and
// describes them by byte range.
//
// A module-definition call has exactly the shape
//
//	define("<id>", ["<dep>", ...], function (<params>) { <body> })
//
// and appears either as its own top-level statement (development bundles) or
// as one element of a top-level comma sequence (production bundles).
package amd

import (
	"errors"
	"fmt"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/DeusData/lazycode/internal/lang"
	"github.com/DeusData/lazycode/internal/parser"
)

// ErrMalformedDefine marks a define call with a string module id whose other
// arguments do not have the expected shape.
var ErrMalformedDefine = errors.New("malformed define call")

// Range is a half-open byte range into the original source.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of bytes covered by r.
func (r Range) Len() int { return r.End - r.Start }

// Contains reports whether o lies entirely within r.
func (r Range) Contains(o Range) bool { return r.Start <= o.Start && o.End <= r.End }

// Module describes one module-definition call.
type Module struct {
	ID      string   `json:"id"`
	Imports []string `json:"imports"`
	// Params pair positionally with Imports; trailing imports may be unbound.
	Params []string `json:"params"`
	// DefineRange covers the whole call plus one trailing ';' or ',' if present.
	DefineRange Range `json:"define_range"`
	// BodyRange spans the factory's first through last body statement. It is
	// empty, just after the opening brace, when the factory has no statements.
	BodyRange Range `json:"body_range"`
}

// MalformedError reports a define call that claims a module id but does not
// have the three-argument shape.
type MalformedError struct {
	ID     string
	Offset int
	Line   int
	Column int
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("%s %q at %d:%d: %s", ErrMalformedDefine, e.ID, e.Line, e.Column, e.Reason)
}

func (e *MalformedError) Unwrap() error { return ErrMalformedDefine }

// Extract parses source and returns a descriptor for every module-definition
// call, in source order. Parse failures and malformed calls are fatal.
func Extract(source []byte) ([]Module, error) {
	tree, err := parser.ParseStrict(lang.JavaScript, source)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	defer tree.Close()

	spec := lang.ForLanguage(lang.JavaScript)
	calls := Locate(tree.RootNode(), source, spec)
	modules := make([]Module, 0, len(calls))
	for _, call := range calls {
		m, err := Describe(call, source, spec)
		if err != nil {
			return nil, err
		}
		modules = append(modules, m)
	}
	return modules, nil
}

// Describe turns a candidate call returned by Locate into a Module.
func Describe(call *tree_sitter.Node, source []byte, spec *lang.LanguageSpec) (Module, error) {
	args := parser.NamedChildren(call.ChildByFieldName("arguments"), spec.CommentNodeTypes)
	if len(args) == 0 || !lang.Is(args[0].Kind(), spec.StringNodeTypes) {
		return Module{}, malformed(call, "", "first argument is not a string literal")
	}
	id := StringValue(args[0], source, spec)
	if len(args) != 3 {
		return Module{}, malformed(call, id, fmt.Sprintf("expected 3 arguments, got %d", len(args)))
	}

	deps, factory := args[1], args[2]
	if !lang.Is(deps.Kind(), spec.ArrayNodeTypes) {
		return Module{}, malformed(deps, id, "second argument is not an array literal")
	}
	elems := parser.NamedChildren(deps, spec.CommentNodeTypes)
	imports := make([]string, 0, len(elems))
	for _, el := range elems {
		if !lang.Is(el.Kind(), spec.StringNodeTypes) {
			return Module{}, malformed(el, id, "dependency is not a string literal")
		}
		imports = append(imports, StringValue(el, source, spec))
	}

	if !lang.Is(factory.Kind(), spec.FunctionNodeTypes) {
		return Module{}, malformed(factory, id, "third argument is not a function expression")
	}
	body := factory.ChildByFieldName("body")
	if body == nil {
		return Module{}, malformed(factory, id, "factory has no body")
	}

	m := Module{
		ID:          id,
		Imports:     imports,
		Params:      paramNames(factory.ChildByFieldName("parameters"), source, spec),
		DefineRange: defineRange(call, source),
		BodyRange:   bodyRange(body, spec),
	}
	return m, nil
}

// defineRange covers the call and one trailing statement terminator or
// sequence delimiter.
func defineRange(call *tree_sitter.Node, source []byte) Range {
	r := Range{Start: int(call.StartByte()), End: int(call.EndByte())}
	if r.End < len(source) && (source[r.End] == ';' || source[r.End] == ',') {
		r.End++
	}
	return r
}

func bodyRange(block *tree_sitter.Node, spec *lang.LanguageSpec) Range {
	stmts := parser.NamedChildren(block, spec.CommentNodeTypes)
	if len(stmts) == 0 {
		// Just inside the opening brace.
		off := int(block.StartByte()) + 1
		return Range{Start: off, End: off}
	}
	return Range{
		Start: int(stmts[0].StartByte()),
		End:   int(stmts[len(stmts)-1].EndByte()),
	}
}

func paramNames(params *tree_sitter.Node, source []byte, spec *lang.LanguageSpec) []string {
	nodes := parser.NamedChildren(params, spec.CommentNodeTypes)
	names := make([]string, 0, len(nodes))
	for _, p := range nodes {
		names = append(names, paramName(p, source, spec))
	}
	return names
}

func paramName(p *tree_sitter.Node, source []byte, spec *lang.LanguageSpec) string {
	switch {
	case lang.Is(p.Kind(), spec.IdentifierNodeTypes):
		return parser.NodeText(p, source)
	case lang.Is(p.Kind(), spec.AssignmentPatternTypes):
		if left := p.ChildByFieldName("left"); left != nil {
			return paramName(left, source, spec)
		}
	case lang.Is(p.Kind(), spec.RestPatternTypes):
		if inner := parser.NamedChildren(p, spec.CommentNodeTypes); len(inner) > 0 {
			return paramName(inner[0], source, spec)
		}
	}
	return parser.NodeText(p, source)
}

func malformed(n *tree_sitter.Node, id, reason string) *MalformedError {
	pos := n.StartPosition()
	return &MalformedError{
		ID:     id,
		Offset: int(n.StartByte()),
		Line:   int(pos.Row) + 1,
		Column: int(pos.Column) + 1,
		Reason: reason,
	}
}
