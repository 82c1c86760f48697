package amd

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/DeusData/lazycode/internal/lang"
	"github.com/DeusData/lazycode/internal/parser"
)

// DefineCallee is the identifier a module-definition call must invoke.
const DefineCallee = "define"

// Locate returns the candidate module-definition calls under root, in source
// order. A candidate is a call to the bare identifier define whose first
// argument is a string literal; Describe validates the remaining shape.
//
// Only top-level expression statements are inspected, either directly or as
// elements of a comma sequence. Anything else is ordinary code.
func Locate(root *tree_sitter.Node, source []byte, spec *lang.LanguageSpec) []*tree_sitter.Node {
	var calls []*tree_sitter.Node
	for _, stmt := range parser.NamedChildren(root, spec.CommentNodeTypes) {
		if !lang.Is(stmt.Kind(), spec.StatementNodeTypes) {
			continue
		}
		exprs := parser.NamedChildren(stmt, spec.CommentNodeTypes)
		if len(exprs) == 0 {
			continue
		}
		for _, expr := range flattenSequence(exprs[0], spec) {
			if isCandidate(expr, source, spec) {
				calls = append(calls, expr)
			}
		}
	}
	return calls
}

// flattenSequence returns the elements of a (possibly nested) comma sequence
// in source order, or expr itself when it is not a sequence.
func flattenSequence(expr *tree_sitter.Node, spec *lang.LanguageSpec) []*tree_sitter.Node {
	var out []*tree_sitter.Node
	work := []*tree_sitter.Node{expr}
	for len(work) > 0 {
		n := work[len(work)-1]
		work = work[:len(work)-1]
		if !lang.Is(n.Kind(), spec.SequenceNodeTypes) {
			out = append(out, n)
			continue
		}
		children := parser.NamedChildren(n, spec.CommentNodeTypes)
		for i := len(children) - 1; i >= 0; i-- {
			work = append(work, children[i])
		}
	}
	return out
}

func isCandidate(n *tree_sitter.Node, source []byte, spec *lang.LanguageSpec) bool {
	if !lang.Is(n.Kind(), spec.CallNodeTypes) {
		return false
	}
	callee := n.ChildByFieldName("function")
	if callee == nil || !lang.Is(callee.Kind(), spec.IdentifierNodeTypes) {
		return false
	}
	if parser.NodeText(callee, source) != DefineCallee {
		return false
	}
	args := n.ChildByFieldName("arguments")
	if args == nil || args.Kind() != "arguments" {
		return false
	}
	first := parser.NamedChildren(args, spec.CommentNodeTypes)
	return len(first) > 0 && lang.Is(first[0].Kind(), spec.StringNodeTypes)
}
