package parser

import (
	"fmt"
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_html "github.com/tree-sitter/tree-sitter-html/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"

	"github.com/DeusData/lazycode/internal/lang"
)

var (
	languagesOnce sync.Once
	languages     map[lang.Language]*tree_sitter.Language
	parserPools   map[lang.Language]*sync.Pool
)

func initLanguages() {
	languagesOnce.Do(func() {
		languages = map[lang.Language]*tree_sitter.Language{
			lang.JavaScript: tree_sitter.NewLanguage(tree_sitter_javascript.Language()),
			lang.HTML:       tree_sitter.NewLanguage(tree_sitter_html.Language()),
		}

		parserPools = make(map[lang.Language]*sync.Pool, len(languages))
		for l, tsLang := range languages {
			tsLang := tsLang
			parserPools[l] = &sync.Pool{
				New: func() any {
					p := tree_sitter.NewParser()
					if err := p.SetLanguage(tsLang); err != nil {
						panic(fmt.Sprintf("set language: %v", err))
					}
					return p
				},
			}
		}
	})
}

// GetLanguage returns the tree-sitter Language for a lang.Language.
func GetLanguage(l lang.Language) (*tree_sitter.Language, error) {
	initLanguages()
	tsLang, ok := languages[l]
	if !ok {
		return nil, fmt.Errorf("unsupported language: %s", l)
	}
	return tsLang, nil
}

// Parse parses source code into a tree-sitter AST Tree.
// The caller must call tree.Close() when done.
// Parsers are pooled per language via sync.Pool to avoid per-file allocation.
// A tree containing syntax errors is still returned; use Check to reject it.
func Parse(l lang.Language, source []byte) (*tree_sitter.Tree, error) {
	initLanguages()

	pool, ok := parserPools[l]
	if !ok {
		return nil, fmt.Errorf("unsupported language: %s", l)
	}

	p, _ := pool.Get().(*tree_sitter.Parser)
	if p == nil {
		return nil, fmt.Errorf("failed to get parser for language %s", l)
	}
	tree := p.Parse(source, nil)
	pool.Put(p)

	if tree == nil {
		return nil, fmt.Errorf("parse failed for language %s", l)
	}

	return tree, nil
}

// ParseStrict parses source and fails with a *SyntaxError when the tree
// contains ERROR or MISSING nodes.
func ParseStrict(l lang.Language, source []byte) (*tree_sitter.Tree, error) {
	tree, err := Parse(l, source)
	if err != nil {
		return nil, err
	}
	if err := Check(tree.RootNode(), source); err != nil {
		tree.Close()
		return nil, err
	}
	return tree, nil
}

// SyntaxError reports the first ERROR or MISSING node of a parse tree.
type SyntaxError struct {
	Offset  uint
	Line    uint // 1-based
	Column  uint // 1-based, in bytes
	Missing bool
	Snippet string
}

func (e *SyntaxError) Error() string {
	if e.Missing {
		return fmt.Sprintf("syntax error at %d:%d: missing %s", e.Line, e.Column, e.Snippet)
	}
	return fmt.Sprintf("syntax error at %d:%d near %q", e.Line, e.Column, e.Snippet)
}

// Check walks the tree and returns a *SyntaxError for the first ERROR or
// MISSING node in document order, or nil when the tree is clean.
func Check(root *tree_sitter.Node, source []byte) error {
	if root == nil {
		return fmt.Errorf("parse returned nil root node")
	}
	if !root.HasError() {
		return nil
	}
	var found *tree_sitter.Node
	Walk(root, func(n *tree_sitter.Node) bool {
		if found != nil {
			return false
		}
		if n.IsError() || n.IsMissing() {
			found = n
			return false
		}
		return n.HasError()
	})
	if found == nil {
		found = root
	}
	pos := found.StartPosition()
	se := &SyntaxError{
		Offset:  found.StartByte(),
		Line:    pos.Row + 1,
		Column:  pos.Column + 1,
		Missing: found.IsMissing(),
	}
	if se.Missing {
		se.Snippet = found.Kind()
	} else {
		se.Snippet = snippet(NodeText(found, source), 40)
	}
	return se
}

func snippet(s string, n int) string {
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}

// WalkFunc is called for each node during AST traversal.
// Return false to skip children.
type WalkFunc func(node *tree_sitter.Node) bool

// Walk traverses the AST in depth-first order.
func Walk(node *tree_sitter.Node, fn WalkFunc) {
	if node == nil {
		return
	}
	if !fn(node) {
		return
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child != nil {
			Walk(child, fn)
		}
	}
}

// NodeText returns the text content of a node.
func NodeText(node *tree_sitter.Node, source []byte) string {
	return string(source[node.StartByte():node.EndByte()])
}

// NamedChildren returns the named children of node, skipping any whose kind
// is listed in skip (typically comments).
func NamedChildren(node *tree_sitter.Node, skip []string) []*tree_sitter.Node {
	if node == nil {
		return nil
	}
	out := make([]*tree_sitter.Node, 0, node.NamedChildCount())
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child == nil || lang.Is(child.Kind(), skip) {
			continue
		}
		out = append(out, child)
	}
	return out
}
