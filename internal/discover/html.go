package discover

import (
	"fmt"
	"path"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/DeusData/lazycode/internal/lang"
	"github.com/DeusData/lazycode/internal/parser"
)

// ScriptSources returns the src attribute of every <script> element in an
// HTML document, in document order. Scripts without src are skipped.
func ScriptSources(src []byte) ([]string, error) {
	tree, err := parser.Parse(lang.HTML, src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	spec := lang.ForLanguage(lang.HTML)
	var out []string
	parser.Walk(tree.RootNode(), func(n *tree_sitter.Node) bool {
		if !lang.Is(n.Kind(), spec.ScriptElementTypes) {
			return true
		}
		if v, ok := scriptSrc(n, src, spec); ok {
			out = append(out, v)
		}
		return false
	})
	return out, nil
}

func scriptSrc(script *tree_sitter.Node, src []byte, spec *lang.LanguageSpec) (string, bool) {
	for _, tag := range parser.NamedChildren(script, nil) {
		if !lang.Is(tag.Kind(), spec.StartTagTypes) {
			continue
		}
		for _, attr := range parser.NamedChildren(tag, nil) {
			if !lang.Is(attr.Kind(), spec.AttributeTypes) {
				continue
			}
			parts := parser.NamedChildren(attr, nil)
			if len(parts) == 0 || !lang.Is(parts[0].Kind(), spec.AttributeNameTypes) {
				continue
			}
			if !strings.EqualFold(parser.NodeText(parts[0], src), "src") {
				continue
			}
			if len(parts) < 2 {
				return "", true
			}
			return attributeValue(parts[1], src, spec), true
		}
	}
	return "", false
}

func attributeValue(n *tree_sitter.Node, src []byte, spec *lang.LanguageSpec) string {
	if lang.Is(n.Kind(), spec.QuotedValueTypes) {
		for _, c := range parser.NamedChildren(n, nil) {
			if lang.Is(c.Kind(), spec.AttributeValueTypes) {
				return parser.NodeText(c, src)
			}
		}
		return ""
	}
	return parser.NodeText(n, src)
}

// localScriptPath maps a script src to a slash path relative to the dist
// directory. Remote, protocol-relative and data URLs are rejected.
func localScriptPath(src string) (string, bool) {
	src = strings.TrimSpace(src)
	if src == "" || strings.HasPrefix(src, "//") || strings.Contains(src, "://") || strings.HasPrefix(src, "data:") {
		return "", false
	}
	if i := strings.IndexAny(src, "?#"); i >= 0 {
		src = src[:i]
	}
	p := path.Clean(strings.TrimLeft(src, "/"))
	if p == "." || p == ".." || strings.HasPrefix(p, "../") {
		return "", false
	}
	return p, true
}

// indexPatterns returns literal match patterns for the local scripts an
// index page loads.
func indexPatterns(index []byte) ([]string, error) {
	srcs, err := ScriptSources(index)
	if err != nil {
		return nil, fmt.Errorf("parse index: %w", err)
	}
	var pats []string
	for _, s := range srcs {
		if p, ok := localScriptPath(s); ok {
			pats = append(pats, escapePattern(p))
		}
	}
	return pats, nil
}

// escapePattern quotes the path.Match metacharacters in p.
func escapePattern(p string) string {
	var b strings.Builder
	for _, r := range p {
		switch r {
		case '*', '?', '[', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
