package amd

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/DeusData/lazycode/internal/lang"
	"github.com/DeusData/lazycode/internal/parser"
)

// StringValue returns the decoded value of a JS string literal node.
func StringValue(n *tree_sitter.Node, source []byte, spec *lang.LanguageSpec) string {
	var units []rune
	for i := uint(0); i < n.NamedChildCount(); i++ {
		child := n.NamedChild(i)
		if child == nil {
			continue
		}
		text := parser.NodeText(child, source)
		switch {
		case lang.Is(child.Kind(), spec.StringFragmentTypes):
			units = append(units, []rune(text)...)
		case lang.Is(child.Kind(), spec.EscapeSequenceTypes):
			units = append(units, decodeEscape(text)...)
		}
	}
	return string(joinSurrogates(units))
}

// decodeEscape decodes a single JS escape sequence such as \n, \x41, \u0041
// or \u{1F600}. Line continuations decode to nothing.
func decodeEscape(esc string) []rune {
	if len(esc) < 2 || esc[0] != '\\' {
		return []rune(esc)
	}
	body := esc[1:]
	switch body[0] {
	case 'n':
		return []rune{'\n'}
	case 't':
		return []rune{'\t'}
	case 'r':
		return []rune{'\r'}
	case 'b':
		return []rune{'\b'}
	case 'f':
		return []rune{'\f'}
	case 'v':
		return []rune{'\v'}
	case '\n', '\r':
		return nil
	case 'x':
		if v, err := strconv.ParseUint(body[1:], 16, 32); err == nil && len(body) == 3 {
			return []rune{rune(v)}
		}
	case 'u':
		hex := body[1:]
		if strings.HasPrefix(hex, "{") && strings.HasSuffix(hex, "}") {
			hex = hex[1 : len(hex)-1]
		}
		if v, err := strconv.ParseUint(hex, 16, 32); err == nil {
			return []rune{rune(v)}
		}
	case '0', '1', '2', '3', '4', '5', '6', '7':
		if v, err := strconv.ParseUint(body, 8, 32); err == nil {
			return []rune{rune(v)}
		}
	}
	if strings.HasPrefix(body, "\u2028") || strings.HasPrefix(body, "\u2029") {
		return nil
	}
	return []rune(body)
}

// joinSurrogates combines UTF-16 surrogate pairs produced by consecutive
// \uXXXX escapes into single runes.
func joinSurrogates(rs []rune) []rune {
	out := rs[:0:0]
	for i := 0; i < len(rs); i++ {
		if utf16.IsSurrogate(rs[i]) && i+1 < len(rs) {
			if r := utf16.DecodeRune(rs[i], rs[i+1]); r != unicode.ReplacementChar {
				out = append(out, r)
				i++
				continue
			}
		}
		out = append(out, rs[i])
	}
	return out
}
