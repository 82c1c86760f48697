// Command ast_debug prints the tree-sitter syntax tree of a JavaScript file
// (or stdin) and marks the define calls the transform would pick up.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/DeusData/lazycode/internal/amd"
	"github.com/DeusData/lazycode/internal/lang"
	"github.com/DeusData/lazycode/internal/parser"
)

func printAST(w io.Writer, node *tree_sitter.Node, field string, source []byte, marks map[uint]bool, indent int) {
	if node == nil {
		return
	}
	text := string(source[node.StartByte():node.EndByte()])
	if len(text) > 60 {
		text = text[:60] + "..."
	}
	label := node.Kind()
	if field != "" {
		label = field + ": " + label
	}
	mark := ""
	if marks[node.StartByte()] && node.Kind() == "call_expression" {
		mark = "  <== define"
	}
	if node.IsError() || node.IsMissing() {
		mark = "  <== syntax error"
	}
	fmt.Fprintf(w, "%s%s [%d-%d] %q%s\n", strings.Repeat("  ", indent), label,
		node.StartByte(), node.EndByte(), text, mark)
	for i := uint(0); i < node.ChildCount(); i++ {
		printAST(w, node.Child(i), node.FieldNameForChild(uint32(i)), source, marks, indent+1)
	}
}

func main() {
	var (
		source []byte
		err    error
	)
	if len(os.Args) > 1 && os.Args[1] != "-" {
		source, err = os.ReadFile(os.Args[1])
	} else {
		source, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}

	tree, err := parser.Parse(lang.JavaScript, source)
	if err != nil {
		fmt.Fprintln(os.Stderr, "parse:", err)
		os.Exit(1)
	}
	defer tree.Close()

	root := tree.RootNode()
	marks := make(map[uint]bool)
	for _, call := range amd.Locate(root, source, lang.ForLanguage(lang.JavaScript)) {
		marks[call.StartByte()] = true
	}
	printAST(os.Stdout, root, "", source, marks, 0)

	if err := parser.Check(root, source); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}
