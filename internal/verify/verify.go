// Package verify re-parses generated JavaScript with esbuild, independently of
// the tree-sitter grammar used to locate modules.
package verify

import (
	"errors"
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// ErrInvalidJS is wrapped by every error JS returns for unparseable input.
var ErrInvalidJS = errors.New("invalid javascript")

// Message is one esbuild diagnostic.
type Message struct {
	Line   int // 1-based
	Column int // 0-based, in bytes, as reported by esbuild
	Text   string
}

// Error lists the diagnostics esbuild produced.
type Error struct {
	Messages []Message
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Messages))
	for _, m := range e.Messages {
		parts = append(parts, fmt.Sprintf("%d:%d: %s", m.Line, m.Column, m.Text))
	}
	return fmt.Sprintf("%s:\n%s", ErrInvalidJS, strings.Join(parts, "\n"))
}

func (e *Error) Unwrap() error { return ErrInvalidJS }

// JS parses code as a classic script and returns an *Error when esbuild
// reports any syntax error. No output is produced.
func JS(code string) error {
	result := api.Transform(code, api.TransformOptions{
		Loader:   api.LoaderJS,
		Format:   api.FormatDefault,
		LogLevel: api.LogLevelSilent,
	})
	if len(result.Errors) == 0 {
		return nil
	}
	verr := &Error{Messages: make([]Message, 0, len(result.Errors))}
	for _, m := range result.Errors {
		msg := Message{Text: m.Text}
		if m.Location != nil {
			msg.Line = m.Location.Line
			msg.Column = m.Location.Column
		}
		verr.Messages = append(verr.Messages, msg)
	}
	return verr
}
