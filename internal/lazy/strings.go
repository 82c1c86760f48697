package lazy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/DeusData/lazycode/internal/amd"
	"github.com/DeusData/lazycode/internal/edit"
)

// registryEntry is the serialized form of one module in the string registry.
type registryEntry struct {
	Imports []string `json:"imports"`
	Params  []string `json:"params"`
	Body    string   `json:"body"`
}

type stringsStrategy struct {
	cfg          Config
	initializers *InitializerMatcher
}

func (s *stringsStrategy) apply(src string, mods []amd.Module, buf *edit.Buffer, res *Result) error {
	var registry bytes.Buffer
	registry.WriteByte('{')
	seen := make(map[string]bool, len(mods))

	for i, m := range mods {
		if seen[m.ID] {
			return fmt.Errorf("%w: %q", ErrDuplicateModule, m.ID)
		}
		seen[m.ID] = true

		entry := registryEntry{
			Imports: m.Imports,
			Params:  m.Params,
			Body:    Normalize(src[m.BodyRange.Start:m.BodyRange.End]),
		}
		if i > 0 {
			registry.WriteByte(',')
		}
		if err := writeJSON(&registry, m.ID); err != nil {
			return err
		}
		registry.WriteByte(':')
		if err := writeJSON(&registry, entry); err != nil {
			return err
		}

		if err := buf.Remove(m.DefineRange.Start, m.DefineRange.End); err != nil {
			return fmt.Errorf("remove %q: %w", m.ID, err)
		}
		if match, ok := s.initializers.Match(m.ID); ok {
			res.Initializers = append(res.Initializers, match)
		}
	}
	registry.WriteByte('}')

	if len(mods) == 0 && !s.cfg.EmitEmptyRegistry {
		return nil
	}

	anchor := 0
	if len(mods) > 0 {
		anchor = mods[0].DefineRange.Start
	}
	// Production bundles chain defines with commas; once they are gone the
	// preceding expression needs a statement terminator.
	if comma := precedingComma(src, anchor); comma >= 0 {
		if err := buf.Overwrite(comma, comma+1, ";"); err != nil {
			return err
		}
	}

	var decl strings.Builder
	fmt.Fprintf(&decl, "var %s = %s;\n%s(%s);\n",
		s.cfg.RegistryVar, registry.String(), s.cfg.StringEntryPoint, s.cfg.RegistryVar)
	if s.initializers != nil {
		inits := res.Initializers
		if inits == nil {
			inits = []Initializer{}
		}
		var list bytes.Buffer
		if err := writeJSON(&list, inits); err != nil {
			return err
		}
		fmt.Fprintf(&decl, "var %s = %s;\n%s(%s);\n",
			s.cfg.InitializerVar, list.String(), s.cfg.InitializerEntryPoint, s.cfg.InitializerVar)
	}
	if err := buf.Insert(anchor, decl.String()); err != nil {
		return err
	}
	res.Anchor = anchor
	return nil
}

// precedingComma returns the offset of the comma that ends the expression
// before anchor, skipping whitespace, or -1 when there is none.
func precedingComma(src string, anchor int) int {
	for i := anchor - 1; i >= 0; i-- {
		switch src[i] {
		case ' ', '\t', '\n', '\r':
			continue
		case ',':
			return i
		}
		return -1
	}
	return -1
}

// writeJSON encodes v without HTML escaping and without the trailing newline
// json.Encoder adds.
func writeJSON(w *bytes.Buffer, v any) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode registry: %w", err)
	}
	w.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
	return nil
}
