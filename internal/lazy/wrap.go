package lazy

import (
	"fmt"
	"strings"

	"github.com/DeusData/lazycode/internal/amd"
	"github.com/DeusData/lazycode/internal/edit"
)

// wrapper returns the text placed before and after an escaped body.
type wrapper func(w Wrap, quote byte) (prefix, suffix string)

// evalWrapper produces eval('<body>'); or, for IIFE modules,
// return eval('(function(){<body>})()');.
func evalWrapper(w Wrap, q byte) (string, string) {
	if w.IIFE {
		return "return eval(" + string(q) + "(function(){", "})()" + string(q) + ");"
	}
	return "eval(" + string(q), string(q) + ");"
}

// functionWrapper produces new Function('<p1>', ..., '<body>')(<p1>, ...);,
// prefixed with return for IIFE modules.
func functionWrapper(w Wrap, q byte) (string, string) {
	var pre strings.Builder
	if w.IIFE {
		pre.WriteString("return ")
	}
	pre.WriteString("new Function(")
	for _, p := range w.Arguments {
		pre.WriteString(quoted(p, q))
		pre.WriteString(", ")
	}
	pre.WriteByte(q)
	return pre.String(), string(q) + ")(" + strings.Join(w.Arguments, ", ") + ");"
}

type wrapStrategy struct {
	cfg  Config
	iife map[string]bool
	wrap wrapper
}

func newWrapStrategy(cfg Config, w wrapper) *wrapStrategy {
	iife := make(map[string]bool, len(cfg.WrapInIIFE))
	for _, id := range cfg.WrapInIIFE {
		iife[id] = true
	}
	return &wrapStrategy{cfg: cfg, iife: iife, wrap: w}
}

func (s *wrapStrategy) apply(src string, mods []amd.Module, buf *edit.Buffer, res *Result) error {
	res.Wraps = make([]Wrap, 0, len(mods))
	for _, m := range mods {
		w := Wrap{
			Start:     m.BodyRange.Start,
			End:       m.BodyRange.End,
			IIFE:      s.iife[m.ID],
			Arguments: m.Params,
		}
		body := Escape(Normalize(src[w.Start:w.End]), s.cfg.Quote)
		prefix, suffix := s.wrap(w, s.cfg.Quote)

		if err := buf.Overwrite(w.Start, w.End, body); err != nil {
			return fmt.Errorf("wrap %q: %w", m.ID, err)
		}
		if err := buf.InsertBefore(w.Start, prefix); err != nil {
			return fmt.Errorf("wrap %q: %w", m.ID, err)
		}
		if err := buf.Insert(w.End, suffix); err != nil {
			return fmt.Errorf("wrap %q: %w", m.ID, err)
		}
		res.Wraps = append(res.Wraps, w)
	}
	return nil
}
