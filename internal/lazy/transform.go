// Package lazy rewrites an AMD bundle so module bodies are not parsed or
// executed eagerly: they are either moved into a string registry consumed by
// a runtime loader, or wrapped in eval / new Function.
//
// A Transformer is immutable after New and safe for concurrent use. Output is
// a pure function of the input bytes and the Config.
package lazy

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/DeusData/lazycode/internal/amd"
	"github.com/DeusData/lazycode/internal/edit"
)

// ErrDuplicateModule is returned in strings mode when two calls define the
// same module id.
var ErrDuplicateModule = errors.New("duplicate module id")

// Wrap is the edit position derived from one module in eval/function mode.
type Wrap struct {
	Start     int      `json:"start"`
	End       int      `json:"end"`
	IIFE      bool     `json:"wrap_in_iife"`
	Arguments []string `json:"arguments"`
}

// Result is the outcome of one Transform call.
type Result struct {
	Output  string       `json:"-"`
	Mode    Mode         `json:"mode"`
	Modules []amd.Module `json:"modules"`
	// Wraps is set in eval and function modes, one per module.
	Wraps []Wrap `json:"wraps,omitempty"`
	// Initializers is set in strings mode when an app name is configured.
	Initializers []Initializer `json:"initializers,omitempty"`
	// Anchor is the offset where generated declarations were inserted, or -1.
	Anchor int `json:"anchor"`
}

// strategy schedules the edits for one mode.
type strategy interface {
	apply(src string, mods []amd.Module, buf *edit.Buffer, res *Result) error
}

// Transformer applies one configured mode to bundle sources.
type Transformer struct {
	cfg      Config
	strategy strategy
}

// New validates cfg and returns a Transformer. Invalid configuration is
// reported here, before any source is processed.
func New(cfg Config) (*Transformer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	mode, _ := ParseMode(string(cfg.Mode))
	cfg.Mode = mode
	cfg = cfg.withDefaults()

	t := &Transformer{cfg: cfg}
	switch mode {
	case ModeStrings:
		t.strategy = &stringsStrategy{cfg: cfg, initializers: NewInitializerMatcher(cfg.AppName)}
	case ModeEval:
		t.strategy = newWrapStrategy(cfg, evalWrapper)
	case ModeFunction:
		t.strategy = newWrapStrategy(cfg, functionWrapper)
	}
	return t, nil
}

// Config returns the effective configuration, defaults applied.
func (t *Transformer) Config() Config { return t.cfg }

// Transform rewrites one bundle. It either succeeds completely or returns an
// error and no output.
func (t *Transformer) Transform(src []byte) (*Result, error) {
	if t.cfg.Mode == ModeNone {
		return &Result{Output: string(src), Mode: ModeNone, Anchor: -1}, nil
	}

	mods, err := amd.Extract(src)
	if err != nil {
		return nil, err
	}

	text := string(src)
	buf := edit.New(text)
	res := &Result{Mode: t.cfg.Mode, Modules: mods, Anchor: -1}
	if err := t.strategy.apply(text, mods, buf, res); err != nil {
		return nil, err
	}
	out, err := buf.Render()
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	res.Output = out

	slog.Debug("lazy.transform", "mode", t.cfg.Mode, "modules", len(mods),
		"bytes_in", len(src), "bytes_out", len(out))
	return res, nil
}

// TransformString is Transform for callers that only need the text.
func (t *Transformer) TransformString(src string) (string, error) {
	res, err := t.Transform([]byte(src))
	if err != nil {
		return "", err
	}
	return res.Output, nil
}
