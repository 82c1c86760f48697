package lazy

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// Mode selects how module bodies are deferred.
type Mode string

const (
	// ModeStrings moves every module body into a registry of strings.
	ModeStrings Mode = "strings"
	// ModeEval wraps every module body in eval('...').
	ModeEval Mode = "eval"
	// ModeFunction wraps every module body in new Function(...)(...).
	ModeFunction Mode = "function"
	// ModeNone returns the input untouched.
	ModeNone Mode = "none"
)

// Modes returns all recognized modes.
func Modes() []Mode {
	return []Mode{ModeStrings, ModeEval, ModeFunction, ModeNone}
}

// Default runtime entry points and generated variable names.
const (
	DefaultStringEntryPoint      = "defineStringModule"
	DefaultInitializerEntryPoint = "defineInitializerRegistry"
	DefaultRegistryVar           = "__lazyStringModules__"
	DefaultInitializerVar        = "__lazyInitializers__"
)

var (
	identRe  = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)
	dottedRe = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*(\.[A-Za-z_$][A-Za-z0-9_$]*)*$`)
)

// Config controls a Transformer. The zero value is not valid; Mode is required.
type Config struct {
	Mode Mode
	// WrapInIIFE lists module ids whose wrapped body must return a value.
	WrapInIIFE []string
	// AppName derives the initializer pattern <app>/(instance-)?initializers/.
	// Empty disables the initializer registry.
	AppName string
	// Quote is the string delimiter used by eval/function wrappers: ' or ".
	// Zero means '.
	Quote byte
	// EmitEmptyRegistry makes strings mode insert its declarations at the
	// start of the file even when no module was found.
	EmitEmptyRegistry bool

	StringEntryPoint      string
	InitializerEntryPoint string
	RegistryVar           string
	InitializerVar        string
}

// ConfigError reports an invalid Config field.
type ConfigError struct {
	Field string
	Value string
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config %s=%q: %s", e.Field, e.Value, e.Msg)
}

// ErrUnknownMode is wrapped by the ConfigError returned for an unrecognized mode.
var ErrUnknownMode = errors.New("unknown mode")

func (e *ConfigError) Unwrap() error {
	if e.Field == "mode" {
		return ErrUnknownMode
	}
	return nil
}

// ParseMode converts s to a Mode.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(Modes(), m) {
		return "", &ConfigError{Field: "mode", Value: s, Msg: "want one of strings, eval, function, none"}
	}
	return m, nil
}

// withDefaults returns a copy of c with empty optional fields filled in.
func (c Config) withDefaults() Config {
	if c.Quote == 0 {
		c.Quote = '\''
	}
	if c.StringEntryPoint == "" {
		c.StringEntryPoint = DefaultStringEntryPoint
	}
	if c.InitializerEntryPoint == "" {
		c.InitializerEntryPoint = DefaultInitializerEntryPoint
	}
	if c.RegistryVar == "" {
		c.RegistryVar = DefaultRegistryVar
	}
	if c.InitializerVar == "" {
		c.InitializerVar = DefaultInitializerVar
	}
	return c
}

// Validate checks c without modifying it.
func (c Config) Validate() error {
	if _, err := ParseMode(string(c.Mode)); err != nil {
		return err
	}
	d := c.withDefaults()
	if d.Quote != '\'' && d.Quote != '"' {
		return &ConfigError{Field: "quote", Value: string(d.Quote), Msg: `want ' or "`}
	}
	names := []struct {
		field, value string
		re           *regexp.Regexp
	}{
		{"string_entry_point", d.StringEntryPoint, dottedRe},
		{"initializer_entry_point", d.InitializerEntryPoint, dottedRe},
		{"registry_var", d.RegistryVar, identRe},
		{"initializer_var", d.InitializerVar, identRe},
	}
	for _, n := range names {
		if !n.re.MatchString(n.value) {
			return &ConfigError{Field: n.field, Value: n.value, Msg: "not a JavaScript identifier"}
		}
	}
	if d.RegistryVar == d.InitializerVar {
		return &ConfigError{Field: "initializer_var", Value: d.InitializerVar, Msg: "must differ from registry_var"}
	}
	if strings.ContainsAny(c.AppName, "\n\r") {
		return &ConfigError{Field: "app_name", Value: c.AppName, Msg: "contains a line break"}
	}
	for _, id := range c.WrapInIIFE {
		if id == "" {
			return &ConfigError{Field: "wrap_in_iife", Value: id, Msg: "empty module id"}
		}
	}
	return nil
}

// Fingerprint returns a stable string identifying every option that affects
// output. Equal fingerprints and equal input give byte-identical output.
func (c Config) Fingerprint() string {
	d := c.withDefaults()
	if m, err := ParseMode(string(d.Mode)); err == nil {
		d.Mode = m
	}
	iife := slices.Clone(d.WrapInIIFE)
	slices.Sort(iife)
	iife = slices.Compact(iife)
	return strings.Join([]string{
		"v1",
		string(d.Mode),
		d.AppName,
		string(d.Quote),
		fmt.Sprint(d.EmitEmptyRegistry),
		d.StringEntryPoint,
		d.InitializerEntryPoint,
		d.RegistryVar,
		d.InitializerVar,
		strings.Join(iife, ","),
	}, "\x1f")
}
