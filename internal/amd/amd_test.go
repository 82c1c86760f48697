package amd

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/DeusData/lazycode/internal/parser"
)

func slice(src string, r Range) string { return src[r.Start:r.End] }

func TestExtractDevelopmentShape(t *testing.T) {
	src := `'use strict';

define("app/app", ["exports", "ember"], function (exports, _ember) {
  var App = _ember.default.Application.extend({});
  exports.default = App;
});
define("app/router", ["exports"], function (exports) {
  exports.default = 1;
});
`
	mods, err := Extract([]byte(src))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(mods) != 2 {
		t.Fatalf("expected 2 modules, got %d", len(mods))
	}

	app := mods[0]
	if app.ID != "app/app" {
		t.Errorf("ID = %q", app.ID)
	}
	if !reflect.DeepEqual(app.Imports, []string{"exports", "ember"}) {
		t.Errorf("Imports = %v", app.Imports)
	}
	if !reflect.DeepEqual(app.Params, []string{"exports", "_ember"}) {
		t.Errorf("Params = %v", app.Params)
	}
	define := slice(src, app.DefineRange)
	if !strings.HasPrefix(define, `define("app/app"`) || !strings.HasSuffix(define, "});") {
		t.Errorf("DefineRange text = %q", define)
	}
	wantBody := "var App = _ember.default.Application.extend({});\n  exports.default = App;"
	if got := slice(src, app.BodyRange); got != wantBody {
		t.Errorf("BodyRange text = %q, want %q", got, wantBody)
	}
	if !app.DefineRange.Contains(app.BodyRange) {
		t.Errorf("body %v not inside define %v", app.BodyRange, app.DefineRange)
	}
	if mods[1].ID != "app/router" {
		t.Errorf("second ID = %q", mods[1].ID)
	}
}

func TestExtractProductionShape(t *testing.T) {
	src := `"use strict";define("app/a",["exports","app/b"],function(e,t){e.default=t.x}),define("app/b",["exports"],function(e){var x=1;e.x=x}),define("app/c",[],function(){});`
	mods, err := Extract([]byte(src))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	ids := make([]string, 0, len(mods))
	for _, m := range mods {
		ids = append(ids, m.ID)
	}
	if !reflect.DeepEqual(ids, []string{"app/a", "app/b", "app/c"}) {
		t.Fatalf("ids = %v", ids)
	}
	if got := slice(src, mods[0].DefineRange); !strings.HasSuffix(got, "}),") {
		t.Errorf("first define should consume the trailing comma, got %q", got)
	}
	if got := slice(src, mods[2].DefineRange); !strings.HasSuffix(got, "});") {
		t.Errorf("last define should consume the trailing semicolon, got %q", got)
	}
	if got := slice(src, mods[1].BodyRange); got != "var x=1;e.x=x" {
		t.Errorf("body = %q", got)
	}
}

func TestExtractEmptyFactory(t *testing.T) {
	src := `define("app/empty", [], function () {   });`
	mods, err := Extract([]byte(src))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(mods) != 1 {
		t.Fatalf("expected 1 module, got %d", len(mods))
	}
	body := mods[0].BodyRange
	if body.Len() != 0 {
		t.Errorf("expected empty body range, got %v", body)
	}
	if src[body.Start-1] != '{' {
		t.Errorf("empty body should sit just after '{', got %q", src[body.Start-1])
	}
}

func TestExtractIgnoresOrdinaryCode(t *testing.T) {
	src := `var define = window.define;
foo("app/x", [], function () {});
define(function () { return 1; });
window.define("app/y", [], function () {});
(function () {
  define("app/nested", [], function () {});
})();
define("app/real", [], function () { return 2; })
`
	mods, err := Extract([]byte(src))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(mods) != 1 || mods[0].ID != "app/real" {
		t.Fatalf("expected only app/real, got %+v", mods)
	}
	// No trailing terminator: the range ends at the call.
	if got := slice(src, mods[0].DefineRange); !strings.HasSuffix(got, "})") {
		t.Errorf("DefineRange text = %q", got)
	}
}

func TestExtractMalformed(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		id     string
		reason string
	}{
		{"two arguments", `define("app/a", function () {});`, "app/a", "expected 3 arguments"},
		{"four arguments", `define("app/a", [], function () {}, 1);`, "app/a", "expected 3 arguments"},
		{"non-array deps", `define("app/a", "dep", function () {});`, "app/a", "not an array"},
		{"non-string dep", `define("app/a", [dep], function () {});`, "app/a", "dependency is not a string"},
		{"arrow factory", `define("app/a", [], () => 1);`, "app/a", "not a function expression"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Extract([]byte(tt.src))
			if !errors.Is(err, ErrMalformedDefine) {
				t.Fatalf("expected ErrMalformedDefine, got %v", err)
			}
			var me *MalformedError
			if !errors.As(err, &me) {
				t.Fatalf("expected *MalformedError, got %T", err)
			}
			if me.ID != tt.id {
				t.Errorf("ID = %q, want %q", me.ID, tt.id)
			}
			if !strings.Contains(me.Reason, tt.reason) {
				t.Errorf("Reason = %q, want it to contain %q", me.Reason, tt.reason)
			}
			if me.Line != 1 {
				t.Errorf("Line = %d, want 1", me.Line)
			}
		})
	}
}

func TestExtractSyntaxError(t *testing.T) {
	_, err := Extract([]byte(`define("app/a", [], function () { var x = ; });`))
	var se *parser.SyntaxError
	if !errors.As(err, &se) {
		t.Fatalf("expected *parser.SyntaxError, got %v", err)
	}
}

func TestExtractParams(t *testing.T) {
	src := `define("app/p", ["a", "b", "c", "d"], function (a, b = 1, /* c */ ...rest) { return a; });`
	mods, err := Extract([]byte(src))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if want := []string{"a", "b", "rest"}; !reflect.DeepEqual(mods[0].Params, want) {
		t.Errorf("Params = %v, want %v", mods[0].Params, want)
	}
	if len(mods[0].Imports) != 4 {
		t.Errorf("trailing imports must be kept, got %v", mods[0].Imports)
	}
}

func TestExtractCommentsInArguments(t *testing.T) {
	src := `define("app/c", /* deps */ [ // first
  "exports"], function (exports) {
  // leading comment
  exports.x = 1;
  // trailing comment
});`
	mods, err := Extract([]byte(src))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(mods) != 1 {
		t.Fatalf("expected 1 module, got %d", len(mods))
	}
	if got := slice(src, mods[0].BodyRange); got != "exports.x = 1;" {
		t.Errorf("body = %q", got)
	}
	if !reflect.DeepEqual(mods[0].Imports, []string{"exports"}) {
		t.Errorf("Imports = %v", mods[0].Imports)
	}
}

func TestStringValueEscapes(t *testing.T) {
	tests := []struct {
		literal string
		want    string
	}{
		{`"app/foo"`, "app/foo"},
		{`'app/foo'`, "app/foo"},
		{`"app\/foo"`, "app/foo"},
		{`"app/\u0066oo"`, "app/foo"},
		{`"app/\x66oo"`, "app/foo"},
		{`"app/\u{66}oo"`, "app/foo"},
		{`"a\"b"`, `a"b`},
		{`"tab\there"`, "tab\there"},
		{`"\uD83D\uDE00"`, "\U0001F600"},
		{`""`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.literal, func(t *testing.T) {
			src := "define(" + tt.literal + ", [], function () {});"
			mods, err := Extract([]byte(src))
			if err != nil {
				t.Fatalf("Extract: %v", err)
			}
			if len(mods) != 1 {
				t.Fatalf("expected 1 module, got %d", len(mods))
			}
			if mods[0].ID != tt.want {
				t.Errorf("ID = %q, want %q", mods[0].ID, tt.want)
			}
		})
	}
}

func TestRange(t *testing.T) {
	outer := Range{Start: 2, End: 10}
	if !outer.Contains(Range{Start: 2, End: 10}) || !outer.Contains(Range{Start: 5, End: 5}) {
		t.Error("Contains should accept equal and empty inner ranges")
	}
	if outer.Contains(Range{Start: 1, End: 3}) {
		t.Error("Contains should reject ranges starting before outer")
	}
	if outer.Len() != 8 {
		t.Errorf("Len = %d", outer.Len())
	}
}
