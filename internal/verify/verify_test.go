package verify

import (
	"errors"
	"testing"
)

func TestJSAcceptsValidCode(t *testing.T) {
	tests := []string{
		``,
		`var x = 1;`,
		`eval('var s = \'x\\n\';');`,
		`define("a", [], function () { return new Function('a', 'return a;')(1); });`,
	}
	for _, code := range tests {
		if err := JS(code); err != nil {
			t.Errorf("JS(%q) = %v", code, err)
		}
	}
}

func TestJSRejectsInvalidCode(t *testing.T) {
	err := JS("eval('it's broken');")
	if err == nil {
		t.Fatal("expected an error")
	}
	if !errors.Is(err, ErrInvalidJS) {
		t.Errorf("expected ErrInvalidJS, got %v", err)
	}
	var verr *Error
	if !errors.As(err, &verr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if len(verr.Messages) == 0 || verr.Messages[0].Line != 1 {
		t.Errorf("unexpected messages %+v", verr.Messages)
	}
}
