package edit

import (
	"errors"
	"testing"
)

func render(t *testing.T, b *Buffer) string {
	t.Helper()
	out, err := b.Render()
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	return out
}

func TestRenderNoEdits(t *testing.T) {
	b := New("hello world")
	if got := render(t, b); got != "hello world" {
		t.Errorf("got %q", got)
	}
}

func TestOverwriteRemoveInsert(t *testing.T) {
	b := New("abcdefghij")
	if err := b.Overwrite(0, 3, "XYZ!"); err != nil {
		t.Fatal(err)
	}
	if err := b.Remove(5, 7); err != nil {
		t.Fatal(err)
	}
	if err := b.Insert(10, "<end>"); err != nil {
		t.Fatal(err)
	}
	if got, want := render(t, b), "XYZ!dehij<end>"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestEditsUseOriginalCoordinates(t *testing.T) {
	b := New("0123456789")
	// Scheduled right-to-left; offsets still refer to the original text.
	_ = b.Overwrite(8, 10, "ab")
	_ = b.Remove(2, 4)
	_ = b.Insert(5, "+")
	if got, want := render(t, b), "014+567ab"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestInsertOrderingAtSameOffset(t *testing.T) {
	b := New("ab")
	_ = b.Insert(1, "1")
	_ = b.Insert(1, "2")
	_ = b.InsertBefore(1, "0")
	_ = b.InsertBefore(1, "-")
	if got, want := render(t, b), "a-012b"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestInsertAtReplacementBoundaries(t *testing.T) {
	b := New("x{body}y")
	_ = b.Overwrite(2, 6, "BODY")
	_ = b.InsertBefore(2, "pre(")
	_ = b.Insert(6, ")post")
	if got, want := render(t, b), "x{pre(BODY)post}y"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestInsertSurvivesRemovalAtSameStart(t *testing.T) {
	b := New("keep;drop;tail")
	_ = b.Remove(5, 10)
	_ = b.Insert(5, "NEW;")
	if got, want := render(t, b), "keep;NEW;tail"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestAdjacentRangesCompose(t *testing.T) {
	b := New("a,bc")
	_ = b.Overwrite(1, 2, ";")
	_ = b.Remove(2, 3)
	if got, want := render(t, b), "a;c"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestEmptyRanges(t *testing.T) {
	b := New("{}")
	_ = b.Overwrite(1, 1, "x")
	_ = b.Remove(1, 1)
	_ = b.Insert(1, "y")
	if got, want := render(t, b), "{xy}"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestOverlapIsFatal(t *testing.T) {
	tests := []struct {
		name  string
		apply func(b *Buffer)
	}{
		{"overwrite overlaps remove", func(b *Buffer) {
			_ = b.Overwrite(0, 5, "x")
			_ = b.Remove(4, 8)
		}},
		{"nested ranges", func(b *Buffer) {
			_ = b.Remove(0, 10)
			_ = b.Overwrite(2, 3, "y")
		}},
		{"identical ranges", func(b *Buffer) {
			_ = b.Remove(1, 3)
			_ = b.Remove(1, 3)
		}},
		{"insert inside replacement", func(b *Buffer) {
			_ = b.Overwrite(2, 6, "z")
			_ = b.Insert(4, "!")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New("0123456789")
			tt.apply(b)
			_, err := b.Render()
			if !errors.Is(err, ErrOverlap) {
				t.Fatalf("expected ErrOverlap, got %v", err)
			}
		})
	}
}

func TestRangeValidation(t *testing.T) {
	b := New("abc")
	if err := b.Overwrite(2, 1, "x"); !errors.Is(err, ErrRange) {
		t.Errorf("inverted range: got %v", err)
	}
	if err := b.Remove(0, 4); !errors.Is(err, ErrRange) {
		t.Errorf("past end: got %v", err)
	}
	if err := b.Insert(-1, "x"); !errors.Is(err, ErrRange) {
		t.Errorf("negative offset: got %v", err)
	}
	if _, err := b.Slice(1, 9); !errors.Is(err, ErrRange) {
		t.Errorf("slice past end: got %v", err)
	}
	if s, err := b.Slice(1, 3); err != nil || s != "bc" {
		t.Errorf("Slice(1,3) = %q, %v", s, err)
	}
}

func TestRenderIsRepeatable(t *testing.T) {
	b := New("abc")
	_ = b.Overwrite(1, 2, "B")
	first := render(t, b)
	second := render(t, b)
	if first != second || first != "aBc" {
		t.Errorf("renders differ: %q vs %q", first, second)
	}
}
