// Package edit accumulates text edits against an original source and renders
// them in a single forward pass.
//
// All offsets are byte offsets into the original source, regardless of how
// many edits have been scheduled before. Replaced ranges (Overwrite, Remove)
// must not overlap each other, and insertions must not land strictly inside a
// replaced range. Both conditions are checked by Render.
package edit

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrOverlap is returned by Render when two replaced ranges overlap or an
// insertion falls inside a replaced range.
var ErrOverlap = errors.New("overlapping edits")

// ErrRange is returned for offsets outside the source or inverted ranges.
var ErrRange = errors.New("edit range out of bounds")

type replacement struct {
	start, end int
	text       string
	seq        int
}

// Buffer records edits over an immutable source string.
type Buffer struct {
	src     string
	repl    []replacement
	inserts map[int][]string
	seq     int
}

// New creates a Buffer over src.
func New(src string) *Buffer {
	return &Buffer{src: src, inserts: make(map[int][]string)}
}

// Len returns the length of the original source.
func (b *Buffer) Len() int { return len(b.src) }

// Slice returns original text in [start, end).
func (b *Buffer) Slice(start, end int) (string, error) {
	if err := b.checkRange(start, end); err != nil {
		return "", err
	}
	return b.src[start:end], nil
}

// Overwrite replaces [start, end) with text. An empty range behaves like Insert.
func (b *Buffer) Overwrite(start, end int, text string) error {
	if err := b.checkRange(start, end); err != nil {
		return err
	}
	if start == end {
		return b.Insert(start, text)
	}
	b.seq++
	b.repl = append(b.repl, replacement{start: start, end: end, text: text, seq: b.seq})
	return nil
}

// Remove deletes [start, end). An empty range is a no-op.
func (b *Buffer) Remove(start, end int) error {
	if err := b.checkRange(start, end); err != nil {
		return err
	}
	if start == end {
		return nil
	}
	b.seq++
	b.repl = append(b.repl, replacement{start: start, end: end, seq: b.seq})
	return nil
}

// Insert places text at offset, after anything previously inserted there.
func (b *Buffer) Insert(offset int, text string) error {
	if err := b.checkOffset(offset); err != nil {
		return err
	}
	b.inserts[offset] = append(b.inserts[offset], text)
	return nil
}

// InsertBefore places text at offset, ahead of anything previously inserted
// there.
func (b *Buffer) InsertBefore(offset int, text string) error {
	if err := b.checkOffset(offset); err != nil {
		return err
	}
	b.inserts[offset] = append([]string{text}, b.inserts[offset]...)
	return nil
}

// Render applies all edits and returns the resulting text. Text inserted at
// the start of a replaced range is emitted before the replacement, text
// inserted at its end after it.
func (b *Buffer) Render() (string, error) {
	repl := make([]replacement, len(b.repl))
	copy(repl, b.repl)
	sort.Slice(repl, func(i, j int) bool {
		if repl[i].start != repl[j].start {
			return repl[i].start < repl[j].start
		}
		return repl[i].seq < repl[j].seq
	})
	for i := 1; i < len(repl); i++ {
		if repl[i].start < repl[i-1].end {
			return "", fmt.Errorf("%w: [%d,%d) and [%d,%d)", ErrOverlap,
				repl[i-1].start, repl[i-1].end, repl[i].start, repl[i].end)
		}
	}

	offsets := make([]int, 0, len(b.inserts))
	for off := range b.inserts {
		offsets = append(offsets, off)
	}
	sort.Ints(offsets)
	for _, off := range offsets {
		i := sort.Search(len(repl), func(i int) bool { return repl[i].end > off })
		if i < len(repl) && repl[i].start < off {
			return "", fmt.Errorf("%w: insert at %d inside [%d,%d)", ErrOverlap,
				off, repl[i].start, repl[i].end)
		}
	}

	var sb strings.Builder
	sb.Grow(len(b.src))
	pos, next := 0, 0
	flush := func(limit int) {
		for next < len(offsets) && offsets[next] <= limit {
			off := offsets[next]
			sb.WriteString(b.src[pos:off])
			pos = off
			for _, text := range b.inserts[off] {
				sb.WriteString(text)
			}
			next++
		}
		sb.WriteString(b.src[pos:limit])
		pos = limit
	}
	for _, r := range repl {
		flush(r.start)
		sb.WriteString(r.text)
		pos = r.end
	}
	flush(len(b.src))
	return sb.String(), nil
}

func (b *Buffer) checkRange(start, end int) error {
	if start < 0 || end > len(b.src) || start > end {
		return fmt.Errorf("%w: [%d,%d) in source of length %d", ErrRange, start, end, len(b.src))
	}
	return nil
}

func (b *Buffer) checkOffset(offset int) error {
	if offset < 0 || offset > len(b.src) {
		return fmt.Errorf("%w: offset %d in source of length %d", ErrRange, offset, len(b.src))
	}
	return nil
}
