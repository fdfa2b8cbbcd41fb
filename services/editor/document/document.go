// Package document provides the host editor's document text model.
//
// A Text is an immutable snapshot of document content with a process-wide
// unique identity. Every edit in the host editor produces a new Text; the
// parse bridge keys its caches by that identity, never by content, so an
// unchanged document is recognized in O(1) without hashing.
package document

import (
	"sort"
	"sync/atomic"
)

var textIDs atomic.Uint64

// Text is one immutable version of a document. The zero value is not
// usable; construct with NewText or NewTextString.
type Text struct {
	id    uint64
	data  []byte
	lines []int
}

// NewText builds a Text from content. The bytes are copied, so the caller
// may keep mutating its buffer.
func NewText(content []byte) *Text {
	data := make([]byte, len(content))
	copy(data, content)
	return &Text{
		id:    textIDs.Add(1),
		data:  data,
		lines: lineStarts(data),
	}
}

// NewTextString builds a Text from a string.
func NewTextString(s string) *Text {
	return NewText([]byte(s))
}

// lineStarts returns the byte offset of every line start, beginning with 0.
func lineStarts(data []byte) []int {
	starts := []int{0}
	for i, b := range data {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// ID returns the identity of this text version. IDs are unique per process
// and never reused.
func (t *Text) ID() uint64 { return t.id }

// Len returns the content length in bytes.
func (t *Text) Len() int { return len(t.data) }

// Bytes returns the content. The returned slice is the Text's own backing
// store; callers must not modify it.
func (t *Text) Bytes() []byte { return t.data }

// Slice returns the content of [from, to). The returned slice shares the
// Text's backing store; callers must not modify it.
func (t *Text) Slice(from, to int) []byte { return t.data[from:to] }

// String returns the content as a string.
func (t *Text) String() string { return string(t.data) }

// LineCount returns the number of lines. An empty text has one line; a
// trailing newline starts another.
func (t *Text) LineCount() int { return len(t.lines) }

// LineStarts returns the byte offset of every line start. The returned
// slice is the Text's own index and outlives the Text safely since neither
// side mutates it; callers must not modify it.
func (t *Text) LineStarts() []int { return t.lines }

// PointAt converts a byte offset to a zero-based (row, column) pair, with
// the column counted in bytes from the line start. Offsets outside
// [0, Len()] are clamped.
func (t *Text) PointAt(offset int) (row, col int) {
	return PointIn(t.lines, len(t.data), offset)
}

// PointIn is PointAt over a detached line index, for callers that keep a
// line index snapshot after the Text itself is gone.
func PointIn(lines []int, length, offset int) (row, col int) {
	if offset < 0 {
		offset = 0
	}
	if offset > length {
		offset = length
	}
	// Largest line start <= offset.
	row = sort.Search(len(lines), func(i int) bool { return lines[i] > offset }) - 1
	return row, offset - lines[row]
}
