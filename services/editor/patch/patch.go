// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package patch applies unified diffs to document texts.
//
// Applying a change yields the patched text together with reuse fragments
// for the byte ranges the hunks left alone, so a caller holding only a
// text patch can still drive an incremental parse: hand the new text and
// the fragments to the parser and it reuses everything outside the hunks.
package patch

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/sourcegraph/go-diff/diff"

	"github.com/ChrisRoyse/Fava-sub001/services/editor/document"
	"github.com/ChrisRoyse/Fava-sub001/services/editor/syntax"
)

const devNull = "/dev/null"

// FileChange is one file's portion of a unified diff.
type FileChange struct {
	// Path names the file the change applies to, with any a/ or b/ git
	// prefix stripped. For deletions it names the removed file.
	Path string

	fd *diff.FileDiff
}

// Parse reads a unified diff, possibly spanning multiple files.
func Parse(patch []byte) ([]*FileChange, error) {
	fds, err := diff.NewMultiFileDiffReader(bytes.NewReader(patch)).ReadAllFiles()
	if err != nil {
		return nil, fmt.Errorf("patch: reading unified diff: %w", err)
	}
	changes := make([]*FileChange, 0, len(fds))
	for _, fd := range fds {
		changes = append(changes, &FileChange{Path: pathOf(fd), fd: fd})
	}
	return changes, nil
}

// ApplyUnified parses a unified diff that must cover exactly one file and
// applies it to old.
func ApplyUnified(old *document.Text, unified []byte) (*document.Text, []syntax.Fragment, error) {
	changes, err := Parse(unified)
	if err != nil {
		return nil, nil, err
	}
	if len(changes) != 1 {
		return nil, nil, fmt.Errorf("patch: want a single file diff, have %d files", len(changes))
	}
	return changes[0].Apply(old)
}

// pathOf picks the post-change name, falling back to the original side for
// deletions.
func pathOf(fd *diff.FileDiff) string {
	name := fd.NewName
	if name == "" || name == devNull {
		name = fd.OrigName
	}
	name = strings.TrimPrefix(name, "a/")
	name = strings.TrimPrefix(name, "b/")
	return name
}

// IsCreate reports whether the change creates the file.
func (c *FileChange) IsCreate() bool { return c.fd.OrigName == devNull }

// IsDelete reports whether the change deletes the file.
func (c *FileChange) IsDelete() bool { return c.fd.NewName == devNull }

// Stats counts the added and removed lines across all hunks.
func (c *FileChange) Stats() (added, removed int) {
	for _, hunk := range c.fd.Hunks {
		lines, _ := hunkLines(hunk)
		for _, line := range lines {
			switch {
			case strings.HasPrefix(line, "+"):
				added++
			case strings.HasPrefix(line, "-"):
				removed++
			}
		}
	}
	return added, removed
}

// Apply patches old, returning the patched text and reuse fragments for
// the byte ranges the hunks did not touch. The fragments keep the
// contract the parser's edit resolution depends on: a fragment starting
// at offset zero is an identity prefix of both versions, and a fragment
// ending at the new length is the common suffix at the net length shift.
// Unchanged runs that merely touch a document edge after a nearby
// deletion satisfy neither and are withheld.
//
// Every context and removed line is verified against old; a mismatch
// means the diff was produced against different content and applying it
// would corrupt the text, so Apply fails instead.
func (c *FileChange) Apply(old *document.Text) (*document.Text, []syntax.Fragment, error) {
	if c.IsDelete() {
		return document.NewText(nil), nil, nil
	}

	src := old.Bytes()
	starts := old.LineStarts()
	nLines := len(starts)
	if old.Len() == 0 || src[old.Len()-1] == '\n' {
		// The line index carries an entry after a trailing newline;
		// diffs do not count that as a line.
		nLines--
	}
	lineAt := func(i int) []byte {
		if i+1 < len(starts) {
			return src[starts[i]:starts[i+1]]
		}
		return src[starts[i]:]
	}

	var (
		buf     bytes.Buffer
		frags   []syntax.Fragment
		origIdx int

		runStart   = -1
		runAligned bool
		changed    bool
		tailDelete bool
	)

	openRun := func() {
		if runStart < 0 {
			runStart = buf.Len()
			runAligned = !changed
		}
	}
	closeRun := func(byDelete bool) {
		if runStart < 0 {
			return
		}
		f := syntax.Fragment{From: runStart, To: buf.Len()}
		runStart = -1
		if f.To <= f.From {
			return
		}
		if f.From == 0 && !runAligned {
			// Content that survived a leading deletion is no longer at
			// its old offsets and must not pose as an identity prefix.
			return
		}
		frags = append(frags, f)
		tailDelete = byDelete
	}
	copyLine := func() {
		openRun()
		buf.Write(lineAt(origIdx))
		origIdx++
	}
	verify := func(hi, li int, want string) error {
		if origIdx >= nLines {
			return fmt.Errorf("patch %s: hunk %d extends past end of file", c.Path, hi+1)
		}
		got := strings.TrimSuffix(string(lineAt(origIdx)), "\n")
		if got != want {
			return fmt.Errorf("patch %s: hunk %d line %d: context mismatch: have %q, diff expects %q",
				c.Path, hi+1, li+1, got, want)
		}
		return nil
	}

	for hi, hunk := range c.fd.Hunks {
		target := int(hunk.OrigStartLine) - 1
		if hunk.OrigLines == 0 {
			// A pure insertion names the line the new content follows,
			// not the first line consumed.
			target = int(hunk.OrigStartLine)
		}
		if target < origIdx || target > nLines {
			return nil, nil, fmt.Errorf("patch %s: hunk %d starts at line %d, expected a line in [%d,%d]",
				c.Path, hi+1, int(hunk.OrigStartLine), origIdx+1, nLines)
		}
		for origIdx < target {
			copyLine()
		}

		lines, terminated := hunkLines(hunk)
		for li, line := range lines {
			switch {
			case strings.HasPrefix(line, "+"):
				closeRun(false)
				changed = true
				buf.WriteString(line[1:])
				if terminated || li < len(lines)-1 {
					buf.WriteByte('\n')
				}
			case strings.HasPrefix(line, "-"):
				if err := verify(hi, li, line[1:]); err != nil {
					return nil, nil, err
				}
				closeRun(true)
				changed = true
				origIdx++
			default:
				// Context line. Some producers emit blank context lines
				// without the leading space.
				if err := verify(hi, li, strings.TrimPrefix(line, " ")); err != nil {
					return nil, nil, err
				}
				copyLine()
			}
		}
	}

	for origIdx < nLines {
		copyLine()
	}
	closeRun(false)

	if n := len(frags); n > 0 {
		last := frags[n-1]
		if tailDelete && last.To == buf.Len() && last.From > 0 {
			// A run cut short by a trailing deletion ends at the new
			// length without being suffix aligned.
			frags = frags[:n-1]
		}
	}

	return document.NewText(buf.Bytes()), frags, nil
}

// hunkLines splits a hunk body into its prefixed lines. terminated
// reports whether the final line carries its newline; the diff reader
// strips it from the body when the new side of the file ends without
// one. After a terminated body the split leaves a trailing empty
// artifact, not a line.
func hunkLines(hunk *diff.Hunk) (lines []string, terminated bool) {
	body := string(hunk.Body)
	terminated = body == "" || strings.HasSuffix(body, "\n")
	lines = strings.Split(body, "\n")
	if terminated && len(lines) > 0 {
		lines = lines[:len(lines)-1]
	}
	return lines, terminated
}
