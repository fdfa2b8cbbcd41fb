// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestSpinner_PlainPrintsOnce(t *testing.T) {
	withPlain(t, true)
	out := captureStdout(func() {
		s := NewSpinner("indexing")
		s.Start()
		s.Stop()
	})
	if out != "PROGRESS: indexing\n" {
		t.Errorf("got %q", out)
	}
}

func TestSpinner_StopIdempotent(t *testing.T) {
	withPlain(t, true)
	s := NewSpinner("work")
	s.Start()
	s.Stop()
	s.Stop() // must not panic or block
}

func TestSpinner_StopWithoutStart(t *testing.T) {
	withPlain(t, true)
	s := NewSpinner("never started")
	s.Stop()
}

func TestSpinner_AnimatesAndClears(t *testing.T) {
	withPlain(t, false)
	out := captureStdout(func() {
		s := NewSpinner("thinking")
		s.Start()
		time.Sleep(200 * time.Millisecond)
		s.Stop()
	})
	if !strings.Contains(out, "thinking") {
		t.Errorf("expected spinner frames with the message, got %q", out)
	}
	if !strings.Contains(out, "\r\033[K") {
		t.Errorf("expected the line to be cleared on Stop, got %q", out)
	}
}

func TestSpinner_UpdateMessage(t *testing.T) {
	withPlain(t, false)
	out := captureStdout(func() {
		s := NewSpinner("first")
		s.Start()
		time.Sleep(120 * time.Millisecond)
		s.UpdateMessage("second")
		time.Sleep(120 * time.Millisecond)
		s.Stop()
	})
	if !strings.Contains(out, "second") {
		t.Errorf("expected updated message in output, got %q", out)
	}
}

func TestWithSpinner_Success(t *testing.T) {
	withPlain(t, true)
	var ran bool
	out := captureStdout(func() {
		err := WithSpinner("loading grammar", func() error {
			ran = true
			return nil
		})
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
	if !ran {
		t.Error("function was not invoked")
	}
	if !strings.Contains(out, "OK: loading grammar") {
		t.Errorf("expected success line, got %q", out)
	}
}

func TestWithSpinner_Error(t *testing.T) {
	withPlain(t, true)
	wantErr := errors.New("no such grammar")
	errOut := captureStderr(func() {
		err := WithSpinner("loading grammar", func() error { return wantErr })
		if !errors.Is(err, wantErr) {
			t.Errorf("expected the function error back, got %v", err)
		}
	})
	if !strings.Contains(errOut, "no such grammar") {
		t.Errorf("expected error detail on stderr, got %q", errOut)
	}
}

func TestProgressSpinner_MessageDoesNotCompound(t *testing.T) {
	withPlain(t, true)
	p := NewProgressSpinner("parsing", 3)
	p.Increment()
	p.Increment()
	p.mu.Lock()
	msg := p.message
	p.mu.Unlock()
	if msg != "parsing [2/3]" {
		t.Errorf("got %q, want %q", msg, "parsing [2/3]")
	}
}

func TestProgressSpinner_SetProgress(t *testing.T) {
	withPlain(t, true)
	p := NewProgressSpinner("parsing", 10)
	p.SetProgress(7)
	p.mu.Lock()
	msg := p.message
	p.mu.Unlock()
	if msg != "parsing [7/10]" {
		t.Errorf("got %q", msg)
	}
}
