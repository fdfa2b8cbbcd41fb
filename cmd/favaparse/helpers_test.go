// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// Tests for the CLI helpers

package main

import (
	"context"
	"strings"
	"testing"

	"github.com/ChrisRoyse/Fava-sub001/services/editor/document"
	"github.com/ChrisRoyse/Fava-sub001/services/editor/engine/enginetest"
	"github.com/ChrisRoyse/Fava-sub001/services/editor/parser"
)

func TestLanguageForFile(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		override string
		want     string
		wantErr  bool
	}{
		{"go extension", "main.go", "", "go", false},
		{"json extension", "data.json", "", "json", false},
		{"upper case extension", "DATA.JSON", "", "json", false},
		{"override wins", "main.go", "json", "json", false},
		{"unknown extension", "notes.txt", "", "", true},
		{"no extension", "Makefile", "", "", true},
		{"unknown override", "main.go", "python", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := languageForFile(tt.path, tt.override)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("languageForFile(%q, %q) succeeded, want error", tt.path, tt.override)
				}
				if !strings.Contains(err.Error(), "go, json") {
					t.Errorf("error %q does not list the available languages", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("languageForFile(%q, %q) failed: %v", tt.path, tt.override, err)
			}
			if got != tt.want {
				t.Errorf("languageForFile(%q, %q) = %q, want %q", tt.path, tt.override, got, tt.want)
			}
		})
	}
}

func TestCountNodes(t *testing.T) {
	g := enginetest.StandardGrammar()
	p, err := parser.New(g, enginetest.New(g), "document")
	if err != nil {
		t.Fatalf("parser.New failed: %v", err)
	}

	tree, err := p.Parse(context.Background(), document.NewTextString("ab cd\n"), nil)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	// document -> line -> two words and two spaces.
	nodes, hasErr := countNodes(tree)
	if nodes != 6 {
		t.Errorf("countNodes = %d nodes, want 6", nodes)
	}
	if hasErr {
		t.Error("countNodes reported syntax errors on clean input")
	}
}
