// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ux provides terminal output styling for the favaparse CLI.
//
// Styled output is the default. Plain mode strips the styling and emits
// prefix-tagged lines for scripts; it is selected automatically when
// stdout is not a terminal, or explicitly via SetPlain.
package ux

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// favaparse color palette - ledger greens on parchment
var (
	ColorGreenBright  = lipgloss.Color("#4AE3A5") // highlights, success
	ColorGreenPrimary = lipgloss.Color("#2FBF8B") // main brand color
	ColorGreenDeep    = lipgloss.Color("#1E8E68") // borders, accents
	ColorInk          = lipgloss.Color("#5A6A74") // muted text
	ColorParchment    = lipgloss.Color("#E8DCC3") // titles

	// Semantic colors
	ColorSuccess = lipgloss.Color("#4AE3A5")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
	ColorMuted   = lipgloss.Color("#5A6A74")
)

// Styles provides pre-configured lipgloss styles
var Styles = struct {
	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	Bold      lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Highlight lipgloss.Style

	Box        lipgloss.Style
	WarningBox lipgloss.Style
}{
	Title:     lipgloss.NewStyle().Bold(true).Foreground(ColorGreenBright),
	Subtitle:  lipgloss.NewStyle().Foreground(ColorGreenPrimary),
	Bold:      lipgloss.NewStyle().Bold(true),
	Muted:     lipgloss.NewStyle().Foreground(ColorInk),
	Success:   lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning:   lipgloss.NewStyle().Foreground(ColorWarning),
	Error:     lipgloss.NewStyle().Foreground(ColorError),
	Highlight: lipgloss.NewStyle().Foreground(ColorGreenBright).Bold(true),

	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorGreenDeep).
		Padding(0, 1),
	WarningBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorWarning).
		Padding(0, 1),
}

var plain atomic.Bool

// Init selects plain mode automatically: styling stays on only when
// stdout is a terminal.
func Init() {
	fd := os.Stdout.Fd()
	SetPlain(!isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd))
}

// SetPlain forces plain mode on or off, overriding detection.
func SetPlain(v bool) {
	plain.Store(v)
}

// Plain reports whether plain mode is active.
func Plain() bool {
	return plain.Load()
}

// Icon provides themed status icons
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconPending Icon = "○"
	IconArrow   Icon = "→"
	IconBullet  Icon = "•"
)

// Render returns the icon with appropriate styling
func (i Icon) Render() string {
	if Plain() {
		return string(i)
	}
	switch i {
	case IconSuccess:
		return Styles.Success.Render(string(i))
	case IconWarning:
		return Styles.Warning.Render(string(i))
	case IconError:
		return Styles.Error.Render(string(i))
	case IconPending:
		return Styles.Muted.Render(string(i))
	default:
		return string(i)
	}
}

// Title prints a styled title
func Title(text string) {
	if Plain() {
		fmt.Println(text)
		return
	}
	fmt.Println(Styles.Title.Render(text))
}

// Success prints a success message with checkmark
func Success(text string) {
	if Plain() {
		fmt.Fprintf(os.Stdout, "OK: %s\n", text)
		return
	}
	fmt.Printf("%s %s\n", IconSuccess.Render(), Styles.Success.Render(text))
}

// Warning prints a warning message
func Warning(text string) {
	if Plain() {
		fmt.Fprintf(os.Stderr, "WARN: %s\n", text)
		return
	}
	fmt.Printf("%s %s\n", IconWarning.Render(), Styles.Warning.Render(text))
}

// Error prints an error message
func Error(text string) {
	if Plain() {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", text)
		return
	}
	fmt.Printf("%s %s\n", IconError.Render(), Styles.Error.Render(text))
}

// Info prints an informational message
func Info(text string) {
	if Plain() {
		fmt.Println(text)
		return
	}
	fmt.Printf("%s %s\n", Styles.Muted.Render("│"), text)
}

// Muted prints muted/secondary text
func Muted(text string) {
	if Plain() {
		return
	}
	fmt.Println(Styles.Muted.Render(text))
}

// Box prints text in a rounded box
func Box(title, content string) {
	if Plain() {
		fmt.Printf("%s: %s\n", title, content)
		return
	}
	boxStyle := Styles.Box.Width(60)
	titleLine := Styles.Title.Render(title)
	fmt.Println(boxStyle.Render(titleLine + "\n" + content))
}

// WarningBox prints text in a warning-styled box
func WarningBox(title, content string) {
	if Plain() {
		fmt.Fprintf(os.Stderr, "WARN %s: %s\n", title, content)
		return
	}
	boxStyle := Styles.WarningBox.Width(60)
	titleLine := Styles.Warning.Bold(true).Render(title)
	fmt.Println(boxStyle.Render(titleLine + "\n" + content))
}

// FileStatus prints a file with its parse status
func FileStatus(path string, status Icon, detail string) {
	if Plain() {
		fmt.Printf("%s\t%s\t%s\n", status, path, detail)
		return
	}
	if detail != "" {
		fmt.Printf("%s %s %s\n", status.Render(), path, Styles.Muted.Render("("+detail+")"))
	} else {
		fmt.Printf("%s %s\n", status.Render(), path)
	}
}

// Summary prints a summary line with counts
func Summary(parsed, cached, failed int) {
	if Plain() {
		fmt.Printf("SUMMARY: parsed=%d cached=%d failed=%d\n", parsed, cached, failed)
		return
	}
	fmt.Printf("\n%s %s  %s %s  %s %s\n",
		Styles.Success.Render(fmt.Sprintf("%d", parsed)), Styles.Muted.Render("parsed"),
		Styles.Bold.Render(fmt.Sprintf("%d", cached)), Styles.Muted.Render("cached"),
		Styles.Error.Render(fmt.Sprintf("%d", failed)), Styles.Muted.Render("failed"),
	)
}
