// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// watchHistory is how many reparses the dashboard keeps on screen.
const watchHistory = 8

// watchModel is the bubbletea model for the watch dashboard.
type watchModel struct {
	path     string
	language string

	spinner spinner.Model
	updates []watchUpdate

	reparses int
	failures int

	width    int
	quitting bool
}

func newWatchModel(path, language string, first watchUpdate) watchModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = watchSpinnerStyle

	return watchModel{
		path:     path,
		language: language,
		spinner:  sp,
		updates:  []watchUpdate{first},
		reparses: 1,
	}
}

// Init implements tea.Model.
func (m watchModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "Q", "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case watchUpdate:
		m.reparses++
		if msg.Err != nil {
			m.failures++
		}
		m.updates = append(m.updates, msg)
		if len(m.updates) > watchHistory {
			m.updates = m.updates[len(m.updates)-watchHistory:]
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model.
func (m watchModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(watchTitleStyle.Render("favaparse watch"))
	b.WriteString("  ")
	b.WriteString(watchFileStyle.Render(fmt.Sprintf("%s (%s)", m.path, m.language)))
	b.WriteString("\n\n")

	b.WriteString(m.spinner.View())
	b.WriteString(watchStatusStyle.Render(" waiting for changes"))
	b.WriteString(watchStatsStyle.Render(
		fmt.Sprintf("   parses: %d  failures: %d", m.reparses, m.failures)))
	b.WriteString("\n\n")

	for i := len(m.updates) - 1; i >= 0; i-- {
		b.WriteString(renderUpdateRow(m.updates[i]))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(watchHelpStyle.Render("q: quit"))
	b.WriteString("\n")
	return b.String()
}

func renderUpdateRow(up watchUpdate) string {
	at := up.At
	if at.IsZero() {
		at = time.Now()
	}
	stamp := watchTimeStyle.Render(at.Format("15:04:05"))

	if up.Err != nil {
		return fmt.Sprintf("%s %s %s", stamp,
			watchErrorStyle.Render("✗"),
			watchErrorStyle.Render(up.Err.Error()))
	}

	line := fmt.Sprintf("#%d  %d bytes, %d nodes, %.1fms",
		up.Seq, up.Bytes, up.Nodes, float64(up.Duration.Microseconds())/1000.0)
	if up.HasError {
		return fmt.Sprintf("%s %s %s %s", stamp,
			watchWarnStyle.Render("⚠"),
			watchRowStyle.Render(line),
			watchWarnStyle.Render("syntax errors"))
	}
	return fmt.Sprintf("%s %s %s", stamp,
		watchOKStyle.Render("✓"),
		watchRowStyle.Render(line))
}

// runWatchTUI drives the dashboard and feeds it reparse updates until
// the user quits or ctx is cancelled.
func runWatchTUI(ctx context.Context, session *watchSession, first watchUpdate) error {
	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	prog := tea.NewProgram(newWatchModel(session.path, session.language, first),
		tea.WithContext(watchCtx))

	go func() {
		_ = session.run(watchCtx, func(up watchUpdate) {
			prog.Send(up)
		})
	}()

	_, err := prog.Run()
	if err != nil && watchCtx.Err() != nil {
		// Cancellation surfaces as an error from Run; a clean shutdown
		// is not a failure.
		return nil
	}
	return err
}

// =============================================================================
// Styles
// =============================================================================

var (
	watchTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42"))

	watchFileStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("250"))

	watchStatusStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245"))

	watchStatsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	watchSpinnerStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("42"))

	watchTimeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	watchRowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250"))

	watchOKStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	watchWarnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	watchErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	watchHelpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)
