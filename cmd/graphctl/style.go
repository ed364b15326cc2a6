package main

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	colorAccent = lipgloss.Color("#20B9B4")
	colorMuted  = lipgloss.Color("#6C7A89")
	colorWarn   = lipgloss.Color("#F4D03F")
)

// labelWidth aligns the values of "Label: value" lines
const labelWidth = 14

// styles are bound to the writer they render for, so colors drop out when
// output is piped or captured.
type styles struct {
	accent lipgloss.Style
	label  lipgloss.Style
	muted  lipgloss.Style
	warn   lipgloss.Style
	header lipgloss.Style
	cell   lipgloss.Style
}

func stylesFor(w io.Writer) styles {
	re := lipgloss.NewRenderer(w)
	return styles{
		accent: re.NewStyle().Bold(true).Foreground(colorAccent),
		label:  re.NewStyle().Bold(true).Width(labelWidth),
		muted:  re.NewStyle().Foreground(colorMuted),
		warn:   re.NewStyle().Foreground(colorWarn),
		header: re.NewStyle().Bold(true).Foreground(colorAccent).Padding(0, 1),
		cell:   re.NewStyle().Padding(0, 1),
	}
}

func (s styles) table(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(s.muted).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return s.header
			}
			return s.cell
		}).
		Render()
}
