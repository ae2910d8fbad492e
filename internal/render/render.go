// Package render draws layout grids for the terminal.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"webcal/internal/layout"
	"webcal/internal/model"
)

const (
	cellWidth    = 14
	labelWidth   = 6
	maxCellItems = 3
)

var (
	primary = lipgloss.Color("#1a73e8")
	muted   = lipgloss.Color("#9aa0a6")
	danger  = lipgloss.Color("#DB4437")
)

// CalendarToggle is one sidebar entry with its filter state.
type CalendarToggle struct {
	model.CalendarEntry
	Active bool
}

// Grid renders g as text. Month grids show up to three titles per day; week
// and day grids list each event in the row of its start hour.
func Grid(g layout.Grid) string {
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(primary).Padding(0, 1).Render(g.Title))
	b.WriteString("\n\n")
	switch {
	case g.Month != nil:
		b.WriteString(month(*g.Month))
	case g.Time != nil:
		b.WriteString(timeGrid(*g.Time))
	}
	return b.String()
}

func month(m layout.MonthGrid) string {
	var b strings.Builder
	header := lipgloss.NewStyle().Foreground(muted).Width(cellWidth).Align(lipgloss.Center)
	if len(m.Weeks) > 0 {
		for _, d := range m.Weeks[0] {
			b.WriteString(header.Render(strings.ToUpper(d.Date.Format("Mon"))))
		}
		b.WriteString("\n")
	}

	cell := lipgloss.NewStyle().Width(cellWidth).Height(maxCellItems + 1).Padding(0, 1, 0, 0)
	for _, week := range m.Weeks {
		cols := make([]string, 0, len(week))
		for _, d := range week {
			cols = append(cols, cell.Render(dayCell(d)))
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cols...))
		b.WriteString("\n")
	}
	return b.String()
}

func dayCell(d layout.DayCell) string {
	num := fmt.Sprintf("%2d", d.Date.Day())
	switch {
	case d.Today:
		num = lipgloss.NewStyle().Bold(true).Reverse(true).Foreground(primary).Render(num)
	case !d.InMonth:
		num = lipgloss.NewStyle().Foreground(muted).Render(num)
	}

	lines := []string{num}
	for i, e := range d.Events {
		if i == maxCellItems-1 && len(d.Events) > maxCellItems {
			lines = append(lines, lipgloss.NewStyle().Foreground(muted).Render(fmt.Sprintf("+%d more", len(d.Events)-i)))
			break
		}
		lines = append(lines, chip(e, cellWidth-1))
	}
	return strings.Join(lines, "\n")
}

func timeGrid(t layout.TimeGrid) string {
	var b strings.Builder
	if len(t.Columns) == 0 {
		return ""
	}
	width := cellWidth
	if len(t.Columns) == 1 {
		width = cellWidth * 4
	}
	col := lipgloss.NewStyle().Width(width).Padding(0, 1, 0, 0)
	label := lipgloss.NewStyle().Foreground(muted).Width(labelWidth).Align(lipgloss.Right).PaddingRight(1)

	heads := []string{label.Render("")}
	for _, c := range t.Columns {
		h := c.Date.Format("Mon 2")
		if c.Today {
			h = lipgloss.NewStyle().Bold(true).Foreground(primary).Render(h)
		}
		heads = append(heads, col.Render(h))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, heads...))
	b.WriteString("\n")

	for h := 0; h < layout.HoursPerDay; h++ {
		row := []string{label.Render(t.Columns[0].Hours[h].Label)}
		for _, c := range t.Columns {
			var items []string
			for _, p := range c.Hours[h].Placements {
				items = append(items, placement(p, width-1))
			}
			row = append(row, col.Render(strings.Join(items, "\n")))
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, row...))
		b.WriteString("\n")
	}
	return b.String()
}

// placement shows start time, title and height in minutes.
func placement(p layout.Placement, width int) string {
	text := fmt.Sprintf("%s %s (%.0fm)", p.Event.Start.Format("15:04"), p.Event.Title, p.Height)
	return colored(p.Event.Color).Render(truncate(text, width))
}

func chip(e model.Event, width int) string {
	return colored(e.Color).Render(truncate(e.Title, width))
}

func colored(color string) lipgloss.Style {
	if color == "" {
		color = model.DefaultColor
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color))
}

// Events renders a flat list, one event per line, in the given order.
func Events(events []model.Event) string {
	if len(events) == 0 {
		return lipgloss.NewStyle().Foreground(muted).Italic(true).Render("  No events") + "\n"
	}
	var b strings.Builder
	when := lipgloss.NewStyle().Foreground(muted).Width(34)
	for _, e := range events {
		span := e.Start.Format("Mon Jan 2 15:04") + " - " + e.End.Format("15:04")
		if e.AllDay {
			span = e.Start.Format("Mon Jan 2") + " (all day)"
		}
		line := fmt.Sprintf("%s %s %s", colored(e.Color).Render("■"), when.Render(span), e.Title)
		if e.Recurring && e.RecurrencePattern != model.RecurrenceNone {
			line += lipgloss.NewStyle().Foreground(muted).Render(" ↻ " + string(e.RecurrencePattern))
		}
		b.WriteString(line)
		b.WriteString(lipgloss.NewStyle().Foreground(muted).Render("  " + e.ID))
		b.WriteString("\n")
	}
	return b.String()
}

// Calendars renders the sidebar list with filter markers.
func Calendars(cals []CalendarToggle) string {
	var b strings.Builder
	for _, c := range cals {
		mark := "[ ]"
		if c.Active {
			mark = "[x]"
		}
		b.WriteString(fmt.Sprintf("%s %s %s\n", mark, colored(c.Color).Render("■"), c.Name))
	}
	return b.String()
}

// Error renders the dismissible error banner.
func Error(msg string) string {
	if msg == "" {
		return ""
	}
	return lipgloss.NewStyle().Foreground(danger).Bold(true).Render("Error: "+msg) + "\n"
}

func truncate(s string, width int) string {
	r := []rune(s)
	if width <= 0 || len(r) <= width {
		return s
	}
	if width == 1 {
		return string(r[:1])
	}
	return string(r[:width-1]) + "…"
}
