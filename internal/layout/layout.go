// Package layout turns a reference date, a view mode and a set of events into
// a renderable grid. Everything here is a pure function of its inputs.
package layout

import (
	"fmt"
	"strings"
	"time"

	"webcal/internal/model"
)

// Mode is the grid granularity.
type Mode string

const (
	ModeMonth Mode = "month"
	ModeWeek  Mode = "week"
	ModeDay   Mode = "day"
)

// HoursPerDay is the number of hour rows in week and day views.
const HoursPerDay = 24

// ParseMode accepts "month", "week" or "day" in any case.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeMonth:
		return ModeMonth, nil
	case ModeWeek:
		return ModeWeek, nil
	case ModeDay:
		return ModeDay, nil
	}
	return "", fmt.Errorf("layout: unknown view mode %q", s)
}

// Options carries locale and clock inputs so Compute stays deterministic.
type Options struct {
	WeekStart time.Weekday
	// Now marks the "today" cell. Zero means no cell is marked.
	Now time.Time
}

// DayCell is one day of the month grid.
type DayCell struct {
	// Date is noon of the day.
	Date time.Time
	// InMonth is false for leading/trailing days, which render dimmed.
	InMonth bool
	Today   bool
	// Events starting on this day, in input order.
	Events []model.Event
}

// MonthGrid is a whole number of 7-day weeks covering the reference month.
type MonthGrid struct {
	First time.Time
	Last  time.Time
	Weeks [][]DayCell
}

// Days flattens the weeks.
func (g MonthGrid) Days() []DayCell {
	out := make([]DayCell, 0, len(g.Weeks)*7)
	for _, w := range g.Weeks {
		out = append(out, w...)
	}
	return out
}

// Placement positions an event inside the hour row of its start time.
type Placement struct {
	Event model.Event
	// Offset is the fraction of the row height above the event (minute/60).
	Offset float64
	// Height is the duration in minutes; one minute is one layout unit, so a
	// 60-minute row is 60 units tall. Inverted ranges clamp to 0.
	Height float64
}

// HourSlot is one hour row of a day column.
type HourSlot struct {
	Hour       int
	Label      string
	Placements []Placement
}

// DayColumn is one day of the week or day view.
type DayColumn struct {
	// Date is noon of the day.
	Date  time.Time
	Today bool
	Hours []HourSlot
}

// TimeGrid backs both week (7 columns) and day (1 column) views.
type TimeGrid struct {
	Columns []DayColumn
}

// Grid is the result of Compute. Exactly one of Month or Time is set.
type Grid struct {
	Mode      Mode
	Reference time.Time
	Title     string
	Month     *MonthGrid
	Time      *TimeGrid
}

// Compute lays out events for the given view. Event dates are compared in
// ref's location.
func Compute(ref time.Time, mode Mode, events []model.Event, opts Options) (Grid, error) {
	g := Grid{Mode: mode, Reference: ref, Title: Title(mode, ref)}
	switch mode {
	case ModeMonth:
		m := Month(ref, events, opts)
		g.Month = &m
	case ModeWeek:
		t := Week(ref, events, opts)
		g.Time = &t
	case ModeDay:
		t := Day(ref, events, opts)
		g.Time = &t
	default:
		return Grid{}, fmt.Errorf("layout: unknown view mode %q", mode)
	}
	return g, nil
}

// Month builds the month grid. An event appears only in the cell of its start
// day, even when it spans several days.
func Month(ref time.Time, events []model.Event, opts Options) MonthGrid {
	y, m, _ := ref.Date()
	loc := ref.Location()
	lead := weekOffset(noonOf(y, m, 1, loc), opts.WeekStart)
	total := lead + daysIn(y, m, loc)
	if r := total % 7; r != 0 {
		total += 7 - r
	}

	grid := MonthGrid{
		First: time.Date(y, m, 1-lead, 0, 0, 0, 0, loc),
		Last:  time.Date(y, m, total-lead, 0, 0, 0, 0, loc),
	}
	week := make([]DayCell, 0, 7)
	for i := 0; i < total; i++ {
		// Each cell derives from the month's 1st, not from its neighbour.
		day := noonOf(y, m, 1-lead+i, loc)
		week = append(week, DayCell{
			Date:    day,
			InMonth: SameMonth(ref, day),
			Today:   isToday(day, opts.Now),
			Events:  eventsOnDay(day, events),
		})
		if len(week) == 7 {
			grid.Weeks = append(grid.Weeks, week)
			week = make([]DayCell, 0, 7)
		}
	}
	return grid
}

// MiniMonth is the sidebar month: the same grid without events.
func MiniMonth(ref time.Time, opts Options) MonthGrid {
	return Month(ref, nil, opts)
}

// Week builds 7 day columns starting on the configured first weekday.
func Week(ref time.Time, events []model.Event, opts Options) TimeGrid {
	y, m, d := ref.Date()
	d -= weekOffset(ref, opts.WeekStart)
	cols := make([]DayColumn, 0, 7)
	for i := 0; i < 7; i++ {
		cols = append(cols, dayColumn(noonOf(y, m, d+i, ref.Location()), events, opts))
	}
	return TimeGrid{Columns: cols}
}

// Day builds a single column for ref's calendar day.
func Day(ref time.Time, events []model.Event, opts Options) TimeGrid {
	y, m, d := ref.Date()
	return TimeGrid{Columns: []DayColumn{dayColumn(noonOf(y, m, d, ref.Location()), events, opts)}}
}

// dayColumn places every event that starts on day into the row of its start
// hour. Events are not split across rows; their height overflows instead, and
// overlapping events are not separated.
func dayColumn(day time.Time, events []model.Event, opts Options) DayColumn {
	col := DayColumn{
		Date:  day,
		Today: isToday(day, opts.Now),
		Hours: make([]HourSlot, HoursPerDay),
	}
	for h := 0; h < HoursPerDay; h++ {
		col.Hours[h] = HourSlot{Hour: h, Label: HourLabel(h)}
	}
	for _, e := range events {
		start := e.Start.In(day.Location())
		if !SameDay(day, start) {
			continue
		}
		h := start.Hour()
		col.Hours[h].Placements = append(col.Hours[h].Placements, Place(e, day.Location()))
	}
	return col
}

// Place computes the vertical offset and height of e within its start hour.
func Place(e model.Event, loc *time.Location) Placement {
	start := e.Start.In(loc)
	height := e.Duration().Minutes()
	if height < 0 {
		height = 0
	}
	return Placement{
		Event:  e,
		Offset: float64(start.Minute()) / 60,
		Height: height,
	}
}

func eventsOnDay(day time.Time, events []model.Event) []model.Event {
	var out []model.Event
	for _, e := range events {
		if SameDay(day, e.Start) {
			out = append(out, e)
		}
	}
	return out
}

func isToday(day, now time.Time) bool {
	if now.IsZero() {
		return false
	}
	return SameDay(day, now)
}

// FilterByColor keeps events whose color is in active, preserving order.
func FilterByColor(events []model.Event, active []string) []model.Event {
	set := make(map[string]struct{}, len(active))
	for _, c := range active {
		set[c] = struct{}{}
	}
	out := make([]model.Event, 0, len(events))
	for _, e := range events {
		if _, ok := set[e.Color]; ok {
			out = append(out, e)
		}
	}
	return out
}
