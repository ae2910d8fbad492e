package model

import (
	"strings"
	"time"
)

// Palette colors. An event's color doubles as the key of the calendar it
// belongs to for filtering purposes.
const (
	ColorBlue   = "#4285F4"
	ColorGreen  = "#0B8043"
	ColorPurple = "#8E24AA"
	ColorRed    = "#DB4437"
	ColorYellow = "#F4B400"

	DefaultColor = ColorBlue
)

// PaletteEntry is a selectable event color with a human label.
type PaletteEntry struct {
	Color string `yaml:"color" json:"color"`
	Label string `yaml:"label" json:"label"`
}

// Palette lists the colors offered by the editor, in display order.
var Palette = []PaletteEntry{
	{Color: ColorBlue, Label: "Blue"},
	{Color: ColorGreen, Label: "Green"},
	{Color: ColorPurple, Label: "Purple"},
	{Color: ColorRed, Label: "Red"},
	{Color: ColorYellow, Label: "Yellow"},
}

// CalendarEntry is a named calendar shown in the sidebar. Toggling it adds or
// removes its color from the active filter set.
type CalendarEntry struct {
	Name  string `yaml:"name" json:"name"`
	Color string `yaml:"color" json:"color"`
}

// DefaultCalendars mirrors the sidebar of the web client. Yellow has no
// calendar entry and is therefore not part of the default filter.
var DefaultCalendars = []CalendarEntry{
	{Name: "My Calendar", Color: ColorBlue},
	{Name: "Work", Color: ColorGreen},
	{Name: "Personal", Color: ColorPurple},
	{Name: "Family", Color: ColorRed},
}

// DefaultActiveColors returns the colors enabled when a session starts.
func DefaultActiveColors() []string {
	out := make([]string, 0, len(DefaultCalendars))
	for _, c := range DefaultCalendars {
		out = append(out, c.Color)
	}
	return out
}

// RecurrencePattern is stored with an event but never expanded.
type RecurrencePattern string

const (
	RecurrenceNone    RecurrencePattern = ""
	RecurrenceDaily   RecurrencePattern = "daily"
	RecurrenceWeekly  RecurrencePattern = "weekly"
	RecurrenceMonthly RecurrencePattern = "monthly"
	RecurrenceYearly  RecurrencePattern = "yearly"
)

// Valid reports whether p is one of the stored enum values.
func (p RecurrencePattern) Valid() bool {
	switch p {
	case RecurrenceNone, RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly, RecurrenceYearly:
		return true
	}
	return false
}

// Event is the canonical in-memory calendar event. ID holds the single
// reconciled identifier; the two wire id fields never reach this type.
type Event struct {
	ID          string
	Title       string
	Description string

	Start time.Time
	End   time.Time

	Color  string
	AllDay bool

	Recurring         bool
	RecurrencePattern RecurrencePattern

	CreatedAt time.Time
}

// Duration returns End-Start. Inverted ranges yield a negative duration.
func (e Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// ApplyDefaults fills optional fields that were left empty.
func (e *Event) ApplyDefaults() {
	if strings.TrimSpace(e.Color) == "" {
		e.Color = DefaultColor
	}
}

// Validate checks the field constraints of a typed event. Colors outside the
// palette are accepted as-is, and end-before-start is not rejected.
func (e Event) Validate() error {
	var errs ValidationErrors
	if strings.TrimSpace(e.Title) == "" {
		errs = append(errs, &ValidationError{Field: "title", Reason: "is required"})
	}
	if e.Start.IsZero() {
		errs = append(errs, &ValidationError{Field: "start", Reason: "is required"})
	}
	if e.End.IsZero() {
		errs = append(errs, &ValidationError{Field: "end", Reason: "is required"})
	}
	if !e.RecurrencePattern.Valid() {
		errs = append(errs, &ValidationError{Field: "recurrencePattern", Reason: "must be one of daily, weekly, monthly, yearly"})
	}
	return errs.OrNil()
}

// Patch is a partial update. Nil fields are left untouched by Apply.
type Patch struct {
	Title             *string
	Description       *string
	Start             *time.Time
	End               *time.Time
	Color             *string
	AllDay            *bool
	Recurring         *bool
	RecurrencePattern *RecurrencePattern
}

// Empty reports whether the patch carries no fields.
func (p Patch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Start == nil && p.End == nil &&
		p.Color == nil && p.AllDay == nil && p.Recurring == nil && p.RecurrencePattern == nil
}

// Apply merges the present fields of p over e. ID and CreatedAt never change.
func (p Patch) Apply(e Event) Event {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Start != nil {
		e.Start = *p.Start
	}
	if p.End != nil {
		e.End = *p.End
	}
	if p.Color != nil {
		e.Color = *p.Color
	}
	if p.AllDay != nil {
		e.AllDay = *p.AllDay
	}
	if p.Recurring != nil {
		e.Recurring = *p.Recurring
	}
	if p.RecurrencePattern != nil {
		e.RecurrencePattern = *p.RecurrencePattern
	}
	return e
}

// PatchFrom builds a patch that sets every editable field of e.
func PatchFrom(e Event) Patch {
	return Patch{
		Title:             &e.Title,
		Description:       &e.Description,
		Start:             &e.Start,
		End:               &e.End,
		Color:             &e.Color,
		AllDay:            &e.AllDay,
		Recurring:         &e.Recurring,
		RecurrencePattern: &e.RecurrencePattern,
	}
}
