package model

import (
	"errors"
	"strings"
	"time"
)

// ISOLayout matches the millisecond UTC form produced by browsers.
const ISOLayout = "2006-01-02T15:04:05.000Z07:00"

// localLayouts are wall-clock forms without a zone; they parse in time.Local.
var localLayouts = []string{
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimestamp accepts ISO-8601 timestamps with or without zone and
// date-only values.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("unrecognized timestamp " + `"` + s + `"`)
}

// FormatTimestamp renders t as an ISO-8601 UTC string.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(ISOLayout)
}

// WireEvent is the JSON shape exchanged over HTTP. Records coming from the
// document store carry `_id`; other producers may use `id`.
type WireEvent struct {
	StoreID           string `json:"_id,omitempty"`
	ID                string `json:"id,omitempty"`
	Title             string `json:"title"`
	Description       string `json:"description"`
	Start             string `json:"start"`
	End               string `json:"end"`
	Color             string `json:"color,omitempty"`
	AllDay            bool   `json:"allDay"`
	Recurring         bool   `json:"recurring"`
	RecurrencePattern string `json:"recurrencePattern"`
	CreatedAt         string `json:"createdAt,omitempty"`
}

// CanonicalID prefers the store-native id, then the generic one.
func (w WireEvent) CanonicalID() string {
	if w.StoreID != "" {
		return w.StoreID
	}
	return w.ID
}

// Normalize converts a wire record into an Event: one canonical id,
// parsed timestamps in local time, defaults for absent optional fields.
func Normalize(w WireEvent) (Event, error) {
	var errs ValidationErrors
	e := Event{
		ID:                w.CanonicalID(),
		Title:             w.Title,
		Description:       w.Description,
		Color:             w.Color,
		AllDay:            w.AllDay,
		Recurring:         w.Recurring,
		RecurrencePattern: RecurrencePattern(w.RecurrencePattern),
	}
	start, err := ParseTimestamp(w.Start)
	if err != nil {
		errs = append(errs, &ValidationError{Field: "start", Reason: err.Error()})
	}
	end, err := ParseTimestamp(w.End)
	if err != nil {
		errs = append(errs, &ValidationError{Field: "end", Reason: err.Error()})
	}
	if err := errs.OrNil(); err != nil {
		return Event{}, err
	}
	e.Start = start.Local()
	e.End = end.Local()
	if w.CreatedAt != "" {
		if t, err := ParseTimestamp(w.CreatedAt); err == nil {
			e.CreatedAt = t.Local()
		}
	}
	e.ApplyDefaults()
	return e, nil
}

// ToWire serializes e using the store-native id field.
func ToWire(e Event) WireEvent {
	w := WireEvent{
		StoreID:           e.ID,
		Title:             e.Title,
		Description:       e.Description,
		Start:             FormatTimestamp(e.Start),
		End:               FormatTimestamp(e.End),
		Color:             e.Color,
		AllDay:            e.AllDay,
		Recurring:         e.Recurring,
		RecurrencePattern: string(e.RecurrencePattern),
	}
	if !e.CreatedAt.IsZero() {
		w.CreatedAt = FormatTimestamp(e.CreatedAt)
	}
	return w
}

// ParseWire validates a raw record and converts it to an Event. Unlike
// Normalize it also enforces the required title.
func ParseWire(w WireEvent) (Event, error) {
	var errs ValidationErrors
	if strings.TrimSpace(w.Title) == "" {
		errs = append(errs, &ValidationError{Field: "title", Reason: "is required"})
	}
	e, err := Normalize(w)
	if err != nil {
		var nested ValidationErrors
		if errors.As(err, &nested) {
			errs = append(errs, nested...)
		}
	}
	if !RecurrencePattern(w.RecurrencePattern).Valid() {
		errs = append(errs, &ValidationError{Field: "recurrencePattern", Reason: "must be one of daily, weekly, monthly, yearly"})
	}
	if err := errs.OrNil(); err != nil {
		return Event{}, err
	}
	return e, nil
}

// WirePatch is the JSON body of a partial update.
type WirePatch struct {
	Title             *string `json:"title,omitempty"`
	Description       *string `json:"description,omitempty"`
	Start             *string `json:"start,omitempty"`
	End               *string `json:"end,omitempty"`
	Color             *string `json:"color,omitempty"`
	AllDay            *bool   `json:"allDay,omitempty"`
	Recurring         *bool   `json:"recurring,omitempty"`
	RecurrencePattern *string `json:"recurrencePattern,omitempty"`
}

// ToPatch parses the timestamps of a wire patch.
func (p WirePatch) ToPatch() (Patch, error) {
	var errs ValidationErrors
	out := Patch{
		Title:       p.Title,
		Description: p.Description,
		Color:       p.Color,
		AllDay:      p.AllDay,
		Recurring:   p.Recurring,
	}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		errs = append(errs, &ValidationError{Field: "title", Reason: "is required"})
	}
	if p.Start != nil {
		t, err := ParseTimestamp(*p.Start)
		if err != nil {
			errs = append(errs, &ValidationError{Field: "start", Reason: err.Error()})
		} else {
			out.Start = &t
		}
	}
	if p.End != nil {
		t, err := ParseTimestamp(*p.End)
		if err != nil {
			errs = append(errs, &ValidationError{Field: "end", Reason: err.Error()})
		} else {
			out.End = &t
		}
	}
	if p.RecurrencePattern != nil {
		rp := RecurrencePattern(*p.RecurrencePattern)
		if !rp.Valid() {
			errs = append(errs, &ValidationError{Field: "recurrencePattern", Reason: "must be one of daily, weekly, monthly, yearly"})
		}
		out.RecurrencePattern = &rp
	}
	if err := errs.OrNil(); err != nil {
		return Patch{}, err
	}
	return out, nil
}

// PatchToWire serializes the timestamps of p as ISO-8601 strings.
func PatchToWire(p Patch) WirePatch {
	out := WirePatch{
		Title:       p.Title,
		Description: p.Description,
		Color:       p.Color,
		AllDay:      p.AllDay,
		Recurring:   p.Recurring,
	}
	if p.Start != nil {
		s := FormatTimestamp(*p.Start)
		out.Start = &s
	}
	if p.End != nil {
		s := FormatTimestamp(*p.End)
		out.End = &s
	}
	if p.RecurrencePattern != nil {
		s := string(*p.RecurrencePattern)
		out.RecurrencePattern = &s
	}
	return out
}
