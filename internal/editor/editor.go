// Package editor holds the create-or-update form state of a single event.
//
// An Editor owns a Draft copy while it is open. Field edits replace draft
// fields without cross-field checks; conversion back to an event happens on
// save. Persisting is the caller's job: the editor stays open until the
// caller reports success with Close or failure with Fail.
package editor

import (
	"errors"
	"strings"
	"time"

	"webcal/internal/model"
)

// EditLayout is the minute-precision local format used by form fields.
const EditLayout = "2006-01-02T15:04"

// ErrNotDeletable is returned when Delete is requested on a new draft.
var ErrNotDeletable = errors.New("editor: only existing events can be deleted")

// ErrClosed is returned when acting on a closed editor.
var ErrClosed = errors.New("editor: closed")

// Draft is the transient, unsaved form state.
type Draft struct {
	Title       string
	Description string
	Start       string
	End         string
	AllDay      bool
	Color       string
}

// Editor is the state machine behind the event form.
type Editor struct {
	original model.Event
	isNew    bool
	draft    Draft
	open     bool
	err      error
}

// OpenCreate starts a new draft: empty text, start now, end one hour later,
// not all-day, default color.
func OpenCreate(now time.Time) *Editor {
	return &Editor{
		isNew: true,
		open:  true,
		draft: Draft{
			Start: now.Format(EditLayout),
			End:   now.Add(time.Hour).Format(EditLayout),
			Color: model.DefaultColor,
		},
	}
}

// OpenEdit starts a draft from an existing event. Timestamps are shown in
// local time.
func OpenEdit(e model.Event) *Editor {
	color := e.Color
	if color == "" {
		color = model.DefaultColor
	}
	return &Editor{
		original: e,
		isNew:    e.ID == "",
		open:     true,
		draft: Draft{
			Title:       e.Title,
			Description: e.Description,
			Start:       e.Start.Local().Format(EditLayout),
			End:         e.End.Local().Format(EditLayout),
			AllDay:      e.AllDay,
			Color:       color,
		},
	}
}

// Draft returns a copy of the current form state.
func (ed *Editor) Draft() Draft { return ed.draft }

// IsNew reports whether saving will create a record.
func (ed *Editor) IsNew() bool { return ed.isNew }

// CanDelete is true only for existing records.
func (ed *Editor) CanDelete() bool { return !ed.isNew }

// ID is the id of the edited record, empty for new drafts.
func (ed *Editor) ID() string { return ed.original.ID }

// Open reports whether the form is still showing.
func (ed *Editor) Open() bool { return ed.open }

// Err is the last save/delete failure shown in the form.
func (ed *Editor) Err() error { return ed.err }

func (ed *Editor) SetTitle(v string)       { ed.draft.Title = v }
func (ed *Editor) SetDescription(v string) { ed.draft.Description = v }
func (ed *Editor) SetStart(v string)       { ed.draft.Start = v }
func (ed *Editor) SetEnd(v string)         { ed.draft.End = v }
func (ed *Editor) SetAllDay(v bool)        { ed.draft.AllDay = v }
func (ed *Editor) SetColor(v string)       { ed.draft.Color = v }

// Record converts the draft into an event. It fails with model validation
// errors when the title is blank or a timestamp does not parse; callers must
// not reach the network in that case. Fields the form does not show
// (recurrence, creation time) are carried over from the original.
func (ed *Editor) Record() (model.Event, error) {
	var errs model.ValidationErrors
	if strings.TrimSpace(ed.draft.Title) == "" {
		errs = append(errs, &model.ValidationError{Field: "title", Reason: "is required"})
	}
	start, err := parseEdit(ed.draft.Start)
	if err != nil {
		errs = append(errs, &model.ValidationError{Field: "start", Reason: err.Error()})
	}
	end, err := parseEdit(ed.draft.End)
	if err != nil {
		errs = append(errs, &model.ValidationError{Field: "end", Reason: err.Error()})
	}
	if err := errs.OrNil(); err != nil {
		return model.Event{}, err
	}

	e := ed.original
	e.Title = ed.draft.Title
	e.Description = ed.draft.Description
	e.Start = start
	e.End = end
	e.AllDay = ed.draft.AllDay
	e.Color = ed.draft.Color
	e.ApplyDefaults()
	return e, nil
}

// Patch is the partial update sent when saving an existing record: only the
// fields the form edits.
func (ed *Editor) Patch() (model.Patch, error) {
	e, err := ed.Record()
	if err != nil {
		return model.Patch{}, err
	}
	return model.Patch{
		Title:       &e.Title,
		Description: &e.Description,
		Start:       &e.Start,
		End:         &e.End,
		AllDay:      &e.AllDay,
		Color:       &e.Color,
	}, nil
}

// Fail records a persistence failure and keeps the draft open.
func (ed *Editor) Fail(err error) {
	ed.err = err
}

// Close discards the draft unconditionally.
func (ed *Editor) Close() {
	ed.open = false
	ed.err = nil
	ed.draft = Draft{}
}

func parseEdit(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(EditLayout, s, time.Local); err == nil {
		return t, nil
	}
	return model.ParseTimestamp(s)
}
