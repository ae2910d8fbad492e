// Package shell owns the session state of the calendar: the reference date,
// view mode, event collection, loading/error state, color filter and the open
// editor. User actions go through the Shell, which calls the store and then
// updates its collection.
package shell

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"webcal/internal/editor"
	"webcal/internal/layout"
	appLog "webcal/internal/log"
	"webcal/internal/model"
)

// EventStore is the subset of the store client the shell needs.
type EventStore interface {
	ListEvents(ctx context.Context) ([]model.Event, error)
	CreateEvent(ctx context.Context, e model.Event) (model.Event, error)
	UpdateEvent(ctx context.Context, id string, p model.Patch) (model.Event, error)
	DeleteEvent(ctx context.Context, id string) error
}

// Options configures a new Shell.
type Options struct {
	WeekStart time.Weekday
	View      layout.Mode
	// Calendars are the sidebar entries. Nil means model.DefaultCalendars.
	Calendars []model.CalendarEntry
	// ActiveColors seeds the filter. Nil means every calendar's color.
	ActiveColors []string
	// Now is the clock. Nil means time.Now.
	Now func() time.Time
}

// CalendarState is one sidebar entry with its toggle state.
type CalendarState struct {
	model.CalendarEntry
	Active bool
}

// Shell is safe for concurrent use; store calls run without holding its lock.
type Shell struct {
	store EventStore
	now   func() time.Time

	mu        sync.Mutex
	weekStart time.Weekday
	date      time.Time
	view      layout.Mode
	events    []model.Event
	errMsg    string
	calendars []model.CalendarEntry
	active    map[string]bool
	editor    *editor.Editor

	// seq is bumped by every load and every successful mutation; a load only
	// applies its result if seq has not moved since it was issued.
	seq      uint64
	inflight int
}

// New creates a Shell. Call Reload to populate it.
func New(st EventStore, opts Options) *Shell {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	view := opts.View
	if view == "" {
		view = layout.ModeMonth
	}
	cals := opts.Calendars
	if cals == nil {
		cals = model.DefaultCalendars
	}
	activeColors := opts.ActiveColors
	if activeColors == nil {
		for _, c := range cals {
			activeColors = append(activeColors, c.Color)
		}
	}

	s := &Shell{
		store:     st,
		now:       now,
		weekStart: opts.WeekStart,
		date:      now(),
		view:      view,
		calendars: slices.Clone(cals),
		active:    make(map[string]bool, len(activeColors)),
	}
	for _, c := range activeColors {
		s.active[c] = true
	}
	return s
}

// Reload fetches every event. Starting a load clears the previous error; a
// failed read clears the collection and sets a new one. The result of a load that was superseded by a newer
// load or by a mutation is discarded.
func (s *Shell) Reload(ctx context.Context) error {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.inflight++
	s.errMsg = ""
	s.mu.Unlock()

	events, err := s.store.ListEvents(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	if seq != s.seq {
		appLog.Debug("stale load discarded", "seq", seq, "latest", s.seq)
		return nil
	}
	if err != nil {
		appLog.Error("load events failed", err)
		s.events = nil
		s.errMsg = "Failed to load events"
		return err
	}
	s.events = events
	appLog.Debug("events loaded", "count", len(events))
	return nil
}

// Loading reports whether a load is in flight.
func (s *Shell) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight > 0
}

// Error is the user-visible message of the last failure, or "".
func (s *Shell) Error() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

// DismissError clears the error banner.
func (s *Shell) DismissError() {
	s.mu.Lock()
	s.errMsg = ""
	s.mu.Unlock()
}

// Events returns a copy of the collection in insertion order.
func (s *Shell) Events() []model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.events)
}

// VisibleEvents returns the events whose color is active.
func (s *Shell) VisibleEvents() []model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return layout.FilterByColor(s.events, s.activeLocked())
}

// Grid lays out the visible events for the current date and view.
func (s *Shell) Grid() (layout.Grid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	events := layout.FilterByColor(s.events, s.activeLocked())
	return layout.Compute(s.date, s.view, events, s.layoutOptions())
}

// MiniMonth is the sidebar month for the current date.
func (s *Shell) MiniMonth() layout.MonthGrid {
	s.mu.Lock()
	defer s.mu.Unlock()
	return layout.MiniMonth(s.date, s.layoutOptions())
}

func (s *Shell) layoutOptions() layout.Options {
	return layout.Options{WeekStart: s.weekStart, Now: s.now()}
}

// Date is the reference date of the current view.
func (s *Shell) Date() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.date
}

// View is the current view mode.
func (s *Shell) View() layout.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// SetView switches between month, week and day.
func (s *Shell) SetView(m layout.Mode) {
	s.mu.Lock()
	s.view = m
	s.mu.Unlock()
}

// Title is the header caption for the current view.
func (s *Shell) Title() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return layout.Title(s.view, s.date)
}

// Prev moves back one month, week or day.
func (s *Shell) Prev() { s.shift(-1) }

// Next moves forward one month, week or day.
func (s *Shell) Next() { s.shift(1) }

func (s *Shell) shift(delta int) {
	s.mu.Lock()
	s.date = layout.Shift(s.view, s.date, delta)
	s.mu.Unlock()
}

// Today resets the reference date to now.
func (s *Shell) Today() {
	s.mu.Lock()
	s.date = s.now()
	s.mu.Unlock()
}

// SelectDate sets the reference date, as a mini month click does.
func (s *Shell) SelectDate(d time.Time) {
	s.mu.Lock()
	s.date = d
	s.mu.Unlock()
}

// Calendars lists the sidebar entries with their toggle state.
func (s *Shell) Calendars() []CalendarState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]CalendarState, 0, len(s.calendars))
	for _, c := range s.calendars {
		out = append(out, CalendarState{CalendarEntry: c, Active: s.active[c.Color]})
	}
	return out
}

// ToggleColor flips color in the active filter set.
func (s *Shell) ToggleColor(color string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active[color] {
		delete(s.active, color)
	} else {
		s.active[color] = true
	}
}

// ActiveColors returns the active filter set, calendar colors first.
func (s *Shell) ActiveColors() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeLocked()
}

func (s *Shell) activeLocked() []string {
	out := make([]string, 0, len(s.active))
	seen := make(map[string]bool, len(s.active))
	for _, c := range s.calendars {
		if s.active[c.Color] && !seen[c.Color] {
			out = append(out, c.Color)
			seen[c.Color] = true
		}
	}
	var extra []string
	for c := range s.active {
		if !seen[c] {
			extra = append(extra, c)
		}
	}
	slices.Sort(extra)
	return append(out, extra...)
}

// OpenCreate opens the editor on a new draft starting now.
func (s *Shell) OpenCreate() *editor.Editor {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editor = editor.OpenCreate(s.now())
	return s.editor
}

// OpenEdit opens the editor on the event with the given id.
func (s *Shell) OpenEdit(id string) (*editor.Editor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return nil, fmt.Errorf("shell: no event with id %q", id)
	}
	s.editor = editor.OpenEdit(s.events[i])
	return s.editor, nil
}

// Editor returns the open editor, or nil.
func (s *Shell) Editor() *editor.Editor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editor
}

// CloseEditor discards the draft without saving.
func (s *Shell) CloseEditor() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.editor != nil {
		s.editor.Close()
		s.editor = nil
	}
}

// Save persists the open draft. Validation failures return before any store
// call. The editor stays open until the store confirms the write; on success
// a new event is appended and an edited one replaced in place.
func (s *Shell) Save(ctx context.Context) error {
	ed, err := s.openEditor()
	if err != nil {
		return err
	}

	var saved model.Event
	if ed.IsNew() {
		rec, err := ed.Record()
		if err != nil {
			ed.Fail(err)
			return err
		}
		saved, err = s.store.CreateEvent(ctx, rec)
		if err != nil {
			return s.failEditor(ed, "Failed to save event", err)
		}
	} else {
		patch, err := ed.Patch()
		if err != nil {
			ed.Fail(err)
			return err
		}
		saved, err = s.store.UpdateEvent(ctx, ed.ID(), patch)
		if err != nil {
			return s.failEditor(ed, "Failed to save event", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(saved.ID); i >= 0 && !ed.IsNew() {
		s.events[i] = saved
	} else {
		s.events = append(s.events, saved)
	}
	s.seq++
	s.closeLocked(ed)
	appLog.Info("event saved", "id", saved.ID, "new", ed.IsNew())
	return nil
}

// Delete removes the event under edit. New drafts cannot be deleted.
func (s *Shell) Delete(ctx context.Context) error {
	ed, err := s.openEditor()
	if err != nil {
		return err
	}
	if !ed.CanDelete() {
		return editor.ErrNotDeletable
	}

	id := ed.ID()
	if err := s.store.DeleteEvent(ctx, id); err != nil {
		return s.failEditor(ed, "Failed to delete event", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		s.events = slices.Delete(s.events, i, i+1)
	}
	s.seq++
	s.closeLocked(ed)
	appLog.Info("event deleted", "id", id)
	return nil
}

// openEditor returns the open editor for a save or delete and clears the
// error left by an earlier attempt.
func (s *Shell) openEditor() (*editor.Editor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.editor == nil || !s.editor.Open() {
		return nil, editor.ErrClosed
	}
	s.errMsg = ""
	return s.editor, nil
}

// failEditor keeps the draft open with the failure attached and leaves the
// collection untouched.
func (s *Shell) failEditor(ed *editor.Editor, msg string, err error) error {
	appLog.Error(msg, err, "id", ed.ID())
	ed.Fail(err)
	s.mu.Lock()
	s.errMsg = msg
	s.mu.Unlock()
	return err
}

func (s *Shell) closeLocked(ed *editor.Editor) {
	ed.Close()
	if s.editor == ed {
		s.editor = nil
	}
}

func (s *Shell) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	return slices.IndexFunc(s.events, func(e model.Event) bool { return e.ID == id })
}
