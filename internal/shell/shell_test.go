package shell

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webcal/internal/editor"
	"webcal/internal/layout"
	"webcal/internal/model"
)

// fakeStore records calls and can be told to fail or to block a list call.
type fakeStore struct {
	mu      sync.Mutex
	events  []model.Event
	nextID  int
	calls   []string
	failErr error
	// gates, when non-empty, are consumed in order by ListEvents; each call
	// waits for its gate before answering with the snapshot it took.
	gates []chan struct{}
}

func (f *fakeStore) record(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
	return f.failErr
}

func (f *fakeStore) ListEvents(ctx context.Context) ([]model.Event, error) {
	if err := f.record("list"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	snapshot := append([]model.Event(nil), f.events...)
	var gate chan struct{}
	if len(f.gates) > 0 {
		gate, f.gates = f.gates[0], f.gates[1:]
	}
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return snapshot, nil
}

func (f *fakeStore) CreateEvent(_ context.Context, e model.Event) (model.Event, error) {
	if err := f.record("create"); err != nil {
		return model.Event{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	e.ID = fmt.Sprintf("id-%d", f.nextID)
	f.events = append(f.events, e)
	return e, nil
}

func (f *fakeStore) UpdateEvent(_ context.Context, id string, p model.Patch) (model.Event, error) {
	if err := f.record("update"); err != nil {
		return model.Event{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, e := range f.events {
		if e.ID == id {
			f.events[i] = p.Apply(e)
			return f.events[i], nil
		}
	}
	return model.Event{}, errors.New("not found")
}

func (f *fakeStore) DeleteEvent(_ context.Context, id string) error {
	if err := f.record("delete"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, e := range f.events {
		if e.ID == id {
			f.events = append(f.events[:i], f.events[i+1:]...)
			return nil
		}
	}
	return errors.New("not found")
}

func (f *fakeStore) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == op {
			n++
		}
	}
	return n
}

var fixedNow = time.Date(2024, 6, 10, 8, 0, 0, 0, time.Local)

func newShell(st *fakeStore) *Shell {
	return New(st, Options{Now: func() time.Time { return fixedNow }})
}

func ev(id, title, color string, start time.Time, d time.Duration) model.Event {
	return model.Event{ID: id, Title: title, Color: color, Start: start, End: start.Add(d)}
}

func TestNew_Defaults(t *testing.T) {
	s := newShell(&fakeStore{})
	assert.Equal(t, layout.ModeMonth, s.View())
	assert.Equal(t, fixedNow, s.Date())
	assert.Equal(t, model.DefaultActiveColors(), s.ActiveColors())
	assert.Equal(t, "June 2024", s.Title())
	assert.Empty(t, s.Error())
	assert.False(t, s.Loading())
	assert.Nil(t, s.Editor())
}

func TestReload_KeepsInsertionOrder(t *testing.T) {
	st := &fakeStore{events: []model.Event{
		ev("b", "later", model.ColorBlue, fixedNow.Add(2*time.Hour), time.Hour),
		ev("a", "earlier", model.ColorBlue, fixedNow, time.Hour),
	}}
	s := newShell(st)
	require.NoError(t, s.Reload(context.Background()))

	got := s.Events()
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, "a", got[1].ID)
}

func TestReload_FailureClearsCollection(t *testing.T) {
	st := &fakeStore{events: []model.Event{ev("a", "x", model.ColorBlue, fixedNow, time.Hour)}}
	s := newShell(st)
	require.NoError(t, s.Reload(context.Background()))
	require.Len(t, s.Events(), 1)

	st.failErr = errors.New("boom")
	assert.Error(t, s.Reload(context.Background()))
	assert.Empty(t, s.Events())
	assert.Equal(t, "Failed to load events", s.Error())

	s.DismissError()
	assert.Empty(t, s.Error())
}

func TestReload_RetryClearsError(t *testing.T) {
	st := &fakeStore{events: []model.Event{ev("a", "x", model.ColorBlue, fixedNow, time.Hour)}, failErr: errors.New("boom")}
	s := newShell(st)
	require.Error(t, s.Reload(context.Background()))
	require.Equal(t, "Failed to load events", s.Error())

	st.failErr = nil
	require.NoError(t, s.Reload(context.Background()))
	assert.Len(t, s.Events(), 1)
	assert.Empty(t, s.Error())
}

func TestReload_DiscardsStaleResponse(t *testing.T) {
	gate := make(chan struct{})
	st := &fakeStore{
		events: []model.Event{ev("old", "old", model.ColorBlue, fixedNow, time.Hour)},
		gates:  []chan struct{}{gate},
	}
	s := newShell(st)

	done := make(chan error, 1)
	go func() { done <- s.Reload(context.Background()) }()

	require.Eventually(t, func() bool { return st.callCount("list") == 1 }, time.Second, time.Millisecond)
	assert.True(t, s.Loading())

	st.mu.Lock()
	st.events = []model.Event{ev("new", "new", model.ColorBlue, fixedNow, time.Hour)}
	st.mu.Unlock()
	require.NoError(t, s.Reload(context.Background()))

	close(gate)
	require.NoError(t, <-done)

	got := s.Events()
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].ID)
	assert.False(t, s.Loading())
}

func TestSave_CreateAppends(t *testing.T) {
	st := &fakeStore{}
	s := newShell(st)

	ed := s.OpenCreate()
	ed.SetTitle("Standup")
	ed.SetStart("2024-06-10T09:00")
	ed.SetEnd("2024-06-10T09:15")
	ed.SetColor(model.ColorGreen)

	require.NoError(t, s.Save(context.Background()))
	assert.Nil(t, s.Editor())
	assert.False(t, ed.Open())

	got := s.Events()
	require.Len(t, got, 1)
	assert.Equal(t, "id-1", got[0].ID)
	assert.Equal(t, "Standup", got[0].Title)

	g, err := s.Grid()
	require.NoError(t, err)
	var cell layout.DayCell
	for _, d := range g.Month.Days() {
		if d.Date.Day() == 10 && d.InMonth {
			cell = d
		}
	}
	require.Len(t, cell.Events, 1)
	assert.Equal(t, "Standup", cell.Events[0].Title)

	s.SetView(layout.ModeWeek)
	g, err = s.Grid()
	require.NoError(t, err)
	var found []layout.Placement
	for _, col := range g.Time.Columns {
		found = append(found, col.Hours[9].Placements...)
	}
	require.Len(t, found, 1)
	assert.Equal(t, 0.0, found[0].Offset)
	assert.Equal(t, 15.0, found[0].Height)
}

func TestSave_EmptyTitleNeverReachesStore(t *testing.T) {
	st := &fakeStore{}
	s := newShell(st)

	ed := s.OpenCreate()
	err := s.Save(context.Background())
	require.Error(t, err)
	assert.True(t, model.IsValidation(err))
	assert.Equal(t, 0, st.callCount("create"))
	assert.True(t, ed.Open())
	assert.Same(t, ed, s.Editor())
	assert.Equal(t, err, ed.Err())
}

func TestSave_FailureKeepsEditorAndState(t *testing.T) {
	st := &fakeStore{events: []model.Event{ev("a", "Standup", model.ColorBlue, fixedNow, time.Hour)}}
	s := newShell(st)
	require.NoError(t, s.Reload(context.Background()))

	ed, err := s.OpenEdit("a")
	require.NoError(t, err)
	ed.SetTitle("Renamed")

	st.failErr = errors.New("offline")
	require.Error(t, s.Save(context.Background()))
	assert.True(t, ed.Open())
	assert.Equal(t, "Renamed", ed.Draft().Title)
	assert.Equal(t, "Failed to save event", s.Error())
	assert.Equal(t, "Standup", s.Events()[0].Title)

	st.failErr = nil
	require.NoError(t, s.Save(context.Background()))
	assert.Empty(t, s.Error())
	assert.Equal(t, "Renamed", s.Events()[0].Title)
	assert.Len(t, s.Events(), 1)
	assert.Nil(t, s.Editor())
}

func TestSave_UpdateReplacesByID(t *testing.T) {
	st := &fakeStore{events: []model.Event{
		ev("a", "first", model.ColorBlue, fixedNow, time.Hour),
		ev("b", "second", model.ColorRed, fixedNow, time.Hour),
	}}
	s := newShell(st)
	require.NoError(t, s.Reload(context.Background()))

	ed, err := s.OpenEdit("a")
	require.NoError(t, err)
	ed.SetColor(model.ColorPurple)
	require.NoError(t, s.Save(context.Background()))

	got := s.Events()
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, model.ColorPurple, got[0].Color)
	assert.Equal(t, "b", got[1].ID)
}

func TestSave_ClosedEditor(t *testing.T) {
	s := newShell(&fakeStore{})
	assert.ErrorIs(t, s.Save(context.Background()), editor.ErrClosed)

	s.OpenCreate()
	s.CloseEditor()
	assert.ErrorIs(t, s.Save(context.Background()), editor.ErrClosed)
}

func TestDelete(t *testing.T) {
	st := &fakeStore{events: []model.Event{
		ev("a", "first", model.ColorBlue, fixedNow, time.Hour),
		ev("b", "second", model.ColorBlue, fixedNow, time.Hour),
	}}
	s := newShell(st)
	require.NoError(t, s.Reload(context.Background()))

	_, err := s.OpenEdit("a")
	require.NoError(t, err)
	require.NoError(t, s.Delete(context.Background()))

	got := s.Events()
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, 1, st.callCount("list"))

	g, err := s.Grid()
	require.NoError(t, err)
	for _, d := range g.Month.Days() {
		for _, e := range d.Events {
			assert.NotEqual(t, "a", e.ID)
		}
	}
}

func TestDelete_NewDraftRejected(t *testing.T) {
	st := &fakeStore{}
	s := newShell(st)
	s.OpenCreate()
	assert.ErrorIs(t, s.Delete(context.Background()), editor.ErrNotDeletable)
	assert.Equal(t, 0, st.callCount("delete"))
}

func TestDelete_FailureKeepsEvent(t *testing.T) {
	st := &fakeStore{events: []model.Event{ev("a", "first", model.ColorBlue, fixedNow, time.Hour)}}
	s := newShell(st)
	require.NoError(t, s.Reload(context.Background()))
	ed, err := s.OpenEdit("a")
	require.NoError(t, err)

	st.failErr = errors.New("offline")
	require.Error(t, s.Delete(context.Background()))
	assert.Len(t, s.Events(), 1)
	assert.True(t, ed.Open())
	assert.Equal(t, "Failed to delete event", s.Error())

	st.failErr = nil
	require.NoError(t, s.Delete(context.Background()))
	assert.Empty(t, s.Events())
	assert.Empty(t, s.Error())
}

func TestOpenEdit_Unknown(t *testing.T) {
	s := newShell(&fakeStore{})
	_, err := s.OpenEdit("nope")
	assert.Error(t, err)
}

func TestColorFilter(t *testing.T) {
	st := &fakeStore{events: []model.Event{
		ev("1", "blue", model.ColorBlue, fixedNow, time.Hour),
		ev("2", "red", model.ColorRed, fixedNow, time.Hour),
		ev("3", "green", model.ColorGreen, fixedNow, time.Hour),
	}}
	s := New(st, Options{
		Now:          func() time.Time { return fixedNow },
		ActiveColors: []string{model.ColorBlue, model.ColorGreen},
	})
	require.NoError(t, s.Reload(context.Background()))

	visible := s.VisibleEvents()
	require.Len(t, visible, 2)
	assert.Equal(t, "1", visible[0].ID)
	assert.Equal(t, "3", visible[1].ID)

	s.ToggleColor(model.ColorRed)
	assert.Len(t, s.VisibleEvents(), 3)
	s.ToggleColor(model.ColorBlue)
	assert.Len(t, s.VisibleEvents(), 2)

	cals := s.Calendars()
	require.Len(t, cals, 4)
	assert.Equal(t, "My Calendar", cals[0].Name)
	assert.False(t, cals[0].Active)
	assert.True(t, cals[1].Active)
	assert.Len(t, s.Events(), 3)
}

func TestNavigation(t *testing.T) {
	s := newShell(&fakeStore{})

	s.Next()
	assert.Equal(t, time.July, s.Date().Month())
	s.Prev()
	s.Prev()
	assert.Equal(t, time.May, s.Date().Month())

	s.SetView(layout.ModeWeek)
	s.Today()
	s.Next()
	assert.Equal(t, 17, s.Date().Day())
	assert.Equal(t, "Week of Jun 17, 2024", s.Title())

	s.SetView(layout.ModeDay)
	s.Prev()
	assert.Equal(t, 16, s.Date().Day())

	s.SelectDate(time.Date(2024, 2, 29, 0, 0, 0, 0, time.Local))
	assert.Equal(t, "Thursday, February 29, 2024", s.Title())

	mini := s.MiniMonth()
	assert.Equal(t, time.January, mini.First.Month())
	for _, d := range mini.Days() {
		assert.Empty(t, d.Events)
	}
}

func TestWatcher_Reloads(t *testing.T) {
	st := &fakeStore{events: []model.Event{ev("a", "x", model.ColorBlue, fixedNow, time.Hour)}}
	s := newShell(st)

	w, err := NewWatcher(s, EverySpec(time.Second), time.Second)
	require.NoError(t, err)
	reloaded := make(chan error, 4)
	w.OnReload = func(err error) { reloaded <- err }
	w.Start()
	defer w.Stop()

	select {
	case err := <-reloaded:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher never reloaded")
	}
	assert.Len(t, s.Events(), 1)
}

func TestWatcher_BadSpec(t *testing.T) {
	_, err := NewWatcher(newShell(&fakeStore{}), "every now and then", 0)
	assert.Error(t, err)
	assert.Equal(t, "@every 30s", EverySpec(30*time.Second))
}
