package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webcal/internal/config"
	"webcal/internal/model"
	"webcal/internal/store"
	"webcal/internal/web"
)

func newBackend(t *testing.T) (string, *store.Memory) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Store = "memory"
	st := store.NewMemory()
	srv := httptest.NewServer(web.NewServer(cfg, st).Handler())
	t.Cleanup(srv.Close)
	return srv.URL + "/api", st
}

func run(t *testing.T, api string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--api", api}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCreateListUpdateDelete(t *testing.T) {
	api, st := newBackend(t)

	out, err := run(t, api, "create", "--title", "Standup",
		"--start", "2024-06-10T09:00", "--end", "2024-06-10T09:15", "--color", "green")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Created ")
	assert.Contains(t, out, "Standup")

	events, err := st.List(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	id := events[0].ID
	assert.Equal(t, model.ColorGreen, events[0].Color)
	assert.True(t, time.Date(2024, 6, 10, 9, 15, 0, 0, time.Local).Equal(events[0].End))

	out, err = run(t, api, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Standup")
	assert.Contains(t, out, id)

	out, err = run(t, api, "update", id, "--title", "Daily standup")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Updated "+id)

	got, err := st.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Daily standup", got.Title)
	assert.Equal(t, model.ColorGreen, got.Color)

	out, err = run(t, api, "delete", id)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Deleted "+id)
	events, err = st.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestCreate_EmptyTitleRejected(t *testing.T) {
	api, st := newBackend(t)

	_, err := run(t, api, "create", "--start", "2024-06-10T09:00")
	require.Error(t, err)
	assert.True(t, model.IsValidation(err))

	events, err := st.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestUpdate_UnknownID(t *testing.T) {
	api, _ := newBackend(t)
	_, err := run(t, api, "update", "nope", "--title", "x")
	assert.Error(t, err)
}

func TestRangeJSON(t *testing.T) {
	api, st := newBackend(t)
	for _, d := range []int{3, 25} {
		start := time.Date(2024, 6, d, 9, 0, 0, 0, time.Local)
		_, err := st.Create(context.Background(), model.Event{Title: "e", Start: start, End: start.Add(time.Hour)})
		require.NoError(t, err)
	}

	out, err := run(t, api, "range", "--start", "2024-06-01", "--end", "2024-06-10", "--json")
	require.NoError(t, err, out)
	assert.Contains(t, out, `"_id"`)
	assert.Equal(t, 1, bytes.Count([]byte(out), []byte(`"title"`)))
}

func TestView(t *testing.T) {
	api, st := newBackend(t)
	start := time.Date(2024, 6, 10, 9, 0, 0, 0, time.Local)
	_, err := st.Create(context.Background(), model.Event{Title: "Standup", Start: start, End: start.Add(15 * time.Minute), Color: model.ColorGreen})
	require.NoError(t, err)

	out, err := run(t, api, "view", "week", "--date", "2024-06-10")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Week of Jun 10, 2024")
	assert.Contains(t, out, "09:00")
	assert.Contains(t, out, "My Calendar")

	out, err = run(t, api, "--colors", "red", "view", "month", "--date", "2024-06-10")
	require.NoError(t, err, out)
	assert.Contains(t, out, "June 2024")
	assert.NotContains(t, out, "Standup")

	_, err = run(t, api, "view", "year")
	assert.Error(t, err)
}

func TestView_LoadFailureShowsBanner(t *testing.T) {
	api, _ := newBackend(t)
	out, err := run(t, api+"/missing", "view", "--date", "2024-06-10")
	require.Error(t, err)
	assert.Contains(t, out, "Error: Failed to load events")
	assert.Contains(t, out, "June 2024")
}

func TestExportImport(t *testing.T) {
	api, st := newBackend(t)
	start := time.Date(2024, 6, 10, 9, 0, 0, 0, time.Local)
	_, err := st.Create(context.Background(), model.Event{Title: "Standup", Start: start, End: start.Add(time.Hour)})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "cal.ics")
	out, err := run(t, api, "export", "--out", path)
	require.NoError(t, err, out)
	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(body), "SUMMARY:Standup")

	otherAPI, other := newBackend(t)
	out, err = run(t, otherAPI, "import", path)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Imported 1 events")
	events, err := other.List(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Standup", events[0].Title)
}

func TestResolveColors(t *testing.T) {
	got, err := resolveColors([]string{"blue,Green", "#db4437"})
	require.NoError(t, err)
	assert.Equal(t, []string{model.ColorBlue, model.ColorGreen, model.ColorRed}, got)

	got, err = resolveColors(nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = resolveColors([]string{"orange"})
	assert.Error(t, err)
}

func TestServerRoot(t *testing.T) {
	a := &app{cfg: settings{API: "http://localhost:5000/api/"}}
	assert.Equal(t, "http://localhost:5000", a.serverRoot())
}
