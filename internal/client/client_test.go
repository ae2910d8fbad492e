package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webcal/internal/config"
	"webcal/internal/model"
	"webcal/internal/store"
	"webcal/internal/web"
)

// newBackend runs the real REST service over an in-memory store.
func newBackend(t *testing.T) (*Client, *store.Memory) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Store = "memory"
	st := store.NewMemory()
	srv := httptest.NewServer(web.NewServer(cfg, st).Handler())
	t.Cleanup(srv.Close)
	return New(srv.URL+"/api", srv.Client()), st
}

func TestClient_CRUD(t *testing.T) {
	c, _ := newBackend(t)
	ctx := context.Background()

	start := time.Date(2024, 6, 10, 9, 0, 0, 0, time.Local)
	created, err := c.CreateEvent(ctx, model.Event{
		Title: "Standup",
		Start: start,
		End:   start.Add(15 * time.Minute),
		Color: model.ColorGreen,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())
	assert.True(t, created.Start.Equal(start))
	assert.Equal(t, time.Local, created.Start.Location())

	list, err := c.ListEvents(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)

	title := "Daily standup"
	updated, err := c.UpdateEvent(ctx, created.ID, model.Patch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Daily standup", updated.Title)
	assert.Equal(t, model.ColorGreen, updated.Color)

	again, err := c.UpdateEvent(ctx, created.ID, model.Patch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, updated, again)

	got, err := c.GetEvent(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, got)

	require.NoError(t, c.DeleteEvent(ctx, created.ID))
	list, err = c.ListEvents(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestClient_ListEventsInRange(t *testing.T) {
	c, _ := newBackend(t)
	ctx := context.Background()

	for _, d := range []int{5, 20} {
		start := time.Date(2024, 6, d, 10, 0, 0, 0, time.Local)
		_, err := c.CreateEvent(ctx, model.Event{Title: "e", Start: start, End: start.Add(time.Hour)})
		require.NoError(t, err)
	}

	got, err := c.ListEventsInRange(ctx,
		time.Date(2024, 6, 1, 0, 0, 0, 0, time.Local),
		time.Date(2024, 6, 10, 0, 0, 0, 0, time.Local))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 5, got[0].Start.Day())
}

func TestClient_NotFound(t *testing.T) {
	c, _ := newBackend(t)
	ctx := context.Background()

	err := c.DeleteEvent(ctx, "missing")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	var se *StoreError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "delete", se.Op)
	assert.Equal(t, http.StatusNotFound, se.Status)
	assert.Contains(t, err.Error(), "Event not found")

	title := "x"
	_, err = c.UpdateEvent(ctx, "missing", model.Patch{Title: &title})
	assert.True(t, IsNotFound(err))
}

func TestClient_ServerErrorIsStoreError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"failed to list events"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, srv.Client()).ListEvents(context.Background())
	var se *StoreError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "list", se.Op)
	assert.Equal(t, http.StatusInternalServerError, se.Status)
	assert.False(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "failed to list events")
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	_, err := New(base, nil).ListEvents(context.Background())
	var se *StoreError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 0, se.Status)
}

func TestClient_NormalizesWireIDs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"_id":"a","id":"ignored","title":"native","start":"2024-06-10T09:00:00.000Z","end":"2024-06-10T10:00:00.000Z"},
			{"id":"b","title":"generic","start":"2024-06-10T09:00:00Z","end":"2024-06-10T10:00:00Z","color":"#DB4437"},
			{"title":"none","start":"2024-06-10T09:00:00Z","end":"2024-06-10T10:00:00Z"}
		]`))
	}))
	defer srv.Close()

	got, err := New(srv.URL, srv.Client()).ListEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
	assert.Equal(t, "", got[2].ID)
	assert.Equal(t, model.ColorBlue, got[0].Color)
	assert.Equal(t, model.ColorRed, got[1].Color)
	assert.Equal(t, "", got[0].Description)
	assert.True(t, time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC).Equal(got[0].Start))
}

func TestClient_BadTimestampFromServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"_id":"a","title":"t","start":"soon","end":"later"}]`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, srv.Client()).ListEvents(context.Background())
	var se *StoreError
	require.True(t, errors.As(err, &se))
	assert.True(t, model.IsValidation(err))
}

func TestClient_CreateSerializesISOWithoutID(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(raw, &body))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"_id":"new","title":"t","start":"2024-06-10T09:00:00.000Z","end":"2024-06-10T10:00:00.000Z"}`))
	}))
	defer srv.Close()

	start := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	created, err := New(srv.URL, srv.Client()).CreateEvent(context.Background(),
		model.Event{ID: "client-side", Title: "t", Start: start, End: start.Add(time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, "new", created.ID)

	assert.Equal(t, "2024-06-10T09:00:00.000Z", body["start"])
	assert.Equal(t, "2024-06-10T10:00:00.000Z", body["end"])
	assert.NotContains(t, body, "_id")
	assert.NotContains(t, body, "id")
}

func TestClient_ExportImport(t *testing.T) {
	c, _ := newBackend(t)
	ctx := context.Background()
	start := time.Date(2024, 6, 10, 9, 0, 0, 0, time.Local)
	_, err := c.CreateEvent(ctx, model.Event{Title: "Standup", Start: start, End: start.Add(time.Hour)})
	require.NoError(t, err)

	body, err := c.ExportICS(ctx)
	require.NoError(t, err)
	assert.Contains(t, string(body), "SUMMARY:Standup")

	other, _ := newBackend(t)
	imported, err := other.ImportICS(ctx, body)
	require.NoError(t, err)
	require.Len(t, imported, 1)
	assert.Equal(t, "Standup", imported[0].Title)
	assert.NotEmpty(t, imported[0].ID)
}
