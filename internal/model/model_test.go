package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_RequiresTitleAndTimes(t *testing.T) {
	err := Event{Title: "   "}.Validate()
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.ElementsMatch(t, []string{"title", "start", "end"}, FieldErrors(err))
}

func TestValidate_AcceptsUnknownColorAndInvertedRange(t *testing.T) {
	start := time.Date(2024, 6, 15, 10, 0, 0, 0, time.Local)
	e := Event{Title: "Backwards", Start: start, End: start.Add(-time.Hour), Color: "#123456"}
	assert.NoError(t, e.Validate())
}

func TestValidate_RejectsUnknownRecurrencePattern(t *testing.T) {
	start := time.Date(2024, 6, 15, 10, 0, 0, 0, time.Local)
	e := Event{Title: "x", Start: start, End: start, RecurrencePattern: "hourly"}
	assert.Equal(t, []string{"recurrencePattern"}, FieldErrors(e.Validate()))
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want time.Time
	}{
		{name: "utc_millis", in: "2024-06-15T10:30:00.000Z", want: time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)},
		{name: "offset", in: "2024-06-15T10:30:00+02:00", want: time.Date(2024, 6, 15, 8, 30, 0, 0, time.UTC)},
		{name: "edit_format", in: "2024-06-15T10:30", want: time.Date(2024, 6, 15, 10, 30, 0, 0, time.Local)},
		{name: "seconds_local", in: "2024-06-15T10:30:05", want: time.Date(2024, 6, 15, 10, 30, 5, 0, time.Local)},
		{name: "date_only", in: "2024-06-15", want: time.Date(2024, 6, 15, 0, 0, 0, 0, time.Local)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseTimestamp(tc.in)
			require.NoError(t, err)
			assert.True(t, tc.want.Equal(got), "got %v want %v", got, tc.want)
		})
	}

	_, err := ParseTimestamp("next tuesday")
	assert.Error(t, err)
	_, err = ParseTimestamp("")
	assert.Error(t, err)
}

func TestNormalize_IDReconciliation(t *testing.T) {
	base := WireEvent{Title: "t", Start: "2024-06-15T10:00:00.000Z", End: "2024-06-15T11:00:00.000Z"}

	both := base
	both.StoreID, both.ID = "store", "generic"
	e, err := Normalize(both)
	require.NoError(t, err)
	assert.Equal(t, "store", e.ID)

	generic := base
	generic.ID = "generic"
	e, err = Normalize(generic)
	require.NoError(t, err)
	assert.Equal(t, "generic", e.ID)

	e, err = Normalize(base)
	require.NoError(t, err)
	assert.Equal(t, "", e.ID)
}

func TestNormalize_Defaults(t *testing.T) {
	e, err := Normalize(WireEvent{StoreID: "1", Title: "t", Start: "2024-06-15T10:00:00.000Z", End: "2024-06-15T11:00:00.000Z"})
	require.NoError(t, err)
	assert.Equal(t, ColorBlue, e.Color)
	assert.Equal(t, "", e.Description)
	assert.False(t, e.AllDay)
	assert.Equal(t, time.Hour, e.Duration())
}

func TestNormalize_BadTimestamp(t *testing.T) {
	_, err := Normalize(WireEvent{Title: "t", Start: "garbage", End: "2024-06-15T11:00:00.000Z"})
	require.Error(t, err)
	assert.Equal(t, []string{"start"}, FieldErrors(err))
}

func TestNormalize_RoundTrip(t *testing.T) {
	e := Event{
		ID:                "665f1c2e9b1e8a0012345678",
		Title:             "Standup",
		Description:       "daily sync",
		Start:             time.Date(2024, 6, 10, 9, 0, 0, 0, time.Local),
		End:               time.Date(2024, 6, 10, 9, 15, 0, 0, time.Local),
		Color:             ColorGreen,
		Recurring:         true,
		RecurrencePattern: RecurrenceDaily,
		CreatedAt:         time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC),
	}

	got, err := Normalize(ToWire(e))
	require.NoError(t, err)

	again, err := Normalize(ToWire(got))
	require.NoError(t, err)

	assert.Equal(t, got, again)
	assert.Equal(t, e.ID, got.ID)
	assert.True(t, e.Start.Equal(got.Start))
	assert.True(t, e.End.Equal(got.End))
	assert.True(t, e.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, e.RecurrencePattern, got.RecurrencePattern)
}

func TestParseWire_CollectsAllErrors(t *testing.T) {
	_, err := ParseWire(WireEvent{Start: "nope", End: "", RecurrencePattern: "sometimes"})
	require.Error(t, err)
	assert.ElementsMatch(t, []string{"title", "start", "end", "recurrencePattern"}, FieldErrors(err))
}

func TestPatch_Apply(t *testing.T) {
	start := time.Date(2024, 6, 15, 10, 0, 0, 0, time.Local)
	orig := Event{ID: "1", Title: "Old", Start: start, End: start.Add(time.Hour), Color: ColorBlue}

	title := "New"
	color := ColorRed
	got := Patch{Title: &title, Color: &color}.Apply(orig)

	assert.Equal(t, "1", got.ID)
	assert.Equal(t, "New", got.Title)
	assert.Equal(t, ColorRed, got.Color)
	assert.Equal(t, orig.Start, got.Start)
	assert.True(t, Patch{}.Empty())
	assert.False(t, PatchFrom(orig).Empty())
}

func TestWirePatch_RoundTrip(t *testing.T) {
	start := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	p := Patch{Start: &start}

	back, err := PatchToWire(p).ToPatch()
	require.NoError(t, err)
	require.NotNil(t, back.Start)
	assert.True(t, start.Equal(*back.Start))
	assert.Nil(t, back.Title)

	empty := ""
	_, err = WirePatch{Title: &empty}.ToPatch()
	assert.Equal(t, []string{"title"}, FieldErrors(err))
}

func TestDefaultActiveColors(t *testing.T) {
	assert.Equal(t, []string{ColorBlue, ColorGreen, ColorPurple, ColorRed}, DefaultActiveColors())
}
