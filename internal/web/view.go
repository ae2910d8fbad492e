package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"webcal/internal/config"
	"webcal/internal/layout"
	appLog "webcal/internal/log"
	"webcal/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

var viewTemplate = template.Must(template.New("calendar.html").Funcs(template.FuncMap{
	"px": func(v float64) string { return fmt.Sprintf("%.0fpx", v) },
	// rows converts a fraction of an hour row into pixels.
	"rows": func(frac, hourHeight float64) float64 { return frac * hourHeight },
	// minutes converts a duration in minutes into pixels.
	"minutes": func(m, hourHeight float64) float64 { return m * hourHeight / 60 },
	"day":     func(t time.Time) string { return t.Format("2") },
	"weekday": func(t time.Time) string { return t.Format("Mon 2") },
	"clock":   func(t time.Time) string { return t.Format("15:04") },
}).ParseFS(templateFS, "templates/calendar.html"))

// viewData feeds templates/calendar.html. Theme arrives explicitly from
// configuration rather than from process-wide state.
type viewData struct {
	Grid       layout.Grid
	Theme      config.ThemeConfig
	Weekdays   []string
	HourHeight float64
	Active     map[string]bool
	PrevHref   string
	NextHref   string
	TodayHref  string
	ViewHrefs  map[string]string
}

// handleCalendar renders the month/week/day grid as HTML.
//
// GET /calendar?view=month&date=2024-06-15&colors=%234285F4,%230B8043
//   - view:   month (default), week or day
//   - date:   reference day, default today
//   - colors: active calendar colors, default every configured calendar
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	mode := layout.ModeMonth
	if v := q.Get("view"); v != "" {
		m, err := layout.ParseMode(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		mode = m
	}

	now := s.now()
	ref := now
	if v := q.Get("date"); v != "" {
		t, err := time.ParseInLocation("2006-01-02", v, time.Local)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date: want YYYY-MM-DD")
			return
		}
		ref = t
	}

	active := s.activeColors(q.Get("colors"))

	events, err := s.store.List(r.Context())
	if err != nil {
		s.writeStoreError(w, "render", err)
		return
	}

	opts := layout.Options{WeekStart: layout.ParseWeekStart(s.cfg.WeekStart), Now: now}
	grid, err := layout.Compute(ref, mode, layout.FilterByColor(events, active), opts)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	data := viewData{
		Grid:       grid,
		Theme:      s.cfg.Theme,
		Weekdays:   weekdayNames(opts.WeekStart),
		HourHeight: float64(s.cfg.Theme.HourHeight),
		Active:     make(map[string]bool, len(active)),
		PrevHref:   calendarHref(mode, layout.Shift(mode, ref, -1), active),
		NextHref:   calendarHref(mode, layout.Shift(mode, ref, 1), active),
		TodayHref:  calendarHref(mode, now, active),
		ViewHrefs: map[string]string{
			"day":   calendarHref(layout.ModeDay, ref, active),
			"week":  calendarHref(layout.ModeWeek, ref, active),
			"month": calendarHref(layout.ModeMonth, ref, active),
		},
	}
	for _, c := range active {
		data.Active[c] = true
	}

	var buf bytes.Buffer
	if err := viewTemplate.Execute(&buf, data); err != nil {
		appLog.Error("calendar view render failed", err, "view", mode)
		writeError(w, http.StatusInternalServerError, "failed to render calendar")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) activeColors(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		out := make([]string, 0, len(s.cfg.Theme.Calendars))
		for _, c := range s.cfg.Theme.Calendars {
			out = append(out, c.Color)
		}
		if len(out) == 0 {
			return model.DefaultActiveColors()
		}
		return out
	}
	var out []string
	for _, c := range strings.Split(raw, ",") {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

func calendarHref(mode layout.Mode, date time.Time, colors []string) string {
	v := url.Values{}
	v.Set("view", string(mode))
	v.Set("date", date.Format("2006-01-02"))
	v.Set("colors", strings.Join(colors, ","))
	return "/calendar?" + v.Encode()
}

func weekdayNames(start time.Weekday) []string {
	out := make([]string, 0, 7)
	for i := 0; i < 7; i++ {
		out = append(out, strings.ToUpper(time.Weekday((int(start)+i)%7).String()[:3]))
	}
	return out
}
