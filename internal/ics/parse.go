package ics

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	appLog "webcal/internal/log"
	"webcal/internal/model"
)

// colorProperty is the RFC 7986 COLOR property. Export writes the event
// color there so an export/import cycle keeps the calendar filter key.
const colorProperty = ical.ComponentProperty("COLOR")

// Parse converts each VEVENT of an ICS payload into a draft event (no id).
//
//   - All-day events are detected from a date-only DTSTART.
//   - RRULE frequency becomes the stored recurrence pattern; instances are
//     never expanded.
//   - Events without a summary or start are skipped and logged.
func Parse(body []byte) ([]model.Event, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err)
		return nil, err
	}

	events := make([]model.Event, 0)
	for _, ve := range cal.Events() {
		e, perr := parseVEvent(ve)
		if perr != nil {
			appLog.Warn("ics vevent skipped", "reason", perr.Error())
			continue
		}
		events = append(events, e)
	}

	appLog.Info("ics parse completed", "event_count", len(events))
	return events, nil
}

func parseVEvent(ve *ical.VEvent) (model.Event, error) {
	var out model.Event

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Title = p.Value
	}
	if strings.TrimSpace(out.Title) == "" {
		return out, errors.New("missing SUMMARY")
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = p.Value
	}
	if p := ve.GetProperty(colorProperty); p != nil {
		out.Color = p.Value
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil || dtStart.Value == "" {
		return out, errors.New("missing DTSTART")
	}
	out.AllDay = isDateOnly(dtStart)

	if out.AllDay {
		start, err := parseICSTime(dtStart.Value)
		if err != nil {
			return out, err
		}
		out.Start = start
		out.End = start.AddDate(0, 0, 1)
		if dtEnd := ve.GetProperty(ical.ComponentPropertyDtEnd); dtEnd != nil {
			if end, err := parseICSTime(dtEnd.Value); err == nil {
				out.End = end
			}
		}
	} else {
		start, err := ve.GetStartAt()
		if err != nil {
			return out, err
		}
		out.Start = start.Local()
		out.End = out.Start
		if end, err := ve.GetEndAt(); err == nil {
			out.End = end.Local()
		}
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil && p.Value != "" {
		if pattern, ok := patternFromRRule(p.Value); ok {
			out.Recurring = true
			out.RecurrencePattern = pattern
		}
	}

	out.ApplyDefaults()
	return out, nil
}

// isDateOnly reports VALUE=DATE or a value without a time part.
func isDateOnly(p *ical.IANAProperty) bool {
	if params := p.ICalParameters; params != nil {
		if vs, ok := params["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
			return true
		}
	}
	return !strings.Contains(p.Value, "T")
}

func patternFromRRule(s string) (model.RecurrencePattern, bool) {
	opt, err := rrule.StrToROption(s)
	if err != nil {
		appLog.Warn("ics rrule ignored", "rrule", s, "reason", err.Error())
		return model.RecurrenceNone, false
	}
	switch opt.Freq {
	case rrule.DAILY:
		return model.RecurrenceDaily, true
	case rrule.WEEKLY:
		return model.RecurrenceWeekly, true
	case rrule.MONTHLY:
		return model.RecurrenceMonthly, true
	case rrule.YEARLY:
		return model.RecurrenceYearly, true
	}
	return model.RecurrenceNone, false
}

// parseICSTime parses basic DATE / DATE-TIME / UTC forms.
func parseICSTime(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}

	// 20250101T090000Z
	if strings.HasSuffix(v, "Z") {
		t, err := time.Parse("20060102T150405Z", v)
		if err != nil {
			return time.Time{}, err
		}
		return t.Local(), nil
	}

	// 20250101T090000
	if strings.Contains(v, "T") {
		return time.ParseInLocation("20060102T150405", v, time.Local)
	}

	// 20250101
	return time.ParseInLocation("20060102", v, time.Local)
}
