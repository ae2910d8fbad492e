package ics

import (
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"webcal/internal/model"
)

// ProductID identifies this application in exported calendars.
const ProductID = "-//webcal//calendar export//EN"

// UIDSuffix is appended to event ids to form globally unique VEVENT UIDs.
const UIDSuffix = "@webcal"

// Export serializes events as a VCALENDAR. Recurrence metadata is written as
// an RRULE so other clients can expand it; nothing is expanded here.
func Export(events []model.Event, now time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(ProductID)

	for _, e := range events {
		ve := cal.AddEvent(e.ID + UIDSuffix)
		ve.SetDtStampTime(now)
		if !e.CreatedAt.IsZero() {
			ve.SetCreatedTime(e.CreatedAt)
		}
		if e.AllDay {
			ve.SetAllDayStartAt(e.Start)
			ve.SetAllDayEndAt(e.End)
		} else {
			ve.SetStartAt(e.Start)
			ve.SetEndAt(e.End)
		}
		ve.SetSummary(e.Title)
		if e.Description != "" {
			ve.SetDescription(e.Description)
		}
		if e.Color != "" {
			ve.SetProperty(colorProperty, e.Color)
		}
		if rule, ok := rruleFor(e); ok {
			ve.AddRrule(rule)
		}
	}

	return cal.Serialize()
}

func rruleFor(e model.Event) (string, bool) {
	if !e.Recurring {
		return "", false
	}
	var freq rrule.Frequency
	switch e.RecurrencePattern {
	case model.RecurrenceDaily:
		freq = rrule.DAILY
	case model.RecurrenceWeekly:
		freq = rrule.WEEKLY
	case model.RecurrenceMonthly:
		freq = rrule.MONTHLY
	case model.RecurrenceYearly:
		freq = rrule.YEARLY
	default:
		return "", false
	}
	opt := rrule.ROption{Freq: freq}
	return opt.RRuleString(), true
}
