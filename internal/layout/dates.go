package layout

import (
	"fmt"
	"strings"
	"time"
)

// noonOf anchors a calendar day at 12:00 so that day arithmetic never lands
// in a DST gap. d may overflow the month; time.Date normalizes it.
func noonOf(y int, m time.Month, d int, loc *time.Location) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, loc)
}

// weekOffset is how many days t's date lies after the start of its week.
func weekOffset(t time.Time, weekStart time.Weekday) int {
	y, m, d := t.Date()
	wd := noonOf(y, m, d, t.Location()).Weekday()
	return (int(wd) - int(weekStart) + 7) % 7
}

// daysIn is the number of days in month m of year y.
func daysIn(y int, m time.Month, loc *time.Location) int {
	return noonOf(y, m+1, 0, loc).Day()
}

// SameDay compares calendar dates, reading b in a's location.
func SameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// SameMonth compares year and month, reading b in a's location.
func SameMonth(a, b time.Time) bool {
	b = b.In(a.Location())
	return a.Year() == b.Year() && a.Month() == b.Month()
}

// ParseWeekStart maps "monday" to time.Monday; anything else is Sunday.
func ParseWeekStart(s string) time.Weekday {
	if strings.EqualFold(strings.TrimSpace(s), "monday") {
		return time.Monday
	}
	return time.Sunday
}

// HourLabel renders an hour row label: "12 AM", "1 AM" ... "12 PM", "11 PM".
func HourLabel(hour int) string {
	switch {
	case hour == 0:
		return "12 AM"
	case hour < 12:
		return fmt.Sprintf("%d AM", hour)
	case hour == 12:
		return "12 PM"
	default:
		return fmt.Sprintf("%d PM", hour-12)
	}
}

// Shift moves date by delta units of the view: months, weeks or days.
func Shift(mode Mode, date time.Time, delta int) time.Time {
	switch mode {
	case ModeMonth:
		// Clamp to the 1st so Jan 31 + 1 month lands in February.
		y, m, day := date.Date()
		first := noonOf(y, m+time.Month(delta), 1, date.Location())
		if last := daysIn(first.Year(), first.Month(), date.Location()); day > last {
			day = last
		}
		return time.Date(first.Year(), first.Month(), day, date.Hour(), date.Minute(), date.Second(), date.Nanosecond(), date.Location())
	case ModeWeek:
		return date.AddDate(0, 0, 7*delta)
	default:
		return date.AddDate(0, 0, delta)
	}
}

// Title is the header caption for a view.
func Title(mode Mode, date time.Time) string {
	switch mode {
	case ModeMonth:
		return date.Format("January 2006")
	case ModeWeek:
		return "Week of " + date.Format("Jan 2, 2006")
	default:
		return date.Format("Monday, January 2, 2006")
	}
}
