// Package clock produces the assistant's timestamps in its fixed display
// locale (IST) and recognizes simple due-date phrases in free text.
package clock

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// IST is the display locale for human-readable timestamps.
var IST = time.FixedZone("IST", 5*3600+30*60)

const humanFormat = "02 Jan 2006, 03:04 PM IST"

// Clock supplies the current time. The engine never reads time.Now directly
// so tests can pin the clock.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// System returns a Clock backed by the wall clock.
func System() Clock { return systemClock{} }

type fixedClock struct{ t time.Time }

func (f fixedClock) Now() time.Time { return f.t }

// Fixed returns a Clock pinned to t.
func Fixed(t time.Time) Clock { return fixedClock{t: t} }

// Human renders t as a display timestamp, e.g. "05 Jan 2026, 07:30 PM IST".
func Human(t time.Time) string {
	return t.In(IST).Format(humanFormat)
}

// DateReply renders the date fast-path reply.
func DateReply(t time.Time) string {
	return t.In(IST).Format("Today is January 2, 2006.")
}

// TimeReply renders the time fast-path reply.
func TimeReply(t time.Time) string {
	return t.In(IST).Format("The current time is 03:04 PM.")
}

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

var (
	dayMonthRe = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)?\s+(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\b`)
	monthDayRe = regexp.MustCompile(`\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\s+(\d{1,2})(?:st|nd|rd|th)?\b`)
)

// ParseDueDate recognizes a calendar date in text: "5 Jan", "January 5",
// "today" or "tomorrow". The year is always the current one relative to now.
// Returns false when no date pattern is present or the day is out of range.
func ParseDueDate(text string, now time.Time) (time.Time, bool) {
	t := strings.ToLower(text)
	local := now.In(IST)

	if strings.Contains(t, "tomorrow") {
		return dateOnly(local.AddDate(0, 0, 1)), true
	}
	if strings.Contains(t, "today") {
		return dateOnly(local), true
	}

	var day int
	var month time.Month
	if m := dayMonthRe.FindStringSubmatch(t); m != nil {
		day, _ = strconv.Atoi(m[1])
		month = months[m[2]]
	} else if m := monthDayRe.FindStringSubmatch(t); m != nil {
		month = months[m[1]]
		day, _ = strconv.Atoi(m[2])
	} else {
		return time.Time{}, false
	}

	if day < 1 || day > 31 {
		return time.Time{}, false
	}
	due := time.Date(local.Year(), month, day, 0, 0, 0, 0, time.UTC)
	// Reject impossible dates such as 31 Feb, which time.Date would roll over.
	if due.Day() != day || due.Month() != month {
		return time.Time{}, false
	}
	return due, true
}

// Today returns the current IST calendar date at midnight UTC, the form
// due dates are stored in.
func Today(now time.Time) time.Time {
	return dateOnly(now.In(IST))
}

// DueDate renders a due date for reminder confirmations and listings,
// e.g. "05 Jan".
func DueDate(t time.Time) string {
	return t.Format("02 Jan")
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
