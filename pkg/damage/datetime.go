package damage

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

const (
	wireDateLayout = "01/02/2006"
	wireTimeLayout = "15:04"
	midnight       = "00:00"
)

// ParseStamp parses a date-time string. Any layout dateparse recognises is
// accepted. The wire carries wall-clock time only, so a zone or offset in s is
// dropped and the written clock reading is returned in UTC.
func ParseStamp(s string) (time.Time, error) {
	t, err := dateparse.ParseAny(strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, err
	}
	return wallClock(t), nil
}

func wallClock(t time.Time) time.Time {
	year, month, day := t.Date()
	hour, minute, sec := t.Clock()
	return time.Date(year, month, day, hour, minute, sec, t.Nanosecond(), time.UTC)
}

// combineStamp joins the date and time components of a composite field.
func combineStamp(key, date, clock string) (string, error) {
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)
	if date == "" {
		return "", invalid(key, clock, "date component missing")
	}
	if clock == "" {
		clock = midnight
	}
	combined := date + " " + clock
	if _, err := ParseStamp(combined); err != nil {
		return "", invalid(key, combined, "not a recognisable date and time")
	}
	return combined, nil
}

// splitStamp renders a stored stamp as wire date and time components. A stamp
// that no longer parses falls back to its first word and midnight.
func splitStamp(s string) (date, clock string) {
	t, err := ParseStamp(s)
	if err != nil {
		date = s
		if words := strings.Fields(s); len(words) > 0 {
			date = words[0]
		}
		return date, midnight
	}
	return t.Format(wireDateLayout), t.Format(wireTimeLayout)
}
