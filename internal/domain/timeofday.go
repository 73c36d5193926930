package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type TimeOfDay struct {
	Hour   int
	Minute int
}

func NewTimeOfDay(hour, minute int) (TimeOfDay, error) {
	if hour < 0 || hour > 23 {
		return TimeOfDay{}, fmt.Errorf("hour %d out of range", hour)
	}
	if minute < 0 || minute > 59 {
		return TimeOfDay{}, fmt.Errorf("minute %d out of range", minute)
	}
	return TimeOfDay{Hour: hour, Minute: minute}, nil
}

func MustTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

// Minutes returns the number of minutes since midnight.
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

func TimeOfDayFromMinutes(m int) TimeOfDay {
	return TimeOfDay{Hour: m / 60, Minute: m % 60}
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

func (t TimeOfDay) Format12h() string {
	suffix := "AM"
	h := t.Hour
	if h >= 12 {
		suffix = "PM"
	}
	h %= 12
	if h == 0 {
		h = 12
	}
	return fmt.Sprintf("%d:%02d %s", h, t.Minute, suffix)
}

type DateOnly struct {
	Year  int
	Month time.Month
	Day   int
}

func DateOf(t time.Time) DateOnly {
	y, m, d := t.Date()
	return DateOnly{Year: y, Month: m, Day: d}
}

func MustDate(s string) DateOnly {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d DateOnly) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d DateOnly) Weekday() time.Weekday {
	return d.Time().Weekday()
}

func (d DateOnly) AddDays(n int) DateOnly {
	return DateOf(d.Time().AddDate(0, 0, n))
}

func (d DateOnly) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d DateOnly) IsZero() bool {
	return d == DateOnly{}
}

// At returns the wall-clock instant of t on d in UTC.
func (d DateOnly) At(t TimeOfDay) time.Time {
	return time.Date(d.Year, d.Month, d.Day, t.Hour, t.Minute, 0, 0, time.UTC)
}

type ParseError struct {
	Kind  string
	Input string
	msg   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Kind, e.Input, e.msg)
}

func timeParseError(input, msg string) error {
	return &ParseError{Kind: "time", Input: input, msg: msg}
}

// ParseTimeOfDay is the single parse routine for every time-of-day string that
// crosses the boundary. It accepts 24-hour "HH:mm" / "H:mm" and 12-hour
// "h:mm A" / "hh:mm A" (meridiem case-insensitive, space optional).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	raw := s
	s = strings.TrimSpace(s)
	if s == "" {
		return TimeOfDay{}, timeParseError(raw, "empty")
	}

	meridiem := ""
	upper := strings.ToUpper(s)
	switch {
	case strings.HasSuffix(upper, "AM"):
		meridiem = "AM"
	case strings.HasSuffix(upper, "PM"):
		meridiem = "PM"
	}
	if meridiem != "" {
		s = strings.TrimSpace(s[:len(s)-2])
	}

	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return TimeOfDay{}, timeParseError(raw, "expected hours and minutes separated by ':'")
	}
	if len(hh) < 1 || len(hh) > 2 || len(mm) != 2 {
		return TimeOfDay{}, timeParseError(raw, "expected H:mm or HH:mm")
	}
	if !digits(hh) || !digits(mm) {
		return TimeOfDay{}, timeParseError(raw, "expected digits")
	}
	hour, err := strconv.Atoi(hh)
	if err != nil {
		return TimeOfDay{}, timeParseError(raw, "hour is not a number")
	}
	minute, err := strconv.Atoi(mm)
	if err != nil {
		return TimeOfDay{}, timeParseError(raw, "minute is not a number")
	}
	if minute > 59 {
		return TimeOfDay{}, timeParseError(raw, "minute out of range")
	}

	if meridiem == "" {
		if hour > 23 {
			return TimeOfDay{}, timeParseError(raw, "hour out of range")
		}
		return TimeOfDay{Hour: hour, Minute: minute}, nil
	}

	if hour < 1 || hour > 12 {
		return TimeOfDay{}, timeParseError(raw, "12-hour clock hour out of range")
	}
	hour %= 12
	if meridiem == "PM" {
		hour += 12
	}
	return TimeOfDay{Hour: hour, Minute: minute}, nil
}

func digits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ParseDate accepts "YYYY-MM-DD" or an RFC 3339 timestamp, of which only the
// calendar date is kept.
func ParseDate(s string) (DateOnly, error) {
	raw := s
	s = strings.TrimSpace(s)
	if s == "" {
		return DateOnly{}, &ParseError{Kind: "date", Input: raw, msg: "empty"}
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return DateOf(t), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return DateOf(t), nil
	}
	return DateOnly{}, &ParseError{Kind: "date", Input: raw, msg: "expected YYYY-MM-DD"}
}
