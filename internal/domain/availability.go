package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type WorkingInterval struct {
	Start TimeOfDay
	End   TimeOfDay
}

func NewWorkingInterval(start, end TimeOfDay) (WorkingInterval, error) {
	if end.Minutes() <= start.Minutes() {
		return WorkingInterval{}, errors.New("working interval end must be after start")
	}
	return WorkingInterval{Start: start, End: end}, nil
}

// WeeklyAvailability maps a weekday to the provider's open hours. A missing or
// nil entry means the provider does not work that day.
type WeeklyAvailability map[time.Weekday]*WorkingInterval

func (a WeeklyAvailability) On(day time.Weekday) (WorkingInterval, bool) {
	if a == nil {
		return WorkingInterval{}, false
	}
	iv, ok := a[day]
	if !ok || iv == nil {
		return WorkingInterval{}, false
	}
	return *iv, true
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"sun":       time.Sunday,
	"monday":    time.Monday,
	"mon":       time.Monday,
	"tuesday":   time.Tuesday,
	"tue":       time.Tuesday,
	"wednesday": time.Wednesday,
	"wed":       time.Wednesday,
	"thursday":  time.Thursday,
	"thu":       time.Thursday,
	"friday":    time.Friday,
	"fri":       time.Friday,
	"saturday":  time.Saturday,
	"sat":       time.Saturday,
}

func ParseWeekday(s string) (time.Weekday, error) {
	wd, ok := weekdayNames[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, &ParseError{Kind: "weekday", Input: s, msg: "expected Monday..Sunday"}
	}
	return wd, nil
}

// ParseWeeklyAvailability converts a weekday-name keyed table of start/end
// strings. A nil value marks the day as closed; a duplicated weekday (for
// example "Mon" and "Monday") is rejected.
func ParseWeeklyAvailability(days map[string]*[2]string) (WeeklyAvailability, error) {
	out := make(WeeklyAvailability, len(days))
	for name, hours := range days {
		wd, err := ParseWeekday(name)
		if err != nil {
			return nil, err
		}
		if _, dup := out[wd]; dup {
			return nil, fmt.Errorf("weekday %s configured more than once", wd)
		}
		if hours == nil {
			out[wd] = nil
			continue
		}
		start, err := ParseTimeOfDay(hours[0])
		if err != nil {
			return nil, err
		}
		end, err := ParseTimeOfDay(hours[1])
		if err != nil {
			return nil, err
		}
		iv, err := NewWorkingInterval(start, end)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", wd, err)
		}
		out[wd] = &iv
	}
	return out, nil
}
