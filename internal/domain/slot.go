package domain

import "time"

type CandidateAppointment struct {
	Date  DateOnly
	Start TimeOfDay
	End   TimeOfDay
}

type ExistingAppointment struct {
	ID    string
	Date  DateOnly
	Start TimeOfDay
	End   TimeOfDay
}

type RejectReason string

const (
	ReasonNone                RejectReason = ""
	ReasonOutsideWorkingHours RejectReason = "outside_working_hours"
	ReasonTimeConflict        RejectReason = "time_conflict"
)

// ValidationResult is either Ok (Reason == ReasonNone) or a rejection.
// ConflictID names the first overlapping appointment for TimeConflict.
type ValidationResult struct {
	Reason     RejectReason
	ConflictID string
}

func (r ValidationResult) OK() bool {
	return r.Reason == ReasonNone
}

func (r ValidationResult) String() string {
	if r.OK() {
		return "ok"
	}
	return string(r.Reason)
}

func IsWithinWorkingHours(c CandidateAppointment, availability WeeklyAvailability) bool {
	iv, ok := availability.On(c.Date.Weekday())
	if !ok {
		return false
	}
	start := c.Start.Minutes()
	end := c.End.Minutes()
	return start >= iv.Start.Minutes() && end <= iv.End.Minutes() && end > start
}

func HasConflict(c CandidateAppointment, existing []ExistingAppointment, excludeID string) bool {
	_, found := firstConflict(c, existing, excludeID)
	return found
}

func firstConflict(c CandidateAppointment, existing []ExistingAppointment, excludeID string) (string, bool) {
	cs := c.Start.Minutes()
	ce := c.End.Minutes()
	for _, o := range existing {
		if o.Date != c.Date {
			continue
		}
		if excludeID != "" && o.ID == excludeID {
			continue
		}
		// Half-open [start,end): back-to-back bookings do not overlap.
		if cs < o.End.Minutes() && ce > o.Start.Minutes() {
			return o.ID, true
		}
	}
	return "", false
}

// Validate checks working hours before conflicts, so a slot that fails both
// is reported as outside working hours.
func Validate(c CandidateAppointment, availability WeeklyAvailability, existing []ExistingAppointment, excludeID string) ValidationResult {
	if !IsWithinWorkingHours(c, availability) {
		return ValidationResult{Reason: ReasonOutsideWorkingHours}
	}
	if id, found := firstConflict(c, existing, excludeID); found {
		return ValidationResult{Reason: ReasonTimeConflict, ConflictID: id}
	}
	return ValidationResult{}
}

// OpenSlots lists the bookable slots of the given length on date, stepping from
// the start of the working interval.
func OpenSlots(date DateOnly, availability WeeklyAvailability, existing []ExistingAppointment, duration, step time.Duration, excludeID string) []CandidateAppointment {
	if duration <= 0 || step <= 0 {
		return nil
	}
	iv, ok := availability.On(date.Weekday())
	if !ok {
		return nil
	}

	length := int(duration / time.Minute)
	stride := int(step / time.Minute)
	if length <= 0 || stride <= 0 {
		return nil
	}

	var out []CandidateAppointment
	for m := iv.Start.Minutes(); m+length <= iv.End.Minutes(); m += stride {
		c := CandidateAppointment{
			Date:  date,
			Start: TimeOfDayFromMinutes(m),
			End:   TimeOfDayFromMinutes(m + length),
		}
		if Validate(c, availability, existing, excludeID).OK() {
			out = append(out, c)
		}
	}
	return out
}
