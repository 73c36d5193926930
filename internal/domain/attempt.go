package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type AttemptKind string

const (
	AttemptKindBook       AttemptKind = "book"
	AttemptKindReschedule AttemptKind = "reschedule"
)

type AttemptOutcome string

const (
	AttemptOutcomeCreated   AttemptOutcome = "created"
	AttemptOutcomeUpdated   AttemptOutcome = "updated"
	AttemptOutcomeRejected  AttemptOutcome = "rejected"
	AttemptOutcomeSlotTaken AttemptOutcome = "slot_taken"
	AttemptOutcomeError     AttemptOutcome = "error"
)

// BookingAttempt is one journaled Book or Reschedule call: what the local
// pre-check said and what the marketplace API answered.
type BookingAttempt struct {
	bun.BaseModel `bun:"table:booking_attempts"`

	ID            uuid.UUID      `bun:"id,pk,type:uuid"`
	ProviderID    string         `bun:"provider_id,notnull"`
	UserID        string         `bun:"user_id,notnull"`
	Kind          AttemptKind    `bun:"kind,notnull"`
	AppointmentID string         `bun:"appointment_id"`
	Date          time.Time      `bun:"date,notnull,type:date"`
	StartMinute   int            `bun:"start_minute,notnull"`
	EndMinute     int            `bun:"end_minute,notnull"`
	Precheck      string         `bun:"precheck,notnull"`
	Outcome       AttemptOutcome `bun:"outcome,notnull"`
	CreatedAt     time.Time      `bun:"created_at,notnull"`
}

func (a *BookingAttempt) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); !ok {
		return nil
	}
	if a.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		a.ID = id
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	return nil
}

func (a BookingAttempt) Candidate() CandidateAppointment {
	return CandidateAppointment{
		Date:  DateOf(a.Date),
		Start: TimeOfDayFromMinutes(a.StartMinute),
		End:   TimeOfDayFromMinutes(a.EndMinute),
	}
}

// SameRequest reports whether two attempts describe the same booking request,
// ignoring the server-assigned fields.
func (a BookingAttempt) SameRequest(b BookingAttempt) bool {
	return a.ProviderID == b.ProviderID &&
		a.UserID == b.UserID &&
		a.Kind == b.Kind &&
		a.Candidate() == b.Candidate()
}
