package bookings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"pawcare/booking/internal/backend"
	"pawcare/booking/internal/domain"
	"pawcare/booking/internal/store"
)

const (
	defaultSlotStep    = 15 * time.Minute
	maxSlotDuration    = 12 * time.Hour
	maxAttemptsWindow  = 31 * 24 * time.Hour
	attemptNamespaceID = "pawcare:booking_attempt:"
)

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

// API is the subset of the marketplace client the service needs.
type API interface {
	GetAvailability(ctx context.Context, auth backend.AuthContext, providerID string) (domain.WeeklyAvailability, error)
	ListAppointments(ctx context.Context, auth backend.AuthContext, providerID string, date domain.DateOnly) ([]domain.ExistingAppointment, error)
	CreateAppointment(ctx context.Context, auth backend.AuthContext, req backend.AppointmentRequest, idempotencyKey string) (backend.Appointment, error)
	UpdateAppointment(ctx context.Context, auth backend.AuthContext, appointmentID string, req backend.AppointmentRequest) (backend.Appointment, error)
}

type Config struct {
	SlotStep time.Duration
}

type Service struct {
	api      API
	attempts store.AttemptRepository
	validate *validator.Validate
	step     time.Duration
	log      *slog.Logger
}

// NewService builds the booking service. attempts may be nil, in which case
// nothing is journaled and ListAttempts fails.
func NewService(api API, attempts store.AttemptRepository, cfg Config, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	step := cfg.SlotStep
	if step <= 0 {
		step = defaultSlotStep
	}

	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("field"); name != "" {
			return name
		}
		return f.Name
	})

	return &Service{
		api:      api,
		attempts: attempts,
		validate: v,
		step:     step,
		log:      log.With(slog.String("component", "service.bookings")),
	}
}

type SlotInput struct {
	Auth       backend.AuthContext
	ProviderID string `field:"provider_id" validate:"required,max=128"`
	Date       string `field:"date" validate:"required"`
	StartTime  string `field:"start_time" validate:"required"`
	EndTime    string `field:"end_time" validate:"required"`
}

type BookInput struct {
	SlotInput
	PetID          string `field:"pet_id" validate:"max=128"`
	Notes          string `field:"notes" validate:"max=2000"`
	IdempotencyKey string `field:"idempotency_key" validate:"max=256"`
}

type RescheduleInput struct {
	SlotInput
	AppointmentID string `field:"appointment_id" validate:"required,max=128"`
	PetID         string `field:"pet_id" validate:"max=128"`
	Notes         string `field:"notes" validate:"max=2000"`
}

type OpenSlotsInput struct {
	Auth                 backend.AuthContext
	ProviderID           string        `field:"provider_id" validate:"required,max=128"`
	Date                 string        `field:"date" validate:"required"`
	Duration             time.Duration `field:"duration"`
	Step                 time.Duration `field:"step"`
	ExcludeAppointmentID string        `field:"exclude_appointment_id" validate:"max=128"`
}

// Outcome reports a Book or Reschedule call. A pre-check rejection is a normal
// outcome with Appointment == nil.
type Outcome struct {
	Result      domain.ValidationResult
	Appointment *backend.Appointment
	AttemptID   uuid.UUID
}

func (s *Service) CheckSlot(ctx context.Context, in SlotInput) (domain.ValidationResult, error) {
	c, err := s.parseSlot(in)
	if err != nil {
		return domain.ValidationResult{}, err
	}
	return s.precheck(ctx, in.Auth, in.ProviderID, c, "")
}

// Book pre-checks the slot and creates the appointment on Ok. A 409 from the
// API is returned as backend.ErrSlotTaken and is not retried.
func (s *Service) Book(ctx context.Context, in BookInput) (Outcome, error) {
	c, err := s.parseSlot(in.SlotInput)
	if err != nil {
		return Outcome{}, err
	}
	if err := s.check(in); err != nil {
		return Outcome{}, err
	}
	key := strings.TrimSpace(in.IdempotencyKey)

	attempt := newAttempt(in.Auth, in.ProviderID, domain.AttemptKindBook, c)
	if key != "" {
		attempt.ID = uuid.NewSHA1(uuid.NameSpaceOID, []byte(attemptNamespaceID+in.ProviderID+":"+key))
		prior, found, err := s.priorAttempt(ctx, attempt.ID)
		if err != nil {
			return Outcome{}, err
		}
		if found {
			if !prior.SameRequest(attempt) {
				return Outcome{}, store.ErrIdempotencyConflict
			}
			if prior.Outcome == domain.AttemptOutcomeCreated && prior.AppointmentID != "" {
				return s.replay(ctx, in.Auth, prior)
			}
		}
	}

	result, err := s.precheck(ctx, in.Auth, in.ProviderID, c, "")
	if err != nil {
		return Outcome{}, err
	}
	attempt.Precheck = result.String()
	if !result.OK() {
		attempt.Outcome = domain.AttemptOutcomeRejected
		return s.finish(ctx, attempt, result, nil, nil)
	}

	appt, err := s.api.CreateAppointment(ctx, in.Auth, backend.AppointmentRequest{
		ProviderID: in.ProviderID,
		PetID:      in.PetID,
		Date:       c.Date,
		Start:      c.Start,
		End:        c.End,
		Notes:      in.Notes,
	}, key)
	if err != nil {
		attempt.Outcome = failureOutcome(err)
		return s.finish(ctx, attempt, result, nil, err)
	}
	attempt.Outcome = domain.AttemptOutcomeCreated
	attempt.AppointmentID = appt.ID
	return s.finish(ctx, attempt, result, &appt, nil)
}

// Reschedule moves an existing appointment. The appointment being moved is
// ignored by the conflict check.
func (s *Service) Reschedule(ctx context.Context, in RescheduleInput) (Outcome, error) {
	c, err := s.parseSlot(in.SlotInput)
	if err != nil {
		return Outcome{}, err
	}
	if err := s.check(in); err != nil {
		return Outcome{}, err
	}

	result, err := s.precheck(ctx, in.Auth, in.ProviderID, c, in.AppointmentID)
	if err != nil {
		return Outcome{}, err
	}

	attempt := newAttempt(in.Auth, in.ProviderID, domain.AttemptKindReschedule, c)
	attempt.AppointmentID = in.AppointmentID
	attempt.Precheck = result.String()
	if !result.OK() {
		attempt.Outcome = domain.AttemptOutcomeRejected
		return s.finish(ctx, attempt, result, nil, nil)
	}

	appt, err := s.api.UpdateAppointment(ctx, in.Auth, in.AppointmentID, backend.AppointmentRequest{
		ProviderID: in.ProviderID,
		PetID:      in.PetID,
		Date:       c.Date,
		Start:      c.Start,
		End:        c.End,
		Notes:      in.Notes,
	})
	if err != nil {
		attempt.Outcome = failureOutcome(err)
		return s.finish(ctx, attempt, result, nil, err)
	}
	attempt.Outcome = domain.AttemptOutcomeUpdated
	return s.finish(ctx, attempt, result, &appt, nil)
}

func (s *Service) OpenSlots(ctx context.Context, in OpenSlotsInput) ([]domain.CandidateAppointment, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	date, err := domain.ParseDate(in.Date)
	if err != nil {
		return nil, validationError(err.Error())
	}
	if in.Duration <= 0 {
		return nil, validationError("duration must be positive")
	}
	if in.Duration > maxSlotDuration {
		return nil, validationError("duration too long")
	}
	if in.Duration%time.Minute != 0 {
		return nil, validationError("duration must be whole minutes")
	}
	step := in.Step
	if step == 0 {
		step = s.step
	}
	if step < time.Minute || step%time.Minute != 0 {
		return nil, validationError("step must be whole minutes")
	}

	avail, existing, err := s.fetch(ctx, in.Auth, in.ProviderID, date)
	if err != nil {
		return nil, err
	}
	return domain.OpenSlots(date, avail, existing, in.Duration, step, strings.TrimSpace(in.ExcludeAppointmentID)), nil
}

// ListAttempts reads the provider's journal. The caller must be able to read
// the provider's appointments through the API.
func (s *Service) ListAttempts(ctx context.Context, auth backend.AuthContext, providerID string, windowStart, windowEnd time.Time) ([]domain.BookingAttempt, error) {
	if strings.TrimSpace(providerID) == "" {
		return nil, validationError("provider_id is required")
	}
	start := windowStart.UTC()
	end := windowEnd.UTC()
	if end.Equal(start) || end.Before(start) {
		return nil, validationError("window_end must be after window_start")
	}
	if end.Sub(start) > maxAttemptsWindow {
		return nil, validationError("window too long")
	}
	if s.attempts == nil {
		return nil, errors.New("attempt journal is not configured")
	}
	if strings.TrimSpace(auth.BearerToken) == "" {
		return nil, backend.ErrUnauthorized
	}
	if _, err := s.api.ListAppointments(ctx, auth, providerID, domain.DateOf(start)); err != nil {
		return nil, fmt.Errorf("authorize attempts read: %w", err)
	}
	return s.attempts.List(ctx, providerID, start, end)
}

func (s *Service) check(in any) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	return validationError(describeFieldError(verrs[0]))
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "max":
		return fe.Field() + " too long"
	}
	return fe.Field() + " is invalid"
}

// parseSlot converts the raw boundary strings once. Unparseable input is an
// error, never a free slot.
func (s *Service) parseSlot(in SlotInput) (domain.CandidateAppointment, error) {
	if err := s.check(in); err != nil {
		return domain.CandidateAppointment{}, err
	}
	date, err := domain.ParseDate(in.Date)
	if err != nil {
		return domain.CandidateAppointment{}, validationError(err.Error())
	}
	start, err := domain.ParseTimeOfDay(in.StartTime)
	if err != nil {
		return domain.CandidateAppointment{}, validationError(err.Error())
	}
	end, err := domain.ParseTimeOfDay(in.EndTime)
	if err != nil {
		return domain.CandidateAppointment{}, validationError(err.Error())
	}
	if end.Minutes() <= start.Minutes() {
		return domain.CandidateAppointment{}, validationError("end_time must be after start_time")
	}
	return domain.CandidateAppointment{Date: date, Start: start, End: end}, nil
}

func (s *Service) fetch(ctx context.Context, auth backend.AuthContext, providerID string, date domain.DateOnly) (domain.WeeklyAvailability, []domain.ExistingAppointment, error) {
	avail, err := s.api.GetAvailability(ctx, auth, providerID)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch availability: %w", err)
	}
	existing, err := s.api.ListAppointments(ctx, auth, providerID, date)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch appointments: %w", err)
	}
	return avail, existing, nil
}

func (s *Service) precheck(ctx context.Context, auth backend.AuthContext, providerID string, c domain.CandidateAppointment, excludeID string) (domain.ValidationResult, error) {
	avail, existing, err := s.fetch(ctx, auth, providerID, c.Date)
	if err != nil {
		return domain.ValidationResult{}, err
	}
	return domain.Validate(c, avail, existing, excludeID), nil
}

func newAttempt(auth backend.AuthContext, providerID string, kind domain.AttemptKind, c domain.CandidateAppointment) domain.BookingAttempt {
	return domain.BookingAttempt{
		ProviderID:  providerID,
		UserID:      auth.UserID,
		Kind:        kind,
		Date:        c.Date.Time(),
		StartMinute: c.Start.Minutes(),
		EndMinute:   c.End.Minutes(),
	}
}

// priorAttempt looks up an earlier attempt under the same idempotency id. An
// unreachable journal is treated as no prior attempt.
func (s *Service) priorAttempt(ctx context.Context, id uuid.UUID) (domain.BookingAttempt, bool, error) {
	if s.attempts == nil {
		return domain.BookingAttempt{}, false, nil
	}
	prior, err := s.attempts.Get(ctx, id)
	switch {
	case err == nil:
		return prior, true, nil
	case errors.Is(err, store.ErrNotFound):
		return domain.BookingAttempt{}, false, nil
	case ctx.Err() != nil:
		return domain.BookingAttempt{}, false, ctx.Err()
	}
	s.log.Warn("lookup booking attempt failed", slog.Any("err", err), slog.String("attempt_id", id.String()))
	return domain.BookingAttempt{}, false, nil
}

// replay answers a repeated Book call whose first attempt already created the
// appointment. Re-validating would report the slot as taken by itself, so the
// caller's credentials are checked by listing the day's appointments instead.
func (s *Service) replay(ctx context.Context, auth backend.AuthContext, prior domain.BookingAttempt) (Outcome, error) {
	if strings.TrimSpace(auth.BearerToken) == "" {
		return Outcome{}, backend.ErrUnauthorized
	}
	c := prior.Candidate()
	existing, err := s.api.ListAppointments(ctx, auth, prior.ProviderID, c.Date)
	if err != nil {
		return Outcome{}, fmt.Errorf("confirm replayed booking: %w", err)
	}
	for _, a := range existing {
		if a.ID != prior.AppointmentID {
			continue
		}
		appt := &backend.Appointment{
			ID:         a.ID,
			ProviderID: prior.ProviderID,
			Date:       a.Date,
			Start:      a.Start,
			End:        a.End,
		}
		return Outcome{Appointment: appt, AttemptID: prior.ID}, nil
	}
	return Outcome{}, fmt.Errorf("%w: appointment %s from an earlier attempt", backend.ErrNotFound, prior.AppointmentID)
}

func failureOutcome(err error) domain.AttemptOutcome {
	if errors.Is(err, backend.ErrSlotTaken) {
		return domain.AttemptOutcomeSlotTaken
	}
	return domain.AttemptOutcomeError
}

// finish journals the attempt and returns opErr unchanged. Journal failures
// are logged only.
func (s *Service) finish(ctx context.Context, attempt domain.BookingAttempt, result domain.ValidationResult, appt *backend.Appointment, opErr error) (Outcome, error) {
	out := Outcome{Result: result, Appointment: appt}
	if s.attempts == nil {
		return out, opErr
	}

	saved, err := s.attempts.Record(ctx, attempt)
	if err != nil {
		s.log.Warn(
			"record booking attempt failed",
			slog.Any("err", err),
			slog.String("provider_id", attempt.ProviderID),
			slog.String("kind", string(attempt.Kind)),
			slog.String("outcome", string(attempt.Outcome)),
		)
		return out, opErr
	}
	out.AttemptID = saved.ID
	return out, opErr
}
