package grpc

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"pawcare/booking/internal/backend"
	"pawcare/booking/internal/domain"
	"pawcare/booking/internal/service/bookings"
	"pawcare/booking/internal/store"
)

type BookingServer struct {
	svc bookingService
	log *slog.Logger
}

type bookingService interface {
	CheckSlot(ctx context.Context, in bookings.SlotInput) (domain.ValidationResult, error)
	Book(ctx context.Context, in bookings.BookInput) (bookings.Outcome, error)
	Reschedule(ctx context.Context, in bookings.RescheduleInput) (bookings.Outcome, error)
	OpenSlots(ctx context.Context, in bookings.OpenSlotsInput) ([]domain.CandidateAppointment, error)
	ListAttempts(ctx context.Context, auth backend.AuthContext, providerID string, windowStart, windowEnd time.Time) ([]domain.BookingAttempt, error)
}

const maxMinutesPerDay = 24 * 60

var _ BookingServiceServer = (*BookingServer)(nil)

func NewBookingServer(svc bookingService, log *slog.Logger) *BookingServer {
	if log == nil {
		log = slog.Default()
	}
	return &BookingServer{
		svc: svc,
		log: log.With(slog.String("component", "grpc.booking")),
	}
}

func (s *BookingServer) CheckSlot(ctx context.Context, req *CheckSlotRequest) (*CheckSlotResponse, error) {
	log := s.rpcLog(ctx, "CheckSlot")

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	result, err := s.svc.CheckSlot(ctx, slotInput(ctx, req.Slot))
	if err != nil {
		return nil, s.toStatus(log, "slot check failed", err, slog.String("provider_id", req.ProviderID))
	}

	log.Debug(
		"slot checked",
		slog.String("provider_id", req.ProviderID),
		slog.String("date", req.Date),
		slog.String("result", result.String()),
	)
	resp := toCheckSlotResponse(result)
	return &resp, nil
}

func (s *BookingServer) BookAppointment(ctx context.Context, req *BookAppointmentRequest) (*BookingResponse, error) {
	log := s.rpcLog(ctx, "BookAppointment")

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	out, err := s.svc.Book(ctx, bookings.BookInput{
		SlotInput:      slotInput(ctx, req.Slot),
		PetID:          req.PetID,
		Notes:          req.Notes,
		IdempotencyKey: idempotencyKey(ctx),
	})
	if err != nil {
		return nil, s.toStatus(log, "appointment create failed", err, slog.String("provider_id", req.ProviderID))
	}

	if out.Appointment == nil {
		log.Info(
			"appointment rejected by pre-check",
			slog.String("provider_id", req.ProviderID),
			slog.String("reason", out.Result.String()),
			slog.String("conflict_id", out.Result.ConflictID),
		)
	} else {
		log.Info(
			"appointment created",
			slog.String("appointment_id", out.Appointment.ID),
			slog.String("provider_id", req.ProviderID),
			slog.String("date", out.Appointment.Date.String()),
			slog.String("start_time", out.Appointment.Start.String()),
		)
	}
	return toBookingResponse(out), nil
}

func (s *BookingServer) RescheduleAppointment(ctx context.Context, req *RescheduleAppointmentRequest) (*BookingResponse, error) {
	log := s.rpcLog(ctx, "RescheduleAppointment")

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	out, err := s.svc.Reschedule(ctx, bookings.RescheduleInput{
		SlotInput:     slotInput(ctx, req.Slot),
		AppointmentID: req.AppointmentID,
		PetID:         req.PetID,
		Notes:         req.Notes,
	})
	if err != nil {
		return nil, s.toStatus(log, "appointment reschedule failed", err,
			slog.String("provider_id", req.ProviderID),
			slog.String("appointment_id", req.AppointmentID),
		)
	}

	log.Info(
		"appointment reschedule handled",
		slog.String("appointment_id", req.AppointmentID),
		slog.String("provider_id", req.ProviderID),
		slog.String("result", out.Result.String()),
	)
	return toBookingResponse(out), nil
}

func (s *BookingServer) ListOpenSlots(ctx context.Context, req *ListOpenSlotsRequest) (*ListOpenSlotsResponse, error) {
	log := s.rpcLog(ctx, "ListOpenSlots")

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	if req.DurationMinutes < 0 || req.DurationMinutes > maxMinutesPerDay {
		log.Warn("invalid request", slog.String("reason", "duration_out_of_range"), slog.Int("duration_minutes", int(req.DurationMinutes)))
		return nil, status.Error(codes.InvalidArgument, "duration_minutes out of range")
	}
	if req.StepMinutes < 0 || req.StepMinutes > maxMinutesPerDay {
		log.Warn("invalid request", slog.String("reason", "step_out_of_range"), slog.Int("step_minutes", int(req.StepMinutes)))
		return nil, status.Error(codes.InvalidArgument, "step_minutes out of range")
	}

	slots, err := s.svc.OpenSlots(ctx, bookings.OpenSlotsInput{
		Auth:                 authContext(ctx),
		ProviderID:           req.ProviderID,
		Date:                 req.Date,
		Duration:             time.Duration(req.DurationMinutes) * time.Minute,
		Step:                 time.Duration(req.StepMinutes) * time.Minute,
		ExcludeAppointmentID: req.ExcludeAppointmentID,
	})
	if err != nil {
		return nil, s.toStatus(log, "open slots failed", err, slog.String("provider_id", req.ProviderID))
	}

	out := make([]OpenSlot, 0, len(slots))
	for _, c := range slots {
		out = append(out, OpenSlot{Date: c.Date.String(), StartTime: c.Start.String(), EndTime: c.End.String()})
	}

	log.Debug(
		"open slots listed",
		slog.String("provider_id", req.ProviderID),
		slog.String("date", req.Date),
		slog.Int("count", len(out)),
	)
	return &ListOpenSlotsResponse{Slots: out}, nil
}

func (s *BookingServer) ListAttempts(ctx context.Context, req *ListAttemptsRequest) (*ListAttemptsResponse, error) {
	log := s.rpcLog(ctx, "ListAttempts")

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	if req.WindowStart == nil || req.WindowEnd == nil {
		log.Warn("invalid request", slog.String("reason", "missing_window"), slog.String("provider_id", req.ProviderID))
		return nil, status.Error(codes.InvalidArgument, "window_start and window_end are required")
	}

	rows, err := s.svc.ListAttempts(ctx, authContext(ctx), req.ProviderID, *req.WindowStart, *req.WindowEnd)
	if err != nil {
		return nil, s.toStatus(log, "attempts list failed", err, slog.String("provider_id", req.ProviderID))
	}

	out := make([]Attempt, 0, len(rows))
	for _, a := range rows {
		out = append(out, toAttempt(a))
	}

	log.Debug(
		"attempts listed",
		slog.String("provider_id", req.ProviderID),
		slog.Int("count", len(out)),
		slog.Time("window_start", *req.WindowStart),
		slog.Time("window_end", *req.WindowEnd),
	)
	return &ListAttemptsResponse{Attempts: out}, nil
}

func (s *BookingServer) rpcLog(ctx context.Context, rpc string) *slog.Logger {
	log := s.log.With(slog.String("rpc", rpc))
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		log = log.With(slog.String("trace_id", sc.TraceID().String()))
	}
	return log
}

// toStatus logs err at a level matching its class and converts it to a gRPC
// status.
func (s *BookingServer) toStatus(log *slog.Logger, msg string, err error, attrs ...any) error {
	args := append([]any{slog.Any("err", err)}, attrs...)

	var vErr *bookings.ValidationError
	if errors.As(err, &vErr) {
		log.Warn("invalid request", args...)
		return status.Error(codes.InvalidArgument, vErr.Error())
	}

	var apiErr *backend.APIError
	switch {
	case errors.Is(err, backend.ErrSlotTaken):
		log.Info("slot taken", args...)
		return status.Error(codes.FailedPrecondition, "That time was just booked by someone else. Pick a different slot.")
	case errors.Is(err, store.ErrIdempotencyConflict):
		log.Info("idempotency conflict", args...)
		return status.Error(codes.FailedPrecondition, "This request key was already used for a different appointment. Try again.")
	case errors.Is(err, backend.ErrUnauthorized):
		log.Info("unauthorized", args...)
		return status.Error(codes.Unauthenticated, "not authorized")
	case errors.Is(err, backend.ErrNotFound):
		log.Info("not found", args...)
		return status.Error(codes.NotFound, "provider or appointment not found")
	case errors.Is(err, backend.ErrMalformedResponse), errors.As(err, &apiErr):
		log.Error(msg, args...)
		return status.Error(codes.Unavailable, "marketplace api unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		log.Warn(msg, args...)
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request canceled")
	}
	log.Error(msg, args...)
	return status.Error(codes.Internal, "internal error")
}

func slotInput(ctx context.Context, s Slot) bookings.SlotInput {
	return bookings.SlotInput{
		Auth:       authContext(ctx),
		ProviderID: s.ProviderID,
		Date:       s.Date,
		StartTime:  s.StartTime,
		EndTime:    s.EndTime,
	}
}

func authContext(ctx context.Context) backend.AuthContext {
	token := firstMetadata(ctx, "authorization")
	if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return backend.AuthContext{
		BearerToken: token,
		UserID:      firstMetadata(ctx, "x-user-id"),
		Role:        firstMetadata(ctx, "x-user-role"),
	}
}

func idempotencyKey(ctx context.Context) string {
	if key := firstMetadata(ctx, "idempotency-key"); key != "" {
		return key
	}
	return firstMetadata(ctx, "x-idempotency-key")
}

func firstMetadata(ctx context.Context, key string) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get(key)
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}

func toCheckSlotResponse(r domain.ValidationResult) CheckSlotResponse {
	return CheckSlotResponse{
		Ok:                    r.OK(),
		Reason:                string(r.Reason),
		ConflictAppointmentID: r.ConflictID,
	}
}

func toBookingResponse(out bookings.Outcome) *BookingResponse {
	resp := &BookingResponse{Precheck: toCheckSlotResponse(out.Result)}
	if out.AttemptID != uuid.Nil {
		resp.AttemptID = out.AttemptID.String()
	}
	if a := out.Appointment; a != nil {
		resp.Appointment = &Appointment{
			ID:         a.ID,
			ProviderID: a.ProviderID,
			OwnerID:    a.OwnerID,
			PetID:      a.PetID,
			Date:       a.Date.String(),
			StartTime:  a.Start.String(),
			EndTime:    a.End.String(),
			Status:     a.Status,
			Notes:      a.Notes,
		}
	}
	return resp
}

func toAttempt(a domain.BookingAttempt) Attempt {
	c := a.Candidate()
	return Attempt{
		ID:            a.ID.String(),
		ProviderID:    a.ProviderID,
		UserID:        a.UserID,
		Kind:          string(a.Kind),
		AppointmentID: a.AppointmentID,
		Date:          c.Date.String(),
		StartTime:     c.Start.String(),
		EndTime:       c.End.String(),
		Precheck:      a.Precheck,
		Outcome:       string(a.Outcome),
		CreatedAt:     a.CreatedAt.UTC(),
	}
}
