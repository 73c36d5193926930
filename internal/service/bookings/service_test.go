package bookings

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"pawcare/booking/internal/backend"
	"pawcare/booking/internal/domain"
	"pawcare/booking/internal/store"
)

type fakeAPI struct {
	getAvailabilityFn   func(ctx context.Context, auth backend.AuthContext, providerID string) (domain.WeeklyAvailability, error)
	listAppointmentsFn  func(ctx context.Context, auth backend.AuthContext, providerID string, date domain.DateOnly) ([]domain.ExistingAppointment, error)
	createAppointmentFn func(ctx context.Context, auth backend.AuthContext, req backend.AppointmentRequest, idempotencyKey string) (backend.Appointment, error)
	updateAppointmentFn func(ctx context.Context, auth backend.AuthContext, appointmentID string, req backend.AppointmentRequest) (backend.Appointment, error)
}

func (f *fakeAPI) GetAvailability(ctx context.Context, auth backend.AuthContext, providerID string) (domain.WeeklyAvailability, error) {
	if f.getAvailabilityFn == nil {
		panic("GetAvailability not configured")
	}
	return f.getAvailabilityFn(ctx, auth, providerID)
}

func (f *fakeAPI) ListAppointments(ctx context.Context, auth backend.AuthContext, providerID string, date domain.DateOnly) ([]domain.ExistingAppointment, error) {
	if f.listAppointmentsFn == nil {
		panic("ListAppointments not configured")
	}
	return f.listAppointmentsFn(ctx, auth, providerID, date)
}

func (f *fakeAPI) CreateAppointment(ctx context.Context, auth backend.AuthContext, req backend.AppointmentRequest, idempotencyKey string) (backend.Appointment, error) {
	if f.createAppointmentFn == nil {
		panic("CreateAppointment not configured")
	}
	return f.createAppointmentFn(ctx, auth, req, idempotencyKey)
}

func (f *fakeAPI) UpdateAppointment(ctx context.Context, auth backend.AuthContext, appointmentID string, req backend.AppointmentRequest) (backend.Appointment, error) {
	if f.updateAppointmentFn == nil {
		panic("UpdateAppointment not configured")
	}
	return f.updateAppointmentFn(ctx, auth, appointmentID, req)
}

type fakeAttempts struct {
	recordFn func(ctx context.Context, attempt domain.BookingAttempt) (domain.BookingAttempt, error)
	getFn    func(ctx context.Context, id uuid.UUID) (domain.BookingAttempt, error)
	listFn   func(ctx context.Context, providerID string, windowStart, windowEnd time.Time) ([]domain.BookingAttempt, error)
}

func (f *fakeAttempts) Record(ctx context.Context, attempt domain.BookingAttempt) (domain.BookingAttempt, error) {
	if f.recordFn == nil {
		panic("Record not configured")
	}
	return f.recordFn(ctx, attempt)
}

func (f *fakeAttempts) Get(ctx context.Context, id uuid.UUID) (domain.BookingAttempt, error) {
	if f.getFn == nil {
		panic("Get not configured")
	}
	return f.getFn(ctx, id)
}

func (f *fakeAttempts) List(ctx context.Context, providerID string, windowStart, windowEnd time.Time) ([]domain.BookingAttempt, error) {
	if f.listFn == nil {
		panic("List not configured")
	}
	return f.listFn(ctx, providerID, windowStart, windowEnd)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// weekdays 09:00-17:00, closed at weekends.
func officeHours() domain.WeeklyAvailability {
	iv := domain.WorkingInterval{Start: domain.MustTimeOfDay("09:00"), End: domain.MustTimeOfDay("17:00")}
	avail := domain.WeeklyAvailability{}
	for d := time.Monday; d <= time.Friday; d++ {
		v := iv
		avail[d] = &v
	}
	return avail
}

func apiWith(existing ...domain.ExistingAppointment) *fakeAPI {
	return &fakeAPI{
		getAvailabilityFn: func(ctx context.Context, auth backend.AuthContext, providerID string) (domain.WeeklyAvailability, error) {
			return officeHours(), nil
		},
		listAppointmentsFn: func(ctx context.Context, auth backend.AuthContext, providerID string, date domain.DateOnly) ([]domain.ExistingAppointment, error) {
			return existing, nil
		},
	}
}

func existingAt(id, start, end string) domain.ExistingAppointment {
	return domain.ExistingAppointment{
		ID:    id,
		Date:  domain.MustDate("2024-06-03"),
		Start: domain.MustTimeOfDay(start),
		End:   domain.MustTimeOfDay(end),
	}
}

func slot(start, end string) SlotInput {
	return SlotInput{
		Auth:       backend.AuthContext{BearerToken: "tok", UserID: "owner-1"},
		ProviderID: "vet-1",
		Date:       "2024-06-03",
		StartTime:  start,
		EndTime:    end,
	}
}

func TestCheckSlot_ValidationErrorType(t *testing.T) {
	svc := NewService(&fakeAPI{}, nil, Config{}, testLogger())

	tests := []struct {
		name string
		in   SlotInput
		want string
	}{
		{name: "missing provider", in: SlotInput{Date: "2024-06-03", StartTime: "10:00", EndTime: "11:00"}, want: "provider_id is required"},
		{name: "missing start", in: SlotInput{ProviderID: "vet-1", Date: "2024-06-03", EndTime: "11:00"}, want: "start_time is required"},
		{name: "end before start", in: slot("11:00", "10:00"), want: "end_time must be after start_time"},
		{name: "equal bounds", in: slot("10:00", "10:00"), want: "end_time must be after start_time"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CheckSlot(context.Background(), tt.in)
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("error type = %T, want *ValidationError", err)
			}
			if vErr.Error() != tt.want {
				t.Fatalf("error = %q, want %q", vErr.Error(), tt.want)
			}
		})
	}
}

func TestCheckSlot_UnparseableTimeIsNeverOpen(t *testing.T) {
	svc := NewService(apiWith(), nil, Config{}, testLogger())

	for _, in := range []SlotInput{slot("nine", "10:00"), slot("10:00", "25:00"), slot("13:00 PM", "14:00")} {
		_, err := svc.CheckSlot(context.Background(), in)
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("CheckSlot(%q-%q) error = %v, want *ValidationError", in.StartTime, in.EndTime, err)
		}
	}
}

func TestCheckSlot_Results(t *testing.T) {
	svc := NewService(apiWith(existingAt("a1", "10:00", "11:00")), nil, Config{}, testLogger())

	tests := []struct {
		name       string
		in         SlotInput
		wantReason domain.RejectReason
		wantID     string
	}{
		{name: "free slot", in: slot("11:00", "12:00")},
		{name: "twelve hour input", in: slot("2:00 PM", "3:00 PM")},
		{name: "back to back", in: slot("09:00", "10:00")},
		{name: "overlap", in: slot("10:30", "11:30"), wantReason: domain.ReasonTimeConflict, wantID: "a1"},
		{name: "after hours", in: slot("16:30", "17:30"), wantReason: domain.ReasonOutsideWorkingHours},
		{name: "weekend", in: func() SlotInput { s := slot("10:00", "11:00"); s.Date = "2024-06-01"; return s }(), wantReason: domain.ReasonOutsideWorkingHours},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.CheckSlot(context.Background(), tt.in)
			if err != nil {
				t.Fatalf("CheckSlot error: %v", err)
			}
			if got.Reason != tt.wantReason || got.ConflictID != tt.wantID {
				t.Fatalf("result = %+v, want reason=%q id=%q", got, tt.wantReason, tt.wantID)
			}
		})
	}
}

func TestCheckSlot_PropagatesFetchErrors(t *testing.T) {
	api := apiWith()
	api.listAppointmentsFn = func(ctx context.Context, auth backend.AuthContext, providerID string, date domain.DateOnly) ([]domain.ExistingAppointment, error) {
		return nil, backend.ErrMalformedResponse
	}
	svc := NewService(api, nil, Config{}, testLogger())

	_, err := svc.CheckSlot(context.Background(), slot("10:00", "11:00"))
	if !errors.Is(err, backend.ErrMalformedResponse) {
		t.Fatalf("error = %v, want %v", err, backend.ErrMalformedResponse)
	}
}

func TestBook_CreatesAndJournals(t *testing.T) {
	api := apiWith(existingAt("a1", "10:00", "11:00"))
	var gotReq backend.AppointmentRequest
	var gotKey string
	api.createAppointmentFn = func(ctx context.Context, auth backend.AuthContext, req backend.AppointmentRequest, idempotencyKey string) (backend.Appointment, error) {
		gotReq = req
		gotKey = idempotencyKey
		return backend.Appointment{ID: "new-1", Date: req.Date, Start: req.Start, End: req.End}, nil
	}

	var recorded domain.BookingAttempt
	attempts := &fakeAttempts{
		getFn: func(ctx context.Context, id uuid.UUID) (domain.BookingAttempt, error) {
			return domain.BookingAttempt{}, store.ErrNotFound
		},
		recordFn: func(ctx context.Context, attempt domain.BookingAttempt) (domain.BookingAttempt, error) {
			recorded = attempt
			return attempt, nil
		},
	}
	svc := NewService(api, attempts, Config{}, testLogger())

	out, err := svc.Book(context.Background(), BookInput{SlotInput: slot("1:00 PM", "2:00 PM"), PetID: "pet-1", IdempotencyKey: " k1 "})
	if err != nil {
		t.Fatalf("Book error: %v", err)
	}
	if !out.Result.OK() || out.Appointment == nil || out.Appointment.ID != "new-1" {
		t.Fatalf("outcome = %+v", out)
	}
	if gotKey != "k1" {
		t.Fatalf("idempotency key = %q, want %q", gotKey, "k1")
	}
	if gotReq.Start.String() != "13:00" || gotReq.PetID != "pet-1" {
		t.Fatalf("request = %+v", gotReq)
	}

	wantID := uuid.NewSHA1(uuid.NameSpaceOID, []byte("pawcare:booking_attempt:vet-1:k1"))
	if out.AttemptID != wantID || recorded.ID != wantID {
		t.Fatalf("attempt id = %s (recorded %s), want %s", out.AttemptID, recorded.ID, wantID)
	}
	if recorded.Outcome != domain.AttemptOutcomeCreated || recorded.AppointmentID != "new-1" || recorded.Precheck != "ok" {
		t.Fatalf("recorded = %+v", recorded)
	}
}

func TestBook_RejectedSlotDoesNotCallAPI(t *testing.T) {
	api := apiWith(existingAt("a1", "10:00", "11:00"))
	var recorded domain.BookingAttempt
	attempts := &fakeAttempts{
		recordFn: func(ctx context.Context, attempt domain.BookingAttempt) (domain.BookingAttempt, error) {
			recorded = attempt
			return attempt, nil
		},
	}
	svc := NewService(api, attempts, Config{}, testLogger())

	out, err := svc.Book(context.Background(), BookInput{SlotInput: slot("10:15", "10:45")})
	if err != nil {
		t.Fatalf("Book error: %v", err)
	}
	if out.Result.Reason != domain.ReasonTimeConflict || out.Appointment != nil {
		t.Fatalf("outcome = %+v", out)
	}
	if recorded.Outcome != domain.AttemptOutcomeRejected || recorded.Precheck != string(domain.ReasonTimeConflict) {
		t.Fatalf("recorded = %+v", recorded)
	}
}

func TestBook_SlotTakenIsNotRetried(t *testing.T) {
	api := apiWith()
	calls := 0
	api.createAppointmentFn = func(ctx context.Context, auth backend.AuthContext, req backend.AppointmentRequest, idempotencyKey string) (backend.Appointment, error) {
		calls++
		return backend.Appointment{}, backend.ErrSlotTaken
	}
	var recorded domain.BookingAttempt
	attempts := &fakeAttempts{
		recordFn: func(ctx context.Context, attempt domain.BookingAttempt) (domain.BookingAttempt, error) {
			recorded = attempt
			return attempt, nil
		},
	}
	svc := NewService(api, attempts, Config{}, testLogger())

	out, err := svc.Book(context.Background(), BookInput{SlotInput: slot("10:00", "11:00")})
	if !errors.Is(err, backend.ErrSlotTaken) {
		t.Fatalf("error = %v, want %v", err, backend.ErrSlotTaken)
	}
	if calls != 1 {
		t.Fatalf("create calls = %d, want 1", calls)
	}
	if !out.Result.OK() {
		t.Fatalf("precheck result = %+v, want ok", out.Result)
	}
	if recorded.Outcome != domain.AttemptOutcomeSlotTaken {
		t.Fatalf("recorded outcome = %q", recorded.Outcome)
	}
}

func TestBook_JournalFailureDoesNotMaskOutcome(t *testing.T) {
	api := apiWith()
	api.createAppointmentFn = func(ctx context.Context, auth backend.AuthContext, req backend.AppointmentRequest, idempotencyKey string) (backend.Appointment, error) {
		return backend.Appointment{ID: "new-1"}, nil
	}
	attempts := &fakeAttempts{
		recordFn: func(ctx context.Context, attempt domain.BookingAttempt) (domain.BookingAttempt, error) {
			return domain.BookingAttempt{}, errors.New("db down")
		},
	}
	svc := NewService(api, attempts, Config{}, testLogger())

	out, err := svc.Book(context.Background(), BookInput{SlotInput: slot("10:00", "11:00")})
	if err != nil {
		t.Fatalf("Book error: %v", err)
	}
	if out.Appointment == nil || out.AttemptID != uuid.Nil {
		t.Fatalf("outcome = %+v", out)
	}
}

func createdAttempt() domain.BookingAttempt {
	return domain.BookingAttempt{
		ID:            uuid.NewSHA1(uuid.NameSpaceOID, []byte("pawcare:booking_attempt:vet-1:k1")),
		ProviderID:    "vet-1",
		UserID:        "owner-1",
		Kind:          domain.AttemptKindBook,
		AppointmentID: "new-1",
		Date:          time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC),
		StartMinute:   10 * 60,
		EndMinute:     11 * 60,
		Precheck:      "ok",
		Outcome:       domain.AttemptOutcomeCreated,
	}
}

func journalWith(t *testing.T, prior domain.BookingAttempt) *fakeAttempts {
	t.Helper()
	return &fakeAttempts{
		getFn: func(ctx context.Context, id uuid.UUID) (domain.BookingAttempt, error) {
			if id != prior.ID {
				t.Fatalf("lookup id = %s, want %s", id, prior.ID)
			}
			return prior, nil
		},
	}
}

func TestBook_ReplaysCreatedAttempt(t *testing.T) {
	prior := createdAttempt()
	var gotAuth backend.AuthContext
	api := &fakeAPI{
		listAppointmentsFn: func(ctx context.Context, auth backend.AuthContext, providerID string, date domain.DateOnly) ([]domain.ExistingAppointment, error) {
			gotAuth = auth
			if providerID != "vet-1" || date != domain.MustDate("2024-06-03") {
				t.Fatalf("list %s on %s", providerID, date)
			}
			return []domain.ExistingAppointment{existingAt("new-1", "10:00", "11:00")}, nil
		},
	}
	svc := NewService(api, journalWith(t, prior), Config{}, testLogger())

	out, err := svc.Book(context.Background(), BookInput{SlotInput: slot("10:00", "11:00"), IdempotencyKey: "k1"})
	if err != nil {
		t.Fatalf("Book error: %v", err)
	}
	if out.Appointment == nil || out.Appointment.ID != "new-1" || out.AttemptID != prior.ID {
		t.Fatalf("outcome = %+v", out)
	}
	if gotAuth.BearerToken != "tok" {
		t.Fatalf("replay listed appointments with token %q", gotAuth.BearerToken)
	}

	_, err = svc.Book(context.Background(), BookInput{SlotInput: slot("12:00", "13:00"), IdempotencyKey: "k1"})
	if !errors.Is(err, store.ErrIdempotencyConflict) {
		t.Fatalf("error = %v, want %v", err, store.ErrIdempotencyConflict)
	}
}

func TestBook_ReplayRequiresCredentials(t *testing.T) {
	svc := NewService(&fakeAPI{}, journalWith(t, createdAttempt()), Config{}, testLogger())

	in := BookInput{SlotInput: slot("10:00", "11:00"), IdempotencyKey: "k1"}
	in.Auth = backend.AuthContext{UserID: "owner-1"}

	out, err := svc.Book(context.Background(), in)
	if !errors.Is(err, backend.ErrUnauthorized) {
		t.Fatalf("error = %v, want %v", err, backend.ErrUnauthorized)
	}
	if out.Appointment != nil {
		t.Fatalf("appointment leaked: %+v", out.Appointment)
	}
}

func TestBook_ReplayPropagatesAPIRejection(t *testing.T) {
	api := &fakeAPI{
		listAppointmentsFn: func(ctx context.Context, auth backend.AuthContext, providerID string, date domain.DateOnly) ([]domain.ExistingAppointment, error) {
			return nil, backend.ErrUnauthorized
		},
	}
	svc := NewService(api, journalWith(t, createdAttempt()), Config{}, testLogger())

	out, err := svc.Book(context.Background(), BookInput{SlotInput: slot("10:00", "11:00"), IdempotencyKey: "k1"})
	if !errors.Is(err, backend.ErrUnauthorized) {
		t.Fatalf("error = %v, want %v", err, backend.ErrUnauthorized)
	}
	if out.Appointment != nil {
		t.Fatalf("appointment leaked: %+v", out.Appointment)
	}
}

func TestBook_ReplayOfVanishedAppointment(t *testing.T) {
	api := &fakeAPI{
		listAppointmentsFn: func(ctx context.Context, auth backend.AuthContext, providerID string, date domain.DateOnly) ([]domain.ExistingAppointment, error) {
			return []domain.ExistingAppointment{existingAt("other", "12:00", "13:00")}, nil
		},
	}
	svc := NewService(api, journalWith(t, createdAttempt()), Config{}, testLogger())

	_, err := svc.Book(context.Background(), BookInput{SlotInput: slot("10:00", "11:00"), IdempotencyKey: "k1"})
	if !errors.Is(err, backend.ErrNotFound) {
		t.Fatalf("error = %v, want %v", err, backend.ErrNotFound)
	}
}

func TestReschedule_IgnoresAppointmentBeingMoved(t *testing.T) {
	api := apiWith(existingAt("a1", "10:00", "11:00"), existingAt("a2", "12:00", "13:00"))
	var gotID string
	api.updateAppointmentFn = func(ctx context.Context, auth backend.AuthContext, appointmentID string, req backend.AppointmentRequest) (backend.Appointment, error) {
		gotID = appointmentID
		return backend.Appointment{ID: appointmentID, Date: req.Date, Start: req.Start, End: req.End}, nil
	}
	svc := NewService(api, nil, Config{}, testLogger())

	out, err := svc.Reschedule(context.Background(), RescheduleInput{SlotInput: slot("10:30", "11:30"), AppointmentID: "a1"})
	if err != nil {
		t.Fatalf("Reschedule error: %v", err)
	}
	if !out.Result.OK() || gotID != "a1" {
		t.Fatalf("outcome = %+v, updated %q", out, gotID)
	}

	out, err = svc.Reschedule(context.Background(), RescheduleInput{SlotInput: slot("11:30", "12:30"), AppointmentID: "a1"})
	if err != nil {
		t.Fatalf("Reschedule error: %v", err)
	}
	if out.Result.Reason != domain.ReasonTimeConflict || out.Result.ConflictID != "a2" {
		t.Fatalf("result = %+v, want conflict with a2", out.Result)
	}
}

func TestReschedule_RecordsFailureOutcome(t *testing.T) {
	tests := []struct {
		name    string
		apiErr  error
		outcome domain.AttemptOutcome
	}{
		{name: "slot taken", apiErr: fmt.Errorf("%w: overlapping booking", backend.ErrSlotTaken), outcome: domain.AttemptOutcomeSlotTaken},
		{name: "upstream failure", apiErr: &backend.APIError{StatusCode: 502}, outcome: domain.AttemptOutcomeError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := apiWith(existingAt("a1", "10:00", "11:00"))
			calls := 0
			api.updateAppointmentFn = func(ctx context.Context, auth backend.AuthContext, appointmentID string, req backend.AppointmentRequest) (backend.Appointment, error) {
				calls++
				return backend.Appointment{}, tt.apiErr
			}
			var recorded domain.BookingAttempt
			attempts := &fakeAttempts{
				recordFn: func(ctx context.Context, attempt domain.BookingAttempt) (domain.BookingAttempt, error) {
					recorded = attempt
					return attempt, nil
				},
			}
			svc := NewService(api, attempts, Config{}, testLogger())

			_, err := svc.Reschedule(context.Background(), RescheduleInput{SlotInput: slot("14:00", "15:00"), AppointmentID: "a1"})
			if !errors.Is(err, tt.apiErr) {
				t.Fatalf("error = %v, want %v", err, tt.apiErr)
			}
			if calls != 1 {
				t.Fatalf("update calls = %d, want 1", calls)
			}
			if recorded.Outcome != tt.outcome || recorded.AppointmentID != "a1" || recorded.Kind != domain.AttemptKindReschedule {
				t.Fatalf("recorded = %+v", recorded)
			}
		})
	}
}

func TestReschedule_RequiresAppointmentID(t *testing.T) {
	svc := NewService(&fakeAPI{}, nil, Config{}, testLogger())

	_, err := svc.Reschedule(context.Background(), RescheduleInput{SlotInput: slot("10:00", "11:00")})
	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.Error() != "appointment_id is required" {
		t.Fatalf("error = %v, want appointment_id is required", err)
	}
}

func TestOpenSlots(t *testing.T) {
	api := apiWith(existingAt("a1", "10:00", "11:00"))
	svc := NewService(api, nil, Config{SlotStep: 30 * time.Minute}, testLogger())

	slots, err := svc.OpenSlots(context.Background(), OpenSlotsInput{
		ProviderID: "vet-1",
		Date:       "2024-06-03",
		Duration:   time.Hour,
	})
	if err != nil {
		t.Fatalf("OpenSlots error: %v", err)
	}
	// 09:00 .. 16:00 starts every 30m is 15; 09:30, 10:00 and 10:30 overlap a1.
	if len(slots) != 12 {
		t.Fatalf("len(slots) = %d, want 12", len(slots))
	}
	for _, s := range slots {
		if s.Start.Minutes() < 11*60 && s.End.Minutes() > 10*60 {
			t.Fatalf("slot %s-%s overlaps a1", s.Start, s.End)
		}
	}

	_, err = svc.OpenSlots(context.Background(), OpenSlotsInput{ProviderID: "vet-1", Date: "2024-06-03"})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("error type = %T, want *ValidationError", err)
	}
}

func TestListAttempts(t *testing.T) {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	auth := backend.AuthContext{BearerToken: "tok", UserID: "vet-1", Role: "provider"}

	var authorized bool
	api := &fakeAPI{
		listAppointmentsFn: func(ctx context.Context, got backend.AuthContext, providerID string, date domain.DateOnly) ([]domain.ExistingAppointment, error) {
			if got.BearerToken != "tok" || providerID != "vet-1" || date != domain.MustDate("2024-06-01") {
				t.Fatalf("authorize call = %+v %s %s", got, providerID, date)
			}
			authorized = true
			return nil, nil
		},
	}
	var gotProvider string
	attempts := &fakeAttempts{
		listFn: func(ctx context.Context, providerID string, windowStart, windowEnd time.Time) ([]domain.BookingAttempt, error) {
			if !authorized {
				t.Fatalf("journal read before authorization")
			}
			gotProvider = providerID
			if !windowStart.Equal(start) || !windowEnd.Equal(end) {
				t.Fatalf("window = %v..%v", windowStart, windowEnd)
			}
			return []domain.BookingAttempt{{ProviderID: providerID}}, nil
		},
	}
	svc := NewService(api, attempts, Config{}, testLogger())

	rows, err := svc.ListAttempts(context.Background(), auth, "vet-1", start, end)
	if err != nil {
		t.Fatalf("ListAttempts error: %v", err)
	}
	if len(rows) != 1 || gotProvider != "vet-1" {
		t.Fatalf("rows = %+v", rows)
	}

	if _, err := svc.ListAttempts(context.Background(), auth, "vet-1", end, start); err == nil {
		t.Fatalf("expected error for inverted window")
	}
}

func TestListAttempts_RequiresAuthorization(t *testing.T) {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	tests := []struct {
		name string
		auth backend.AuthContext
		api  *fakeAPI
	}{
		{
			name: "no token",
			auth: backend.AuthContext{UserID: "vet-1"},
			api:  &fakeAPI{},
		},
		{
			name: "api rejects caller",
			auth: backend.AuthContext{BearerToken: "someone-else"},
			api: &fakeAPI{
				listAppointmentsFn: func(ctx context.Context, auth backend.AuthContext, providerID string, date domain.DateOnly) ([]domain.ExistingAppointment, error) {
					return nil, backend.ErrUnauthorized
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.api, &fakeAttempts{}, Config{}, testLogger())

			rows, err := svc.ListAttempts(context.Background(), tt.auth, "vet-1", start, end)
			if !errors.Is(err, backend.ErrUnauthorized) {
				t.Fatalf("error = %v, want %v", err, backend.ErrUnauthorized)
			}
			if rows != nil {
				t.Fatalf("rows = %+v, want none", rows)
			}
		})
	}
}
