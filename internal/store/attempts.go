package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"pawcare/booking/internal/domain"
)

// AttemptRepository journals booking attempts. Record with an id that already
// exists refreshes the stored outcome when the request matches and fails with
// ErrIdempotencyConflict otherwise.
type AttemptRepository interface {
	Record(ctx context.Context, attempt domain.BookingAttempt) (domain.BookingAttempt, error)
	Get(ctx context.Context, id uuid.UUID) (domain.BookingAttempt, error)
	List(ctx context.Context, providerID string, windowStart, windowEnd time.Time) ([]domain.BookingAttempt, error)
}
