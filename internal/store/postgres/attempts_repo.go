package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"pawcare/booking/internal/domain"
	"pawcare/booking/internal/store"
)

const (
	pgCheckViolation     = "23514"
	attemptMinutesCheck  = "booking_attempts_minutes_check"
	attemptOutcomesCheck = "booking_attempts_outcome_check"
)

var ErrInvalidAttempt = errors.New("invalid booking attempt")

type AttemptRepo struct {
	db *bun.DB
}

func NewAttemptRepo(db *bun.DB) *AttemptRepo {
	return &AttemptRepo{db: db}
}

func (r *AttemptRepo) Record(ctx context.Context, attempt domain.BookingAttempt) (domain.BookingAttempt, error) {
	var out domain.BookingAttempt
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		a, err := recordAttempt(ctx, tx, attempt)
		if err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return domain.BookingAttempt{}, err
	}
	return out, nil
}

func (r *AttemptRepo) Get(ctx context.Context, id uuid.UUID) (domain.BookingAttempt, error) {
	return getAttempt(ctx, r.db, id)
}

func (r *AttemptRepo) List(ctx context.Context, providerID string, windowStart, windowEnd time.Time) ([]domain.BookingAttempt, error) {
	return listAttempts(ctx, r.db, providerID, windowStart, windowEnd)
}

func recordAttempt(ctx context.Context, db bun.IDB, attempt domain.BookingAttempt) (domain.BookingAttempt, error) {
	m := attempt
	m.Date = attempt.Date.UTC()

	res, err := db.NewInsert().
		Model(&m).
		On("CONFLICT (id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgCheckViolation {
			switch pgErr.ConstraintName {
			case attemptMinutesCheck, attemptOutcomesCheck:
				return domain.BookingAttempt{}, fmt.Errorf("%w: %s", ErrInvalidAttempt, pgErr.ConstraintName)
			}
		}
		return domain.BookingAttempt{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.BookingAttempt{}, err
	}
	if affected == 1 {
		return m, nil
	}

	var existing domain.BookingAttempt
	err = db.NewSelect().
		Model(&existing).
		Where("id = ?", m.ID).
		For("UPDATE").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.BookingAttempt{}, err
	}

	merged, changed, err := mergeAttempt(existing, m)
	if err != nil {
		return domain.BookingAttempt{}, err
	}
	if !changed {
		return existing, nil
	}
	_, err = db.NewUpdate().
		Model(&merged).
		Column("precheck", "outcome", "appointment_id").
		WherePK().
		Exec(ctx)
	if err != nil {
		return domain.BookingAttempt{}, err
	}
	return merged, nil
}

// mergeAttempt folds a repeated attempt into the stored row. Only the
// pre-check and outcome fields may change; a created or updated outcome is
// never downgraded.
func mergeAttempt(existing, incoming domain.BookingAttempt) (domain.BookingAttempt, bool, error) {
	if !existing.SameRequest(incoming) {
		return domain.BookingAttempt{}, false, store.ErrIdempotencyConflict
	}
	if settled(existing.Outcome) {
		return existing, false, nil
	}

	merged := existing
	merged.Precheck = incoming.Precheck
	merged.Outcome = incoming.Outcome
	if incoming.AppointmentID != "" {
		merged.AppointmentID = incoming.AppointmentID
	}
	changed := merged.Precheck != existing.Precheck ||
		merged.Outcome != existing.Outcome ||
		merged.AppointmentID != existing.AppointmentID
	return merged, changed, nil
}

func settled(o domain.AttemptOutcome) bool {
	return o == domain.AttemptOutcomeCreated || o == domain.AttemptOutcomeUpdated
}

func getAttempt(ctx context.Context, db bun.IDB, id uuid.UUID) (domain.BookingAttempt, error) {
	var row domain.BookingAttempt
	err := db.NewSelect().
		Model(&row).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.BookingAttempt{}, store.ErrNotFound
		}
		return domain.BookingAttempt{}, err
	}
	return row, nil
}

func listAttempts(ctx context.Context, db bun.IDB, providerID string, windowStart, windowEnd time.Time) ([]domain.BookingAttempt, error) {
	var rows []domain.BookingAttempt
	err := db.NewSelect().
		Model(&rows).
		Where("provider_id = ?", providerID).
		Where("created_at >= ?", windowStart).
		Where("created_at < ?", windowEnd).
		OrderExpr("created_at ASC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
