package sequence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrUnknownPhone is returned when no phone row exists for the requested id.
var ErrUnknownPhone = errors.New("unknown phone")

const foreignKeyViolation = "23503"

type Store interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository numbers the events of each phone in the event_sequence table.
type Repository struct {
	store Store
}

func NewRepository(store Store) *Repository {
	return &Repository{store: store}
}

// Next reserves the next event number for phoneID. The first event of a
// phone gets 1.
func (r *Repository) Next(ctx context.Context, phoneID uuid.UUID) (int64, error) {
	var seq int64
	err := r.store.QueryRow(ctx, `
		INSERT INTO event_sequence (phone_id, last_sequence)
		VALUES ($1, 1)
		ON CONFLICT (phone_id)
		DO UPDATE SET last_sequence = event_sequence.last_sequence + 1, updated_at = now()
		RETURNING last_sequence
	`, phoneID).Scan(&seq)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return 0, fmt.Errorf("next event number for phone %s: %w: %w", phoneID, ErrUnknownPhone, err)
		}
		return 0, fmt.Errorf("next event number for phone %s: %w", phoneID, err)
	}
	return seq, nil
}
