package phone

import (
	"context"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // register dialect
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound = errors.New("phone not found")

	// ErrVersionConflict is returned by Save when the stored version no longer
	// matches the one the caller read.
	ErrVersionConflict = errors.New("phone version conflict")
)

const (
	phoneTable     = "phone"
	colID          = "id"
	colName        = "name"
	colBookerName  = "booker_name"
	colBookingTime = "booking_time"
	colVersion     = "version"
)

// DBPool matches the methods from *pgxpool.Pool that we use.
// This allows us to mock the database in tests.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (Phone, error)
	// Save writes booker name and booking time if p.Version is still current
	// and returns the phone with its new version.
	Save(ctx context.Context, p Phone) (Phone, error)
	ListOrdered(ctx context.Context) ([]Phone, error)
}

type PostgresRepository struct {
	pool DBPool
}

func NewPostgresRepository(pool DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) FindByID(ctx context.Context, id uuid.UUID) (Phone, error) {
	var p Phone
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, booker_name, booking_time, version
		FROM phone
		WHERE id=$1
	`, id)
	if err := row.Scan(&p.ID, &p.Name, &p.BookerName, &p.BookingTime, &p.Version); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Phone{}, ErrNotFound
		}
		return Phone{}, fmt.Errorf("select phone: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) Save(ctx context.Context, p Phone) (Phone, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE phone
		SET booker_name=$2, booking_time=$3, version=version+1
		WHERE id=$1 AND version=$4
	`, p.ID, p.BookerName, p.BookingTime, p.Version)
	if err != nil {
		return Phone{}, fmt.Errorf("update phone: %w", err)
	}
	// Rows are never deleted, so no match means another writer bumped the version.
	if tag.RowsAffected() == 0 {
		return Phone{}, ErrVersionConflict
	}

	p.Version++
	return p, nil
}

func (r *PostgresRepository) ListOrdered(ctx context.Context) ([]Phone, error) {
	query, err := listQuery()
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("select phones: %w", err)
	}
	defer rows.Close()

	phones := make([]Phone, 0)
	for rows.Next() {
		var p Phone
		if err := rows.Scan(&p.ID, &p.Name, &p.BookerName, &p.BookingTime, &p.Version); err != nil {
			return nil, fmt.Errorf("scan phone: %w", err)
		}
		phones = append(phones, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return phones, nil
}

func listQuery() (string, error) {
	query, _, err := goqu.Dialect("postgres").
		From(phoneTable).
		Select(colID, colName, colBookerName, colBookingTime, colVersion).
		Order(goqu.L(`LOWER("name")`).Asc(), goqu.I(colID).Asc()).
		ToSQL()
	if err != nil {
		return "", fmt.Errorf("build list query: %w", err)
	}
	return query, nil
}
