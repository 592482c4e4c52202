package calendar

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Store persists appointments.
type Store interface {
	Create(ctx context.Context, appt *Appointment) error
	ListUpcoming(ctx context.Context, userID, prospectPhone string, after time.Time) ([]*Appointment, error)
}

// PgxQuerier is the subset of pgxpool.Pool the store needs.
type PgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresStore stores appointments in the relational database.
type PostgresStore struct {
	db PgxQuerier
}

// NewPostgresStore initializes an appointment store backed by pgx.
func NewPostgresStore(db PgxQuerier) *PostgresStore {
	if db == nil {
		panic("calendar: pgx querier required")
	}
	return &PostgresStore{db: db}
}

// Create inserts a new appointment record.
func (s *PostgresStore) Create(ctx context.Context, appt *Appointment) error {
	if appt.ID == "" {
		appt.ID = uuid.New().String()
	}
	if appt.CreatedAt.IsZero() {
		appt.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO appointments (id, user_id, prospect_phone, property_id, title, starts_at, ends_at, external_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	if _, err := s.db.Exec(ctx, query,
		appt.ID, appt.UserID, appt.ProspectPhone, appt.PropertyID, appt.Title,
		appt.StartsAt, appt.EndsAt, appt.ExternalID, appt.CreatedAt,
	); err != nil {
		return fmt.Errorf("calendar: insert failed: %w", err)
	}
	return nil
}

// ListUpcoming returns the prospect's appointments starting after the given
// time, soonest first.
func (s *PostgresStore) ListUpcoming(ctx context.Context, userID, prospectPhone string, after time.Time) ([]*Appointment, error) {
	query := `
		SELECT id, user_id, prospect_phone, property_id, title, starts_at, ends_at, external_id, created_at
		FROM appointments
		WHERE user_id = $1 AND prospect_phone = $2 AND starts_at > $3
		ORDER BY starts_at ASC
	`
	rows, err := s.db.Query(ctx, query, userID, prospectPhone, after)
	if err != nil {
		return nil, fmt.Errorf("calendar: list failed: %w", err)
	}
	defer rows.Close()

	var out []*Appointment
	for rows.Next() {
		var a Appointment
		if err := rows.Scan(&a.ID, &a.UserID, &a.ProspectPhone, &a.PropertyID, &a.Title, &a.StartsAt, &a.EndsAt, &a.ExternalID, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("calendar: scan failed: %w", err)
		}
		out = append(out, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("calendar: list scan failed: %w", err)
	}
	return out, nil
}

// MemoryStore is an in-memory Store for tests and local development.
type MemoryStore struct {
	mu    sync.RWMutex
	appts []*Appointment
}

// NewMemoryStore creates an empty in-memory appointment store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Create implements Store.
func (s *MemoryStore) Create(_ context.Context, appt *Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if appt.ID == "" {
		appt.ID = uuid.New().String()
	}
	if appt.CreatedAt.IsZero() {
		appt.CreatedAt = time.Now().UTC()
	}
	clone := *appt
	s.appts = append(s.appts, &clone)
	return nil
}

// ListUpcoming implements Store.
func (s *MemoryStore) ListUpcoming(_ context.Context, userID, prospectPhone string, after time.Time) ([]*Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Appointment
	for _, a := range s.appts {
		if a.UserID == userID && a.ProspectPhone == prospectPhone && a.StartsAt.After(after) {
			clone := *a
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}
