package prospects

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Repository stores prospects per platform user.
type Repository interface {
	// Ensure returns the prospect for the phone, creating it on first
	// contact, and refreshes last_contact_at.
	Ensure(ctx context.Context, userID, phone string) (*Prospect, error)
	GetByPhone(ctx context.Context, userID, phone string) (*Prospect, error)
	ListByUser(ctx context.Context, userID string) ([]*Prospect, error)
}

// PgxQuerier is the subset of pgxpool.Pool the repository needs.
type PgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresRepository stores prospects in the relational database.
type PostgresRepository struct {
	db PgxQuerier
}

func NewPostgresRepository(db PgxQuerier) *PostgresRepository {
	if db == nil {
		panic("prospects: pgx querier required")
	}
	return &PostgresRepository{db: db}
}

// Ensure implements Repository with an upsert on (user_id, phone).
func (r *PostgresRepository) Ensure(ctx context.Context, userID, phone string) (*Prospect, error) {
	now := time.Now().UTC()
	query := `
		INSERT INTO prospects (id, user_id, phone, name, created_at, last_contact_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (user_id, phone)
		DO UPDATE SET last_contact_at = EXCLUDED.last_contact_at
		RETURNING id, user_id, phone, name, created_at, last_contact_at
	`
	var p Prospect
	err := r.db.QueryRow(ctx, query, uuid.New().String(), userID, phone, DisplayName(phone), now).
		Scan(&p.ID, &p.UserID, &p.Phone, &p.Name, &p.CreatedAt, &p.LastContactAt)
	if err != nil {
		return nil, fmt.Errorf("prospects: ensure failed: %w", err)
	}
	return &p, nil
}

// GetByPhone implements Repository.
func (r *PostgresRepository) GetByPhone(ctx context.Context, userID, phone string) (*Prospect, error) {
	query := `
		SELECT id, user_id, phone, name, created_at, last_contact_at
		FROM prospects
		WHERE user_id = $1 AND phone = $2
	`
	var p Prospect
	err := r.db.QueryRow(ctx, query, userID, phone).
		Scan(&p.ID, &p.UserID, &p.Phone, &p.Name, &p.CreatedAt, &p.LastContactAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("prospects: select failed: %w", err)
	}
	return &p, nil
}

// ListByUser implements Repository.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*Prospect, error) {
	query := `
		SELECT id, user_id, phone, name, created_at, last_contact_at
		FROM prospects
		WHERE user_id = $1
		ORDER BY last_contact_at DESC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("prospects: list failed: %w", err)
	}
	defer rows.Close()

	var out []*Prospect
	for rows.Next() {
		var p Prospect
		if err := rows.Scan(&p.ID, &p.UserID, &p.Phone, &p.Name, &p.CreatedAt, &p.LastContactAt); err != nil {
			return nil, fmt.Errorf("prospects: scan failed: %w", err)
		}
		out = append(out, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("prospects: list scan failed: %w", err)
	}
	return out, nil
}

// InMemoryRepository is a stub Repository for tests and local development.
type InMemoryRepository struct {
	mu        sync.RWMutex
	prospects map[string]*Prospect
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{prospects: make(map[string]*Prospect)}
}

func memKey(userID, phone string) string { return userID + ":" + phone }

// Ensure implements Repository.
func (r *InMemoryRepository) Ensure(_ context.Context, userID, phone string) (*Prospect, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	if p, ok := r.prospects[memKey(userID, phone)]; ok {
		p.LastContactAt = now
		clone := *p
		return &clone, nil
	}
	p := &Prospect{
		ID:            uuid.New().String(),
		UserID:        userID,
		Phone:         phone,
		Name:          DisplayName(phone),
		CreatedAt:     now,
		LastContactAt: now,
	}
	r.prospects[memKey(userID, phone)] = p
	clone := *p
	return &clone, nil
}

// GetByPhone implements Repository.
func (r *InMemoryRepository) GetByPhone(_ context.Context, userID, phone string) (*Prospect, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.prospects[memKey(userID, phone)]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *p
	return &clone, nil
}

// ListByUser implements Repository.
func (r *InMemoryRepository) ListByUser(_ context.Context, userID string) ([]*Prospect, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Prospect
	for _, p := range r.prospects {
		if p.UserID == userID {
			clone := *p
			out = append(out, &clone)
		}
	}
	return out, nil
}
