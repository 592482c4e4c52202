package properties

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound indicates no property matched the lookup.
var ErrNotFound = errors.New("properties: not found")

// Repository persists listings for a platform user.
type Repository interface {
	Create(ctx context.Context, p *Property) error
	GetByID(ctx context.Context, userID, id string) (*Property, error)
	FindByNormalizedURL(ctx context.Context, userID, normalizedURL string) (*Property, error)
	FindByTitle(ctx context.Context, userID, title string) (*Property, error)
	ListByUser(ctx context.Context, userID string) ([]*Property, error)
}

// PgxQuerier is the subset of pgxpool.Pool the repository needs.
type PgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresRepository stores properties in the relational database.
type PostgresRepository struct {
	db PgxQuerier
}

// NewPostgresRepository initializes a property repository backed by pgx.
func NewPostgresRepository(db PgxQuerier) *PostgresRepository {
	if db == nil {
		panic("properties: pgx querier required")
	}
	return &PostgresRepository{db: db}
}

// Create inserts a new property record.
func (r *PostgresRepository) Create(ctx context.Context, p *Property) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	facts, err := json.Marshal(p.Facts)
	if err != nil {
		return fmt.Errorf("properties: marshal facts: %w", err)
	}

	query := `
		INSERT INTO properties (id, user_id, title, source_url, normalized_url, address, facts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	if _, err := r.db.Exec(ctx, query,
		p.ID, p.UserID, p.Title, p.SourceURL, p.NormalizedURL, p.Address, facts, p.CreatedAt, p.UpdatedAt,
	); err != nil {
		return fmt.Errorf("properties: insert failed: %w", err)
	}
	return nil
}

// GetByID fetches one property owned by the user.
func (r *PostgresRepository) GetByID(ctx context.Context, userID, id string) (*Property, error) {
	query := selectColumns + ` WHERE user_id = $1 AND id = $2`
	return r.scanOne(r.db.QueryRow(ctx, query, userID, id))
}

// FindByNormalizedURL fetches the property with the given canonical URL.
func (r *PostgresRepository) FindByNormalizedURL(ctx context.Context, userID, normalizedURL string) (*Property, error) {
	query := selectColumns + ` WHERE user_id = $1 AND normalized_url = $2`
	return r.scanOne(r.db.QueryRow(ctx, query, userID, normalizedURL))
}

// FindByTitle fetches the property matching a title, case-insensitively.
func (r *PostgresRepository) FindByTitle(ctx context.Context, userID, title string) (*Property, error) {
	query := selectColumns + ` WHERE user_id = $1 AND LOWER(title) = LOWER($2)`
	return r.scanOne(r.db.QueryRow(ctx, query, userID, title))
}

// ListByUser returns the user's properties, newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*Property, error) {
	query := selectColumns + ` WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("properties: list failed: %w", err)
	}
	defer rows.Close()

	var out []*Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("properties: list scan failed: %w", err)
	}
	return out, nil
}

const selectColumns = `
	SELECT id, user_id, title, source_url, normalized_url, address, facts, created_at, updated_at
	FROM properties`

func (r *PostgresRepository) scanOne(row pgx.Row) (*Property, error) {
	p, err := scanProperty(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func scanProperty(row pgx.Row) (*Property, error) {
	var p Property
	var facts []byte
	if err := row.Scan(&p.ID, &p.UserID, &p.Title, &p.SourceURL, &p.NormalizedURL, &p.Address, &facts, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("properties: scan failed: %w", err)
	}
	if len(facts) > 0 {
		if err := json.Unmarshal(facts, &p.Facts); err != nil {
			return nil, fmt.Errorf("properties: malformed facts: %w", err)
		}
	}
	return &p, nil
}

// MemoryRepository is an in-memory Repository for tests and local
// development.
type MemoryRepository struct {
	mu    sync.RWMutex
	byID  map[string]*Property
	order []string
}

// NewMemoryRepository creates an empty in-memory property repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[string]*Property)}
}

// Create implements Repository.
func (r *MemoryRepository) Create(_ context.Context, p *Property) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	clone := *p
	r.byID[p.ID] = &clone
	r.order = append(r.order, p.ID)
	return nil
}

// GetByID implements Repository.
func (r *MemoryRepository) GetByID(_ context.Context, userID, id string) (*Property, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[id]
	if !ok || p.UserID != userID {
		return nil, ErrNotFound
	}
	clone := *p
	return &clone, nil
}

// FindByNormalizedURL implements Repository.
func (r *MemoryRepository) FindByNormalizedURL(_ context.Context, userID, normalizedURL string) (*Property, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.order {
		p := r.byID[id]
		if p.UserID == userID && p.NormalizedURL == normalizedURL && normalizedURL != "" {
			clone := *p
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

// FindByTitle implements Repository.
func (r *MemoryRepository) FindByTitle(_ context.Context, userID, title string) (*Property, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.order {
		p := r.byID[id]
		if p.UserID == userID && strings.EqualFold(p.Title, title) {
			clone := *p
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

// ListByUser implements Repository.
func (r *MemoryRepository) ListByUser(_ context.Context, userID string) ([]*Property, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Property
	for i := len(r.order) - 1; i >= 0; i-- {
		p := r.byID[r.order[i]]
		if p.UserID == userID {
			clone := *p
			out = append(out, &clone)
		}
	}
	return out, nil
}
