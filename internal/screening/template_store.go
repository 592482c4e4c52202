package screening

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
)

// ErrNoTemplate indicates the user has no stored default questionnaire.
var ErrNoTemplate = errors.New("screening: no default template")

// PgxQuerier is the subset of pgxpool.Pool the store needs.
type PgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresTemplateStore loads screening templates from the relational
// database.
type PostgresTemplateStore struct {
	db PgxQuerier
}

// NewPostgresTemplateStore initializes a template store backed by pgx.
func NewPostgresTemplateStore(db PgxQuerier) *PostgresTemplateStore {
	if db == nil {
		panic("screening: pgx querier required")
	}
	return &PostgresTemplateStore{db: db}
}

// DefaultTemplate returns the fields of the user's default questionnaire.
func (s *PostgresTemplateStore) DefaultTemplate(ctx context.Context, userID string) ([]Field, error) {
	query := `
		SELECT fields
		FROM screening_templates
		WHERE user_id = $1 AND is_default = TRUE
		LIMIT 1
	`
	var raw []byte
	if err := s.db.QueryRow(ctx, query, userID).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoTemplate
		}
		return nil, fmt.Errorf("screening: template select failed: %w", err)
	}

	var fields []Field
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("screening: malformed template fields: %w", err)
	}
	return fields, nil
}

// MemoryTemplateStore is an in-memory TemplateStore for tests and local
// development.
type MemoryTemplateStore struct {
	mu        sync.RWMutex
	templates map[string][]Field
}

// NewMemoryTemplateStore creates an empty in-memory template store.
func NewMemoryTemplateStore() *MemoryTemplateStore {
	return &MemoryTemplateStore{templates: make(map[string][]Field)}
}

// Put stores the user's default questionnaire fields.
func (s *MemoryTemplateStore) Put(userID string, fields []Field) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[userID] = fields
}

// DefaultTemplate implements TemplateStore.
func (s *MemoryTemplateStore) DefaultTemplate(_ context.Context, userID string) ([]Field, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fields, ok := s.templates[userID]
	if !ok || len(fields) == 0 {
		return nil, ErrNoTemplate
	}
	return fields, nil
}
