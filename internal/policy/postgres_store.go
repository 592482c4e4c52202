package policy

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// PgxQuerier is the subset of pgxpool.Pool the store needs. It lets tests
// substitute pgxmock.
type PgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore loads stored automation policies from the relational
// database.
type PostgresStore struct {
	db PgxQuerier
}

// NewPostgresStore initializes a store backed by pgx.
func NewPostgresStore(db PgxQuerier) *PostgresStore {
	if db == nil {
		panic("policy: pgx querier required")
	}
	return &PostgresStore{db: db}
}

// FindScoped returns the active client- or property-scoped policy document.
func (s *PostgresStore) FindScoped(ctx context.Context, userID string, scope Scope, scopeID string) ([]byte, error) {
	var column string
	switch scope {
	case ScopeClient:
		column = "client_id"
	case ScopeProperty:
		column = "property_id"
	default:
		return nil, fmt.Errorf("policy: unsupported scoped lookup %q", scope)
	}

	query := fmt.Sprintf(`
		SELECT parsed_config
		FROM bot_policies
		WHERE user_id = $1 AND scope = $2 AND %s = $3 AND is_active = TRUE
		LIMIT 1
	`, column)

	var raw []byte
	if err := s.db.QueryRow(ctx, query, userID, string(scope), scopeID).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("policy: scoped select failed: %w", err)
	}
	return raw, nil
}

// FindLatestGlobal returns the newest active global policy document for the
// user.
func (s *PostgresStore) FindLatestGlobal(ctx context.Context, userID string) ([]byte, error) {
	query := `
		SELECT parsed_config
		FROM bot_policies
		WHERE user_id = $1 AND scope = 'global' AND is_active = TRUE
		ORDER BY created_at DESC
		LIMIT 1
	`
	var raw []byte
	if err := s.db.QueryRow(ctx, query, userID).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("policy: global select failed: %w", err)
	}
	return raw, nil
}
