package policy

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresStoreFindScoped(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	doc := []byte(`{"automatedPhases":["screening"],"maxPhase":"screening"}`)
	mock.ExpectQuery("SELECT parsed_config").
		WithArgs("user-1", "client", "client-3").
		WillReturnRows(pgxmock.NewRows([]string{"parsed_config"}).AddRow(doc))

	store := NewPostgresStore(mock)
	raw, err := store.FindScoped(context.Background(), "user-1", ScopeClient, "client-3")
	require.NoError(t, err)
	assert.Equal(t, doc, raw)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreFindScopedNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT parsed_config").
		WithArgs("user-1", "property", "prop-9").
		WillReturnRows(pgxmock.NewRows([]string{"parsed_config"}))

	store := NewPostgresStore(mock)
	_, err = store.FindScoped(context.Background(), "user-1", ScopeProperty, "prop-9")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresStoreFindScopedRejectsGlobal(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStore(mock)
	_, err = store.FindScoped(context.Background(), "user-1", ScopeGlobal, "")
	assert.Error(t, err)
}

func TestPostgresStoreFindLatestGlobal(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	doc := []byte(`{"maxPhase":"full"}`)
	mock.ExpectQuery("SELECT parsed_config").
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"parsed_config"}).AddRow(doc))

	store := NewPostgresStore(mock)
	raw, err := store.FindLatestGlobal(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, doc, raw)
}
