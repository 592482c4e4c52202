package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func screeningOnly() Policy {
	return Policy{
		AutomatedPhases: []Phase{PhaseScreening},
		MaxPhase:        PhaseScreening,
		RequireApproval: map[string]bool{},
	}
}

func TestResolvePrecedence(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	global := Default()
	global.MaxPhase = PhasePropertyQA
	require.NoError(t, store.Put("user-1", ScopeGlobal, "", global))

	propertyScoped := screeningOnly()
	require.NoError(t, store.Put("user-1", ScopeProperty, "prop-9", propertyScoped))

	clientScoped := Policy{AutomatedPhases: []Phase{PhaseScreening, PhasePropertyQA}, MaxPhase: PhaseFull}
	require.NoError(t, store.Put("user-1", ScopeClient, "client-3", clientScoped))

	r := NewResolver(store, nil)

	// Client scope wins over property scope and global.
	got := r.Resolve(ctx, "user-1", ResolveOptions{ClientID: "client-3", PropertyID: "prop-9"})
	assert.Equal(t, PhaseFull, got.MaxPhase)

	// Property scope wins over global when no matching client policy.
	got = r.Resolve(ctx, "user-1", ResolveOptions{ClientID: "client-unknown", PropertyID: "prop-9"})
	assert.Equal(t, PhaseScreening, got.MaxPhase)

	// Global when neither scoped policy matches.
	got = r.Resolve(ctx, "user-1", ResolveOptions{})
	assert.Equal(t, PhasePropertyQA, got.MaxPhase)
}

func TestResolveNewestGlobalWins(t *testing.T) {
	store := NewMemoryStore()
	older := screeningOnly()
	require.NoError(t, store.Put("user-1", ScopeGlobal, "", older))
	newer := Default()
	require.NoError(t, store.Put("user-1", ScopeGlobal, "", newer))

	got := NewResolver(store, nil).Resolve(context.Background(), "user-1", ResolveOptions{})
	assert.Equal(t, PhaseFull, got.MaxPhase)
}

func TestResolveFallsBackToDefault(t *testing.T) {
	r := NewResolver(NewMemoryStore(), nil)
	got := r.Resolve(context.Background(), "user-without-config", ResolveOptions{})
	assert.Equal(t, Default(), got)

	// Nil store also resolves to the default.
	assert.Equal(t, Default(), NewResolver(nil, nil).Resolve(context.Background(), "anyone", ResolveOptions{}))
}

func TestResolveMalformedDocumentUsesDefault(t *testing.T) {
	store := NewMemoryStore()
	store.PutRaw("user-1", ScopeGlobal, "", []byte(`{"automatedPhases": "oops"`))

	got := NewResolver(store, nil).Resolve(context.Background(), "user-1", ResolveOptions{})
	assert.Equal(t, Default(), got)
}

func TestResolveNormalizesPartialDocument(t *testing.T) {
	store := NewMemoryStore()
	store.PutRaw("user-1", ScopeGlobal, "", []byte(`{"automatedPhases":["screening"]}`))

	got := NewResolver(store, nil).Resolve(context.Background(), "user-1", ResolveOptions{})
	assert.Equal(t, PhaseFull, got.MaxPhase)
	assert.NotNil(t, got.RequireApproval)
	assert.True(t, IsPhaseAutomated(got, PhaseScreening))
	assert.False(t, IsPhaseAutomated(got, PhaseViewingBooking))
}
