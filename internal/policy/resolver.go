package policy

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/oneviewsg/rental-ai-platform/pkg/logging"
)

// ErrNotFound indicates no stored policy matched the lookup.
var ErrNotFound = errors.New("policy: not found")

// Scope identifies which level of the hierarchy a stored policy applies to.
type Scope string

const (
	ScopeGlobal   Scope = "global"
	ScopeClient   Scope = "client"
	ScopeProperty Scope = "property"
)

// Store loads raw stored policy documents. Implementations return
// ErrNotFound when no active row matches.
type Store interface {
	// FindScoped returns the active policy document for a client- or
	// property-scoped lookup.
	FindScoped(ctx context.Context, userID string, scope Scope, scopeID string) ([]byte, error)
	// FindLatestGlobal returns the most recently created active global
	// policy document for the user.
	FindLatestGlobal(ctx context.Context, userID string) ([]byte, error)
}

// ResolveOptions narrows resolution to a client and/or property context.
type ResolveOptions struct {
	ClientID   string
	PropertyID string
}

// Resolver resolves the effective automation policy for a user with the
// precedence client-specific > property-specific > global > built-in default.
type Resolver struct {
	store  Store
	logger *logging.Logger
}

// NewResolver creates a policy resolver backed by the given store. A nil
// store resolves everything to the built-in default.
func NewResolver(store Store, logger *logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.Default()
	}
	return &Resolver{store: store, logger: logger}
}

// Resolve returns the effective policy. Storage and decode failures never
// propagate: the resolver logs and falls back to the built-in default so a
// broken configuration can not take the concierge down.
func (r *Resolver) Resolve(ctx context.Context, userID string, opts ResolveOptions) Policy {
	if r == nil || r.store == nil {
		return Default()
	}

	if opts.ClientID != "" {
		if p, ok := r.lookupScoped(ctx, userID, ScopeClient, opts.ClientID); ok {
			return p
		}
	}
	if opts.PropertyID != "" {
		if p, ok := r.lookupScoped(ctx, userID, ScopeProperty, opts.PropertyID); ok {
			return p
		}
	}

	raw, err := r.store.FindLatestGlobal(ctx, userID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			r.logger.Warn("policy lookup failed, using default", "user_id", userID, "scope", ScopeGlobal, "error", err)
		}
		return Default()
	}
	return r.decode(raw, userID, ScopeGlobal)
}

func (r *Resolver) lookupScoped(ctx context.Context, userID string, scope Scope, scopeID string) (Policy, bool) {
	raw, err := r.store.FindScoped(ctx, userID, scope, scopeID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			r.logger.Warn("policy lookup failed, trying next scope", "user_id", userID, "scope", scope, "error", err)
		}
		return Policy{}, false
	}
	return r.decode(raw, userID, scope), true
}

// decode parses a stored policy document. Malformed data resolves to the
// built-in default rather than an error.
func (r *Resolver) decode(raw []byte, userID string, scope Scope) Policy {
	var p Policy
	if err := json.Unmarshal(raw, &p); err != nil {
		r.logger.Warn("malformed stored policy, using default", "user_id", userID, "scope", scope, "error", err)
		return Default()
	}
	if p.MaxPhase == "" {
		p.MaxPhase = PhaseFull
	}
	if p.RequireApproval == nil {
		p.RequireApproval = map[string]bool{}
	}
	return p
}
