package conversation

import (
	"context"
	"fmt"
	"time"

	"github.com/oneviewsg/rental-ai-platform/internal/observability/metrics"
	"github.com/oneviewsg/rental-ai-platform/internal/policy"
	"github.com/oneviewsg/rental-ai-platform/pkg/logging"
)

// PolicyResolver resolves the effective automation policy for a turn.
type PolicyResolver interface {
	Resolve(ctx context.Context, userID string, opts policy.ResolveOptions) policy.Policy
}

// TurnResult is what one processed inbound message produces.
type TurnResult struct {
	Reply string
	Phase RouteName
	State *ConversationState
}

// Engine is the turn runner: it loads state, routes, executes one handler,
// persists, and returns the reply. At most one turn runs concurrently per
// (userID, prospectPhone).
type Engine struct {
	states   StateStore
	history  HistoryStore
	resolver PolicyResolver
	handlers *Handlers
	locks    *keyedLocks
	metrics  *metrics.ConversationMetrics
	logger   *logging.Logger
	now      func() time.Time
}

// EngineConfig wires the engine's collaborators. Metrics may be nil.
type EngineConfig struct {
	States   StateStore
	History  HistoryStore
	Resolver PolicyResolver
	Handlers *Handlers
	Metrics  *metrics.ConversationMetrics
	Logger   *logging.Logger
	Now      func() time.Time
}

func NewEngine(cfg EngineConfig) *Engine {
	if cfg.States == nil {
		panic("conversation: state store required")
	}
	if cfg.Resolver == nil {
		panic("conversation: policy resolver required")
	}
	if cfg.Handlers == nil {
		panic("conversation: handlers required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now() }
	}
	return &Engine{
		states:   cfg.States,
		history:  cfg.History,
		resolver: cfg.Resolver,
		handlers: cfg.Handlers,
		locks:    newKeyedLocks(),
		metrics:  cfg.Metrics,
		logger:   logger,
		now:      now,
	}
}

// ProcessMessage runs one full turn for an inbound prospect message. A
// persistence failure is fatal for the turn; collaborator failures inside
// handlers degrade to canned replies instead.
func (e *Engine) ProcessMessage(ctx context.Context, userID, prospectPhone, message string) (*TurnResult, error) {
	release := e.locks.Acquire(stateKey(userID, prospectPhone))
	defer release()

	started := e.now()

	state, err := e.states.Load(ctx, userID, prospectPhone)
	if err != nil {
		e.metrics.ObserveTurn("unknown", "load_error", e.now().Sub(started).Seconds())
		return nil, fmt.Errorf("conversation: turn aborted: %w", err)
	}

	var history []ChatMessage
	if e.history != nil {
		history, err = e.history.Recent(ctx, userID, prospectPhone)
		if err != nil {
			// History is advisory grounding; a miss degrades to an empty
			// window rather than failing the turn.
			e.logger.Warn("history load failed", "user_id", userID, "error", err)
			history = nil
		}
	}

	pol := e.resolver.Resolve(ctx, userID, policy.ResolveOptions{
		ClientID:   state.ClientID,
		PropertyID: state.PropertyID,
	})

	route := Route(state, pol, message, history)
	e.logger.Debug("routed turn", "user_id", userID, "prospect", prospectPhone, "phase", string(route))

	outcome := e.handlers.Execute(ctx, route, Turn{
		UserID:        userID,
		ProspectPhone: prospectPhone,
		Message:       message,
		History:       history,
		State:         state,
		Policy:        pol,
	})

	state.Apply(outcome.Patch)

	if err := e.states.Save(ctx, userID, prospectPhone, state); err != nil {
		e.metrics.ObserveTurn(string(route), "persist_error", e.now().Sub(started).Seconds())
		return nil, fmt.Errorf("conversation: turn aborted: %w", err)
	}

	if e.history != nil {
		if err := e.history.Append(ctx, userID, prospectPhone,
			ChatMessage{Role: ChatRoleUser, Content: message},
			ChatMessage{Role: ChatRoleAssistant, Content: outcome.Reply},
		); err != nil {
			e.logger.Warn("history append failed", "user_id", userID, "error", err)
		}
	}

	e.metrics.ObserveTurn(string(route), "ok", e.now().Sub(started).Seconds())
	return &TurnResult{Reply: outcome.Reply, Phase: route, State: state}, nil
}
