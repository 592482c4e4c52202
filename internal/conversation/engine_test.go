package conversation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oneviewsg/rental-ai-platform/internal/calendar"
	"github.com/oneviewsg/rental-ai-platform/internal/policy"
	"github.com/oneviewsg/rental-ai-platform/internal/properties"
	"github.com/oneviewsg/rental-ai-platform/internal/screening"
)

type fixedResolver struct {
	policy policy.Policy
}

func (r fixedResolver) Resolve(_ context.Context, _ string, _ policy.ResolveOptions) policy.Policy {
	return r.policy
}

type stubExtractor struct {
	answers map[string]string
	err     error
}

func (s stubExtractor) ExtractFieldAnswers(_ context.Context, _ []ChatMessage, _ string, _ []screening.Field) (map[string]string, error) {
	return s.answers, s.err
}

type stubReplies struct {
	reply string
	err   error
}

func (s stubReplies) GenerateReply(_ context.Context, _ []ChatMessage, _ string, _ ReplyContext) (string, error) {
	return s.reply, s.err
}

type scrapeTitle string

func (s scrapeTitle) Scrape(_ context.Context, _ string) (*properties.Listing, error) {
	return &properties.Listing{Title: string(s), Facts: map[string]string{"price": "SGD 4200/mo"}}, nil
}

type engineFixture struct {
	engine   *Engine
	states   *MemoryStateStore
	props    *properties.MemoryRepository
	bookings *calendar.MemoryStore
	now      time.Time
	loc      *time.Location
}

func newEngineFixture(t *testing.T, pol policy.Policy, extractor AnswerExtractor, replies ReplyGenerator) *engineFixture {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Singapore")
	require.NoError(t, err)
	now := time.Date(2026, 9, 2, 10, 0, 0, 0, loc) // Wednesday

	states := NewMemoryStateStore()
	props := properties.NewMemoryRepository()
	bookings := calendar.NewMemoryStore()

	handlers := NewHandlers(HandlersConfig{
		Questions: screening.NewProvider(nil, nil),
		Importer:  properties.NewImporter(props, scrapeTitle("Sunny 2BR at Tiong Bahru"), nil),
		PropRepo:  props,
		Calendar:  calendar.NewService(bookings, nil, nil),
		Replies:   replies,
		Extractor: extractor,
		Location:  loc,
		Now:       func() time.Time { return now },
	})

	engine := NewEngine(EngineConfig{
		States:   states,
		History:  NewMemoryHistoryStore(0),
		Resolver: fixedResolver{policy: pol},
		Handlers: handlers,
		Now:      func() time.Time { return now },
	})

	return &engineFixture{engine: engine, states: states, props: props, bookings: bookings, now: now, loc: loc}
}

func TestTurnGreetingAsksForBasics(t *testing.T) {
	fx := newEngineFixture(t, policy.Default(), nil, nil)

	res, err := fx.engine.ProcessMessage(context.Background(), "user-1", "+65", "hi")
	require.NoError(t, err)

	assert.Equal(t, RouteRespond, res.Phase)
	assert.Contains(t, res.Reply, "link")
	assert.Contains(t, res.Reply, "budget")
	assert.False(t, res.State.HasProperty())
}

func TestTurnListingLinkAnchorsProperty(t *testing.T) {
	fx := newEngineFixture(t, policy.Default(), nil, nil)

	res, err := fx.engine.ProcessMessage(context.Background(), "user-1", "+65",
		"Check this out https://example.com/listing-99co-3-bedroom")
	require.NoError(t, err)

	assert.Equal(t, RouteDetectProperty, res.Phase)
	assert.NotEmpty(t, res.State.PropertyID)
	assert.Contains(t, res.Reply, "Sunny 2BR at Tiong Bahru")

	// State survives to the next turn.
	reloaded, err := fx.states.Load(context.Background(), "user-1", "+65")
	require.NoError(t, err)
	assert.Equal(t, res.State.PropertyID, reloaded.PropertyID)
}

func TestTurnScreeningCompletesAndStaysComplete(t *testing.T) {
	extractor := stubExtractor{answers: map[string]string{"move_in": "1 October"}}
	fx := newEngineFixture(t, policy.Default(), extractor, nil)
	ctx := context.Background()

	seed := &ConversationState{
		PropertyID:    "prop-1",
		PropertyTitle: "Sunny 2BR at Tiong Bahru",
		ScreeningFields: []screening.Field{
			{ID: "budget", Label: "Budget", Prompt: "What's your budget?"},
			{ID: "move_in", Label: "Move-in date", Prompt: "When are you moving in?"},
		},
		ScreeningAnswers: map[string]string{"budget": "5000"},
	}
	require.NoError(t, fx.states.Save(ctx, "user-1", "+65", seed))

	res, err := fx.engine.ProcessMessage(ctx, "user-1", "+65", "I'm moving in on 1 October")
	require.NoError(t, err)

	assert.Equal(t, RouteCaptureScreeningAnswers, res.Phase)
	assert.True(t, res.State.ScreeningComplete)
	assert.Equal(t, "1 October", res.State.ScreeningAnswers["move_in"])

	// Subsequent turns never reopen screening under the same policy.
	res, err = fx.engine.ProcessMessage(ctx, "user-1", "+65", "great, thanks")
	require.NoError(t, err)
	assert.True(t, res.State.ScreeningComplete)
	assert.NotEqual(t, RoutePromptScreening, res.Phase)
	assert.NotEqual(t, RouteCaptureScreeningAnswers, res.Phase)
}

func TestTurnPartialAnswersListRemainingQuestions(t *testing.T) {
	extractor := stubExtractor{answers: map[string]string{"budget": "5000"}}
	fx := newEngineFixture(t, policy.Default(), extractor, nil)
	ctx := context.Background()

	seed := &ConversationState{
		PropertyID: "prop-1",
		ScreeningFields: []screening.Field{
			{ID: "budget", Label: "Budget", Prompt: "What's your budget?"},
			{ID: "move_in", Label: "Move-in date", Prompt: "When are you moving in?"},
		},
		ScreeningAnswers: map[string]string{"budget": "4000"},
	}
	require.NoError(t, fx.states.Save(ctx, "user-1", "+65", seed))

	res, err := fx.engine.ProcessMessage(ctx, "user-1", "+65", "my budget is 5000")
	require.NoError(t, err)

	assert.False(t, res.State.ScreeningComplete)
	assert.Contains(t, res.Reply, "Budget")
	assert.Contains(t, res.Reply, "When are you moving in?")
}

func TestTurnBooksViewingOnNextSaturday(t *testing.T) {
	fx := newEngineFixture(t, policy.Default(), nil, nil)
	ctx := context.Background()

	seed := &ConversationState{
		PropertyID:        "prop-1",
		PropertyTitle:     "Sunny 2BR at Tiong Bahru",
		ScreeningComplete: true,
		OfferedSlots:      []string{"Saturday 3 PM", "Sunday 11 AM"},
	}
	require.NoError(t, fx.states.Save(ctx, "user-1", "+6581234567", seed))

	res, err := fx.engine.ProcessMessage(ctx, "user-1", "+6581234567", "Saturday works")
	require.NoError(t, err)

	assert.Equal(t, RouteBookViewing, res.Phase)
	assert.Contains(t, res.Reply, "Saturday 3 PM")

	booked, err := fx.bookings.ListUpcoming(ctx, "user-1", "+6581234567", fx.now)
	require.NoError(t, err)
	require.Len(t, booked, 1)
	assert.Equal(t, time.Date(2026, 9, 5, 15, 0, 0, 0, fx.loc), booked[0].StartsAt)
	assert.Equal(t, "Viewing — Sunny 2BR at Tiong Bahru", booked[0].Title)
}

func TestTurnProposesWeekendSlots(t *testing.T) {
	fx := newEngineFixture(t, policy.Default(), nil, nil)
	ctx := context.Background()

	seed := &ConversationState{
		PropertyID:        "prop-1",
		PropertyTitle:     "Sunny 2BR at Tiong Bahru",
		ScreeningComplete: true,
	}
	require.NoError(t, fx.states.Save(ctx, "user-1", "+65", seed))

	res, err := fx.engine.ProcessMessage(ctx, "user-1", "+65", "yes I'd love to see it")
	require.NoError(t, err)

	assert.Equal(t, RouteProposeViewing, res.Phase)
	assert.Equal(t, []string{"Saturday 3 PM", "Sunday 11 AM"}, res.State.OfferedSlots)
}

func TestTurnManualScreeningHandsOff(t *testing.T) {
	pol := policy.Default()
	pol.AutomatedPhases = []policy.Phase{policy.PhasePropertyDetect, policy.PhasePropertyQA}
	pol.PhaseSettings.Handoff = &policy.HandoffSettings{Message: "Our agent Mei Ling will take it from here."}

	fx := newEngineFixture(t, pol, nil, nil)
	ctx := context.Background()

	seed := &ConversationState{PropertyID: "prop-1"}
	require.NoError(t, fx.states.Save(ctx, "user-1", "+65", seed))

	for _, msg := range []string{"hello", "what's the rent?", "book me in"} {
		res, err := fx.engine.ProcessMessage(ctx, "user-1", "+65", msg)
		require.NoError(t, err)
		assert.Equal(t, RouteFallback, res.Phase, "message %q", msg)
		assert.Equal(t, "Our agent Mei Ling will take it from here.", res.Reply)
	}
}

func TestTurnPersistFailureAbortsTurn(t *testing.T) {
	fx := newEngineFixture(t, policy.Default(), nil, nil)
	fx.states.FailSaves = true

	_, err := fx.engine.ProcessMessage(context.Background(), "user-1", "+65", "hi")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "turn aborted")
}

func TestTurnReplyGenerationFailureUsesCannedText(t *testing.T) {
	fx := newEngineFixture(t, policy.Default(), nil, stubReplies{err: errors.New("model down")})
	ctx := context.Background()

	seed := &ConversationState{
		PropertyID:        "prop-1",
		PropertyTitle:     "Sunny 2BR at Tiong Bahru",
		ScreeningComplete: true,
	}
	require.NoError(t, fx.states.Save(ctx, "user-1", "+65", seed))

	res, err := fx.engine.ProcessMessage(ctx, "user-1", "+65", "just saying hello again")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Reply)
	assert.False(t, strings.Contains(strings.ToLower(res.Reply), "error"))
}

type sequencedExtractor struct {
	batches []map[string]string
	call    int
}

func (s *sequencedExtractor) ExtractFieldAnswers(_ context.Context, _ []ChatMessage, _ string, _ []screening.Field) (map[string]string, error) {
	if s.call >= len(s.batches) {
		return map[string]string{}, nil
	}
	answers := s.batches[s.call]
	s.call++
	return answers, nil
}

func TestTurnScreeningCompletesFromScratch(t *testing.T) {
	extractor := &sequencedExtractor{batches: []map[string]string{
		{"move_in": "1 October", "budget": "5000"},
		{"lease_term": "12 months", "employment": "engineer", "occupants": "2"},
	}}
	fx := newEngineFixture(t, policy.Default(), extractor, nil)
	ctx := context.Background()

	res, err := fx.engine.ProcessMessage(ctx, "user-1", "+65",
		"Hi, I saw https://example.com/listing-12")
	require.NoError(t, err)
	assert.Equal(t, RouteDetectProperty, res.Phase)

	// With a property anchored and no stored questions yet, the next
	// message starts screening.
	res, err = fx.engine.ProcessMessage(ctx, "user-1", "+65", "is it still available?")
	require.NoError(t, err)
	assert.Equal(t, RoutePromptScreening, res.Phase)
	require.Len(t, res.State.ScreeningFields, 5)
	assert.Empty(t, res.State.ScreeningAnswers)
	assert.False(t, res.State.ScreeningComplete)

	// The very first answer must be captured, not met with the question
	// list again.
	res, err = fx.engine.ProcessMessage(ctx, "user-1", "+65",
		"moving in 1 October, budget around 5000")
	require.NoError(t, err)
	assert.Equal(t, RouteCaptureScreeningAnswers, res.Phase)
	assert.False(t, res.State.ScreeningComplete)
	assert.Equal(t, "5000", res.State.ScreeningAnswers["budget"])
	assert.Contains(t, res.Reply, "What's your employment type?")

	res, err = fx.engine.ProcessMessage(ctx, "user-1", "+65",
		"12 month lease, I'm an engineer, 2 of us")
	require.NoError(t, err)
	assert.Equal(t, RouteCaptureScreeningAnswers, res.Phase)
	assert.True(t, res.State.ScreeningComplete)
	assert.Equal(t, ReplyScreeningDone, res.Reply)

	// Completion is sticky on later turns.
	res, err = fx.engine.ProcessMessage(ctx, "user-1", "+65", "yes I'd love to see it")
	require.NoError(t, err)
	assert.Equal(t, RouteProposeViewing, res.Phase)
	assert.True(t, res.State.ScreeningComplete)
}
