package conversation

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/oneviewsg/rental-ai-platform/internal/calendar"
	"github.com/oneviewsg/rental-ai-platform/internal/policy"
	"github.com/oneviewsg/rental-ai-platform/internal/properties"
	"github.com/oneviewsg/rental-ai-platform/internal/screening"
	"github.com/oneviewsg/rental-ai-platform/pkg/logging"
)

// Canned replies used when a collaborator fails or context is missing. They
// keep the conversation moving without surfacing internal errors.
const (
	ReplyAskForLink = "Could you share the PropertyGuru or 99.co link, or the listing name/address? Then I can pull up the details for you."

	ReplyAskForAnotherLink = "Hmm, I couldn't open that listing. Could you share another link, or the listing name and address?"

	ReplyAskForBasics = "Happy to help you find a place! Could you share a listing link, or the area, number of bedrooms, and budget you have in mind?"

	ReplyScreeningDone = "Perfect, that's everything I need for now. Thanks!"

	ReplyHandoffDefault = "Thanks for reaching out! Let me connect you with my colleague who can help from here."

	ReplyGenericFallback = "Got it! Let me check and get back to you shortly."
)

// Turn carries everything a phase handler may consult for one inbound
// message.
type Turn struct {
	UserID        string
	ProspectPhone string
	Message       string
	History       []ChatMessage
	State         *ConversationState
	Policy        policy.Policy
}

// Outcome is what a handler hands back to the turn runner: a state patch and
// the reply text. Handlers never call each other or the router.
type Outcome struct {
	Patch StatePatch
	Reply string
}

// Handlers executes the phase chosen by the router, one method per phase.
type Handlers struct {
	questions *screening.Provider
	importer  *properties.Importer
	propRepo  properties.Repository
	calendar  *calendar.Service
	replies   ReplyGenerator
	extractor AnswerExtractor
	loc       *time.Location
	logger    *logging.Logger
	now       func() time.Time
}

// HandlersConfig wires the collaborators the phase handlers depend on.
type HandlersConfig struct {
	Questions *screening.Provider
	Importer  *properties.Importer
	PropRepo  properties.Repository
	Calendar  *calendar.Service
	Replies   ReplyGenerator
	Extractor AnswerExtractor
	Location  *time.Location
	Logger    *logging.Logger
	Now       func() time.Time
}

// NewHandlers builds the handler set. Replies and Extractor may be nil; the
// handlers then answer with canned text only.
func NewHandlers(cfg HandlersConfig) *Handlers {
	if cfg.Questions == nil {
		panic("conversation: screening provider required")
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now() }
	}
	return &Handlers{
		questions: cfg.Questions,
		importer:  cfg.Importer,
		propRepo:  cfg.PropRepo,
		calendar:  cfg.Calendar,
		replies:   cfg.Replies,
		extractor: cfg.Extractor,
		loc:       loc,
		logger:    logger,
		now:       now,
	}
}

// Execute dispatches to the handler for the routed phase.
func (h *Handlers) Execute(ctx context.Context, route RouteName, t Turn) Outcome {
	switch route {
	case RouteDetectProperty:
		return h.DetectProperty(ctx, t)
	case RoutePromptScreening:
		return h.PromptScreening(ctx, t)
	case RouteCaptureScreeningAnswers:
		return h.CaptureScreeningAnswers(ctx, t)
	case RouteAnswerPropertyQuestion:
		return h.AnswerPropertyQuestion(ctx, t)
	case RouteProposeViewing:
		return h.ProposeViewing(ctx, t)
	case RouteBookViewing:
		return h.BookViewing(ctx, t)
	case RouteFallback:
		return h.Fallback(ctx, t)
	default:
		return h.Respond(ctx, t)
	}
}

// DetectProperty anchors a listing in the conversation from a URL in the
// message or recent history.
func (h *Handlers) DetectProperty(ctx context.Context, t Turn) Outcome {
	url := ExtractURL(t.Message)
	if url == "" {
		url = LastURLInHistory(t.History)
	}
	if url == "" {
		return Outcome{Reply: ReplyAskForLink}
	}
	if h.importer == nil {
		return Outcome{Reply: ReplyAskForLink}
	}

	res, err := h.importer.ImportByURL(ctx, t.UserID, url)
	if err != nil {
		h.logger.Warn("property import failed", "user_id", t.UserID, "url", url, "error", err)
		return Outcome{Reply: ReplyAskForAnotherLink}
	}

	p := res.Property
	return Outcome{
		Patch: StatePatch{
			PropertyID:    &p.ID,
			PropertyTitle: &p.Title,
			PropertyURL:   &p.SourceURL,
		},
		Reply: fmt.Sprintf("Got it, that's %s. Happy to answer any questions or line up a viewing!", p.Title),
	}
}

// PromptScreening starts a screening pass: the question list is resolved
// fresh each time so configuration edits between turns take effect.
func (h *Handlers) PromptScreening(ctx context.Context, t Turn) Outcome {
	q := h.questions.Questions(ctx, t.Policy, t.UserID)

	var b strings.Builder
	b.WriteString(q.OpeningMessage)
	for i, f := range q.Fields {
		fmt.Fprintf(&b, "\n%d. %s", i+1, f.Prompt)
	}

	complete := false
	return Outcome{
		Patch: StatePatch{
			ScreeningFields:   q.Fields,
			ScreeningComplete: &complete,
		},
		Reply: b.String(),
	}
}

// CaptureScreeningAnswers merges extracted answers into state and either
// asks the remaining questions or marks screening complete.
func (h *Handlers) CaptureScreeningAnswers(ctx context.Context, t Turn) Outcome {
	fields := t.State.ScreeningFields
	if len(fields) == 0 {
		fields = h.questions.Questions(ctx, t.Policy, t.UserID).Fields
	}

	extracted := map[string]string{}
	if h.extractor != nil {
		var err error
		extracted, err = h.extractor.ExtractFieldAnswers(ctx, t.History, t.Message, fields)
		if err != nil {
			h.logger.Warn("answer extraction failed", "user_id", t.UserID, "error", err)
			extracted = map[string]string{}
		}
	}

	// Merge onto a scratch copy to decide what remains.
	merged := *t.State
	merged.ScreeningFields = fields
	merged.Apply(StatePatch{ScreeningAnswers: extracted})

	var answeredLabels []string
	for _, f := range fields {
		if _, ok := merged.AnswerFor(f); ok {
			answeredLabels = append(answeredLabels, f.Label)
		}
	}
	remaining := merged.UnansweredFields()

	if len(remaining) == 0 {
		complete := true
		return Outcome{
			Patch: StatePatch{
				ScreeningFields:   fields,
				ScreeningAnswers:  extracted,
				ScreeningComplete: &complete,
			},
			Reply: ReplyScreeningDone,
		}
	}

	var b strings.Builder
	if len(answeredLabels) > 0 {
		fmt.Fprintf(&b, "Thanks, noted: %s. ", strings.Join(answeredLabels, ", "))
	}
	b.WriteString("Just a few more:")
	for i, f := range remaining {
		fmt.Fprintf(&b, "\n%d. %s", i+1, f.Prompt)
	}

	complete := false
	return Outcome{
		Patch: StatePatch{
			ScreeningFields:   fields,
			ScreeningAnswers:  extracted,
			ScreeningComplete: &complete,
		},
		Reply: b.String(),
	}
}

// AnswerPropertyQuestion answers a listing-attribute question grounded in
// the stored property facts relevant to what was asked.
func (h *Handlers) AnswerPropertyQuestion(ctx context.Context, t Turn) Outcome {
	state := t.State
	patch := StatePatch{}

	if !state.HasProperty() {
		url := ExtractURL(t.Message)
		if url == "" {
			url = LastURLInHistory(t.History)
		}
		if url == "" || h.importer == nil {
			return Outcome{Reply: ReplyAskForLink}
		}
		res, err := h.importer.ImportByURL(ctx, t.UserID, url)
		if err != nil {
			h.logger.Warn("property import failed", "user_id", t.UserID, "url", url, "error", err)
			return Outcome{Reply: ReplyAskForAnotherLink}
		}
		p := res.Property
		patch.PropertyID = &p.ID
		patch.PropertyTitle = &p.Title
		patch.PropertyURL = &p.SourceURL
		state = &ConversationState{}
		*state = *t.State
		state.Apply(patch)
	}

	var facts map[string]string
	title := state.PropertyTitle
	if h.propRepo != nil {
		p, err := h.propRepo.GetByID(ctx, t.UserID, state.PropertyID)
		if err != nil {
			h.logger.Warn("property lookup failed", "user_id", t.UserID, "property_id", state.PropertyID, "error", err)
		} else {
			title = p.Title
			facts = filterFacts(p.Facts, QuestionCategories(t.Message))
		}
	}

	reply := h.generateReply(ctx, t, ReplyContext{PropertyTitle: title, PropertyFacts: facts}, cannedFactReply(title, facts))
	return Outcome{Patch: patch, Reply: reply}
}

// ProposeViewing offers the standard pair of weekend slots.
func (h *Handlers) ProposeViewing(ctx context.Context, t Turn) Outcome {
	slots := NextWeekendSlots(h.now(), h.loc)
	labels := make([]string, 0, len(slots))
	for _, s := range slots {
		labels = append(labels, s.Label)
	}

	reply := ""
	if v := t.Policy.ViewingOverride(); v != nil && strings.TrimSpace(v.ProposalMessage) != "" {
		reply = substituteSlots(v.ProposalMessage, labels)
	} else {
		canned := fmt.Sprintf("Would you like to view %s? I have %s available.", orPlace(t.State.PropertyTitle), strings.Join(labels, " or "))
		reply = h.generateReply(ctx, t, ReplyContext{PropertyTitle: t.State.PropertyTitle, OfferedSlots: labels}, canned)
	}

	return Outcome{
		Patch: StatePatch{OfferedSlots: labels},
		Reply: reply,
	}
}

// BookViewing matches the prospect's choice against the offered slots and
// books the appointment. Booking failure never blocks the reply.
func (h *Handlers) BookViewing(ctx context.Context, t Turn) Outcome {
	offered := t.State.OfferedSlots
	if len(offered) == 0 {
		for _, s := range NextWeekendSlots(h.now(), h.loc) {
			offered = append(offered, s.Label)
		}
	}

	chosen, _ := MatchOfferedSlot(t.Message, offered)

	duration := DefaultSlotDuration
	if v := t.Policy.ViewingOverride(); v != nil && v.SlotDurationMins > 0 {
		duration = time.Duration(v.SlotDurationMins) * time.Minute
	}

	start, _, err := ResolveSlot(chosen, h.now(), h.loc, duration)
	if err != nil {
		h.logger.Warn("slot resolution failed", "slot", chosen, "error", err)
		return Outcome{Reply: fmt.Sprintf("Just to confirm, which slot works for you: %s?", strings.Join(offered, " or "))}
	}

	if h.calendar != nil {
		if _, err := h.calendar.BookAppointment(ctx, calendar.BookingRequest{
			UserID:        t.UserID,
			ProspectPhone: t.ProspectPhone,
			PropertyID:    t.State.PropertyID,
			PropertyTitle: t.State.PropertyTitle,
			StartsAt:      start,
			Duration:      duration,
		}); err != nil {
			h.logger.Warn("viewing booking failed, confirming anyway", "user_id", t.UserID, "error", err)
		}
	}

	reply := ""
	if v := t.Policy.ViewingOverride(); v != nil && strings.TrimSpace(v.ConfirmationMessage) != "" {
		reply = substituteSlots(v.ConfirmationMessage, []string{chosen})
	} else {
		reply = fmt.Sprintf("You're all set for %s, %s. See you there!", chosen, start.Format("2 Jan"))
	}
	return Outcome{Reply: reply}
}

// Respond gives a general conversational reply grounded in whatever context
// is already known.
func (h *Handlers) Respond(ctx context.Context, t Turn) Outcome {
	if !t.State.HasProperty() {
		return Outcome{Reply: ReplyAskForBasics}
	}
	rc := ReplyContext{
		PropertyTitle: t.State.PropertyTitle,
		Fields:        t.State.ScreeningFields,
		OfferedSlots:  t.State.OfferedSlots,
	}
	return Outcome{Reply: h.generateReply(ctx, t, rc, ReplyGenericFallback)}
}

// Fallback hands the conversation to a human. No state mutation.
func (h *Handlers) Fallback(_ context.Context, t Turn) Outcome {
	msg := t.Policy.HandoffMessage()
	if strings.TrimSpace(msg) == "" {
		msg = ReplyHandoffDefault
	}
	return Outcome{Reply: msg}
}

// generateReply uses the reply collaborator with a canned fallback on any
// failure.
func (h *Handlers) generateReply(ctx context.Context, t Turn, rc ReplyContext, canned string) string {
	if h.replies == nil {
		return canned
	}
	reply, err := h.replies.GenerateReply(ctx, t.History, t.Message, rc)
	if err != nil || strings.TrimSpace(reply) == "" {
		if err != nil {
			h.logger.Warn("reply generation failed, using canned text", "user_id", t.UserID, "error", err)
		}
		return canned
	}
	return reply
}

func filterFacts(facts map[string]string, categories []string) map[string]string {
	if len(facts) == 0 || len(categories) == 0 {
		return facts
	}
	out := make(map[string]string)
	for _, c := range categories {
		if v, ok := facts[c]; ok {
			out[c] = v
		}
	}
	if len(out) == 0 {
		return facts
	}
	return out
}

func cannedFactReply(title string, facts map[string]string) string {
	if len(facts) == 0 {
		return fmt.Sprintf("Let me double-check that detail on %s and get right back to you.", orPlace(title))
	}
	parts := make([]string, 0, len(facts))
	seen := make(map[string]bool, len(facts))
	for _, c := range factCategories {
		if v, ok := facts[c.name]; ok {
			parts = append(parts, fmt.Sprintf("%s: %s", c.name, v))
			seen[c.name] = true
		}
	}
	// Facts outside the known categories follow in a stable order.
	rest := make([]string, 0, len(facts))
	for k := range facts {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		parts = append(parts, fmt.Sprintf("%s: %s", k, facts[k]))
	}
	return fmt.Sprintf("For %s: %s.", orPlace(title), strings.Join(parts, ", "))
}

func orPlace(title string) string {
	if strings.TrimSpace(title) == "" {
		return "the listing"
	}
	return title
}

// substituteSlots replaces {slot1}, {slot2}, and {slots} placeholders in a
// configured template.
func substituteSlots(template string, labels []string) string {
	out := template
	for i, label := range labels {
		out = strings.ReplaceAll(out, fmt.Sprintf("{slot%d}", i+1), label)
	}
	out = strings.ReplaceAll(out, "{slots}", strings.Join(labels, " or "))
	return out
}
