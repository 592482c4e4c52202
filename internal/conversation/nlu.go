package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/oneviewsg/rental-ai-platform/internal/screening"
	"github.com/oneviewsg/rental-ai-platform/pkg/logging"
)

// ReplyContext is the grounding a generated reply may draw on.
type ReplyContext struct {
	PropertyTitle string
	PropertyFacts map[string]string
	Fields        []screening.Field
	OfferedSlots  []string
}

// ReplyGenerator produces a grounded free-text reply. Implementations must
// never claim inability to open a shared link.
type ReplyGenerator interface {
	GenerateReply(ctx context.Context, history []ChatMessage, message string, rc ReplyContext) (string, error)
}

// AnswerExtractor pulls screening answers out of a prospect message. It
// returns only field ids it is confident about; omitted ids mean not yet
// answered.
type AnswerExtractor interface {
	ExtractFieldAnswers(ctx context.Context, history []ChatMessage, message string, fields []screening.Field) (map[string]string, error)
}

// PlannedAction is what a planner proposes for flows that are not driven by
// the deterministic lead router.
type PlannedAction struct {
	Action string            `json:"action"`
	Tool   string            `json:"tool,omitempty"`
	Args   map[string]string `json:"args,omitempty"`
	Reply  string            `json:"reply,omitempty"`
}

// Planner proposes the next action for sibling conversation flows. The lead
// router never consults it; phase selection there is rule based.
type Planner interface {
	PlanNextAction(ctx context.Context, history []ChatMessage, message string) (PlannedAction, error)
}

const replySystemPrompt = `You are a friendly leasing assistant for a property rental agent in Singapore.
Reply to the prospect in one or two short WhatsApp-style sentences.
Ground every factual claim in the provided context only; if a detail is missing, say you will check.
You receive listing links as already-processed context. Never say you cannot open or access a link.`

const extractSystemPrompt = `You extract tenant screening answers from a prospect's message.
Given the numbered fields, return strict JSON mapping field id to the short answer text.
Only include fields the message clearly answers. Use "not specified" only when the prospect explicitly declines. Return {} when nothing matches.`

// LLMNLU backs the collaborator contracts with a chat model. Every call is
// bounded by a timeout and failures surface as errors for the caller's
// canned fallback.
type LLMNLU struct {
	client  LLMClient
	model   string
	timeout time.Duration
	logger  *logging.Logger
}

// NewLLMNLU creates the model-backed NLU collaborator.
func NewLLMNLU(client LLMClient, model string, timeout time.Duration, logger *logging.Logger) *LLMNLU {
	if client == nil {
		panic("conversation: llm client cannot be nil")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &LLMNLU{client: client, model: model, timeout: timeout, logger: logger}
}

// GenerateReply implements ReplyGenerator.
func (n *LLMNLU) GenerateReply(ctx context.Context, history []ChatMessage, message string, rc ReplyContext) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	var grounding strings.Builder
	if rc.PropertyTitle != "" {
		fmt.Fprintf(&grounding, "Listing: %s\n", rc.PropertyTitle)
	}
	for k, v := range rc.PropertyFacts {
		fmt.Fprintf(&grounding, "%s: %s\n", k, v)
	}
	if len(rc.OfferedSlots) > 0 {
		fmt.Fprintf(&grounding, "Offered viewing slots: %s\n", strings.Join(rc.OfferedSlots, "; "))
	}

	msgs := append(capHistory(history), ChatMessage{Role: ChatRoleUser, Content: message})
	resp, err := n.client.Complete(ctx, LLMRequest{
		Model:       n.model,
		System:      []string{replySystemPrompt, grounding.String()},
		Messages:    msgs,
		MaxTokens:   300,
		Temperature: 0.6,
	})
	if err != nil {
		return "", fmt.Errorf("conversation: reply generation: %w", err)
	}
	return resp.Text, nil
}

// ExtractFieldAnswers implements AnswerExtractor.
func (n *LLMNLU) ExtractFieldAnswers(ctx context.Context, history []ChatMessage, message string, fields []screening.Field) (map[string]string, error) {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	var fieldList strings.Builder
	for i, f := range fields {
		fmt.Fprintf(&fieldList, "%d. id=%s label=%s\n", i+1, f.ID, f.Label)
	}

	msgs := append(capHistory(history), ChatMessage{Role: ChatRoleUser, Content: message})
	resp, err := n.client.Complete(ctx, LLMRequest{
		Model:       n.model,
		System:      []string{extractSystemPrompt, "Fields:\n" + fieldList.String()},
		Messages:    msgs,
		MaxTokens:   300,
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("conversation: answer extraction: %w", err)
	}

	answers := map[string]string{}
	raw := extractJSONObject(resp.Text)
	if raw == "" {
		return answers, nil
	}
	if err := json.Unmarshal([]byte(raw), &answers); err != nil {
		n.logger.Warn("answer extraction returned malformed JSON, ignoring", "error", err)
		return map[string]string{}, nil
	}
	return answers, nil
}

// PlanNextAction implements Planner.
func (n *LLMNLU) PlanNextAction(ctx context.Context, history []ChatMessage, message string) (PlannedAction, error) {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	system := `Decide the next action for a rental assistant. Return strict JSON {"action":"respond"|"tool","tool":"","args":{},"reply":""}.`
	msgs := append(capHistory(history), ChatMessage{Role: ChatRoleUser, Content: message})
	resp, err := n.client.Complete(ctx, LLMRequest{
		Model:     n.model,
		System:    []string{system},
		Messages:  msgs,
		MaxTokens: 200,
	})
	if err != nil {
		return PlannedAction{}, fmt.Errorf("conversation: planning: %w", err)
	}

	var action PlannedAction
	raw := extractJSONObject(resp.Text)
	if raw == "" || json.Unmarshal([]byte(raw), &action) != nil || action.Action == "" {
		return PlannedAction{Action: "respond", Reply: resp.Text}, nil
	}
	return action, nil
}

func capHistory(history []ChatMessage) []ChatMessage {
	if len(history) <= DefaultHistoryWindow {
		return append([]ChatMessage(nil), history...)
	}
	return append([]ChatMessage(nil), history[len(history)-DefaultHistoryWindow:]...)
}

// extractJSONObject pulls the first top-level JSON object out of model
// output that may carry prose around it.
func extractJSONObject(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}
