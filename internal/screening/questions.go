package screening

import (
	"context"
	"strings"

	"github.com/oneviewsg/rental-ai-platform/internal/policy"
	"github.com/oneviewsg/rental-ai-platform/pkg/logging"
)

// MaxFields caps how many screening questions a single pass may ask.
const MaxFields = 6

// DefaultOpeningMessage introduces the questionnaire when no override is
// configured.
const DefaultOpeningMessage = "I'd love to help! A few quick questions so I can match you properly:"

// Field is one screening question. Prompt is what is sent to the prospect;
// Label is the short name used for acknowledgements and answer matching.
type Field struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Prompt string `json:"prompt,omitempty"`
}

// Questionnaire is the resolved question set for one screening pass.
type Questionnaire struct {
	OpeningMessage string
	Fields         []Field
}

// TemplateStore looks up a user's stored default questionnaire template.
// Implementations return ErrNoTemplate when the user has none.
type TemplateStore interface {
	DefaultTemplate(ctx context.Context, userID string) ([]Field, error)
}

// Provider resolves the ordered screening question set from policy override,
// stored template, or the built-in defaults, in that order.
type Provider struct {
	templates TemplateStore
	logger    *logging.Logger
}

// NewProvider creates a screening question provider. templates may be nil.
func NewProvider(templates TemplateStore, logger *logging.Logger) *Provider {
	if logger == nil {
		logger = logging.Default()
	}
	return &Provider{templates: templates, logger: logger}
}

// Questions resolves the questionnaire for a user under the given policy.
// It never fails: lookup errors degrade to the built-in defaults.
func (p *Provider) Questions(ctx context.Context, pol policy.Policy, userID string) Questionnaire {
	opening := DefaultOpeningMessage
	if s := pol.ScreeningOverride(); s != nil && strings.TrimSpace(s.OpeningMessage) != "" {
		opening = strings.TrimSpace(s.OpeningMessage)
	}

	if s := pol.ScreeningOverride(); s != nil && len(s.Questions) > 0 {
		fields := make([]Field, 0, len(s.Questions))
		for _, q := range s.Questions {
			f := normalizeField(Field{ID: q.ID, Label: q.Label, Prompt: q.Prompt})
			if f.ID == "" {
				continue
			}
			fields = append(fields, f)
		}
		if len(fields) > 0 {
			return Questionnaire{OpeningMessage: opening, Fields: capFields(fields)}
		}
	}

	if p != nil && p.templates != nil {
		stored, err := p.templates.DefaultTemplate(ctx, userID)
		if err == nil && len(stored) > 0 {
			fields := make([]Field, 0, len(stored))
			for _, f := range stored {
				normalized := normalizeField(f)
				if normalized.ID == "" {
					continue
				}
				fields = append(fields, normalized)
			}
			if len(fields) > 0 {
				return Questionnaire{OpeningMessage: opening, Fields: capFields(fields)}
			}
		}
		if err != nil && err != ErrNoTemplate {
			p.logger.Warn("screening template lookup failed, using defaults", "user_id", userID, "error", err)
		}
	}

	return Questionnaire{OpeningMessage: opening, Fields: DefaultFields()}
}

// DefaultFields returns the built-in tenant screening question set.
func DefaultFields() []Field {
	return []Field{
		{ID: "move_in", Label: "Move-in date", Prompt: "When are you looking to move in?"},
		{ID: "lease_term", Label: "Lease term (1 or 2 years)", Prompt: "Are you after a 1 or 2 year lease?"},
		{ID: "employment", Label: "Employment type", Prompt: "What's your employment type?"},
		{ID: "occupants", Label: "Number of occupants", Prompt: "How many people will be staying?"},
		{ID: "budget", Label: "Budget (SGD)", Prompt: "What's your monthly budget in SGD?"},
	}
}

// normalizeField fills missing pieces: a blank ID is slugified from the
// label, a blank prompt falls back to the label.
func normalizeField(f Field) Field {
	f.ID = strings.TrimSpace(f.ID)
	f.Label = strings.TrimSpace(f.Label)
	f.Prompt = strings.TrimSpace(f.Prompt)

	if f.ID == "" {
		f.ID = Slugify(f.Label)
	}
	if f.Label == "" {
		f.Label = f.ID
	}
	if f.Prompt == "" {
		f.Prompt = f.Label
	}
	return f
}

func capFields(fields []Field) []Field {
	if len(fields) > MaxFields {
		return fields[:MaxFields]
	}
	return fields
}

// Slugify lowercases and converts a label to a snake_case identifier.
func Slugify(s string) string {
	var b strings.Builder
	lastUnderscore := true // trim leading separators
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.TrimRight(b.String(), "_")
}
