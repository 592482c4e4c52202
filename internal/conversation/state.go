package conversation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/oneviewsg/rental-ai-platform/internal/screening"
)

// AnswerNotSpecified is the sentinel an extractor may return for a field the
// prospect explicitly declined. It never counts as an answer.
const AnswerNotSpecified = "not specified"

// ConversationState is the per-prospect conversational memory, one record
// per (userID, prospectPhone). It is read at turn start and written back at
// turn end, last write wins.
type ConversationState struct {
	PropertyID    string `json:"propertyId,omitempty"`
	PropertyTitle string `json:"propertyTitle,omitempty"`
	PropertyURL   string `json:"propertyUrl,omitempty"`

	ScreeningFields   []screening.Field `json:"screeningFields,omitempty"`
	ScreeningAnswers  map[string]string `json:"screeningAnswers,omitempty"`
	ScreeningComplete bool              `json:"screeningComplete,omitempty"`

	OfferedSlots []string `json:"offeredSlots,omitempty"`

	ClientID string `json:"clientId,omitempty"`
}

// StatePatch is the partial update a phase handler returns. Nil fields leave
// the corresponding state untouched.
type StatePatch struct {
	PropertyID    *string
	PropertyTitle *string
	PropertyURL   *string

	ScreeningFields   []screening.Field
	ScreeningAnswers  map[string]string
	ScreeningComplete *bool

	OfferedSlots []string
}

// Apply merges the patch into the state. Answer maps merge key by key with
// new values winning; screeningComplete never transitions true to false.
func (s *ConversationState) Apply(p StatePatch) {
	if p.PropertyID != nil {
		s.PropertyID = *p.PropertyID
	}
	if p.PropertyTitle != nil {
		s.PropertyTitle = *p.PropertyTitle
	}
	if p.PropertyURL != nil {
		s.PropertyURL = *p.PropertyURL
	}
	if p.ScreeningFields != nil {
		s.ScreeningFields = p.ScreeningFields
	}
	if len(p.ScreeningAnswers) > 0 {
		if s.ScreeningAnswers == nil {
			s.ScreeningAnswers = make(map[string]string, len(p.ScreeningAnswers))
		}
		for k, v := range p.ScreeningAnswers {
			s.ScreeningAnswers[k] = v
		}
	}
	if p.ScreeningComplete != nil && !s.ScreeningComplete {
		s.ScreeningComplete = *p.ScreeningComplete
	}
	if p.OfferedSlots != nil {
		s.OfferedSlots = p.OfferedSlots
	}
}

// HasProperty reports whether a property is anchored in this conversation.
func (s *ConversationState) HasProperty() bool {
	return s != nil && s.PropertyID != ""
}

// AnswerFor looks up the captured answer for a field, matching by id or by
// label. The "not specified" sentinel and blank values do not count.
func (s *ConversationState) AnswerFor(f screening.Field) (string, bool) {
	if s == nil || len(s.ScreeningAnswers) == 0 {
		return "", false
	}
	for _, key := range []string{f.ID, f.Label} {
		if key == "" {
			continue
		}
		if v, ok := s.ScreeningAnswers[key]; ok && isRealAnswer(v) {
			return v, true
		}
	}
	return "", false
}

// HasAnyAnswer reports whether at least one field has a real captured answer.
func (s *ConversationState) HasAnyAnswer() bool {
	if s == nil {
		return false
	}
	for _, f := range s.ScreeningFields {
		if _, ok := s.AnswerFor(f); ok {
			return true
		}
	}
	return false
}

// UnansweredFields returns the fields that still lack a real answer,
// preserving question order.
func (s *ConversationState) UnansweredFields() []screening.Field {
	var out []screening.Field
	for _, f := range s.ScreeningFields {
		if _, ok := s.AnswerFor(f); !ok {
			out = append(out, f)
		}
	}
	return out
}

func isRealAnswer(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && !strings.EqualFold(v, AnswerNotSpecified)
}

// EncodeState serializes the state for persistence.
func EncodeState(s *ConversationState) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("conversation: encode state: %w", err)
	}
	return data, nil
}

// DecodeState deserializes a persisted state record. Unknown keys are
// rejected so schema drift surfaces at the persistence boundary instead of
// silently carrying opaque data forward.
func DecodeState(data []byte) (*ConversationState, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var s ConversationState
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("conversation: decode state: %w", err)
	}
	return &s, nil
}
