package conversation

import (
	"github.com/oneviewsg/rental-ai-platform/internal/policy"
)

// RouteName identifies the phase handler chosen for a turn.
type RouteName string

const (
	RouteDetectProperty          RouteName = "detect_property"
	RoutePromptScreening         RouteName = "prompt_screening"
	RouteCaptureScreeningAnswers RouteName = "capture_screening_answers"
	RouteAnswerPropertyQuestion  RouteName = "answer_property_question"
	RouteProposeViewing          RouteName = "propose_viewing"
	RouteBookViewing             RouteName = "book_viewing"
	RouteRespond                 RouteName = "respond"
	RouteFallback                RouteName = "fallback"
)

// Route picks exactly one phase handler for the turn. It is a pure function
// of state, policy, message, and recent history, evaluated in a fixed
// priority order. The ordering is the core business logic: property
// anchoring first, then the screening gate, then post-screening phases.
func Route(state *ConversationState, pol policy.Policy, message string, history []ChatMessage) RouteName {
	hasURL := ExtractURL(message) != "" || LastURLInHistory(history) != ""

	// Property anchoring first.
	if !state.HasProperty() &&
		policy.IsPhaseAutomated(pol, policy.PhasePropertyDetect) &&
		policy.MayProceed(pol, policy.PhasePropertyDetect, policy.ApprovalBeforePropertyAdd) &&
		(hasURL || ShowsListingInterest(message)) {
		return RouteDetectProperty
	}

	// Screening gate.
	if !state.ScreeningComplete {
		if !policy.IsPhaseAutomated(pol, policy.PhaseScreening) {
			return RouteFallback
		}
		if !state.HasProperty() && !hasURL {
			// Do not start screening blind; ask for a link first.
			return RouteRespond
		}
		if !policy.MayProceed(pol, policy.PhaseScreening, policy.ApprovalBeforeScreening) {
			return RouteFallback
		}
		if len(state.ScreeningFields) > 0 {
			// Mid-screening: the question list is already stored, so this
			// message is a response to it. The capture handler re-asks
			// whatever remains unanswered.
			return RouteCaptureScreeningAnswers
		}
		return RoutePromptScreening
	}

	// Post-screening phases.
	if IsPropertyQuestion(message) &&
		(state.HasProperty() || hasURL) &&
		policy.IsPhaseAutomated(pol, policy.PhasePropertyQA) &&
		policy.MayProceed(pol, policy.PhasePropertyQA, "") {
		return RouteAnswerPropertyQuestion
	}

	if (IsBookingAffirmation(message) || MentionsDayOrTime(message)) &&
		len(state.OfferedSlots) > 0 &&
		policy.IsPhaseAutomated(pol, policy.PhaseViewingBooking) {
		if policy.MayProceed(pol, policy.PhaseViewingBooking, policy.ApprovalBeforeViewingBooking) {
			return RouteBookViewing
		}
		return RouteFallback
	}

	if state.HasProperty() &&
		len(state.OfferedSlots) == 0 &&
		policy.IsPhaseAutomated(pol, policy.PhaseViewingProposal) &&
		policy.MayProceed(pol, policy.PhaseViewingProposal, policy.ApprovalBeforeViewingProposal) &&
		(IsPropertyQuestion(message) || IsBookingAffirmation(message)) {
		return RouteProposeViewing
	}

	return RouteRespond
}
