package policy

// Phase names a stage of the lead-qualification conversation.
type Phase string

const (
	PhaseNone             Phase = "none"
	PhaseScreening        Phase = "screening"
	PhasePropertyDetect   Phase = "property_detection"
	PhasePropertyQA       Phase = "property_qa"
	PhaseViewingProposal  Phase = "viewing_proposal"
	PhaseViewingBooking   Phase = "viewing_booking"
	PhaseFull             Phase = "full"
	PhaseFollowup         Phase = "followup"
)

// Approval keys used in Policy.RequireApproval.
const (
	ApprovalBeforeScreening       = "before_screening"
	ApprovalBeforePropertyAdd     = "before_property_add"
	ApprovalBeforeViewingProposal = "before_viewing_proposal"
	ApprovalBeforeViewingBooking  = "before_viewing_booking"
)

// phaseRank is the fixed total order used by MayProceed. Followup sits outside
// the progression and is gated only by AutomatedPhases membership.
var phaseRank = map[Phase]int{
	PhaseNone:            0,
	PhaseScreening:       1,
	PhasePropertyDetect:  2,
	PhasePropertyQA:      3,
	PhaseViewingProposal: 4,
	PhaseViewingBooking:  5,
	PhaseFull:            6,
}

// ScreeningQuestion is a custom screening question configured on a policy.
type ScreeningQuestion struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Prompt string `json:"prompt"`
}

// ScreeningSettings customizes the screening phase.
type ScreeningSettings struct {
	OpeningMessage string              `json:"openingMessage,omitempty"`
	Questions      []ScreeningQuestion `json:"questions,omitempty"`
}

// ViewingSettings customizes viewing proposal and booking.
type ViewingSettings struct {
	ProposalMessage     string `json:"proposalMessage,omitempty"`
	ConfirmationMessage string `json:"confirmationMessage,omitempty"`
	SlotDurationMins    int    `json:"slotDurationMins,omitempty"`
}

// HandoffSettings customizes the human hand-off reply.
type HandoffSettings struct {
	Message string `json:"message,omitempty"`
}

// FollowupSettings customizes automated follow-up messages.
type FollowupSettings struct {
	MaxAttempts int `json:"maxAttempts,omitempty"`
	DelayHours  int `json:"delayHours,omitempty"`
}

// PhaseSettings bundles per-phase customizations.
type PhaseSettings struct {
	Screening *ScreeningSettings `json:"screening,omitempty"`
	Viewing   *ViewingSettings   `json:"viewing,omitempty"`
	Handoff   *HandoffSettings   `json:"handoff,omitempty"`
	Followup  *FollowupSettings  `json:"followup,omitempty"`
}

// Behavior holds tone and pacing preferences for generated replies.
type Behavior struct {
	Tone          string `json:"tone,omitempty"`
	ResponseSpeed string `json:"responseSpeed,omitempty"`
	AutoFollowUp  bool   `json:"autoFollowUp,omitempty"`
}

// Policy is the resolved automation policy controlling how far the concierge
// may progress a conversation without a human.
type Policy struct {
	AutomatedPhases []Phase         `json:"automatedPhases"`
	MaxPhase        Phase           `json:"maxPhase"`
	RequireApproval map[string]bool `json:"requireApproval,omitempty"`
	Behavior        Behavior        `json:"behavior,omitempty"`
	PhaseSettings   PhaseSettings   `json:"phaseSettings,omitempty"`
}

// Default returns the built-in policy used when a user has no stored
// configuration: every phase automated, no approvals, full autonomy.
func Default() Policy {
	return Policy{
		AutomatedPhases: []Phase{
			PhaseScreening,
			PhasePropertyDetect,
			PhasePropertyQA,
			PhaseViewingProposal,
			PhaseViewingBooking,
			PhaseFollowup,
		},
		MaxPhase:        PhaseFull,
		RequireApproval: map[string]bool{},
	}
}

// IsPhaseAutomated reports whether the policy allows the phase to run without
// a human. Pure function.
func IsPhaseAutomated(p Policy, phase Phase) bool {
	for _, candidate := range p.AutomatedPhases {
		if candidate == phase {
			return true
		}
	}
	return false
}

// MayProceed reports whether the bot may actually execute the phase: the
// phase must not exceed MaxPhase in the fixed order, and the approval key (if
// given) must not be flagged. Pure function.
func MayProceed(p Policy, phase Phase, approvalKey string) bool {
	rank, ok := phaseRank[phase]
	if !ok {
		rank = -1
	}
	maxRank, ok := phaseRank[p.MaxPhase]
	if !ok {
		maxRank = -1
	}
	if rank > maxRank {
		return false
	}
	if approvalKey != "" && p.RequireApproval[approvalKey] {
		return false
	}
	return true
}

// ScreeningOverride returns the configured screening settings, if any.
func (p Policy) ScreeningOverride() *ScreeningSettings {
	return p.PhaseSettings.Screening
}

// ViewingOverride returns the configured viewing settings, if any.
func (p Policy) ViewingOverride() *ViewingSettings {
	return p.PhaseSettings.Viewing
}

// HandoffMessage returns the configured hand-off message, or empty.
func (p Policy) HandoffMessage() string {
	if p.PhaseSettings.Handoff == nil {
		return ""
	}
	return p.PhaseSettings.Handoff.Message
}
