package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsPhaseAutomated(t *testing.T) {
	p := Policy{AutomatedPhases: []Phase{PhaseScreening, PhasePropertyQA}}

	assert.True(t, IsPhaseAutomated(p, PhaseScreening))
	assert.True(t, IsPhaseAutomated(p, PhasePropertyQA))
	assert.False(t, IsPhaseAutomated(p, PhaseViewingBooking))
	assert.False(t, IsPhaseAutomated(Policy{}, PhaseScreening))
}

func TestMayProceedPhaseOrder(t *testing.T) {
	ordered := []Phase{
		PhaseNone,
		PhaseScreening,
		PhasePropertyDetect,
		PhasePropertyQA,
		PhaseViewingProposal,
		PhaseViewingBooking,
		PhaseFull,
	}

	for maxIdx, maxPhase := range ordered {
		p := Policy{MaxPhase: maxPhase}
		for phaseIdx, phase := range ordered {
			got := MayProceed(p, phase, "")
			want := phaseIdx <= maxIdx
			assert.Equalf(t, want, got, "phase %s under maxPhase %s", phase, maxPhase)
		}
	}
}

func TestMayProceedBeyondMaxIgnoresApproval(t *testing.T) {
	// Approval flags can not re-enable a phase past MaxPhase.
	p := Policy{
		MaxPhase:        PhaseScreening,
		RequireApproval: map[string]bool{ApprovalBeforeViewingBooking: false},
	}
	assert.False(t, MayProceed(p, PhaseViewingBooking, ApprovalBeforeViewingBooking))
	assert.False(t, MayProceed(p, PhaseViewingBooking, ""))
}

func TestMayProceedApprovalBlocks(t *testing.T) {
	p := Policy{
		MaxPhase:        PhaseFull,
		RequireApproval: map[string]bool{ApprovalBeforeViewingBooking: true},
	}
	assert.False(t, MayProceed(p, PhaseViewingBooking, ApprovalBeforeViewingBooking))
	assert.True(t, MayProceed(p, PhaseViewingBooking, ""))
	assert.True(t, MayProceed(p, PhaseViewingProposal, ApprovalBeforeViewingProposal))
}

func TestMayProceedDeterministic(t *testing.T) {
	p := Default()
	first := MayProceed(p, PhaseViewingBooking, ApprovalBeforeViewingBooking)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, MayProceed(p, PhaseViewingBooking, ApprovalBeforeViewingBooking))
	}
}

func TestDefaultPolicy(t *testing.T) {
	p := Default()

	assert.Equal(t, PhaseFull, p.MaxPhase)
	for _, phase := range []Phase{PhaseScreening, PhasePropertyDetect, PhasePropertyQA, PhaseViewingProposal, PhaseViewingBooking} {
		assert.Truef(t, IsPhaseAutomated(p, phase), "phase %s should be automated by default", phase)
		assert.Truef(t, MayProceed(p, phase, ""), "phase %s should proceed by default", phase)
	}
	assert.Empty(t, p.RequireApproval)
}

func TestHandoffMessage(t *testing.T) {
	assert.Empty(t, Policy{}.HandoffMessage())

	p := Policy{PhaseSettings: PhaseSettings{Handoff: &HandoffSettings{Message: "An agent will reach out."}}}
	assert.Equal(t, "An agent will reach out.", p.HandoffMessage())
}
