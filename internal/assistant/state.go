package assistant

import (
	"errors"
	"fmt"
)

const (
	// EscalationTurnCap is the message count at which the conversation is handed to humans.
	EscalationTurnCap = 4
	// TierAdvanceTurn is the message count from which a shown tier advances even without an
	// explicit "still not working" signal.
	TierAdvanceTurn = 3
)

// Tier is a level of troubleshooting depth.
type Tier string

const (
	TierNone         Tier = ""
	TierBasic        Tier = "basic"
	TierIntermediate Tier = "intermediate"
	TierAdvanced     Tier = "advanced"
)

// Rank orders tiers; TierNone ranks lowest.
func (t Tier) Rank() int {
	switch t {
	case TierBasic:
		return 1
	case TierIntermediate:
		return 2
	case TierAdvanced:
		return 3
	default:
		return 0
	}
}

// Next returns the following tier. TierAdvanced is a fixed point.
func (t Tier) Next() Tier {
	switch t {
	case TierNone:
		return TierBasic
	case TierBasic:
		return TierIntermediate
	default:
		return TierAdvanced
	}
}

func (t Tier) valid() bool {
	return t == TierNone || t.Rank() > 0
}

// Phase is the externally visible conversation stage.
type Phase string

const (
	PhaseNew          Phase = "NEW"
	PhaseBasic        Phase = "BASIC"
	PhaseIntermediate Phase = "INTERMEDIATE"
	PhaseAdvanced     Phase = "ADVANCED"
	PhaseEscalated    Phase = "ESCALATED"
	PhaseClosed       Phase = "CLOSED"
)

// State is the per-session conversation record. The caller owns it and passes it back on
// the next turn; the assistant never retains it.
type State struct {
	MessageCount int      `json:"message_count"`
	LastTopic    TopicKey `json:"last_topic,omitempty"`
	// TopicTurns counts answered turns since LastTopic was last confirmed.
	TopicTurns     int     `json:"topic_turns,omitempty"`
	Tier           Tier    `json:"tier,omitempty"`
	Context        Context `json:"context"`
	Escalated      bool    `json:"escalated,omitempty"`
	HumanRequested bool    `json:"human_requested,omitempty"`
	Resolved       bool    `json:"resolved,omitempty"`
}

// ErrInvalidState is wrapped by Validate failures.
var ErrInvalidState = errors.New("invalid conversation state")

// Validate checks invariants a decoded state must satisfy before it is trusted.
func (s State) Validate() error {
	switch {
	case s.MessageCount < 0:
		return fmt.Errorf("%w: negative message count %d", ErrInvalidState, s.MessageCount)
	case s.TopicTurns < 0:
		return fmt.Errorf("%w: negative topic turns %d", ErrInvalidState, s.TopicTurns)
	case !s.Tier.valid():
		return fmt.Errorf("%w: unknown tier %q", ErrInvalidState, s.Tier)
	case s.Tier != TierNone && s.MessageCount == 0:
		return fmt.Errorf("%w: tier %q shown before any message", ErrInvalidState, s.Tier)
	}
	return nil
}

// Phase derives the conversation stage.
func (s State) Phase() Phase {
	switch {
	case s.Resolved:
		return PhaseClosed
	case s.Escalated:
		return PhaseEscalated
	}
	switch s.Tier {
	case TierBasic:
		return PhaseBasic
	case TierIntermediate:
		return PhaseIntermediate
	case TierAdvanced:
		return PhaseAdvanced
	default:
		return PhaseNew
	}
}

// Clone returns a deep copy.
func (s State) Clone() State {
	out := s
	out.Context = s.Context.clone()
	return out
}

// EscalationReason explains why a conversation was handed over.
type EscalationReason string

const (
	ReasonNone           EscalationReason = ""
	ReasonHumanRequested EscalationReason = "human_requested"
	ReasonTurnCap        EscalationReason = "turn_cap"
	ReasonAdvancedTier   EscalationReason = "advanced_tier"
)

// escalationReason reports why the state must escalate now, or ReasonNone.
func (s State) escalationReason() EscalationReason {
	switch {
	case s.HumanRequested:
		return ReasonHumanRequested
	case s.MessageCount >= EscalationTurnCap:
		return ReasonTurnCap
	case s.Tier == TierAdvanced:
		return ReasonAdvancedTier
	}
	return ReasonNone
}

// advanceTier shows the next tier. The first answer starts at basic; later answers move on
// when the user reports continued failure or the turn threshold is crossed.
func (s *State) advanceTier(message string) {
	switch {
	case s.Tier == TierNone:
		s.Tier = TierBasic
	case SignalsContinuedFailure(message), s.MessageCount >= TierAdvanceTurn:
		s.Tier = s.Tier.Next()
	}
}
