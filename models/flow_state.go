package models

import (
	"time"
)

// FlowPhase is the lifecycle position of a single login attempt
type FlowPhase string

const (
	PhaseIssued           FlowPhase = "issued"
	PhaseAwaitingCallback FlowPhase = "awaiting_callback"
	PhaseConsumed         FlowPhase = "consumed"
	PhaseCompleted        FlowPhase = "completed"
	PhaseFailed           FlowPhase = "failed"
)

// IsTerminal reports whether no further transition is allowed from p
func (p FlowPhase) IsTerminal() bool {
	return p == PhaseCompleted || p == PhaseFailed
}

// CanTransition reports whether moving from p to next is a legal step.
// Nothing ever returns to awaiting_callback once the state was consumed.
func (p FlowPhase) CanTransition(next FlowPhase) bool {
	switch p {
	case PhaseIssued:
		return next == PhaseAwaitingCallback
	case PhaseAwaitingCallback:
		return next == PhaseConsumed
	case PhaseConsumed:
		return next == PhaseCompleted || next == PhaseFailed
	default:
		return false
	}
}

// FlowState represents one in-flight authorization code login attempt
type FlowState struct {
	ID         string     `json:"id" db:"id"`
	StateToken string     `json:"-" db:"-"`
	Phase      FlowPhase  `json:"phase" db:"phase"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	ExpiresAt  time.Time  `json:"expires_at" db:"expires_at"`
	ConsumedAt *time.Time `json:"consumed_at,omitempty" db:"consumed_at"`
}

// IsExpired reports whether the state can no longer be redeemed at now
func (s *FlowState) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
