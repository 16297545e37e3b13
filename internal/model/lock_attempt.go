package model

import (
	"fmt"
	"time"

	"launchpad/internal/errs"
)

// LockState is a step of the lock workflow.
type LockState string

const (
	LockSelectPosition   LockState = "SELECT_POSITION"
	LockSelectDuration   LockState = "SELECT_DURATION"
	LockCheckApproval    LockState = "CHECK_APPROVAL"
	LockApprovalRequired LockState = "APPROVAL_REQUIRED"
	LockApproveSent      LockState = "APPROVE_SENT"
	LockApprovalPending  LockState = "APPROVAL_PENDING"
	LockApproveConfirmed LockState = "APPROVE_CONFIRMED"
	LockConfirm          LockState = "LOCK_CONFIRM"
	LockSent             LockState = "LOCK_SENT"
	LockConfirmed        LockState = "LOCK_CONFIRMED"
	LockFailed           LockState = "LOCK_FAILED"
	LockCancelled        LockState = "CANCELLED"
)

var lockTransitions = map[LockState][]LockState{
	LockSelectPosition:   {LockSelectDuration, LockCancelled},
	LockSelectDuration:   {LockCheckApproval, LockSelectPosition, LockCancelled},
	LockCheckApproval:    {LockApprovalRequired, LockConfirm, LockFailed, LockCancelled},
	LockApprovalRequired: {LockApproveSent, LockCancelled},
	LockApproveSent:      {LockApproveConfirmed, LockApprovalPending, LockFailed, LockCancelled},
	LockApprovalPending:  {LockApproveConfirmed, LockApproveSent, LockConfirm, LockFailed, LockCancelled},
	LockApproveConfirmed: {LockConfirm, LockCancelled},
	LockConfirm:          {LockSent, LockCancelled},
	LockSent:             {LockConfirmed, LockFailed},
}

// Terminal reports whether no further transition is possible.
func (s LockState) Terminal() bool {
	return s == LockConfirmed || s == LockFailed || s == LockCancelled
}

// CanTransition reports whether s may move to next.
func (s LockState) CanTransition(next LockState) bool {
	for _, allowed := range lockTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// InvalidTransitionError is returned when a lock attempt is asked to move along a missing edge.
type InvalidTransitionError struct {
	From LockState
	To   LockState
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot move lock from %s to %s", e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == errs.InvalidTransition
}

// LockAttempt is one user's in-progress lock workflow.
type LockAttempt struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Network      string    `json:"network"`
	Wallet       string    `json:"wallet"`
	State        LockState `json:"state"`
	PositionID   string    `json:"position_id,omitempty"`
	DurationDays int       `json:"duration_days,omitempty"`
	Fee          *LockFee  `json:"fee,omitempty"`
	ApprovalTx   string    `json:"approval_tx,omitempty"`
	LockTx       string    `json:"lock_tx,omitempty"`
	UnlockDate   time.Time `json:"unlock_date,omitempty"`
	Error        string    `json:"error,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Transition moves the attempt to next, stamping UpdatedAt.
func (a *LockAttempt) Transition(next LockState, now time.Time) error {
	if !a.State.CanTransition(next) {
		return &InvalidTransitionError{From: a.State, To: next}
	}
	a.State = next
	a.UpdatedAt = now
	return nil
}

// RenounceState is the progress of a background ownership renouncement.
type RenounceState string

const (
	RenounceSent      RenounceState = "SENT"
	RenounceConfirmed RenounceState = "CONFIRMED"
	RenounceFailed    RenounceState = "FAILED"
)

// RenounceAttempt tracks a renounceOwnership submitted on behalf of a user.
type RenounceAttempt struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Network   string          `json:"network"`
	Contract  string          `json:"contract"`
	State     RenounceState   `json:"state"`
	Result    *RenounceResult `json:"result,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}
