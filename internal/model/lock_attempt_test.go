package model

import (
	"errors"
	"testing"
	"time"
)

func TestLockAttemptHappyPath(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	a := &LockAttempt{State: LockSelectPosition}
	path := []LockState{
		LockSelectDuration, LockCheckApproval, LockApprovalRequired, LockApproveSent,
		LockApproveConfirmed, LockConfirm, LockSent, LockConfirmed,
	}
	for _, next := range path {
		if err := a.Transition(next, now); err != nil {
			t.Fatalf("transition to %s: %v", next, err)
		}
	}
	if !a.State.Terminal() {
		t.Fatalf("expected terminal state, got %s", a.State)
	}
	if !a.UpdatedAt.Equal(now) {
		t.Fatalf("updated_at not stamped")
	}
}

func TestLockAttemptRejectsSkippingApproval(t *testing.T) {
	a := &LockAttempt{State: LockApprovalRequired}
	err := a.Transition(LockSent, time.Now())
	var invalid *InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	if a.State != LockApprovalRequired {
		t.Fatalf("state changed on invalid transition")
	}
}

func TestLockAttemptTerminalStatesAreFinal(t *testing.T) {
	for _, state := range []LockState{LockConfirmed, LockFailed, LockCancelled} {
		for _, next := range []LockState{LockSelectPosition, LockConfirm, LockSent, LockCancelled} {
			if state.CanTransition(next) {
				t.Fatalf("%s should not move to %s", state, next)
			}
		}
	}
}

func TestLockAttemptPendingApprovalEdges(t *testing.T) {
	for _, next := range []LockState{LockApproveConfirmed, LockApproveSent, LockConfirm, LockCancelled} {
		if !LockApprovalPending.CanTransition(next) {
			t.Fatalf("pending approval should allow %s", next)
		}
	}
	if LockSent.CanTransition(LockCancelled) {
		t.Fatalf("a sent lock cannot be cancelled")
	}
}
