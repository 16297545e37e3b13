package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"launchpad/internal/errs"
	"launchpad/internal/model"
)

type lockStepRequest struct {
	Network    string `json:"network"`
	PositionID string `json:"position_id"`
	Days       int    `json:"days"`
}

func (s *Server) handleLockStatus(w http.ResponseWriter, r *http.Request) {
	attempt, err := s.wizard.Status(r.Context(), userID(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, attempt)
}

// handleLockStep advances the user's lock attempt by one named step.
func (s *Server) handleLockStep(w http.ResponseWriter, r *http.Request) {
	step := mux.Vars(r)["step"]
	var req lockStepRequest
	if r.ContentLength != 0 {
		if err := decodeBody(r, &req); err != nil {
			s.writeError(w, err)
			return
		}
	}

	var (
		ctx  = r.Context()
		user = userID(r)
		run  func(context.Context) (*model.LockAttempt, error)
	)
	switch step {
	case "start":
		network := req.Network
		if network == "" {
			network = "polygon"
		}
		run = func(ctx context.Context) (*model.LockAttempt, error) {
			return s.wizard.Start(ctx, user, network, req.PositionID)
		}
	case "position":
		run = func(ctx context.Context) (*model.LockAttempt, error) {
			return s.wizard.ChangePosition(ctx, user, req.PositionID)
		}
	case "duration":
		run = func(ctx context.Context) (*model.LockAttempt, error) {
			return s.wizard.SelectDuration(ctx, user, req.Days)
		}
	case "approve":
		run = func(ctx context.Context) (*model.LockAttempt, error) { return s.wizard.Approve(ctx, user) }
	case "retry-approval":
		run = func(ctx context.Context) (*model.LockAttempt, error) { return s.wizard.RetryApproval(ctx, user) }
	case "recheck-approval":
		run = func(ctx context.Context) (*model.LockAttempt, error) { return s.wizard.RecheckApproval(ctx, user) }
	case "force-continue":
		run = func(ctx context.Context) (*model.LockAttempt, error) { return s.wizard.ForceContinue(ctx, user) }
	case "confirm":
		run = func(ctx context.Context) (*model.LockAttempt, error) { return s.wizard.Confirm(ctx, user) }
	case "cancel":
		run = func(ctx context.Context) (*model.LockAttempt, error) { return s.wizard.Cancel(ctx, user) }
	default:
		s.writeError(w, errs.Newf(errs.NotFound, "lock step", "unknown step %q", step))
		return
	}

	attempt, err := run(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, attempt)
}
