package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"launchpad/internal/errs"
	"launchpad/internal/model"
)

type prepareRequest struct {
	UserID       string          `json:"user_id"`
	TokenAddress string          `json:"token_address"`
	Network      string          `json:"network"`
	TokenAmount  decimal.Decimal `json:"token_amount"`
	NativeAmount decimal.Decimal `json:"native_amount"`
}

type userRequest struct {
	UserID string `json:"user_id"`
}

type contractRequest struct {
	Network  string `json:"network"`
	Contract string `json:"contract"`
}

func (s *Server) handlePreparePool(w http.ResponseWriter, r *http.Request) {
	var req prepareRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		s.writeError(w, errs.New(errs.UserInput, "prepare pool", "user_id is required"))
		return
	}
	if req.Network == "" {
		req.Network = "polygon"
	}
	prepared, err := s.backend.PreparePool(r.Context(), model.PoolCreationRequest{
		UserID:       req.UserID,
		TokenAddress: req.TokenAddress,
		Network:      req.Network,
		TokenAmount:  req.TokenAmount,
		NativeAmount: req.NativeAmount,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prepared)
}

func (s *Server) handleExecutePool(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	result, err := s.backend.ExecutePool(r.Context(), req.UserID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, resultStatus(result), result)
}

// resultStatus is 200 for a created pool, 202 while the receipt is pending,
// and the cause's status otherwise.
func resultStatus(result model.PoolCreationResult) int {
	switch result.Status {
	case model.StatusSuccess:
		return http.StatusOK
	case model.StatusPending:
		return http.StatusAccepted
	}
	if status := statusFor(errs.KindOf(result.Cause)); status != http.StatusInternalServerError {
		return status
	}
	return http.StatusBadGateway
}

func (s *Server) handlePendingPool(w http.ResponseWriter, r *http.Request) {
	prepared, err := s.backend.PendingPool(r.Context(), userID(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prepared)
}

func (s *Server) handleCancelPool(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.CancelPool(r.Context(), userID(r)); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePoolHistory(w http.ResponseWriter, r *http.Request) {
	records, err := s.backend.PoolHistory(r.Context(), userID(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleTxStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	status, err := s.backend.TxStatus(r.Context(), vars["network"], vars["hash"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	positions, err := s.backend.Positions(r.Context(), userID(r), network(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if positions == nil {
		positions = []model.Position{}
	}
	writeJSON(w, http.StatusOK, positions)
}

func (s *Server) handleLocks(w http.ResponseWriter, r *http.Request) {
	locks, err := s.backend.LockedPositions(r.Context(), userID(r), network(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if locks.Locks == nil {
		locks.Locks = []model.LockedPosition{}
	}
	writeJSON(w, http.StatusOK, locks)
}

func (s *Server) handleLockFee(w http.ResponseWriter, r *http.Request) {
	fee, err := s.backend.LockFee(r.Context(), mux.Vars(r)["network"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fee)
}

func (s *Server) handleOwnership(w http.ResponseWriter, r *http.Request) {
	info, err := s.backend.Ownership(r.Context(), userID(r), network(r), r.URL.Query().Get("contract"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleStartRenounce(w http.ResponseWriter, r *http.Request) {
	var req contractRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if req.Network == "" {
		req.Network = "polygon"
	}
	attempt, err := s.backend.StartRenounce(r.Context(), userID(r), req.Network, req.Contract)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, attempt)
}

func (s *Server) handleRenounceStatus(w http.ResponseWriter, r *http.Request) {
	attempt, err := s.backend.RenounceStatus(r.Context(), userID(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, attempt)
}

func (s *Server) handleCreateWallet(w http.ResponseWriter, r *http.Request) {
	wallet, created, err := s.backend.CreateWallet(r.Context(), userID(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, wallet)
}

func (s *Server) handleWallet(w http.ResponseWriter, r *http.Request) {
	wallet, err := s.backend.Wallet(r.Context(), userID(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wallet)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := s.backend.Balance(r.Context(), userID(r), network(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balance)
}

func (s *Server) handleRecordToken(w http.ResponseWriter, r *http.Request) {
	var token model.TokenRecord
	if err := decodeBody(r, &token); err != nil {
		s.writeError(w, err)
		return
	}
	token.UserID = userID(r)
	saved, err := s.backend.RecordToken(r.Context(), token)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleTokens(w http.ResponseWriter, r *http.Request) {
	tokens, err := s.backend.Tokens(r.Context(), userID(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if tokens == nil {
		tokens = []model.TokenRecord{}
	}
	writeJSON(w, http.StatusOK, tokens)
}
