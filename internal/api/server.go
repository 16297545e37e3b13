// Package api exposes the service over JSON HTTP for the chat front-end.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"launchpad/internal/errs"
	"launchpad/internal/lock"
	"launchpad/internal/model"
	"launchpad/internal/service"
)

const maxBodyBytes = 1 << 20

// Backend is the service surface the API serves.
type Backend interface {
	Networks() []string

	PreparePool(ctx context.Context, req model.PoolCreationRequest) (model.PreparedPool, error)
	PendingPool(ctx context.Context, userID string) (model.PreparedPool, error)
	ExecutePool(ctx context.Context, userID string) (model.PoolCreationResult, error)
	CancelPool(ctx context.Context, userID string) error
	PoolHistory(ctx context.Context, userID string) ([]model.PoolRecord, error)
	TxStatus(ctx context.Context, network, txHash string) (model.TxStatus, error)

	Positions(ctx context.Context, userID, network string) ([]model.Position, error)
	LockedPositions(ctx context.Context, userID, network string) (model.LockedInventory, error)
	LockFee(ctx context.Context, network string) (model.LockFee, error)

	Ownership(ctx context.Context, userID, network, contract string) (model.OwnershipInfo, error)
	StartRenounce(ctx context.Context, userID, network, contract string) (*model.RenounceAttempt, error)
	RenounceStatus(ctx context.Context, userID string) (*model.RenounceAttempt, error)

	CreateWallet(ctx context.Context, userID string) (model.Wallet, bool, error)
	Wallet(ctx context.Context, userID string) (model.Wallet, error)
	Balance(ctx context.Context, userID, network string) (service.WalletBalance, error)

	RecordToken(ctx context.Context, token model.TokenRecord) (model.TokenRecord, error)
	Tokens(ctx context.Context, userID string) ([]model.TokenRecord, error)
}

// Wizard is the per-user lock state machine.
type Wizard interface {
	Status(ctx context.Context, userID string) (*model.LockAttempt, error)
	Start(ctx context.Context, userID, network, positionID string) (*model.LockAttempt, error)
	ChangePosition(ctx context.Context, userID, positionID string) (*model.LockAttempt, error)
	SelectDuration(ctx context.Context, userID string, days int) (*model.LockAttempt, error)
	Approve(ctx context.Context, userID string) (*model.LockAttempt, error)
	RetryApproval(ctx context.Context, userID string) (*model.LockAttempt, error)
	RecheckApproval(ctx context.Context, userID string) (*model.LockAttempt, error)
	ForceContinue(ctx context.Context, userID string) (*model.LockAttempt, error)
	Confirm(ctx context.Context, userID string) (*model.LockAttempt, error)
	Cancel(ctx context.Context, userID string) (*model.LockAttempt, error)
}

// Server routes HTTP requests to the backend.
type Server struct {
	backend Backend
	wizard  Wizard
	logger  *zap.Logger
}

func NewServer(backend Backend, wizard Wizard, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{backend: backend, wizard: wizard, logger: logger}
}

// Router returns the routes of the v1 API.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.recoverPanics, s.logRequests)

	r.HandleFunc("/v1/health", s.handleHealth).Methods(http.MethodGet)

	// Pools
	r.HandleFunc("/v1/pools/prepare", s.handlePreparePool).Methods(http.MethodPost)
	r.HandleFunc("/v1/pools/execute", s.handleExecutePool).Methods(http.MethodPost)
	r.HandleFunc("/v1/users/{user}/pools", s.handlePoolHistory).Methods(http.MethodGet)
	r.HandleFunc("/v1/users/{user}/pools/pending", s.handlePendingPool).Methods(http.MethodGet)
	r.HandleFunc("/v1/users/{user}/pools/pending", s.handleCancelPool).Methods(http.MethodDelete)
	r.HandleFunc("/v1/networks/{network}/tx/{hash}", s.handleTxStatus).Methods(http.MethodGet)

	// Inventory and locks
	r.HandleFunc("/v1/users/{user}/positions", s.handlePositions).Methods(http.MethodGet)
	r.HandleFunc("/v1/users/{user}/locks", s.handleLocks).Methods(http.MethodGet)
	r.HandleFunc("/v1/networks/{network}/lock-fee", s.handleLockFee).Methods(http.MethodGet)
	r.HandleFunc("/v1/users/{user}/lock", s.handleLockStatus).Methods(http.MethodGet)
	r.HandleFunc("/v1/users/{user}/lock/{step}", s.handleLockStep).Methods(http.MethodPost)

	// Ownership
	r.HandleFunc("/v1/users/{user}/ownership", s.handleOwnership).Methods(http.MethodGet)
	r.HandleFunc("/v1/users/{user}/renounce", s.handleStartRenounce).Methods(http.MethodPost)
	r.HandleFunc("/v1/users/{user}/renounce", s.handleRenounceStatus).Methods(http.MethodGet)

	// Wallets and tokens
	r.HandleFunc("/v1/users/{user}/wallet", s.handleCreateWallet).Methods(http.MethodPost)
	r.HandleFunc("/v1/users/{user}/wallet", s.handleWallet).Methods(http.MethodGet)
	r.HandleFunc("/v1/users/{user}/balance", s.handleBalance).Methods(http.MethodGet)
	r.HandleFunc("/v1/users/{user}/tokens", s.handleRecordToken).Methods(http.MethodPost)
	r.HandleFunc("/v1/users/{user}/tokens", s.handleTokens).Methods(http.MethodGet)

	return r
}

// ListenAndServe serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http api listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "networks": s.backend.Networks()})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

func (s *Server) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				s.logger.Error("handler panic", zap.String("path", r.URL.Path), zap.Any("panic", v))
				writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

var kindCodes = map[errs.ErrorKind]string{
	errs.UserInput:           "user_input",
	errs.NoWallet:            "no_wallet",
	errs.InsufficientBalance: "insufficient_balance",
	errs.ChainUnavailable:    "chain_unavailable",
	errs.RPCError:            "rpc_error",
	errs.PendingTimeout:      "pending_timeout",
	errs.Reverted:            "reverted",
	errs.NotApproved:         "not_approved",
	errs.NotFound:            "not_found",
	errs.InvalidTransition:   "invalid_transition",
}

// statusFor maps an error kind onto an HTTP status.
func statusFor(kind errs.ErrorKind) int {
	switch kind {
	case errs.UserInput:
		return http.StatusBadRequest
	case errs.InsufficientBalance:
		return http.StatusPaymentRequired
	case errs.NoWallet, errs.NotFound:
		return http.StatusNotFound
	case errs.InvalidTransition, errs.NotApproved:
		return http.StatusConflict
	case errs.ChainUnavailable, errs.RPCError, errs.Reverted:
		return http.StatusBadGateway
	case errs.PendingTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	kind := errs.KindOf(err)
	status := statusFor(kind)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, errorBody{Error: err.Error(), Kind: kindCodes[kind]})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func decodeBody(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errs.Wrap(errs.UserInput, "decode request", err)
	}
	return nil
}

func userID(r *http.Request) string {
	return mux.Vars(r)["user"]
}

// network reads the network query parameter, defaulting to polygon.
func network(r *http.Request) string {
	if n := strings.TrimSpace(r.URL.Query().Get("network")); n != "" {
		return n
	}
	return "polygon"
}

var (
	_ Backend = (*service.Service)(nil)
	_ Wizard  = (*lock.Wizard)(nil)
)
