package service

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"launchpad/internal/errs"
	"launchpad/internal/model"
	"launchpad/internal/pool"
	"launchpad/internal/session"
)

// PreparePool quotes a pool creation and keeps the projection as the user's pending confirmation.
// A later PreparePool replaces it.
func (s *Service) PreparePool(ctx context.Context, req model.PoolCreationRequest) (model.PreparedPool, error) {
	n, err := s.Network(req.Network)
	if err != nil {
		return model.PreparedPool{}, err
	}
	prepared, err := n.Pools.Prepare(ctx, req)
	if err != nil {
		return model.PreparedPool{}, err
	}
	if err := s.sessions.Put(ctx, req.UserID, session.ExecutePool(prepared)); err != nil {
		return model.PreparedPool{}, errors.Wrap(err, "store pending pool")
	}
	return prepared, nil
}

// PendingPool returns the prepared pool awaiting the user's confirmation.
func (s *Service) PendingPool(ctx context.Context, userID string) (model.PreparedPool, error) {
	payload, err := s.sessions.Get(ctx, userID, session.KindExecutePool)
	if err != nil {
		return model.PreparedPool{}, err
	}
	return *payload.ExecutePool, nil
}

// ExecutePool consumes the user's pending confirmation and creates the pool.
// A confirmation is executed at most once, whatever the outcome.
func (s *Service) ExecutePool(ctx context.Context, userID string) (model.PoolCreationResult, error) {
	payload, err := s.sessions.Take(ctx, userID, session.KindExecutePool)
	if err != nil {
		if errs.KindOf(err) == errs.NotFound {
			return model.PoolCreationResult{}, errs.Wrap(errs.UserInput, "execute pool", errors.Wrap(err, "prepare the pool first or it expired"))
		}
		return model.PoolCreationResult{}, err
	}
	prepared := *payload.ExecutePool
	n, err := s.Network(prepared.Network)
	if err != nil {
		return model.PoolCreationResult{}, err
	}

	result := n.Pools.Execute(ctx, prepared.Request(userID))
	s.logger.Info("pool execution finished",
		zap.String("user_id", userID),
		zap.String("network", prepared.Network),
		zap.String("status", string(result.Status)),
		zap.String("tx_hash", result.TxHash),
	)
	return result, nil
}

// CancelPool drops the user's pending confirmation.
func (s *Service) CancelPool(ctx context.Context, userID string) error {
	return s.sessions.Delete(ctx, userID, session.KindExecutePool)
}

// PoolHistory lists the user's prepared and executed pool records, oldest first.
func (s *Service) PoolHistory(ctx context.Context, userID string) ([]model.PoolRecord, error) {
	return s.store.ListPoolRecords(ctx, userID)
}

// TxStatus reads the receipt of a transaction sent earlier, for results that ended pending.
func (s *Service) TxStatus(ctx context.Context, network, txHash string) (model.TxStatus, error) {
	n, err := s.Network(network)
	if err != nil {
		return model.TxStatus{}, err
	}
	return pool.Recheck(ctx, n.Gateway, txHash)
}
