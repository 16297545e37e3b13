package service

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"launchpad/internal/chain"
	"launchpad/internal/errs"
	"launchpad/internal/model"
	"launchpad/internal/session"
)

const renounceStoreTimeout = 5 * time.Second

func renounceTaskKey(userID string) string {
	return userID + ":renounce"
}

// Ownership reads the token and owner of contract relative to the user's wallet.
func (s *Service) Ownership(ctx context.Context, userID, network, contract string) (model.OwnershipInfo, error) {
	n, err := s.Network(network)
	if err != nil {
		return model.OwnershipInfo{}, err
	}
	address, err := parseAddress("ownership", "contract", contract)
	if err != nil {
		return model.OwnershipInfo{}, err
	}
	account, err := s.account(ctx, userID)
	if err != nil {
		return model.OwnershipInfo{}, err
	}
	return n.Ownership.Inspect(ctx, address, account.Address), nil
}

// RenounceOwnership renounces contract synchronously and waits for the receipt.
func (s *Service) RenounceOwnership(ctx context.Context, userID, network, contract string) (model.RenounceResult, error) {
	n, account, address, err := s.renounceTarget(ctx, userID, network, contract)
	if err != nil {
		return model.RenounceResult{}, err
	}
	return n.Ownership.Renounce(ctx, account, address)
}

// StartRenounce checks ownership, then renounces on the worker. Progress is read with RenounceStatus.
func (s *Service) StartRenounce(ctx context.Context, userID, network, contract string) (*model.RenounceAttempt, error) {
	const op = "start renounce"
	n, account, address, err := s.renounceTarget(ctx, userID, network, contract)
	if err != nil {
		return nil, err
	}

	current, err := s.sessions.Get(ctx, userID, session.KindRenounce)
	switch {
	case err == nil && current.Renounce.State == model.RenounceSent:
		return nil, errs.Newf(errs.InvalidTransition, op, "renouncement of %s is still in progress", current.Renounce.Contract)
	case err != nil && errs.KindOf(err) != errs.NotFound:
		return nil, err
	}

	info := n.Ownership.Inspect(ctx, address, account.Address)
	if info.Renounced {
		return nil, errs.Newf(errs.UserInput, op, "ownership of %s is already renounced", address.Hex())
	}
	if !info.IsOwner {
		return nil, errs.New(errs.UserInput, op, "You are not the owner of this contract")
	}

	attempt := &model.RenounceAttempt{
		ID:        uuid.NewString(),
		UserID:    userID,
		Network:   n.Config.Name,
		Contract:  address.Hex(),
		State:     model.RenounceSent,
		UpdatedAt: s.now().UTC(),
	}
	if err := s.sessions.Put(ctx, userID, session.Renounce(attempt)); err != nil {
		return nil, errors.Wrap(err, "store renounce attempt")
	}

	renouncer := n.Ownership
	_, err = s.runner.Go(renounceTaskKey(userID), func(ctx context.Context) error {
		result, err := renouncer.Renounce(ctx, account, address)
		if errors.Is(err, context.Canceled) {
			return err
		}
		s.finishRenounce(userID, attempt.ID, result)
		return err
	})
	if err != nil {
		_ = s.sessions.Delete(ctx, userID, session.KindRenounce)
		return nil, errors.Wrap(err, "schedule renounce")
	}
	return attempt, nil
}

// RenounceStatus returns the user's latest renouncement attempt.
func (s *Service) RenounceStatus(ctx context.Context, userID string) (*model.RenounceAttempt, error) {
	payload, err := s.sessions.Get(ctx, userID, session.KindRenounce)
	if err != nil {
		return nil, err
	}
	return payload.Renounce, nil
}

func (s *Service) finishRenounce(userID, attemptID string, result model.RenounceResult) {
	ctx, cancel := context.WithTimeout(context.Background(), renounceStoreTimeout)
	defer cancel()

	payload, err := s.sessions.Get(ctx, userID, session.KindRenounce)
	if err != nil || payload.Renounce.ID != attemptID {
		s.logger.Debug("renounce attempt replaced, result dropped", zap.String("user_id", userID), zap.String("attempt_id", attemptID))
		return
	}
	attempt := payload.Renounce
	attempt.Result = &result
	attempt.State = model.RenounceFailed
	if result.Status == model.StatusSuccess {
		attempt.State = model.RenounceConfirmed
	}
	attempt.UpdatedAt = s.now().UTC()
	if err := s.sessions.Put(ctx, userID, session.Renounce(attempt)); err != nil {
		s.logger.Warn("store renounce result failed", zap.String("user_id", userID), zap.Error(err))
	}
}

func (s *Service) renounceTarget(ctx context.Context, userID, network, contract string) (*Network, chain.Account, common.Address, error) {
	n, err := s.Network(network)
	if err != nil {
		return nil, chain.Account{}, common.Address{}, err
	}
	address, err := parseAddress("renounce ownership", "contract", contract)
	if err != nil {
		return nil, chain.Account{}, common.Address{}, err
	}
	account, err := s.account(ctx, userID)
	if err != nil {
		return nil, chain.Account{}, common.Address{}, err
	}
	return n, account, address, nil
}
