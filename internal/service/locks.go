package service

import (
	"context"

	"launchpad/internal/model"
)

// Positions lists the user's Uniswap V3 position NFTs on network.
func (s *Service) Positions(ctx context.Context, userID, network string) ([]model.Position, error) {
	n, err := s.Network(network)
	if err != nil {
		return nil, err
	}
	account, err := s.account(ctx, userID)
	if err != nil {
		return nil, err
	}
	return n.Inventory.ListPositions(ctx, account.Address)
}

// LockedPositions lists the user's UNCX locks on network.
func (s *Service) LockedPositions(ctx context.Context, userID, network string) (model.LockedInventory, error) {
	n, err := s.Network(network)
	if err != nil {
		return model.LockedInventory{}, err
	}
	account, err := s.account(ctx, userID)
	if err != nil {
		return model.LockedInventory{}, err
	}
	return n.Inventory.ListLockedPositions(ctx, account.Address)
}

// LockFee quotes the locker's flat fee on network.
func (s *Service) LockFee(ctx context.Context, network string) (model.LockFee, error) {
	n, err := s.Network(network)
	if err != nil {
		return model.LockFee{}, err
	}
	return n.Locker.LockFee(ctx), nil
}

// ApproveLocker approves the locker for all of the user's positions and waits for the receipt.
func (s *Service) ApproveLocker(ctx context.Context, userID, network string) (model.ApprovalResult, error) {
	n, err := s.Network(network)
	if err != nil {
		return model.ApprovalResult{}, err
	}
	account, err := s.account(ctx, userID)
	if err != nil {
		return model.ApprovalResult{}, err
	}
	return n.Locker.SendApproval(ctx, account)
}

// LockPosition locks positionID for days in one call, without the wizard. The locker must already be approved.
func (s *Service) LockPosition(ctx context.Context, userID, network, positionID string, days int) (model.LockResult, error) {
	n, err := s.Network(network)
	if err != nil {
		return model.LockResult{}, err
	}
	account, err := s.account(ctx, userID)
	if err != nil {
		return model.LockResult{}, err
	}
	return n.Locker.SendLock(ctx, account, model.LockRequest{
		WalletAddress: account.Address.Hex(),
		PositionID:    positionID,
		DurationDays:  days,
	})
}
