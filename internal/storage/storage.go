// Package storage persists wallets, deployed tokens and pool creation history.
package storage

import (
	"context"

	"launchpad/internal/model"
)

// Store is the persistence boundary. GetWallet returns errs.NotFound for unknown users.
type Store interface {
	GetWallet(ctx context.Context, userID string) (model.Wallet, error)
	SaveWallet(ctx context.Context, wallet model.Wallet) error

	AppendPoolRecord(ctx context.Context, record model.PoolRecord) error
	ListPoolRecords(ctx context.Context, userID string) ([]model.PoolRecord, error)

	SaveToken(ctx context.Context, token model.TokenRecord) error
	ListTokens(ctx context.Context, userID string) ([]model.TokenRecord, error)

	Close() error
}
