// Package ownership inspects and renounces Ownable token contracts.
package ownership

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"launchpad/internal/chain"
	"launchpad/internal/contracts"
	"launchpad/internal/errs"
	"launchpad/internal/model"
)

// RenounceGasLimit is the fixed gas limit of renounceOwnership().
const RenounceGasLimit uint64 = 200_000

const (
	unknownName   = "Unknown Token"
	unknownSymbol = "???"
)

// Config is the per-network setup.
type Config struct {
	Network        string
	ExplorerURL    string
	ReceiptTimeout time.Duration
	NonceRetry     chain.RetryPolicy
}

// Renouncer drives renounceOwnership() for a user's wallet.
type Renouncer struct {
	cfg       Config
	gw        chain.Gateway
	submitter *chain.Submitter
	logger    *zap.Logger
}

func New(cfg Config, submitter *chain.Submitter, logger *zap.Logger) (*Renouncer, error) {
	if submitter == nil {
		return nil, errors.New("submitter is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ReceiptTimeout <= 0 {
		cfg.ReceiptTimeout = 120 * time.Second
	}
	if cfg.NonceRetry.Attempts == 0 {
		cfg.NonceRetry = chain.DefaultNonceRetry
	}
	return &Renouncer{
		cfg:       cfg,
		gw:        submitter.Gateway(),
		submitter: submitter,
		logger:    logger.With(zap.String("network", cfg.Network)),
	}, nil
}

// ExplorerURL links to contract on the network's block explorer, or "" when none is configured.
func (r *Renouncer) ExplorerURL(contract common.Address) string {
	if r.cfg.ExplorerURL == "" {
		return ""
	}
	return strings.TrimRight(r.cfg.ExplorerURL, "/") + "/address/" + contract.Hex()
}

// Inspect reads token metadata and the owner relative to wallet. It never fails;
// unreadable fields fall back to placeholders and an unreadable owner means not owner.
func (r *Renouncer) Inspect(ctx context.Context, contract, wallet common.Address) model.OwnershipInfo {
	meta := contracts.FetchTokenMeta(ctx, r.gw, contract, wallet, r.logger)
	if meta.Name == "" {
		meta.Name = unknownName
	}
	if meta.Symbol == "" {
		meta.Symbol = unknownSymbol
	}
	if meta.Balance == "" {
		meta.Balance = "0"
	}

	info := model.OwnershipInfo{Contract: contract.Hex(), Token: meta}
	owner, err := r.owner(ctx, contract)
	if err != nil {
		r.logger.Debug("owner() unavailable", zap.String("contract", contract.Hex()), zap.Error(err))
		return info
	}
	info.Owner = owner.Hex()
	info.Renounced = owner == (common.Address{})
	info.IsOwner = !info.Renounced && owner == wallet
	return info
}

func (r *Renouncer) owner(ctx context.Context, contract common.Address) (common.Address, error) {
	token, err := contracts.NewERC20(contract, r.gw)
	if err != nil {
		return common.Address{}, err
	}
	return token.Owner(ctx)
}

// Renounce sends renounceOwnership() from account once it is confirmed as the owner, and waits for the receipt.
func (r *Renouncer) Renounce(ctx context.Context, account chain.Account, contract common.Address) (model.RenounceResult, error) {
	result := model.RenounceResult{Status: model.StatusFailed, Contract: contract.Hex()}

	owner, err := r.owner(ctx, contract)
	if err != nil {
		result.Error = "could not read contract owner: " + err.Error()
		return result, err
	}
	if owner != account.Address {
		err := errs.Newf(errs.UserInput, "renounce ownership", "wallet %s is not the owner of %s", account.Address.Hex(), contract.Hex())
		result.Error = "You are not the owner of this contract"
		return result, err
	}

	token, err := contracts.NewERC20(contract, r.gw)
	if err != nil {
		result.Error = err.Error()
		return result, err
	}
	sub, err := r.submitter.Submit(ctx, account, func(ctx context.Context) (*types.Transaction, error) {
		return chain.BuildTransaction(ctx, token.Contract, "renounceOwnership", nil, chain.Overrides{
			From:       account.Address,
			GasLimit:   RenounceGasLimit,
			NonceRetry: r.cfg.NonceRetry,
		})
	}, r.cfg.ReceiptTimeout)
	if sub != nil {
		result.TxHash = sub.Hash.Hex()
	}
	if err != nil {
		if errors.Is(err, errs.PendingTimeout) {
			result.Status = model.StatusPending
		}
		result.Error = err.Error()
		return result, err
	}

	result.GasUsed = sub.Receipt.GasUsed
	if !sub.Succeeded() {
		reason := chain.RevertReason(ctx, r.gw, account.Address, sub.Tx, sub.Receipt.BlockNumber)
		result.Error = "transaction failed"
		if reason != "" {
			result.Error += ": " + reason
		}
		return result, errs.Newf(errs.Reverted, "renounce ownership", "tx %s: %s", result.TxHash, result.Error)
	}

	result.Status = model.StatusSuccess
	result.ExplorerURL = r.ExplorerURL(contract)
	r.logger.Info("ownership renounced",
		zap.String("contract", contract.Hex()),
		zap.String("tx_hash", result.TxHash),
		zap.Uint64("gas_used", result.GasUsed),
	)
	return result, nil
}
