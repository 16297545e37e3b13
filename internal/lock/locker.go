package lock

import (
	"context"
	"math/big"
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
	"launchpad/internal/units"
)

const (
	ApproveGasLimit uint64 = 200_000
	LockGasLimit    uint64 = 1_000_000

	MinDurationDays = 1
	MaxDurationDays = 3650
)

// FallbackFlatFee is used when getFee cannot be read: 0.01 native.
var FallbackFlatFee = new(big.Int).Exp(big.NewInt(10), big.NewInt(16), nil)

// Config is the per-network locker setup.
type Config struct {
	Network         string
	NativeSymbol    string
	Locker          common.Address
	PositionManager common.Address
	FeeName         string
	CountryCode     uint16
	ApprovalTimeout time.Duration
	ReceiptTimeout  time.Duration
	NonceRetry      chain.RetryPolicy
}

// Locker drives the approve-then-lock workflow against the UNCX locker.
type Locker struct {
	cfg       Config
	gw        chain.Gateway
	submitter *chain.Submitter
	manager   *contracts.PositionManager
	locker    *contracts.Locker
	logger    *zap.Logger
	now       func() time.Time
}

func New(cfg Config, submitter *chain.Submitter, logger *zap.Logger) (*Locker, error) {
	if submitter == nil {
		return nil, errors.New("submitter is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.FeeName == "" {
		cfg.FeeName = "DEFAULT"
	}
	if cfg.ApprovalTimeout <= 0 {
		cfg.ApprovalTimeout = 60 * time.Second
	}
	if cfg.ReceiptTimeout <= 0 {
		cfg.ReceiptTimeout = 120 * time.Second
	}
	if cfg.NonceRetry.Attempts == 0 {
		cfg.NonceRetry = chain.DefaultNonceRetry
	}

	gw := submitter.Gateway()
	manager, err := contracts.NewPositionManager(cfg.PositionManager, gw)
	if err != nil {
		return nil, errors.Wrap(err, "position manager abi")
	}
	locker, err := contracts.NewLocker(cfg.Locker, gw)
	if err != nil {
		return nil, errors.Wrap(err, "locker abi")
	}
	return &Locker{
		cfg:       cfg,
		gw:        gw,
		submitter: submitter,
		manager:   manager,
		locker:    locker,
		logger:    logger.With(zap.String("network", cfg.Network)),
		now:       time.Now,
	}, nil
}

// WithClock overrides the time source used for unlock dates.
func (l *Locker) WithClock(now func() time.Time) *Locker {
	l.now = now
	return l
}

// Address is the locker contract address.
func (l *Locker) Address() common.Address {
	return l.cfg.Locker
}

// IsApproved reports whether the locker may move all of wallet's position NFTs.
func (l *Locker) IsApproved(ctx context.Context, wallet common.Address) (bool, error) {
	return l.manager.IsApprovedForAll(ctx, wallet, l.cfg.Locker)
}

// Approval is a prepared setApprovalForAll. Tx is nil when the locker is already approved.
type Approval struct {
	AlreadyApproved bool
	Tx              *types.Transaction
}

// Approve builds the unsigned setApprovalForAll(locker, true) transaction, unless already approved.
func (l *Locker) Approve(ctx context.Context, wallet common.Address) (Approval, error) {
	approved, err := l.IsApproved(ctx, wallet)
	if err != nil {
		return Approval{}, err
	}
	if approved {
		return Approval{AlreadyApproved: true}, nil
	}
	tx, err := l.buildApproval(ctx, wallet)
	if err != nil {
		return Approval{}, err
	}
	return Approval{Tx: tx}, nil
}

func (l *Locker) buildApproval(ctx context.Context, wallet common.Address) (*types.Transaction, error) {
	return chain.BuildTransaction(ctx, l.manager.Contract, "setApprovalForAll", []interface{}{l.cfg.Locker, true}, chain.Overrides{
		From:       wallet,
		GasLimit:   ApproveGasLimit,
		NonceRetry: l.cfg.NonceRetry,
	})
}

// SendApproval approves the locker and waits for the receipt. It sends nothing when already approved.
func (l *Locker) SendApproval(ctx context.Context, account chain.Account) (model.ApprovalResult, error) {
	approved, err := l.IsApproved(ctx, account.Address)
	if err != nil {
		return model.ApprovalResult{}, err
	}
	if approved {
		return model.ApprovalResult{AlreadyApproved: true, Status: model.StatusSuccess}, nil
	}

	sub, err := l.submitter.Submit(ctx, account, func(ctx context.Context) (*types.Transaction, error) {
		return l.buildApproval(ctx, account.Address)
	}, l.cfg.ApprovalTimeout)
	if err != nil {
		result := model.ApprovalResult{Status: model.StatusFailed, Error: err.Error()}
		if sub != nil {
			result.TxHash = sub.Hash.Hex()
		}
		if errors.Is(err, errs.PendingTimeout) {
			result.Status = model.StatusPending
		}
		return result, err
	}

	result := model.ApprovalResult{Status: model.StatusSuccess, TxHash: sub.Hash.Hex()}
	if !sub.Succeeded() {
		result.Status = model.StatusFailed
		result.Error = "approval transaction reverted"
		return result, errs.Newf(errs.Reverted, "approve locker", "tx %s", result.TxHash)
	}
	l.logger.Info("locker approved", zap.String("wallet", account.Address.Hex()), zap.String("tx_hash", result.TxHash))
	return result, nil
}

// LockFee reads the flat fee for the configured fee name. Any failure yields the degraded 0.01 fallback.
func (l *Locker) LockFee(ctx context.Context) model.LockFee {
	fee, err := l.locker.GetFee(ctx, l.cfg.FeeName)
	if err != nil || fee.FlatFee == nil {
		l.logger.Warn("getFee failed, using fallback flat fee", zap.String("fee_name", l.cfg.FeeName), zap.Error(err))
		return lockFee(FallbackFlatFee, true)
	}
	return lockFee(fee.FlatFee, false)
}

func lockFee(wei *big.Int, degraded bool) model.LockFee {
	return model.LockFee{Wei: wei.String(), Amount: units.FormatWei(wei), Degraded: degraded}
}

// ValidateDuration checks the lock duration bounds.
func ValidateDuration(days int) error {
	if days < MinDurationDays || days > MaxDurationDays {
		return errs.Newf(errs.UserInput, "validate duration", "duration must be between %d and %d days, got %d", MinDurationDays, MaxDurationDays, days)
	}
	return nil
}

// PreparedLock is an unsigned lock transaction and the values it was built with.
type PreparedLock struct {
	Tx         *types.Transaction
	UnlockDate time.Time
	Fee        model.LockFee
}

// Lock builds the unsigned lock transaction. It fails with errs.NotApproved, sending nothing, when the locker is not approved.
func (l *Locker) Lock(ctx context.Context, wallet common.Address, req model.LockRequest) (PreparedLock, error) {
	if err := ValidateDuration(req.DurationDays); err != nil {
		return PreparedLock{}, err
	}
	nftID, ok := new(big.Int).SetString(strings.TrimSpace(req.PositionID), 10)
	if !ok || nftID.Sign() <= 0 {
		return PreparedLock{}, errs.Newf(errs.UserInput, "lock", "invalid position id %q", req.PositionID)
	}

	approved, err := l.IsApproved(ctx, wallet)
	if err != nil {
		return PreparedLock{}, err
	}
	if !approved {
		return PreparedLock{}, errs.Newf(errs.NotApproved, "lock", "approve %s on the position manager first", l.cfg.Locker.Hex())
	}

	fee := l.LockFee(ctx)
	feeWei, _ := new(big.Int).SetString(fee.Wei, 10)
	unlock := req.UnlockDate(l.now())
	country := req.CountryCode
	if country == 0 {
		country = l.cfg.CountryCode
	}

	params := contracts.LockParams{
		NftPositionManager:  l.cfg.PositionManager,
		NftId:               nftID,
		DustRecipient:       wallet,
		Owner:               wallet,
		AdditionalCollector: wallet,
		CollectAddress:      wallet,
		UnlockDate:          big.NewInt(unlock),
		CountryCode:         country,
		FeeName:             l.cfg.FeeName,
		R:                   [][]byte{},
	}
	tx, err := chain.BuildTransaction(ctx, l.locker.Contract, "lock", []interface{}{params}, chain.Overrides{
		From:       wallet,
		Value:      feeWei,
		GasLimit:   LockGasLimit,
		NonceRetry: l.cfg.NonceRetry,
	})
	if err != nil {
		return PreparedLock{}, err
	}
	return PreparedLock{Tx: tx, UnlockDate: time.Unix(unlock, 0).UTC(), Fee: fee}, nil
}

// SendLock locks the position and waits for the receipt. Reverts are translated through the locker error table.
func (l *Locker) SendLock(ctx context.Context, account chain.Account, req model.LockRequest) (model.LockResult, error) {
	var prepared PreparedLock
	sub, err := l.submitter.Submit(ctx, account, func(ctx context.Context) (*types.Transaction, error) {
		p, err := l.Lock(ctx, account.Address, req)
		if err != nil {
			return nil, err
		}
		prepared = p
		return p.Tx, nil
	}, l.cfg.ReceiptTimeout)

	result := model.LockResult{PositionID: req.PositionID, UnlockDate: prepared.UnlockDate, Fee: prepared.Fee}
	if err != nil {
		result.Status = model.StatusFailed
		if sub != nil {
			result.TxHash = sub.Hash.Hex()
		}
		if errors.Is(err, errs.PendingTimeout) {
			result.Status = model.StatusPending
		}
		if errors.Is(err, errs.Reverted) {
			result.Error = TranslateError(chain.ReasonFromError(err))
		} else {
			result.Error = err.Error()
		}
		return result, err
	}

	result.TxHash = sub.Hash.Hex()
	if !sub.Succeeded() {
		reason := chain.RevertReason(ctx, l.gw, account.Address, sub.Tx, sub.Receipt.BlockNumber)
		result.Status = model.StatusFailed
		result.Error = TranslateError(reason)
		if reason == "" {
			result.Error = "lock transaction reverted"
		}
		l.logger.Warn("lock reverted", zap.String("tx_hash", result.TxHash), zap.String("reason", reason))
		return result, errs.Newf(errs.Reverted, "lock position", "tx %s: %s", result.TxHash, result.Error)
	}

	result.Status = model.StatusSuccess
	l.logger.Info("position locked",
		zap.String("wallet", account.Address.Hex()),
		zap.String("position_id", req.PositionID),
		zap.Time("unlock_date", result.UnlockDate),
		zap.String("tx_hash", result.TxHash),
	)
	return result, nil
}
