package pool

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"launchpad/internal/chain"
	"launchpad/internal/contracts"
	"launchpad/internal/errs"
	"launchpad/internal/model"
	"launchpad/internal/units"
)

const (
	// PrepareGasLimit is the gas budget quoted to the user during Prepare.
	PrepareGasLimit uint64 = 5_000_000
	// ExecuteGasLimit is the gas limit of the multicall transaction.
	ExecuteGasLimit uint64 = 15_000_000
	// ApproveGasLimit is the gas limit of the ERC20 approve transaction.
	ApproveGasLimit uint64 = 200_000
	// MintDeadline is added to the current time for the mint deadline.
	MintDeadline = 1200 * time.Second
)

// WalletStore resolves a user's signing wallet.
type WalletStore = chain.WalletSource

// Recorder appends pool creation history.
type Recorder interface {
	AppendPoolRecord(ctx context.Context, record model.PoolRecord) error
}

// Config is the per-network setup of an Orchestrator.
type Config struct {
	Network         string
	NativeSymbol    string
	Factory         common.Address
	PositionManager common.Address
	WrappedNative   common.Address
	ApprovalTimeout time.Duration
	ReceiptTimeout  time.Duration
	NonceRetry      chain.RetryPolicy
}

// Orchestrator prepares and executes pool creation with initial full-range liquidity.
type Orchestrator struct {
	cfg       Config
	gw        chain.Gateway
	submitter *chain.Submitter
	factory   *contracts.Factory
	manager   *contracts.PositionManager
	wallets   WalletStore
	records   Recorder
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithClock overrides the time source used for deadlines and records.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithIDs overrides the record id generator.
func WithIDs(newID func() string) Option {
	return func(o *Orchestrator) { o.newID = newID }
}

func New(cfg Config, submitter *chain.Submitter, wallets WalletStore, records Recorder, logger *zap.Logger, opts ...Option) (*Orchestrator, error) {
	if submitter == nil {
		return nil, errors.New("submitter is nil")
	}
	if wallets == nil {
		return nil, errors.New("wallet store is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
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
	factory, err := contracts.NewFactory(cfg.Factory, gw)
	if err != nil {
		return nil, errors.Wrap(err, "factory abi")
	}
	manager, err := contracts.NewPositionManager(cfg.PositionManager, gw)
	if err != nil {
		return nil, errors.Wrap(err, "position manager abi")
	}

	o := &Orchestrator{
		cfg:       cfg,
		gw:        gw,
		submitter: submitter,
		factory:   factory,
		manager:   manager,
		wallets:   wallets,
		records:   records,
		logger:    logger.With(zap.String("network", cfg.Network)),
		now:       time.Now,
		newID:     newRecordID,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// SortTokens orders two addresses by lower-case hex, smaller first.
func SortTokens(a, b common.Address) (common.Address, common.Address) {
	if strings.ToLower(a.Hex()) < strings.ToLower(b.Hex()) {
		return a, b
	}
	return b, a
}

func (o *Orchestrator) account(ctx context.Context, userID string) (chain.Account, error) {
	return chain.ResolveAccount(ctx, o.wallets, userID)
}

func (o *Orchestrator) record(ctx context.Context, record model.PoolRecord) {
	if o.records == nil {
		return
	}
	if err := o.records.AppendPoolRecord(ctx, record); err != nil {
		o.logger.Warn("append pool record failed",
			zap.String("user_id", record.UserID),
			zap.String("stage", string(record.Stage)),
			zap.Error(err),
		)
	}
}

func (o *Orchestrator) validate(req model.PoolCreationRequest) (common.Address, error) {
	if req.Network != "" && !strings.EqualFold(req.Network, o.cfg.Network) {
		return common.Address{}, errs.Newf(errs.UserInput, "validate request", "network %q is not served here", req.Network)
	}
	if !common.IsHexAddress(req.TokenAddress) {
		return common.Address{}, errs.Newf(errs.UserInput, "validate request", "invalid token address %q", req.TokenAddress)
	}
	if !req.TokenAmount.IsPositive() || !req.NativeAmount.IsPositive() {
		return common.Address{}, errs.New(errs.UserInput, "validate request", "token and native amounts must be positive")
	}
	if units.ToWei(req.TokenAmount, units.EtherDecimals).Sign() <= 0 || units.ToWei(req.NativeAmount, units.EtherDecimals).Sign() <= 0 {
		return common.Address{}, errs.New(errs.UserInput, "validate request", "token and native amounts must be at least 1 wei")
	}
	token := common.HexToAddress(req.TokenAddress)
	if token == o.cfg.WrappedNative {
		return common.Address{}, errs.Newf(errs.UserInput, "validate request", "token %s is the wrapped native token", token.Hex())
	}
	return token, nil
}

// Recheck reads the receipt of a previously sent transaction.
func (o *Orchestrator) Recheck(ctx context.Context, txHash string) (model.TxStatus, error) {
	return Recheck(ctx, o.gw, txHash)
}

// Recheck reads the receipt of txHash on gw. A missing receipt is reported as pending.
func Recheck(ctx context.Context, gw chain.Gateway, txHash string) (model.TxStatus, error) {
	if len(strings.TrimPrefix(txHash, "0x")) != 64 {
		return model.TxStatus{}, errs.Newf(errs.UserInput, "recheck", "invalid transaction hash %q", txHash)
	}
	hash := common.HexToHash(txHash)
	status := model.TxStatus{TxHash: hash.Hex(), Status: model.StatusPending}

	receipt, err := gw.Receipt(ctx, hash)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return status, nil
		}
		return model.TxStatus{}, err
	}
	status.Status = model.StatusFailed
	if receipt.Status == 1 {
		status.Status = model.StatusSuccess
	}
	if receipt.BlockNumber != nil {
		status.BlockNumber = receipt.BlockNumber.Uint64()
	}
	status.GasUsed = receipt.GasUsed
	return status, nil
}
