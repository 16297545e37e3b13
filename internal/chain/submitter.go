package chain

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"launchpad/internal/errs"
	"launchpad/internal/model"
)

// Account is a signing wallet. The key is handed to the Signer only.
type Account struct {
	Address    common.Address
	PrivateKey string
}

// WalletSource resolves a user's signing wallet.
type WalletSource interface {
	GetWallet(ctx context.Context, userID string) (model.Wallet, error)
}

// ResolveAccount loads userID's wallet. A missing or incomplete wallet is errs.NoWallet.
func ResolveAccount(ctx context.Context, wallets WalletSource, userID string) (Account, error) {
	wallet, err := wallets.GetWallet(ctx, userID)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return Account{}, errs.Wrap(errs.NoWallet, "load wallet", err)
		}
		return Account{}, err
	}
	if wallet.Address == "" || wallet.PrivateKey == "" {
		return Account{}, errs.New(errs.NoWallet, "load wallet", "wallet for user "+userID+" is incomplete")
	}
	return Account{Address: common.HexToAddress(wallet.Address), PrivateKey: wallet.PrivateKey}, nil
}

// Submission is a sent transaction and, once mined, its receipt.
type Submission struct {
	Tx      *types.Transaction
	Hash    common.Hash
	Receipt *types.Receipt
}

// Succeeded reports whether the transaction was mined with status 1.
func (s *Submission) Succeeded() bool {
	return s != nil && s.Receipt != nil && s.Receipt.Status == types.ReceiptStatusSuccessful
}

// BuildFunc produces an unsigned transaction. It runs with the wallet lock held so nonce reads are serialized.
type BuildFunc func(ctx context.Context) (*types.Transaction, error)

// Submitter signs, sends and confirms transactions one wallet at a time.
type Submitter struct {
	gw     Gateway
	signer Signer
	locks  *WalletLocks
	logger *zap.Logger
}

func NewSubmitter(gw Gateway, signer Signer, locks *WalletLocks, logger *zap.Logger) *Submitter {
	if signer == nil {
		signer = KeySigner{}
	}
	if locks == nil {
		locks = NewWalletLocks()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Submitter{gw: gw, signer: signer, locks: locks, logger: logger}
}

// Gateway returns the gateway transactions are sent through.
func (s *Submitter) Gateway() Gateway {
	return s.gw
}

// Submit builds, signs and sends a transaction, then waits up to timeout for the receipt.
// A zero timeout returns right after the send. On wait failure the returned Submission still carries the hash.
func (s *Submitter) Submit(ctx context.Context, account Account, build BuildFunc, timeout time.Duration) (*Submission, error) {
	unlock := s.locks.Lock(account.Address)
	defer unlock()

	tx, err := build(ctx)
	if err != nil {
		return nil, err
	}

	chainID, err := s.gw.ChainID(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := s.signer.Sign(tx, chainID, account.PrivateKey)
	if err != nil {
		return nil, err
	}

	hash, err := s.gw.SendRaw(ctx, raw)
	if err != nil {
		return nil, err
	}
	sub := &Submission{Tx: tx, Hash: hash}
	s.logger.Info("transaction sent",
		zap.String("from", account.Address.Hex()),
		zap.String("tx_hash", hash.Hex()),
		zap.Uint64("nonce", tx.Nonce()),
		zap.Uint64("gas", tx.Gas()),
	)

	if timeout <= 0 {
		return sub, nil
	}

	receipt, err := s.gw.WaitForReceipt(ctx, hash, timeout)
	if err != nil {
		s.logger.Warn("receipt wait failed", zap.String("tx_hash", hash.Hex()), zap.Error(err))
		return sub, err
	}
	sub.Receipt = receipt
	s.logger.Info("transaction mined",
		zap.String("tx_hash", hash.Hex()),
		zap.Uint64("status", receipt.Status),
		zap.Uint64("gas_used", receipt.GasUsed),
	)
	return sub, nil
}
