package chain

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"

	"launchpad/internal/errs"
)

// Gateway is the narrow chain surface used by the orchestrators. Implementations never hold keys.
type Gateway interface {
	ChainID(ctx context.Context) (*big.Int, error)
	Balance(ctx context.Context, account common.Address) (*big.Int, error)
	// Nonce returns the pending nonce of account.
	Nonce(ctx context.Context, account common.Address) (uint64, error)
	GasPrice(ctx context.Context) (*big.Int, error)
	Call(ctx context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendRaw(ctx context.Context, raw []byte) (common.Hash, error)
	// Receipt returns errs.NotFound while the transaction is pending.
	Receipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
	// WaitForReceipt returns *errs.PendingTimeoutError when timeout elapses first.
	WaitForReceipt(ctx context.Context, hash common.Hash, timeout time.Duration) (*types.Receipt, error)
}

// Classify maps a raw client error onto the error taxonomy.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var classified *errs.Error
	if errors.As(err, &classified) {
		return err
	}
	if errors.Is(err, ethereum.NotFound) {
		return errs.Wrap(errs.NotFound, op, err)
	}
	if isRevert(err) {
		return errs.Wrap(errs.Reverted, op, err)
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return errs.Wrap(errs.RPCError, op, err)
	}
	return errs.Wrap(errs.ChainUnavailable, op, err)
}

func isRevert(err error) bool {
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) && dataErr.ErrorData() != nil {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "execution reverted")
}

// WaitMined polls gw.Receipt until it is available, ctx ends, or timeout elapses.
func WaitMined(ctx context.Context, gw Gateway, hash common.Hash, timeout, interval time.Duration) (*types.Receipt, error) {
	if interval <= 0 {
		interval = time.Second
	}
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		receipt, err := gw.Receipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, errs.NotFound) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, &errs.PendingTimeoutError{TxHash: hash.Hex(), Timeout: timeout}
		case <-ticker.C:
		}
	}
}
