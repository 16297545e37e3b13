package chain

import (
	"context"
	"math/big"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
)

// RevertReason replays tx as an eth_call at block and returns the revert string.
// It returns "" when the replay succeeds or no reason can be recovered.
func RevertReason(ctx context.Context, gw Gateway, from common.Address, tx *types.Transaction, block *big.Int) string {
	if tx == nil || tx.To() == nil {
		return ""
	}
	msg := ethereum.CallMsg{
		From:  from,
		To:    tx.To(),
		Gas:   tx.Gas(),
		Value: tx.Value(),
		Data:  tx.Data(),
	}
	_, err := gw.Call(ctx, msg, block)
	if err == nil {
		return ""
	}
	return ReasonFromError(err)
}

// ReasonFromError extracts a revert reason from a call error, decoding Error(string) data when present.
func ReasonFromError(err error) string {
	if err == nil {
		return ""
	}
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if encoded, ok := dataErr.ErrorData().(string); ok {
			if raw, decodeErr := hexutil.Decode(encoded); decodeErr == nil {
				if reason, unpackErr := abi.UnpackRevert(raw); unpackErr == nil {
					return reason
				}
			}
		}
	}

	msg := err.Error()
	const marker = "execution reverted"
	if idx := strings.Index(strings.ToLower(msg), marker); idx >= 0 {
		reason := strings.TrimSpace(strings.TrimPrefix(msg[idx+len(marker):], ":"))
		if reason != "" {
			return reason
		}
	}
	return msg
}
