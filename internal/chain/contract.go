package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"launchpad/internal/errs"
)

// Contract binds an ABI to an address on a gateway.
type Contract struct {
	Address common.Address
	ABI     abi.ABI
	gw      Gateway
}

func NewContract(address common.Address, parsed abi.ABI, gw Gateway) *Contract {
	return &Contract{Address: address, ABI: parsed, gw: gw}
}

// Gateway returns the gateway the contract is bound to.
func (c *Contract) Gateway() Gateway {
	return c.gw
}

// Pack encodes a method call.
func (c *Contract) Pack(method string, args ...interface{}) ([]byte, error) {
	data, err := c.ABI.Pack(method, args...)
	if err != nil {
		return nil, errs.Wrap(errs.UserInput, "pack "+method, err)
	}
	return data, nil
}

// Call performs a read-only call at the latest block and unpacks the outputs.
func (c *Contract) Call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	return c.CallAt(ctx, common.Address{}, nil, method, args...)
}

// CallAt performs a read-only call from a given sender at block.
func (c *Contract) CallAt(ctx context.Context, from common.Address, block *big.Int, method string, args ...interface{}) ([]interface{}, error) {
	data, err := c.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	to := c.Address
	resp, err := c.gw.Call(ctx, ethereum.CallMsg{From: from, To: &to, Data: data}, block)
	if err != nil {
		return nil, Classify("call "+method, err)
	}
	values, err := c.ABI.Unpack(method, resp)
	if err != nil {
		return nil, errs.Wrap(errs.RPCError, "unpack "+method, err)
	}
	if len(values) == 0 {
		return nil, errs.New(errs.RPCError, "unpack "+method, "no return values")
	}
	return values, nil
}

// Overrides controls how BuildTransaction fills the transaction envelope.
type Overrides struct {
	From  common.Address
	Value *big.Int
	// GasLimit of zero estimates gas.
	GasLimit uint64
	// GasPrice of nil uses the gateway's suggestion.
	GasPrice *big.Int
	// Nonce of nil fetches the pending nonce under NonceRetry.
	Nonce      *uint64
	NonceRetry RetryPolicy
	// DynamicFee builds an EIP-1559 transaction with max fee and tip equal to the gas price.
	DynamicFee bool
}

// BuildTransaction packs method and returns an unsigned transaction to c.
func BuildTransaction(ctx context.Context, c *Contract, method string, args []interface{}, opts Overrides) (*types.Transaction, error) {
	data, err := c.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	return BuildRaw(ctx, c.gw, c.Address, data, opts)
}

// BuildRaw returns an unsigned transaction carrying already encoded calldata.
func BuildRaw(ctx context.Context, gw Gateway, to common.Address, data []byte, opts Overrides) (*types.Transaction, error) {
	value := opts.Value
	if value == nil {
		value = new(big.Int)
	}

	gasPrice := opts.GasPrice
	if gasPrice == nil {
		price, err := gw.GasPrice(ctx)
		if err != nil {
			return nil, err
		}
		gasPrice = price
	}

	var nonce uint64
	if opts.Nonce != nil {
		nonce = *opts.Nonce
	} else {
		policy := opts.NonceRetry
		if policy.Attempts == 0 {
			policy = DefaultNonceRetry
		}
		n, err := NonceWithRetry(ctx, gw, opts.From, policy)
		if err != nil {
			return nil, err
		}
		nonce = n
	}

	gasLimit := opts.GasLimit
	if gasLimit == 0 {
		estimated, err := gw.EstimateGas(ctx, ethereum.CallMsg{From: opts.From, To: &to, Value: value, Data: data})
		if err != nil {
			return nil, err
		}
		gasLimit = estimated
	}

	if !opts.DynamicFee {
		return types.NewTx(&types.LegacyTx{
			Nonce:    nonce,
			To:       &to,
			Value:    value,
			Gas:      gasLimit,
			GasPrice: gasPrice,
			Data:     data,
		}), nil
	}

	chainID, err := gw.ChainID(ctx)
	if err != nil {
		return nil, err
	}
	return types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		To:        &to,
		Value:     value,
		Gas:       gasLimit,
		GasFeeCap: new(big.Int).Set(gasPrice),
		GasTipCap: new(big.Int).Set(gasPrice),
		Data:      data,
	}), nil
}
