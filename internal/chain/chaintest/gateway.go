// Package chaintest provides an in-memory chain.Gateway for tests.
package chaintest

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"launchpad/internal/chain"
	"launchpad/internal/errs"
)

// CallHandler answers an eth_call with the decoded method inputs.
type CallHandler func(args []interface{}) ([]interface{}, error)

// ReceiptFunc builds the receipt for a mined transaction.
type ReceiptFunc func(tx *types.Transaction) *types.Receipt

type handlerKey struct {
	to       common.Address
	selector [4]byte
}

type handler struct {
	method abi.Method
	fn     CallHandler
}

// Gateway dispatches calls on (address, selector) and records sent transactions.
type Gateway struct {
	mu sync.Mutex

	ID        *big.Int
	Price     *big.Int
	GasEst    uint64
	Balances  map[common.Address]*big.Int
	Nonces    map[common.Address]uint64
	NonceErrs []error
	SendErrs  []error
	WaitErrs  []error
	Receipts  ReceiptFunc

	handlers   map[handlerKey]handler
	sent       []*types.Transaction
	receipts   map[common.Hash]*types.Receipt
	nonceCalls int
	calls      map[string]int
}

// New returns a gateway for chain id 137 with a 30 gwei gas price and successful receipts.
func New() *Gateway {
	return &Gateway{
		ID:       big.NewInt(137),
		Price:    big.NewInt(30_000_000_000),
		GasEst:   100_000,
		Balances: make(map[common.Address]*big.Int),
		Nonces:   make(map[common.Address]uint64),
		handlers: make(map[handlerKey]handler),
		receipts: make(map[common.Hash]*types.Receipt),
		calls:    make(map[string]int),
	}
}

// On registers fn for method of parsed at address.
func (g *Gateway) On(address common.Address, parsed abi.ABI, method string, fn CallHandler) {
	m, ok := parsed.Methods[method]
	if !ok {
		panic(fmt.Sprintf("chaintest: unknown method %s", method))
	}
	var selector [4]byte
	copy(selector[:], m.ID)

	g.mu.Lock()
	defer g.mu.Unlock()
	g.handlers[handlerKey{to: address, selector: selector}] = handler{method: m, fn: fn}
}

// Returns registers fixed outputs for method.
func (g *Gateway) Returns(address common.Address, parsed abi.ABI, method string, outputs ...interface{}) {
	g.On(address, parsed, method, func([]interface{}) ([]interface{}, error) {
		return outputs, nil
	})
}

// Fails registers an error for method.
func (g *Gateway) Fails(address common.Address, parsed abi.ABI, method string, err error) {
	g.On(address, parsed, method, func([]interface{}) ([]interface{}, error) {
		return nil, err
	})
}

// Sent returns the transactions received by SendRaw, in order.
func (g *Gateway) Sent() []*types.Transaction {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]*types.Transaction(nil), g.sent...)
}

// NonceCalls returns how many times Nonce was called.
func (g *Gateway) NonceCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.nonceCalls
}

// Calls returns how many eth_calls reached method.
func (g *Gateway) Calls(method string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[method]
}

// SetReceipt stores a receipt returned by Receipt and WaitForReceipt.
func (g *Gateway) SetReceipt(hash common.Hash, receipt *types.Receipt) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.receipts[hash] = receipt
}

func (g *Gateway) ChainID(context.Context) (*big.Int, error) {
	return new(big.Int).Set(g.ID), nil
}

func (g *Gateway) Balance(_ context.Context, account common.Address) (*big.Int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if balance, ok := g.Balances[account]; ok {
		return new(big.Int).Set(balance), nil
	}
	return new(big.Int), nil
}

func (g *Gateway) Nonce(_ context.Context, account common.Address) (uint64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nonceCalls++
	if len(g.NonceErrs) > 0 {
		err := g.NonceErrs[0]
		g.NonceErrs = g.NonceErrs[1:]
		if err != nil {
			return 0, err
		}
	}
	return g.Nonces[account], nil
}

func (g *Gateway) GasPrice(context.Context) (*big.Int, error) {
	return new(big.Int).Set(g.Price), nil
}

func (g *Gateway) Call(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if msg.To == nil || len(msg.Data) < 4 {
		return nil, errs.New(errs.RPCError, "eth_call", "invalid call")
	}
	var selector [4]byte
	copy(selector[:], msg.Data[:4])

	g.mu.Lock()
	h, ok := g.handlers[handlerKey{to: *msg.To, selector: selector}]
	if ok {
		g.calls[h.method.Name]++
	}
	g.mu.Unlock()
	if !ok {
		return nil, errs.Newf(errs.Reverted, "eth_call", "execution reverted: no handler for %x at %s", selector, msg.To.Hex())
	}

	args, err := h.method.Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, errs.Wrap(errs.RPCError, "eth_call", err)
	}
	outputs, err := h.fn(args)
	if err != nil {
		return nil, err
	}
	return h.method.Outputs.Pack(outputs...)
}

func (g *Gateway) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return g.GasEst, nil
}

func (g *Gateway) SendRaw(_ context.Context, raw []byte) (common.Hash, error) {
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return common.Hash{}, errs.Wrap(errs.RPCError, "send transaction", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.SendErrs) > 0 {
		err := g.SendErrs[0]
		g.SendErrs = g.SendErrs[1:]
		if err != nil {
			return common.Hash{}, err
		}
	}
	g.sent = append(g.sent, tx)

	receipt := &types.Receipt{Status: types.ReceiptStatusSuccessful, GasUsed: tx.Gas() / 2}
	if g.Receipts != nil {
		if r := g.Receipts(tx); r != nil {
			receipt = r
		}
	}
	receipt.TxHash = tx.Hash()
	if receipt.BlockNumber == nil {
		receipt.BlockNumber = big.NewInt(int64(len(g.sent)))
	}
	g.receipts[tx.Hash()] = receipt
	return tx.Hash(), nil
}

func (g *Gateway) Receipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	receipt, ok := g.receipts[hash]
	if !ok {
		return nil, errs.Wrap(errs.NotFound, "get receipt", ethereum.NotFound)
	}
	return receipt, nil
}

func (g *Gateway) WaitForReceipt(ctx context.Context, hash common.Hash, timeout time.Duration) (*types.Receipt, error) {
	g.mu.Lock()
	if len(g.WaitErrs) > 0 {
		err := g.WaitErrs[0]
		g.WaitErrs = g.WaitErrs[1:]
		if err != nil {
			g.mu.Unlock()
			return nil, err
		}
	}
	g.mu.Unlock()
	return g.Receipt(ctx, hash)
}

var _ chain.Gateway = (*Gateway)(nil)
