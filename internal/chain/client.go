package chain

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// Client wraps go-ethereum RPC and implements Gateway.
type Client struct {
	rpcClient *rpc.Client
	ethClient *ethclient.Client

	pollInterval time.Duration

	mu      sync.Mutex
	chainID *big.Int
}

// NewClient creates a new chain client from the RPC URL.
func NewClient(ctx context.Context, rpcURL string) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, Classify("dial rpc", err)
	}

	return &Client{
		rpcClient:    rpcClient,
		ethClient:    ethclient.NewClient(rpcClient),
		pollInterval: 2 * time.Second,
	}, nil
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// ChainID returns the chain ID, cached after the first successful lookup.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	c.mu.Lock()
	cached := c.chainID
	c.mu.Unlock()
	if cached != nil {
		return new(big.Int).Set(cached), nil
	}

	id, err := c.ethClient.ChainID(ctx)
	if err != nil {
		return nil, Classify("chain id", err)
	}
	c.mu.Lock()
	c.chainID = id
	c.mu.Unlock()
	return new(big.Int).Set(id), nil
}

// Balance returns the latest native balance of account.
func (c *Client) Balance(ctx context.Context, account common.Address) (*big.Int, error) {
	balance, err := c.ethClient.BalanceAt(ctx, account, nil)
	if err != nil {
		return nil, Classify("get balance", err)
	}
	return balance, nil
}

// Nonce returns the pending nonce of account.
func (c *Client) Nonce(ctx context.Context, account common.Address) (uint64, error) {
	nonce, err := c.ethClient.PendingNonceAt(ctx, account)
	if err != nil {
		return 0, Classify("get nonce", err)
	}
	return nonce, nil
}

// GasPrice returns the node's suggested gas price.
func (c *Client) GasPrice(ctx context.Context) (*big.Int, error) {
	price, err := c.ethClient.SuggestGasPrice(ctx)
	if err != nil {
		return nil, Classify("get gas price", err)
	}
	return price, nil
}

// Call performs an eth_call at block, or latest when block is nil.
func (c *Client) Call(ctx context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error) {
	out, err := c.ethClient.CallContract(ctx, msg, block)
	if err != nil {
		return nil, Classify("eth_call", err)
	}
	return out, nil
}

// EstimateGas estimates the gas needed for msg.
func (c *Client) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	gas, err := c.ethClient.EstimateGas(ctx, msg)
	if err != nil {
		return 0, Classify("estimate gas", err)
	}
	return gas, nil
}

// SendRaw submits a signed transaction and returns its hash.
func (c *Client) SendRaw(ctx context.Context, raw []byte) (common.Hash, error) {
	var hash common.Hash
	if err := c.rpcClient.CallContext(ctx, &hash, "eth_sendRawTransaction", hexutil.Encode(raw)); err != nil {
		return common.Hash{}, Classify("send transaction", err)
	}
	return hash, nil
}

// Receipt returns the receipt of hash.
func (c *Client) Receipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	receipt, err := c.ethClient.TransactionReceipt(ctx, hash)
	if err != nil {
		return nil, Classify("get receipt", err)
	}
	return receipt, nil
}

// WaitForReceipt polls for the receipt of hash until timeout.
func (c *Client) WaitForReceipt(ctx context.Context, hash common.Hash, timeout time.Duration) (*types.Receipt, error) {
	return WaitMined(ctx, c, hash, timeout, c.pollInterval)
}

var _ Gateway = (*Client)(nil)
