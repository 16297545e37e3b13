package pool

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launchpad/internal/chain"
	"launchpad/internal/chain/chaintest"
	"launchpad/internal/contracts"
	"launchpad/internal/errs"
	"launchpad/internal/model"
	"launchpad/internal/tickmath"
)

const testKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

var (
	factoryAddr = common.HexToAddress("0x1F98431c8aD98523631AE4a59f267346ea31F984")
	managerAddr = common.HexToAddress("0xC36442b4a4522E871399CD717aBDD847Ab11FE88")
	wmatic      = common.HexToAddress("0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270")
	lowToken    = common.HexToAddress("0x0000000000000000000000000000000000001234")
	highToken   = common.HexToAddress("0xfFfFFFfFfFFfFFfFfFfFFfFfFFFfFFfFfFfFFFF0")
	createdPool = common.HexToAddress("0x5555555555555555555555555555555555555555")
	oneEther    = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
)

type walletStore map[string]model.Wallet

func (w walletStore) GetWallet(_ context.Context, userID string) (model.Wallet, error) {
	wallet, ok := w[userID]
	if !ok {
		return model.Wallet{}, errs.New(errs.NotFound, "get wallet", "no wallet for "+userID)
	}
	return wallet, nil
}

type recorder struct {
	mu      sync.Mutex
	records []model.PoolRecord
}

func (r *recorder) AppendPoolRecord(_ context.Context, record model.PoolRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, record)
	return nil
}

type fixture struct {
	gw       *chaintest.Gateway
	orch     *Orchestrator
	records  *recorder
	wallet   common.Address
	manager  abi.ABI
	existing common.Address
}

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), oneEther)
}

func newFixture(t *testing.T, token common.Address, allowance *big.Int) *fixture {
	t.Helper()
	gw := chaintest.New()
	walletAddr, err := chain.AddressOf(testKey)
	require.NoError(t, err)
	gw.Balances[walletAddr] = ether(100)

	factoryABI, err := contracts.FactoryABI()
	require.NoError(t, err)
	managerABI, err := contracts.PositionManagerABI()
	require.NoError(t, err)
	erc20ABI, err := contracts.ERC20ABI()
	require.NoError(t, err)

	f := &fixture{gw: gw, records: &recorder{}, wallet: walletAddr, manager: managerABI}
	gw.On(factoryAddr, factoryABI, "getPool", func(args []interface{}) ([]interface{}, error) {
		if f.existing != (common.Address{}) {
			return []interface{}{f.existing}, nil
		}
		for _, tx := range gw.Sent() {
			if tx.To() != nil && *tx.To() == managerAddr {
				return []interface{}{createdPool}, nil
			}
		}
		return []interface{}{common.Address{}}, nil
	})
	gw.Returns(token, erc20ABI, "allowance", allowance)

	submitter := chain.NewSubmitter(gw, chain.KeySigner{}, chain.NewWalletLocks(), nil)
	orch, err := New(Config{
		Network:         "polygon",
		NativeSymbol:    "MATIC",
		Factory:         factoryAddr,
		PositionManager: managerAddr,
		WrappedNative:   wmatic,
		NonceRetry:      chain.RetryPolicy{Attempts: 3, Delay: time.Millisecond},
	}, submitter, walletStore{"u1": {UserID: "u1", Address: walletAddr.Hex(), PrivateKey: testKey}}, f.records, nil,
		WithClock(func() time.Time { return time.Unix(1_700_000_000, 0) }))
	require.NoError(t, err)
	f.orch = orch
	return f
}

func request(token common.Address, tokenAmount, nativeAmount string) model.PoolCreationRequest {
	return model.PoolCreationRequest{
		UserID:       "u1",
		TokenAddress: token.Hex(),
		Network:      "polygon",
		TokenAmount:  decimal.RequireFromString(tokenAmount),
		NativeAmount: decimal.RequireFromString(nativeAmount),
	}
}

func (f *fixture) multicalls(t *testing.T) []*types.Transaction {
	t.Helper()
	var out []*types.Transaction
	for _, tx := range f.gw.Sent() {
		if tx.To() != nil && *tx.To() == managerAddr {
			out = append(out, tx)
		}
	}
	return out
}

func (f *fixture) innerCalls(t *testing.T, tx *types.Transaction) [][]byte {
	t.Helper()
	method := f.manager.Methods["multicall"]
	require.Equal(t, method.ID, tx.Data()[:4])
	args, err := method.Inputs.Unpack(tx.Data()[4:])
	require.NoError(t, err)
	return args[0].([][]byte)
}

func (f *fixture) selector(name string) []byte {
	return f.manager.Methods[name].ID
}

func mintLogs(tokenID int64) func(tx *types.Transaction) *types.Receipt {
	return func(tx *types.Transaction) *types.Receipt {
		if tx.To() == nil || *tx.To() != managerAddr {
			return nil
		}
		return &types.Receipt{
			Status: types.ReceiptStatusSuccessful,
			Logs: []*types.Log{{
				Address: managerAddr,
				Topics:  []common.Hash{contracts.IncreaseLiquidityTopic, common.BigToHash(big.NewInt(tokenID))},
			}},
		}
	}
}

func TestSortTokensCommutative(t *testing.T) {
	a0, a1 := SortTokens(lowToken, wmatic)
	b0, b1 := SortTokens(wmatic, lowToken)
	assert.Equal(t, a0, b0)
	assert.Equal(t, a1, b1)
	assert.Equal(t, lowToken, a0)

	c0, _ := SortTokens(highToken, wmatic)
	assert.Equal(t, wmatic, c0)
}

func TestPrepareQuotesCostAndRecords(t *testing.T) {
	f := newFixture(t, lowToken, ether(0))

	prepared, err := f.orch.Prepare(context.Background(), request(lowToken, "1000000", "10"))
	require.NoError(t, err)

	assert.True(t, prepared.IsToken0)
	assert.Equal(t, lowToken.Hex(), prepared.Token0)
	assert.Equal(t, "1000000", prepared.Amount0.String())
	assert.Equal(t, "10", prepared.Amount1.String())
	assert.False(t, prepared.PoolExists)
	assert.Equal(t, PrepareGasLimit, prepared.GasLimit)
	assert.Equal(t, "0.15", prepared.TransactionCost.String())
	assert.Equal(t, "10.15", prepared.TotalCost.String())
	assert.Equal(t, "100", prepared.CurrentBalance.String())
	assert.Empty(t, f.gw.Sent())

	require.Len(t, f.records.records, 1)
	assert.Equal(t, model.StagePrepared, f.records.records[0].Stage)
	assert.Empty(t, f.records.records[0].PoolAddress)
}

func TestPrepareReportsGasShortfallFirst(t *testing.T) {
	f := newFixture(t, lowToken, ether(0))
	f.gw.Balances[f.wallet] = new(big.Int).Div(oneEther, big.NewInt(10))

	_, err := f.orch.Prepare(context.Background(), request(lowToken, "1000", "50"))
	require.Error(t, err)

	var balanceErr *errs.InsufficientBalanceError
	require.True(t, errors.As(err, &balanceErr))
	assert.Equal(t, errs.BalanceCheckGas, balanceErr.Check)
	assert.Equal(t, "150000000000000000", balanceErr.Required.String())
	assert.Equal(t, "50000000000000000", balanceErr.Shortfall().String())
	assert.Empty(t, f.records.records)
}

func TestPrepareReportsLiquidityShortfall(t *testing.T) {
	f := newFixture(t, lowToken, ether(0))
	f.gw.Balances[f.wallet] = new(big.Int).Div(oneEther, big.NewInt(5))

	_, err := f.orch.Prepare(context.Background(), request(lowToken, "1000", "1"))
	var balanceErr *errs.InsufficientBalanceError
	require.True(t, errors.As(err, &balanceErr))
	assert.Equal(t, errs.BalanceCheckGasLiquidity, balanceErr.Check)
	assert.Equal(t, "1150000000000000000", balanceErr.Required.String())
	assert.Equal(t, "950000000000000000", balanceErr.Shortfall().String())
	assert.True(t, errors.Is(err, errs.InsufficientBalance))
}

func TestPrepareValidation(t *testing.T) {
	f := newFixture(t, lowToken, ether(0))

	_, err := f.orch.Prepare(context.Background(), model.PoolCreationRequest{UserID: "u1", TokenAddress: "nope",
		TokenAmount: decimal.NewFromInt(1), NativeAmount: decimal.NewFromInt(1)})
	assert.True(t, errors.Is(err, errs.UserInput))

	_, err = f.orch.Prepare(context.Background(), request(lowToken, "0", "1"))
	assert.True(t, errors.Is(err, errs.UserInput))

	_, err = f.orch.Prepare(context.Background(), request(lowToken, "0.0000000000000000001", "1"))
	assert.True(t, errors.Is(err, errs.UserInput), "amount below one wei")

	_, err = f.orch.Prepare(context.Background(), request(lowToken, "1", "0.0000000000000000001"))
	assert.True(t, errors.Is(err, errs.UserInput), "native amount below one wei")

	_, err = f.orch.Prepare(context.Background(), request(wmatic, "1", "1"))
	assert.True(t, errors.Is(err, errs.UserInput), "token is the wrapped native")

	req := request(lowToken, "1", "1")
	req.UserID = "stranger"
	_, err = f.orch.Prepare(context.Background(), req)
	assert.True(t, errors.Is(err, errs.NoWallet))
}

func TestExecuteToken0CreatesPoolWithoutValue(t *testing.T) {
	f := newFixture(t, lowToken, ether(0))
	f.gw.Receipts = mintLogs(4242)

	result := f.orch.Execute(context.Background(), request(lowToken, "1000000", "10"))
	require.Equal(t, model.StatusSuccess, result.Status, result.Error)
	assert.Equal(t, "4242", result.PositionID)
	assert.Equal(t, createdPool.Hex(), result.PoolAddress)
	assert.False(t, result.RetryUsed)

	sent := f.gw.Sent()
	require.Len(t, sent, 2)

	approve := sent[0]
	assert.Equal(t, lowToken, *approve.To())
	assert.Equal(t, ApproveGasLimit, approve.Gas())
	erc20ABI, _ := contracts.ERC20ABI()
	approveArgs, err := erc20ABI.Methods["approve"].Inputs.Unpack(approve.Data()[4:])
	require.NoError(t, err)
	assert.Equal(t, managerAddr, approveArgs[0].(common.Address))
	assert.Equal(t, ether(2_000_000).String(), approveArgs[1].(*big.Int).String())

	multicall := sent[1]
	assert.Equal(t, uint8(types.DynamicFeeTxType), multicall.Type())
	assert.Equal(t, ExecuteGasLimit, multicall.Gas())
	assert.Equal(t, "0", multicall.Value().String())
	assert.Equal(t, multicall.GasFeeCap().String(), multicall.GasTipCap().String())

	calls := f.innerCalls(t, multicall)
	require.Len(t, calls, 2)
	assert.Equal(t, f.selector("createAndInitializePoolIfNecessary"), calls[0][:4])
	assert.Equal(t, f.selector("mint"), calls[1][:4])

	mintArgs, err := f.manager.Methods["mint"].Inputs.Unpack(calls[1][4:])
	require.NoError(t, err)
	params := abi.ConvertType(mintArgs[0], new(contracts.MintParams)).(*contracts.MintParams)
	assert.Equal(t, int64(-887220), params.TickLower.Int64())
	assert.Equal(t, int64(887220), params.TickUpper.Int64())
	assert.Equal(t, lowToken, params.Token0)
	assert.Equal(t, ether(1_000_000).String(), params.Amount0Desired.String())
	assert.Equal(t, ether(10).String(), params.Amount1Desired.String())
	assert.Equal(t, int64(1_700_000_000+1200), params.Deadline.Int64())
	assert.Equal(t, f.wallet, params.Recipient)

	require.Len(t, f.records.records, 1)
	assert.Equal(t, model.StageExecuted, f.records.records[0].Stage)
	assert.Equal(t, model.StatusSuccess, f.records.records[0].Status)
}

func TestExecuteExistingPoolOnlyMints(t *testing.T) {
	f := newFixture(t, highToken, ether(10_000_000))
	f.existing = createdPool
	f.gw.Receipts = mintLogs(7)

	result := f.orch.Execute(context.Background(), request(highToken, "1000", "3"))
	require.Equal(t, model.StatusSuccess, result.Status, result.Error)

	txs := f.multicalls(t)
	require.Len(t, txs, 1)
	assert.Len(t, f.gw.Sent(), 1, "allowance was sufficient so no approval is sent")

	calls := f.innerCalls(t, txs[0])
	require.Len(t, calls, 1)
	assert.Equal(t, f.selector("mint"), calls[0][:4])
	assert.Equal(t, ether(3).String(), txs[0].Value().String(), "deployed token is token1 so native value is attached")
	assert.Equal(t, createdPool.Hex(), result.PoolAddress)
}

func TestExecuteRetriesOnceOnTickError(t *testing.T) {
	f := newFixture(t, lowToken, ether(10_000_000))
	f.gw.SendErrs = []error{errs.New(errs.RPCError, "send transaction", "execution reverted: TLM tick lower")}
	f.gw.Receipts = mintLogs(99)

	result := f.orch.Execute(context.Background(), request(lowToken, "1000000", "10"))
	require.Equal(t, model.StatusSuccess, result.Status, result.Error)
	assert.True(t, result.RetryUsed)
	assert.Equal(t, "99", result.PositionID)

	txs := f.multicalls(t)
	require.Len(t, txs, 1)
	calls := f.innerCalls(t, txs[0])
	createArgs, err := f.manager.Methods["createAndInitializePoolIfNecessary"].Inputs.Unpack(calls[0][4:])
	require.NoError(t, err)
	assert.Equal(t, 0, createArgs[3].(*big.Int).Cmp(tickmath.Q96), "retry initializes at 1:1")
	assert.GreaterOrEqual(t, f.gw.NonceCalls(), 2, "retry fetches a fresh nonce")
	assert.True(t, f.records.records[0].RetryUsed)
}

func TestExecuteRetryFailureKeepsBothMessages(t *testing.T) {
	f := newFixture(t, lowToken, ether(10_000_000))
	f.gw.SendErrs = []error{
		errs.New(errs.RPCError, "send transaction", "price slippage check: liquidity too low"),
		errs.New(errs.RPCError, "send transaction", "tick spacing mismatch"),
	}

	result := f.orch.Execute(context.Background(), request(lowToken, "1000000", "10"))
	assert.Equal(t, model.StatusFailed, result.Status)
	assert.True(t, result.RetryUsed)
	assert.Contains(t, result.Error, "liquidity too low")
	assert.Contains(t, result.Error, "tick spacing mismatch")
	assert.Empty(t, f.gw.Sent())
}

func TestExecuteDoesNotRetryOtherErrors(t *testing.T) {
	f := newFixture(t, lowToken, ether(10_000_000))
	f.gw.SendErrs = []error{errs.New(errs.RPCError, "send transaction", "insufficient funds for gas * price + value")}

	result := f.orch.Execute(context.Background(), request(lowToken, "1000000", "10"))
	assert.Equal(t, model.StatusFailed, result.Status)
	assert.False(t, result.RetryUsed)
	assert.Contains(t, result.Error, "insufficient funds")
	assert.Empty(t, f.gw.Sent())
	assert.Equal(t, 1, f.gw.NonceCalls())
}

func TestExecuteRevertedReceiptIsNotRetried(t *testing.T) {
	f := newFixture(t, lowToken, ether(10_000_000))
	f.gw.Receipts = func(tx *types.Transaction) *types.Receipt {
		return &types.Receipt{Status: types.ReceiptStatusFailed}
	}

	result := f.orch.Execute(context.Background(), request(lowToken, "1000000", "10"))
	assert.Equal(t, model.StatusFailed, result.Status)
	assert.False(t, result.RetryUsed)
	assert.NotEmpty(t, result.TxHash)
	assert.True(t, errors.Is(result.Cause, errs.Reverted))
	assert.Len(t, f.multicalls(t), 1)
}

func TestExecutePendingTimeout(t *testing.T) {
	f := newFixture(t, lowToken, ether(10_000_000))
	f.gw.WaitErrs = []error{&errs.PendingTimeoutError{TxHash: "0xabc", Timeout: 2 * time.Minute}}

	result := f.orch.Execute(context.Background(), request(lowToken, "1000000", "10"))
	assert.Equal(t, model.StatusPending, result.Status)
	assert.False(t, result.RetryUsed)
	assert.NotEmpty(t, result.TxHash)
	assert.Len(t, f.multicalls(t), 1)
}

func TestExecuteApprovalRevertFails(t *testing.T) {
	f := newFixture(t, lowToken, ether(0))
	f.gw.Receipts = func(tx *types.Transaction) *types.Receipt {
		if *tx.To() == lowToken {
			return &types.Receipt{Status: types.ReceiptStatusFailed}
		}
		return nil
	}

	result := f.orch.Execute(context.Background(), request(lowToken, "1000000", "10"))
	assert.Equal(t, model.StatusFailed, result.Status)
	assert.Contains(t, result.Error, "approval")
	assert.Empty(t, f.multicalls(t))
}

func TestExecuteRejectsWrappedNativeToken(t *testing.T) {
	f := newFixture(t, wmatic, ether(0))
	result := f.orch.Execute(context.Background(), request(wmatic, "1", "1"))
	assert.Equal(t, model.StatusFailed, result.Status)
	assert.True(t, errors.Is(result.Cause, errs.UserInput))
	assert.Empty(t, f.gw.Sent())
}

func TestExecuteMissingPositionIDIsNotAnError(t *testing.T) {
	f := newFixture(t, lowToken, ether(10_000_000))

	result := f.orch.Execute(context.Background(), request(lowToken, "1000000", "10"))
	assert.Equal(t, model.StatusSuccess, result.Status)
	assert.Empty(t, result.PositionID)
}

func TestRecheck(t *testing.T) {
	f := newFixture(t, lowToken, ether(10_000_000))
	hash := common.HexToHash("0x01")

	status, err := f.orch.Recheck(context.Background(), hash.Hex())
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, status.Status)

	f.gw.SetReceipt(hash, &types.Receipt{Status: 1, BlockNumber: big.NewInt(10), GasUsed: 21000})
	status, err = f.orch.Recheck(context.Background(), hash.Hex())
	require.NoError(t, err)
	assert.Equal(t, model.StatusSuccess, status.Status)
	assert.Equal(t, uint64(10), status.BlockNumber)

	_, err = f.orch.Recheck(context.Background(), "0x1234")
	assert.True(t, errors.Is(err, errs.UserInput))
}
