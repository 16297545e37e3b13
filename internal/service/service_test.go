package service

import (
	"context"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launchpad/internal/chain"
	"launchpad/internal/chain/chaintest"
	"launchpad/internal/config"
	"launchpad/internal/contracts"
	"launchpad/internal/errs"
	"launchpad/internal/model"
	"launchpad/internal/session"
	"launchpad/internal/storage/jsonfile"
	"launchpad/internal/worker"
)

const testKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

var (
	factoryAddr  = common.HexToAddress("0x1F98431c8aD98523631AE4a59f267346ea31F984")
	managerAddr  = common.HexToAddress("0xC36442b4a4522E871399CD717aBDD847Ab11FE88")
	wmatic       = common.HexToAddress("0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270")
	lockerAddr   = common.HexToAddress("0x40f6301edb774e8B22ADC874f6cb17242BaEB8c4")
	tokenAddr    = common.HexToAddress("0xfFfFFFfFfFFfFFfFfFfFFfFfFFFfFFfFfFfFFFF0")
	existingPool = common.HexToAddress("0x5555555555555555555555555555555555555555")
	oneEther     = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
)

type fixture struct {
	svc    *Service
	gw     *chaintest.Gateway
	store  *jsonfile.Store
	wallet common.Address
}

func testConfig() config.Config {
	return config.Config{
		Networks: map[string]config.Network{
			"polygon": {
				Name:            "polygon",
				RPCURL:          "http://polygon.invalid",
				NativeSymbol:    "MATIC",
				Factory:         factoryAddr.Hex(),
				PositionManager: managerAddr.Hex(),
				WrappedNative:   wmatic.Hex(),
				Locker:          lockerAddr.Hex(),
				FeeName:         "DEFAULT",
				ExplorerURL:     "https://polygonscan.com",
			},
			"ethereum": {Name: "ethereum"},
		},
		ApprovalTimeout: time.Second,
		ReceiptTimeout:  time.Second,
		NonceRetries:    1,
		NonceBackoff:    time.Millisecond,
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gw := chaintest.New()
	wallet, err := chain.AddressOf(testKey)
	require.NoError(t, err)
	gw.Balances[wallet] = new(big.Int).Mul(big.NewInt(100), oneEther)

	store, err := jsonfile.Open(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.SaveWallet(context.Background(), model.Wallet{UserID: "u1", Address: wallet.Hex(), PrivateKey: testKey}))

	runner := worker.NewRunner(2, 16, nil)
	t.Cleanup(runner.Stop)

	svc, err := New(testConfig(), Deps{
		Gateways: map[string]chain.Gateway{"polygon": gw},
		Store:    store,
		Sessions: session.NewMemory(time.Minute),
		Runner:   runner,
	})
	require.NoError(t, err)
	return &fixture{svc: svc, gw: gw, store: store, wallet: wallet}
}

func poolRequest(network string) model.PoolCreationRequest {
	return model.PoolCreationRequest{
		UserID:       "u1",
		TokenAddress: tokenAddr.Hex(),
		Network:      network,
		TokenAmount:  decimal.RequireFromString("1000"),
		NativeAmount: decimal.RequireFromString("3"),
	}
}

func TestNetworks(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, []string{"polygon"}, f.svc.Networks())
	_, err := f.svc.Network("Polygon")
	assert.NoError(t, err)
	_, err = f.svc.Network("ethereum")
	assert.Equal(t, errs.UserInput, errs.KindOf(err))
	assert.NotNil(t, f.svc.LockWizard())
}

func TestPrepareThenExecuteConsumesConfirmationOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	factoryABI, err := contracts.FactoryABI()
	require.NoError(t, err)
	erc20ABI, err := contracts.ERC20ABI()
	require.NoError(t, err)
	f.gw.Returns(factoryAddr, factoryABI, "getPool", existingPool)
	f.gw.Returns(tokenAddr, erc20ABI, "allowance", new(big.Int).Mul(big.NewInt(1_000_000), oneEther))
	f.gw.Receipts = func(tx *types.Transaction) *types.Receipt {
		return &types.Receipt{
			Status: types.ReceiptStatusSuccessful,
			Logs: []*types.Log{{
				Address: managerAddr,
				Topics:  []common.Hash{contracts.IncreaseLiquidityTopic, common.BigToHash(big.NewInt(7))},
			}},
		}
	}

	prepared, err := f.svc.PreparePool(ctx, poolRequest("polygon"))
	require.NoError(t, err)
	assert.True(t, prepared.PoolExists)

	pending, err := f.svc.PendingPool(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, prepared.TokenAddress, pending.TokenAddress)

	result, err := f.svc.ExecutePool(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, model.StatusSuccess, result.Status, result.Error)
	assert.Equal(t, "7", result.PositionID)
	assert.Len(t, f.gw.Sent(), 1)

	_, err = f.svc.ExecutePool(ctx, "u1")
	assert.Equal(t, errs.UserInput, errs.KindOf(err))
	assert.Len(t, f.gw.Sent(), 1, "a consumed confirmation sends nothing")

	history, err := f.svc.PoolHistory(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, model.StagePrepared, history[0].Stage)
	assert.Equal(t, model.StageExecuted, history[1].Stage)
}

func TestCancelPool(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	factoryABI, err := contracts.FactoryABI()
	require.NoError(t, err)
	f.gw.Returns(factoryAddr, factoryABI, "getPool", common.Address{})

	_, err = f.svc.PreparePool(ctx, poolRequest("polygon"))
	require.NoError(t, err)
	require.NoError(t, f.svc.CancelPool(ctx, "u1"))
	_, err = f.svc.PendingPool(ctx, "u1")
	assert.Equal(t, errs.NotFound, errs.KindOf(err))
}

func TestPrepareUnsupportedNetwork(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.PreparePool(context.Background(), poolRequest("solana"))
	assert.Equal(t, errs.UserInput, errs.KindOf(err))
}

func TestWallets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, ok, err := f.svc.CreateWallet(ctx, "u2")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotEmpty(t, created.PrivateKey)
	derived, err := chain.AddressOf(created.PrivateKey)
	require.NoError(t, err)
	assert.Equal(t, created.Address, derived.Hex())

	again, ok, err := f.svc.CreateWallet(ctx, "u2")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, created.Address, again.Address)
	assert.Empty(t, again.PrivateKey)

	imported, err := f.svc.ImportWallet(ctx, "u3", testKey)
	require.NoError(t, err)
	assert.Equal(t, f.wallet.Hex(), imported.Address)
	assert.Empty(t, imported.PrivateKey)

	_, err = f.svc.ImportWallet(ctx, "u3", "not-a-key")
	assert.Equal(t, errs.UserInput, errs.KindOf(err))

	_, err = f.svc.Wallet(ctx, "nobody")
	assert.Equal(t, errs.NoWallet, errs.KindOf(err))

	balance, err := f.svc.Balance(ctx, "u1", "polygon")
	require.NoError(t, err)
	assert.Equal(t, "100", balance.Amount)
	assert.Equal(t, "MATIC", balance.Symbol)
}

func TestPositionsRequireWallet(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Positions(context.Background(), "nobody", "polygon")
	assert.Equal(t, errs.NoWallet, errs.KindOf(err))
	_, err = f.svc.LockedPositions(context.Background(), "nobody", "polygon")
	assert.Equal(t, errs.NoWallet, errs.KindOf(err))
}

func TestLockFeeDegrades(t *testing.T) {
	f := newFixture(t)
	fee, err := f.svc.LockFee(context.Background(), "polygon")
	require.NoError(t, err)
	assert.True(t, fee.Degraded)
	assert.Equal(t, "0.01", fee.Amount)
}

func TestRecordToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	saved, err := f.svc.RecordToken(ctx, model.TokenRecord{
		UserID:          "u1",
		Name:            "Pepe",
		Symbol:          "PEPE",
		ContractAddress: strings.ToLower(tokenAddr.Hex()),
		Network:         "Polygon",
		BuyTax:          300,
	})
	require.NoError(t, err)
	assert.Equal(t, tokenAddr.Hex(), saved.ContractAddress)
	assert.Equal(t, "polygon", saved.Network)
	assert.False(t, saved.CreatedAt.IsZero())

	tokens, err := f.svc.Tokens(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, "PEPE", tokens[0].Symbol)

	for _, bad := range []model.TokenRecord{
		{ContractAddress: tokenAddr.Hex(), Network: "polygon"},
		{UserID: "u1", ContractAddress: "0x12", Network: "polygon"},
		{UserID: "u1", ContractAddress: tokenAddr.Hex(), Network: "solana"},
		{UserID: "u1", ContractAddress: tokenAddr.Hex(), Network: "polygon", SellTax: 10_001},
	} {
		_, err := f.svc.RecordToken(ctx, bad)
		assert.Equal(t, errs.UserInput, errs.KindOf(err))
	}
}

func TestStartRenounce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	erc20ABI, err := contracts.ERC20ABI()
	require.NoError(t, err)
	f.gw.Returns(tokenAddr, erc20ABI, "owner", f.wallet)

	attempt, err := f.svc.StartRenounce(ctx, "u1", "polygon", tokenAddr.Hex())
	require.NoError(t, err)
	assert.Equal(t, model.RenounceSent, attempt.State)
	assert.Equal(t, "polygon", attempt.Network)

	require.Eventually(t, func() bool {
		status, err := f.svc.RenounceStatus(ctx, "u1")
		return err == nil && status.State == model.RenounceConfirmed
	}, 2*time.Second, 10*time.Millisecond)

	status, err := f.svc.RenounceStatus(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, status.Result)
	assert.Equal(t, "https://polygonscan.com/address/"+tokenAddr.Hex(), status.Result.ExplorerURL)
	assert.Len(t, f.gw.Sent(), 1)
}

func TestStartRenounceRequiresOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	erc20ABI, err := contracts.ERC20ABI()
	require.NoError(t, err)

	f.gw.Returns(tokenAddr, erc20ABI, "owner", common.HexToAddress("0x1"))
	_, err = f.svc.StartRenounce(ctx, "u1", "polygon", tokenAddr.Hex())
	assert.Equal(t, errs.UserInput, errs.KindOf(err))

	f.gw.Returns(tokenAddr, erc20ABI, "owner", common.Address{})
	_, err = f.svc.StartRenounce(ctx, "u1", "polygon", tokenAddr.Hex())
	assert.ErrorContains(t, err, "already renounced")

	_, err = f.svc.RenounceStatus(ctx, "u1")
	assert.Equal(t, errs.NotFound, errs.KindOf(err))
	assert.Empty(t, f.gw.Sent())
}

func TestTxStatus(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.TxStatus(context.Background(), "polygon", "0x1234")
	assert.Equal(t, errs.UserInput, errs.KindOf(err))

	status, err := f.svc.TxStatus(context.Background(), "polygon", common.HexToHash("0xabc").Hex())
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, status.Status)
}
