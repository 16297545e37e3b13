package contracts

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"launchpad/internal/chain/chaintest"
	"launchpad/internal/errs"
)

var (
	token   = common.HexToAddress("0xAAaaAAaaaaAAaAaAaaAaAaaAAaAAaAaAAAaAAaaa")
	holder  = common.HexToAddress("0x2222222222222222222222222222222222222222")
	manager = common.HexToAddress("0xC36442b4a4522E871399CD717aBDD847Ab11FE88")
)

func mustABI(t *testing.T, get func() (abi.ABI, error)) abi.ABI {
	t.Helper()
	parsed, err := get()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	return parsed
}

func TestFetchSymbolString(t *testing.T) {
	gw := chaintest.New()
	gw.Returns(token, mustABI(t, ERC20ABI), "symbol", "PEPE")

	sym := FetchSymbol(context.Background(), gw, token, nil)
	if sym.Value != "PEPE" || sym.Degraded {
		t.Fatalf("unexpected symbol %+v", sym)
	}
}

func TestFetchSymbolBytes32(t *testing.T) {
	gw := chaintest.New()
	var raw [32]byte
	copy(raw[:], "MKR")
	gw.Returns(token, mustABI(t, ERC20Bytes32ABI), "symbol", raw)

	sym := FetchSymbol(context.Background(), gw, token, nil)
	if sym.Value != "MKR" || sym.Degraded {
		t.Fatalf("unexpected symbol %+v", sym)
	}
}

func TestFetchSymbolFallback(t *testing.T) {
	gw := chaintest.New()

	sym := FetchSymbol(context.Background(), gw, token, nil)
	if !sym.Degraded {
		t.Fatalf("expected degraded symbol")
	}
	if sym.Value != token.Hex()[:6] {
		t.Fatalf("unexpected fallback %q", sym.Value)
	}
}

func TestFetchSymbols(t *testing.T) {
	gw := chaintest.New()
	other := common.HexToAddress("0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270")
	gw.Returns(token, mustABI(t, ERC20ABI), "symbol", "PEPE")
	gw.Returns(other, mustABI(t, ERC20ABI), "symbol", "WMATIC")

	sym0, sym1 := FetchSymbols(context.Background(), gw, token, other, nil)
	if sym0.Value != "PEPE" || sym1.Value != "WMATIC" {
		t.Fatalf("unexpected symbols %v/%v", sym0, sym1)
	}
}

func TestFetchTokenMeta(t *testing.T) {
	gw := chaintest.New()
	erc20 := mustABI(t, ERC20ABI)
	gw.Returns(token, erc20, "name", "Pepe Token")
	gw.Returns(token, erc20, "symbol", "PEPE")
	gw.Returns(token, erc20, "balanceOf", new(big.Int).Mul(big.NewInt(5), big.NewInt(1e18)))

	meta := FetchTokenMeta(context.Background(), gw, token, holder, nil)
	if meta.Name != "Pepe Token" || meta.Symbol != "PEPE" || meta.Balance != "5" {
		t.Fatalf("unexpected meta %+v", meta)
	}
}

func TestPositions(t *testing.T) {
	gw := chaintest.New()
	other := common.HexToAddress("0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270")
	gw.On(manager, mustABI(t, PositionManagerABI), "positions", func(args []interface{}) ([]interface{}, error) {
		if args[0].(*big.Int).Int64() != 77 {
			t.Fatalf("unexpected token id %v", args[0])
		}
		return []interface{}{
			big.NewInt(0), common.Address{}, token, other,
			big.NewInt(3000), big.NewInt(-887220), big.NewInt(887220), big.NewInt(123456),
			big.NewInt(0), big.NewInt(0), big.NewInt(0), big.NewInt(0),
		}, nil
	})

	pm, err := NewPositionManager(manager, gw)
	if err != nil {
		t.Fatalf("binding: %v", err)
	}
	info, err := pm.Positions(context.Background(), big.NewInt(77))
	if err != nil {
		t.Fatalf("positions: %v", err)
	}
	if info.Token0 != token || info.Token1 != other || info.Fee != 3000 {
		t.Fatalf("unexpected pair %+v", info)
	}
	if info.TickLower != -887220 || info.TickUpper != 887220 || info.Liquidity.Int64() != 123456 {
		t.Fatalf("unexpected range %+v", info)
	}
}

func TestLockerTuples(t *testing.T) {
	gw := chaintest.New()
	locker := common.HexToAddress("0x40f6301edb774e8B22ADC874f6cb17242BaEB8c4")
	parsed := mustABI(t, LockerABI)
	pool := common.HexToAddress("0x5555555555555555555555555555555555555555")

	gw.Returns(locker, parsed, "getFee", FeeStruct{
		Name:         "DEFAULT",
		LpFee:        big.NewInt(0),
		CollectFee:   big.NewInt(0),
		FlatFee:      big.NewInt(30_000_000_000_000_000),
		FlatFeeToken: common.Address{},
	})
	gw.Returns(locker, parsed, "getLock", LockInfo{
		LockId:             big.NewInt(12),
		NftPositionManager: manager,
		Pool:               pool,
		NftId:              big.NewInt(77),
		Owner:              holder,
		UnlockDate:         big.NewInt(1_900_000_000),
		CountryCode:        0,
		Ucf:                big.NewInt(0),
	})

	binding, err := NewLocker(locker, gw)
	if err != nil {
		t.Fatalf("binding: %v", err)
	}
	fee, err := binding.GetFee(context.Background(), "DEFAULT")
	if err != nil {
		t.Fatalf("getFee: %v", err)
	}
	if fee.FlatFee.String() != "30000000000000000" || fee.Name != "DEFAULT" {
		t.Fatalf("unexpected fee %+v", fee)
	}

	lock, err := binding.GetLock(context.Background(), big.NewInt(12))
	if err != nil {
		t.Fatalf("getLock: %v", err)
	}
	if lock.Pool != pool || lock.NftId.Int64() != 77 || lock.UnlockDate.Int64() != 1_900_000_000 {
		t.Fatalf("unexpected lock %+v", lock)
	}

	if _, err := binding.GetNumUserLocks(context.Background(), holder); !errors.Is(err, errs.Reverted) {
		t.Fatalf("expected revert for unregistered method, got %v", err)
	}
}

func TestExtractPositionIDPrefersTransfer(t *testing.T) {
	increase := &types.Log{
		Address: manager,
		Topics:  []common.Hash{IncreaseLiquidityTopic, common.BigToHash(big.NewInt(9))},
	}
	transfer := &types.Log{
		Address: manager,
		Topics:  []common.Hash{TransferTopic, {}, common.BytesToHash(holder.Bytes()), common.BigToHash(big.NewInt(42))},
	}

	id, ok := ExtractPositionID([]*types.Log{increase, transfer}, manager)
	if !ok || id.Int64() != 42 {
		t.Fatalf("expected transfer id 42, got %v %v", id, ok)
	}
}

func TestExtractPositionIDIncreaseLiquidity(t *testing.T) {
	erc20Transfer := &types.Log{
		Address: token,
		Topics:  []common.Hash{TransferTopic, common.BytesToHash(holder.Bytes()), common.BytesToHash(manager.Bytes())},
	}
	increase := &types.Log{
		Address: manager,
		Topics:  []common.Hash{IncreaseLiquidityTopic, common.BigToHash(big.NewInt(1234))},
	}

	id, ok := ExtractPositionID([]*types.Log{erc20Transfer, increase}, manager)
	if !ok || id.Int64() != 1234 {
		t.Fatalf("expected 1234, got %v %v", id, ok)
	}

	if _, ok := ExtractPositionID([]*types.Log{erc20Transfer}, manager); ok {
		t.Fatalf("expected no position id")
	}
}

func TestTopics(t *testing.T) {
	if TransferTopic.Hex() != "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef" {
		t.Fatalf("transfer topic mismatch %s", TransferTopic.Hex())
	}
	if IncreaseLiquidityTopic.Hex() != "0x3067048beee31b25b2f1681f88dac838c8bba36af25bfb2b7cf7473a5847e35f" {
		t.Fatalf("increase liquidity topic mismatch %s", IncreaseLiquidityTopic.Hex())
	}
}
