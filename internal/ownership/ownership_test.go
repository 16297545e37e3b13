package ownership

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launchpad/internal/chain"
	"launchpad/internal/chain/chaintest"
	"launchpad/internal/contracts"
	"launchpad/internal/errs"
	"launchpad/internal/model"
)

const testKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

var tokenAddr = common.HexToAddress("0xAAaaAAaaaaAAaAaAaaAaAaaAAaAAaAaAAAaAAaaa")

type fixture struct {
	gw        *chaintest.Gateway
	renouncer *Renouncer
	account   chain.Account
	erc20     abi.ABI
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gw := chaintest.New()
	addr, err := chain.AddressOf(testKey)
	require.NoError(t, err)
	erc20, err := contracts.ERC20ABI()
	require.NoError(t, err)

	submitter := chain.NewSubmitter(gw, nil, nil, nil)
	r, err := New(Config{
		Network:     "polygon",
		ExplorerURL: "https://polygonscan.com/",
		NonceRetry:  chain.RetryPolicy{Attempts: 1, Delay: time.Millisecond},
	}, submitter, nil)
	require.NoError(t, err)
	return &fixture{gw: gw, renouncer: r, account: chain.Account{Address: addr, PrivateKey: testKey}, erc20: erc20}
}

func TestInspect(t *testing.T) {
	f := newFixture(t)
	f.gw.Returns(tokenAddr, f.erc20, "name", "Pepe Token")
	f.gw.Returns(tokenAddr, f.erc20, "symbol", "PEPE")
	f.gw.Returns(tokenAddr, f.erc20, "balanceOf", new(big.Int).Mul(big.NewInt(1000), big.NewInt(1e18)))
	f.gw.Returns(tokenAddr, f.erc20, "owner", f.account.Address)

	info := f.renouncer.Inspect(context.Background(), tokenAddr, f.account.Address)
	assert.Equal(t, "Pepe Token", info.Token.Name)
	assert.Equal(t, "1000", info.Token.Balance)
	assert.True(t, info.IsOwner)
	assert.False(t, info.Renounced)
}

func TestInspectDegrades(t *testing.T) {
	f := newFixture(t)

	info := f.renouncer.Inspect(context.Background(), tokenAddr, f.account.Address)
	assert.Equal(t, "Unknown Token", info.Token.Name)
	assert.Equal(t, "???", info.Token.Symbol)
	assert.Equal(t, "0", info.Token.Balance)
	assert.Empty(t, info.Owner)
	assert.False(t, info.IsOwner)

	f.gw.Returns(tokenAddr, f.erc20, "owner", common.Address{})
	info = f.renouncer.Inspect(context.Background(), tokenAddr, f.account.Address)
	assert.True(t, info.Renounced)
	assert.False(t, info.IsOwner)
}

func TestRenounce(t *testing.T) {
	f := newFixture(t)
	f.gw.Returns(tokenAddr, f.erc20, "owner", f.account.Address)

	result, err := f.renouncer.Renounce(context.Background(), f.account, tokenAddr)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSuccess, result.Status)
	assert.Equal(t, "https://polygonscan.com/address/"+tokenAddr.Hex(), result.ExplorerURL)

	sent := f.gw.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, RenounceGasLimit, sent[0].Gas())
	assert.Equal(t, tokenAddr, *sent[0].To())
	assert.Equal(t, f.erc20.Methods["renounceOwnership"].ID, sent[0].Data())
	assert.Equal(t, sent[0].Hash().Hex(), result.TxHash)
}

func TestRenounceNotOwner(t *testing.T) {
	f := newFixture(t)
	f.gw.Returns(tokenAddr, f.erc20, "owner", common.HexToAddress("0x1111111111111111111111111111111111111111"))

	result, err := f.renouncer.Renounce(context.Background(), f.account, tokenAddr)
	assert.Equal(t, errs.UserInput, errs.KindOf(err))
	assert.Equal(t, "You are not the owner of this contract", result.Error)
	assert.Empty(t, f.gw.Sent())
}

func TestRenounceReverted(t *testing.T) {
	f := newFixture(t)
	f.gw.Returns(tokenAddr, f.erc20, "owner", f.account.Address)
	f.gw.Receipts = func(tx *types.Transaction) *types.Receipt {
		return &types.Receipt{Status: types.ReceiptStatusFailed, GasUsed: 21_000}
	}
	f.gw.Fails(tokenAddr, f.erc20, "renounceOwnership", errs.New(errs.Reverted, "eth_call", "execution reverted: Ownable: caller is not the owner"))

	result, err := f.renouncer.Renounce(context.Background(), f.account, tokenAddr)
	assert.Equal(t, errs.Reverted, errs.KindOf(err))
	assert.Equal(t, model.StatusFailed, result.Status)
	assert.Equal(t, uint64(21_000), result.GasUsed)
	assert.Contains(t, result.Error, "caller is not the owner")
}
