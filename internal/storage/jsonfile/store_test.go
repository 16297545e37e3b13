package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launchpad/internal/errs"
	"launchpad/internal/model"
)

func TestWalletsPersist(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := Open(dir)
	require.NoError(t, err)
	_, err = store.GetWallet(ctx, "u1")
	assert.Equal(t, errs.NotFound, errs.KindOf(err))

	wallet := model.Wallet{UserID: "u1", Address: "0xabc", PrivateKey: "0x01", CreatedAt: time.Unix(1_700_000_000, 0).UTC()}
	require.NoError(t, store.SaveWallet(ctx, wallet))
	require.NoError(t, store.SaveWallet(ctx, model.Wallet{UserID: "u2", Address: "0xdef", PrivateKey: "0x02"}))

	reopened, err := Open(dir)
	require.NoError(t, err)
	got, err := reopened.GetWallet(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, wallet, got)

	info, err := os.Stat(filepath.Join(dir, walletsFile))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	assert.Equal(t, errs.UserInput, errs.KindOf(store.SaveWallet(ctx, model.Wallet{})))
}

func TestPoolRecords(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	records := []model.PoolRecord{
		{ID: "1", UserID: "u1", Stage: model.StagePrepared, TokenAmount: decimal.RequireFromString("1000"), NativeAmount: decimal.RequireFromString("10")},
		{ID: "2", UserID: "u2", Stage: model.StagePrepared},
		{ID: "3", UserID: "u1", Stage: model.StageExecuted, Status: model.StatusSuccess, PositionID: "42"},
	}
	for _, r := range records {
		require.NoError(t, store.AppendPoolRecord(ctx, r))
	}

	got, err := store.ListPoolRecords(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID)
	assert.True(t, got[0].TokenAmount.Equal(decimal.RequireFromString("1000")))
	assert.Equal(t, "42", got[1].PositionID)

	none, err := store.ListPoolRecords(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestPoolRecordsWithoutStage(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, poolsFile), []byte(`{"id":"old","user_id":"u1"}`+"\n\n"), 0o600))

	store, err := Open(dir)
	require.NoError(t, err)
	got, err := store.ListPoolRecords(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.StagePrepared, got[0].Stage)
}

func TestTokensKeepLatestPerAddress(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.SaveToken(ctx, model.TokenRecord{UserID: "u1", ContractAddress: "0xAAA", Symbol: "OLD"}))
	require.NoError(t, store.SaveToken(ctx, model.TokenRecord{UserID: "u1", ContractAddress: "0xBBB", Symbol: "B"}))
	require.NoError(t, store.SaveToken(ctx, model.TokenRecord{UserID: "u1", ContractAddress: "0xaaa", Symbol: "NEW"}))
	require.NoError(t, store.SaveToken(ctx, model.TokenRecord{UserID: "u2", ContractAddress: "0xCCC", Symbol: "C"}))

	tokens, err := store.ListTokens(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.Equal(t, "B", tokens[0].Symbol)
	assert.Equal(t, "NEW", tokens[1].Symbol)

	assert.Equal(t, errs.UserInput, errs.KindOf(store.SaveToken(ctx, model.TokenRecord{UserID: "u1"})))
}
