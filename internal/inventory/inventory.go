// Package inventory lists a wallet's Uniswap V3 position NFTs and its locks on the UNCX locker.
package inventory

import (
	"context"
	"math/big"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"launchpad/internal/chain"
	"launchpad/internal/contracts"
	"launchpad/internal/errs"
	"launchpad/internal/model"
)

// ProbeLimit is how many lock indices are tried when the lock count cannot be read.
const ProbeLimit = 10

// MaxEntries bounds the position and lock counts read from chain.
const MaxEntries = 1000

// placeholderUnlock is the unlock date shown for a lock whose details could not be read.
const placeholderUnlock = time.Hour

// Config is the per-network contract setup.
type Config struct {
	Network         string
	PositionManager common.Address
	Locker          common.Address
}

// Inventory reads positions and locks. Every lookup past the first count is best-effort.
type Inventory struct {
	cfg     Config
	gw      chain.Gateway
	manager *contracts.PositionManager
	locker  *contracts.Locker
	logger  *zap.Logger
	now     func() time.Time
}

func New(cfg Config, gw chain.Gateway, logger *zap.Logger) (*Inventory, error) {
	if gw == nil {
		return nil, errors.New("gateway is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	manager, err := contracts.NewPositionManager(cfg.PositionManager, gw)
	if err != nil {
		return nil, errors.Wrap(err, "position manager abi")
	}
	locker, err := contracts.NewLocker(cfg.Locker, gw)
	if err != nil {
		return nil, errors.Wrap(err, "locker abi")
	}
	return &Inventory{
		cfg:     cfg,
		gw:      gw,
		manager: manager,
		locker:  locker,
		logger:  logger.With(zap.String("network", cfg.Network)),
		now:     time.Now,
	}, nil
}

// WithClock overrides the time source used for placeholder unlock dates.
func (inv *Inventory) WithClock(now func() time.Time) *Inventory {
	inv.now = now
	return inv
}

// ListPositions returns wallet's position NFTs in index order. A failing index is skipped.
func (inv *Inventory) ListPositions(ctx context.Context, wallet common.Address) ([]model.Position, error) {
	count, err := inv.manager.BalanceOf(ctx, wallet)
	if err != nil {
		return nil, err
	}

	n, err := bounded("balanceOf", count)
	if err != nil {
		return nil, err
	}

	positions := make([]model.Position, 0, n)
	for i := int64(0); i < n; i++ {
		tokenID, err := inv.manager.TokenOfOwnerByIndex(ctx, wallet, i)
		if err != nil {
			inv.logger.Warn("tokenOfOwnerByIndex failed, skipping", zap.Int64("index", i), zap.Error(err))
			continue
		}
		info, err := inv.manager.Positions(ctx, tokenID)
		if err != nil {
			inv.logger.Warn("positions failed, skipping", zap.String("token_id", tokenID.String()), zap.Error(err))
			continue
		}
		sym0, sym1 := contracts.FetchSymbols(ctx, inv.gw, info.Token0, info.Token1, inv.logger)
		positions = append(positions, model.Position{
			TokenID:      tokenID.String(),
			Token0:       info.Token0.Hex(),
			Token1:       info.Token1.Hex(),
			Token0Symbol: sym0,
			Token1Symbol: sym1,
			Fee:          info.Fee,
			Liquidity:    info.Liquidity.String(),
		})
	}
	return positions, nil
}

// ListLockedPositions returns wallet's locks. When getNumUserLocks fails the first
// ProbeLimit indices are probed and the result is flagged Probed.
func (inv *Inventory) ListLockedPositions(ctx context.Context, wallet common.Address) (model.LockedInventory, error) {
	out := model.LockedInventory{Locks: []model.LockedPosition{}}

	count := int64(ProbeLimit)
	num, err := inv.locker.GetNumUserLocks(ctx, wallet)
	if err != nil {
		inv.logger.Warn("getNumUserLocks failed, probing indices", zap.String("wallet", wallet.Hex()), zap.Error(err))
		out.Probed = true
	} else if count, err = bounded("getNumUserLocks", num); err != nil {
		return out, err
	}

	for i := int64(0); i < count; i++ {
		lock, ok := inv.lockAt(ctx, wallet, i, out.Probed)
		if ok {
			out.Locks = append(out.Locks, lock)
		}
	}
	return out, nil
}

// lockAt resolves one index. In probe mode an unreadable index ends the lookup for that
// index, since the index itself is not a lock id owned by wallet.
func (inv *Inventory) lockAt(ctx context.Context, wallet common.Address, index int64, probing bool) (model.LockedPosition, bool) {
	userLock, err := inv.locker.GetUserLockAtIndex(ctx, wallet, index)
	var lockID *big.Int
	switch {
	case err == nil:
		lockID = userLock.LockId
	case probing:
		inv.logger.Debug("no lock at probed index", zap.Int64("index", index), zap.Error(err))
		return model.LockedPosition{}, false
	default:
		inv.logger.Warn("getUserLockAtIndex failed, using index as lock id", zap.Int64("index", index), zap.Error(err))
		lockID = big.NewInt(index)
	}

	info, err := inv.locker.GetLock(ctx, lockID)
	if err != nil {
		inv.logger.Warn("getLock failed", zap.String("lock_id", lockID.String()), zap.Error(err))
		if userLock.NftId == nil {
			return model.LockedPosition{
				LockID:       lockID.String(),
				NFTID:        "Unknown",
				Token0Symbol: model.UnknownSymbol,
				Token1Symbol: model.UnknownSymbol,
				UnlockDate:   inv.now().Add(placeholderUnlock).UTC(),
				Liquidity:    model.LiquidityUnavailable,
				Enrichment:   model.EnrichmentPlaceholder,
			}, true
		}
		info = userLock
	}
	return inv.enrich(ctx, lockID, info), true
}

func (inv *Inventory) enrich(ctx context.Context, lockID *big.Int, info contracts.LockInfo) model.LockedPosition {
	lock := model.LockedPosition{
		LockID:       lockID.String(),
		NFTID:        bigString(info.NftId),
		Token0Symbol: model.UnknownSymbol,
		Token1Symbol: model.UnknownSymbol,
		Liquidity:    model.LiquidityUnavailable,
		Enrichment:   model.EnrichmentPlaceholder,
	}
	if info.UnlockDate != nil {
		lock.UnlockDate = time.Unix(info.UnlockDate.Int64(), 0).UTC()
	}

	if info.Pool != (common.Address{}) {
		lock.Pool = info.Pool.Hex()
		if token0, token1, fee, err := inv.poolImmutables(ctx, info.Pool); err == nil {
			lock.Token0 = token0.Hex()
			lock.Token1 = token1.Hex()
			lock.Fee = fee
			lock.Token0Symbol, lock.Token1Symbol = contracts.FetchSymbols(ctx, inv.gw, token0, token1, inv.logger)
			lock.Enrichment = model.EnrichmentResolved
		} else {
			inv.logger.Warn("pool lookup failed", zap.String("pool", info.Pool.Hex()), zap.Error(err))
		}
	}

	if info.NftId != nil {
		if position, err := inv.manager.Positions(ctx, info.NftId); err == nil {
			lock.Liquidity = position.Liquidity.String()
		} else {
			inv.logger.Debug("positions lookup failed", zap.String("nft_id", info.NftId.String()), zap.Error(err))
		}
	}
	return lock
}

func (inv *Inventory) poolImmutables(ctx context.Context, address common.Address) (common.Address, common.Address, uint32, error) {
	pool, err := contracts.NewPool(address, inv.gw)
	if err != nil {
		return common.Address{}, common.Address{}, 0, err
	}
	return pool.Immutables(ctx)
}

// bounded converts a count read from chain into a loop bound of at most MaxEntries.
func bounded(method string, count *big.Int) (int64, error) {
	if count == nil || count.Sign() < 0 || !count.IsInt64() || count.Int64() > MaxEntries {
		return 0, errs.Newf(errs.RPCError, method, "implausible count %s, limit is %d", bigString(count), MaxEntries)
	}
	return count.Int64(), nil
}

func bigString(v *big.Int) string {
	if v == nil {
		return "Unknown"
	}
	return v.String()
}
