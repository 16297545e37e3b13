package contracts

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"launchpad/internal/chain"
	"launchpad/internal/errs"
)

// Factory is the Uniswap V3 factory.
type Factory struct {
	*chain.Contract
}

func NewFactory(address common.Address, gw chain.Gateway) (*Factory, error) {
	parsed, err := FactoryABI()
	if err != nil {
		return nil, err
	}
	return &Factory{chain.NewContract(address, parsed, gw)}, nil
}

// GetPool returns the pool for the pair and fee, or the zero address when none exists.
func (f *Factory) GetPool(ctx context.Context, tokenA, tokenB common.Address, fee uint32) (common.Address, error) {
	values, err := f.Call(ctx, "getPool", tokenA, tokenB, new(big.Int).SetUint64(uint64(fee)))
	if err != nil {
		return common.Address{}, err
	}
	return unpackAddress("getPool", values[0])
}

// PositionManager is the NonfungiblePositionManager (position NFT contract).
type PositionManager struct {
	*chain.Contract
}

func NewPositionManager(address common.Address, gw chain.Gateway) (*PositionManager, error) {
	parsed, err := PositionManagerABI()
	if err != nil {
		return nil, err
	}
	return &PositionManager{chain.NewContract(address, parsed, gw)}, nil
}

func (p *PositionManager) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	values, err := p.Call(ctx, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	return unpackBigInt("balanceOf", values[0])
}

func (p *PositionManager) TokenOfOwnerByIndex(ctx context.Context, owner common.Address, index int64) (*big.Int, error) {
	values, err := p.Call(ctx, "tokenOfOwnerByIndex", owner, big.NewInt(index))
	if err != nil {
		return nil, err
	}
	return unpackBigInt("tokenOfOwnerByIndex", values[0])
}

// Positions reads the pair, fee, range and liquidity of a position NFT.
func (p *PositionManager) Positions(ctx context.Context, tokenID *big.Int) (PositionInfo, error) {
	values, err := p.Call(ctx, "positions", tokenID)
	if err != nil {
		return PositionInfo{}, err
	}
	if len(values) < 8 {
		return PositionInfo{}, errs.Newf(errs.RPCError, "positions", "expected 12 values, got %d", len(values))
	}

	var info PositionInfo
	if info.Token0, err = unpackAddress("positions", values[2]); err != nil {
		return PositionInfo{}, err
	}
	if info.Token1, err = unpackAddress("positions", values[3]); err != nil {
		return PositionInfo{}, err
	}
	fee, err := unpackBigInt("positions", values[4])
	if err != nil {
		return PositionInfo{}, err
	}
	info.Fee = uint32(fee.Uint64())

	lower, err := unpackBigInt("positions", values[5])
	if err != nil {
		return PositionInfo{}, err
	}
	upper, err := unpackBigInt("positions", values[6])
	if err != nil {
		return PositionInfo{}, err
	}
	if info.TickLower, err = int24FromBig(lower); err != nil {
		return PositionInfo{}, errs.Wrap(errs.RPCError, "positions", err)
	}
	if info.TickUpper, err = int24FromBig(upper); err != nil {
		return PositionInfo{}, errs.Wrap(errs.RPCError, "positions", err)
	}
	if info.Liquidity, err = unpackBigInt("positions", values[7]); err != nil {
		return PositionInfo{}, err
	}
	return info, nil
}

func (p *PositionManager) IsApprovedForAll(ctx context.Context, owner, operator common.Address) (bool, error) {
	values, err := p.Call(ctx, "isApprovedForAll", owner, operator)
	if err != nil {
		return false, err
	}
	approved, err := asBool(values[0])
	if err != nil {
		return false, errs.Wrap(errs.RPCError, "isApprovedForAll", err)
	}
	return approved, nil
}

// ERC20 is a fungible token with optional Ownable methods.
type ERC20 struct {
	*chain.Contract
}

func NewERC20(address common.Address, gw chain.Gateway) (*ERC20, error) {
	parsed, err := ERC20ABI()
	if err != nil {
		return nil, err
	}
	return &ERC20{chain.NewContract(address, parsed, gw)}, nil
}

func (t *ERC20) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	values, err := t.Call(ctx, "allowance", owner, spender)
	if err != nil {
		return nil, err
	}
	return unpackBigInt("allowance", values[0])
}

func (t *ERC20) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	values, err := t.Call(ctx, "balanceOf", account)
	if err != nil {
		return nil, err
	}
	return unpackBigInt("balanceOf", values[0])
}

func (t *ERC20) Owner(ctx context.Context) (common.Address, error) {
	values, err := t.Call(ctx, "owner")
	if err != nil {
		return common.Address{}, err
	}
	return unpackAddress("owner", values[0])
}

// Pool is a Uniswap V3 pool's immutables.
type Pool struct {
	*chain.Contract
}

func NewPool(address common.Address, gw chain.Gateway) (*Pool, error) {
	parsed, err := V3PoolABI()
	if err != nil {
		return nil, err
	}
	return &Pool{chain.NewContract(address, parsed, gw)}, nil
}

// Immutables returns token0, token1 and fee.
func (p *Pool) Immutables(ctx context.Context) (common.Address, common.Address, uint32, error) {
	values, err := p.Call(ctx, "token0")
	if err != nil {
		return common.Address{}, common.Address{}, 0, err
	}
	token0, err := unpackAddress("token0", values[0])
	if err != nil {
		return common.Address{}, common.Address{}, 0, err
	}

	values, err = p.Call(ctx, "token1")
	if err != nil {
		return common.Address{}, common.Address{}, 0, err
	}
	token1, err := unpackAddress("token1", values[0])
	if err != nil {
		return common.Address{}, common.Address{}, 0, err
	}

	values, err = p.Call(ctx, "fee")
	if err != nil {
		return common.Address{}, common.Address{}, 0, err
	}
	fee, err := unpackBigInt("fee", values[0])
	if err != nil {
		return common.Address{}, common.Address{}, 0, err
	}
	return token0, token1, uint32(fee.Uint64()), nil
}

// Locker is the UNCX V3 liquidity locker.
type Locker struct {
	*chain.Contract
}

func NewLocker(address common.Address, gw chain.Gateway) (*Locker, error) {
	parsed, err := LockerABI()
	if err != nil {
		return nil, err
	}
	return &Locker{chain.NewContract(address, parsed, gw)}, nil
}

func (l *Locker) GetFee(ctx context.Context, name string) (FeeStruct, error) {
	values, err := l.Call(ctx, "getFee", name)
	if err != nil {
		return FeeStruct{}, err
	}
	fee, err := decodeTuple[FeeStruct](values[0])
	if err != nil {
		return FeeStruct{}, errs.Wrap(errs.RPCError, "getFee", err)
	}
	return fee, nil
}

func (l *Locker) GetNumUserLocks(ctx context.Context, user common.Address) (*big.Int, error) {
	values, err := l.Call(ctx, "getNumUserLocks", user)
	if err != nil {
		return nil, err
	}
	return unpackBigInt("getNumUserLocks", values[0])
}

func (l *Locker) GetUserLockAtIndex(ctx context.Context, user common.Address, index int64) (LockInfo, error) {
	values, err := l.Call(ctx, "getUserLockAtIndex", user, big.NewInt(index))
	if err != nil {
		return LockInfo{}, err
	}
	info, err := decodeTuple[LockInfo](values[0])
	if err != nil {
		return LockInfo{}, errs.Wrap(errs.RPCError, "getUserLockAtIndex", err)
	}
	return info, nil
}

func (l *Locker) GetLock(ctx context.Context, lockID *big.Int) (LockInfo, error) {
	values, err := l.Call(ctx, "getLock", lockID)
	if err != nil {
		return LockInfo{}, err
	}
	info, err := decodeTuple[LockInfo](values[0])
	if err != nil {
		return LockInfo{}, errs.Wrap(errs.RPCError, "getLock", err)
	}
	return info, nil
}

func unpackAddress(method string, value interface{}) (common.Address, error) {
	addr, err := asAddress(value)
	if err != nil {
		return common.Address{}, errs.Wrap(errs.RPCError, method, err)
	}
	return addr, nil
}

func unpackBigInt(method string, value interface{}) (*big.Int, error) {
	v, err := asBigInt(value)
	if err != nil {
		return nil, errs.Wrap(errs.RPCError, method, err)
	}
	return v, nil
}
