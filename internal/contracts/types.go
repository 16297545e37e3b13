package contracts

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// MintParams is INonfungiblePositionManager.MintParams.
type MintParams struct {
	Token0         common.Address
	Token1         common.Address
	Fee            *big.Int
	TickLower      *big.Int
	TickUpper      *big.Int
	Amount0Desired *big.Int
	Amount1Desired *big.Int
	Amount0Min     *big.Int
	Amount1Min     *big.Int
	Recipient      common.Address
	Deadline       *big.Int
}

// LockParams is the locker's lock() argument.
type LockParams struct {
	NftPositionManager  common.Address
	NftId               *big.Int
	DustRecipient       common.Address
	Owner               common.Address
	AdditionalCollector common.Address
	CollectAddress      common.Address
	UnlockDate          *big.Int
	CountryCode         uint16
	FeeName             string
	R                   [][]byte
}

// FeeStruct is the locker's getFee() result.
type FeeStruct struct {
	Name         string
	LpFee        *big.Int
	CollectFee   *big.Int
	FlatFee      *big.Int
	FlatFeeToken common.Address
}

// LockInfo is a lock as returned by getLock and getUserLockAtIndex.
type LockInfo struct {
	LockId              *big.Int
	NftPositionManager  common.Address
	Pool                common.Address
	NftId               *big.Int
	Owner               common.Address
	PendingOwner        common.Address
	AdditionalCollector common.Address
	CollectAddress      common.Address
	UnlockDate          *big.Int
	CountryCode         uint16
	Ucf                 *big.Int
}

// PositionInfo is the decoded result of positions(tokenId).
type PositionInfo struct {
	Token0    common.Address
	Token1    common.Address
	Fee       uint32
	TickLower int32
	TickUpper int32
	Liquidity *big.Int
}

// decodeTuple copies an unpacked tuple value into out.
func decodeTuple[T any](value interface{}) (out T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("decode %T: %v", out, r)
		}
	}()
	converted := abi.ConvertType(value, new(T))
	ptr, ok := converted.(*T)
	if !ok {
		return out, fmt.Errorf("decode %T: unexpected %T", out, converted)
	}
	return *ptr, nil
}

func bytes32ToString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case [32]byte:
		return string(bytes.TrimRight(v[:], "\x00")), true
	case []byte:
		return string(bytes.TrimRight(v, "\x00")), true
	default:
		return "", false
	}
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case int32:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

func asBool(value interface{}) (bool, error) {
	v, ok := value.(bool)
	if !ok {
		return false, fmt.Errorf("unsupported bool type %T", value)
	}
	return v, nil
}

func int24FromBig(value *big.Int) (int32, error) {
	min := big.NewInt(-1 << 23)
	max := big.NewInt((1 << 23) - 1)
	if value.Cmp(min) < 0 || value.Cmp(max) > 0 {
		return 0, fmt.Errorf("int24 overflow: %s", value.String())
	}
	return int32(value.Int64()), nil
}
