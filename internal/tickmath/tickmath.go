package tickmath

import (
	"math"
	"math/big"

	"launchpad/internal/model"
)

const (
	MinTick int32 = -887272
	MaxTick int32 = 887272

	// FeeTier is the only fee tier used for pool creation (0.3%).
	FeeTier uint32 = 3000
)

// Q96 is 2^96.
var Q96 = new(big.Int).Lsh(big.NewInt(1), 96)

// sqrtPrecision keeps sqrt(price)*2^96 exact for every float64 input.
const sqrtPrecision = 512

// TickSpacing returns the tick spacing for a fee tier. Unknown tiers use the 0.3% spacing.
func TickSpacing(fee uint32) int32 {
	switch fee {
	case 100:
		return 1
	case 500:
		return 10
	case 3000:
		return 60
	case 10000:
		return 200
	default:
		return 60
	}
}

// ComputeTicks returns the widest spacing-aligned range inside [MinTick, MaxTick].
func ComputeTicks(fee uint32) model.TickRange {
	return FullRange(TickSpacing(fee))
}

// FullRange aligns the global tick bounds to spacing: ceil for the lower, floor for the upper.
func FullRange(spacing int32) model.TickRange {
	if spacing <= 0 {
		spacing = 1
	}
	// Go division truncates toward zero, which is ceil for the negative bound and floor for the positive one.
	return model.TickRange{
		MinTick: (MinTick / spacing) * spacing,
		MaxTick: (MaxTick / spacing) * spacing,
	}
}

// SqrtPriceX96 returns floor(sqrt(price) * 2^96). Non-positive or non-finite prices are treated as 1.0.
func SqrtPriceX96(price float64) *big.Int {
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		price = 1.0
	}
	p := new(big.Float).SetPrec(sqrtPrecision).SetFloat64(price)
	return sqrtX96(p)
}

// SqrtPriceX96FromAmounts computes the initialization price amount1/amount0 without float64 rounding.
// Either amount being zero yields the 1:1 price.
func SqrtPriceX96FromAmounts(amount0, amount1 *big.Int) *big.Int {
	if amount0 == nil || amount1 == nil || amount0.Sign() <= 0 || amount1.Sign() <= 0 {
		return new(big.Int).Set(Q96)
	}
	num := new(big.Float).SetPrec(sqrtPrecision).SetInt(amount1)
	den := new(big.Float).SetPrec(sqrtPrecision).SetInt(amount0)
	return sqrtX96(new(big.Float).SetPrec(sqrtPrecision).Quo(num, den))
}

// PriceFromAmounts returns amount1/amount0, or 1.0 when either amount is zero.
func PriceFromAmounts(amount0, amount1 *big.Int) float64 {
	if amount0 == nil || amount1 == nil || amount0.Sign() <= 0 || amount1.Sign() <= 0 {
		return 1.0
	}
	price, _ := new(big.Rat).SetFrac(amount1, amount0).Float64()
	return price
}

func sqrtX96(price *big.Float) *big.Int {
	root := new(big.Float).SetPrec(sqrtPrecision).Sqrt(price)
	scaled := new(big.Float).SetPrec(sqrtPrecision).Mul(root, new(big.Float).SetPrec(sqrtPrecision).SetInt(Q96))
	out, _ := scaled.Int(nil)
	return out
}
