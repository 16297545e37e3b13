package tickmath

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickSpacing(t *testing.T) {
	cases := map[uint32]int32{100: 1, 500: 10, 3000: 60, 10000: 200, 2500: 60, 0: 60}
	for fee, want := range cases {
		assert.Equal(t, want, TickSpacing(fee), "fee %d", fee)
	}
}

func TestComputeTicksAlignedAndBounded(t *testing.T) {
	for _, fee := range []uint32{100, 500, 3000, 10000, 1234} {
		spacing := TickSpacing(fee)
		ticks := ComputeTicks(fee)

		assert.Zero(t, ticks.MinTick%spacing, "fee %d min tick not aligned", fee)
		assert.Zero(t, ticks.MaxTick%spacing, "fee %d max tick not aligned", fee)
		assert.GreaterOrEqual(t, ticks.MinTick, MinTick)
		assert.LessOrEqual(t, ticks.MaxTick, MaxTick)
		assert.Less(t, ticks.MinTick-spacing, MinTick, "fee %d range not widest", fee)
		assert.Greater(t, ticks.MaxTick+spacing, MaxTick, "fee %d range not widest", fee)
	}
}

func TestComputeTicksKnownValues(t *testing.T) {
	ticks := ComputeTicks(FeeTier)
	assert.Equal(t, int32(-887220), ticks.MinTick)
	assert.Equal(t, int32(887220), ticks.MaxTick)

	ticks = ComputeTicks(10000)
	assert.Equal(t, int32(-887200), ticks.MinTick)
	assert.Equal(t, int32(887200), ticks.MaxTick)

	ticks = ComputeTicks(100)
	assert.Equal(t, MinTick, ticks.MinTick)
	assert.Equal(t, MaxTick, ticks.MaxTick)
}

func TestSqrtPriceX96ExactAtOne(t *testing.T) {
	require.Equal(t, 0, SqrtPriceX96(1.0).Cmp(Q96))
	assert.Equal(t, "79228162514264337593543950336", SqrtPriceX96(1.0).String())
}

func TestSqrtPriceX96KnownValues(t *testing.T) {
	// sqrt(4) * 2^96 = 2^97
	assert.Equal(t, 0, SqrtPriceX96(4).Cmp(new(big.Int).Lsh(big.NewInt(1), 97)))
	// sqrt(0.25) * 2^96 = 2^95
	assert.Equal(t, 0, SqrtPriceX96(0.25).Cmp(new(big.Int).Lsh(big.NewInt(1), 95)))
}

func TestSqrtPriceX96Monotonic(t *testing.T) {
	prices := []float64{1e-12, 1e-6, 0.001, 0.5, 0.999999, 1, 1.000001, 2, 1000, 1e9, 1e18}
	prev := SqrtPriceX96(prices[0])
	for _, p := range prices[1:] {
		next := SqrtPriceX96(p)
		assert.Equal(t, 1, next.Cmp(prev), "price %g not strictly greater than predecessor", p)
		prev = next
	}
}

func TestSqrtPriceX96InvalidFallsBackToOne(t *testing.T) {
	assert.Equal(t, 0, SqrtPriceX96(0).Cmp(Q96))
	assert.Equal(t, 0, SqrtPriceX96(-3).Cmp(Q96))
}

func TestPriceFromAmounts(t *testing.T) {
	assert.Equal(t, 1.0, PriceFromAmounts(big.NewInt(0), big.NewInt(10)))
	assert.Equal(t, 1.0, PriceFromAmounts(big.NewInt(10), big.NewInt(0)))
	assert.Equal(t, 0.25, PriceFromAmounts(big.NewInt(4), big.NewInt(1)))

	wei := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	amount0 := new(big.Int).Mul(big.NewInt(1_000_000), wei)
	amount1 := new(big.Int).Mul(big.NewInt(10), wei)
	assert.InDelta(t, 1e-5, PriceFromAmounts(amount0, amount1), 1e-18)
}

func TestSqrtPriceX96FromAmounts(t *testing.T) {
	assert.Equal(t, 0, SqrtPriceX96FromAmounts(big.NewInt(1), big.NewInt(4)).Cmp(new(big.Int).Lsh(big.NewInt(1), 97)))
	assert.Equal(t, 0, SqrtPriceX96FromAmounts(big.NewInt(0), big.NewInt(4)).Cmp(Q96))
	assert.Equal(t, 0, SqrtPriceX96FromAmounts(big.NewInt(7), big.NewInt(7)).Cmp(Q96))
}
