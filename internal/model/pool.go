package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// TickRange is a full-range position bound aligned to the fee tier's tick spacing.
type TickRange struct {
	MinTick int32 `json:"min_tick"`
	MaxTick int32 `json:"max_tick"`
}

// PoolLiquidity is the user's requested initial liquidity.
type PoolLiquidity struct {
	TokenAmount  decimal.Decimal `json:"token_amount"`
	NativeAmount decimal.Decimal `json:"native_amount"`
}

// PoolCreationRequest is a confirmed pool creation. It is consumed exactly once by Execute.
type PoolCreationRequest struct {
	UserID       string          `json:"user_id"`
	TokenAddress string          `json:"token_address"`
	Network      string          `json:"network"`
	TokenAmount  decimal.Decimal `json:"token_amount"`
	NativeAmount decimal.Decimal `json:"native_amount"`
}

// PreparedPool is the read-only projection returned to the caller for confirmation.
type PreparedPool struct {
	Network         string          `json:"network"`
	From            string          `json:"from"`
	TokenAddress    string          `json:"token_address"`
	WrappedNative   string          `json:"wrapped_native"`
	Token0          string          `json:"token0"`
	Token1          string          `json:"token1"`
	IsToken0        bool            `json:"is_token0"`
	Amount0         decimal.Decimal `json:"amount0"`
	Amount1         decimal.Decimal `json:"amount1"`
	TokenAmount     decimal.Decimal `json:"token_amount"`
	NativeAmount    decimal.Decimal `json:"native_amount"`
	Fee             uint32          `json:"fee"`
	PoolExists      bool            `json:"pool_exists"`
	PoolAddress     string          `json:"pool_address,omitempty"`
	GasPriceWei     string          `json:"gas_price_wei"`
	GasLimit        uint64          `json:"gas_limit"`
	TransactionCost decimal.Decimal `json:"transaction_cost"`
	TotalCost       decimal.Decimal `json:"total_cost"`
	CurrentBalance  decimal.Decimal `json:"current_balance"`
	NativeSymbol    string          `json:"native_symbol"`
}

// Request converts the projection into the request Execute consumes.
func (p PreparedPool) Request(userID string) PoolCreationRequest {
	return PoolCreationRequest{
		UserID:       userID,
		TokenAddress: p.TokenAddress,
		Network:      p.Network,
		TokenAmount:  p.TokenAmount,
		NativeAmount: p.NativeAmount,
	}
}

// ResultStatus is the outcome of a pool creation.
type ResultStatus string

const (
	StatusSuccess ResultStatus = "success"
	StatusFailed  ResultStatus = "failed"
	StatusPending ResultStatus = "pending"
)

// PoolCreationResult is the outcome of Execute.
type PoolCreationResult struct {
	Status      ResultStatus `json:"status"`
	PoolAddress string       `json:"pool_address,omitempty"`
	PositionID  string       `json:"position_id,omitempty"`
	TxHash      string       `json:"tx_hash,omitempty"`
	RetryUsed   bool         `json:"retry_used"`
	Error       string       `json:"error,omitempty"`

	// Cause is the classified error behind a failed result.
	Cause error `json:"-"`
}

// Succeeded reports whether the pool was created.
func (r PoolCreationResult) Succeeded() bool {
	return r.Status == StatusSuccess
}

// PoolStage marks which phase appended a PoolRecord.
type PoolStage string

const (
	StagePrepared PoolStage = "prepared"
	StageExecuted PoolStage = "executed"
)

// PoolRecord is one append-only row of pool creation history.
type PoolRecord struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	Network      string          `json:"network"`
	TokenAddress string          `json:"token_address"`
	PoolAddress  string          `json:"pool_address,omitempty"`
	TokenAmount  decimal.Decimal `json:"token_amount"`
	NativeAmount decimal.Decimal `json:"native_amount"`
	Stage        PoolStage       `json:"stage"`
	Status       ResultStatus    `json:"status,omitempty"`
	PositionID   string          `json:"position_id,omitempty"`
	TxHash       string          `json:"tx_hash,omitempty"`
	RetryUsed    bool            `json:"retry_used"`
	Error        string          `json:"error,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// UnmarshalJSON decodes a PoolRecord, tolerating rows written without a stage.
func (r *PoolRecord) UnmarshalJSON(data []byte) error {
	type Alias PoolRecord
	var a Alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	if a.Stage == "" {
		a.Stage = StagePrepared
	}
	*r = PoolRecord(a)
	return nil
}
