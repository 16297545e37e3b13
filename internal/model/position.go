package model

import (
	"encoding/json"
	"time"
)

// Symbol is a token symbol that may have been substituted by an address prefix.
type Symbol struct {
	Value    string `json:"value"`
	Degraded bool   `json:"degraded,omitempty"`
}

func (s Symbol) String() string {
	return s.Value
}

// UnknownSymbol is shown when lock enrichment fails.
var UnknownSymbol = Symbol{Value: "Unknown", Degraded: true}

// Position is a Uniswap V3 position NFT held by a wallet.
type Position struct {
	TokenID      string `json:"token_id"`
	Token0       string `json:"token0"`
	Token1       string `json:"token1"`
	Token0Symbol Symbol `json:"token0_symbol"`
	Token1Symbol Symbol `json:"token1_symbol"`
	Fee          uint32 `json:"fee"`
	Liquidity    string `json:"liquidity"`
}

// Pair renders "SYM0/SYM1".
func (p Position) Pair() string {
	return p.Token0Symbol.Value + "/" + p.Token1Symbol.Value
}

// Enrichment records whether lock details were resolved from the pool.
type Enrichment string

const (
	EnrichmentResolved    Enrichment = "resolved"
	EnrichmentPlaceholder Enrichment = "placeholder"
)

// LiquidityUnavailable is reported when a locked position's liquidity cannot be read.
const LiquidityUnavailable = "N/A"

// LockedPosition is one lock owned by a wallet on the locker contract.
type LockedPosition struct {
	LockID       string     `json:"lock_id"`
	NFTID        string     `json:"nft_id"`
	Pool         string     `json:"pool,omitempty"`
	Token0       string     `json:"token0,omitempty"`
	Token1       string     `json:"token1,omitempty"`
	Token0Symbol Symbol     `json:"token0_symbol"`
	Token1Symbol Symbol     `json:"token1_symbol"`
	Fee          uint32     `json:"fee"`
	UnlockDate   time.Time  `json:"unlock_date"`
	Liquidity    string     `json:"liquidity"`
	Enrichment   Enrichment `json:"enrichment"`
}

// IsExpired reports whether the lock can be withdrawn at now.
func (l LockedPosition) IsExpired(now time.Time) bool {
	return !now.Before(l.UnlockDate)
}

// MarshalJSON adds is_expired evaluated at encoding time.
func (l LockedPosition) MarshalJSON() ([]byte, error) {
	type Alias LockedPosition
	return json.Marshal(struct {
		Alias
		IsExpired bool `json:"is_expired"`
	}{
		Alias:     Alias(l),
		IsExpired: l.IsExpired(time.Now()),
	})
}

// LockedInventory is the result of listing locks. Probed is set when the lock count
// could not be read and indices were probed instead.
type LockedInventory struct {
	Locks  []LockedPosition `json:"locks"`
	Probed bool             `json:"probed,omitempty"`
}

// LockRequest locks one position NFT.
type LockRequest struct {
	WalletAddress string `json:"wallet_address"`
	PositionID    string `json:"position_id"`
	DurationDays  int    `json:"duration_days"`
	CountryCode   uint16 `json:"country_code"`
}

// UnlockDate returns the unix unlock timestamp for a submission at now.
func (r LockRequest) UnlockDate(now time.Time) int64 {
	return now.Unix() + int64(r.DurationDays)*86400
}

// LockFee is the locker's flat fee in wei. Degraded marks the hardcoded fallback.
type LockFee struct {
	Wei      string `json:"wei"`
	Amount   string `json:"amount"`
	Degraded bool   `json:"degraded,omitempty"`
}

// ApprovalResult is the outcome of approving the locker on the position NFT contract.
type ApprovalResult struct {
	AlreadyApproved bool         `json:"already_approved"`
	Status          ResultStatus `json:"status"`
	TxHash          string       `json:"tx_hash,omitempty"`
	Error           string       `json:"error,omitempty"`
}

// LockResult is the outcome of a lock transaction.
type LockResult struct {
	Status     ResultStatus `json:"status"`
	TxHash     string       `json:"tx_hash,omitempty"`
	PositionID string       `json:"position_id"`
	UnlockDate time.Time    `json:"unlock_date"`
	Fee        LockFee      `json:"fee"`
	Error      string       `json:"error,omitempty"`
}
