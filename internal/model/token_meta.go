package model

import "time"

// TokenMeta captures ERC20 metadata read best-effort from chain.
type TokenMeta struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
	Balance string `json:"balance,omitempty"`
}

// TokenRecord is a token deployment reported by the build pipeline.
type TokenRecord struct {
	UserID          string    `json:"user_id"`
	Name            string    `json:"name"`
	Symbol          string    `json:"symbol"`
	ContractAddress string    `json:"contract_address"`
	TotalSupply     string    `json:"total_supply"`
	BuyTax          int       `json:"buy_tax"`
	SellTax         int       `json:"sell_tax"`
	TaxWallet       string    `json:"tax_wallet,omitempty"`
	Features        []string  `json:"features,omitempty"`
	Network         string    `json:"network"`
	TxHash          string    `json:"tx_hash,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Wallet is a user's signing wallet. The private key never leaves the storage and signer boundary.
type Wallet struct {
	UserID     string    `json:"user_id"`
	Address    string    `json:"address"`
	PrivateKey string    `json:"private_key"`
	CreatedAt  time.Time `json:"created_at"`
}

// OwnershipInfo describes a contract's owner relative to a wallet.
type OwnershipInfo struct {
	Contract  string    `json:"contract"`
	Token     TokenMeta `json:"token"`
	Owner     string    `json:"owner"`
	IsOwner   bool      `json:"is_owner"`
	Renounced bool      `json:"renounced"`
}

// RenounceResult is the outcome of renounceOwnership.
type RenounceResult struct {
	Status      ResultStatus `json:"status"`
	Contract    string       `json:"contract"`
	TxHash      string       `json:"tx_hash,omitempty"`
	GasUsed     uint64       `json:"gas_used,omitempty"`
	ExplorerURL string       `json:"explorer_url,omitempty"`
	Error       string       `json:"error,omitempty"`
}

// TxStatus is a receipt lookup for a previously sent transaction.
type TxStatus struct {
	TxHash      string       `json:"tx_hash"`
	Status      ResultStatus `json:"status"`
	BlockNumber uint64       `json:"block_number,omitempty"`
	GasUsed     uint64       `json:"gas_used,omitempty"`
}
