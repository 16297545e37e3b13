package contracts

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	// TransferTopic is keccak256("Transfer(address,address,uint256)").
	TransferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))
	// IncreaseLiquidityTopic is keccak256("IncreaseLiquidity(uint256,uint128,uint256,uint256)").
	IncreaseLiquidityTopic = crypto.Keccak256Hash([]byte("IncreaseLiquidity(uint256,uint128,uint256,uint256)"))
)

// ExtractPositionID finds the minted position NFT id in receipt logs emitted by positionManager.
// A mint Transfer (from the zero address) wins over IncreaseLiquidity regardless of log order.
func ExtractPositionID(logs []*types.Log, positionManager common.Address) (*big.Int, bool) {
	for _, lg := range logs {
		if lg == nil || lg.Address != positionManager || len(lg.Topics) < 4 {
			continue
		}
		if lg.Topics[0] == TransferTopic && lg.Topics[1] == (common.Hash{}) {
			return new(big.Int).SetBytes(lg.Topics[3].Bytes()), true
		}
	}
	for _, lg := range logs {
		if lg == nil || lg.Address != positionManager || len(lg.Topics) < 2 {
			continue
		}
		if lg.Topics[0] == IncreaseLiquidityTopic {
			return new(big.Int).SetBytes(lg.Topics[1].Bytes()), true
		}
	}
	return nil, false
}
