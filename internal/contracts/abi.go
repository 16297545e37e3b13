package contracts

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const factoryABIJSON = `[
  {"inputs": [{"name": "tokenA", "type": "address"}, {"name": "tokenB", "type": "address"}, {"name": "fee", "type": "uint24"}], "name": "getPool", "outputs": [{"name": "pool", "type": "address"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "tokenA", "type": "address"}, {"name": "tokenB", "type": "address"}, {"name": "fee", "type": "uint24"}], "name": "createPool", "outputs": [{"name": "pool", "type": "address"}], "stateMutability": "nonpayable", "type": "function"}
]`

const positionManagerABIJSON = `[
  {
    "inputs": [
      {
        "components": [
          {"name": "token0", "type": "address"},
          {"name": "token1", "type": "address"},
          {"name": "fee", "type": "uint24"},
          {"name": "tickLower", "type": "int24"},
          {"name": "tickUpper", "type": "int24"},
          {"name": "amount0Desired", "type": "uint256"},
          {"name": "amount1Desired", "type": "uint256"},
          {"name": "amount0Min", "type": "uint256"},
          {"name": "amount1Min", "type": "uint256"},
          {"name": "recipient", "type": "address"},
          {"name": "deadline", "type": "uint256"}
        ],
        "name": "params",
        "type": "tuple"
      }
    ],
    "name": "mint",
    "outputs": [
      {"name": "tokenId", "type": "uint256"},
      {"name": "liquidity", "type": "uint128"},
      {"name": "amount0", "type": "uint256"},
      {"name": "amount1", "type": "uint256"}
    ],
    "stateMutability": "payable",
    "type": "function"
  },
  {"inputs": [{"name": "data", "type": "bytes[]"}], "name": "multicall", "outputs": [{"name": "results", "type": "bytes[]"}], "stateMutability": "payable", "type": "function"},
  {"inputs": [], "name": "refundETH", "outputs": [], "stateMutability": "payable", "type": "function"},
  {
    "inputs": [
      {"name": "token0", "type": "address"},
      {"name": "token1", "type": "address"},
      {"name": "fee", "type": "uint24"},
      {"name": "sqrtPriceX96", "type": "uint160"}
    ],
    "name": "createAndInitializePoolIfNecessary",
    "outputs": [{"name": "pool", "type": "address"}],
    "stateMutability": "payable",
    "type": "function"
  },
  {"inputs": [{"name": "owner", "type": "address"}], "name": "balanceOf", "outputs": [{"name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "owner", "type": "address"}, {"name": "index", "type": "uint256"}], "name": "tokenOfOwnerByIndex", "outputs": [{"name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
  {
    "inputs": [{"name": "tokenId", "type": "uint256"}],
    "name": "positions",
    "outputs": [
      {"name": "nonce", "type": "uint96"},
      {"name": "operator", "type": "address"},
      {"name": "token0", "type": "address"},
      {"name": "token1", "type": "address"},
      {"name": "fee", "type": "uint24"},
      {"name": "tickLower", "type": "int24"},
      {"name": "tickUpper", "type": "int24"},
      {"name": "liquidity", "type": "uint128"},
      {"name": "feeGrowthInside0LastX128", "type": "uint256"},
      {"name": "feeGrowthInside1LastX128", "type": "uint256"},
      {"name": "tokensOwed0", "type": "uint128"},
      {"name": "tokensOwed1", "type": "uint128"}
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {"inputs": [{"name": "owner", "type": "address"}, {"name": "operator", "type": "address"}], "name": "isApprovedForAll", "outputs": [{"name": "", "type": "bool"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "operator", "type": "address"}, {"name": "approved", "type": "bool"}], "name": "setApprovalForAll", "outputs": [], "stateMutability": "nonpayable", "type": "function"},
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "name": "from", "type": "address"},
      {"indexed": true, "name": "to", "type": "address"},
      {"indexed": true, "name": "tokenId", "type": "uint256"}
    ],
    "name": "Transfer",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "name": "tokenId", "type": "uint256"},
      {"indexed": false, "name": "liquidity", "type": "uint128"},
      {"indexed": false, "name": "amount0", "type": "uint256"},
      {"indexed": false, "name": "amount1", "type": "uint256"}
    ],
    "name": "IncreaseLiquidity",
    "type": "event"
  }
]`

const erc20ABIStringJSON = `[
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "symbol", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "account", "type": "address"}], "name": "balanceOf", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "owner", "type": "address"}, {"name": "spender", "type": "address"}], "name": "allowance", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "spender", "type": "address"}, {"name": "amount", "type": "uint256"}], "name": "approve", "outputs": [{"type": "bool"}], "stateMutability": "nonpayable", "type": "function"},
  {"inputs": [], "name": "owner", "outputs": [{"type": "address"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "renounceOwnership", "outputs": [], "stateMutability": "nonpayable", "type": "function"}
]`

const erc20ABIBytes32JSON = `[
  {"inputs": [], "name": "symbol", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"}
]`

const v3PoolABIJSON = `[
  {"inputs": [], "name": "token0", "outputs": [{"type": "address"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "token1", "outputs": [{"type": "address"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "fee", "outputs": [{"type": "uint24"}], "stateMutability": "view", "type": "function"}
]`

const lockerABIJSON = `[
  {
    "inputs": [
      {
        "components": [
          {"name": "nftPositionManager", "type": "address"},
          {"name": "nft_id", "type": "uint256"},
          {"name": "dustRecipient", "type": "address"},
          {"name": "owner", "type": "address"},
          {"name": "additionalCollector", "type": "address"},
          {"name": "collectAddress", "type": "address"},
          {"name": "unlockDate", "type": "uint256"},
          {"name": "countryCode", "type": "uint16"},
          {"name": "feeName", "type": "string"},
          {"name": "r", "type": "bytes[]"}
        ],
        "name": "params",
        "type": "tuple"
      }
    ],
    "name": "lock",
    "outputs": [{"name": "", "type": "uint256"}],
    "stateMutability": "payable",
    "type": "function"
  },
  {
    "inputs": [{"name": "_name", "type": "string"}],
    "name": "getFee",
    "outputs": [
      {
        "components": [
          {"name": "name", "type": "string"},
          {"name": "lpFee", "type": "uint256"},
          {"name": "collectFee", "type": "uint256"},
          {"name": "flatFee", "type": "uint256"},
          {"name": "flatFeeToken", "type": "address"}
        ],
        "name": "",
        "type": "tuple"
      }
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {"inputs": [{"name": "_user", "type": "address"}], "name": "getNumUserLocks", "outputs": [{"name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
  {
    "inputs": [{"name": "_user", "type": "address"}, {"name": "_index", "type": "uint256"}],
    "name": "getUserLockAtIndex",
    "outputs": [
      {
        "components": [
          {"name": "lock_id", "type": "uint256"},
          {"name": "nftPositionManager", "type": "address"},
          {"name": "pool", "type": "address"},
          {"name": "nft_id", "type": "uint256"},
          {"name": "owner", "type": "address"},
          {"name": "pendingOwner", "type": "address"},
          {"name": "additionalCollector", "type": "address"},
          {"name": "collectAddress", "type": "address"},
          {"name": "unlockDate", "type": "uint256"},
          {"name": "countryCode", "type": "uint16"},
          {"name": "ucf", "type": "uint256"}
        ],
        "name": "",
        "type": "tuple"
      }
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [{"name": "_lockId", "type": "uint256"}],
    "name": "getLock",
    "outputs": [
      {
        "components": [
          {"name": "lock_id", "type": "uint256"},
          {"name": "nftPositionManager", "type": "address"},
          {"name": "pool", "type": "address"},
          {"name": "nft_id", "type": "uint256"},
          {"name": "owner", "type": "address"},
          {"name": "pendingOwner", "type": "address"},
          {"name": "additionalCollector", "type": "address"},
          {"name": "collectAddress", "type": "address"},
          {"name": "unlockDate", "type": "uint256"},
          {"name": "countryCode", "type": "uint16"},
          {"name": "ucf", "type": "uint256"}
        ],
        "name": "",
        "type": "tuple"
      }
    ],
    "stateMutability": "view",
    "type": "function"
  }
]`

type lazyABI struct {
	once   sync.Once
	source string
	parsed abi.ABI
	err    error
}

func (l *lazyABI) get() (abi.ABI, error) {
	l.once.Do(func() {
		l.parsed, l.err = abi.JSON(strings.NewReader(l.source))
	})
	return l.parsed, l.err
}

var (
	factoryABI         = &lazyABI{source: factoryABIJSON}
	positionManagerABI = &lazyABI{source: positionManagerABIJSON}
	erc20StringABI     = &lazyABI{source: erc20ABIStringJSON}
	erc20Bytes32ABI    = &lazyABI{source: erc20ABIBytes32JSON}
	v3PoolABI          = &lazyABI{source: v3PoolABIJSON}
	lockerABI          = &lazyABI{source: lockerABIJSON}
)

// FactoryABI returns the parsed Uniswap V3 factory ABI.
func FactoryABI() (abi.ABI, error) { return factoryABI.get() }

// PositionManagerABI returns the parsed NonfungiblePositionManager ABI.
func PositionManagerABI() (abi.ABI, error) { return positionManagerABI.get() }

// ERC20ABI returns the ERC20 ABI with string metadata plus Ownable.
func ERC20ABI() (abi.ABI, error) { return erc20StringABI.get() }

// ERC20Bytes32ABI returns the legacy ERC20 metadata ABI returning bytes32.
func ERC20Bytes32ABI() (abi.ABI, error) { return erc20Bytes32ABI.get() }

// V3PoolABI returns the pool immutables ABI.
func V3PoolABI() (abi.ABI, error) { return v3PoolABI.get() }

// LockerABI returns the UNCX V3 liquidity locker ABI.
func LockerABI() (abi.ABI, error) { return lockerABI.get() }
