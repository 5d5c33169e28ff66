package dex

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const v2PairABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "name": "sender", "type": "address"},
      {"indexed": false, "name": "amount0In", "type": "uint256"},
      {"indexed": false, "name": "amount1In", "type": "uint256"},
      {"indexed": false, "name": "amount0Out", "type": "uint256"},
      {"indexed": false, "name": "amount1Out", "type": "uint256"},
      {"indexed": true, "name": "to", "type": "address"}
    ],
    "name": "Swap",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": false, "name": "reserve0", "type": "uint112"},
      {"indexed": false, "name": "reserve1", "type": "uint112"}
    ],
    "name": "Sync",
    "type": "event"
  },
  {
    "inputs": [],
    "name": "getReserves",
    "outputs": [
      {"name": "reserve0", "type": "uint112"},
      {"name": "reserve1", "type": "uint112"},
      {"name": "blockTimestampLast", "type": "uint32"}
    ],
    "stateMutability": "view",
    "type": "function"
  }
]`

const v3PoolABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "sender", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "recipient", "type": "address"},
      {"indexed": false, "internalType": "int256", "name": "amount0", "type": "int256"},
      {"indexed": false, "internalType": "int256", "name": "amount1", "type": "int256"},
      {"indexed": false, "internalType": "uint160", "name": "sqrtPriceX96", "type": "uint160"},
      {"indexed": false, "internalType": "uint128", "name": "liquidity", "type": "uint128"},
      {"indexed": false, "internalType": "int24", "name": "tick", "type": "int24"}
    ],
    "name": "Swap",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": false, "internalType": "address", "name": "sender", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "owner", "type": "address"},
      {"indexed": true, "internalType": "int24", "name": "tickLower", "type": "int24"},
      {"indexed": true, "internalType": "int24", "name": "tickUpper", "type": "int24"},
      {"indexed": false, "internalType": "uint128", "name": "amount", "type": "uint128"},
      {"indexed": false, "internalType": "uint256", "name": "amount0", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "amount1", "type": "uint256"}
    ],
    "name": "Mint",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "owner", "type": "address"},
      {"indexed": true, "internalType": "int24", "name": "tickLower", "type": "int24"},
      {"indexed": true, "internalType": "int24", "name": "tickUpper", "type": "int24"},
      {"indexed": false, "internalType": "uint128", "name": "amount", "type": "uint128"},
      {"indexed": false, "internalType": "uint256", "name": "amount0", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "amount1", "type": "uint256"}
    ],
    "name": "Burn",
    "type": "event"
  },
  {
    "inputs": [],
    "name": "liquidity",
    "outputs": [{"internalType": "uint128", "name": "", "type": "uint128"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "slot0",
    "outputs": [
      {"internalType": "uint160", "name": "sqrtPriceX96", "type": "uint160"},
      {"internalType": "int24", "name": "tick", "type": "int24"},
      {"internalType": "uint16", "name": "observationIndex", "type": "uint16"},
      {"internalType": "uint16", "name": "observationCardinality", "type": "uint16"},
      {"internalType": "uint16", "name": "observationCardinalityNext", "type": "uint16"},
      {"internalType": "uint8", "name": "feeProtocol", "type": "uint8"},
      {"internalType": "bool", "name": "unlocked", "type": "bool"}
    ],
    "stateMutability": "view",
    "type": "function"
  }
]`

const v4PoolManagerABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "name": "id", "type": "bytes32"},
      {"indexed": true, "name": "currency0", "type": "address"},
      {"indexed": true, "name": "currency1", "type": "address"},
      {"indexed": false, "name": "fee", "type": "uint24"},
      {"indexed": false, "name": "tickSpacing", "type": "int24"},
      {"indexed": false, "name": "hooks", "type": "address"},
      {"indexed": false, "name": "sqrtPriceX96", "type": "uint160"},
      {"indexed": false, "name": "tick", "type": "int24"}
    ],
    "name": "Initialize",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "name": "id", "type": "bytes32"},
      {"indexed": true, "name": "sender", "type": "address"},
      {"indexed": false, "name": "tickLower", "type": "int24"},
      {"indexed": false, "name": "tickUpper", "type": "int24"},
      {"indexed": false, "name": "liquidityDelta", "type": "int256"},
      {"indexed": false, "name": "salt", "type": "bytes32"}
    ],
    "name": "ModifyLiquidity",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "name": "id", "type": "bytes32"},
      {"indexed": true, "name": "sender", "type": "address"},
      {"indexed": false, "name": "amount0", "type": "int128"},
      {"indexed": false, "name": "amount1", "type": "int128"},
      {"indexed": false, "name": "sqrtPriceX96", "type": "uint160"},
      {"indexed": false, "name": "liquidity", "type": "uint128"},
      {"indexed": false, "name": "tick", "type": "int24"},
      {"indexed": false, "name": "fee", "type": "uint24"}
    ],
    "name": "Swap",
    "type": "event"
  }
]`

const hookABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": false, "name": "currentTick", "type": "int24"},
      {"indexed": false, "name": "totalProceeds", "type": "uint256"},
      {"indexed": false, "name": "totalTokensSold", "type": "uint256"}
    ],
    "name": "Swap",
    "type": "event"
  },
  {
    "inputs": [],
    "name": "state",
    "outputs": [
      {"name": "lastEpoch", "type": "uint40"},
      {"name": "tickAccumulator", "type": "int256"},
      {"name": "totalTokensSold", "type": "uint256"},
      {"name": "totalProceeds", "type": "uint256"},
      {"name": "totalTokensSoldLastEpoch", "type": "uint256"},
      {"name": "feesAccrued", "type": "int256"}
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {"inputs": [], "name": "startingTick", "outputs": [{"type": "int24"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "endingTick", "outputs": [{"type": "int24"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "maximumProceeds", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "numTokensToSell", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "numPDSlugs", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {
    "inputs": [{"name": "salt", "type": "bytes32"}],
    "name": "getPositions",
    "outputs": [
      {"name": "tickLower", "type": "int24"},
      {"name": "tickUpper", "type": "int24"},
      {"name": "liquidity", "type": "uint128"},
      {"name": "salt", "type": "uint8"}
    ],
    "stateMutability": "view",
    "type": "function"
  }
]`

const airlockABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": false, "name": "asset", "type": "address"},
      {"indexed": true, "name": "numeraire", "type": "address"},
      {"indexed": false, "name": "initializer", "type": "address"},
      {"indexed": false, "name": "poolOrHook", "type": "address"}
    ],
    "name": "Create",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "name": "asset", "type": "address"},
      {"indexed": true, "name": "pool", "type": "address"}
    ],
    "name": "Migrate",
    "type": "event"
  }
]`

const initializerABIJSON = `[
  {
    "inputs": [{"name": "pool", "type": "address"}],
    "name": "getState",
    "outputs": [
      {"name": "numeraire", "type": "address"},
      {"name": "tickLower", "type": "int24"},
      {"name": "tickUpper", "type": "int24"},
      {"name": "numPositions", "type": "uint16"},
      {"name": "isInitialized", "type": "bool"},
      {"name": "isExited", "type": "bool"},
      {"name": "maxShareToBeSold", "type": "uint256"},
      {"name": "totalTokensOnBondingCurve", "type": "uint256"}
    ],
    "stateMutability": "view",
    "type": "function"
  }
]`

type lazyABI struct {
	json   string
	once   sync.Once
	parsed abi.ABI
	err    error
}

func (l *lazyABI) get() (abi.ABI, error) {
	l.once.Do(func() {
		l.parsed, l.err = abi.JSON(strings.NewReader(l.json))
	})
	return l.parsed, l.err
}

var (
	v2PairABI        = &lazyABI{json: v2PairABIJSON}
	v3PoolABI        = &lazyABI{json: v3PoolABIJSON}
	v4PoolManagerABI = &lazyABI{json: v4PoolManagerABIJSON}
	hookABI          = &lazyABI{json: hookABIJSON}
	airlockABI       = &lazyABI{json: airlockABIJSON}
	initializerABI   = &lazyABI{json: initializerABIJSON}
)

// V2PairABI returns the parsed constant-product pair ABI.
func V2PairABI() (abi.ABI, error) { return v2PairABI.get() }

// V3PoolABI returns the parsed V3 pool ABI.
func V3PoolABI() (abi.ABI, error) { return v3PoolABI.get() }

// V4PoolManagerABI returns the parsed singleton PoolManager ABI.
func V4PoolManagerABI() (abi.ABI, error) { return v4PoolManagerABI.get() }

// HookABI returns the parsed bonding-curve hook ABI.
func HookABI() (abi.ABI, error) { return hookABI.get() }

// AirlockABI returns the parsed launch factory ABI.
func AirlockABI() (abi.ABI, error) { return airlockABI.get() }

// InitializerABI returns the parsed V3 launch initializer ABI.
func InitializerABI() (abi.ABI, error) { return initializerABI.get() }
