package model

import (
	"fmt"
	"strings"
)

// Protocol identifies the AMM mechanics a pool follows.
type Protocol uint8

const (
	ProtocolUnknown Protocol = iota
	// ProtocolConstantProduct is a Uniswap V2 style x*y=k pair.
	ProtocolConstantProduct
	// ProtocolConcentratedV3 is a Uniswap V3 style pool with per-position tick ranges.
	ProtocolConcentratedV3
	// ProtocolConcentratedV4 is a singleton PoolManager pool keyed by pool id.
	ProtocolConcentratedV4
	// ProtocolHookBased is a V4 pool whose hook reports cumulative proceeds.
	ProtocolHookBased
)

func (p Protocol) String() string {
	switch p {
	case ProtocolConstantProduct:
		return "constant-product"
	case ProtocolConcentratedV3:
		return "concentrated-v3"
	case ProtocolConcentratedV4:
		return "concentrated-v4"
	case ProtocolHookBased:
		return "hook-based"
	default:
		return "unknown"
	}
}

// ParseProtocol accepts the String form plus a few short aliases.
func ParseProtocol(input string) (Protocol, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "constant-product", "v2", "cp":
		return ProtocolConstantProduct, nil
	case "concentrated-v3", "v3":
		return ProtocolConcentratedV3, nil
	case "concentrated-v4", "v4":
		return ProtocolConcentratedV4, nil
	case "hook-based", "hook", "dynamic":
		return ProtocolHookBased, nil
	default:
		return ProtocolUnknown, fmt.Errorf("unknown protocol: %s", input)
	}
}

// TracksLiquidityDeltas reports whether graduation is accumulated from mint/burn deltas.
func (p Protocol) TracksLiquidityDeltas() bool {
	return p == ProtocolConcentratedV3
}

// ReportsProceeds reports whether swaps carry cumulative proceeds totals.
func (p Protocol) ReportsProceeds() bool {
	return p == ProtocolHookBased
}
