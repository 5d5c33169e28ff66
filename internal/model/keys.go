package model

import (
	"fmt"
	"strings"
)

// PoolKey identifies a pool: a contract address, or a bytes32 pool id for singleton managers.
type PoolKey struct {
	ChainID uint64 `json:"chain_id"`
	ID      string `json:"id"`
}

// NewPoolKey normalizes the id to lower-case hex.
func NewPoolKey(chainID uint64, id string) PoolKey {
	return PoolKey{ChainID: chainID, ID: strings.ToLower(strings.TrimSpace(id))}
}

func (k PoolKey) String() string {
	return fmt.Sprintf("%d:%s", k.ChainID, k.ID)
}

// TokenKey identifies an ERC20 token.
type TokenKey struct {
	ChainID uint64 `json:"chain_id"`
	Address string `json:"address"`
}

// NewTokenKey normalizes the address to lower-case hex.
func NewTokenKey(chainID uint64, address string) TokenKey {
	return TokenKey{ChainID: chainID, Address: strings.ToLower(strings.TrimSpace(address))}
}

func (k TokenKey) String() string {
	return fmt.Sprintf("%d:%s", k.ChainID, k.Address)
}

// PositionKey identifies a tick range within a pool.
type PositionKey struct {
	Pool      PoolKey `json:"pool"`
	TickLower int32   `json:"tick_lower"`
	TickUpper int32   `json:"tick_upper"`
}

// HourKey identifies an hourly price bucket.
type HourKey struct {
	Pool      PoolKey `json:"pool"`
	HourStart uint64  `json:"hour_start"`
}

// HourStart truncates a unix timestamp to the start of its hour.
func HourStart(ts uint64) uint64 {
	return ts - ts%3600
}

// ZeroAddress is the ERC20 mint/burn counterparty and the V4 native currency.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// IsZeroAddress reports whether address is the zero address.
func IsZeroAddress(address string) bool {
	return strings.EqualFold(address, ZeroAddress)
}
