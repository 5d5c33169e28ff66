package model

// DecodeError records a log that matched a watched topic but could not be decoded.
type DecodeError struct {
	ChainID     uint64 `json:"chain_id"`
	BlockNumber uint64 `json:"block_number"`
	TxHash      string `json:"tx_hash"`
	LogIndex    uint64 `json:"log_index"`
	Address     string `json:"address"`
	Topic0      string `json:"topic0"`
	Decoder     string `json:"decoder,omitempty"`
	Error       string `json:"error"`
}
