package model

import (
	"encoding/json"
	"sort"
	"strings"
)

// LogRecord is the normalized representation of a chain log, archived before decoding.
type LogRecord struct {
	ChainID     uint64   `json:"chain_id"`
	BlockNumber uint64   `json:"block_number"`
	BlockHash   string   `json:"block_hash"`
	TxHash      string   `json:"tx_hash"`
	TxIndex     uint64   `json:"tx_index"`
	LogIndex    uint64   `json:"log_index"`
	Address     string   `json:"address"`
	Topics      []string `json:"topics"`
	Data        string   `json:"data"`
	Removed     bool     `json:"removed"`
	Timestamp   uint64   `json:"timestamp"`
	IngestedAt  string   `json:"ingested_at"`
}

// MarshalJSON ensures LogRecord is encoded with stable field names.
func (lr LogRecord) MarshalJSON() ([]byte, error) {
	type Alias LogRecord
	return json.Marshal(Alias(lr))
}

// UnmarshalJSON decodes a LogRecord from JSON.
func (lr *LogRecord) UnmarshalJSON(data []byte) error {
	type Alias LogRecord
	var a Alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*lr = LogRecord(a)
	return nil
}

// Cursor returns the dispatch position of the log.
func (lr LogRecord) Cursor() Cursor {
	return Cursor{Block: lr.BlockNumber, LogIndex: lr.LogIndex}
}

// EventMeta projects the positional fields shared with decoded events.
func (lr LogRecord) EventMeta() EventMeta {
	return EventMeta{
		ChainID:     lr.ChainID,
		BlockNumber: lr.BlockNumber,
		LogIndex:    lr.LogIndex,
		TxHash:      lr.TxHash,
		Address:     strings.ToLower(lr.Address),
		Timestamp:   lr.Timestamp,
	}
}

// SortLogRecords orders records by (block, log index), the only order the engine accepts.
func SortLogRecords(records []LogRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[j].Cursor().After(records[i].Cursor())
	})
}
