package dex

import (
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"poolScope/internal/model"
)

// ERC20Decoder decodes fungible Transfer logs.
type ERC20Decoder struct {
	tokenABI    abi.ABI
	topicToName map[string]string
}

func NewERC20Decoder() (*ERC20Decoder, error) {
	tokenABI, err := ERC20ABI()
	if err != nil {
		return nil, err
	}
	return &ERC20Decoder{tokenABI: tokenABI, topicToName: topicNames(tokenABI, "Transfer")}, nil
}

func (d *ERC20Decoder) Name() string { return "erc20" }

func (d *ERC20Decoder) Topics() []common.Hash { return topicHashes(d.tokenABI, "Transfer") }

func (d *ERC20Decoder) Decode(log model.LogRecord) (model.Event, error) {
	if _, err := eventName(d.topicToName, log); err != nil {
		return nil, err
	}
	// ERC721 shares the topic but indexes the token id as a fourth topic.
	if len(log.Topics) != 3 {
		return nil, ErrSkip
	}
	event := d.tokenABI.Events["Transfer"]
	var indexed struct {
		From common.Address
		To   common.Address
	}
	if err := parseIndexed(event, log.Topics, &indexed); err != nil {
		return nil, err
	}
	values, err := unpackNonIndexed(event, log.Data, 1)
	if err != nil {
		return nil, err
	}
	value, err := asBigInt(values[0])
	if err != nil {
		return nil, err
	}
	return model.Transfer{
		EventMeta: log.EventMeta(),
		Token:     normalizeAddress(log.Address),
		From:      addressString(indexed.From),
		To:        addressString(indexed.To),
		Value:     value,
	}, nil
}
