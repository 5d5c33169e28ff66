package dex

import (
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"poolScope/internal/model"
)

// ErrUnknownTopic is returned for logs no registered decoder handles.
var ErrUnknownTopic = errors.New("no decoder for topic0")

// ErrSkip marks a log that matched a topic but is not one the engine consumes,
// for example an ERC721 Transfer sharing the ERC20 topic.
var ErrSkip = errors.New("log skipped")

// Decoder turns logs of a contract family into typed events.
type Decoder interface {
	Name() string
	Topics() []common.Hash
	Decode(log model.LogRecord) (model.Event, error)
}

// Registry dispatches logs to decoders by topic0.
type Registry struct {
	byTopic map[string]Decoder
}

// NewRegistry indexes decoders by topic. Two decoders claiming one topic is an error.
func NewRegistry(decoders ...Decoder) (*Registry, error) {
	r := &Registry{byTopic: make(map[string]Decoder)}
	for _, decoder := range decoders {
		for _, topic := range decoder.Topics() {
			key := strings.ToLower(topic.Hex())
			if existing, ok := r.byTopic[key]; ok {
				return nil, fmt.Errorf("topic %s claimed by %s and %s", key, existing.Name(), decoder.Name())
			}
			r.byTopic[key] = decoder
		}
	}
	return r, nil
}

// Topics returns every handled topic0, sorted for stable filter queries.
func (r *Registry) Topics() []common.Hash {
	out := make([]common.Hash, 0, len(r.byTopic))
	for key := range r.byTopic {
		out = append(out, common.HexToHash(key))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hex() < out[j].Hex() })
	return out
}

// Lookup returns the decoder for a topic0.
func (r *Registry) Lookup(topic0 string) (Decoder, bool) {
	d, ok := r.byTopic[strings.ToLower(topic0)]
	return d, ok
}

// Decode routes the log to its decoder.
func (r *Registry) Decode(log model.LogRecord) (model.Event, error) {
	if len(log.Topics) == 0 {
		return nil, fmt.Errorf("missing topics")
	}
	decoder, ok := r.Lookup(log.Topics[0])
	if !ok {
		return nil, ErrUnknownTopic
	}
	return decoder.Decode(log)
}

// topicNames builds the topic0 -> event name table for an ABI.
func topicNames(parsed abi.ABI, names ...string) map[string]string {
	out := make(map[string]string, len(names))
	for _, name := range names {
		out[strings.ToLower(parsed.Events[name].ID.Hex())] = name
	}
	return out
}

func topicHashes(parsed abi.ABI, names ...string) []common.Hash {
	out := make([]common.Hash, 0, len(names))
	for _, name := range names {
		out = append(out, parsed.Events[name].ID)
	}
	return out
}

func eventName(table map[string]string, log model.LogRecord) (string, error) {
	if len(log.Topics) == 0 {
		return "", fmt.Errorf("missing topics")
	}
	name, ok := table[strings.ToLower(log.Topics[0])]
	if !ok {
		return "", fmt.Errorf("unsupported topic0: %s", log.Topics[0])
	}
	return name, nil
}

func parseIndexedTopics(event abi.Event, topics []string) ([]common.Hash, error) {
	indexedCount := len(indexedArguments(event.Inputs))
	if len(topics) != indexedCount+1 {
		return nil, fmt.Errorf("expected %d topics, got %d", indexedCount+1, len(topics))
	}
	return parseTopicHashes(topics[1:])
}

func parseTopicHashes(topics []string) ([]common.Hash, error) {
	out := make([]common.Hash, 0, len(topics))
	for _, topic := range topics {
		data, err := hexutil.Decode(topic)
		if err != nil {
			return nil, fmt.Errorf("invalid topic: %w", err)
		}
		if len(data) > 32 {
			return nil, fmt.Errorf("topic length %d", len(data))
		}
		out = append(out, common.BytesToHash(data))
	}
	return out, nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}

func parseIndexed(event abi.Event, topics []string, out interface{}) error {
	indexedTopics, err := parseIndexedTopics(event, topics)
	if err != nil {
		return err
	}
	if err := abi.ParseTopics(out, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return fmt.Errorf("parse topics: %w", err)
	}
	return nil
}

func unpackNonIndexed(event abi.Event, dataHex string, want int) ([]interface{}, error) {
	data, err := hexutil.Decode(dataHex)
	if err != nil {
		return nil, fmt.Errorf("invalid data: %w", err)
	}
	values, err := event.Inputs.NonIndexed().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", event.Name, err)
	}
	if len(values) != want {
		return nil, fmt.Errorf("unexpected %s values: %d", event.Name, len(values))
	}
	return values, nil
}

// bigs converts a run of unpacked values into big integers.
func bigs(values ...interface{}) ([]*big.Int, error) {
	out := make([]*big.Int, 0, len(values))
	for _, value := range values {
		v, err := asBigInt(value)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case int8:
		return big.NewInt(int64(v)), nil
	case int16:
		return big.NewInt(int64(v)), nil
	case int32:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

func asUint8(value interface{}) (uint8, error) {
	switch v := value.(type) {
	case uint8:
		return v, nil
	case *big.Int:
		return uint8(v.Uint64()), nil
	default:
		return 0, fmt.Errorf("unsupported uint8 type %T", value)
	}
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

func asInt24(value interface{}) (int32, error) {
	v, err := asBigInt(value)
	if err != nil {
		return 0, err
	}
	return int24FromBig(v)
}

func int24FromBig(value *big.Int) (int32, error) {
	min := big.NewInt(-1 << 23)
	max := big.NewInt((1 << 23) - 1)
	if value.Cmp(min) < 0 || value.Cmp(max) > 0 {
		return 0, fmt.Errorf("int24 overflow: %s", value.String())
	}
	return int32(value.Int64()), nil
}

func addressString(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}
