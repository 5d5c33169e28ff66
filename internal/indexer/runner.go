package indexer

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"poolScope/internal/dex"
	"poolScope/internal/metrics"
	"poolScope/internal/model"
	"poolScope/internal/schedule"
	"poolScope/internal/storage"
)

// RunConfig holds runtime settings for the indexer.
type RunConfig struct {
	FromBlock uint64
	ToBlock   uint64
	// Addresses restricts the log filter. Empty watches every emitter of the decoded topics.
	Addresses         []common.Address
	BatchSize         uint64
	CheckpointPath    string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
}

// LogSource is the chain access the runner needs. *chain.Client implements it.
type LogSource interface {
	GetChainID(ctx context.Context) (*big.Int, error)
	LatestBlockNumber(ctx context.Context) (uint64, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error)
}

// EventDecoder turns archived logs into events. *dex.Registry implements it.
type EventDecoder interface {
	Topics() []common.Hash
	Decode(log model.LogRecord) (model.Event, error)
}

// Handler applies one decoded event. *engine.Engine implements it.
type Handler interface {
	Handle(ctx context.Context, event model.Event) error
}

// Runner fetches logs in (block, log index) order, decodes them and hands each event to
// the engine, one at a time.
type Runner struct {
	cfg        RunConfig
	chain      LogSource
	decoder    EventDecoder
	handler    Handler
	sink       storage.LogSink
	clock      *schedule.EventClock
	metrics    *metrics.Metrics
	logger     *zap.Logger
	checkpoint *CheckpointStore
}

// Option configures optional Runner collaborators.
type Option func(*Runner)

// WithLogSink archives raw logs and decode failures.
func WithLogSink(sink storage.LogSink) Option { return func(r *Runner) { r.sink = sink } }

// WithEventClock advances clock to the timestamp of every processed log.
func WithEventClock(clock *schedule.EventClock) Option { return func(r *Runner) { r.clock = clock } }

// WithMetrics records decode errors and the last processed block.
func WithMetrics(m *metrics.Metrics) Option { return func(r *Runner) { r.metrics = m } }

// NewRunner builds a Runner with its dependencies.
func NewRunner(cfg RunConfig, source LogSource, decoder EventDecoder, handler Handler, logger *zap.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runner{
		cfg:        cfg,
		chain:      source,
		decoder:    decoder,
		handler:    handler,
		logger:     logger,
		checkpoint: NewCheckpointStore(cfg.CheckpointPath, cfg.CheckpointEnabled),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the indexing loop.
func (r *Runner) Run(ctx context.Context) error {
	if r.chain == nil {
		return fmt.Errorf("chain client is nil")
	}
	if r.decoder == nil || r.handler == nil {
		return fmt.Errorf("decoder and handler are required")
	}
	if r.cfg.BatchSize == 0 {
		return fmt.Errorf("batch size must be greater than zero")
	}

	chainID, err := r.chain.GetChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}
	if !chainID.IsUint64() {
		return fmt.Errorf("chain id does not fit in uint64: %s", chainID)
	}
	chainIDValue := chainID.Uint64()

	from := r.cfg.FromBlock
	to := r.cfg.ToBlock
	if to == 0 {
		latest, err := r.chain.LatestBlockNumber(ctx)
		if err != nil {
			return fmt.Errorf("get latest block: %w", err)
		}
		to = latest
	}

	cp, ok, err := r.checkpoint.Load()
	if err != nil {
		return err
	}
	if ok && cp.ChainID != 0 && cp.ChainID != chainIDValue {
		return fmt.Errorf("checkpoint belongs to chain %d, rpc serves chain %d", cp.ChainID, chainIDValue)
	}
	if ok && cp.LastProcessedBlock >= from {
		from = cp.LastProcessedBlock + 1
		r.logger.Info("resume from checkpoint", zap.Uint64("last_processed", cp.LastProcessedBlock), zap.Uint64("from", from))
	}

	if from > to {
		r.logger.Info("nothing to sync", zap.Uint64("from", from), zap.Uint64("to", to))
		return nil
	}

	ranges, err := SplitRange(from, to, r.cfg.BatchSize)
	if err != nil {
		return err
	}

	topics := r.decoder.Topics()
	for _, blockRange := range ranges {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := r.processRange(ctx, chainIDValue, blockRange, topics); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) processRange(ctx context.Context, chainID uint64, blockRange BlockRange, topics []common.Hash) error {
	r.logger.Info("fetch logs", zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))

	logs, err := r.filterLogsWithRetry(ctx, blockRange.From, blockRange.To, topics)
	if err != nil {
		return fmt.Errorf("filter logs: %w", err)
	}
	sortLogs(logs)

	ingestedAt := time.Now().UTC()
	seen := make(map[string]struct{}, len(logs))
	records := make([]model.LogRecord, 0, len(logs))
	for _, log := range logs {
		if log.Removed || isDuplicate(seen, log) {
			continue
		}
		ts, err := r.blockTimestampWithRetry(ctx, log.BlockNumber)
		if err != nil {
			return fmt.Errorf("block timestamp %d: %w", log.BlockNumber, err)
		}
		records = append(records, buildLogRecord(chainID, log, ts, ingestedAt))
	}

	if r.sink != nil {
		if err := r.sink.PutLogBatch(records); err != nil {
			return fmt.Errorf("store logs: %w", err)
		}
	}

	var (
		decodeErrors []model.DecodeError
		handled      int
	)
	for _, record := range records {
		event, err := r.decoder.Decode(record)
		if err != nil {
			if errors.Is(err, dex.ErrSkip) || errors.Is(err, dex.ErrUnknownTopic) {
				continue
			}
			r.metrics.DecodeError()
			r.logger.Warn("decode failed",
				zap.Uint64("block_number", record.BlockNumber),
				zap.Uint64("log_index", record.LogIndex),
				zap.String("tx_hash", record.TxHash),
				zap.Error(err),
			)
			decodeErrors = append(decodeErrors, decodeError(record, r.decoderName(record), err))
			continue
		}
		if err := r.handleWithRetry(ctx, event); err != nil {
			return err
		}
		if r.clock != nil {
			r.clock.Advance(record.Timestamp)
		}
		handled++
	}

	if r.sink != nil && len(decodeErrors) > 0 {
		if err := r.sink.PutDecodeErrors(decodeErrors); err != nil {
			return fmt.Errorf("store decode errors: %w", err)
		}
	}

	if err := r.checkpoint.Save(chainID, blockRange.To); err != nil {
		return err
	}
	r.metrics.Block(blockRange.To)

	r.logger.Info("batch complete",
		zap.Int("logs", len(records)),
		zap.Int("events", handled),
		zap.Int("decode_errors", len(decodeErrors)),
		zap.Uint64("from", blockRange.From),
		zap.Uint64("to", blockRange.To),
	)
	return nil
}

// decoderName reports which decoder claimed the log when the decoder is a registry.
func (r *Runner) decoderName(record model.LogRecord) string {
	registry, ok := r.decoder.(interface {
		Lookup(topic0 string) (dex.Decoder, bool)
	})
	if !ok || len(record.Topics) == 0 {
		return ""
	}
	if decoder, found := registry.Lookup(record.Topics[0]); found {
		return decoder.Name()
	}
	return ""
}

// handleWithRetry redelivers the event on failure. Handlers are idempotent per cursor, so
// writes that landed before the failure are not applied twice.
func (r *Runner) handleWithRetry(ctx context.Context, event model.Event) error {
	meta := event.Meta()
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		err := r.handler.Handle(ctx, event)
		if err != nil {
			r.logger.Warn("handle event failed",
				zap.String("event", event.Name()),
				zap.Uint64("block_number", meta.BlockNumber),
				zap.Uint64("log_index", meta.LogIndex),
				zap.Error(err),
			)
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("process %s at %d/%d: %w", event.Name(), meta.BlockNumber, meta.LogIndex, err)
	}
	return nil
}

func (r *Runner) filterLogsWithRetry(ctx context.Context, fromBlock, toBlock uint64, topics []common.Hash) ([]types.Log, error) {
	var logs []types.Log
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		logs, err = r.chain.FilterLogs(ctx, fromBlock, toBlock, r.cfg.Addresses, topics)
		if err != nil {
			r.logger.Warn("filter logs failed", zap.Error(err), zap.Uint64("from", fromBlock), zap.Uint64("to", toBlock))
		}
		return err
	})
	return logs, err
}

func (r *Runner) blockTimestampWithRetry(ctx context.Context, blockNumber uint64) (uint64, error) {
	var ts uint64
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		ts, err = r.chain.BlockTimestamp(ctx, blockNumber)
		if err != nil {
			r.logger.Warn("block timestamp fetch failed", zap.Error(err), zap.Uint64("block_number", blockNumber))
		}
		return err
	})
	return ts, err
}

// sortLogs orders logs by (block, log index). Providers usually do, but it is not guaranteed.
func sortLogs(logs []types.Log) {
	sort.SliceStable(logs, func(i, j int) bool {
		if logs[i].BlockNumber != logs[j].BlockNumber {
			return logs[i].BlockNumber < logs[j].BlockNumber
		}
		return logs[i].Index < logs[j].Index
	})
}

func isDuplicate(seen map[string]struct{}, log types.Log) bool {
	id := fmt.Sprintf("%d:%s:%d", log.BlockNumber, log.TxHash.Hex(), log.Index)
	if _, ok := seen[id]; ok {
		return true
	}
	seen[id] = struct{}{}
	return false
}
