package oracle

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"
)

// PriceReader yields the latest WAD price and its observation time.
type PriceReader interface {
	Latest(ctx context.Context) (*big.Int, uint64, error)
}

// SampleWriter persists samples.
type SampleWriter interface {
	Store(ctx context.Context, ts uint64, price *big.Int) error
	Prune(ctx context.Context, before uint64) (int64, error)
}

// Feeder polls a reader and appends samples to a writer.
type Feeder struct {
	reader    PriceReader
	writer    SampleWriter
	interval  time.Duration
	retention time.Duration
	logger    *zap.Logger
	last      uint64
}

func NewFeeder(reader PriceReader, writer SampleWriter, interval, retention time.Duration, logger *zap.Logger) *Feeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Feeder{reader: reader, writer: writer, interval: interval, retention: retention, logger: logger}
}

// Poll reads once and stores the sample if it is newer than the previous one.
func (f *Feeder) Poll(ctx context.Context) (bool, error) {
	price, updatedAt, err := f.reader.Latest(ctx)
	if err != nil {
		return false, fmt.Errorf("read feed: %w", err)
	}
	if updatedAt <= f.last {
		return false, nil
	}
	if err := f.writer.Store(ctx, updatedAt, price); err != nil {
		return false, err
	}
	f.last = updatedAt

	if f.retention > 0 {
		retain := uint64(f.retention / time.Second)
		if updatedAt > retain {
			if removed, err := f.writer.Prune(ctx, updatedAt-retain); err != nil {
				f.logger.Warn("prune oracle samples failed", zap.Error(err))
			} else if removed > 0 {
				f.logger.Debug("pruned oracle samples", zap.Int64("removed", removed))
			}
		}
	}
	f.logger.Info("oracle sample stored", zap.Uint64("ts", updatedAt), zap.String("price", price.String()))
	return true, nil
}

// Run polls until ctx is cancelled. Read failures are logged and retried on the next tick.
func (f *Feeder) Run(ctx context.Context) error {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()
	for {
		if _, err := f.Poll(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.logger.Warn("oracle poll failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
