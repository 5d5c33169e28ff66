package engine

import (
	"context"
	"fmt"
	"math/big"

	"go.uber.org/zap"

	"poolScope/internal/cache"
	"poolScope/internal/model"
)

// handleTransfer maintains holder counts and supply of launched assets.
// Zero-address counterparties are mints and burns.
func (e *Engine) handleTransfer(ctx context.Context, ev model.Transfer) error {
	key := model.NewTokenKey(ev.ChainID, ev.Token)
	class, err := e.classes.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("classify token %s: %w", key, err)
	}
	if class != cache.ClassAsset {
		return nil
	}
	token, err := e.store.FindToken(ctx, key)
	if err != nil {
		return fmt.Errorf("find token %s: %w", key, err)
	}
	if token == nil {
		return nil
	}
	cursor := ev.Cursor()
	if !cursor.After(token.Cursor) {
		return nil
	}
	value := model.BigOrZero(ev.Value)
	update := model.TokenUpdate{Cursor: &cursor}

	mint := model.IsZeroAddress(ev.From)
	burn := model.IsZeroAddress(ev.To)
	if mint || burn {
		supply := new(big.Int).Set(model.BigOrZero(token.TotalSupply))
		if mint {
			supply.Add(supply, value)
		}
		if burn {
			supply.Sub(supply, value)
			if supply.Sign() < 0 {
				supply.SetInt64(0)
			}
		}
		update.TotalSupply = supply
	}

	if value.Sign() > 0 && ev.From != ev.To {
		holders, err := e.holderDelta(ctx, ev, mint, burn)
		if err != nil {
			return err
		}
		if holders != 0 {
			count := token.HolderCount + holders
			if count < 0 {
				e.logger.Warn("holder count below zero", zap.String("token", key.Address), zap.Int64("holders", count))
				count = 0
			}
			update.HolderCount = &count
		}
	}

	if _, err := e.store.UpdateToken(ctx, key, update); err != nil {
		return fmt.Errorf("update token %s: %w", key, err)
	}
	return nil
}

// holderDelta is +1 when the recipient went from zero to a balance and -1 when the sender
// was emptied. Balances come from the event when present and from the chain otherwise.
func (e *Engine) holderDelta(ctx context.Context, ev model.Transfer, mint, burn bool) (int64, error) {
	fromBalance, toBalance := ev.FromBalance, ev.ToBalance
	var missing []string
	if !mint && fromBalance == nil {
		missing = append(missing, ev.From)
	}
	if !burn && toBalance == nil {
		missing = append(missing, ev.To)
	}
	if len(missing) > 0 {
		balances, err := e.chain.Balances(ctx, blockNumber(ev.EventMeta), ev.Token, missing)
		if err != nil {
			return 0, err
		}
		if fromBalance == nil {
			fromBalance = balances[ev.From]
		}
		if toBalance == nil {
			toBalance = balances[ev.To]
		}
	}

	value := model.BigOrZero(ev.Value)
	var delta int64
	if !burn && toBalance != nil && toBalance.Cmp(value) == 0 {
		delta++
	}
	if !mint && fromBalance != nil && fromBalance.Sign() == 0 {
		delta--
	}
	return delta, nil
}
