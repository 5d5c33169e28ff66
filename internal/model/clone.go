package model

import "math/big"

// CopyBig returns an independent copy of v, or nil.
func CopyBig(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

// BigOrZero returns v, or a fresh zero when v is nil.
func BigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

func (p Pool) Clone() Pool {
	out := p
	out.SqrtPriceX96 = CopyBig(p.SqrtPriceX96)
	out.Price = CopyBig(p.Price)
	out.BaseReserve = CopyBig(p.BaseReserve)
	out.QuoteReserve = CopyBig(p.QuoteReserve)
	out.Liquidity = CopyBig(p.Liquidity)
	out.FeesBase = CopyBig(p.FeesBase)
	out.FeesQuote = CopyBig(p.FeesQuote)
	out.DollarLiquidity = CopyBig(p.DollarLiquidity)
	out.MarketCapUSD = CopyBig(p.MarketCapUSD)
	out.GraduationBalance = CopyBig(p.GraduationBalance)
	out.GraduationThreshold = CopyBig(p.GraduationThreshold)
	out.TotalProceeds = CopyBig(p.TotalProceeds)
	out.TotalTokensSold = CopyBig(p.TotalTokensSold)
	return out
}

func (t Token) Clone() Token {
	out := t
	out.TotalSupply = CopyBig(t.TotalSupply)
	out.VolumeUSD = CopyBig(t.VolumeUSD)
	out.MarketCapUSD = CopyBig(t.MarketCapUSD)
	return out
}

func (a Asset) Clone() Asset {
	out := a
	out.LiquidityUSD = CopyBig(a.LiquidityUSD)
	out.MarketCapUSD = CopyBig(a.MarketCapUSD)
	out.DayVolumeUSD = CopyBig(a.DayVolumeUSD)
	return out
}

func (d DailyVolume) Clone() DailyVolume {
	out := d
	out.Checkpoints = make(map[uint64]*big.Int, len(d.Checkpoints))
	for ts, amount := range d.Checkpoints {
		out.Checkpoints[ts] = CopyBig(amount)
	}
	out.VolumeUSD = CopyBig(d.VolumeUSD)
	return out
}

func (b HourBucket) Clone() HourBucket {
	out := b
	out.Open = CopyBig(b.Open)
	out.Close = CopyBig(b.Close)
	out.Low = CopyBig(b.Low)
	out.High = CopyBig(b.High)
	out.Average = CopyBig(b.Average)
	out.VolumeUSD = CopyBig(b.VolumeUSD)
	return out
}

func (p Position) Clone() Position {
	out := p
	out.Liquidity = CopyBig(p.Liquidity)
	out.LastChange = CopyBig(p.LastChange)
	return out
}
