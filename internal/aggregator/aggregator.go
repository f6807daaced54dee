// Package aggregator buffers trades between ticks and computes one window's
// aggregates on each tick call: dominant side, dominant volume, dominant
// side VWAP, window first/last price, and imbalance ratio.
//
// Ported from original_source/src/processing.rs (add_trade, process_buffer's
// aggregation block) and grounded on the teacher's ProcessTrade/updateCandle
// hot path (_examples/yoghaf-market-indikator/internal/engine/engine.go).
package aggregator

import "orderflow-engine/internal/model"

// ImbalanceSignificanceRatio is the default threshold above which a bubble
// is flagged as a significant imbalance.
const ImbalanceSignificanceRatio = 0.15

// Result is one tick's computed aggregate over the buffered trades.
type Result struct {
	Empty bool

	TotalVolume uint64
	BuyVolume   uint64
	SellVolume  uint64
	Delta       int64 // BuyVolume - SellVolume, signed

	DominantSide   model.Side
	DominantVolume uint64
	DominantVWAP   float64

	WindowFirstPrice float64
	WindowLastPrice  float64

	ImbalanceRatio float64
	Significant    bool
}

// Window buffers trades for the window currently in progress.
type Window struct {
	trades     []model.Trade
	firstPrice float64
	lastPrice  float64
	hasPrice   bool

	significanceRatio float64
}

// New creates an empty window. significanceRatio gates Result.Significant,
// per config.Config.ImbalanceSignificanceRatio.
func New(significanceRatio float64) *Window {
	return &Window{significanceRatio: significanceRatio}
}

// Ingest appends a trade to the buffer and tracks the window's first/last
// observed price.
func (w *Window) Ingest(t model.Trade) {
	if !w.hasPrice {
		w.firstPrice = t.Price
		w.hasPrice = true
	}
	w.lastPrice = t.Price
	w.trades = append(w.trades, t)
}

// Tick computes this window's aggregates and resets the buffer. Returns
// Result{Empty: true} if no trades were buffered, per spec.md §4.1 step 2.
func (w *Window) Tick() Result {
	if len(w.trades) == 0 {
		return Result{Empty: true}
	}

	var buyVol, sellVol uint64
	var buyWeighted, sellWeighted float64
	var priceSum float64

	for _, t := range w.trades {
		size := uint64(t.Size)
		priceSum += t.Price
		if t.Side == model.SideBuy {
			buyVol += size
			buyWeighted += t.Price * float64(t.Size)
		} else {
			sellVol += size
			sellWeighted += t.Price * float64(t.Size)
		}
	}

	total := buyVol + sellVol
	delta := int64(buyVol) - int64(sellVol)

	// Tie-break: delta == 0 takes the "else" branch, i.e. dominant = sell.
	// Preserved literally from original_source/src/processing.rs per
	// spec.md §9 open question 1.
	var dominantSide model.Side
	var dominantVolume uint64
	var dominantWeighted float64
	if delta > 0 {
		dominantSide = model.SideBuy
		dominantVolume = buyVol
		dominantWeighted = buyWeighted
	} else {
		dominantSide = model.SideSell
		dominantVolume = sellVol
		dominantWeighted = sellWeighted
	}

	var vwap float64
	if dominantVolume > 0 {
		vwap = dominantWeighted / float64(dominantVolume)
	} else {
		// No trades on the dominant side at all: fall back to the plain
		// arithmetic mean of trade prices, not volume-weighted, per
		// original_source/src/processing.rs and spec.md §4.1 step 4.
		vwap = priceSum / float64(len(w.trades))
	}

	var ratio float64
	if total > 0 {
		ratio = float64(model.AbsInt64(delta)) / float64(total)
	}

	res := Result{
		TotalVolume:      total,
		BuyVolume:        buyVol,
		SellVolume:       sellVol,
		Delta:            delta,
		DominantSide:     dominantSide,
		DominantVolume:   dominantVolume,
		DominantVWAP:     vwap,
		WindowFirstPrice: w.firstPrice,
		WindowLastPrice:  w.lastPrice,
		ImbalanceRatio:   ratio,
		Significant:      ratio > w.significanceRatio,
	}

	w.trades = w.trades[:0]
	w.hasPrice = false
	return res
}

