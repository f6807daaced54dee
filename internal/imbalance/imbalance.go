// Package imbalance detects stacked one-point imbalances: a run of
// consecutive 1-point price buckets all dominated by the same side.
//
// Ported from original_source/src/processing.rs (detect_stacked_imbalances),
// sorting one-point-aggregated buckets by price and scanning for the
// longest same-side streak, gated by a minimum bucket volume and a minimum
// dominance ratio.
package imbalance

import (
	"math"
	"sort"

	"orderflow-engine/internal/model"
	"orderflow-engine/internal/profile"
)

const (
	// CooldownMs is not config-driven: spec.md §4.7 fixes it as a constant.
	CooldownMs = 30_000

	// DefaultMinRatio, DefaultMinLevelVolume, DefaultMinStreakToEmit are the
	// detector's gate values absent an overriding config.Config's
	// StackedMinRatio/StackedMinVolume/StackedMinRun.
	DefaultMinRatio         = 0.70
	DefaultMinLevelVolume   = 100
	DefaultMinStreakToEmit  = 4
)

type bucket struct {
	priceKey int64 // floor(price), one-point bucket
	buyVol   uint64
	sellVol  uint64
}

type streakLevel struct {
	priceKey int64
	delta    int64
}

// Detector tracks cooldown and the side of the last emission, so the same
// side is never re-emitted even once the cooldown has elapsed.
type Detector struct {
	lastEmitMs   int64
	haveEmitted  bool
	lastSide     model.Side
	haveLastSide bool

	minRatio        float64
	minLevelVolume  uint64
	minStreakToEmit int
}

// New creates a detector with no prior emission, gated by the given
// dominance ratio, minimum bucket volume, and minimum streak length
// (config.Config.StackedMinRatio/StackedMinVolume/StackedMinRun). A
// streak only starts being tracked once it reaches minStreakToEmit-1
// levels, one short of qualifying to emit.
func New(minRatio float64, minLevelVolume uint64, minStreakToEmit int) *Detector {
	return &Detector{
		minRatio:        minRatio,
		minLevelVolume:  minLevelVolume,
		minStreakToEmit: minStreakToEmit,
	}
}

// Detect aggregates the profile's ¼-point buckets into 1-point buckets,
// finds the longest same-side dominance streak, and reports it if it
// qualifies, passes cooldown, and differs from the last emitted side.
func Detect(d *Detector, levels map[int64]profile.Level, nowMs int64) (model.StackedImbalance, bool) {
	if nowMs-d.lastEmitMs < CooldownMs && d.haveEmitted {
		return model.StackedImbalance{}, false
	}
	if len(levels) == 0 {
		return model.StackedImbalance{}, false
	}

	points := make(map[int64]*bucket)
	for key, lvl := range levels {
		price := profile.BucketPrice(key)
		pointKey := int64(math.Floor(price))
		b, ok := points[pointKey]
		if !ok {
			b = &bucket{priceKey: pointKey}
			points[pointKey] = b
		}
		b.buyVol += lvl.BuyVolume
		b.sellVol += lvl.SellVolume
	}

	sorted := make([]*bucket, 0, len(points))
	for _, b := range points {
		sorted = append(sorted, b)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].priceKey < sorted[j].priceKey })

	minStreakToTrack := d.minStreakToEmit - 1

	var bestStreak, current []streakLevel
	var bestSide, currentSide model.Side
	var haveBestSide, haveCurrentSide bool

	flush := func() {
		if len(current) > len(bestStreak) && len(current) >= minStreakToTrack {
			bestStreak = append([]streakLevel(nil), current...)
			bestSide = currentSide
			haveBestSide = haveCurrentSide
		}
	}

	for _, b := range sorted {
		total := b.buyVol + b.sellVol
		if total < d.minLevelVolume {
			flush()
			current = nil
			haveCurrentSide = false
			continue
		}

		buyRatio := float64(b.buyVol) / float64(total)
		var side model.Side
		var haveSide bool
		switch {
		case buyRatio >= d.minRatio:
			side, haveSide = model.SideBuy, true
		case buyRatio <= 1.0-d.minRatio:
			side, haveSide = model.SideSell, true
		}

		delta := int64(b.buyVol) - int64(b.sellVol)

		switch {
		case haveSide && haveCurrentSide && side == currentSide &&
			b.priceKey == current[len(current)-1].priceKey+1:
			current = append(current, streakLevel{priceKey: b.priceKey, delta: delta})
		case haveSide:
			flush()
			currentSide = side
			haveCurrentSide = true
			current = []streakLevel{{priceKey: b.priceKey, delta: delta}}
		default:
			flush()
			current = nil
			haveCurrentSide = false
		}
	}
	flush()

	if len(bestStreak) < d.minStreakToEmit || !haveBestSide {
		return model.StackedImbalance{}, false
	}

	if d.haveLastSide && d.lastSide == bestSide {
		return model.StackedImbalance{}, false
	}

	var totalImbalance int64
	for _, l := range bestStreak {
		totalImbalance += model.AbsInt64(l.delta)
	}

	result := model.StackedImbalance{
		EventTimeMs:    nowMs,
		Side:           bestSide,
		LevelCount:     uint32(len(bestStreak)),
		PriceLow:       float64(bestStreak[0].priceKey),
		PriceHigh:      float64(bestStreak[len(bestStreak)-1].priceKey) + 1.0,
		TotalImbalance: totalImbalance,
	}

	d.lastEmitMs = nowMs
	d.haveEmitted = true
	d.lastSide = bestSide
	d.haveLastSide = true

	return result, true
}

