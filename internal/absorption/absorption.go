// Package absorption implements the absorption detector and its zone
// registry: a dynamic-threshold rule applied per window, a per-price-bucket
// zone that accumulates events and a monotonically non-decreasing peak
// strength, a strength-gated emission rule, and strength-tiered eviction.
//
// Ported from original_source/src/processing.rs
// (AbsorptionZoneInternal, calculate_strength_with_num, cleanup_old_zones,
// and the absorption block of process_buffer), following the "read-only
// context, one mutable update, emission from plain values" shape spec.md §9
// calls for in place of the source's copy-before-reentry workaround.
package absorption

import (
	"orderflow-engine/internal/model"
	"orderflow-engine/internal/profile"
)

const (
	// DefaultPriceThreshold is the maximum adverse price move (in points)
	// tolerated for a window to still count as absorption, absent an
	// overriding config.Config.AbsorptionPriceThreshold.
	DefaultPriceThreshold = 0.25

	// MinDeltaFloor is the absolute floor for the dynamic min-delta threshold.
	// Not config-driven: spec.md §4.3 fixes this as a constant, not a tunable.
	MinDeltaFloor = 20

	// MinDeltaVolFraction scales the 30s rolling average volume into the
	// dynamic min-delta threshold. Not config-driven, for the same reason.
	MinDeltaVolFraction = 0.4

	cvdTrendThreshold = 100

	// DefaultTierShortMs, DefaultTierMediumMs, DefaultTierLongMs are the
	// zone-retention tiers absent an overriding
	// config.Config.ZoneRetention{Short,Medium,Long}Ms.
	DefaultTierShortMs  = 5 * 60 * 1000
	DefaultTierMediumMs = 15 * 60 * 1000
	DefaultTierLongMs   = 30 * 60 * 1000
)

// Zone is the internal, mutable per-bucket absorption record.
type Zone struct {
	Type          model.AbsorptionType
	TotalAbsorbed int64
	EventCount    uint32
	FirstSeenMs   int64
	LastSeenMs    int64
	PeakStrength  model.Strength
}

// Registry owns all active absorption zones, keyed by ¼-point bucket.
type Registry struct {
	zones map[int64]*Zone

	priceThreshold float64
	tierShortMs    int64
	tierMediumMs   int64
	tierLongMs     int64
}

// NewRegistry creates an empty registry, with the given gate and eviction
// parameters (config.Config.AbsorptionPriceThreshold and
// ZoneRetention{Short,Medium,Long}Ms).
func NewRegistry(priceThreshold float64, tierShortMs, tierMediumMs, tierLongMs int64) *Registry {
	return &Registry{
		zones:          make(map[int64]*Zone),
		priceThreshold: priceThreshold,
		tierShortMs:    tierShortMs,
		tierMediumMs:   tierMediumMs,
		tierLongMs:     tierLongMs,
	}
}

// Context is the read-only information the detector needs, computed once
// per tick before any zone mutation.
type Context struct {
	AvgVol30   float64
	CVDTrend   int64
	AtPOC      bool
	AtVAH      bool
	AtVAL      bool
}

// Strength computes the strength ordinal from event count plus context
// bonuses, per spec.md §4.3. base: 1->0, 2->1, 3->2, >=4->3; +1 at key
// level; +1 against trend; clamped to {0..3}.
func Strength(eventCount uint32, atKeyLevel, againstTrend bool) model.Strength {
	base := eventCount - 1
	if base > 3 {
		base = 3
	}
	bonus := uint32(0)
	if atKeyLevel {
		bonus++
	}
	if againstTrend {
		bonus++
	}
	total := base + bonus
	if total > 3 {
		total = 3
	}
	return model.Strength(total)
}

// EvictionTierMs returns the retention window, in ms, for a zone at the
// given peak strength, given the three tier durations.
func EvictionTierMs(peak model.Strength, tierShortMs, tierMediumMs, tierLongMs int64) int64 {
	switch {
	case peak <= model.StrengthMedium:
		return tierShortMs
	case peak == model.StrengthStrong:
		return tierMediumMs
	default:
		return tierLongMs
	}
}

// Evict removes zones whose last-seen time has aged past their tier.
func (r *Registry) Evict(nowMs int64) {
	for key, z := range r.zones {
		tier := EvictionTierMs(z.PeakStrength, r.tierShortMs, r.tierMediumMs, r.tierLongMs)
		if nowMs-z.LastSeenMs > tier {
			delete(r.zones, key)
		}
	}
}

// Detection is what Detect reports for a single tick.
type Detection struct {
	Triggered bool

	Event       model.AbsorptionEvent
	ShouldEmit  bool
	BucketKey   int64
}

// Detect applies the absorption trigger for one tick's aggregator result
// and, if it fires, updates the zone registry and reports whether the
// emission gate opens.
func Detect(
	r *Registry,
	nowMs int64,
	delta int64,
	windowFirstPrice, windowLastPrice, dominantVWAP float64,
	ctx Context,
) Detection {
	priceChange := windowLastPrice - windowFirstPrice
	absDelta := model.AbsInt64(delta)

	// Rust truncates the scaled average to i64 before taking the max with
	// the floor, per original_source/src/processing.rs; done here in int64
	// rather than float so the boundary comparison can't diverge by a
	// fraction.
	minDelta := int64(MinDeltaVolFraction * ctx.AvgVol30)
	if minDelta < MinDeltaFloor {
		minDelta = MinDeltaFloor
	}

	buyingAbsorbed := delta > 0 && priceChange <= r.priceThreshold
	sellingAbsorbed := delta < 0 && priceChange >= -r.priceThreshold

	if absDelta < minDelta || (!buyingAbsorbed && !sellingAbsorbed) {
		return Detection{}
	}

	absorptionType := model.AbsorptionSelling
	if buyingAbsorbed {
		absorptionType = model.AbsorptionBuying
	}

	bucketKey := profile.BucketKey(dominantVWAP)
	atKeyLevel := ctx.AtPOC || ctx.AtVAH || ctx.AtVAL
	againstTrend := (buyingAbsorbed && ctx.CVDTrend > cvdTrendThreshold) ||
		(sellingAbsorbed && ctx.CVDTrend < -cvdTrendThreshold)

	zone, ok := r.zones[bucketKey]
	if !ok {
		zone = &Zone{FirstSeenMs: nowMs}
		r.zones[bucketKey] = zone
	}
	zone.TotalAbsorbed += absDelta
	zone.EventCount++
	zone.LastSeenMs = nowMs
	zone.Type = absorptionType

	strength := Strength(zone.EventCount, atKeyLevel, againstTrend)
	if strength > zone.PeakStrength {
		zone.PeakStrength = strength
	}

	shouldEmit := strength != model.StrengthWeak || (zone.EventCount == 1 && atKeyLevel)

	event := model.AbsorptionEvent{
		EventTimeMs:   nowMs,
		Price:         dominantVWAP,
		Type:          absorptionType,
		WindowDelta:   delta,
		PriceChange:   priceChange,
		Strength:      strength,
		EventCount:    zone.EventCount,
		TotalAbsorbed: zone.TotalAbsorbed,
		AtKeyLevel:    atKeyLevel,
		AgainstTrend:  againstTrend,
	}

	return Detection{Triggered: true, Event: event, ShouldEmit: shouldEmit, BucketKey: bucketKey}
}

// ActiveZones returns the public snapshot of every zone with at least 2
// events, recomputing key-level/against-trend flags against the profile's
// current state, per spec.md §4.3 "zone-set emission".
func (r *Registry) ActiveZones(vp *profile.Profile, cvdTrend int64) []model.AbsorptionZone {
	var out []model.AbsorptionZone
	for key, z := range r.zones {
		if z.EventCount < 2 {
			continue
		}
		price := profile.BucketPrice(key)
		atPOC, atVAH, atVAL := vp.KeyLevels(price)
		againstTrend := (z.Type == model.AbsorptionBuying && cvdTrend > cvdTrendThreshold) ||
			(z.Type == model.AbsorptionSelling && cvdTrend < -cvdTrendThreshold)

		out = append(out, model.AbsorptionZone{
			Price:         price,
			Type:          z.Type,
			TotalAbsorbed: z.TotalAbsorbed,
			EventCount:    z.EventCount,
			FirstSeenMs:   z.FirstSeenMs,
			LastSeenMs:    z.LastSeenMs,
			PeakStrength:  z.PeakStrength,
			AtPOC:         atPOC,
			AtVAH:         atVAH,
			AtVAL:         atVAL,
			AgainstTrend:  againstTrend,
		})
	}
	return out
}

