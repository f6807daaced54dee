// Package profile maintains the session-wide volume profile: a mapping from
// quantized ¼-point price buckets to buy/sell/total volume, with point of
// control (POC), value area (VAH/VAL), and key-level membership queries.
//
// Ported from original_source/src/processing.rs (get_poc, get_value_area,
// is_at_key_level) — the tie-breaks there (POC: any; value-area expansion:
// prefer the upper side on a tie) are preserved exactly, per spec.md §9
// open questions 1-2.
package profile

import "math"

const (
	// TickSize is the minimum price increment (quarter-point, NQ-style).
	TickSize = 0.25
	// KeyLevelTolerance is how close a price must be to POC/VAH/VAL to count
	// as "at" that level.
	KeyLevelTolerance = 0.5
	// ValueAreaFraction is the share of session volume the value area covers.
	ValueAreaFraction = 0.70
)

// BucketKey quantizes a price to its ¼-point bucket key: k/4 == price exactly.
func BucketKey(price float64) int64 {
	return int64(math.Round(price * 4.0))
}

// BucketPrice converts a bucket key back to its price.
func BucketPrice(key int64) float64 {
	return float64(key) / 4.0
}

// Level is one ¼-point bucket's accumulated volume.
type Level struct {
	BuyVolume   uint64
	SellVolume  uint64
	TotalVolume uint64
}

// Profile is the session volume profile. Construct with New; the zero
// value has no bucket map and Update panics on it.
type Profile struct {
	levels map[int64]*Level
}

// New creates an empty profile.
func New() *Profile {
	return &Profile{levels: make(map[int64]*Level)}
}

// Update adds size to the bucket at price, on the given side.
func (p *Profile) Update(price float64, size uint64, isBuy bool) {
	key := BucketKey(price)
	lvl, ok := p.levels[key]
	if !ok {
		lvl = &Level{}
		p.levels[key] = lvl
	}
	if isBuy {
		lvl.BuyVolume += size
	} else {
		lvl.SellVolume += size
	}
	lvl.TotalVolume += size
}

// Levels returns the bucket keys present in the profile, in no particular
// order — callers that need price order should sort.
func (p *Profile) Levels() map[int64]Level {
	out := make(map[int64]Level, len(p.levels))
	for k, v := range p.levels {
		out[k] = *v
	}
	return out
}

// Empty reports whether the profile has seen no trades.
func (p *Profile) Empty() bool {
	return len(p.levels) == 0
}

// POC returns the price of the bucket with the largest total volume. Ties
// resolve to whichever of the tied buckets the map iteration visits first,
// so which one wins is arbitrary.
func (p *Profile) POC() (float64, bool) {
	key, ok := p.pocKey()
	if !ok {
		return 0, false
	}
	return BucketPrice(key), true
}

func (p *Profile) pocKey() (int64, bool) {
	var bestKey int64
	var bestVol uint64
	found := false
	for k, lvl := range p.levels {
		if !found || lvl.TotalVolume > bestVol {
			bestKey = k
			bestVol = lvl.TotalVolume
			found = true
		}
	}
	return bestKey, found
}

// ValueArea returns (VAH, VAL) such that the buckets from VAL to VAH
// inclusive hold at least ValueAreaFraction of session volume (or all
// non-zero buckets if the profile holds less than that fraction in total).
// Expansion starts at POC and at each step grows toward whichever neighbor
// holds more volume, preferring the upper side on a tie.
func (p *Profile) ValueArea() (vah, val float64, ok bool) {
	if p.Empty() {
		return 0, 0, false
	}

	pocKey, found := p.pocKey()
	if !found {
		return 0, 0, false
	}

	var totalVol uint64
	for _, lvl := range p.levels {
		totalVol += lvl.TotalVolume
	}
	targetVol := uint64(float64(totalVol) * ValueAreaFraction)

	includedVol := p.levels[pocKey].TotalVolume
	highKey, lowKey := pocKey, pocKey

	for includedVol < targetVol {
		aboveKey := highKey + 1
		belowKey := lowKey - 1

		var aboveVol, belowVol uint64
		if lvl, ok := p.levels[aboveKey]; ok {
			aboveVol = lvl.TotalVolume
		}
		if lvl, ok := p.levels[belowKey]; ok {
			belowVol = lvl.TotalVolume
		}

		if aboveVol == 0 && belowVol == 0 {
			break
		}

		if aboveVol >= belowVol {
			highKey = aboveKey
			includedVol += aboveVol
		} else {
			lowKey = belowKey
			includedVol += belowVol
		}
	}

	return BucketPrice(highKey), BucketPrice(lowKey), true
}

// KeyLevels reports whether price is within KeyLevelTolerance of POC, VAH,
// and VAL respectively. All false when the profile is empty.
func (p *Profile) KeyLevels(price float64) (atPOC, atVAH, atVAL bool) {
	poc, havePOC := p.POC()
	vah, val, haveVA := p.ValueArea()

	if havePOC {
		atPOC = math.Abs(price-poc) <= KeyLevelTolerance
	}
	if haveVA {
		atVAH = math.Abs(price-vah) <= KeyLevelTolerance
		atVAL = math.Abs(price-val) <= KeyLevelTolerance
	}
	return
}
