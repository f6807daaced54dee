// Package confluence watches a rolling 5-second window of recently-emitted
// signals and, when at least two distinct kinds agree on direction, emits a
// confluence event.
//
// Ported from original_source/src/processing.rs (record_signal's
// recent_signals bookkeeping and detect_confluence).
package confluence

import (
	"sort"

	"orderflow-engine/internal/model"
)

const (
	// DefaultWindowMs is how long a signal stays eligible for confluence
	// matching, absent an overriding config.Config.ConfluenceWindowMs.
	DefaultWindowMs = 5_000
	// DefaultCooldownMs is the minimum gap between two emitted confluence
	// events, absent an overriding config.Config.ConfluenceCooldownMs.
	DefaultCooldownMs = 10_000
	// MinAgreeing is the minimum number of signal kinds that must agree on
	// direction for a confluence to fire. Not config-driven: spec.md §4.6
	// fixes it as a constant.
	MinAgreeing = 2
)

type occurrence struct {
	tsMs      int64
	kind      model.SignalKind
	direction model.Direction
}

// Tracker holds the rolling window of recent signal occurrences plus
// cooldown state.
type Tracker struct {
	recent      []occurrence
	lastEmitMs  int64
	haveEmitted bool

	windowMs   int64
	cooldownMs int64
}

// New creates an empty tracker with the given window and cooldown
// (config.Config.ConfluenceWindowMs/ConfluenceCooldownMs).
func New(windowMs, cooldownMs int64) *Tracker {
	return &Tracker{windowMs: windowMs, cooldownMs: cooldownMs}
}

// Record appends a newly-emitted signal to the rolling window and evicts
// anything older than the window. Must be called for every signal the other
// detectors emit; confluence events this package produces are not recorded
// (confluence-of-confluence is not meaningful).
func (tr *Tracker) Record(nowMs int64, kind model.SignalKind, direction model.Direction) {
	tr.recent = append(tr.recent, occurrence{tsMs: nowMs, kind: kind, direction: direction})
	tr.evict(nowMs)
}

func (tr *Tracker) evict(nowMs int64) {
	cutoff := nowMs - tr.windowMs
	kept := tr.recent[:0]
	for _, o := range tr.recent {
		if o.tsMs >= cutoff {
			kept = append(kept, o)
		}
	}
	tr.recent = kept
}

// Detect checks whether the current rolling window qualifies for a
// confluence event. On a qualifying emission, the rolling window is
// cleared (per the source's "avoid re-triggering" behavior).
func Detect(tr *Tracker, nowMs int64, price float64) (model.ConfluenceEvent, bool) {
	if tr.haveEmitted && nowMs-tr.lastEmitMs < tr.cooldownMs {
		return model.ConfluenceEvent{}, false
	}
	if len(tr.recent) < 2 {
		return model.ConfluenceEvent{}, false
	}

	// Latest occurrence per distinct kind.
	latest := make(map[model.SignalKind]occurrence)
	for _, o := range tr.recent {
		cur, ok := latest[o.kind]
		if !ok || o.tsMs >= cur.tsMs {
			latest[o.kind] = o
		}
	}
	if len(latest) < 2 {
		return model.ConfluenceEvent{}, false
	}

	var bullish, bearish int
	kinds := make([]model.SignalKind, 0, len(latest))
	for kind, o := range latest {
		kinds = append(kinds, kind)
		if o.direction == model.DirectionBullish {
			bullish++
		} else {
			bearish++
		}
	}
	// Map iteration order is random; sort by occurrence time so the
	// reported Signals order is deterministic and reproducible across runs
	// of the same input.
	sort.Slice(kinds, func(i, j int) bool {
		if latest[kinds[i]].tsMs != latest[kinds[j]].tsMs {
			return latest[kinds[i]].tsMs < latest[kinds[j]].tsMs
		}
		return kinds[i] < kinds[j]
	})

	var direction model.Direction
	switch {
	case bullish >= MinAgreeing:
		direction = model.DirectionBullish
	case bearish >= MinAgreeing:
		direction = model.DirectionBearish
	default:
		return model.ConfluenceEvent{}, false
	}

	event := model.ConfluenceEvent{
		EventTimeMs: nowMs,
		Price:       price,
		Direction:   direction,
		Score:       len(kinds),
		Signals:     kinds,
	}

	tr.lastEmitMs = nowMs
	tr.haveEmitted = true
	tr.recent = tr.recent[:0]

	return event, true
}
