// Package outcome tracks every emitted signal's 1-minute and 5-minute price
// outcome and recomputes session-wide stats as a pure function of the
// retained records.
//
// Ported from original_source/src/processing.rs (signal_history,
// update_signal_outcomes, calculate_signal_stats, broadcast_stats).
package outcome

import "orderflow-engine/internal/model"

const (
	// DefaultOneMinuteMs, DefaultFiveMinutesMs, DefaultStatsCadenceMs are
	// the outcome horizons and broadcast cadence absent an overriding
	// config.Config.Outcome1mMs/Outcome5mMs/StatsCadenceMs.
	DefaultOneMinuteMs   = 60_000
	DefaultFiveMinutesMs = 300_000
	DefaultStatsCadenceMs = 5_000

	// retentionMs and minMeaningfulMove are not config-driven: spec.md §4.10
	// fixes both as constants.
	retentionMs       = 30 * 60 * 1000
	minMeaningfulMove = 2.0
)

// Tracker owns the retained signal history and assigns sequence ids.
type Tracker struct {
	records []model.SignalRecord
	nextSeq uint64

	sessionStartMs int64
	oneMinuteMs    int64
	fiveMinutesMs  int64
	statsCadenceMs int64
}

// New creates an empty tracker with the given 1-minute/5-minute outcome
// horizons and stats broadcast cadence
// (config.Config.Outcome1mMs/Outcome5mMs/StatsCadenceMs). sessionStartMs is
// stamped onto every record's SeqID pairing so a SeqID is only ever unique
// within the session that produced it; a fresh process always starts a
// fresh session, so sessionStartMs plus the per-session SeqID counter never
// collides with records a prior process run already persisted.
func New(oneMinuteMs, fiveMinutesMs, statsCadenceMs, sessionStartMs int64) *Tracker {
	return &Tracker{
		sessionStartMs: sessionStartMs,
		oneMinuteMs:    oneMinuteMs,
		fiveMinutesMs:  fiveMinutesMs,
		statsCadenceMs: statsCadenceMs,
	}
}

// StatsCadenceMs reports how often SessionStats should be recomputed and
// broadcast.
func (tr *Tracker) StatsCadenceMs() int64 { return tr.statsCadenceMs }

// Record appends a newly-emitted signal for outcome tracking and returns
// the record (with its assigned SeqID) so callers can persist it.
func (tr *Tracker) Record(nowMs int64, price float64, kind model.SignalKind, direction model.Direction) model.SignalRecord {
	tr.nextSeq++
	rec := model.SignalRecord{
		SessionStartMs: tr.sessionStartMs,
		SeqID:          tr.nextSeq,
		EventTimeMs:    nowMs,
		Price:          price,
		Kind:           kind,
		Direction:      direction,
		Outcome:        model.OutcomePending,
	}
	tr.records = append(tr.records, rec)
	return rec
}

// Update fills in 1m/5m prices for records that have aged past those
// thresholds, classifies the 5m outcome, evicts records older than 30
// minutes, and returns the records that just transitioned during this call
// (gained a 1m price and/or a 5m price plus outcome) so callers can persist
// exactly those changes.
func (tr *Tracker) Update(nowMs int64, currentPrice float64) []model.SignalRecord {
	var changed []model.SignalRecord

	for i := range tr.records {
		rec := &tr.records[i]
		transitioned := false

		if rec.PriceAfter1m == nil && nowMs-rec.EventTimeMs >= tr.oneMinuteMs {
			p := currentPrice
			rec.PriceAfter1m = &p
			transitioned = true
		}

		if rec.PriceAfter5m == nil && nowMs-rec.EventTimeMs >= tr.fiveMinutesMs {
			p := currentPrice
			rec.PriceAfter5m = &p
			transitioned = true

			move := currentPrice - rec.Price
			if rec.Direction == model.DirectionBullish {
				switch {
				case move >= minMeaningfulMove:
					rec.Outcome = model.OutcomeWin
				case move <= -minMeaningfulMove:
					rec.Outcome = model.OutcomeLoss
				default:
					rec.Outcome = model.OutcomeBreakeven
				}
			} else {
				switch {
				case move <= -minMeaningfulMove:
					rec.Outcome = model.OutcomeWin
				case move >= minMeaningfulMove:
					rec.Outcome = model.OutcomeLoss
				default:
					rec.Outcome = model.OutcomeBreakeven
				}
			}
		}

		if transitioned {
			changed = append(changed, *rec)
		}
	}

	cutoff := nowMs - retentionMs
	kept := tr.records[:0]
	for _, rec := range tr.records {
		if rec.EventTimeMs >= cutoff {
			kept = append(kept, rec)
		}
	}
	tr.records = kept

	return changed
}

// Records returns the currently retained signal records.
func (tr *Tracker) Records() []model.SignalRecord {
	return tr.records
}

// StatsFor computes SignalStats for one signal kind from the retained
// records.
func (tr *Tracker) StatsFor(kind model.SignalKind) model.SignalStats {
	var stats model.SignalStats
	var sum1m, sum5m float64
	var n1m, n5m uint32

	for _, rec := range tr.records {
		if rec.Kind != kind {
			continue
		}
		stats.Count++
		if rec.Direction == model.DirectionBullish {
			stats.BullishCount++
		} else {
			stats.BearishCount++
		}
		switch rec.Outcome {
		case model.OutcomeWin:
			stats.Wins++
		case model.OutcomeLoss:
			stats.Losses++
		}
		if rec.PriceAfter1m != nil {
			sum1m += *rec.PriceAfter1m - rec.Price
			n1m++
		}
		if rec.PriceAfter5m != nil {
			sum5m += *rec.PriceAfter5m - rec.Price
			n5m++
		}
	}

	if n1m > 0 {
		stats.AvgMove1m = sum1m / float64(n1m)
	}
	if n5m > 0 {
		stats.AvgMove5m = sum5m / float64(n5m)
	}

	completed := stats.Wins + stats.Losses
	if completed > 0 {
		stats.WinRate = float64(stats.Wins) / float64(completed) * 100.0
	}

	return stats
}

// SessionSnapshot is the plain data a caller supplies for fields
// SessionStats needs but that outcome has no ownership of (price/volume
// bookkeeping lives in the engine).
type SessionSnapshot struct {
	SessionStartMs int64
	CurrentPrice   float64
	SessionHigh    float64
	SessionLow     float64
	TotalVolume    uint64
}

// Stats assembles the full SessionStats snapshot.
func (tr *Tracker) Stats(snap SessionSnapshot) model.SessionStats {
	return model.SessionStats{
		SessionStartMs:    snap.SessionStartMs,
		DeltaFlips:        tr.StatsFor(model.SignalDeltaFlip),
		Absorptions:       tr.StatsFor(model.SignalAbsorption),
		StackedImbalances: tr.StatsFor(model.SignalStackedImbalance),
		Confluences:       tr.StatsFor(model.SignalConfluence),
		CurrentPrice:      snap.CurrentPrice,
		SessionHigh:       snap.SessionHigh,
		SessionLow:        snap.SessionLow,
		TotalVolume:       snap.TotalVolume,
	}
}
