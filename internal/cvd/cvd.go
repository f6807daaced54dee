// Package cvd tracks the running cumulative volume delta and a bounded
// history used to look up "CVD five seconds ago" for trend context.
//
// Ported from original_source/src/processing.rs (self.cvd, cvd_history,
// cleanup_cvd_history).
package cvd

const historyWindowMs = 30_000
const trendLookbackMs = 5_000

type sample struct {
	tsMs int64
	cvd  int64
}

// Tracker holds the running CVD and its 30-second history.
type Tracker struct {
	cvd     int64
	history []sample

	// cvd5sAgo is recomputed on every Tick call, matching
	// cleanup_cvd_history's behavior of updating it alongside eviction.
	cvd5sAgo int64
}

// New creates a zeroed tracker.
func New() *Tracker {
	return &Tracker{}
}

// Add applies a trade's signed contribution to the running CVD. Does not
// touch history — history is sampled once per tick via Sample.
func (t *Tracker) Add(signed int64) {
	t.cvd += signed
}

// CVD returns the current running total.
func (t *Tracker) CVD() int64 { return t.cvd }

// Sample records the current CVD at nowMs into the history, to be called
// once per tick.
func (t *Tracker) Sample(nowMs int64) {
	t.history = append(t.history, sample{tsMs: nowMs, cvd: t.cvd})
}

// Evict drops history older than 30s and recomputes CVD5sAgo, per
// spec.md §4.1 step 1 and §3 invariant 7.
func (t *Tracker) Evict(nowMs int64) {
	cutoff := nowMs - historyWindowMs
	kept := t.history[:0]
	for _, s := range t.history {
		if s.tsMs >= cutoff {
			kept = append(kept, s)
		}
	}
	t.history = kept

	target := nowMs - trendLookbackMs
	found := false
	var bestTs int64
	var bestCVD int64
	for _, s := range t.history {
		if s.tsMs <= target && (!found || s.tsMs > bestTs) {
			bestTs = s.tsMs
			bestCVD = s.cvd
			found = true
		}
	}
	if found {
		t.cvd5sAgo = bestCVD
	} else {
		t.cvd5sAgo = t.cvd
	}
}

// CVD5sAgo returns the CVD value from the most recent history entry at or
// before now-5000ms, or the current CVD if no such entry exists (including
// on the very first tick, per spec.md §8 boundary behaviors).
func (t *Tracker) CVD5sAgo() int64 { return t.cvd5sAgo }

// Trend returns cvd - cvd_5s_ago: positive = bullish pressure building,
// negative = bearish.
func (t *Tracker) Trend() int64 { return t.cvd - t.cvd5sAgo }

// Sign returns -1, 0, or +1 for the running CVD.
func (t *Tracker) Sign() int {
	switch {
	case t.cvd > 0:
		return 1
	case t.cvd < 0:
		return -1
	default:
		return 0
	}
}
