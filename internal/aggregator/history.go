package aggregator

const volumeHistoryWindowMs = 60_000

type volumeSample struct {
	tsMs   int64
	volume uint64
}

// VolumeHistory retains total window volume for the last 60s, used by the
// absorption detector to compute a rolling average volume per second over a
// shorter (30s) lookback. Ported from
// original_source/src/processing.rs (volume_history, get_avg_volume_per_second).
type VolumeHistory struct {
	samples []volumeSample
}

// NewVolumeHistory creates an empty history.
func NewVolumeHistory() *VolumeHistory {
	return &VolumeHistory{}
}

// Push records one tick's total volume.
func (h *VolumeHistory) Push(nowMs int64, totalVolume uint64) {
	h.samples = append(h.samples, volumeSample{tsMs: nowMs, volume: totalVolume})
}

// Evict drops samples older than 60s.
func (h *VolumeHistory) Evict(nowMs int64) {
	cutoff := nowMs - volumeHistoryWindowMs
	kept := h.samples[:0]
	for _, s := range h.samples {
		if s.tsMs >= cutoff {
			kept = append(kept, s)
		}
	}
	h.samples = kept
}

// AvgPerSecond returns the average total volume per second over the last
// `seconds` seconds, defaulting to 200 (the source's NQ baseline) when no
// samples fall within the lookback.
func (h *VolumeHistory) AvgPerSecond(nowMs int64, seconds int64) float64 {
	cutoff := nowMs - seconds*1000
	var total uint64
	var found bool
	for _, s := range h.samples {
		if s.tsMs >= cutoff {
			total += s.volume
			found = true
		}
	}
	if !found {
		return 200.0
	}
	return float64(total) / float64(seconds)
}
