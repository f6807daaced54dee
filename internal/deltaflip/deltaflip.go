// Package deltaflip detects zero-crossings of the running CVD's sign and
// applies a cooldown between emissions.
//
// Ported from original_source/src/processing.rs (the delta-flip block of
// process_buffer): cvd_before is read from "CVD five seconds ago" rather
// than the pre-trade running CVD, preserved literally per spec.md §9 open
// question 5 despite the quirk it produces under rapid oscillation.
package deltaflip

import "orderflow-engine/internal/model"

// CooldownMs is the minimum gap between two emitted delta-flips. Not
// config-driven: spec.md §4.5 fixes it as a constant.
const CooldownMs = 2_000

// Detector tracks the last sign seen and the last emission time.
type Detector struct {
	lastSign     int
	haveLastSign bool
	lastEmitMs   int64
	haveEmitted  bool
}

// New creates a detector with no observed sign yet.
func New() *Detector {
	return &Detector{}
}

// Detect checks whether the running CVD's sign flipped since the last call
// and, if so and the cooldown has elapsed, returns the flip event.
func Detect(d *Detector, nowMs int64, cvdNow, cvd5sAgo int64) (model.DeltaFlip, bool) {
	sign := signOf(cvdNow)

	if !d.haveLastSign {
		d.lastSign = sign
		d.haveLastSign = true
		return model.DeltaFlip{}, false
	}

	flipped := sign != 0 && d.lastSign != 0 && sign != d.lastSign
	d.lastSign = sign

	if !flipped {
		return model.DeltaFlip{}, false
	}

	if d.haveEmitted && nowMs-d.lastEmitMs < CooldownMs {
		return model.DeltaFlip{}, false
	}

	direction := model.DirectionBearish
	if sign > 0 {
		direction = model.DirectionBullish
	}

	d.lastEmitMs = nowMs
	d.haveEmitted = true

	return model.DeltaFlip{
		EventTimeMs: nowMs,
		Direction:   direction,
		CVDBefore:   cvd5sAgo,
		CVDAfter:    cvdNow,
	}, true
}

func signOf(v int64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
