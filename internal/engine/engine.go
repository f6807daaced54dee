// Package engine is the single top-level orchestrator: it owns every
// detector, serializes all state transitions behind one mutex, and drives
// the fixed per-tick emission order.
//
// Generalized from the teacher's internal/engine.Engine (NewEngine,
// ProcessTrade as the single hot-path entry point), adapted from the
// teacher's atomic-pointer-per-field sharing style to one exclusive mutex,
// because this engine's components interact (absorption reads the volume
// profile and CVD trend, confluence reads signals other detectors emit,
// outcome tracking reads every emitted signal) in a way a single coherent
// state machine must serialize, not one independent field at a time.
package engine

import (
	"fmt"
	"sort"

	"orderflow-engine/internal/absorption"
	"orderflow-engine/internal/aggregator"
	"orderflow-engine/internal/clock"
	"orderflow-engine/internal/config"
	"orderflow-engine/internal/confluence"
	"orderflow-engine/internal/cvd"
	"orderflow-engine/internal/deltaflip"
	"orderflow-engine/internal/dispatcher"
	"orderflow-engine/internal/imbalance"
	"orderflow-engine/internal/model"
	"orderflow-engine/internal/outcome"
	"orderflow-engine/internal/profile"

	"sync"
)

// MetricsSink receives counters the engine produces but does not itself
// decide policy from. A nil sink is valid and drops everything.
type MetricsSink interface {
	IncMalformedTrade()
	IncSignalEmitted(kind model.SignalKind)
}

type noopMetrics struct{}

func (noopMetrics) IncMalformedTrade()               {}
func (noopMetrics) IncSignalEmitted(model.SignalKind) {}

// PersistenceSink receives session and signal state for optional durable
// storage. A nil sink is valid and drops everything.
type PersistenceSink interface {
	InsertSession(sessionStartMs int64)
	UpdateSession(sessionStartMs, recordedAtMs int64, currentPrice, high, low float64, totalVolume uint64)
	InsertSignal(rec model.SignalRecord)
	UpdateSignalOutcome(rec model.SignalRecord)
}

type noopPersistence struct{}

func (noopPersistence) InsertSession(int64)                                          {}
func (noopPersistence) UpdateSession(int64, int64, float64, float64, float64, uint64) {}
func (noopPersistence) InsertSignal(model.SignalRecord)                               {}
func (noopPersistence) UpdateSignalOutcome(model.SignalRecord)                        {}

// Engine is the orchestrator. Construct with New; all exported methods are
// safe for concurrent use.
type Engine struct {
	mu sync.Mutex

	clk clock.Clock

	minTradeSize uint32

	window      *aggregator.Window
	cvdTracker  *cvd.Tracker
	volProfile  *profile.Profile
	volHistory  *aggregator.VolumeHistory
	absorptions *absorption.Registry
	flips       *deltaflip.Detector
	imbalances  *imbalance.Detector
	confluences *confluence.Tracker
	signals     *outcome.Tracker

	dispatch *dispatcher.Dispatcher
	metrics  MetricsSink
	persist  PersistenceSink

	bubbleCounter uint64

	totalBuyVolume  uint64
	totalSellVolume uint64

	sessionStartMs int64
	sessionHigh    float64
	sessionLow     float64
	currentPrice   float64
	haveSessionLow bool

	lastStatsBroadcastMs int64
	haveStatsBroadcast   bool
}

// Options configures a new Engine. Dispatch must not be nil; Metrics and
// Persist may be nil. Config must not be nil.
type Options struct {
	Clock    clock.Clock
	Dispatch *dispatcher.Dispatcher
	Metrics  MetricsSink
	Persist  PersistenceSink
	Config   *config.Config
}

// New constructs an Engine with an empty session starting at the clock's
// current time, with every detector gated by cfg.
func New(opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = clock.System{}
	}
	if opts.Metrics == nil {
		opts.Metrics = noopMetrics{}
	}
	if opts.Persist == nil {
		opts.Persist = noopPersistence{}
	}
	cfg := opts.Config
	if cfg == nil {
		panic("engine: Options.Config must not be nil")
	}

	sessionStartMs := opts.Clock.NowMs()
	opts.Persist.InsertSession(sessionStartMs)

	return &Engine{
		clk:          opts.Clock,
		minTradeSize: cfg.MinTradeSize,
		window:       aggregator.New(cfg.ImbalanceSignificanceRatio),
		cvdTracker:   cvd.New(),
		volProfile:   profile.New(),
		volHistory:   aggregator.NewVolumeHistory(),
		absorptions: absorption.NewRegistry(
			cfg.AbsorptionPriceThreshold,
			cfg.ZoneRetentionShortMs,
			cfg.ZoneRetentionMediumMs,
			cfg.ZoneRetentionLongMs,
		),
		flips: deltaflip.New(),
		imbalances: imbalance.New(
			cfg.StackedMinRatio,
			uint64(cfg.StackedMinVolume),
			int(cfg.StackedMinRun),
		),
		confluences: confluence.New(cfg.ConfluenceWindowMs, cfg.ConfluenceCooldownMs),
		signals:     outcome.New(cfg.Outcome1mMs, cfg.Outcome5mMs, cfg.StatsCadenceMs, sessionStartMs),
		dispatch:    opts.Dispatch,
		metrics:     opts.Metrics,
		persist:     opts.Persist,

		sessionStartMs: sessionStartMs,
	}
}

// Ingest applies one trade to the running totals and buffers it for the
// next Tick. Malformed trades (unrecognized symbol, and so on) are the
// caller's responsibility to filter before calling Ingest; Ingest itself
// only validates size against the configured minimum.
func (e *Engine) Ingest(t model.Trade) error {
	if t.Size < e.minTradeSize {
		e.metrics.IncMalformedTrade()
		return fmt.Errorf("engine: trade size %d below minimum %d", t.Size, e.minTradeSize)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	signed := t.Signed()
	e.cvdTracker.Add(signed)
	e.volProfile.Update(t.Price, uint64(t.Size), t.Side == model.SideBuy)

	if t.Side == model.SideBuy {
		e.totalBuyVolume += uint64(t.Size)
	} else {
		e.totalSellVolume += uint64(t.Size)
	}

	e.window.Ingest(t)
	return nil
}

// Tick closes the current window and runs every detector in the fixed
// emission order: bubble, CVD point, delta-flip, absorption, stacked
// imbalance, volume profile, session stats (confluence is emitted inline
// from within emitSignal, as each qualifying signal is recorded).
func (e *Engine) Tick(nowMs int64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cvdTracker.Sample(nowMs)
	e.cvdTracker.Evict(nowMs)
	e.absorptions.Evict(nowMs)

	res := e.window.Tick()
	if res.Empty {
		return
	}

	e.volHistory.Push(nowMs, res.TotalVolume)
	e.volHistory.Evict(nowMs)

	e.bubbleCounter++
	e.publish(model.Artifact{
		Kind: model.ArtifactBubble,
		Bubble: &model.Bubble{
			ID:                   e.bubbleCounter,
			Price:                res.DominantVWAP,
			DominantVolume:       res.DominantVolume,
			Side:                 res.DominantSide,
			EventTimeMs:          nowMs,
			SignificantImbalance: res.Significant,
			ImbalanceRatio:       res.ImbalanceRatio,
		},
	})

	e.publish(model.Artifact{
		Kind: model.ArtifactCVDPoint,
		CVDPoint: &model.CVDPoint{
			EventTimeMs: nowMs,
			CVD:         e.cvdTracker.CVD(),
		},
	})

	if flip, ok := deltaflip.Detect(e.flips, nowMs, e.cvdTracker.CVD(), e.cvdTracker.CVD5sAgo()); ok {
		e.publish(model.Artifact{Kind: model.ArtifactDeltaFlip, DeltaFlip: &flip})
		e.emitSignal(nowMs, model.SignalDeltaFlip, flip.Direction, res.DominantVWAP)
	}

	atPOC, atVAH, atVAL := e.volProfile.KeyLevels(res.DominantVWAP)
	avgVol30 := e.volHistory.AvgPerSecond(nowMs, 30)
	det := absorption.Detect(e.absorptions, nowMs, res.Delta, res.WindowFirstPrice, res.WindowLastPrice, res.DominantVWAP, absorption.Context{
		AvgVol30: avgVol30,
		CVDTrend: e.cvdTracker.Trend(),
		AtPOC:    atPOC,
		AtVAH:    atVAH,
		AtVAL:    atVAL,
	})
	if det.Triggered && det.ShouldEmit {
		e.publish(model.Artifact{Kind: model.ArtifactAbsorptionEvent, AbsorptionEvent: &det.Event})
		e.publish(model.Artifact{
			Kind:            model.ArtifactAbsorptionZones,
			AbsorptionZones: e.absorptions.ActiveZones(e.volProfile, e.cvdTracker.Trend()),
		})

		// Buying absorbed (sellers absorbing offers) reads bearish; selling
		// absorbed (buyers absorbing bids) reads bullish.
		direction := model.DirectionBullish
		if det.Event.Type == model.AbsorptionBuying {
			direction = model.DirectionBearish
		}
		e.emitSignal(nowMs, model.SignalAbsorption, direction, det.Event.Price)
	}

	levels := e.volProfile.Levels()

	if stacked, ok := imbalance.Detect(e.imbalances, levels, nowMs); ok {
		e.publish(model.Artifact{Kind: model.ArtifactStackedImbalance, StackedImbalance: &stacked})
		direction := model.DirectionBearish
		if stacked.Side == model.SideBuy {
			direction = model.DirectionBullish
		}
		midPrice := (stacked.PriceLow + stacked.PriceHigh) / 2.0
		e.emitSignal(nowMs, model.SignalStackedImbalance, direction, midPrice)
	}

	e.publish(model.Artifact{
		Kind:          model.ArtifactVolumeProfile,
		VolumeProfile: volumeProfileLevels(levels),
	})

	e.updateOutcomesAndStats(nowMs)
}

// updateOutcomesAndStats fills in 1m/5m outcomes for pending signals and
// broadcasts SessionStats on its cadence. Runs once per non-empty tick,
// independent of whether any detector fired this tick — outcome fill and
// the stats cadence are both clock-driven, not signal-driven, so a quiet
// stretch with no emissions must not stall either one. Must be called with
// mu held.
func (e *Engine) updateOutcomesAndStats(nowMs int64) {
	for _, changed := range e.signals.Update(nowMs, e.currentPrice) {
		e.persist.UpdateSignalOutcome(changed)
	}

	if !e.haveStatsBroadcast || nowMs-e.lastStatsBroadcastMs >= e.signals.StatsCadenceMs() {
		e.lastStatsBroadcastMs = nowMs
		e.haveStatsBroadcast = true
		totalVolume := e.totalBuyVolume + e.totalSellVolume
		low := e.sessionLowOrCurrent()
		e.persist.UpdateSession(e.sessionStartMs, nowMs, e.currentPrice, e.sessionHigh, low, totalVolume)
		stats := e.signals.Stats(e.sessionSnapshot())
		e.publish(model.Artifact{Kind: model.ArtifactSessionStats, SessionStats: &stats})
	}
}

// volumeProfileLevels converts an unordered ¼-point bucket map into a
// price-sorted slice, so the published artifact is deterministic.
func volumeProfileLevels(levels map[int64]profile.Level) []model.VolumeProfileLevel {
	out := make([]model.VolumeProfileLevel, 0, len(levels))
	for key, lvl := range levels {
		out = append(out, model.VolumeProfileLevel{
			Price:       profile.BucketPrice(key),
			BuyVolume:   lvl.BuyVolume,
			SellVolume:  lvl.SellVolume,
			TotalVolume: lvl.TotalVolume,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	return out
}

// emitSignal runs the shared tail every detected signal passes through:
// session tracking and confluence recording/detection. Outcome tracking and
// the stats broadcast are clock-driven, not signal-driven, and run once per
// tick from updateOutcomesAndStats instead. Must be called with mu held.
func (e *Engine) emitSignal(nowMs int64, kind model.SignalKind, direction model.Direction, price float64) {
	e.updateSessionPrice(price)
	e.metrics.IncSignalEmitted(kind)

	rec := e.signals.Record(nowMs, price, kind, direction)
	e.persist.InsertSignal(rec)

	e.confluences.Record(nowMs, kind, direction)

	if conf, ok := confluence.Detect(e.confluences, nowMs, price); ok {
		e.publish(model.Artifact{Kind: model.ArtifactConfluence, Confluence: &conf})
		e.metrics.IncSignalEmitted(model.SignalConfluence)
		confRec := e.signals.Record(nowMs, price, model.SignalConfluence, conf.Direction)
		e.persist.InsertSignal(confRec)
	}
}

// SessionStatsSnapshot computes the current SessionStats on demand, outside
// the cadence-gated broadcast updateOutcomesAndStats performs on a timer.
func (e *Engine) SessionStatsSnapshot() model.SessionStats {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.signals.Stats(e.sessionSnapshot())
}

// sessionSnapshot builds the outcome.SessionSnapshot both the periodic
// broadcast and the on-demand SessionStatsSnapshot feed to
// outcome.Tracker.Stats, so the two stay in sync by construction. Must be
// called with mu held.
func (e *Engine) sessionSnapshot() outcome.SessionSnapshot {
	return outcome.SessionSnapshot{
		SessionStartMs: e.sessionStartMs,
		CurrentPrice:   e.currentPrice,
		SessionHigh:    e.sessionHigh,
		SessionLow:     e.sessionLowOrCurrent(),
		TotalVolume:    e.totalBuyVolume + e.totalSellVolume,
	}
}

func (e *Engine) updateSessionPrice(price float64) {
	if price > e.sessionHigh {
		e.sessionHigh = price
	}
	if !e.haveSessionLow || price < e.sessionLow {
		if price > 0 {
			e.sessionLow = price
			e.haveSessionLow = true
		}
	}
	e.currentPrice = price
}

func (e *Engine) sessionLowOrCurrent() float64 {
	if e.haveSessionLow {
		return e.sessionLow
	}
	return e.currentPrice
}

func (e *Engine) publish(a model.Artifact) {
	if e.dispatch != nil {
		e.dispatch.Publish(a)
	}
}
