package engine

import (
	"testing"

	"orderflow-engine/internal/clock"
	"orderflow-engine/internal/config"
	"orderflow-engine/internal/dispatcher"
	"orderflow-engine/internal/model"
)

func testConfig() *config.Config {
	return &config.Config{
		MinTradeSize:         1,
		TickPeriodMs:         1000,
		ConfluenceWindowMs:   5_000,
		ConfluenceCooldownMs: 10_000,
		Outcome1mMs:          60_000,
		Outcome5mMs:          300_000,
		StatsCadenceMs:       5_000,
		ZoneRetentionShortMs:  5 * 60_000,
		ZoneRetentionMediumMs: 15 * 60_000,
		ZoneRetentionLongMs:   30 * 60_000,
		ImbalanceSignificanceRatio: 0.15,
		AbsorptionPriceThreshold:   0.25,
		StackedMinRatio:  0.70,
		StackedMinVolume: 100,
		StackedMinRun:    4,
		DispatchBufferSize:   1024,
		PersistenceQueueSize: 4096,
	}
}

func newTestEngine() (*Engine, *clock.Manual, <-chan model.Artifact) {
	clk := clock.NewManual(0)
	d := dispatcher.New(nil)
	ch := d.Subscribe(256)
	e := New(Options{Clock: clk, Dispatch: d, Config: testConfig()})
	return e, clk, ch
}

func trade(price float64, size uint32, side model.Side) model.Trade {
	return model.Trade{Symbol: "NQ", Price: price, Size: size, Side: side}
}

func drain(ch <-chan model.Artifact) []model.Artifact {
	var out []model.Artifact
	for {
		select {
		case a := <-ch:
			out = append(out, a)
		default:
			return out
		}
	}
}

func TestIngestRejectsZeroSizeTrade(t *testing.T) {
	e, _, _ := newTestEngine()
	err := e.Ingest(trade(100.0, 0, model.SideBuy))
	if err == nil {
		t.Fatalf("expected error for zero-size trade")
	}
}

func TestTickWithNoTradesEmitsNothing(t *testing.T) {
	e, _, ch := newTestEngine()
	e.Tick(1000)
	if len(drain(ch)) != 0 {
		t.Fatalf("expected no artifacts for an empty tick")
	}
}

func TestTickEmitsBubbleAndCVDPoint(t *testing.T) {
	e, _, ch := newTestEngine()
	e.Ingest(trade(100.0, 10, model.SideBuy))
	e.Tick(1000)

	artifacts := drain(ch)
	if len(artifacts) < 2 {
		t.Fatalf("expected at least bubble + cvd point, got %d", len(artifacts))
	}
	if artifacts[0].Kind != model.ArtifactBubble {
		t.Fatalf("expected first artifact to be a bubble, got %v", artifacts[0].Kind)
	}
	if artifacts[1].Kind != model.ArtifactCVDPoint {
		t.Fatalf("expected second artifact to be a cvd point, got %v", artifacts[1].Kind)
	}
}

func TestDeltaFlipEmitsAfterSignCrossesZero(t *testing.T) {
	e, _, ch := newTestEngine()

	e.Ingest(trade(100.0, 10, model.SideSell))
	e.Tick(1000) // establishes prev sign = sell (negative)
	drain(ch)

	e.Ingest(trade(100.0, 20, model.SideBuy))
	e.Tick(2000) // sign now positive: should flip
	artifacts := drain(ch)

	found := false
	for _, a := range artifacts {
		if a.Kind == model.ArtifactDeltaFlip {
			found = true
			if a.DeltaFlip.Direction != model.DirectionBullish {
				t.Fatalf("expected bullish flip direction, got %v", a.DeltaFlip.Direction)
			}
		}
	}
	if !found {
		t.Fatalf("expected a delta flip artifact")
	}
}

func TestSessionStatsSnapshotAvailableOnDemand(t *testing.T) {
	e, _, ch := newTestEngine()

	e.Ingest(trade(100.0, 10, model.SideSell))
	e.Tick(1000)
	drain(ch)
	e.Ingest(trade(100.0, 20, model.SideBuy))
	e.Tick(2000) // triggers a delta flip signal
	drain(ch)

	stats := e.SessionStatsSnapshot()
	if stats.SessionStartMs != 0 {
		t.Fatalf("expected session start ms 0, got %d", stats.SessionStartMs)
	}
	if stats.DeltaFlips.Count == 0 {
		t.Fatalf("expected at least one recorded delta flip signal")
	}
}

func TestVolumeProfilePublishedOnNonEmptyTick(t *testing.T) {
	e, _, ch := newTestEngine()
	e.Ingest(trade(100.0, 10, model.SideBuy))
	e.Tick(1000)

	found := false
	for _, a := range drain(ch) {
		if a.Kind == model.ArtifactVolumeProfile {
			found = true
			if len(a.VolumeProfile) == 0 {
				t.Fatalf("expected at least one volume profile level")
			}
		}
	}
	if !found {
		t.Fatalf("expected a volume profile artifact")
	}
}

func TestBubbleCounterIncrementsAcrossTicks(t *testing.T) {
	e, _, ch := newTestEngine()

	e.Ingest(trade(100.0, 5, model.SideBuy))
	e.Tick(1000)
	e.Ingest(trade(100.0, 5, model.SideBuy))
	e.Tick(2000)

	artifacts := drain(ch)
	var ids []uint64
	for _, a := range artifacts {
		if a.Kind == model.ArtifactBubble {
			ids = append(ids, a.Bubble.ID)
		}
	}
	if len(ids) != 2 || ids[0] == ids[1] {
		t.Fatalf("expected two distinct bubble ids, got %v", ids)
	}
}
