package confluence

import (
	"testing"

	"orderflow-engine/internal/model"
)

func TestNoConfluenceWithFewerThanTwoSignals(t *testing.T) {
	tr := New(DefaultWindowMs, DefaultCooldownMs)
	tr.Record(1000, model.SignalDeltaFlip, model.DirectionBullish)
	_, ok := Detect(tr, 1000, 100.0)
	if ok {
		t.Fatalf("expected no confluence with only one recorded signal")
	}
}

func TestNoConfluenceWhenSameKindTwice(t *testing.T) {
	tr := New(DefaultWindowMs, DefaultCooldownMs)
	tr.Record(1000, model.SignalDeltaFlip, model.DirectionBullish)
	tr.Record(1500, model.SignalDeltaFlip, model.DirectionBullish)
	_, ok := Detect(tr, 1500, 100.0)
	if ok {
		t.Fatalf("expected no confluence when only one distinct kind is present")
	}
}

func TestConfluenceFiresOnTwoDistinctAgreeingKinds(t *testing.T) {
	tr := New(DefaultWindowMs, DefaultCooldownMs)
	tr.Record(1000, model.SignalDeltaFlip, model.DirectionBullish)
	tr.Record(1200, model.SignalAbsorption, model.DirectionBullish)
	ev, ok := Detect(tr, 1200, 100.0)
	if !ok {
		t.Fatalf("expected confluence to fire")
	}
	if ev.Direction != model.DirectionBullish {
		t.Fatalf("expected bullish consensus, got %v", ev.Direction)
	}
	if ev.Score != 2 {
		t.Fatalf("expected score 2, got %d", ev.Score)
	}
}

func TestNoConfluenceWithoutDirectionalConsensus(t *testing.T) {
	tr := New(DefaultWindowMs, DefaultCooldownMs)
	tr.Record(1000, model.SignalDeltaFlip, model.DirectionBullish)
	tr.Record(1200, model.SignalAbsorption, model.DirectionBearish)
	_, ok := Detect(tr, 1200, 100.0)
	if ok {
		t.Fatalf("expected no confluence without a 2-agreeing consensus")
	}
}

func TestWindowClearsAfterEmission(t *testing.T) {
	tr := New(DefaultWindowMs, DefaultCooldownMs)
	tr.Record(1000, model.SignalDeltaFlip, model.DirectionBullish)
	tr.Record(1200, model.SignalAbsorption, model.DirectionBullish)
	Detect(tr, 1200, 100.0)

	if len(tr.recent) != 0 {
		t.Fatalf("expected recent signals cleared after emission, got %d", len(tr.recent))
	}
}

func TestCooldownSuppressesRepeatEmission(t *testing.T) {
	tr := New(DefaultWindowMs, DefaultCooldownMs)
	tr.Record(1000, model.SignalDeltaFlip, model.DirectionBullish)
	tr.Record(1200, model.SignalAbsorption, model.DirectionBullish)
	Detect(tr, 1200, 100.0)

	tr.Record(5000, model.SignalStackedImbalance, model.DirectionBullish)
	tr.Record(5200, model.SignalConfluence, model.DirectionBullish)
	_, ok := Detect(tr, 5200, 100.0)
	if ok {
		t.Fatalf("expected cooldown to suppress confluence within 10s of last emission")
	}
}

func TestSignalOutsideWindowIsEvicted(t *testing.T) {
	tr := New(DefaultWindowMs, DefaultCooldownMs)
	tr.Record(0, model.SignalDeltaFlip, model.DirectionBullish)
	tr.Record(DefaultWindowMs+1, model.SignalAbsorption, model.DirectionBullish)
	_, ok := Detect(tr, DefaultWindowMs+1, 100.0)
	if ok {
		t.Fatalf("expected first signal to be evicted outside the 5s window")
	}
}
