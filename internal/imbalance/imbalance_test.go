package imbalance

import (
	"testing"

	"orderflow-engine/internal/model"
	"orderflow-engine/internal/profile"
)

func buyLevels(pointKeys []int64, buy, sell uint64) map[int64]profile.Level {
	out := make(map[int64]profile.Level)
	for _, pk := range pointKeys {
		// spread 4 quarter-buckets per point, put all volume on the first
		key := pk * 4
		out[key] = profile.Level{BuyVolume: buy, SellVolume: sell, TotalVolume: buy + sell}
	}
	return out
}

func TestNoEmissionOnEmptyProfile(t *testing.T) {
	d := New(DefaultMinRatio, DefaultMinLevelVolume, DefaultMinStreakToEmit)
	_, ok := Detect(d, map[int64]profile.Level{}, 1000)
	if ok {
		t.Fatalf("expected no emission for empty profile")
	}
}

func TestNoEmissionBelowStreakThreshold(t *testing.T) {
	d := New(DefaultMinRatio, DefaultMinLevelVolume, DefaultMinStreakToEmit)
	levels := buyLevels([]int64{100, 101, 102}, 90, 10)
	_, ok := Detect(d, levels, 1000)
	if ok {
		t.Fatalf("expected no emission for streak of only 3 (needs 4+)")
	}
}

func TestEmitsOnQualifyingFourLevelStreak(t *testing.T) {
	d := New(DefaultMinRatio, DefaultMinLevelVolume, DefaultMinStreakToEmit)
	levels := buyLevels([]int64{100, 101, 102, 103}, 90, 10)
	si, ok := Detect(d, levels, 1000)
	if !ok {
		t.Fatalf("expected emission for qualifying 4-level streak")
	}
	if si.Side != model.SideBuy {
		t.Fatalf("expected buy side, got %v", si.Side)
	}
	if si.LevelCount != 4 {
		t.Fatalf("expected level count 4, got %d", si.LevelCount)
	}
	if si.PriceLow != 100 || si.PriceHigh != 104 {
		t.Fatalf("expected range [100,104), got [%v,%v)", si.PriceLow, si.PriceHigh)
	}
}

func TestSameSideReemissionSuppressedIndefinitely(t *testing.T) {
	d := New(DefaultMinRatio, DefaultMinLevelVolume, DefaultMinStreakToEmit)
	levels := buyLevels([]int64{100, 101, 102, 103}, 90, 10)
	Detect(d, levels, 1000)

	// Well past the 30s cooldown, but still the same dominant side.
	_, ok := Detect(d, levels, 1000+CooldownMs*10)
	if ok {
		t.Fatalf("expected same-side re-emission to remain suppressed indefinitely")
	}
}

func TestOppositeSideEmitsAfterCooldown(t *testing.T) {
	d := New(DefaultMinRatio, DefaultMinLevelVolume, DefaultMinStreakToEmit)
	buyStreak := buyLevels([]int64{100, 101, 102, 103}, 90, 10)
	Detect(d, buyStreak, 1000)

	sellStreak := buyLevels([]int64{200, 201, 202, 203}, 10, 90)
	_, ok := Detect(d, sellStreak, 1000+CooldownMs+1)
	if !ok {
		t.Fatalf("expected emission for opposite side after cooldown")
	}
}

func TestCooldownBlocksEvenOppositeSideWithinWindow(t *testing.T) {
	d := New(DefaultMinRatio, DefaultMinLevelVolume, DefaultMinStreakToEmit)
	buyStreak := buyLevels([]int64{100, 101, 102, 103}, 90, 10)
	Detect(d, buyStreak, 1000)

	sellStreak := buyLevels([]int64{200, 201, 202, 203}, 10, 90)
	_, ok := Detect(d, sellStreak, 1000+CooldownMs-1)
	if ok {
		t.Fatalf("expected cooldown to block even an opposite-side emission")
	}
}

func TestLowVolumeLevelBreaksStreak(t *testing.T) {
	d := New(DefaultMinRatio, DefaultMinLevelVolume, DefaultMinStreakToEmit)
	levels := buyLevels([]int64{100, 101}, 90, 10)
	// Insert a low-volume level between two qualifying streaks so neither
	// reaches 4.
	for k, v := range buyLevels([]int64{102}, 5, 1) {
		levels[k] = v
	}
	for k, v := range buyLevels([]int64{103, 104}, 90, 10) {
		levels[k] = v
	}
	_, ok := Detect(d, levels, 1000)
	if ok {
		t.Fatalf("expected low-volume level to break the streak below threshold")
	}
}
