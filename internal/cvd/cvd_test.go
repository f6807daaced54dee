package cvd

import "testing"

func TestFirstTickCVD5sAgoIsCurrentCVD(t *testing.T) {
	tr := New()
	tr.Add(10)
	tr.Sample(1000)
	tr.Evict(1000)

	if tr.CVD5sAgo() != tr.CVD() {
		t.Fatalf("expected cvd5sAgo == cvd on first tick, got %d != %d", tr.CVD5sAgo(), tr.CVD())
	}
}

func TestCVD5sAgoLooksBackFiveSeconds(t *testing.T) {
	tr := New()

	tr.Add(5)
	tr.Sample(0)
	tr.Evict(0)

	tr.Add(5) // cvd=10
	tr.Sample(3000)
	tr.Evict(3000)

	tr.Add(10) // cvd=20
	tr.Sample(6000)
	tr.Evict(6000)

	// now=6000, target=1000: most recent sample with ts<=1000 is ts=0 (cvd=5).
	if tr.CVD5sAgo() != 5 {
		t.Fatalf("expected cvd5sAgo=5, got %d", tr.CVD5sAgo())
	}
}

func TestHistoryEvictedAfterThirtySeconds(t *testing.T) {
	tr := New()
	tr.Add(1)
	tr.Sample(0)
	tr.Evict(0)

	tr.Evict(30_001)
	if len(tr.history) != 0 {
		t.Fatalf("expected history evicted past 30s window, got %d entries", len(tr.history))
	}
}

func TestSignAndTrend(t *testing.T) {
	tr := New()
	if tr.Sign() != 0 {
		t.Fatalf("expected sign 0 at start")
	}
	tr.Add(50)
	if tr.Sign() != 1 {
		t.Fatalf("expected sign +1")
	}
	tr.Add(-200)
	if tr.Sign() != -1 {
		t.Fatalf("expected sign -1")
	}
}
