package models

import "testing"

func TestPushWindowEvictsOldest(t *testing.T) {
	var window []WindowEntry
	for i := 0; i < 5; i++ {
		window = PushWindow(window, WindowEntry{Time: Timestamp(i), Value: float64(i)}, 3)
	}

	if len(window) != 3 {
		t.Fatalf("window len = %d, want 3", len(window))
	}
	if window[0].Value != 2 || window[2].Value != 4 {
		t.Fatalf("window = %+v, want oldest entries evicted", window)
	}
}

func TestWindowValuesSince(t *testing.T) {
	window := []WindowEntry{
		{Time: 100, Value: 1},
		{Time: 200, Value: 2},
		{Time: 300, Value: 3},
	}

	got := WindowValuesSince(window, 200)
	if len(got) != 2 || got[0] != 2 || got[1] != 3 {
		t.Fatalf("got %v, want [2 3]", got)
	}
	if got := WindowValuesSince(window, 500); len(got) != 0 {
		t.Fatalf("got %v, want empty", got)
	}
}

func TestSetStateRangeLifecycle(t *testing.T) {
	s := NewSymbolSnapshot("BTCUSDT")
	s.Price = 100.0

	s.SetState(StateAccumulation, 1000)
	if s.Range == nil {
		t.Fatal("range should start on accumulation entry")
	}
	if s.Range.High != 100 || s.Range.Low != 100 {
		t.Fatalf("range = %+v, want seeded at current price", s.Range)
	}
	if s.StateSince != 1000 {
		t.Fatalf("state since = %d", s.StateSince)
	}

	// The captured range survives the breakout that follows.
	s.SetState(StateBreakoutLong, 1100)
	if s.Range == nil {
		t.Fatal("range should survive into breakout")
	}

	s.SetState(StateIdle, 1200)
	if s.Range != nil {
		t.Fatal("range should clear on idle")
	}
}

func TestSetStateSameStateIsNoop(t *testing.T) {
	s := NewSymbolSnapshot("BTCUSDT")
	s.Price = 100.0
	s.SetState(StateAccumulation, 1000)
	s.Range.High = 105.0

	s.SetState(StateAccumulation, 2000)
	if s.StateSince != 1000 {
		t.Fatalf("state since = %d, want unchanged", s.StateSince)
	}
	if s.Range.High != 105.0 {
		t.Fatal("re-entering the same state must not reset the range")
	}
}

func TestClearTier1Data(t *testing.T) {
	s := NewSymbolSnapshot("BTCUSDT")
	s.Price = 100.0
	s.CVD = 500
	s.CVDHistory = []WindowEntry{{Time: 1, Value: 500}}
	s.SetState(StateDistribution, 1000)

	s.ClearTier1Data(2000)
	if s.CVD != 0 || s.CVDHistory != nil {
		t.Fatalf("trade data survived: cvd=%v history=%v", s.CVD, s.CVDHistory)
	}
	if s.State != StateIdle || s.Range != nil {
		t.Fatalf("state machine not reset: state=%v range=%v", s.State, s.Range)
	}
}

func TestAlertTypePriorities(t *testing.T) {
	if AlertLongSetupConfirmed.Priority() <= AlertAccumulationDetected.Priority() {
		t.Error("setup alerts must outrank range alerts")
	}
	if AlertAccumulationDetected.Priority() <= AlertPumpDetected.Priority() {
		t.Error("range alerts must outrank momentum alerts")
	}
}
