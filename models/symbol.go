package models

// Tier classifies a symbol by interestingness. Only Tier1 symbols get
// trade-level tracking (CVD, pattern detection).
type Tier int

const (
	TierIgnored Tier = iota
	Tier2
	Tier1
)

func (t Tier) String() string {
	switch t {
	case Tier1:
		return "tier1"
	case Tier2:
		return "tier2"
	default:
		return "ignored"
	}
}

// MarketState is the pattern state machine position for a symbol. States are
// mutually exclusive; transitions happen only inside the detector.
type MarketState int

const (
	StateIdle MarketState = iota
	StateAccumulation
	StateDistribution
	StateBreakoutLong
	StateBreakdownShort
	StatePumpDetected
	StateDumpDetected
)

func (s MarketState) String() string {
	switch s {
	case StateAccumulation:
		return "accumulation"
	case StateDistribution:
		return "distribution"
	case StateBreakoutLong:
		return "breakout_long"
	case StateBreakdownShort:
		return "breakdown_short"
	case StatePumpDetected:
		return "pump_detected"
	case StateDumpDetected:
		return "dump_detected"
	default:
		return "idle"
	}
}

// WindowEntry is one timestamped sample in a sliding window. Entries are
// appended in arrival order, so timestamps are non-decreasing.
type WindowEntry struct {
	Time  Timestamp
	Value float64
}

// RangeTrack captures the price range observed while a symbol sits in
// accumulation or distribution. It is non-nil exactly while the state machine
// is in one of the range states (or the breakout/breakdown that follows), and
// cleared on any transition back to idle.
type RangeTrack struct {
	Start Timestamp
	High  float64
	Low   float64
}

// SymbolSnapshot holds everything the engine tracks for one symbol. It is
// owned exclusively by the engine goroutine; nothing else may touch it.
type SymbolSnapshot struct {
	Symbol string

	// From the ticker stream.
	Price             float64
	PriceChangePct24h float64
	Volume24h         float64
	QuoteVolume24h    float64
	Trades24h         int64
	High24h           float64
	Low24h            float64
	Open24h           float64

	// Derived on rescore.
	Score float64
	Tier  Tier

	// CVD tracking, Tier1 only. Cleared on demotion.
	CVD        float64
	CVDHistory []WindowEntry

	// Short-term sliding windows for pattern detection.
	PriceWindow  []WindowEntry
	VolumeWindow []WindowEntry

	// Pattern state machine.
	State      MarketState
	StateSince Timestamp
	Range      *RangeTrack

	LastAlertTime  Timestamp
	LastUpdateTime Timestamp
}

// NewSymbolSnapshot creates a snapshot in its initial (idle, ignored) state.
func NewSymbolSnapshot(symbol string) *SymbolSnapshot {
	now := Now()
	return &SymbolSnapshot{
		Symbol:         symbol,
		Tier:           TierIgnored,
		State:          StateIdle,
		StateSince:     now,
		LastUpdateTime: now,
	}
}

// SetState transitions the state machine and clears range tracking when the
// new state no longer needs it.
func (s *SymbolSnapshot) SetState(state MarketState, now Timestamp) {
	if state == s.State {
		return
	}
	s.State = state
	s.StateSince = now
	switch state {
	case StateAccumulation, StateDistribution:
		s.Range = &RangeTrack{Start: now, High: s.Price, Low: s.Price}
	case StateBreakoutLong, StateBreakdownShort:
		// Keep the captured range until the timeout resets us to idle.
	default:
		s.Range = nil
	}
}

// ClearTier1Data drops everything that only exists for Tier1 symbols. Called
// when a symbol is demoted during rescoring.
func (s *SymbolSnapshot) ClearTier1Data(now Timestamp) {
	s.CVD = 0
	s.CVDHistory = nil
	s.SetState(StateIdle, now)
}

// PushWindow appends an entry to a window, evicting from the front until the
// window is within maxLen. The returned slice must be stored back.
func PushWindow(window []WindowEntry, entry WindowEntry, maxLen int) []WindowEntry {
	window = append(window, entry)
	for len(window) > maxLen {
		window = window[1:]
	}
	return window
}

// WindowValuesSince returns the values of entries at or after start, in
// chronological order.
func WindowValuesSince(window []WindowEntry, start Timestamp) []float64 {
	values := make([]float64, 0, len(window))
	for _, e := range window {
		if e.Time >= start {
			values = append(values, e.Value)
		}
	}
	return values
}
