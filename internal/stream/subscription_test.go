package stream

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"
)

// stubStarter records stream starts and which contexts were cancelled.
type stubStarter struct {
	mu      sync.Mutex
	started []string
	stopped []string
}

func (s *stubStarter) RunTradeStream(ctx context.Context, symbol string) {
	s.mu.Lock()
	s.started = append(s.started, symbol)
	s.mu.Unlock()

	<-ctx.Done()

	s.mu.Lock()
	s.stopped = append(s.stopped, symbol)
	s.mu.Unlock()
}

func (s *stubStarter) startedSymbols() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]string(nil), s.started...)
	sort.Strings(out)
	return out
}

func TestSubscribeIsIdempotent(t *testing.T) {
	starter := &stubStarter{}
	sm := NewSubscriptionManager(starter)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sm.Subscribe(ctx, "BTCUSDT")
	sm.Subscribe(ctx, "BTCUSDT")

	if got := sm.ActiveCount(); got != 1 {
		t.Fatalf("active count = %d, want 1", got)
	}
}

func TestUnsubscribeUnknownIsNoop(t *testing.T) {
	sm := NewSubscriptionManager(&stubStarter{})
	sm.Unsubscribe("NOPEUSDT")
	if got := sm.ActiveCount(); got != 0 {
		t.Fatalf("active count = %d, want 0", got)
	}
}

func TestUpdateSubscriptionsDiffs(t *testing.T) {
	starter := &stubStarter{}
	sm := NewSubscriptionManager(starter)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sm.UpdateSubscriptions(ctx, []string{"AAAUSDT", "BBBUSDT"})
	if got := sm.ActiveCount(); got != 2 {
		t.Fatalf("active count = %d, want 2", got)
	}

	// BBB leaves, CCC joins, AAA is untouched.
	sm.UpdateSubscriptions(ctx, []string{"AAAUSDT", "CCCUSDT"})
	if got := sm.ActiveCount(); got != 2 {
		t.Fatalf("active count = %d, want 2 after diff", got)
	}

	sm.mu.Lock()
	_, aaa := sm.active["AAAUSDT"]
	_, bbb := sm.active["BBBUSDT"]
	_, ccc := sm.active["CCCUSDT"]
	sm.mu.Unlock()

	if !aaa || bbb || !ccc {
		t.Fatalf("active set wrong: aaa=%v bbb=%v ccc=%v", aaa, bbb, ccc)
	}
}

func TestUpdateSubscriptionsEmptyStopsAll(t *testing.T) {
	starter := &stubStarter{}
	sm := NewSubscriptionManager(starter)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sm.UpdateSubscriptions(ctx, []string{"AAAUSDT", "BBBUSDT"})
	sm.UpdateSubscriptions(ctx, nil)

	if got := sm.ActiveCount(); got != 0 {
		t.Fatalf("active count = %d, want 0", got)
	}
}

func TestRunConsumesUpdates(t *testing.T) {
	starter := &stubStarter{}
	sm := NewSubscriptionManager(starter)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := make(chan []string, 1)
	updates <- []string{"AAAUSDT"}
	close(updates)

	// Run returns when the updates channel closes.
	sm.Run(ctx, updates)

	if got := sm.ActiveCount(); got != 1 {
		t.Fatalf("active count = %d, want 1", got)
	}

	// The stream goroutine may not have been scheduled yet.
	deadline := time.After(time.Second)
	for {
		if got := starter.startedSymbols(); len(got) == 1 && got[0] == "AAAUSDT" {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("started = %v, want [AAAUSDT]", starter.startedSymbols())
		case <-time.After(5 * time.Millisecond):
		}
	}
}
