package stream

import (
	"context"
	"sync"

	"signalflow/internal/metrics"
	"signalflow/logger"
)

// TradeStreamStarter starts a blocking per-symbol trade stream. Satisfied by
// *Manager; tests substitute a stub.
type TradeStreamStarter interface {
	RunTradeStream(ctx context.Context, symbol string)
}

// SubscriptionManager keeps one trade-ingestion task per Tier1 symbol. On
// each membership update it diffs the new set against the active one and
// starts or cancels tasks accordingly.
type SubscriptionManager struct {
	streams TradeStreamStarter
	active  map[string]context.CancelFunc
	mu      sync.Mutex
	log     *logger.Log
}

func NewSubscriptionManager(streams TradeStreamStarter) *SubscriptionManager {
	return &SubscriptionManager{
		streams: streams,
		active:  make(map[string]context.CancelFunc),
		log:     logger.GetLogger(),
	}
}

// Subscribe starts a trade stream task for a symbol. Subscribing to an
// already-active symbol is a no-op.
func (sm *SubscriptionManager) Subscribe(ctx context.Context, symbol string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if _, ok := sm.active[symbol]; ok {
		return
	}

	sm.log.WithComponent("subscriptions").WithFields(logger.Fields{
		"symbol": symbol,
	}).Info("subscribing to trade stream")

	streamCtx, cancel := context.WithCancel(ctx)
	sm.active[symbol] = cancel
	go sm.streams.RunTradeStream(streamCtx, symbol)
}

// Unsubscribe cancels a symbol's trade stream task. Unsubscribing from an
// inactive symbol is a no-op. In-flight messages are not drained.
func (sm *SubscriptionManager) Unsubscribe(symbol string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	cancel, ok := sm.active[symbol]
	if !ok {
		return
	}

	sm.log.WithComponent("subscriptions").WithFields(logger.Fields{
		"symbol": symbol,
	}).Info("unsubscribing from trade stream")

	cancel()
	delete(sm.active, symbol)
}

// UpdateSubscriptions reconciles the active task set against the new Tier1
// membership via symmetric difference.
func (sm *SubscriptionManager) UpdateSubscriptions(ctx context.Context, tier1Symbols []string) {
	target := make(map[string]struct{}, len(tier1Symbols))
	for _, symbol := range tier1Symbols {
		target[symbol] = struct{}{}
	}

	sm.mu.Lock()
	current := make([]string, 0, len(sm.active))
	for symbol := range sm.active {
		current = append(current, symbol)
	}
	sm.mu.Unlock()

	for _, symbol := range current {
		if _, keep := target[symbol]; !keep {
			sm.Unsubscribe(symbol)
		}
	}
	for _, symbol := range tier1Symbols {
		sm.Subscribe(ctx, symbol)
	}

	metrics.SetActiveTradeStreams(sm.ActiveCount())
}

// ActiveCount reports the number of running trade stream tasks.
func (sm *SubscriptionManager) ActiveCount() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return len(sm.active)
}

// Run reacts to Tier1 membership updates until the context is cancelled.
// Every rescore cycle pushes a full membership list; diffing is this
// manager's job.
func (sm *SubscriptionManager) Run(ctx context.Context, tier1Updates <-chan []string) {
	log := sm.log.WithComponent("subscriptions")
	log.Info("starting subscription manager")

	for {
		select {
		case <-ctx.Done():
			log.Info("subscription manager stopped")
			return
		case symbols, ok := <-tier1Updates:
			if !ok {
				log.Info("tier1 channel closed, subscription manager stopping")
				return
			}
			sm.UpdateSubscriptions(ctx, symbols)
		}
	}
}
