// Package engine owns the symbol table and drives the signal pipeline. The
// table is mutated exclusively by the engine goroutine; every other component
// talks to it through channels, so the hot path needs no locks.
package engine

import (
	"context"
	"strconv"
	"strings"
	"time"

	appconfig "signalflow/config"
	"signalflow/internal/channel"
	"signalflow/internal/detect"
	"signalflow/internal/metrics"
	"signalflow/internal/scoring"
	"signalflow/logger"
	"signalflow/models"
)

const statsInterval = 60 * time.Second

type SignalEngine struct {
	config   *appconfig.Config
	exchange string
	symbols  map[string]*models.SymbolSnapshot
	scorer   *scoring.Scorer
	detector *detect.Detector
	log      *logger.Log
}

func NewSignalEngine(cfg *appconfig.Config, exchange string) *SignalEngine {
	return &SignalEngine{
		config:   cfg,
		exchange: exchange,
		symbols:  make(map[string]*models.SymbolSnapshot),
		scorer:   scoring.NewScorer(cfg.Scoring),
		detector: detect.NewDetector(cfg.Detection),
		log:      logger.GetLogger(),
	}
}

// ProcessTicker applies hard filters to a ticker batch and updates the
// snapshots of symbols that pass. Snapshots are created lazily on the first
// passing ticker; parse failures count as filter failures and are silent.
func (e *SignalEngine) ProcessTicker(tickers []models.TickerData) {
	for i := range tickers {
		ticker := &tickers[i]
		if !e.passesHardFilters(ticker) {
			continue
		}

		snapshot, ok := e.symbols[ticker.Symbol]
		if !ok {
			snapshot = models.NewSymbolSnapshot(ticker.Symbol)
			e.symbols[ticker.Symbol] = snapshot
		}
		e.updateFromTicker(snapshot, ticker)
	}
}

// ProcessTrade updates CVD for a Tier1 symbol and runs detection, returning
// any alerts. Trades for unknown or non-Tier1 symbols are no-ops.
func (e *SignalEngine) ProcessTrade(trade *models.TradeData) []models.Alert {
	snapshot, ok := e.symbols[trade.Symbol]
	if !ok {
		e.log.WithComponent("engine").WithFields(logger.Fields{
			"symbol": trade.Symbol,
		}).Warn("received trade for unknown symbol")
		return nil
	}

	if snapshot.Tier != models.Tier1 {
		return nil
	}

	e.updateCVD(snapshot, trade)

	return e.detector.Detect(snapshot)
}

// RescoreSymbols evicts stale snapshots, rescores the rest, selects the new
// Tier1 set and assigns tiers. Demoted symbols lose their CVD data and reset
// to idle. Returns the Tier1 symbol list for the subscription manager.
func (e *SignalEngine) RescoreSymbols() []string {
	now := models.Now()

	staleThreshold := e.config.Filters.StaleDataThreshold.Seconds()
	for symbol, snapshot := range e.symbols {
		if now-snapshot.LastUpdateTime > staleThreshold {
			delete(e.symbols, symbol)
		}
	}

	all := make([]*models.SymbolSnapshot, 0, len(e.symbols))
	for _, snapshot := range e.symbols {
		snapshot.Score = e.scorer.CalculateScore(snapshot)
		all = append(all, snapshot)
	}

	tier1 := e.scorer.SelectTier1(all)
	tier1Set := make(map[string]struct{}, len(tier1))
	for _, symbol := range tier1 {
		tier1Set[symbol] = struct{}{}
	}

	for _, snapshot := range e.symbols {
		if _, selected := tier1Set[snapshot.Symbol]; selected {
			snapshot.Tier = models.Tier1
			continue
		}

		wasTier1 := snapshot.Tier == models.Tier1
		snapshot.Tier = e.scorer.AssignTier(snapshot.Score)
		// The selection cap can exclude a symbol whose score clears the
		// threshold; it is demoted all the same.
		if snapshot.Tier == models.Tier1 {
			snapshot.Tier = models.Tier2
		}
		if wasTier1 {
			e.log.WithComponent("engine").WithFields(logger.Fields{
				"symbol": snapshot.Symbol,
				"score":  snapshot.Score,
			}).Debug("symbol demoted from tier1, clearing trade data")
			snapshot.ClearTier1Data(now)
		}
	}

	stats := e.GetStats()
	e.log.WithComponent("engine").WithFields(logger.Fields{
		"total": stats.TotalSymbols,
		"tier1": stats.Tier1Symbols,
		"tier2": stats.Tier2Symbols,
	}).Info("rescoring complete")
	metrics.SetSymbolCounts(stats.TotalSymbols, stats.Tier1Symbols, stats.Tier2Symbols)

	return tier1
}

func (e *SignalEngine) passesHardFilters(ticker *models.TickerData) bool {
	if !strings.HasSuffix(ticker.Symbol, e.config.Filters.QuoteAsset) {
		return false
	}

	quoteVolume, err := strconv.ParseFloat(ticker.QuoteVolume, 64)
	if err != nil {
		return false
	}
	price, err := strconv.ParseFloat(ticker.CurrentPrice, 64)
	if err != nil {
		return false
	}

	filters := &e.config.Filters
	if quoteVolume < filters.MinQuoteVolume {
		return false
	}
	if price < filters.MinPrice {
		return false
	}
	if ticker.NumberOfTrades < filters.MinTrades24h {
		return false
	}
	return true
}

func (e *SignalEngine) updateFromTicker(snapshot *models.SymbolSnapshot, ticker *models.TickerData) {
	parse := func(s string) float64 {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		return v
	}

	now := models.Now()

	snapshot.Price = parse(ticker.CurrentPrice)
	snapshot.PriceChangePct24h = parse(ticker.PriceChangePercent)
	snapshot.Volume24h = parse(ticker.Volume)
	snapshot.QuoteVolume24h = parse(ticker.QuoteVolume)
	snapshot.Trades24h = ticker.NumberOfTrades
	snapshot.High24h = parse(ticker.HighPrice)
	snapshot.Low24h = parse(ticker.LowPrice)
	snapshot.Open24h = parse(ticker.OpenPrice)
	snapshot.LastUpdateTime = now

	windowSize := e.config.Performance.PriceWindowSize
	snapshot.PriceWindow = models.PushWindow(snapshot.PriceWindow,
		models.WindowEntry{Time: now, Value: snapshot.Price}, windowSize)
	snapshot.VolumeWindow = models.PushWindow(snapshot.VolumeWindow,
		models.WindowEntry{Time: now, Value: snapshot.QuoteVolume24h}, windowSize)
}

// updateCVD applies a trade's signed notional to the running CVD and appends
// it to the bounded history. A resting buy order means the aggressor sold.
func (e *SignalEngine) updateCVD(snapshot *models.SymbolSnapshot, trade *models.TradeData) {
	price, err := strconv.ParseFloat(trade.Price, 64)
	if err != nil || price == 0 {
		return
	}
	quantity, err := strconv.ParseFloat(trade.Quantity, 64)
	if err != nil || quantity == 0 {
		return
	}

	notional := price * quantity
	if trade.IsBuyerMaker {
		notional = -notional
	}
	snapshot.CVD += notional

	snapshot.CVDHistory = models.PushWindow(snapshot.CVDHistory,
		models.WindowEntry{Time: models.Now(), Value: snapshot.CVD},
		e.config.Performance.CVDHistorySize)
}

// EngineStats summarises the symbol population for observability.
type EngineStats struct {
	TotalSymbols int
	Tier1Symbols int
	Tier2Symbols int
	StateCounts  map[models.MarketState]int
}

func (e *SignalEngine) GetStats() EngineStats {
	stats := EngineStats{
		TotalSymbols: len(e.symbols),
		StateCounts:  make(map[models.MarketState]int),
	}
	for _, snapshot := range e.symbols {
		switch snapshot.Tier {
		case models.Tier1:
			stats.Tier1Symbols++
		case models.Tier2:
			stats.Tier2Symbols++
		}
		stats.StateCounts[snapshot.State]++
	}
	return stats
}

// Run multiplexes inbound stream messages with the rescore and stats timers
// until the context is cancelled. Rescoring only ever happens between
// messages, never concurrently with them.
func (e *SignalEngine) Run(ctx context.Context, channels *channel.Manager) {
	log := e.log.WithComponent("engine")
	log.Info("starting signal engine")

	rescoreTicker := time.NewTicker(e.config.Scoring.RescoreInterval.Std())
	defer rescoreTicker.Stop()
	statsTicker := time.NewTicker(statsInterval)
	defer statsTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("signal engine stopped")
			return

		case msg, ok := <-channels.StreamReader():
			if !ok {
				log.Info("stream channel closed, engine stopping")
				return
			}
			if msg.Trade != nil {
				for _, alert := range e.ProcessTrade(msg.Trade) {
					alert.Exchange = e.exchange
					channels.TrySendAlert(alert)
				}
			} else if len(msg.Tickers) > 0 {
				e.ProcessTicker(msg.Tickers)
			}

		case <-rescoreTicker.C:
			tier1 := e.RescoreSymbols()
			channels.TrySendTier1(tier1)

		case <-statsTicker.C:
			e.reportStats()
		}
	}
}

// reportStats logs the symbol population and publishes it as gauges.
func (e *SignalEngine) reportStats() {
	stats := e.GetStats()
	states := make(logger.Fields, len(stats.StateCounts))
	for state, count := range stats.StateCounts {
		states[state.String()] = count
	}
	e.log.WithComponent("engine").WithFields(logger.Fields{
		"total": stats.TotalSymbols,
		"tier1": stats.Tier1Symbols,
		"tier2": stats.Tier2Symbols,
	}).WithFields(states).Info("engine stats")

	e.log.LogMetric("engine", "symbols_tracked", stats.TotalSymbols, "gauge", nil)
	e.log.LogMetric("engine", "symbols_tier1", stats.Tier1Symbols, "gauge", nil)
	e.log.LogMetric("engine", "symbols_tier2", stats.Tier2Symbols, "gauge", nil)
}
