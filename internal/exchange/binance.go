package exchange

import (
	"context"
	"fmt"
	"strings"

	binance "github.com/adshao/go-binance/v2"
	"golang.org/x/time/rate"

	appconfig "signalflow/config"
	"signalflow/logger"
)

var _ Exchange = (*Binance)(nil)

// Binance lists spot symbols through the Binance REST API. Requests go
// through a rate limiter so startup bursts cannot trip the exchange's request
// weight limits.
type Binance struct {
	client  *binance.Client
	limiter *rate.Limiter
	log     *logger.Log
}

func NewBinance(cfg appconfig.BinanceConfig) *Binance {
	client := binance.NewClient("", "")
	if cfg.APIURL != "" {
		client.BaseURL = strings.TrimRight(cfg.APIURL, "/")
	}

	return &Binance{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		log:     logger.GetLogger(),
	}
}

func (b *Binance) Name() string {
	return "Binance"
}

// ListSymbols fetches exchange info and returns the symbols currently trading
// against quoteAsset.
func (b *Binance) ListSymbols(ctx context.Context, quoteAsset string) ([]string, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	info, err := b.client.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch exchange info: %w", err)
	}

	symbols := make([]string, 0, len(info.Symbols))
	for _, s := range info.Symbols {
		if s.Status != "TRADING" {
			continue
		}
		if s.QuoteAsset != quoteAsset {
			continue
		}
		symbols = append(symbols, s.Symbol)
	}

	b.log.WithComponent("binance").WithFields(logger.Fields{
		"symbols":     len(symbols),
		"quote_asset": quoteAsset,
	}).Info("fetched tradable symbols")

	return symbols, nil
}
