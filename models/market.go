package models

import "time"

// Timestamp is a unix timestamp in seconds. Window and history entries are
// keyed by it so eviction and range filtering stay cheap integer comparisons.
type Timestamp = int64

// Now returns the current unix timestamp in seconds.
func Now() Timestamp {
	return time.Now().Unix()
}

// TickerData is a single entry from the Binance all-market ticker stream
// (!ticker@arr). Numeric fields arrive as strings and must be parsed before
// use; a field that fails to parse rejects the whole ticker.
type TickerData struct {
	Symbol             string `json:"s"`
	CurrentPrice       string `json:"c"`
	PriceChange        string `json:"p"`
	PriceChangePercent string `json:"P"`
	Volume             string `json:"v"`
	QuoteVolume        string `json:"q"`
	OpenPrice          string `json:"o"`
	HighPrice          string `json:"h"`
	LowPrice           string `json:"l"`
	NumberOfTrades     int64  `json:"n"`
}

// TradeData is a single entry from a per-symbol trade stream (<sym>@trade).
// IsBuyerMaker follows Binance semantics: true means the resting order was a
// buy, so the aggressor sold.
type TradeData struct {
	Symbol       string `json:"s"`
	Price        string `json:"p"`
	Quantity     string `json:"q"`
	IsBuyerMaker bool   `json:"m"`
	TradeTime    int64  `json:"T"`
}

// StreamMessage is the single inbound message type multiplexed onto the
// shared stream channel. Exactly one of Tickers or Trade is set.
type StreamMessage struct {
	Tickers []TickerData
	Trade   *TradeData
}
