// Package stream maintains the websocket connections feeding the engine: one
// all-market ticker stream plus one trade stream per Tier1 symbol. Every
// connection keeps itself alive with periodic pings and reconnects with
// exponential backoff; parsed messages land on the shared stream channel.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	appconfig "signalflow/config"
	"signalflow/internal/channel"
	"signalflow/logger"
	"signalflow/models"
)

const defaultPingInterval = 20 * time.Second

type Manager struct {
	wsURL    string
	wsConfig appconfig.WebSocketConfig
	channels *channel.Manager
	log      *logger.Log
}

func NewManager(wsURL string, wsConfig appconfig.WebSocketConfig, channels *channel.Manager) *Manager {
	return &Manager{
		wsURL:    strings.TrimRight(wsURL, "/"),
		wsConfig: wsConfig,
		channels: channels,
		log:      logger.GetLogger(),
	}
}

// RunTickerStream connects to the all-market ticker stream and blocks until
// the context is cancelled, reconnecting on any error.
func (m *Manager) RunTickerStream(ctx context.Context) {
	url := fmt.Sprintf("%s/!ticker@arr", m.wsURL)
	log := m.log.WithComponent("ticker_stream")
	m.runStream(ctx, url, log, m.handleTickerFrame)
}

// RunTradeStream connects to a single symbol's trade stream and blocks until
// the context is cancelled, reconnecting on any error.
func (m *Manager) RunTradeStream(ctx context.Context, symbol string) {
	url := fmt.Sprintf("%s/%s@trade", m.wsURL, strings.ToLower(symbol))
	log := m.log.WithComponent("trade_stream").WithField("symbol", symbol)
	m.runStream(ctx, url, log, m.handleTradeFrame)
}

func (m *Manager) runStream(ctx context.Context, url string, log *logger.Entry, handler func(*logger.Entry, []byte)) {
	backoff := NewBackoff(m.wsConfig.ReconnectBaseDelay.Std(), m.wsConfig.ReconnectMaxDelay.Std(), 0.2)

	for {
		if ctx.Err() != nil {
			return
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
		if err != nil {
			log.WithError(err).WithField("url", url).Warn("failed to connect to websocket")
			if backoff.wait(ctx) {
				return
			}
			continue
		}

		log.WithField("url", url).Info("websocket connected")
		backoff.Reset()

		// Closing the connection is the only way to unblock a pending read,
		// so cancellation tears the socket down instead of waiting for it.
		connCtx, connCancel := context.WithCancel(ctx)
		go func() {
			<-connCtx.Done()
			conn.Close()
		}()
		go m.pingLoop(connCtx, connCancel, conn, log)

		err = m.readMessages(connCtx, conn, log, handler)
		connCancel()

		if ctx.Err() != nil {
			return
		}
		if err != nil {
			log.WithError(err).Warn("websocket read loop ended")
		}
		if backoff.wait(ctx) {
			return
		}
	}
}

func (m *Manager) readMessages(ctx context.Context, conn *websocket.Conn, log *logger.Entry, handler func(*logger.Entry, []byte)) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		handler(log, msg)
	}
}

// pingLoop keeps the connection alive. A failed ping cancels the connection
// context, which closes the socket and unblocks the read loop.
func (m *Manager) pingLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, log *logger.Entry) {
	interval := m.wsConfig.PingInterval.Std()
	if interval <= 0 {
		interval = defaultPingInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deadline := time.Now().Add(time.Second)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				log.WithError(err).Warn("failed to send websocket ping")
				cancel()
				return
			}
		}
	}
}

// handleTickerFrame parses an all-market ticker array frame and forwards it.
// Malformed frames are logged and skipped.
func (m *Manager) handleTickerFrame(log *logger.Entry, raw []byte) {
	var tickers []models.TickerData
	if err := json.Unmarshal(raw, &tickers); err != nil {
		log.WithError(err).Warn("failed to parse ticker frame")
		return
	}
	if len(tickers) == 0 {
		return
	}
	m.channels.TrySendStream(models.StreamMessage{Tickers: tickers})
}

// handleTradeFrame parses a single trade frame and forwards it.
func (m *Manager) handleTradeFrame(log *logger.Entry, raw []byte) {
	var trade models.TradeData
	if err := json.Unmarshal(raw, &trade); err != nil {
		log.WithError(err).Warn("failed to parse trade frame")
		return
	}
	if trade.Symbol == "" {
		log.Warn("trade frame missing symbol, skipping")
		return
	}
	m.channels.TrySendStream(models.StreamMessage{Trade: &trade})
}
