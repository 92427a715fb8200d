package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	appconfig "signalflow/config"
	"signalflow/internal/channel"
	"signalflow/logger"
)

func testStreamManager() (*Manager, *channel.Manager) {
	channels := channel.NewManager(appconfig.ChannelsConfig{
		StreamBuffer: 10,
		AlertBuffer:  10,
		Tier1Buffer:  10,
	})
	wsConfig := appconfig.WebSocketConfig{
		PingInterval:       appconfig.Duration(20 * time.Second),
		ReconnectBaseDelay: appconfig.Duration(time.Second),
		ReconnectMaxDelay:  appconfig.Duration(10 * time.Second),
	}
	return NewManager("wss://example.invalid/ws", wsConfig, channels), channels
}

func TestHandleTickerFrame(t *testing.T) {
	m, channels := testStreamManager()
	log := logger.GetLogger().WithComponent("test")

	raw := []byte(`[{"s":"BTCUSDT","c":"50000.0","p":"1000.0","P":"2.04","v":"12345.6","q":"617280000","o":"49000.0","h":"51000.0","l":"48500.0","n":987654}]`)
	m.handleTickerFrame(log, raw)

	select {
	case msg := <-channels.StreamReader():
		if len(msg.Tickers) != 1 {
			t.Fatalf("got %d tickers, want 1", len(msg.Tickers))
		}
		ticker := msg.Tickers[0]
		if ticker.Symbol != "BTCUSDT" {
			t.Errorf("symbol = %q", ticker.Symbol)
		}
		if ticker.CurrentPrice != "50000.0" {
			t.Errorf("price = %q", ticker.CurrentPrice)
		}
		if ticker.NumberOfTrades != 987654 {
			t.Errorf("trades = %d", ticker.NumberOfTrades)
		}
	default:
		t.Fatal("expected a stream message")
	}
}

func TestHandleTickerFrameMalformed(t *testing.T) {
	m, channels := testStreamManager()
	log := logger.GetLogger().WithComponent("test")

	m.handleTickerFrame(log, []byte(`{"not":"an array"}`))
	m.handleTickerFrame(log, []byte(`garbage`))
	m.handleTickerFrame(log, []byte(`[]`))

	select {
	case msg := <-channels.StreamReader():
		t.Fatalf("unexpected message from malformed frames: %+v", msg)
	default:
	}
}

func TestHandleTradeFrame(t *testing.T) {
	m, channels := testStreamManager()
	log := logger.GetLogger().WithComponent("test")

	raw := []byte(`{"s":"ETHUSDT","p":"3000.5","q":"1.25","m":true,"T":1700000000000}`)
	m.handleTradeFrame(log, raw)

	select {
	case msg := <-channels.StreamReader():
		if msg.Trade == nil {
			t.Fatal("expected a trade message")
		}
		if msg.Trade.Symbol != "ETHUSDT" || msg.Trade.Price != "3000.5" {
			t.Errorf("trade = %+v", msg.Trade)
		}
		if !msg.Trade.IsBuyerMaker {
			t.Error("expected buyer-maker flag set")
		}
	default:
		t.Fatal("expected a stream message")
	}
}

func TestRunTradeStreamStopsOnCancel(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		// One frame, then hold the connection open without sending more.
		conn.WriteMessage(websocket.TextMessage, []byte(`{"s":"BTCUSDT","p":"1.0","q":"2.0","m":false}`))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	channels := channel.NewManager(appconfig.ChannelsConfig{
		StreamBuffer: 10,
		AlertBuffer:  10,
		Tier1Buffer:  10,
	})
	m := NewManager(wsURL, appconfig.WebSocketConfig{
		PingInterval:       appconfig.Duration(20 * time.Second),
		ReconnectBaseDelay: appconfig.Duration(10 * time.Millisecond),
		ReconnectMaxDelay:  appconfig.Duration(100 * time.Millisecond),
	}, channels)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.RunTradeStream(ctx, "BTCUSDT")
		close(done)
	}()

	// Wait for the first frame so the stream is known to be in its read loop.
	select {
	case msg := <-channels.StreamReader():
		if msg.Trade == nil || msg.Trade.Symbol != "BTCUSDT" {
			t.Fatalf("unexpected stream message: %+v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("stream never delivered the first trade frame")
	}

	// Cancellation must unblock the pending read and end the stream task.
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream task still running after context cancellation")
	}
}

func TestHandleTradeFrameMissingSymbol(t *testing.T) {
	m, channels := testStreamManager()
	log := logger.GetLogger().WithComponent("test")

	m.handleTradeFrame(log, []byte(`{"p":"3000.5","q":"1.25"}`))
	m.handleTradeFrame(log, []byte(`not json`))

	select {
	case msg := <-channels.StreamReader():
		t.Fatalf("unexpected message: %+v", msg)
	default:
	}
}
