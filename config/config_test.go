package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const validYAML = `
signalflow:
  name: "signalflow"
  version: "test"

exchange:
  binance:
    ws_url: "wss://stream.binance.com:9443/ws"
    api_url: "https://api.binance.com"

filters:
  quote_asset: "USDT"
  min_quote_volume: 1000000
  min_price: 0.000001
  min_trades_24h: 1000
  stale_data_threshold: "5m"

scoring:
  tier1_threshold: 0.7
  tier2_threshold: 0.4
  max_tier1_symbols: 50
  rescore_interval: "10s"
  weights:
    volume: 0.4
    volatility: 0.4
    activity: 0.2

detection:
  pump_threshold_pct: 5.0
  dump_threshold_pct: -5.0
  accumulation_range_pct: 2.0
  volume_spike_ratio: 3.0
  breakout_threshold_pct: 1.0
  window_size: "60s"
  accumulation_window: "2m"
  distribution_window: "3m"

telegram:
  bot_token: "123456:token"
  chat_id: "-1001234567890"
  alert_cooldown: "5m"
  max_alerts_per_minute: 10
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadConfigValid(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Filters.QuoteAsset != "USDT" {
		t.Errorf("quote asset = %q", cfg.Filters.QuoteAsset)
	}
	if cfg.Scoring.Tier1Threshold != 0.7 {
		t.Errorf("tier1 threshold = %v", cfg.Scoring.Tier1Threshold)
	}
	if cfg.Detection.WindowSize.Std() != 60*time.Second {
		t.Errorf("window size = %v", cfg.Detection.WindowSize.Std())
	}
	if cfg.Telegram.AlertCooldown.Seconds() != 300 {
		t.Errorf("cooldown = %v seconds", cfg.Telegram.AlertCooldown.Seconds())
	}
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Channels.StreamBuffer != 1000 {
		t.Errorf("stream buffer default = %d, want 1000", cfg.Channels.StreamBuffer)
	}
	if cfg.WebSocket.PingInterval.Std() != 20*time.Second {
		t.Errorf("ping interval default = %v", cfg.WebSocket.PingInterval.Std())
	}
	if cfg.Performance.PriceWindowSize != 300 {
		t.Errorf("price window default = %d", cfg.Performance.PriceWindowSize)
	}
	if cfg.Exchange.Binance.RequestsPerSecond != 5 {
		t.Errorf("requests per second default = %v", cfg.Exchange.Binance.RequestsPerSecond)
	}
}

func TestLoadConfigExpandsEnv(t *testing.T) {
	t.Setenv("TEST_SIGNALFLOW_TOKEN", "env-token-value")

	path := writeConfig(t, replaceLine(validYAML, `bot_token: "123456:token"`, `bot_token: "${TEST_SIGNALFLOW_TOKEN}"`))

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Telegram.BotToken != "env-token-value" {
		t.Fatalf("bot token = %q, want env expansion", cfg.Telegram.BotToken)
	}
}

func TestLoadConfigUnsetEnvBecomesEmpty(t *testing.T) {
	path := writeConfig(t, replaceLine(validYAML, `bot_token: "123456:token"`, `bot_token: "${DEFINITELY_NOT_SET_VAR}"`))

	// Empty bot token fails validation.
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected validation error for empty bot token")
	}
}

func TestLoadConfigRejectsInvertedThresholds(t *testing.T) {
	path := writeConfig(t, replaceLine(validYAML, "tier1_threshold: 0.7", "tier1_threshold: 0.3"))
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for tier1 <= tier2 threshold")
	}
}

func TestLoadConfigRejectsPositiveDumpThreshold(t *testing.T) {
	path := writeConfig(t, replaceLine(validYAML, "dump_threshold_pct: -5.0", "dump_threshold_pct: 5.0"))
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for non-negative dump threshold")
	}
}

func TestLoadConfigRejectsBadDuration(t *testing.T) {
	path := writeConfig(t, replaceLine(validYAML, `rescore_interval: "10s"`, `rescore_interval: "ten seconds"`))
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for unparseable duration")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func replaceLine(content, from, to string) string {
	return strings.Replace(content, from, to, 1)
}
