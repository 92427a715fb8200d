package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so yaml values like "30s" or "5m" decode
// directly.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration '%s': %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Seconds returns the duration in whole seconds.
func (d Duration) Seconds() int64 {
	return int64(time.Duration(d) / time.Second)
}

type Config struct {
	Signalflow  AppConfig         `yaml:"signalflow"`
	Exchange    ExchangeConfig    `yaml:"exchange"`
	Filters     FilterConfig      `yaml:"filters"`
	Scoring     ScoringConfig     `yaml:"scoring"`
	Detection   DetectionConfig   `yaml:"detection"`
	Telegram    TelegramConfig    `yaml:"telegram"`
	WebSocket   WebSocketConfig   `yaml:"websocket"`
	Channels    ChannelsConfig    `yaml:"channels"`
	Performance PerformanceConfig `yaml:"performance"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	CloudWatch  CloudWatchConfig  `yaml:"cloudwatch"`
	Logging     LoggingConfig     `yaml:"logging"`
}

type AppConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type ExchangeConfig struct {
	Binance BinanceConfig `yaml:"binance"`
}

type BinanceConfig struct {
	WsURL             string  `yaml:"ws_url"`
	APIURL            string  `yaml:"api_url"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// FilterConfig holds the hard filters a ticker must pass before the symbol is
// tracked at all.
type FilterConfig struct {
	QuoteAsset         string   `yaml:"quote_asset"`
	MinQuoteVolume     float64  `yaml:"min_quote_volume"`
	MinPrice           float64  `yaml:"min_price"`
	MinTrades24h       int64    `yaml:"min_trades_24h"`
	StaleDataThreshold Duration `yaml:"stale_data_threshold"`
}

type ScoringConfig struct {
	Tier1Threshold  float64        `yaml:"tier1_threshold"`
	Tier2Threshold  float64        `yaml:"tier2_threshold"`
	MaxTier1Symbols int            `yaml:"max_tier1_symbols"`
	RescoreInterval Duration       `yaml:"rescore_interval"`
	Weights         ScoringWeights `yaml:"weights"`
}

type ScoringWeights struct {
	Volume     float64 `yaml:"volume"`
	Volatility float64 `yaml:"volatility"`
	Activity   float64 `yaml:"activity"`
}

type DetectionConfig struct {
	PumpThresholdPct     float64  `yaml:"pump_threshold_pct"`
	DumpThresholdPct     float64  `yaml:"dump_threshold_pct"`
	AccumulationRangePct float64  `yaml:"accumulation_range_pct"`
	VolumeSpikeRatio     float64  `yaml:"volume_spike_ratio"`
	BreakoutThresholdPct float64  `yaml:"breakout_threshold_pct"`
	WindowSize           Duration `yaml:"window_size"`
	AccumulationWindow   Duration `yaml:"accumulation_window"`
	DistributionWindow   Duration `yaml:"distribution_window"`
}

type TelegramConfig struct {
	BotToken           string   `yaml:"bot_token"`
	ChatID             string   `yaml:"chat_id"`
	AlertCooldown      Duration `yaml:"alert_cooldown"`
	MaxAlertsPerMinute int      `yaml:"max_alerts_per_minute"`
}

type WebSocketConfig struct {
	PingInterval       Duration `yaml:"ping_interval"`
	ReconnectBaseDelay Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay  Duration `yaml:"reconnect_max_delay"`
}

type ChannelsConfig struct {
	StreamBuffer int `yaml:"stream_buffer"`
	AlertBuffer  int `yaml:"alert_buffer"`
	Tier1Buffer  int `yaml:"tier1_buffer"`
}

type PerformanceConfig struct {
	PriceWindowSize int `yaml:"price_window_size"`
	CVDHistorySize  int `yaml:"cvd_history_size"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

type CloudWatchConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Region    string `yaml:"region"`
	Namespace string `yaml:"namespace"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv substitutes ${VAR} references with environment variable values so
// secrets like bot tokens stay out of the config file.
func expandEnv(raw []byte) []byte {
	return envVarPattern.ReplaceAllFunc(raw, func(match []byte) []byte {
		name := envVarPattern.FindSubmatch(match)[1]
		return []byte(os.Getenv(string(name)))
	})
}

// LoadConfig reads, expands and validates the yaml configuration at path.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(expandEnv(raw), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Filters.QuoteAsset == "" {
		c.Filters.QuoteAsset = "USDT"
	}
	if c.Filters.StaleDataThreshold == 0 {
		c.Filters.StaleDataThreshold = Duration(5 * time.Minute)
	}
	if c.Scoring.RescoreInterval == 0 {
		c.Scoring.RescoreInterval = Duration(10 * time.Second)
	}
	if c.WebSocket.PingInterval == 0 {
		c.WebSocket.PingInterval = Duration(20 * time.Second)
	}
	if c.WebSocket.ReconnectBaseDelay == 0 {
		c.WebSocket.ReconnectBaseDelay = Duration(time.Second)
	}
	if c.WebSocket.ReconnectMaxDelay == 0 {
		c.WebSocket.ReconnectMaxDelay = Duration(60 * time.Second)
	}
	if c.Channels.StreamBuffer <= 0 {
		c.Channels.StreamBuffer = 1000
	}
	if c.Channels.AlertBuffer <= 0 {
		c.Channels.AlertBuffer = 100
	}
	if c.Channels.Tier1Buffer <= 0 {
		c.Channels.Tier1Buffer = 10
	}
	if c.Performance.PriceWindowSize <= 0 {
		c.Performance.PriceWindowSize = 300
	}
	if c.Performance.CVDHistorySize <= 0 {
		c.Performance.CVDHistorySize = 1000
	}
	if c.Telegram.MaxAlertsPerMinute <= 0 {
		c.Telegram.MaxAlertsPerMinute = 10
	}
	if c.Exchange.Binance.RequestsPerSecond <= 0 {
		c.Exchange.Binance.RequestsPerSecond = 5
	}
	if c.Exchange.Binance.Burst <= 0 {
		c.Exchange.Binance.Burst = 10
	}
}

func (c *Config) validate() error {
	if c.Telegram.BotToken == "" || c.Telegram.BotToken == "YOUR_BOT_TOKEN_HERE" {
		return fmt.Errorf("telegram.bot_token must be set")
	}
	if c.Telegram.ChatID == "" || c.Telegram.ChatID == "YOUR_CHAT_ID_HERE" {
		return fmt.Errorf("telegram.chat_id must be set")
	}
	if c.Filters.MinQuoteVolume <= 0 {
		return fmt.Errorf("filters.min_quote_volume must be positive")
	}
	if c.Scoring.Tier1Threshold <= c.Scoring.Tier2Threshold {
		return fmt.Errorf("scoring.tier1_threshold must be greater than tier2_threshold")
	}
	if c.Scoring.MaxTier1Symbols <= 0 {
		return fmt.Errorf("scoring.max_tier1_symbols must be greater than 0")
	}
	w := c.Scoring.Weights
	if w.Volume < 0 || w.Volatility < 0 || w.Activity < 0 {
		return fmt.Errorf("scoring weights must be non-negative")
	}
	if w.Volume+w.Volatility+w.Activity == 0 {
		return fmt.Errorf("at least one scoring weight must be positive")
	}
	if c.Detection.PumpThresholdPct <= 0 {
		return fmt.Errorf("detection.pump_threshold_pct must be positive")
	}
	if c.Detection.DumpThresholdPct >= 0 {
		return fmt.Errorf("detection.dump_threshold_pct must be negative")
	}
	if c.Detection.VolumeSpikeRatio <= 1.0 {
		return fmt.Errorf("detection.volume_spike_ratio must be greater than 1.0")
	}
	if c.Exchange.Binance.WsURL == "" || c.Exchange.Binance.APIURL == "" {
		return fmt.Errorf("exchange.binance urls must be set")
	}
	return nil
}
