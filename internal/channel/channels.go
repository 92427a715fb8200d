// Package channel owns the bounded channels connecting the pipeline stages:
// stream readers -> engine -> dispatcher, plus the Tier1 membership feed to
// the subscription manager. All sends go through TrySend* helpers which drop
// the newest message with a warning instead of blocking the producer.
package channel

import (
	appconfig "signalflow/config"
	"signalflow/internal/metrics"
	"signalflow/logger"
	"signalflow/models"
)

type Manager struct {
	streamChan chan models.StreamMessage
	alertChan  chan models.Alert
	tier1Chan  chan []string
	log        *logger.Log
}

func NewManager(cfg appconfig.ChannelsConfig) *Manager {
	return &Manager{
		streamChan: make(chan models.StreamMessage, cfg.StreamBuffer),
		alertChan:  make(chan models.Alert, cfg.AlertBuffer),
		tier1Chan:  make(chan []string, cfg.Tier1Buffer),
		log:        logger.GetLogger(),
	}
}

func (m *Manager) StreamWriter() chan<- models.StreamMessage {
	return m.streamChan
}

func (m *Manager) StreamReader() <-chan models.StreamMessage {
	return m.streamChan
}

func (m *Manager) AlertWriter() chan<- models.Alert {
	return m.alertChan
}

func (m *Manager) AlertReader() <-chan models.Alert {
	return m.alertChan
}

func (m *Manager) Tier1Writer() chan<- []string {
	return m.tier1Chan
}

func (m *Manager) Tier1Reader() <-chan []string {
	return m.tier1Chan
}

// TrySendStream forwards a stream message without blocking. Returns false
// when the channel is full and the message was dropped.
func (m *Manager) TrySendStream(msg models.StreamMessage) bool {
	symbol := ""
	if msg.Trade != nil {
		symbol = msg.Trade.Symbol
	}
	return TrySend(m.streamChan, msg, m.log, metrics.DropChannelStream, symbol)
}

// TrySendAlert forwards an alert without blocking.
func (m *Manager) TrySendAlert(alert models.Alert) bool {
	return TrySend(m.alertChan, alert, m.log, metrics.DropChannelAlert, alert.Symbol)
}

// TrySendTier1 forwards a Tier1 membership update without blocking.
func (m *Manager) TrySendTier1(symbols []string) bool {
	return TrySend(m.tier1Chan, symbols, m.log, metrics.DropChannelTier1, "")
}

// TrySend performs a non-blocking send, emitting a drop metric on overflow.
// Stale data is worse than missing data for live alerting, so a slow consumer
// never stalls its producer.
func TrySend[T any](ch chan<- T, value T, log *logger.Log, channel metrics.DropChannel, symbol string) bool {
	select {
	case ch <- value:
		return true
	default:
		metrics.EmitDropMetric(log, channel, symbol)
		return false
	}
}
