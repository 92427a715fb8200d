// Package dispatch gates alerts between the engine and the delivery
// transport: per-(symbol,type) cooldowns, a sliding one-minute rate window
// and priority ordering of anything that queues up.
package dispatch

import (
	"context"

	"github.com/google/uuid"

	appconfig "signalflow/config"
	"signalflow/internal/metrics"
	"signalflow/logger"
	"signalflow/models"
)

// Notifier delivers an alert to the outside world. Implemented by the
// telegram client; tests substitute a recorder.
type Notifier interface {
	Send(alert models.Alert) error
}

type cooldownKey struct {
	symbol    string
	alertType models.AlertType
}

type Dispatcher struct {
	config   appconfig.TelegramConfig
	notifier Notifier
	log      *logger.Log

	lastAlertTimes map[cooldownKey]models.Timestamp
	dispatchTimes  []models.Timestamp
	queue          alertQueue
}

func NewDispatcher(cfg appconfig.TelegramConfig, notifier Notifier) *Dispatcher {
	return &Dispatcher{
		config:         cfg,
		notifier:       notifier,
		log:            logger.GetLogger(),
		lastAlertTimes: make(map[cooldownKey]models.Timestamp),
	}
}

// Dispatch applies cooldown and rate limiting, then hands the alert to the
// notifier. Suppressed alerts and delivery failures are logged and dropped;
// they never poison subsequent alerts.
func (d *Dispatcher) Dispatch(alert models.Alert) {
	log := d.log.WithComponent("dispatcher").WithFields(logger.Fields{
		"symbol": alert.Symbol,
		"type":   alert.Type.String(),
	})

	if !d.checkCooldown(&alert) {
		log.Debug("alert suppressed by cooldown")
		metrics.IncrementAlertSuppressed(alert.Type.String(), "cooldown")
		return
	}

	if !d.checkRateLimit() {
		log.Warn("alert suppressed by rate limit")
		metrics.IncrementAlertSuppressed(alert.Type.String(), "rate_limit")
		return
	}

	if err := d.notifier.Send(alert); err != nil {
		log.WithError(err).Error("failed to deliver alert")
		return
	}

	d.lastAlertTimes[cooldownKey{alert.Symbol, alert.Type}] = alert.Timestamp
	d.dispatchTimes = append(d.dispatchTimes, alert.Timestamp)

	log.WithFields(logger.Fields{
		"dispatch_id": uuid.NewString(),
		"price":       alert.Price,
	}).Info("alert delivered")
	metrics.IncrementAlertDispatched(alert.Type.String())
}

// checkCooldown reports whether enough time has passed since the last alert
// for the same (symbol, type) pair.
func (d *Dispatcher) checkCooldown(alert *models.Alert) bool {
	last, ok := d.lastAlertTimes[cooldownKey{alert.Symbol, alert.Type}]
	if !ok {
		return true
	}
	return alert.Timestamp-last >= d.config.AlertCooldown.Seconds()
}

// checkRateLimit prunes dispatch timestamps older than one minute and
// reports whether another dispatch fits in the window.
func (d *Dispatcher) checkRateLimit() bool {
	cutoff := models.Now() - 60

	kept := d.dispatchTimes[:0]
	for _, ts := range d.dispatchTimes {
		if ts >= cutoff {
			kept = append(kept, ts)
		}
	}
	d.dispatchTimes = kept

	return len(d.dispatchTimes) < d.config.MaxAlertsPerMinute
}

// Run consumes alerts until the context is cancelled. When several alerts are
// already buffered they are drained into the priority queue first so the most
// actionable ones go out ahead of the rest.
func (d *Dispatcher) Run(ctx context.Context, alerts <-chan models.Alert) {
	log := d.log.WithComponent("dispatcher")
	log.Info("starting alert dispatcher")

	for {
		select {
		case <-ctx.Done():
			log.Info("alert dispatcher stopped")
			return
		case alert, ok := <-alerts:
			if !ok {
				log.Info("alert channel closed, dispatcher stopping")
				return
			}
			d.queue.Push(alert)
			d.drainPending(alerts)
			if n := d.queue.Len(); n > 1 {
				log.WithField("queued", n).Debug("dispatching queued alerts by priority")
			}

			for {
				next, ok := d.queue.Pop()
				if !ok {
					break
				}
				d.Dispatch(next)
			}
		}
	}
}

// drainPending moves any already-buffered alerts into the priority queue
// without blocking.
func (d *Dispatcher) drainPending(alerts <-chan models.Alert) {
	for {
		select {
		case alert, ok := <-alerts:
			if !ok {
				return
			}
			d.queue.Push(alert)
		default:
			return
		}
	}
}
