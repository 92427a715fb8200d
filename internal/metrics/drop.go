package metrics

import "signalflow/logger"

// DropChannel identifies the channel a dropped message was bound for.
type DropChannel string

const (
	// DropChannelStream records dropped ticker/trade messages on the shared
	// stream channel.
	DropChannelStream DropChannel = "stream"
	// DropChannelAlert records alerts dropped before the dispatcher saw them.
	DropChannelAlert DropChannel = "alert"
	// DropChannelTier1 records dropped Tier1 membership updates.
	DropChannelTier1 DropChannel = "tier1"
)

// EmitDropMetric logs a warning and counts a message dropped on a full
// channel. Dropping the newest message keeps producers live when the engine
// falls behind; each drop is visible here so the capacity can be tuned.
func EmitDropMetric(log *logger.Log, channel DropChannel, symbol string) {
	if messagesDropped != nil {
		messagesDropped.WithLabelValues(string(channel)).Inc()
	}

	fields := logger.Fields{"channel": string(channel)}
	if symbol != "" {
		fields["symbol"] = symbol
	}
	log.WithComponent("channels").WithFields(fields).Warn("channel full, dropping message")
}
