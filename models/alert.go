package models

// AlertType identifies the detected pattern behind an alert.
type AlertType int

const (
	AlertPumpDetected AlertType = iota
	AlertDumpDetected
	AlertAccumulationDetected
	AlertDistributionDetected
	AlertLongSetupConfirmed
	AlertShortSetupConfirmed
)

func (t AlertType) String() string {
	switch t {
	case AlertPumpDetected:
		return "pump_detected"
	case AlertDumpDetected:
		return "dump_detected"
	case AlertAccumulationDetected:
		return "accumulation_detected"
	case AlertDistributionDetected:
		return "distribution_detected"
	case AlertLongSetupConfirmed:
		return "long_setup_confirmed"
	case AlertShortSetupConfirmed:
		return "short_setup_confirmed"
	default:
		return "unknown"
	}
}

// Priority orders alerts for dispatch: confirmed setups beat range
// detections, which beat raw momentum alerts.
func (t AlertType) Priority() int {
	switch t {
	case AlertLongSetupConfirmed, AlertShortSetupConfirmed:
		return 10
	case AlertAccumulationDetected, AlertDistributionDetected:
		return 7
	default:
		return 5
	}
}

// AlertDetails carries the optional measurements behind an alert. Nil fields
// are omitted from the delivered message.
type AlertDetails struct {
	PriceChangePct *float64
	VolumeRatio    *float64
	CVDChange      *float64
	Timeframe      string
}

// Alert is a single detection emitted by the engine and consumed by the
// dispatcher.
type Alert struct {
	Type      AlertType
	Symbol    string
	Price     float64
	Details   AlertDetails
	Timestamp Timestamp
	Exchange  string
}

// Float returns a pointer to v, for filling optional AlertDetails fields.
func Float(v float64) *float64 {
	return &v
}
