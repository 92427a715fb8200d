package telegram

import (
	"strings"
	"testing"

	"signalflow/models"
)

func TestFormatAlertPump(t *testing.T) {
	alert := models.Alert{
		Type:   models.AlertPumpDetected,
		Symbol: "BTCUSDT",
		Price:  50000.12345678,
		Details: models.AlertDetails{
			PriceChangePct: models.Float(6.25),
			VolumeRatio:    models.Float(4.2),
			Timeframe:      "60s",
		},
		Timestamp: 1700000000, // 2023-11-14 22:13:20 UTC
		Exchange:  "Binance",
	}

	msg := FormatAlert(alert)

	for _, want := range []string{
		"🚀",
		"PUMP DETECTED",
		"<b>BTCUSDT</b> on Binance",
		"https://www.coinglass.com/tv/Binance_BTCUSDT",
		"Price: $50000.12345678 (+6.25%)",
		"Volume: 4.2x average",
		"Timeframe: 60s",
		"Time: 22:13:20 UTC",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
	if strings.Contains(msg, "CVD Change") {
		t.Error("CVD line should be omitted when the detail is absent")
	}
}

func TestFormatAlertNegativeChange(t *testing.T) {
	alert := models.Alert{
		Type:   models.AlertDumpDetected,
		Symbol: "ETHUSDT",
		Price:  3000.0,
		Details: models.AlertDetails{
			PriceChangePct: models.Float(-5.5),
			VolumeRatio:    models.Float(3.0),
			Timeframe:      "60s",
		},
		Timestamp: 1700000000,
		Exchange:  "Binance",
	}

	msg := FormatAlert(alert)
	if !strings.Contains(msg, "(-5.50%)") {
		t.Errorf("message missing signed negative change:\n%s", msg)
	}
	if !strings.Contains(msg, "DUMP DETECTED") {
		t.Errorf("message missing headline:\n%s", msg)
	}
}

func TestFormatAlertSetupIncludesCVD(t *testing.T) {
	alert := models.Alert{
		Type:   models.AlertLongSetupConfirmed,
		Symbol: "SOLUSDT",
		Price:  150.0,
		Details: models.AlertDetails{
			PriceChangePct: models.Float(1.2),
			VolumeRatio:    models.Float(5.0),
			CVDChange:      models.Float(12345.67),
			Timeframe:      "breakout",
		},
		Timestamp: 1700000000,
		Exchange:  "Binance",
	}

	msg := FormatAlert(alert)
	for _, want := range []string{
		"LONG SETUP CONFIRMED",
		"CVD Change: 12345.67",
		"Timeframe: breakout",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestFormatAlertHeadlines(t *testing.T) {
	cases := []struct {
		alertType models.AlertType
		want      string
	}{
		{models.AlertPumpDetected, "PUMP DETECTED"},
		{models.AlertDumpDetected, "DUMP DETECTED"},
		{models.AlertAccumulationDetected, "ACCUMULATION"},
		{models.AlertDistributionDetected, "DISTRIBUTION"},
		{models.AlertLongSetupConfirmed, "LONG SETUP CONFIRMED"},
		{models.AlertShortSetupConfirmed, "SHORT SETUP CONFIRMED"},
	}
	for _, c := range cases {
		msg := FormatAlert(models.Alert{Type: c.alertType, Symbol: "XUSDT", Exchange: "Binance"})
		if !strings.Contains(msg, c.want) {
			t.Errorf("%v headline missing %q", c.alertType, c.want)
		}
	}
}
