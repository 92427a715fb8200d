// Package detect runs the pattern state machine over Tier1 symbols. Each
// trade drives one detection pass which may emit alerts and advance the
// symbol's market state.
package detect

import (
	appconfig "signalflow/config"
	"signalflow/models"
)

const (
	// Momentum checks need a minimally populated window before a percent
	// change means anything.
	minPumpSamples         = 10
	minAccumulationSamples = 20
	minDistributionSamples = 30

	// newExtremeWindowSecs bounds the lookback for the new-high/new-low
	// confirmation on momentum alerts.
	newExtremeWindowSecs = 300

	// stateTimeoutSecs resets a breakout/breakdown state that was never
	// cleared, so symbols cannot wedge in a setup state forever.
	stateTimeoutSecs = 300

	// breakoutWindowSecs is the confirmation window for volume and CVD on a
	// range exit.
	breakoutWindowSecs = 30

	// rangeVolumeFloor is the minimum volume ratio for accumulation and
	// distribution; quiet ranges are not interesting.
	rangeVolumeFloor = 1.5

	// extremeTolerance treats a price within 0.1% of the window extreme as a
	// new high/low.
	extremeTolerance = 0.001
)

// now is swapped out by tests that need deterministic windows.
var now = models.Now

type Detector struct {
	config appconfig.DetectionConfig
}

func NewDetector(cfg appconfig.DetectionConfig) *Detector {
	return &Detector{config: cfg}
}

// Detect evaluates one trade-driven pass for a symbol. Pump and dump are
// checked first in priority order; range logic then branches on the current
// state. At most one momentum and one range alert are produced per call.
func (d *Detector) Detect(s *models.SymbolSnapshot) []models.Alert {
	var alerts []models.Alert
	ts := now()

	if alert := d.detectPump(s, ts); alert != nil {
		s.SetState(models.StatePumpDetected, ts)
		alerts = append(alerts, *alert)
	} else if alert := d.detectDump(s, ts); alert != nil {
		s.SetState(models.StateDumpDetected, ts)
		alerts = append(alerts, *alert)
	}

	// Range logic needs CVD, which only Tier1 symbols accumulate.
	if len(s.CVDHistory) == 0 {
		return alerts
	}

	switch s.State {
	case models.StateIdle, models.StatePumpDetected, models.StateDumpDetected:
		if alert := d.detectAccumulation(s, ts); alert != nil {
			s.SetState(models.StateAccumulation, ts)
			alerts = append(alerts, *alert)
		} else if alert := d.detectDistribution(s, ts); alert != nil {
			s.SetState(models.StateDistribution, ts)
			alerts = append(alerts, *alert)
		}

	case models.StateAccumulation:
		// The breakout must clear the range established before this trade;
		// extending first would make the check unsatisfiable.
		rangeHigh := s.Range.High
		d.extendRange(s)
		if alert := d.detectBreakoutLong(s, rangeHigh, ts); alert != nil {
			s.SetState(models.StateBreakoutLong, ts)
			alerts = append(alerts, *alert)
		}

	case models.StateDistribution:
		rangeLow := s.Range.Low
		d.extendRange(s)
		if alert := d.detectBreakdownShort(s, rangeLow, ts); alert != nil {
			s.SetState(models.StateBreakdownShort, ts)
			alerts = append(alerts, *alert)
		}

	case models.StateBreakoutLong, models.StateBreakdownShort:
		if ts-s.StateSince > stateTimeoutSecs {
			s.SetState(models.StateIdle, ts)
		}
	}

	return alerts
}

func (d *Detector) detectPump(s *models.SymbolSnapshot, ts models.Timestamp) *models.Alert {
	windowStart := ts - d.config.WindowSize.Seconds()
	prices := models.WindowValuesSince(s.PriceWindow, windowStart)
	if len(prices) < minPumpSamples {
		return nil
	}

	oldest := prices[0]
	if oldest == 0 {
		return nil
	}
	priceChangePct := ((s.Price - oldest) / oldest) * 100.0
	if priceChangePct < d.config.PumpThresholdPct {
		return nil
	}

	volumeRatio := d.volumeRatio(s, windowStart)
	if volumeRatio < d.config.VolumeSpikeRatio {
		return nil
	}

	if !d.isNewHigh(s, ts-newExtremeWindowSecs) {
		return nil
	}

	return &models.Alert{
		Type:   models.AlertPumpDetected,
		Symbol: s.Symbol,
		Price:  s.Price,
		Details: models.AlertDetails{
			PriceChangePct: models.Float(priceChangePct),
			VolumeRatio:    models.Float(volumeRatio),
			Timeframe:      "60s",
		},
		Timestamp: ts,
	}
}

func (d *Detector) detectDump(s *models.SymbolSnapshot, ts models.Timestamp) *models.Alert {
	windowStart := ts - d.config.WindowSize.Seconds()
	prices := models.WindowValuesSince(s.PriceWindow, windowStart)
	if len(prices) < minPumpSamples {
		return nil
	}

	oldest := prices[0]
	if oldest == 0 {
		return nil
	}
	priceChangePct := ((s.Price - oldest) / oldest) * 100.0
	if priceChangePct > d.config.DumpThresholdPct {
		return nil
	}

	volumeRatio := d.volumeRatio(s, windowStart)
	if volumeRatio < d.config.VolumeSpikeRatio {
		return nil
	}

	if !d.isNewLow(s, ts-newExtremeWindowSecs) {
		return nil
	}

	return &models.Alert{
		Type:   models.AlertDumpDetected,
		Symbol: s.Symbol,
		Price:  s.Price,
		Details: models.AlertDetails{
			PriceChangePct: models.Float(priceChangePct),
			VolumeRatio:    models.Float(volumeRatio),
			Timeframe:      "60s",
		},
		Timestamp: ts,
	}
}

// detectAccumulation looks for a tight price range with rising CVD and
// elevated volume while the symbol is not making new lows.
func (d *Detector) detectAccumulation(s *models.SymbolSnapshot, ts models.Timestamp) *models.Alert {
	windowStart := ts - d.config.AccumulationWindow.Seconds()
	prices := models.WindowValuesSince(s.PriceWindow, windowStart)
	if len(prices) < minAccumulationSamples {
		return nil
	}
	if s.Price == 0 {
		return nil
	}

	maxPrice, minPrice := prices[0], prices[0]
	for _, p := range prices[1:] {
		if p > maxPrice {
			maxPrice = p
		}
		if p < minPrice {
			minPrice = p
		}
	}
	priceRangePct := ((maxPrice - minPrice) / s.Price) * 100.0
	if priceRangePct >= d.config.AccumulationRangePct {
		return nil
	}

	cvdSlope := d.cvdSlope(s, windowStart)
	if cvdSlope <= 0 {
		return nil
	}

	volumeRatio := d.volumeRatio(s, windowStart)
	if volumeRatio < rangeVolumeFloor {
		return nil
	}

	if d.isNewLow(s, windowStart) {
		return nil
	}

	return &models.Alert{
		Type:   models.AlertAccumulationDetected,
		Symbol: s.Symbol,
		Price:  s.Price,
		Details: models.AlertDetails{
			PriceChangePct: models.Float(priceRangePct),
			VolumeRatio:    models.Float(volumeRatio),
			CVDChange:      models.Float(cvdSlope),
			Timeframe:      "2m",
		},
		Timestamp: ts,
	}
}

// detectDistribution looks for stalling price with flat-to-negative CVD on
// elevated volume.
func (d *Detector) detectDistribution(s *models.SymbolSnapshot, ts models.Timestamp) *models.Alert {
	windowStart := ts - d.config.DistributionWindow.Seconds()
	prices := models.WindowValuesSince(s.PriceWindow, windowStart)
	if len(prices) < minDistributionSamples {
		return nil
	}

	if d.priceTrend(s, windowStart) > 0.1 {
		// Still trending up.
		return nil
	}

	cvdSlope := d.cvdSlope(s, windowStart)
	if cvdSlope > 0 {
		return nil
	}

	volumeRatio := d.volumeRatio(s, windowStart)
	if volumeRatio < rangeVolumeFloor {
		return nil
	}

	return &models.Alert{
		Type:   models.AlertDistributionDetected,
		Symbol: s.Symbol,
		Price:  s.Price,
		Details: models.AlertDetails{
			VolumeRatio: models.Float(volumeRatio),
			CVDChange:   models.Float(cvdSlope),
			Timeframe:   "3m",
		},
		Timestamp: ts,
	}
}

// detectBreakoutLong confirms a range exit above the accumulation high with a
// volume spike and rising CVD over the last 30 seconds.
func (d *Detector) detectBreakoutLong(s *models.SymbolSnapshot, rangeHigh float64, ts models.Timestamp) *models.Alert {
	if rangeHigh <= 0 {
		return nil
	}
	threshold := rangeHigh * (1.0 + d.config.BreakoutThresholdPct/100.0)
	if s.Price < threshold {
		return nil
	}

	windowStart := ts - breakoutWindowSecs
	volumeRatio := d.volumeRatio(s, windowStart)
	if volumeRatio < d.config.VolumeSpikeRatio {
		return nil
	}

	cvdSlope := d.cvdSlope(s, windowStart)
	if cvdSlope <= 0 {
		return nil
	}

	priceChangePct := ((s.Price - rangeHigh) / rangeHigh) * 100.0

	return &models.Alert{
		Type:   models.AlertLongSetupConfirmed,
		Symbol: s.Symbol,
		Price:  s.Price,
		Details: models.AlertDetails{
			PriceChangePct: models.Float(priceChangePct),
			VolumeRatio:    models.Float(volumeRatio),
			CVDChange:      models.Float(cvdSlope),
			Timeframe:      "breakout",
		},
		Timestamp: ts,
	}
}

// detectBreakdownShort mirrors detectBreakoutLong below the distribution low
// with falling CVD.
func (d *Detector) detectBreakdownShort(s *models.SymbolSnapshot, rangeLow float64, ts models.Timestamp) *models.Alert {
	if rangeLow <= 0 {
		return nil
	}
	threshold := rangeLow * (1.0 - d.config.BreakoutThresholdPct/100.0)
	if s.Price > threshold {
		return nil
	}

	windowStart := ts - breakoutWindowSecs
	volumeRatio := d.volumeRatio(s, windowStart)
	if volumeRatio < d.config.VolumeSpikeRatio {
		return nil
	}

	cvdSlope := d.cvdSlope(s, windowStart)
	if cvdSlope >= 0 {
		return nil
	}

	priceChangePct := ((s.Price - rangeLow) / rangeLow) * 100.0

	return &models.Alert{
		Type:   models.AlertShortSetupConfirmed,
		Symbol: s.Symbol,
		Price:  s.Price,
		Details: models.AlertDetails{
			PriceChangePct: models.Float(priceChangePct),
			VolumeRatio:    models.Float(volumeRatio),
			CVDChange:      models.Float(cvdSlope),
			Timeframe:      "breakdown",
		},
		Timestamp: ts,
	}
}

func (d *Detector) extendRange(s *models.SymbolSnapshot) {
	if s.Range == nil {
		return
	}
	if s.Price > s.Range.High {
		s.Range.High = s.Price
	}
	if s.Price < s.Range.Low {
		s.Range.Low = s.Price
	}
}

// volumeRatio compares the average volume sample in the window against a
// per-second baseline derived from 24h quote volume.
func (d *Detector) volumeRatio(s *models.SymbolSnapshot, windowStart models.Timestamp) float64 {
	volumes := models.WindowValuesSince(s.VolumeWindow, windowStart)
	if len(volumes) == 0 {
		return 0
	}

	var sum float64
	for _, v := range volumes {
		sum += v
	}
	recentAvg := sum / float64(len(volumes))

	baseline := s.QuoteVolume24h / (24.0 * 3600.0)
	if baseline == 0 {
		return 0
	}
	return recentAvg / baseline
}

// cvdSlope is the difference between the last and first CVD values in the
// window, not a regression slope.
func (d *Detector) cvdSlope(s *models.SymbolSnapshot, windowStart models.Timestamp) float64 {
	recent := models.WindowValuesSince(s.CVDHistory, windowStart)
	if len(recent) < 2 {
		return 0
	}
	return recent[len(recent)-1] - recent[0]
}

func (d *Detector) priceTrend(s *models.SymbolSnapshot, windowStart models.Timestamp) float64 {
	prices := models.WindowValuesSince(s.PriceWindow, windowStart)
	if len(prices) < 2 {
		return 0
	}
	first := prices[0]
	if first == 0 {
		return 0
	}
	return ((prices[len(prices)-1] - first) / first) * 100.0
}

func (d *Detector) isNewHigh(s *models.SymbolSnapshot, windowStart models.Timestamp) bool {
	prices := models.WindowValuesSince(s.PriceWindow, windowStart)
	if len(prices) == 0 {
		return false
	}
	maxPrice := prices[0]
	for _, p := range prices[1:] {
		if p > maxPrice {
			maxPrice = p
		}
	}
	return s.Price >= maxPrice*(1.0-extremeTolerance)
}

func (d *Detector) isNewLow(s *models.SymbolSnapshot, windowStart models.Timestamp) bool {
	prices := models.WindowValuesSince(s.PriceWindow, windowStart)
	if len(prices) == 0 {
		return false
	}
	minPrice := prices[0]
	for _, p := range prices[1:] {
		if p < minPrice {
			minPrice = p
		}
	}
	return s.Price <= minPrice*(1.0+extremeTolerance)
}
