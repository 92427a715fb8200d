// Package scoring ranks symbols by interestingness. Scores combine 24h
// volume, volatility and trade activity into a single [0,1] value which
// drives tier assignment and Tier1 selection.
package scoring

import (
	"math"
	"sort"

	appconfig "signalflow/config"
	"signalflow/models"
)

type Scorer struct {
	config appconfig.ScoringConfig
}

func NewScorer(cfg appconfig.ScoringConfig) *Scorer {
	return &Scorer{config: cfg}
}

// CalculateScore returns the weighted interestingness score for a snapshot,
// clamped to [0,1].
func (s *Scorer) CalculateScore(snapshot *models.SymbolSnapshot) float64 {
	volumeScore := s.volumeScore(snapshot.QuoteVolume24h)
	volatilityScore := s.volatilityScore(snapshot.PriceChangePct24h)
	activityScore := s.activityScore(snapshot.Trades24h)

	w := s.config.Weights
	total := w.Volume*volumeScore + w.Volatility*volatilityScore + w.Activity*activityScore

	return clamp(total)
}

// volumeScore maps 24h quote volume onto [0,1] on a log scale: $10M is about
// 0.33, $100M about 0.67 and $1B saturates at 1.0.
func (s *Scorer) volumeScore(quoteVolume float64) float64 {
	if quoteVolume <= 0 {
		return 0
	}
	return clamp(math.Log10(quoteVolume/1_000_000.0) / 3.0)
}

// volatilityScore maps absolute 24h percent change onto [0,1]; 10% saturates.
func (s *Scorer) volatilityScore(priceChangePct float64) float64 {
	return clamp(math.Abs(priceChangePct) / 10.0)
}

// activityScore maps 24h trade count onto [0,1]; 10,000 trades saturates.
func (s *Scorer) activityScore(trades24h int64) float64 {
	return clamp(float64(trades24h) / 10_000.0)
}

// AssignTier converts a score into a tier using the configured thresholds.
// Both thresholds are inclusive.
func (s *Scorer) AssignTier(score float64) models.Tier {
	switch {
	case score >= s.config.Tier1Threshold:
		return models.Tier1
	case score >= s.config.Tier2Threshold:
		return models.Tier2
	default:
		return models.TierIgnored
	}
}

// SelectTier1 picks up to max_tier1_symbols symbols whose score meets the
// Tier1 threshold, highest score first. Ties break on symbol name so the
// selection is reproducible across runs.
func (s *Scorer) SelectTier1(snapshots []*models.SymbolSnapshot) []string {
	sorted := make([]*models.SymbolSnapshot, len(snapshots))
	copy(sorted, snapshots)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		return sorted[i].Symbol < sorted[j].Symbol
	})

	selected := make([]string, 0, s.config.MaxTier1Symbols)
	for _, snapshot := range sorted {
		if snapshot.Score < s.config.Tier1Threshold {
			break
		}
		selected = append(selected, snapshot.Symbol)
		if len(selected) >= s.config.MaxTier1Symbols {
			break
		}
	}
	return selected
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
