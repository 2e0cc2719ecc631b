package bundle

import (
	"context"
	"sort"
)

// Urgency represents the priority level for a bundle tip
type Urgency uint8

const (
	// UrgencyLow uses the p50 (median) recent tip - non-urgent exits
	UrgencyLow Urgency = iota
	// UrgencyMedium uses the p75 recent tip - normal snipes
	UrgencyMedium
	// UrgencyHigh uses the p90 recent tip - time-sensitive snipes
	UrgencyHigh
	// UrgencyExtreme uses the p99 recent tip - competitive sniping
	UrgencyExtreme
)

// DefaultTips are fallback tips when the relay reports no samples (lamports)
var DefaultTips = map[Urgency]uint64{
	UrgencyLow:     10_000,
	UrgencyMedium:  50_000,
	UrgencyHigh:    200_000,
	UrgencyExtreme: 1_000_000,
}

// minTipLamports is the floor applied to every calculated tip.
const minTipLamports = 1_000

// TipCalculator derives a competitive tip from the relay's recently landed
// tips.
type TipCalculator struct {
	relay Relay
}

// NewTipCalculator creates a new tip calculator
func NewTipCalculator(relay Relay) *TipCalculator {
	return &TipCalculator{relay: relay}
}

// TipResult holds the calculated tip information
type TipResult struct {
	TipLamports uint64
	Urgency     Urgency
	Percentile  int // Which percentile was used
	SampleCount int // Number of recent tips sampled
}

// OptimalTip calculates a tip for the given urgency. Relay errors fall back
// to the urgency's default rather than failing the submission.
func (t *TipCalculator) OptimalTip(ctx context.Context, urgency Urgency) *TipResult {
	percentile := percentileForUrgency(urgency)

	recent, err := t.relay.RecentTips(ctx)
	if err != nil || len(recent) == 0 {
		return &TipResult{
			TipLamports: DefaultTips[urgency],
			Urgency:     urgency,
			Percentile:  percentile,
			SampleCount: 0,
		}
	}

	samples := make([]uint64, 0, len(recent))
	for _, tip := range recent {
		if tip > 0 {
			samples = append(samples, tip)
		}
	}
	if len(samples) == 0 {
		return &TipResult{
			TipLamports: DefaultTips[urgency],
			Urgency:     urgency,
			Percentile:  percentile,
			SampleCount: 0,
		}
	}

	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })

	tip := calculatePercentile(samples, percentile)
	if tip < minTipLamports {
		tip = minTipLamports
	}

	return &TipResult{
		TipLamports: tip,
		Urgency:     urgency,
		Percentile:  percentile,
		SampleCount: len(samples),
	}
}

// percentileForUrgency returns the percentile to use for each urgency level
func percentileForUrgency(urgency Urgency) int {
	switch urgency {
	case UrgencyLow:
		return 50
	case UrgencyMedium:
		return 75
	case UrgencyHigh:
		return 90
	case UrgencyExtreme:
		return 99
	default:
		return 75
	}
}

// calculatePercentile returns the value at the given percentile
func calculatePercentile(sorted []uint64, percentile int) uint64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := len(sorted) * percentile / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
