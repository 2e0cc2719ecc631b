package strategy

import (
	"fmt"
	"math"
)

// Band fires when the current price escapes the mean ± k·stddev envelope of
// the recent history on the upside.
type Band struct {
	Name   string
	Window int
	K      float64 // band width in standard deviations
}

func NewBand(name string, window int, k float64) *Band {
	if name == "" {
		name = fmt.Sprintf("band-%d-%.1f", window, k)
	}
	return &Band{Name: name, Window: window, K: k}
}

func (b *Band) ID() string {
	return b.Name
}

func (b *Band) Evaluate(history []float64, current float64) bool {
	if len(history) < b.Window {
		return false
	}
	window := history[len(history)-b.Window:]

	mean := 0.0
	for _, p := range window {
		mean += p
	}
	mean /= float64(len(window))

	variance := 0.0
	for _, p := range window {
		d := p - mean
		variance += d * d
	}
	variance /= float64(len(window))
	stddev := math.Sqrt(variance)

	// A flat history carries no band signal.
	if stddev == 0 {
		return false
	}
	return current > mean+b.K*stddev
}
