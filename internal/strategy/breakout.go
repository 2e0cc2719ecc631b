package strategy

import "fmt"

// Breakout fires when the current price clears the moving average of the
// recent history by a configured percentage.
type Breakout struct {
	Name        string
	Window      int     // samples in the moving average
	BreakoutPct float64 // required rise above the average, in percent
}

func NewBreakout(name string, window int, breakoutPct float64) *Breakout {
	if name == "" {
		name = fmt.Sprintf("breakout-%d-%.1f", window, breakoutPct)
	}
	return &Breakout{Name: name, Window: window, BreakoutPct: breakoutPct}
}

func (b *Breakout) ID() string {
	return b.Name
}

func (b *Breakout) Evaluate(history []float64, current float64) bool {
	if len(history) < b.Window {
		return false
	}
	window := history[len(history)-b.Window:]

	sum := 0.0
	for _, p := range window {
		sum += p
	}
	avg := sum / float64(len(window))
	if avg <= 0 {
		return false
	}

	return current >= avg*(1+b.BreakoutPct/100)
}
