package strategy

import "fmt"

// Creation targets freshly listed pairs: it fires only while the observed
// history is still short (the pair is young) and the price has already risen
// from the first observation by the configured percentage. Once the history
// outgrows MaxAgeTicks the pair is no longer "new" and the trigger goes
// silent for good.
type Creation struct {
	Name        string
	MaxAgeTicks int     // history length beyond which the pair counts as established
	MinRisePct  float64 // required rise over the first observed price
}

func NewCreation(name string, maxAgeTicks int, minRisePct float64) *Creation {
	if name == "" {
		name = fmt.Sprintf("creation-%d-%.1f", maxAgeTicks, minRisePct)
	}
	return &Creation{Name: name, MaxAgeTicks: maxAgeTicks, MinRisePct: minRisePct}
}

func (c *Creation) ID() string {
	return c.Name
}

func (c *Creation) Evaluate(history []float64, current float64) bool {
	// Needs at least one prior observation to establish the listing price.
	if len(history) == 0 || len(history) >= c.MaxAgeTicks {
		return false
	}
	first := history[0]
	if first <= 0 {
		return false
	}
	return (current-first)/first*100 >= c.MinRisePct
}
