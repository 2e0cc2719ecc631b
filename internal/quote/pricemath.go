package quote

import (
	"math/big"

	"github.com/holiman/uint256"
)

const bpsDenominator = 10_000

// MulBps scales amount by bps/10000 in fixed point. Amounts that fit 256 bits
// stay on the uint256 fast path; anything larger falls back to big.Int.
func MulBps(amount *big.Int, bps uint16) *big.Int {
	if amount == nil || amount.Sign() <= 0 {
		return new(big.Int)
	}

	if v, overflow := uint256.FromBig(amount); !overflow {
		v.Mul(v, uint256.NewInt(uint64(bps)))
		v.Div(v, uint256.NewInt(bpsDenominator))
		return v.ToBig()
	}

	r := new(big.Int).Mul(amount, big.NewInt(int64(bps)))
	return r.Div(r, big.NewInt(bpsDenominator))
}

// MinAmountOut applies slippage tolerance to a quoted output:
// out * (10000 - slippageBps) / 10000.
func MinAmountOut(out *big.Int, slippageBps uint16) *big.Int {
	if slippageBps >= bpsDenominator {
		return new(big.Int)
	}
	return MulBps(out, bpsDenominator-slippageBps)
}

// DrawdownBps returns the decline from peak to current in basis points.
// A non-positive peak or a current above peak yields zero.
func DrawdownBps(peak, current float64) uint16 {
	if peak <= 0 || current >= peak {
		return 0
	}
	dd := (peak - current) / peak * bpsDenominator
	if dd >= bpsDenominator {
		return bpsDenominator
	}
	return uint16(dd)
}

// ImpactSeverity classifies price impact for collaborator display.
// Thresholds: <10 bps none, <100 low, <300 moderate, <500 high, else extreme.
func ImpactSeverity(impactBps uint16) string {
	switch {
	case impactBps < 10:
		return "none"
	case impactBps < 100:
		return "low"
	case impactBps < 300:
		return "moderate"
	case impactBps < 500:
		return "high"
	default:
		return "extreme"
	}
}

// ImpactWarning returns a user-facing message for the given severity.
func ImpactWarning(severity string) string {
	switch severity {
	case "none":
		return ""
	case "low":
		return "Price impact is low"
	case "moderate":
		return "Price impact is moderate, consider a smaller amount"
	case "high":
		return "Price impact is high, the swap will move the pool price noticeably"
	default:
		return "Price impact is extreme, most of the input value will be lost to slippage"
	}
}
