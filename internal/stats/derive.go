// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package stats back-fills missing inferential statistics on outcome
// records. Formulas follow the Cochrane Handbook for Systematic Reviews.
package stats

import (
	"math"

	"github.com/pdiddy/review-engine/pkg/types"
)

// SEFromSD computes the standard error from a standard deviation and a
// sample size. Returns 0 when n <= 0; division by zero is defined away
// rather than raised.
func SEFromSD(sd float64, n int) float64 {
	if n <= 0 {
		return 0
	}
	return sd / math.Sqrt(float64(n))
}

// SDFromSE computes the standard deviation from a standard error and a
// sample size. Returns 0 when n <= 0.
func SDFromSE(se float64, n int) float64 {
	if n <= 0 {
		return 0
	}
	return se * math.Sqrt(float64(n))
}

// ZFromP computes the z-score for a two-sided p-value using the Wichura
// (1988) rational approximation to the inverse normal CDF. Returns 0 for
// p outside (0, 1).
func ZFromP(p float64) float64 {
	if p <= 0 || p >= 1 {
		return 0
	}
	q := p / 2
	r := math.Sqrt(-2 * math.Log(q))
	return r - (2.30753+0.27061*r)/(1+0.99229*r+0.04481*r*r)
}

// SEFromMDP computes the standard error from a mean difference and its
// p-value. Returns 0 when the p-value yields a zero z-score.
func SEFromMDP(md, p float64) float64 {
	z := ZFromP(p)
	if z == 0 {
		return 0
	}
	return math.Abs(md / z)
}

// DeriveMissingStats fills at most one missing statistic on the outcome:
// the standard error from SD and n, or the intervention SD from SE and n.
// Fields that already hold a value are never overwritten, which makes the
// derivation idempotent. IsDerived is set when a substitution occurred so
// that back-filled numbers remain distinguishable from source values all
// the way to export.
func DeriveMissingStats(o *types.OutcomeResult) {
	if o == nil {
		return
	}

	if o.StdError == nil && o.InterventionSD != nil && o.InterventionN != nil {
		se := SEFromSD(*o.InterventionSD, *o.InterventionN)
		o.StdError = &se
		o.IsDerived = true
		return
	}

	if o.InterventionSD == nil && o.StdError != nil && o.InterventionN != nil {
		sd := SDFromSE(*o.StdError, *o.InterventionN)
		o.InterventionSD = &sd
		o.IsDerived = true
	}
}
