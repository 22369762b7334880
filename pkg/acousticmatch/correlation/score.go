package correlation

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"

	"github.com/himanishpuri/AcousticMatch/pkg/acousticmatch/pcm"
)

// ErrDivisionByZero reports a degenerate, all-zero correlation or a
// zero-energy input. It is surfaced rather than turned into a fake score.
var ErrDivisionByZero = errors.New("division by zero")

// Score bundles every scalar derived from one pairwise correlation.
type Score struct {
	Mode Mode
	// Peak is the raw correlation value of largest magnitude, sign kept.
	Peak    float64
	PeakLag int
	// Normalized is Peak over sqrt(energy(a)*energy(b)), in [-1, 1].
	Normalized float64
	// Legacy is the peak-over-max formula. It is 1.0 for every
	// non-degenerate input and is kept for parity with stored scores.
	Legacy float64
	// Raw is the correlation at lag 0 (starts aligned).
	Raw float64
}

// Confidence maps Normalized onto [0, 1].
func (s Score) Confidence() float64 { return Remap(s.Normalized) }

// PeakScore applies the legacy normalization: M = max(r), negated when the
// whole sequence is anti-correlated, then (P/M + 1) / 2 where P is the new
// maximum. Since P == M this is always 1.0 unless M == 0.
func PeakScore(r Result) (float64, error) {
	if r.Len() == 0 {
		return 0, fmt.Errorf("peak score: %w", pcm.ErrEmptySignal)
	}

	vals := slices.Clone(r.Values)
	m := floats.Max(vals)
	if m < 0 {
		floats.Scale(-1, vals)
		m = floats.Max(vals)
	}
	if m == 0 {
		return 0, fmt.Errorf("peak score: maximum correlation is zero: %w", ErrDivisionByZero)
	}

	p := vals[floats.MaxIdx(vals)]
	return (p/m + 1) / 2, nil
}

// Peak returns the value with the largest magnitude and its lag. On equal
// magnitudes the lower lag wins.
func Peak(r Result) (float64, int) {
	if r.Len() == 0 {
		return 0, 0
	}
	hi := floats.MaxIdx(r.Values)
	lo := floats.MinIdx(r.Values)

	idx := hi
	if a, b := math.Abs(r.Values[lo]), math.Abs(r.Values[hi]); a > b || (a == b && lo < hi) {
		idx = lo
	}
	return r.Values[idx], r.Lag(idx)
}

// NormalizedScore divides the peak of r by the geometric mean energy of the
// signals that produced it. By Cauchy-Schwarz no lag can exceed that bound,
// so the result lies in [-1, 1].
func NormalizedScore(r Result, a, b pcm.Signal) (float64, error) {
	if r.Len() == 0 {
		return 0, fmt.Errorf("normalized score: %w", pcm.ErrEmptySignal)
	}
	denom := math.Sqrt(a.Energy() * b.Energy())
	if denom == 0 {
		return 0, fmt.Errorf("normalized score: zero-energy signal: %w", ErrDivisionByZero)
	}

	v, _ := Peak(r)
	return math.Max(-1, math.Min(1, v/denom)), nil
}

// Remap maps a score in [-1, 1] onto [0, 1].
func Remap(s float64) float64 { return (s + 1) / 2 }

// RawScore is the ranking scalar used for corpus scans: the VALID
// correlation at lag 0. It is unbounded and only comparable between
// candidates scored against the same query at the same factor and rate.
// Lag 0 aligns the starts of a and b, so when a is shorter than b this is
// not numpy's correlate(a, b, "valid")[0], which aligns their ends (lag
// len(a)-len(b)).
func RawScore(a, b pcm.Signal) (float64, error) {
	return LagValue(a, b, 0)
}

// ScorePair correlates a and b in one mode and derives every score from
// that single result.
func ScorePair(a, b pcm.Signal, mode Mode) (Score, error) {
	return Correlator{}.ScorePair(a, b, mode)
}

func (c Correlator) ScorePair(a, b pcm.Signal, mode Mode) (Score, error) {
	r, err := c.Correlate(a, b, mode)
	if err != nil {
		return Score{}, err
	}

	legacy, err := PeakScore(r)
	if err != nil {
		return Score{}, err
	}
	normalized, err := NormalizedScore(r, a, b)
	if err != nil {
		return Score{}, err
	}
	peak, lag := Peak(r)
	raw, _ := r.At(0)

	return Score{
		Mode:       mode,
		Peak:       peak,
		PeakLag:    lag,
		Normalized: normalized,
		Legacy:     legacy,
		Raw:        raw,
	}, nil
}
