// Package correlation computes time-domain cross-correlation of PCM signals
// and derives similarity scores from it.
//
// The value at lag k is sum_i a[i]*b[i-k]. Products are accumulated in
// int64 so long 16-bit signals cannot overflow, and exposed as float64.
// No energy normalization happens here; see the scoring functions.
package correlation

import (
	"fmt"
	"slices"

	"github.com/himanishpuri/AcousticMatch/pkg/acousticmatch/pcm"
)

// Result is a correlation sequence ordered by increasing lag.
type Result struct {
	Mode   Mode
	MinLag int
	Values []float64
}

func (r Result) Len() int { return len(r.Values) }

// Lag returns the lag of the i-th value.
func (r Result) Lag(i int) int { return r.MinLag + i }

// MaxLag is the lag of the last value.
func (r Result) MaxLag() int { return r.MinLag + len(r.Values) - 1 }

// At returns the value at lag, if the result covers it.
func (r Result) At(lag int) (float64, bool) {
	i := lag - r.MinLag
	if i < 0 || i >= len(r.Values) {
		return 0, false
	}
	return r.Values[i], true
}

// Reversed flips the lag axis. For FULL results Correlate(a, b) reversed
// equals Correlate(b, a).
func (r Result) Reversed() Result {
	vals := slices.Clone(r.Values)
	slices.Reverse(vals)
	return Result{Mode: r.Mode, MinLag: -r.MaxLag(), Values: vals}
}

func validate(a, b pcm.Signal, mode Mode) error {
	if !mode.valid() {
		return fmt.Errorf("%w: unknown correlation mode %d", pcm.ErrInvalidParameter, int(mode))
	}
	if a.IsEmpty() || b.IsEmpty() {
		return fmt.Errorf("correlate %d x %d samples: %w", a.Len(), b.Len(), pcm.ErrEmptySignal)
	}
	return nil
}

// Correlate computes the cross-correlation of a against b directly in the
// time domain. Cost is O(len(a)*len(b)) for FULL.
func Correlate(a, b pcm.Signal, mode Mode) (Result, error) {
	if err := validate(a, b, mode); err != nil {
		return Result{}, err
	}

	av, bv := a.View(), b.View()
	lo, hi := lagRange(len(av), len(bv), mode)
	out := make([]float64, hi-lo+1)
	for k := lo; k <= hi; k++ {
		out[k-lo] = float64(dotAtLag(av, bv, k))
	}
	return Result{Mode: mode, MinLag: lo, Values: out}, nil
}

// LagValue computes the correlation at a single lag without building the
// whole sequence. The lag must lie within the FULL range.
func LagValue(a, b pcm.Signal, lag int) (float64, error) {
	if err := validate(a, b, Full); err != nil {
		return 0, err
	}
	lo, hi := lagRange(a.Len(), b.Len(), Full)
	if lag < lo || lag > hi {
		return 0, fmt.Errorf("%w: lag %d outside [%d, %d]", pcm.ErrInvalidParameter, lag, lo, hi)
	}
	return float64(dotAtLag(a.View(), b.View(), lag)), nil
}

func dotAtLag(a, b []int16, k int) int64 {
	start := max(0, k)
	end := min(len(a), len(b)+k)

	var sum int64
	for i := start; i < end; i++ {
		sum += int64(a[i]) * int64(b[i-k])
	}
	return sum
}

// Correlator chooses between the direct and FFT implementations.
// FFTThreshold is compared against len(a)*len(b); zero disables FFT.
type Correlator struct {
	FFTThreshold int
}

func (c Correlator) Correlate(a, b pcm.Signal, mode Mode) (Result, error) {
	if c.FFTThreshold > 0 && a.Len()*b.Len() > c.FFTThreshold {
		return CorrelateFFT(a, b, mode)
	}
	return Correlate(a, b, mode)
}
