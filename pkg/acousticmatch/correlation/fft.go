package correlation

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"

	"github.com/himanishpuri/AcousticMatch/pkg/acousticmatch/pcm"
)

// CorrelateFFT computes the same sequence as Correlate through a zero-padded
// real FFT, O(n log n). Inputs are integers so each value is rounded to the
// nearest integer to remove floating point noise.
func CorrelateFFT(a, b pcm.Signal, mode Mode) (Result, error) {
	if err := validate(a, b, mode); err != nil {
		return Result{}, err
	}

	la, lb := a.Len(), b.Len()
	size := nextPow2(la + lb - 1)

	fa := make([]float64, size)
	for i, v := range a.View() {
		fa[i] = float64(v)
	}
	fb := make([]float64, size)
	for i, v := range b.View() {
		fb[i] = float64(v)
	}

	specA := fft.FFTReal(fa)
	specB := fft.FFTReal(fb)
	for i := range specA {
		specA[i] *= cmplx.Conj(specB[i])
	}
	circular := fft.IFFT(specA)

	// Negative lags wrap to the tail of the circular result.
	lo, hi := lagRange(la, lb, mode)
	out := make([]float64, hi-lo+1)
	for k := lo; k <= hi; k++ {
		idx := k
		if idx < 0 {
			idx += size
		}
		out[k-lo] = math.Round(real(circular[idx]))
	}
	return Result{Mode: mode, MinLag: lo, Values: out}, nil
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
