// Package pcm holds the mono PCM signal type shared by the decoder, the
// store and the correlation engine.
package pcm

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"time"
)

var (
	// ErrInvalidParameter reports a bad factor, mode or rate. Caller bug, never retried.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrEmptySignal reports a zero-length signal where samples are required.
	ErrEmptySignal = errors.New("empty signal")
)

// Signal is an immutable mono sequence of 16-bit samples at a fixed rate.
// Stereo sources are mixed down by the decoder before a Signal is built.
type Signal struct {
	samples    []int16
	sampleRate int
}

// New copies samples into a new Signal.
func New(samples []int16, sampleRate int) (Signal, error) {
	if sampleRate <= 0 {
		return Signal{}, fmt.Errorf("%w: sample rate must be positive, got %d", ErrInvalidParameter, sampleRate)
	}
	return Signal{samples: slices.Clone(samples), sampleRate: sampleRate}, nil
}

// MustNew is New for literals in tests and fixtures.
func MustNew(samples []int16, sampleRate int) Signal {
	s, err := New(samples, sampleRate)
	if err != nil {
		panic(err)
	}
	return s
}

// wrap takes ownership of samples without copying.
func wrap(samples []int16, sampleRate int) Signal {
	return Signal{samples: samples, sampleRate: sampleRate}
}

func (s Signal) Len() int { return len(s.samples) }

func (s Signal) SampleRate() int { return s.sampleRate }

func (s Signal) IsEmpty() bool { return len(s.samples) == 0 }

// At returns the sample at index i. It panics when i is out of range.
func (s Signal) At(i int) int16 { return s.samples[i] }

// Samples returns a copy of the underlying samples.
func (s Signal) Samples() []int16 { return slices.Clone(s.samples) }

// View exposes the samples read-only for hot loops inside this module.
// Callers must not modify the returned slice.
func (s Signal) View() []int16 { return s.samples }

// Duration is the playback length at the signal's sample rate.
func (s Signal) Duration() time.Duration {
	if s.sampleRate == 0 {
		return 0
	}
	return time.Duration(float64(len(s.samples)) / float64(s.sampleRate) * float64(time.Second))
}

// Energy returns the sum of squared samples.
func (s Signal) Energy() float64 {
	var e int64
	for _, v := range s.samples {
		e += int64(v) * int64(v)
	}
	return float64(e)
}

// Peak returns the largest absolute sample value.
func (s Signal) Peak() int {
	peak := 0
	for _, v := range s.samples {
		a := int(v)
		if a < 0 {
			a = -a
		}
		if a > peak {
			peak = a
		}
	}
	return peak
}

// Equal reports whether both signals carry the same rate and samples.
func (s Signal) Equal(o Signal) bool {
	return s.sampleRate == o.sampleRate && slices.Equal(s.samples, o.samples)
}

func (s Signal) String() string {
	return fmt.Sprintf("pcm.Signal{samples: %d, rate: %d Hz}", len(s.samples), s.sampleRate)
}

// Downsample keeps every factor-th sample starting at index 0. No
// anti-aliasing filter is applied. The reported rate is divided by factor.
func Downsample(s Signal, factor int) (Signal, error) {
	if factor < 1 {
		return Signal{}, fmt.Errorf("%w: downsample factor must be >= 1, got %d", ErrInvalidParameter, factor)
	}
	if factor == 1 {
		return wrap(slices.Clone(s.samples), s.sampleRate), nil
	}

	out := make([]int16, 0, (len(s.samples)+factor-1)/factor)
	for i := 0; i < len(s.samples); i += factor {
		out = append(out, s.samples[i])
	}
	rate := s.sampleRate / factor
	if rate < 1 {
		rate = 1
	}
	return wrap(out, rate), nil
}

// Clamp16 saturates v into the int16 range.
func Clamp16(v int64) int16 {
	switch {
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	default:
		return int16(v)
	}
}
