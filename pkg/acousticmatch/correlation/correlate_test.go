package correlation

import (
	"errors"
	"math/rand"
	"slices"
	"testing"

	"github.com/himanishpuri/AcousticMatch/pkg/acousticmatch/pcm"
)

func sig(samples ...int16) pcm.Signal {
	return pcm.MustNew(samples, 8000)
}

func noise(t *testing.T, seed int64, n int, amp int) pcm.Signal {
	t.Helper()
	r := rand.New(rand.NewSource(seed))
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(r.Intn(2*amp+1) - amp)
	}
	return pcm.MustNew(out, 11025)
}

func TestCorrelateKnownValues(t *testing.T) {
	tests := []struct {
		name   string
		a, b   pcm.Signal
		mode   Mode
		minLag int
		want   []float64
	}{
		{"full", sig(1, 2, 3), sig(0, 2, 1), Full, -2, []float64{1, 4, 7, 6, 0}},
		{"full single", sig(5), sig(-3), Full, 0, []float64{-15}},
		{"valid longer a", sig(1, 2, 3), sig(1, 1), Valid, 0, []float64{3, 5}},
		{"valid shorter a", sig(1, 1), sig(1, 2, 3), Valid, -1, []float64{5, 3}},
		{"valid equal", sig(1, 2, 3), sig(4, 5, 6), Valid, 0, []float64{32}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Correlate(tt.a, tt.b, tt.mode)
			if err != nil {
				t.Fatalf("Correlate failed: %v", err)
			}
			if got.MinLag != tt.minLag {
				t.Errorf("MinLag = %d, want %d", got.MinLag, tt.minLag)
			}
			if !slices.Equal(got.Values, tt.want) {
				t.Errorf("Values = %v, want %v", got.Values, tt.want)
			}
			if got.Mode != tt.mode {
				t.Errorf("Mode = %v, want %v", got.Mode, tt.mode)
			}
		})
	}
}

func TestFullLength(t *testing.T) {
	a := noise(t, 1, 300, 1000)
	b := noise(t, 2, 40, 1000)

	r, err := Correlate(a, b, Full)
	if err != nil {
		t.Fatalf("Correlate failed: %v", err)
	}
	if r.Len() != 339 {
		t.Errorf("len = %d, want 339", r.Len())
	}
	if r.MinLag != -39 || r.MaxLag() != 299 {
		t.Errorf("lags [%d, %d], want [-39, 299]", r.MinLag, r.MaxLag())
	}
}

func TestValidLength(t *testing.T) {
	a := noise(t, 3, 1000, 500)
	b := noise(t, 4, 10, 500)

	r, err := Correlate(a, b, Valid)
	if err != nil {
		t.Fatalf("Correlate failed: %v", err)
	}
	if r.Len() != 991 {
		t.Errorf("len(correlate(A,B,VALID)) = %d, want 991", r.Len())
	}

	swapped, err := Correlate(b, a, Valid)
	if err != nil {
		t.Fatalf("Correlate failed: %v", err)
	}
	if swapped.Len() != 991 {
		t.Errorf("swapped len = %d, want 991", swapped.Len())
	}
}

func TestFullSymmetry(t *testing.T) {
	pairs := [][2]int{{50, 50}, {64, 17}, {3, 90}, {1, 1}}
	for i, p := range pairs {
		a := noise(t, int64(10+i), p[0], 32767)
		b := noise(t, int64(20+i), p[1], 32767)

		ab, err := Correlate(a, b, Full)
		if err != nil {
			t.Fatalf("Correlate(a,b) failed: %v", err)
		}
		ba, err := Correlate(b, a, Full)
		if err != nil {
			t.Fatalf("Correlate(b,a) failed: %v", err)
		}

		rev := ab.Reversed()
		if rev.MinLag != ba.MinLag || !slices.Equal(rev.Values, ba.Values) {
			t.Errorf("pair %v: reversed(a,b) != (b,a)", p)
		}
		for lag := ab.MinLag; lag <= ab.MaxLag(); lag++ {
			x, _ := ab.At(lag)
			y, ok := ba.At(-lag)
			if !ok || x != y {
				t.Fatalf("pair %v lag %d: %v vs %v", p, lag, x, y)
			}
		}
	}
}

func TestCorrelateEmptySignal(t *testing.T) {
	empty := pcm.MustNew(nil, 8000)
	b := sig(1, 2, 3)

	for _, mode := range []Mode{Full, Valid} {
		if _, err := Correlate(empty, b, mode); !errors.Is(err, pcm.ErrEmptySignal) {
			t.Errorf("Correlate(empty, b, %v) error = %v, want ErrEmptySignal", mode, err)
		}
		if _, err := Correlate(b, empty, mode); !errors.Is(err, pcm.ErrEmptySignal) {
			t.Errorf("Correlate(b, empty, %v) error = %v, want ErrEmptySignal", mode, err)
		}
		if _, err := CorrelateFFT(empty, b, mode); !errors.Is(err, pcm.ErrEmptySignal) {
			t.Errorf("CorrelateFFT(empty, b, %v) error = %v, want ErrEmptySignal", mode, err)
		}
	}
}

func TestCorrelateUnknownMode(t *testing.T) {
	if _, err := Correlate(sig(1), sig(1), Mode(42)); !errors.Is(err, pcm.ErrInvalidParameter) {
		t.Errorf("error = %v, want ErrInvalidParameter", err)
	}
	if _, err := Correlate(sig(1), sig(1), 0); !errors.Is(err, pcm.ErrInvalidParameter) {
		t.Errorf("zero mode error = %v, want ErrInvalidParameter", err)
	}
}

func TestNoOverflowOnLongLoudSignals(t *testing.T) {
	n := 100000
	loud := make([]int16, n)
	for i := range loud {
		loud[i] = 32767
	}
	s := pcm.MustNew(loud, 44100)

	v, err := LagValue(s, s, 0)
	if err != nil {
		t.Fatalf("LagValue failed: %v", err)
	}
	if want := float64(n) * 32767 * 32767; v != want {
		t.Errorf("LagValue = %v, want %v", v, want)
	}
}

func TestLagValueMatchesCorrelate(t *testing.T) {
	a := noise(t, 5, 120, 2000)
	b := noise(t, 6, 45, 2000)

	full, err := Correlate(a, b, Full)
	if err != nil {
		t.Fatalf("Correlate failed: %v", err)
	}
	for lag := full.MinLag; lag <= full.MaxLag(); lag++ {
		want, _ := full.At(lag)
		got, err := LagValue(a, b, lag)
		if err != nil {
			t.Fatalf("LagValue(%d) failed: %v", lag, err)
		}
		if got != want {
			t.Fatalf("LagValue(%d) = %v, want %v", lag, got, want)
		}
	}

	if _, err := LagValue(a, b, full.MaxLag()+1); !errors.Is(err, pcm.ErrInvalidParameter) {
		t.Errorf("out-of-range lag error = %v, want ErrInvalidParameter", err)
	}
}

func TestCorrelateFFTMatchesDirect(t *testing.T) {
	sizes := [][2]int{{257, 100}, {64, 64}, {5, 300}, {1, 9}}
	for i, sz := range sizes {
		a := noise(t, int64(30+i), sz[0], 1000)
		b := noise(t, int64(40+i), sz[1], 1000)

		for _, mode := range []Mode{Full, Valid} {
			direct, err := Correlate(a, b, mode)
			if err != nil {
				t.Fatalf("Correlate failed: %v", err)
			}
			fast, err := CorrelateFFT(a, b, mode)
			if err != nil {
				t.Fatalf("CorrelateFFT failed: %v", err)
			}
			if direct.MinLag != fast.MinLag || !slices.Equal(direct.Values, fast.Values) {
				t.Errorf("sizes %v mode %v: FFT result differs from direct", sz, mode)
			}
		}
	}
}

func TestCorrelatorThreshold(t *testing.T) {
	a := noise(t, 50, 200, 1000)
	b := noise(t, 51, 70, 1000)

	direct, _ := Correlate(a, b, Full)
	for _, threshold := range []int{0, 1, 1 << 30} {
		got, err := Correlator{FFTThreshold: threshold}.Correlate(a, b, Full)
		if err != nil {
			t.Fatalf("threshold %d: %v", threshold, err)
		}
		if !slices.Equal(got.Values, direct.Values) {
			t.Errorf("threshold %d: result differs from direct", threshold)
		}
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"full", Full, false},
		{"VALID", Valid, false},
		{" Full ", Full, false},
		{"same", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if tt.wantErr {
			if !errors.Is(err, pcm.ErrInvalidParameter) {
				t.Errorf("ParseMode(%q) error = %v, want ErrInvalidParameter", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseMode(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
}
