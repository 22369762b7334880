package correlation

import (
	"fmt"
	"strings"

	"github.com/himanishpuri/AcousticMatch/pkg/acousticmatch/pcm"
)

// Mode selects which lags a correlation covers.
type Mode int

const (
	// Full covers every lag with at least one overlapping sample.
	Full Mode = iota + 1
	// Valid covers only lags where one signal lies entirely inside the other.
	Valid
)

func (m Mode) String() string {
	switch m {
	case Full:
		return "full"
	case Valid:
		return "valid"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

func (m Mode) valid() bool {
	return m == Full || m == Valid
}

// ParseMode accepts "full" or "valid", case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "full":
		return Full, nil
	case "valid":
		return Valid, nil
	default:
		return 0, fmt.Errorf("%w: unknown correlation mode %q", pcm.ErrInvalidParameter, s)
	}
}

// lagRange returns the inclusive lag bounds for mode given input lengths.
func lagRange(la, lb int, mode Mode) (lo, hi int) {
	if mode == Full {
		return -(lb - 1), la - 1
	}
	d := la - lb
	return min(0, d), max(0, d)
}
