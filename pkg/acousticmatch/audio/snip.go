package audio

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/himanishpuri/AcousticMatch/pkg/acousticmatch/pcm"
	"github.com/himanishpuri/AcousticMatch/pkg/utils"
)

// DefaultSnipDuration is the clip length used when none is given.
const DefaultSnipDuration = 30 * time.Second

// Snip copies duration of audio starting at start from in to out. The
// output container follows the extension of out.
func Snip(ctx context.Context, in, out string, start, duration time.Duration) error {
	if start < 0 || duration < 0 {
		return fmt.Errorf("%w: negative snip window", pcm.ErrInvalidParameter)
	}
	if duration == 0 {
		duration = DefaultSnipDuration
	}

	ctx, cancel := withDefaultTimeout(ctx, 0)
	defer cancel()

	if err := utils.MakeDir(filepath.Dir(out)); err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-y",
		"-v", "quiet",
		"-ss", seconds(start),
		"-t", seconds(duration),
		"-i", in,
		out,
	)
	if b, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ffmpeg snip failed: %v (%s)", err, b)
	}
	return nil
}

// SnipSignal cuts the same window out of an already decoded signal.
func SnipSignal(s pcm.Signal, start, duration time.Duration) (pcm.Signal, error) {
	if start < 0 || duration < 0 {
		return pcm.Signal{}, fmt.Errorf("%w: negative snip window", pcm.ErrInvalidParameter)
	}
	if duration == 0 {
		duration = DefaultSnipDuration
	}

	rate := int64(s.SampleRate())
	from := int(min(start.Nanoseconds()*rate/int64(time.Second), int64(s.Len())))
	to := int(min(int64(from)+duration.Nanoseconds()*rate/int64(time.Second), int64(s.Len())))
	return pcm.New(s.View()[from:to], s.SampleRate())
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}
