package main

import (
	"bytes"
	"math/rand"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/himanishpuri/AcousticMatch/internal/config"
	"github.com/himanishpuri/AcousticMatch/pkg/acousticmatch/audio"
	"github.com/himanishpuri/AcousticMatch/pkg/acousticmatch/pcm"
	"github.com/himanishpuri/AcousticMatch/pkg/logger"
)

const testRate = 11025

type cliTestEnv struct {
	dir    string
	dbPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	dir := t.TempDir()
	t.Chdir(dir)
	for _, k := range []string{config.EnvConfig, config.EnvDBPath, config.EnvTempDir, config.EnvSampleRate,
		config.EnvDownsampleFactor, config.EnvWorkers, config.EnvPort, logger.EnvLevel} {
		t.Setenv(k, "")
	}
	return &cliTestEnv{dir: dir, dbPath: filepath.Join(dir, "cli.sqlite3")}
}

// run executes the root command against the test database and returns
// everything it wrote.
func (e *cliTestEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	base := []string{"--db", e.dbPath, "--temp", e.dir, "--factor", "1", "--log-level", "error"}
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, base...))
	err := cmd.ExecuteContext(t.Context())
	return out.String(), err
}

func (e *cliTestEnv) writeNoise(t *testing.T, name string, seed int64, n int) (string, pcm.Signal) {
	t.Helper()
	r := rand.New(rand.NewSource(seed))
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = int16(r.Intn(16001) - 8000)
	}
	sig := pcm.MustNew(samples, testRate)

	path := filepath.Join(e.dir, name)
	if err := audio.WriteWAVFile(path, sig); err != nil {
		t.Fatalf("WriteWAVFile: %v", err)
	}
	return path, sig
}

func addedID(t *testing.T, out string) string {
	t.Helper()
	for _, line := range strings.Split(out, "\n") {
		if id, ok := strings.CutPrefix(strings.TrimSpace(line), "ID:"); ok {
			return strings.TrimSpace(id)
		}
	}
	t.Fatalf("no ID in output:\n%s", out)
	return ""
}

func TestCLIAddListMatchDelete(t *testing.T) {
	env := setupCLITestEnv(t)
	target, _ := env.writeNoise(t, "target.wav", 1, 4000)
	decoy, _ := env.writeNoise(t, "decoy.wav", 2, 4000)

	out, err := env.run(t, "add", target, "--title", "Target Song", "--artist", "Band")
	if err != nil {
		t.Fatalf("add failed: %v\n%s", err, out)
	}
	targetID := addedID(t, out)
	if out, err := env.run(t, "add", decoy, "--title", "Decoy", "--artist", "Other"); err != nil {
		t.Fatalf("add decoy failed: %v\n%s", err, out)
	}

	out, err = env.run(t, "list")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	for _, want := range []string{"Target Song", "Decoy", targetID, "2 recording(s)", "8,000 samples"} {
		if !strings.Contains(out, want) {
			t.Errorf("list output missing %q:\n%s", want, out)
		}
	}

	out, err = env.run(t, "match", target)
	if err != nil {
		t.Fatalf("match failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, `Best match: "Target Song" by Band`) {
		t.Errorf("unexpected match output:\n%s", out)
	}

	out, err = env.run(t, "delete", targetID)
	if err != nil {
		t.Fatalf("delete failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Deleted \"Target Song\"") {
		t.Errorf("unexpected delete output: %s", out)
	}

	out, err = env.run(t, "match", target)
	if err != nil {
		t.Fatalf("match failed: %v", err)
	}
	if !strings.Contains(out, `Best match: "Decoy"`) {
		t.Errorf("after delete the decoy should win:\n%s", out)
	}
}

func TestCLIMatchEmptyLibrary(t *testing.T) {
	env := setupCLITestEnv(t)
	query, _ := env.writeNoise(t, "query.wav", 3, 500)

	out, err := env.run(t, "match", query)
	if err != nil {
		t.Fatalf("match failed: %v", err)
	}
	if !strings.Contains(out, "No match found") {
		t.Errorf("expected no match, got:\n%s", out)
	}
}

func TestCLIDeleteRejectsBadID(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, err := env.run(t, "delete", "42"); err == nil || !strings.Contains(err.Error(), "invalid recording id") {
		t.Errorf("expected invalid id error, got %v", err)
	}
}

func TestCLIAddArgumentChecks(t *testing.T) {
	env := setupCLITestEnv(t)
	path, _ := env.writeNoise(t, "a.wav", 11, 100)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"nothing to add", []string{"add"}, "required"},
		{"file and url", []string{"add", path, "--youtube-url", "https://youtu.be/abc"}, "not both"},
		{"not youtube", []string{"add", "--youtube-url", "https://vimeo.com/42"}, "not a YouTube video URL"},
		{"missing file", []string{"add", filepath.Join(env.dir, "nope.wav")}, "does not exist"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := env.run(t, tt.args...); err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestCLICompare(t *testing.T) {
	env := setupCLITestEnv(t)
	_, long := env.writeNoise(t, "long.wav", 4, 3000)
	clipPath := filepath.Join(env.dir, "clip.wav")
	if err := audio.WriteWAVFile(clipPath, pcm.MustNew(long.Samples()[600:900], testRate)); err != nil {
		t.Fatalf("WriteWAVFile: %v", err)
	}

	out, err := env.run(t, "compare", filepath.Join(env.dir, "long.wav"), clipPath, "--mode", "valid")
	if err != nil {
		t.Fatalf("compare failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "valid") || !strings.Contains(out, "600 (") {
		t.Errorf("unexpected compare output:\n%s", out)
	}

	if _, err := env.run(t, "compare", clipPath, clipPath, "--mode", "same"); err == nil {
		t.Error("expected an error for an unknown mode")
	}
}

func TestCLISnipNative(t *testing.T) {
	env := setupCLITestEnv(t)
	in, sig := env.writeNoise(t, "full.wav", 5, 4000)
	out := filepath.Join(env.dir, "clips", "clip.wav")

	if msg, err := env.run(t, "snip", in, out, "--start", "100ms", "--duration", "100ms"); err != nil {
		t.Fatalf("snip failed: %v\n%s", err, msg)
	}

	clip, err := audio.DecodeWAVFile(out)
	if err != nil {
		t.Fatalf("DecodeWAVFile: %v", err)
	}
	want, _ := audio.SnipSignal(sig, 100*time.Millisecond, 100*time.Millisecond)
	if !clip.Equal(want) {
		t.Errorf("clip = %v, want %v", clip, want)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := map[time.Duration]string{
		0:                       "0:00",
		1500 * time.Millisecond: "0:02",
		75 * time.Second:        "1:15",
		61 * time.Minute:        "61:00",
	}
	for d, want := range tests {
		if got := formatDuration(d); got != want {
			t.Errorf("formatDuration(%v) = %q, want %q", d, got, want)
		}
	}
}

func TestLagTime(t *testing.T) {
	if got := lagTime(11025, 11025); got != time.Second {
		t.Errorf("lagTime = %v, want 1s", got)
	}
	if got := lagTime(-5, 0); got != 0 {
		t.Errorf("lagTime with zero rate = %v, want 0", got)
	}
}
