package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/himanishpuri/AcousticMatch/pkg/acousticmatch/pcm"
)

// buildWAV assembles a canonical 44-byte-header WAV around raw frames.
func buildWAV(t *testing.T, format, channels, rate, bits int, data []byte) []byte {
	t.Helper()
	var b bytes.Buffer
	w := func(v any) {
		if err := binary.Write(&b, binary.LittleEndian, v); err != nil {
			t.Fatalf("Failed to build wav: %v", err)
		}
	}
	blockAlign := channels * bits / 8

	b.WriteString("RIFF")
	w(uint32(36 + len(data)))
	b.WriteString("WAVE")
	b.WriteString("fmt ")
	w(uint32(16))
	w(uint16(format))
	w(uint16(channels))
	w(uint32(rate))
	w(uint32(rate * blockAlign))
	w(uint16(blockAlign))
	w(uint16(bits))
	b.WriteString("data")
	w(uint32(len(data)))
	b.Write(data)
	return b.Bytes()
}

func le16(samples ...int16) []byte {
	out := make([]byte, 0, 2*len(samples))
	for _, s := range samples {
		out = binary.LittleEndian.AppendUint16(out, uint16(s))
	}
	return out
}

func le24(samples ...int32) []byte {
	out := make([]byte, 0, 3*len(samples))
	for _, s := range samples {
		u := uint32(s)
		out = append(out, byte(u), byte(u>>8), byte(u>>16))
	}
	return out
}

func TestDecodeWAVMono16(t *testing.T) {
	raw := buildWAV(t, 1, 1, 8000, 16, le16(0, 1, -1, 32767, -32768))

	sig, err := DecodeWAV(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}
	if sig.SampleRate() != 8000 {
		t.Errorf("Expected rate 8000, got %d", sig.SampleRate())
	}
	if want := []int16{0, 1, -1, 32767, -32768}; !slices.Equal(sig.Samples(), want) {
		t.Errorf("Expected %v, got %v", want, sig.Samples())
	}
}

func TestDecodeWAVStereoMix(t *testing.T) {
	// frames: (100, 200) (-3, 2) (32767, 32767) (-32768, -32768)
	raw := buildWAV(t, 1, 2, 11025, 16, le16(100, 200, -3, 2, 32767, 32767, -32768, -32768))

	sig, err := DecodeWAV(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}
	// -1/2 truncates toward zero
	if want := []int16{150, 0, 32767, -32768}; !slices.Equal(sig.Samples(), want) {
		t.Errorf("Expected %v, got %v", want, sig.Samples())
	}
}

func TestDecodeWAV24Bit(t *testing.T) {
	raw := buildWAV(t, 1, 1, 44100, 24, le24(256, -256, 0x7FFFFF, -0x800000))

	sig, err := DecodeWAV(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}
	if want := []int16{1, -1, 32767, -32768}; !slices.Equal(sig.Samples(), want) {
		t.Errorf("Expected %v, got %v", want, sig.Samples())
	}
}

func TestDecodeWAVRejectsUnsupported(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{"8-bit", buildWAV(t, 1, 1, 8000, 8, []byte{128, 129})},
		{"float", buildWAV(t, 3, 1, 8000, 32, make([]byte, 8))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeWAV(bytes.NewReader(tt.raw))
			if !errors.Is(err, ErrUnsupportedFormat) {
				t.Errorf("Expected ErrUnsupportedFormat, got %v", err)
			}
			if !errors.Is(err, ErrDecode) {
				t.Errorf("Expected error to wrap ErrDecode, got %v", err)
			}
		})
	}
}

func TestDecodeWAVGarbage(t *testing.T) {
	_, err := DecodeWAV(bytes.NewReader([]byte("definitely not a wav file")))
	if !errors.Is(err, ErrDecode) {
		t.Errorf("Expected ErrDecode, got %v", err)
	}
}

func TestMixToMono(t *testing.T) {
	got := MixToMono([]int{3, 4, 5, -7, -8, -9, 1}, 3, 0)
	// trailing partial frame dropped; -24/3 = -8
	if want := []int16{4, -8}; !slices.Equal(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
	if MixToMono([]int{1, 2}, 0, 0) != nil {
		t.Error("Expected nil for zero channels")
	}
}

func TestWriteWAVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.wav")
	want := pcm.MustNew([]int16{0, 1200, -1200, 32767, -32768, 7}, 11025)

	if err := WriteWAVFile(path, want); err != nil {
		t.Fatalf("WriteWAVFile failed: %v", err)
	}
	got, err := DecodeWAVFile(path)
	if err != nil {
		t.Fatalf("DecodeWAVFile failed: %v", err)
	}
	if !got.Equal(want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestDecoderReadsWAVDirectly(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "direct.wav")
	want := pcm.MustNew([]int16{5, -5, 10, -10}, 8000)
	if err := WriteWAVFile(path, want); err != nil {
		t.Fatalf("WriteWAVFile failed: %v", err)
	}

	for _, rate := range []int{0, 8000} {
		d := NewDecoder(DecoderConfig{SampleRate: rate, TempDir: dir})
		got, err := d.Decode(t.Context(), path)
		if err != nil {
			t.Fatalf("rate %d: Decode failed: %v", rate, err)
		}
		if !got.Equal(want) {
			t.Errorf("rate %d: Expected %v, got %v", rate, want, got)
		}
	}
}

func TestDecoderMissingFile(t *testing.T) {
	d := NewDecoder(DecoderConfig{})
	_, err := d.Decode(t.Context(), filepath.Join(t.TempDir(), "missing.mp3"))
	if !errors.Is(err, ErrDecode) {
		t.Errorf("Expected ErrDecode, got %v", err)
	}
}

func TestDecoderResamplesWithFFmpeg(t *testing.T) {
	if !FFmpegAvailable() {
		t.Skipf("ffmpeg not installed")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "src.wav")
	samples := make([]int16, 8000)
	for i := range samples {
		samples[i] = int16((i % 80) * 300)
	}
	if err := WriteWAVFile(path, pcm.MustNew(samples, 8000)); err != nil {
		t.Fatalf("WriteWAVFile failed: %v", err)
	}

	d := NewDecoder(DecoderConfig{SampleRate: 4000, TempDir: dir, Timeout: 20 * time.Second})
	got, err := d.Decode(t.Context(), path)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got.SampleRate() != 4000 {
		t.Errorf("Expected rate 4000, got %d", got.SampleRate())
	}
	if d := got.Duration(); d < 900*time.Millisecond || d > 1100*time.Millisecond {
		t.Errorf("Expected ~1s of audio, got %v", d)
	}

	leftovers, _ := filepath.Glob(filepath.Join(dir, "src-*.wav"))
	if len(leftovers) != 0 {
		t.Errorf("Expected converted files to be cleaned up, found %v", leftovers)
	}
}

func TestSnipSignal(t *testing.T) {
	s := pcm.MustNew(make([]int16, 1000), 100)

	got, err := SnipSignal(s, 2*time.Second, 3*time.Second)
	if err != nil {
		t.Fatalf("SnipSignal failed: %v", err)
	}
	if got.Len() != 300 {
		t.Errorf("Expected 300 samples, got %d", got.Len())
	}

	tail, err := SnipSignal(s, 8*time.Second, 0)
	if err != nil {
		t.Fatalf("SnipSignal failed: %v", err)
	}
	if tail.Len() != 200 {
		t.Errorf("Expected window clipped to 200 samples, got %d", tail.Len())
	}

	if _, err := SnipSignal(s, -time.Second, time.Second); !errors.Is(err, pcm.ErrInvalidParameter) {
		t.Errorf("Expected ErrInvalidParameter, got %v", err)
	}
}

func TestSnipFile(t *testing.T) {
	if !FFmpegAvailable() {
		t.Skipf("ffmpeg not installed")
	}

	dir := t.TempDir()
	in := filepath.Join(dir, "long.wav")
	out := filepath.Join(dir, "out", "short.wav")
	if err := WriteWAVFile(in, pcm.MustNew(make([]int16, 8000*4), 8000)); err != nil {
		t.Fatalf("WriteWAVFile failed: %v", err)
	}

	if err := Snip(t.Context(), in, out, time.Second, time.Second); err != nil {
		t.Fatalf("Snip failed: %v", err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("Expected snipped file: %v", err)
	}
	meta, err := ReadMetadata(t.Context(), out)
	if err != nil {
		t.Fatalf("ReadMetadata failed: %v", err)
	}
	if meta.DurationSec < 0.9 || meta.DurationSec > 1.1 {
		t.Errorf("Expected ~1s clip, got %.3fs", meta.DurationSec)
	}
	if meta.SampleRate != 8000 || meta.Channels != 1 {
		t.Errorf("Expected 8000 Hz mono, got %d Hz %d ch", meta.SampleRate, meta.Channels)
	}
}

func TestParseProbe(t *testing.T) {
	raw := []byte(`{
		"format": {"duration": "12.500", "format_name": "mp3", "tags": {"TITLE": "Song", "artist": "Band"}},
		"streams": [
			{"codec_type": "video"},
			{"codec_type": "audio", "sample_rate": "44100", "channels": 2}
		]
	}`)

	meta, err := parseProbe("/tmp/x/song.mp3", raw)
	if err != nil {
		t.Fatalf("parseProbe failed: %v", err)
	}
	if meta.Title != "Song" || meta.Artist != "Band" {
		t.Errorf("Expected Song/Band, got %q/%q", meta.Title, meta.Artist)
	}
	if meta.SampleRate != 44100 || meta.Channels != 2 || meta.DurationSec != 12.5 {
		t.Errorf("Unexpected stream info: %+v", meta)
	}
	if meta.Filename != "song.mp3" {
		t.Errorf("Expected filename song.mp3, got %q", meta.Filename)
	}

	if _, err := parseProbe("x", []byte(`{"streams": []}`)); err == nil {
		t.Error("Expected error when no audio stream is present")
	}
}
