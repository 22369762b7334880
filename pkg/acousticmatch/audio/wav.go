package audio

import (
	"errors"
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/himanishpuri/AcousticMatch/pkg/acousticmatch/pcm"
)

var (
	// ErrDecode wraps every failure to turn a source into PCM.
	ErrDecode = errors.New("decode error")
	// ErrUnsupportedFormat is a WAV the native reader cannot handle; ffmpeg may.
	ErrUnsupportedFormat = fmt.Errorf("%w: unsupported wav format", ErrDecode)
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

// DecodeWAV reads a PCM WAV stream and mixes it down to a mono 16-bit
// signal. 24 and 32-bit samples are reduced to 16 bits by arithmetic shift.
func DecodeWAV(r io.ReadSeeker) (pcm.Signal, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return pcm.Signal{}, fmt.Errorf("%w: not a valid wav stream", ErrDecode)
	}
	if d.WavAudioFormat != wavFormatPCM && d.WavAudioFormat != wavFormatExtensible {
		return pcm.Signal{}, fmt.Errorf("%w: audio format %d", ErrUnsupportedFormat, d.WavAudioFormat)
	}

	var shift uint
	switch d.BitDepth {
	case 16:
	case 24:
		shift = 8
	case 32:
		shift = 16
	default:
		return pcm.Signal{}, fmt.Errorf("%w: %d bits per sample", ErrUnsupportedFormat, d.BitDepth)
	}
	if d.NumChans == 0 {
		return pcm.Signal{}, fmt.Errorf("%w: zero channels", ErrDecode)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return pcm.Signal{}, fmt.Errorf("%w: reading samples: %v", ErrDecode, err)
	}

	mono := MixToMono(buf.Data, int(d.NumChans), shift)
	sig, err := pcm.New(mono, int(d.SampleRate))
	if err != nil {
		return pcm.Signal{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return sig, nil
}

// DecodeWAVFile opens path and decodes it with DecodeWAV.
func DecodeWAVFile(path string) (pcm.Signal, error) {
	f, err := os.Open(path)
	if err != nil {
		return pcm.Signal{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	defer f.Close()

	sig, err := DecodeWAV(f)
	if err != nil {
		return pcm.Signal{}, fmt.Errorf("%s: %w", path, err)
	}
	return sig, nil
}

// MixToMono averages interleaved channel samples frame by frame. The mean is
// truncated toward zero and clamped to int16 after the bit-depth shift.
// A trailing partial frame is dropped.
func MixToMono(interleaved []int, channels int, shift uint) []int16 {
	if channels < 1 {
		return nil
	}
	frames := len(interleaved) / channels
	out := make([]int16, frames)
	for i := 0; i < frames; i++ {
		var sum int64
		for c := 0; c < channels; c++ {
			sum += int64(interleaved[i*channels+c] >> shift)
		}
		out[i] = pcm.Clamp16(sum / int64(channels))
	}
	return out
}

// WriteWAV encodes a signal as a mono 16-bit PCM WAV.
func WriteWAV(w io.WriteSeeker, s pcm.Signal) error {
	enc := wav.NewEncoder(w, s.SampleRate(), 16, 1, wavFormatPCM)

	data := make([]int, s.Len())
	for i, v := range s.View() {
		data[i] = int(v)
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: s.SampleRate()},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("writing wav samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalizing wav: %w", err)
	}
	return nil
}

// WriteWAVFile writes s to path, replacing any existing file.
func WriteWAVFile(path string, s pcm.Signal) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteWAV(f, s); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
