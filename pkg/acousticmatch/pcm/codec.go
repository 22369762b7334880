package pcm

import (
	"encoding/binary"
	"fmt"
)

// BytesPerSample is the stored width of one sample.
const BytesPerSample = 2

// Encode serializes the samples as signed 16-bit little-endian integers.
// There is no header and no compression; the rate is stored alongside.
func Encode(s Signal) []byte {
	out := make([]byte, len(s.samples)*BytesPerSample)
	for i, v := range s.samples {
		binary.LittleEndian.PutUint16(out[i*BytesPerSample:], uint16(v))
	}
	return out
}

// Decode rebuilds a Signal from bytes produced by Encode.
func Decode(data []byte, sampleRate int) (Signal, error) {
	if len(data)%BytesPerSample != 0 {
		return Signal{}, fmt.Errorf("%w: pcm blob has odd length %d", ErrInvalidParameter, len(data))
	}
	if sampleRate <= 0 {
		return Signal{}, fmt.Errorf("%w: sample rate must be positive, got %d", ErrInvalidParameter, sampleRate)
	}

	samples := make([]int16, len(data)/BytesPerSample)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*BytesPerSample:]))
	}
	return wrap(samples, sampleRate), nil
}
