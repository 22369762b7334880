//go:build js && wasm

package main

import (
	"fmt"
	"math"
	"syscall/js"

	"github.com/himanishpuri/AcousticMatch/pkg/acousticmatch/audio"
	"github.com/himanishpuri/AcousticMatch/pkg/acousticmatch/correlation"
	"github.com/himanishpuri/AcousticMatch/pkg/acousticmatch/pcm"
)

// Error codes returned to JavaScript
const (
	ErrorNone = iota
	ErrorInvalidArgs
	ErrorEmptySignal
	ErrorScoring
)

// readSignal converts a Web Audio style float array (interleaved, [-1, 1])
// into a mono 16-bit signal.
func readSignal(arr js.Value, sampleRate, channels int) (pcm.Signal, error) {
	if arr.Type() != js.TypeObject {
		return pcm.Signal{}, fmt.Errorf("audio must be an Array or Float32Array")
	}
	if sampleRate <= 0 {
		return pcm.Signal{}, fmt.Errorf("invalid sample rate: %d", sampleRate)
	}
	if channels < 1 {
		return pcm.Signal{}, fmt.Errorf("invalid channel count: %d", channels)
	}

	n := arr.Length()
	ints := make([]int, n)
	for i := 0; i < n; i++ {
		v := arr.Index(i)
		if v.Type() != js.TypeNumber {
			return pcm.Signal{}, fmt.Errorf("element %d is not a number", i)
		}
		ints[i] = int(pcm.Clamp16(int64(math.Round(v.Float() * 32767))))
	}
	return pcm.New(audio.MixToMono(ints, channels, 0), sampleRate)
}

// scorePair(a, b, sampleRate, channels, mode) correlates two clips.
// Returns: {error: number, data: object | string}
func scorePair(this js.Value, args []js.Value) any {
	if len(args) < 4 {
		return makeErrorResponse(ErrorInvalidArgs, "Expected arguments: a, b, sampleRate, channels[, mode]")
	}

	rate, channels := args[2].Int(), args[3].Int()
	mode := correlation.Full
	if len(args) > 4 && args[4].Type() == js.TypeString {
		m, err := correlation.ParseMode(args[4].String())
		if err != nil {
			return makeErrorResponse(ErrorInvalidArgs, err.Error())
		}
		mode = m
	}

	a, err := readSignal(args[0], rate, channels)
	if err != nil {
		return makeErrorResponse(ErrorInvalidArgs, "a: "+err.Error())
	}
	b, err := readSignal(args[1], rate, channels)
	if err != nil {
		return makeErrorResponse(ErrorInvalidArgs, "b: "+err.Error())
	}
	if a.IsEmpty() || b.IsEmpty() {
		return makeErrorResponse(ErrorEmptySignal, pcm.ErrEmptySignal.Error())
	}

	s, err := correlation.ScorePair(a, b, mode)
	if err != nil {
		return makeErrorResponse(ErrorScoring, err.Error())
	}

	data := js.Global().Get("Object").New()
	data.Set("mode", s.Mode.String())
	data.Set("normalized", s.Normalized)
	data.Set("confidence", s.Confidence())
	data.Set("peak", s.Peak)
	data.Set("peakLag", s.PeakLag)
	data.Set("raw", s.Raw)

	result := js.Global().Get("Object").New()
	result.Set("error", ErrorNone)
	result.Set("data", data)
	return result
}

// toPCM16(audio, sampleRate, channels, factor) mixes and decimates a clip
// so the page can upload a small mono query.
func toPCM16(this js.Value, args []js.Value) any {
	if len(args) < 3 {
		return makeErrorResponse(ErrorInvalidArgs, "Expected arguments: audio, sampleRate, channels[, factor]")
	}

	sig, err := readSignal(args[0], args[1].Int(), args[2].Int())
	if err != nil {
		return makeErrorResponse(ErrorInvalidArgs, err.Error())
	}
	factor := 1
	if len(args) > 3 && args[3].Type() == js.TypeNumber {
		factor = args[3].Int()
	}
	sig, err = pcm.Downsample(sig, factor)
	if err != nil {
		return makeErrorResponse(ErrorInvalidArgs, err.Error())
	}

	out := js.Global().Get("Int16Array").New(sig.Len())
	for i, v := range sig.View() {
		out.SetIndex(i, int(v))
	}

	data := js.Global().Get("Object").New()
	data.Set("samples", out)
	data.Set("sampleRate", sig.SampleRate())

	result := js.Global().Get("Object").New()
	result.Set("error", ErrorNone)
	result.Set("data", data)
	return result
}

func makeErrorResponse(errorCode int, message string) js.Value {
	result := js.Global().Get("Object").New()
	result.Set("error", errorCode)
	result.Set("data", message)
	return result
}

func main() {
	console := js.Global().Get("console")

	js.Global().Set("acousticmatchScorePair", js.FuncOf(scorePair))
	js.Global().Set("acousticmatchToPCM16", js.FuncOf(toPCM16))

	window := js.Global().Get("window")
	if !window.IsUndefined() {
		event := js.Global().Get("CustomEvent").New("wasmReady", js.Global().Get("Object").New())
		window.Call("dispatchEvent", event)
	} else if !console.IsUndefined() {
		console.Call("error", "window object is undefined")
	}

	if !console.IsUndefined() {
		console.Call("log", "AcousticMatch WASM module ready")
	}

	select {}
}
