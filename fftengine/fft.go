// Package fftengine partitions mono PCM into overlapping Hann-windowed
// blocks and yields magnitude spectra.
package fftengine

import (
	"math/cmplx"
	"sync"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"

	"github.com/mycophonic/transcodescan/cancel"
)

// MinWindows is the minimum window count required for spectral stability.
const MinWindows = 20

// Window is one FFT window's magnitude spectrum, of length FFTSize/2+1.
type Window struct {
	Magnitudes  []float64
	StartSample int
}

// Engine partitions PCM into FFTSize blocks with 50% overlap (hop =
// FFTSize/2), zero-padding the final partial block, applying a Hann window
// before the real FFT.
type Engine struct {
	fftSize    int
	sampleRate int
	hop        int
}

// New returns an Engine for the given window size and sample rate. fftSize
// must be a power of two (validated by Options.Validate before Analyze
// ever constructs one).
func New(fftSize, sampleRate int) *Engine {
	return &Engine{
		fftSize:    fftSize,
		sampleRate: sampleRate,
		hop:        fftSize / 2,
	}
}

// FrequencyResolution returns S / FFTSize, the Hz spacing between adjacent
// bins.
func (e *Engine) FrequencyResolution() float64 {
	return float64(e.sampleRate) / float64(e.fftSize)
}

// BinHz returns the center frequency, in Hz, of magnitude bin i.
func (e *Engine) BinHz(i int) float64 {
	return float64(i) * e.FrequencyResolution()
}

// Windows partitions mono into overlapping windows and returns their
// magnitude spectra. It checkpoints on token after every window
//: if cancelled, it returns the windows computed so far and
// cancelled=true.
func (e *Engine) Windows(mono []float32, token *cancel.Token) (windows []Window, cancelled bool) {
	hann := hannWindow(e.fftSize)

	block := make([]float64, e.fftSize)

	for start := 0; start < len(mono); start += e.hop {
		if token.IsCancelled() {
			return windows, true
		}

		end := start + e.fftSize
		if end > len(mono) {
			end = len(mono)
		}

		for i := range block {
			block[i] = 0
		}

		for i := start; i < end; i++ {
			block[i-start] = float64(mono[i]) * hann[i-start]
		}

		spectrum := fft.FFTReal(block)

		mag := make([]float64, e.fftSize/2+1)
		for i := range mag {
			mag[i] = cmplx.Abs(spectrum[i])
		}

		windows = append(windows, Window{Magnitudes: mag, StartSample: start})
	}

	return windows, false
}

// hannCacheMu and hannCache cache Hann window coefficients per FFT size. A
// shared cache behind a plain mutex is sufficient here: contention is rare
// once a given FFT size has been warmed up.
var ( //nolint:gochecknoglobals // intentional shared, mutex-protected cache
	hannCacheMu sync.Mutex
	hannCache   = make(map[int][]float64)
)

func hannWindow(n int) []float64 {
	hannCacheMu.Lock()
	defer hannCacheMu.Unlock()

	if w, ok := hannCache[n]; ok {
		return w
	}

	w := window.Hann(n)
	hannCache[n] = w

	return w
}
