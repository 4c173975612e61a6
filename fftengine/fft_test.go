package fftengine

import (
	"math"
	"testing"

	"github.com/mycophonic/transcodescan/cancel"
)

func sine(freqHz float64, sampleRate, n int) []float32 {
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = float32(math.Sin(2 * math.Pi * freqHz * float64(i) / float64(sampleRate)))
	}

	return samples
}

func TestFrequencyResolutionAndBinHz(t *testing.T) {
	e := New(4096, 44100)

	want := 44100.0 / 4096.0
	if got := e.FrequencyResolution(); math.Abs(got-want) > 1e-9 {
		t.Errorf("FrequencyResolution() = %v, want %v", got, want)
	}

	if got := e.BinHz(10); math.Abs(got-want*10) > 1e-9 {
		t.Errorf("BinHz(10) = %v, want %v", got, want*10)
	}
}

func TestWindowsCountAndStride(t *testing.T) {
	const fftSize = 1024

	e := New(fftSize, 44100)

	hop := fftSize / 2
	mono := make([]float32, fftSize+2*hop) // starts at 0, hop, 2*hop, 3*hop

	windows, cancelled := e.Windows(mono, nil)
	if cancelled {
		t.Fatal("expected cancelled = false")
	}

	wantCount := 4
	if len(windows) != wantCount {
		t.Fatalf("got %d windows, want %d", len(windows), wantCount)
	}

	for i, w := range windows {
		wantStart := i * hop
		if w.StartSample != wantStart {
			t.Errorf("window %d StartSample = %d, want %d", i, w.StartSample, wantStart)
		}

		if len(w.Magnitudes) != fftSize/2+1 {
			t.Errorf("window %d has %d magnitude bins, want %d", i, len(w.Magnitudes), fftSize/2+1)
		}
	}
}

func TestWindowsPeakBinMatchesToneFrequency(t *testing.T) {
	const (
		fftSize    = 4096
		sampleRate = 44100
		toneHz     = 1000.0
	)

	e := New(fftSize, sampleRate)

	mono := sine(toneHz, sampleRate, fftSize)

	// len(mono) == fftSize yields two windows (starts at 0 and at the hop);
	// only the first one covers the tone without zero-padding.
	windows, _ := e.Windows(mono, nil)
	if len(windows) != 2 {
		t.Fatalf("expected exactly 2 windows, got %d", len(windows))
	}

	mag := windows[0].Magnitudes

	peakBin := 0
	for i, v := range mag {
		if v > mag[peakBin] {
			peakBin = i
		}
	}

	wantBin := int(math.Round(toneHz / e.FrequencyResolution()))
	if peakBin != wantBin {
		t.Errorf("peak bin = %d (%.1f Hz), want %d (%.1f Hz)", peakBin, e.BinHz(peakBin), wantBin, toneHz)
	}
}

func TestWindowsCancellationStopsEarly(t *testing.T) {
	e := New(1024, 44100)

	token := cancel.New()
	token.Cancel()

	mono := make([]float32, 1024*10)

	windows, cancelled := e.Windows(mono, token)
	if !cancelled {
		t.Error("expected cancelled = true")
	}

	if len(windows) != 0 {
		t.Errorf("expected zero windows on immediate cancellation, got %d", len(windows))
	}
}

func TestWindowsHandlesShortFinalBlock(t *testing.T) {
	const fftSize = 1024

	e := New(fftSize, 44100)

	// Short input: the walker should zero-pad the trailing partial block
	// rather than skip or error on it.
	mono := make([]float32, fftSize/2+100)

	windows, cancelled := e.Windows(mono, nil)
	if cancelled {
		t.Fatal("expected cancelled = false")
	}

	if len(windows) != 2 {
		t.Fatalf("got %d windows, want 2", len(windows))
	}

	if windows[1].StartSample != fftSize/2 {
		t.Errorf("second window StartSample = %d, want %d", windows[1].StartSample, fftSize/2)
	}
}
