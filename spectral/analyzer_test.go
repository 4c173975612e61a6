package spectral

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/mycophonic/transcodescan"
)

func TestAnalyzeEmptyMonoIsInsufficientAudio(t *testing.T) {
	in := Input{Mono: nil, SampleRate: 44100}
	opts := transcodescan.DefaultOptions()

	details := Analyze(in, opts, nil, zerolog.Nop())

	if details.Score != 0 {
		t.Errorf("Score = %d, want 0", details.Score)
	}

	if !details.CFCC.Skipped {
		t.Error("expected CFCC.Skipped = true")
	}

	if !hasFlag(details.Flags, transcodescan.FlagInsufficientAudio) {
		t.Errorf("expected insufficient_audio flag, got %v", details.Flags)
	}
}

func TestAnalyzeFewWindowsSkipsCFCCOnly(t *testing.T) {
	opts := transcodescan.DefaultOptions()
	opts.FFTSize = 1024 // hop 512

	// Enough samples for a couple of windows, but far fewer than MinWindows.
	mono := make([]float32, 1024*3)
	in := Input{Mono: mono, SampleRate: 44100}

	details := Analyze(in, opts, nil, zerolog.Nop())

	if !details.CFCC.Skipped {
		t.Error("expected CFCC.Skipped = true with too few windows")
	}

	if !hasFlag(details.Flags, transcodescan.FlagInsufficientAudio) {
		t.Errorf("expected insufficient_audio flag, got %v", details.Flags)
	}

	if details.BandEnergies == nil {
		t.Error("expected band energies to still be computed despite CFCC being skipped")
	}
}

func TestAnalyzeIncludesSpectrogramWhenRequested(t *testing.T) {
	opts := transcodescan.DefaultOptions()
	opts.FFTSize = 1024
	opts.IncludeSpectrogram = true

	mono := make([]float32, 1024*3)
	in := Input{Mono: mono, SampleRate: 44100}

	details := Analyze(in, opts, nil, zerolog.Nop())

	if len(details.Spectrogram) == 0 {
		t.Error("expected a non-empty spectrogram when IncludeSpectrogram is set")
	}
}

func TestAnalyzeSkipsStereoCorrelationWhenMonoOnly(t *testing.T) {
	opts := transcodescan.DefaultOptions()
	opts.FFTSize = 1024

	mono := make([]float32, 1024*3)
	in := Input{Mono: mono, SampleRate: 44100}

	details := Analyze(in, opts, nil, zerolog.Nop())

	if details.StereoCorrelation != nil {
		t.Errorf("expected nil StereoCorrelation for a mono-only input, got %+v", details.StereoCorrelation)
	}
}

func hasFlag(flags []transcodescan.Flag, want transcodescan.Flag) bool {
	for _, f := range flags {
		if f == want {
			return true
		}
	}

	return false
}
