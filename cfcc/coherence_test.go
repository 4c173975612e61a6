package cfcc

import (
	"testing"

	"github.com/mycophonic/transcodescan"
	"github.com/mycophonic/transcodescan/fftengine"
)

func ptr(f float64) *float64 { return &f }

func TestScoreCliffDetected(t *testing.T) {
	profile := transcodescan.CfccProfile{
		LossyPatternDetected: true,
		CliffFreqHz:          ptr(17250), // inside the "17kHz" codec range
		CliffMagnitude:       ptr(-0.4),
	}

	score, flags := Score(profile)

	if score != 25 {
		t.Errorf("score = %d, want 25", score)
	}

	if len(flags) != 1 || flags[0] != transcodescan.CfccCliffFlag("17kHz") {
		t.Errorf("flags = %v, want [%v]", flags, transcodescan.CfccCliffFlag("17kHz"))
	}
}

func TestScoreDecorrelationSpikeWithoutCodecMatch(t *testing.T) {
	profile := transcodescan.CfccProfile{
		LossyPatternDetected: false,
		CliffFreqHz:          ptr(13000), // not inside any codec range
		CliffMagnitude:       ptr(-0.6),
	}

	score, flags := Score(profile)

	if score != 8 {
		t.Errorf("score = %d, want 8", score)
	}

	if len(flags) != 1 || flags[0] != transcodescan.FlagDecorrelationSpike {
		t.Errorf("flags = %v, want [decorrelation_spike]", flags)
	}
}

func TestScoreNaturalRolloffFloorsAtZero(t *testing.T) {
	profile := transcodescan.CfccProfile{NaturalRolloffDetected: true}

	score, flags := Score(profile)

	if score != 0 {
		t.Errorf("score = %d, want 0 (floored)", score)
	}

	if len(flags) != 1 || flags[0] != transcodescan.FlagLofiSafeNaturalRolloff {
		t.Errorf("flags = %v, want [lofi_safe_natural_rolloff]", flags)
	}
}

func TestScoreSkippedIsZero(t *testing.T) {
	score, flags := Score(transcodescan.CfccProfile{Skipped: true})

	if score != 0 || flags != nil {
		t.Errorf("score=%d flags=%v, want 0/nil", score, flags)
	}
}

func TestSteepestNegativeStepFindsCliff(t *testing.T) {
	points := []transcodescan.CfccPoint{
		{F1Hz: 10250, F2Hz: 10750, R: 0.95},
		{F1Hz: 10750, F2Hz: 11250, R: 0.93},
		{F1Hz: 11250, F2Hz: 11750, R: 0.20}, // cliff: step = -0.73
		{F1Hz: 11750, F2Hz: 12250, R: 0.15},
	}

	idx, step := steepestNegativeStep(points)

	if idx != 2 {
		t.Fatalf("idx = %d, want 2", idx)
	}

	if step > cliffStepThreshold {
		t.Errorf("step = %v, want <= %v", step, cliffStepThreshold)
	}
}

func TestSteepestNegativeStepNoneBelowThreshold(t *testing.T) {
	points := []transcodescan.CfccPoint{
		{R: 0.95}, {R: 0.93}, {R: 0.90}, {R: 0.88},
	}

	idx, step := steepestNegativeStep(points)

	if idx != -1 || step != 0 {
		t.Errorf("idx=%d step=%v, want -1/0", idx, step)
	}
}

func TestIsNaturalRolloffMonotonicSmallSteps(t *testing.T) {
	points := []transcodescan.CfccPoint{
		{R: 0.99}, {R: 0.97}, {R: 0.95}, {R: 0.92}, {R: 0.90}, {R: 0.87},
	}

	if !isNaturalRolloff(points) {
		t.Error("expected natural rolloff for small monotonic steps")
	}
}

func TestIsNaturalRolloffRejectsIncrease(t *testing.T) {
	points := []transcodescan.CfccPoint{
		{R: 0.95}, {R: 0.93}, {R: 0.80}, {R: 0.85},
	}

	if isNaturalRolloff(points) {
		t.Error("expected false when correlation increases within the upper half")
	}
}

func TestInCodecRangeAndLabel(t *testing.T) {
	cases := []struct {
		freq      float64
		wantMatch bool
		wantLabel string
	}{
		{11000, true, "11kHz"},
		{15500, true, "15kHz"},
		{17500, true, "17kHz"},
		{19000, true, "19kHz"},
		{20500, true, "20kHz"},
		{13000, false, "unknown"},
	}

	for _, c := range cases {
		if got := inCodecRange(c.freq); got != c.wantMatch {
			t.Errorf("inCodecRange(%v) = %v, want %v", c.freq, got, c.wantMatch)
		}

		if got := codecLabel(c.freq); got != c.wantLabel {
			t.Errorf("codecLabel(%v) = %q, want %q", c.freq, got, c.wantLabel)
		}
	}
}

func TestAnalyzeSkipsWhenTooFewNonQuietBands(t *testing.T) {
	const (
		fftSize    = 4096
		sampleRate = 44100
	)

	nbins := fftSize/2 + 1
	windows := make([]fftengine.Window, 10)

	for i := range windows {
		mag := make([]float64, nbins)
		// Only bins in 10000-10500Hz carry energy; they light up the first
		// band and, through its one overlapping edge bin, the second. Every
		// other band in the 10-22kHz ladder is silent, well under the
		// minNonQuietBands gate.
		for bi := range mag {
			freq := float64(bi) * float64(sampleRate) / float64(fftSize)
			if freq >= 10000 && freq < 10500 {
				mag[bi] = 1.0
			}
		}

		windows[i] = fftengine.Window{Magnitudes: mag, StartSample: i * fftSize / 2}
	}

	profile := Analyze(windows, sampleRate, fftSize)

	if !profile.Skipped {
		t.Error("expected Skipped = true when fewer than minNonQuietBands bands carry energy")
	}
}
