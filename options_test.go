package transcodescan

import "testing"

func TestDefaultOptionsValidates(t *testing.T) {
	if err := DefaultOptions().Validate(); err != nil {
		t.Fatalf("DefaultOptions().Validate() = %v, want nil", err)
	}
}

func TestWithDefaultsFillsZeroValue(t *testing.T) {
	got := Options{}.withDefaults()

	want := DefaultOptions()
	if got != want {
		t.Errorf("withDefaults() = %+v, want %+v", got, want)
	}
}

func TestWithDefaultsPreservesExplicitThresholds(t *testing.T) {
	opts := Options{SuspectThreshold: 10, TranscodeThreshold: 20}.withDefaults()

	if opts.SuspectThreshold != 10 || opts.TranscodeThreshold != 20 {
		t.Errorf("thresholds = %d/%d, want 10/20 preserved", opts.SuspectThreshold, opts.TranscodeThreshold)
	}

	if opts.FFTSize != DefaultFFTSize {
		t.Errorf("FFTSize = %d, want default %d filled in", opts.FFTSize, DefaultFFTSize)
	}
}

func TestValidateRejectsOutOfRangeThresholds(t *testing.T) {
	cases := []Options{
		{SuspectThreshold: -1, TranscodeThreshold: 50, FFTSize: 1024, MaxFrames: 10},
		{SuspectThreshold: 50, TranscodeThreshold: 101, FFTSize: 1024, MaxFrames: 10},
		{SuspectThreshold: 60, TranscodeThreshold: 60, FFTSize: 1024, MaxFrames: 10},
		{SuspectThreshold: 10, TranscodeThreshold: 50, FFTSize: 1000, MaxFrames: 10}, // not a power of two
		{SuspectThreshold: 10, TranscodeThreshold: 50, FFTSize: 1024, MaxFrames: 0},
	}

	for i, opts := range cases {
		if err := opts.Validate(); err == nil {
			t.Errorf("case %d: expected error, got nil for %+v", i, opts)
		}
	}
}
