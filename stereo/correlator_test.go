package stereo

import (
	"math"
	"testing"
)

func TestCorrelatePerfectlyCorrelated(t *testing.T) {
	const sampleRate = 44100

	n := sampleRate * 2 // two hops worth
	left := make([]float32, n)
	right := make([]float32, n)

	for i := range left {
		v := float32(math.Sin(2 * math.Pi * 440 * float64(i) / float64(sampleRate)))
		left[i] = v
		right[i] = v
	}

	corr := Correlate(left, right, sampleRate)

	if math.Abs(corr.Min-1.0) > 1e-6 {
		t.Errorf("Min = %v, want ~1.0", corr.Min)
	}

	if math.Abs(corr.Max-1.0) > 1e-6 {
		t.Errorf("Max = %v, want ~1.0", corr.Max)
	}

	if math.Abs(corr.Mean-1.0) > 1e-6 {
		t.Errorf("Mean = %v, want ~1.0", corr.Mean)
	}
}

func TestCorrelateInvertedChannelsAreAnticorrelated(t *testing.T) {
	const sampleRate = 44100

	n := sampleRate
	left := make([]float32, n)
	right := make([]float32, n)

	for i := range left {
		v := float32(math.Sin(2 * math.Pi * 440 * float64(i) / float64(sampleRate)))
		left[i] = v
		right[i] = -v
	}

	corr := Correlate(left, right, sampleRate)

	if math.Abs(corr.Mean-(-1.0)) > 1e-6 {
		t.Errorf("Mean = %v, want ~-1.0", corr.Mean)
	}
}

func TestCorrelateEmptyInputReturnsZeroValue(t *testing.T) {
	corr := Correlate(nil, nil, 44100)

	if corr.Min != 0 || corr.Max != 0 || corr.Mean != 0 {
		t.Errorf("expected zero-value StereoCorrelation, got %+v", corr)
	}
}

func TestCorrelateUsesHalfSecondHops(t *testing.T) {
	const sampleRate = 1000 // small rate keeps the test fast: 0.5s hop = 500 samples

	n := sampleRate * 3 / 2 // 1.5s of audio across three 0.5s hops
	left := make([]float32, n)
	right := make([]float32, n)

	for i := range left {
		v := float32(math.Sin(2 * math.Pi * 50 * float64(i) / float64(sampleRate)))
		left[i] = v
		right[i] = v
	}

	corr := Correlate(left, right, sampleRate)

	if math.Abs(corr.Mean-1.0) > 1e-6 {
		t.Errorf("Mean = %v, want ~1.0", corr.Mean)
	}
}
