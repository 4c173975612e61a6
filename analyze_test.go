package transcodescan

import (
	"bytes"
	"context"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/mycophonic/transcodescan/wav"
)

// sineWAV builds a minimal mono 16-bit PCM WAV file containing a 1kHz pure
// tone of the given length. At the default FFT size, 3 seconds clears
// fftengine.MinWindows and 1 second does not.
func sineWAV(t *testing.T, sampleRate int, seconds float64) []byte {
	t.Helper()

	n := int(float64(sampleRate) * seconds)
	pcm := make([]byte, n*2)

	for i := 0; i < n; i++ {
		v := int16(10000 * math.Sin(2*math.Pi*1000*float64(i)/float64(sampleRate)))
		pcm[2*i] = byte(v)
		pcm[2*i+1] = byte(v >> 8)
	}

	var buf bytes.Buffer

	format := PCMFormat{SampleRate: sampleRate, BitDepth: Depth16, Channels: 1}
	if err := wav.Encode(&buf, pcm, format); err != nil {
		t.Fatalf("wav.Encode() error = %v", err)
	}

	return buf.Bytes()
}

func TestAnalyzeToneWAVPopulatesResult(t *testing.T) {
	data := sineWAV(t, 44100, 3.0)

	result, err := Analyze(context.Background(), "tone.wav", bytes.NewReader(data), DefaultOptions(), zerolog.Nop())
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if result.Format != "WAV" {
		t.Errorf("Format = %q, want WAV", result.Format)
	}

	if result.SampleRate != 44100 || result.Channels != 1 {
		t.Errorf("unexpected format: %+v", result)
	}

	if result.Binary == nil || result.Spectral == nil {
		t.Fatal("expected both Binary and Spectral details to be populated")
	}

	if result.Verdict == "" {
		t.Error("expected a non-empty verdict")
	}
}

func TestAnalyzeSkipSpectralOnlyRunsBinary(t *testing.T) {
	data := sineWAV(t, 44100, 1.0)

	opts := DefaultOptions()
	opts.SkipSpectral = true

	result, err := Analyze(context.Background(), "tone.wav", bytes.NewReader(data), opts, zerolog.Nop())
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if result.Spectral == nil {
		t.Fatal("expected a non-nil (zero-value) Spectral details")
	}

	if diff := cmp.Diff(SpectralDetails{}, *result.Spectral); diff != "" {
		t.Errorf("Spectral details not zero-valued when skipped (-want +got):\n%s", diff)
	}
}

func TestAnalyzeUnrecognizedContainerFoldsIntoDecodeFailedFlag(t *testing.T) {
	data := make([]byte, 64) // no recognizable magic bytes anywhere

	result, err := Analyze(context.Background(), "mystery.bin", bytes.NewReader(data), DefaultOptions(), zerolog.Nop())
	if err != nil {
		t.Fatalf("Analyze() error = %v, want nil (decode failures are folded into flags)", err)
	}

	if !hasResultFlag(result.Flags, FlagDecodeFailed) {
		t.Errorf("expected decode_failed flag, got %v", result.Flags)
	}

	if result.Verdict == "" {
		t.Error("expected a verdict even when decoding fails")
	}
}

func TestAnalyzeRejectsInvalidOptions(t *testing.T) {
	data := sineWAV(t, 44100, 1.0)

	opts := DefaultOptions()
	opts.SuspectThreshold = opts.TranscodeThreshold // invalid: must be strictly less

	_, err := Analyze(context.Background(), "tone.wav", bytes.NewReader(data), opts, zerolog.Nop())
	if err == nil {
		t.Error("expected an error for invalid Options")
	}
}

func hasResultFlag(flags []Flag, want Flag) bool {
	for _, f := range flags {
		if f == want {
			return true
		}
	}

	return false
}
