package transcodescan

import (
	"errors"
	"fmt"
)

// Default option values.
const (
	DefaultSuspectThreshold   = 35
	DefaultTranscodeThreshold = 65
	DefaultFFTSize            = 8192
	DefaultMaxFrames          = 8192
)

// Options configures one Analyze call. It is an immutable value passed in
// explicitly; nothing in this package reads from a package-level mutable
// global.
type Options struct {
	// SkipSpectral, when true, skips the FFT/CFCC/stereo pipeline entirely
	// and reports a spectral score of 0.
	SkipSpectral bool

	// SuspectThreshold and TranscodeThreshold are the score boundaries
	// feeding the verdict. 0 <= SuspectThreshold <
	// TranscodeThreshold <= 100.
	SuspectThreshold   int
	TranscodeThreshold int

	// FFTSize is the window size in samples for the FFT engine. Must be a
	// power of two.
	FFTSize int

	// MaxFrames caps how many MP3 frames the frame walker visits before it
	// stops for cost control.
	MaxFrames int

	// IncludeSpectrogram requests the per-window band-energy spectrogram in
	// the result.
	IncludeSpectrogram bool
}

// DefaultOptions returns the documented default configuration.
func DefaultOptions() Options {
	return Options{
		SuspectThreshold:   DefaultSuspectThreshold,
		TranscodeThreshold: DefaultTranscodeThreshold,
		FFTSize:            DefaultFFTSize,
		MaxFrames:          DefaultMaxFrames,
	}
}

// ErrConfiguration is returned by Validate when Options describe an invalid
// configuration. Invalid options are rejected eagerly, before any analysis
// starts; this is the one error Analyze ever returns directly instead of
// folding into a flag.
var ErrConfiguration = errors.New("invalid configuration")

// Validate checks the option invariants Analyze requires before it will run.
func (o Options) Validate() error {
	if o.SuspectThreshold < 0 || o.SuspectThreshold > 100 {
		return fmt.Errorf("%w: suspect threshold %d out of [0,100]", ErrConfiguration, o.SuspectThreshold)
	}

	if o.TranscodeThreshold < 0 || o.TranscodeThreshold > 100 {
		return fmt.Errorf("%w: transcode threshold %d out of [0,100]", ErrConfiguration, o.TranscodeThreshold)
	}

	if o.SuspectThreshold >= o.TranscodeThreshold {
		return fmt.Errorf("%w: suspect threshold %d must be < transcode threshold %d",
			ErrConfiguration, o.SuspectThreshold, o.TranscodeThreshold)
	}

	if o.FFTSize <= 0 || o.FFTSize&(o.FFTSize-1) != 0 {
		return fmt.Errorf("%w: fft size %d is not a power of two", ErrConfiguration, o.FFTSize)
	}

	if o.MaxFrames <= 0 {
		return fmt.Errorf("%w: max frames %d must be positive", ErrConfiguration, o.MaxFrames)
	}

	return nil
}

// withDefaults fills in zero-valued fields with their documented defaults.
// Analyze calls this before Validate so callers may build Options with only
// the fields they care about set, matching the corpus convention of
// zero-value-friendly config structs.
func (o Options) withDefaults() Options {
	if o.SuspectThreshold == 0 && o.TranscodeThreshold == 0 {
		o.SuspectThreshold = DefaultSuspectThreshold
		o.TranscodeThreshold = DefaultTranscodeThreshold
	}

	if o.FFTSize == 0 {
		o.FFTSize = DefaultFFTSize
	}

	if o.MaxFrames == 0 {
		o.MaxFrames = DefaultMaxFrames
	}

	return o
}
