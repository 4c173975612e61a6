// Package spectral composes the FFT engine, band energy aggregator,
// cross-frequency coherence analyzer and stereo correlator into the
// spectral half of the forensic analysis.
package spectral

import (
	"math"

	"github.com/rs/zerolog"

	"github.com/mycophonic/transcodescan"
	"github.com/mycophonic/transcodescan/bands"
	"github.com/mycophonic/transcodescan/cancel"
	"github.com/mycophonic/transcodescan/cfcc"
	"github.com/mycophonic/transcodescan/fftengine"
	"github.com/mycophonic/transcodescan/stereo"
)

// maxScore is the clamp ceiling for the spectral component score.
const maxScore = 50

// Input bundles the decoded PCM the spectral analyzer needs. Stereo is nil
// for mono sources.
type Input struct {
	Mono       []float32
	Left       []float32
	Right      []float32
	SampleRate int
}

// Analyze runs the windowed FFT, band energy aggregation, CFCC and stereo
// correlation stages and returns the combined spectral details. It never
// fails: insufficient audio and cancellation are reported as flags with
// partial results.
func Analyze(in Input, opts transcodescan.Options, token *cancel.Token, logger zerolog.Logger) transcodescan.SpectralDetails {
	engine := fftengine.New(opts.FFTSize, in.SampleRate)

	windows, cancelled := engine.Windows(in.Mono, token)

	var flags []transcodescan.Flag

	if cancelled {
		logger.Debug().Msg("spectral: cancelled mid-window")
		flags = append(flags, transcodescan.FlagCancelled)
	}

	if len(windows) == 0 {
		return transcodescan.SpectralDetails{
			CFCC:  transcodescan.CfccProfile{Skipped: true},
			Flags: append(flags, transcodescan.FlagInsufficientAudio),
			Score: 0,
		}
	}

	bandResult := bands.Aggregate(windows, in.SampleRate, opts.FFTSize)

	var cfccProfile transcodescan.CfccProfile

	if len(windows) >= fftengine.MinWindows {
		cfccProfile = cfcc.Analyze(windows, in.SampleRate, opts.FFTSize)
	} else {
		logger.Debug().Int("windows", len(windows)).Msg("spectral: insufficient windows, cfcc skipped")

		cfccProfile = transcodescan.CfccProfile{Skipped: true}
		flags = append(flags, transcodescan.FlagInsufficientAudio)
	}

	cfccScore, cfccFlags := cfcc.Score(cfccProfile)

	score := int(math.Min(float64(bandResult.Score+cfccScore), float64(maxScore)))
	if score < 0 {
		score = 0
	}

	flags = append(flags, bandResult.Flags...)
	flags = append(flags, cfccFlags...)

	details := transcodescan.SpectralDetails{
		BandEnergies:         bandResult.BandEnergies,
		UpperDropDB:          bandResult.UpperDropDB,
		UltrasonicDropDB:     bandResult.UltrasonicDropDB,
		UltrasonicFlatness:   bandResult.UltrasonicFlatness,
		PerWindowCutoffHz:    bandResult.PerWindowCutoffHz,
		AvgCutoffHz:          bandResult.AvgCutoffHz,
		CutoffVariance:       bandResult.CutoffVariance,
		RolloffSlopeDBPerKHz: bandResult.RolloffSlopeDBPerKHz,
		CFCC:                 cfccProfile,
		Flags:                flags,
		Score:                score,
	}

	if len(in.Left) > 0 && len(in.Right) > 0 {
		corr := stereo.Correlate(in.Left, in.Right, in.SampleRate)
		details.StereoCorrelation = &corr
	}

	if opts.IncludeSpectrogram {
		perWindow := bands.PerWindowBandEnergies(windows, in.SampleRate, opts.FFTSize)

		frames := make([]transcodescan.BandFrame, len(perWindow))
		for i, e := range perWindow {
			frames[i] = transcodescan.BandFrame{Energies: e}
		}

		details.Spectrogram = frames
	}

	return details
}
