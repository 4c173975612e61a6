// Package cfcc implements the cross-frequency coherence analysis: adjacent
// 500 Hz-wide bands between 10 kHz and 22 kHz are correlated window-to-window,
// and a sharp decorrelation step in a known lossy-codec range is evidence of
// a lowpass cliff left by a lossy source.
package cfcc

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/mycophonic/transcodescan"
	"github.com/mycophonic/transcodescan/fftengine"
)

// bandWidthHz, rangeLoHz and rangeHiHz define the adjacent-band ladder.
const (
	bandWidthHz = 500.0
	rangeLoHz   = 10000.0
	rangeHiHz   = 22000.0
)

// quietFloorDB marks a band as too quiet to correlate meaningfully.
const quietFloorDB = -90.0

// minNonQuietBands is the minimum number of usable bands required before
// CFCC runs at all.
const minNonQuietBands = 6

// cliffStepThreshold is the maximum (most negative) adjacent-pair
// correlation step that counts as a cliff.
const cliffStepThreshold = -0.25

// decorrelationSpikeThreshold is the step beyond which, absent a codec-range
// match, a decorrelation_spike flag fires instead.
const decorrelationSpikeThreshold = -0.5

// naturalRolloffMeanAbsStep is the ceiling on mean absolute step, over the
// upper half of the band ladder, for a monotonic decline to count as natural
// rolloff rather than a codec artifact.
const naturalRolloffMeanAbsStep = 0.08

// codecRange is one frequency window a cliff landing inside it implicates as
// a lossy-codec lowpass boundary.
type codecRange struct {
	loHz, hiHz float64
	label      string
}

//nolint:gochecknoglobals // immutable lookup table
var codecRanges = []codecRange{
	{10500, 12000, "11kHz"},
	{14000, 16500, "15kHz"},
	{16500, 18500, "17kHz"},
	{18000, 19500, "19kHz"},
	{19500, 21000, "20kHz"},
}

// band is one 500 Hz-wide band in the ladder, with its per-window energy
// time series.
type band struct {
	centerHz float64
	energies []float64
	meanDB   float64
}

// Analyze computes the CFCC profile over a sequence of FFT windows.
// sampleRate and fftSize describe how the windows were produced.
func Analyze(windows []fftengine.Window, sampleRate, fftSize int) transcodescan.CfccProfile {
	bands := buildBands(windows, sampleRate, fftSize)

	usable := make([]band, 0, len(bands))

	for _, b := range bands {
		if b.meanDB > quietFloorDB {
			usable = append(usable, b)
		}
	}

	if len(usable) < minNonQuietBands {
		return transcodescan.CfccProfile{Skipped: true}
	}

	points := correlateAdjacent(usable)

	cliffIdx, cliffStep := steepestNegativeStep(points)

	profile := transcodescan.CfccProfile{Points: points}

	if cliffIdx >= 0 {
		cliffFreq := points[cliffIdx].F2Hz
		profile.CliffFreqHz = &cliffFreq
		profile.CliffMagnitude = &cliffStep
		profile.LossyPatternDetected = inCodecRange(cliffFreq)
	} else {
		profile.NaturalRolloffDetected = isNaturalRolloff(points)
	}

	return profile
}

// Score applies the CFCC scoring rules: cfcc_cliff_<band>
// (+25), decorrelation_spike (+8, only when no codec-range match), and
// lofi_safe_natural_rolloff (-15, floor at 0 for this component alone).
func Score(profile transcodescan.CfccProfile) (int, []transcodescan.Flag) {
	if profile.Skipped {
		return 0, nil
	}

	var (
		score int
		flags []transcodescan.Flag
	)

	switch {
	case profile.LossyPatternDetected && profile.CliffFreqHz != nil:
		score += 25
		flags = append(flags, transcodescan.CfccCliffFlag(codecLabel(*profile.CliffFreqHz)))
	case profile.CliffMagnitude != nil && *profile.CliffMagnitude <= decorrelationSpikeThreshold:
		score += 8
		flags = append(flags, transcodescan.FlagDecorrelationSpike)
	case profile.NaturalRolloffDetected:
		score -= 15
		flags = append(flags, transcodescan.FlagLofiSafeNaturalRolloff)
	}

	if score < 0 {
		score = 0
	}

	return score, flags
}

// buildBands partitions [10000,22000) Hz into 500 Hz-wide bands and computes
// each band's per-window summed-power time series plus its overall mean dB.
func buildBands(windows []fftengine.Window, sampleRate, fftSize int) []band {
	var bands []band

	for lo := rangeLoHz; lo < rangeHiHz; lo += bandWidthHz {
		hi := lo + bandWidthHz

		loBin := int(math.Floor(lo * float64(fftSize) / float64(sampleRate)))
		hiBin := int(math.Ceil(hi * float64(fftSize) / float64(sampleRate)))

		energies := make([]float64, len(windows))

		var totalPower float64

		for wi, w := range windows {
			var sum float64

			for bi := loBin; bi <= hiBin && bi < len(w.Magnitudes); bi++ {
				if bi < 0 {
					continue
				}

				sum += w.Magnitudes[bi] * w.Magnitudes[bi]
			}

			energies[wi] = sum
			totalPower += sum
		}

		meanDB := quietFloorDB - 1
		if len(windows) > 0 && totalPower > 0 {
			meanDB = 10 * math.Log10(totalPower/float64(len(windows)))
		}

		bands = append(bands, band{
			centerHz: (lo + hi) / 2,
			energies: energies,
			meanDB:   meanDB,
		})
	}

	return bands
}

// correlateAdjacent computes Pearson correlation between each pair of
// adjacent usable bands' per-window energy series.
func correlateAdjacent(bands []band) []transcodescan.CfccPoint {
	sort.Slice(bands, func(i, j int) bool { return bands[i].centerHz < bands[j].centerHz })

	points := make([]transcodescan.CfccPoint, 0, len(bands)-1)

	for i := 1; i < len(bands); i++ {
		r := stat.Correlation(bands[i-1].energies, bands[i].energies, nil)
		points = append(points, transcodescan.CfccPoint{
			F1Hz: bands[i-1].centerHz,
			F2Hz: bands[i].centerHz,
			R:    r,
		})
	}

	return points
}

// steepestNegativeStep finds the pair with the largest negative step
// (r_i - r_{i-1}) and returns its index in points, provided that step is at
// or below cliffStepThreshold. Returns (-1, 0) when no such step exists.
func steepestNegativeStep(points []transcodescan.CfccPoint) (idx int, step float64) {
	idx = -1

	for i := 1; i < len(points); i++ {
		s := points[i].R - points[i-1].R
		if s < step {
			step = s
			idx = i
		}
	}

	if step > cliffStepThreshold {
		return -1, 0
	}

	return idx, step
}

// isNaturalRolloff reports whether, absent a cliff, correlation declines
// monotonically (non-increasing) with a small mean absolute step across the
// upper half of the band ladder.
func isNaturalRolloff(points []transcodescan.CfccPoint) bool {
	if len(points) < 2 {
		return false
	}

	half := len(points) / 2
	upper := points[half:]

	var sumAbsStep float64

	for i := 1; i < len(upper); i++ {
		step := upper[i].R - upper[i-1].R
		if step > 1e-9 {
			return false // increasing correlation is not a rolloff
		}

		sumAbsStep += math.Abs(step)
	}

	if len(upper) < 2 {
		return false
	}

	meanAbsStep := sumAbsStep / float64(len(upper)-1)

	return meanAbsStep <= naturalRolloffMeanAbsStep
}

// inCodecRange reports whether freqHz falls within one of the known
// lossy-codec lowpass ranges.
func inCodecRange(freqHz float64) bool {
	for _, cr := range codecRanges {
		if freqHz >= cr.loHz && freqHz <= cr.hiHz {
			return true
		}
	}

	return false
}

// codecLabel returns the label of the codec range containing freqHz, or
// "unknown" if called outside every range.
func codecLabel(freqHz float64) string {
	for _, cr := range codecRanges {
		if freqHz >= cr.loHz && freqHz <= cr.hiHz {
			return cr.label
		}
	}

	return "unknown"
}
