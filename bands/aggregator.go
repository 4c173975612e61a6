// Package bands averages FFT magnitude energy over named frequency bands
// and derives per-window cutoffs, spectral rolloff, and the HF-damage flags
// that feed the spectral score.
package bands

import (
	"math"

	"github.com/mycophonic/transcodescan"
	"github.com/mycophonic/transcodescan/fftengine"
)

// silenceFloorDB is the reported level for a band with no usable energy
// (e.g. the band falls entirely above the available spectrum).
const silenceFloorDB = -120.0

// cutoffPeakLoHz/HiHz bound the peak search for the per-window cutoff
// estimate; cutoffScanFromHz is where the search for the drop starts;
// cutoffDropDB is how far below that peak counts as "cut off";
// cutoffDefaultHz is reported when no such drop is found.
const (
	cutoffPeakLoHz  = 5000.0
	cutoffPeakHiHz  = 15000.0
	cutoffScanFromHz = 15000.0
	cutoffDropDB    = 20.0
	cutoffDefaultHz = 22000.0
)

// rolloffLoKHz/HiKHz bound the least-squares fit window for the rolloff
// slope.
const (
	rolloffLoKHz = 12.0
	rolloffHiKHz = 20.0
)

// flatnessLoHz/HiHz bound the ultrasonic flatness measurement window.
const (
	flatnessLoHz = 19000.0
	flatnessHiHz = 21000.0
)

// Result is everything the band energy aggregator derives from a sequence
// of FFT windows.
type Result struct {
	BandEnergies         transcodescan.BandEnergies
	PerWindowCutoffHz    []float64
	AvgCutoffHz          float64
	CutoffVariance       float64
	RolloffSlopeDBPerKHz float64
	UpperDropDB          float64
	UltrasonicDropDB     float64
	UltrasonicFlatness   float64
	Flags                []transcodescan.Flag
	Score                int
}

// Aggregate computes band energies and derived quantities over windows,
// whose magnitude spectra were produced at the given sample rate and FFT
// size.
func Aggregate(windows []fftengine.Window, sampleRate, fftSize int) Result {
	meanPower := meanPowerSpectrum(windows, fftSize/2+1)

	energies := make(transcodescan.BandEnergies, len(transcodescan.BandRanges))
	for band, rng := range transcodescan.BandRanges {
		energies[band] = bandDBFromSpectrum(meanPower, rng.LoHz, rng.HiHz, sampleRate, fftSize)
	}

	cutoffs := make([]float64, len(windows))
	for i, w := range windows {
		cutoffs[i] = windowCutoffHz(w.Magnitudes, sampleRate, fftSize)
	}

	avgCutoff, cutoffVar := cutoffStats(cutoffs)
	slope := rolloffSlope(meanPower, sampleRate, fftSize)
	flatness := ultrasonicFlatness(meanPower, sampleRate, fftSize)

	upperDrop := energies[transcodescan.BandMidHigh] - energies[transcodescan.BandUpper]
	ultrasonicDrop := energies[transcodescan.BandNarrow] - energies[transcodescan.BandUltrasonic]

	flags, hfScore := hfFlags(upperDrop, ultrasonicDrop, energies, slope, avgCutoff, cutoffVar)

	return Result{
		BandEnergies:         energies,
		PerWindowCutoffHz:    cutoffs,
		AvgCutoffHz:          avgCutoff,
		CutoffVariance:       cutoffVar,
		RolloffSlopeDBPerKHz: slope,
		UpperDropDB:          upperDrop,
		UltrasonicDropDB:     ultrasonicDrop,
		UltrasonicFlatness:   flatness,
		Flags:                flags,
		Score:                hfScore,
	}
}

// meanPowerSpectrum averages squared-magnitude across all windows, bin by
// bin, so downstream band/slope/flatness math operates on one stable
// spectrum instead of re-deriving it from scratch for each derived value.
func meanPowerSpectrum(windows []fftengine.Window, nbins int) []float64 {
	mean := make([]float64, nbins)

	if len(windows) == 0 {
		return mean
	}

	for _, w := range windows {
		for i := 0; i < nbins && i < len(w.Magnitudes); i++ {
			mean[i] += w.Magnitudes[i] * w.Magnitudes[i]
		}
	}

	for i := range mean {
		mean[i] /= float64(len(windows))
	}

	return mean
}

func binRange(loHz, hiHz float64, sampleRate, fftSize int) (lo, hi int) {
	lo = int(math.Floor(loHz * float64(fftSize) / float64(sampleRate)))
	hi = int(math.Ceil(hiHz * float64(fftSize) / float64(sampleRate)))

	if lo < 0 {
		lo = 0
	}

	maxIdx := fftSize/2 + 1 - 1
	if hi > maxIdx {
		hi = maxIdx
	}

	return lo, hi
}

// bandDBFromSpectrum computes RMS energy in dB (reference 1.0) over
// [loHz, hiHz] from a mean power spectrum.
func bandDBFromSpectrum(meanPower []float64, loHz, hiHz float64, sampleRate, fftSize int) float64 {
	lo, hi := binRange(loHz, hiHz, sampleRate, fftSize)
	if lo > hi {
		return silenceFloorDB
	}

	var sum float64

	count := 0

	for i := lo; i <= hi && i < len(meanPower); i++ {
		sum += meanPower[i]
		count++
	}

	if count == 0 || sum <= 0 {
		return silenceFloorDB
	}

	return 10 * math.Log10(sum/float64(count))
}

// windowCutoffHz implements the per-window cutoff estimate: find the peak
// energy in [5,15] kHz, then scanning upward from 15 kHz, return the first
// frequency whose energy is 20 dB below that peak.
func windowCutoffHz(magnitudes []float64, sampleRate, fftSize int) float64 {
	peakLo, peakHi := binRange(cutoffPeakLoHz, cutoffPeakHiHz, sampleRate, fftSize)

	peak := 0.0

	for i := peakLo; i <= peakHi && i < len(magnitudes); i++ {
		if magnitudes[i] > peak {
			peak = magnitudes[i]
		}
	}

	if peak <= 0 {
		return cutoffDefaultHz
	}

	peakDB := 20 * math.Log10(peak)
	threshold := peakDB - cutoffDropDB

	scanFrom := int(math.Floor(cutoffScanFromHz * float64(fftSize) / float64(sampleRate)))

	for i := scanFrom; i < len(magnitudes); i++ {
		if magnitudes[i] <= 0 {
			continue
		}

		db := 20 * math.Log10(magnitudes[i])
		if db <= threshold {
			return float64(i) * float64(sampleRate) / float64(fftSize)
		}
	}

	return cutoffDefaultHz
}

// cutoffStats returns the mean and population variance of the cutoff
// sequence.
func cutoffStats(cutoffs []float64) (avg, variance float64) {
	if len(cutoffs) == 0 {
		return 0, 0
	}

	var sum float64
	for _, c := range cutoffs {
		sum += c
	}

	avg = sum / float64(len(cutoffs))

	var sqDiff float64
	for _, c := range cutoffs {
		d := c - avg
		sqDiff += d * d
	}

	variance = sqDiff / float64(len(cutoffs))

	return avg, variance
}

// rolloffSlope fits a least-squares line of magnitude-dB vs frequency in
// kHz over [12,20] kHz.
func rolloffSlope(meanPower []float64, sampleRate, fftSize int) float64 {
	lo, hi := binRange(rolloffLoKHz*1000, rolloffHiKHz*1000, sampleRate, fftSize)

	var (
		n                      float64
		sumX, sumY, sumXY, sumXX float64
	)

	for i := lo; i <= hi && i < len(meanPower); i++ {
		if meanPower[i] <= 0 {
			continue
		}

		x := float64(i) * float64(sampleRate) / float64(fftSize) / 1000 // kHz
		y := 10 * math.Log10(meanPower[i])                              // dB

		n++
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	if n < 2 {
		return 0
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}

	return (n*sumXY - sumX*sumY) / denom
}

// ultrasonicFlatness is the geometric-over-arithmetic mean of magnitudes in
// [19,21] kHz, in [0,1].
func ultrasonicFlatness(meanPower []float64, sampleRate, fftSize int) float64 {
	lo, hi := binRange(flatnessLoHz, flatnessHiHz, sampleRate, fftSize)

	var (
		sumLog, sumLinear float64
		n                 float64
	)

	const epsilon = 1e-12

	for i := lo; i <= hi && i < len(meanPower); i++ {
		mag := math.Sqrt(meanPower[i]) + epsilon
		sumLog += math.Log(mag)
		sumLinear += mag
		n++
	}

	if n == 0 || sumLinear == 0 {
		return 0
	}

	geoMean := math.Exp(sumLog / n)
	arithMean := sumLinear / n

	return geoMean / arithMean
}

// PerWindowBandEnergies computes named-band energies for every window
// individually, for the optional compact spectrogram.
func PerWindowBandEnergies(windows []fftengine.Window, sampleRate, fftSize int) []transcodescan.BandEnergies {
	frames := make([]transcodescan.BandEnergies, len(windows))

	for wi, w := range windows {
		power := make([]float64, len(w.Magnitudes))
		for i, m := range w.Magnitudes {
			power[i] = m * m
		}

		energies := make(transcodescan.BandEnergies, len(transcodescan.BandRanges))
		for band, rng := range transcodescan.BandRanges {
			energies[band] = bandDBFromSpectrum(power, rng.LoHz, rng.HiHz, sampleRate, fftSize)
		}

		frames[wi] = energies
	}

	return frames
}

// hfFlags applies the additive HF-damage scoring rules.
func hfFlags(
	upperDropDB, ultrasonicDropDB float64,
	energies transcodescan.BandEnergies,
	slope, avgCutoffHz, cutoffVariance float64,
) ([]transcodescan.Flag, int) {
	var (
		flags []transcodescan.Flag
		score int
	)

	severe := upperDropDB > 40
	if severe {
		score += 22
		flags = append(flags, transcodescan.FlagSevereHFDamage)
	} else if upperDropDB > 15 {
		score += 18
		flags = append(flags, transcodescan.FlagHFCutoffDetected)
	}

	if energies[transcodescan.BandUpper] <= -80 {
		score += 10
		flags = append(flags, transcodescan.FlagSilent17kPlus)
	}

	dead := energies[transcodescan.BandUltrasonic] <= -85
	if dead {
		score += 12
		flags = append(flags, transcodescan.FlagDeadUltrasonicBand)
	} else if energies[transcodescan.BandUltrasonic] <= -65 {
		score += 6
		flags = append(flags, transcodescan.FlagWeakUltrasonicContent)
	}

	if slope < -8 {
		score += 8
		flags = append(flags, transcodescan.FlagSteepHFRolloff)
	}

	if avgCutoffHz >= 19500 && avgCutoffHz <= 21000 && cutoffVariance < 300 {
		score += 6
		flags = append(flags, transcodescan.FlagPossible320kOrigin)
	}

	_ = ultrasonicDropDB // reported in SpectralDetails, not independently scored

	return flags, score
}
