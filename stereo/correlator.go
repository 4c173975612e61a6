// Package stereo computes the Pearson correlation between left and right
// channels over fixed-length hops, as an informative (non-scoring) signal.
package stereo

import (
	"gonum.org/v1/gonum/stat"

	"github.com/mycophonic/transcodescan"
)

// hopSeconds is the hop length over which each correlation sample is taken.
const hopSeconds = 0.5

// Correlate computes the stereo correlation profile for a two-channel
// signal. Callers must not call this for mono sources; the analyzer omits
// StereoCorrelation entirely for mono.
func Correlate(left, right []float32, sampleRate int) transcodescan.StereoCorrelation {
	hop := int(hopSeconds * float64(sampleRate))
	if hop <= 0 {
		hop = 1
	}

	n := len(left)
	if len(right) < n {
		n = len(right)
	}

	var (
		values   []float64
		min, max = 1.0, -1.0
		sum      float64
	)

	for start := 0; start < n; start += hop {
		end := start + hop
		if end > n {
			end = n
		}

		if end-start < 2 {
			continue
		}

		l := make([]float64, end-start)
		r := make([]float64, end-start)

		for i := start; i < end; i++ {
			l[i-start] = float64(left[i])
			r[i-start] = float64(right[i])
		}

		r2 := stat.Correlation(l, r, nil)
		if r2 < min {
			min = r2
		}

		if r2 > max {
			max = r2
		}

		sum += r2
		values = append(values, r2)
	}

	if len(values) == 0 {
		return transcodescan.StereoCorrelation{}
	}

	return transcodescan.StereoCorrelation{
		Min:  min,
		Max:  max,
		Mean: sum / float64(len(values)),
	}
}
