// Package score combines the binary and spectral component scores into the
// final verdict and a human-readable reason string.
package score

import (
	"fmt"
	"strings"

	"github.com/mycophonic/transcodescan"
)

// maxScore is the combined-score ceiling.
const maxScore = 100

// agreementThreshold is the per-component score both sides must individually
// reach before the agreement bonus applies.
const agreementThreshold = 30

// agreementBonus is added when both components independently clear
// agreementThreshold.
const agreementBonus = 15

// flagWeight is used only to pick which fired flag best explains the score,
// for the human-readable reason string; it mirrors (but does not replace)
// the additive weights applied in binary.score and bands/cfcc.Score.
//
//nolint:gochecknoglobals // immutable lookup table
var flagWeight = map[transcodescan.Flag]int{
	transcodescan.FlagLowpassBitrateMismatch:   25,
	transcodescan.FlagMultiEncoderSigs:         15,
	transcodescan.FlagEncoderQualityMismatch:   10,
	transcodescan.FlagFrameSizeVarianceUnderCBR: 5,
	transcodescan.FlagSevereHFDamage:           22,
	transcodescan.FlagHFCutoffDetected:         18,
	transcodescan.FlagDeadUltrasonicBand:       12,
	transcodescan.FlagSilent17kPlus:            10,
	transcodescan.FlagSteepHFRolloff:           8,
	transcodescan.FlagDecorrelationSpike:       8,
	transcodescan.FlagWeakUltrasonicContent:    6,
	transcodescan.FlagPossible320kOrigin:       6,
}

// Result is the final combined verdict.
type Result struct {
	Score   int
	Verdict transcodescan.Verdict
	Flags   []transcodescan.Flag
	Reason  string
}

// Combine applies the score combiner rules: sum the two component scores,
// apply the agreement bonus, clamp to [0,100], derive the verdict from the
// configured thresholds, and build a one-line reason from the
// highest-weight fired flag in each component.
func Combine(binary transcodescan.BinaryDetails, spectral transcodescan.SpectralDetails, opts transcodescan.Options) Result {
	total := binary.Score + spectral.Score

	if binary.Score >= agreementThreshold && spectral.Score >= agreementThreshold {
		total += agreementBonus
	}

	if total < 0 {
		total = 0
	}

	if total > maxScore {
		total = maxScore
	}

	flags := make([]transcodescan.Flag, 0, len(binary.Flags)+len(spectral.Flags))
	flags = append(flags, binary.Flags...)
	flags = append(flags, spectral.Flags...)

	return Result{
		Score:   total,
		Verdict: verdictFor(total, opts),
		Flags:   flags,
		Reason:  buildReason(binary.Flags, spectral.Flags),
	}
}

func verdictFor(total int, opts transcodescan.Options) transcodescan.Verdict {
	switch {
	case total >= opts.TranscodeThreshold:
		return transcodescan.VerdictTranscode
	case total >= opts.SuspectThreshold:
		return transcodescan.VerdictSuspect
	default:
		return transcodescan.VerdictOK
	}
}

// buildReason picks the highest-weight fired flag from each component and
// joins them into a short explanation.
func buildReason(binaryFlags, spectralFlags []transcodescan.Flag) string {
	parts := make([]string, 0, 2)

	if f, ok := highestWeight(binaryFlags); ok {
		parts = append(parts, string(f))
	}

	if f, ok := highestWeight(spectralFlags); ok {
		parts = append(parts, string(f))
	}

	if len(parts) == 0 {
		return "no significant forensic evidence found"
	}

	return fmt.Sprintf("flagged for: %s", strings.Join(parts, ", "))
}

func highestWeight(flags []transcodescan.Flag) (transcodescan.Flag, bool) {
	var (
		best      transcodescan.Flag
		bestScore = -1
		found     bool
	)

	for _, f := range flags {
		w := weightOf(f)
		if w > bestScore {
			best, bestScore, found = f, w, true
		}
	}

	return best, found
}

func weightOf(f transcodescan.Flag) int {
	if w, ok := flagWeight[f]; ok {
		return w
	}

	if strings.HasPrefix(string(f), "cfcc_cliff_") {
		return 25
	}

	if strings.HasPrefix(string(f), "encoding_chain(") {
		return 10
	}

	if strings.Contains(string(f), "_reencoded_x") {
		return 8
	}

	if f == transcodescan.FlagLofiSafeNaturalRolloff {
		return -15
	}

	return 0
}
