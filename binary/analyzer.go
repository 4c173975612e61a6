// Package binary composes the frame walker, LAME/Xing parser and encoder
// signature scanner into the binary (container/metadata) half of the
// forensic analysis.
package binary

import (
	"math"

	"github.com/rs/zerolog"

	"github.com/mycophonic/transcodescan"
	"github.com/mycophonic/transcodescan/frame"
	"github.com/mycophonic/transcodescan/lame"
	"github.com/mycophonic/transcodescan/signature"
)

// maxScore is the clamp ceiling for the binary component score.
const maxScore = 50

// minChainOffsetGap is the minimum byte distance required between the
// earliest occurrences of two encoder families before an encoding_chain
// flag fires.
const minChainOffsetGap = 64

// Analyze runs the binary (container + LAME + signature) analysis over the
// raw bytes of a file believed to be an MP3. It never fails: a malformed
// container yields a details value with only encoder-signature counts and
// a score of 0, flagged binary_unavailable.
func Analyze(data []byte, opts transcodescan.Options, logger zerolog.Logger) transcodescan.BinaryDetails {
	occurrences, counts := signature.Scan(data)

	frames, walkErr := walkAll(data, opts.MaxFrames)
	if walkErr != nil {
		logger.Debug().Err(walkErr).Msg("binary: no valid mp3 frame found")

		return transcodescan.BinaryDetails{
			Encoders:      occurrences,
			EncoderCounts: counts,
			FrameStats:    transcodescan.FrameStats{},
			Flags:         []transcodescan.Flag{transcodescan.FlagBinaryUnavailable},
			Score:         0,
		}
	}

	stats := computeFrameStats(frames)

	var lameResult lame.Result
	if len(frames) > 0 {
		res, err := lame.Parse(data, frames[0].Offset, frames[0])
		if err != nil {
			logger.Debug().Err(err).Msg("binary: lame/xing header truncated")
		} else {
			lameResult = res
		}
	}

	details := transcodescan.BinaryDetails{
		Encoders:      occurrences,
		EncoderCounts: counts,
		FrameStats:    stats,
	}

	if lameResult.Lame != nil {
		details.LameTag = lameResult.Lame
		lowpass := lameResult.Lame.LowpassHz
		details.LowpassHz = &lowpass
	}

	score, flags := score(details, stats, lameResult, occurrences, counts)
	details.Score = score
	details.Flags = flags

	return details
}

// walkAll drains the frame walker into a slice. A malformed-container error
// is only returned when zero frames were ever found.
func walkAll(data []byte, maxFrames int) ([]transcodescan.FrameHeader, error) {
	walker := frame.New(data, maxFrames)

	var frames []transcodescan.FrameHeader

	for {
		hdr, _, ok, err := walker.Next()
		if err != nil {
			return nil, err
		}

		if !ok {
			break
		}

		frames = append(frames, hdr)
	}

	return frames, nil
}

func computeFrameStats(frames []transcodescan.FrameHeader) transcodescan.FrameStats {
	histogram := make(map[int]int)

	var sizeSum, sizeSumSq float64

	for _, f := range frames {
		histogram[f.BitrateKbps]++
		sizeSum += float64(f.SizeBytes)
		sizeSumSq += float64(f.SizeBytes) * float64(f.SizeBytes)
	}

	count := len(frames)

	plurality := pluralityBitrate(histogram)

	var variance float64
	if count > 0 {
		mean := sizeSum / float64(count)
		if mean > 0 {
			popVar := sizeSumSq/float64(count) - mean*mean
			variance = popVar / (mean * mean)
		}
	}

	return transcodescan.FrameStats{
		Count:                count,
		BitrateHistogram:     histogram,
		IsVBR:                len(histogram) > 1,
		MeanFrameSizeVar:     variance,
		PluralityBitrateKbps: plurality,
	}
}

func pluralityBitrate(histogram map[int]int) int {
	best, bestCount := 0, -1

	for kbps, n := range histogram {
		if n > bestCount || (n == bestCount && kbps > best) {
			best, bestCount = kbps, n
		}
	}

	return best
}

// bitrateClass buckets a bitrate in kbps to one of five classes, returning
// the class index (0..4, low to high) and the expected minimum lowpass
// frequency a LAME encode at that bitrate should have used.
func bitrateClass(kbps int) (classIndex int, expectedMinHz float64) {
	switch {
	case kbps <= 96:
		return 0, 10500
	case kbps <= 160:
		return 1, 14000
	case kbps <= 224:
		return 2, 16500
	case kbps <= 288:
		return 3, 18000
	default:
		return 4, 19500
	}
}

// qualityImpliedClass estimates the bitrate class a VBR quality indicator
// implies, for the encoder_quality_mismatch check. The Xing
// "quality" field runs 0 (best) to 100 (worst); lower values imply encoders
// were aiming for something like a 320kbps-equivalent profile.
func qualityImpliedClass(quality uint32) int {
	switch {
	case quality <= 20:
		return 4
	case quality <= 40:
		return 3
	case quality <= 60:
		return 2
	case quality <= 80:
		return 1
	default:
		return 0
	}
}

func score(
	details transcodescan.BinaryDetails,
	stats transcodescan.FrameStats,
	lameResult lame.Result,
	occurrences []transcodescan.EncoderOccurrence,
	counts transcodescan.EncoderCounts,
) (int, []transcodescan.Flag) {
	var (
		total int
		flags []transcodescan.Flag
	)

	if details.LameTag != nil && stats.PluralityBitrateKbps > 0 {
		_, expectedMin := bitrateClass(stats.PluralityBitrateKbps)
		if float64(details.LameTag.LowpassHz) < expectedMin {
			total += 25
			flags = append(flags, transcodescan.FlagLowpassBitrateMismatch)
		}
	}

	if mismatch := qualityMismatch(stats, lameResult); mismatch {
		total += 10
		flags = append(flags, transcodescan.FlagEncoderQualityMismatch)
	}

	distinctFamilies := distinctFamilyCount(counts)
	if distinctFamilies >= 2 {
		total += 15
		flags = append(flags, transcodescan.FlagMultiEncoderSigs)

		if chainFlag, ok := chainFlag(occurrences); ok {
			total += 10
			flags = append(flags, chainFlag)
		}
	}

	for family, n := range counts {
		if n < 2 {
			continue
		}

		contribution := (n - 1) * 8
		if contribution > 16 {
			contribution = 16
		}

		total += contribution
		flags = append(flags, transcodescan.EncoderReencodedFlag(family, n))
	}

	if !stats.IsVBR && stats.Count > 0 && stats.MeanFrameSizeVar > 0.15 {
		total += 5
		flags = append(flags, transcodescan.FlagFrameSizeVarianceUnderCBR)
	}

	total = int(math.Min(float64(total), float64(maxScore)))

	return total, flags
}

// qualityMismatch implements the encoder_quality_mismatch rule: the LAME
// quality preset, inferred from the Xing "quality" indicator, disagrees
// with the observed plurality bitrate class by more than one class.
func qualityMismatch(stats transcodescan.FrameStats, lameResult lame.Result) bool {
	if lameResult.Xing == nil || lameResult.Xing.Quality == nil || stats.PluralityBitrateKbps <= 0 {
		return false
	}

	observedClass, _ := bitrateClass(stats.PluralityBitrateKbps)
	impliedClass := qualityImpliedClass(*lameResult.Xing.Quality)

	diff := observedClass - impliedClass
	if diff < 0 {
		diff = -diff
	}

	return diff > 1
}

func distinctFamilyCount(counts transcodescan.EncoderCounts) int {
	n := 0

	for _, c := range counts {
		if c > 0 {
			n++
		}
	}

	return n
}

// chainFlag finds the earliest-occurring family A and the earliest family B
// that first appears at least minChainOffsetGap bytes after A, and builds
// the encoding_chain(A -> B) flag for that pair.
func chainFlag(occurrences []transcodescan.EncoderOccurrence) (transcodescan.Flag, bool) {
	firstOffset := make(map[transcodescan.EncoderFamily]int64)

	for _, occ := range occurrences {
		if _, seen := firstOffset[occ.Family]; !seen {
			firstOffset[occ.Family] = occ.Offset
		}
	}

	if len(firstOffset) < 2 {
		return "", false
	}

	// occurrences is already offset-sorted; walk it to find A (the very
	// first family seen) and B (the first distinct family whose earliest
	// occurrence lies enough of a gap after A). Later repeats of a family
	// are skipped, so only earliest occurrences are compared.
	var (
		familyA    transcodescan.EncoderFamily
		offsetA    int64
		haveA      bool
	)

	for _, occ := range occurrences {
		if !haveA {
			familyA, offsetA, haveA = occ.Family, occ.Offset, true
			continue
		}

		if occ.Family == familyA || occ.Offset != firstOffset[occ.Family] {
			continue
		}

		if occ.Offset-offsetA >= minChainOffsetGap {
			return transcodescan.EncodingChainFlag(familyA, occ.Family), true
		}
	}

	return "", false
}
