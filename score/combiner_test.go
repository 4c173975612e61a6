package score

import (
	"testing"

	"github.com/mycophonic/transcodescan"
)

func optsWithThresholds(suspect, transcode int) transcodescan.Options {
	opts := transcodescan.DefaultOptions()
	opts.SuspectThreshold = suspect
	opts.TranscodeThreshold = transcode

	return opts
}

func TestCombineSumsAndClamps(t *testing.T) {
	binary := transcodescan.BinaryDetails{Score: 90, Flags: []transcodescan.Flag{transcodescan.FlagLowpassBitrateMismatch}}
	spectral := transcodescan.SpectralDetails{Score: 40, Flags: []transcodescan.Flag{transcodescan.FlagSevereHFDamage}}

	result := Combine(binary, spectral, optsWithThresholds(40, 70))

	if result.Score != 100 {
		t.Errorf("Score = %d, want 100 (90+40 clamped, both cleared agreement threshold)", result.Score)
	}

	if result.Verdict != transcodescan.VerdictTranscode {
		t.Errorf("Verdict = %v, want TRANSCODE", result.Verdict)
	}
}

func TestCombineAgreementBonusRequiresBothComponents(t *testing.T) {
	binary := transcodescan.BinaryDetails{Score: 35}
	spectral := transcodescan.SpectralDetails{Score: 10} // below agreementThreshold

	result := Combine(binary, spectral, optsWithThresholds(40, 70))

	if result.Score != 45 { // no +15 bonus
		t.Errorf("Score = %d, want 45 (no agreement bonus)", result.Score)
	}
}

func TestCombineAgreementBonusApplies(t *testing.T) {
	binary := transcodescan.BinaryDetails{Score: 35}
	spectral := transcodescan.SpectralDetails{Score: 35}

	result := Combine(binary, spectral, optsWithThresholds(40, 90))

	if result.Score != 85 { // 35+35+15
		t.Errorf("Score = %d, want 85", result.Score)
	}
}

func TestVerdictThresholds(t *testing.T) {
	opts := optsWithThresholds(30, 60)

	cases := []struct {
		score int
		want  transcodescan.Verdict
	}{
		{0, transcodescan.VerdictOK},
		{29, transcodescan.VerdictOK},
		{30, transcodescan.VerdictSuspect},
		{59, transcodescan.VerdictSuspect},
		{60, transcodescan.VerdictTranscode},
		{100, transcodescan.VerdictTranscode},
	}

	for _, c := range cases {
		if got := verdictFor(c.score, opts); got != c.want {
			t.Errorf("verdictFor(%d) = %v, want %v", c.score, got, c.want)
		}
	}
}

func TestBuildReasonPicksHighestWeightPerComponent(t *testing.T) {
	binaryFlags := []transcodescan.Flag{
		transcodescan.FlagFrameSizeVarianceUnderCBR, // weight 5
		transcodescan.FlagMultiEncoderSigs,          // weight 15, should win
	}
	spectralFlags := []transcodescan.Flag{
		transcodescan.FlagWeakUltrasonicContent, // weight 6
		transcodescan.CfccCliffFlag("17kHz"),     // prefix-matched weight 25, should win
	}

	reason := buildReason(binaryFlags, spectralFlags)

	want := "flagged for: multi_encoder_sigs, cfcc_cliff_17kHz"
	if reason != want {
		t.Errorf("reason = %q, want %q", reason, want)
	}
}

func TestBuildReasonNoFlagsFired(t *testing.T) {
	if got := buildReason(nil, nil); got != "no significant forensic evidence found" {
		t.Errorf("reason = %q, want fallback text", got)
	}
}

func TestWeightOfPrefixAndSubstringMatches(t *testing.T) {
	if w := weightOf(transcodescan.CfccCliffFlag("19kHz")); w != 25 {
		t.Errorf("cfcc_cliff_ weight = %d, want 25", w)
	}

	if w := weightOf(transcodescan.EncodingChainFlag(transcodescan.EncoderLAME, transcodescan.EncoderFFmpeg)); w != 10 {
		t.Errorf("encoding_chain weight = %d, want 10", w)
	}

	if w := weightOf(transcodescan.EncoderReencodedFlag(transcodescan.EncoderLAME, 3)); w != 8 {
		t.Errorf("_reencoded_x weight = %d, want 8", w)
	}

	if w := weightOf(transcodescan.FlagLofiSafeNaturalRolloff); w != -15 {
		t.Errorf("lofi_safe_natural_rolloff weight = %d, want -15", w)
	}

	if w := weightOf(transcodescan.Flag("something_unknown")); w != 0 {
		t.Errorf("unknown flag weight = %d, want 0", w)
	}
}
