package transcodescan

import "fmt"

// Flag is a closed tag describing one piece of forensic evidence that fired
// during analysis. Flags are the wire/serialization form of evidence, but
// within the engine they are a fixed vocabulary so a typo can't invent a new
// one silently.
type Flag string

// Binary-analyzer flags.
const (
	FlagLowpassBitrateMismatch  Flag = "lowpass_bitrate_mismatch"
	FlagEncoderQualityMismatch  Flag = "encoder_quality_mismatch"
	FlagMultiEncoderSigs        Flag = "multi_encoder_sigs"
	FlagFrameSizeVarianceUnderCBR Flag = "frame_size_variance_under_cbr"
	FlagBinaryUnavailable       Flag = "binary_unavailable"
)

// Spectral-analyzer flags.
const (
	FlagSevereHFDamage        Flag = "severe_hf_damage"
	FlagHFCutoffDetected      Flag = "hf_cutoff_detected"
	FlagSilent17kPlus         Flag = "silent_17k+"
	FlagDeadUltrasonicBand    Flag = "dead_ultrasonic_band"
	FlagWeakUltrasonicContent Flag = "weak_ultrasonic_content"
	FlagSteepHFRolloff        Flag = "steep_hf_rolloff"
	FlagPossible320kOrigin    Flag = "possible_320k_origin"
	FlagDecorrelationSpike    Flag = "decorrelation_spike"
	FlagLofiSafeNaturalRolloff Flag = "lofi_safe_natural_rolloff"
	FlagInsufficientAudio     Flag = "insufficient_audio"
)

// Lifecycle / error flags.
const (
	FlagDecodeFailed Flag = "decode_failed"
	FlagCancelled    Flag = "cancelled"
)

// EncoderReencodedFlag builds the "<family>_reencoded_xN" flag.
func EncoderReencodedFlag(family EncoderFamily, n int) Flag {
	return Flag(fmt.Sprintf("%s_reencoded_x%d", family.slug(), n))
}

// EncodingChainFlag builds the one free-form templated flag, "encoding_chain(A
// -> B)", reported when the earliest occurrence of encoder family A precedes
// the earliest occurrence of family B by at least 64 bytes.
func EncodingChainFlag(a, b EncoderFamily) Flag {
	return Flag(fmt.Sprintf("encoding_chain(%s -> %s)", a, b))
}

// CfccCliffFlag builds the "cfcc_cliff_<band>" flag for a detected lossy
// cliff at the given codec-range label, e.g. "cfcc_cliff_17kHz".
func CfccCliffFlag(bandLabel string) Flag {
	return Flag("cfcc_cliff_" + bandLabel)
}
