package transcodescan

import (
	"encoding/json"
	"math"
)

// MPEGVersion identifies the MPEG audio version of a frame.
type MPEGVersion uint8

// Supported MPEG versions.
const (
	MPEG1 MPEGVersion = iota
	MPEG2
	MPEG25
)

// String returns the human-readable MPEG version name.
func (v MPEGVersion) String() string {
	switch v {
	case MPEG1:
		return "MPEG1"
	case MPEG2:
		return "MPEG2"
	case MPEG25:
		return "MPEG2.5"
	default:
		return "unknown"
	}
}

// Layer identifies the MPEG audio layer of a frame. Only Layer III (MP3) is
// walked by this analyzer, but the type models all three so a malformed
// header is rejected rather than silently misparsed.
type Layer uint8

// Supported MPEG layers.
const (
	LayerI Layer = iota + 1
	LayerII
	LayerIII
)

// ChannelMode identifies the channel layout of an MP3 frame.
type ChannelMode uint8

// Supported channel modes.
const (
	ChannelStereo ChannelMode = iota
	ChannelJointStereo
	ChannelDualChannel
	ChannelMono
)

// FrameHeader describes one validated MP3 frame.
type FrameHeader struct {
	Version       MPEGVersion `json:"version"`
	Layer         Layer       `json:"layer"`
	BitrateKbps   int         `json:"bitrate_kbps"`
	SampleRateHz  int         `json:"sample_rate_hz"`
	Padding       bool        `json:"padding"`
	ChannelMode   ChannelMode `json:"channel_mode"`
	SizeBytes     int         `json:"size_bytes"`
	Offset        int64       `json:"offset"`
}

// VBRMethod identifies how an MP3 was encoded with respect to bitrate.
type VBRMethod uint8

// Supported VBR methods.
const (
	VBRMethodUnknown VBRMethod = iota
	VBRMethodCBR
	VBRMethodABR
	VBRMethodVBR1
	VBRMethodVBR2
	VBRMethodVBR3
	VBRMethodVBR4
)

// String returns the human-readable VBR method name.
func (m VBRMethod) String() string {
	switch m {
	case VBRMethodCBR:
		return "CBR"
	case VBRMethodABR:
		return "ABR"
	case VBRMethodVBR1:
		return "VBR1"
	case VBRMethodVBR2:
		return "VBR2"
	case VBRMethodVBR3:
		return "VBR3"
	case VBRMethodVBR4:
		return "VBR4"
	default:
		return "unknown"
	}
}

// LameTag holds the LAME encoder tag embedded in the first MP3 frame's
// extended Xing/Info header.
type LameTag struct {
	EncoderString string    `json:"encoder_string"` // 9 ASCII chars, e.g. "LAME3.100"
	VBRMethod     VBRMethod `json:"vbr_method"`
	LowpassHz     int       `json:"lowpass_hz"` // raw_byte * 100
	EncoderDelay  int       `json:"encoder_delay"`
	Padding       int       `json:"padding"`
}

// EncoderFamily is a closed set of encoder signatures the signature scanner
// recognizes.
type EncoderFamily uint8

// Recognized encoder families.
const (
	EncoderUnknown EncoderFamily = iota
	EncoderLAME
	EncoderFFmpeg
	EncoderFraunhofer
	EncoderITunes
	EncoderGOGO
	EncoderBladeEnc
	EncoderShine
	EncoderHelix
)

// String returns the canonical display name for an encoder family.
func (f EncoderFamily) String() string {
	switch f {
	case EncoderLAME:
		return "LAME"
	case EncoderFFmpeg:
		return "FFmpeg/Lavf"
	case EncoderFraunhofer:
		return "Fraunhofer/FhG"
	case EncoderITunes:
		return "iTunes"
	case EncoderGOGO:
		return "GOGO"
	case EncoderBladeEnc:
		return "BladeEnc"
	case EncoderShine:
		return "Shine"
	case EncoderHelix:
		return "Helix"
	default:
		return "unknown"
	}
}

// slug returns the lowercase identifier used inside templated flags such as
// "lame_reencoded_x3".
func (f EncoderFamily) slug() string {
	switch f {
	case EncoderLAME:
		return "lame"
	case EncoderFFmpeg:
		return "ffmpeg"
	case EncoderFraunhofer:
		return "fraunhofer"
	case EncoderITunes:
		return "itunes"
	case EncoderGOGO:
		return "gogo"
	case EncoderBladeEnc:
		return "bladeenc"
	case EncoderShine:
		return "shine"
	case EncoderHelix:
		return "helix"
	default:
		return "unknown"
	}
}

// EncoderOccurrence is one signature match at a given byte offset, in the
// order first seen.
type EncoderOccurrence struct {
	Family EncoderFamily `json:"family"`
	Offset int64         `json:"offset"`
}

// EncoderCounts maps each recognized family to the number of signature
// occurrences found.
type EncoderCounts map[EncoderFamily]int

// FrameStats summarizes the frames the walker visited.
type FrameStats struct {
	Count              int         `json:"count"`
	BitrateHistogram    map[int]int `json:"bitrate_histogram"` // kbps -> frame count
	IsVBR              bool        `json:"is_vbr"`
	MeanFrameSizeVar   float64     `json:"mean_frame_size_var"`
	PluralityBitrateKbps int       `json:"plurality_bitrate_kbps"`
}

// BinaryDetails is the structured output of the binary (container/LAME)
// analyzer.
type BinaryDetails struct {
	Encoders      []EncoderOccurrence `json:"encoders"`
	EncoderCounts EncoderCounts       `json:"encoder_counts"`
	LameTag       *LameTag            `json:"lame_tag,omitempty"`
	LowpassHz     *int                `json:"lowpass_hz,omitempty"`
	FrameStats    FrameStats          `json:"frame_stats"`
	Flags         []Flag              `json:"flags"`
	Score         int                 `json:"score"` // 0..50
}

// Band is a named frequency band inspected by the band energy aggregator.
type Band string

// Named bands.
const (
	BandFull      Band = "full"
	BandMidHigh   Band = "mid_high"   // 10-15k
	BandHigh      Band = "high"       // 15-20k
	BandUpper     Band = "upper"      // 17-20k
	BandNarrow    Band = "narrow"     // 19-20k
	BandUltrasonic Band = "ultrasonic" // 20-22k
)

// BandRange is the inclusive frequency span, in Hz, of a named band.
type BandRange struct {
	LoHz, HiHz float64
}

// BandRanges gives the frequency span of every named band.
var BandRanges = map[Band]BandRange{ //nolint:gochecknoglobals // immutable lookup table
	BandFull:       {0, 22050},
	BandMidHigh:    {10000, 15000},
	BandHigh:       {15000, 20000},
	BandUpper:      {17000, 20000},
	BandNarrow:     {19000, 20000},
	BandUltrasonic: {20000, 22000},
}

// BandEnergies maps each named band to its mean RMS energy in dB.
type BandEnergies map[Band]float64

// CfccPoint is one adjacent-band correlation sample.
type CfccPoint struct {
	F1Hz float64 `json:"f1_hz"`
	F2Hz float64 `json:"f2_hz"`
	R    float64 `json:"r"`
}

// CfccProfile is the cross-frequency coherence output.
type CfccProfile struct {
	Points               []CfccPoint `json:"points"`
	CliffFreqHz          *float64    `json:"cliff_freq_hz,omitempty"`
	CliffMagnitude       *float64    `json:"cliff_magnitude,omitempty"`
	LossyPatternDetected bool        `json:"lossy_pattern"`
	NaturalRolloffDetected bool      `json:"natural_rolloff"`
	Skipped              bool        `json:"skipped"` // too few non-quiet bands, or insufficient audio
}

// StereoCorrelation is the stereo correlator's informative-only output.
// Nil when the source is mono.
type StereoCorrelation struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
}

// BandFrame is one FFT window's per-band energy vector, the compact
// representation used when a spectrogram is requested.
type BandFrame struct {
	Energies BandEnergies `json:"energies"`
}

// SpectralDetails is the structured output of the spectral analyzer.
type SpectralDetails struct {
	BandEnergies          BandEnergies `json:"band_energies"`
	UpperDropDB           float64      `json:"upper_drop_db"`
	UltrasonicDropDB      float64      `json:"ultrasonic_drop_db"`
	UltrasonicFlatness    float64      `json:"ultrasonic_flatness"`
	PerWindowCutoffHz     []float64    `json:"per_window_cutoff_hz,omitempty"`
	AvgCutoffHz           float64      `json:"avg_cutoff_hz"`
	CutoffVariance        float64      `json:"cutoff_variance"`
	RolloffSlopeDBPerKHz  float64      `json:"rolloff_slope_db_per_khz"`
	CFCC                  CfccProfile  `json:"cfcc"`
	Spectrogram           []BandFrame  `json:"spectrogram,omitempty"`
	StereoCorrelation     *StereoCorrelation `json:"stereo_corr,omitempty"`
	Flags                 []Flag       `json:"flags"`
	Score                 int          `json:"score"` // 0..50
}

// finiteOrNull returns f for JSON encoding, or nil when f is NaN or ±Inf —
// encoding/json refuses to marshal those values outright, and a quiet spike
// from a division-by-near-zero band shouldn't take down the whole result.
func finiteOrNull(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}

	return f
}

// MarshalJSON substitutes null for any non-finite float this analyzer can
// produce (a near-silent band's flatness ratio or rolloff slope can divide
// out to NaN or Inf) so the result still serializes instead of erroring.
func (s SpectralDetails) MarshalJSON() ([]byte, error) {
	type alias SpectralDetails

	return json.Marshal(&struct {
		*alias
		UpperDropDB          any `json:"upper_drop_db"`
		UltrasonicDropDB     any `json:"ultrasonic_drop_db"`
		UltrasonicFlatness   any `json:"ultrasonic_flatness"`
		AvgCutoffHz          any `json:"avg_cutoff_hz"`
		CutoffVariance       any `json:"cutoff_variance"`
		RolloffSlopeDBPerKHz any `json:"rolloff_slope_db_per_khz"`
	}{
		alias:                (*alias)(&s),
		UpperDropDB:          finiteOrNull(s.UpperDropDB),
		UltrasonicDropDB:     finiteOrNull(s.UltrasonicDropDB),
		UltrasonicFlatness:   finiteOrNull(s.UltrasonicFlatness),
		AvgCutoffHz:          finiteOrNull(s.AvgCutoffHz),
		CutoffVariance:       finiteOrNull(s.CutoffVariance),
		RolloffSlopeDBPerKHz: finiteOrNull(s.RolloffSlopeDBPerKHz),
	})
}

// Verdict is the three-valued classification derived from the combined
// score.
type Verdict string

// Possible verdicts.
const (
	VerdictOK        Verdict = "OK"
	VerdictSuspect   Verdict = "SUSPECT"
	VerdictTranscode Verdict = "TRANSCODE"
)

// AnalysisResult is the top-level, self-describing output of Analyze.
// Every embedded struct is produced by exactly one component and is
// read-only once this result exists.
type AnalysisResult struct {
	Path       string           `json:"path"`
	Format     string           `json:"format"`
	SampleRate int              `json:"sample_rate"`
	Channels   int              `json:"channels"`
	DurationS  float64          `json:"duration_s"`
	Verdict    Verdict          `json:"verdict"`
	Score      int              `json:"score"` // 0..100
	Binary     *BinaryDetails   `json:"binary,omitempty"`
	Spectral   *SpectralDetails `json:"spectral,omitempty"`
	Flags      []Flag           `json:"flags"`
	Reason     string           `json:"reason"`
}
