package transcodescan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mycophonic/transcodescan/binary"
	"github.com/mycophonic/transcodescan/cancel"
	"github.com/mycophonic/transcodescan/decoder"
	"github.com/mycophonic/transcodescan/detect"
	"github.com/mycophonic/transcodescan/score"
	"github.com/mycophonic/transcodescan/spectral"
)

// ErrDecodeFailed wraps any error the PCM decoder returns. Analyze never
// propagates it: it is folded into FlagDecodeFailed with a zero spectral
// score.
var ErrDecodeFailed = errors.New("decode failed")

// Analyze runs the full forensic pipeline over path: codec detection, PCM
// decoding, and the binary and spectral sub-analyses running concurrently,
// combined into a single verdict.
//
// Only a malformed Options value returns a non-nil error (ErrConfiguration);
// every other failure mode is folded into AnalysisResult.Flags with partial
// scores, because a best-effort verdict is more useful to a batch scan than
// an aborted one.
func Analyze(ctx context.Context, path string, rs io.ReadSeeker, opts Options, logger zerolog.Logger) (AnalysisResult, error) {
	opts = opts.withDefaults()
	if err := opts.Validate(); err != nil {
		return AnalysisResult{}, fmt.Errorf("analyze: %w", err)
	}

	data, codec, err := readAll(rs)
	if err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("analyze: reading input failed")

		binaryDetails := BinaryDetails{Flags: []Flag{FlagBinaryUnavailable}}
		spectralDetails := SpectralDetails{Flags: []Flag{FlagDecodeFailed}}
		combined := score.Combine(binaryDetails, spectralDetails, opts)

		return AnalysisResult{
			Path: path, Format: codec.String(), Verdict: combined.Verdict, Score: combined.Score,
			Binary: &binaryDetails, Spectral: &spectralDetails, Flags: combined.Flags, Reason: combined.Reason,
		}, nil
	}

	result := AnalysisResult{
		Path:   path,
		Format: codec.String(),
	}

	token := cancel.New()

	stop := context.AfterFunc(ctx, token.Cancel)
	defer stop()

	audio, decodeErr := decodePCM(rs, codec)

	var (
		binaryDetails   BinaryDetails
		spectralDetails SpectralDetails
	)

	// The binary analyzer reads raw container bytes directly and does not
	// depend on a successful PCM decode, so it always runs.
	// A PCM decode failure only zeroes the spectral half.
	var wg sync.WaitGroup

	wg.Add(1)

	go func() {
		defer wg.Done()

		binaryDetails = binary.Analyze(data, opts, logger)
	}()

	switch {
	case decodeErr != nil:
		logger.Warn().Err(decodeErr).Str("path", path).Msg("analyze: decode failed")

		spectralDetails = SpectralDetails{Flags: []Flag{FlagDecodeFailed}}
	case opts.SkipSpectral:
		spectralDetails = SpectralDetails{}
	default:
		wg.Add(1)

		go func() {
			defer wg.Done()

			spectralDetails = spectral.Analyze(spectral.Input{
				Mono:       audio.Mono,
				Left:       audio.Left,
				Right:      audio.Right,
				SampleRate: audio.SampleRate,
			}, opts, token, logger)
		}()
	}

	wg.Wait()

	if decodeErr == nil {
		result.SampleRate = audio.SampleRate
		result.Channels = audio.Channels
		result.DurationS = audio.DurationS
	}

	if token.IsCancelled() {
		result.Flags = append(result.Flags, FlagCancelled)
	}

	combined := score.Combine(binaryDetails, spectralDetails, opts)

	result.Binary = &binaryDetails
	result.Spectral = &spectralDetails
	result.Score = combined.Score
	result.Verdict = combined.Verdict
	result.Reason = combined.Reason
	result.Flags = append(result.Flags, combined.Flags...)

	return result, nil
}

// readAll buffers the full stream and detects its codec. The binary
// analyzer needs the raw bytes regardless of codec, and
// Identify requires a seekable reader, so both are done up front.
func readAll(rs io.ReadSeeker) ([]byte, detect.Codec, error) {
	codec, err := detect.Identify(rs)
	if err != nil {
		return nil, detect.Unknown, fmt.Errorf("identifying codec: %w", err)
	}

	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, codec, fmt.Errorf("seeking to start: %w", err)
	}

	data, err := io.ReadAll(rs)
	if err != nil {
		return nil, codec, fmt.Errorf("reading file: %w", err)
	}

	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, codec, fmt.Errorf("seeking to start: %w", err)
	}

	return data, codec, nil
}

// decodePCM resolves and runs the PCM provider for codec.
func decodePCM(rs io.ReadSeeker, codec detect.Codec) (decoder.Audio, error) {
	provider, err := decoder.ProviderFor(codec)
	if err != nil {
		return decoder.Audio{}, fmt.Errorf("%w: %w", ErrDecodeFailed, err)
	}

	audio, err := provider.Decode(rs)
	if err != nil {
		return decoder.Audio{}, fmt.Errorf("%w: %w", ErrDecodeFailed, err)
	}

	return audio, nil
}
