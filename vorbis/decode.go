// Package vorbis decodes Ogg Vorbis audio. Vorbis has no native fixed-point
// PCM representation — the decoder hands back float samples in [-1, 1] —
// so this is the one provider that re-quantizes to 16-bit on the way in,
// rather than passing through a source bit depth.
package vorbis

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/jfreymuth/oggvorbis"

	"github.com/mycophonic/transcodescan"
)

// Decode reads an Ogg Vorbis stream and decodes it to interleaved
// little-endian signed 16-bit PCM bytes, clamping the rare out-of-range
// float sample rather than wrapping it.
func Decode(rs io.ReadSeeker) ([]byte, transcodescan.PCMFormat, error) {
	samples, format, err := oggvorbis.ReadAll(rs)
	if err != nil {
		return nil, transcodescan.PCMFormat{}, fmt.Errorf("vorbis: decoding: %w", err)
	}

	pcmFormat := transcodescan.PCMFormat{
		SampleRate: format.SampleRate,
		BitDepth:   transcodescan.Depth16,
		Channels:   uint(format.Channels), //nolint:gosec // channel count is always small positive
	}

	buf := make([]byte, len(samples)*2)

	for i, s := range samples {
		scaled := math.Round(float64(s) * math.MaxInt16)
		scaled = max(math.MinInt16, min(math.MaxInt16, scaled))

		binary.LittleEndian.PutUint16(buf[i*2:], uint16(int16(scaled))) //nolint:gosec // clamped to int16 range
	}

	return buf, pcmFormat, nil
}
