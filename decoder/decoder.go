// Package decoder adapts the codec-specific PCM decoders (flac, wav, mp3,
// vorbis, alac, aac) into a single normalized-float32 representation the
// spectral and stereo analyzers consume.
package decoder

import (
	"errors"
	"fmt"
	"io"

	"github.com/mycophonic/transcodescan"
	"github.com/mycophonic/transcodescan/aac"
	"github.com/mycophonic/transcodescan/alac"
	"github.com/mycophonic/transcodescan/detect"
	"github.com/mycophonic/transcodescan/flac"
	"github.com/mycophonic/transcodescan/mp3"
	"github.com/mycophonic/transcodescan/vorbis"
	"github.com/mycophonic/transcodescan/wav"
)

// ErrUnsupportedCodec is returned when the detected codec has no PCM
// provider wired.
var ErrUnsupportedCodec = errors.New("decoder: unsupported codec")

// Audio is normalized PCM ready for spectral analysis: float32 samples in
// [-1,1], deinterleaved into a mono downmix plus, for stereo sources, the
// discrete left/right channels the stereo correlator needs.
type Audio struct {
	SampleRate int
	Channels   int
	Mono       []float32
	Left       []float32 // nil for mono sources
	Right      []float32 // nil for mono sources
	DurationS  float64
}

// PCMProvider decodes a seekable audio stream into normalized Audio. Each
// codec adapter below implements it.
type PCMProvider interface {
	Decode(rs io.ReadSeeker) (Audio, error)
}

// ProviderFor returns the PCMProvider for a detected codec, or
// ErrUnsupportedCodec if none is wired.
func ProviderFor(codec detect.Codec) (PCMProvider, error) {
	switch codec {
	case detect.FLAC:
		return flacProvider{}, nil
	case detect.WAV:
		return wavProvider{}, nil
	case detect.MP3:
		return mp3Provider{}, nil
	case detect.Vorbis:
		return vorbisProvider{}, nil
	case detect.ALAC:
		return alacProvider{}, nil
	case detect.AAC:
		return aacProvider{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCodec, codec)
	}
}

type flacProvider struct{}

func (flacProvider) Decode(rs io.ReadSeeker) (Audio, error) {
	pcm, format, err := flac.Decode(rs)
	if err != nil {
		return Audio{}, fmt.Errorf("flac: %w", err)
	}

	return toAudio(pcm, format)
}

type wavProvider struct{}

func (wavProvider) Decode(rs io.ReadSeeker) (Audio, error) {
	pcm, format, err := wav.Decode(rs)
	if err != nil {
		return Audio{}, fmt.Errorf("wav: %w", err)
	}

	return toAudio(pcm, format)
}

type mp3Provider struct{}

func (mp3Provider) Decode(rs io.ReadSeeker) (Audio, error) {
	pcm, format, err := mp3.Decode(rs)
	if err != nil {
		return Audio{}, fmt.Errorf("mp3: %w", err)
	}

	return toAudio(pcm, format)
}

type vorbisProvider struct{}

func (vorbisProvider) Decode(rs io.ReadSeeker) (Audio, error) {
	pcm, format, err := vorbis.Decode(rs)
	if err != nil {
		return Audio{}, fmt.Errorf("vorbis: %w", err)
	}

	return toAudio(pcm, format)
}

type alacProvider struct{}

func (alacProvider) Decode(rs io.ReadSeeker) (Audio, error) {
	pcm, format, err := alac.Decode(rs)
	if err != nil {
		return Audio{}, fmt.Errorf("alac: %w", err)
	}

	return toAudio(pcm, format)
}

type aacProvider struct{}

func (aacProvider) Decode(rs io.ReadSeeker) (Audio, error) {
	pcm, format, err := aac.Decode(rs)
	if err != nil {
		return Audio{}, fmt.Errorf("aac: %w", err)
	}

	return toAudio(pcm, format)
}

// toAudio deinterleaves raw little-endian signed PCM bytes at the given
// format into normalized float32 channels, and derives the mono downmix the
// FFT engine operates on.
func toAudio(pcm []byte, format transcodescan.PCMFormat) (Audio, error) {
	channels := int(format.Channels)
	if channels <= 0 {
		return Audio{}, fmt.Errorf("decoder: invalid channel count %d", channels)
	}

	bytesPerSample := format.BitDepth.BytesPerSample()
	frameSize := bytesPerSample * channels

	if frameSize == 0 || len(pcm)%frameSize != 0 {
		return Audio{}, fmt.Errorf("decoder: pcm length %d not a multiple of frame size %d", len(pcm), frameSize)
	}

	nFrames := len(pcm) / frameSize

	decode := sampleDecoder(format.BitDepth)
	if decode == nil {
		return Audio{}, fmt.Errorf("decoder: unsupported bit depth %d", format.BitDepth)
	}

	mono := make([]float32, nFrames)

	var left, right []float32

	if channels >= 2 {
		left = make([]float32, nFrames)
		right = make([]float32, nFrames)
	}

	for i := 0; i < nFrames; i++ {
		base := i * frameSize

		var frameSum float32

		for ch := 0; ch < channels; ch++ {
			s := decode(pcm[base+ch*bytesPerSample : base+(ch+1)*bytesPerSample])
			frameSum += s

			if ch == 0 && left != nil {
				left[i] = s
			}

			if ch == 1 && right != nil {
				right[i] = s
			}
		}

		mono[i] = frameSum / float32(channels)
	}

	duration := 0.0
	if format.SampleRate > 0 {
		duration = float64(nFrames) / float64(format.SampleRate)
	}

	return Audio{
		SampleRate: format.SampleRate,
		Channels:   channels,
		Mono:       mono,
		Left:       left,
		Right:      right,
		DurationS:  duration,
	}, nil
}

// sampleDecoder returns a function decoding one little-endian signed sample
// of the given bit depth into a float32 normalized to [-1,1].
func sampleDecoder(depth transcodescan.BitDepth) func([]byte) float32 {
	switch depth {
	case transcodescan.Depth8:
		return func(b []byte) float32 {
			return float32(int8(b[0])) / 128
		}
	case transcodescan.Depth16:
		return func(b []byte) float32 {
			v := int16(uint16(b[0]) | uint16(b[1])<<8)
			return float32(v) / 32768
		}
	case transcodescan.Depth20, transcodescan.Depth24:
		return func(b []byte) float32 {
			raw := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
			if raw&0x800000 != 0 {
				raw |= 0xFF000000
			}

			return float32(int32(raw)) / 8388608
		}
	case transcodescan.Depth32:
		return func(b []byte) float32 {
			v := int32(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24)
			return float32(v) / 2147483648
		}
	default:
		return nil
	}
}
