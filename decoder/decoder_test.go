package decoder

import (
	"errors"
	"math"
	"testing"

	"github.com/mycophonic/transcodescan"
	"github.com/mycophonic/transcodescan/detect"
)

func s16le(v int16) []byte {
	return []byte{byte(v), byte(v >> 8)}
}

func TestToAudioStereo16Bit(t *testing.T) {
	format := transcodescan.PCMFormat{SampleRate: 44100, BitDepth: transcodescan.Depth16, Channels: 2}

	var pcm []byte

	pcm = append(pcm, s16le(32767)...) // left frame 0: full scale
	pcm = append(pcm, s16le(-32768)...) // right frame 0: full-scale negative
	pcm = append(pcm, s16le(0)...)       // left frame 1: silence
	pcm = append(pcm, s16le(0)...)       // right frame 1: silence

	audio, err := toAudio(pcm, format)
	if err != nil {
		t.Fatalf("toAudio() error = %v", err)
	}

	if audio.SampleRate != 44100 || audio.Channels != 2 {
		t.Fatalf("unexpected format: %+v", audio)
	}

	if len(audio.Mono) != 2 || len(audio.Left) != 2 || len(audio.Right) != 2 {
		t.Fatalf("unexpected lengths: mono=%d left=%d right=%d", len(audio.Mono), len(audio.Left), len(audio.Right))
	}

	if math.Abs(float64(audio.Left[0])-1.0) > 1e-4 {
		t.Errorf("Left[0] = %v, want ~1.0", audio.Left[0])
	}

	if math.Abs(float64(audio.Right[0])-(-1.0)) > 1e-4 {
		t.Errorf("Right[0] = %v, want ~-1.0", audio.Right[0])
	}

	if math.Abs(float64(audio.Mono[0])) > 1e-4 {
		t.Errorf("Mono[0] = %v, want ~0 (opposite full-scale channels average out)", audio.Mono[0])
	}

	if audio.Mono[1] != 0 {
		t.Errorf("Mono[1] = %v, want 0", audio.Mono[1])
	}

	wantDuration := 2.0 / 44100.0
	if math.Abs(audio.DurationS-wantDuration) > 1e-9 {
		t.Errorf("DurationS = %v, want %v", audio.DurationS, wantDuration)
	}
}

func TestToAudioMonoHasNoLeftRight(t *testing.T) {
	format := transcodescan.PCMFormat{SampleRate: 22050, BitDepth: transcodescan.Depth16, Channels: 1}

	pcm := append(s16le(16384), s16le(-16384)...)

	audio, err := toAudio(pcm, format)
	if err != nil {
		t.Fatalf("toAudio() error = %v", err)
	}

	if audio.Left != nil || audio.Right != nil {
		t.Errorf("expected nil Left/Right for mono, got %+v / %+v", audio.Left, audio.Right)
	}

	if len(audio.Mono) != 2 {
		t.Fatalf("expected 2 mono samples, got %d", len(audio.Mono))
	}

	if math.Abs(float64(audio.Mono[0])-0.5) > 1e-3 {
		t.Errorf("Mono[0] = %v, want ~0.5", audio.Mono[0])
	}
}

func TestToAudioRejectsZeroChannels(t *testing.T) {
	format := transcodescan.PCMFormat{SampleRate: 44100, BitDepth: transcodescan.Depth16, Channels: 0}

	if _, err := toAudio([]byte{0, 0}, format); err == nil {
		t.Error("expected error for zero channels")
	}
}

func TestToAudioRejectsMisalignedLength(t *testing.T) {
	format := transcodescan.PCMFormat{SampleRate: 44100, BitDepth: transcodescan.Depth16, Channels: 2}

	if _, err := toAudio([]byte{0, 0, 0}, format); err == nil {
		t.Error("expected error for pcm length not a multiple of frame size")
	}
}

func TestToAudio20BitUsesThreeByteDecoder(t *testing.T) {
	format := transcodescan.PCMFormat{SampleRate: 48000, BitDepth: transcodescan.Depth20, Channels: 1}

	pcm := []byte{0x00, 0x00, 0x40} // 0x400000 = half of full positive scale

	audio, err := toAudio(pcm, format)
	if err != nil {
		t.Fatalf("toAudio() error = %v", err)
	}

	if math.Abs(float64(audio.Mono[0])-0.5) > 1e-3 {
		t.Errorf("Mono[0] = %v, want ~0.5", audio.Mono[0])
	}
}

func TestSampleDecoderUnsupportedDepth(t *testing.T) {
	if sampleDecoder(transcodescan.BitDepth(5)) != nil {
		t.Error("expected nil decoder for an unsupported bit depth")
	}
}

func TestProviderForUnsupportedCodec(t *testing.T) {
	_, err := ProviderFor(detect.Unknown)
	if !errors.Is(err, ErrUnsupportedCodec) {
		t.Errorf("expected ErrUnsupportedCodec, got %v", err)
	}
}

func TestProviderForKnownCodecs(t *testing.T) {
	codecs := []detect.Codec{detect.FLAC, detect.WAV, detect.MP3, detect.Vorbis, detect.ALAC, detect.AAC}

	for _, c := range codecs {
		if _, err := ProviderFor(c); err != nil {
			t.Errorf("ProviderFor(%v) error = %v", c, err)
		}
	}
}
