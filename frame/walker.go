// Package frame implements the MP3 frame walker: it iterates frame headers
// in a raw MP3 byte stream starting past any leading ID3v2 tag, validating
// each candidate against the next sync word.
package frame

import (
	"errors"
	"fmt"

	"github.com/mycophonic/transcodescan"
)

// ErrMalformedContainer is returned only when the walker never finds a
// single valid frame in the entire byte stream.
var ErrMalformedContainer = errors.New("malformed container: no valid mp3 frame found")

const (
	syncByte0     = 0xFF
	syncByte1Mask = 0xE0

	minFrameSize = 24 // reject candidates smaller than this

	frameHeaderSize = 4
)

// mpeg1BitrateTable and friends are kbps tables indexed by the 4-bit
// bitrate index in the frame header, per layer and version family.
// Index 0 is "free" and 15 is "invalid"; both are rejected by the walker.
var ( //nolint:gochecknoglobals // immutable lookup tables
	mpeg1LayerIBitrates   = [16]int{0, 32, 64, 96, 128, 160, 192, 224, 256, 288, 320, 352, 384, 416, 448, 0}
	mpeg1LayerIIBitrates  = [16]int{0, 32, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 384, 0}
	mpeg1LayerIIIBitrates = [16]int{0, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 0}
	mpeg2LayerIBitrates   = [16]int{0, 32, 48, 56, 64, 80, 96, 112, 128, 144, 160, 176, 192, 224, 256, 0}
	mpeg2LayerIIIIIBitrates = [16]int{0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160, 0}

	mpeg1SampleRates  = [4]int{44100, 48000, 32000, 0}
	mpeg2SampleRates  = [4]int{22050, 24000, 16000, 0}
	mpeg25SampleRates = [4]int{11025, 12000, 8000, 0}
)

// Walker lazily yields validated MP3 frame headers from a byte buffer,
// skipping a leading ID3v2 tag and stopping after MaxFrames for cost
// control.
type Walker struct {
	data      []byte
	pos       int
	maxFrames int
	seen      int
	foundAny  bool
}

// New creates a Walker over data, starting past any ID3v2 tag. maxFrames
// caps how many frames Next will yield before reporting end-of-stream even
// if more valid frames remain (cost control, default 8192).
func New(data []byte, maxFrames int) *Walker {
	return &Walker{
		data:      data,
		pos:       skipID3v2(data),
		maxFrames: maxFrames,
	}
}

// skipID3v2 returns the offset just past a leading ID3v2 tag, or 0 if none
// is present. Tag size is the synch-safe 32-bit integer at bytes 6..10.
func skipID3v2(data []byte) int {
	if len(data) < 10 || string(data[0:3]) != "ID3" {
		return 0
	}

	size := int(data[6])<<21 | int(data[7])<<14 | int(data[8])<<7 | int(data[9])
	end := 10 + size

	if end < 0 || end > len(data) {
		return 0
	}

	return end
}

// Next returns the next validated frame header and its absolute byte
// offset. ok is false once the walker has exhausted the buffer or reached
// MaxFrames. err is non-nil only on the very first call when no valid
// frame was ever found anywhere in the stream (ErrMalformedContainer).
func (w *Walker) Next() (header transcodescan.FrameHeader, offset int64, ok bool, err error) {
	if w.seen >= w.maxFrames {
		return transcodescan.FrameHeader{}, 0, false, nil
	}

	for w.pos+frameHeaderSize <= len(w.data) {
		candidate := w.pos

		hdr, size, valid := parseCandidate(w.data, candidate)
		if !valid {
			w.pos++
			continue
		}

		// Validate against the next sync word, or end of file.
		next := candidate + size
		if next != len(w.data) && !hasSyncAt(w.data, next) {
			w.pos++
			continue
		}

		w.pos = next
		w.seen++
		w.foundAny = true
		hdr.Offset = int64(candidate)
		hdr.SizeBytes = size

		return hdr, int64(candidate), true, nil
	}

	if !w.foundAny {
		return transcodescan.FrameHeader{}, 0, false, fmt.Errorf("%w", ErrMalformedContainer)
	}

	return transcodescan.FrameHeader{}, 0, false, nil
}

// hasSyncAt reports whether a plausible 11-bit MPEG sync word starts at pos.
func hasSyncAt(data []byte, pos int) bool {
	if pos+2 > len(data) {
		return false
	}

	return data[pos] == syncByte0 && data[pos+1]&syncByte1Mask == syncByte1Mask
}

// parseCandidate attempts to parse a full, validated frame header at pos.
// It returns the frame size in bytes alongside the header.
func parseCandidate(data []byte, pos int) (transcodescan.FrameHeader, int, bool) {
	if pos+frameHeaderSize > len(data) {
		return transcodescan.FrameHeader{}, 0, false
	}

	if !hasSyncAt(data, pos) {
		return transcodescan.FrameHeader{}, 0, false
	}

	b1, b2, b3 := data[pos+1], data[pos+2], data[pos+3]

	versionBits := (b1 >> 3) & 0x03
	layerBits := (b1 >> 1) & 0x03
	padding := (b2>>1)&0x01 == 0x01
	bitrateIdx := (b2 >> 4) & 0x0F
	sampleRateIdx := (b2 >> 2) & 0x03
	channelBits := (b3 >> 6) & 0x03

	if versionBits == 0x01 || layerBits == 0x00 {
		return transcodescan.FrameHeader{}, 0, false // reserved version/layer
	}

	if bitrateIdx == 0 || bitrateIdx == 15 {
		return transcodescan.FrameHeader{}, 0, false // free or invalid
	}

	if sampleRateIdx == 3 {
		return transcodescan.FrameHeader{}, 0, false // reserved sample rate
	}

	version := mpegVersion(versionBits)
	layer := mpegLayer(layerBits)

	sampleRate := sampleRateFor(version, sampleRateIdx)
	if sampleRate == 0 {
		return transcodescan.FrameHeader{}, 0, false
	}

	bitrate := bitrateFor(version, layer, bitrateIdx)
	if bitrate == 0 {
		return transcodescan.FrameHeader{}, 0, false
	}

	size := frameSize(version, layer, bitrate, sampleRate, padding)
	if size < minFrameSize {
		return transcodescan.FrameHeader{}, 0, false
	}

	header := transcodescan.FrameHeader{
		Version:      version,
		Layer:        layer,
		BitrateKbps:  bitrate,
		SampleRateHz: sampleRate,
		Padding:      padding,
		ChannelMode:  channelModeFor(channelBits),
	}

	return header, size, true
}

func mpegVersion(bits byte) transcodescan.MPEGVersion {
	switch bits {
	case 0x03:
		return transcodescan.MPEG1
	case 0x02:
		return transcodescan.MPEG2
	default: // 0x00
		return transcodescan.MPEG25
	}
}

func mpegLayer(bits byte) transcodescan.Layer {
	switch bits {
	case 0x03:
		return transcodescan.LayerI
	case 0x02:
		return transcodescan.LayerII
	default: // 0x01
		return transcodescan.LayerIII
	}
}

func channelModeFor(bits byte) transcodescan.ChannelMode {
	switch bits {
	case 0x00:
		return transcodescan.ChannelStereo
	case 0x01:
		return transcodescan.ChannelJointStereo
	case 0x02:
		return transcodescan.ChannelDualChannel
	default: // 0x03
		return transcodescan.ChannelMono
	}
}

func sampleRateFor(version transcodescan.MPEGVersion, idx byte) int {
	switch version {
	case transcodescan.MPEG1:
		return mpeg1SampleRates[idx]
	case transcodescan.MPEG2:
		return mpeg2SampleRates[idx]
	default:
		return mpeg25SampleRates[idx]
	}
}

func bitrateFor(version transcodescan.MPEGVersion, layer transcodescan.Layer, idx byte) int {
	if version == transcodescan.MPEG1 {
		switch layer {
		case transcodescan.LayerI:
			return mpeg1LayerIBitrates[idx]
		case transcodescan.LayerII:
			return mpeg1LayerIIBitrates[idx]
		default:
			return mpeg1LayerIIIBitrates[idx]
		}
	}

	// MPEG2/2.5 share one table for Layer II and III.
	if layer == transcodescan.LayerI {
		return mpeg2LayerIBitrates[idx]
	}

	return mpeg2LayerIIIIIBitrates[idx]
}

// frameSize computes the expected frame size in bytes for the given fields,
// per the standard MPEG audio frame-size formula.
func frameSize(version transcodescan.MPEGVersion, layer transcodescan.Layer, bitrateKbps, sampleRateHz int, padding bool) int {
	pad := 0
	if padding {
		pad = 1
	}

	bitrateBps := bitrateKbps * 1000

	if layer == transcodescan.LayerI {
		return (12*bitrateBps/sampleRateHz + pad) * 4
	}

	slotsPerFrame := 144
	if version != transcodescan.MPEG1 && layer == transcodescan.LayerIII {
		slotsPerFrame = 72
	}

	return slotsPerFrame*bitrateBps/sampleRateHz + pad
}
