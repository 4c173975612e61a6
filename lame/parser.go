// Package lame extracts the Xing/Info VBR header and the LAME encoder tag
// from the side-info region of the first MP3 frame.
package lame

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/mycophonic/transcodescan"
)

// ErrParse is returned when a claimed Xing/Info/VBRI or LAME header is
// truncated: it fires only on truncation inside a header that is actually
// present, never merely because one is absent.
var ErrParse = errors.New("lame: truncated header")

const (
	// lameOffsetStereo and lameOffsetMono are the fixed byte offsets of the
	// LAME extension from the start of the Xing/Info tag.
	lameOffsetStereo = 120
	lameOffsetMono   = 36

	lameTagMinLen  = 24
	lameTagNameLen = 9

	xingFlagFrameCount = 1 << 0
	xingFlagByteCount  = 1 << 1
	xingFlagTOC        = 1 << 2
	xingFlagQuality    = 1 << 3

	seekTableLen = 100
)

// XingInfo is the parsed Xing/Info/VBRI VBR header.
type XingInfo struct {
	Tag         string // "Xing", "Info", or "VBRI"
	FrameCount  *uint32
	ByteCount   *uint32
	HasSeekTable bool
	Quality     *uint32
}

// Result bundles everything the LAME/Xing parser extracts from the first
// frame. Both fields are nil when no such header is present; that is not an
// error.
type Result struct {
	Xing *XingInfo
	Lame *transcodescan.LameTag
}

// sideInfoSize returns the MP3 side-information size in bytes for the given
// MPEG version and channel mode.
func sideInfoSize(version transcodescan.MPEGVersion, mono bool) int {
	if version == transcodescan.MPEG1 {
		if mono {
			return 17
		}

		return 32
	}

	if mono {
		return 9
	}

	return 17
}

// Parse locates and parses the Xing/Info/VBRI tag and the LAME extension
// within the body of the first valid MP3 frame. frameOffset is the absolute
// byte offset of the frame's sync word in data.
func Parse(data []byte, frameOffset int64, header transcodescan.FrameHeader) (Result, error) {
	mono := header.ChannelMode == transcodescan.ChannelMono
	bodyOffset := int(frameOffset) + 4 + sideInfoSize(header.Version, mono)

	if bodyOffset >= len(data) {
		return Result{}, nil
	}

	body := data[bodyOffset:]

	switch {
	case hasTag(body, "Xing"), hasTag(body, "Info"):
		return parseXing(body, mono)
	case hasTag(body, "VBRI"):
		xing, err := parseVBRI(body)
		return Result{Xing: xing}, err
	default:
		return Result{}, nil
	}
}

func hasTag(body []byte, tag string) bool {
	return len(body) >= len(tag) && string(body[:len(tag)]) == tag
}

func parseXing(body []byte, mono bool) (Result, error) {
	if len(body) < 8 {
		return Result{}, fmt.Errorf("%w: xing flags word", ErrParse)
	}

	tag := string(body[:4])
	flags := binary.BigEndian.Uint32(body[4:8])

	xing := &XingInfo{Tag: tag}

	pos := 8

	if flags&xingFlagFrameCount != 0 {
		v, err := readU32(body, pos)
		if err != nil {
			return Result{}, fmt.Errorf("%w: xing frame count: %w", ErrParse, err)
		}

		xing.FrameCount = &v
		pos += 4
	}

	if flags&xingFlagByteCount != 0 {
		v, err := readU32(body, pos)
		if err != nil {
			return Result{}, fmt.Errorf("%w: xing byte count: %w", ErrParse, err)
		}

		xing.ByteCount = &v
		pos += 4
	}

	if flags&xingFlagTOC != 0 {
		if pos+seekTableLen > len(body) {
			return Result{}, fmt.Errorf("%w: xing seek table", ErrParse)
		}

		xing.HasSeekTable = true
		pos += seekTableLen
	}

	if flags&xingFlagQuality != 0 {
		v, err := readU32(body, pos)
		if err != nil {
			return Result{}, fmt.Errorf("%w: xing quality", ErrParse)
		}

		xing.Quality = &v
		pos += 4
	}

	lameTag, err := parseLameTag(body, mono)
	if err != nil {
		return Result{}, err
	}

	return Result{Xing: xing, Lame: lameTag}, nil
}

func parseVBRI(body []byte) (*XingInfo, error) {
	const vbriHeaderLen = 26

	if len(body) < vbriHeaderLen {
		return nil, fmt.Errorf("%w: vbri header", ErrParse)
	}

	frames, err := readU32(body, 14)
	if err != nil {
		return nil, fmt.Errorf("%w: vbri frame count", ErrParse)
	}

	return &XingInfo{Tag: "VBRI", FrameCount: &frames}, nil
}

// parseLameTag reads the LAME extension at its fixed offset from the start
// of the Xing/Info tag. Missing or non-"LAME" data there is not an error:
// the encoder simply didn't embed gapless/quality metadata.
func parseLameTag(xingBody []byte, mono bool) (*transcodescan.LameTag, error) {
	offset := lameOffsetStereo
	if mono {
		offset = lameOffsetMono
	}

	if offset+lameTagNameLen > len(xingBody) {
		return nil, nil //nolint:nilnil // absent header is not an error
	}

	tagBytes := xingBody[offset:]
	if string(tagBytes[:4]) != "LAME" {
		return nil, nil //nolint:nilnil
	}

	if len(tagBytes) < lameTagMinLen {
		return nil, fmt.Errorf("%w: lame tag truncated", ErrParse)
	}

	vbrMethod := vbrMethodFromByte(tagBytes[9])
	lowpassHz := int(tagBytes[11]) * 100

	gaplessBytes := tagBytes[21:24]
	gapless24 := uint32(gaplessBytes[0])<<16 | uint32(gaplessBytes[1])<<8 | uint32(gaplessBytes[2])

	return &transcodescan.LameTag{
		EncoderString: string(tagBytes[:lameTagNameLen]),
		VBRMethod:     vbrMethod,
		LowpassHz:     lowpassHz,
		EncoderDelay:  int(gapless24 >> 12),
		Padding:       int(gapless24 & 0xFFF),
	}, nil
}

// vbrMethodFromByte maps the LAME tag's VBR method byte to our closed
// VBRMethod enum. The exact byte-to-preset mapping is LAME-version
// dependent; this covers the stable common cases and does not attempt to
// guess beyond them.
func vbrMethodFromByte(b byte) transcodescan.VBRMethod {
	switch b & 0x0F {
	case 1:
		return transcodescan.VBRMethodCBR
	case 2, 9:
		return transcodescan.VBRMethodABR
	case 3, 4:
		return transcodescan.VBRMethodVBR1
	case 5:
		return transcodescan.VBRMethodVBR2
	case 6:
		return transcodescan.VBRMethodVBR3
	case 7, 8:
		return transcodescan.VBRMethodVBR4
	default:
		return transcodescan.VBRMethodUnknown
	}
}

func readU32(data []byte, at int) (uint32, error) {
	if at+4 > len(data) {
		return 0, fmt.Errorf("buffer too short at offset %d", at)
	}

	return binary.BigEndian.Uint32(data[at : at+4]), nil
}
