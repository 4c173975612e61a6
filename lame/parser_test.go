package lame

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/mycophonic/transcodescan"
)

func u32be(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)

	return b
}

// buildXingBody constructs a full Xing + LAME tag body as it appears
// immediately after the side-information region of a stereo MPEG1 frame.
func buildXingBody(t *testing.T) []byte {
	t.Helper()

	body := []byte("Xing")
	body = append(body, u32be(0x0F)...)  // all four optional fields present
	body = append(body, u32be(1000)...)  // frame count
	body = append(body, u32be(500000)...) // byte count
	body = append(body, make([]byte, 100)...) // seek table (TOC)
	body = append(body, u32be(100)...)   // quality

	if len(body) != lameOffsetStereo {
		t.Fatalf("test bug: xing body before LAME tag is %d bytes, want %d", len(body), lameOffsetStereo)
	}

	lame := []byte("LAME3.100") // 9-byte encoder string
	lame = append(lame, 5)      // byte9: vbr method (VBR2)
	lame = append(lame, 0)      // byte10: unused
	lame = append(lame, 195)    // byte11: lowpass byte (19500Hz)
	lame = append(lame, make([]byte, 9)...) // bytes 12..20: unused
	lame = append(lame, 0x24, 0x04, 0x80)    // bytes 21..23: gapless 24-bit field

	return append(body, lame...)
}

func buildFrameData(body []byte) []byte {
	header := make([]byte, 4)
	sideInfo := make([]byte, 32) // stereo MPEG1 side-info size

	data := append(header, sideInfo...)

	return append(data, body...)
}

func stereoMPEG1Header() transcodescan.FrameHeader {
	return transcodescan.FrameHeader{
		Version:     transcodescan.MPEG1,
		ChannelMode: transcodescan.ChannelStereo,
	}
}

func TestParseXingAndLame(t *testing.T) {
	data := buildFrameData(buildXingBody(t))

	result, err := Parse(data, 0, stereoMPEG1Header())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if result.Xing == nil {
		t.Fatal("expected non-nil Xing info")
	}

	if result.Xing.Tag != "Xing" {
		t.Errorf("Tag = %q, want Xing", result.Xing.Tag)
	}

	if result.Xing.FrameCount == nil || *result.Xing.FrameCount != 1000 {
		t.Errorf("FrameCount = %v, want 1000", result.Xing.FrameCount)
	}

	if result.Xing.ByteCount == nil || *result.Xing.ByteCount != 500000 {
		t.Errorf("ByteCount = %v, want 500000", result.Xing.ByteCount)
	}

	if !result.Xing.HasSeekTable {
		t.Error("expected HasSeekTable = true")
	}

	if result.Xing.Quality == nil || *result.Xing.Quality != 100 {
		t.Errorf("Quality = %v, want 100", result.Xing.Quality)
	}

	if result.Lame == nil {
		t.Fatal("expected non-nil Lame tag")
	}

	if result.Lame.EncoderString != "LAME3.100" {
		t.Errorf("EncoderString = %q, want LAME3.100", result.Lame.EncoderString)
	}

	if result.Lame.VBRMethod != transcodescan.VBRMethodVBR2 {
		t.Errorf("VBRMethod = %v, want VBR2", result.Lame.VBRMethod)
	}

	if result.Lame.LowpassHz != 19500 {
		t.Errorf("LowpassHz = %d, want 19500", result.Lame.LowpassHz)
	}

	if result.Lame.EncoderDelay != 576 {
		t.Errorf("EncoderDelay = %d, want 576", result.Lame.EncoderDelay)
	}

	if result.Lame.Padding != 1152 {
		t.Errorf("Padding = %d, want 1152", result.Lame.Padding)
	}
}

func TestParseNoTagPresent(t *testing.T) {
	body := make([]byte, 200) // no recognizable tag string anywhere
	data := buildFrameData(body)

	result, err := Parse(data, 0, stereoMPEG1Header())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if result.Xing != nil || result.Lame != nil {
		t.Errorf("expected empty Result, got %+v", result)
	}
}

func TestParseTruncatedXingFlags(t *testing.T) {
	body := []byte("Xing") // no flags word at all

	data := buildFrameData(body)

	_, err := Parse(data, 0, stereoMPEG1Header())
	if !errors.Is(err, ErrParse) {
		t.Errorf("expected ErrParse, got %v", err)
	}
}

func TestParseVBRI(t *testing.T) {
	body := []byte("VBRI")
	body = append(body, make([]byte, 10)...) // bytes 4..13 unused by the parser
	body = append(body, u32be(2500)...)       // frame count at offset 14
	body = append(body, make([]byte, 8)...)   // pad to 26-byte minimum

	data := buildFrameData(body)

	result, err := Parse(data, 0, stereoMPEG1Header())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if result.Xing == nil || result.Xing.Tag != "VBRI" {
		t.Fatalf("expected VBRI tag, got %+v", result.Xing)
	}

	if result.Xing.FrameCount == nil || *result.Xing.FrameCount != 2500 {
		t.Errorf("FrameCount = %v, want 2500", result.Xing.FrameCount)
	}
}

func TestParseVBRITruncated(t *testing.T) {
	body := []byte("VBRI")
	body = append(body, make([]byte, 5)...) // far short of the 26-byte header

	data := buildFrameData(body)

	_, err := Parse(data, 0, stereoMPEG1Header())
	if !errors.Is(err, ErrParse) {
		t.Errorf("expected ErrParse, got %v", err)
	}
}

func TestVBRMethodFromByte(t *testing.T) {
	cases := map[byte]transcodescan.VBRMethod{
		1:  transcodescan.VBRMethodCBR,
		2:  transcodescan.VBRMethodABR,
		9:  transcodescan.VBRMethodABR,
		3:  transcodescan.VBRMethodVBR1,
		4:  transcodescan.VBRMethodVBR1,
		5:  transcodescan.VBRMethodVBR2,
		6:  transcodescan.VBRMethodVBR3,
		7:  transcodescan.VBRMethodVBR4,
		8:  transcodescan.VBRMethodVBR4,
		0:  transcodescan.VBRMethodUnknown,
		15: transcodescan.VBRMethodUnknown,
	}

	for b, want := range cases {
		if got := vbrMethodFromByte(b); got != want {
			t.Errorf("vbrMethodFromByte(%d) = %v, want %v", b, got, want)
		}
	}
}
