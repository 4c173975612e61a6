package detect

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func box(boxType string, content []byte) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint32(b, uint32(8+len(content)))
	copy(b[4:8], boxType)

	return append(b, content...)
}

func TestIdentifyFLAC(t *testing.T) {
	data := append([]byte("fLaC"), make([]byte, 8)...)

	codec, err := Identify(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Identify() error = %v", err)
	}

	if codec != FLAC {
		t.Errorf("codec = %v, want FLAC", codec)
	}
}

func TestIdentifyWAV(t *testing.T) {
	data := append([]byte("RIFF"), make([]byte, 4)...)
	data = append(data, []byte("WAVE")...)

	codec, err := Identify(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Identify() error = %v", err)
	}

	if codec != WAV {
		t.Errorf("codec = %v, want WAV", codec)
	}
}

func TestIdentifyVorbis(t *testing.T) {
	data := append([]byte("OggS"), make([]byte, 8)...)

	codec, err := Identify(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Identify() error = %v", err)
	}

	if codec != Vorbis {
		t.Errorf("codec = %v, want Vorbis", codec)
	}
}

func TestIdentifyMP3ID3(t *testing.T) {
	data := append([]byte("ID3"), make([]byte, 9)...)

	codec, err := Identify(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Identify() error = %v", err)
	}

	if codec != MP3 {
		t.Errorf("codec = %v, want MP3", codec)
	}
}

func TestIdentifyMP3SyncWord(t *testing.T) {
	data := append([]byte{0xFF, 0xFB, 0x90, 0x00}, make([]byte, 8)...)

	codec, err := Identify(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Identify() error = %v", err)
	}

	if codec != MP3 {
		t.Errorf("codec = %v, want MP3", codec)
	}
}

func TestIdentifyUnknown(t *testing.T) {
	data := make([]byte, 12)

	codec, err := Identify(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Identify() error = %v", err)
	}

	if codec != Unknown {
		t.Errorf("codec = %v, want Unknown", codec)
	}
}

func TestIdentifyResetsReaderPosition(t *testing.T) {
	data := append([]byte("fLaC"), make([]byte, 20)...)

	r := bytes.NewReader(data)
	if _, err := Identify(r); err != nil {
		t.Fatalf("Identify() error = %v", err)
	}

	pos, err := r.Seek(0, 1)
	if err != nil {
		t.Fatalf("Seek() error = %v", err)
	}

	if pos != 0 {
		t.Errorf("reader position after Identify() = %d, want 0", pos)
	}
}

// buildM4A constructs a minimal valid MP4 box tree (ftyp, then
// moov/trak/mdia/minf/stbl/stsd) whose single sample entry's FourCC is
// fourCC ("alac" or "mp4a").
func buildM4A(fourCC string) []byte {
	entry := make([]byte, 8)
	binary.BigEndian.PutUint32(entry, 8)
	copy(entry[4:8], fourCC)

	stsdContent := append(make([]byte, 8), entry...) // version/flags/count + one entry
	stsd := box("stsd", stsdContent)
	stbl := box("stbl", stsd)
	minf := box("minf", stbl)
	mdia := box("mdia", minf)
	trak := box("trak", mdia)
	moov := box("moov", trak)
	ftyp := box("ftyp", []byte("isom"))

	return append(ftyp, moov...)
}

func TestIdentifyM4AALAC(t *testing.T) {
	data := buildM4A("alac")

	codec, err := Identify(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Identify() error = %v", err)
	}

	if codec != ALAC {
		t.Errorf("codec = %v, want ALAC", codec)
	}
}

func TestIdentifyM4AAAC(t *testing.T) {
	data := buildM4A("mp4a")

	codec, err := Identify(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Identify() error = %v", err)
	}

	if codec != AAC {
		t.Errorf("codec = %v, want AAC", codec)
	}
}

func TestCodecString(t *testing.T) {
	cases := map[Codec]string{
		Unknown: "unknown",
		FLAC:    "FLAC",
		ALAC:    "ALAC",
		MP3:     "MP3",
		Vorbis:  "Vorbis",
		WAV:     "WAV",
		AAC:     "AAC",
	}

	for c, want := range cases {
		if got := c.String(); got != want {
			t.Errorf("%v.String() = %q, want %q", c, got, want)
		}
	}
}
