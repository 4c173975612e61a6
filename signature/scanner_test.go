package signature

import (
	"testing"

	"github.com/mycophonic/transcodescan"
)

func TestScanFindsMultipleFamiliesInOffsetOrder(t *testing.T) {
	data := []byte("junk...Lavf58.29.100...junk...LAME3.100...more...iTunes")

	occurrences, counts := Scan(data)

	if len(occurrences) != 3 {
		t.Fatalf("expected 3 occurrences, got %d: %+v", len(occurrences), occurrences)
	}

	for i := 1; i < len(occurrences); i++ {
		if occurrences[i].Offset < occurrences[i-1].Offset {
			t.Errorf("occurrences not sorted by offset: %+v", occurrences)
		}
	}

	if occurrences[0].Family != transcodescan.EncoderFFmpeg {
		t.Errorf("first occurrence family = %v, want FFmpeg", occurrences[0].Family)
	}

	if occurrences[1].Family != transcodescan.EncoderLAME {
		t.Errorf("second occurrence family = %v, want LAME", occurrences[1].Family)
	}

	if occurrences[2].Family != transcodescan.EncoderITunes {
		t.Errorf("third occurrence family = %v, want iTunes", occurrences[2].Family)
	}

	if counts[transcodescan.EncoderLAME] != 1 {
		t.Errorf("LAME count = %d, want 1", counts[transcodescan.EncoderLAME])
	}

	if counts[transcodescan.EncoderFraunhofer] != 0 {
		t.Errorf("Fraunhofer count = %d, want 0", counts[transcodescan.EncoderFraunhofer])
	}
}

func TestScanRepeatedSignatureCounted(t *testing.T) {
	data := []byte("LAMELAMELAME")

	occurrences, counts := Scan(data)

	if len(occurrences) != 3 {
		t.Fatalf("expected 3 occurrences, got %d", len(occurrences))
	}

	if counts[transcodescan.EncoderLAME] != 3 {
		t.Errorf("count = %d, want 3", counts[transcodescan.EncoderLAME])
	}

	for i, want := range []int64{0, 4, 8} {
		if occurrences[i].Offset != want {
			t.Errorf("occurrence %d offset = %d, want %d", i, occurrences[i].Offset, want)
		}
	}
}

func TestScanNoSignaturesFound(t *testing.T) {
	data := []byte("nothing interesting here at all")

	occurrences, counts := Scan(data)

	if occurrences != nil {
		t.Errorf("expected nil occurrences, got %+v", occurrences)
	}

	if len(counts) != 0 {
		t.Errorf("expected empty counts, got %+v", counts)
	}
}

func TestScanRespectsLimit(t *testing.T) {
	data := make([]byte, scanLimit+100)
	copy(data[scanLimit+10:], []byte("LAME"))

	occurrences, _ := Scan(data)
	if occurrences != nil {
		t.Errorf("expected signature past scanLimit to be invisible, got %+v", occurrences)
	}
}
