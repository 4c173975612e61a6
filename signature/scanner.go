// Package signature scans raw file bytes for known MP3 encoder name
// patterns.
package signature

import (
	"bytes"
	"sort"

	"github.com/mycophonic/transcodescan"
)

// scanLimit is the maximum number of leading bytes inspected.
const scanLimit = 2 << 20 // 2 MiB

// needle is one case-sensitive ASCII signature mapped to the encoder family
// it identifies.
type needle struct {
	pattern []byte
	family  transcodescan.EncoderFamily
}

//nolint:gochecknoglobals // immutable scan table
var needles = []needle{
	{[]byte("LAME"), transcodescan.EncoderLAME},
	{[]byte("Lavf"), transcodescan.EncoderFFmpeg},
	{[]byte("FhG"), transcodescan.EncoderFraunhofer},
	{[]byte("Fraunhofer"), transcodescan.EncoderFraunhofer},
	{[]byte("iTunes"), transcodescan.EncoderITunes},
	{[]byte("GOGO"), transcodescan.EncoderGOGO},
	{[]byte("BladeEnc"), transcodescan.EncoderBladeEnc},
	{[]byte("Shine"), transcodescan.EncoderShine},
	{[]byte("Helix"), transcodescan.EncoderHelix},
}

// Scan inspects the first 2 MiB of data and reports, per encoder family, the
// ordered list of byte offsets where its signature occurs and a rollup
// count. Scan never fails: an absent signature is simply
// zero occurrences.
func Scan(data []byte) ([]transcodescan.EncoderOccurrence, transcodescan.EncoderCounts) {
	window := data
	if len(window) > scanLimit {
		window = window[:scanLimit]
	}

	var occurrences []transcodescan.EncoderOccurrence

	counts := make(transcodescan.EncoderCounts)

	for _, n := range needles {
		for _, offset := range findAll(window, n.pattern) {
			occurrences = append(occurrences, transcodescan.EncoderOccurrence{
				Family: n.family,
				Offset: int64(offset),
			})
			counts[n.family]++
		}
	}

	sortByOffset(occurrences)

	return occurrences, counts
}

// findAll returns every non-overlapping byte offset at which pattern occurs
// in data.
func findAll(data, pattern []byte) []int {
	var offsets []int

	start := 0

	for {
		idx := bytes.Index(data[start:], pattern)
		if idx < 0 {
			return offsets
		}

		offsets = append(offsets, start+idx)
		start += idx + len(pattern)
	}
}

// sortByOffset orders occurrences by ascending byte offset so the earliest
// occurrence of each family is easy to find for the encoding-chain flag.
func sortByOffset(occurrences []transcodescan.EncoderOccurrence) {
	sort.Slice(occurrences, func(i, j int) bool {
		return occurrences[i].Offset < occurrences[j].Offset
	})
}
