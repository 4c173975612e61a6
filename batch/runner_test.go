package batch

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/mycophonic/transcodescan"
	"github.com/mycophonic/transcodescan/wav"
)

func writeSineWAV(t *testing.T, dir, name string) string {
	t.Helper()

	const sampleRate = 44100

	n := sampleRate // 1 second
	pcm := make([]byte, n*2)

	for i := 0; i < n; i++ {
		v := int16(10000 * math.Sin(2*math.Pi*1000*float64(i)/float64(sampleRate)))
		pcm[2*i] = byte(v)
		pcm[2*i+1] = byte(v >> 8)
	}

	var buf bytes.Buffer

	format := transcodescan.PCMFormat{SampleRate: sampleRate, BitDepth: transcodescan.Depth16, Channels: 1}
	if err := wav.Encode(&buf, pcm, format); err != nil {
		t.Fatalf("wav.Encode() error = %v", err)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	return path
}

func TestRunProducesOneOutcomePerPathInOrder(t *testing.T) {
	dir := t.TempDir()

	paths := []string{
		writeSineWAV(t, dir, "a.wav"),
		writeSineWAV(t, dir, "b.wav"),
		writeSineWAV(t, dir, "c.wav"),
	}

	outcomes := Run(context.Background(), paths, transcodescan.DefaultOptions(), zerolog.Nop())

	if len(outcomes) != len(paths) {
		t.Fatalf("len(outcomes) = %d, want %d", len(outcomes), len(paths))
	}

	gotPaths := make([]string, len(outcomes))
	for i, o := range outcomes {
		gotPaths[i] = o.Path

		if o.Err != nil {
			t.Errorf("outcome %d: Err = %v, want nil", i, o.Err)
		}
	}

	if diff := cmp.Diff(paths, gotPaths); diff != "" {
		t.Errorf("outcome order mismatch (-want +got):\n%s", diff)
	}
}

func TestRunReportsPerFileErrorWithoutAbortingOthers(t *testing.T) {
	dir := t.TempDir()

	paths := []string{
		writeSineWAV(t, dir, "good.wav"),
		filepath.Join(dir, "missing.wav"),
	}

	outcomes := Run(context.Background(), paths, transcodescan.DefaultOptions(), zerolog.Nop())

	if outcomes[0].Err != nil {
		t.Errorf("outcome 0: Err = %v, want nil", outcomes[0].Err)
	}

	if outcomes[1].Err == nil {
		t.Error("outcome 1: expected an error for a missing file")
	}
}

func TestRunEmptyPathsReturnsEmptySlice(t *testing.T) {
	outcomes := Run(context.Background(), nil, transcodescan.DefaultOptions(), zerolog.Nop())

	if len(outcomes) != 0 {
		t.Errorf("len(outcomes) = %d, want 0", len(outcomes))
	}
}

func TestRunCancelledContextStopsDispatchingNewJobs(t *testing.T) {
	dir := t.TempDir()

	paths := make([]string, 50)
	for i := range paths {
		paths[i] = writeSineWAV(t, dir, "f"+string(rune('0'+i%10))+string(rune('a'+i/10))+".wav")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // already cancelled before Run starts

	outcomes := Run(ctx, paths, transcodescan.DefaultOptions(), zerolog.Nop())

	if len(outcomes) != len(paths) {
		t.Fatalf("len(outcomes) = %d, want %d", len(outcomes), len(paths))
	}

	// A path that was never dispatched keeps its zero-value Outcome.
	undispatched := 0

	for _, o := range outcomes {
		if o.Path == "" {
			undispatched++
		}
	}

	if undispatched == 0 {
		t.Error("expected some paths to be left undispatched after cancellation")
	}
}
