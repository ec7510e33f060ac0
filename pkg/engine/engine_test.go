package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	wav "github.com/youpy/go-wav"

	"github.com/friendsincode/audioengine/pkg/boundary"
	"github.com/friendsincode/audioengine/pkg/config"
	"github.com/friendsincode/audioengine/pkg/passage"
	"github.com/friendsincode/audioengine/pkg/pcmring"
	"github.com/friendsincode/audioengine/pkg/testsupport"
	"github.com/friendsincode/audioengine/pkg/ticks"
)

// memQueue is an in-memory boundary.Queue for tests: Save just snapshots the
// latest membership/order, Load replays whatever was last saved.
type memQueue struct {
	mu      sync.Mutex
	entries []passage.QueueEntry
}

func (q *memQueue) Load(ctx context.Context) ([]passage.QueueEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]passage.QueueEntry, len(q.entries))
	copy(out, q.entries)
	return out, nil
}

func (q *memQueue) Save(ctx context.Context, entries []passage.QueueEntry) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append([]passage.QueueEntry(nil), entries...)
	return nil
}

// recordingSink collects every published event for assertions.
type recordingSink struct {
	mu     sync.Mutex
	events []boundary.Event
}

func (s *recordingSink) Publish(evt boundary.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, evt)
}

func (s *recordingSink) completions() []boundary.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []boundary.Event
	for _, e := range s.events {
		if e.Kind == "PassageCompleted" {
			out = append(out, e)
		}
	}
	return out
}

// testSampleRate keeps fixtures short-lived: a few seconds of audio at 8kHz
// decodes and mixes in a fraction of the wall-clock time 44.1kHz would take.
const testSampleRate = 8000

func testConfig() config.Engine {
	src := config.NewFromMap(map[string]string{
		config.KeyWorkingSampleRate:  fmt.Sprint(testSampleRate),
		config.KeyOutputRingFrames:   "4096",
		config.KeyPlayoutRingFrames:  "16384",
		config.KeyHeadroom:           "256",
		config.KeyResumeHysteresis:   "512",
		config.KeyMixerMinStartLevel: "400",
		config.KeyMaxDecodeStreams:   "4",
		config.KeyDecodeChunkSamples: "2000",
		config.KeyMixerCheckInterval: "5",
		config.KeyMixerBatchLow:      "128",
		config.KeyMixerBatchOptimal:  "64",
		// No global crossfade window, so zero-lead passages play back to back.
		config.KeyGlobalCrossfadeSec: "0",
	})
	return config.LoadEngine(src)
}

// writeSineWAV renders durationSec of a mono sine tone at testSampleRate to
// a 16-bit PCM WAV fixture and returns its file name (not full path).
func writeSineWAV(t *testing.T, dir string, name string, durationSec float64, freqHz float64) string {
	t.Helper()
	frameCount := int64(durationSec * testSampleRate)
	dec := testsupport.NewSineDecoder(testSampleRate, 1, frameCount, freqHz)

	buf := make([]byte, frameCount*2)
	n, err := dec.DecodeSamples(int(frameCount), buf)
	if err != nil {
		t.Fatalf("render sine fixture: %v", err)
	}

	full := filepath.Join(dir, name)
	f, err := os.Create(full)
	if err != nil {
		t.Fatalf("create fixture file: %v", err)
	}
	defer f.Close()

	writer := wav.NewWriter(f, uint32(n), 1, testSampleRate, 16)
	if _, err := writer.Write(buf[:n*2]); err != nil {
		t.Fatalf("write fixture wav: %v", err)
	}
	return name
}

// drainOutput keeps the mixer's output ring from filling up (Push never
// blocks, but an undrained ring means the mixer never reports itself caught
// up) until ctx is canceled, standing in for a real output.Driver.
func drainOutput(ctx context.Context, ring *pcmring.Ring) {
	buf := make([]pcmring.Frame, 256)
	ticker := time.NewTicker(2 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ring.Pop(buf)
		}
	}
}

func newTestEngine(t *testing.T, blobRoot string) (*Engine, *recordingSink) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	sink := &recordingSink{}
	blobs := boundary.NewFileBlobStore(blobRoot)
	eng := New(testConfig(), &memQueue{}, blobs, sink, log)
	return eng, sink
}

func wholeFilePassage(ref string, durationSec float64) passage.Passage {
	end := ticks.FromSeconds(durationSec)
	return passage.Passage{
		AudioRef: ref,
		Start:    0,
		FadeIn:   0,
		FadeOut:  end,
		LeadIn:   0,
		LeadOut:  end,
		End:      end,
	}
}

func crossfadingPassage(ref string, durationSec, crossfadeSec float64) passage.Passage {
	end := ticks.FromSeconds(durationSec)
	lead := ticks.FromSeconds(crossfadeSec)
	return passage.Passage{
		AudioRef: ref,
		Start:    0,
		FadeIn:   0,
		FadeOut:  end,
		LeadIn:   lead,
		LeadOut:  end - lead,
		End:      end,
	}
}

func waitForCompletions(t *testing.T, sink *recordingSink, want int, timeout time.Duration) []boundary.Event {
	t.Helper()
	deadline := time.After(timeout)
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-tick.C:
			if got := sink.completions(); len(got) >= want {
				return got
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %d completions, got %d", want, len(sink.completions()))
		}
	}
}

// TestEngineSequentialPlayback covers spec.md §8 scenario 1: three short
// passages with no lead overlap play start to end in enqueue order.
func TestEngineSequentialPlayback(t *testing.T) {
	dir := t.TempDir()
	refs := []string{
		writeSineWAV(t, dir, "a.wav", 1.0, 220),
		writeSineWAV(t, dir, "b.wav", 1.0, 330),
		writeSineWAV(t, dir, "c.wav", 1.0, 440),
	}

	eng, sink := newTestEngine(t, dir)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- eng.Run(ctx) }()
	go drainOutput(ctx, eng.OutputRing())

	var ids []passage.EntryID
	for _, ref := range refs {
		id, err := eng.Enqueue(wholeFilePassage(ref, 1.0), nil)
		if err != nil {
			t.Fatalf("enqueue %s: %v", ref, err)
		}
		ids = append(ids, id)
	}

	if err := eng.Play(); err != nil {
		t.Fatalf("play: %v", err)
	}

	completions := waitForCompletions(t, sink, 3, 10*time.Second)
	gotOrder := make([]passage.EntryID, len(completions))
	for i, c := range completions {
		gotOrder[i] = c.EntryID
	}
	for i, want := range ids {
		if gotOrder[i] != want {
			t.Errorf("completion %d: got entry %s, want %s", i, gotOrder[i], want)
		}
	}

	cancel()
	if err := <-runErr; err != nil && err != context.Canceled {
		t.Fatalf("engine.Run returned %v", err)
	}
}

// TestEngineCrossfadePlayback covers spec.md §8 scenario 2: two passages
// with matching lead windows both complete despite overlapping playback.
func TestEngineCrossfadePlayback(t *testing.T) {
	dir := t.TempDir()
	refA := writeSineWAV(t, dir, "a.wav", 2.0, 220)
	refB := writeSineWAV(t, dir, "b.wav", 2.0, 330)

	eng, sink := newTestEngine(t, dir)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- eng.Run(ctx) }()
	go drainOutput(ctx, eng.OutputRing())

	idA, err := eng.Enqueue(crossfadingPassage(refA, 2.0, 0.5), nil)
	if err != nil {
		t.Fatalf("enqueue a: %v", err)
	}
	idB, err := eng.Enqueue(crossfadingPassage(refB, 2.0, 0.5), nil)
	if err != nil {
		t.Fatalf("enqueue b: %v", err)
	}

	if err := eng.Play(); err != nil {
		t.Fatalf("play: %v", err)
	}

	completions := waitForCompletions(t, sink, 2, 10*time.Second)
	if completions[0].EntryID != idA || completions[1].EntryID != idB {
		t.Errorf("got completion order %v, %v; want %s, %s",
			completions[0].EntryID, completions[1].EntryID, idA, idB)
	}

	cancel()
	if err := <-runErr; err != nil && err != context.Canceled {
		t.Fatalf("engine.Run returned %v", err)
	}
}
