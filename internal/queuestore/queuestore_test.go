package queuestore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/friendsincode/audioengine/pkg/curve"
	"github.com/friendsincode/audioengine/pkg/passage"
)

func samplePassage() passage.Passage {
	return passage.Passage{
		AudioRef:     "track.wav",
		Start:        0,
		FadeIn:       1000,
		FadeOut:      9000,
		LeadIn:       500,
		LeadOut:      9500,
		End:          10000,
		FadeInCurve:  curve.Linear,
		FadeOutCurve: curve.EqualPowerOut,
	}
}

func TestLoadMissingFileReturnsEmptyQueue(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "queue.json"))
	entries, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("len(entries) = %d, want 0", len(entries))
	}
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "queue.json"))
	start := int64(42)
	entries := []passage.QueueEntry{
		{ID: "e1", Passage: samplePassage(), PlayOrder: 0},
		{ID: "e2", Passage: samplePassage(), PlayOrder: 1, Overrides: &passage.Overrides{Start: &start}},
	}

	if err := store.Save(context.Background(), entries); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(got) = %d, want 2", len(got))
	}
	if got[0].ID != "e1" || got[1].ID != "e2" {
		t.Errorf("entry order/IDs not preserved: %+v", got)
	}
	if got[1].Overrides == nil || *got[1].Overrides.Start != 42 {
		t.Errorf("override not round-tripped: %+v", got[1].Overrides)
	}
	if got[0].Passage.AudioRef != "track.wav" {
		t.Errorf("Passage not round-tripped: %+v", got[0].Passage)
	}
}

func TestSaveOverwritesPreviousSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.json")
	store := NewFileStore(path)

	first := []passage.QueueEntry{{ID: "e1", Passage: samplePassage(), PlayOrder: 0}}
	if err := store.Save(context.Background(), first); err != nil {
		t.Fatalf("Save: %v", err)
	}

	second := []passage.QueueEntry{{ID: "e2", Passage: samplePassage(), PlayOrder: 0}}
	if err := store.Save(context.Background(), second); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 1 || got[0].ID != "e2" {
		t.Errorf("got = %+v, want single entry e2", got)
	}
}
