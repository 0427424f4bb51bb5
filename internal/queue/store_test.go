package queue

import (
	"context"
	"path/filepath"
	"testing"

	"rhythm/internal/config"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.LibraryDir = filepath.Join(base, "music")
	cfg.Paths.DBDir = filepath.Join(base, "db")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	store, err := Open(&cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestEnqueueAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	item, err := store.Enqueue(ctx, "batch-1", "/Music/Song.mp3", "/music/song.mp3")
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if item.Status != StatusQueued {
		t.Fatalf("unexpected status: %s", item.Status)
	}
	if item.TechStatus != PhasePending {
		t.Fatalf("unexpected tech status: %s", item.TechStatus)
	}
	if item.TrackKey != "/music/song.mp3" {
		t.Fatalf("unexpected key: %s", item.TrackKey)
	}
}

func TestPhaseAndStatusTransitions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	item, err := store.Enqueue(ctx, "batch-1", "/a.mp3", "/a.mp3")
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := store.SetStatus(ctx, item.ID, StatusTechnical, ""); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if err := store.SetPhase(ctx, item.ID, PhaseTechnical, PhaseRunning); err != nil {
		t.Fatalf("SetPhase: %v", err)
	}
	if err := store.SetPhase(ctx, item.ID, PhaseCreative, PhaseDone); err != nil {
		t.Fatalf("SetPhase: %v", err)
	}
	if err := store.SetTitle(ctx, item.ID, "Song"); err != nil {
		t.Fatalf("SetTitle: %v", err)
	}

	got, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != StatusTechnical || got.TechStatus != PhaseRunning || got.CreativeStatus != PhaseDone {
		t.Fatalf("unexpected item: %+v", got)
	}
	if got.Title != "Song" {
		t.Fatalf("unexpected title: %s", got.Title)
	}
	if !got.UpdatedAt.After(got.CreatedAt) && !got.UpdatedAt.Equal(got.CreatedAt) {
		t.Fatalf("updated_at before created_at: %+v", got)
	}
}

func TestSetPhaseRejectsUnknownPhase(t *testing.T) {
	store := newTestStore(t)
	if err := store.SetPhase(context.Background(), 1, Phase("bogus"), PhaseDone); err == nil {
		t.Fatal("expected error for unknown phase")
	}
}

func TestListFilterAndHealth(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, _ := store.Enqueue(ctx, "b", "/a.mp3", "/a.mp3")
	second, _ := store.Enqueue(ctx, "b", "/b.mp3", "/b.mp3")
	if err := store.SetStatus(ctx, first.ID, StatusCompleted, ""); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if err := store.SetStatus(ctx, second.ID, StatusFailed, "probe failed"); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	completed, err := store.List(ctx, StatusCompleted)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(completed) != 1 || completed[0].ID != first.ID {
		t.Fatalf("unexpected filtered list: %+v", completed)
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if len(all) != 2 || all[0].ID != second.ID {
		t.Fatalf("expected newest-first order, got %+v", all)
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if health.Total != 2 || health.Completed != 1 || health.Failed != 1 {
		t.Fatalf("unexpected health: %+v", health)
	}
}

func TestClear(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	_, _ = store.Enqueue(ctx, "b", "/a.mp3", "/a.mp3")
	removed, err := store.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
}

func TestParseStatus(t *testing.T) {
	if status, ok := ParseStatus(" Completed "); !ok || status != StatusCompleted {
		t.Fatalf("unexpected parse: %v %v", status, ok)
	}
	if _, ok := ParseStatus("bogus"); ok {
		t.Fatal("expected parse failure")
	}
}
