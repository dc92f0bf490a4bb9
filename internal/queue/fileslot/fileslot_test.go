package fileslot

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/esitriage/internal/esi"
	"github.com/linnemanlabs/esitriage/internal/queue"
)

var _ queue.Slot = (*Slot)(nil)

func TestSlot_PutGet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if _, ok, err := s.Get(ctx, "q"); ok || err != nil {
		t.Fatalf("Get before Put = ok %v err %v", ok, err)
	}
	if err := s.Put(ctx, "q", []byte(`[1]`)); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, "q", []byte(`[2]`)); err != nil {
		t.Fatal(err)
	}
	got, ok, err := s.Get(ctx, "q")
	if err != nil || !ok || string(got) != `[2]` {
		t.Fatalf("Get = %s ok %v err %v, want [2]", got, ok, err)
	}
}

func TestSlot_NoTempFilesLeft(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, _ := New(dir)
	for range 3 {
		if err := s.Put(context.Background(), "q", []byte(`[]`)); err != nil {
			t.Fatal(err)
		}
	}

	names, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 1 || names[0].Name() != "q.json" {
		t.Errorf("dir contents = %v, want only q.json", names)
	}
}

func TestSlot_InvalidKeys(t *testing.T) {
	t.Parallel()

	s, _ := New(t.TempDir())
	for _, key := range []string{"", "..", "a/b", `a\b`} {
		if err := s.Put(context.Background(), key, []byte(`[]`)); err == nil {
			t.Errorf("Put(%q) succeeded, want error", key)
		}
	}
}

func TestNew_CreatesDirectory(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "queue")
	if _, err := New(dir); err != nil {
		t.Fatal(err)
	}
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		t.Fatalf("stat %s: %v", dir, err)
	}
}

func TestStore_SurvivesRestart(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	at := time.Date(2025, 1, 2, 9, 30, 0, 0, time.UTC)

	s1, _ := New(dir)
	first := queue.New(s1, "", log.Nop(), queue.Hooks{})
	for _, tc := range []struct {
		id    string
		level esi.Level
	}{{"p1", esi.LevelLessUrgent}, {"p2", esi.LevelEmergent}} {
		obs := esi.NewObservation()
		obs.PatientID = tc.id
		if err := first.Append(ctx, esi.NewEntry(obs, esi.NewOutcome(tc.level), at)); err != nil {
			t.Fatal(err)
		}
	}

	s2, _ := New(dir)
	second := queue.New(s2, "", log.Nop(), queue.Hooks{})
	second.Load(ctx)

	got := second.Snapshot()
	if len(got) != 2 || got[0].ID != "p2" || got[1].ID != "p1" {
		t.Fatalf("reloaded entries = %+v", got)
	}
	if got[0].Timestamp != "9:30:00 AM" {
		t.Errorf("timestamp = %q", got[0].Timestamp)
	}
}
