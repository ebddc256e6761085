package history

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mediarelay/internal/media"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndList(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	entry := media.Activity{
		Action:   "stream",
		URL:      "https://example.com/v/1",
		Title:    "Test Video",
		Kind:     "audio",
		Status:   media.StatusOK,
		Bytes:    4096,
		Duration: 1500 * time.Millisecond,
	}
	if err := s.Record(ctx, entry); err != nil {
		t.Fatalf("Record() error: %v", err)
	}

	entries, err := s.List(ctx, 10)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	got := entries[0]
	if got.ID == 0 {
		t.Error("ID not assigned")
	}
	if got.URL != entry.URL {
		t.Errorf("URL = %q, want %q", got.URL, entry.URL)
	}
	if got.Title != entry.Title {
		t.Errorf("Title = %q, want %q", got.Title, entry.Title)
	}
	if got.Status != media.StatusOK {
		t.Errorf("Status = %q, want ok", got.Status)
	}
	if got.Bytes != 4096 || got.Duration != 1500*time.Millisecond {
		t.Errorf("Bytes = %d, Duration = %v", got.Bytes, got.Duration)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt not stamped")
	}
}

func TestListNewestFirstWithLimit(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	for i := 0; i < 5; i++ {
		s.Record(ctx, media.Activity{
			Action:    "probe",
			URL:       "https://example.com/" + string(rune('a'+i)),
			Status:    media.StatusOK,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}

	entries, err := s.List(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].URL != "https://example.com/e" || entries[2].URL != "https://example.com/c" {
		t.Errorf("order = %q..%q, want newest first", entries[0].URL, entries[2].URL)
	}
}

func TestClear(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	s.Record(ctx, media.Activity{Action: "probe", URL: "https://example.com/1", Status: media.StatusFailed})
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}

	entries, _ := s.List(ctx, 0)
	if len(entries) != 0 {
		t.Errorf("expected empty history, got %d entries", len(entries))
	}
}

func TestReopenKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	ctx := context.Background()

	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	s.Record(ctx, media.Activity{Action: "probe", URL: "https://example.com/1", Status: media.StatusOK})
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	entries, _ := s.List(ctx, 0)
	if len(entries) != 1 {
		t.Errorf("expected 1 entry after reopen, got %d", len(entries))
	}
}

func TestOpenDefaultUsesDataHome(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", tmpDir)

	s, err := OpenDefault()
	if err != nil {
		t.Fatalf("OpenDefault() error: %v", err)
	}
	s.Close()

	if _, err := os.Stat(filepath.Join(tmpDir, "mediarelay", "history.db")); err != nil {
		t.Errorf("history database not created under XDG_DATA_HOME: %v", err)
	}
}

func TestFormatForDisplay(t *testing.T) {
	when := time.Date(2026, 3, 4, 5, 6, 0, 0, time.Local)
	entries := []media.Activity{
		{Action: "stream", Kind: "video", Status: media.StatusOK, Title: "Clip", Bytes: 3 << 20, CreatedAt: when},
		{Action: "probe", Status: media.StatusProtected, URL: "https://example.com/private", CreatedAt: when},
	}

	items := FormatForDisplay(entries)
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if !strings.Contains(items[0], "stream/video") || !strings.HasSuffix(items[0], "Clip [3.0 MiB]") {
		t.Errorf("items[0] = %q", items[0])
	}
	if !strings.Contains(items[1], "protected") || !strings.HasSuffix(items[1], "https://example.com/private") {
		t.Errorf("items[1] = %q", items[1])
	}
	if !strings.HasPrefix(items[0], "2026-03-04 05:06") {
		t.Errorf("items[0] = %q, want timestamp prefix", items[0])
	}
}
