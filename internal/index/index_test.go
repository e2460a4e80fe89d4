package index

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/clipper/internal/storage"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "clipper-test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM clips`).Scan(&count); err != nil {
		t.Fatalf("clips table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM settings`).Scan(&count); err != nil {
		t.Fatalf("settings table missing: %v", err)
	}
}

func TestSettingRoundTrip(t *testing.T) {
	db := testDB(t)

	if _, ok, err := db.Setting("base_folder"); err != nil || ok {
		t.Fatalf("fresh db: ok=%v err=%v", ok, err)
	}
	if err := db.SetSetting("base_folder", "/a"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	if err := db.SetSetting("base_folder", "/b"); err != nil {
		t.Fatalf("SetSetting overwrite: %v", err)
	}
	v, ok, err := db.Setting("base_folder")
	if err != nil || !ok {
		t.Fatalf("Setting: ok=%v err=%v", ok, err)
	}
	if v != "/b" {
		t.Errorf("value = %q, want /b", v)
	}
}

func TestUpsertAndSearch(t *testing.T) {
	db := testDB(t)
	row := ClipRow{
		Path:      "/root/clippings/2024-01-01 00:05 Hello.md",
		Title:     "Hello World",
		URL:       "https://x",
		Checksum:  "abc123",
		Keywords:  []string{"go"},
		ClippedAt: time.Now(),
	}
	if err := db.UpsertClip(row, "A clipped page about gophers."); err != nil {
		t.Fatalf("UpsertClip: %v", err)
	}
	results, err := db.Search("gophers", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Path != row.Path || results[0].URL != "https://x" {
		t.Errorf("results = %+v", results)
	}
	sums, err := db.AllChecksums()
	if err != nil {
		t.Fatal(err)
	}
	if sums[row.Path] != "abc123" {
		t.Errorf("checksum = %q", sums[row.Path])
	}
}

func TestDeleteClip(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertClip(ClipRow{Path: "/r/a.md", Checksum: "1"}, "needle")
	if err := db.DeleteClip("/r/a.md"); err != nil {
		t.Fatalf("DeleteClip: %v", err)
	}
	results, _ := db.Search("needle", 10)
	if len(results) != 0 {
		t.Errorf("expected no results after delete, got %v", results)
	}
}

func TestSyncIndexesAndPrunes(t *testing.T) {
	db := testDB(t)
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	clip := "---\ntitle: \"Synced\"\nurl: \"https://s\"\n---\n\n# Synced\n\nbody text\n"
	if err := store.Write("clippings/2024-01-01 00:05 Synced.md", []byte(clip)); err != nil {
		t.Fatal(err)
	}
	_ = db.UpsertClip(ClipRow{Path: "/elsewhere/clippings/old.md", Checksum: "x"}, "stale")

	if err := Sync(db, store, "clippings", discardLogger()); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	sums, _ := db.AllChecksums()
	if len(sums) != 1 {
		t.Fatalf("indexed = %v, want exactly the synced clip", sums)
	}
	want := filepath.Join(store.Root(), "clippings", "2024-01-01 00:05 Synced.md")
	if _, ok := sums[want]; !ok {
		t.Errorf("missing %s in %v", want, sums)
	}
	results, _ := db.Search("Synced", 5)
	if len(results) != 1 || results[0].URL != "https://s" {
		t.Errorf("results = %+v", results)
	}
}

func TestSearch_AllTermsMustMatch(t *testing.T) {
	db := testDB(t)
	rows := []struct {
		path, body string
	}{
		{"/r/clippings/a.md", "tunnels dug by gophers"},
		{"/r/clippings/b.md", "gophers eat roots"},
	}
	for i, r := range rows {
		c := ClipRow{Path: r.path, Title: "t", Checksum: fmt.Sprint(i), ClippedAt: time.Now()}
		if err := db.UpsertClip(c, r.body); err != nil {
			t.Fatal(err)
		}
	}

	results, err := db.Search("gophers tunnels", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Path != "/r/clippings/a.md" {
		t.Errorf("results = %+v", results)
	}

	if results, _ := db.Search("   ", 10); len(results) != 0 {
		t.Errorf("blank query returned %+v", results)
	}
}
