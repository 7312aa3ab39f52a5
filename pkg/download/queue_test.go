package download

import (
	"os"
	"path/filepath"
	"testing"
)

func testRecord(seriesID string) *Record {
	return &Record{
		SeriesID: seriesID,
		Title:    "Test Series",
		Chapters: []ChapterRecord{
			{
				ChapterID: "ch-1",
				Title:     "Episode 1",
				Status:    StatusPending,
				Items: []WorkItem{
					{SeriesID: seriesID, ChapterID: "ch-1", Index: 0, URL: "http://x/1.jpg", Dest: "/tmp/1.jpg"},
					{SeriesID: seriesID, ChapterID: "ch-1", Index: 1, URL: "http://x/2.jpg", Dest: "/tmp/2.jpg"},
				},
			},
		},
	}
}

func TestQueueLoadMissingDir(t *testing.T) {
	queue := NewQueue(filepath.Join(t.TempDir(), "does-not-exist"))
	records, err := queue.Load()
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}
	if len(records) != 0 {
		t.Errorf("Expected empty queue, got %d records", len(records))
	}
}

func TestQueuePersistAndLoad(t *testing.T) {
	queue := NewQueue(t.TempDir())

	rec := testRecord("series-1")
	if err := queue.Persist(rec); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}

	records, err := queue.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	got, ok := records["series-1"]
	if !ok {
		t.Fatal("Expected record for series-1")
	}
	if got.Title != "Test Series" {
		t.Errorf("Expected title 'Test Series', got %q", got.Title)
	}
	if len(got.Chapters) != 1 || len(got.Chapters[0].Items) != 2 {
		t.Errorf("Record shape not preserved: %+v", got)
	}
	if got.SavedAt.IsZero() {
		t.Error("SavedAt should be stamped on persist")
	}
}

func TestQueuePersistOverwrites(t *testing.T) {
	queue := NewQueue(t.TempDir())

	rec := testRecord("series-1")
	if err := queue.Persist(rec); err != nil {
		t.Fatal(err)
	}

	rec.Chapters[0].Status = StatusCompleted
	rec.Chapters[0].Items = nil
	if err := queue.Persist(rec); err != nil {
		t.Fatal(err)
	}

	got, err := queue.LoadSeries("series-1")
	if err != nil || got == nil {
		t.Fatalf("LoadSeries() = %v, %v", got, err)
	}
	if got.Chapters[0].Status != StatusCompleted {
		t.Errorf("Expected completed status, got %s", got.Chapters[0].Status)
	}
	if len(got.Chapters[0].Items) != 0 {
		t.Error("Completed chapter should carry no remaining items")
	}
}

func TestQueueCorruptRecord(t *testing.T) {
	dir := t.TempDir()
	queue := NewQueue(dir)

	if err := os.WriteFile(filepath.Join(dir, "series-1.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	rec, err := queue.LoadSeries("series-1")
	if err != nil {
		t.Errorf("Corrupt record must not be a fatal error, got %v", err)
	}
	if rec != nil {
		t.Error("Corrupt record should load as no resumable state")
	}

	records, err := queue.Load()
	if err != nil {
		t.Errorf("Load() with corrupt record error = %v", err)
	}
	if len(records) != 0 {
		t.Errorf("Corrupt record should be skipped, got %d records", len(records))
	}
}

func TestQueueClear(t *testing.T) {
	queue := NewQueue(t.TempDir())

	if err := queue.Persist(testRecord("series-1")); err != nil {
		t.Fatal(err)
	}
	if !queue.Has("series-1") {
		t.Fatal("Expected record to exist")
	}

	if err := queue.Clear("series-1"); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if queue.Has("series-1") {
		t.Error("Record should be gone after Clear")
	}

	// Clearing again is not an error.
	if err := queue.Clear("series-1"); err != nil {
		t.Errorf("Clear() on missing record error = %v", err)
	}
}

func TestRecordJobResumeSemantics(t *testing.T) {
	rec := &Record{
		SeriesID: "series-1",
		Chapters: []ChapterRecord{
			{ChapterID: "done", Status: StatusCompleted},
			{ChapterID: "failed", Status: StatusFailed, Items: []WorkItem{{ChapterID: "failed", Index: 2, URL: "http://x/3.jpg"}}},
			{ChapterID: "partial", Status: StatusPending, Items: []WorkItem{{ChapterID: "partial", Index: 0, URL: "http://x/1.jpg"}}},
		},
	}

	job := rec.Job()
	if len(job.Chapters) != 2 {
		t.Fatalf("Expected 2 resumable chapters, got %d", len(job.Chapters))
	}
	for _, ch := range job.Chapters {
		if ch.Status() != StatusPending {
			t.Errorf("Chapter %s should resume as pending, got %s", ch.ChapterID, ch.Status())
		}
	}
	if job.TotalItems() != 2 {
		t.Errorf("Expected 2 items to redo, got %d", job.TotalItems())
	}
}

func TestQueueSanitizesSeriesID(t *testing.T) {
	queue := NewQueue(t.TempDir())
	rec := testRecord("weird/id:1")
	if err := queue.Persist(rec); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}
	got, err := queue.LoadSeries("weird/id:1")
	if err != nil || got == nil {
		t.Fatalf("LoadSeries() = %v, %v", got, err)
	}
	if got.SeriesID != "weird/id:1" {
		t.Errorf("SeriesID mangled: %q", got.SeriesID)
	}
}
