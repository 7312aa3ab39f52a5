package download

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ChapterRecord is the durable projection of one chapter's unfinished
// work. Only remaining items are stored; completed items are pruned
// when the record is written, so a resume never re-plans finished work.
type ChapterRecord struct {
	ChapterID string        `json:"chapter_id"`
	Title     string        `json:"title,omitempty"`
	Status    ChapterStatus `json:"status"`
	Items     []WorkItem    `json:"items"`
}

// Record is the persisted queue entry for one series.
type Record struct {
	SeriesID string          `json:"series_id"`
	Title    string          `json:"title,omitempty"`
	SavedAt  time.Time       `json:"saved_at"`
	Chapters []ChapterRecord `json:"chapters"`
}

// Job rebuilds a resumable SeriesJob from the record. InProgress and
// Failed chapters come back as Pending: an interrupted chapter is
// retried in full from its remaining items.
func (r *Record) Job() *SeriesJob {
	job := &SeriesJob{SeriesID: r.SeriesID, Title: r.Title}
	for _, ch := range r.Chapters {
		if ch.Status == StatusCompleted || len(ch.Items) == 0 {
			continue
		}
		job.Chapters = append(job.Chapters, NewChapterJob(ch.ChapterID, ch.Title, ch.Items))
	}
	return job
}

// Queue persists per-series download state as one JSON file per series
// under dir. Writes use the temp-file-and-rename discipline so a crash
// mid-persist cannot clobber the previous valid record.
type Queue struct {
	dir string
}

func NewQueue(dir string) *Queue {
	return &Queue{dir: dir}
}

// Load reads every readable record in the queue directory. A missing
// directory means an empty queue; an unreadable or corrupt record is
// skipped and treated as no resumable state for that series.
func (q *Queue) Load() (map[string]*Record, error) {
	entries, err := os.ReadDir(q.dir)
	if os.IsNotExist(err) {
		return map[string]*Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read queue directory: %w", err)
	}

	records := make(map[string]*Record)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		rec, err := q.readRecord(filepath.Join(q.dir, entry.Name()))
		if err != nil || rec.SeriesID == "" {
			continue
		}
		records[rec.SeriesID] = rec
	}
	return records, nil
}

// LoadSeries returns the record for one series, or nil when there is
// nothing to resume.
func (q *Queue) LoadSeries(seriesID string) (*Record, error) {
	rec, err := q.readRecord(q.recordPath(seriesID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		// Corrupt record: no resumable state, not a fatal error.
		return nil, nil
	}
	return rec, nil
}

// Persist overwrites the stored record for rec.SeriesID.
func (q *Queue) Persist(rec *Record) error {
	if err := os.MkdirAll(q.dir, 0755); err != nil {
		return fmt.Errorf("create queue directory: %w", err)
	}

	rec.SavedAt = time.Now().UTC()
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode queue record: %w", err)
	}

	path := q.recordPath(rec.SeriesID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write queue record: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace queue record: %w", err)
	}
	return nil
}

// Clear removes the persisted record once no resume is needed.
func (q *Queue) Clear(seriesID string) error {
	err := os.Remove(q.recordPath(seriesID))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Has reports whether a resumable record exists for the series.
func (q *Queue) Has(seriesID string) bool {
	_, err := os.Stat(q.recordPath(seriesID))
	return err == nil
}

func (q *Queue) readRecord(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode queue record %s: %w", path, err)
	}
	return &rec, nil
}

func (q *Queue) recordPath(seriesID string) string {
	return filepath.Join(q.dir, sanitizeID(seriesID)+".json")
}

func sanitizeID(id string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '-'
		}
		return r
	}, id)
}
