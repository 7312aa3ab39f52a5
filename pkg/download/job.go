package download

import "fmt"

// ChapterStatus tracks where a chapter is in its download lifecycle.
type ChapterStatus string

const (
	StatusPending    ChapterStatus = "pending"
	StatusInProgress ChapterStatus = "in_progress"
	StatusCompleted  ChapterStatus = "completed"
	StatusFailed     ChapterStatus = "failed"
)

// WorkItem is a single image fetch: one URL, one destination file.
// Items are immutable once created; identity is (ChapterID, Index).
type WorkItem struct {
	SeriesID  string `json:"series_id"`
	ChapterID string `json:"chapter_id"`
	Index     int    `json:"index"`
	URL       string `json:"url"`
	Dest      string `json:"dest"`
}

// Key returns the item's identity within a series.
func (w WorkItem) Key() string {
	return fmt.Sprintf("%s/%d", w.ChapterID, w.Index)
}

// ChapterJob is the ordered set of WorkItems for one chapter.
type ChapterJob struct {
	ChapterID string
	Title     string
	Items     []WorkItem

	status    ChapterStatus
	completed int
	failed    int
	// lastErr holds the failure that made the chapter terminal.
	lastErr error
}

// NewChapterJob builds a pending chapter job from resolved image URLs.
func NewChapterJob(chapterID, title string, items []WorkItem) *ChapterJob {
	return &ChapterJob{
		ChapterID: chapterID,
		Title:     title,
		Items:     items,
		status:    StatusPending,
	}
}

func (c *ChapterJob) Status() ChapterStatus { return c.status }
func (c *ChapterJob) Completed() int        { return c.completed }
func (c *ChapterJob) Total() int            { return len(c.Items) }

// markItemDone records one item outcome and moves the chapter to a
// terminal status once every item is accounted for. Callers must hold
// the manager's state lock; the job itself is not synchronized.
func (c *ChapterJob) markItemDone(ok bool, err error) {
	if ok {
		c.completed++
	} else {
		c.failed++
		if err != nil {
			c.lastErr = err
		}
	}
	switch {
	case c.completed == len(c.Items):
		c.status = StatusCompleted
	case c.completed+c.failed == len(c.Items):
		c.status = StatusFailed
	default:
		c.status = StatusInProgress
	}
}

func (c *ChapterJob) terminal() bool {
	return c.status == StatusCompleted || c.status == StatusFailed
}

// remaining returns the items not yet confirmed complete, in order.
// Used to build the persisted queue record for a resume.
func (c *ChapterJob) remaining(done map[string]bool) []WorkItem {
	var out []WorkItem
	for _, item := range c.Items {
		if !done[item.Key()] {
			out = append(out, item)
		}
	}
	return out
}

// SeriesJob owns the chapter jobs for one series. Chapters have no life
// outside their series job.
type SeriesJob struct {
	SeriesID string
	Title    string
	Chapters []*ChapterJob
}

// TotalItems counts every work item across the series.
func (s *SeriesJob) TotalItems() int {
	n := 0
	for _, ch := range s.Chapters {
		n += len(ch.Items)
	}
	return n
}

// ChapterResult is the per-chapter slice of a series outcome.
type ChapterResult struct {
	ChapterID string
	Title     string
	Status    ChapterStatus
	Completed int
	Total     int
	Err       error
}

// SeriesOutcome aggregates the terminal state of every chapter in a run.
// PersistErr is set when the queue record could not be written; completed
// work is still reported, but resume state on disk may be stale.
type SeriesOutcome struct {
	SeriesID     string
	AllSucceeded bool
	Chapters     []ChapterResult
	PersistErr   error
}

// FailedChapters lists the chapters that did not complete.
func (o *SeriesOutcome) FailedChapters() []ChapterResult {
	var out []ChapterResult
	for _, ch := range o.Chapters {
		if ch.Status != StatusCompleted {
			out = append(out, ch)
		}
	}
	return out
}
