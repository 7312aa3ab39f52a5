package download

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Manager turns a SeriesJob into files on disk: it fans work items out
// across a bounded worker pool, feeds the progress tracker, and keeps
// the persisted queue in step with chapter completions so an
// interrupted run can resume.
type Manager struct {
	fetcher *Fetcher
	queue   *Queue
	tracker *Tracker
	workers int
}

func NewManager(fetcher *Fetcher, queue *Queue, tracker *Tracker, workers int) *Manager {
	if workers < 1 {
		workers = 1
	}
	return &Manager{fetcher: fetcher, queue: queue, tracker: tracker, workers: workers}
}

func (m *Manager) Tracker() *Tracker { return m.tracker }

// DownloadSeries drains every pending work item in the job. Item
// failures are isolated: one bad image fails its chapter, never its
// siblings. The returned outcome is per-chapter; queue persistence
// problems surface in outcome.PersistErr without aborting downloads.
func (m *Manager) DownloadSeries(ctx context.Context, job *SeriesJob) (*SeriesOutcome, error) {
	if job == nil || len(job.Chapters) == 0 {
		return nil, fmt.Errorf("series job has no chapters")
	}

	st := &seriesState{
		job:  job,
		done: make(map[string]bool),
	}
	m.tracker.Reset(job.TotalItems())

	// Persist the full backlog up front so a crash before the first
	// completion still leaves a resumable record.
	st.setPersistErr(m.persistState(st))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)

claims:
	for _, chapter := range job.Chapters {
		for _, item := range chapter.Items {
			select {
			case <-gctx.Done():
				break claims
			default:
			}
			chapter, item := chapter, item
			g.Go(func() error {
				m.runItem(gctx, st, chapter, item)
				return nil
			})
		}
	}
	g.Wait()

	// A cancelled run leaves chapters non-terminal; persist once more so
	// items confirmed since the last write are pruned from the record.
	if ctx.Err() != nil {
		st.setPersistErr(m.persistState(st))
	}

	outcome := m.buildOutcome(st)
	if outcome.AllSucceeded {
		if err := m.queue.Clear(job.SeriesID); err != nil {
			st.setPersistErr(fmt.Errorf("clear queue record: %w", err))
			outcome.PersistErr = st.persistErr
		}
	}
	return outcome, ctx.Err()
}

// Resume reloads the persisted record for the series and continues only
// its unfinished work. Returns an error when nothing is queued.
func (m *Manager) Resume(ctx context.Context, seriesID string) (*SeriesOutcome, error) {
	rec, err := m.queue.LoadSeries(seriesID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("no resumable download for series %s", seriesID)
	}

	job := rec.Job()
	if len(job.Chapters) == 0 {
		// Everything in the record was already confirmed complete.
		if err := m.queue.Clear(seriesID); err != nil {
			return nil, err
		}
		return &SeriesOutcome{SeriesID: seriesID, AllSucceeded: true}, nil
	}
	return m.DownloadSeries(ctx, job)
}

func (m *Manager) runItem(ctx context.Context, st *seriesState, chapter *ChapterJob, item WorkItem) {
	label := fmt.Sprintf("%s #%03d", chapter.Title, item.Index+1)
	outcome := m.fetcher.Fetch(ctx, item)

	st.mu.Lock()
	if outcome.OK() {
		st.done[item.Key()] = true
	}
	chapter.markItemDone(outcome.OK(), outcome.Err)
	terminal := chapter.terminal()
	st.mu.Unlock()

	if outcome.OK() {
		m.tracker.Success(label)
	} else {
		m.tracker.Failure(label, outcome.Err)
	}

	if terminal {
		st.setPersistErr(m.persistState(st))
	}
}

// persistState writes the series' current remaining work. The persist
// mutex serializes concurrent chapter completions so the on-disk record
// is never an interleaving of two snapshots.
func (m *Manager) persistState(st *seriesState) error {
	st.persistMu.Lock()
	defer st.persistMu.Unlock()

	st.mu.Lock()
	rec := &Record{SeriesID: st.job.SeriesID, Title: st.job.Title}
	for _, ch := range st.job.Chapters {
		cr := ChapterRecord{ChapterID: ch.ChapterID, Title: ch.Title}
		switch ch.Status() {
		case StatusCompleted:
			cr.Status = StatusCompleted
		case StatusFailed:
			cr.Status = StatusFailed
			cr.Items = ch.remaining(st.done)
		default:
			// In-flight chapters resume from scratch minus confirmed items.
			cr.Status = StatusPending
			cr.Items = ch.remaining(st.done)
		}
		rec.Chapters = append(rec.Chapters, cr)
	}
	st.mu.Unlock()

	return m.queue.Persist(rec)
}

func (m *Manager) buildOutcome(st *seriesState) *SeriesOutcome {
	st.mu.Lock()
	defer st.mu.Unlock()

	outcome := &SeriesOutcome{
		SeriesID:     st.job.SeriesID,
		AllSucceeded: true,
		PersistErr:   st.persistErr,
	}
	for _, ch := range st.job.Chapters {
		if ch.Status() != StatusCompleted {
			outcome.AllSucceeded = false
		}
		outcome.Chapters = append(outcome.Chapters, ChapterResult{
			ChapterID: ch.ChapterID,
			Title:     ch.Title,
			Status:    ch.Status(),
			Completed: ch.Completed(),
			Total:     ch.Total(),
			Err:       ch.lastErr,
		})
	}
	return outcome
}

type seriesState struct {
	job  *SeriesJob
	done map[string]bool

	mu        sync.Mutex
	persistMu sync.Mutex

	errMu      sync.Mutex
	persistErr error
}

func (st *seriesState) setPersistErr(err error) {
	if err == nil {
		return
	}
	st.errMu.Lock()
	st.persistErr = err
	st.errMu.Unlock()
}
