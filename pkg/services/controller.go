package services

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/kerbaras/webtoons/pkg/config"
	"github.com/kerbaras/webtoons/pkg/data"
	"github.com/kerbaras/webtoons/pkg/download"
	"github.com/kerbaras/webtoons/pkg/scraper"
)

// Site is the scraping surface the controller needs: session warm-up,
// parsed pages, and raw image bodies.
type Site interface {
	WarmUp(ctx context.Context)
	GetDocument(ctx context.Context, pageURL string) (*goquery.Document, error)
	Get(ctx context.Context, resourceURL string) (io.ReadCloser, error)
}

// Repository interface needed by the controller
type Repository interface {
	SaveSeries(series *data.Series) error
	GetSeries(titleNo string) (*data.Series, error)
	ListSeries() ([]*data.Series, error)
	SearchSeries(filter data.SearchFilter) ([]*data.Series, error)
	DeleteSeries(titleNo string) error
	SaveChapters(chapters []*data.Chapter) error
	GetChapters(seriesID string) ([]*data.Chapter, error)
	MarkChapterDownloaded(seriesID, episodeNo string, imageCount int, path string) error
	SetCommentCount(seriesID, episodeNo string, count int) error
	GetSeriesWithChapterCount(titleNo string) (*data.Series, int, int, error)
	CollectionStats() (*data.Stats, error)
}

// Controller orchestrates the scraper, the download manager, and the
// collection database.
type Controller struct {
	site     Site
	repo     Repository
	queue    *download.Queue
	manager  *download.Manager
	settings *config.Settings
}

func NewController(site Site, repo Repository, settings *config.Settings) *Controller {
	queue := download.NewQueue(settings.StateDir)
	fetcher := download.NewFetcher(site, settings.MaxRetries, settings.RetryBackoff(), int64(settings.MinImageBytes))
	manager := download.NewManager(fetcher, queue, download.NewTracker(), settings.ImageWorkers)

	return &Controller{
		site:     site,
		repo:     repo,
		queue:    queue,
		manager:  manager,
		settings: settings,
	}
}

// NewDefaultController wires the controller from the settings file and
// the default site client. Options adjust the loaded settings before
// anything is constructed from them.
func NewDefaultController(opts ...func(*config.Settings)) (*Controller, error) {
	settings, err := config.Load(config.DefaultPath())
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	for _, opt := range opts {
		opt(settings)
	}

	repo, err := data.OpenRepository(settings.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	site := scraper.NewClient("https://www.webtoons.com", settings.Timeout())
	return NewController(site, repo, settings), nil
}

// Progress exposes the download tracker for UI observers.
func (c *Controller) Progress() *download.Tracker {
	return c.manager.Tracker()
}

// FetchSeries scrapes a series list page and stores the series together
// with its chapter index.
func (c *Controller) FetchSeries(ctx context.Context, seriesURL string) (*data.Series, []*data.Chapter, error) {
	info, err := scraper.SeriesInfoFromURL(seriesURL)
	if err != nil {
		return nil, nil, err
	}

	c.site.WarmUp(ctx)
	doc, err := c.site.GetDocument(ctx, seriesURL)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch series page: %w", err)
	}

	meta := scraper.ParseSeriesMeta(doc)
	links := scraper.ParseChapterLinks(doc)
	if len(links) == 0 {
		return nil, nil, fmt.Errorf("no chapters found at %s", seriesURL)
	}

	series := &data.Series{
		TitleNo:     info.TitleNo,
		Slug:        info.Slug,
		Title:       meta.Title,
		Author:      meta.Author,
		Genre:       meta.Genre,
		Grade:       meta.Grade,
		Views:       meta.Views,
		Subscribers: meta.Subscribers,
		DayInfo:     meta.DayInfo,
		URL:         seriesURL,
		NumChapters: len(links),
		Status:      "new",
	}

	chapters := make([]*data.Chapter, 0, len(links))
	for _, link := range links {
		chInfo := scraper.ChapterInfoFromURL(link)
		chapters = append(chapters, &data.Chapter{
			SeriesID:  info.TitleNo,
			EpisodeNo: chInfo.EpisodeNo,
			Title:     chInfo.Title,
			URL:       link,
		})
	}

	if err := c.repo.SaveSeries(series); err != nil {
		return nil, nil, fmt.Errorf("save series: %w", err)
	}
	if err := c.repo.SaveChapters(chapters); err != nil {
		return nil, nil, fmt.Errorf("save chapters: %w", err)
	}
	return series, chapters, nil
}

// Download resolves image URLs for the given chapters and drains the
// work through the download manager. Chapters that cannot be planned
// are skipped; a failed chapter leaves the series resumable.
func (c *Controller) Download(ctx context.Context, series *data.Series, chapters []*data.Chapter) (*download.SeriesOutcome, error) {
	if series == nil {
		return nil, fmt.Errorf("series cannot be nil")
	}

	if len(chapters) == 0 {
		var err error
		chapters, err = c.repo.GetChapters(series.TitleNo)
		if err != nil {
			return nil, fmt.Errorf("load chapters: %w", err)
		}
	}

	series.Status = "downloading"
	if err := c.repo.SaveSeries(series); err != nil {
		return nil, fmt.Errorf("save series: %w", err)
	}

	job := &download.SeriesJob{SeriesID: series.TitleNo, Title: series.Title}
	job.Chapters = c.planChapters(ctx, series, chapters)
	if len(job.Chapters) == 0 {
		return nil, fmt.Errorf("nothing to download for %s", series.Title)
	}

	outcome, err := c.manager.DownloadSeries(ctx, job)
	if outcome != nil {
		c.recordOutcome(series, outcome)
	}
	return outcome, err
}

// Resume continues an interrupted download from its persisted queue
// record.
func (c *Controller) Resume(ctx context.Context, titleNo string) (*download.SeriesOutcome, error) {
	outcome, err := c.manager.Resume(ctx, titleNo)
	if outcome != nil {
		if series, repoErr := c.repo.GetSeries(titleNo); repoErr == nil && series != nil {
			c.recordOutcome(series, outcome)
		}
	}
	return outcome, err
}

// SeriesStatus summarizes one series for status reporting.
type SeriesStatus struct {
	Series     *data.Series
	Chapters   int
	Downloaded int
	Resumable  bool
}

func (c *Controller) Status(titleNo string) (*SeriesStatus, error) {
	series, total, downloaded, err := c.repo.GetSeriesWithChapterCount(titleNo)
	if err != nil {
		return nil, err
	}
	if series == nil {
		return nil, fmt.Errorf("series %s is not in the collection", titleNo)
	}
	return &SeriesStatus{
		Series:     series,
		Chapters:   total,
		Downloaded: downloaded,
		Resumable:  c.queue.Has(titleNo),
	}, nil
}

func (c *Controller) List() ([]*data.Series, error) {
	return c.repo.ListSeries()
}

func (c *Controller) Chapters(titleNo string) ([]*data.Chapter, error) {
	return c.repo.GetChapters(titleNo)
}

func (c *Controller) Search(filter data.SearchFilter) ([]*data.Series, error) {
	return c.repo.SearchSeries(filter)
}

func (c *Controller) Stats() (*data.Stats, error) {
	return c.repo.CollectionStats()
}

// Delete removes a series from the collection and drops any pending
// queue record. Downloaded files stay on disk.
func (c *Controller) Delete(titleNo string) error {
	if err := c.queue.Clear(titleNo); err != nil {
		return fmt.Errorf("clear queue record: %w", err)
	}
	return c.repo.DeleteSeries(titleNo)
}

// planChapters resolves chapter pages into work items, a few pages in
// flight at a time. Order of the input chapters is preserved.
func (c *Controller) planChapters(ctx context.Context, series *data.Series, chapters []*data.Chapter) []*download.ChapterJob {
	planned := make([]*download.ChapterJob, len(chapters))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.settings.ChapterWorkers)

	for i, ch := range chapters {
		if ch.Downloaded {
			continue
		}
		i, ch := i, ch
		g.Go(func() error {
			chJob, err := c.planChapter(gctx, series, ch)
			if err != nil {
				log.Printf("Skipping episode %s: %v", ch.EpisodeNo, err)
				return nil
			}
			mu.Lock()
			planned[i] = chJob
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	var jobs []*download.ChapterJob
	for _, chJob := range planned {
		if chJob != nil {
			jobs = append(jobs, chJob)
		}
	}
	return jobs
}

func (c *Controller) planChapter(ctx context.Context, series *data.Series, ch *data.Chapter) (*download.ChapterJob, error) {
	doc, err := c.site.GetDocument(ctx, ch.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch chapter page: %w", err)
	}

	images := scraper.ParseChapterImages(doc, ch.URL)
	if len(images) == 0 {
		return nil, fmt.Errorf("no images found")
	}

	folder := c.chapterFolder(series, ch)
	items := make([]download.WorkItem, 0, len(images))
	for i, img := range images {
		items = append(items, download.WorkItem{
			SeriesID:  series.TitleNo,
			ChapterID: ch.EpisodeNo,
			Index:     i,
			URL:       img,
			Dest:      filepath.Join(folder, fmt.Sprintf("%03d%s", i+1, scraper.ImageExtension(img))),
		})
	}

	if c.settings.ExtractComments {
		c.saveChapterComments(doc, folder, series.TitleNo, ch.EpisodeNo)
	}

	return download.NewChapterJob(ch.EpisodeNo, ch.Title, items), nil
}

// saveChapterComments extracts and archives reader comments alongside
// the chapter images. Comment problems never fail a download.
func (c *Controller) saveChapterComments(doc *goquery.Document, folder, titleNo, episodeNo string) {
	comments := scraper.ExtractComments(doc)
	if len(comments) > c.settings.MaxComments {
		comments = comments[:c.settings.MaxComments]
	}
	if len(comments) == 0 {
		return
	}

	if _, err := scraper.SaveComments(comments, folder, episodeNo); err != nil {
		log.Printf("Saving comments for episode %s: %v", episodeNo, err)
		return
	}
	if err := c.repo.SetCommentCount(titleNo, episodeNo, len(comments)); err != nil {
		log.Printf("Recording comment count for episode %s: %v", episodeNo, err)
	}
}

// recordOutcome marks completed chapters in the database and settles
// the series status.
func (c *Controller) recordOutcome(series *data.Series, outcome *download.SeriesOutcome) {
	for _, ch := range outcome.Chapters {
		if ch.Status != download.StatusCompleted {
			continue
		}
		folder := filepath.Join(c.seriesFolder(series), chapterDirName(ch.ChapterID, ch.Title))
		if err := c.repo.MarkChapterDownloaded(series.TitleNo, ch.ChapterID, countImages(folder), folder); err != nil {
			log.Printf("Recording episode %s: %v", ch.ChapterID, err)
		}
	}

	if outcome.AllSucceeded {
		series.Status = "completed"
	} else {
		series.Status = "partial"
	}
	if err := c.repo.SaveSeries(series); err != nil {
		log.Printf("Saving series status: %v", err)
	}
}

func (c *Controller) seriesFolder(series *data.Series) string {
	return filepath.Join(c.settings.DownloadDir, fmt.Sprintf("webtoon_%s_%s", series.TitleNo, sanitizeName(series.Slug)))
}

func (c *Controller) chapterFolder(series *data.Series, ch *data.Chapter) string {
	return filepath.Join(c.seriesFolder(series), chapterDirName(ch.EpisodeNo, ch.Title))
}

func chapterDirName(episodeNo, title string) string {
	return fmt.Sprintf("Episode_%s_%s", episodeNo, sanitizeName(title))
}

// sanitizeName keeps folder names filesystem-safe.
func sanitizeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}

func countImages(folder string) int {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return 0
	}
	n := 0
	for _, entry := range entries {
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".jpg", ".jpeg", ".png", ".webp", ".gif":
			n++
		}
	}
	return n
}
