package data

import (
	"os"
	"path/filepath"
	"testing"
)

func setupTestDB(t *testing.T) (*Repository, func()) {
	t.Helper()

	// Create temp directory for test database
	tmpDir, err := os.MkdirTemp("", "webtoons-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	dbPath := filepath.Join(tmpDir, "test.db")
	db, err := InitDuckDB(dbPath)
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("Failed to init DB: %v", err)
	}

	repo := &Repository{db: db}

	cleanup := func() {
		db.Close()
		os.RemoveAll(tmpDir)
	}

	return repo, cleanup
}

func TestSaveAndGetSeries(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	series := &Series{
		TitleNo:     "95",
		Slug:        "tower-of-god",
		Title:       "Tower of God",
		Author:      "SIU",
		Genre:       "Fantasy",
		Grade:       9.86,
		Views:       "4.5B",
		Subscribers: "28.8M",
		DayInfo:     "EVERY SUNDAY",
		URL:         "https://www.webtoons.com/en/fantasy/tower-of-god/list?title_no=95",
		Status:      "new",
	}

	err := repo.SaveSeries(series)
	if err != nil {
		t.Fatalf("Failed to save series: %v", err)
	}

	retrieved, err := repo.GetSeries("95")
	if err != nil {
		t.Fatalf("Failed to get series: %v", err)
	}

	if retrieved == nil {
		t.Fatal("Expected series to be found")
	}

	if retrieved.TitleNo != series.TitleNo {
		t.Errorf("Expected TitleNo %s, got %s", series.TitleNo, retrieved.TitleNo)
	}

	if retrieved.Title != series.Title {
		t.Errorf("Expected Title %s, got %s", series.Title, retrieved.Title)
	}

	if retrieved.Grade != series.Grade {
		t.Errorf("Expected Grade %v, got %v", series.Grade, retrieved.Grade)
	}
}

func TestListSeries(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	// Initially empty
	all, err := repo.ListSeries()
	if err != nil {
		t.Fatalf("Failed to list series: %v", err)
	}

	if len(all) != 0 {
		t.Errorf("Expected 0 series, got %d", len(all))
	}

	for i := 1; i <= 3; i++ {
		series := &Series{
			TitleNo: string(rune('0' + i)),
			Title:   string(rune('A'+i-1)) + " Webtoon",
		}
		if err := repo.SaveSeries(series); err != nil {
			t.Fatalf("Failed to save series %d: %v", i, err)
		}
	}

	all, err = repo.ListSeries()
	if err != nil {
		t.Fatalf("Failed to list series: %v", err)
	}

	if len(all) != 3 {
		t.Errorf("Expected 3 series, got %d", len(all))
	}
}

func TestSaveAndGetChapters(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	repo.SaveSeries(&Series{TitleNo: "95", Title: "Tower of God"})

	chapters := []*Chapter{
		{SeriesID: "95", EpisodeNo: "2", Title: "Episode 2", URL: "https://example.com/2"},
		{SeriesID: "95", EpisodeNo: "10", Title: "Episode 10", URL: "https://example.com/10"},
		{SeriesID: "95", EpisodeNo: "1", Title: "Episode 1", URL: "https://example.com/1"},
	}

	if err := repo.SaveChapters(chapters); err != nil {
		t.Fatalf("Failed to save chapters: %v", err)
	}

	retrieved, err := repo.GetChapters("95")
	if err != nil {
		t.Fatalf("Failed to get chapters: %v", err)
	}

	if len(retrieved) != 3 {
		t.Fatalf("Expected 3 chapters, got %d", len(retrieved))
	}

	// Numeric ordering by episode, not lexicographic
	if retrieved[0].EpisodeNo != "1" || retrieved[1].EpisodeNo != "2" || retrieved[2].EpisodeNo != "10" {
		t.Errorf("Expected episodes ordered 1, 2, 10; got %s, %s, %s",
			retrieved[0].EpisodeNo, retrieved[1].EpisodeNo, retrieved[2].EpisodeNo)
	}
}

func TestMarkChapterDownloaded(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	repo.SaveSeries(&Series{TitleNo: "95", Title: "Test"})
	repo.SaveChapter(&Chapter{SeriesID: "95", EpisodeNo: "1", Title: "Episode 1"})

	err := repo.MarkChapterDownloaded("95", "1", 12, "/downloads/webtoon_95_test/Episode_1_Test")
	if err != nil {
		t.Fatalf("Failed to mark chapter downloaded: %v", err)
	}

	chapters, err := repo.GetChapters("95")
	if err != nil {
		t.Fatalf("Failed to get chapters: %v", err)
	}

	if len(chapters) == 0 {
		t.Fatal("No chapters found")
	}

	if !chapters[0].Downloaded {
		t.Error("Expected chapter to be marked as downloaded")
	}

	if chapters[0].ImageCount != 12 {
		t.Errorf("Expected ImageCount 12, got %d", chapters[0].ImageCount)
	}

	if chapters[0].FilePath != "/downloads/webtoon_95_test/Episode_1_Test" {
		t.Errorf("Unexpected FilePath %q", chapters[0].FilePath)
	}
}

func TestSetCommentCount(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	repo.SaveSeries(&Series{TitleNo: "95"})
	repo.SaveChapter(&Chapter{SeriesID: "95", EpisodeNo: "1"})

	if err := repo.SetCommentCount("95", "1", 42); err != nil {
		t.Fatalf("Failed to set comment count: %v", err)
	}

	chapters, _ := repo.GetChapters("95")
	if chapters[0].CommentCount != 42 {
		t.Errorf("Expected CommentCount 42, got %d", chapters[0].CommentCount)
	}
}

func TestDeleteSeries(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	repo.SaveSeries(&Series{TitleNo: "95", Title: "Test"})
	repo.SaveChapter(&Chapter{SeriesID: "95", EpisodeNo: "1"})

	err := repo.DeleteSeries("95")
	if err != nil {
		t.Fatalf("Failed to delete series: %v", err)
	}

	retrieved, _ := repo.GetSeries("95")
	if retrieved != nil {
		t.Error("Expected series to be deleted")
	}

	chapters, _ := repo.GetChapters("95")
	if len(chapters) != 0 {
		t.Errorf("Expected 0 chapters, got %d", len(chapters))
	}
}

func TestGetSeriesWithChapterCount(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	repo.SaveSeries(&Series{TitleNo: "95", Title: "Test"})

	chapters := []*Chapter{
		{SeriesID: "95", EpisodeNo: "1", Downloaded: true},
		{SeriesID: "95", EpisodeNo: "2", Downloaded: true},
		{SeriesID: "95", EpisodeNo: "3", Downloaded: false},
	}
	for _, c := range chapters {
		repo.SaveChapter(c)
	}

	series, total, downloaded, err := repo.GetSeriesWithChapterCount("95")
	if err != nil {
		t.Fatalf("Failed to get series with chapter count: %v", err)
	}

	if series == nil {
		t.Fatal("Expected series to be found")
	}

	if total != 3 {
		t.Errorf("Expected 3 total chapters, got %d", total)
	}

	if downloaded != 2 {
		t.Errorf("Expected 2 downloaded chapters, got %d", downloaded)
	}
}

func TestGetNonExistentSeries(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	series, err := repo.GetSeries("non-existent")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if series != nil {
		t.Error("Expected series to be nil for non-existent title_no")
	}
}

func TestSaveSeriesUpsert(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	series := &Series{
		TitleNo: "95",
		Title:   "Original Title",
		Status:  "downloading",
	}
	repo.SaveSeries(series)

	series.Title = "Updated Title"
	series.Status = "completed"
	err := repo.SaveSeries(series)
	if err != nil {
		t.Fatalf("Failed to update series: %v", err)
	}

	retrieved, _ := repo.GetSeries("95")
	if retrieved.Title != "Updated Title" {
		t.Errorf("Expected Title 'Updated Title', got '%s'", retrieved.Title)
	}

	if retrieved.Status != "completed" {
		t.Errorf("Expected Status 'completed', got '%s'", retrieved.Status)
	}
}

func TestSearchSeries(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	seed := []*Series{
		{TitleNo: "95", Title: "Tower of God", Author: "SIU", Genre: "Fantasy", NumChapters: 550},
		{TitleNo: "1218", Title: "Lore Olympus", Author: "Rachel Smythe", Genre: "Romance", NumChapters: 280},
		{TitleNo: "702", Title: "The God of High School", Author: "Yongje Park", Genre: "Action", NumChapters: 120},
	}
	for _, s := range seed {
		repo.SaveSeries(s)
	}

	t.Run("by title substring", func(t *testing.T) {
		results, err := repo.SearchSeries(SearchFilter{Title: "god"})
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if len(results) != 2 {
			t.Errorf("Expected 2 results, got %d", len(results))
		}
	})

	t.Run("by author", func(t *testing.T) {
		results, err := repo.SearchSeries(SearchFilter{Author: "siu"})
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if len(results) != 1 || results[0].TitleNo != "95" {
			t.Errorf("Expected Tower of God, got %v", results)
		}
	})

	t.Run("by genre", func(t *testing.T) {
		results, err := repo.SearchSeries(SearchFilter{Genre: "Romance"})
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if len(results) != 1 || results[0].TitleNo != "1218" {
			t.Errorf("Expected Lore Olympus, got %v", results)
		}
	})

	t.Run("by min chapters", func(t *testing.T) {
		results, err := repo.SearchSeries(SearchFilter{MinChapters: 200})
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if len(results) != 2 {
			t.Errorf("Expected 2 results, got %d", len(results))
		}
	})

	t.Run("combined filters", func(t *testing.T) {
		results, err := repo.SearchSeries(SearchFilter{Title: "god", MinChapters: 500})
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if len(results) != 1 || results[0].TitleNo != "95" {
			t.Errorf("Expected only Tower of God, got %d results", len(results))
		}
	})

	t.Run("empty filter lists everything", func(t *testing.T) {
		results, err := repo.SearchSeries(SearchFilter{})
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if len(results) != 3 {
			t.Errorf("Expected 3 results, got %d", len(results))
		}
	})
}

func TestCollectionStats(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	repo.SaveSeries(&Series{TitleNo: "95", Genre: "Fantasy", Grade: 9.8})
	repo.SaveSeries(&Series{TitleNo: "1218", Genre: "Romance", Grade: 9.6})
	repo.SaveChapter(&Chapter{SeriesID: "95", EpisodeNo: "1", Downloaded: true})
	repo.SaveChapter(&Chapter{SeriesID: "95", EpisodeNo: "2", Downloaded: false})

	stats, err := repo.CollectionStats()
	if err != nil {
		t.Fatalf("Failed to get stats: %v", err)
	}

	if stats.SeriesCount != 2 {
		t.Errorf("Expected 2 series, got %d", stats.SeriesCount)
	}
	if stats.ChapterCount != 2 {
		t.Errorf("Expected 2 chapters, got %d", stats.ChapterCount)
	}
	if stats.DownloadedCount != 1 {
		t.Errorf("Expected 1 downloaded chapter, got %d", stats.DownloadedCount)
	}
	if stats.DistinctGenres != 2 {
		t.Errorf("Expected 2 genres, got %d", stats.DistinctGenres)
	}
	if stats.AverageGrade < 9.6 || stats.AverageGrade > 9.8 {
		t.Errorf("Unexpected average grade %v", stats.AverageGrade)
	}
}
