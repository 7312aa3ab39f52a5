package data

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/marcboeker/go-duckdb/v2"
)

const schema = `
CREATE TABLE IF NOT EXISTS series (
	title_no     VARCHAR PRIMARY KEY,
	slug         VARCHAR,
	title        VARCHAR,
	author       VARCHAR,
	genre        VARCHAR,
	grade        DOUBLE,
	views        VARCHAR,
	subscribers  VARCHAR,
	day_info     VARCHAR,
	url          VARCHAR,
	num_chapters INTEGER,
	status       VARCHAR
);
CREATE TABLE IF NOT EXISTS chapters (
	series_id     VARCHAR,
	episode_no    VARCHAR,
	title         VARCHAR,
	url           VARCHAR,
	image_count   INTEGER,
	comment_count INTEGER,
	downloaded    BOOLEAN,
	file_path     VARCHAR,
	PRIMARY KEY (series_id, episode_no)
);
`

func InitDuckDB(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return db, nil
}

type Repository struct {
	db *sql.DB
}

var duckDB *sql.DB

func NewDuckDBRepository() *Repository {
	if duckDB == nil {
		db, err := InitDuckDB("webtoons.db")
		if err != nil {
			log.Fatal(err)
		}
		duckDB = db
	}

	return &Repository{db: duckDB}
}

// OpenRepository opens a repository at an explicit path, for callers
// that carry their own configuration.
func OpenRepository(path string) (*Repository, error) {
	db, err := InitDuckDB(path)
	if err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) SaveSeries(s *Series) error {
	_, err := r.db.Exec(`
		INSERT OR REPLACE INTO series
		(title_no, slug, title, author, genre, grade, views, subscribers, day_info, url, num_chapters, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.TitleNo, s.Slug, s.Title, s.Author, s.Genre, s.Grade,
		s.Views, s.Subscribers, s.DayInfo, s.URL, s.NumChapters, s.Status)
	return err
}

func (r *Repository) GetSeries(titleNo string) (*Series, error) {
	row := r.db.QueryRow(`
		SELECT title_no, slug, title, author, genre, grade, views, subscribers, day_info, url, num_chapters, status
		FROM series WHERE title_no = ?`, titleNo)

	s := &Series{}
	err := row.Scan(&s.TitleNo, &s.Slug, &s.Title, &s.Author, &s.Genre, &s.Grade,
		&s.Views, &s.Subscribers, &s.DayInfo, &s.URL, &s.NumChapters, &s.Status)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *Repository) ListSeries() ([]*Series, error) {
	rows, err := r.db.Query(`
		SELECT title_no, slug, title, author, genre, grade, views, subscribers, day_info, url, num_chapters, status
		FROM series ORDER BY title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSeries(rows)
}

// SearchSeries filters the collection. Title and Author match as
// case-insensitive substrings, Genre matches exactly.
func (r *Repository) SearchSeries(f SearchFilter) ([]*Series, error) {
	query := `
		SELECT title_no, slug, title, author, genre, grade, views, subscribers, day_info, url, num_chapters, status
		FROM series WHERE 1=1`
	var args []interface{}

	if f.Title != "" {
		query += ` AND lower(title) LIKE ?`
		args = append(args, "%"+strings.ToLower(f.Title)+"%")
	}
	if f.Author != "" {
		query += ` AND lower(author) LIKE ?`
		args = append(args, "%"+strings.ToLower(f.Author)+"%")
	}
	if f.Genre != "" {
		query += ` AND lower(genre) = ?`
		args = append(args, strings.ToLower(f.Genre))
	}
	if f.MinChapters > 0 {
		query += ` AND num_chapters >= ?`
		args = append(args, f.MinChapters)
	}
	query += ` ORDER BY title`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSeries(rows)
}

func (r *Repository) DeleteSeries(titleNo string) error {
	if _, err := r.db.Exec(`DELETE FROM chapters WHERE series_id = ?`, titleNo); err != nil {
		return err
	}
	_, err := r.db.Exec(`DELETE FROM series WHERE title_no = ?`, titleNo)
	return err
}

func (r *Repository) SaveChapter(c *Chapter) error {
	_, err := r.db.Exec(`
		INSERT OR REPLACE INTO chapters
		(series_id, episode_no, title, url, image_count, comment_count, downloaded, file_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.SeriesID, c.EpisodeNo, c.Title, c.URL, c.ImageCount, c.CommentCount, c.Downloaded, c.FilePath)
	return err
}

func (r *Repository) SaveChapters(chapters []*Chapter) error {
	for _, c := range chapters {
		if err := r.SaveChapter(c); err != nil {
			return fmt.Errorf("save chapter %s: %w", c.EpisodeNo, err)
		}
	}
	return nil
}

func (r *Repository) GetChapters(seriesID string) ([]*Chapter, error) {
	rows, err := r.db.Query(`
		SELECT series_id, episode_no, title, url, image_count, comment_count, downloaded, file_path
		FROM chapters WHERE series_id = ?
		ORDER BY TRY_CAST(episode_no AS INTEGER), episode_no`, seriesID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chapters []*Chapter
	for rows.Next() {
		c := &Chapter{}
		if err := rows.Scan(&c.SeriesID, &c.EpisodeNo, &c.Title, &c.URL,
			&c.ImageCount, &c.CommentCount, &c.Downloaded, &c.FilePath); err != nil {
			return nil, err
		}
		chapters = append(chapters, c)
	}
	return chapters, rows.Err()
}

func (r *Repository) MarkChapterDownloaded(seriesID, episodeNo string, imageCount int, path string) error {
	_, err := r.db.Exec(`
		UPDATE chapters SET downloaded = true, image_count = ?, file_path = ?
		WHERE series_id = ? AND episode_no = ?`,
		imageCount, path, seriesID, episodeNo)
	return err
}

func (r *Repository) SetCommentCount(seriesID, episodeNo string, count int) error {
	_, err := r.db.Exec(`
		UPDATE chapters SET comment_count = ?
		WHERE series_id = ? AND episode_no = ?`,
		count, seriesID, episodeNo)
	return err
}

// GetSeriesWithChapterCount returns a series along with its total and
// downloaded chapter counts.
func (r *Repository) GetSeriesWithChapterCount(titleNo string) (*Series, int, int, error) {
	s, err := r.GetSeries(titleNo)
	if err != nil || s == nil {
		return s, 0, 0, err
	}

	var total, downloaded int
	err = r.db.QueryRow(`
		SELECT COUNT(*), COUNT(*) FILTER (WHERE downloaded)
		FROM chapters WHERE series_id = ?`, titleNo).Scan(&total, &downloaded)
	if err != nil {
		return nil, 0, 0, err
	}
	return s, total, downloaded, nil
}

func (r *Repository) CollectionStats() (*Stats, error) {
	st := &Stats{}
	err := r.db.QueryRow(`
		SELECT COUNT(*), COUNT(DISTINCT genre) FILTER (WHERE genre != ''), COALESCE(AVG(grade), 0)
		FROM series`).Scan(&st.SeriesCount, &st.DistinctGenres, &st.AverageGrade)
	if err != nil {
		return nil, err
	}

	err = r.db.QueryRow(`
		SELECT COUNT(*), COUNT(*) FILTER (WHERE downloaded)
		FROM chapters`).Scan(&st.ChapterCount, &st.DownloadedCount)
	if err != nil {
		return nil, err
	}
	return st, nil
}

func scanSeries(rows *sql.Rows) ([]*Series, error) {
	var all []*Series
	for rows.Next() {
		s := &Series{}
		if err := rows.Scan(&s.TitleNo, &s.Slug, &s.Title, &s.Author, &s.Genre, &s.Grade,
			&s.Views, &s.Subscribers, &s.DayInfo, &s.URL, &s.NumChapters, &s.Status); err != nil {
			return nil, err
		}
		all = append(all, s)
	}
	return all, rows.Err()
}
