package data

// Series is a webtoon series tracked in the collection. TitleNo is the
// site's stable identifier and our primary key.
type Series struct {
	TitleNo     string
	Slug        string
	Title       string
	Author      string
	Genre       string
	Grade       float64
	Views       string
	Subscribers string
	DayInfo     string
	URL         string
	NumChapters int
	Status      string // "new", "downloading", "partial", "completed"
}

// Chapter is one episode of a series.
type Chapter struct {
	SeriesID     string // Series.TitleNo
	EpisodeNo    string
	Title        string
	URL          string
	ImageCount   int
	CommentCount int
	Downloaded   bool
	FilePath     string // chapter folder once downloaded
}

// SearchFilter narrows ListSeries results. Zero values match anything.
type SearchFilter struct {
	Title       string
	Author      string
	Genre       string
	MinChapters int
}

// Stats summarizes the collection.
type Stats struct {
	SeriesCount     int
	ChapterCount    int
	DownloadedCount int
	DistinctGenres  int
	AverageGrade    float64
}
