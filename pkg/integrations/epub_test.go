package integrations

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kerbaras/webtoons/pkg/data"
)

func writePNG(t *testing.T, path string, width, height int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{uint8(x % 256), uint8(y % 256), 128, 255})
		}
	}

	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create image: %v", err)
	}
	defer file.Close()
	if err := png.Encode(file, img); err != nil {
		t.Fatalf("Failed to encode image: %v", err)
	}
}

func chapterFolder(t *testing.T, root, name string, pages int) string {
	t.Helper()
	folder := filepath.Join(root, name)
	if err := os.MkdirAll(folder, 0755); err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= pages; i++ {
		writePNG(t, filepath.Join(folder, pageName(i)), 80, 120)
	}
	return folder
}

func pageName(i int) string {
	return "00" + string(rune('0'+i)) + ".png"
}

func TestCreateEPub(t *testing.T) {
	root := t.TempDir()
	ep1 := chapterFolder(t, root, "Episode_1_First", 2)
	ep2 := chapterFolder(t, root, "Episode_2_Second", 2)

	series := &data.Series{TitleNo: "95", Title: "Tower of God", Author: "SIU", Genre: "Fantasy"}
	chapters := []*data.Chapter{
		{SeriesID: "95", EpisodeNo: "2", Title: "Second", Downloaded: true, FilePath: ep2},
		{SeriesID: "95", EpisodeNo: "1", Title: "First", Downloaded: true, FilePath: ep1},
		{SeriesID: "95", EpisodeNo: "3", Title: "Pending", Downloaded: false},
	}

	builder := NewEPubBuilder(filepath.Join(root, "out"), nil)
	path, err := builder.CreateEPub(series, chapters)
	if err != nil {
		t.Fatalf("CreateEPub() error = %v", err)
	}

	if !strings.HasSuffix(path, "Tower of God.epub") {
		t.Errorf("Unexpected output path %q", path)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("EPUB file missing: %v", err)
	}
	if info.Size() == 0 {
		t.Error("EPUB file is empty")
	}
}

func TestCreateEPubWithProcessor(t *testing.T) {
	root := t.TempDir()
	folder := chapterFolder(t, root, "Episode_1_First", 1)

	series := &data.Series{TitleNo: "95", Title: "Test"}
	chapters := []*data.Chapter{
		{SeriesID: "95", EpisodeNo: "1", Title: "First", Downloaded: true, FilePath: folder},
	}

	builder := NewEPubBuilder(filepath.Join(root, "out"), NewImageProcessor(EReaderSettings()))
	path, err := builder.CreateEPub(series, chapters)
	if err != nil {
		t.Fatalf("CreateEPub() error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("EPUB file missing: %v", err)
	}
}

func TestCreateEPubNoDownloadedChapters(t *testing.T) {
	builder := NewEPubBuilder(t.TempDir(), nil)
	series := &data.Series{TitleNo: "95", Title: "Test"}
	chapters := []*data.Chapter{
		{SeriesID: "95", EpisodeNo: "1", Downloaded: false},
	}

	if _, err := builder.CreateEPub(series, chapters); err == nil {
		t.Fatal("CreateEPub() should fail with nothing downloaded")
	}
}

func TestCreateEPubEmptyChapterFolder(t *testing.T) {
	root := t.TempDir()
	folder := filepath.Join(root, "Episode_1_Empty")
	os.MkdirAll(folder, 0755)

	builder := NewEPubBuilder(filepath.Join(root, "out"), nil)
	series := &data.Series{TitleNo: "95", Title: "Test"}
	chapters := []*data.Chapter{
		{SeriesID: "95", EpisodeNo: "1", Downloaded: true, FilePath: folder},
	}

	if _, err := builder.CreateEPub(series, chapters); err == nil {
		t.Fatal("CreateEPub() should fail when a chapter folder has no images")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Tower of God", "Tower of God"},
		{"What/If: Chapter?", "What_If_ Chapter_"},
		{"  trimmed.  ", "trimmed"},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
