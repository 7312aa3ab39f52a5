package integrations

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/go-shiori/go-epub"
	"github.com/kerbaras/webtoons/pkg/data"
)

// EPubBuilder compiles downloaded chapter folders into a single EPUB.
// When a processor is set, every page is re-encoded through it before
// being embedded.
type EPubBuilder struct {
	outputDir string
	processor *ImageProcessor
}

func NewEPubBuilder(outputDir string, processor *ImageProcessor) *EPubBuilder {
	return &EPubBuilder{outputDir: outputDir, processor: processor}
}

// CreateEPub compiles the downloaded chapters of a series into one EPUB
// file and returns its path. Chapters that were never downloaded are
// skipped.
func (b *EPubBuilder) CreateEPub(series *data.Series, chapters []*data.Chapter) (string, error) {
	if series == nil {
		return "", fmt.Errorf("series cannot be nil")
	}

	downloaded := make([]*data.Chapter, 0, len(chapters))
	for _, ch := range chapters {
		if ch.Downloaded && ch.FilePath != "" {
			downloaded = append(downloaded, ch)
		}
	}
	if len(downloaded) == 0 {
		return "", fmt.Errorf("no downloaded chapters to compile")
	}

	// Episodes sort numerically, not lexically: 2 before 10.
	sort.Slice(downloaded, func(i, j int) bool {
		ni, _ := strconv.ParseFloat(downloaded[i].EpisodeNo, 64)
		nj, _ := strconv.ParseFloat(downloaded[j].EpisodeNo, 64)
		return ni < nj
	})

	if err := os.MkdirAll(b.outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	e, err := epub.NewEpub(series.Title)
	if err != nil {
		return "", fmt.Errorf("failed to create EPub: %w", err)
	}
	if series.Author != "" {
		e.SetAuthor(series.Author)
	}
	if series.Genre != "" {
		e.SetDescription(fmt.Sprintf("%s webtoon, %d chapters", series.Genre, series.NumChapters))
	}
	e.SetLang("en")

	for _, chapter := range downloaded {
		if err := b.addChapter(e, chapter); err != nil {
			return "", fmt.Errorf("failed to add episode %s: %w", chapter.EpisodeNo, err)
		}
	}

	outputPath := filepath.Join(b.outputDir, sanitizeFilename(series.Title)+".epub")
	if err := e.Write(outputPath); err != nil {
		return "", fmt.Errorf("failed to write EPub: %w", err)
	}
	return outputPath, nil
}

func (b *EPubBuilder) addChapter(e *epub.Epub, chapter *data.Chapter) error {
	files, err := os.ReadDir(chapter.FilePath)
	if err != nil {
		return fmt.Errorf("failed to read chapter directory: %w", err)
	}

	var imageFiles []string
	for _, file := range files {
		if !file.IsDir() && isImageFile(file.Name()) {
			imageFiles = append(imageFiles, file.Name())
		}
	}
	if len(imageFiles) == 0 {
		return fmt.Errorf("no images found in chapter directory")
	}
	sort.Strings(imageFiles)

	chapterTitle := fmt.Sprintf("Episode %s", chapter.EpisodeNo)
	if chapter.Title != "" {
		chapterTitle = fmt.Sprintf("%s: %s", chapterTitle, chapter.Title)
	}

	var htmlContent strings.Builder
	htmlContent.WriteString(fmt.Sprintf("<h1>%s</h1>\n", chapterTitle))

	for i, name := range imageFiles {
		imgPath := filepath.Join(chapter.FilePath, name)

		if b.processor != nil {
			imgPath, err = b.processPage(chapter, imgPath)
			if err != nil {
				return fmt.Errorf("failed to process image %s: %w", name, err)
			}
		}

		internalPath, err := e.AddImage(imgPath, "")
		if err != nil {
			return fmt.Errorf("failed to add image %s: %w", name, err)
		}

		htmlContent.WriteString(fmt.Sprintf(
			`<div class="page"><img src="%s" alt="Page %d" style="width:100%%;height:auto;"/></div>%s`,
			internalPath, i+1, "\n",
		))
	}

	_, err = e.AddSection(htmlContent.String(), chapterTitle, "", "")
	if err != nil {
		return fmt.Errorf("failed to add section: %w", err)
	}
	return nil
}

// processPage runs one page through the image processor and writes the
// result next to the original as a .epub.jpg, which AddImage then picks
// up by path.
func (b *EPubBuilder) processPage(chapter *data.Chapter, imgPath string) (string, error) {
	src, err := os.Open(imgPath)
	if err != nil {
		return "", err
	}
	defer src.Close()

	processed, err := b.processor.Process(src)
	if err != nil {
		return "", err
	}

	out := filepath.Join(os.TempDir(), fmt.Sprintf("webtoons-epub-%s-%s.jpg",
		chapter.EpisodeNo, strings.TrimSuffix(filepath.Base(imgPath), filepath.Ext(imgPath))))
	if err := os.WriteFile(out, processed, 0644); err != nil {
		return "", err
	}
	return out, nil
}

// isImageFile checks if a file has an image extension
func isImageFile(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return ext == ".jpg" || ext == ".jpeg" || ext == ".png" || ext == ".gif" || ext == ".webp"
}

// sanitizeFilename removes characters that are invalid in filenames
func sanitizeFilename(name string) string {
	invalid := []string{"/", "\\", ":", "*", "?", "\"", "<", ">", "|"}
	result := name
	for _, char := range invalid {
		result = strings.ReplaceAll(result, char, "_")
	}
	result = strings.TrimSpace(result)
	result = strings.Trim(result, ".")
	return result
}
