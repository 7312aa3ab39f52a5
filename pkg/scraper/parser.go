package scraper

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// SeriesInfo is what a series URL alone tells us.
type SeriesInfo struct {
	TitleNo string
	Slug    string
}

// ChapterInfo is what a chapter viewer URL alone tells us.
type ChapterInfo struct {
	EpisodeNo string
	Title     string
}

// SeriesMeta is the metadata scraped from a series list page.
type SeriesMeta struct {
	Title       string
	Author      string
	Genre       string
	Grade       float64
	Views       string
	Subscribers string
	DayInfo     string
}

var whitespaceRe = regexp.MustCompile(`\s+`)

func cleanText(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// SeriesInfoFromURL pulls the title number and series slug out of a
// series URL like /en/genre/series-name/list?title_no=1234.
func SeriesInfoFromURL(rawURL string) (SeriesInfo, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return SeriesInfo{}, fmt.Errorf("parse series url: %w", err)
	}

	titleNo := u.Query().Get("title_no")
	if titleNo == "" {
		return SeriesInfo{}, fmt.Errorf("series url %q has no title_no", rawURL)
	}

	slug := "unknown"
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) >= 3 {
		slug = segments[2]
	}
	return SeriesInfo{TitleNo: titleNo, Slug: slug}, nil
}

// ChapterInfoFromURL pulls the episode number and a display title out
// of a viewer URL. The title comes from the second-to-last path
// segment, de-slugged.
func ChapterInfoFromURL(rawURL string) ChapterInfo {
	info := ChapterInfo{EpisodeNo: "0", Title: "Unknown"}

	u, err := url.Parse(rawURL)
	if err != nil {
		return info
	}
	if ep := u.Query().Get("episode_no"); ep != "" {
		info.EpisodeNo = ep
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) >= 4 {
		slug := segments[len(segments)-2]
		slug = strings.ReplaceAll(slug, "-", " ")
		slug = strings.ReplaceAll(slug, "_", " ")
		info.Title = strings.Title(slug)
	}
	return info
}

// ParseChapterLinks extracts episode viewer URLs from a series list
// page, newest first as the site orders them. Selector fallbacks cover
// the site's older and newer markup.
func ParseChapterLinks(doc *goquery.Document) []string {
	var links []string
	seen := map[string]bool{}

	add := func(href string) {
		href = strings.ReplaceAll(href, "&amp;", "&")
		if strings.HasPrefix(href, "/") {
			href = "https://www.webtoons.com" + href
		}
		if !seen[href] {
			seen[href] = true
			links = append(links, href)
		}
	}

	doc.Find("a").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		if strings.Contains(href, "episode") && strings.Contains(href, "viewer") && strings.Contains(href, "title_no") {
			add(href)
		}
	})

	if len(links) == 0 {
		doc.Find("li._episodeItem a, ul#_listUl li a").Each(func(_ int, sel *goquery.Selection) {
			if href, ok := sel.Attr("href"); ok && (strings.Contains(href, "episode") || strings.Contains(href, "viewer")) {
				add(href)
			}
		})
	}
	return links
}

// ParseChapterImages extracts the content image URLs from a chapter
// viewer page. Lazy-loaded images keep the real URL in data-url.
func ParseChapterImages(doc *goquery.Document, chapterURL string) []string {
	base, _ := url.Parse(chapterURL)

	container := doc.Find("#_imageList")
	if container.Length() == 0 {
		container = doc.Find("#content")
	}
	if container.Length() == 0 {
		container = doc.Find(".viewer_lst")
	}
	if container.Length() == 0 {
		container = doc.Selection
	}

	var images []string
	container.Find("img").Each(func(_ int, sel *goquery.Selection) {
		src, ok := sel.Attr("data-url")
		if !ok {
			src, ok = sel.Attr("data-src")
		}
		if !ok {
			src, ok = sel.Attr("src")
		}
		if !ok || src == "" {
			return
		}

		src = strings.ReplaceAll(src, "&amp;", "&")
		if !strings.HasPrefix(src, "http") && base != nil {
			if ref, err := url.Parse(src); err == nil {
				src = base.ResolveReference(ref).String()
			}
		}

		// Content CDNs only; skips nav icons and the odd ad pixel.
		if !strings.Contains(src, "webtoon-phinf") && !strings.Contains(src, "comic.naver") && !strings.Contains(src, "daumcdn") {
			return
		}
		if strings.HasSuffix(src, ".gif") {
			return
		}
		images = append(images, src)
	})
	return images
}

// ParseSeriesMeta scrapes title, author, genre and audience stats from
// a series page.
func ParseSeriesMeta(doc *goquery.Document) SeriesMeta {
	meta := SeriesMeta{}

	meta.Title = cleanText(doc.Find("h1").First().Text())
	if meta.Title == "" {
		meta.Title, _ = doc.Find(`meta[property="og:title"]`).Attr("content")
		meta.Title = cleanText(meta.Title)
	}
	if meta.Title == "" {
		meta.Title = cleanText(doc.Find("title").Text())
	}

	author := doc.Find("div.author_area").First().Clone()
	author.Find("button").Remove()
	meta.Author = cleanText(author.Text())
	if meta.Author == "" {
		meta.Author = cleanText(doc.Find(`[class*="author"]`).First().Text())
	}

	meta.Genre = cleanText(doc.Find(`h2[class*="genre"]`).First().Text())
	if meta.Genre == "" {
		meta.Genre = cleanText(doc.Find(`[class*="genre"]`).First().Text())
	}

	doc.Find("ul.grade_area li").Each(func(_ int, li *goquery.Selection) {
		span := li.Find("span").First()
		cnt := cleanText(li.Find("em.cnt").First().Text())
		if cnt == "" {
			return
		}
		switch {
		case span.HasClass("ico_view"):
			meta.Views = cnt
		case span.HasClass("ico_subscribe"):
			meta.Subscribers = cnt
		case span.HasClass("ico_grade5"):
			if grade, err := strconv.ParseFloat(cnt, 64); err == nil {
				meta.Grade = grade
			}
		}
	})

	day := doc.Find("p.day_info").First().Clone()
	day.Find("span").Remove()
	meta.DayInfo = cleanText(day.Text())

	return meta
}

// ImageExtension guesses a file extension from an image URL, defaulting
// to .jpg.
func ImageExtension(imageURL string) string {
	lower := strings.ToLower(imageURL)
	switch {
	case strings.Contains(lower, "png"):
		return ".png"
	case strings.Contains(lower, "webp"):
		return ".webp"
	case strings.Contains(lower, "gif"):
		return ".gif"
	default:
		return ".jpg"
	}
}
