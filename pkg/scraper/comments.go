package scraper

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Comment is one reader comment scraped from a chapter page.
type Comment struct {
	Username string
	Date     string
	Text     string
	Likes    string
}

// ExtractComments pulls reader comments out of a chapter page. The
// site's comment widget uses wcc_-prefixed classes; older markup is
// covered by the looser fallbacks.
func ExtractComments(doc *goquery.Document) []Comment {
	items := doc.Find(`li[class*="wcc_CommentItem"], li[class*="CommentItem"], li[class*="comment-item"]`)
	if items.Length() == 0 {
		items = doc.Find("div.wcc_CommentItem__inside")
	}

	var comments []Comment
	items.Each(func(_ int, item *goquery.Selection) {
		container := item
		if inside := item.Find("div.wcc_CommentItem__inside"); inside.Length() > 0 {
			container = inside.First()
		}

		username := cleanText(container.Find(`[class*="CommentHeader__name"]`).First().Text())
		if username == "" {
			username = "Unknown User"
		}

		date := cleanText(container.Find("time").First().Text())
		if date == "" {
			date = "Unknown Date"
		}

		content := container.Find(`p[class*="TextContent__content"]`).First()
		if content.Length() == 0 {
			content = container.Find("p").First()
		}
		body := content.Clone()
		body.Find(`span[class*="Badge"], span[class*="badge"], span.sr-only`).Remove()
		text := cleanText(body.Text())
		if text == "" {
			return
		}

		likes := "0"
		if reaction := container.Find(`div[class*="CommentReaction"] button`).First(); reaction.Length() > 0 {
			if n := cleanText(reaction.Find("span").First().Text()); n != "" {
				likes = n
			}
		}

		comments = append(comments, Comment{Username: username, Date: date, Text: text, Likes: likes})
	})
	return comments
}

// Summarize produces a short frequency-based digest of the comments:
// common words, average length, and the most upvoted comment.
func Summarize(comments []Comment) string {
	if len(comments) == 0 {
		return "No comments available for this episode."
	}

	totalWords := 0
	counts := map[string]int{}
	for _, c := range comments {
		words := strings.Fields(c.Text)
		totalWords += len(words)
		for _, w := range words {
			w = strings.ToLower(strings.Trim(w, `.,!?"'()`))
			if len(w) > 3 && !stopwords[w] {
				counts[w]++
			}
		}
	}

	type wordCount struct {
		word string
		n    int
	}
	ranked := make([]wordCount, 0, len(counts))
	for w, n := range counts {
		ranked = append(ranked, wordCount{w, n})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].n != ranked[j].n {
			return ranked[i].n > ranked[j].n
		}
		return ranked[i].word < ranked[j].word
	})

	var common []string
	for i := 0; i < len(ranked) && i < 5; i++ {
		common = append(common, ranked[i].word)
	}

	top := comments[0]
	for _, c := range comments[1:] {
		if likesValue(c.Likes) > likesValue(top.Likes) {
			top = c
		}
	}
	topText := top.Text
	if len(topText) > 50 {
		topText = topText[:50] + "..."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "A total of %d comments were analyzed for this episode. ", len(comments))
	if len(common) > 0 {
		fmt.Fprintf(&b, "Frequently mentioned words include: %s. ", strings.Join(common, ", "))
	}
	fmt.Fprintf(&b, "The average comment contains %.1f words. ", float64(totalWords)/float64(len(comments)))
	fmt.Fprintf(&b, "Most upvoted comment (%s likes): %q", top.Likes, topText)
	return b.String()
}

// SaveComments writes the comments plus their summary to a text file in
// the chapter folder. No comments, no file.
func SaveComments(comments []Comment, folder, episodeNo string) (string, error) {
	if len(comments) == 0 {
		return "", nil
	}
	if err := os.MkdirAll(folder, 0755); err != nil {
		return "", fmt.Errorf("create chapter folder: %w", err)
	}

	var b strings.Builder
	divider := strings.Repeat("-", 50)
	fmt.Fprintf(&b, "Comments for Episode %s\n", episodeNo)
	fmt.Fprintf(&b, "Total comments: %d\n", len(comments))
	b.WriteString(divider + "\n\n")
	b.WriteString("SUMMARY:\n")
	b.WriteString(Summarize(comments) + "\n\n")
	b.WriteString(divider + "\n\n")
	for i, c := range comments {
		fmt.Fprintf(&b, "#%d | %s | %s | Likes: %s\n", i+1, c.Username, c.Date, c.Likes)
		b.WriteString(c.Text + "\n")
		b.WriteString(divider + "\n\n")
	}

	path := filepath.Join(folder, fmt.Sprintf("comments_episode_%s.txt", episodeNo))
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return "", fmt.Errorf("write comments file: %w", err)
	}
	return path, nil
}

func likesValue(s string) int {
	n, err := strconv.Atoi(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return 0
	}
	return n
}

var stopwords = map[string]bool{
	"this": true, "that": true, "with": true, "from": true, "have": true,
	"they": true, "them": true, "what": true, "when": true, "will": true,
	"just": true, "like": true, "been": true, "were": true, "your": true,
	"about": true, "would": true, "there": true, "their": true, "really": true,
}
