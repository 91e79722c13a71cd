package rss

import (
	"strings"
	"time"

	"podcast-app/internal/sanitize"

	"github.com/mmcdole/gofeed"
	"github.com/pkg/errors"
)

var ErrFeedTitleMissing = errors.New("feed has no title")

// Feed is a normalized podcast feed.
type Feed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
	Language    string `json:"language"`
	Category    string `json:"category"`
	Link        string `json:"link"`
	Author      string `json:"author"`
	Items       []Item `json:"items"`
}

// Item is one feed entry. Numeric fields stay as strings; the merge engine
// decides how to interpret them.
type Item struct {
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	EnclosureURL  string     `json:"enclosure_url"`
	EnclosureType string     `json:"enclosure_type"`
	Duration      string     `json:"duration"`
	Episode       string     `json:"episode"`
	Season        string     `json:"season"`
	Explicit      string     `json:"explicit"`
	Categories    []string   `json:"categories"`
	GUID          string     `json:"guid"`
	PublishedAt   *time.Time `json:"published_at"`
}

// Importable reports whether the item has what an episode needs.
func (i Item) Importable() bool {
	return strings.TrimSpace(i.Title) != "" && strings.TrimSpace(i.EnclosureURL) != ""
}

// FromGofeed normalizes a parsed feed. A feed without a title is rejected.
func FromGofeed(src *gofeed.Feed) (*Feed, error) {
	if src == nil || snippet(src.Title) == "" {
		return nil, ErrFeedTitleMissing
	}

	f := &Feed{
		Title:       snippet(src.Title),
		Description: snippet(src.Description),
		Language:    strings.TrimSpace(src.Language),
		Link:        src.Link,
		Items:       make([]Item, 0, len(src.Items)),
	}

	if src.Image != nil && src.Image.URL != "" {
		f.ImageURL = src.Image.URL
	}
	if src.ITunesExt != nil {
		if f.ImageURL == "" {
			f.ImageURL = src.ITunesExt.Image
		}
		if f.Description == "" {
			f.Description = snippet(src.ITunesExt.Summary)
		}
		for _, c := range src.ITunesExt.Categories {
			if c != nil && c.Text != "" {
				f.Category = c.Text
				break
			}
		}
		f.Author = src.ITunesExt.Author
	}
	if f.Category == "" && len(src.Categories) > 0 {
		f.Category = src.Categories[0]
	}
	if f.Author == "" && len(src.Authors) > 0 && src.Authors[0] != nil {
		f.Author = src.Authors[0].Name
	}

	for _, it := range src.Items {
		if it == nil {
			continue
		}
		f.Items = append(f.Items, normalizeItem(it))
	}
	return f, nil
}

func normalizeItem(it *gofeed.Item) Item {
	out := Item{
		Title:       snippet(it.Title),
		Categories:  it.Categories,
		GUID:        it.GUID,
		PublishedAt: it.PublishedParsed,
	}

	var summary string
	if it.ITunesExt != nil {
		out.Duration = strings.TrimSpace(it.ITunesExt.Duration)
		out.Episode = strings.TrimSpace(it.ITunesExt.Episode)
		out.Season = strings.TrimSpace(it.ITunesExt.Season)
		out.Explicit = it.ITunesExt.Explicit
		summary = it.ITunesExt.Summary
	}

	out.Description = firstNonEmpty(
		snippet(firstNonEmpty(it.Content, it.Description)),
		snippet(it.Description),
		snippet(summary),
	)

	for _, enc := range it.Enclosures {
		if enc == nil || enc.URL == "" {
			continue
		}
		if out.EnclosureURL == "" || strings.HasPrefix(enc.Type, "audio/") && !strings.HasPrefix(out.EnclosureType, "audio/") {
			out.EnclosureURL = enc.URL
			out.EnclosureType = enc.Type
		}
	}
	return out
}

// snippet reduces HTML to plain text.
func snippet(s string) string {
	return strings.TrimSpace(sanitize.PlainText(s))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
