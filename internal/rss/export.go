package rss

import (
	"bytes"
	"strings"

	"podcast-app/internal/domain/podcasts"

	"github.com/eduncan911/podcast"
	"github.com/pkg/errors"
)

// BuildFeed renders a stored podcast and its episodes as an iTunes RSS document.
func BuildFeed(p *podcasts.Podcast, episodes []podcasts.Episode, link string) ([]byte, error) {
	updated := p.UpdatedAt
	created := p.CreatedAt

	description := p.Description
	if strings.TrimSpace(description) == "" {
		description = p.Title
	}

	feed := podcast.New(p.Title, link, description, &created, &updated)
	feed.Language = p.Language
	feed.IExplicit = "no"
	if p.Category != "" {
		feed.AddCategory(p.Category, nil)
	}
	if strings.HasPrefix(p.CoverImageURL, "http://") || strings.HasPrefix(p.CoverImageURL, "https://") {
		feed.AddImage(p.CoverImageURL)
	}

	for _, ep := range episodes {
		pub := ep.CreatedAt
		item := podcast.Item{
			GUID:        ep.ID,
			Title:       ep.Title,
			Description: ep.Description,
		}
		if strings.TrimSpace(item.Description) == "" {
			item.Description = ep.Title
		}
		item.AddPubDate(&pub)
		item.AddEnclosure(ep.AudioURL, enclosureType(ep.AudioURL), 0)
		if ep.Duration != nil {
			item.AddDuration(int64(*ep.Duration))
		}
		if _, err := feed.AddItem(item); err != nil {
			return nil, errors.Wrapf(err, "episode %s", ep.ID)
		}
	}

	var buf bytes.Buffer
	if err := feed.Encode(&buf); err != nil {
		return nil, errors.Wrap(err, "encode feed")
	}
	return buf.Bytes(), nil
}

func enclosureType(audioURL string) podcast.EnclosureType {
	lower := strings.ToLower(audioURL)
	if i := strings.IndexAny(lower, "?#"); i >= 0 {
		lower = lower[:i]
	}
	switch {
	case strings.HasSuffix(lower, ".m4a"):
		return podcast.M4A
	case strings.HasSuffix(lower, ".mp4"):
		return podcast.MP4
	default:
		return podcast.MP3
	}
}
