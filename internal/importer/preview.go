package importer

import (
	"context"
	"strings"

	"podcast-app/internal/rss"
)

type PreviewPodcast struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl"`
	Language    string `json:"language"`
	Category    string `json:"category"`
	Author      string `json:"author"`
}

type PreviewEpisode struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	AudioURL      string `json:"audioUrl"`
	Duration      *int   `json:"duration"`
	EpisodeNumber int    `json:"episodeNumber"`
	SeasonNumber  int    `json:"seasonNumber"`
}

type Preview struct {
	Podcast       PreviewPodcast   `json:"podcast"`
	Episodes      []PreviewEpisode `json:"episodes"`
	TotalEpisodes int              `json:"totalEpisodes"`
}

// Preview parses a feed and reports what an import would produce. Nothing is
// written.
func (im *Importer) Preview(ctx context.Context, rssURL string) (*Preview, error) {
	feed, err := im.feeds.Fetch(ctx, strings.TrimSpace(rssURL))
	if err != nil {
		return nil, err
	}
	return buildPreview(feed), nil
}

func buildPreview(feed *rss.Feed) *Preview {
	out := &Preview{
		Podcast: PreviewPodcast{
			Title:       feed.Title,
			Description: feed.Description,
			ImageURL:    feed.ImageURL,
			Language:    feed.Language,
			Category:    feed.Category,
			Author:      feed.Author,
		},
		Episodes: []PreviewEpisode{},
	}

	merged := MergeEpisodes("", feed.Items, NewExistingEpisodes())
	out.TotalEpisodes = merged.Imported
	for i, ep := range merged.Staged {
		if i == previewEpisodes {
			break
		}
		out.Episodes = append(out.Episodes, PreviewEpisode{
			Title:         ep.Title,
			Description:   ep.Description,
			AudioURL:      ep.AudioURL,
			Duration:      ep.Duration,
			EpisodeNumber: ep.EpisodeNumber,
			SeasonNumber:  ep.SeasonNumber,
		})
	}
	return out
}
