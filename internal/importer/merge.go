package importer

import (
	"strconv"
	"strings"

	"podcast-app/internal/domain/podcasts"
	"podcast-app/internal/rss"

	"gorm.io/gorm"
)

// ExistingEpisodes is what a podcast already holds: lower-cased titles and
// episode numbers in use.
type ExistingEpisodes struct {
	Titles  map[string]struct{}
	Numbers map[int]struct{}
}

func NewExistingEpisodes() ExistingEpisodes {
	return ExistingEpisodes{
		Titles:  map[string]struct{}{},
		Numbers: map[int]struct{}{},
	}
}

func LoadExisting(tx *gorm.DB, podcastID string) (ExistingEpisodes, error) {
	var rows []podcasts.Episode
	if err := tx.Select("title", "episode_number").
		Where("podcast_id = ?", podcastID).
		Find(&rows).Error; err != nil {
		return ExistingEpisodes{}, err
	}

	existing := NewExistingEpisodes()
	for _, ep := range rows {
		existing.Titles[strings.ToLower(strings.TrimSpace(ep.Title))] = struct{}{}
		existing.Numbers[ep.EpisodeNumber] = struct{}{}
	}
	return existing, nil
}

type MergeResult struct {
	Staged   []podcasts.Episode
	Total    int
	Imported int
	Skipped  int
}

// MergeEpisodes picks the feed items to insert for a podcast. Items without a
// title or audio, and items colliding on title (case-insensitive) or episode
// number, are skipped. Collisions are never renumbered.
func MergeEpisodes(podcastID string, items []rss.Item, existing ExistingEpisodes) MergeResult {
	titles := make(map[string]struct{}, len(existing.Titles)+len(items))
	for t := range existing.Titles {
		titles[t] = struct{}{}
	}
	numbers := make(map[int]struct{}, len(existing.Numbers)+len(items))
	for n := range existing.Numbers {
		numbers[n] = struct{}{}
	}

	res := MergeResult{Total: len(items)}
	position := 0

	for _, item := range items {
		if !item.Importable() {
			continue
		}
		position++

		title := strings.TrimSpace(item.Title)
		key := strings.ToLower(title)
		if _, dup := titles[key]; dup {
			continue
		}

		number := positiveInt(item.Episode, position)
		if _, taken := numbers[number]; taken {
			continue
		}

		ep := podcasts.Episode{
			PodcastID:     podcastID,
			Title:         title,
			Description:   item.Description,
			AudioURL:      strings.TrimSpace(item.EnclosureURL),
			ScriptURL:     "",
			EpisodeNumber: number,
			SeasonNumber:  positiveInt(item.Season, 1),
		}
		if secs, err := rss.ParseDuration(item.Duration); err == nil {
			ep.Duration = &secs
		}

		titles[key] = struct{}{}
		numbers[number] = struct{}{}
		res.Staged = append(res.Staged, ep)
	}

	res.Imported = len(res.Staged)
	res.Skipped = res.Total - res.Imported
	return res
}

func positiveInt(s string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
