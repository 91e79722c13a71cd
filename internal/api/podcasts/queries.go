package podcasts

import (
	"podcast-app/internal/domain/podcasts"

	"gorm.io/gorm"
)

func authorPodcastsQuery(db *gorm.DB, authorID uint) *gorm.DB {
	return db.Model(&podcasts.Podcast{}).
		Where("author_id = ?", authorID)
}

func podcastEpisodesQuery(db *gorm.DB, podcastID string) *gorm.DB {
	return db.Model(&podcasts.Episode{}).
		Where("podcast_id = ?", podcastID).
		Order("season_number ASC, episode_number ASC")
}
