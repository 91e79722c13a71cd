package podcasts

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Episode struct {
	ID        string `gorm:"type:uuid;primaryKey" json:"id"`
	PodcastID string `gorm:"type:uuid;not null;index" json:"podcast_id"`

	Title       string `gorm:"not null" json:"title"`
	Description string `json:"description"`
	AudioURL    string `gorm:"column:audio_url;not null" json:"audio_url"`
	ScriptURL   string `gorm:"column:script_url;not null;default:''" json:"script_url"`

	// Seconds; nil when the feed duration could not be parsed.
	Duration      *int `json:"duration"`
	EpisodeNumber int  `gorm:"not null;index" json:"episode_number"`
	SeasonNumber  int  `gorm:"not null;default:1" json:"season_number"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (e *Episode) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}
