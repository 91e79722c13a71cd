package podcasts

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	StatusDraft    = "draft"
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

type Podcast struct {
	ID       string `gorm:"type:uuid;primaryKey" json:"id"`
	AuthorID uint   `gorm:"not null;index;uniqueIndex:idx_podcasts_author_rss,priority:1,where:rss_url IS NOT NULL AND rss_url <> ''" json:"author_id"`

	Title         string `gorm:"not null" json:"title"`
	Description   string `json:"description"`
	CoverImageURL string `gorm:"column:cover_image_url" json:"cover_image_url"`
	Category      string `json:"category"`
	Language      string `json:"language"`
	Country       string `json:"country"`

	Status              string `gorm:"type:text;not null;default:'draft';index" json:"status"`
	AutoPublishEpisodes bool   `gorm:"not null;default:false" json:"auto_publish_episodes"`

	// Workflow fields. The mode is derived from these and never stored.
	// An author links a feed URL to at most one podcast.
	RSSURL          *string                             `gorm:"column:rss_url;uniqueIndex:idx_podcasts_author_rss,priority:2" json:"rss_url"`
	RSSSyncEnabled  bool                                `gorm:"column:rss_sync_enabled;not null;default:false" json:"rss_sync_enabled"`
	ManualOverrides datatypes.JSONType[ManualOverrides] `gorm:"column:manual_overrides" json:"manual_overrides"`
	LastRSSSync     *time.Time                          `gorm:"column:last_rss_sync" json:"last_rss_sync"`
	RSSImageURL     *string                             `gorm:"column:rss_image_url" json:"rss_image_url"`

	// Bumped on every workflow write; used as the compare-and-swap token.
	WorkflowVersion int `gorm:"not null;default:0" json:"-"`

	Episodes []Episode `gorm:"foreignKey:PodcastID;constraint:OnDelete:CASCADE;" json:"episodes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *Podcast) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

func (p *Podcast) Overrides() ManualOverrides {
	return p.ManualOverrides.Data()
}

func (p *Podcast) SetOverrides(o ManualOverrides) {
	p.ManualOverrides = datatypes.NewJSONType(o)
}

// RSSURLValue returns the feed URL or "" when none is on record.
func (p *Podcast) RSSURLValue() string {
	if p.RSSURL == nil {
		return ""
	}
	return *p.RSSURL
}
