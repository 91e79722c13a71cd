package workflow

import (
	"strings"
	"time"

	"podcast-app/internal/domain/podcasts"
)

// Mode describes how a podcast's content fields are kept up to date.
type Mode string

const (
	ModeManual Mode = "manual"
	ModeRSS    Mode = "rss"
	ModeHybrid Mode = "hybrid"
)

var Modes = []Mode{ModeManual, ModeRSS, ModeHybrid}

func ParseMode(s string) (Mode, bool) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case ModeManual, ModeRSS, ModeHybrid:
		return m, true
	}
	return "", false
}

// DeriveMode computes the mode from persisted fields:
//   - no RSS URL                    -> manual
//   - URL present, sync paused      -> hybrid
//   - sync enabled, any field pinned -> hybrid
//   - otherwise                     -> rss
func DeriveMode(rssURL *string, syncEnabled bool, overrides podcasts.ManualOverrides) Mode {
	if rssURL == nil || strings.TrimSpace(*rssURL) == "" {
		return ModeManual
	}
	if !syncEnabled {
		return ModeHybrid
	}
	if overrides.Any() {
		return ModeHybrid
	}
	return ModeRSS
}

func ModeOf(p *podcasts.Podcast) Mode {
	return DeriveMode(p.RSSURL, p.RSSSyncEnabled, p.Overrides())
}

// State is the computed workflow view of a podcast. It is never persisted.
type State struct {
	Mode            Mode                     `json:"mode"`
	RSSURL          *string                  `json:"rss_url"`
	RSSSyncEnabled  bool                     `json:"rss_sync_enabled"`
	ManualOverrides podcasts.ManualOverrides `json:"manual_overrides"`
	LastRSSSync     *time.Time               `json:"last_rss_sync"`
	RSSImageURL     *string                  `json:"rss_image_url"`
}

func StateOf(p *podcasts.Podcast) State {
	return State{
		Mode:            ModeOf(p),
		RSSURL:          p.RSSURL,
		RSSSyncEnabled:  p.RSSSyncEnabled,
		ManualOverrides: p.Overrides(),
		LastRSSSync:     p.LastRSSSync,
		RSSImageURL:     p.RSSImageURL,
	}
}
