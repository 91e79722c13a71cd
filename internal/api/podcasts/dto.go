package podcasts

import (
	"podcast-app/internal/domain/podcasts"
	wf "podcast-app/internal/domain/workflow"
)

// ---------- requests

type CreatePodcastRequest struct {
	Title         string `json:"title" binding:"required"`
	Description   string `json:"description"`
	CoverImageURL string `json:"cover_image_url"`
	Category      string `json:"category"`
	Language      string `json:"language"`
	Country       string `json:"country"`
}

// UpdatePodcastRequest only touches fields that are present.
type UpdatePodcastRequest struct {
	Title               *string `json:"title"`
	Description         *string `json:"description"`
	CoverImageURL       *string `json:"cover_image_url"`
	Category            *string `json:"category"`
	Language            *string `json:"language"`
	Country             *string `json:"country"`
	AutoPublishEpisodes *bool   `json:"auto_publish_episodes"`
}

type CreateEpisodeRequest struct {
	Title         string `json:"title" binding:"required"`
	Description   string `json:"description"`
	AudioURL      string `json:"audio_url" binding:"required"`
	ScriptURL     string `json:"script_url"`
	Duration      *int   `json:"duration"`
	EpisodeNumber *int   `json:"episode_number"`
	SeasonNumber  *int   `json:"season_number"`
}

// ---------- responses

type PodcastDTO struct {
	*podcasts.Podcast
	Mode wf.Mode `json:"mode"`
}

func toPodcastDTO(p *podcasts.Podcast) PodcastDTO {
	return PodcastDTO{Podcast: p, Mode: wf.ModeOf(p)}
}

func toPodcastDTOs(list []podcasts.Podcast) []PodcastDTO {
	out := make([]PodcastDTO, 0, len(list))
	for i := range list {
		out = append(out, toPodcastDTO(&list[i]))
	}
	return out
}
