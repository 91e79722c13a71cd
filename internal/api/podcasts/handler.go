package podcasts

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"podcast-app/internal/api/respond"
	"podcast-app/internal/apperr"
	"podcast-app/internal/domain/podcasts"
	"podcast-app/internal/importer"
	"podcast-app/internal/workflow"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type Syncer interface {
	Sync(ctx context.Context, p *podcasts.Podcast) (*importer.Result, error)
}

type Handler struct {
	db     *gorm.DB
	svc    *workflow.Service
	syncer Syncer
	log    logrus.FieldLogger
}

func New(db *gorm.DB, svc *workflow.Service, syncer Syncer, log logrus.FieldLogger) *Handler {
	return &Handler{db: db, svc: svc, syncer: syncer, log: log}
}

func (h *Handler) loadForCaller(c *gin.Context) (*podcasts.Podcast, bool) {
	userID, ok := respond.MustUserID(c)
	if !ok {
		return nil, false
	}
	p, err := h.svc.LoadForCaller(c.Request.Context(), c.Param("id"), userID, c.GetString("role"))
	if err != nil {
		respond.Error(c, h.log, err)
		return nil, false
	}
	return p, true
}

// ------------------------------
// GET /podcasts
// ------------------------------
func (h *Handler) ListPodcasts(c *gin.Context) {
	userID, ok := respond.MustUserID(c)
	if !ok {
		return
	}

	var list []podcasts.Podcast
	if err := authorPodcastsQuery(h.db.WithContext(c.Request.Context()), userID).
		Order("created_at DESC").
		Find(&list).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load podcasts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"podcasts": toPodcastDTOs(list)})
}

// ------------------------------
// POST /podcasts  (manual draft)
// ------------------------------
func (h *Handler) CreatePodcast(c *gin.Context) {
	userID, ok := respond.MustUserID(c)
	if !ok {
		return
	}

	var req CreatePodcastRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Title) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title is required"})
		return
	}

	p := podcasts.Podcast{
		AuthorID:      userID,
		Title:         strings.TrimSpace(req.Title),
		Description:   req.Description,
		CoverImageURL: req.CoverImageURL,
		Category:      req.Category,
		Language:      req.Language,
		Country:       req.Country,
		Status:        podcasts.StatusDraft,
	}
	if err := h.db.WithContext(c.Request.Context()).Create(&p).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create podcast"})
		return
	}

	c.JSON(http.StatusCreated, toPodcastDTO(&p))
}

// ------------------------------
// GET /podcasts/:id
// ------------------------------
func (h *Handler) GetPodcast(c *gin.Context) {
	p, ok := h.loadForCaller(c)
	if !ok {
		return
	}

	if err := podcastEpisodesQuery(h.db.WithContext(c.Request.Context()), p.ID).
		Find(&p.Episodes).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load episodes"})
		return
	}

	c.JSON(http.StatusOK, toPodcastDTO(p))
}

// ------------------------------
// PUT /podcasts/:id
// ------------------------------
func (h *Handler) UpdatePodcast(c *gin.Context) {
	p, ok := h.loadForCaller(c)
	if !ok {
		return
	}

	var req UpdatePodcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title cannot be empty"})
		return
	}

	updates := map[string]interface{}{}
	var edited []podcasts.OverrideField

	set := func(field podcasts.OverrideField, column string, current string, next *string) {
		if next == nil || *next == current {
			return
		}
		updates[column] = *next
		edited = append(edited, field)
	}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		req.Title = &title
	}
	set(podcasts.OverrideTitle, "title", p.Title, req.Title)
	set(podcasts.OverrideDescription, "description", p.Description, req.Description)
	set(podcasts.OverrideCoverImage, "cover_image_url", p.CoverImageURL, req.CoverImageURL)
	set(podcasts.OverrideCategory, "category", p.Category, req.Category)
	set(podcasts.OverrideLanguage, "language", p.Language, req.Language)
	set(podcasts.OverrideCountry, "country", p.Country, req.Country)
	if req.AutoPublishEpisodes != nil && *req.AutoPublishEpisodes != p.AutoPublishEpisodes {
		updates["auto_publish_episodes"] = *req.AutoPublishEpisodes
	}

	updated, err := h.svc.UpdateContent(c.Request.Context(), p, updates, edited)
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, toPodcastDTO(updated))
}

// ------------------------------
// POST /podcasts/:id/submit  (draft|rejected -> pending)
// ------------------------------
func (h *Handler) SubmitPodcast(c *gin.Context) {
	p, ok := h.loadForCaller(c)
	if !ok {
		return
	}

	if p.Status != podcasts.StatusDraft && p.Status != podcasts.StatusRejected {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only draft or rejected podcasts can be submitted"})
		return
	}

	ctx := c.Request.Context()
	var count int64
	if err := h.db.WithContext(ctx).Model(&podcasts.Episode{}).
		Where("podcast_id = ?", p.ID).
		Count(&count).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count episodes"})
		return
	}
	if count == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Add at least one episode before submitting"})
		return
	}

	if err := podcasts.ChangeStatus(h.db.WithContext(ctx), p, podcasts.StatusPending); err != nil {
		respond.Error(c, h.log, err)
		return
	}

	h.log.WithField("podcast_id", p.ID).Info("podcast submitted for review")
	c.JSON(http.StatusOK, toPodcastDTO(p))
}

// ------------------------------
// POST /podcasts/:id/sync
// ------------------------------
func (h *Handler) SyncPodcast(c *gin.Context) {
	p, ok := h.loadForCaller(c)
	if !ok {
		return
	}

	res, err := h.syncer.Sync(c.Request.Context(), p)
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// ------------------------------
// POST /podcasts/:id/episodes  (manual episode)
// ------------------------------
func (h *Handler) CreateEpisode(c *gin.Context) {
	p, ok := h.loadForCaller(c)
	if !ok {
		return
	}

	var req CreateEpisodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title and audio_url are required"})
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title is required"})
		return
	}
	if !isHTTPURL(req.AudioURL) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "audio_url must be an absolute http(s) URL"})
		return
	}
	if req.Duration != nil && *req.Duration < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "duration cannot be negative"})
		return
	}

	ep := podcasts.Episode{
		PodcastID:    p.ID,
		Title:        title,
		Description:  req.Description,
		AudioURL:     strings.TrimSpace(req.AudioURL),
		ScriptURL:    req.ScriptURL,
		Duration:     req.Duration,
		SeasonNumber: 1,
	}
	if req.SeasonNumber != nil && *req.SeasonNumber > 0 {
		ep.SeasonNumber = *req.SeasonNumber
	}

	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		existing, err := importer.LoadExisting(tx, p.ID)
		if err != nil {
			return err
		}
		if _, dup := existing.Titles[strings.ToLower(title)]; dup {
			return apperr.Conflict("An episode with this title already exists")
		}

		if req.EpisodeNumber != nil && *req.EpisodeNumber > 0 {
			ep.EpisodeNumber = *req.EpisodeNumber
		} else {
			for n := range existing.Numbers {
				if n > ep.EpisodeNumber {
					ep.EpisodeNumber = n
				}
			}
			ep.EpisodeNumber++
		}
		if _, taken := existing.Numbers[ep.EpisodeNumber]; taken {
			return apperr.Conflict("Episode number %d is already in use", ep.EpisodeNumber)
		}

		return tx.Create(&ep).Error
	})
	if err != nil {
		var appErr *apperr.Error
		if !errors.As(err, &appErr) {
			err = apperr.Wrap(err, apperr.KindPersistence, "Failed to create episode")
		}
		respond.Error(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, ep)
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	return err == nil && u.Host != "" && (u.Scheme == "http" || u.Scheme == "https")
}
