package catalog

import (
	"net/http"
	"strings"

	"podcast-app/internal/domain/podcasts"
	"podcast-app/internal/rss"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type CatalogPodcast struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	CoverImageURL string `json:"cover_image_url"`
	Category      string `json:"category"`
	Language      string `json:"language"`
	Country       string `json:"country"`
	FeedURL       string `json:"feed_url"`
}

type Handler struct {
	db      *gorm.DB
	baseURL string
	log     logrus.FieldLogger
}

// New serves approved podcasts. baseURL is the public address used in feed links.
func New(db *gorm.DB, baseURL string, log logrus.FieldLogger) *Handler {
	return &Handler{db: db, baseURL: strings.TrimRight(baseURL, "/"), log: log}
}

func approvedQuery(db *gorm.DB) *gorm.DB {
	return db.Model(&podcasts.Podcast{}).
		Where("status = ?", podcasts.StatusApproved)
}

// ------------------------------
// GET /catalog?category=&language=
// ------------------------------
func (h *Handler) ListCatalog(c *gin.Context) {
	q := approvedQuery(h.db.WithContext(c.Request.Context()))
	if category := strings.TrimSpace(c.Query("category")); category != "" {
		q = q.Where("category = ?", category)
	}
	if language := strings.TrimSpace(c.Query("language")); language != "" {
		q = q.Where("language = ?", language)
	}

	var list []podcasts.Podcast
	if err := q.Order("title ASC").Find(&list).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load catalog"})
		return
	}

	out := make([]CatalogPodcast, 0, len(list))
	for _, p := range list {
		out = append(out, CatalogPodcast{
			ID:            p.ID,
			Title:         p.Title,
			Description:   p.Description,
			CoverImageURL: p.CoverImageURL,
			Category:      p.Category,
			Language:      p.Language,
			Country:       p.Country,
			FeedURL:       h.podcastURL(p.ID) + "/feed.xml",
		})
	}
	c.JSON(http.StatusOK, out)
}

// ------------------------------
// GET /catalog/:id/feed.xml
// ------------------------------
func (h *Handler) GetFeed(c *gin.Context) {
	db := h.db.WithContext(c.Request.Context())

	var p podcasts.Podcast
	if err := approvedQuery(db).First(&p, "id = ?", c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Podcast not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load podcast"})
		return
	}

	var episodes []podcasts.Episode
	if err := db.Where("podcast_id = ?", p.ID).
		Order("season_number DESC, episode_number DESC").
		Find(&episodes).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load episodes"})
		return
	}

	body, err := rss.BuildFeed(&p, episodes, h.podcastURL(p.ID))
	if err != nil {
		h.log.WithError(err).WithField("podcast_id", p.ID).Error("feed export failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build feed"})
		return
	}

	c.Data(http.StatusOK, "application/rss+xml; charset=utf-8", body)
}

func (h *Handler) podcastURL(id string) string {
	return h.baseURL + "/catalog/" + id
}
