package admin

import (
	"net/http"

	"podcast-app/internal/api/respond"
	"podcast-app/internal/domain/podcasts"
	wf "podcast-app/internal/domain/workflow"
	"podcast-app/internal/workflow"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type AdminPodcast struct {
	ID           string  `json:"id"`
	AuthorID     uint    `json:"author_id"`
	Title        string  `json:"title"`
	Status       string  `json:"status"`
	Mode         wf.Mode `json:"mode"`
	RSSURL       *string `json:"rss_url,omitempty"`
	EpisodeCount int64   `json:"episode_count"`
	CreatedAt    string  `json:"created_at"`
}

type Handler struct {
	db  *gorm.DB
	svc *workflow.Service
	log logrus.FieldLogger
}

func New(db *gorm.DB, svc *workflow.Service, log logrus.FieldLogger) *Handler {
	return &Handler{db: db, svc: svc, log: log}
}

// ListPodcasts defaults to the review queue.
func (h *Handler) ListPodcasts(c *gin.Context) {
	status := c.DefaultQuery("status", podcasts.StatusPending)
	switch status {
	case podcasts.StatusDraft, podcasts.StatusPending, podcasts.StatusApproved, podcasts.StatusRejected:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status filter"})
		return
	}

	db := h.db.WithContext(c.Request.Context())
	var list []podcasts.Podcast
	if err := db.Where("status = ?", status).Order("updated_at ASC").Find(&list).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load podcasts"})
		return
	}

	counts, err := episodeCounts(db, list)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load episode counts"})
		return
	}

	out := make([]AdminPodcast, 0, len(list))
	for i := range list {
		p := &list[i]
		out = append(out, AdminPodcast{
			ID:           p.ID,
			AuthorID:     p.AuthorID,
			Title:        p.Title,
			Status:       p.Status,
			Mode:         wf.ModeOf(p),
			RSSURL:       p.RSSURL,
			EpisodeCount: counts[p.ID],
			CreatedAt:    p.CreatedAt.Format("2006-01-02 15:04"),
		})
	}

	c.JSON(http.StatusOK, out)
}

func (h *Handler) ApprovePodcast(c *gin.Context) {
	h.review(c, podcasts.StatusApproved)
}

func (h *Handler) RejectPodcast(c *gin.Context) {
	h.review(c, podcasts.StatusRejected)
}

func (h *Handler) review(c *gin.Context, next string) {
	ctx := c.Request.Context()
	p, err := h.svc.LoadPodcast(ctx, c.Param("id"))
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}

	if p.Status != podcasts.StatusPending {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only pending podcasts can be reviewed"})
		return
	}

	if err := podcasts.ChangeStatus(h.db.WithContext(ctx), p, next); err != nil {
		respond.Error(c, h.log, err)
		return
	}

	h.log.WithFields(logrus.Fields{
		"podcast_id": p.ID,
		"status":     next,
		"admin_id":   c.GetUint("user_id"),
	}).Info("podcast reviewed")

	c.JSON(http.StatusOK, gin.H{"id": p.ID, "status": p.Status})
}

func episodeCounts(db *gorm.DB, list []podcasts.Podcast) (map[string]int64, error) {
	out := make(map[string]int64, len(list))
	if len(list) == 0 {
		return out, nil
	}

	ids := make([]string, 0, len(list))
	for _, p := range list {
		ids = append(ids, p.ID)
	}

	var rows []struct {
		PodcastID string
		Count     int64
	}
	if err := db.Model(&podcasts.Episode{}).
		Select("podcast_id, COUNT(*) AS count").
		Where("podcast_id IN ?", ids).
		Group("podcast_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.PodcastID] = r.Count
	}
	return out, nil
}
