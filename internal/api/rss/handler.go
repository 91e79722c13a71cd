package rss

import (
	"context"
	"net/http"

	"podcast-app/internal/api/respond"
	"podcast-app/internal/importer"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Importer interface {
	Import(ctx context.Context, authorID uint, rssURL string) (*importer.Result, error)
	Preview(ctx context.Context, rssURL string) (*importer.Preview, error)
}

type Handler struct {
	importer Importer
	log      logrus.FieldLogger
}

func New(im Importer, log logrus.FieldLogger) *Handler {
	return &Handler{importer: im, log: log}
}

type FeedRequest struct {
	RSSURL string `json:"rssUrl" binding:"required"`
}

// ------------------------------
// POST /rss/import
// ------------------------------
func (h *Handler) Import(c *gin.Context) {
	userID, ok := respond.MustUserID(c)
	if !ok {
		return
	}

	var req FeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "RSS URL is required"})
		return
	}

	res, err := h.importer.Import(c.Request.Context(), userID, req.RSSURL)
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}

	status := http.StatusOK
	if res.Podcast.IsNew {
		status = http.StatusCreated
	}
	c.JSON(status, res)
}

// ------------------------------
// POST /rss/parse
// ------------------------------
func (h *Handler) Parse(c *gin.Context) {
	if _, ok := respond.MustUserID(c); !ok {
		return
	}

	var req FeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "RSS URL is required"})
		return
	}

	preview, err := h.importer.Preview(c.Request.Context(), req.RSSURL)
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, preview)
}
