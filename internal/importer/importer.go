// Package importer creates and refreshes podcasts from RSS feeds.
package importer

import (
	"context"
	"strings"
	"time"

	"podcast-app/internal/apperr"
	"podcast-app/internal/domain/podcasts"
	"podcast-app/internal/media"
	"podcast-app/internal/rss"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const previewEpisodes = 5

type FeedSource interface {
	Fetch(ctx context.Context, rawURL string) (*rss.Feed, error)
}

type ImageSource interface {
	DownloadAndStoreImage(ctx context.Context, rawURL string, ownerID uint, hint string) media.Result
}

type Importer struct {
	db     *gorm.DB
	feeds  FeedSource
	images ImageSource
	log    logrus.FieldLogger
	now    func() time.Time
}

func New(db *gorm.DB, feeds FeedSource, images ImageSource, log logrus.FieldLogger) *Importer {
	return &Importer{db: db, feeds: feeds, images: images, log: log, now: time.Now}
}

type PodcastSummary struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	IsNew           bool   `json:"isNew"`
	ImageDownloaded bool   `json:"imageDownloaded"`
}

type EpisodeCounts struct {
	Total    int `json:"total"`
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

type Result struct {
	Podcast  PodcastSummary `json:"podcast"`
	Episodes EpisodeCounts  `json:"episodes"`
}

// Import fetches rssURL and creates the author's podcast for it, or refreshes the
// one already linked to that feed. An unreachable or titleless feed aborts
// before anything is written.
func (im *Importer) Import(ctx context.Context, authorID uint, rssURL string) (*Result, error) {
	rssURL = strings.TrimSpace(rssURL)
	feed, err := im.feeds.Fetch(ctx, rssURL)
	if err != nil {
		return nil, err
	}

	var existing podcasts.Podcast
	err = im.db.WithContext(ctx).
		Where("author_id = ? AND rss_url = ?", authorID, rssURL).
		First(&existing).Error
	switch {
	case err == nil:
		return im.refresh(ctx, &existing, feed)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return im.create(ctx, authorID, rssURL, feed)
	default:
		return nil, apperr.Wrap(err, apperr.KindPersistence, "Failed to look up podcast")
	}
}

// Sync re-reads the feed of an rss or hybrid podcast and merges it in.
func (im *Importer) Sync(ctx context.Context, p *podcasts.Podcast) (*Result, error) {
	if !p.RSSSyncEnabled || p.RSSURLValue() == "" {
		return nil, apperr.Validation("RSS sync is not enabled for this podcast")
	}
	feed, err := im.feeds.Fetch(ctx, p.RSSURLValue())
	if err != nil {
		return nil, err
	}
	return im.refresh(ctx, p, feed)
}

func (im *Importer) create(ctx context.Context, authorID uint, rssURL string, feed *rss.Feed) (*Result, error) {
	now := im.now()
	p := podcasts.Podcast{
		AuthorID:            authorID,
		Title:               feed.Title,
		Description:         feed.Description,
		Category:            feed.Category,
		Language:            feed.Language,
		Status:              podcasts.StatusDraft,
		AutoPublishEpisodes: true,
		RSSURL:              &rssURL,
		RSSSyncEnabled:      true,
		LastRSSSync:         &now,
	}

	downloaded := false
	if feed.ImageURL != "" {
		imageURL := feed.ImageURL
		p.RSSImageURL = &imageURL
		p.CoverImageURL, downloaded = im.coverImage(ctx, authorID, feed)
	}

	var merged MergeResult
	err := im.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&p).Error; err != nil {
			return err
		}
		merged = MergeEpisodes(p.ID, feed.Items, NewExistingEpisodes())
		return insertEpisodes(tx, merged.Staged)
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, apperr.Wrap(err, apperr.KindConflict, "This feed is already being imported; retry to refresh it")
	}
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindPersistence, "Failed to import podcast")
	}

	im.log.WithFields(logrus.Fields{
		"podcast_id": p.ID,
		"author_id":  authorID,
		"rss_url":    rssURL,
		"imported":   merged.Imported,
		"skipped":    merged.Skipped,
	}).Info("podcast imported from rss")

	return newResult(&p, true, downloaded, merged), nil
}

// refresh updates only the content fields that changed in the feed and are not
// pinned, then merges new episodes. The write is conditional on the workflow
// version p was read at; a podcast changed during the fetch yields Conflict.
func (im *Importer) refresh(ctx context.Context, p *podcasts.Podcast, feed *rss.Feed) (*Result, error) {
	pinned := p.Overrides()
	updates := map[string]interface{}{}

	setIfChanged := func(field podcasts.OverrideField, column, current, fresh string) {
		if pinned.Get(field) || fresh == "" || fresh == current {
			return
		}
		updates[column] = fresh
	}
	setIfChanged(podcasts.OverrideTitle, "title", p.Title, feed.Title)
	setIfChanged(podcasts.OverrideDescription, "description", p.Description, feed.Description)
	setIfChanged(podcasts.OverrideCategory, "category", p.Category, feed.Category)
	setIfChanged(podcasts.OverrideLanguage, "language", p.Language, feed.Language)

	downloaded := false
	if feed.ImageURL != "" && feed.ImageURL != valueOf(p.RSSImageURL) && !pinned.CoverImage {
		updates["rss_image_url"] = feed.ImageURL
		updates["cover_image_url"], downloaded = im.coverImage(ctx, p.AuthorID, feed)
	}
	changed := len(updates)

	now := im.now()
	var merged MergeResult
	err := im.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := stampRefresh(tx, p, updates, now); err != nil {
			return err
		}

		existing, err := LoadExisting(tx, p.ID)
		if err != nil {
			return err
		}
		merged = MergeEpisodes(p.ID, feed.Items, existing)
		return insertEpisodes(tx, merged.Staged)
	})
	if apperr.Is(err, apperr.KindConflict) {
		return nil, err
	}
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindPersistence, "Failed to import podcast")
	}

	im.log.WithFields(logrus.Fields{
		"podcast_id": p.ID,
		"changed":    changed,
		"imported":   merged.Imported,
		"skipped":    merged.Skipped,
	}).Info("podcast refreshed from rss")

	if title, ok := updates["title"].(string); ok {
		p.Title = title
	}
	if changed > 0 {
		p.WorkflowVersion++
	}
	return newResult(p, false, downloaded, merged), nil
}

// stampRefresh writes the changed content and last_rss_sync, guarded by the
// workflow version and the sync flag. Content changes bump the version; a bare
// sync stamp leaves updated_at and the version alone.
func stampRefresh(tx *gorm.DB, p *podcasts.Podcast, updates map[string]interface{}, now time.Time) error {
	q := tx.Model(&podcasts.Podcast{}).
		Where("id = ? AND workflow_version = ? AND rss_sync_enabled = ?", p.ID, p.WorkflowVersion, p.RSSSyncEnabled)

	var res *gorm.DB
	if len(updates) > 0 {
		updates["last_rss_sync"] = now
		updates["updated_at"] = now
		updates["workflow_version"] = gorm.Expr("workflow_version + ?", 1)
		res = q.Updates(updates)
	} else {
		res = q.UpdateColumn("last_rss_sync", now)
	}
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.Conflict("Podcast was changed while its feed was being fetched; refresh and retry")
	}
	return nil
}

// coverImage stores the feed artwork, keeping the remote URL when that fails.
func (im *Importer) coverImage(ctx context.Context, ownerID uint, feed *rss.Feed) (string, bool) {
	res := im.images.DownloadAndStoreImage(ctx, feed.ImageURL, ownerID, feed.Title)
	if !res.Success {
		im.log.WithFields(logrus.Fields{
			"image_url": feed.ImageURL,
			"reason":    res.Error,
		}).Warn("cover image download failed, using remote url")
		return feed.ImageURL, false
	}
	return res.ImageURL, true
}

func insertEpisodes(tx *gorm.DB, staged []podcasts.Episode) error {
	if len(staged) == 0 {
		return nil
	}
	return tx.CreateInBatches(&staged, 100).Error
}

func newResult(p *podcasts.Podcast, isNew, downloaded bool, merged MergeResult) *Result {
	return &Result{
		Podcast: PodcastSummary{
			ID:              p.ID,
			Title:           p.Title,
			IsNew:           isNew,
			ImageDownloaded: downloaded,
		},
		Episodes: EpisodeCounts{
			Total:    merged.Total,
			Imported: merged.Imported,
			Skipped:  merged.Skipped,
		},
	}
}

func valueOf(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
