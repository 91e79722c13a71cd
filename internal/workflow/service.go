// Package workflow executes podcast synchronization-mode transitions and
// manual-override changes against the podcast store.
package workflow

import (
	"context"
	"strings"
	"time"

	"podcast-app/internal/apperr"
	"podcast-app/internal/domain/podcasts"
	wf "podcast-app/internal/domain/workflow"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Options tune a transition.
type Options struct {
	// RSSURL replaces the feed URL on record when non-empty.
	RSSURL *string
	// SyncNow stamps last_rss_sync when moving to rss mode. Fetching is left to
	// the caller.
	SyncNow bool
	// PreserveManualChanges keeps the feed URL and RSS image when moving to
	// manual mode.
	PreserveManualChanges bool
}

type Service struct {
	db  *gorm.DB
	log logrus.FieldLogger
	now func() time.Time
}

func NewService(db *gorm.DB, log logrus.FieldLogger) *Service {
	return &Service{db: db, log: log, now: time.Now}
}

// LoadPodcast re-reads the podcast row; state is never cached.
func (s *Service) LoadPodcast(ctx context.Context, id string) (*podcasts.Podcast, error) {
	var p podcasts.Podcast
	if err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Podcast not found")
		}
		return nil, apperr.Wrap(err, apperr.KindPersistence, "Failed to load podcast")
	}
	return &p, nil
}

// LoadForCaller loads a podcast and checks that the caller owns it or is an admin.
func (s *Service) LoadForCaller(ctx context.Context, id string, userID uint, role string) (*podcasts.Podcast, error) {
	p, err := s.LoadPodcast(ctx, id)
	if err != nil {
		return nil, err
	}
	if !podcasts.CanManage(p, userID, role) {
		return nil, apperr.Forbidden("Access denied")
	}
	return p, nil
}

func (s *Service) GetState(ctx context.Context, id string) (wf.State, error) {
	p, err := s.LoadPodcast(ctx, id)
	if err != nil {
		return wf.State{}, err
	}
	return wf.StateOf(p), nil
}

// TransitionPodcastWorkflow moves a podcast from t.From to t.To. Every check runs
// before the single conditional write; nothing is written on failure.
func (s *Service) TransitionPodcastWorkflow(ctx context.Context, id string, t wf.Transition, opts Options) (wf.State, error) {
	if err := wf.ValidateEdge(t.From, t.To); err != nil {
		return wf.State{}, err
	}

	p, err := s.LoadPodcast(ctx, id)
	if err != nil {
		return wf.State{}, err
	}

	current := wf.ModeOf(p)
	if current != t.From {
		return wf.State{}, apperr.New(apperr.KindStateMismatch,
			"Podcast is in %s mode, expected %s; refresh and retry", current, t.From)
	}

	rssURL := p.RSSURLValue()
	if opts.RSSURL != nil && strings.TrimSpace(*opts.RSSURL) != "" {
		rssURL = strings.TrimSpace(*opts.RSSURL)
	}

	now := s.now()
	updates := map[string]interface{}{}

	switch t.To {
	case wf.ModeManual:
		updates["rss_sync_enabled"] = false
		updates["manual_overrides"] = datatypes.NewJSONType(podcasts.ManualOverrides{})
		if !opts.PreserveManualChanges {
			updates["rss_url"] = nil
			updates["rss_image_url"] = nil
		}
	case wf.ModeRSS:
		if err := wf.ValidateFeedURL(rssURL); err != nil {
			return wf.State{}, err
		}
		updates["rss_url"] = rssURL
		updates["rss_sync_enabled"] = true
		updates["manual_overrides"] = datatypes.NewJSONType(podcasts.ManualOverrides{})
		if opts.SyncNow {
			updates["last_rss_sync"] = now
		}
	case wf.ModeHybrid:
		if err := wf.ValidateFeedURL(rssURL); err != nil {
			return wf.State{}, err
		}
		updates["rss_url"] = rssURL
		updates["rss_sync_enabled"] = true
	}

	if err := s.compareAndSwap(ctx, p, updates, now); err != nil {
		return wf.State{}, err
	}

	s.log.WithFields(logrus.Fields{
		"podcast_id": p.ID,
		"from":       t.From,
		"to":         t.To,
		"sync_now":   opts.SyncNow,
	}).Info("workflow transition applied")

	return s.GetState(ctx, id)
}

// SetManualOverride merges one flag into the stored overrides. Sync settings and
// the feed URL are left alone.
func (s *Service) SetManualOverride(ctx context.Context, id string, field podcasts.OverrideField, value bool) (wf.State, error) {
	if _, ok := podcasts.ParseOverrideField(string(field)); !ok {
		return wf.State{}, apperr.Validation("Invalid override field %q", field)
	}

	p, err := s.LoadPodcast(ctx, id)
	if err != nil {
		return wf.State{}, err
	}

	merged := p.Overrides().With(field, value)
	now := s.now()
	if err := s.compareAndSwap(ctx, p, map[string]interface{}{
		"manual_overrides": datatypes.NewJSONType(merged),
	}, now); err != nil {
		return wf.State{}, err
	}

	s.log.WithFields(logrus.Fields{
		"podcast_id": p.ID,
		"field":      field,
		"value":      value,
	}).Info("manual override updated")

	return s.GetState(ctx, id)
}

// UpdateContent writes edited content columns. On a podcast that syncs from a
// feed, every edited field is pinned so later syncs leave it alone.
func (s *Service) UpdateContent(ctx context.Context, p *podcasts.Podcast, updates map[string]interface{}, edited []podcasts.OverrideField) (*podcasts.Podcast, error) {
	if len(updates) == 0 {
		return p, nil
	}

	pinned := p.Overrides()
	if p.RSSSyncEnabled {
		for _, f := range edited {
			pinned = pinned.With(f, true)
		}
		if pinned != p.Overrides() {
			updates["manual_overrides"] = datatypes.NewJSONType(pinned)
		}
	}

	if err := s.compareAndSwap(ctx, p, updates, s.now()); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"podcast_id": p.ID,
		"pinned":     pinned.Pinned(),
	}).Info("podcast content updated")

	return s.LoadPodcast(ctx, p.ID)
}

// compareAndSwap applies updates only if nobody changed the workflow since p
// was read.
func (s *Service) compareAndSwap(ctx context.Context, p *podcasts.Podcast, updates map[string]interface{}, now time.Time) error {
	updates["updated_at"] = now
	updates["workflow_version"] = gorm.Expr("workflow_version + ?", 1)

	res := s.db.WithContext(ctx).
		Model(&podcasts.Podcast{}).
		Where("id = ? AND workflow_version = ?", p.ID, p.WorkflowVersion).
		Updates(updates)
	if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
		return apperr.Wrap(res.Error, apperr.KindConflict, "Another of your podcasts already uses this RSS feed")
	}
	if res.Error != nil {
		return apperr.Wrap(res.Error, apperr.KindPersistence, "Failed to update podcast workflow")
	}
	if res.RowsAffected == 0 {
		return apperr.Conflict("Podcast workflow was changed by another request; refresh and retry")
	}
	return nil
}
