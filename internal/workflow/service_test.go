package workflow

import (
	"context"
	"testing"
	"time"

	"podcast-app/internal/apperr"
	"podcast-app/internal/domain/podcasts"
	wf "podcast-app/internal/domain/workflow"
	"podcast-app/internal/test"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var ctx = context.Background()

func strPtr(s string) *string { return &s }

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	db := test.NewSQLiteDB(t)
	svc := NewService(db, test.Logger())
	fixed := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }
	return svc, db
}

func seedPodcast(t *testing.T, db *gorm.DB, mutate func(p *podcasts.Podcast)) *podcasts.Podcast {
	p := &podcasts.Podcast{AuthorID: 7, Title: "Seed", Status: podcasts.StatusDraft}
	if mutate != nil {
		mutate(p)
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

func reload(t *testing.T, db *gorm.DB, id string) *podcasts.Podcast {
	var p podcasts.Podcast
	require.NoError(t, db.First(&p, "id = ?", id).Error)
	return &p
}

func TestGetStateManual(t *testing.T) {
	svc, db := newTestService(t)
	p := seedPodcast(t, db, nil)

	state, err := svc.GetState(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, wf.ModeManual, state.Mode)
	assert.Nil(t, state.RSSURL)
}

func TestGetStateNotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.GetState(ctx, "missing")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestLoadForCaller(t *testing.T) {
	svc, db := newTestService(t)
	p := seedPodcast(t, db, nil)

	_, err := svc.LoadForCaller(ctx, p.ID, 7, podcasts.RoleAuthor)
	assert.NoError(t, err)

	_, err = svc.LoadForCaller(ctx, p.ID, 99, podcasts.RoleAdmin)
	assert.NoError(t, err)

	_, err = svc.LoadForCaller(ctx, p.ID, 8, podcasts.RoleAuthor)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}

func TestTransitionManualToRSS(t *testing.T) {
	svc, db := newTestService(t)
	p := seedPodcast(t, db, nil)

	state, err := svc.TransitionPodcastWorkflow(ctx, p.ID,
		wf.Transition{From: wf.ModeManual, To: wf.ModeRSS},
		Options{RSSURL: strPtr(" https://example.com/feed.xml "), SyncNow: true})
	require.NoError(t, err)

	assert.Equal(t, wf.ModeRSS, state.Mode)
	assert.Equal(t, "https://example.com/feed.xml", *state.RSSURL)
	assert.True(t, state.RSSSyncEnabled)
	require.NotNil(t, state.LastRSSSync)
	assert.True(t, state.LastRSSSync.Equal(svc.now()))

	stored := reload(t, db, p.ID)
	assert.Equal(t, 1, stored.WorkflowVersion)
}

func TestTransitionWithoutURLLeavesRecordUnchanged(t *testing.T) {
	svc, db := newTestService(t)
	p := seedPodcast(t, db, nil)
	before := reload(t, db, p.ID)

	for _, to := range []wf.Mode{wf.ModeRSS, wf.ModeHybrid} {
		_, err := svc.TransitionPodcastWorkflow(ctx, p.ID,
			wf.Transition{From: wf.ModeManual, To: to}, Options{RSSURL: strPtr("  ")})
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.KindValidation))
	}

	after := reload(t, db, p.ID)
	assert.Equal(t, before.WorkflowVersion, after.WorkflowVersion)
	assert.Nil(t, after.RSSURL)
	assert.False(t, after.RSSSyncEnabled)
	assert.True(t, before.UpdatedAt.Equal(after.UpdatedAt))
}

func TestRepeatedTransitionReportsStateMismatch(t *testing.T) {
	svc, db := newTestService(t)
	p := seedPodcast(t, db, nil)
	move := wf.Transition{From: wf.ModeManual, To: wf.ModeRSS}

	_, err := svc.TransitionPodcastWorkflow(ctx, p.ID, move, Options{RSSURL: strPtr("https://example.com/rss")})
	require.NoError(t, err)

	_, err = svc.TransitionPodcastWorkflow(ctx, p.ID, move, Options{RSSURL: strPtr("https://example.com/rss")})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindStateMismatch))
	assert.Contains(t, apperr.Reason(err), "rss mode")
	assert.Contains(t, apperr.Reason(err), "expected manual")
}

func TestTransitionToHybridKeepsOverrides(t *testing.T) {
	svc, db := newTestService(t)
	p := seedPodcast(t, db, func(p *podcasts.Podcast) {
		p.RSSURL = strPtr("https://example.com/rss")
		p.RSSSyncEnabled = false
		p.SetOverrides(podcasts.ManualOverrides{Title: true})
	})

	// A URL with paused sync derives to hybrid; resume into rss clears the pins.
	state, err := svc.GetState(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, wf.ModeHybrid, state.Mode)

	state, err = svc.TransitionPodcastWorkflow(ctx, p.ID, wf.Transition{From: wf.ModeHybrid, To: wf.ModeRSS}, Options{})
	require.NoError(t, err)
	assert.Equal(t, wf.ModeRSS, state.Mode)
	assert.False(t, state.ManualOverrides.Any())
	assert.Nil(t, state.LastRSSSync)

	_, err = svc.SetManualOverride(ctx, p.ID, podcasts.OverrideDescription, true)
	require.NoError(t, err)

	state, err = svc.TransitionPodcastWorkflow(ctx, p.ID, wf.Transition{From: wf.ModeHybrid, To: wf.ModeManual},
		Options{PreserveManualChanges: true})
	require.NoError(t, err)
	assert.Equal(t, wf.ModeHybrid, state.Mode, "url kept with sync paused still derives hybrid")
	assert.False(t, state.RSSSyncEnabled)
	assert.False(t, state.ManualOverrides.Any())
}

func TestTransitionManualToHybridPreservesOverrides(t *testing.T) {
	svc, db := newTestService(t)
	p := seedPodcast(t, db, func(p *podcasts.Podcast) {
		p.SetOverrides(podcasts.ManualOverrides{Country: true})
	})

	state, err := svc.TransitionPodcastWorkflow(ctx, p.ID, wf.Transition{From: wf.ModeManual, To: wf.ModeHybrid},
		Options{RSSURL: strPtr("https://example.com/rss")})
	require.NoError(t, err)
	assert.Equal(t, wf.ModeHybrid, state.Mode)
	assert.True(t, state.ManualOverrides.Country)
	assert.True(t, state.RSSSyncEnabled)
}

func TestTransitionToManualDetachesFeed(t *testing.T) {
	svc, db := newTestService(t)
	p := seedPodcast(t, db, func(p *podcasts.Podcast) {
		p.RSSURL = strPtr("https://example.com/rss")
		p.RSSImageURL = strPtr("https://example.com/cover.jpg")
		p.RSSSyncEnabled = true
	})

	state, err := svc.TransitionPodcastWorkflow(ctx, p.ID, wf.Transition{From: wf.ModeRSS, To: wf.ModeManual}, Options{})
	require.NoError(t, err)
	assert.Equal(t, wf.ModeManual, state.Mode)
	assert.Nil(t, state.RSSURL)
	assert.Nil(t, state.RSSImageURL)
	assert.False(t, state.RSSSyncEnabled)
}

func TestSetManualOverrideMerges(t *testing.T) {
	svc, db := newTestService(t)
	p := seedPodcast(t, db, func(p *podcasts.Podcast) {
		p.RSSURL = strPtr("https://example.com/rss")
		p.RSSSyncEnabled = true
	})

	_, err := svc.SetManualOverride(ctx, p.ID, podcasts.OverrideTitle, true)
	require.NoError(t, err)
	state, err := svc.SetManualOverride(ctx, p.ID, podcasts.OverrideLanguage, true)
	require.NoError(t, err)
	assert.True(t, state.ManualOverrides.Title)
	assert.True(t, state.ManualOverrides.Language)
	assert.Equal(t, wf.ModeHybrid, state.Mode)

	state, err = svc.SetManualOverride(ctx, p.ID, podcasts.OverrideTitle, false)
	require.NoError(t, err)
	assert.False(t, state.ManualOverrides.Title)
	assert.True(t, state.ManualOverrides.Language)

	stored := reload(t, db, p.ID)
	assert.True(t, stored.RSSSyncEnabled)
	assert.Equal(t, "https://example.com/rss", stored.RSSURLValue())
}

func TestSetManualOverrideRejectsUnknownField(t *testing.T) {
	svc, db := newTestService(t)
	p := seedPodcast(t, db, nil)

	_, err := svc.SetManualOverride(ctx, p.ID, podcasts.OverrideField("author"), true)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestCompareAndSwapDetectsLostRace(t *testing.T) {
	svc, db := newTestService(t)
	p := seedPodcast(t, db, nil)

	stale := reload(t, db, p.ID)
	require.NoError(t, db.Model(&podcasts.Podcast{}).Where("id = ?", p.ID).
		Update("workflow_version", gorm.Expr("workflow_version + 1")).Error)

	err := svc.compareAndSwap(ctx, stale, map[string]interface{}{"rss_sync_enabled": true}, svc.now())
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	assert.False(t, reload(t, db, p.ID).RSSSyncEnabled)
}

func TestLoadPodcastPersistenceFailure(t *testing.T) {
	db, mock := test.NewMockDB(t)
	svc := NewService(db, test.Logger())

	mock.ExpectQuery(`SELECT \* FROM "podcasts"`).WillReturnError(assert.AnError)

	_, err := svc.GetState(ctx, "p1")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindPersistence))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionPersistenceFailure(t *testing.T) {
	db, mock := test.NewMockDB(t)
	svc := NewService(db, test.Logger())

	rows := sqlmock.NewRows([]string{"id", "author_id", "title", "rss_url", "rss_sync_enabled", "manual_overrides", "workflow_version"}).
		AddRow("p1", 7, "Show", nil, false, `{}`, 3)
	mock.ExpectQuery(`SELECT \* FROM "podcasts"`).WillReturnRows(rows)
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "podcasts" SET`).WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, err := svc.TransitionPodcastWorkflow(ctx, "p1", wf.Transition{From: wf.ModeManual, To: wf.ModeRSS},
		Options{RSSURL: strPtr("https://example.com/rss")})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindPersistence))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateContentPinsEditedFieldsOnFeedPodcast(t *testing.T) {
	svc, db := newTestService(t)
	p := seedPodcast(t, db, func(p *podcasts.Podcast) {
		p.RSSURL = strPtr("https://feeds.example.com/a.xml")
		p.RSSSyncEnabled = true
	})
	require.Equal(t, wf.ModeRSS, wf.ModeOf(p))

	updated, err := svc.UpdateContent(ctx, p, map[string]interface{}{"title": "Mine"},
		[]podcasts.OverrideField{podcasts.OverrideTitle})
	require.NoError(t, err)
	assert.Equal(t, "Mine", updated.Title)
	assert.True(t, updated.Overrides().Title)
	assert.Equal(t, wf.ModeHybrid, wf.ModeOf(updated))
	assert.Equal(t, p.WorkflowVersion+1, updated.WorkflowVersion)
}

func TestUpdateContentManualPodcastDoesNotPin(t *testing.T) {
	svc, db := newTestService(t)
	p := seedPodcast(t, db, nil)

	updated, err := svc.UpdateContent(ctx, p, map[string]interface{}{"language": "de"},
		[]podcasts.OverrideField{podcasts.OverrideLanguage})
	require.NoError(t, err)
	assert.Equal(t, "de", updated.Language)
	assert.False(t, updated.Overrides().Any())
	assert.Equal(t, wf.ModeManual, wf.ModeOf(updated))
}

func TestUpdateContentStaleCopyConflicts(t *testing.T) {
	svc, db := newTestService(t)
	p := seedPodcast(t, db, nil)
	stale := *p

	_, err := svc.UpdateContent(ctx, p, map[string]interface{}{"title": "First"}, nil)
	require.NoError(t, err)

	_, err = svc.UpdateContent(ctx, &stale, map[string]interface{}{"title": "Second"}, nil)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	assert.Equal(t, "First", reload(t, db, p.ID).Title)
}

func TestTransitionToFeedAlreadyLinkedConflicts(t *testing.T) {
	svc, db := newTestService(t)
	seedPodcast(t, db, func(p *podcasts.Podcast) {
		p.RSSURL = strPtr("https://feeds.example.com/a.xml")
		p.RSSSyncEnabled = true
	})
	manual := seedPodcast(t, db, nil)

	_, err := svc.TransitionPodcastWorkflow(ctx, manual.ID,
		wf.Transition{From: wf.ModeManual, To: wf.ModeRSS},
		Options{RSSURL: strPtr("https://feeds.example.com/a.xml")})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	assert.Equal(t, wf.ModeManual, wf.ModeOf(reload(t, db, manual.ID)))
}
