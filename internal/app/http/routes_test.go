package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	adminapi "podcast-app/internal/api/admin"
	catalogapi "podcast-app/internal/api/catalog"
	podcastsapi "podcast-app/internal/api/podcasts"
	rssapi "podcast-app/internal/api/rss"
	workflowapi "podcast-app/internal/api/workflow"
	"podcast-app/internal/app/http/middleware"
	"podcast-app/internal/domain/podcasts"
	"podcast-app/internal/importer"
	"podcast-app/internal/media"
	"podcast-app/internal/rss"
	"podcast-app/internal/test"
	"podcast-app/internal/workflow"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const feedURL = "https://feeds.example.com/show.xml"

type stubFeeds struct{ feed *rss.Feed }

func (s stubFeeds) Fetch(context.Context, string) (*rss.Feed, error) { return s.feed, nil }

type noImages struct{}

func (noImages) DownloadAndStoreImage(context.Context, string, uint, string) media.Result {
	return media.Result{Error: "offline"}
}

type harness struct {
	t      *testing.T
	r      *gin.Engine
	db     *gorm.DB
	signer *middleware.HMACVerifier
}

func newHarness(t *testing.T, ratePerMin int) *harness {
	gin.SetMode(gin.TestMode)
	db := test.NewSQLiteDB(t)
	log := test.Logger()

	feed := &rss.Feed{
		Title:    "Imported Show",
		ImageURL: "https://feeds.example.com/cover.jpg",
		Items: []rss.Item{
			{Title: "One", EnclosureURL: "https://feeds.example.com/1.mp3"},
			{Title: "Two", EnclosureURL: "https://feeds.example.com/2.mp3"},
			{Title: "No audio"},
		},
	}
	svc := workflow.NewService(db, log)
	im := importer.New(db, stubFeeds{feed: feed}, noImages{}, log)
	signer := middleware.NewHMACVerifier("test-secret")

	r := gin.New()
	RegisterRoutes(r, Deps{
		Verifier: signer,
		Limiter:  middleware.NewUserRateLimiter(ratePerMin),
		Log:      log,
		Podcasts: podcastsapi.New(db, svc, im, log),
		Workflow: workflowapi.New(svc, log),
		RSS:      rssapi.New(im, log),
		Admin:    adminapi.New(db, svc, log),
		Catalog:  catalogapi.New(db, "https://api.example.com/", log),
	})
	return &harness{t: t, r: r, db: db, signer: signer}
}

func (h *harness) token(userID uint, role string) string {
	tok, err := h.signer.Sign(middleware.Claims{UserID: userID, Role: role}, time.Hour)
	require.NoError(h.t, err)
	return tok
}

func (h *harness) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(h.t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (h *harness) seed(authorID uint) *podcasts.Podcast {
	p := &podcasts.Podcast{AuthorID: authorID, Title: "Seeded", Status: podcasts.StatusDraft}
	require.NoError(h.t, h.db.Create(p).Error)
	return p
}

func TestGetWorkflowAccess(t *testing.T) {
	h := newHarness(t, 10)
	p := h.seed(1)
	path := "/podcasts/" + p.ID + "/workflow"

	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, path, "", nil).Code)
	assert.Equal(t, http.StatusForbidden, h.do(http.MethodGet, path, h.token(2, "author"), nil).Code)
	assert.Equal(t, http.StatusForbidden, h.do(http.MethodGet, path, h.token(1, "client"), nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/podcasts/missing/workflow", h.token(1, "author"), nil).Code)

	w := h.do(http.MethodGet, path, h.token(1, "author"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "manual", body["workflow"].(map[string]interface{})["mode"])
	assert.Len(t, body["availableTransitions"], 2)

	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, path, h.token(99, "admin"), nil).Code)
}

func TestPostWorkflowTransitions(t *testing.T) {
	h := newHarness(t, 10)
	p := h.seed(1)
	path := "/podcasts/" + p.ID + "/workflow"
	tok := h.token(1, "author")

	w := h.do(http.MethodPost, path, tok, gin.H{"action": "transition", "to": "rss"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], "RSS URL is required")

	w = h.do(http.MethodPost, path, tok, gin.H{"action": "transition", "to": "sideways"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodPost, path, tok, gin.H{"action": "transition", "to": "rss", "rss_url": feedURL, "sync_now": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	wfState := body["workflow"].(map[string]interface{})
	assert.Equal(t, "rss", wfState["mode"])
	assert.NotNil(t, wfState["last_rss_sync"])

	w = h.do(http.MethodPost, path, tok, gin.H{"action": "transition", "from": "manual", "to": "rss", "rss_url": feedURL})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	reason := decode(t, w)["error"].(string)
	assert.Contains(t, reason, "rss mode")
	assert.Contains(t, reason, "expected manual")

	w = h.do(http.MethodPost, path, tok, gin.H{"action": "transition", "to": "rss"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], "already in rss mode")
}

func TestPostWorkflowSetOverride(t *testing.T) {
	h := newHarness(t, 10)
	p := h.seed(1)
	path := "/podcasts/" + p.ID + "/workflow"
	tok := h.token(1, "author")

	w := h.do(http.MethodPost, path, tok, gin.H{"action": "transition", "to": "rss", "rss_url": feedURL})
	require.Equal(t, http.StatusOK, w.Code)

	for _, body := range []string{
		`{"action":"setOverride","field":"artwork","value":true}`,
		`{"action":"setOverride","field":"title","value":"true"}`,
		`{"action":"setOverride","field":"title","value":1}`,
		`{"action":"setOverride","field":"title","value":null}`,
		`{"action":"setOverride","field":"title"}`,
		`{"action":"explode"}`,
		`{"nope":true}`,
	} {
		assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, path, tok, body).Code, body)
	}

	w = h.do(http.MethodPost, path, tok, `{"action":"setOverride","field":"title","value":true}`)
	require.Equal(t, http.StatusOK, w.Code)
	state := decode(t, w)["workflow"].(map[string]interface{})
	assert.Equal(t, "hybrid", state["mode"])
	assert.Equal(t, true, state["manual_overrides"].(map[string]interface{})["title"])
}

func TestRSSImportAndParse(t *testing.T) {
	h := newHarness(t, 10)

	assert.Equal(t, http.StatusForbidden, h.do(http.MethodPost, "/rss/import", h.token(1, "client"), gin.H{"rssUrl": feedURL}).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/rss/import", h.token(1, "author"), gin.H{}).Code)

	w := h.do(http.MethodPost, "/rss/parse", h.token(1, "author"), gin.H{"rssUrl": feedURL})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["episodes"], 2)

	w = h.do(http.MethodPost, "/rss/import", h.token(1, "author"), gin.H{"rssUrl": feedURL})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	pod := body["podcast"].(map[string]interface{})
	assert.Equal(t, true, pod["isNew"])
	assert.Equal(t, false, pod["imageDownloaded"])
	assert.Equal(t, map[string]interface{}{"total": float64(3), "imported": float64(2), "skipped": float64(1)}, body["episodes"])

	w = h.do(http.MethodPost, "/rss/import", h.token(1, "author"), gin.H{"rssUrl": feedURL})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["podcast"].(map[string]interface{})["isNew"])

	id := pod["id"].(string)
	w = h.do(http.MethodPost, "/podcasts/"+id+"/sync", h.token(1, "author"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, decode(t, w)["episodes"].(map[string]interface{})["imported"])
}

func TestRSSRateLimit(t *testing.T) {
	h := newHarness(t, 1)
	tok := h.token(1, "author")

	assert.Equal(t, http.StatusOK, h.do(http.MethodPost, "/rss/parse", tok, gin.H{"rssUrl": feedURL}).Code)
	assert.Equal(t, http.StatusTooManyRequests, h.do(http.MethodPost, "/rss/parse", tok, gin.H{"rssUrl": feedURL}).Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodPost, "/rss/parse", h.token(2, "author"), gin.H{"rssUrl": feedURL}).Code)
}

func TestPodcastLifecycle(t *testing.T) {
	h := newHarness(t, 10)
	author := h.token(1, "author")
	admin := h.token(50, "admin")

	w := h.do(http.MethodPost, "/podcasts", author, gin.H{"title": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodPost, "/podcasts", author, gin.H{"title": "<b>Garden</b> Talk", "language": "en", "category": "Leisure"})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode(t, w)
	id := created["id"].(string)
	assert.Equal(t, "Garden Talk", created["title"])
	assert.Equal(t, "draft", created["status"])
	assert.Equal(t, "manual", created["mode"])

	w = h.do(http.MethodGet, "/podcasts", author, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["podcasts"], 1)
	w = h.do(http.MethodGet, "/podcasts", h.token(2, "author"), nil)
	assert.Len(t, decode(t, w)["podcasts"], 0)

	w = h.do(http.MethodPost, "/podcasts/"+id+"/submit", author, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], "episode")

	w = h.do(http.MethodPost, "/podcasts/"+id+"/episodes", author, gin.H{"title": "Pilot", "audio_url": "ftp://x/y.mp3"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodPost, "/podcasts/"+id+"/episodes", author, gin.H{"title": "Pilot", "audio_url": "https://cdn.example.com/pilot.mp3", "duration": 330})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.EqualValues(t, 1, decode(t, w)["episode_number"])

	w = h.do(http.MethodPost, "/podcasts/"+id+"/episodes", author, gin.H{"title": "PILOT", "audio_url": "https://cdn.example.com/p2.mp3"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = h.do(http.MethodPost, "/podcasts/"+id+"/episodes", author, gin.H{"title": "Second", "audio_url": "https://cdn.example.com/2.mp3", "episode_number": 1})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = h.do(http.MethodPost, "/podcasts/"+id+"/episodes", author, gin.H{"title": "Second", "audio_url": "https://cdn.example.com/2.mp3"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.EqualValues(t, 2, decode(t, w)["episode_number"])

	w = h.do(http.MethodPut, "/podcasts/"+id, author, gin.H{"description": "Plants and more"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Plants and more", decode(t, w)["description"])

	w = h.do(http.MethodPost, "/podcasts/"+id+"/submit", author, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pending", decode(t, w)["status"])

	assert.Equal(t, http.StatusForbidden, h.do(http.MethodGet, "/admin/podcasts", author, nil).Code)

	w = h.do(http.MethodGet, "/admin/podcasts", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var queue []adminapi.AdminPodcast
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &queue))
	require.Len(t, queue, 1)
	assert.EqualValues(t, 2, queue[0].EpisodeCount)

	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/admin/podcasts?status=weird", admin, nil).Code)

	w = h.do(http.MethodGet, "/catalog/"+id+"/feed.xml", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = h.do(http.MethodPost, "/admin/podcasts/"+id+"/approve", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "approved", decode(t, w)["status"])
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/admin/podcasts/"+id+"/reject", admin, nil).Code)

	w = h.do(http.MethodGet, "/catalog?language=en", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var catalog []catalogapi.CatalogPodcast
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &catalog))
	require.Len(t, catalog, 1)
	assert.Equal(t, "https://api.example.com/catalog/"+id+"/feed.xml", catalog[0].FeedURL)

	w = h.do(http.MethodGet, "/catalog/"+id+"/feed.xml", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "application/rss+xml"))
	assert.Contains(t, w.Body.String(), "https://cdn.example.com/pilot.mp3")
}

func TestUpdateImportedPodcastPinsFields(t *testing.T) {
	h := newHarness(t, 10)
	author := h.token(1, "author")

	w := h.do(http.MethodPost, "/rss/import", author, gin.H{"rssUrl": feedURL})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode(t, w)["podcast"].(map[string]interface{})["id"].(string)

	w = h.do(http.MethodPut, "/podcasts/"+id, author, gin.H{"title": "Renamed"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hybrid", decode(t, w)["mode"])

	w = h.do(http.MethodGet, "/podcasts/"+id+"/workflow", author, nil)
	require.Equal(t, http.StatusOK, w.Code)
	overrides := decode(t, w)["workflow"].(map[string]interface{})["manual_overrides"].(map[string]interface{})
	assert.Equal(t, true, overrides["title"])
	assert.Equal(t, false, overrides["description"])

	w = h.do(http.MethodPost, "/podcasts/"+id+"/sync", author, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Renamed", decode(t, w)["podcast"].(map[string]interface{})["title"])
}

func TestPostWorkflowValidate(t *testing.T) {
	h := newHarness(t, 10)
	p := h.seed(1)
	path := "/podcasts/" + p.ID + "/workflow"
	tok := h.token(1, "author")

	w := h.do(http.MethodPost, path, tok, gin.H{"action": "validate", "to": "hybrid"})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["valid"])
	assert.Contains(t, body["error"], "RSS URL is required")

	w = h.do(http.MethodPost, path, tok, gin.H{"action": "validate", "to": "hybrid", "rss_url": feedURL})
	assert.Equal(t, true, decode(t, w)["valid"])

	w = h.do(http.MethodPost, path, tok, gin.H{"action": "validate", "from": "rss", "to": "hybrid", "rss_url": feedURL})
	assert.Equal(t, false, decode(t, w)["valid"])

	w = h.do(http.MethodPost, path, tok, gin.H{"action": "validate", "to": "manual"})
	assert.Contains(t, decode(t, w)["error"], "already in manual mode")

	state := h.do(http.MethodGet, path, tok, nil)
	assert.Equal(t, "manual", decode(t, state)["workflow"].(map[string]interface{})["mode"])
}
