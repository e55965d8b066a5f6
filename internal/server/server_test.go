package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/UndrAds/snappy-sub001/internal/adslot"
	"github.com/UndrAds/snappy-sub001/internal/auth"
	"github.com/UndrAds/snappy-sub001/internal/database"
	"github.com/UndrAds/snappy-sub001/internal/logger"
	"github.com/UndrAds/snappy-sub001/internal/model"
	"github.com/UndrAds/snappy-sub001/internal/rss"
)

type testEnv struct {
	srv   *httptest.Server
	store database.Store
	auth  *auth.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := database.New(filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	adScript := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "// gpt stub")
	}))
	t.Cleanup(adScript.Close)

	authSvc := auth.NewService(store, "test-secret", time.Hour)
	tracker := rss.NewTracker()
	gen := rss.NewGenerator(store, tracker, 15, logger.Log)
	gpt := adslot.NewGPTService(adScript.URL)
	registry := adslot.NewRegistry(gpt, logger.Log)

	s := New(store, authSvc, registry, gpt, gen, nil, logger.Log)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	return &testEnv{srv: ts, store: store, auth: authSvc}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, rd)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, data
}

func (e *testEnv) register(t *testing.T, email, name string) (string, string) {
	t.Helper()
	resp, body := e.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": email, "password": "hunter2hunter2", "name": name,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var out struct {
		User  model.User `json:"user"`
		Token string     `json:"token"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	return out.User.ID, out.Token
}

// registerAdmin creates an admin account directly in the store and logs in.
func (e *testEnv) registerAdmin(t *testing.T) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2hunter2"), bcrypt.MinCost)
	require.NoError(t, err)
	now := time.Now().UTC()
	require.NoError(t, e.store.CreateUser(&model.User{
		ID: "admin-1", Email: "admin@example.com", PasswordHash: string(hash),
		Name: "Admin", Role: model.RoleAdmin, CreatedAt: now, UpdatedAt: now,
	}))
	_, token, err := e.auth.Login("admin@example.com", "hunter2hunter2")
	require.NoError(t, err)
	return token
}

func (e *testEnv) createStory(t *testing.T, token string, story map[string]any) model.Story {
	t.Helper()
	resp, body := e.do(t, http.MethodPost, "/api/stories/", token, story)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var out model.Story
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)
	resp, body := e.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), "SQLite")
}

func TestAuthFlow(t *testing.T) {
	e := newTestEnv(t)
	e.register(t, "a@example.com", "Alice")

	resp, _ := e.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "a@example.com", "password": "hunter2hunter2", "name": "Alice",
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = e.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "a@example.com", "password": "wrong-password",
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = e.do(t, http.MethodGet, "/api/stories/", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = e.do(t, http.MethodGet, "/api/stories/", "garbage-token", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestStoryCRUD(t *testing.T) {
	e := newTestEnv(t)
	userID, token := e.register(t, "a@example.com", "Alice")

	created := e.createStory(t, token, map[string]any{"title": "My story"})
	require.Equal(t, userID, created.UserID)
	require.Equal(t, model.FormatPortrait, created.Format)
	require.Equal(t, model.StatusDraft, created.Status)

	resp, body := e.do(t, http.MethodGet, "/api/stories/"+created.ID, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	created.Title = "Renamed"
	created.Status = model.StatusPublished
	created.UserID = "forged-owner"
	resp, body = e.do(t, http.MethodPut, "/api/stories/"+created.ID, token, created)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated model.Story
	require.NoError(t, json.Unmarshal(body, &updated))
	require.Equal(t, "Renamed", updated.Title)
	require.Equal(t, userID, updated.UserID, "ownership is immutable")

	resp, _ = e.do(t, http.MethodGet, "/api/stories/missing", token, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = e.do(t, http.MethodDelete, "/api/stories/"+created.ID, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = e.do(t, http.MethodGet, "/api/stories/"+created.ID, token, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStoryOwnership(t *testing.T) {
	e := newTestEnv(t)
	_, alice := e.register(t, "a@example.com", "Alice")
	_, mallory := e.register(t, "m@example.com", "Mallory")
	adminToken := e.registerAdmin(t)

	story := e.createStory(t, alice, map[string]any{"title": "Private"})

	resp, _ := e.do(t, http.MethodGet, "/api/stories/"+story.ID, mallory, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = e.do(t, http.MethodGet, "/api/stories/"+story.ID, adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, "admins can read any story")
}

func TestPlayerFrame(t *testing.T) {
	e := newTestEnv(t)
	_, token := e.register(t, "a@example.com", "Alice")

	frames := []map[string]any{
		{"type": "story", "background": map[string]any{"type": "color", "value": "#000"}},
		{"type": "ad", "ad_config": map[string]any{"ad_unit_path": "/snappy/story"},
			"background": map[string]any{"type": "color", "value": "#111"}},
		{"type": "story", "background": map[string]any{"type": "color", "value": "#000"}},
	}
	draft := e.createStory(t, token, map[string]any{"title": "Played", "frames": frames})

	// Unpublished stories are invisible to the player.
	resp, _ := e.do(t, http.MethodGet, "/api/stories/"+draft.ID+"/player?index=0", "", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	draft.Status = model.StatusPublished
	resp, _ = e.do(t, http.MethodPut, "/api/stories/"+draft.ID, token, draft)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Index      int         `json:"index"`
		Slide      int         `json:"slide"`
		SlideTotal int         `json:"slide_total"`
		Prev       int         `json:"prev"`
		Next       int         `json:"next"`
		DurationMS int         `json:"duration_ms"`
		Frame      model.Frame `json:"frame"`
	}

	resp, body := e.do(t, http.MethodGet, "/api/stories/"+draft.ID+"/player?index=0", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &out))
	require.Equal(t, 1, out.Slide)
	require.Equal(t, 2, out.SlideTotal, "ad frames stay out of the slide counter")
	require.Equal(t, 0, out.Prev)
	require.Equal(t, 1, out.Next)
	require.Equal(t, 5000, out.DurationMS)

	resp, body = e.do(t, http.MethodGet, "/api/stories/"+draft.ID+"/player?index=99", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &out))
	require.Equal(t, 2, out.Index, "out-of-range index clamps to the last frame")

	resp, body = e.do(t, http.MethodGet, "/api/stories/"+draft.ID+"/player?index=1", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &out))
	require.Equal(t, model.FrameAd, out.Frame.Type)
}

func TestRecordViewAndAnalytics(t *testing.T) {
	e := newTestEnv(t)
	_, token := e.register(t, "a@example.com", "Alice")
	story := e.createStory(t, token, map[string]any{"title": "Tracked"})

	resp, _ := e.do(t, http.MethodPost, "/api/analytics/views", "", map[string]any{
		"story_id": story.ID, "event": "view",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = e.do(t, http.MethodPost, "/api/analytics/views", "", map[string]any{
		"story_id": story.ID, "event": "install",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = e.do(t, http.MethodPost, "/api/analytics/views", "", map[string]any{
		"story_id": "missing", "event": "view",
	})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body := e.do(t, http.MethodGet, "/api/analytics/stories", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var analytics struct {
		Stories []model.StoryAnalytics `json:"stories"`
	}
	require.NoError(t, json.Unmarshal(body, &analytics))
	require.Len(t, analytics.Stories, 1)
	require.Equal(t, 1, analytics.Stories[0].Views)
}

func TestExportEndpoints(t *testing.T) {
	e := newTestEnv(t)
	_, token := e.register(t, "a@example.com", "Alice")
	story := e.createStory(t, token, map[string]any{
		"title": "Bundle",
		"frames": []map[string]any{
			{"type": "story", "background": map[string]any{"type": "color", "value": "#000"}},
			{"type": "ad", "ad_config": map[string]any{"ad_unit_path": "/snappy/story"},
				"background": map[string]any{"type": "color", "value": "#111"}},
		},
	})

	resp, body := e.do(t, http.MethodGet, "/api/stories/"+story.ID+"/export-info?type=google-ads", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var info struct {
		ExportType string `json:"export_type"`
		FrameCount int    `json:"frame_count"`
	}
	require.NoError(t, json.Unmarshal(body, &info))
	require.Equal(t, "google-ads", info.ExportType)
	require.Equal(t, 1, info.FrameCount)

	resp, _ = e.do(t, http.MethodGet, "/api/stories/"+story.ID+"/export-info?type=dfp", token, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = e.do(t, http.MethodPost, "/api/stories/"+story.ID+"/export", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/zip", resp.Header.Get("Content-Type"))
	require.NotEmpty(t, body)
}

func TestEmbedEndpoint(t *testing.T) {
	e := newTestEnv(t)
	_, token := e.register(t, "a@example.com", "Alice")
	story := e.createStory(t, token, map[string]any{
		"title": "Widget",
		"embed_config": map[string]any{
			"floater": true, "direction": "up", "position": "bottom-right",
			"size": "medium", "show_close": true,
		},
	})

	resp, body := e.do(t, http.MethodGet, "/api/stories/"+story.ID+"/embed", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		Attrs   map[string]string `json:"attrs"`
		Snippet string            `json:"snippet"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	require.Equal(t, story.ID, out.Attrs["data-story-id"])
	require.Equal(t, "true", out.Attrs["data-floater"])
	require.Contains(t, out.Snippet, "<script src=")
	require.Contains(t, out.Snippet, "data-story-id=")
}

func TestRSSEndpoints(t *testing.T) {
	e := newTestEnv(t)
	_, token := e.register(t, "a@example.com", "Alice")

	static := e.createStory(t, token, map[string]any{"title": "Static"})
	resp, _ := e.do(t, http.MethodPost, "/api/stories/"+static.ID+"/rss-update", token, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<?xml version="1.0"?><rss version="2.0"><channel><title>F</title>
			<item><title>One</title><link>https://e.com/1</link></item>
			</channel></rss>`)
	}))
	defer feed.Close()

	dynamic := e.createStory(t, token, map[string]any{
		"title":      "Feed",
		"story_type": "dynamic",
		"rss_config": map[string]any{
			"feed_url": feed.URL, "refresh_interval": 30, "max_posts": 5, "active": true,
		},
	})

	resp, body := e.do(t, http.MethodGet, "/api/stories/"+dynamic.ID+"/rss-status", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), `"status":null`, "no job before the first run")

	resp, _ = e.do(t, http.MethodPost, "/api/stories/"+dynamic.ID+"/rss-update", token, nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	require.Eventually(t, func() bool {
		_, body := e.do(t, http.MethodGet, "/api/stories/"+dynamic.ID+"/rss-status", token, nil)
		var job rss.Job
		if err := json.Unmarshal(body, &job); err != nil {
			return false
		}
		return job.Status == rss.StatusCompleted
	}, 5*time.Second, 50*time.Millisecond)

	resp, body = e.do(t, http.MethodGet, "/api/stories/"+dynamic.ID, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got model.Story
	require.NoError(t, json.Unmarshal(body, &got))
	require.NotEmpty(t, got.Frames)
}

func TestAdminEndpoints(t *testing.T) {
	e := newTestEnv(t)
	userID, token := e.register(t, "a@example.com", "Alice")
	adminToken := e.registerAdmin(t)

	e.createStory(t, token, map[string]any{"title": "Alpha"})
	e.createStory(t, token, map[string]any{"title": "Beta"})

	// Regular users are kept out.
	resp, _ := e.do(t, http.MethodGet, "/api/admin/stats", token, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := e.do(t, http.MethodGet, "/api/admin/stats", adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stats model.AdminStats
	require.NoError(t, json.Unmarshal(body, &stats))
	require.Equal(t, 2, stats.Users)
	require.Equal(t, 2, stats.Stories)

	resp, body = e.do(t, http.MethodGet, "/api/admin/users?sortBy=email&sortOrder=asc&limit=1", adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var users struct {
		Items      []model.User             `json:"items"`
		Pagination model.PaginationResponse `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(body, &users))
	require.Len(t, users.Items, 1)
	require.Equal(t, "a@example.com", users.Items[0].Email)
	require.Equal(t, 2, users.Pagination.TotalItems)
	require.Equal(t, 2, users.Pagination.TotalPages)

	resp, body = e.do(t, http.MethodGet, "/api/admin/stories?search=Alpha", adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stories struct {
		Items []model.Story `json:"items"`
	}
	require.NoError(t, json.Unmarshal(body, &stories))
	require.Len(t, stories.Items, 1)
	require.Equal(t, "Alpha", stories.Items[0].Title)

	resp, _ = e.do(t, http.MethodGet, "/api/admin/users/"+userID+"/analytics", adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = e.do(t, http.MethodGet, "/api/admin/users/missing/analytics", adminToken, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = e.do(t, http.MethodDelete, "/api/admin/stories/"+stories.Items[0].ID, adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	e := newTestEnv(t)
	e.do(t, http.MethodGet, "/healthz", "", nil)

	resp, body := e.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), "snappy_http_requests_total")
}
