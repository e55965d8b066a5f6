package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/UndrAds/snappy-sub001/internal/model"
)

var (
	userSortFields  = []string{"created_at", "email", "name"}
	storySortFields = []string{"created_at", "updated_at", "title", "status"}
)

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats()
	if err != nil {
		s.storeError(w, err, "load stats")
		return
	}
	s.respond(w, http.StatusOK, stats)
}

func (s *Server) handleAdminUsers(w http.ResponseWriter, r *http.Request) {
	p := listParamsFromQuery(r)
	p.Normalize(userSortFields, "created_at")

	users, total, err := s.store.ListUsers(p)
	if err != nil {
		s.storeError(w, err, "list users")
		return
	}
	if users == nil {
		users = []model.User{}
	}
	s.respond(w, http.StatusOK, map[string]any{
		"items":      users,
		"pagination": model.NewPaginationResponse(total, p),
	})
}

func (s *Server) handleAdminStories(w http.ResponseWriter, r *http.Request) {
	p := model.StoryListParams{
		ListParams: listParamsFromQuery(r),
		Status:     model.StoryStatus(r.URL.Query().Get("status")),
		UserID:     r.URL.Query().Get("user_id"),
	}
	p.Normalize(storySortFields, "created_at")

	stories, total, err := s.store.ListStories(p)
	if err != nil {
		s.storeError(w, err, "list stories")
		return
	}
	if stories == nil {
		stories = []model.Story{}
	}
	s.respond(w, http.StatusOK, map[string]any{
		"items":      stories,
		"pagination": model.NewPaginationResponse(total, p.ListParams),
	})
}

func (s *Server) handleAdminUserAnalytics(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if _, err := s.store.GetUserByID(userID); err != nil {
		s.storeError(w, err, "get user")
		return
	}
	analytics, err := s.store.UserStoriesAnalytics(userID)
	if err != nil {
		s.storeError(w, err, "load user analytics")
		return
	}
	if analytics == nil {
		analytics = []model.StoryAnalytics{}
	}
	s.respond(w, http.StatusOK, map[string]any{"stories": analytics})
}

func (s *Server) handleAdminDeleteStory(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteStory(chi.URLParam(r, "storyID")); err != nil {
		s.storeError(w, err, "delete story")
		return
	}
	s.respond(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func listParamsFromQuery(r *http.Request) model.ListParams {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	return model.ListParams{
		Page:      page,
		Limit:     limit,
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
		Search:    q.Get("search"),
	}
}
