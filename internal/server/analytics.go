package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/UndrAds/snappy-sub001/internal/auth"
	"github.com/UndrAds/snappy-sub001/internal/model"
)

var viewEvents = map[string]bool{"view": true, "frame": true, "cta": true}

// handleRecordView accepts playback events from the embedded player. The
// endpoint is public; bad events are rejected, storage failures degrade to
// a logged 500 without breaking playback.
func (s *Server) handleRecordView(w http.ResponseWriter, r *http.Request) {
	var v model.StoryView
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if v.StoryID == "" || !viewEvents[v.Event] {
		s.respondError(w, http.StatusBadRequest, "story_id and a known event are required")
		return
	}
	v.OccurredAt = time.Now().UTC()

	if _, err := s.store.GetStory(v.StoryID); err != nil {
		s.storeError(w, err, "get story for view")
		return
	}
	if err := s.store.RecordView(&v); err != nil {
		s.storeError(w, err, "record view")
		return
	}
	s.respond(w, http.StatusCreated, map[string]string{"status": "recorded"})
}

// handleUserAnalytics returns per-story aggregates for the caller's stories.
func (s *Server) handleUserAnalytics(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.UserFrom(r.Context())
	analytics, err := s.store.UserStoriesAnalytics(u.ID)
	if err != nil {
		s.storeError(w, err, "load analytics")
		return
	}
	if analytics == nil {
		analytics = []model.StoryAnalytics{}
	}
	s.respond(w, http.StatusOK, map[string]any{"stories": analytics})
}
