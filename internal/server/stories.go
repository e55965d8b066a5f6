package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/UndrAds/snappy-sub001/internal/auth"
	"github.com/UndrAds/snappy-sub001/internal/embed"
	"github.com/UndrAds/snappy-sub001/internal/export"
	"github.com/UndrAds/snappy-sub001/internal/model"
	"github.com/UndrAds/snappy-sub001/internal/player"
	"github.com/UndrAds/snappy-sub001/internal/rss"
)

func (s *Server) handleListStories(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.UserFrom(r.Context())
	stories, err := s.store.ListStoriesByOwner(u.ID)
	if err != nil {
		s.storeError(w, err, "list stories")
		return
	}
	if stories == nil {
		stories = []model.Story{}
	}
	s.respond(w, http.StatusOK, map[string]any{"stories": stories})
}

func (s *Server) handleCreateStory(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.UserFrom(r.Context())

	var story model.Story
	if err := json.NewDecoder(r.Body).Decode(&story); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	now := time.Now().UTC()
	story.ID = uuid.NewString()
	story.UserID = u.ID
	story.CreatedAt = now
	story.UpdatedAt = now
	if story.Format == "" {
		story.Format = model.FormatPortrait
	}
	if story.Device == "" {
		story.Device = model.DeviceMobile
	}
	if story.StoryType == "" {
		story.StoryType = model.TypeStatic
	}
	if story.Status == "" {
		story.Status = model.StatusDraft
	}
	if err := story.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.CreateStory(&story); err != nil {
		s.storeError(w, err, "create story")
		return
	}
	s.respond(w, http.StatusCreated, story)
}

func (s *Server) handleGetStory(w http.ResponseWriter, r *http.Request) {
	story, _, ok := s.loadOwnedStory(w, r)
	if !ok {
		return
	}
	s.respond(w, http.StatusOK, story)
}

func (s *Server) handleUpdateStory(w http.ResponseWriter, r *http.Request) {
	story, _, ok := s.loadOwnedStory(w, r)
	if !ok {
		return
	}

	var update model.Story
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Identity and ownership are immutable.
	update.ID = story.ID
	update.UserID = story.UserID
	update.CreatedAt = story.CreatedAt
	update.UpdatedAt = time.Now().UTC()
	if err := update.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.UpdateStory(&update); err != nil {
		s.storeError(w, err, "update story")
		return
	}
	s.respond(w, http.StatusOK, update)
}

func (s *Server) handleDeleteStory(w http.ResponseWriter, r *http.Request) {
	story, _, ok := s.loadOwnedStory(w, r)
	if !ok {
		return
	}
	if err := s.store.DeleteStory(story.ID); err != nil {
		s.storeError(w, err, "delete story")
		return
	}
	s.respond(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleExportInfo(w http.ResponseWriter, r *http.Request) {
	story, _, ok := s.loadOwnedStory(w, r)
	if !ok {
		return
	}
	exportType := r.URL.Query().Get("type")
	if exportType == "" {
		exportType = export.TypeGeneric
	}
	info, err := export.BuildInfo(story, exportType)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respond(w, http.StatusOK, info)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	story, _, ok := s.loadOwnedStory(w, r)
	if !ok {
		return
	}
	exportType := r.URL.Query().Get("type")
	if exportType == "" {
		exportType = export.TypeGeneric
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%s-%s.zip", story.ID, exportType))
	if err := export.Build(w, story, exportType); err != nil {
		// Headers are already written; log and abandon.
		s.log.WithError(err).WithField("story", story.ID).Error("export failed")
	}
}

func (s *Server) handleEmbed(w http.ResponseWriter, r *http.Request) {
	story, _, ok := s.loadOwnedStory(w, r)
	if !ok {
		return
	}
	cfg := model.EmbedConfig{ShowClose: true}
	if story.Embed != nil {
		cfg = *story.Embed
	}
	tag := &embed.Tag{
		StoryID: story.ID,
		APIURL:  apiBaseURL(r),
		Config:  cfg,
	}
	s.respond(w, http.StatusOK, map[string]any{
		"config":  cfg,
		"attrs":   tag.Attrs(),
		"snippet": tag.Snippet(apiBaseURL(r) + "/embed/snappy.js"),
	})
}

func apiBaseURL(r *http.Request) string {
	scheme := "https"
	if r.TLS == nil {
		scheme = "http"
	}
	return scheme + "://" + r.Host
}

// --- RSS handlers ---

func (s *Server) handleRSSStatus(w http.ResponseWriter, r *http.Request) {
	story, _, ok := s.loadOwnedStory(w, r)
	if !ok {
		return
	}
	job, ok := s.tracker.Get(story.ID)
	if !ok {
		// No run yet: status is unknown until the first job starts.
		s.respond(w, http.StatusOK, map[string]any{"story_id": story.ID, "status": nil})
		return
	}
	s.respond(w, http.StatusOK, job)
}

func (s *Server) handleRSSUpdate(w http.ResponseWriter, r *http.Request) {
	story, _, ok := s.loadOwnedStory(w, r)
	if !ok {
		return
	}
	if story.StoryType != model.TypeDynamic || story.RSS == nil {
		s.respondError(w, http.StatusBadRequest, "story has no RSS configuration")
		return
	}
	if !s.tracker.Start(story.ID) {
		s.respondError(w, http.StatusConflict, "update already in progress")
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := s.generator.Generate(ctx, story); err != nil {
			s.log.WithError(err).WithField("story", story.ID).Error("manual rss update failed")
		}
	}()

	job, _ := s.tracker.Get(story.ID)
	s.respond(w, http.StatusAccepted, job)
}

// --- Player ---

// handlePlayerFrame returns the frame at ?index= together with the slide
// counter, navigation targets and, for ad frames, triggers slot creation.
func (s *Server) handlePlayerFrame(w http.ResponseWriter, r *http.Request) {
	story, err := s.store.GetStory(chi.URLParam(r, "storyID"))
	if err != nil {
		s.storeError(w, err, "get story for player")
		return
	}
	if story.Status != model.StatusPublished {
		s.respondError(w, http.StatusNotFound, "not found")
		return
	}
	if len(story.Frames) == 0 {
		s.respondError(w, http.StatusNotFound, "story has no frames")
		return
	}

	index, _ := strconv.Atoi(r.URL.Query().Get("index"))
	if index < 0 {
		index = 0
	}
	if index >= len(story.Frames) {
		index = len(story.Frames) - 1
	}
	frame := story.Frames[index]

	if frame.Type == model.FrameAd {
		slotID := player.SlotID(frame, index)
		adUnitPath := rss.DefaultAdUnitPath
		if frame.Ad != nil && frame.Ad.AdUnitPath != "" {
			adUnitPath = frame.Ad.AdUnitPath
		}
		_ = s.registry.Initialize(r.Context())
		s.registry.CreateSlot(slotID, adUnitPath, player.SlotSizes(frame), "frame-"+slotID)
	}

	n, m := player.SlidePosition(story.Frames, index)
	s.respond(w, http.StatusOK, map[string]any{
		"frame":       frame,
		"index":       index,
		"slide":       n,
		"slide_total": m,
		"prev":        player.Prev(index),
		"next":        player.Next(index, len(story.Frames)),
		"duration_ms": int(player.FrameDuration(frame).Milliseconds()),
	})
}
