// Package rss generates story frames from feeds and tracks generation jobs.
package rss

import (
	"sync"
	"time"
)

// Status is the lifecycle state of a generation job.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job is the observable state of one story's generation run.
type Job struct {
	StoryID         string    `json:"story_id"`
	Status          Status    `json:"status"`
	Progress        int       `json:"progress"`
	Message         string    `json:"message,omitempty"`
	FramesGenerated int       `json:"frames_generated,omitempty"`
	TotalFrames     int       `json:"total_frames,omitempty"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Tracker keeps in-memory job state per story. Terminal states are sticky
// and progress never regresses.
type Tracker struct {
	mu   sync.Mutex
	jobs map[string]*Job
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{jobs: make(map[string]*Job)}
}

// Start begins a job for the story. Returns false if one is already
// processing; a finished job may be restarted.
func (t *Tracker) Start(storyID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if j, ok := t.jobs[storyID]; ok && j.Status == StatusProcessing {
		return false
	}
	t.jobs[storyID] = &Job{
		StoryID:   storyID,
		Status:    StatusProcessing,
		UpdatedAt: time.Now().UTC(),
	}
	return true
}

// Progress updates a running job. Updates after a terminal state or with a
// lower percent are dropped.
func (t *Tracker) Progress(storyID string, percent int, message string, generated, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	j, ok := t.jobs[storyID]
	if !ok || j.Status.Terminal() {
		return
	}
	if percent > j.Progress {
		j.Progress = percent
	}
	j.Message = message
	j.FramesGenerated = generated
	j.TotalFrames = total
	j.UpdatedAt = time.Now().UTC()
}

// Complete marks the job successful.
func (t *Tracker) Complete(storyID string, frames int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	j, ok := t.jobs[storyID]
	if !ok || j.Status.Terminal() {
		return
	}
	j.Status = StatusCompleted
	j.Progress = 100
	j.FramesGenerated = frames
	j.TotalFrames = frames
	j.UpdatedAt = time.Now().UTC()
}

// Fail marks the job failed with a message.
func (t *Tracker) Fail(storyID, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	j, ok := t.jobs[storyID]
	if !ok || j.Status.Terminal() {
		return
	}
	j.Status = StatusFailed
	j.Message = message
	j.UpdatedAt = time.Now().UTC()
}

// Get returns a copy of the job for the story.
func (t *Tracker) Get(storyID string) (Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	j, ok := t.jobs[storyID]
	if !ok {
		return Job{}, false
	}
	return *j, true
}
