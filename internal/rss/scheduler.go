package rss

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/UndrAds/snappy-sub001/internal/database"
	"github.com/UndrAds/snappy-sub001/internal/model"
)

// Scheduler periodically regenerates active dynamic stories whose next
// update is due.
type Scheduler struct {
	store     database.Store
	generator *Generator
	tracker   *Tracker
	interval  time.Duration
	log       *logrus.Entry

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewScheduler creates a background refresh scheduler.
func NewScheduler(store database.Store, gen *Generator, interval time.Duration, log *logrus.Logger) *Scheduler {
	return &Scheduler{
		store:     store,
		generator: gen,
		tracker:   gen.Tracker(),
		interval:  interval,
		log:       log.WithField("service", "rss-scheduler"),
		stopChan:  make(chan struct{}),
	}
}

// Start begins the scan loop.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			s.runOnce()
			select {
			case <-s.stopChan:
				return
			case <-time.After(s.interval):
			}
		}
	}()
}

// Stop stops the scheduler gracefully.
func (s *Scheduler) Stop() {
	close(s.stopChan)
	s.wg.Wait()
}

func (s *Scheduler) runOnce() {
	due, err := s.store.ListDueDynamicStories(time.Now().UTC())
	if err != nil {
		s.log.WithError(err).Error("failed to scan for due stories")
		return
	}
	if len(due) == 0 {
		return
	}

	// SQLite serializes writes; keep a single worker there.
	workers := 1
	if s.store.SupportsHighConcurrency() {
		workers = 4
	}
	s.log.WithFields(logrus.Fields{"due": len(due), "workers": workers}).Info("refreshing dynamic stories")

	jobs := make(chan model.Story, len(due))
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for story := range jobs {
				s.refresh(story)
			}
		}()
	}
	for _, story := range due {
		jobs <- story
	}
	close(jobs)
	wg.Wait()
}

func (s *Scheduler) refresh(story model.Story) {
	if !s.tracker.Start(story.ID) {
		// A manual update is already running for this story.
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := s.generator.Generate(ctx, &story); err != nil {
		s.log.WithError(err).WithField("story", story.ID).Error("scheduled refresh failed")
	}
}
