package rss

import (
	"context"
	"fmt"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/sirupsen/logrus"

	"github.com/UndrAds/snappy-sub001/internal/database"
	"github.com/UndrAds/snappy-sub001/internal/model"
)

// DefaultMaxPosts caps generated frames when the config leaves it unset.
const DefaultMaxPosts = 10

// DefaultAdUnitPath is used for inserted ad frames without explicit config.
const DefaultAdUnitPath = "/snappy/story"

// Generator turns a story's configured feed into frames.
type Generator struct {
	store   database.Store
	tracker *Tracker
	parser  *gofeed.Parser
	log     *logrus.Entry

	// minRefresh is the floor applied to a story's refresh interval.
	minRefresh time.Duration
}

// NewGenerator creates a generator writing through the given store.
func NewGenerator(store database.Store, tracker *Tracker, minRefreshMinutes int, log *logrus.Logger) *Generator {
	return &Generator{
		store:      store,
		tracker:    tracker,
		parser:     gofeed.NewParser(),
		log:        log.WithField("service", "rss-generator"),
		minRefresh: time.Duration(minRefreshMinutes) * time.Minute,
	}
}

// Tracker exposes the job tracker for status handlers.
func (g *Generator) Tracker() *Tracker {
	return g.tracker
}

// Generate fetches the story's feed, rebuilds its frames and persists the
// result, reporting progress through the tracker. The job must have been
// started on the tracker by the caller.
func (g *Generator) Generate(ctx context.Context, story *model.Story) error {
	log := g.log.WithField("story", story.ID)
	if story.RSS == nil {
		err := fmt.Errorf("story %s has no rss config", story.ID)
		g.tracker.Fail(story.ID, err.Error())
		return err
	}
	cfg := *story.RSS

	g.tracker.Progress(story.ID, 10, "Fetching feed", 0, 0)
	feed, err := g.parser.ParseURLWithContext(cfg.FeedURL, ctx)
	if err != nil {
		g.tracker.Fail(story.ID, "Failed to fetch feed")
		return fmt.Errorf("parse feed %s: %w", cfg.FeedURL, err)
	}

	frames := BuildFrames(feed, cfg)
	g.tracker.Progress(story.ID, 70, "Building frames", len(frames), len(frames))

	frames = InsertAdFrames(frames, cfg)
	model.NormalizeFrames(frames)
	story.Frames = frames
	story.UpdatedAt = time.Now().UTC()

	g.tracker.Progress(story.ID, 90, "Saving story", countStoryFrames(frames), countStoryFrames(frames))
	if err := g.store.UpdateStory(story); err != nil {
		g.tracker.Fail(story.ID, "Failed to save generated frames")
		return fmt.Errorf("save story %s: %w", story.ID, err)
	}

	last := time.Now().UTC()
	next := last.Add(g.refreshInterval(cfg))
	if err := g.store.SetRSSTimestamps(story.ID, last, next); err != nil {
		log.WithError(err).Warn("failed to record refresh timestamps")
	}

	g.tracker.Complete(story.ID, countStoryFrames(frames))
	log.WithField("frames", len(frames)).Info("story regenerated from feed")
	return nil
}

func (g *Generator) refreshInterval(cfg model.RSSConfig) time.Duration {
	iv := time.Duration(cfg.RefreshInterval) * time.Minute
	if iv < g.minRefresh {
		iv = g.minRefresh
	}
	return iv
}

// BuildFrames converts feed items into story frames: a headline text element
// over an image background when the item carries one, a color background
// otherwise.
func BuildFrames(feed *gofeed.Feed, cfg model.RSSConfig) []model.Frame {
	max := cfg.MaxPosts
	if max <= 0 {
		max = DefaultMaxPosts
	}
	items := feed.Items
	if len(items) > max {
		items = items[:max]
	}

	frames := make([]model.Frame, 0, len(items))
	for i, item := range items {
		bg := model.Background{Type: model.BackgroundColor, Value: "#000000"}
		if img := itemImage(item); img != "" {
			bg = model.Background{Type: model.BackgroundImage, Value: img}
		}
		frames = append(frames, model.Frame{
			Type:  model.FrameStory,
			Order: i,
			Link:  item.Link,
			Elements: []model.Element{{
				ID:     fmt.Sprintf("headline-%d", i),
				Type:   model.ElementText,
				X:      5,
				Y:      70,
				Width:  90,
				Height: 20,
				Text: &model.TextProps{
					Content:    item.Title,
					FontWeight: "bold",
					Color:      "#ffffff",
				},
			}},
			Background: bg,
		})
	}
	return frames
}

func itemImage(item *gofeed.Item) string {
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	for _, enc := range item.Enclosures {
		if enc.URL != "" {
			return enc.URL
		}
	}
	return ""
}

// InsertAdFrames applies the configured ad insertion strategy to a list of
// story frames. Inserted frames carry the default ad config.
func InsertAdFrames(frames []model.Frame, cfg model.RSSConfig) []model.Frame {
	if len(frames) == 0 {
		return frames
	}
	switch cfg.AdStrategy {
	case model.AdStrategyStartEnd:
		out := make([]model.Frame, 0, len(frames)+2)
		out = append(out, frames[0], adFrame())
		// With fewer than three story frames the "before last" slot would sit
		// right next to the "after first" ad, so only the first ad is kept.
		if len(frames) > 2 {
			out = append(out, frames[1:len(frames)-1]...)
			out = append(out, adFrame())
		}
		if len(frames) > 1 {
			out = append(out, frames[len(frames)-1])
		}
		return out
	case model.AdStrategyAlternate:
		out := make([]model.Frame, 0, len(frames)*2)
		for _, f := range frames {
			out = append(out, f, adFrame())
		}
		return out
	case model.AdStrategyInterval:
		n := cfg.AdInterval
		if n <= 0 {
			return frames
		}
		out := make([]model.Frame, 0, len(frames)+len(frames)/n)
		for i, f := range frames {
			out = append(out, f)
			if (i+1)%n == 0 {
				out = append(out, adFrame())
			}
		}
		return out
	default:
		return frames
	}
}

func adFrame() model.Frame {
	return model.Frame{
		Type: model.FrameAd,
		Ad: &model.AdConfig{
			AdUnitPath: DefaultAdUnitPath,
			Sizes:      []model.AdSize{{Width: 300, Height: 250}},
		},
		Background: model.Background{Type: model.BackgroundColor, Value: "#111111"},
	}
}

func countStoryFrames(frames []model.Frame) int {
	n := 0
	for _, f := range frames {
		if f.Type == model.FrameStory {
			n++
		}
	}
	return n
}
