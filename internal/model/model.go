// Package model defines shared data structures.
package model

import (
	"errors"
	"fmt"
	"time"
)

// Role controls access to the admin surface.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is an account that owns stories.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Story format and device-frame enums.
const (
	FormatPortrait  = "portrait"
	FormatLandscape = "landscape"

	DeviceMobile      = "mobile"
	DeviceVideoPlayer = "video-player"

	TypeStatic  = "static"
	TypeDynamic = "dynamic"
)

// StoryStatus is the publication state of a story.
type StoryStatus string

const (
	StatusDraft     StoryStatus = "draft"
	StatusPublished StoryStatus = "published"
	StatusArchived  StoryStatus = "archived"
)

// Story is an ordered sequence of frames plus publisher metadata.
type Story struct {
	ID            string       `json:"id"`
	UserID        string       `json:"user_id"`
	Title         string       `json:"title"`
	PublisherName string       `json:"publisher_name"`
	PublisherLogo string       `json:"publisher_logo,omitempty"`
	Format        string       `json:"format"`
	Device        string       `json:"device"`
	StoryType     string       `json:"story_type"`
	Status        StoryStatus  `json:"status"`
	Frames        []Frame      `json:"frames"`
	RSS           *RSSConfig   `json:"rss_config,omitempty"`
	Embed         *EmbedConfig `json:"embed_config,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// FrameType distinguishes narrative frames from inserted ads.
type FrameType string

const (
	FrameStory FrameType = "story"
	FrameAd    FrameType = "ad"
)

// Frame is one step of a story's playback sequence.
type Frame struct {
	Type       FrameType  `json:"type"`
	Order      int        `json:"order"`
	Link       string     `json:"link,omitempty"`
	DurationMS int        `json:"duration_ms,omitempty"`
	Ad         *AdConfig  `json:"ad_config,omitempty"`
	Elements   []Element  `json:"elements,omitempty"`
	Background Background `json:"background"`
}

// AdConfig configures an ad frame's slot.
type AdConfig struct {
	SlotID     string   `json:"slot_id,omitempty"`
	AdUnitPath string   `json:"ad_unit_path"`
	Sizes      []AdSize `json:"sizes,omitempty"`
}

// AdSize is a pixel width/height pair for an ad slot.
type AdSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ElementType tags the variant carried by an Element.
type ElementType string

const (
	ElementText  ElementType = "text"
	ElementImage ElementType = "image"
	ElementShape ElementType = "shape"
)

// Element is a positioned item on a frame. Exactly one of Text, Image or
// Shape must be set, matching Type.
type Element struct {
	ID       string      `json:"id"`
	Type     ElementType `json:"type"`
	X        float64     `json:"x"`
	Y        float64     `json:"y"`
	Width    float64     `json:"width"`
	Height   float64     `json:"height"`
	Rotation float64     `json:"rotation,omitempty"`
	Opacity  float64     `json:"opacity,omitempty"`

	Text  *TextProps  `json:"text,omitempty"`
	Image *ImageProps `json:"image,omitempty"`
	Shape *ShapeProps `json:"shape,omitempty"`
}

// TextProps styles a text element.
type TextProps struct {
	Content    string `json:"content"`
	FontFamily string `json:"font_family,omitempty"`
	FontSize   int    `json:"font_size,omitempty"`
	FontWeight string `json:"font_weight,omitempty"`
	Color      string `json:"color,omitempty"`
	Align      string `json:"align,omitempty"`
}

// ImageProps styles an image element.
type ImageProps struct {
	Src       string `json:"src"`
	Alt       string `json:"alt,omitempty"`
	ObjectFit string `json:"object_fit,omitempty"`
	Filter    string `json:"filter,omitempty"`
}

// ShapeProps styles a shape element.
type ShapeProps struct {
	Kind   string `json:"kind"`
	Fill   string `json:"fill,omitempty"`
	Stroke string `json:"stroke,omitempty"`
}

// BackgroundType is the kind of media behind a frame.
type BackgroundType string

const (
	BackgroundColor BackgroundType = "color"
	BackgroundImage BackgroundType = "image"
	BackgroundVideo BackgroundType = "video"
)

// Background is the single backdrop of a frame.
type Background struct {
	Type     BackgroundType `json:"type"`
	Value    string         `json:"value"`
	Zoom     float64        `json:"zoom,omitempty"`
	Rotation float64        `json:"rotation,omitempty"`
	OffsetX  float64        `json:"offset_x,omitempty"`
	OffsetY  float64        `json:"offset_y,omitempty"`
	Filter   string         `json:"filter,omitempty"`
}

// Ad insertion strategies for RSS-generated stories.
const (
	AdStrategyStartEnd  = "start-end"
	AdStrategyAlternate = "alternate"
	AdStrategyInterval  = "interval"
)

// RSSConfig drives automatic frame generation for a dynamic story.
type RSSConfig struct {
	FeedURL         string     `json:"feed_url"`
	RefreshInterval int        `json:"refresh_interval"` // minutes
	MaxPosts        int        `json:"max_posts"`
	Active          bool       `json:"active"`
	AdStrategy      string     `json:"ad_strategy,omitempty"`
	AdInterval      int        `json:"ad_interval,omitempty"`
	LastUpdate      *time.Time `json:"last_update,omitempty"`
	NextUpdate      *time.Time `json:"next_update,omitempty"`
}

// EmbedConfig controls how the story player renders on a host page.
type EmbedConfig struct {
	Floater       bool   `json:"floater"`
	Direction     string `json:"direction,omitempty"`
	TriggerScroll int    `json:"trigger_scroll,omitempty"` // percent of page scrolled
	Position      string `json:"position,omitempty"`
	Size          string `json:"size,omitempty"`
	ShowClose     bool   `json:"show_close"`
	AutoHide      bool   `json:"auto_hide"`
	AutoHideDelay int    `json:"auto_hide_delay,omitempty"` // milliseconds
}

// StoryView is one recorded playback event.
type StoryView struct {
	ID         int64     `json:"id"`
	StoryID    string    `json:"story_id"`
	FrameIndex int       `json:"frame_index"`
	Event      string    `json:"event"` // view, frame, cta
	OccurredAt time.Time `json:"occurred_at"`
}

// StoryAnalytics aggregates view events for one story.
type StoryAnalytics struct {
	StoryID    string `json:"story_id"`
	Title      string `json:"title"`
	Views      int    `json:"views"`
	FrameViews int    `json:"frame_views"`
	CTAClicks  int    `json:"cta_clicks"`
}

// AdminStats is the admin dashboard headline counters.
type AdminStats struct {
	Users          int `json:"users"`
	Stories        int `json:"stories"`
	DynamicStories int `json:"dynamic_stories"`
	Views          int `json:"views"`
}

var errElementPayload = errors.New("element payload does not match declared type")

// Validate checks that exactly the payload matching Type is present.
func (e *Element) Validate() error {
	switch e.Type {
	case ElementText:
		if e.Text == nil || e.Image != nil || e.Shape != nil {
			return errElementPayload
		}
	case ElementImage:
		if e.Image == nil || e.Text != nil || e.Shape != nil {
			return errElementPayload
		}
	case ElementShape:
		if e.Shape == nil || e.Text != nil || e.Image != nil {
			return errElementPayload
		}
	default:
		return fmt.Errorf("unknown element type %q", e.Type)
	}
	return nil
}

// Validate checks frame type, background and element variants.
func (f *Frame) Validate() error {
	switch f.Type {
	case FrameStory, FrameAd:
	default:
		return fmt.Errorf("unknown frame type %q", f.Type)
	}
	switch f.Background.Type {
	case BackgroundColor, BackgroundImage, BackgroundVideo:
	default:
		return fmt.Errorf("unknown background type %q", f.Background.Type)
	}
	if f.Type == FrameAd && f.Ad == nil {
		return errors.New("ad frame requires ad_config")
	}
	for i := range f.Elements {
		if err := f.Elements[i].Validate(); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return nil
}

// Validate checks required fields, enums and the whole frame tree.
func (s *Story) Validate() error {
	if s.Title == "" {
		return errors.New("title is required")
	}
	if s.Format != FormatPortrait && s.Format != FormatLandscape {
		return fmt.Errorf("unknown format %q", s.Format)
	}
	if s.Device != DeviceMobile && s.Device != DeviceVideoPlayer {
		return fmt.Errorf("unknown device %q", s.Device)
	}
	if s.StoryType != TypeStatic && s.StoryType != TypeDynamic {
		return fmt.Errorf("unknown story type %q", s.StoryType)
	}
	switch s.Status {
	case StatusDraft, StatusPublished, StatusArchived:
	default:
		return fmt.Errorf("unknown status %q", s.Status)
	}
	if s.StoryType == TypeDynamic && s.RSS == nil {
		return errors.New("dynamic story requires rss_config")
	}
	for i := range s.Frames {
		if err := s.Frames[i].Validate(); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
	}
	return nil
}

// NormalizeFrames rewrites order values to be contiguous and monotonic,
// keeping the current sequence.
func NormalizeFrames(frames []Frame) {
	for i := range frames {
		frames[i].Order = i
	}
}
