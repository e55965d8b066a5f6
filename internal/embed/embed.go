// Package embed handles the script-tag attribute contract for the story
// player widget on host pages.
package embed

import (
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/UndrAds/snappy-sub001/internal/model"
)

// Attribute names of the embed script tag.
const (
	AttrStoryID       = "data-story-id"
	AttrAPIURL        = "data-api-url"
	AttrFloater       = "data-floater"
	AttrDirection     = "data-direction"
	AttrTriggerScroll = "data-trigger-scroll"
	AttrPosition      = "data-position"
	AttrSize          = "data-size"
	AttrShowClose     = "data-show-close"
	AttrAutoHide      = "data-auto-hide"
	AttrAutoHideDelay = "data-auto-hide-delay"
)

// Floater defaults applied when the host page omits an attribute.
const (
	DefaultDirection     = "up"
	DefaultTriggerScroll = 50
	DefaultPosition      = "bottom-right"
	DefaultSize          = "medium"
	DefaultAutoHideDelay = 5000
)

// Tag is the decoded embed script tag.
type Tag struct {
	StoryID string
	APIURL  string
	Config  model.EmbedConfig
}

// Parse decodes the data attributes of an embed script tag, filling
// defaults for omitted floater options.
func Parse(attrs map[string]string) (*Tag, error) {
	storyID := attrs[AttrStoryID]
	if storyID == "" {
		return nil, errors.New("data-story-id is required")
	}
	apiURL := attrs[AttrAPIURL]
	if apiURL == "" {
		return nil, errors.New("data-api-url is required")
	}

	cfg := model.EmbedConfig{
		Floater:       parseBool(attrs[AttrFloater], false),
		Direction:     orDefault(attrs[AttrDirection], DefaultDirection),
		TriggerScroll: parseInt(attrs[AttrTriggerScroll], DefaultTriggerScroll),
		Position:      orDefault(attrs[AttrPosition], DefaultPosition),
		Size:          orDefault(attrs[AttrSize], DefaultSize),
		ShowClose:     parseBool(attrs[AttrShowClose], true),
		AutoHide:      parseBool(attrs[AttrAutoHide], false),
		AutoHideDelay: parseInt(attrs[AttrAutoHideDelay], DefaultAutoHideDelay),
	}
	return &Tag{StoryID: storyID, APIURL: apiURL, Config: cfg}, nil
}

// Attrs serializes the tag back into attribute form. Inline (non-floater)
// embeds omit the floater options.
func (t *Tag) Attrs() map[string]string {
	attrs := map[string]string{
		AttrStoryID: t.StoryID,
		AttrAPIURL:  t.APIURL,
	}
	if !t.Config.Floater {
		return attrs
	}
	attrs[AttrFloater] = "true"
	attrs[AttrDirection] = t.Config.Direction
	attrs[AttrTriggerScroll] = strconv.Itoa(t.Config.TriggerScroll)
	attrs[AttrPosition] = t.Config.Position
	attrs[AttrSize] = t.Config.Size
	attrs[AttrShowClose] = strconv.FormatBool(t.Config.ShowClose)
	attrs[AttrAutoHide] = strconv.FormatBool(t.Config.AutoHide)
	if t.Config.AutoHide {
		attrs[AttrAutoHideDelay] = strconv.Itoa(t.Config.AutoHideDelay)
	}
	return attrs
}

// Snippet renders the copy-paste script tag the dashboard shows.
// Attributes are emitted in a fixed order so snippets are stable.
func (t *Tag) Snippet(scriptURL string) string {
	attrs := t.Attrs()
	order := []string{
		AttrStoryID, AttrAPIURL, AttrFloater, AttrDirection, AttrTriggerScroll,
		AttrPosition, AttrSize, AttrShowClose, AttrAutoHide, AttrAutoHideDelay,
	}
	var b strings.Builder
	fmt.Fprintf(&b, `<script src="%s"`, html.EscapeString(scriptURL))
	for _, name := range order {
		if v, ok := attrs[name]; ok {
			fmt.Fprintf(&b, ` %s="%s"`, name, html.EscapeString(v))
		}
	}
	b.WriteString(" async></script>")
	return b.String()
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func parseBool(v string, def bool) bool {
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func parseInt(v string, def int) int {
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
