package embed

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRequiredAttributes(t *testing.T) {
	_, err := Parse(map[string]string{AttrAPIURL: "https://api.example.com"})
	require.Error(t, err)

	_, err = Parse(map[string]string{AttrStoryID: "s1"})
	require.Error(t, err)
}

func TestParseDefaults(t *testing.T) {
	tag, err := Parse(map[string]string{
		AttrStoryID: "s1",
		AttrAPIURL:  "https://api.example.com",
	})
	require.NoError(t, err)

	require.False(t, tag.Config.Floater)
	require.Equal(t, DefaultDirection, tag.Config.Direction)
	require.Equal(t, DefaultTriggerScroll, tag.Config.TriggerScroll)
	require.Equal(t, DefaultPosition, tag.Config.Position)
	require.Equal(t, DefaultSize, tag.Config.Size)
	require.True(t, tag.Config.ShowClose)
	require.False(t, tag.Config.AutoHide)
	require.Equal(t, DefaultAutoHideDelay, tag.Config.AutoHideDelay)
}

func TestParseFloaterOptions(t *testing.T) {
	tag, err := Parse(map[string]string{
		AttrStoryID:       "s1",
		AttrAPIURL:        "https://api.example.com",
		AttrFloater:       "true",
		AttrDirection:     "left",
		AttrTriggerScroll: "80",
		AttrPosition:      "bottom-left",
		AttrSize:          "large",
		AttrShowClose:     "false",
		AttrAutoHide:      "true",
		AttrAutoHideDelay: "9000",
	})
	require.NoError(t, err)

	require.True(t, tag.Config.Floater)
	require.Equal(t, "left", tag.Config.Direction)
	require.Equal(t, 80, tag.Config.TriggerScroll)
	require.Equal(t, "bottom-left", tag.Config.Position)
	require.Equal(t, "large", tag.Config.Size)
	require.False(t, tag.Config.ShowClose)
	require.True(t, tag.Config.AutoHide)
	require.Equal(t, 9000, tag.Config.AutoHideDelay)
}

func TestParseIgnoresMalformedValues(t *testing.T) {
	tag, err := Parse(map[string]string{
		AttrStoryID:       "s1",
		AttrAPIURL:        "https://api.example.com",
		AttrFloater:       "yep",
		AttrTriggerScroll: "half",
	})
	require.NoError(t, err)
	require.False(t, tag.Config.Floater)
	require.Equal(t, DefaultTriggerScroll, tag.Config.TriggerScroll)
}

func TestAttrsInlineOmitsFloaterOptions(t *testing.T) {
	tag, err := Parse(map[string]string{
		AttrStoryID: "s1",
		AttrAPIURL:  "https://api.example.com",
	})
	require.NoError(t, err)

	attrs := tag.Attrs()
	require.Equal(t, map[string]string{
		AttrStoryID: "s1",
		AttrAPIURL:  "https://api.example.com",
	}, attrs)
}

func TestAttrsRoundTrip(t *testing.T) {
	in := map[string]string{
		AttrStoryID:       "s1",
		AttrAPIURL:        "https://api.example.com",
		AttrFloater:       "true",
		AttrDirection:     "up",
		AttrTriggerScroll: "50",
		AttrPosition:      "bottom-right",
		AttrSize:          "medium",
		AttrShowClose:     "true",
		AttrAutoHide:      "true",
		AttrAutoHideDelay: "5000",
	}
	tag, err := Parse(in)
	require.NoError(t, err)

	out := tag.Attrs()
	roundTripped, err := Parse(out)
	require.NoError(t, err)
	require.Equal(t, tag, roundTripped)
}

func TestSnippet(t *testing.T) {
	tag, err := Parse(map[string]string{
		AttrStoryID: "s1",
		AttrAPIURL:  "https://api.example.com",
		AttrFloater: "true",
	})
	require.NoError(t, err)

	got := tag.Snippet("https://cdn.example.com/embed.js")
	want := `<script src="https://cdn.example.com/embed.js"` +
		` data-story-id="s1" data-api-url="https://api.example.com"` +
		` data-floater="true" data-direction="up" data-trigger-scroll="50"` +
		` data-position="bottom-right" data-size="medium"` +
		` data-show-close="true" data-auto-hide="false" async></script>`
	require.Equal(t, want, got)
}

func TestSnippetEscapesValues(t *testing.T) {
	tag := &Tag{StoryID: `s"1`, APIURL: "https://api.example.com"}
	got := tag.Snippet("https://cdn.example.com/embed.js")
	require.Contains(t, got, `data-story-id="s&#34;1"`)
	require.NotContains(t, got, `s"1"`)
}
