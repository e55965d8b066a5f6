package player_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/UndrAds/snappy-sub001/internal/model"
	"github.com/UndrAds/snappy-sub001/internal/player"
)

func frames(types ...model.FrameType) []model.Frame {
	out := make([]model.Frame, len(types))
	for i, ft := range types {
		out[i] = model.Frame{Type: ft, Order: i}
	}
	return out
}

func TestSlidePositionExcludesAdFrames(t *testing.T) {
	// story, ad, story, ad, story
	fs := frames(model.FrameStory, model.FrameAd, model.FrameStory, model.FrameAd, model.FrameStory)

	tests := []struct {
		index   int
		wantN   int
		wantM   int
	}{
		{index: 0, wantN: 1, wantM: 3},
		{index: 1, wantN: 1, wantM: 3}, // on the ad, counter holds
		{index: 2, wantN: 2, wantM: 3},
		{index: 3, wantN: 2, wantM: 3},
		{index: 4, wantN: 3, wantM: 3},
	}
	for _, tc := range tests {
		n, m := player.SlidePosition(fs, tc.index)
		require.Equal(t, tc.wantN, n, "index %d", tc.index)
		require.Equal(t, tc.wantM, m, "index %d", tc.index)
	}
}

func TestNavigationClamps(t *testing.T) {
	require.Equal(t, 0, player.Prev(0), "prev at first frame is a no-op")
	require.Equal(t, 1, player.Prev(2))
	require.Equal(t, 4, player.Next(4, 5), "next at last frame is a no-op")
	require.Equal(t, 3, player.Next(2, 5))
	require.Equal(t, 0, player.Next(0, 0))
}

func TestResolveTap(t *testing.T) {
	tests := []struct {
		name  string
		x     float64
		width float64
		want  player.Nav
	}{
		{"left third", 50, 300, player.NavPrev},
		{"right third", 250, 300, player.NavNext},
		{"middle", 150, 300, player.NavNone},
		{"exact left boundary", 100, 300, player.NavNone},
		{"zero width", 10, 0, player.NavNone},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, player.ResolveTap(tc.x, tc.width))
		})
	}
}

func TestSlotIDAndSizes(t *testing.T) {
	configured := model.Frame{Type: model.FrameAd, Ad: &model.AdConfig{
		SlotID: "sponsor-a",
		Sizes:  []model.AdSize{{Width: 320, Height: 50}},
	}}
	require.Equal(t, "sponsor-a", player.SlotID(configured, 3))
	require.Equal(t, []model.AdSize{{Width: 320, Height: 50}}, player.SlotSizes(configured))

	bare := model.Frame{Type: model.FrameAd, Ad: &model.AdConfig{AdUnitPath: "/x"}}
	require.Equal(t, "story-ad-3", player.SlotID(bare, 3))
	require.Equal(t, []model.AdSize{player.FallbackAdSize}, player.SlotSizes(bare))
}

func TestFrameDuration(t *testing.T) {
	require.Equal(t, player.DefaultFrameDuration, player.FrameDuration(model.Frame{}))
	require.Equal(t, 7*time.Second, player.FrameDuration(model.Frame{DurationMS: 7000}))
}
