// Package player computes what the story player shows for a frame list and
// a current index.
package player

import (
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/UndrAds/snappy-sub001/internal/model"
)

// DefaultFrameDuration applies when a frame has no override.
const DefaultFrameDuration = 5 * time.Second

// FallbackAdSize is used when an ad frame configures no sizes.
var FallbackAdSize = model.AdSize{Width: 300, Height: 250}

// Nav is a navigation action resolved from a tap.
type Nav int

const (
	NavNone Nav = iota
	NavPrev
	NavNext
)

// SlidePosition returns the "Nth of M" counter values for the index. Ad
// frames occupy sequence positions but are invisible to both numbers.
func SlidePosition(frames []model.Frame, index int) (n, m int) {
	m = lo.CountBy(frames, func(f model.Frame) bool { return f.Type == model.FrameStory })
	if index >= len(frames) {
		index = len(frames) - 1
	}
	for i := 0; i <= index && i < len(frames); i++ {
		if frames[i].Type == model.FrameStory {
			n++
		}
	}
	return n, m
}

// Next advances the index without wrapping.
func Next(index, length int) int {
	if index+1 >= length {
		return clamp(index, length)
	}
	return index + 1
}

// Prev steps the index back without wrapping.
func Prev(index int) int {
	if index <= 0 {
		return 0
	}
	return index - 1
}

func clamp(index, length int) int {
	if length == 0 {
		return 0
	}
	if index < 0 {
		return 0
	}
	if index >= length {
		return length - 1
	}
	return index
}

// ResolveTap maps a horizontal tap position to a navigation action: left
// third goes back, right third goes forward, the middle does nothing.
func ResolveTap(x, width float64) Nav {
	if width <= 0 {
		return NavNone
	}
	switch {
	case x < width/3:
		return NavPrev
	case x > width*2/3:
		return NavNext
	default:
		return NavNone
	}
}

// SlotID derives the ad registry key for an ad frame: the configured id if
// present, otherwise one based on the frame's sequence position.
func SlotID(f model.Frame, index int) string {
	if f.Ad != nil && f.Ad.SlotID != "" {
		return f.Ad.SlotID
	}
	return fmt.Sprintf("story-ad-%d", index)
}

// SlotSizes returns the configured sizes or the single fallback size.
func SlotSizes(f model.Frame) []model.AdSize {
	if f.Ad != nil && len(f.Ad.Sizes) > 0 {
		return f.Ad.Sizes
	}
	return []model.AdSize{FallbackAdSize}
}

// FrameDuration returns the frame's display time.
func FrameDuration(f model.Frame) time.Duration {
	if f.DurationMS > 0 {
		return time.Duration(f.DurationMS) * time.Millisecond
	}
	return DefaultFrameDuration
}
