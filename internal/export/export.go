// Package export builds H5-ads creative bundles from stories.
package export

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/UndrAds/snappy-sub001/internal/model"
)

// Export types and their size constraints.
const (
	TypeGoogleAds = "google-ads"
	TypeGeneric   = "generic"

	// GoogleAdsSizeLimit is the initial-load cap for display creatives.
	GoogleAdsSizeLimit = 150 * 1024
)

// Info describes a bundle without the caller having to keep it.
type Info struct {
	ExportType     string `json:"export_type"`
	FrameCount     int    `json:"frame_count"` // story frames only
	FileCount      int    `json:"file_count"`
	EstimatedBytes int64  `json:"estimated_bytes"`
	ExceedsLimit   bool   `json:"exceeds_limit"`
}

type manifest struct {
	StoryID   string        `json:"story_id"`
	Title     string        `json:"title"`
	Type      string        `json:"type"`
	Frames    []model.Frame `json:"frames"`
	Assets    []string      `json:"assets"`
	CreatedAt time.Time     `json:"created_at"`
}

var pageTemplate = template.Must(template.New("index").Parse(`<!doctype html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
</head>
<body data-story-id="{{.StoryID}}" data-frame-count="{{len .Frames}}">
<script src="story.js" async></script>
</body>
</html>
`))

// BuildInfo computes the bundle stats for an export type by building the
// bundle into a counting writer.
func BuildInfo(story *model.Story, exportType string) (*Info, error) {
	var counter countingWriter
	if err := Build(&counter, story, exportType); err != nil {
		return nil, err
	}

	m := buildManifest(story, exportType)
	info := &Info{
		ExportType: exportType,
		FrameCount: storyFrameCount(story.Frames),
		// index.html + manifest.json plus every referenced remote asset.
		FileCount:      2 + len(m.Assets),
		EstimatedBytes: counter.n,
	}
	if exportType == TypeGoogleAds && counter.n > GoogleAdsSizeLimit {
		info.ExceedsLimit = true
	}
	return info, nil
}

// Build writes the zipped bundle to w.
func Build(w io.Writer, story *model.Story, exportType string) error {
	if exportType != TypeGoogleAds && exportType != TypeGeneric {
		return fmt.Errorf("unknown export type %q", exportType)
	}

	zw := zip.NewWriter(w)
	m := buildManifest(story, exportType)

	mf, err := zw.Create("manifest.json")
	if err != nil {
		return fmt.Errorf("create manifest: %w", err)
	}
	enc := json.NewEncoder(mf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	hf, err := zw.Create("index.html")
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	if err := pageTemplate.Execute(hf, m); err != nil {
		return fmt.Errorf("write index: %w", err)
	}

	return zw.Close()
}

func buildManifest(story *model.Story, exportType string) manifest {
	// Ad frames never ship in a creative; the bundle itself is the ad.
	frames := make([]model.Frame, 0, len(story.Frames))
	for _, f := range story.Frames {
		if f.Type == model.FrameStory {
			frames = append(frames, f)
		}
	}
	model.NormalizeFrames(frames)

	return manifest{
		StoryID:   story.ID,
		Title:     story.Title,
		Type:      exportType,
		Frames:    frames,
		Assets:    collectAssets(frames),
		CreatedAt: time.Now().UTC(),
	}
}

// collectAssets lists the remote URLs the creative references, deduplicated
// in first-seen order.
func collectAssets(frames []model.Frame) []string {
	seen := make(map[string]bool)
	var assets []string
	add := func(u string) {
		if u == "" || seen[u] || !strings.Contains(u, "://") {
			return
		}
		seen[u] = true
		assets = append(assets, u)
	}
	for _, f := range frames {
		if f.Background.Type != model.BackgroundColor {
			add(f.Background.Value)
		}
		for _, e := range f.Elements {
			if e.Image != nil {
				add(e.Image.Src)
			}
		}
	}
	return assets
}

func storyFrameCount(frames []model.Frame) int {
	n := 0
	for _, f := range frames {
		if f.Type == model.FrameStory {
			n++
		}
	}
	return n
}

type countingWriter struct {
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	c.n += int64(len(p))
	return len(p), nil
}
