// Package adslot tracks ad-library slot definitions so a logical placement
// is never defined or displayed twice.
package adslot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/UndrAds/snappy-sub001/internal/model"
)

// AdService is the surface of the external ad library the registry drives.
// The production implementation fronts the publisher-tag script; tests use
// an in-memory fake.
type AdService interface {
	// LoadLibrary makes the ad script available. Called once per process.
	LoadLibrary(ctx context.Context) error
	// EnableSingleRequest and EnableAsyncRendering switch the library modes.
	// Called once, after LoadLibrary.
	EnableSingleRequest() error
	EnableAsyncRendering() error
	// DefineSlot registers a slot for the element. Returns an error if the
	// library rejects the definition.
	DefineSlot(adUnitPath string, sizes []model.AdSize, elementID string) error
	// HasSlotForElement reports whether the library already tracks a slot
	// bound to the element.
	HasSlotForElement(elementID string) bool
	// Display renders the slot attached to the element.
	Display(elementID string) error
	// Destroy removes the slot attached to the element.
	Destroy(elementID string) error
}

// GPTService caches the publisher-tag script and keeps the library-side slot
// bookkeeping for the embedded player.
type GPTService struct {
	scriptURL string
	client    *http.Client

	mu     sync.Mutex
	script []byte
	slots  map[string]struct{} // element id -> defined
	single bool
	async  bool
}

// NewGPTService creates a service that fetches the ad script from scriptURL.
func NewGPTService(scriptURL string) *GPTService {
	return &GPTService{
		scriptURL: scriptURL,
		client:    &http.Client{Timeout: 10 * time.Second},
		slots:     make(map[string]struct{}),
	}
}

// LoadLibrary downloads and caches the ad script.
func (g *GPTService) LoadLibrary(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.scriptURL, nil)
	if err != nil {
		return fmt.Errorf("build ad script request: %w", err)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch ad script: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch ad script: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read ad script: %w", err)
	}
	g.mu.Lock()
	g.script = body
	g.mu.Unlock()
	return nil
}

// Script returns the cached library script for serving to players.
func (g *GPTService) Script() []byte {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.script
}

// EnableSingleRequest switches the library to single-request mode.
func (g *GPTService) EnableSingleRequest() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.single = true
	return nil
}

// EnableAsyncRendering switches the library to async rendering.
func (g *GPTService) EnableAsyncRendering() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.async = true
	return nil
}

// DefineSlot records a slot definition for the element.
func (g *GPTService) DefineSlot(adUnitPath string, sizes []model.AdSize, elementID string) error {
	if adUnitPath == "" {
		return fmt.Errorf("empty ad unit path for element %s", elementID)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.slots[elementID]; ok {
		return fmt.Errorf("slot already defined for element %s", elementID)
	}
	g.slots[elementID] = struct{}{}
	return nil
}

// HasSlotForElement reports whether a slot is bound to the element.
func (g *GPTService) HasSlotForElement(elementID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.slots[elementID]
	return ok
}

// Display is a no-op server side; the player renders the slot.
func (g *GPTService) Display(elementID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.slots[elementID]; !ok {
		return fmt.Errorf("no slot defined for element %s", elementID)
	}
	return nil
}

// Destroy drops the library-side slot for the element.
func (g *GPTService) Destroy(elementID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.slots, elementID)
	return nil
}
