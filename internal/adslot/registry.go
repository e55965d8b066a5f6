package adslot

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/UndrAds/snappy-sub001/internal/model"
)

// Slot is a tracked ad placement. Transient, never persisted.
type Slot struct {
	ID         string
	AdUnitPath string
	Sizes      []model.AdSize
	ElementID  string
}

// Registry deduplicates slot creation per logical placement id. It is an
// explicitly constructed instance owned by the application root, not a
// package-level singleton.
//
// Ad-library interaction is best effort: errors are logged and reported as
// a false return, never propagated, so the rest of the service stays usable
// when the ad network is unreachable.
type Registry struct {
	svc AdService
	log *logrus.Entry

	initOnce sync.Once
	initErr  error

	mu    sync.Mutex
	slots map[string]Slot
}

// NewRegistry creates a registry driving the given ad service.
func NewRegistry(svc AdService, log *logrus.Logger) *Registry {
	return &Registry{
		svc:   svc,
		log:   log.WithField("service", "adslot"),
		slots: make(map[string]Slot),
	}
}

// Initialize loads the ad library and enables single-request and async
// rendering modes exactly once. Concurrent callers block until the first
// attempt completes and all observe its result.
func (r *Registry) Initialize(ctx context.Context) error {
	r.initOnce.Do(func() {
		if err := r.svc.LoadLibrary(ctx); err != nil {
			r.initErr = err
			return
		}
		if err := r.svc.EnableSingleRequest(); err != nil {
			r.initErr = err
			return
		}
		r.initErr = r.svc.EnableAsyncRendering()
	})
	if r.initErr != nil {
		r.log.WithError(r.initErr).Warn("ad library initialization failed")
	}
	return r.initErr
}

// CreateSlot defines, attaches and displays a slot for the placement id.
// Returns false if the id is already tracked, if the library already has a
// slot on the element, or if any library call fails. A failed display rolls
// the definition back so a later attempt starts clean.
func (r *Registry) CreateSlot(id, adUnitPath string, sizes []model.AdSize, elementID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.slots[id]; ok {
		r.log.WithField("slot", id).Debug("slot already tracked, skipping")
		return false
	}
	// Defensive check against external re-entrancy: the library may track a
	// slot for this element even though the registry does not.
	if r.svc.HasSlotForElement(elementID) {
		r.log.WithFields(logrus.Fields{"slot": id, "element": elementID}).
			Warn("ad library already has a slot for element")
		return false
	}
	if err := r.svc.DefineSlot(adUnitPath, sizes, elementID); err != nil {
		r.log.WithError(err).WithField("slot", id).Warn("define slot failed")
		return false
	}
	if err := r.svc.Display(elementID); err != nil {
		r.log.WithError(err).WithField("slot", id).Warn("display slot failed")
		if derr := r.svc.Destroy(elementID); derr != nil {
			r.log.WithError(derr).WithField("slot", id).Warn("failed to roll back slot definition")
		}
		return false
	}
	r.slots[id] = Slot{ID: id, AdUnitPath: adUnitPath, Sizes: sizes, ElementID: elementID}
	return true
}

// DestroySlot removes a tracked slot. No-op for untracked ids.
func (r *Registry) DestroySlot(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	slot, ok := r.slots[id]
	if !ok {
		return false
	}
	if err := r.svc.Destroy(slot.ElementID); err != nil {
		r.log.WithError(err).WithField("slot", id).Warn("destroy slot failed")
	}
	delete(r.slots, id)
	return true
}

// HasSlot reports whether the id is tracked.
func (r *Registry) HasSlot(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.slots[id]
	return ok
}

// GetSlot returns the tracked slot for the id.
func (r *Registry) GetSlot(id string) (Slot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[id]
	return s, ok
}

// Slots returns a snapshot of all tracked slots.
func (r *Registry) Slots() []Slot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Slot, 0, len(r.slots))
	for _, s := range r.slots {
		out = append(out, s)
	}
	return out
}
