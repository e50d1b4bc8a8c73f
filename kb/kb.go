package kb

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/samber/lo"

	"github.com/signalsfoundry/campus-mobility/model"
)

var (
	ErrHubExists        = errors.New("hub already exists")
	ErrHubNotFound      = errors.New("hub not found")
	ErrLocationExists   = errors.New("location already exists")
	ErrLocationBadInput = errors.New("invalid location")
)

// KnowledgeBase is an in-memory, thread-safe store for hubs and the typed
// locations built on top of them.
type KnowledgeBase struct {
	mu sync.RWMutex

	hubs      map[string]*model.Hub
	locations map[string]*model.Location
}

// NewKnowledgeBase constructs an empty KB.
func NewKnowledgeBase() *KnowledgeBase {
	return &KnowledgeBase{
		hubs:      make(map[string]*model.Hub),
		locations: make(map[string]*model.Location),
	}
}

// AddHub adds a new hub. It returns an error if the name already exists.
func (kb *KnowledgeBase) AddHub(h *model.Hub) error {
	if h == nil {
		return fmt.Errorf("nil hub")
	}
	kb.mu.Lock()
	defer kb.mu.Unlock()

	if _, exists := kb.hubs[h.Name()]; exists {
		return fmt.Errorf("%w: %q", ErrHubExists, h.Name())
	}
	kb.hubs[h.Name()] = h
	return nil
}

// AddLocation registers a schedulable location. The underlying hub must have
// been added first.
func (kb *KnowledgeBase) AddLocation(l *model.Location) error {
	if l == nil || l.Hub == nil {
		return ErrLocationBadInput
	}
	kb.mu.Lock()
	defer kb.mu.Unlock()

	hub, ok := kb.hubs[l.Name()]
	if !ok {
		return fmt.Errorf("%w: %q", ErrHubNotFound, l.Name())
	}
	if hub != l.Hub {
		return fmt.Errorf("%w: %q does not reference the registered hub", ErrLocationBadInput, l.Name())
	}
	if _, exists := kb.locations[l.Name()]; exists {
		return fmt.Errorf("%w: %q", ErrLocationExists, l.Name())
	}
	kb.locations[l.Name()] = l
	return nil
}

// GetHub returns the hub with the given name, or nil if not found.
func (kb *KnowledgeBase) GetHub(name string) *model.Hub {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return kb.hubs[name]
}

// GetLocation returns the location with the given name, or nil if not found.
func (kb *KnowledgeBase) GetLocation(name string) *model.Location {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return kb.locations[name]
}

// ListHubs returns a snapshot of all hubs ordered by name.
func (kb *KnowledgeBase) ListHubs() []*model.Hub {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	res := lo.Values(kb.hubs)
	sort.Slice(res, func(i, j int) bool { return res[i].Name() < res[j].Name() })
	return res
}

// ListLocations returns a snapshot of all locations ordered by name.
func (kb *KnowledgeBase) ListLocations() []*model.Location {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	res := lo.Values(kb.locations)
	sort.Slice(res, func(i, j int) bool { return res[i].Name() < res[j].Name() })
	return res
}

// LocationsByType returns the locations of one activity type ordered by name.
func (kb *KnowledgeBase) LocationsByType(t model.ActivityType) []*model.Location {
	return lo.Filter(kb.ListLocations(), func(l *model.Location, _ int) bool {
		return l.Type == t
	})
}

// ResetCapacities restores every location's per-slot capacity for nSlots
// timeslots.
func (kb *KnowledgeBase) ResetCapacities(nSlots int) {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	for _, l := range kb.locations {
		l.ResetCapacity(nSlots)
	}
}
