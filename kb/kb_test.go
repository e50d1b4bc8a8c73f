package kb

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/paulmach/orb"

	"github.com/signalsfoundry/campus-mobility/model"
)

func mustHub(t *testing.T, name string) *model.Hub {
	t.Helper()
	h, err := model.NewHub(name, orb.Polygon{orb.Ring{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}})
	if err != nil {
		t.Fatalf("NewHub(%q) error: %v", name, err)
	}
	return h
}

func TestAddAndGetHub(t *testing.T) {
	store := NewKnowledgeBase()
	if err := store.AddHub(mustHub(t, "h1")); err != nil {
		t.Fatalf("AddHub error: %v", err)
	}
	got := store.GetHub("h1")
	if got == nil || got.Name() != "h1" {
		t.Fatalf("GetHub returned %v, want h1", got)
	}
	if store.GetHub("missing") != nil {
		t.Fatalf("expected nil for unknown hub")
	}
}

func TestAddHubDuplicate(t *testing.T) {
	store := NewKnowledgeBase()
	if err := store.AddHub(mustHub(t, "h1")); err != nil {
		t.Fatalf("first AddHub error: %v", err)
	}
	if err := store.AddHub(mustHub(t, "h1")); !errors.Is(err, ErrHubExists) {
		t.Fatalf("expected ErrHubExists, got %v", err)
	}
}

func TestAddLocationHubValidation(t *testing.T) {
	store := NewKnowledgeBase()
	h := mustHub(t, "hall")
	loc, err := model.NewLocation(h, model.ActivityLecture, 5)
	if err != nil {
		t.Fatalf("NewLocation error: %v", err)
	}
	if err := store.AddLocation(loc); !errors.Is(err, ErrHubNotFound) {
		t.Fatalf("expected ErrHubNotFound, got %v", err)
	}
	if err := store.AddHub(h); err != nil {
		t.Fatalf("AddHub error: %v", err)
	}
	if err := store.AddLocation(loc); err != nil {
		t.Fatalf("AddLocation error: %v", err)
	}
	if err := store.AddLocation(loc); !errors.Is(err, ErrLocationExists) {
		t.Fatalf("expected ErrLocationExists, got %v", err)
	}
}

func TestListingIsSortedAndFiltered(t *testing.T) {
	store := NewKnowledgeBase()
	for i, typ := range []model.ActivityType{model.ActivityStudy, model.ActivityMensa, model.ActivityStudy} {
		h := mustHub(t, fmt.Sprintf("loc-%d", 2-i))
		if err := store.AddHub(h); err != nil {
			t.Fatalf("AddHub error: %v", err)
		}
		l, _ := model.NewLocation(h, typ, 1)
		if err := store.AddLocation(l); err != nil {
			t.Fatalf("AddLocation error: %v", err)
		}
	}

	hubs := store.ListHubs()
	if len(hubs) != 3 || hubs[0].Name() != "loc-0" || hubs[2].Name() != "loc-2" {
		t.Fatalf("ListHubs not sorted: %v", hubs)
	}
	study := store.LocationsByType(model.ActivityStudy)
	if len(study) != 2 || study[0].Name() != "loc-0" || study[1].Name() != "loc-2" {
		t.Fatalf("LocationsByType(STUDY) = %v", study)
	}
}

func TestResetCapacities(t *testing.T) {
	store := NewKnowledgeBase()
	h := mustHub(t, "hall")
	_ = store.AddHub(h)
	l, _ := model.NewLocation(h, model.ActivityLecture, 1)
	_ = store.AddLocation(l)

	store.ResetCapacities(4)
	if !l.TryReserve(2) {
		t.Fatalf("expected reservation to succeed after reset")
	}
	store.ResetCapacities(4)
	if got := l.Remaining(2); got != 1 {
		t.Fatalf("Remaining(2) after second reset = %d, want 1", got)
	}
}

func TestConcurrentReads(t *testing.T) {
	store := NewKnowledgeBase()
	for i := range 10 {
		if err := store.AddHub(mustHub(t, fmt.Sprintf("h-%d", i))); err != nil {
			t.Fatalf("AddHub error: %v", err)
		}
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 10 {
				if store.GetHub(fmt.Sprintf("h-%d", i)) == nil {
					t.Errorf("hub h-%d missing", i)
				}
			}
			_ = store.ListHubs()
		}()
	}
	wg.Wait()
}
