package pipeline

import (
	"sort"
	"sync"
	"sync/atomic"

	"doctor_reputation/internal/domain"
)

// Source is one registry entry. Capabilities a source lacks are left nil.
type Source struct {
	ID       string
	Name     string
	Priority int // lower runs first in search mode

	Profiles   domain.ProfileSearcher
	Speciality domain.SpecialitySearcher
	Reviews    domain.ReviewCollector
	Policy     domain.ReportPolicy

	active atomic.Bool
}

func (s *Source) Active() bool { return s.active.Load() }

// SourceInfo is the read-only view exposed to callers.
type SourceInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Priority int    `json:"priority"`
	Active   bool   `json:"active"`
	Reports  bool   `json:"reports"`
}

// Registry holds the known sources. Lookups and Active snapshots are safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	byID    map[string]*Source
	ordered []*Source
}

func NewRegistry(sources ...*Source) *Registry {
	r := &Registry{byID: map[string]*Source{}}
	for _, s := range sources {
		r.Register(s, true)
	}
	return r
}

// Register adds or replaces a source.
func (r *Registry) Register(s *Source, active bool) {
	s.active.Store(active)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[s.ID]; ok {
		for i, o := range r.ordered {
			if o.ID == s.ID {
				r.ordered = append(r.ordered[:i], r.ordered[i+1:]...)
				break
			}
		}
	}
	r.byID[s.ID] = s
	r.ordered = append(r.ordered, s)
	sort.SliceStable(r.ordered, func(i, j int) bool { return r.ordered[i].Priority < r.ordered[j].Priority })
}

// SetActive flips a source on or off.
func (r *Registry) SetActive(id string, active bool) error {
	r.mu.RLock()
	s, ok := r.byID[id]
	r.mu.RUnlock()
	if !ok {
		return domain.E(domain.KindInvalidSource, "invalid source "+id, nil)
	}
	s.active.Store(active)
	return nil
}

// Lookup resolves an explicitly selected source.
func (r *Registry) Lookup(id string) (*Source, error) {
	r.mu.RLock()
	s, ok := r.byID[id]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.E(domain.KindInvalidSource, "invalid source specified", nil)
	}
	if !s.Active() {
		return nil, domain.E(domain.KindSourceInactive, id+" is currently inactive", nil)
	}
	return s, nil
}

// Active returns the active sources in priority order.
func (r *Registry) Active() []*Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Source, 0, len(r.ordered))
	for _, s := range r.ordered {
		if s.Active() {
			out = append(out, s)
		}
	}
	return out
}

func (r *Registry) List() []SourceInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]SourceInfo, 0, len(r.ordered))
	for _, s := range r.ordered {
		out = append(out, SourceInfo{ID: s.ID, Name: s.Name, Priority: s.Priority, Active: s.Active(), Reports: s.Reviews != nil})
	}
	return out
}
