package drafts

import (
	"sync"
	"time"
)

// Registry provides thread-safe in-memory storage of one working store per editor
type Registry struct {
	mu     sync.RWMutex
	stores map[string]*WorkingStore
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		stores: make(map[string]*WorkingStore),
	}
}

// Open returns the editor's working store, creating one with the empty template on first use
func (r *Registry) Open(actorID string) *WorkingStore {
	r.mu.RLock()
	ws, ok := r.stores[actorID]
	r.mu.RUnlock()
	if ok {
		return ws
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if ws, ok := r.stores[actorID]; ok {
		return ws
	}
	ws = NewWorkingStore()
	r.stores[actorID] = ws
	return ws
}

// Get retrieves the editor's working store if it exists
func (r *Registry) Get(actorID string) (*WorkingStore, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ws, exists := r.stores[actorID]
	return ws, exists
}

// Delete discards the editor's working store. Uploads already dispatched by a commit keep running.
func (r *Registry) Delete(actorID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.stores, actorID)
}

// GetEditorInfo returns which club an editor has open and when it last changed
func (r *Registry) GetEditorInfo(actorID string) (clubID string, updatedAt time.Time, exists bool) {
	ws, exists := r.Get(actorID)
	if !exists {
		return "", time.Time{}, false
	}

	return ws.ClubID(), ws.UpdatedAt(), true
}

// EditorsOf lists the editors whose working copy is the given club
func (r *Registry) EditorsOf(clubID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	for actor, ws := range r.stores {
		if ws.ClubID() == clubID {
			out = append(out, actor)
		}
	}
	return out
}

// Count returns the total number of open working stores
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.stores)
}
