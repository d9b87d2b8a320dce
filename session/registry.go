package session

import (
	"sync"
	"sync/atomic"
)

// Registry is a concurrency-safe mapping from session id to session handle.
// Register/Remove race freely with Range-driven broadcasts; iteration never
// mutates the map, removals are deferred to the caller's batch.
type Registry struct {
	sessions sync.Map
	count    atomic.Int32
	wg       sync.WaitGroup
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Add registers the session under its id, replacing any previous entry with
// the same id.
func (r *Registry) Add(s Session) {
	if _, loaded := r.sessions.Swap(s.ID(), s); !loaded {
		r.count.Add(1)
	}
}

// Remove deletes the session by id. Removing an unknown or already-removed
// id is not an error.
func (r *Registry) Remove(id string) {
	if _, loaded := r.sessions.LoadAndDelete(id); loaded {
		r.count.Add(-1)
	}
}

// Get looks up a session by id.
func (r *Registry) Get(id string) (Session, bool) {
	if v, ok := r.sessions.Load(id); ok {
		return v.(Session), true
	}
	return nil, false
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	return int(r.count.Load())
}

// Range calls fn for every registered session until fn returns false.
func (r *Registry) Range(fn func(s Session) bool) {
	r.sessions.Range(func(_, v interface{}) bool {
		return fn(v.(Session))
	})
}

// Broadcast sends v to every open session. Sessions that are closed or whose
// send fails are removed after the full delivery pass; one bad session never
// blocks the rest.
func (r *Registry) Broadcast(v interface{}) {
	var dead []string
	r.Range(func(s Session) bool {
		if !s.IsOpen() {
			dead = append(dead, s.ID())
			return true
		}
		if err := s.Send(v); err != nil {
			dead = append(dead, s.ID())
		}
		return true
	})
	for _, id := range dead {
		r.Remove(id)
	}
}

// TrackWork marks the start of an in-flight operation on behalf of a session,
// balanced by DoneWork. Shutdown waits for the balance to reach zero.
func (r *Registry) TrackWork() { r.wg.Add(1) }
func (r *Registry) DoneWork()  { r.wg.Done() }

// WaitForCompletion blocks until all tracked work has finished.
func (r *Registry) WaitForCompletion() { r.wg.Wait() }
