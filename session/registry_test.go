package session

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	id   string
	open bool
	fail bool

	mu   sync.Mutex
	sent []interface{}
}

func (s *fakeSession) ID() string   { return s.id }
func (s *fakeSession) IsOpen() bool { return s.open }

func (s *fakeSession) Send(v interface{}) error {
	if s.fail {
		return errors.New("send failed")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, v)
	return nil
}

func (s *fakeSession) sentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func TestRegistryAddRemove(t *testing.T) {
	r := NewRegistry()
	s := &fakeSession{id: "s1", open: true}

	r.Add(s)
	assert.Equal(t, 1, r.Len())

	got, ok := r.Get("s1")
	require.True(t, ok)
	assert.Equal(t, "s1", got.ID())

	r.Remove("s1")
	assert.Equal(t, 0, r.Len())
	_, ok = r.Get("s1")
	assert.False(t, ok)
}

func TestRegistryRemoveIsIdempotent(t *testing.T) {
	r := NewRegistry()
	r.Add(&fakeSession{id: "s1", open: true})

	r.Remove("s1")
	r.Remove("s1")
	r.Remove("never-added")
	assert.Equal(t, 0, r.Len())
}

func TestRegistryAddReplacesSameID(t *testing.T) {
	r := NewRegistry()
	first := &fakeSession{id: "s1", open: true}
	second := &fakeSession{id: "s1", open: true}

	r.Add(first)
	r.Add(second)
	assert.Equal(t, 1, r.Len())

	got, _ := r.Get("s1")
	assert.Same(t, second, got.(*fakeSession))
}

func TestBroadcastDeliversToAllOpenSessions(t *testing.T) {
	r := NewRegistry()
	sessions := make([]*fakeSession, 5)
	for i := range sessions {
		sessions[i] = &fakeSession{id: fmt.Sprintf("s%d", i), open: true}
		r.Add(sessions[i])
	}

	r.Broadcast("hello")

	for _, s := range sessions {
		assert.Equal(t, 1, s.sentCount(), "session %s", s.id)
	}
	assert.Equal(t, 5, r.Len())
}

func TestBroadcastPrunesExactlyTheDeadSessions(t *testing.T) {
	r := NewRegistry()
	alive1 := &fakeSession{id: "alive1", open: true}
	closed := &fakeSession{id: "closed", open: false}
	failing := &fakeSession{id: "failing", open: true, fail: true}
	alive2 := &fakeSession{id: "alive2", open: true}
	for _, s := range []*fakeSession{alive1, closed, failing, alive2} {
		r.Add(s)
	}

	r.Broadcast("update")

	// Every open session still received the message.
	assert.Equal(t, 1, alive1.sentCount())
	assert.Equal(t, 1, alive2.sentCount())
	assert.Equal(t, 0, closed.sentCount())

	// Only the closed and failing ones were pruned.
	assert.Equal(t, 2, r.Len())
	_, ok := r.Get("closed")
	assert.False(t, ok)
	_, ok = r.Get("failing")
	assert.False(t, ok)
	_, ok = r.Get("alive1")
	assert.True(t, ok)
}

func TestBroadcastRacesWithRegistration(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < 10; i++ {
		r.Add(&fakeSession{id: fmt.Sprintf("s%d", i), open: true})
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			r.Broadcast(i)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 10; i < 110; i++ {
			r.Add(&fakeSession{id: fmt.Sprintf("s%d", i), open: true})
			r.Remove(fmt.Sprintf("s%d", i-10))
		}
	}()
	wg.Wait()

	assert.Equal(t, 10, r.Len())
}

func TestTrackWork(t *testing.T) {
	r := NewRegistry()
	r.TrackWork()

	done := make(chan struct{})
	go func() {
		r.WaitForCompletion()
		close(done)
	}()

	r.DoneWork()
	<-done
}
