// Package bus multicasts per-job progress events to live observers.
//
// Events are observational: the authoritative job state lives in the job
// store. Publishing never blocks the pipeline; when no observer is attached,
// or an observer's queue is full, events are dropped.
package bus

import (
	"errors"
	"sync"
)

// ErrAlreadySubscribed indicates a second concurrent subscription for a job id.
var ErrAlreadySubscribed = errors.New("job already has a subscriber")

// Bus fans progress strings out to at most one subscriber per job id.
type Bus struct {
	mu     sync.Mutex
	buffer int
	subs   map[string]*Subscription
}

// Subscription is one observer's delivery queue for one job id.
type Subscription struct {
	bus    *Bus
	jobID  string
	events chan string
	once   sync.Once
}

// New returns a bus whose subscriber queues hold up to buffer events.
func New(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 1
	}
	return &Bus{
		buffer: buffer,
		subs:   make(map[string]*Subscription),
	}
}

// Subscribe registers a delivery queue for the job id. A job supports one
// live subscriber at a time; a second subscribe fails until the first is
// closed.
func (b *Bus) Subscribe(jobID string) (*Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subs[jobID]; exists {
		return nil, ErrAlreadySubscribed
	}
	sub := &Subscription{
		bus:    b,
		jobID:  jobID,
		events: make(chan string, b.buffer),
	}
	b.subs[jobID] = sub
	return sub, nil
}

// Publish enqueues an event for the job's subscriber. Events are dropped
// when no subscriber is attached or the subscriber's queue is full. The
// return value reports whether the event was enqueued.
func (b *Bus) Publish(jobID, event string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, ok := b.subs[jobID]
	if !ok {
		return false
	}

	// The send stays under the lock so Close cannot close the channel
	// between the lookup and the send. The select keeps it non-blocking.
	select {
	case sub.events <- event:
		return true
	default:
		return false
	}
}

// Events returns the subscriber's delivery channel. The channel is closed
// when the subscription is closed.
func (s *Subscription) Events() <-chan string {
	return s.events
}

// Close deregisters the subscription and closes its delivery channel.
// Closing twice is safe.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		defer s.bus.mu.Unlock()
		if current, ok := s.bus.subs[s.jobID]; ok && current == s {
			delete(s.bus.subs, s.jobID)
		}
		close(s.events)
	})
}
