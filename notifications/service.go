package notifications

import (
	"sync"
	"time"

	"github.com/weeksdev/duckfinder/browser"
)

// EventType represents the type of notification event
type EventType string

const (
	EventConnected EventType = "connected"
	EventDirectory EventType = EventType(browser.EventDirectory)
	EventSnapshot  EventType = EventType(browser.EventSnapshot)
	EventOutput    EventType = EventType(browser.EventOutput)
	EventWatchLost EventType = EventType(browser.EventWatchLost)
	EventError     EventType = EventType(browser.EventError)
)

// subscriberBuffer absorbs bursts of command output
const subscriberBuffer = 256

// Event represents a notification event
type Event struct {
	Type      EventType `json:"type"`
	Timestamp int64     `json:"timestamp"`
	Path      string    `json:"path,omitempty"`
	Data      any       `json:"data,omitempty"`
}

// FromBrowser converts a controller event into its wire form
func FromBrowser(ev browser.Event) Event {
	out := Event{
		Type:      EventType(ev.Type),
		Timestamp: time.Now().UnixMilli(),
		Path:      ev.Dir,
	}
	switch {
	case ev.Snapshot != nil:
		out.Data = ev.Snapshot
	case ev.Output != nil:
		out.Data = ev.Output
	case ev.Error != "":
		out.Data = map[string]string{"message": ev.Error}
	}
	return out
}

// Service fans view events out to stream subscribers
type Service struct {
	mu          sync.RWMutex
	subscribers map[chan Event]struct{}
	done        chan struct{}
	dropped     uint64
}

// NewService creates a new notification service
func NewService() *Service {
	return &Service{
		subscribers: make(map[chan Event]struct{}),
		done:        make(chan struct{}),
	}
}

// Subscribe creates a new subscription channel
// Returns the event channel and an unsubscribe function
func (s *Service) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	s.mu.Lock()
	select {
	case <-s.done:
		// Already shut down: hand back a closed channel
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	default:
	}
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	unsubscribe := func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		// Only close if the channel is still in subscribers map
		if _, exists := s.subscribers[ch]; exists {
			delete(s.subscribers, ch)
			close(ch)
		}
	}

	return ch, unsubscribe
}

// Notify broadcasts an event to all subscribers
func (s *Service) Notify(event Event) {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for ch := range s.subscribers {
		select {
		case ch <- event:
		default:
			// Subscriber is too slow; it can resync from /api/state
			s.dropped++
		}
	}
}

// Pump forwards controller events until the channel closes
func (s *Service) Pump(events <-chan browser.Event) {
	for ev := range events {
		s.Notify(FromBrowser(ev))
	}
}

// Shutdown closes the notification service
func (s *Service) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.done:
		return
	default:
	}
	close(s.done)

	// Close all subscriber channels
	for ch := range s.subscribers {
		close(ch)
	}
	s.subscribers = make(map[chan Event]struct{})
}

// SubscriberCount returns the number of active subscribers
func (s *Service) SubscriberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers)
}

// Dropped returns how many deliveries were skipped for slow subscribers
func (s *Service) Dropped() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dropped
}
