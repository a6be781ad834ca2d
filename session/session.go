package session

import (
	"sync"
	"time"

	"snake-server/models"
)

// Session is one connected player's binding to the engine. The game loop is
// the only writer of game state; a Session only carries the outbound
// snapshot queues and the liveness clock, both safe for concurrent use.
type Session struct {
	ID       string
	JoinedAt time.Time

	depth int

	mu       sync.Mutex
	lastBeat time.Time
	subs     map[uint64]chan models.Snapshot
	nextSub  uint64
	closed   bool
}

func New(id string, queueDepth int, now time.Time) *Session {
	return &Session{
		ID:       id,
		JoinedAt: now,
		depth:    queueDepth,
		lastBeat: now,
		subs:     make(map[uint64]chan models.Snapshot),
	}
}

// Touch refreshes the heartbeat clock.
func (s *Session) Touch(now time.Time) {
	s.mu.Lock()
	s.lastBeat = now
	s.mu.Unlock()
}

func (s *Session) LastBeat() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastBeat
}

// Subscribe opens a bounded snapshot queue. The cancel func detaches the
// subscriber; the channel also closes when the session is closed. On an
// already-closed session the returned channel is closed immediately.
func (s *Session) Subscribe() (<-chan models.Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan models.Snapshot, s.depth)
	if s.closed {
		close(ch)
		return ch, func() {}
	}

	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers a snapshot to every subscriber without blocking. A full
// queue has its oldest snapshot dropped first: latest state wins.
func (s *Session) Publish(snap models.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for _, ch := range s.subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

// Close ends all subscriber streams. Safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}
