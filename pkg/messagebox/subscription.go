package messagebox

import (
	"context"
	"sync"
)

// QueuedSubscription is a Subscription that delivers pushed messages in order on its own goroutine.
// A slow handler never blocks the pusher.
type QueuedSubscription struct {
	onMessage func(PeerMessage)
	onClose   func()

	mu        sync.Mutex
	queue     []PeerMessage
	notify    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewQueuedSubscription starts the delivery loop. onClose (optional) runs once when the subscription ends,
// either by Close or by ctx being done.
func NewQueuedSubscription(ctx context.Context, onMessage func(PeerMessage), onClose func()) *QueuedSubscription {
	s := &QueuedSubscription{
		onMessage: onMessage,
		onClose:   onClose,
		notify:    make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	go s.run(ctx)
	return s
}

// Push enqueues the message for delivery. Messages pushed after Close are dropped.
func (s *QueuedSubscription) Push(msg PeerMessage) {
	s.mu.Lock()
	if s.isClosed() {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, msg)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Close stops the delivery. A handler call already in progress is allowed to finish,
// but no new one starts after Close returns.
func (s *QueuedSubscription) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		close(s.done)
		s.queue = nil
		s.mu.Unlock()

		if s.onClose != nil {
			s.onClose()
		}
	})
	return nil
}

// Done is closed when the subscription ends.
func (s *QueuedSubscription) Done() <-chan struct{} {
	return s.done
}

func (s *QueuedSubscription) run(ctx context.Context) {
	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			_ = s.Close()
			return
		case <-s.notify:
		}

		for {
			msg, ok := s.next()
			if !ok {
				break
			}
			s.onMessage(msg)
		}
	}
}

func (s *QueuedSubscription) next() (PeerMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isClosed() || len(s.queue) == 0 {
		return PeerMessage{}, false
	}
	msg := s.queue[0]
	s.queue = s.queue[1:]
	return msg, true
}

// isClosed must be called with mu held.
func (s *QueuedSubscription) isClosed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}
