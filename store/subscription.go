package store

import "sync"

// Subscription is one subscriber's view of the state stream. States are
// read from the channel returned by States; the first value is the state
// at subscription time, followed by every later replacement in order.
//
// Delivery is lossless: a slow consumer lags behind but never skips an
// intermediate state. The pending queue is unbounded, so memory use is
// bounded only by consumer lag.
type Subscription[S any] struct {
	out  chan S
	wake chan struct{}
	done chan struct{}
	once sync.Once

	mu    sync.Mutex
	queue []S

	remove func()
}

func newSubscription[S any](buffer int, remove func()) *Subscription[S] {
	sub := &Subscription[S]{
		out:    make(chan S, buffer),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		remove: remove,
	}
	go sub.drain()
	return sub
}

// States returns the channel delivering state values. The channel is
// closed after Unsubscribe (or store Close); pending values may be
// discarded at that point.
func (s *Subscription[S]) States() <-chan S {
	return s.out
}

// Unsubscribe removes the subscription from its store and stops delivery.
// Safe to call more than once.
func (s *Subscription[S]) Unsubscribe() {
	s.once.Do(func() {
		if s.remove != nil {
			s.remove()
		}
		close(s.done)
	})
}

// shutdown stops delivery without the store-removal callback; the store
// uses it during Close after clearing its own registry.
func (s *Subscription[S]) shutdown() {
	s.once.Do(func() {
		close(s.done)
	})
}

// enqueue appends a state to the pending queue and wakes the drainer.
// Never blocks; called from the store with its state lock held.
func (s *Subscription[S]) enqueue(state S) {
	s.mu.Lock()
	s.queue = append(s.queue, state)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// drain moves pending states to the output channel in order until the
// subscription ends.
func (s *Subscription[S]) drain() {
	defer close(s.out)
	for {
		s.mu.Lock()
		pending := s.queue
		s.queue = nil
		s.mu.Unlock()

		for _, state := range pending {
			select {
			case s.out <- state:
			case <-s.done:
				return
			}
		}

		select {
		case <-s.wake:
		case <-s.done:
			return
		}
	}
}
