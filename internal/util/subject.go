// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import "sync"

// Subject fans a value out to subscribed observers. Delivery is synchronous:
// Publish returns only after every observer has run, and deliveries never
// overlap, so observers see events in the order they were published.
//
// The zero value is ready to use.
type Subject[T any] struct {
	mu        sync.Mutex
	observers []observer[T]
	nextID    uint64

	// Delivery tickets: issued counts reserved slots, turn is the slot
	// allowed to deliver now.
	issued uint64
	turn   uint64
	cond   *sync.Cond
}

type observer[T any] struct {
	id uint64
	fn func(T)
}

// Subscribe registers fn and returns a function that removes it. The
// returned function is idempotent.
func (s *Subject[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.observers = append(s.observers, observer[T]{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, o := range s.observers {
				if o.id == id {
					s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
					return
				}
			}
		})
	}
}

// Hold reserves the next delivery slot and returns the function that
// performs it. Reserving never blocks, so stores call Hold while still
// holding their own state lock, release that lock, then publish. Events
// reach observers in reservation order and observers remain free to read
// the store.
//
// The returned function must be called exactly once; a slot that is never
// published stalls every later one.
func (s *Subject[T]) Hold() (publish func(T)) {
	s.mu.Lock()
	if s.cond == nil {
		s.cond = sync.NewCond(&s.mu)
	}
	ticket := s.issued
	s.issued++
	s.mu.Unlock()

	return func(v T) {
		s.mu.Lock()
		for s.turn != ticket {
			s.cond.Wait()
		}
		snapshot := make([]observer[T], len(s.observers))
		copy(snapshot, s.observers)
		s.mu.Unlock()

		defer func() {
			s.mu.Lock()
			s.turn++
			s.cond.Broadcast()
			s.mu.Unlock()
		}()
		for _, o := range snapshot {
			o.fn(v)
		}
	}
}

// Publish delivers v to all current observers. An observer must not publish
// to the same subject from inside its callback.
func (s *Subject[T]) Publish(v T) {
	s.Hold()(v)
}

// Len returns the number of subscribed observers.
func (s *Subject[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.observers)
}
