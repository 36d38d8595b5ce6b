// Package state provides an observable value holder for display state
package state

import "sync"

// Cell holds a value of type T and notifies subscribers after every change.
// All mutations go through a single lock so a subscriber never observes a
// partially applied update. Notifications are delivered in update order.
type Cell[T any] struct {
	// notify serialises updates with their notifications; mu guards the
	// fields below and is never held while a subscriber runs
	notify sync.Mutex
	mu     sync.Mutex
	value  T
	nextID int
	subs   map[int]func(T)
}

// NewCell creates a cell holding the initial value
func NewCell[T any](initial T) *Cell[T] {
	return &Cell[T]{
		value: initial,
		subs:  make(map[int]func(T)),
	}
}

// Get returns the current value
func (c *Cell[T]) Get() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Set replaces the current value
func (c *Cell[T]) Set(v T) {
	c.Update(func(T) T { return v })
}

// Update applies fn to the current value and stores the result, then
// calls every subscriber with the new value in unspecified order.
// Subscribers run without the value lock, so they may call Get, but they
// must not update the cell.
func (c *Cell[T]) Update(fn func(T) T) {
	c.notify.Lock()
	defer c.notify.Unlock()

	c.mu.Lock()
	c.value = fn(c.value)
	v := c.value
	subs := make([]func(T), 0, len(c.subs))
	for _, sub := range c.subs {
		subs = append(subs, sub)
	}
	c.mu.Unlock()

	for _, sub := range subs {
		sub(v)
	}
}

// Subscribe registers fn to be called after every change and returns a
// function that removes the subscription
func (c *Cell[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	c.subs[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}
