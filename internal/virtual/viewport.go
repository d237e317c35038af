package virtual

import (
	"sync"

	"pkt.systems/gridstate/schema"
)

// ViewportProvider abstracts the scroll container a window is computed for.
type ViewportProvider interface {
	ScrollOffset() float64
	ViewportSize() float64
	// Subscribe registers fn for scroll and resize notifications and
	// returns a function that removes it.
	Subscribe(fn func()) (unsubscribe func())
}

// StaticViewport is a settable ViewportProvider.
type StaticViewport struct {
	mu     sync.Mutex
	offset float64
	size   float64
	nextID int
	subs   map[int]func()
}

// NewStaticViewport creates a viewport at offset with the given size.
func NewStaticViewport(offset, size float64) *StaticViewport {
	return &StaticViewport{offset: offset, size: size, subs: make(map[int]func())}
}

// ScrollOffset returns the current offset.
func (s *StaticViewport) ScrollOffset() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offset
}

// ViewportSize returns the current size.
func (s *StaticViewport) ViewportSize() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// Subscribe registers fn.
func (s *StaticViewport) Subscribe(fn func()) func() {
	if fn == nil {
		return func() {}
	}
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// ScrollTo moves the offset and notifies subscribers.
func (s *StaticViewport) ScrollTo(offset float64) {
	s.mu.Lock()
	changed := s.offset != offset
	s.offset = offset
	s.mu.Unlock()
	if changed {
		s.notify()
	}
}

// Resize changes the size and notifies subscribers.
func (s *StaticViewport) Resize(size float64) {
	s.mu.Lock()
	changed := s.size != size
	s.size = size
	s.mu.Unlock()
	if changed {
		s.notify()
	}
}

func (s *StaticViewport) notify() {
	s.mu.Lock()
	subs := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
}

// Observe computes a window for the provider's current viewport, passes it
// to fn, and recomputes on every provider notification until the returned
// stop function is called.
func Observe(provider ViewportProvider, v *Virtualizer, fn func(schema.Window)) (stop func()) {
	if provider == nil || v == nil || fn == nil {
		return func() {}
	}
	recompute := func() {
		fn(v.Compute(provider.ScrollOffset(), provider.ViewportSize()))
	}
	unsubscribe := provider.Subscribe(recompute)
	recompute()
	return unsubscribe
}
