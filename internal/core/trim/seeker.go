// Copyright 2025 Oskar Olofsson
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// This file implements debounced, deduplicated seeking against the preview
// surface. Fast dragging produces a burst of positions; without the debounce
// and the in-flight suppression, slower decoders fall behind and the visible
// frame desynchronizes from the slider thumb.
package trim

import (
	"sync"
	"time"
)

// MediaSurface is the seam to the element actually rendering the preview.
// Seek starts moving the playhead; the surface reports completion back
// through Seeker.Completed. Some mobile decoders never deliver that
// completion, which is why the seeker carries a force-clear fallback.
type MediaSurface interface {
	Seek(seconds float64)
}

// Seeker coalesces seek requests. A request only reaches the surface after a
// quiet period, and while one seek is in flight new requests are dropped
// rather than queued: the next debounce window picks up the latest position
// anyway.
type Seeker struct {
	mu       sync.Mutex
	surface  MediaSurface
	debounce time.Duration
	fallback time.Duration

	pending       *time.Timer
	fallbackTimer *time.Timer
	seeking       bool
	closed        bool
}

// NewSeeker creates a seeker over the given surface with the configured
// debounce quiet period and completion fallback.
func NewSeeker(surface MediaSurface, debounce, fallback time.Duration) *Seeker {
	return &Seeker{surface: surface, debounce: debounce, fallback: fallback}
}

// Request asks for the playhead to move to the given position. Any not-yet
// fired request is replaced, so only the latest position survives a drag
// burst.
func (s *Seeker) Request(seconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.pending != nil {
		s.pending.Stop()
	}
	s.pending = time.AfterFunc(s.debounce, func() { s.fire(seconds) })
}

// fire performs the debounced seek unless one is already in flight.
func (s *Seeker) fire(seconds float64) {
	s.mu.Lock()
	if s.closed || s.seeking {
		s.mu.Unlock()
		return
	}
	s.seeking = true
	if s.fallbackTimer != nil {
		s.fallbackTimer.Stop()
	}
	// Force-clear in case the surface never reports completion.
	s.fallbackTimer = time.AfterFunc(s.fallback, s.forceClear)
	surface := s.surface
	s.mu.Unlock()

	// The surface may call Completed synchronously; the lock is released
	// before handing off.
	surface.Seek(seconds)
}

// Completed is invoked by the surface when the seek finished; it re-opens
// the seeker for the next request.
func (s *Seeker) Completed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seeking = false
	if s.fallbackTimer != nil {
		s.fallbackTimer.Stop()
		s.fallbackTimer = nil
	}
}

// forceClear drops the in-flight flag after the fallback delay.
func (s *Seeker) forceClear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seeking = false
	s.fallbackTimer = nil
}

// Seeking reports whether a seek is currently in flight.
func (s *Seeker) Seeking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seeking
}

// Close stops both timers and refuses further requests. Required on
// teardown: a leaked timer firing into a torn-down pipeline is a correctness
// bug, not just a resource leak.
func (s *Seeker) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
	}
	if s.fallbackTimer != nil {
		s.fallbackTimer.Stop()
		s.fallbackTimer = nil
	}
	s.seeking = false
}
