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

package trim

import "sync"

// RemoteSurface buffers seek targets for a presentation layer reached over
// HTTP rather than held in process. The server reports the pending target in
// pipeline state; the client seeks its own video element and acknowledges.
type RemoteSurface struct {
	mu      sync.Mutex
	target  float64
	pending bool
}

// Seek implements MediaSurface.
func (s *RemoteSurface) Seek(seconds float64) {
	s.mu.Lock()
	s.target = seconds
	s.pending = true
	s.mu.Unlock()
}

// Pending returns the seek target the client has not yet applied, if any.
func (s *RemoteSurface) Pending() (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target, s.pending
}

// Ack clears the pending target once the client reports the seek applied.
func (s *RemoteSurface) Ack() {
	s.mu.Lock()
	s.pending = false
	s.mu.Unlock()
}
