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

// This file implements the one-shot staging slot. A file picked on the
// public landing page is parked here across the redirect into the
// authenticated flow, then consumed exactly once.
package ingest

import "sync"

// StagedFile is the raw, not-yet-validated pick parked in the slot.
type StagedFile struct {
	Name             string
	DeclaredMimeType string
	Bytes            []byte
}

// StagingSlot holds at most one staged file. Take empties the slot, so a
// second consumer sees nothing.
type StagingSlot struct {
	mu   sync.Mutex
	file *StagedFile
}

// Put parks a file in the slot, replacing any previous occupant.
func (s *StagingSlot) Put(f *StagedFile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.file = f
}

// Take returns the staged file and empties the slot, or nil when empty.
func (s *StagingSlot) Take() *StagedFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.file
	s.file = nil
	return f
}

// Has reports whether a file is currently staged.
func (s *StagingSlot) Has() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file != nil
}
