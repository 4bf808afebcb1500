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

// This file holds the upload-session types: the strictly forward-moving
// phase enumeration, the session record shared between the orchestrator and
// its callers, and the trim window consumed at submit time.
package model

import (
	"sync"
	"time"
)

// UploadPhase tracks how far a single upload attempt has progressed. Phases
// only move forward; the only way back is an explicit session reset.
type UploadPhase int

const (
	PhaseIdle       UploadPhase = iota
	PhaseCreating               // Creating the analysis record, obtaining the signed URL.
	PhasePutting                // Transferring bytes to object storage.
	PhaseConfirming             // Notifying the backend that the bytes arrived.
	PhasePolling                // Waiting for the backend to finish the analysis.
	PhaseDone                   // Analysis completed.
	PhaseFailed                 // A phase failed; Err carries the classification.
)

// String returns the lowercase phase name used in logs, API payloads, and the
// session journal.
func (p UploadPhase) String() string {
	switch p {
	case PhaseCreating:
		return "creating"
	case PhasePutting:
		return "putting"
	case PhaseConfirming:
		return "confirming"
	case PhasePolling:
		return "polling"
	case PhaseDone:
		return "done"
	case PhaseFailed:
		return "failed"
	default:
		return "idle"
	}
}

// TrimWindow is a bounded [Start, End] second range over a video's duration.
// A zero window with a zero duration means "no metadata yet".
type TrimWindow struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Length returns the trimmed length in seconds, never negative.
func (w TrimWindow) Length() float64 {
	if w.End < w.Start {
		return 0
	}
	return w.End - w.Start
}

// UploadSession is the state of one upload attempt. It is created when the
// user triggers an upload and torn down when an error is dismissed or the
// file is removed. All mutators are safe for concurrent use: the orchestrator
// advances the phase from its own goroutine while the presentation layer
// reads snapshots.
type UploadSession struct {
	mu         sync.Mutex
	generation string
	analysisID string
	phase      UploadPhase
	err        error
	startedAt  time.Time
}

// NewUploadSession creates a session stamped with the generation token of the
// pipeline instance that owns it. Results resolving into a torn-down session
// are detected by comparing generations.
func NewUploadSession(generation string) *UploadSession {
	return &UploadSession{generation: generation, phase: PhaseIdle, startedAt: time.Now()}
}

// Generation returns the owning pipeline generation token.
func (s *UploadSession) Generation() string { return s.generation }

// SetPhase advances the session to the given phase.
func (s *UploadSession) SetPhase(p UploadPhase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = p
}

// Phase returns the current phase.
func (s *UploadSession) Phase() UploadPhase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// SetAnalysisID records the identifier the backend assigned during the
// create phase. The identifier is kept even if a later phase fails, matching
// the documented orphan-record behavior.
func (s *UploadSession) SetAnalysisID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analysisID = id
}

// AnalysisID returns the backend-assigned identifier, or "" before the
// create phase completed.
func (s *UploadSession) AnalysisID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.analysisID
}

// Fail marks the session failed and records the classified error.
func (s *UploadSession) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = PhaseFailed
	s.err = err
}

// Err returns the recorded failure, or nil while the session is healthy.
func (s *UploadSession) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// StartedAt returns the session creation time.
func (s *UploadSession) StartedAt() time.Time { return s.startedAt }
