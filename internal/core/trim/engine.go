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

// Package trim holds the dual-handle range selection over the preview and
// the rules deciding whether the selected window is short enough to submit.
package trim

import (
	"fmt"
	"math"
	"sync"

	"github.com/oskarjolofsson/swingpipe/internal/config"
	"github.com/oskarjolofsson/swingpipe/internal/core/model"
)

// Validation error keys. The two checks are independent: a window can fail
// both at once, and each message renders next to its own control.
const (
	ErrKeyTrim     = "trim"
	ErrKeyDuration = "duration"
)

// Validation is the outcome of checking the current window against policy.
type Validation struct {
	IsValid bool
	// Errors maps ErrKeyTrim / ErrKeyDuration to user-facing messages.
	Errors map[string]string
	// TrimmedLength is the current window length in seconds.
	TrimmedLength float64
	// NeedsTrimming reports whether the source runs past the maximum and a
	// narrower window is therefore required.
	NeedsTrimming bool
}

// Engine owns the trim window for the currently previewed file. The window
// is initialized to the full clip exactly once per preview; later duration
// updates for the same preview only clamp, never re-expand.
type Engine struct {
	mu     sync.Mutex
	policy config.Policy
	seeker *Seeker

	duration    float64
	start       float64
	end         float64
	initialized bool
}

// NewEngine creates an engine bound to the policy limits and the seeker
// driving the preview playhead. The seeker may be nil when no preview
// surface is attached (duration probing without playback).
func NewEngine(policy config.Policy, seeker *Seeker) *Engine {
	return &Engine{policy: policy, seeker: seeker}
}

// Reset clears all window state. Callers invoke it whenever the preview
// changes so the next SetDuration re-initializes the window.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.duration = 0
	e.start = 0
	e.end = 0
	e.initialized = false
}

// SetDuration records the clip duration reported by the preview surface.
// The first report for a preview sets the window to the full clip. Repeat
// reports (metadata refreshes) keep the user's window, clamping the end
// handle when the clip turns out shorter than first reported.
func (e *Engine) SetDuration(seconds float64) {
	if seconds <= 0 || math.IsNaN(seconds) {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		e.duration = seconds
		e.start = 0
		e.end = seconds
		e.initialized = true
		return
	}
	e.duration = seconds
	if e.end == 0 {
		e.end = seconds
	} else {
		e.end = math.Min(e.end, seconds)
	}
	if e.start > e.end {
		e.start = e.end
	}
}

// SetRange applies a handle update. Both positions are taken as given,
// clamped to the clip and kept ordered. Which handle "moved" is decided by
// the larger delta from the previous window, ties going to the end handle,
// but the comparison only selects the seek target: the preview frame tracks
// the thumb under the user's finger while the other handle still lands
// where the update put it.
func (e *Engine) SetRange(start, end float64) {
	e.mu.Lock()
	if !e.initialized {
		e.mu.Unlock()
		return
	}
	start = clamp(start, 0, e.duration)
	end = clamp(end, 0, e.duration)
	if start > end {
		start = end
	}

	movedEnd := math.Abs(end-e.end) >= math.Abs(start-e.start)
	e.start = start
	e.end = end
	seeker := e.seeker
	target := end
	if !movedEnd {
		target = start
	}
	e.mu.Unlock()

	if seeker != nil {
		seeker.Request(target)
	}
}

// Window returns the current trim window.
func (e *Engine) Window() model.TrimWindow {
	e.mu.Lock()
	defer e.mu.Unlock()
	return model.TrimWindow{Start: e.start, End: e.end}
}

// Duration returns the recorded clip duration, zero before the first report.
func (e *Engine) Duration() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.duration
}

// Initialized reports whether a duration has been recorded for the current
// preview.
func (e *Engine) Initialized() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.initialized
}

// Validate checks the window against the maximum submittable length. Clips
// already at or under the limit always pass, whatever the window says. For
// longer clips two independent checks run: the window must have been
// narrowed from the untouched full-clip default, and the narrowed window
// must itself fit under the limit.
func (e *Engine) Validate() Validation {
	e.mu.Lock()
	defer e.mu.Unlock()

	max := e.policy.MaxTrimmedLengthSeconds
	length := e.end - e.start
	v := Validation{
		Errors:        map[string]string{},
		TrimmedLength: length,
		NeedsTrimming: e.duration > max,
	}
	if e.duration <= max {
		v.IsValid = true
		return v
	}
	if e.start == 0 && e.end == e.duration {
		v.Errors[ErrKeyTrim] = "Please trim your video before uploading"
	}
	if length > max {
		v.Errors[ErrKeyDuration] = fmt.Sprintf("Trimmed video must be %g seconds or less", max)
	}
	v.IsValid = len(v.Errors) == 0
	return v
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
