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

// Package poll watches a created analysis until the backend reports a
// terminal state. Transient request failures are logged and swallowed; only
// a terminal backend status or the wall-clock timeout ends a session.
package poll

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/oskarjolofsson/swingpipe/internal/config"
	"github.com/oskarjolofsson/swingpipe/internal/core/model"
)

// User-facing terminal messages. The timeout message is distinct from a
// backend-reported failure so users can tell "still queued somewhere" from
// "rejected".
const (
	MsgTimeout       = "Analysis took too long (over 5 minutes). Please try again."
	MsgGenericFailed = "Analysis failed. Please try again."
)

// StatusSource fetches the current state of an analysis.
type StatusSource interface {
	Status(ctx context.Context, analysisID string) (*model.AnalysisStatus, error)
}

// Poller runs at most one polling session at a time. Starting a new session
// cancels the previous one, so a stale session can never fire callbacks into
// state that has moved on.
type Poller struct {
	source   StatusSource
	interval time.Duration
	timeout  time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewPoller creates a poller with the policy's interval and timeout.
func NewPoller(source StatusSource, policy config.Policy) *Poller {
	return &Poller{source: source, interval: policy.PollInterval(), timeout: policy.PollTimeout()}
}

// Start begins polling the given analysis. Exactly one of onComplete or
// onError fires, once, from the polling goroutine. A Start while a session
// is live replaces it; the replaced session's callbacks never fire.
func (p *Poller) Start(ctx context.Context, analysisID string, onComplete func(), onError func(message string)) {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.mu.Unlock()

	go p.run(runCtx, analysisID, onComplete, onError)
}

// Stop cancels the live session, if any. Safe to call repeatedly.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

// run is the polling loop. One ticker paces the status checks and one timer
// bounds the whole session; both are released on every exit path.
func (p *Poller) run(ctx context.Context, analysisID string, onComplete func(), onError func(message string)) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	deadline := time.NewTimer(p.timeout)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline.C:
			slog.WarnContext(ctx, "analysis polling timed out", "analysis_id", analysisID)
			onError(MsgTimeout)
			return
		case <-ticker.C:
			status, err := p.source.Status(ctx, analysisID)
			// The session may have been replaced or stopped while the
			// status call was in flight; its callbacks must not fire.
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				// Transient: keep polling until a terminal status or timeout.
				slog.WarnContext(ctx, "status check failed", "analysis_id", analysisID, "error", err)
				continue
			}
			switch {
			case status.Completed():
				slog.InfoContext(ctx, "analysis completed", "analysis_id", analysisID)
				onComplete()
				return
			case status.Failed():
				msg := status.ErrorMessage
				if msg == "" {
					msg = MsgGenericFailed
				}
				slog.WarnContext(ctx, "analysis failed", "analysis_id", analysisID, "status", status.Status)
				onError(msg)
				return
			}
		}
	}
}
