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

// Package flow is the top-level state machine tying ingestion, trimming,
// upload, and polling into the three steps a user walks through. It is the
// only component that mutates step state; everything below it is driven
// through explicit calls.
package flow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oskarjolofsson/swingpipe/internal/core/ingest"
	"github.com/oskarjolofsson/swingpipe/internal/core/model"
	"github.com/oskarjolofsson/swingpipe/internal/core/trim"
	"github.com/oskarjolofsson/swingpipe/internal/core/upload"
)

// Step is the user-visible pipeline step.
type Step int

const (
	StepUpload    Step = iota // No validated file yet.
	StepTrim                  // A validated file is selected and previewable.
	StepAnalyzing             // An analysis ID exists; waiting for the result.
)

// String returns the lowercase step name used in API payloads.
func (s Step) String() string {
	switch s {
	case StepTrim:
		return "trim"
	case StepAnalyzing:
		return "analyzing"
	default:
		return "upload"
	}
}

// ErrBusy is returned when an operation is rejected because an upload or
// analysis is already in flight.
var ErrBusy = errors.New("an upload is already in progress")

// ErrNoPreview is returned when no live preview copy exists to serve.
var ErrNoPreview = errors.New("no preview available")

// PreviewURL is where the server streams the current preview copy. A
// snapshot carries it only while a live preview exists.
const PreviewURL = "/api/v1/pipeline/preview"

// ValidationError carries the per-control messages from a failed submit.
type ValidationError struct {
	Errors map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("trim window rejected: %d validation errors", len(e.Errors))
}

// Uploader runs the three-phase upload protocol.
type Uploader interface {
	Run(ctx context.Context, session *model.UploadSession, req upload.Request) error
}

// Watcher polls an analysis to a terminal state.
type Watcher interface {
	Start(ctx context.Context, analysisID string, onComplete func(), onError func(message string))
	Stop()
}

// Recorder journals session lifecycle events. All methods may fail without
// affecting the pipeline; journaling is diagnostic only.
type Recorder interface {
	Begin(ctx context.Context, id string, startedAt time.Time) error
	SetAnalysisID(ctx context.Context, id, analysisID string) error
	SetPhase(ctx context.Context, id, phase string) error
	Finish(ctx context.Context, id, status, errText string) error
}

type noopRecorder struct{}

func (noopRecorder) Begin(context.Context, string, time.Time) error       { return nil }
func (noopRecorder) SetAnalysisID(context.Context, string, string) error  { return nil }
func (noopRecorder) SetPhase(context.Context, string, string) error       { return nil }
func (noopRecorder) Finish(context.Context, string, string, string) error { return nil }

// Machine coordinates one user's pipeline. Asynchronous results (early
// analysis IDs, poll outcomes) are admitted only when their generation token
// matches the machine's current generation; anything else resolved into a
// torn-down world and is dropped.
type Machine struct {
	mu         sync.Mutex
	controller *ingest.Controller
	engine     *trim.Engine
	uploader   Uploader
	watcher    Watcher
	recorder   Recorder

	step       Step
	generation string
	session    *model.UploadSession
	sessionID  string
	uploading  bool
	analysisID string
	errorMsg   string
	completed  bool
}

// NewMachine wires a machine over its collaborators. A nil recorder disables
// journaling.
func NewMachine(controller *ingest.Controller, engine *trim.Engine, uploader Uploader, watcher Watcher, recorder Recorder) *Machine {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &Machine{
		controller: controller,
		engine:     engine,
		uploader:   uploader,
		watcher:    watcher,
		recorder:   recorder,
		step:       StepUpload,
		generation: uuid.NewString(),
	}
}

// SelectFile validates a new file and, on success, enters the trim step with
// a fresh trim window. Rejected while an upload is in flight.
func (m *Machine) SelectFile(ctx context.Context, name, declaredMime string, r io.Reader) (*model.SelectedFile, *ingest.Preview, error) {
	m.mu.Lock()
	if m.uploading || m.step == StepAnalyzing {
		m.mu.Unlock()
		return nil, nil, ErrBusy
	}
	m.mu.Unlock()

	file, preview, err := m.controller.Select(ctx, name, declaredMime, r)
	if err != nil {
		return nil, nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.engine.Reset()
	m.step = StepTrim
	m.errorMsg = ""
	m.completed = false
	m.analysisID = ""
	return file, preview, nil
}

// ReportDuration forwards the preview surface's duration report to the trim
// engine.
func (m *Machine) ReportDuration(seconds float64) {
	m.engine.SetDuration(seconds)
}

// SetTrimRange forwards a handle update to the trim engine.
func (m *Machine) SetTrimRange(start, end float64) {
	m.engine.SetRange(start, end)
}

// RemoveFile tears everything down and returns to the upload step. The
// generation bump makes any in-flight asynchronous result a no-op.
func (m *Machine) RemoveFile() {
	m.watcher.Stop()
	m.controller.Remove()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.engine.Reset()
	m.generation = uuid.NewString()
	m.session = nil
	m.sessionID = ""
	m.uploading = false
	m.analysisID = ""
	m.errorMsg = ""
	m.completed = false
	m.step = StepUpload
}

// Submit validates the trim window and, if it passes, launches the upload
// protocol in the background. The caller observes progress through Snapshot.
func (m *Machine) Submit(ctx context.Context, settings model.AdvancedSettings) error {
	file := m.controller.File()

	m.mu.Lock()
	if m.uploading {
		m.mu.Unlock()
		return ErrBusy
	}
	if m.step != StepTrim || file == nil {
		m.mu.Unlock()
		return errors.New("no validated file to upload")
	}
	v := m.engine.Validate()
	if !v.IsValid {
		m.mu.Unlock()
		return &ValidationError{Errors: v.Errors}
	}

	gen := m.generation
	session := model.NewUploadSession(gen)
	sessionID := uuid.NewString()
	m.session = session
	m.sessionID = sessionID
	m.uploading = true
	m.errorMsg = ""
	window := m.engine.Window()
	m.mu.Unlock()

	// The request outlives the HTTP call that triggered it.
	runCtx := context.WithoutCancel(ctx)
	if err := m.recorder.Begin(runCtx, sessionID, session.StartedAt()); err != nil {
		slog.WarnContext(runCtx, "session journal write failed", "error", err)
	}

	go m.runUpload(runCtx, gen, sessionID, session, upload.Request{
		File:     file,
		Window:   window,
		Settings: settings,
		OnAnalysisID: func(id string) {
			m.admitAnalysisID(runCtx, gen, sessionID, id)
		},
	})
	return nil
}

// runUpload executes the protocol and hands the session to the watcher on
// success.
func (m *Machine) runUpload(ctx context.Context, gen, sessionID string, session *model.UploadSession, req upload.Request) {
	err := m.uploader.Run(ctx, session, req)

	if jerr := m.recorder.SetPhase(ctx, sessionID, session.Phase().String()); jerr != nil {
		slog.WarnContext(ctx, "session journal write failed", "error", jerr)
	}

	if err != nil {
		m.mu.Lock()
		if gen == m.generation {
			m.errorMsg = uploadErrorMessage(err)
			m.uploading = false
		}
		m.mu.Unlock()
		if jerr := m.recorder.Finish(ctx, sessionID, "failed", err.Error()); jerr != nil {
			slog.WarnContext(ctx, "session journal write failed", "error", jerr)
		}
		return
	}

	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return
	}
	analysisID := session.AnalysisID()
	m.mu.Unlock()

	m.watcher.Start(ctx, analysisID,
		func() { m.admitCompletion(ctx, gen, sessionID, session) },
		func(msg string) { m.admitFailure(ctx, gen, sessionID, session, msg) })
}

// admitAnalysisID switches the user into the analyzing step as soon as the
// backend assigns an identifier, generation permitting.
func (m *Machine) admitAnalysisID(ctx context.Context, gen, sessionID, id string) {
	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return
	}
	m.analysisID = id
	m.step = StepAnalyzing
	m.mu.Unlock()

	if err := m.recorder.SetAnalysisID(ctx, sessionID, id); err != nil {
		slog.WarnContext(ctx, "session journal write failed", "error", err)
	}
}

func (m *Machine) admitCompletion(ctx context.Context, gen, sessionID string, session *model.UploadSession) {
	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return
	}
	session.SetPhase(model.PhaseDone)
	m.completed = true
	m.uploading = false
	m.mu.Unlock()

	if err := m.recorder.Finish(ctx, sessionID, "completed", ""); err != nil {
		slog.WarnContext(ctx, "session journal write failed", "error", err)
	}
}

func (m *Machine) admitFailure(ctx context.Context, gen, sessionID string, session *model.UploadSession, msg string) {
	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return
	}
	session.Fail(errors.New(msg))
	m.errorMsg = msg
	m.uploading = false
	m.mu.Unlock()

	if err := m.recorder.Finish(ctx, sessionID, "failed", msg); err != nil {
		slog.WarnContext(ctx, "session journal write failed", "error", err)
	}
}

// DismissError acknowledges a failure and returns to the trim step with the
// file and trim window intact, so the user can retry without re-selecting.
// With no file selected it falls back to the upload step.
func (m *Machine) DismissError() {
	m.mu.Lock()
	if m.errorMsg == "" {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	m.watcher.Stop()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.generation = uuid.NewString()
	m.session = nil
	m.sessionID = ""
	m.uploading = false
	m.analysisID = ""
	m.errorMsg = ""
	m.completed = false
	if m.controller.File() != nil {
		m.step = StepTrim
	} else {
		m.step = StepUpload
	}
}

// PreviewFile resolves the on-disk location of the current preview copy for
// streaming. Returns ErrNoPreview when no selection exists or the handle has
// been revoked.
func (m *Machine) PreviewFile() (string, error) {
	preview := m.controller.Preview()
	if preview == nil || preview.Revoked() {
		return "", ErrNoPreview
	}
	path, err := preview.Path()
	if err != nil {
		return "", ErrNoPreview
	}
	return path, nil
}

// Snapshot is a point-in-time view of the pipeline for the presentation
// layer.
type Snapshot struct {
	Step        string            `json:"step"`
	FileName    string            `json:"file_name,omitempty"`
	Format      string            `json:"format,omitempty"`
	PreviewURL  string            `json:"preview_url,omitempty"`
	Duration    float64           `json:"duration"`
	Window      model.TrimWindow  `json:"window"`
	Validation  map[string]string `json:"validation_errors,omitempty"`
	Phase       string            `json:"phase,omitempty"`
	AnalysisID  string            `json:"analysis_id,omitempty"`
	Error       string            `json:"error,omitempty"`
	Completed   bool              `json:"completed"`
}

// Snapshot returns the current pipeline state.
func (m *Machine) Snapshot() Snapshot {
	file := m.controller.File()
	preview := m.controller.Preview()
	v := m.engine.Validate()

	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{
		Step:       m.step.String(),
		Duration:   m.engine.Duration(),
		Window:     m.engine.Window(),
		AnalysisID: m.analysisID,
		Error:      m.errorMsg,
		Completed:  m.completed,
	}
	if len(v.Errors) > 0 {
		snap.Validation = v.Errors
	}
	if file != nil {
		snap.FileName = file.Name
		snap.Format = file.DetectedFormat.String()
	}
	if preview != nil && !preview.Revoked() {
		snap.PreviewURL = PreviewURL
	}
	if m.session != nil {
		snap.Phase = m.session.Phase().String()
	}
	return snap
}

// uploadErrorMessage maps a phase failure to the message shown to the user.
func uploadErrorMessage(err error) string {
	var pe *upload.PhaseError
	if errors.As(err, &pe) {
		switch pe.Phase {
		case model.PhasePutting:
			return "Failed to upload video. Please try again."
		case model.PhaseConfirming:
			return "Failed to confirm upload. Please try again."
		}
	}
	return "Failed to start upload. Please try again."
}
