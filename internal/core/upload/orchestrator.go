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

// Package upload drives the three-phase handoff of a validated video to the
// analysis backend: create the analysis record, transfer the bytes to the
// signed URL, then confirm. The phases run strictly in order with no
// compensation; a failure surfaces as a PhaseError naming the phase that
// broke.
package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/oskarjolofsson/swingpipe/internal/core/cor"
	"github.com/oskarjolofsson/swingpipe/internal/core/model"
)

// PhaseError wraps a phase failure with the phase it happened in. Callers
// use the phase to decide what state the backend was left in: a create
// failure left nothing behind, while a later failure left an analysis record
// that will never receive its video.
type PhaseError struct {
	Phase model.UploadPhase
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("upload failed during %s: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error { return e.Err }

// Request carries everything one upload attempt needs.
type Request struct {
	File     *model.SelectedFile
	Window   model.TrimWindow
	Settings model.AdvancedSettings
	// OnAnalysisID fires as soon as the backend assigns an identifier,
	// before the byte transfer starts. The flow machine uses it to switch
	// the user into the analyzing step early.
	OnAnalysisID func(analysisID string)
}

// Orchestrator assembles and runs the upload chain.
type Orchestrator struct {
	service AnalysisService
	sink    ByteSink
}

// NewOrchestrator creates an orchestrator over the analysis service and the
// storage sink.
func NewOrchestrator(service AnalysisService, sink ByteSink) *Orchestrator {
	return &Orchestrator{service: service, sink: sink}
}

// Run executes the three phases against the given session. On success the
// session is left in the polling phase with its analysis ID set; on failure
// the session is failed with a PhaseError and that error is returned. The
// analysis ID, once assigned, survives later phase failures.
func (o *Orchestrator) Run(ctx context.Context, session *model.UploadSession, req Request) error {
	if req.File == nil {
		err := &PhaseError{Phase: model.PhaseCreating, Err: errors.New("no file selected")}
		session.Fail(err)
		return err
	}

	chain := cor.NewBaseChain("upload")
	chain.AddCommand(NewCreateAnalysisCommand(o.service))
	chain.AddCommand(NewStoragePutCommand(o.sink))
	chain.AddCommand(NewConfirmUploadCommand(o.service))

	chCtx := cor.NewBaseContext()
	chCtx.SetContext(ctx)
	chCtx.Add(cor.CtxIn, &state{req: req, session: session})

	chain.Execute(chCtx)

	if chCtx.HasErrors() {
		err := firstPhaseError(chCtx.GetErrors())
		session.Fail(err)
		slog.ErrorContext(ctx, "upload failed",
			"phase", err.Phase.String(),
			"analysis_id", session.AnalysisID(),
			"error", err.Err)
		return err
	}

	session.SetPhase(model.PhasePolling)
	return nil
}

// firstPhaseError extracts the PhaseError from the chain's error map. The
// chain stops at the first failure, so the map holds exactly one entry; a
// non-PhaseError value is wrapped as a create failure rather than dropped.
func firstPhaseError(errs map[string]error) *PhaseError {
	for _, err := range errs {
		var pe *PhaseError
		if errors.As(err, &pe) {
			return pe
		}
		return &PhaseError{Phase: model.PhaseCreating, Err: err}
	}
	return &PhaseError{Phase: model.PhaseCreating, Err: errors.New("unknown upload failure")}
}
