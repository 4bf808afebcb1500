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

// This file defines the three commands of the upload protocol. Each command
// advances the session phase before doing its work, so a failure is always
// attributable to the phase that was in flight.
package upload

import (
	"context"
	"log/slog"

	"github.com/oskarjolofsson/swingpipe/internal/backend"
	"github.com/oskarjolofsson/swingpipe/internal/core/cor"
	"github.com/oskarjolofsson/swingpipe/internal/core/model"
)

// AnalysisService is the subset of the backend client the upload protocol
// needs.
type AnalysisService interface {
	CreateAnalysis(ctx context.Context, window model.TrimWindow, settings model.AdvancedSettings) (*backend.CreateResult, error)
	ConfirmUpload(ctx context.Context, analysisID string) error
}

// ByteSink transfers file bytes to a signed URL.
type ByteSink interface {
	Put(ctx context.Context, signedURL string, file *model.SelectedFile) error
}

// state is the value piped through the upload chain.
type state struct {
	req       Request
	session   *model.UploadSession
	uploadURL string
}

// CreateAnalysisCommand registers the analysis and obtains the signed upload
// URL. The analysis ID is published through the session and the request's
// OnAnalysisID hook as soon as it exists, before any bytes move.
type CreateAnalysisCommand struct {
	cor.BaseCommand
	service AnalysisService
}

// NewCreateAnalysisCommand builds the create command over the given service.
func NewCreateAnalysisCommand(service AnalysisService) *CreateAnalysisCommand {
	return &CreateAnalysisCommand{BaseCommand: *cor.NewBaseCommand("upload-create-analysis"), service: service}
}

func (c *CreateAnalysisCommand) Execute(chCtx cor.Context) {
	st := chCtx.Get(c.GetInputParam()).(*state)
	st.session.SetPhase(model.PhaseCreating)

	res, err := c.service.CreateAnalysis(chCtx.GetContext(), st.req.Window, st.req.Settings)
	if err != nil {
		chCtx.AddError(c.GetName(), &PhaseError{Phase: model.PhaseCreating, Err: err})
		c.GetErrorCounter().Add(chCtx.GetContext(), 1)
		return
	}

	st.session.SetAnalysisID(res.AnalysisID)
	st.uploadURL = res.UploadURL
	if st.req.OnAnalysisID != nil {
		st.req.OnAnalysisID(res.AnalysisID)
	}
	slog.InfoContext(chCtx.GetContext(), "analysis created",
		"analysis_id", res.AnalysisID,
		"start_time", st.req.Window.Start,
		"end_time", st.req.Window.End)

	chCtx.Add(c.GetOutputParam(), st)
	c.GetSuccessCounter().Add(chCtx.GetContext(), 1)
}

// StoragePutCommand moves the validated file bytes to the signed URL.
type StoragePutCommand struct {
	cor.BaseCommand
	sink ByteSink
}

// NewStoragePutCommand builds the transfer command over the given sink.
func NewStoragePutCommand(sink ByteSink) *StoragePutCommand {
	return &StoragePutCommand{BaseCommand: *cor.NewBaseCommand("upload-storage-put"), sink: sink}
}

func (c *StoragePutCommand) Execute(chCtx cor.Context) {
	st := chCtx.Get(c.GetInputParam()).(*state)
	st.session.SetPhase(model.PhasePutting)

	if err := c.sink.Put(chCtx.GetContext(), st.uploadURL, st.req.File); err != nil {
		// The analysis record already exists on the backend; the session keeps
		// its ID so the orphan is observable.
		chCtx.AddError(c.GetName(), &PhaseError{Phase: model.PhasePutting, Err: err})
		c.GetErrorCounter().Add(chCtx.GetContext(), 1)
		return
	}
	slog.InfoContext(chCtx.GetContext(), "video bytes transferred",
		"analysis_id", st.session.AnalysisID(),
		"bytes", len(st.req.File.Bytes))

	chCtx.Add(c.GetOutputParam(), st)
	c.GetSuccessCounter().Add(chCtx.GetContext(), 1)
}

// ConfirmUploadCommand notifies the backend that the bytes are in place.
type ConfirmUploadCommand struct {
	cor.BaseCommand
	service AnalysisService
}

// NewConfirmUploadCommand builds the confirm command over the given service.
func NewConfirmUploadCommand(service AnalysisService) *ConfirmUploadCommand {
	return &ConfirmUploadCommand{BaseCommand: *cor.NewBaseCommand("upload-confirm"), service: service}
}

func (c *ConfirmUploadCommand) Execute(chCtx cor.Context) {
	st := chCtx.Get(c.GetInputParam()).(*state)
	st.session.SetPhase(model.PhaseConfirming)

	if err := c.service.ConfirmUpload(chCtx.GetContext(), st.session.AnalysisID()); err != nil {
		chCtx.AddError(c.GetName(), &PhaseError{Phase: model.PhaseConfirming, Err: err})
		c.GetErrorCounter().Add(chCtx.GetContext(), 1)
		return
	}
	slog.InfoContext(chCtx.GetContext(), "upload confirmed", "analysis_id", st.session.AnalysisID())

	chCtx.Add(c.GetOutputParam(), st)
	c.GetSuccessCounter().Add(chCtx.GetContext(), 1)
}
