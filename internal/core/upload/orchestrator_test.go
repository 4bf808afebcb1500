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

package upload

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oskarjolofsson/swingpipe/internal/backend"
	"github.com/oskarjolofsson/swingpipe/internal/core/model"
)

// fakeService scripts the backend side of the protocol.
type fakeService struct {
	createErr   error
	confirmErr  error
	confirmedID string
	createCalls int
}

func (f *fakeService) CreateAnalysis(_ context.Context, _ model.TrimWindow, _ model.AdvancedSettings) (*backend.CreateResult, error) {
	f.createCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &backend.CreateResult{AnalysisID: "a-1", UploadURL: "https://storage.example/put"}, nil
}

func (f *fakeService) ConfirmUpload(_ context.Context, analysisID string) error {
	if f.confirmErr != nil {
		return f.confirmErr
	}
	f.confirmedID = analysisID
	return nil
}

// fakeSink scripts the storage transfer.
type fakeSink struct {
	putErr error
	gotURL string
	put    bool
}

func (f *fakeSink) Put(_ context.Context, signedURL string, _ *model.SelectedFile) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.gotURL = signedURL
	f.put = true
	return nil
}

func testFile() *model.SelectedFile {
	return &model.SelectedFile{Name: "swing.mp4", DeclaredMimeType: "video/mp4", Bytes: []byte("bytes")}
}

func TestRunHappyPathReachesPolling(t *testing.T) {
	service := &fakeService{}
	sink := &fakeSink{}
	o := NewOrchestrator(service, sink)
	session := model.NewUploadSession("gen-1")

	var earlyID string
	err := o.Run(context.Background(), session, Request{
		File:         testFile(),
		Window:       model.TrimWindow{Start: 1, End: 4},
		OnAnalysisID: func(id string) { earlyID = id },
	})
	assert.NoError(t, err)
	assert.Equal(t, model.PhasePolling, session.Phase())
	assert.Equal(t, "a-1", session.AnalysisID())
	assert.Equal(t, "a-1", earlyID)
	assert.Equal(t, "a-1", service.confirmedID)
	assert.Equal(t, "https://storage.example/put", sink.gotURL)
}

func TestRunCreateFailureStopsChain(t *testing.T) {
	service := &fakeService{createErr: errors.New("quota exceeded")}
	sink := &fakeSink{}
	o := NewOrchestrator(service, sink)
	session := model.NewUploadSession("gen-1")

	err := o.Run(context.Background(), session, Request{File: testFile()})
	assert.Error(t, err)

	var pe *PhaseError
	assert.True(t, errors.As(err, &pe))
	assert.Equal(t, model.PhaseCreating, pe.Phase)
	assert.Equal(t, model.PhaseFailed, session.Phase())
	assert.Equal(t, "", session.AnalysisID())
	assert.False(t, sink.put)
}

func TestRunPutFailureKeepsAnalysisID(t *testing.T) {
	service := &fakeService{}
	sink := &fakeSink{putErr: errors.New("network reset")}
	o := NewOrchestrator(service, sink)
	session := model.NewUploadSession("gen-1")

	err := o.Run(context.Background(), session, Request{File: testFile()})
	assert.Error(t, err)

	var pe *PhaseError
	assert.True(t, errors.As(err, &pe))
	assert.Equal(t, model.PhasePutting, pe.Phase)
	// The backend record exists; the session keeps the orphaned ID.
	assert.Equal(t, "a-1", session.AnalysisID())
	// Confirm never ran.
	assert.Equal(t, "", service.confirmedID)
}

func TestRunConfirmFailure(t *testing.T) {
	service := &fakeService{confirmErr: errors.New("backend down")}
	sink := &fakeSink{}
	o := NewOrchestrator(service, sink)
	session := model.NewUploadSession("gen-1")

	err := o.Run(context.Background(), session, Request{File: testFile()})
	assert.Error(t, err)

	var pe *PhaseError
	assert.True(t, errors.As(err, &pe))
	assert.Equal(t, model.PhaseConfirming, pe.Phase)
	assert.True(t, sink.put)
	assert.Equal(t, "a-1", session.AnalysisID())
}

func TestRunWithoutFileFailsImmediately(t *testing.T) {
	service := &fakeService{}
	o := NewOrchestrator(service, &fakeSink{})
	session := model.NewUploadSession("gen-1")

	err := o.Run(context.Background(), session, Request{})
	assert.Error(t, err)
	assert.Equal(t, 0, service.createCalls)
	assert.Equal(t, model.PhaseFailed, session.Phase())
}

func TestPhaseErrorUnwraps(t *testing.T) {
	inner := errors.New("root cause")
	pe := &PhaseError{Phase: model.PhasePutting, Err: inner}
	assert.True(t, errors.Is(pe, inner))
	assert.Contains(t, pe.Error(), "putting")
}
