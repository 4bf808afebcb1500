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

package backend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oskarjolofsson/swingpipe/internal/config"
	"github.com/oskarjolofsson/swingpipe/internal/core/model"
	"github.com/oskarjolofsson/swingpipe/internal/identity"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := config.Backend{
		BaseURL:                 srv.URL,
		TimeoutInSeconds:        5,
		StatusRequestsPerSecond: 100,
	}
	return NewClient(cfg, &identity.StaticProvider{Value: "test-token"})
}

func TestCreateAnalysisSendsWindowAndSettings(t *testing.T) {
	var gotAuth string
	var gotForm map[string]string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/analysis/create", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		assert.NoError(t, r.ParseForm())
		gotForm = map[string]string{}
		for k := range r.PostForm {
			gotForm[k] = r.PostForm.Get(k)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"analysis_id":"a-1","upload_url":"https://storage.example/put"}`))
	}))

	res, err := client.CreateAnalysis(context.Background(),
		model.TrimWindow{Start: 1.5, End: 4},
		model.AdvancedSettings{ShotShape: "draw", Model: "pro"})
	assert.NoError(t, err)
	assert.Equal(t, "a-1", res.AnalysisID)
	assert.Equal(t, "https://storage.example/put", res.UploadURL)
	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, "1.5", gotForm["start_time"])
	assert.Equal(t, "4", gotForm["end_time"])
	assert.Equal(t, "draw", gotForm["shape"])
	assert.Equal(t, "pro", gotForm["model"])
	_, hasMiss := gotForm["miss"]
	assert.False(t, hasMiss)
}

func TestCreateAnalysisRejectsIncompleteResponse(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"analysis_id":"a-1"}`))
	}))
	_, err := client.CreateAnalysis(context.Background(), model.TrimWindow{End: 3}, model.AdvancedSettings{})
	assert.Error(t, err)
}

func TestConfirmUpload(t *testing.T) {
	var gotPath string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	err := client.ConfirmUpload(context.Background(), "a-42")
	assert.NoError(t, err)
	assert.Equal(t, "/api/v1/analysis/a-42/uploaded", gotPath)
}

func TestStatus(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/analysis/a-7/status", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":"analyzing"}`))
	}))
	st, err := client.Status(context.Background(), "a-7")
	assert.NoError(t, err)
	assert.True(t, st.Running())
	assert.False(t, st.Completed())
}

func TestListAnalyses(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/analysis/list", r.URL.Path)
		_, _ = w.Write([]byte(`{"analyses":[{"analysis_id":"a-1","status":"completed"},{"analysis_id":"a-2","status":"failed"}]}`))
	}))
	recs, err := client.ListAnalyses(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 2, len(recs))
	assert.Equal(t, "a-1", recs[0].ID)
}

func TestVideoURL(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/analysis/a-9/video-url", r.URL.Path)
		_, _ = w.Write([]byte(`{"url":"https://cdn.example/v.mp4"}`))
	}))
	u, err := client.VideoURL(context.Background(), "a-9")
	assert.NoError(t, err)
	assert.Equal(t, "https://cdn.example/v.mp4", u)
}

func TestErrorMessageFromJSONBody(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"video too long"}`))
	}))
	_, err := client.Status(context.Background(), "a-1")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "video too long")
}

func TestErrorMessageFromPlainTextBody(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream unavailable"))
	}))
	err := client.ConfirmUpload(context.Background(), "a-1")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "upstream unavailable")
}

func TestErrorMessageFallsBackWhenBodyUnusable(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail":"nested"}`))
	}))
	err := client.ConfirmUpload(context.Background(), "a-1")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "Request failed")
}

func TestTokenFailureShortCircuitsRequest(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()
	client := NewClient(config.Backend{BaseURL: srv.URL, TimeoutInSeconds: 5}, &identity.StaticProvider{})

	_, err := client.Status(context.Background(), "a-1")
	assert.ErrorIs(t, err, identity.ErrNotSignedIn)
	assert.False(t, called)
}
