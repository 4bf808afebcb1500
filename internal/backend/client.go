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

// Package backend is the HTTP client for the remote swing-analysis service.
// Every authenticated call resolves a fresh bearer token through the
// identity provider at request-build time.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/oskarjolofsson/swingpipe/internal/config"
	"github.com/oskarjolofsson/swingpipe/internal/core/model"
	"github.com/oskarjolofsson/swingpipe/internal/identity"
)

// CreateResult is the backend's reply to a create-analysis request. The
// analysis ID arrives here, before any bytes are transferred, so callers can
// transition UI state early.
type CreateResult struct {
	AnalysisID string `json:"analysis_id"`
	UploadURL  string `json:"upload_url"`
}

// Client calls the analysis service. Status checks go through a rate
// limiter so a misconfigured poll interval cannot hammer the endpoint.
type Client struct {
	baseURL  string
	http     *http.Client
	identity identity.Provider
	statusRL *rate.Limiter
}

// NewClient creates a backend client from configuration. The identity
// provider supplies the per-call bearer tokens.
func NewClient(cfg config.Backend, provider identity.Provider) *Client {
	rps := cfg.StatusRequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		http:     &http.Client{Timeout: time.Duration(cfg.TimeoutInSeconds) * time.Second},
		identity: provider,
		statusRL: rate.NewLimiter(rate.Limit(rps), rps),
	}
}

// CreateAnalysis registers a new analysis with the trim window and optional
// advanced settings, returning the analysis ID and the signed upload URL.
func (c *Client) CreateAnalysis(ctx context.Context, window model.TrimWindow, settings model.AdvancedSettings) (*CreateResult, error) {
	form := url.Values{}
	form.Set("start_time", strconv.FormatFloat(window.Start, 'f', -1, 64))
	form.Set("end_time", strconv.FormatFloat(window.End, 'f', -1, 64))
	for k, v := range settings.FormValues() {
		form.Set(k, v)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/v1/analysis/create", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var out CreateResult
	if err := c.do(req, &out); err != nil {
		return nil, fmt.Errorf("creating analysis: %w", err)
	}
	if out.AnalysisID == "" || out.UploadURL == "" {
		return nil, fmt.Errorf("creating analysis: incomplete response")
	}
	return &out, nil
}

// ConfirmUpload tells the backend the video bytes are in place and analysis
// may begin.
func (c *Client) ConfirmUpload(ctx context.Context, analysisID string) error {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/v1/analysis/"+url.PathEscape(analysisID)+"/uploaded", nil)
	if err != nil {
		return err
	}
	if err := c.do(req, nil); err != nil {
		return fmt.Errorf("confirming upload for %s: %w", analysisID, err)
	}
	return nil
}

// Status fetches the current state of an analysis. Calls are rate limited;
// the wait respects ctx.
func (c *Client) Status(ctx context.Context, analysisID string) (*model.AnalysisStatus, error) {
	if err := c.statusRL.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/analysis/"+url.PathEscape(analysisID)+"/status", nil)
	if err != nil {
		return nil, err
	}
	var out model.AnalysisStatus
	if err := c.do(req, &out); err != nil {
		return nil, fmt.Errorf("fetching status for %s: %w", analysisID, err)
	}
	return &out, nil
}

// ListAnalyses returns the caller's past analyses, newest first.
func (c *Client) ListAnalyses(ctx context.Context) ([]model.AnalysisRecord, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/analysis/list", nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Analyses []model.AnalysisRecord `json:"analyses"`
	}
	if err := c.do(req, &out); err != nil {
		return nil, fmt.Errorf("listing analyses: %w", err)
	}
	return out.Analyses, nil
}

// GetAnalysis fetches a single past analysis record.
func (c *Client) GetAnalysis(ctx context.Context, analysisID string) (*model.AnalysisRecord, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/analysis/"+url.PathEscape(analysisID), nil)
	if err != nil {
		return nil, err
	}
	var out model.AnalysisRecord
	if err := c.do(req, &out); err != nil {
		return nil, fmt.Errorf("fetching analysis %s: %w", analysisID, err)
	}
	return &out, nil
}

// VideoURL resolves a short-lived playback URL for an analysis' video.
func (c *Client) VideoURL(ctx context.Context, analysisID string) (string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/analysis/"+url.PathEscape(analysisID)+"/video-url", nil)
	if err != nil {
		return "", err
	}
	var out struct {
		URL string `json:"url"`
	}
	if err := c.do(req, &out); err != nil {
		return "", fmt.Errorf("fetching video url for %s: %w", analysisID, err)
	}
	return out.URL, nil
}

// newRequest builds an authenticated request. The bearer token is resolved
// fresh on every call.
func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	token, err := c.identity.Token(ctx)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return req, nil
}

// do executes the request and decodes a JSON body into out when non-nil.
// Non-2xx responses become errors carrying the backend's message.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			slog.Warn("failed to close response body", "error", cerr)
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Message: parseErrorResponse(body)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// APIError is a non-2xx backend response with its extracted message.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend: %s (status %d)", e.Message, e.StatusCode)
}

// parseErrorResponse extracts the human-readable message from an error body.
// A JSON object with an "error" field wins; otherwise non-empty plain text
// is used verbatim; anything else falls back to a generic message.
func parseErrorResponse(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	if text := strings.TrimSpace(string(body)); text != "" && !strings.HasPrefix(text, "{") {
		return text
	}
	return "Request failed"
}
