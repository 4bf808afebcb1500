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

// Package storage performs the direct byte transfer to object storage. The
// backend hands out a pre-signed URL per analysis; this package only does
// the single PUT against it. No retries: a signed URL may be single-use,
// and the orchestrator decides what a failed transfer means.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/oskarjolofsson/swingpipe/internal/config"
	"github.com/oskarjolofsson/swingpipe/internal/core/model"
)

// Transfer uploads file bytes to pre-signed URLs.
type Transfer struct {
	http               *http.Client
	defaultContentType string
}

// NewTransfer creates a transfer with the configured whole-request timeout
// and the configured Content-Type fallback for files declaring none.
func NewTransfer(cfg config.Storage) *Transfer {
	fallback := cfg.DefaultContentType
	if fallback == "" {
		fallback = "video/mp4"
	}
	return &Transfer{
		http:               &http.Client{Timeout: time.Duration(cfg.TimeoutInSeconds) * time.Second},
		defaultContentType: fallback,
	}
}

// Put writes the file's bytes to the signed URL with the file's effective
// Content-Type. Any non-2xx status is an error.
func (t *Transfer) Put(ctx context.Context, signedURL string, file *model.SelectedFile) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, signedURL, bytes.NewReader(file.Bytes))
	if err != nil {
		return fmt.Errorf("building storage request: %w", err)
	}
	req.Header.Set("Content-Type", file.ContentType(t.defaultContentType))
	req.ContentLength = int64(len(file.Bytes))

	resp, err := t.http.Do(req)
	if err != nil {
		return fmt.Errorf("storage transfer: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("storage transfer: unexpected status %d", resp.StatusCode)
	}
	return nil
}
