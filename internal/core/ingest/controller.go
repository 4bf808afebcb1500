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

// Package ingest owns the selected-file lifecycle: MIME prefiltering, byte
// validation, preview handle management, and removal. The controller is the
// sole owner of the preview resource; no other component creates or revokes
// preview handles.
package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/oskarjolofsson/swingpipe/internal/core/model"
	"github.com/oskarjolofsson/swingpipe/internal/core/sniff"
)

// ErrSuperseded is returned when a selection finished reading after a newer
// selection had already started. The stale result is discarded without
// touching controller state.
var ErrSuperseded = fmt.Errorf("selection superseded by a newer one")

// MimeTypeError is the typed failure for the cheap prefilter: the source
// declared a type outside the allowed categories, so the bytes were never
// read.
type MimeTypeError struct {
	Declared string
	Allowed  []string
}

// Error returns the user-facing message for the prefilter rejection.
func (e *MimeTypeError) Error() string {
	return fmt.Sprintf("Invalid file type. Allowed types: %s", strings.Join(e.Allowed, ", "))
}

// Controller owns one selected file and its preview handle. All methods are
// safe for concurrent use; overlapping selections are serialized by a
// monotonically increasing token so only the newest one may apply its
// result.
type Controller struct {
	mu      sync.Mutex
	token   uint64
	file    *model.SelectedFile
	preview *Preview

	store        *previewStore
	allowedTypes []string
}

// NewController creates a controller writing preview copies under dir. The
// allowed types default to the "video/" category when none are given. A type
// ending in "/" matches as a category prefix, otherwise it must match
// exactly.
func NewController(dir string, allowedTypes ...string) *Controller {
	if len(allowedTypes) == 0 {
		allowedTypes = []string{"video/"}
	}
	return &Controller{store: newPreviewStore(dir), allowedTypes: allowedTypes}
}

// checkMimeType applies the category prefilter against the declared type.
func (c *Controller) checkMimeType(declared string) error {
	for _, t := range c.allowedTypes {
		if strings.HasSuffix(t, "/") {
			if strings.HasPrefix(declared, t) {
				return nil
			}
		} else if declared == t {
			return nil
		}
	}
	return &MimeTypeError{Declared: declared, Allowed: c.allowedTypes}
}

// Select validates the given file and, on success, replaces the current
// selection. The previous preview handle is revoked before a new one is
// minted, so no preview copy ever leaks.
//
// Validation failures leave the existing selection untouched: the caller
// shows the typed error and the user's previous file stays usable. If a
// newer Select started while this one was still reading, the stale result is
// discarded and ErrSuperseded is returned.
func (c *Controller) Select(ctx context.Context, name string, declaredMime string, r io.Reader) (*model.SelectedFile, *Preview, error) {
	if err := c.checkMimeType(declaredMime); err != nil {
		return nil, nil, err
	}

	// Claim a selection token before the read starts. Any Select that
	// begins after this point owns a higher token and wins.
	c.mu.Lock()
	c.token++
	token := c.token
	c.mu.Unlock()

	file, err := sniff.Validate(ctx, name, declaredMime, r)
	if err != nil {
		return nil, nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if token != c.token {
		slog.Info("discarding stale selection result", "name", name)
		return nil, nil, ErrSuperseded
	}

	preview, err := c.store.mint(file)
	if err != nil {
		return nil, nil, err
	}

	if c.preview != nil {
		c.preview.Revoke()
	}
	c.file = file
	c.preview = preview
	return file, preview, nil
}

// Remove clears the selection and revokes the preview handle. It is
// idempotent and safe to call when nothing is selected. Bumping the token
// also invalidates any selection still reading, so a removal during an
// in-flight Select wins.
func (c *Controller) Remove() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token++
	if c.preview != nil {
		c.preview.Revoke()
	}
	c.file = nil
	c.preview = nil
}

// File returns the current validated selection, or nil.
func (c *Controller) File() *model.SelectedFile {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.file
}

// Preview returns the current preview handle, or nil. The handle is non-nil
// exactly when a validated video is selected.
func (c *Controller) Preview() *Preview {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.preview
}
