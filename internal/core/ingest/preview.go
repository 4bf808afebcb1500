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

// This file implements the preview handle: a revocable, ownership-scoped
// pointer to an on-disk copy of the validated bytes that the presentation
// layer can stream from. The controller is the only component that mints or
// revokes these handles, and at most one is live per pipeline instance.
package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/oskarjolofsson/swingpipe/internal/core/model"
	"github.com/oskarjolofsson/swingpipe/internal/core/sniff"
)

// Preview is a revocable handle to the on-disk preview copy. Once revoked it
// stays revoked; selecting the same file again mints a fresh, independent
// handle.
type Preview struct {
	mu      sync.Mutex
	id      string
	path    string
	revoked bool
}

// ID returns the handle's unique identifier.
func (p *Preview) ID() string { return p.id }

// Path returns the on-disk location of the preview copy, or an error when
// the handle has been revoked.
func (p *Preview) Path() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.revoked {
		return "", fmt.Errorf("preview %s is revoked", p.id)
	}
	return p.path, nil
}

// Revoke removes the on-disk copy and invalidates the handle. It is
// idempotent.
func (p *Preview) Revoke() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.revoked {
		return
	}
	p.revoked = true
	_ = os.Remove(p.path)
}

// Revoked reports whether the handle has been revoked.
func (p *Preview) Revoked() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.revoked
}

// previewStore writes validated bytes to the preview directory and mints
// handles for them.
type previewStore struct {
	dir string
}

// newPreviewStore creates the store, falling back to the OS temp directory
// when no directory is configured.
func newPreviewStore(dir string) *previewStore {
	if dir == "" {
		dir = os.TempDir()
	}
	return &previewStore{dir: dir}
}

// mint writes the file's bytes to disk under a fresh identifier and returns
// the handle. The on-disk name carries the extension the sniffer
// corroborated, which keeps picky media servers happy.
func (s *previewStore) mint(f *model.SelectedFile) (*Preview, error) {
	id := uuid.NewString()
	path := filepath.Join(s.dir, fmt.Sprintf("preview-%s.%s", id, sniff.Extension(f)))
	if err := os.WriteFile(path, f.Bytes, 0o644); err != nil {
		return nil, fmt.Errorf("write preview copy: %w", err)
	}
	return &Preview{id: id, path: path}, nil
}
