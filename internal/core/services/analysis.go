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

// Package services exposes read paths over past analyses: listing, single
// lookup, and playback URL resolution with a per-analysis cache.
package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oskarjolofsson/swingpipe/internal/core/model"
)

// AnalysisSource is the backend surface the read paths consume.
type AnalysisSource interface {
	ListAnalyses(ctx context.Context) ([]model.AnalysisRecord, error)
	GetAnalysis(ctx context.Context, analysisID string) (*model.AnalysisRecord, error)
	VideoURL(ctx context.Context, analysisID string) (string, error)
}

// VideoURLCache caches resolved playback URLs per analysis. Signed playback
// URLs expire, so entries carry a TTL and the cache is explicitly evictable
// rather than grow-only.
type VideoURLCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cachedURL
	now     func() time.Time
}

type cachedURL struct {
	url       string
	expiresAt time.Time
}

// NewVideoURLCache creates a cache whose entries live for ttl.
func NewVideoURLCache(ttl time.Duration) *VideoURLCache {
	return &VideoURLCache{ttl: ttl, entries: make(map[string]cachedURL), now: time.Now}
}

// Get returns the cached URL for the analysis, if present and unexpired.
func (c *VideoURLCache) Get(analysisID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[analysisID]
	if !ok {
		return "", false
	}
	if c.now().After(e.expiresAt) {
		delete(c.entries, analysisID)
		return "", false
	}
	return e.url, true
}

// Put stores a URL for the analysis.
func (c *VideoURLCache) Put(analysisID, url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[analysisID] = cachedURL{url: url, expiresAt: c.now().Add(c.ttl)}
}

// Evict drops the entry for one analysis.
func (c *VideoURLCache) Evict(analysisID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, analysisID)
}

// Clear drops all entries.
func (c *VideoURLCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cachedURL)
}

// Len returns the number of live entries, expired ones included until their
// next Get.
func (c *VideoURLCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// AnalysisService serves past analyses to the presentation layer.
type AnalysisService struct {
	source AnalysisSource
	cache  *VideoURLCache
}

// NewAnalysisService creates the service. A nil cache disables URL caching.
func NewAnalysisService(source AnalysisSource, cache *VideoURLCache) *AnalysisService {
	return &AnalysisService{source: source, cache: cache}
}

// List returns the caller's past analyses, newest first.
func (s *AnalysisService) List(ctx context.Context) ([]model.AnalysisRecord, error) {
	return s.source.ListAnalyses(ctx)
}

// Get returns one past analysis.
func (s *AnalysisService) Get(ctx context.Context, analysisID string) (*model.AnalysisRecord, error) {
	if analysisID == "" {
		return nil, fmt.Errorf("analysis id is required")
	}
	return s.source.GetAnalysis(ctx, analysisID)
}

// VideoURL resolves the playback URL for an analysis, serving repeat
// requests for the same analysis from the cache.
func (s *AnalysisService) VideoURL(ctx context.Context, analysisID string) (string, error) {
	if analysisID == "" {
		return "", fmt.Errorf("analysis id is required")
	}
	if s.cache != nil {
		if url, ok := s.cache.Get(analysisID); ok {
			return url, nil
		}
	}
	url, err := s.source.VideoURL(ctx, analysisID)
	if err != nil {
		return "", err
	}
	if s.cache != nil {
		s.cache.Put(analysisID, url)
	}
	return url, nil
}
