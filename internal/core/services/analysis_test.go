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

package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/oskarjolofsson/swingpipe/internal/core/model"
)

type fakeSource struct {
	urlCalls int
}

func (f *fakeSource) ListAnalyses(context.Context) ([]model.AnalysisRecord, error) {
	return []model.AnalysisRecord{{ID: "a-2"}, {ID: "a-1"}}, nil
}

func (f *fakeSource) GetAnalysis(_ context.Context, id string) (*model.AnalysisRecord, error) {
	return &model.AnalysisRecord{ID: id, Status: "completed"}, nil
}

func (f *fakeSource) VideoURL(_ context.Context, id string) (string, error) {
	f.urlCalls++
	return fmt.Sprintf("https://cdn.example/%s-%d.mp4", id, f.urlCalls), nil
}

func TestVideoURLServedFromCache(t *testing.T) {
	source := &fakeSource{}
	svc := NewAnalysisService(source, NewVideoURLCache(time.Minute))

	first, err := svc.VideoURL(context.Background(), "a-1")
	assert.NoError(t, err)
	second, err := svc.VideoURL(context.Background(), "a-1")
	assert.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, source.urlCalls)

	// A different analysis misses the cache.
	_, err = svc.VideoURL(context.Background(), "a-2")
	assert.NoError(t, err)
	assert.Equal(t, 2, source.urlCalls)
}

func TestVideoURLCacheExpiry(t *testing.T) {
	cache := NewVideoURLCache(time.Minute)
	current := time.Now()
	cache.now = func() time.Time { return current }

	cache.Put("a-1", "https://cdn.example/v.mp4")
	_, ok := cache.Get("a-1")
	assert.True(t, ok)

	current = current.Add(2 * time.Minute)
	_, ok = cache.Get("a-1")
	assert.False(t, ok)
	// The expired entry is dropped on read.
	assert.Equal(t, 0, cache.Len())
}

func TestVideoURLCacheEviction(t *testing.T) {
	cache := NewVideoURLCache(time.Minute)
	cache.Put("a-1", "u1")
	cache.Put("a-2", "u2")

	cache.Evict("a-1")
	_, ok := cache.Get("a-1")
	assert.False(t, ok)
	_, ok = cache.Get("a-2")
	assert.True(t, ok)

	cache.Clear()
	assert.Equal(t, 0, cache.Len())
}

func TestListAndGet(t *testing.T) {
	svc := NewAnalysisService(&fakeSource{}, nil)

	recs, err := svc.List(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 2, len(recs))

	rec, err := svc.Get(context.Background(), "a-1")
	assert.NoError(t, err)
	assert.Equal(t, "completed", rec.Status)

	_, err = svc.Get(context.Background(), "")
	assert.Error(t, err)
	_, err = svc.VideoURL(context.Background(), "")
	assert.Error(t, err)
}
