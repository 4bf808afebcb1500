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

package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	assert.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestJournalLifecycle(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	started := time.Now().Add(-time.Minute)
	assert.NoError(t, store.Begin(ctx, "s-1", started))
	assert.NoError(t, store.SetPhase(ctx, "s-1", "creating"))
	assert.NoError(t, store.SetAnalysisID(ctx, "s-1", "a-9"))
	assert.NoError(t, store.SetPhase(ctx, "s-1", "putting"))
	assert.NoError(t, store.Finish(ctx, "s-1", "failed", "network reset"))

	recs, err := store.List(ctx, 10)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(recs))
	assert.Equal(t, "s-1", recs[0].ID)
	assert.Equal(t, "a-9", recs[0].AnalysisID)
	assert.Equal(t, "putting", recs[0].Phase)
	assert.Equal(t, "failed", recs[0].Status)
	assert.Equal(t, "network reset", recs[0].Error)
}

func TestListOrdersNewestFirstAndLimits(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i, id := range []string{"s-1", "s-2", "s-3"} {
		assert.NoError(t, store.Begin(ctx, id, base.Add(time.Duration(i)*time.Minute)))
	}

	recs, err := store.List(ctx, 2)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(recs))
	assert.Equal(t, "s-3", recs[0].ID)
	assert.Equal(t, "s-2", recs[1].ID)
}

func TestListEmptyJournal(t *testing.T) {
	store := openTestStore(t)
	recs, err := store.List(context.Background(), 10)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(recs))
}
