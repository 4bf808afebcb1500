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

package ingest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oskarjolofsson/swingpipe/internal/core/model"
	"github.com/oskarjolofsson/swingpipe/internal/core/sniff"
	"github.com/oskarjolofsson/swingpipe/internal/testutil"
)

func mp4Bytes() []byte { return testutil.MP4Bytes() }

func TestSelectValidVideo(t *testing.T) {
	c := NewController(t.TempDir())
	file, preview, err := c.Select(context.Background(), "swing.mp4", "video/mp4", bytes.NewReader(mp4Bytes()))
	assert.NoError(t, err)
	assert.Equal(t, model.FormatMP4, file.DetectedFormat)

	path, err := preview.Path()
	assert.NoError(t, err)
	onDisk, err := os.ReadFile(path)
	assert.NoError(t, err)
	assert.Equal(t, file.Bytes, onDisk)

	assert.Equal(t, file, c.File())
	assert.Equal(t, preview, c.Preview())
}

func TestSelectOtherContainers(t *testing.T) {
	c := NewController(t.TempDir())

	file, _, err := c.Select(context.Background(), "swing.webm", "video/webm", bytes.NewReader(testutil.WebMBytes()))
	assert.NoError(t, err)
	assert.Equal(t, model.FormatWebM, file.DetectedFormat)

	file, _, err = c.Select(context.Background(), "swing.mov", "video/quicktime", bytes.NewReader(testutil.MOVBytes()))
	assert.NoError(t, err)
	assert.Equal(t, model.FormatMOV, file.DetectedFormat)
}

func TestSelectRejectsNonVideoMimeWithoutReading(t *testing.T) {
	c := NewController(t.TempDir())

	reads := 0
	r := readerFunc(func(p []byte) (int, error) {
		reads++
		return 0, io.EOF
	})
	_, _, err := c.Select(context.Background(), "doc.pdf", "application/pdf", r)

	var me *MimeTypeError
	assert.True(t, errors.As(err, &me))
	assert.Contains(t, me.Error(), "Invalid file type")
	assert.Equal(t, 0, reads)
	assert.Nil(t, c.File())
}

func TestSelectInvalidBytesKeepsPreviousSelection(t *testing.T) {
	c := NewController(t.TempDir())
	file, preview, err := c.Select(context.Background(), "swing.mp4", "video/mp4", bytes.NewReader(mp4Bytes()))
	assert.NoError(t, err)

	_, _, err = c.Select(context.Background(), "fake.mp4", "video/mp4", bytes.NewReader([]byte("definitely not a video")))
	var fe *sniff.FormatError
	assert.True(t, errors.As(err, &fe))

	// The earlier selection survives, preview included.
	assert.Equal(t, file, c.File())
	assert.False(t, preview.Revoked())
}

func TestSelectReplacesAndRevokesOldPreview(t *testing.T) {
	c := NewController(t.TempDir())
	_, first, err := c.Select(context.Background(), "one.mp4", "video/mp4", bytes.NewReader(mp4Bytes()))
	assert.NoError(t, err)
	firstPath, err := first.Path()
	assert.NoError(t, err)

	_, second, err := c.Select(context.Background(), "two.mp4", "video/mp4", bytes.NewReader(mp4Bytes()))
	assert.NoError(t, err)

	assert.True(t, first.Revoked())
	_, err = first.Path()
	assert.Error(t, err)
	_, statErr := os.Stat(firstPath)
	assert.True(t, os.IsNotExist(statErr))

	assert.False(t, second.Revoked())
}

func TestRemoveIsIdempotent(t *testing.T) {
	c := NewController(t.TempDir())
	_, preview, err := c.Select(context.Background(), "swing.mp4", "video/mp4", bytes.NewReader(mp4Bytes()))
	assert.NoError(t, err)

	c.Remove()
	assert.Nil(t, c.File())
	assert.Nil(t, c.Preview())
	assert.True(t, preview.Revoked())

	// A second removal, and one with nothing selected, are both no-ops.
	c.Remove()
	assert.Nil(t, c.File())
}

func TestRemoveDuringInFlightSelectWins(t *testing.T) {
	c := NewController(t.TempDir())

	release := make(chan struct{})
	started := make(chan struct{})
	r := &gatedReader{data: mp4Bytes(), started: started, release: release}

	done := make(chan error, 1)
	go func() {
		_, _, err := c.Select(context.Background(), "slow.mp4", "video/mp4", r)
		done <- err
	}()

	<-started
	c.Remove()
	close(release)

	assert.ErrorIs(t, <-done, ErrSuperseded)
	assert.Nil(t, c.File())
	assert.Nil(t, c.Preview())
}

type readerFunc func(p []byte) (int, error)

func (f readerFunc) Read(p []byte) (int, error) { return f(p) }

// gatedReader signals when reading starts and blocks until released, letting
// tests interleave a removal with an in-flight read.
type gatedReader struct {
	data     []byte
	started  chan struct{}
	release  chan struct{}
	signaled bool
	done     bool
}

func (r *gatedReader) Read(p []byte) (int, error) {
	if !r.signaled {
		r.signaled = true
		close(r.started)
		<-r.release
	}
	if r.done {
		return 0, io.EOF
	}
	r.done = true
	return copy(p, r.data), nil
}

func TestStagingSlotTakeOnce(t *testing.T) {
	var slot StagingSlot
	assert.False(t, slot.Has())

	slot.Put(&StagedFile{Name: "swing.mp4", DeclaredMimeType: "video/mp4", Bytes: []byte("x")})
	assert.True(t, slot.Has())

	staged := slot.Take()
	assert.NotNil(t, staged)
	assert.Equal(t, "swing.mp4", staged.Name)

	// The slot is one-shot.
	assert.Nil(t, slot.Take())
	assert.False(t, slot.Has())
}
