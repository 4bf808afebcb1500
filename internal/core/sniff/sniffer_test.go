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

package sniff

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oskarjolofsson/swingpipe/internal/core/model"
)

// isoBMFF builds a minimal ISO-BMFF header with the given brand plus some
// trailing payload so the buffer clears the minimum length.
func isoBMFF(brand string) []byte {
	buf := []byte{0x00, 0x00, 0x00, 0x18}
	buf = append(buf, []byte("ftyp")...)
	buf = append(buf, []byte(brand)...)
	buf = append(buf, make([]byte, 16)...)
	return buf
}

func webm() []byte {
	return append([]byte{0x1A, 0x45, 0xDF, 0xA3}, make([]byte, 16)...)
}

func TestClassifyMP4Brands(t *testing.T) {
	for _, brand := range []string{"isom", "iso2", "mp41", "mp42", "avc1", "hvc1", "hev1", "dash", "M4V ", "MSNV"} {
		assert.Equal(t, model.FormatMP4, Classify(isoBMFF(brand)), "brand %q", brand)
	}
}

func TestClassifyQuickTime(t *testing.T) {
	assert.Equal(t, model.FormatMOV, Classify(isoBMFF("qt  ")))
}

func TestClassifyUnknownBrandIsAcceptedAsMP4(t *testing.T) {
	// Unrecognized brand inside a valid ISO-BMFF container.
	assert.Equal(t, model.FormatMP4, Classify(isoBMFF("zzzz")))
}

func TestClassifyWebM(t *testing.T) {
	assert.Equal(t, model.FormatWebM, Classify(webm()))
}

func TestClassifyRejectsGarbage(t *testing.T) {
	assert.Equal(t, model.FormatUnknown, Classify([]byte("this is not a video at all")))
	assert.Equal(t, model.FormatUnknown, Classify(nil))
}

func TestClassifyRejectsTruncatedHeaders(t *testing.T) {
	// An ISO-BMFF header cut off at the minimum length is not classifiable.
	assert.Equal(t, model.FormatUnknown, Classify(isoBMFF("isom")[:12]))
	// EBML magic alone, without any payload.
	assert.Equal(t, model.FormatUnknown, Classify([]byte{0x1A, 0x45, 0xDF, 0xA3}))
}

func TestValidateProducesFreshCopy(t *testing.T) {
	src := isoBMFF("isom")
	file, err := Validate(context.Background(), "swing.mp4", "video/mp4", bytes.NewReader(src))
	assert.NoError(t, err)
	assert.Equal(t, model.FormatMP4, file.DetectedFormat)
	assert.Equal(t, src, file.Bytes)

	// Mutating the source buffer must not affect the validated copy.
	src[0] = 0xFF
	assert.NotEqual(t, src[0], file.Bytes[0])
}

func TestValidateRejectsUnknownFormat(t *testing.T) {
	_, err := Validate(context.Background(), "notes.txt", "video/mp4", bytes.NewReader([]byte("plain text contents here")))
	assert.Error(t, err)

	var fe *FormatError
	assert.True(t, errors.As(err, &fe))
	assert.Equal(t, KindInvalidFormat, fe.Kind)
	assert.Contains(t, fe.Error(), "Invalid video format")
}

// failingReader errors partway through.
type failingReader struct{ reads int }

func (r *failingReader) Read(p []byte) (int, error) {
	r.reads++
	if r.reads > 1 {
		return 0, errors.New("device unplugged")
	}
	copy(p, []byte{0x00})
	return 1, nil
}

func TestValidateReportsReadFailure(t *testing.T) {
	_, err := Validate(context.Background(), "swing.mp4", "video/mp4", &failingReader{})
	var fe *FormatError
	assert.True(t, errors.As(err, &fe))
	assert.Equal(t, KindReadFailed, fe.Kind)
	assert.Contains(t, fe.Error(), "Failed to read file")
}

func TestValidateReportsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Validate(ctx, "swing.mp4", "video/mp4", bytes.NewReader(isoBMFF("isom")))
	var fe *FormatError
	assert.True(t, errors.As(err, &fe))
	assert.Equal(t, KindReadCancelled, fe.Kind)
	assert.Contains(t, fe.Error(), "cancelled")
}

func TestExtensionFallsBackToSniffedFormat(t *testing.T) {
	file := &model.SelectedFile{DetectedFormat: model.FormatWebM, Bytes: []byte("no magic here")}
	assert.Equal(t, "webm", Extension(file))
}

func TestExtensionFromContent(t *testing.T) {
	file, err := Validate(context.Background(), "clip.mov", "video/quicktime", bytes.NewReader(isoBMFF("qt  ")))
	assert.NoError(t, err)
	assert.Equal(t, "mov", Extension(file))
}
