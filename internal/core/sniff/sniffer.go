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

// Package sniff classifies a selected file's container format from its
// leading bytes, independent of whatever MIME type the source reported.
// Classification inspects a constant number of bytes regardless of file
// size.
//
// An ISO-BMFF container whose brand is not in either table is still accepted
// as MP4-compatible. This leniency is intentional: rejecting unknown brands
// would turn away playable recordings from less common devices, at the cost
// of occasionally accepting a file the backend later fails to decode.
package sniff

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/h2non/filetype"

	"github.com/oskarjolofsson/swingpipe/internal/core/model"
)

// FailureKind distinguishes why a validation attempt failed. A wrong-format
// file, an unreadable file, and a cancelled read each need a different
// user-facing message.
type FailureKind int

const (
	KindInvalidFormat FailureKind = iota // No recognized container signature.
	KindReadFailed                       // The source could not be read.
	KindReadCancelled                    // The read was cancelled before completion.
)

// FormatError is the typed failure raised by validation. It is always fatal
// to the current selection and is never retried.
type FormatError struct {
	Kind FailureKind
	Err  error
}

// Error returns the user-facing message for the failure.
func (e *FormatError) Error() string {
	switch e.Kind {
	case KindReadFailed:
		return "Failed to read file. Please try again."
	case KindReadCancelled:
		return "File reading was cancelled."
	default:
		return "Invalid video format. Please upload an MP4, MOV, or WebM file."
	}
}

// Unwrap exposes the underlying cause for errors.Is chains.
func (e *FormatError) Unwrap() error { return e.Err }

// Classify inspects the leading bytes of buf and returns the detected
// container format. It never returns an error; an unrecognizable buffer is
// simply FormatUnknown, and the caller must treat that as a hard failure.
func Classify(buf []byte) model.Format {
	if len(buf) > isoBMFFMinLength && bytes.Equal(buf[isoBMFFOffset:isoBMFFOffset+len(ftypSignature)], ftypSignature) {
		brand := string(buf[brandOffset : brandOffset+brandLength])
		if movBrands[brand] {
			return model.FormatMOV
		}
		if mp4Brands[brand] {
			return model.FormatMP4
		}
		// Valid ISO-BMFF container, unknown brand: treat as MP4-compatible
		// for broader device coverage.
		return model.FormatMP4
	}

	if len(buf) > webmMinLength && bytes.Equal(buf[:len(webmSignature)], webmSignature) {
		return model.FormatWebM
	}

	return model.FormatUnknown
}

// Validate reads the file fully, classifies it, and on success returns a
// SelectedFile backed by a fresh copy of the bytes. The copy matters: some
// mobile sources hand out file wrappers that mutate underneath the reader,
// so downstream stages only ever see the re-materialized buffer.
//
// The context is honored during the read; cancellation surfaces as a
// FormatError with KindReadCancelled, and I/O failures as KindReadFailed.
// Neither is a "wrong format" result and they carry different messages.
func Validate(ctx context.Context, name string, declaredMime string, r io.Reader) (*model.SelectedFile, error) {
	buf, err := readAll(ctx, r)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, &FormatError{Kind: KindReadCancelled, Err: err}
		}
		return nil, &FormatError{Kind: KindReadFailed, Err: err}
	}

	format := Classify(buf)
	if !format.IsVideo() {
		return nil, &FormatError{Kind: KindInvalidFormat, Err: fmt.Errorf("no container signature in %q", name)}
	}

	// Fresh, byte-identical copy of the content.
	fresh := make([]byte, len(buf))
	copy(fresh, buf)

	return &model.SelectedFile{
		Name:             name,
		DeclaredMimeType: declaredMime,
		DetectedFormat:   format,
		Bytes:            fresh,
	}, nil
}

// Extension returns the preferred file extension for the validated content,
// used when naming the preview copy on disk. The filetype probe corroborates
// the sniffed container; if it cannot tell, the sniffed format's name is
// used.
func Extension(f *model.SelectedFile) string {
	if t, err := filetype.Match(f.Bytes); err == nil && t != filetype.Unknown {
		return t.Extension
	}
	return f.DetectedFormat.String()
}

// readAll drains r while honoring ctx. Reads happen in chunks so a
// cancellation between chunks is observed promptly.
func readAll(ctx context.Context, r io.Reader) ([]byte, error) {
	var out bytes.Buffer
	chunk := make([]byte, 64*1024)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := r.Read(chunk)
		if n > 0 {
			out.Write(chunk[:n])
		}
		if err == io.EOF {
			return out.Bytes(), nil
		}
		if err != nil {
			return nil, err
		}
	}
}
