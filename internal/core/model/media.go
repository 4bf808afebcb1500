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

// Package model defines the data structures shared across the swing video
// pipeline. This file holds the media-facing types: the container format
// classification produced by byte sniffing, the selected file with its
// derived state, and the typed advanced-settings record attached to an
// analysis request.
package model

// Format identifies the container format of a selected video, derived from
// the file's leading bytes rather than from the MIME type the source
// reported. FormatUnknown is terminal: a file classified as unknown is never
// processed further.
type Format int

const (
	FormatUnknown Format = iota // No recognized container signature.
	FormatMP4                   // ISO-BMFF container with an MP4-family brand.
	FormatMOV                   // ISO-BMFF container with a QuickTime brand.
	FormatWebM                  // EBML (Matroska/WebM) container.
)

// String returns a short lowercase name for the format, used in logs and in
// API responses.
func (f Format) String() string {
	switch f {
	case FormatMP4:
		return "mp4"
	case FormatMOV:
		return "mov"
	case FormatWebM:
		return "webm"
	default:
		return "unknown"
	}
}

// IsVideo reports whether the format is one of the accepted video containers.
func (f Format) IsVideo() bool {
	return f == FormatMP4 || f == FormatMOV || f == FormatWebM
}

// SelectedFile is the user's chosen file together with the state derived from
// validating it. The byte slice is the fresh copy produced by the sniffer,
// never a handle to the original upload; some mobile sources append wrapper
// metadata to file handles that breaks decoders downstream, so the pipeline
// only ever works from the re-materialized copy.
type SelectedFile struct {
	Name             string // The file name as provided by the source.
	DeclaredMimeType string // The MIME type the source reported. Untrusted.
	DetectedFormat   Format // Result of byte sniffing.
	Bytes            []byte // Fresh byte-identical copy of the file content.
}

// ContentType returns the Content-Type to use when transferring the file to
// object storage: the declared MIME type when present, otherwise fallback.
func (f *SelectedFile) ContentType(fallback string) string {
	if f.DeclaredMimeType == "" {
		return fallback
	}
	return f.DeclaredMimeType
}

// AdvancedSettings is the optional, user-supplied context attached to an
// analysis request. The fields mirror the prompt configuration the product
// exposes: habitual shot shape, typical miss, and a free-form focus note.
// Empty fields are omitted from the create request.
type AdvancedSettings struct {
	ShotShape   string `json:"shape,omitempty"`
	TypicalMiss string `json:"miss,omitempty"`
	ExtraFocus  string `json:"extra,omitempty"`
	Model       string `json:"model,omitempty"`
}

// FormValues returns the settings as flat form fields for the create-analysis
// request. Only populated fields are included.
func (a AdvancedSettings) FormValues() map[string]string {
	out := make(map[string]string)
	if a.ShotShape != "" {
		out["shape"] = a.ShotShape
	}
	if a.TypicalMiss != "" {
		out["miss"] = a.TypicalMiss
	}
	if a.ExtraFocus != "" {
		out["extra"] = a.ExtraFocus
	}
	if a.Model != "" {
		out["model"] = a.Model
	}
	return out
}

// AnalysisStatus is the backend's view of a swing analysis. The backend may
// report either "processing" or "analyzing" while work is still in flight;
// both are treated identically by the poller.
type AnalysisStatus struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// Running reports whether the analysis is still in flight.
func (s AnalysisStatus) Running() bool {
	return s.Status == "processing" || s.Status == "analyzing"
}

// Completed reports whether the backend finished the analysis successfully.
func (s AnalysisStatus) Completed() bool { return s.Status == "completed" }

// Failed reports whether the backend terminated the analysis with an error.
func (s AnalysisStatus) Failed() bool {
	return s.Status == "failed" || s.Status == "error"
}

// AnalysisRecord is a summary of a past analysis as returned by the backend's
// listing endpoints. The analysis payload itself is opaque to this pipeline.
type AnalysisRecord struct {
	ID           string `json:"analysis_id"`
	Status       string `json:"status"`
	VideoKey     string `json:"video_key,omitempty"`
	CreatedAt    string `json:"created_at,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}
