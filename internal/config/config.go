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

// Package config defines the application's configuration structures, loaded
// from TOML files. It centralizes every tunable of the pipeline so that none
// of the timing or length policies live as literals in component code.
//
// Structs:
//   - Application: service identity used in logs and telemetry.
//   - Server: HTTP listener settings for the presentation-layer API.
//   - Backend: the remote analysis service consumed by the orchestrator.
//   - Identity: token endpoint settings for the identity provider.
//   - Storage: object-storage transfer settings.
//   - Policy: trim-length and timer policy for the pipeline.
//   - Journal: local session-journal settings.
//   - Config: the top-level aggregate.
package config

import "time"

// Application carries the service identity.
type Application struct {
	Name string `toml:"name"` // Service name reported to telemetry.
}

// Server holds the HTTP listener settings for the API exposed to the
// presentation layer.
type Server struct {
	Port             int      `toml:"port"`              // TCP port to listen on.
	AllowedOrigins   []string `toml:"allowed_origins"`   // CORS origins; empty means allow all (development).
	TimeoutInSeconds int      `toml:"timeout_in_seconds"` // Read and write timeout for the listener.
}

// Backend describes the remote analysis service.
type Backend struct {
	BaseURL                 string `toml:"base_url"`                   // e.g. "https://api.example.com".
	TimeoutInSeconds        int    `toml:"timeout_in_seconds"`         // Per-request timeout.
	StatusRequestsPerSecond int    `toml:"status_requests_per_second"` // Rate cap for the status endpoint.
}

// Identity describes the identity provider's token endpoint. Every
// authenticated backend call resolves a fresh bearer token through it; the
// pipeline itself never caches tokens.
type Identity struct {
	TokenURL     string   `toml:"token_url"`
	ClientID     string   `toml:"client_id"`
	ClientSecret string   `toml:"client_secret"`
	Scopes       []string `toml:"scopes"`
}

// Storage holds settings for the signed object-storage transfer.
type Storage struct {
	DefaultContentType string `toml:"default_content_type"` // Fallback when the file declares no MIME type.
	TimeoutInSeconds   int    `toml:"timeout_in_seconds"`   // Whole-transfer timeout for the PUT.
}

// Policy holds the trim-length and timer policy for the pipeline. All values
// have working defaults so an absent [policy] table yields the production
// behavior.
type Policy struct {
	MaxTrimmedLengthSeconds float64 `toml:"max_trimmed_length_seconds"` // Longest acceptable trimmed clip.
	RecommendedMinSeconds   float64 `toml:"recommended_min_seconds"`    // Advisory lower bound shown to users.
	RecommendedMaxSeconds   float64 `toml:"recommended_max_seconds"`    // Advisory upper bound shown to users.
	SeekDebounceMillis      int     `toml:"seek_debounce_millis"`       // Quiet period before a drag position is seeked.
	SeekFallbackMillis      int     `toml:"seek_fallback_millis"`       // Force-clear for a seek whose completion never fires.
	PollIntervalMillis      int     `toml:"poll_interval_millis"`       // Spacing between analysis status checks.
	PollTimeoutMillis       int     `toml:"poll_timeout_millis"`        // Wall-clock cap on one polling session.
}

// Journal holds the local session-journal settings.
type Journal struct {
	Path string `toml:"path"` // SQLite database path; empty disables the journal.
}

// Config is the top-level configuration aggregate.
type Config struct {
	Application Application `toml:"application"`
	Server      Server      `toml:"server"`
	Backend     Backend     `toml:"backend"`
	Identity    Identity    `toml:"identity"`
	Storage     Storage     `toml:"storage"`
	Policy      Policy      `toml:"policy"`
	Journal     Journal     `toml:"journal"`
}

// NewConfig returns a Config populated with the default policy values. The
// TOML loader overwrites whatever the files provide.
func NewConfig() *Config {
	return &Config{
		Application: Application{Name: "swingpipe"},
		Server:      Server{Port: 8080, TimeoutInSeconds: 20},
		Backend:     Backend{TimeoutInSeconds: 30, StatusRequestsPerSecond: 2},
		Storage:     Storage{DefaultContentType: "video/mp4", TimeoutInSeconds: 120},
		Policy: Policy{
			MaxTrimmedLengthSeconds: 5,
			RecommendedMinSeconds:   2,
			RecommendedMaxSeconds:   3,
			SeekDebounceMillis:      16,
			SeekFallbackMillis:      1000,
			PollIntervalMillis:      2000,
			PollTimeoutMillis:       300000,
		},
	}
}

// SeekDebounce returns the seek debounce as a duration.
func (p Policy) SeekDebounce() time.Duration {
	return time.Duration(p.SeekDebounceMillis) * time.Millisecond
}

// SeekFallback returns the seek force-clear delay as a duration.
func (p Policy) SeekFallback() time.Duration {
	return time.Duration(p.SeekFallbackMillis) * time.Millisecond
}

// PollInterval returns the status-poll spacing as a duration.
func (p Policy) PollInterval() time.Duration {
	return time.Duration(p.PollIntervalMillis) * time.Millisecond
}

// PollTimeout returns the polling wall-clock cap as a duration.
func (p Policy) PollTimeout() time.Duration {
	return time.Duration(p.PollTimeoutMillis) * time.Millisecond
}
