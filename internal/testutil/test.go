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

// Package testutil provides shared helpers for the test suite: environment
// setup, cached test configuration, and canned video fixtures.
package testutil

import (
	"log"
	"os"
	"testing"

	"github.com/oskarjolofsson/swingpipe/internal/config"
)

// stateManager caches the loaded test configuration so the TOML files are
// read once per test run.
type stateManager struct {
	config *config.Config
}

var state = &stateManager{}

// HandleErr fails the test when err is non-nil. Convenience to cut
// boilerplate in table-driven tests.
func HandleErr(err error, t *testing.T) {
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

// SetupOS points configuration discovery at the repository's configs
// directory with the test runtime.
func SetupOS() (err error) {
	if err = os.Setenv(config.EnvConfigFilePrefix, "../../../configs"); err != nil {
		return err
	}
	return os.Setenv(config.EnvConfigRuntime, "test")
}

// GetTestConfig returns the test configuration, loading it on first use.
func GetTestConfig() *config.Config {
	if state.config == nil {
		if err := SetupOS(); err != nil {
			log.Fatalf("failed to set up test environment: %v\n", err)
		}
		cfg := config.NewConfig()
		config.Load(cfg)
		state.config = cfg
	}
	return state.config
}

// MP4Bytes returns a minimal valid ISO-BMFF buffer with the isom brand.
func MP4Bytes() []byte {
	buf := []byte{0x00, 0x00, 0x00, 0x18}
	buf = append(buf, []byte("ftypisom")...)
	buf = append(buf, make([]byte, 16)...)
	return buf
}

// MOVBytes returns a minimal valid ISO-BMFF buffer with the QuickTime brand.
func MOVBytes() []byte {
	buf := []byte{0x00, 0x00, 0x00, 0x18}
	buf = append(buf, []byte("ftypqt  ")...)
	buf = append(buf, make([]byte, 16)...)
	return buf
}

// WebMBytes returns a minimal buffer with the EBML magic.
func WebMBytes() []byte {
	return append([]byte{0x1A, 0x45, 0xDF, 0xA3}, make([]byte, 16)...)
}
