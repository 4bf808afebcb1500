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

// This file implements hierarchical configuration loading: a base TOML file
// is read first and an environment-specific file overrides it. The directory
// and the runtime name come from environment variables, which lets the same
// binary run with local, test, and production settings.
package config

import (
	"errors"
	"log"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Constants governing configuration file discovery.
const (
	ConfigFileBaseName  = ".env"                // Base name for configuration files (".env.toml").
	ConfigFileExtension = ".toml"               // Extension for configuration files.
	ConfigSeparator     = "."                   // Separator in override names (".env.local.toml").
	EnvConfigFilePrefix = "SWING_CONFIG_PREFIX" // Environment variable naming the config directory.
	EnvConfigRuntime    = "SWING_RUNTIME"       // Environment variable naming the runtime ("local", "test", ...).
)

// fileExists checks whether a file is present at the given path.
func fileExists(in string) bool {
	_, err := os.Stat(in)
	return !errors.Is(err, os.ErrNotExist)
}

// Load populates the given configuration from the base TOML file and then
// overlays the runtime-specific file, if either exists. Values in the
// override file win. The runtime defaults to "test" so that test runs never
// pick up production settings by accident.
func Load(baseConfig interface{}) {
	configurationFilePrefix := os.Getenv(EnvConfigFilePrefix)
	if len(configurationFilePrefix) > 0 && !strings.HasSuffix(configurationFilePrefix, string(os.PathSeparator)) {
		configurationFilePrefix = configurationFilePrefix + string(os.PathSeparator)
	}

	runtimeEnvironment := os.Getenv(EnvConfigRuntime)
	if runtimeEnvironment == "" {
		runtimeEnvironment = "test"
	}

	baseConfigFileName := configurationFilePrefix + ConfigFileBaseName + ConfigFileExtension
	envConfigFileName := configurationFilePrefix + ConfigFileBaseName + ConfigSeparator + runtimeEnvironment + ConfigFileExtension

	if fileExists(baseConfigFileName) {
		if _, err := toml.DecodeFile(baseConfigFileName, baseConfig); err != nil {
			log.Fatalf("failed to decode base configuration file %s with error: %s", baseConfigFileName, err)
		}
	}

	if fileExists(envConfigFileName) {
		if _, err := toml.DecodeFile(envConfigFileName, baseConfig); err != nil {
			log.Fatalf("failed to decode environment configuration file: %s with error: %s", envConfigFileName, err)
		}
	}
}
