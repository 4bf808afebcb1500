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

package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/oskarjolofsson/swingpipe/internal/backend"
	"github.com/oskarjolofsson/swingpipe/internal/config"
	"github.com/oskarjolofsson/swingpipe/internal/core/flow"
	"github.com/oskarjolofsson/swingpipe/internal/core/ingest"
	"github.com/oskarjolofsson/swingpipe/internal/core/poll"
	"github.com/oskarjolofsson/swingpipe/internal/core/services"
	"github.com/oskarjolofsson/swingpipe/internal/core/trim"
	"github.com/oskarjolofsson/swingpipe/internal/core/upload"
	"github.com/oskarjolofsson/swingpipe/internal/history"
	"github.com/oskarjolofsson/swingpipe/internal/identity"
	"github.com/oskarjolofsson/swingpipe/internal/storage"
)

// StateManager holds the shared components for the application.
type StateManager struct {
	config   *config.Config
	machine  *flow.Machine
	staging  *ingest.StagingSlot
	analyses *services.AnalysisService
	journal  *history.Store
	identity identity.Provider
	surface  *trim.RemoteSurface
	seeker   *trim.Seeker
}

var state = &StateManager{}

// SetupOS points configuration discovery at the local configs directory when
// the environment does not say otherwise.
func SetupOS() (err error) {
	if os.Getenv(config.EnvConfigFilePrefix) == "" {
		if err = os.Setenv(config.EnvConfigFilePrefix, "configs"); err != nil {
			return err
		}
	}
	if os.Getenv(config.EnvConfigRuntime) == "" {
		err = os.Setenv(config.EnvConfigRuntime, "local")
	}
	return err
}

// GetConfig lazily loads the configuration exactly once.
func GetConfig() *config.Config {
	if state.config == nil {
		if err := SetupOS(); err != nil {
			log.Fatalf("failed to set up environment: %v\n", err)
		}
		cfg := config.NewConfig()
		config.Load(cfg)
		state.config = cfg
	}
	return state.config
}

// InitState wires the pipeline behind the API from configuration.
func InitState(ctx context.Context) {
	cfg := GetConfig()

	var provider identity.Provider
	if cfg.Identity.TokenURL != "" {
		p, err := identity.NewOAuthProvider(ctx, cfg.Identity)
		if err != nil {
			log.Fatalf("failed to initialize identity provider: %v\n", err)
		}
		provider = p
	} else {
		slog.Warn("no identity token endpoint configured, backend calls are unauthenticated")
		provider = &identity.StaticProvider{Value: "anonymous"}
	}
	state.identity = provider

	client := backend.NewClient(cfg.Backend, provider)
	transfer := storage.NewTransfer(cfg.Storage)

	var recorder flow.Recorder
	if cfg.Journal.Path != "" {
		journal, err := history.Open(cfg.Journal.Path)
		if err != nil {
			log.Fatalf("failed to open session journal: %v\n", err)
		}
		state.journal = journal
		recorder = journal
	}

	controller := ingest.NewController(os.TempDir())
	surface := &trim.RemoteSurface{}
	seeker := trim.NewSeeker(surface, cfg.Policy.SeekDebounce(), cfg.Policy.SeekFallback())
	state.surface = surface
	state.seeker = seeker
	engine := trim.NewEngine(cfg.Policy, seeker)
	orchestrator := upload.NewOrchestrator(client, transfer)
	poller := poll.NewPoller(client, cfg.Policy)

	state.machine = flow.NewMachine(controller, engine, orchestrator, poller, recorder)
	state.staging = &ingest.StagingSlot{}
	state.analyses = services.NewAnalysisService(client, services.NewVideoURLCache(10*time.Minute))
}
