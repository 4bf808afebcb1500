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
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/oskarjolofsson/swingpipe/internal/core/flow"
	"github.com/oskarjolofsson/swingpipe/internal/core/ingest"
	"github.com/oskarjolofsson/swingpipe/internal/core/model"
	"github.com/oskarjolofsson/swingpipe/internal/core/sniff"
	"github.com/oskarjolofsson/swingpipe/internal/telemetry"
)

func main() {
	telemetry.SetupLogging()
	slog.Info("Logging initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := GetConfig()

	shutdownTelemetry, err := telemetry.SetupOpenTelemetry(ctx, cfg)
	if err != nil {
		slog.Error("Failed to setup OpenTelemetry", "error", err)
		log.Fatal(err)
	}
	slog.Info("Tracing initialized")

	InitState(ctx)
	slog.Info("Initialized State")

	r := gin.Default()
	r.Use(otelgin.Middleware(cfg.Application.Name))

	if len(cfg.Server.AllowedOrigins) > 0 {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowOrigins = cfg.Server.AllowedOrigins
		corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
		r.Use(cors.New(corsConfig))
	} else {
		r.Use(cors.Default())
	}

	apiV1 := r.Group("/api/v1")
	{
		PipelineRouter(apiV1)
		AnalysisRouter(apiV1)
		SessionRouter(apiV1)
		IdentityRouter(apiV1)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.TimeoutInSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.TimeoutInSeconds) * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to listen", "error", err)
		}
	}()
	slog.Info("Server Ready", "port", cfg.Server.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutdown Server ...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server Shutdown Failed", "error", err)
	}
	if state.seeker != nil {
		state.seeker.Close()
	}
	if state.journal != nil {
		if err := state.journal.Close(); err != nil {
			slog.Error("Session journal close failed", "error", err)
		}
	}
	if err := shutdownTelemetry(context.Background()); err != nil {
		slog.Error("Telemetry shutdown failed", "error", err)
	}

	log.Println("Server exiting")
}

// pipelineState decorates the machine snapshot with the pending seek target
// the client applies to its own video element during trimming.
type pipelineState struct {
	flow.Snapshot
	SeekTo *float64 `json:"seek_to,omitempty"`
}

func currentPipelineState() pipelineState {
	st := pipelineState{Snapshot: state.machine.Snapshot()}
	if st.Step == "trim" && state.surface != nil {
		if target, pending := state.surface.Pending(); pending {
			st.SeekTo = &target
		}
	}
	return st
}

// PipelineRouter exposes the video pipeline: file selection, staging,
// trimming, upload, and state.
func PipelineRouter(r *gin.RouterGroup) {
	p := r.Group("/pipeline")
	{
		p.GET("/state", func(c *gin.Context) {
			c.JSON(http.StatusOK, currentPipelineState())
		})

		// Streams the preview copy referenced by the snapshot's preview_url.
		p.GET("/preview", func(c *gin.Context) {
			path, err := state.machine.PreviewFile()
			if err != nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "no preview available"})
				return
			}
			c.File(path)
		})

		p.POST("/file", func(c *gin.Context) {
			header, err := c.FormFile("file")
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "missing file field"})
				return
			}
			f, err := header.Open()
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
				return
			}
			defer f.Close()
			selectIntoPipeline(c, header.Filename, header.Header.Get("Content-Type"), f)
		})

		p.DELETE("/file", func(c *gin.Context) {
			state.machine.RemoveFile()
			c.Status(http.StatusNoContent)
		})

		// A file picked before sign-in is parked here and claimed after.
		p.POST("/stage", func(c *gin.Context) {
			header, err := c.FormFile("file")
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "missing file field"})
				return
			}
			f, err := header.Open()
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
				return
			}
			defer f.Close()
			data, err := io.ReadAll(f)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
				return
			}
			state.staging.Put(&ingest.StagedFile{
				Name:             header.Filename,
				DeclaredMimeType: header.Header.Get("Content-Type"),
				Bytes:            data,
			})
			c.Status(http.StatusAccepted)
		})

		p.POST("/stage/claim", func(c *gin.Context) {
			staged := state.staging.Take()
			if staged == nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "nothing staged"})
				return
			}
			selectIntoPipeline(c, staged.Name, staged.DeclaredMimeType, bytes.NewReader(staged.Bytes))
		})

		p.POST("/duration", func(c *gin.Context) {
			var body struct {
				Seconds float64 `json:"seconds"`
			}
			if err := c.ShouldBindJSON(&body); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid duration payload"})
				return
			}
			state.machine.ReportDuration(body.Seconds)
			c.JSON(http.StatusOK, currentPipelineState())
		})

		p.PUT("/trim", func(c *gin.Context) {
			var body struct {
				Start float64 `json:"start"`
				End   float64 `json:"end"`
			}
			if err := c.ShouldBindJSON(&body); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid trim payload"})
				return
			}
			state.machine.SetTrimRange(body.Start, body.End)
			c.JSON(http.StatusOK, currentPipelineState())
		})

		// The client acknowledges that it applied seek_to to its video
		// element, reopening the seeker for the next position.
		p.POST("/seeked", func(c *gin.Context) {
			state.surface.Ack()
			state.seeker.Completed()
			c.JSON(http.StatusOK, currentPipelineState())
		})

		p.POST("/upload", func(c *gin.Context) {
			var settings model.AdvancedSettings
			if c.Request.ContentLength > 0 {
				if err := c.ShouldBindJSON(&settings); err != nil {
					c.JSON(http.StatusBadRequest, gin.H{"error": "invalid settings payload"})
					return
				}
			}
			if err := state.machine.Submit(c.Request.Context(), settings); err != nil {
				var ve *flow.ValidationError
				switch {
				case errors.As(err, &ve):
					c.JSON(http.StatusUnprocessableEntity, gin.H{"validation_errors": ve.Errors})
				case errors.Is(err, flow.ErrBusy):
					c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				default:
					c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				}
				return
			}
			c.JSON(http.StatusAccepted, currentPipelineState())
		})

		p.POST("/dismiss", func(c *gin.Context) {
			state.machine.DismissError()
			c.JSON(http.StatusOK, currentPipelineState())
		})
	}
}

// selectIntoPipeline feeds a file into the machine and writes the HTTP
// response for the outcome.
func selectIntoPipeline(c *gin.Context, name, declaredMime string, r io.Reader) {
	_, _, err := state.machine.SelectFile(c.Request.Context(), name, declaredMime, r)
	if err != nil {
		var me *ingest.MimeTypeError
		var fe *sniff.FormatError
		switch {
		case errors.As(err, &me), errors.As(err, &fe):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, flow.ErrBusy), errors.Is(err, ingest.ErrSuperseded):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			slog.Error("file selection failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read file. Please try again."})
		}
		return
	}
	c.JSON(http.StatusOK, currentPipelineState())
}

// AnalysisRouter exposes read paths over past analyses.
func AnalysisRouter(r *gin.RouterGroup) {
	a := r.Group("/analysis")
	{
		a.GET("", func(c *gin.Context) {
			recs, err := state.analyses.List(c.Request.Context())
			if err != nil {
				slog.Error("listing analyses failed", "error", err)
				c.JSON(http.StatusBadGateway, gin.H{"error": "Request failed"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"analyses": recs})
		})

		a.GET("/:id", func(c *gin.Context) {
			rec, err := state.analyses.Get(c.Request.Context(), c.Param("id"))
			if err != nil {
				slog.Error("fetching analysis failed", "error", err)
				c.JSON(http.StatusBadGateway, gin.H{"error": "Request failed"})
				return
			}
			c.JSON(http.StatusOK, rec)
		})

		a.GET("/:id/video-url", func(c *gin.Context) {
			url, err := state.analyses.VideoURL(c.Request.Context(), c.Param("id"))
			if err != nil {
				slog.Error("resolving video url failed", "error", err)
				c.JSON(http.StatusBadGateway, gin.H{"error": "Request failed"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"url": url})
		})
	}
}

// IdentityRouter exposes the signed-in account behind the backend calls.
func IdentityRouter(r *gin.RouterGroup) {
	r.GET("/me", func(c *gin.Context) {
		user, err := state.identity.CurrentUser(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "not signed in"})
			return
		}
		c.JSON(http.StatusOK, user)
	})
}

// SessionRouter exposes the local session journal for diagnostics.
func SessionRouter(r *gin.RouterGroup) {
	r.GET("/sessions", func(c *gin.Context) {
		if state.journal == nil {
			c.JSON(http.StatusOK, gin.H{"sessions": []any{}})
			return
		}
		limit, err := strconv.Atoi(c.DefaultQuery("count", "50"))
		if err != nil {
			limit = 50
		}
		recs, err := state.journal.List(c.Request.Context(), limit)
		if err != nil {
			slog.Error("listing sessions failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Request failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"sessions": recs})
	})
}
