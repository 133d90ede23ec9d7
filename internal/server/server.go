/* SPDX-License-Identifier: GPL-3.0-or-later
 *
 * video-parse
 * Copyright (C) 2026 quinechen
 *
 * This file is part of video-parse.
 *
 * video-parse is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * video-parse is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with video-parse.  If not, see <https://www.gnu.org/licenses/>.
 */

// Package server is the thin HTTP-mode front door the core must be
// callable from (spec §1, §6). It deliberately does not implement
// object-storage download/upload, credential handling, request tracing,
// or webhook delivery — those are the external collaborator's job.
package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/quinechen/video-parse/internal/config"
	"github.com/quinechen/video-parse/internal/pipeline"
	"github.com/quinechen/video-parse/internal/runid"
)

// jobRequest is the request body for POST /v1/jobs. Fields mirror the
// CLI flags from spec §6; zero values fall through to config defaults.
type jobRequest struct {
	InputVideo       string   `json:"input_video"`
	OutputDir        string   `json:"output_dir"`
	Threshold        *float64 `json:"threshold,omitempty"`
	MinSceneDuration *float64 `json:"min_scene_duration,omitempty"`
	SampleRate       *float64 `json:"sample_rate,omitempty"`
}

type jobResponse struct {
	RunID      string      `json:"run_id"`
	Manifest   interface{} `json:"manifest,omitempty"`
	Error      string      `json:"error,omitempty"`
	Stage      string      `json:"stage,omitempty"`
	WebhookURL string      `json:"webhook_url,omitempty"`
}

// NewRouter builds the chi router for HTTP mode.
func NewRouter() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", handleHealthz)
	r.Post("/v1/jobs", handleCreateJob)
	return r
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleCreateJob(w http.ResponseWriter, r *http.Request) {
	id := runid.New()
	logger := log.With().Str("run_id", id).Logger()

	var req jobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, jobResponse{RunID: id, Error: err.Error(), Stage: "request"})
		return
	}
	if req.InputVideo == "" || req.OutputDir == "" {
		writeJSON(w, http.StatusBadRequest, jobResponse{RunID: id, Error: "input_video and output_dir are required", Stage: "request"})
		return
	}

	params := config.Resolve(req.InputVideo, req.OutputDir, req.Threshold, req.MinSceneDuration, req.SampleRate, "")

	logger.Info().Str("input", params.InputVideo).Msg("job received")

	result, err := pipeline.Run(r.Context(), params)
	if err != nil {
		logErr(logger, err)
		writeJSON(w, http.StatusUnprocessableEntity, jobResponse{RunID: id, Error: err.Error(), Stage: stageOf(err)})
		return
	}

	webhook := config.WebhookURL()
	logger.Info().Int("scene_count", result.Manifest.SceneCount).Str("webhook_url", webhook).Msg("job complete")
	// Delivery to webhook is the external collaborator's job (spec §1); we
	// only echo the resolved URL back so whatever fronts this endpoint
	// knows where to relay the completion notice.
	writeJSON(w, http.StatusOK, jobResponse{RunID: id, Manifest: result.Manifest, WebhookURL: webhook})
}

func stageOf(err error) string {
	var pe *pipeline.PipelineError
	if e, ok := err.(*pipeline.PipelineError); ok {
		pe = e
		return pe.Stage
	}
	return ""
}

func logErr(logger zerolog.Logger, err error) {
	logger.Error().Err(err).Msg("job failed")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Serve runs the HTTP server until ctx is cancelled.
func Serve(ctx context.Context, bind string) error {
	srv := &http.Server{Addr: bind, Handler: NewRouter()}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		return srv.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}
