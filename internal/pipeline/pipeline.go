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

// Package pipeline orchestrates the Decoder+Sampler, Shot Detector,
// Keyframe Emitter, Audio Demuxer, and Manifest Builder in the dependency
// order from spec §2: Manifest <- {Keyframe Emitter, Audio Demuxer} <-
// Shot Detector <- Decoder+Sampler.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quinechen/video-parse/internal/audio"
	"github.com/quinechen/video-parse/internal/config"
	"github.com/quinechen/video-parse/internal/decoder"
	"github.com/quinechen/video-parse/internal/detector"
	"github.com/quinechen/video-parse/internal/keyframe"
	"github.com/quinechen/video-parse/internal/manifest"
)

// Stage names used by PipelineError.
const (
	StageOpen     = "open"
	StageDecode   = "decode"
	StageDetect   = "detect"
	StageKeyframe = "keyframe"
	StageAudio    = "audio"
	StageManifest = "manifest"
	StageOutput   = "output"
)

// PipelineError is the single consolidated error value fatal failures
// unwind to the caller as (spec §7: "naming the stage and cause").
type PipelineError struct {
	Stage string
	Cause error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline: %s: %v", e.Stage, e.Cause)
}

func (e *PipelineError) Unwrap() error { return e.Cause }

func fail(stage string, cause error) error {
	return &PipelineError{Stage: stage, Cause: cause}
}

// RunStats are process-local, non-manifest counters describing one run,
// grounded on the teacher's atomic CamWindow counters (SPEC_FULL.md §3).
type RunStats struct {
	FramesDecoded      int // not filled in by Run; always 0
	FramesSampled      int
	PacketsSkipped     int
	BoundariesDetected int
	AudioFellBack      bool
	DecodeWall         time.Duration
}

// Result is what a successful Run returns.
type Result struct {
	Manifest manifest.Manifest
	Stats    RunStats
}

// Run executes the full pipeline for one invocation. params is the
// immutable, already-resolved parameter record (spec §9: the core never
// reads environment or config files itself). The output directory is
// created if missing and must be exclusively owned by this run (spec §5).
func Run(ctx context.Context, params config.Params) (Result, error) {
	start := time.Now()

	if err := os.MkdirAll(params.OutputDir, 0o755); err != nil {
		return Result{}, fail(StageOutput, err)
	}

	dec, err := decoder.Open(params.InputVideo)
	if err != nil {
		return Result{}, fail(StageOpen, err)
	}
	defer dec.Close()

	info := dec.Info()

	det := detector.New(detector.Config{
		Threshold:        params.Threshold,
		MinSceneDuration: params.MinSceneDuration,
	})
	emitter := keyframe.New(params.OutputDir)
	emitter.NextBoundary(0, 0.0)
	nextShotIdx := 1

	var audioResult audio.Result
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := audio.Demux(params.InputVideo, params.OutputDir)
		if err != nil {
			// Non-fatal by default (spec §4.4, §7): audio_file is
			// cleared, the run continues.
			return nil
		}
		audioResult = res
		return nil
	})
	// audio.Demux takes no context: cancelling ctx stops the decode loop
	// below, but Run still waits for the demux to finish before returning.
	_ = gctx

	next := dec.Frames(params.SampleRate)
	framesSampled := 0
	for {
		select {
		case <-ctx.Done():
			_ = g.Wait()
			return Result{}, fail(StageDecode, ctx.Err())
		default:
		}

		f, ok, ferr := next()
		if ferr != nil {
			_ = g.Wait()
			return Result{}, fail(StageDecode, ferr)
		}
		if !ok {
			break
		}
		framesSampled++

		det.Feed(f)

		boundaries := det.Boundaries()
		if len(boundaries) >= nextShotIdx {
			// A new boundary just appeared; tell the emitter the
			// previous shot is done and a new one starts here.
			emitter.NextBoundary(nextShotIdx, boundaries[nextShotIdx-1])
			nextShotIdx++
		}
		if err := emitter.Feed(f); err != nil {
			_ = g.Wait()
			return Result{}, fail(StageKeyframe, err)
		}
	}

	if err := g.Wait(); err != nil {
		return Result{}, fail(StageAudio, err)
	}

	var audioFile *string
	if audioResult.Filename != "" {
		f := audioResult.Filename
		audioFile = &f
	}

	m := manifest.Build(manifest.VideoInfo{
		Path:          info.Path,
		TotalDuration: info.TotalDuration,
		FPS:           info.FPS,
		Width:         info.Width,
		Height:        info.Height,
	}, det.Boundaries(), audioFile)

	if err := manifest.Write(params.OutputDir, m); err != nil {
		return Result{}, fail(StageManifest, err)
	}

	stats := RunStats{
		FramesSampled:      framesSampled,
		PacketsSkipped:     dec.PacketsSkipped(),
		BoundariesDetected: len(det.Boundaries()),
		AudioFellBack:      audioResult.FellBackToReencode,
		DecodeWall:         time.Since(start),
	}

	return Result{Manifest: m, Stats: stats}, nil
}
