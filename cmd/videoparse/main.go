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

// Command videoparse is the batch CLI and HTTP worker entrypoint (spec
// §1, §6): "process" runs one video through the pipeline and exits;
// "serve" hosts the HTTP front door for job submission.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/quinechen/video-parse/internal/config"
	"github.com/quinechen/video-parse/internal/logging"
	"github.com/quinechen/video-parse/internal/pipeline"
	"github.com/quinechen/video-parse/internal/server"
)

var version string
var build string

func main() {
	var (
		configPath string
		logLevel   string
	)

	root := &cobra.Command{
		Use:   "videoparse",
		Short: "Decode video into a shot-list manifest with keyframes and audio",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if logLevel == "" {
				logLevel = logging.LevelFromEnv()
			}
			logging.Init(logLevel)
			log.Info().Str("version", version).Str("build", build).Msg("videoparse starting")
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to an explicit ini config file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug|info|warn|error (defaults to VIDEO_PARSE_LOG_LEVEL or info)")

	root.AddCommand(newProcessCmd(&configPath))
	root.AddCommand(newServeCmd())

	if err := root.Execute(); err != nil {
		log.Fatal().Err(err).Msg("videoparse failed")
	}
}

func newProcessCmd(configPath *string) *cobra.Command {
	var (
		inputVideo       string
		outputDir        string
		threshold        float64
		minSceneDuration float64
		sampleRate       float64
		thresholdSet     bool
		minSceneSet      bool
		sampleRateSet    bool
	)

	cmd := &cobra.Command{
		Use:   "process [input video]",
		Short: "Process a single video into a shot-list manifest",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := inputVideo
			if input == "" && len(args) == 1 {
				input = args[0]
			}
			if input == "" {
				log.Fatal().Msg("--input is required")
			}
			if outputDir == "" {
				log.Fatal().Msg("--output is required")
			}

			var th, msd, sr *float64
			if thresholdSet {
				th = &threshold
			}
			if minSceneSet {
				msd = &minSceneDuration
			}
			if sampleRateSet {
				sr = &sampleRate
			}

			params := config.Resolve(input, outputDir, th, msd, sr, *configPath)

			log.Info().
				Str("input", params.InputVideo).
				Str("output", params.OutputDir).
				Float64("threshold", params.Threshold).
				Float64("min_scene_duration", params.MinSceneDuration).
				Float64("sample_rate", params.SampleRate).
				Msg("processing")

			ctx, cancel := signalContext()
			defer cancel()

			result, err := pipeline.Run(ctx, params)
			if err != nil {
				return err
			}

			log.Info().
				Int("scene_count", result.Manifest.SceneCount).
				Int("frames_sampled", result.Stats.FramesSampled).
				Int("packets_skipped", result.Stats.PacketsSkipped).
				Bool("audio_fell_back", result.Stats.AudioFellBack).
				Dur("decode_wall", result.Stats.DecodeWall).
				Msg("processing complete")
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputVideo, "input", "i", "", "path to the source video (spec §6: process --input <path> --output <dir>)")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory for the run (required; created if missing, existing files are overwritten)")
	cmd.Flags().Float64Var(&threshold, "threshold", config.DefaultThreshold, "shot boundary combined-diff threshold")
	cmd.Flags().Float64Var(&minSceneDuration, "min-scene-duration", config.DefaultMinSceneDuration, "minimum seconds between shot boundaries")
	cmd.Flags().Float64Var(&sampleRate, "sample-rate", config.DefaultSampleRate, "sampling rate in frames per second (sample_rate_fps)")

	cmd.PreRun = func(cmd *cobra.Command, args []string) {
		thresholdSet = cmd.Flags().Changed("threshold")
		minSceneSet = cmd.Flags().Changed("min-scene-duration")
		sampleRateSet = cmd.Flags().Changed("sample-rate")
	}

	return cmd
}

func newServeCmd() *cobra.Command {
	var bind string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP worker front door",
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Info().Str("bind", bind).Str("webhook_url", config.WebhookURL()).Msg("serving")
			ctx, cancel := signalContext()
			defer cancel()
			return server.Serve(ctx, bind)
		},
	}
	cmd.Flags().StringVar(&bind, "bind", ":8080", "address to listen on")
	return cmd
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
