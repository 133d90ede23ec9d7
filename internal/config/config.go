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

// Package config resolves pipeline parameters from CLI flags, environment
// variables, an ini config file, and built-in defaults, in that order of
// precedence (spec §6).
package config

import (
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/ini.v1"
)

// Defaults are the built-in, lowest-precedence values (spec §6, §9 open
// question — the canonical set chosen in DESIGN.md).
const (
	DefaultThreshold        = 0.35
	DefaultMinSceneDuration = 0.8
	DefaultSampleRate       = 0.5
)

// Params is the immutable, per-invocation parameter record the core
// accepts (spec §9: "the core accepts an immutable parameter record per
// invocation; it must not read from environment or config files during
// processing").
type Params struct {
	InputVideo        string
	OutputDir         string
	Threshold         float64
	MinSceneDuration  float64
	SampleRate        float64
}

// searchPath is the ordered list of config file locations consulted when
// no explicit --config path is given (spec §6).
func searchPath(explicit string) []string {
	if explicit != "" {
		return []string{explicit}
	}
	home, _ := os.UserHomeDir()
	paths := []string{"./video-parse.ini", "./.video-parse.ini"}
	if home != "" {
		paths = append(paths, filepath.Join(home, ".video-parse.ini"))
	}
	paths = append(paths, "/etc/video-parse.ini")
	return paths
}

// fileValues holds whatever a config file contributed; zero value means
// "absent", so callers can tell "not set" apart from "set to zero".
type fileValues struct {
	threshold        *float64
	minSceneDuration *float64
	sampleRate       *float64
}

// loadFile reads the first readable, parseable ini file from the search
// path. A missing or malformed file is never fatal: it falls through
// silently to the next source (spec §7).
func loadFile(explicit string) fileValues {
	var fv fileValues
	for _, p := range searchPath(explicit) {
		cfg, err := ini.Load(p)
		if err != nil {
			continue // missing or unreadable: fall through
		}
		sec := cfg.Section("")
		if k, err := sec.Key("threshold").Float64(); err == nil {
			fv.threshold = &k
		}
		if k, err := sec.Key("min_scene_duration").Float64(); err == nil {
			fv.minSceneDuration = &k
		}
		if k, err := sec.Key("sample_rate").Float64(); err == nil {
			fv.sampleRate = &k
		}
		return fv // first found file wins, even if partially readable
	}
	return fv
}

// envFloat reads a float64 environment variable, returning (0, false) if
// unset or non-numeric. A malformed value is ignored, not fatal (spec §7).
func envFloat(name string) (float64, bool) {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Resolve applies the precedence order from spec §6: CLI flags (passed in
// via flagThreshold etc, using a pointer to mean "was this flag set")
// outrank VIDEO_PARSE_* env vars, which outrank the ini config file, which
// outranks the built-in defaults.
func Resolve(input, output string, flagThreshold, flagMinSceneDuration, flagSampleRate *float64, explicitConfigPath string) Params {
	fv := loadFile(explicitConfigPath)

	threshold := DefaultThreshold
	if fv.threshold != nil {
		threshold = *fv.threshold
	}
	if v, ok := envFloat("VIDEO_PARSE_THRESHOLD"); ok {
		threshold = v
	}
	if flagThreshold != nil {
		threshold = *flagThreshold
	}

	minSceneDuration := DefaultMinSceneDuration
	if fv.minSceneDuration != nil {
		minSceneDuration = *fv.minSceneDuration
	}
	if v, ok := envFloat("VIDEO_PARSE_MIN_SCENE_DURATION"); ok {
		minSceneDuration = v
	}
	if flagMinSceneDuration != nil {
		minSceneDuration = *flagMinSceneDuration
	}

	sampleRate := DefaultSampleRate
	if fv.sampleRate != nil {
		sampleRate = *fv.sampleRate
	}
	if v, ok := envFloat("VIDEO_PARSE_SAMPLE_RATE"); ok {
		sampleRate = v
	}
	if flagSampleRate != nil {
		sampleRate = *flagSampleRate
	}

	return Params{
		InputVideo:       input,
		OutputDir:        output,
		Threshold:        threshold,
		MinSceneDuration: minSceneDuration,
		SampleRate:       sampleRate,
	}
}

// WebhookURL resolves VIDEO_PARSE_WEBHOOK_URL. The webhook itself is an
// external collaborator (spec §1 non-goal for the core); this getter
// exists only so cmd/videoparse can pass the value through to it without
// the core ever reading the environment mid-run.
func WebhookURL() string {
	return os.Getenv("VIDEO_PARSE_WEBHOOK_URL")
}
