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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveDefaults(t *testing.T) {
	dir := t.TempDir()
	cwd, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	defer func() { _ = os.Chdir(cwd) }()

	p := Resolve("in.mp4", "out", nil, nil, nil, "")
	require.Equal(t, DefaultThreshold, p.Threshold)
	require.Equal(t, DefaultMinSceneDuration, p.MinSceneDuration)
	require.Equal(t, DefaultSampleRate, p.SampleRate)
}

func TestResolveFilePrecedesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "video-parse.ini")
	require.NoError(t, os.WriteFile(path, []byte("threshold = 0.5\nsample_rate = 2.0\n"), 0o644))

	p := Resolve("in.mp4", "out", nil, nil, nil, path)
	require.Equal(t, 0.5, p.Threshold)
	require.Equal(t, 2.0, p.SampleRate)
	require.Equal(t, DefaultMinSceneDuration, p.MinSceneDuration) // not set in file
}

func TestResolveEnvPrecedesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "video-parse.ini")
	require.NoError(t, os.WriteFile(path, []byte("threshold = 0.5\n"), 0o644))

	t.Setenv("VIDEO_PARSE_THRESHOLD", "0.9")
	p := Resolve("in.mp4", "out", nil, nil, nil, path)
	require.Equal(t, 0.9, p.Threshold)
}

func TestResolveFlagPrecedesEverything(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "video-parse.ini")
	require.NoError(t, os.WriteFile(path, []byte("threshold = 0.5\n"), 0o644))
	t.Setenv("VIDEO_PARSE_THRESHOLD", "0.9")

	flag := 0.15
	p := Resolve("in.mp4", "out", &flag, nil, nil, path)
	require.Equal(t, 0.15, p.Threshold)
}

func TestResolveMalformedEnvFallsThrough(t *testing.T) {
	t.Setenv("VIDEO_PARSE_THRESHOLD", "not-a-number")
	p := Resolve("in.mp4", "out", nil, nil, nil, "")
	require.Equal(t, DefaultThreshold, p.Threshold)
}

func TestResolveMissingConfigFileFallsThrough(t *testing.T) {
	p := Resolve("in.mp4", "out", nil, nil, nil, "/nonexistent/path.ini")
	require.Equal(t, DefaultThreshold, p.Threshold)
	require.Equal(t, DefaultSampleRate, p.SampleRate)
}
