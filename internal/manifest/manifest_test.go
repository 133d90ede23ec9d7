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

package manifest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildPartitionsDuration(t *testing.T) {
	info := VideoInfo{Path: "in.mp4", TotalDuration: 20.0, FPS: 30, Width: 1920, Height: 1080}
	m := Build(info, []float64{8.0}, nil)

	require.Equal(t, 2, m.SceneCount)
	require.Equal(t, "1920x1080", m.Resolution)
	require.Equal(t, 0.0, m.Scenes[0].StartTime)
	require.Equal(t, 8.0, m.Scenes[0].EndTime)
	require.Equal(t, 8.0, m.Scenes[1].StartTime)
	require.Equal(t, 20.0, m.Scenes[1].EndTime)
	require.Equal(t, "keyframe_0000.jpg", m.Scenes[0].KeyframeFile)
	require.Equal(t, "keyframe_0001.jpg", m.Scenes[1].KeyframeFile)

	for i := 0; i < len(m.Scenes)-1; i++ {
		require.Equal(t, m.Scenes[i].EndTime, m.Scenes[i+1].StartTime)
	}
}

func TestBuildNoBoundariesYieldsSingleShot(t *testing.T) {
	info := VideoInfo{Path: "static.mp4", TotalDuration: 10.0, FPS: 30, Width: 640, Height: 480}
	m := Build(info, nil, nil)

	require.Equal(t, 1, m.SceneCount)
	require.Equal(t, 0.0, m.Scenes[0].StartTime)
	require.Equal(t, 10.0, m.Scenes[0].EndTime)
	require.Equal(t, 10.0, m.Scenes[0].Duration)
}

func TestBuildAudioFileNullWhenAbsent(t *testing.T) {
	info := VideoInfo{Path: "mute.mp4", TotalDuration: 5.0, FPS: 25, Width: 320, Height: 240}
	m := Build(info, nil, nil)
	require.Nil(t, m.AudioFile)

	b, err := json.Marshal(m)
	require.NoError(t, err)
	require.Contains(t, string(b), `"audio_file":null`)
}

func TestWriteIsAtomicAndReadable(t *testing.T) {
	dir := t.TempDir()
	info := VideoInfo{Path: "in.mp4", TotalDuration: 1.0, FPS: 30, Width: 100, Height: 100}
	m := Build(info, nil, nil)

	require.NoError(t, Write(dir, m))

	// no leftover temp file
	_, err := os.Stat(filepath.Join(dir, "metadata.json.tmp"))
	require.True(t, os.IsNotExist(err))

	raw, err := os.ReadFile(filepath.Join(dir, "metadata.json"))
	require.NoError(t, err)

	var got Manifest
	require.NoError(t, json.Unmarshal(raw, &got))
	require.Equal(t, m.SceneCount, got.SceneCount)
}
