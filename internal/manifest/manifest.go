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

// Package manifest assembles and writes the final run document.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// VideoInfo is the immutable per-run source description (spec §3).
type VideoInfo struct {
	Path          string
	TotalDuration float64
	FPS           float64
	Width         int
	Height        int
}

// ShotRecord is one detected shot (spec §3).
type ShotRecord struct {
	SceneID      int     `json:"scene_id"`
	KeyframeFile string  `json:"keyframe_file"`
	StartTime    float64 `json:"start_time"`
	EndTime      float64 `json:"end_time"`
	Duration     float64 `json:"duration"`
}

// Manifest is the bit-exact top-level document from spec §6.
type Manifest struct {
	InputVideo   string       `json:"input_video"`
	TotalDuration float64     `json:"total_duration"`
	FPS          float64      `json:"fps"`
	Resolution   string       `json:"resolution"`
	SceneCount   int          `json:"scene_count"`
	AudioFile    *string      `json:"audio_file"`
	Scenes       []ShotRecord `json:"scenes"`
}

// keyframeName returns the conventional "keyframe_####.jpg" basename for
// a zero-based scene index.
func keyframeName(i int) string {
	return fmt.Sprintf("keyframe_%04d.jpg", i)
}

// KeyframeName exposes the naming convention so the keyframe emitter and
// the manifest builder never disagree on it.
func KeyframeName(i int) string { return keyframeName(i) }

// Build assembles the Manifest from the video info, the detector's
// boundary list (timestamps strictly between 0 and total duration, not
// including either endpoint) and the audio demuxer's chosen filename (nil
// if no audio track was present or the demux failed).
//
// Boundaries are padded with 0.0 at the front and TotalDuration at the
// back to form the cut points, per spec §4.5.
func Build(info VideoInfo, boundaries []float64, audioFile *string) Manifest {
	cuts := make([]float64, 0, len(boundaries)+2)
	cuts = append(cuts, 0.0)
	cuts = append(cuts, boundaries...)
	cuts = append(cuts, info.TotalDuration)

	scenes := make([]ShotRecord, 0, len(cuts)-1)
	for i := 0; i < len(cuts)-1; i++ {
		start, end := cuts[i], cuts[i+1]
		scenes = append(scenes, ShotRecord{
			SceneID:      i,
			KeyframeFile: keyframeName(i),
			StartTime:    start,
			EndTime:      end,
			Duration:     end - start,
		})
	}

	return Manifest{
		InputVideo:    info.Path,
		TotalDuration: info.TotalDuration,
		FPS:           info.FPS,
		Resolution:    fmt.Sprintf("%dx%d", info.Width, info.Height),
		SceneCount:    len(scenes),
		AudioFile:     audioFile,
		Scenes:        scenes,
	}
}

// Write serializes m as indented JSON into <dir>/metadata.json, writing to
// a temp file first and renaming into place so a concurrent reader of dir
// never observes a partially-written manifest (spec §4.5 write-order
// invariant).
func Write(dir string, m Manifest) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("manifest: marshal: %w", err)
	}

	final := filepath.Join(dir, "metadata.json")
	tmp := final + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("manifest: create temp file: %w", err)
	}
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("manifest: write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("manifest: close temp file: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("manifest: rename into place: %w", err)
	}
	return nil
}
