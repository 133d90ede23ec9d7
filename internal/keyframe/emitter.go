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

// Package keyframe writes one representative JPEG still per detected
// shot (spec §4.3).
package keyframe

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"

	"github.com/quinechen/video-parse/internal/decoder"
	"github.com/quinechen/video-parse/internal/manifest"
)

// Quality is the fixed JPEG quality used for every keyframe (spec §4.3:
// "implementer chooses a constant in the range 85-92; must be
// reproducible run-to-run"). Not configurable (SPEC_FULL.md §9).
const Quality = 90

// Emitter selects and writes one keyframe per pending shot boundary while
// being fed the same sampled-frame stream as the Shot Detector, without a
// second decode pass (spec §4.3: "fed the sampler's output and caches,
// for each currently pending boundary, the first frame whose timestamp
// is >= that boundary").
type Emitter struct {
	outDir string

	pendingIdx   int     // index of the shot currently waiting for its frame
	pendingStart float64 // that shot's start boundary
	haveFrame    bool

	written []string // realized keyframe filenames, in shot-index order
}

// New creates an Emitter that writes into outDir. The caller feeds it
// boundaries (shot start times, beginning with the implicit 0.0) via
// NextBoundary before streaming frames through Feed.
func New(outDir string) *Emitter {
	e := &Emitter{outDir: outDir}
	return e
}

// NextBoundary tells the emitter that shot index idx starts at startTime;
// the next frame with Timestamp >= startTime will be written as that
// shot's keyframe. Boundaries must be supplied in increasing shot-index
// order, matching the Manifest Builder's cut points (spec §4.5).
func (e *Emitter) NextBoundary(idx int, startTime float64) {
	e.pendingIdx = idx
	e.pendingStart = startTime
	e.haveFrame = false
}

// Feed offers a sampled frame to the emitter. If a shot is currently
// pending and f's timestamp has reached its start boundary, f is written
// as that shot's keyframe and the pending slot is cleared until the next
// call to NextBoundary. A write error is fatal (spec §4.3): the manifest
// invariant requires every keyframe to exist.
func (e *Emitter) Feed(f decoder.SampledFrame) error {
	if e.haveFrame {
		return nil
	}
	if f.Timestamp+1e-9 < e.pendingStart {
		return nil
	}

	name := manifest.KeyframeName(e.pendingIdx)
	path := filepath.Join(e.outDir, name)
	if err := writeJPEG(path, f); err != nil {
		return fmt.Errorf("keyframe: write %s: %w", name, err)
	}

	for len(e.written) <= e.pendingIdx {
		e.written = append(e.written, "")
	}
	e.written[e.pendingIdx] = name
	e.haveFrame = true
	return nil
}

// Written returns the realized keyframe filenames, in shot-index order.
func (e *Emitter) Written() []string {
	out := make([]string, len(e.written))
	copy(out, e.written)
	return out
}

// writeJPEG encodes f as a JPEG at Quality and writes it to path.
func writeJPEG(path string, f decoder.SampledFrame) error {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			r, g, b := f.At(x, y)
			img.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: 0xff})
		}
	}

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := jpeg.Encode(out, img, &jpeg.Options{Quality: Quality}); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
