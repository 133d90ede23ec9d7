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

package detector

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quinechen/video-parse/internal/decoder"
)

// solidFrame builds a uniform-color w x h RGB frame at the given timestamp.
func solidFrame(ts float64, w, h int, r, g, b byte) decoder.SampledFrame {
	pix := make([]byte, w*h*3)
	for i := 0; i < w*h; i++ {
		pix[i*3] = r
		pix[i*3+1] = g
		pix[i*3+2] = b
	}
	return decoder.SampledFrame{Timestamp: ts, Width: w, Height: h, Pix: pix}
}

func TestStaticVideoYieldsNoBoundaries(t *testing.T) {
	d := New(Config{Threshold: 0.3, MinSceneDuration: 1.0})
	for i := 0; i < 20; i++ {
		d.Feed(solidFrame(float64(i)/2, 4, 4, 100, 100, 100))
	}
	require.Empty(t, d.Boundaries())
}

func TestHardCutProducesBoundary(t *testing.T) {
	d := New(Config{Threshold: 0.3, MinSceneDuration: 1.0})
	for i := 0; i < 16; i++ { // 0.0 .. 7.5s at 2 fps, before the cut
		d.Feed(solidFrame(float64(i)/2, 4, 4, 10, 10, 10))
	}
	for i := 16; i < 40; i++ { // 8.0 .. 19.5s, after the cut
		d.Feed(solidFrame(float64(i)/2, 4, 4, 240, 240, 240))
	}
	b := d.Boundaries()
	require.Len(t, b, 1)
	require.InDelta(t, 8.0, b[0], 0.5)
}

func TestMinSceneDurationSuppressesCloseCuts(t *testing.T) {
	d := New(Config{Threshold: 0.3, MinSceneDuration: 10.0})
	for i := 0; i < 16; i++ {
		d.Feed(solidFrame(float64(i)/2, 4, 4, 10, 10, 10))
	}
	for i := 16; i < 40; i++ {
		d.Feed(solidFrame(float64(i)/2, 4, 4, 240, 240, 240))
	}
	// 20 - 8 = 12 >= 10 would pass, but 8 - 0 = 8 < 10 suppresses it.
	require.Empty(t, d.Boundaries())
}

func TestThresholdZeroBoundaryOnEveryPairSubjectToDurationFloor(t *testing.T) {
	d := New(Config{Threshold: 0, MinSceneDuration: 1.0})
	for i := 0; i < 10; i++ {
		// Alternate colors every sample so every pair has diff > 0.
		var v byte = 10
		if i%2 == 1 {
			v = 200
		}
		d.Feed(solidFrame(float64(i), 4, 4, v, v, v))
	}
	b := d.Boundaries()
	require.NotEmpty(t, b)
	for i := 1; i < len(b); i++ {
		require.GreaterOrEqual(t, b[i]-b[i-1], 1.0)
	}
}

func TestThresholdOneNeverBoundaries(t *testing.T) {
	d := New(Config{Threshold: 1.0, MinSceneDuration: 0})
	for i := 0; i < 10; i++ {
		var v byte = 0
		if i%2 == 1 {
			v = 255
		}
		d.Feed(solidFrame(float64(i), 4, 4, v, v, v))
	}
	require.Empty(t, d.Boundaries())
}

func TestBoundariesStrictlyIncreasing(t *testing.T) {
	d := New(Config{Threshold: 0.2, MinSceneDuration: 0.5})
	for i := 0; i < 30; i++ {
		var v byte = 10
		if (i/3)%2 == 1 {
			v = 220
		}
		d.Feed(solidFrame(float64(i)/3, 4, 4, v, v, v))
	}
	b := d.Boundaries()
	for i := 1; i < len(b); i++ {
		require.Greater(t, b[i], b[i-1])
	}
}

func TestHigherThresholdIsSubsequenceOfLower(t *testing.T) {
	mkBoundaries := func(threshold float64) []float64 {
		d := New(Config{Threshold: threshold, MinSceneDuration: 0})
		vals := []byte{10, 250, 10, 40, 240, 12, 230}
		for i, v := range vals {
			d.Feed(solidFrame(float64(i), 4, 4, v, v, v))
		}
		return d.Boundaries()
	}

	low := mkBoundaries(0.1)
	high := mkBoundaries(0.7)

	// every high-threshold boundary must appear in the low-threshold list
	set := make(map[float64]bool, len(low))
	for _, b := range low {
		set[b] = true
	}
	for _, b := range high {
		require.True(t, set[b], "boundary %v from higher threshold missing from lower-threshold result", b)
	}
}

func TestEmptyFrameGuardsDivideByZero(t *testing.T) {
	d := New(Config{Threshold: 0.1, MinSceneDuration: 0})
	require.NotPanics(t, func() {
		d.Feed(decoder.SampledFrame{Timestamp: 0, Width: 0, Height: 0, Pix: nil})
		d.Feed(decoder.SampledFrame{Timestamp: 1, Width: 0, Height: 0, Pix: nil})
	})
}
