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

package keyframe

import (
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quinechen/video-parse/internal/decoder"
)

func frame(ts float64, w, h int) decoder.SampledFrame {
	pix := make([]byte, w*h*3)
	for i := range pix {
		pix[i] = byte(i % 256)
	}
	return decoder.SampledFrame{Timestamp: ts, Width: w, Height: h, Pix: pix}
}

func TestEmitterWritesFirstFrameAtOrAfterBoundary(t *testing.T) {
	dir := t.TempDir()
	e := New(dir)

	e.NextBoundary(0, 0.0)
	require.NoError(t, e.Feed(frame(0.0, 8, 8)))
	require.NoError(t, e.Feed(frame(0.5, 8, 8))) // already have this shot's frame; ignored

	e.NextBoundary(1, 8.0)
	require.NoError(t, e.Feed(frame(7.5, 8, 8))) // before boundary, ignored
	require.NoError(t, e.Feed(frame(8.0, 8, 8)))

	written := e.Written()
	require.Equal(t, []string{"keyframe_0000.jpg", "keyframe_0001.jpg"}, written)

	for _, name := range written {
		f, err := os.Open(filepath.Join(dir, name))
		require.NoError(t, err)
		img, err := jpeg.Decode(f)
		require.NoError(t, err)
		require.Equal(t, 8, img.Bounds().Dx())
		require.Equal(t, 8, img.Bounds().Dy())
		_ = f.Close()
	}
}
