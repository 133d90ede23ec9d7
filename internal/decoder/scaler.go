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

package decoder

import (
	"fmt"

	astiav "github.com/asticode/go-astiav"
)

// rgbScaler converts decoded frames of any source pixel format into
// tightly-packed 8-bit RGB at native resolution via libswscale.
//
// Adapted from the teacher's bgraScaler (video.go): same lazy
// "rebuild context only when source geometry/format changes" shape, with
// the destination pixel format changed from BGRA (what the teacher's Qt
// widget wants to paint) to RGB24 (what spec §3 requires of a Sampled
// Frame).
type rgbScaler struct {
	ssc        *astiav.SoftwareScaleContext
	dst        *astiav.Frame
	srcW, srcH int
	srcPix     astiav.PixelFormat
	dstW, dstH int
}

func (s *rgbScaler) close() {
	if s.dst != nil {
		s.dst.Free()
		s.dst = nil
	}
	if s.ssc != nil {
		s.ssc.Free()
		s.ssc = nil
	}
}

func (s *rgbScaler) ensure(src *astiav.Frame) error {
	sw, sh := src.Width(), src.Height()
	sp := src.PixelFormat()

	if s.ssc != nil && sw == s.srcW && sh == s.srcH && sp == s.srcPix {
		return nil
	}
	s.close()

	flags := astiav.NewSoftwareScaleContextFlags()
	ssc, err := astiav.CreateSoftwareScaleContext(sw, sh, sp, sw, sh, astiav.PixelFormatRgb24, flags)
	if err != nil {
		return fmt.Errorf("CreateSoftwareScaleContext(%dx%d %v -> RGB24): %w", sw, sh, sp, err)
	}

	dst := astiav.AllocFrame()
	dst.SetWidth(sw)
	dst.SetHeight(sh)
	dst.SetPixelFormat(astiav.PixelFormatRgb24)
	if err := dst.AllocBuffer(1); err != nil {
		dst.Free()
		ssc.Free()
		return fmt.Errorf("dst.AllocBuffer: %w", err)
	}

	s.ssc = ssc
	s.dst = dst
	s.srcW, s.srcH, s.srcPix = sw, sh, sp
	s.dstW, s.dstH = sw, sh
	return nil
}

// toRGB converts src into a freshly allocated, tightly packed RGB24 slice.
func (s *rgbScaler) toRGB(src *astiav.Frame) (int, int, []byte, error) {
	if err := s.ensure(src); err != nil {
		return 0, 0, nil, err
	}
	if err := s.ssc.ScaleFrame(src, s.dst); err != nil {
		return 0, 0, nil, fmt.Errorf("ScaleFrame: %w", err)
	}
	n, err := s.dst.ImageBufferSize(1)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("ImageBufferSize: %w", err)
	}
	out := make([]byte, n)
	if _, err := s.dst.ImageCopyToBuffer(out, 1); err != nil {
		return 0, 0, nil, fmt.Errorf("ImageCopyToBuffer: %w", err)
	}
	return s.dstW, s.dstH, out, nil
}
