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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSamplerEmitsAtCadence(t *testing.T) {
	s := newSampler(2.0) // 0.5s period
	require.Equal(t, 0.0, s.nextEmit)

	// Frame at t=0.0 is emitted (>= nextEmit); advance to 0.5.
	require.GreaterOrEqual(t, 0.0, s.nextEmit)
	s.advance(0.0)
	require.Equal(t, 0.5, s.nextEmit)

	// Frame at t=0.3 would NOT be emitted (< 0.5); no call to advance.
	require.Less(t, 0.3, s.nextEmit)

	// Frame at t=0.5 is emitted; advance to 1.0.
	s.advance(0.5)
	require.Equal(t, 1.0, s.nextEmit)
}

func TestSamplerResyncsAfterStall(t *testing.T) {
	s := newSampler(10.0) // 0.1s period
	s.advance(0.0)
	require.Equal(t, 0.1, s.nextEmit)

	// Big timestamp jump (e.g. after skipped packets): resync instead of
	// leaving nextEmit far behind ts.
	s.advance(5.0)
	require.Equal(t, 5.1, s.nextEmit)
}

func TestSamplerAboveNativeFPSEmitsEveryFrame(t *testing.T) {
	s := newSampler(1000.0) // far above any native fps
	ts := 0.0
	for i := 0; i < 5; i++ {
		require.GreaterOrEqual(t, ts, s.nextEmit-1e-9)
		s.advance(ts)
		ts += 1.0 / 30.0
	}
}
