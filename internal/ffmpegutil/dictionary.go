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

// Package ffmpegutil holds small astiav.Dictionary helpers used by the
// decoder when building and logging its input format options.
package ffmpegutil

import (
	"fmt"
	"sort"
	"strings"

	astiav "github.com/asticode/go-astiav"
)

// Pairs returns "key=value" strings for every entry in d, for logging.
func Pairs(d *astiav.Dictionary) []string {
	if d == nil {
		return nil
	}
	var pairs []string
	var prev *astiav.DictionaryEntry
	flags := astiav.NewDictionaryFlags(astiav.DictionaryFlagIgnoreSuffix)
	for {
		e := d.Get("", prev, flags)
		if e == nil {
			break
		}
		pairs = append(pairs, fmt.Sprintf("%s=%s", e.Key(), e.Value()))
		prev = e
	}
	sort.Strings(pairs)
	return pairs
}

// Join renders a dictionary as a single log-friendly line.
func Join(d *astiav.Dictionary) string {
	return strings.Join(Pairs(d), " ")
}

// SetAll writes every key/value pair in opts into d.
func SetAll(d *astiav.Dictionary, opts map[string]string) {
	if d == nil {
		return
	}
	for k, v := range opts {
		_ = d.Set(k, v, 0)
	}
}
