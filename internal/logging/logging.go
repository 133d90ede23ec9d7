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

// Package logging sets up process-wide structured logging, generalized
// from the teacher's config.go:initlog (one-time setup, level toggled by
// a debug flag, written to stdout) to zerolog.
package logging

import (
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var once sync.Once

// Init configures the global zerolog logger. levelName is case-
// insensitive ("debug", "info", "warn", "error"); an unrecognized value
// falls back to "info" rather than failing (spec §7: config failures are
// never fatal).
func Init(levelName string) {
	once.Do(func() {
		level := zerolog.InfoLevel
		if l, err := zerolog.ParseLevel(strings.ToLower(levelName)); err == nil {
			level = l
		}
		zerolog.SetGlobalLevel(level)
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		// cmd/videoparse and internal/server both log through the
		// rs/zerolog/log package global, so the console writer has to be
		// installed there, not just on a context logger nothing reads.
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: false}).With().Timestamp().Logger()
		zerolog.DefaultContextLogger = &log.Logger
	})
}

// LevelFromEnv resolves the ambient VIDEO_PARSE_LOG_LEVEL variable
// (SPEC_FULL.md §6), defaulting to "info".
func LevelFromEnv() string {
	if v := os.Getenv("VIDEO_PARSE_LOG_LEVEL"); v != "" {
		return v
	}
	return "info"
}
