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

// Package decoder opens a source video, decodes its primary video stream,
// and yields a sampled sequence of RGB frames (spec §4.1).
package decoder

import (
	"errors"
	"fmt"
	"image"
	"io"
	"sync"

	astiav "github.com/asticode/go-astiav"
	"github.com/rs/zerolog/log"

	"github.com/quinechen/video-parse/internal/ffmpegutil"
)

var logOnce sync.Once

// initCodecLibrary lazily and idempotently initializes the process-wide
// codec library state (spec §9: "lazily-initialized, idempotent
// process-wide resource"). Grounded on the teacher's main.go
// SetLogLevel/SetLogCallback block.
func initCodecLibrary() {
	logOnce.Do(func() {
		astiav.SetLogLevel(astiav.LogLevelError)
		astiav.SetLogCallback(func(c astiav.Classer, l astiav.LogLevel, format, msg string) {
			// Deliberately quiet: ffmpeg's own log messages are
			// discarded.
		})
	})
}

// Error classes from spec §4.1 / §7.
var (
	ErrMediaNotFound   = errors.New("decoder: media not found")
	ErrUnsupportedMedia = errors.New("decoder: unsupported media")
	ErrDecoderInit     = errors.New("decoder: decoder init failed")
)

// VideoInfo is the immutable per-run description produced once at
// stream-open time (spec §3).
type VideoInfo struct {
	Path          string
	TotalDuration float64
	FPS           float64
	Width         int
	Height        int
}

// SampledFrame is a decoded picture paired with a presentation timestamp
// in seconds (spec §3). Pix is tightly packed 8-bit RGB at Width x Height
// (stride == Width*3).
type SampledFrame struct {
	Timestamp float64
	Width     int
	Height    int
	Pix       []byte // RGB24, tightly packed
}

// RGBA-free helper: expose the frame as an *image.RGBA-less raw view for
// the detector/emitter without a copy. image.RGBA needs 4 bytes/pixel, so
// we keep our own tiny 3-byte-per-pixel accessor instead of wrapping the
// stdlib image types.
func (f SampledFrame) At(x, y int) (r, g, b uint8) {
	i := (y*f.Width + x) * 3
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2]
}

// Bounds mirrors image.Image's Bounds for call sites that want it.
func (f SampledFrame) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.Width, f.Height)
}

// Decoder owns a single open input and decodes its video stream on
// demand. It is single-pass and not safe for concurrent use by multiple
// goroutines (spec §5: single-threaded cooperative at the logical level).
type Decoder struct {
	path string

	fc       *astiav.FormatContext
	vStream  *astiav.Stream
	vCtx     *astiav.CodecContext
	videoIdx int

	scaler   rgbScaler
	info     VideoInfo
	fpsNum   int
	fpsDen   int

	packetsSkipped int
}

// Open opens path, locates and opens the primary video stream's decoder,
// and returns the immutable VideoInfo. Grounded on the teacher's
// video.go:openAndDecode input/stream/codec setup.
func Open(path string) (*Decoder, error) {
	initCodecLibrary()

	fc := astiav.AllocFormatContext()
	if fc == nil {
		return nil, fmt.Errorf("%w: AllocFormatContext", ErrDecoderInit)
	}

	rd := astiav.NewDictionary()
	defer rd.Free()
	ffmpegutil.SetAll(rd, map[string]string{
		"fflags": "+genpts",
	})
	log.Debug().Str("path", path).Str("open_opts", ffmpegutil.Join(rd)).Msg("opening input")

	if err := fc.OpenInput(path, nil, rd); err != nil {
		fc.Free()
		return nil, fmt.Errorf("%w: %s: %v", ErrMediaNotFound, path, err)
	}
	if err := fc.FindStreamInfo(nil); err != nil {
		fc.Free()
		return nil, fmt.Errorf("%w: FindStreamInfo: %v", ErrUnsupportedMedia, err)
	}

	vIdx := -1
	for i, s := range fc.Streams() {
		if s.CodecParameters().MediaType() == astiav.MediaTypeVideo {
			vIdx = i
			break
		}
	}
	if vIdx < 0 {
		fc.Free()
		return nil, fmt.Errorf("%w: no video stream in %s", ErrUnsupportedMedia, path)
	}

	vst := fc.Streams()[vIdx]
	vpar := vst.CodecParameters()

	vdec := astiav.FindDecoder(vpar.CodecID())
	if vdec == nil {
		fc.Free()
		return nil, fmt.Errorf("%w: no decoder for codec", ErrUnsupportedMedia)
	}
	vctx := astiav.AllocCodecContext(vdec)
	if vctx == nil {
		fc.Free()
		return nil, fmt.Errorf("%w: AllocCodecContext", ErrDecoderInit)
	}
	if err := vpar.ToCodecContext(vctx); err != nil {
		vctx.Free()
		fc.Free()
		return nil, fmt.Errorf("%w: ToCodecContext: %v", ErrDecoderInit, err)
	}
	if err := vctx.Open(vdec, nil); err != nil {
		vctx.Free()
		fc.Free()
		return nil, fmt.Errorf("%w: open video codec: %v", ErrDecoderInit, err)
	}

	r := vst.AvgFrameRate()
	if r.Num() <= 0 || r.Den() <= 0 {
		r = vctx.Framerate()
	}
	fpsNum, fpsDen := r.Num(), r.Den()
	fps := 0.0
	if fpsDen > 0 {
		fps = float64(fpsNum) / float64(fpsDen)
	}

	duration := float64(fc.Duration()) / float64(astiav.TimeBase)

	d := &Decoder{
		path:     path,
		fc:       fc,
		vStream:  vst,
		vCtx:     vctx,
		videoIdx: vIdx,
		fpsNum:   fpsNum,
		fpsDen:   fpsDen,
		info: VideoInfo{
			Path:          path,
			TotalDuration: duration,
			FPS:           fps,
			Width:         vctx.Width(),
			Height:        vctx.Height(),
		},
	}
	return d, nil
}

// Info returns the VideoInfo produced at open time.
func (d *Decoder) Info() VideoInfo { return d.info }

// PacketsSkipped returns the number of corrupt/undecodable packets that
// were counted and skipped rather than treated as fatal (spec §4.1, §7).
func (d *Decoder) PacketsSkipped() int { return d.packetsSkipped }

// Close releases the decoder and format context.
func (d *Decoder) Close() {
	d.scaler.close()
	if d.vCtx != nil {
		d.vCtx.Free()
		d.vCtx = nil
	}
	if d.fc != nil {
		d.fc.Free()
		d.fc = nil
	}
}

// Frames returns a lazy, finite, single-pass iterator over sampled RGB
// frames at the given cadence (spec §4.1). The returned function is a
// pull-style next(): call it repeatedly; it returns (frame, true, nil)
// while frames remain, (zero, false, nil) at end of stream.
// A non-nil error from next() after it returns false indicates a fatal
// decode-context failure; EOF is not reported as an error.
func (d *Decoder) Frames(sampleRateFPS float64) func() (SampledFrame, bool, error) {
	sampler := newSampler(sampleRateFPS)

	pkt := astiav.AllocPacket()
	vf := astiav.AllocFrame()
	frameIndex := 0
	eof := false
	var fatalErr error

	pending := make([]SampledFrame, 0, 4)

	closeLocal := func() {
		pkt.Free()
		vf.Free()
	}

	decodeTimestamp := func() float64 {
		pts := vf.Pts()
		if pts == astiav.NoPtsValue && d.fpsNum > 0 {
			return float64(frameIndex) * float64(d.fpsDen) / float64(d.fpsNum)
		}
		tb := d.vStream.TimeBase()
		if tb.Den() == 0 {
			return float64(frameIndex) * float64(d.fpsDen) / float64(d.fpsNum)
		}
		return float64(pts) * float64(tb.Num()) / float64(tb.Den())
	}

	fillPending := func() bool {
		for len(pending) == 0 && !eof {
			if err := d.fc.ReadFrame(pkt); err != nil {
				if errors.Is(err, io.EOF) || errors.Is(err, astiav.ErrEof) {
					eof = true
					break
				}
				d.packetsSkipped++
				continue
			}
			if pkt.StreamIndex() != d.videoIdx {
				pkt.Unref()
				continue
			}
			if err := d.vCtx.SendPacket(pkt); err != nil {
				pkt.Unref()
				d.packetsSkipped++
				continue
			}
			pkt.Unref()

			for {
				err := d.vCtx.ReceiveFrame(vf)
				if errors.Is(err, astiav.ErrEagain) || errors.Is(err, astiav.ErrEof) {
					break
				}
				if err != nil {
					fatalErr = fmt.Errorf("decoder: decode context failure: %w", err)
					eof = true
					break
				}

				ts := decodeTimestamp()
				frameIndex++

				if ts+1e-9 >= sampler.nextEmit {
					w, h, rgb, serr := d.scaler.toRGB(vf)
					if serr != nil {
						fatalErr = fmt.Errorf("decoder: scale failure: %w", serr)
						vf.Unref()
						eof = true
						break
					}
					pending = append(pending, SampledFrame{Timestamp: ts, Width: w, Height: h, Pix: rgb})
					sampler.advance(ts)
				}
				vf.Unref()
			}
		}
		return len(pending) > 0
	}

	return func() (SampledFrame, bool, error) {
		if fatalErr != nil {
			return SampledFrame{}, false, fatalErr
		}
		if !fillPending() {
			closeLocal()
			return SampledFrame{}, false, fatalErr
		}
		f := pending[0]
		pending = pending[1:]
		return f, true, nil
	}
}
