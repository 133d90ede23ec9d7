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

// Package audio extracts the source's audio track into a single file
// covering the full duration of the run, attempting stream copy before
// falling back to an AAC re-encode (spec §4.4).
package audio

import (
	"errors"
	"fmt"
	"path/filepath"

	astiav "github.com/asticode/go-astiav"
)

// codecContainer maps a source audio codec to the container/extension
// used when the stream can be copied without re-encoding.
var codecContainer = map[astiav.CodecID]struct {
	format string
	ext    string
}{
	astiav.CodecIDAac:  {"adts", "aac"},
	astiav.CodecIDMp3:  {"mp3", "mp3"},
	astiav.CodecIDFlac: {"flac", "flac"},
	astiav.CodecIDOpus: {"ogg", "ogg"},
	astiav.CodecIDPcmS16le: {"wav", "wav"},
}

// Result describes what the demuxer produced.
type Result struct {
	// Filename is the basename written under the run's output directory,
	// or "" if there was no audio track (spec §4.4: "emit no file and
	// record audio_file = null").
	Filename string
	// FellBackToReencode is true when stream copy failed and the AAC
	// re-encode path was used instead.
	FellBackToReencode bool
}

// Demux opens srcPath again (read-only, tolerating concurrent access
// from the decoder per spec §5), locates its audio stream if any, and
// writes a single audio artifact into outDir. Returns a zero Result with
// no error when the source has no audio track.
func Demux(srcPath, outDir string) (Result, error) {
	fc := astiav.AllocFormatContext()
	if fc == nil {
		return Result{}, errors.New("audio: AllocFormatContext")
	}
	defer fc.Free()

	if err := fc.OpenInput(srcPath, nil, nil); err != nil {
		return Result{}, fmt.Errorf("audio: open input: %w", err)
	}
	if err := fc.FindStreamInfo(nil); err != nil {
		return Result{}, fmt.Errorf("audio: find stream info: %w", err)
	}

	aIdx := -1
	for i, s := range fc.Streams() {
		if s.CodecParameters().MediaType() == astiav.MediaTypeAudio {
			aIdx = i
			break
		}
	}
	if aIdx < 0 {
		return Result{}, nil // no audio track: non-fatal, audio_file stays null
	}
	aStream := fc.Streams()[aIdx]

	if res, err := streamCopy(fc, aStream, aIdx, outDir); err == nil {
		return res, nil
	}

	res, err := reencodeAAC(fc, aStream, aIdx, outDir)
	if err != nil {
		// Audio failure is non-fatal by default (spec §4.4, §7): the
		// caller clears audio_file and keeps going.
		return Result{}, fmt.Errorf("audio: stream copy and AAC fallback both failed: %w", err)
	}
	res.FellBackToReencode = true
	return res, nil
}

// streamCopy attempts to mux the source audio packets into a matching
// container without decoding, grounded on the teacher's startRecorder
// video-stream-copy path (video.go), applied here to the audio stream.
func streamCopy(fc *astiav.FormatContext, aStream *astiav.Stream, aIdx int, outDir string) (Result, error) {
	par := aStream.CodecParameters()
	cc, ok := codecContainer[par.CodecID()]
	if !ok {
		return Result{}, fmt.Errorf("audio: no known stream-copy container for codec %v", par.CodecID())
	}

	name := "audio." + cc.ext
	outPath := filepath.Join(outDir, name)

	oc, err := astiav.AllocOutputFormatContext(nil, cc.format, outPath)
	if err != nil || oc == nil {
		return Result{}, fmt.Errorf("audio: AllocOutputFormatContext: %w", err)
	}
	defer oc.Free()

	ioFlags := astiav.NewIOContextFlags(astiav.IOContextFlagWrite)
	pb, err := astiav.OpenIOContext(outPath, ioFlags, nil, nil)
	if err != nil {
		return Result{}, fmt.Errorf("audio: OpenIOContext: %w", err)
	}
	defer func() {
		_ = pb.Close()
		pb.Free()
	}()
	oc.SetPb(pb)

	os_ := oc.NewStream(nil)
	if os_ == nil {
		return Result{}, errors.New("audio: NewStream failed")
	}
	if err := par.Copy(os_.CodecParameters()); err != nil {
		return Result{}, fmt.Errorf("audio: copy codec parameters: %w", err)
	}
	os_.SetTimeBase(aStream.TimeBase())

	if err := oc.WriteHeader(nil); err != nil {
		return Result{}, fmt.Errorf("audio: WriteHeader: %w", err)
	}

	pkt := astiav.AllocPacket()
	defer pkt.Free()

	for {
		if err := fc.ReadFrame(pkt); err != nil {
			break // EOF or read error: stop muxing, finalize what we have
		}
		if pkt.StreamIndex() != aIdx {
			pkt.Unref()
			continue
		}
		pkt.RescaleTs(aStream.TimeBase(), os_.TimeBase())
		pkt.SetStreamIndex(0)
		if err := oc.WriteInterleavedFrame(pkt); err != nil && !errors.Is(err, astiav.ErrEagain) {
			pkt.Unref()
			return Result{}, fmt.Errorf("audio: WriteInterleavedFrame: %w", err)
		}
		pkt.Unref()
	}

	if err := oc.WriteTrailer(); err != nil {
		return Result{}, fmt.Errorf("audio: WriteTrailer: %w", err)
	}

	return Result{Filename: name}, nil
}

// reencodeAAC decodes the audio stream and re-encodes it to AAC,
// grounded directly on the teacher's startRecorder AAC-encode path
// (video.go: AllocSoftwareResampleContext / ConvertFrame /
// StrictStdComplianceExperimental).
func reencodeAAC(fc *astiav.FormatContext, aStream *astiav.Stream, aIdx int, outDir string) (Result, error) {
	par := aStream.CodecParameters()

	aDec := astiav.FindDecoder(par.CodecID())
	if aDec == nil {
		return Result{}, errors.New("audio: no decoder for source codec")
	}
	aCtx := astiav.AllocCodecContext(aDec)
	if aCtx == nil {
		return Result{}, errors.New("audio: AllocCodecContext (decode)")
	}
	defer aCtx.Free()
	if err := par.ToCodecContext(aCtx); err != nil {
		return Result{}, fmt.Errorf("audio: ToCodecContext: %w", err)
	}
	if err := aCtx.Open(aDec, nil); err != nil {
		return Result{}, fmt.Errorf("audio: open decoder: %w", err)
	}

	enc := astiav.FindEncoder(astiav.CodecIDAac)
	if enc == nil {
		return Result{}, errors.New("audio: AAC encoder not available")
	}
	encCtx := astiav.AllocCodecContext(enc)
	if encCtx == nil {
		return Result{}, errors.New("audio: AllocCodecContext (encode)")
	}
	defer encCtx.Free()

	sr := aCtx.SampleRate()
	if sr <= 0 {
		sr = 44100
	}
	encCtx.SetChannelLayout(aCtx.ChannelLayout())
	encCtx.SetSampleRate(sr)
	if sfs := enc.SampleFormats(); len(sfs) > 0 {
		encCtx.SetSampleFormat(sfs[0])
	}
	encCtx.SetTimeBase(astiav.NewRational(1, sr))
	encCtx.SetBitRate(128000)
	encCtx.SetStrictStdCompliance(astiav.StrictStdComplianceExperimental)

	if err := encCtx.Open(enc, nil); err != nil {
		return Result{}, fmt.Errorf("audio: open AAC encoder: %w", err)
	}

	name := "audio.aac"
	outPath := filepath.Join(outDir, name)

	oc, err := astiav.AllocOutputFormatContext(nil, "adts", outPath)
	if err != nil || oc == nil {
		return Result{}, fmt.Errorf("audio: AllocOutputFormatContext: %w", err)
	}
	defer oc.Free()

	ioFlags := astiav.NewIOContextFlags(astiav.IOContextFlagWrite)
	pb, err := astiav.OpenIOContext(outPath, ioFlags, nil, nil)
	if err != nil {
		return Result{}, fmt.Errorf("audio: OpenIOContext: %w", err)
	}
	defer func() {
		_ = pb.Close()
		pb.Free()
	}()
	oc.SetPb(pb)

	outStream := oc.NewStream(enc)
	if outStream == nil {
		return Result{}, errors.New("audio: NewStream (AAC)")
	}
	if err := encCtx.ToCodecParameters(outStream.CodecParameters()); err != nil {
		return Result{}, fmt.Errorf("audio: ToCodecParameters: %w", err)
	}
	outStream.SetTimeBase(encCtx.TimeBase())

	swr := astiav.AllocSoftwareResampleContext()
	if swr == nil {
		return Result{}, errors.New("audio: AllocSoftwareResampleContext")
	}
	defer swr.Free()

	if err := oc.WriteHeader(nil); err != nil {
		return Result{}, fmt.Errorf("audio: WriteHeader: %w", err)
	}

	pkt := astiav.AllocPacket()
	defer pkt.Free()
	decFrame := astiav.AllocFrame()
	defer decFrame.Free()
	encFrame := astiav.AllocFrame()
	defer encFrame.Free()

	flushEncoder := func() error {
		if err := encCtx.SendFrame(nil); err != nil && !errors.Is(err, astiav.ErrEagain) {
			return err
		}
		for {
			ep := astiav.AllocPacket()
			if err := encCtx.ReceivePacket(ep); err != nil {
				ep.Free()
				break
			}
			ep.SetStreamIndex(outStream.Index())
			ep.RescaleTs(encCtx.TimeBase(), outStream.TimeBase())
			_ = oc.WriteInterleavedFrame(ep)
			ep.Unref()
			ep.Free()
		}
		return nil
	}

	for {
		if err := fc.ReadFrame(pkt); err != nil {
			break
		}
		if pkt.StreamIndex() != aIdx {
			pkt.Unref()
			continue
		}
		if err := aCtx.SendPacket(pkt); err != nil {
			pkt.Unref()
			continue
		}
		pkt.Unref()

		for {
			if err := aCtx.ReceiveFrame(decFrame); err != nil {
				break
			}

			encFrame.SetSampleFormat(encCtx.SampleFormat())
			encFrame.SetChannelLayout(encCtx.ChannelLayout())
			encFrame.SetSampleRate(encCtx.SampleRate())
			encFrame.SetNbSamples(encCtx.FrameSize())
			if err := encFrame.AllocBuffer(0); err != nil {
				decFrame.Unref()
				continue
			}
			if err := swr.ConvertFrame(decFrame, encFrame); err != nil {
				decFrame.Unref()
				continue
			}
			if err := encCtx.SendFrame(encFrame); err == nil || errors.Is(err, astiav.ErrEagain) {
				for {
					ep := astiav.AllocPacket()
					if err := encCtx.ReceivePacket(ep); err != nil {
						ep.Free()
						break
					}
					ep.SetStreamIndex(outStream.Index())
					ep.RescaleTs(encCtx.TimeBase(), outStream.TimeBase())
					_ = oc.WriteInterleavedFrame(ep)
					ep.Unref()
					ep.Free()
				}
			}
			decFrame.Unref()
		}
	}

	if err := flushEncoder(); err != nil {
		return Result{}, fmt.Errorf("audio: flush encoder: %w", err)
	}
	if err := oc.WriteTrailer(); err != nil {
		return Result{}, fmt.Errorf("audio: WriteTrailer: %w", err)
	}

	return Result{Filename: name}, nil
}
