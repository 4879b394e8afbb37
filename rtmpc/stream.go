/*
The MIT License (MIT)

Copyright (c) 2016 winlin

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

package main

import (
	"context"
	oe "github.com/ossrs/go-oryx-lib/errors"
	"github.com/ossrs/go-oryx-lib/flv"
	ol "github.com/ossrs/go-oryx-lib/logger"
	"github.com/ossrs/go-oryx-rtmp/amf"
	"github.com/ossrs/go-oryx-rtmp/client"
	"github.com/ossrs/go-oryx-rtmp/protocol"
	"io"
	"os"
	"time"
)

// Log the codec of the first audio and video tag.
type probe struct {
	ctx    ol.Context
	ap     flv.AudioPackager
	vp     flv.VideoPackager
	audio  bool
	video  bool
	frames uint64
}

func newProbe(ctx ol.Context) (v *probe, err error) {
	v = &probe{ctx: ctx}
	if v.ap, err = flv.NewAudioPackager(); err != nil {
		return nil, oe.Wrap(err, "create audio packager")
	}
	if v.vp, err = flv.NewVideoPackager(); err != nil {
		return nil, oe.Wrap(err, "create video packager")
	}
	return
}

func (v *probe) onAudio(tag []byte) {
	v.frames++
	if v.audio {
		return
	}

	f, err := v.ap.Decode(tag)
	if err != nil {
		ol.W(v.ctx, "decode audio failed, err is", err)
		return
	}
	v.audio = true
	ol.T(v.ctx, "audio", f.SoundFormat, f.SoundRate, f.SoundSize, f.SoundType)
}

func (v *probe) onVideo(tag []byte) {
	v.frames++
	if v.video {
		return
	}

	f, err := v.vp.Decode(tag)
	if err != nil {
		ol.W(v.ctx, "decode video failed, err is", err)
		return
	}
	v.video = true
	ol.T(v.ctx, "video", f.CodecID, f.FrameType, f.Trait)
}

// Play the stream, record to flv when specified, quit when connection closed.
func play(ctx ol.Context, c *client.Conn, name string, conf *RtmpcConfig) (err error) {
	var s *client.Stream
	if s, err = c.CreateStream(context.Background()); err != nil {
		return
	}
	defer s.Close()

	var muxer flv.Muxer
	if conf.Rtmp.Flv != "" {
		var f *os.File
		if f, err = os.Create(conf.Rtmp.Flv); err != nil {
			return oe.Wrapf(err, "create %v", conf.Rtmp.Flv)
		}
		defer f.Close()

		if muxer, err = flv.NewMuxer(f); err != nil {
			return oe.Wrap(err, "create muxer")
		}
		defer muxer.Close()

		if err = muxer.WriteHeader(true, true); err != nil {
			return oe.Wrap(err, "write flv header")
		}
	}

	var p *probe
	if p, err = newProbe(ctx); err != nil {
		return
	}

	s.SetConsumer(client.ConsumerFunc(func(streamID uint32, t protocol.MessageType, timestamp uint32, payload []byte) {
		var tagType flv.TagType
		switch t {
		case protocol.MsgAudio:
			p.onAudio(payload)
			tagType = flv.TagTypeAudio
		case protocol.MsgVideo:
			p.onVideo(payload)
			tagType = flv.TagTypeVideo
		case protocol.MsgAMF0Data:
			tagType = flv.TagTypeScriptData
		case protocol.MsgAMF3Data:
			if len(payload) == 0 {
				return
			}
			// the flv script tag is always AMF0.
			tagType, payload = flv.TagTypeScriptData, payload[1:]
		default:
			return
		}

		if muxer != nil {
			if err := muxer.WriteTag(tagType, timestamp, payload); err != nil {
				ol.W(ctx, "write tag failed, err is", err)
			}
		}
	}))

	s.OnStatus(func(st *client.Status) {
		ol.T(ctx, "stream status", st)
	})

	if _, err = s.Play(context.Background(), name, -2, -1, false); err != nil {
		return
	}

	<-c.Done()
	ol.T(ctx, "play done, frames", p.frames, "metadata", s.MetaData())
	return
}

// Publish the flv file, loop when specified, quit when file end or connection closed.
func publish(ctx ol.Context, c *client.Conn, name string, conf *RtmpcConfig) (err error) {
	var s *client.Stream
	if s, err = c.CreateStream(context.Background()); err != nil {
		return
	}
	defer s.Close()

	if _, err = s.Publish(context.Background(), name, client.PublishLive); err != nil {
		return
	}

	var p *probe
	if p, err = newProbe(ctx); err != nil {
		return
	}

	// the timestamp starts at zero, and increase when loop.
	j := NewJitter(ctx)
	start := time.Now()

	for {
		if err = publishFile(ctx, c, s, p, j, start, conf.Rtmp.Flv); err != nil {
			return
		}
		if !conf.Rtmp.Loop {
			break
		}
	}

	ol.T(ctx, "publish done, frames", p.frames)
	return
}

// Publish the tags at the speed of timestamp, which is corrected by jitter.
func publishFile(ctx ol.Context, c *client.Conn, s *client.Stream, p *probe, j *Jitter, start time.Time, file string) (err error) {
	var f *os.File
	if f, err = os.Open(file); err != nil {
		return oe.Wrapf(err, "open %v", file)
	}
	defer f.Close()

	var demuxer flv.Demuxer
	if demuxer, err = flv.NewDemuxer(f); err != nil {
		return oe.Wrap(err, "create demuxer")
	}
	defer demuxer.Close()

	if _, _, _, err = demuxer.ReadHeader(); err != nil {
		return oe.Wrapf(err, "read header of %v", file)
	}

	for {
		var tagType flv.TagType
		var size, timestamp uint32
		if tagType, size, timestamp, err = demuxer.ReadTagHeader(); err != nil {
			if oe.Cause(err) == io.EOF {
				return nil
			}
			return oe.Wrap(err, "read tag header")
		}

		var tag []byte
		if tag, err = demuxer.ReadTag(size); err != nil {
			return oe.Wrap(err, "read tag")
		}

		timestamp = j.Correct(timestamp, JitterFull)
		if wait := time.Duration(timestamp)*time.Millisecond - time.Since(start); wait > 0 {
			select {
			case <-c.Done():
				return oe.Wrap(client.ErrClosed, "publish")
			case <-time.After(wait):
			}
		}

		switch tagType {
		case flv.TagTypeScriptData:
			var values []amf.Value
			if values, err = amf.Unmarshal(amf.AMF0, tag); err != nil {
				ol.W(ctx, "ignore script data, err is", err)
				continue
			}
			if len(values) > 1 && values[0] == amf.String(protocol.CommandOnMetaData) {
				err = s.SetMetaData(values[1])
			}
		case flv.TagTypeAudio:
			p.onAudio(tag)
			err = s.Append(protocol.MsgAudio, timestamp, tag)
		case flv.TagTypeVideo:
			p.onVideo(tag)
			err = s.Append(protocol.MsgVideo, timestamp, tag)
		}
		if err != nil {
			return
		}
	}
}
