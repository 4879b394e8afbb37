// The MIT License (MIT)
//
// Copyright (c) 2013-2016 Oryx(ossrs)
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies of
// the Software, and to permit persons to whom the Software is furnished to do so,
// subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS
// FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR
// COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
// IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
// CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

package client

import (
	"github.com/ossrs/go-oryx-rtmp/amf"
	"github.com/ossrs/go-oryx-rtmp/protocol"
	"time"
)

const (
	// the flash version of FMLE.
	DefaultFlashVer = "FME/3.0 (compatible; FMSc/1.0)"
	// the capabilities of connect.
	DefaultCapabilities = 0
	// the audio codecs of connect, AAC.
	DefaultAudioCodecs = 0x0400
	// the video codecs of connect, H.264.
	DefaultVideoCodecs = 0x0080
	// the video function of connect, client seek.
	DefaultVideoFunction = 1
	// the buffer length to set before play, in ms.
	DefaultBufferLength = 3000
	// the max times to retry connect for adobe auth.
	maxAuthRetries = 2
)

// The options of connection.
type Options struct {
	// the object encoding, AMF0 or AMF3.
	ObjectEncoding amf.ObjectEncoding
	// the output chunk size set after connected, 0 to never set.
	ChunkSize uint32
	// the flash version, swf url and page url of connect command.
	FlashVer string
	SwfUrl   string
	PageUrl  string
	// the timeout of handshake and commands.
	HandshakeTimeout time.Duration
	CommandTimeout   time.Duration
	// the buffer length in ms to set before play.
	BufferLength uint32
	// the listener of NetConnection status, called in receive goroutine.
	OnStatus StatusListener
}

// The default options, the chunk size is 16KB.
func NewOptions() *Options {
	return &Options{
		ObjectEncoding:   amf.AMF0,
		ChunkSize:        protocol.ClientChunkSize,
		FlashVer:         DefaultFlashVer,
		HandshakeTimeout: protocol.HandshakeTimeout,
		CommandTimeout:   protocol.ConnectAppTimeout,
		BufferLength:     DefaultBufferLength,
	}
}

// Fill the zero fields by default.
func (v *Options) withDefaults() *Options {
	o := NewOptions()
	if v == nil {
		return o
	}

	r := *v
	if r.FlashVer == "" {
		r.FlashVer = o.FlashVer
	}
	if r.HandshakeTimeout <= 0 {
		r.HandshakeTimeout = o.HandshakeTimeout
	}
	if r.CommandTimeout <= 0 {
		r.CommandTimeout = o.CommandTimeout
	}
	if r.BufferLength == 0 {
		r.BufferLength = o.BufferLength
	}
	return &r
}
