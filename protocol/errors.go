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

package protocol

import oe "github.com/ossrs/go-oryx-lib/errors"

// ErrBasicHeader occurs when the chunk stream id is out of range.
var ErrBasicHeader = oe.New("rtmp basic header error")

// ErrChunkNoBinding occurs when the first chunk of a chunk stream is not fmt 0.
var ErrChunkNoBinding = oe.New("rtmp chunk stream not bound")

// ErrChunkNoFragment occurs when a fmt 3 chunk has no message to continue.
var ErrChunkNoFragment = oe.New("rtmp chunk without fragment")

// ErrChunkPartial occurs when a new message starts before the partial one completes.
var ErrChunkPartial = oe.New("rtmp chunk interrupts partial message")

// ErrMessageTooLarge occurs when the payload exceeds the 3 bytes length.
var ErrMessageTooLarge = oe.New("rtmp message too large")

// ErrPacket occurs when the message payload is invalid.
var ErrPacket = oe.New("rtmp packet error")

// ErrHandshake occurs when the server response is invalid.
var ErrHandshake = oe.New("rtmp handshake error")

// ErrRequestURL represents the rtmp request url error.
var ErrRequestURL = oe.New("rtmp request url error")
