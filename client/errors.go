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
	oe "github.com/ossrs/go-oryx-lib/errors"
)

// ErrClosed represents the connection is closed, the pending calls are dropped.
var ErrClosed = oe.New("rtmp connection closed")

// ErrNotConnected represents the connect is not success yet.
var ErrNotConnected = oe.New("rtmp not connected")

// ErrRejected represents the connect is rejected by server.
var ErrRejected = oe.New("rtmp connect rejected")

// ErrAuthFailed represents the adobe auth failed.
var ErrAuthFailed = oe.New("rtmp auth failed")

// ErrCommandFailed represents the server responses _error or error level status.
var ErrCommandFailed = oe.New("rtmp command failed")

// ErrInvalidState represents the stream is not in the required state.
var ErrInvalidState = oe.New("rtmp stream invalid state")
