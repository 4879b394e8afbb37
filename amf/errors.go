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

package amf

import oe "github.com/ossrs/go-oryx-lib/errors"

// The error when bytes not enough to decode a value.
var ErrShort = oe.New("amf: not enough bytes")

// The error when the marker is invalid or unknown.
var ErrMarker = oe.New("amf: invalid marker")

// The error when reference index is out of table bounds.
var ErrReference = oe.New("amf: reference out of range")

// The error when a valid AMF3 type is not supported, for instance, ByteArray.
var ErrUnsupported = oe.New("amf: type not supported")

// The error when a string is too long for its length prefix.
var ErrTooLong = oe.New("amf: string too long")

// The error when the U29 value overflows 29 bits.
var ErrU29Overflow = oe.New("amf: u29 overflow")

// The error when values nest deeper than MaxDepth.
var ErrTooDeep = oe.New("amf: nesting too deep")
