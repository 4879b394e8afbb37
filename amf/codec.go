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

import (
	"bytes"
	"encoding/binary"
	oe "github.com/ossrs/go-oryx-lib/errors"
	"math"
)

// The encoder to serialize values of one message payload.
// The AMF3 reference tables live in the encoder, so never reuse it for
// another message.
type Encoder struct {
	// Whether write the complex values, Object, arrays, Date and XML, in AMF3
	// by AVM+ marker, only for AMF0 encoder.
	AvmPlus bool

	encoding ObjectEncoding
	b        bytes.Buffer
	amf3     *amf3Writer
}

func NewEncoder(encoding ObjectEncoding) *Encoder {
	return &Encoder{encoding: encoding}
}

// Encode values in order.
func (v *Encoder) Encode(values ...Value) (err error) {
	for _, value := range values {
		if v.encoding == AMF3 {
			err = v.encode3(value)
		} else {
			err = v.encode0(value)
		}
		if err != nil {
			return
		}
	}
	return
}

// Write a raw byte, for example, the leading zero of AMF3 command.
func (v *Encoder) WriteByte(c byte) error {
	return v.b.WriteByte(c)
}

func (v *Encoder) Bytes() []byte {
	return v.b.Bytes()
}

func (v *Encoder) Len() int {
	return v.b.Len()
}

func (v *Encoder) writeU16(n uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], n)
	v.b.Write(b[:])
}

func (v *Encoder) writeU32(n uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], n)
	v.b.Write(b[:])
}

func (v *Encoder) writeF64(f float64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], math.Float64bits(f))
	v.b.Write(b[:])
}

// The decoder to deserialize values of one message payload.
type Decoder struct {
	encoding ObjectEncoding
	data     []byte
	pos      int
	// the complex objects of AMF0, for the reference marker.
	refs []Value
	amf3 *amf3Reader
	// the nesting level of the value in decoding.
	depth int
}

// The max nesting level of values, a deeper payload is rejected
// before it exhausts the goroutine stack.
const MaxDepth = 512

func NewDecoder(encoding ObjectEncoding, data []byte) *Decoder {
	return &Decoder{encoding: encoding, data: data}
}

// Decode the next value.
func (v *Decoder) Decode() (Value, error) {
	if v.encoding == AMF3 {
		return v.decode3()
	}
	return v.decode0()
}

// Decode all values util no bytes left.
func (v *Decoder) DecodeAll() (values []Value, err error) {
	for v.Len() > 0 {
		var value Value
		if value, err = v.Decode(); err != nil {
			return
		}
		values = append(values, value)
	}
	return
}

// The bytes left to decode.
func (v *Decoder) Len() int {
	return len(v.data) - v.pos
}

// Skip n bytes, for example, the leading zero of AMF3 command.
func (v *Decoder) Skip(n int) (err error) {
	_, err = v.read(n)
	return
}

func (v *Decoder) enter() error {
	if v.depth >= MaxDepth {
		return oe.Wrapf(ErrTooDeep, "depth %v", v.depth)
	}
	v.depth++
	return nil
}

func (v *Decoder) leave() {
	v.depth--
}

func (v *Decoder) read(n int) (b []byte, err error) {
	if n < 0 || v.Len() < n {
		return nil, oe.Wrapf(ErrShort, "require %v, left %v", n, v.Len())
	}
	b = v.data[v.pos : v.pos+n]
	v.pos += n
	return
}

func (v *Decoder) readByte() (byte, error) {
	b, err := v.read(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (v *Decoder) peekByte() (byte, error) {
	if v.Len() < 1 {
		return 0, ErrShort
	}
	return v.data[v.pos], nil
}

func (v *Decoder) readU16() (uint16, error) {
	b, err := v.read(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (v *Decoder) readU32() (uint32, error) {
	b, err := v.read(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (v *Decoder) readF64() (float64, error) {
	b, err := v.read(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
}

// Encode values to bytes in encoding.
func Marshal(encoding ObjectEncoding, values ...Value) ([]byte, error) {
	e := NewEncoder(encoding)
	if err := e.Encode(values...); err != nil {
		return nil, err
	}
	return e.Bytes(), nil
}

// Decode all values from bytes in encoding.
func Unmarshal(encoding ObjectEncoding, data []byte) ([]Value, error) {
	return NewDecoder(encoding, data).DecodeAll()
}
