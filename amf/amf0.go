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
	oe "github.com/ossrs/go-oryx-lib/errors"
	"math"
	"strconv"
)

// AMF0 marker
const (
	amf0Number        = 0x00
	amf0Boolean       = 0x01
	amf0String        = 0x02
	amf0Object        = 0x03
	amf0MovieClip     = 0x04 // reserved, not supported
	amf0Null          = 0x05
	amf0Undefined     = 0x06
	amf0Reference     = 0x07
	amf0EcmaArray     = 0x08
	amf0ObjectEnd     = 0x09
	amf0StrictArray   = 0x0A
	amf0Date          = 0x0B
	amf0LongString    = 0x0C
	amf0UnSupported   = 0x0D
	amf0RecordSet     = 0x0E // reserved, not supported
	amf0XmlDocument   = 0x0F
	amf0TypedObject   = 0x10
	amf0AVMplusObject = 0x11
)

// The max length of the 2 bytes string.
const amf0MaxShortString = 0xffff

// @see: 2.14 Long String Type
// when the UTF-8 bytes exceed 65535, use long string.
func (v *Encoder) encode0(value Value) (err error) {
	switch value := value.(type) {
	case nil, Null:
		return v.b.WriteByte(amf0Null)
	case Undefined:
		return v.b.WriteByte(amf0Undefined)
	case Boolean:
		v.b.WriteByte(amf0Boolean)
		if value {
			return v.b.WriteByte(1)
		}
		return v.b.WriteByte(0)
	case Number:
		v.b.WriteByte(amf0Number)
		v.writeF64(float64(value))
		return
	case String:
		if len(value) > amf0MaxShortString {
			v.b.WriteByte(amf0LongString)
			return v.writeLongUtf8(string(value))
		}
		v.b.WriteByte(amf0String)
		return v.writeUtf8(string(value))
	}

	if v.AvmPlus {
		v.b.WriteByte(amf0AVMplusObject)
		return v.encode3(value)
	}

	switch value := value.(type) {
	case XMLDocument:
		v.b.WriteByte(amf0XmlDocument)
		return v.writeLongUtf8(string(value))
	case XML:
		// AMF0 has no xml, only the xml document.
		v.b.WriteByte(amf0XmlDocument)
		return v.writeLongUtf8(string(value))
	case *Date:
		// @see: 2.13 Date Type
		// time-zone = S16 ; reserved, not supported should be set to 0x0000
		v.b.WriteByte(amf0Date)
		v.writeF64(value.Millis)
		v.writeU16(0)
		return
	case *Object:
		v.b.WriteByte(amf0Object)
		return v.writeProperties(&value.properties)
	case *EcmaArray:
		// @see: 2.10 ECMA Array Type
		// the dense values are written with the index as key.
		v.b.WriteByte(amf0EcmaArray)
		v.writeU32(uint32(len(value.Dense) + value.Len()))
		for i, e := range value.Dense {
			if err = v.writeUtf8(strconv.Itoa(i)); err != nil {
				return
			}
			if err = v.encode0(e); err != nil {
				return
			}
		}
		return v.writeProperties(&value.properties)
	case *StrictArray:
		// @see: 2.12 Strict Array Type
		v.b.WriteByte(amf0StrictArray)
		v.writeU32(uint32(len(value.Values)))
		for _, e := range value.Values {
			if err = v.encode0(e); err != nil {
				return
			}
		}
		return
	}

	return oe.Wrapf(ErrUnsupported, "amf0 value %T", value)
}

// The properties end with an empty key and the object end marker.
func (v *Encoder) writeProperties(p *properties) (err error) {
	for _, e := range p.properties {
		if len(e.key) == 0 {
			return oe.Wrap(ErrMarker, "empty key")
		}
		if err = v.writeUtf8(e.key); err != nil {
			return
		}
		if err = v.encode0(e.value); err != nil {
			return
		}
	}

	v.writeU16(0)
	return v.b.WriteByte(amf0ObjectEnd)
}

// @see: 1.3.1 Strings and UTF-8
// UTF-8 = U16 *(UTF8-char)
func (v *Encoder) writeUtf8(s string) error {
	if len(s) > amf0MaxShortString {
		return oe.Wrapf(ErrTooLong, "utf8 %vB", len(s))
	}
	v.writeU16(uint16(len(s)))
	v.b.WriteString(s)
	return nil
}

// UTF-8-long = U32 *(UTF8-char)
func (v *Encoder) writeLongUtf8(s string) error {
	if uint64(len(s)) > math.MaxUint32 {
		return oe.Wrapf(ErrTooLong, "long utf8 %vB", len(s))
	}
	v.writeU32(uint32(len(s)))
	v.b.WriteString(s)
	return nil
}

func (v *Decoder) decode0() (value Value, err error) {
	if err = v.enter(); err != nil {
		return
	}
	defer v.leave()

	var marker byte
	if marker, err = v.readByte(); err != nil {
		return
	}

	switch marker {
	case amf0Number:
		var f float64
		if f, err = v.readF64(); err != nil {
			return
		}
		return Number(f), nil
	case amf0Boolean:
		var b byte
		if b, err = v.readByte(); err != nil {
			return
		}
		return Boolean(b != 0), nil
	case amf0String:
		var s string
		if s, err = v.readUtf8(); err != nil {
			return
		}
		return String(s), nil
	case amf0LongString:
		var s string
		if s, err = v.readLongUtf8(); err != nil {
			return
		}
		return String(s), nil
	case amf0XmlDocument:
		var s string
		if s, err = v.readLongUtf8(); err != nil {
			return
		}
		return XMLDocument(s), nil
	case amf0Null:
		return Null{}, nil
	case amf0Undefined, amf0UnSupported:
		return Undefined{}, nil
	case amf0Date:
		var ms float64
		if ms, err = v.readF64(); err != nil {
			return
		}
		// ignore the time-zone.
		if _, err = v.readU16(); err != nil {
			return
		}
		return &Date{Millis: ms}, nil
	case amf0Object:
		obj := NewObject()
		v.refs = append(v.refs, obj)
		if err = v.readProperties(obj.set); err != nil {
			return
		}
		return obj, nil
	case amf0TypedObject:
		// @see: 2.18 Typed Object Marker
		// the class name is dropped, decode as anonymous object.
		if _, err = v.readUtf8(); err != nil {
			return
		}
		obj := NewObject()
		v.refs = append(v.refs, obj)
		if err = v.readProperties(obj.set); err != nil {
			return
		}
		return obj, nil
	case amf0EcmaArray:
		// the associative-count is not trusted, the array ends with object end.
		if _, err = v.readU32(); err != nil {
			return
		}
		arr := NewEcmaArray()
		v.refs = append(v.refs, arr)
		if err = v.readProperties(func(key string, value Value) {
			arr.Set(key, value)
		}); err != nil {
			return
		}
		return arr, nil
	case amf0StrictArray:
		var count uint32
		if count, err = v.readU32(); err != nil {
			return
		}
		// each value is at least 1 byte.
		if int64(count) > int64(v.Len()) {
			return nil, oe.Wrapf(ErrShort, "strict array count %v, left %v", count, v.Len())
		}
		arr := &StrictArray{}
		if count > 0 {
			arr.Values = make([]Value, 0, int(count))
		}
		v.refs = append(v.refs, arr)
		for i := 0; i < int(count); i++ {
			var e Value
			if e, err = v.decode0(); err != nil {
				return
			}
			arr.Values = append(arr.Values, e)
		}
		return arr, nil
	case amf0Reference:
		// @see: 2.9 Reference Type
		var index uint16
		if index, err = v.readU16(); err != nil {
			return
		}
		if int(index) >= len(v.refs) {
			return nil, oe.Wrapf(ErrReference, "amf0 reference %v of %v", index, len(v.refs))
		}
		return v.refs[index], nil
	case amf0AVMplusObject:
		return v.decode3()
	case amf0ObjectEnd:
		return nil, oe.Wrap(ErrMarker, "unexpected object end")
	case amf0MovieClip, amf0RecordSet:
		return nil, oe.Wrapf(ErrUnsupported, "amf0 marker %#x", marker)
	}

	return nil, oe.Wrapf(ErrMarker, "amf0 marker %#x", marker)
}

// Read the key-value pairs util the empty key and object end marker.
func (v *Decoder) readProperties(set func(key string, value Value)) (err error) {
	for {
		var key string
		if key, err = v.readUtf8(); err != nil {
			return
		}

		if len(key) == 0 {
			var marker byte
			if marker, err = v.readByte(); err != nil {
				return
			}
			if marker != amf0ObjectEnd {
				return oe.Wrapf(ErrMarker, "object end %#x", marker)
			}
			return
		}

		var value Value
		if value, err = v.decode0(); err != nil {
			return oe.Wrapf(err, "property %v", key)
		}
		set(key, value)
	}
}

func (v *Decoder) readUtf8() (s string, err error) {
	var n uint16
	if n, err = v.readU16(); err != nil {
		return
	}

	var b []byte
	if b, err = v.read(int(n)); err != nil {
		return
	}
	return string(b), nil
}

func (v *Decoder) readLongUtf8() (s string, err error) {
	var n uint32
	if n, err = v.readU32(); err != nil {
		return
	}

	if int64(n) > int64(v.Len()) {
		return "", oe.Wrapf(ErrShort, "long utf8 %vB, left %v", n, v.Len())
	}

	var b []byte
	if b, err = v.read(int(n)); err != nil {
		return
	}
	return string(b), nil
}
