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
	oe "github.com/ossrs/go-oryx-lib/errors"
	"reflect"
	"strings"
	"testing"
)

func TestAmf0Primitives(t *testing.T) {
	b := []byte{0x02, 0x00, 0x04, 'o', 'r', 'y', 'x'}
	if vs, err := Unmarshal(AMF0, b); err != nil || len(vs) != 1 {
		t.Error("invalid", err)
	} else if s, ok := vs[0].(String); !ok || s != "oryx" {
		t.Error("invalid string", vs[0])
	}

	b = []byte{0x00, 0x40, 0x59, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	if vs, err := Unmarshal(AMF0, b); err != nil || len(vs) != 1 {
		t.Error("invalid", err)
	} else if n, ok := vs[0].(Number); !ok || n != 100 {
		t.Error("invalid number", vs[0])
	}

	if b, err := Marshal(AMF0, Boolean(true), Boolean(false), Null{}, Undefined{}); err != nil {
		t.Error(err)
	} else if !bytes.Equal(b, []byte{0x01, 0x01, 0x01, 0x00, 0x05, 0x06}) {
		t.Error("invalid bytes", b)
	}

	// nil is null.
	if b, err := Marshal(AMF0, nil); err != nil || !bytes.Equal(b, []byte{0x05}) {
		t.Error("invalid nil", b, err)
	}

	// unsupported is undefined.
	if vs, err := Unmarshal(AMF0, []byte{0x0d}); err != nil || vs[0] != (Undefined{}) {
		t.Error("invalid unsupported", vs, err)
	}
}

func TestAmf0String(t *testing.T) {
	short := strings.Repeat("o", 65535)
	if b, err := Marshal(AMF0, String(short)); err != nil {
		t.Error(err)
	} else if b[0] != 0x02 || len(b) != 3+65535 {
		t.Error("should be string", b[0], len(b))
	}

	long := strings.Repeat("o", 65536)
	if b, err := Marshal(AMF0, String(long)); err != nil {
		t.Error(err)
	} else if b[0] != 0x0c || len(b) != 5+65536 {
		t.Error("should be long string", b[0], len(b))
	}

	// the length is in bytes of UTF-8.
	if b, err := Marshal(AMF0, String("中文")); err != nil {
		t.Error(err)
	} else if b[1] != 0 || b[2] != 6 {
		t.Error("invalid utf8 length", b)
	}
}

func TestAmf0Object(t *testing.T) {
	o := NewObject().Set("app", String("live")).Set("fpad", Boolean(false)).Set("capabilities", Number(239))

	b, err := Marshal(AMF0, o)
	if err != nil {
		t.Error(err)
		return
	}
	if b[0] != 0x03 || !bytes.HasSuffix(b, []byte{0x00, 0x00, 0x09}) {
		t.Error("invalid object", b)
	}

	if vs, err := Unmarshal(AMF0, b); err != nil {
		t.Error(err)
	} else if r, ok := vs[0].(*Object); !ok {
		t.Error("not object", vs[0])
	} else if !reflect.DeepEqual(r.Keys(), []string{"app", "fpad", "capabilities"}) {
		t.Error("invalid order", r.Keys())
	} else if s, ok := r.GetString("app"); !ok || s != "live" {
		t.Error("invalid app", s)
	} else if n, ok := r.GetNumber("capabilities"); !ok || n != 239 {
		t.Error("invalid capabilities", n)
	}

	// update keeps the order.
	o.Set("app", String("vod"))
	if !reflect.DeepEqual(o.Keys(), []string{"app", "fpad", "capabilities"}) {
		t.Error("invalid order", o.Keys())
	}

	// empty object
	if b, err := Marshal(AMF0, NewObject()); err != nil || !bytes.Equal(b, []byte{0x03, 0x00, 0x00, 0x09}) {
		t.Error("invalid empty object", b, err)
	}

	// object without end.
	if _, err := Unmarshal(AMF0, []byte{0x03, 0x00, 0x00, 0x08}); err == nil {
		t.Error("should fail")
	}
	if _, err := Unmarshal(AMF0, []byte{0x03, 0x00, 0x01, 'a'}); err == nil {
		t.Error("should fail")
	}
}

func TestAmf0EcmaArray(t *testing.T) {
	a := NewEcmaArray().Append(String("a"), Number(1)).Set("duration", Number(0))
	b, err := Marshal(AMF0, a)
	if err != nil {
		t.Error(err)
		return
	}

	// 08 00000003 "0" ... "1" ... "duration" ...
	if b[0] != 0x08 || b[4] != 3 {
		t.Error("invalid ecma", b)
	}
	if b[5] != 0 || b[6] != 1 || b[7] != '0' {
		t.Error("invalid dense key", b)
	}

	if vs, err := Unmarshal(AMF0, b); err != nil {
		t.Error(err)
	} else if !reflect.DeepEqual(vs[0], a) {
		t.Error("invalid ecma", vs[0], a)
	}

	// the count is not trusted.
	b[4] = 0x7f
	if vs, err := Unmarshal(AMF0, b); err != nil {
		t.Error(err)
	} else if !reflect.DeepEqual(vs[0], a) {
		t.Error("invalid ecma", vs[0])
	}

	// the skipped index is undefined.
	a = NewEcmaArray().Set("2", String("c"))
	if len(a.Dense) != 3 || a.Index(0) != (Undefined{}) || a.Get("2") != String("c") {
		t.Error("invalid dense", a)
	}

	// not index.
	a = NewEcmaArray().Set("01", String("x")).Set("-1", String("y"))
	if len(a.Dense) != 0 || a.Len() != 2 {
		t.Error("invalid sparse", a)
	}

	// a huge index is sparse, unless the dense part grows to it.
	a = NewEcmaArray().Set("4294967295", String("z"))
	if len(a.Dense) != 0 || a.Get("4294967295") != String("z") {
		t.Error("invalid sparse", a)
	}
}

func TestAmf0EcmaArrayLarge(t *testing.T) {
	a := NewEcmaArray().Set("duration", Number(0))
	for i := 0; i < maxDenseHole+100; i++ {
		a.Append(Number(i))
	}

	b, err := Marshal(AMF0, a)
	if err != nil {
		t.Error(err)
		return
	}

	if vs, err := Unmarshal(AMF0, b); err != nil {
		t.Error(err)
	} else if r, ok := vs[0].(*EcmaArray); !ok {
		t.Error("not ecma", vs[0])
	} else if len(r.Dense) != len(a.Dense) || r.Len() != 1 {
		t.Error("invalid ecma", len(r.Dense), r.Len())
	} else if !reflect.DeepEqual(r, a) {
		t.Error("invalid ecma")
	}
}

func TestAmf0StrictArray(t *testing.T) {
	a := NewStrictArray(Number(1), String("two"), NewObject().Set("three", Number(3)))
	b, err := Marshal(AMF0, a)
	if err != nil {
		t.Error(err)
		return
	}
	if b[0] != 0x0a || b[4] != 3 {
		t.Error("invalid strict array", b)
	}

	if vs, err := Unmarshal(AMF0, b); err != nil {
		t.Error(err)
	} else if !reflect.DeepEqual(vs[0], a) {
		t.Error("invalid strict array", vs[0])
	}

	// count overflow.
	if _, err := Unmarshal(AMF0, []byte{0x0a, 0xff, 0xff, 0xff, 0xff, 0x05}); err == nil {
		t.Error("should fail")
	}
}

func TestAmf0Date(t *testing.T) {
	d := &Date{Millis: 1456840800000}
	b, err := Marshal(AMF0, d)
	if err != nil {
		t.Error(err)
		return
	}
	if len(b) != 11 || b[0] != 0x0b || b[9] != 0 || b[10] != 0 {
		t.Error("invalid date", b)
	}

	// the zone is ignored.
	b[9], b[10] = 0x01, 0xe0
	if vs, err := Unmarshal(AMF0, b); err != nil {
		t.Error(err)
	} else if !reflect.DeepEqual(vs[0], d) {
		t.Error("invalid date", vs[0])
	}
}

func TestAmf0RoundTrip(t *testing.T) {
	values := []Value{
		Undefined{},
		Null{},
		Boolean(true),
		Boolean(false),
		Number(0),
		Number(-1.5),
		Number(1e300),
		String(""),
		String("oryx"),
		String(strings.Repeat("x", 70000)),
		&Date{Millis: 0},
		&Date{Millis: 1e12},
		NewObject(),
		NewObject().Set("level", String("status")).Set("code", String("NetStream.Publish.Start")),
		NewObject().Set("inner", NewObject().Set("x", Null{})),
		NewEcmaArray(),
		NewEcmaArray().Set("width", Number(1280)).Set("height", Number(720)),
		NewEcmaArray().Append(Boolean(true)),
		NewStrictArray(),
		NewStrictArray(Undefined{}, Null{}, NewStrictArray(Number(1))),
		XMLDocument("<a/>"),
	}

	for _, v := range values {
		b, err := Marshal(AMF0, v)
		if err != nil {
			t.Error(v, err)
			continue
		}

		if vs, err := Unmarshal(AMF0, b); err != nil {
			t.Error(v, err)
		} else if len(vs) != 1 || !reflect.DeepEqual(vs[0], v) {
			t.Errorf("%v != %v", vs, v)
		}
	}
}

func TestAmf0Reference(t *testing.T) {
	// [object{a:1}, reference(0)]
	b := []byte{
		0x03, 0x00, 0x01, 'a', 0x00, 0x3f, 0xf0, 0, 0, 0, 0, 0, 0, 0x00, 0x00, 0x09,
		0x07, 0x00, 0x00,
	}
	if vs, err := Unmarshal(AMF0, b); err != nil || len(vs) != 2 {
		t.Error("invalid", err)
	} else if vs[0] != vs[1] {
		t.Error("should be same object")
	}

	if _, err := Unmarshal(AMF0, []byte{0x07, 0x00, 0x00}); err == nil {
		t.Error("should fail")
	}
}

func TestAmf0TypedObject(t *testing.T) {
	b := []byte{
		0x10, 0x00, 0x03, 'F', 'o', 'o',
		0x00, 0x01, 'a', 0x05, 0x00, 0x00, 0x09,
	}
	if vs, err := Unmarshal(AMF0, b); err != nil {
		t.Error(err)
	} else if o, ok := vs[0].(*Object); !ok || o.Get("a") != (Null{}) {
		t.Error("invalid typed object", vs[0])
	}
}

func TestAmf0InvalidMarker(t *testing.T) {
	for _, b := range [][]byte{{0x09}, {0x12}, {0xff}, {0x04}, {0x0e}} {
		if _, err := Unmarshal(AMF0, b); err == nil {
			t.Error("should fail", b)
		}
	}

	// not enough bytes.
	for _, b := range [][]byte{{0x00, 0x01}, {0x01}, {0x02, 0x00, 0x02, 'a'}, {0x0c, 0x00}, {0x0b}} {
		if _, err := Unmarshal(AMF0, b); err == nil {
			t.Error("should fail", b)
		}
	}
}

func TestAmf0AvmPlus(t *testing.T) {
	o := NewObject().Set("code", String("NetConnection.Connect.Success"))

	e := NewEncoder(AMF0)
	e.AvmPlus = true
	if err := e.Encode(String("_result"), Number(1), o, o); err != nil {
		t.Error(err)
		return
	}

	b := e.Bytes()
	if b[0] != 0x02 {
		t.Error("string should be amf0", b)
	}

	vs, err := Unmarshal(AMF0, b)
	if err != nil {
		t.Error(err)
		return
	}
	if len(vs) != 4 {
		t.Error("invalid values", vs)
	} else if !reflect.DeepEqual(vs[2], o) {
		t.Error("invalid object", vs[2])
	} else if vs[2] != vs[3] {
		t.Error("should be reference")
	}
}

func TestAmf0Depth(t *testing.T) {
	nested := func(n int) []byte {
		b := bytes.Repeat([]byte{0x0a, 0, 0, 0, 1}, n)
		return append(b, 0x05)
	}

	if _, err := Unmarshal(AMF0, nested(MaxDepth-1)); err != nil {
		t.Error(err)
	}
	if _, err := Unmarshal(AMF0, nested(MaxDepth)); oe.Cause(err) != ErrTooDeep {
		t.Error("should be too deep, err is", err)
	}

	// objects nest by properties, and AVM+ switches to AMF3.
	b := bytes.Repeat([]byte{0x03, 0x00, 0x01, 'a'}, MaxDepth)
	if _, err := Unmarshal(AMF0, b); oe.Cause(err) != ErrTooDeep {
		t.Error("should be too deep, err is", err)
	}
	b = append([]byte{0x11}, bytes.Repeat([]byte{0x09, 0x03, 0x01}, MaxDepth)...)
	if _, err := Unmarshal(AMF0, append(b, 0x01)); oe.Cause(err) != ErrTooDeep {
		t.Error("should be too deep, err is", err)
	}
}
