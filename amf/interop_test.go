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
	goamf "github.com/Barber0/goamf-1"
	"github.com/ossrs/go-oryx-lib/amf0"
	"testing"
)

func TestInteropOryxAmf0(t *testing.T) {
	o := NewObject().Set("app", String("live")).Set("objectEncoding", Number(0))
	b, err := Marshal(AMF0, o)
	if err != nil {
		t.Error(err)
		return
	}

	a, err := amf0.Discovery(b)
	if err != nil {
		t.Error(err)
		return
	}
	if err = a.UnmarshalBinary(b); err != nil {
		t.Error(err)
		return
	}
	if a.Size() != len(b) {
		t.Error("invalid size", a.Size(), len(b))
	}
	if ao, ok := a.(*amf0.Object); !ok {
		t.Error("not object", a)
	} else if s, ok := ao.Get("app").(*amf0.String); !ok || string(*s) != "live" {
		t.Error("invalid app", ao.Get("app"))
	}

	// the Set returns the embedded object base, which is not marshalable.
	ao := amf0.NewObject()
	ao.Set("code", amf0.NewString("NetStream.Play.Start"))
	if b, err = ao.MarshalBinary(); err != nil {
		t.Error(err)
		return
	}
	if vs, err := Unmarshal(AMF0, b); err != nil {
		t.Error(err)
	} else if r, ok := vs[0].(*Object); !ok {
		t.Error("not object", vs[0])
	} else if s, ok := r.GetString("code"); !ok || s != "NetStream.Play.Start" {
		t.Error("invalid code", r)
	}
}

func TestInteropGoamf(t *testing.T) {
	b, err := Marshal(AMF0, String("connect"), Number(1), NewObject().Set("app", String("live")))
	if err != nil {
		t.Error(err)
		return
	}

	r := bytes.NewBuffer(b)
	if v, err := goamf.ReadValue(r); err != nil || v != "connect" {
		t.Error("invalid name", v, err)
	}
	if v, err := goamf.ReadValue(r); err != nil || v != float64(1) {
		t.Error("invalid tid", v, err)
	}
	if v, err := goamf.ReadValue(r); err != nil {
		t.Error(err)
	} else if o, ok := v.(goamf.Object); !ok || o["app"] != "live" {
		t.Error("invalid object", v)
	}

	w := &bytes.Buffer{}
	if _, err = goamf.WriteValue(w, goamf.Object{"code": "NetConnection.Connect.Success"}); err != nil {
		t.Error(err)
		return
	}
	if vs, err := Unmarshal(AMF0, w.Bytes()); err != nil {
		t.Error(err)
	} else if o, ok := vs[0].(*Object); !ok || o.Get("code") != String("NetConnection.Connect.Success") {
		t.Error("invalid object", vs)
	}

	w.Reset()
	if _, err = goamf.AMF3_WriteValue(w, "oryx"); err != nil {
		t.Error(err)
		return
	}
	if _, err = goamf.AMF3_WriteValue(w, float64(3.5)); err != nil {
		t.Error(err)
		return
	}
	if vs, err := Unmarshal(AMF3, w.Bytes()); err != nil {
		t.Error(err)
	} else if len(vs) != 2 || vs[0] != String("oryx") || vs[1] != Number(3.5) {
		t.Error("invalid amf3", vs)
	}

	if b, err = Marshal(AMF3, String("oryx")); err != nil {
		t.Error(err)
	} else if v, err := goamf.AMF3_ReadValue(bytes.NewBuffer(b)); err != nil || v != "oryx" {
		t.Error("invalid amf3 string", v, err)
	}
}
