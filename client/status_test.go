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
	"testing"
)

func TestLevelOf(t *testing.T) {
	for code, level := range map[string]string{
		NetConnectionConnectSuccess:  LevelStatus,
		NetConnectionConnectRejected: LevelStatus,
		NetConnectionCallBadVersion:  LevelError,
		NetStreamPlayStart:           LevelStatus,
		NetStreamPlayStreamNotFound:  LevelError,
		NetStreamPublishBadName:      LevelError,
		NetStreamBufferEmpty:         LevelStatus,
		"Unknown.Code":               "",
	} {
		if v := LevelOf(code); v != level {
			t.Errorf("%v expect %v, actual %v", code, level, v)
		}
	}
}

func TestStatus(t *testing.T) {
	s := NewStatus(NetStreamPublishStart, "started")
	if s.Level != LevelStatus || s.IsError() || s.Description != "started" {
		t.Error("invalid status", s)
	}

	if s = NewStatus(NetStreamPlayFailed, ""); !s.IsError() {
		t.Error("should error", s)
	}

	arr := amf.NewEcmaArray().
		Set("level", amf.String(LevelError)).
		Set("code", amf.String(NetConnectionConnectInvalidApp)).
		Set("description", amf.String("no app"))
	if s = StatusFromValue(arr); s == nil || s.Code != NetConnectionConnectInvalidApp || !s.IsError() || s.Info.Len() != 3 {
		t.Error("invalid status", s)
	}

	if s = StatusFromValue(amf.Null{}); s != nil {
		t.Error("should nil", s)
	}

	cmd := protocol.NewCommandPacket(protocol.CommandError, 1, amf.Null{})
	if s = StatusFromCommand(cmd); s.Code != protocol.CommandError || !s.IsError() {
		t.Error("invalid status", s)
	}
}

func TestTransactions(t *testing.T) {
	v := newTransactions()

	r := &Responder{}
	if tid, ok := v.next(r); !ok || tid != 1 {
		t.Error("invalid tid", tid, ok)
	}
	if tid, ok := v.next(nil); !ok || tid != 2 {
		t.Error("invalid tid", tid, ok)
	}
	if v.pending() != 1 {
		t.Error("invalid pending", v.pending())
	}

	if v.take(2) != nil || v.take(1) != r || v.take(1) != nil {
		t.Error("invalid take")
	}

	v.next(r)
	v.clear()
	if v.pending() != 0 {
		t.Error("invalid pending", v.pending())
	}
	if _, ok := v.next(r); ok {
		t.Error("should closed")
	}
}
