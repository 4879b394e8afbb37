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
	"context"
	"github.com/ossrs/go-oryx-rtmp/amf"
	"github.com/ossrs/go-oryx-rtmp/protocol"
	"github.com/pion/transport/v3/test"
	"testing"
	"time"
)

func TestSharedObject(t *testing.T) {
	defer test.CheckRoutines(t)()
	lim := test.TimeOut(10 * time.Second)
	defer lim.Stop()

	c, srv := connect(t, nil)
	defer disconnect(c, srv)

	so := c.SharedObject("chat", false)
	if c.SharedObject("chat", false) != so || c.SharedObject("chat", true) == so {
		t.Error("invalid registry")
	}
	c.SharedObject("chat", true).Close()

	syncs := make(chan []*SharedObjectChange, 4)
	so.OnSync(func(changes []*SharedObjectChange) {
		syncs <- changes
	})

	// not sent before use success.
	if err := so.SetProperty("nick", amf.String("winlin")); err != nil {
		t.Error(err)
	}
	if err := so.Connect(); err != nil {
		t.Error(err)
	}

	_, p := srv.expect(protocol.MsgAMF0SharedObject)
	use, ok := p.(*protocol.SharedObjectPacket)
	if !ok || use.Name != "chat" || use.Persistent() || len(use.Events) != 1 || use.Events[0].Type != protocol.SoUse {
		t.Error("invalid use", p)
		return
	}

	srv.send(&protocol.SharedObjectPacket{
		Name:    "chat",
		Version: 5,
		Events: []*protocol.SharedObjectEvent{
			{Type: protocol.SoUseSuccess},
			{Type: protocol.SoClear},
			{Type: protocol.SoChange, Name: "topic", Data: amf.String("rtmp")},
		},
	}, 0)

	// the local properties are synced after use success.
	_, p = srv.expect(protocol.MsgAMF0SharedObject)
	req, ok := p.(*protocol.SharedObjectPacket)
	if !ok || req.Version != 0 || len(req.Events) != 1 {
		t.Error("invalid request", p)
		return
	}
	if e := req.Events[0]; e.Type != protocol.SoRequestChange || e.Name != "nick" || e.Data != amf.String("winlin") {
		t.Error("invalid event", e)
	}

	changes := <-syncs
	if len(changes) != 2 || changes[0].Code != SoClearCode || changes[1].Code != SoChangeCode ||
		changes[1].Name != "topic" || changes[1].OldValue != nil {
		t.Error("invalid changes", changes)
	}
	if !so.Succeeded() || so.Get("topic") != amf.String("rtmp") || so.Get("nick") != nil {
		t.Error("invalid so", so, so.Data())
	}

	if err := so.SetProperty("topic", amf.String("go")); err != nil {
		t.Error(err)
	}
	_, p = srv.expect(protocol.MsgAMF0SharedObject)
	if req, ok = p.(*protocol.SharedObjectPacket); !ok || len(req.Events) != 1 || req.Events[0].Type != protocol.SoRequestChange {
		t.Error("invalid request", p)
	}

	srv.send(&protocol.SharedObjectPacket{
		Name:    "chat",
		Version: 6,
		Events: []*protocol.SharedObjectEvent{
			{Type: protocol.SoSuccess, Name: "topic"},
			{Type: protocol.SoStatus, Name: "topic"},
			{Type: protocol.SoRemove, Name: "none"},
		},
	}, 0)

	changes = <-syncs
	if len(changes) != 3 || changes[0].Code != SoSuccessCode || changes[1].Code != SoRejectCode ||
		changes[1].OldValue != amf.String("go") || changes[2].Code != SoDeleteCode {
		t.Error("invalid changes", changes)
	}
	if so.Version() != 6 || len(so.Data()) != 0 {
		t.Error("invalid so", so, so.Data())
	}

	// the message of unknown so is ignored.
	srv.send(&protocol.SharedObjectPacket{Name: "none", Version: 1}, 0)
	srv.barrier()

	if err := so.Close(); err != nil {
		t.Error(err)
	}
	_, p = srv.expect(protocol.MsgAMF0SharedObject)
	if req, ok = p.(*protocol.SharedObjectPacket); !ok || len(req.Events) != 1 || req.Events[0].Type != protocol.SoRelease {
		t.Error("invalid release", p)
	}
	if c.SharedObject("chat", false) == so {
		t.Error("should removed")
	}
}

func TestSharedObjectBeforeConnect(t *testing.T) {
	defer test.CheckRoutines(t)()
	lim := test.TimeOut(10 * time.Second)
	defer lim.Stop()

	srv, transport := newPipe(t)
	req, _ := protocol.ParseRequest("rtmp://127.0.0.1/live")
	c := NewConn(transport, req, nil)
	defer disconnect(c, srv)

	so := c.SharedObject("room", true)
	if err := so.Connect(); err != nil {
		t.Error(err)
	}

	errs := make(chan error, 1)
	go func() {
		_, err := c.Connect(context.Background())
		errs <- err
	}()
	srv.acceptConnect(amf.AMF0)
	if err := <-errs; err != nil {
		t.Error(err)
		return
	}

	// use is sent after connected.
	_, p := srv.expect(protocol.MsgAMF0SharedObject)
	if p, ok := p.(*protocol.SharedObjectPacket); !ok || p.Name != "room" || !p.Persistent() || p.Events[0].Type != protocol.SoUse {
		t.Error("invalid use", p)
	}
}
