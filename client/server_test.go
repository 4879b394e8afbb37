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
	"github.com/ossrs/go-oryx-rtmp/kernel"
	"github.com/ossrs/go-oryx-rtmp/protocol"
	"io"
	"net"
	"testing"
	"time"
)

// The mock rtmp server, does the simple handshake and
// puts the received messages to channel.
type mockServer struct {
	t     *testing.T
	conn  net.Conn
	stack *protocol.Stack
	msgs  chan *protocol.Message
	done  chan struct{}
}

func newMockServer(t *testing.T, conn net.Conn) *mockServer {
	v := &mockServer{
		t:     t,
		conn:  conn,
		stack: protocol.NewStack(kernel.NewContext(), conn, conn),
		msgs:  make(chan *protocol.Message, 128),
		done:  make(chan struct{}),
	}

	go func() {
		defer close(v.done)
		defer close(v.msgs)

		if err := v.handshake(); err != nil {
			return
		}

		for {
			m, err := v.stack.ReadMessage()
			if err != nil {
				return
			}
			v.msgs <- m
		}
	}()

	return v
}

// Create the server and client over pipe.
func newPipe(t *testing.T) (*mockServer, net.Conn) {
	c, s := net.Pipe()
	return newMockServer(t, s), c
}

func (v *mockServer) handshake() (err error) {
	c0c1 := make([]byte, 1537)
	if _, err = io.ReadFull(v.conn, c0c1); err != nil {
		return
	}

	s0s1s2 := make([]byte, 3073)
	s0s1s2[0] = protocol.HandshakeVersion
	kernel.RandomFill(s0s1s2[1:1537])
	copy(s0s1s2[1537:], c0c1[1:])
	if _, err = v.conn.Write(s0s1s2); err != nil {
		return
	}

	c2 := make([]byte, 1536)
	_, err = io.ReadFull(v.conn, c2)
	return
}

func (v *mockServer) close() {
	v.conn.Close()
	<-v.done
}

// Read the next message, nil when closed or timeout.
func (v *mockServer) next() *protocol.Message {
	select {
	case m := <-v.msgs:
		return m
	case <-time.After(3 * time.Second):
		v.t.Error("timeout to read message")
		return nil
	}
}

// Read messages until the type, others are dropped.
func (v *mockServer) expect(t protocol.MessageType) (*protocol.Message, protocol.Packet) {
	for {
		m := v.next()
		if m == nil {
			return nil, nil
		}
		if m.Type != t {
			continue
		}

		p, err := protocol.DecodePacket(m)
		if err != nil {
			v.t.Error(err)
			return nil, nil
		}
		return m, p
	}
}

// Read messages until the command, others are dropped.
func (v *mockServer) expectCommand(name string) (*protocol.Message, *protocol.CommandPacket) {
	for {
		m := v.next()
		if m == nil {
			return nil, nil
		}
		if !m.Type.IsCommand() {
			continue
		}

		p, err := protocol.DecodePacket(m)
		if err != nil {
			v.t.Error(err)
			return nil, nil
		}

		cmd := p.(*protocol.CommandPacket)
		if cmd.Name != name {
			v.t.Errorf("expect %v, actual %v", name, cmd.Name)
			return nil, nil
		}
		return m, cmd
	}
}

func (v *mockServer) send(p protocol.Packet, streamID uint32) {
	if err := v.stack.SendPacket(p, streamID, 0); err != nil {
		v.t.Error(err)
	}
}

func (v *mockServer) result(tid float64, args ...amf.Value) {
	v.send(protocol.NewCommandPacket(protocol.CommandResult, tid, amf.Null{}, args...), 0)
}

func (v *mockServer) onStatus(streamID uint32, code, description string) {
	info := amf.NewObject().
		Set("level", amf.String(LevelOf(code))).
		Set("code", amf.String(code)).
		Set("description", amf.String(description))
	v.send(protocol.NewCommandPacket(protocol.CommandOnStatus, 0, amf.Null{}, info), streamID)
}

// Ping the client and wait for the pong, so the messages before are handled.
func (v *mockServer) barrier() {
	v.send(&protocol.UserControlPacket{EventType: protocol.PcucPingRequest, EventData: 0x1234}, 0)

	_, p := v.expect(protocol.MsgUserControl)
	if p, ok := p.(*protocol.UserControlPacket); !ok || p.EventType != protocol.PcucPingResponse || p.EventData != 0x1234 {
		v.t.Error("invalid pong", p)
	}
}

// Serve the connect of client, reply the success.
func (v *mockServer) acceptConnect(encoding amf.ObjectEncoding) *protocol.CommandPacket {
	_, cmd := v.expectCommand(protocol.CommandConnect)
	if cmd == nil {
		return nil
	}

	props := amf.NewObject().
		Set("fmsVer", amf.String("FMS/3,5,3,888")).
		Set("capabilities", amf.Number(127))
	info := amf.NewObject().
		Set("level", amf.String(LevelStatus)).
		Set("code", amf.String(NetConnectionConnectSuccess)).
		Set("description", amf.String("Connection succeeded")).
		Set("objectEncoding", amf.Number(encoding))
	v.send(protocol.NewCommandPacket(protocol.CommandResult, cmd.TransactionID, props, info), 0)
	return cmd
}

// Connect the client to the mock server.
func connect(t *testing.T, opts *Options) (*Conn, *mockServer) {
	srv, transport := newPipe(t)

	req, err := protocol.ParseRequest("rtmp://127.0.0.1/live")
	if err != nil {
		t.Fatal(err)
	}

	c := NewConn(transport, req, opts)

	errs := make(chan error, 1)
	go func() {
		_, err := c.Connect(context.Background())
		errs <- err
	}()

	srv.acceptConnect(amf.AMF0)
	if err = <-errs; err != nil {
		t.Fatal(err)
	}
	return c, srv
}

// Close the client and server, wait for goroutines to quit.
func disconnect(c *Conn, srv *mockServer) {
	c.Close()
	<-c.Done()
	srv.close()
}
