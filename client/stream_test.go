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
	"bytes"
	"context"
	oe "github.com/ossrs/go-oryx-lib/errors"
	"github.com/ossrs/go-oryx-rtmp/amf"
	"github.com/ossrs/go-oryx-rtmp/protocol"
	"github.com/pion/transport/v3/test"
	"testing"
	"time"
)

// Create the stream of id on the mock server.
func createStream(t *testing.T, c *Conn, srv *mockServer, id uint32) *Stream {
	streams := make(chan *Stream, 1)
	go func() {
		s, err := c.CreateStream(context.Background())
		if err != nil {
			t.Error(err)
		}
		streams <- s
	}()

	_, cmd := srv.expectCommand(protocol.CommandCreateStream)
	if cmd == nil {
		return nil
	}
	srv.result(cmd.TransactionID, amf.Number(id))

	return <-streams
}

func TestStreamPublish(t *testing.T) {
	defer test.CheckRoutines(t)()
	lim := test.TimeOut(10 * time.Second)
	defer lim.Stop()

	c, srv := connect(t, nil)
	defer disconnect(c, srv)

	s := createStream(t, c, srv, 1)
	if s == nil {
		return
	}
	if s.ID() != 1 || s.State() != StreamOpen || c.Stream(1) != s {
		t.Error("invalid stream", s)
	}

	// only publish when playing or publishing.
	if err := s.Append(protocol.MsgVideo, 0, []byte{0x17}); oe.Cause(err) != ErrInvalidState {
		t.Error("should fail, err is", err)
	}

	errs := make(chan error, 1)
	go func() {
		_, err := s.Publish(context.Background(), "livestream", PublishLive)
		errs <- err
	}()

	for _, name := range []string{protocol.CommandReleaseStream, protocol.CommandFCPublish} {
		m, cmd := srv.expectCommand(name)
		if cmd == nil {
			return
		}
		if m.StreamID != 0 || cmd.Arg0() != amf.String("livestream") {
			t.Error("invalid command", m, cmd)
		}
	}

	m, cmd := srv.expectCommand(protocol.CommandPublish)
	if cmd == nil {
		return
	}
	if m.StreamID != 1 || m.ChunkStreamID != protocol.CidOverStream {
		t.Error("invalid message", m)
	}
	if len(cmd.Args) != 2 || cmd.Args[0] != amf.String("livestream") || cmd.Args[1] != amf.String("live") {
		t.Error("invalid args", cmd.Args)
	}
	if s.State() != StreamPublish {
		t.Error("invalid state", s.State())
	}

	srv.onStatus(1, NetStreamPublishStart, "Started publishing stream.")
	if err := <-errs; err != nil {
		t.Error(err)
		return
	}
	if s.State() != StreamPublishing || s.Name() != "livestream" {
		t.Error("invalid stream", s)
	}

	metadata := amf.NewEcmaArray().Set("width", amf.Number(1280))
	if err := s.SetMetaData(metadata); err != nil {
		t.Error(err)
	}
	m, p := srv.expect(protocol.MsgAMF0Data)
	if p, ok := p.(*protocol.DataPacket); !ok || m.StreamID != 1 || p.Handler != protocol.CommandSetDataFrame ||
		len(p.Args) != 2 || p.Args[0] != amf.String(protocol.CommandOnMetaData) {
		t.Error("invalid metadata", m, p)
	}

	payload := bytes.Repeat([]byte{0x17}, 1000)
	if err := s.Append(protocol.MsgVideo, 40, payload); err != nil {
		t.Error(err)
	}
	if err := s.Append(protocol.MsgAudio, 40, []byte{0xaf, 0x01}); err != nil {
		t.Error(err)
	}
	if err := s.Append(protocol.MsgAMF0Data, 40, nil); oe.Cause(err) != protocol.ErrPacket {
		t.Error("should fail, err is", err)
	}

	m, _ = srv.expect(protocol.MsgVideo)
	if m == nil || m.StreamID != 1 || m.ChunkStreamID != protocol.CidVideo || m.Timestamp != 40 || !bytes.Equal(m.Payload, payload) {
		t.Error("invalid video", m)
	}
	m, _ = srv.expect(protocol.MsgAudio)
	if m == nil || m.StreamID != 1 || m.ChunkStreamID != protocol.CidAudio || m.Timestamp != 40 {
		t.Error("invalid audio", m)
	}
	if s.Bytes() != 1002 {
		t.Error("invalid bytes", s.Bytes())
	}

	if err := s.Close(); err != nil {
		t.Error(err)
	}
	if _, cmd = srv.expectCommand(protocol.CommandFCUnpublish); cmd != nil && cmd.Arg0() != amf.String("livestream") {
		t.Error("invalid command", cmd)
	}
	if m, _ = srv.expectCommand(protocol.CommandCloseStream); m != nil && m.StreamID != 1 {
		t.Error("invalid message", m)
	}
	if _, cmd = srv.expectCommand(protocol.CommandDeleteStream); cmd != nil && cmd.Arg0() != amf.Number(1) {
		t.Error("invalid command", cmd)
	}
	if s.State() != StreamClosed || c.Stream(1) != nil {
		t.Error("invalid stream", s)
	}

	// close again is ignored.
	if err := s.Close(); err != nil {
		t.Error(err)
	}
}

func TestStreamPlay(t *testing.T) {
	defer test.CheckRoutines(t)()
	lim := test.TimeOut(10 * time.Second)
	defer lim.Stop()

	c, srv := connect(t, nil)
	defer disconnect(c, srv)

	s := createStream(t, c, srv, 3)
	if s == nil {
		return
	}

	type media struct {
		t         protocol.MessageType
		timestamp uint32
		payload   []byte
	}
	medias := make(chan media, 16)
	s.SetConsumer(ConsumerFunc(func(streamID uint32, mt protocol.MessageType, timestamp uint32, payload []byte) {
		medias <- media{mt, timestamp, payload}
	}))

	statuses := make(chan *Status, 16)
	s.OnStatus(func(st *Status) {
		statuses <- st
	})

	errs := make(chan error, 1)
	go func() {
		_, err := s.Play(context.Background(), "livestream", -2, -1, true)
		errs <- err
	}()

	_, p := srv.expect(protocol.MsgUserControl)
	if p, ok := p.(*protocol.UserControlPacket); !ok || p.EventType != protocol.PcucSetBufferLength ||
		p.EventData != 3 || p.ExtraData != DefaultBufferLength {
		t.Error("invalid buffer length", p)
	}

	m, cmd := srv.expectCommand(protocol.CommandPlay)
	if cmd == nil {
		return
	}
	if m.StreamID != 3 || len(cmd.Args) != 4 || cmd.Args[0] != amf.String("livestream") ||
		cmd.Args[1] != amf.Number(-2) || cmd.Args[2] != amf.Number(-1) || cmd.Args[3] != amf.Boolean(true) {
		t.Error("invalid play", m, cmd)
	}

	// the reset is not the expected status.
	srv.onStatus(3, NetStreamPlayReset, "Playing and resetting livestream.")
	srv.onStatus(3, NetStreamPlayStart, "Started playing livestream.")
	if err := <-errs; err != nil {
		t.Error(err)
		return
	}
	if s.State() != StreamPlaying {
		t.Error("invalid state", s.State())
	}
	for _, code := range []string{NetStreamPlayReset, NetStreamPlayStart} {
		if st := <-statuses; st.Code != code {
			t.Errorf("expect %v, actual %v", code, st)
		}
	}

	metadata := amf.NewObject().Set("duration", amf.Number(0))
	srv.send(protocol.NewDataPacket(protocol.CommandOnMetaData, metadata), 3)
	if err := srv.stack.SendPacket(&protocol.VideoPacket{Payload: []byte{0x17, 0x01}}, 3, 100); err != nil {
		t.Error(err)
	}

	// the messages of other stream are dropped.
	if err := srv.stack.SendPacket(&protocol.VideoPacket{Payload: []byte{0x27}}, 5, 100); err != nil {
		t.Error(err)
	}

	ag := &protocol.AggregatePacket{Messages: []*protocol.Message{
		protocol.NewMessage(protocol.MsgAudio, 3, 5000, []byte{0xaf, 0x01}),
		protocol.NewMessage(protocol.MsgVideo, 3, 5040, []byte{0x27, 0x01}),
	}}
	if err := srv.stack.SendPacket(ag, 3, 200); err != nil {
		t.Error(err)
	}
	srv.barrier()

	expects := []media{
		{protocol.MsgAMF0Data, 0, nil},
		{protocol.MsgVideo, 100, []byte{0x17, 0x01}},
		{protocol.MsgAudio, 200, []byte{0xaf, 0x01}},
		{protocol.MsgVideo, 240, []byte{0x27, 0x01}},
	}
	if len(medias) != len(expects) {
		t.Error("invalid medias", len(medias))
		return
	}
	for _, e := range expects {
		m := <-medias
		if m.t != e.t || m.timestamp != e.timestamp || (e.payload != nil && !bytes.Equal(m.payload, e.payload)) {
			t.Errorf("expect %v, actual %v", e, m)
		}
	}
	if o, ok := s.MetaData().(*amf.Object); !ok || o.Get("duration") != amf.Number(0) {
		t.Error("invalid metadata", s.MetaData())
	}

	if err := s.ReceiveAudio(false); err != nil {
		t.Error(err)
	}
	if _, cmd = srv.expectCommand(protocol.CommandReceiveAudio); cmd != nil && cmd.Arg0() != amf.Boolean(false) {
		t.Error("invalid command", cmd)
	}

	go func() {
		_, err := s.Pause(context.Background(), true, 1000)
		errs <- err
	}()
	if _, cmd = srv.expectCommand(protocol.CommandPause); cmd == nil {
		return
	}
	if len(cmd.Args) != 2 || cmd.Args[0] != amf.Boolean(true) || cmd.Args[1] != amf.Number(1000) {
		t.Error("invalid pause", cmd.Args)
	}
	srv.onStatus(3, NetStreamPauseNotify, "Paused livestream.")
	if err := <-errs; err != nil {
		t.Error(err)
	}

	// the buffer events are status of stream.
	srv.send(&protocol.UserControlPacket{EventType: protocol.PcucBufferEmpty, EventData: 3}, 0)
	srv.barrier()
	for st := range statuses {
		if st.Code == NetStreamBufferEmpty {
			break
		}
	}

	// the stream is closed with connection.
	c.Close()
	<-c.Done()
	for st := range statuses {
		if st.Code == NetStreamConnectClosed {
			break
		}
	}
	if s.State() != StreamClosed {
		t.Error("invalid state", s.State())
	}
}

func TestStreamPlayFailed(t *testing.T) {
	defer test.CheckRoutines(t)()
	lim := test.TimeOut(10 * time.Second)
	defer lim.Stop()

	c, srv := connect(t, nil)
	defer disconnect(c, srv)

	s := createStream(t, c, srv, 1)
	if s == nil {
		return
	}

	type result struct {
		s   *Status
		err error
	}
	results := make(chan result, 1)
	go func() {
		st, err := s.Play(context.Background(), "none", -2, -1, false)
		results <- result{st, err}
	}()

	if _, cmd := srv.expectCommand(protocol.CommandPlay); cmd == nil {
		return
	}
	srv.onStatus(1, NetStreamPlayStreamNotFound, "no such stream")

	r := <-results
	if oe.Cause(r.err) != ErrCommandFailed || r.s == nil || r.s.Code != NetStreamPlayStreamNotFound {
		t.Error("should fail", r.s, r.err)
	}

	// restore to open, ok to play again.
	if s.State() != StreamOpen {
		t.Error("invalid state", s.State())
	}
	if err := s.Seek(0); oe.Cause(err) != ErrInvalidState {
		t.Error("should fail, err is", err)
	}
}
