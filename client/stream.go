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
	"fmt"
	oe "github.com/ossrs/go-oryx-lib/errors"
	ol "github.com/ossrs/go-oryx-lib/logger"
	"github.com/ossrs/go-oryx-rtmp/amf"
	"github.com/ossrs/go-oryx-rtmp/kernel"
	"github.com/ossrs/go-oryx-rtmp/protocol"
	"sync"
	"sync/atomic"
	"time"
)

// The ready state of stream.
type ReadyState int

const (
	StreamInitialized ReadyState = iota
	// created by server, ready to play or publish.
	StreamOpen
	StreamPlay
	StreamPlaying
	StreamPublish
	StreamPublishing
	StreamClosed
)

func (v ReadyState) String() string {
	switch v {
	case StreamInitialized:
		return "Initialized"
	case StreamOpen:
		return "Open"
	case StreamPlay:
		return "Play"
	case StreamPlaying:
		return "Playing"
	case StreamPublish:
		return "Publish"
	case StreamPublishing:
		return "Publishing"
	case StreamClosed:
		return "Closed"
	default:
		return fmt.Sprintf("Unknown(%d)", int(v))
	}
}

// The type of publish.
const (
	PublishLive   = "live"
	PublishRecord = "record"
	PublishAppend = "append"
)

// The consumer of stream, to receive the audio, video and data messages.
// It's called in the receive goroutine, in the order of chunks arrived.
type Consumer interface {
	OnMessage(streamID uint32, t protocol.MessageType, timestamp uint32, payload []byte)
}

// The adapter to use a function as consumer.
type ConsumerFunc func(streamID uint32, t protocol.MessageType, timestamp uint32, payload []byte)

func (v ConsumerFunc) OnMessage(streamID uint32, t protocol.MessageType, timestamp uint32, payload []byte) {
	v(streamID, t, timestamp, payload)
}

// The NetStream over connection, to play or publish.
type Stream struct {
	conn *Conn
	ctx  *kernel.Context
	// the message stream id.
	id uint32

	lock  sync.Mutex
	state ReadyState
	name  string
	// the code to wait for, and the waiter to notify.
	expected string
	waiter   chan *Status
	consumer Consumer
	listener StatusListener
	// the metadata of onMetaData.
	metadata amf.Value
	// the time when publishing, for data timestamp.
	startedAt time.Time

	// the bytes of audio, video and data.
	bytes uint64
}

func newStream(conn *Conn, id uint32) *Stream {
	return &Stream{
		conn:  conn,
		ctx:   kernel.NewContextWithCid(conn.ctx.Cid()),
		id:    id,
		state: StreamOpen,
	}
}

func (v *Stream) ID() uint32 {
	return v.id
}

func (v *Stream) State() ReadyState {
	v.lock.Lock()
	defer v.lock.Unlock()
	return v.state
}

func (v *Stream) Name() string {
	v.lock.Lock()
	defer v.lock.Unlock()
	return v.name
}

// The metadata received, nil if none.
func (v *Stream) MetaData() amf.Value {
	v.lock.Lock()
	defer v.lock.Unlock()
	return v.metadata
}

func (v *Stream) Bytes() uint64 {
	return atomic.LoadUint64(&v.bytes)
}

// Set the consumer to receive messages.
func (v *Stream) SetConsumer(c Consumer) {
	v.lock.Lock()
	defer v.lock.Unlock()
	v.consumer = c
}

// Set the listener of NetStream status.
func (v *Stream) OnStatus(l StatusListener) {
	v.lock.Lock()
	defer v.lock.Unlock()
	v.listener = l
}

func (v *Stream) String() string {
	return fmt.Sprintf("stream id=%v, name=%v, state=%v", v.id, v.Name(), v.State())
}

// Publish the stream, the how is live, record or append.
func (v *Stream) Publish(ctx context.Context, name, how string) (s *Status, err error) {
	if err = v.transit(StreamOpen, StreamPublish); err != nil {
		return
	}

	// FMLE-compatible sequences.
	if err = v.conn.Call(protocol.CommandReleaseStream, nil, amf.String(name)); err != nil {
		return nil, v.fail(err)
	}
	if err = v.conn.Call(protocol.CommandFCPublish, nil, amf.String(name)); err != nil {
		return nil, v.fail(err)
	}

	ctx, cancel := context.WithTimeout(ctx, protocol.PublishTimeout)
	defer cancel()

	cmd := protocol.NewCommandPacket(protocol.CommandPublish, 0, amf.Null{}, amf.String(name), amf.String(how))
	if s, err = v.request(ctx, cmd, NetStreamPublishStart); err != nil {
		return s, v.fail(err)
	}

	v.lock.Lock()
	v.state, v.name, v.startedAt = StreamPublishing, name, time.Now()
	v.lock.Unlock()

	ol.T(v.ctx, "publish ok,", v)
	return
}

// Play the stream, the start is -2 for live or recorded, -1 for live only,
// the duration is -1 to play until end, the reset to flush playlist.
func (v *Stream) Play(ctx context.Context, name string, start, duration float64, reset bool) (s *Status, err error) {
	if err = v.transit(StreamOpen, StreamPlay); err != nil {
		return
	}

	bl := &protocol.UserControlPacket{
		EventType: protocol.PcucSetBufferLength, EventData: v.id, ExtraData: v.conn.opts.BufferLength,
	}
	if err = v.conn.sendPacket(bl, 0, 0); err != nil {
		return nil, v.fail(err)
	}

	ctx, cancel := context.WithTimeout(ctx, protocol.PlayTimeout)
	defer cancel()

	cmd := protocol.NewCommandPacket(protocol.CommandPlay, 0, amf.Null{},
		amf.String(name), amf.Number(start), amf.Number(duration), amf.Boolean(reset))
	if s, err = v.request(ctx, cmd, NetStreamPlayStart); err != nil {
		return s, v.fail(err)
	}

	v.lock.Lock()
	v.state, v.name = StreamPlaying, name
	v.lock.Unlock()

	ol.T(v.ctx, "play ok,", v)
	return
}

// Seek to the offset in ms, the result is notified by status.
func (v *Stream) Seek(offset float64) error {
	if err := v.require(StreamPlaying); err != nil {
		return err
	}
	return v.command(protocol.CommandSeek, amf.Number(offset))
}

// Pause or resume at position in ms, wait for the notify.
func (v *Stream) Pause(ctx context.Context, paused bool, position float64) (*Status, error) {
	if err := v.require(StreamPlaying); err != nil {
		return nil, err
	}

	expected := NetStreamUnpauseNotify
	if paused {
		expected = NetStreamPauseNotify
	}

	ctx, cancel := context.WithTimeout(ctx, v.conn.opts.CommandTimeout)
	defer cancel()

	cmd := protocol.NewCommandPacket(protocol.CommandPause, 0, amf.Null{}, amf.Boolean(paused), amf.Number(position))
	return v.request(ctx, cmd, expected)
}

func (v *Stream) ReceiveAudio(flag bool) error {
	if err := v.require(StreamPlaying); err != nil {
		return err
	}
	return v.command(protocol.CommandReceiveAudio, amf.Boolean(flag))
}

func (v *Stream) ReceiveVideo(flag bool) error {
	if err := v.require(StreamPlaying); err != nil {
		return err
	}
	return v.command(protocol.CommandReceiveVideo, amf.Boolean(flag))
}

// Send the data message to all players, for example, the @setDataFrame.
func (v *Stream) Send(handler string, args ...amf.Value) error {
	if err := v.require(StreamPublishing); err != nil {
		return err
	}

	v.lock.Lock()
	timestamp := uint32(time.Since(v.startedAt) / time.Millisecond)
	v.lock.Unlock()

	p := protocol.NewDataPacket(handler, args...)
	p.ObjectEncoding = v.conn.ObjectEncoding()
	return v.conn.sendPacket(p, v.id, timestamp)
}

// Set the metadata by @setDataFrame onMetaData.
func (v *Stream) SetMetaData(metadata amf.Value) error {
	return v.Send(protocol.CommandSetDataFrame, amf.String(protocol.CommandOnMetaData), metadata)
}

// Append the audio or video payload to publish.
func (v *Stream) Append(t protocol.MessageType, timestamp uint32, payload []byte) error {
	if err := v.require(StreamPublishing); err != nil {
		return err
	}

	var p protocol.Packet
	switch t {
	case protocol.MsgAudio:
		p = &protocol.AudioPacket{Payload: payload}
	case protocol.MsgVideo:
		p = &protocol.VideoPacket{Payload: payload}
	default:
		return oe.Wrapf(protocol.ErrPacket, "append %v", t)
	}

	atomic.AddUint64(&v.bytes, uint64(len(payload)))
	return v.conn.sendPacket(p, v.id, timestamp)
}

// Close the stream by closeStream and deleteStream, never wait for response.
func (v *Stream) Close() (err error) {
	v.lock.Lock()
	state, name := v.state, v.name
	v.state = StreamClosed
	v.waiter, v.expected = nil, ""
	v.lock.Unlock()

	if state == StreamClosed {
		return
	}
	defer v.conn.removeStream(v.id)

	if v.conn.closed() {
		return
	}

	if state == StreamPublishing {
		if err = v.conn.Call(protocol.CommandFCUnpublish, nil, amf.String(name)); err != nil {
			return
		}
	}

	if err = v.command(protocol.CommandCloseStream); err != nil {
		return
	}
	if err = v.conn.Call(protocol.CommandDeleteStream, nil, amf.Number(v.id)); err != nil {
		return
	}

	ol.T(v.ctx, "close stream", v.id, name)
	return
}

// Send the command over stream, without response.
func (v *Stream) command(name string, args ...amf.Value) error {
	cmd := protocol.NewCommandPacket(name, 0, amf.Null{}, args...)
	cmd.ObjectEncoding = v.conn.ObjectEncoding()
	cmd.Cid = protocol.CidOverStream
	return v.conn.sendCommand(cmd, v.id, nil)
}

// Send the command over stream, wait for the expected status,
// or fail when error status.
func (v *Stream) request(ctx context.Context, cmd *protocol.CommandPacket, expected string) (*Status, error) {
	waiter := make(chan *Status, 1)

	v.lock.Lock()
	v.expected, v.waiter = expected, waiter
	v.lock.Unlock()

	defer func() {
		v.lock.Lock()
		if v.waiter == waiter {
			v.expected, v.waiter = "", nil
		}
		v.lock.Unlock()
	}()

	cmd.ObjectEncoding = v.conn.ObjectEncoding()
	cmd.Cid = protocol.CidOverStream
	if err := v.conn.sendCommand(cmd, v.id, nil); err != nil {
		return nil, err
	}

	select {
	case s := <-waiter:
		if s.Level != LevelStatus {
			return s, oe.Wrapf(ErrCommandFailed, "%v %v", cmd.Name, s)
		}
		return s, nil
	case <-ctx.Done():
		return nil, oe.Wrapf(ctx.Err(), "%v wait for %v", cmd.Name, expected)
	case <-v.conn.closing:
		return nil, oe.Wrapf(ErrClosed, "%v wait for %v", cmd.Name, expected)
	}
}

func (v *Stream) require(state ReadyState) error {
	if s := v.State(); s != state {
		return oe.Wrapf(ErrInvalidState, "require %v, actual %v", state, s)
	}
	return nil
}

func (v *Stream) transit(from, to ReadyState) error {
	v.lock.Lock()
	defer v.lock.Unlock()

	if v.state != from {
		return oe.Wrapf(ErrInvalidState, "require %v, actual %v", from, v.state)
	}
	v.state = to
	return nil
}

// Restore to open when play or publish failed.
func (v *Stream) fail(err error) error {
	v.lock.Lock()
	if v.state == StreamPlay || v.state == StreamPublish {
		v.state = StreamOpen
	}
	v.lock.Unlock()
	return err
}

func (v *Stream) onStatus(s *Status) {
	v.lock.Lock()
	waiter := v.waiter
	if waiter != nil && (s.Code == v.expected || s.Level != LevelStatus) {
		v.waiter, v.expected = nil, ""
	} else {
		waiter = nil
	}
	listener := v.listener
	v.lock.Unlock()

	ol.T(v.ctx, "stream", v.id, "status", s)

	if waiter != nil {
		waiter <- s
	}
	if listener != nil {
		listener(s)
	}
}

func (v *Stream) onMessage(m *protocol.Message, p protocol.Packet) {
	atomic.AddUint64(&v.bytes, uint64(len(m.Payload)))

	v.lock.Lock()
	if p, ok := p.(*protocol.DataPacket); ok && p.Handler == protocol.CommandOnMetaData && len(p.Args) > 0 {
		v.metadata = p.Args[0]
	}
	consumer := v.consumer
	v.lock.Unlock()

	if consumer != nil {
		consumer.OnMessage(m.StreamID, m.Type, m.Timestamp, m.Payload)
	}
}

func (v *Stream) onClosed() {
	v.lock.Lock()
	state := v.state
	v.state = StreamClosed
	v.waiter, v.expected = nil, ""
	listener := v.listener
	v.lock.Unlock()

	if state != StreamClosed && listener != nil {
		listener(NewStatus(NetStreamConnectClosed, ""))
	}
}
