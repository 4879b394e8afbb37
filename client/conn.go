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

// The client package is the rtmp NetConnection, NetStream and SharedObject,
// which runs the handshake, connect and commands over the protocol stack.
package client

import (
	"context"
	"fmt"
	"github.com/orcaman/concurrent-map"
	oe "github.com/ossrs/go-oryx-lib/errors"
	ol "github.com/ossrs/go-oryx-lib/logger"
	"github.com/ossrs/go-oryx-rtmp/amf"
	"github.com/ossrs/go-oryx-rtmp/kernel"
	"github.com/ossrs/go-oryx-rtmp/protocol"
	"github.com/satori/go.uuid"
	"io"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// The rtmp client connection, the NetConnection of flash.
// The messages are received in a goroutine, which calls the responders,
// status listeners and stream consumers, so they must never block.
type Conn struct {
	ctx *kernel.Context
	// the session id, to identify the connection in logs and api.
	id   string
	req  *protocol.Request
	opts *Options

	transport io.ReadWriteCloser
	stack     *protocol.Stack
	hs        *protocol.Handshake

	lock sync.Mutex
	// the Closing or Closed, otherwise use the state of handshake.
	state     protocol.HandshakeState
	connected bool
	started   bool
	// the negotiated object encoding.
	objectEncoding amf.ObjectEncoding

	transactions *transactions
	// the tid is allocated and the command is sent in order.
	commandLock sync.Mutex
	// key is the message stream id, value is *Stream.
	streams cmap.ConcurrentMap
	// key is the name?persistent=bool, value is *RemoteSharedObject.
	sharedObjects cmap.ConcurrentMap

	// the peer bandwidth, and the last acknowledgement from peer.
	peerBandwidth uint32
	ackSequence   uint32
	// the messages dropped for codec error, and the messages of unknown type.
	dropped uint64
	unknown uint64

	closing   chan struct{}
	closeOnce sync.Once
	// closed when the receive goroutine quit.
	done chan struct{}
}

// Create the connection over transport, for example, a TCP conn.
// User should call Connect to handshake and connect the app.
func NewConn(transport io.ReadWriteCloser, req *protocol.Request, opts *Options) *Conn {
	ctx := kernel.NewContext()

	v := &Conn{
		ctx:           ctx,
		id:            uuid.NewV4().String(),
		req:           req,
		opts:          opts.withDefaults(),
		transport:     transport,
		hs:            protocol.NewHandshake(),
		transactions:  newTransactions(),
		streams:       cmap.New(),
		sharedObjects: cmap.New(),
		closing:       make(chan struct{}),
		done:          make(chan struct{}),
	}
	v.objectEncoding = v.opts.ObjectEncoding

	v.stack = protocol.NewStack(ctx, transport, transport)
	v.stack.SetWriteTimeout(protocol.DefaultWriteDeadline)
	return v
}

// Dial the rtmp url and connect the app, retry with adobe auth when
// the url has user and password and server requires it.
func Dial(ctx context.Context, uri string, opts *Options, args ...amf.Value) (*Conn, error) {
	origin, err := protocol.ParseRequest(uri)
	if err != nil {
		return nil, err
	}

	req := origin
	for retry := 0; ; retry++ {
		var d net.Dialer
		var transport net.Conn
		if transport, err = d.DialContext(ctx, "tcp", req.Address()); err != nil {
			return nil, oe.Wrapf(err, "dial %v", req.Address())
		}

		c := NewConn(transport, req, opts)
		ol.T(c.ctx, "dial ok, session", c.id, req)

		var s *Status
		if s, err = c.Connect(ctx, args...); err == nil {
			return c, nil
		}
		c.Close()

		if oe.Cause(err) != ErrRejected || s == nil || retry >= maxAuthRetries {
			return nil, err
		}

		var next *protocol.Request
		if next, err = adobeAuth(origin, req, s.Description); err != nil {
			return nil, err
		}
		if next == nil {
			return nil, oe.Wrapf(ErrRejected, "%v", s)
		}

		ol.T(c.ctx, "retry for adobe auth", next.App)
		req = next
	}
}

func (v *Conn) ID() string {
	return v.id
}

func (v *Conn) Request() *protocol.Request {
	return v.req
}

func (v *Conn) State() protocol.HandshakeState {
	v.lock.Lock()
	defer v.lock.Unlock()

	if v.state != protocol.HandshakeInitialized {
		return v.state
	}
	return v.hs.State()
}

// Whether connect is success and not closed.
func (v *Conn) Connected() bool {
	v.lock.Lock()
	defer v.lock.Unlock()
	return v.connected
}

func (v *Conn) ObjectEncoding() amf.ObjectEncoding {
	v.lock.Lock()
	defer v.lock.Unlock()
	return v.objectEncoding
}

func (v *Conn) InBytes() uint64 {
	return v.stack.InBytes()
}

func (v *Conn) OutBytes() uint64 {
	return v.stack.OutBytes()
}

// The bandwidth set by peer.
func (v *Conn) PeerBandwidth() uint32 {
	return atomic.LoadUint32(&v.peerBandwidth)
}

// The closed when the receive goroutine quit, or never started.
func (v *Conn) Done() <-chan struct{} {
	return v.done
}

func (v *Conn) String() string {
	return fmt.Sprintf("session=%v, %v, state=%v", v.id, v.req, v.State())
}

// Do the simple handshake, the state goes to HandshakeDone.
func (v *Conn) Handshake(ctx context.Context) (err error) {
	if nc, ok := v.transport.(net.Conn); ok {
		deadline := time.Now().Add(v.opts.HandshakeTimeout)
		if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
			deadline = d
		}
		if err = nc.SetDeadline(deadline); err != nil {
			return oe.Wrap(err, "set deadline")
		}
		defer nc.SetDeadline(time.Time{})
	}

	if err = v.stack.Handshake(v.hs); err != nil {
		v.close(err)
		return oe.Wrap(err, "handshake")
	}

	ol.T(v.ctx, "handshake done, session", v.id)
	return
}

// Handshake if not yet, then connect to the app of request,
// the args are the optional arguments of connect.
// When rejected, the status of _error is returned with ErrRejected.
func (v *Conn) Connect(ctx context.Context, args ...amf.Value) (s *Status, err error) {
	if v.State() == protocol.HandshakeInitialized {
		if err = v.Handshake(ctx); err != nil {
			return
		}
	}
	v.start()

	opts, req := v.opts, v.req

	swfUrl := opts.SwfUrl
	if swfUrl == "" {
		swfUrl = req.TcUrl
	}
	var pageUrl amf.Value = amf.Null{}
	if opts.PageUrl != "" {
		pageUrl = amf.String(opts.PageUrl)
	}

	object := amf.NewObject().
		Set("app", amf.String(req.App)).
		Set("flashVer", amf.String(opts.FlashVer)).
		Set("swfUrl", amf.String(swfUrl)).
		Set("tcUrl", amf.String(req.TcUrl)).
		Set("fpad", amf.Boolean(false)).
		Set("capabilities", amf.Number(DefaultCapabilities)).
		Set("audioCodecs", amf.Number(DefaultAudioCodecs)).
		Set("videoCodecs", amf.Number(DefaultVideoCodecs)).
		Set("videoFunction", amf.Number(DefaultVideoFunction)).
		Set("pageUrl", pageUrl).
		Set("objectEncoding", amf.Number(opts.ObjectEncoding))

	// connect must be AMF0.
	cmd := protocol.NewCommandPacket(protocol.CommandConnect, 0, object, args...)

	ctx, cancel := context.WithTimeout(ctx, opts.CommandTimeout)
	defer cancel()

	var res *protocol.CommandPacket
	res, err = v.invoke(ctx, cmd)
	if res != nil {
		s = StatusFromCommand(res)
	}
	if err != nil {
		if oe.Cause(err) == ErrCommandFailed {
			v.emit(s)
			return s, oe.Wrapf(ErrRejected, "connect %v", s)
		}
		return s, oe.Wrap(err, "connect")
	}
	if s.Code != NetConnectionConnectSuccess {
		v.emit(s)
		return s, oe.Wrapf(ErrRejected, "connect %v", s)
	}

	v.lock.Lock()
	v.connected = true
	if s.Info != nil {
		if n, ok := s.Info.GetNumber("objectEncoding"); ok && amf.ObjectEncoding(n) == amf.AMF3 {
			v.objectEncoding = amf.AMF3
		}
	}
	v.lock.Unlock()

	if opts.ChunkSize > 0 {
		if err = v.stack.SendPacket(protocol.NewSetChunkSizePacket(opts.ChunkSize), 0, 0); err != nil {
			v.close(err)
			return s, oe.Wrap(err, "set chunk size")
		}
	}

	ol.T(v.ctx, "connected,", v, "encoding", v.ObjectEncoding())
	v.emit(s)

	// the shared objects used before connect.
	for item := range v.sharedObjects.IterBuffered() {
		item.Val.(*RemoteSharedObject).use()
	}
	return
}

// Call a method of server, the responder is optional,
// which is resolved by the _result or _error of server.
func (v *Conn) Call(name string, r *Responder, args ...amf.Value) error {
	if !v.Connected() {
		return ErrNotConnected
	}

	cmd := protocol.NewCommandPacket(name, 0, amf.Null{}, args...)
	cmd.ObjectEncoding = v.ObjectEncoding()
	return v.sendCommand(cmd, 0, r)
}

// Create a NetStream, whose message stream id is allocated by server.
func (v *Conn) CreateStream(ctx context.Context) (*Stream, error) {
	if !v.Connected() {
		return nil, ErrNotConnected
	}

	cmd := protocol.NewCommandPacket(protocol.CommandCreateStream, 0, amf.Null{})
	cmd.ObjectEncoding = v.ObjectEncoding()

	ctx, cancel := context.WithTimeout(ctx, v.opts.CommandTimeout)
	defer cancel()

	res, err := v.invoke(ctx, cmd)
	if err != nil {
		return nil, err
	}

	n, ok := res.Arg0().(amf.Number)
	if !ok || n <= 0 {
		return nil, oe.Wrapf(protocol.ErrPacket, "createStream result %v", res.Args)
	}

	s := newStream(v, uint32(n))
	v.streams.Set(streamKey(s.id), s)
	ol.T(v.ctx, "create stream ok, id", s.id)
	return s, nil
}

// The stream of message stream id, nil if not exists.
func (v *Conn) Stream(id uint32) *Stream {
	if s, ok := v.streams.Get(streamKey(id)); ok {
		return s.(*Stream)
	}
	return nil
}

func (v *Conn) removeStream(id uint32) {
	v.streams.Remove(streamKey(id))
}

func streamKey(id uint32) string {
	return strconv.FormatUint(uint64(id), 10)
}

// Close the connection, the pending responders are dropped.
// It's ok to close multiple times.
func (v *Conn) Close() error {
	v.close(nil)
	return nil
}

type reply struct {
	res    *protocol.CommandPacket
	failed bool
}

// Send the command and wait for the _result or _error.
func (v *Conn) invoke(ctx context.Context, cmd *protocol.CommandPacket) (*protocol.CommandPacket, error) {
	replies := make(chan reply, 1)
	r := &Responder{
		OnResult: func(res *protocol.CommandPacket) {
			replies <- reply{res: res}
		},
		OnStatus: func(res *protocol.CommandPacket) {
			replies <- reply{res: res, failed: true}
		},
	}

	if err := v.sendCommand(cmd, 0, r); err != nil {
		return nil, err
	}

	select {
	case r := <-replies:
		if r.failed {
			return r.res, oe.Wrapf(ErrCommandFailed, "%v %v", cmd.Name, StatusFromCommand(r.res))
		}
		return r.res, nil
	case <-ctx.Done():
		v.transactions.take(cmd.TransactionID)
		return nil, oe.Wrapf(ctx.Err(), "%v tid=%v", cmd.Name, cmd.TransactionID)
	case <-v.closing:
		return nil, oe.Wrapf(ErrClosed, "%v tid=%v", cmd.Name, cmd.TransactionID)
	}
}

// Allocate the transaction id for command and send it,
// the responder is registered before sending.
func (v *Conn) sendCommand(cmd *protocol.CommandPacket, streamID uint32, r *Responder) error {
	v.commandLock.Lock()
	tid, ok := v.transactions.next(r)
	if !ok {
		v.commandLock.Unlock()
		return ErrClosed
	}
	cmd.TransactionID = tid
	err := v.stack.SendPacket(cmd, streamID, 0)
	v.commandLock.Unlock()

	if err != nil {
		v.transactions.take(tid)
		v.close(err)
		return oe.Wrapf(err, "send %v", cmd.Name)
	}
	return nil
}

func (v *Conn) sendPacket(p protocol.Packet, streamID, timestamp uint32) error {
	if err := v.stack.SendPacket(p, streamID, timestamp); err != nil {
		v.close(err)
		return oe.Wrapf(err, "send %v", p.MessageType())
	}
	return nil
}

func (v *Conn) sendMessage(m *protocol.Message) error {
	if err := v.stack.SendMessage(m); err != nil {
		v.close(err)
		return oe.Wrapf(err, "send %v", m)
	}
	return nil
}

func (v *Conn) emit(s *Status) {
	if s != nil && v.opts.OnStatus != nil {
		v.opts.OnStatus(s)
	}
}

func (v *Conn) closed() bool {
	select {
	case <-v.closing:
		return true
	default:
		return false
	}
}

// Start the receive goroutine, only once.
func (v *Conn) start() {
	v.lock.Lock()
	defer v.lock.Unlock()

	if v.started {
		return
	}
	v.started = true

	go func() {
		defer close(v.done)
		kernel.Recover(v.ctx, "rtmp recv", v.cycle)
	}()
}

func (v *Conn) cycle() (err error) {
	defer func() {
		v.close(err)
	}()

	for {
		var m *protocol.Message
		if m, err = v.stack.ReadMessage(); err != nil {
			// closed by user.
			if v.closed() {
				return nil
			}
			return oe.Wrap(err, "read message")
		}

		if err = v.onMessage(m); err != nil {
			return
		}
	}
}

func (v *Conn) onMessage(m *protocol.Message) (err error) {
	ctx := v.ctx

	if m.Type == protocol.MsgAggregate {
		var msgs []*protocol.Message
		if msgs, err = protocol.SplitAggregate(m); err != nil {
			atomic.AddUint64(&v.dropped, 1)
			ol.W(ctx, "drop aggregate", m, "err is", err)
			return nil
		}
		for _, m := range msgs {
			if err = v.onMessage(m); err != nil {
				return
			}
		}
		return
	}

	var p protocol.Packet
	if p, err = protocol.DecodePacket(m); err != nil {
		atomic.AddUint64(&v.dropped, 1)
		ol.W(ctx, "drop", m, "err is", err)
		return nil
	}

	switch p := p.(type) {
	case *protocol.UserControlPacket:
		return v.onUserControl(p)
	case *protocol.SetPeerBandwidthPacket:
		atomic.StoreUint32(&v.peerBandwidth, p.Bandwidth)
		ol.T(ctx, "peer bandwidth", p.Bandwidth, p.LimitType)
	case *protocol.AcknowledgementPacket:
		atomic.StoreUint32(&v.ackSequence, p.SequenceNumber)
	case *protocol.CommandPacket:
		return v.onCommand(m, p)
	case *protocol.SharedObjectPacket:
		v.onSharedObject(p)
	case *protocol.AudioPacket, *protocol.VideoPacket, *protocol.DataPacket:
		if s := v.Stream(m.StreamID); s != nil {
			s.onMessage(m, p)
		}
	case *protocol.UnknownPacket:
		atomic.AddUint64(&v.unknown, 1)
		ol.I(ctx, "ignore", m)
	}

	return
}

func (v *Conn) onUserControl(p *protocol.UserControlPacket) (err error) {
	ctx := v.ctx

	switch p.EventType {
	case protocol.PcucPingRequest:
		pong := &protocol.UserControlPacket{EventType: protocol.PcucPingResponse, EventData: p.EventData}
		return v.sendPacket(pong, 0, 0)
	case protocol.PcucBufferEmpty, protocol.PcucBufferFull:
		code := NetStreamBufferEmpty
		if p.EventType == protocol.PcucBufferFull {
			code = NetStreamBufferFull
		}
		if s := v.Stream(p.EventData); s != nil {
			s.onStatus(NewStatus(code, ""))
		}
	default:
		ol.T(ctx, "user control", p.EventType, "stream", p.EventData)
	}
	return
}

func (v *Conn) onCommand(m *protocol.Message, cmd *protocol.CommandPacket) (err error) {
	ctx := v.ctx

	switch cmd.Name {
	case protocol.CommandResult, protocol.CommandError:
		if r := v.transactions.take(cmd.TransactionID); r != nil {
			r.resolve(cmd)
		} else {
			ol.W(ctx, "ignore", cmd.Name, "without responder, tid", cmd.TransactionID)
		}
	case protocol.CommandClose:
		ol.W(ctx, "server close the connection")
		return oe.Wrap(ErrClosed, "server close")
	case protocol.CommandOnStatus:
		s := StatusFromCommand(cmd)
		if m.StreamID != 0 {
			if stream := v.Stream(m.StreamID); stream != nil {
				stream.onStatus(s)
				return
			}
		}

		v.emit(s)
		if s.Code == NetConnectionConnectClosed {
			return oe.Wrapf(ErrClosed, "%v", s)
		}
	default:
		ol.T(ctx, "ignore command", cmd.Name, "tid", cmd.TransactionID)
	}
	return
}

// Close the connection and emit the closed or failed status,
// the listeners are called out of lock, so they are ok to close again.
func (v *Conn) close(err error) {
	var status *Status
	var streams []*Stream

	v.closeOnce.Do(func() {
		v.lock.Lock()
		connected := v.connected
		v.connected = false
		v.state = protocol.HandshakeClosing
		started := v.started
		v.started = true
		v.lock.Unlock()

		// never invoke the pending responders.
		v.transactions.clear()
		close(v.closing)
		_ = v.transport.Close()
		if !started {
			close(v.done)
		}

		for item := range v.streams.IterBuffered() {
			streams = append(streams, item.Val.(*Stream))
			v.streams.Remove(item.Key)
		}
		for item := range v.sharedObjects.IterBuffered() {
			item.Val.(*RemoteSharedObject).onClosed()
		}

		v.lock.Lock()
		v.state = protocol.HandshakeClosed
		v.lock.Unlock()

		code := NetConnectionConnectFailed
		if connected {
			code = NetConnectionConnectClosed
		}

		var description string
		if err != nil {
			description = err.Error()
			ol.W(v.ctx, "closed", code, "err is", err)
		} else {
			ol.T(v.ctx, "closed", code)
		}
		status = NewStatus(code, description)
	})

	for _, s := range streams {
		s.onClosed()
	}
	v.emit(status)
}

// The summary of connection, for api.
type Summary struct {
	ID        string   `json:"id"`
	Cid       int      `json:"cid"`
	URL       string   `json:"url"`
	State     string   `json:"state"`
	Connected bool     `json:"connected"`
	InBytes   uint64   `json:"recv_bytes"`
	OutBytes  uint64   `json:"send_bytes"`
	InChunk   uint32   `json:"recv_chunk"`
	OutChunk  uint32   `json:"send_chunk"`
	Bandwidth uint32   `json:"bandwidth"`
	Streams   []uint32 `json:"streams"`
	Dropped   uint64   `json:"dropped"`
	Unknown   uint64   `json:"unknown"`
}

func (v *Conn) Summary() *Summary {
	s := &Summary{
		ID:        v.id,
		Cid:       v.ctx.Cid(),
		URL:       v.req.TcUrl,
		State:     v.State().String(),
		Connected: v.Connected(),
		InBytes:   v.InBytes(),
		OutBytes:  v.OutBytes(),
		InChunk:   v.stack.InChunkSize(),
		OutChunk:  v.stack.OutChunkSize(),
		Bandwidth: v.PeerBandwidth(),
		Dropped:   atomic.LoadUint64(&v.dropped),
		Unknown:   atomic.LoadUint64(&v.unknown),
	}
	for item := range v.streams.IterBuffered() {
		s.Streams = append(s.Streams, item.Val.(*Stream).ID())
	}
	return s
}
