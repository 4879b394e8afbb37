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

package protocol

import (
	oe "github.com/ossrs/go-oryx-lib/errors"
	ol "github.com/ossrs/go-oryx-lib/logger"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// The rtmp stack, drives the chunk codec over the reader and writer.
// The reader is only used by one goroutine, while the writer is locked.
type Stack struct {
	ctx ol.Context

	// the input and output stream.
	in  io.Reader
	out io.Writer

	// the bytes read from in, the [start, end) is not consumed.
	buf        []byte
	start, end int

	decoder *ChunkDecoder
	encoder *ChunkEncoder
	// to protect the encoder and out.
	writeLock sync.Mutex

	// the bytes of input and output.
	inBytes  uint64
	outBytes uint64

	// the timeout of each write, 0 to never timeout.
	writeTimeout time.Duration

	// the window to send acknowledgement, set by peer.
	ackWindow uint32
	// the inBytes when last acknowledgement sent.
	lastAckBytes uint64
}

func NewStack(ctx ol.Context, r io.Reader, w io.Writer) *Stack {
	return &Stack{
		ctx:     ctx,
		in:      r,
		out:     w,
		buf:     make([]byte, RtmpInCache*1024),
		decoder: NewChunkDecoder(),
		encoder: NewChunkEncoder(),
	}
}

// The bytes received, including the handshake.
func (v *Stack) InBytes() uint64 {
	return atomic.LoadUint64(&v.inBytes)
}

// The bytes sent, including the handshake.
func (v *Stack) OutBytes() uint64 {
	return atomic.LoadUint64(&v.outBytes)
}

func (v *Stack) InChunkSize() uint32 {
	return v.decoder.ChunkSize()
}

func (v *Stack) OutChunkSize() uint32 {
	v.writeLock.Lock()
	defer v.writeLock.Unlock()
	return v.encoder.ChunkSize()
}

// Read more bytes from in, the unconsumed bytes are kept.
func (v *Stack) fill() (err error) {
	if v.start > 0 {
		copy(v.buf, v.buf[v.start:v.end])
		v.end -= v.start
		v.start = 0
	}

	if v.end == len(v.buf) {
		b := make([]byte, 2*len(v.buf))
		copy(b, v.buf[:v.end])
		v.buf = b
	}

	var n int
	n, err = v.in.Read(v.buf[v.end:])
	if n > 0 {
		v.end += n
		atomic.AddUint64(&v.inBytes, uint64(n))
		return nil
	}
	if err == nil {
		err = io.ErrNoProgress
	}
	return
}

// Set the timeout of each write, when out supports the write deadline.
func (v *Stack) SetWriteTimeout(d time.Duration) {
	v.writeLock.Lock()
	defer v.writeLock.Unlock()
	v.writeTimeout = d
}

type writeDeadliner interface {
	SetWriteDeadline(t time.Time) error
}

func (v *Stack) write(iovs [][]byte) (err error) {
	if w, ok := v.out.(writeDeadliner); ok && v.writeTimeout > 0 {
		if err = w.SetWriteDeadline(time.Now().Add(v.writeTimeout)); err != nil {
			return
		}
	}

	bufs := net.Buffers(iovs)
	var n int64
	n, err = bufs.WriteTo(v.out)
	atomic.AddUint64(&v.outBytes, uint64(n))
	return
}

// Do the simple handshake as client.
func (v *Stack) Handshake(hs *Handshake) (err error) {
	v.writeLock.Lock()
	err = v.write([][]byte{hs.C0C1()})
	v.writeLock.Unlock()
	if err != nil {
		return oe.Wrap(err, "write c0c1")
	}

	for hs.State() != HandshakeDone {
		var n int
		var c2 []byte
		if n, c2, err = hs.Feed(v.buf[v.start:v.end]); err != nil {
			return
		}
		v.start += n

		if c2 != nil {
			v.writeLock.Lock()
			err = v.write([][]byte{c2})
			v.writeLock.Unlock()
			if err != nil {
				return oe.Wrap(err, "write c2")
			}
		}

		if n == 0 {
			if err = v.fill(); err != nil {
				return oe.Wrapf(err, "read %v", hs.State())
			}
		}
	}

	return
}

// Read a message, the protocol control messages are handled
// before return to the caller.
func (v *Stack) ReadMessage() (m *Message, err error) {
	for {
		if v.end > v.start {
			var n int
			if n, m, err = v.decoder.Decode(v.buf[v.start:v.end]); err != nil {
				return nil, err
			}
			v.start += n

			if m != nil {
				if err = v.onRecvMessage(m); err != nil {
					return nil, err
				}
				return m, nil
			}

			if n > 0 {
				continue
			}
		}

		if err = v.fill(); err != nil {
			return nil, err
		}
	}
}

func (v *Stack) onRecvMessage(m *Message) (err error) {
	ctx := v.ctx

	// 5.3. Acknowledgement (3)
	// The client or the server sends the acknowledgment to the peer after
	// receiving bytes equal to the window size.
	if window := atomic.LoadUint32(&v.ackWindow); window > 0 {
		if inBytes := v.InBytes(); inBytes-v.lastAckBytes >= uint64(window) {
			v.lastAckBytes = inBytes
			ack := &AcknowledgementPacket{SequenceNumber: uint32(inBytes)}
			if err = v.SendPacket(ack, 0, 0); err != nil {
				return oe.Wrap(err, "send ack")
			}
		}
	}

	switch m.Type {
	case MsgSetChunkSize, MsgAbort, MsgWindowAcknowledgementSize:
		// we will handle these packet.
	default:
		return
	}

	var p Packet
	if p, err = DecodePacket(m); err != nil {
		return
	}

	switch p := p.(type) {
	case *SetChunkSizePacket:
		// for some server, the actual chunk size can greater than the max value(65536),
		// so we just warning the invalid chunk size, and actually use it is ok,
		// @see: https://github.com/ossrs/srs/issues/160
		if p.ChunkSize < MinChunkSize || p.ChunkSize > MaxChunkSize {
			ol.W(ctx, "accept invalid chunk size", p.ChunkSize)
		}
		v.decoder.SetChunkSize(p.ChunkSize)
		ol.T(ctx, "input chunk size to", p.ChunkSize)
	case *AbortPacket:
		if v.decoder.Abort(p.ChunkStreamID) {
			ol.W(ctx, "abort partial message of cid", p.ChunkStreamID)
		}
	case *WindowAcknowledgementSizePacket:
		atomic.StoreUint32(&v.ackWindow, p.AcknowledgementWindowSize)
		ol.T(ctx, "input ack window to", p.AcknowledgementWindowSize)
	}

	return
}

// Encode the packet to message on its prefer cid and send it.
func (v *Stack) SendPacket(p Packet, streamID, timestamp uint32) (err error) {
	var m *Message
	if m, err = EncodePacket(p, streamID, timestamp); err != nil {
		return
	}
	return v.SendMessage(m)
}

// Send messages in a writev, the chunk size is applied after the
// SetChunkSize message is sent.
func (v *Stack) SendMessage(msgs ...*Message) (err error) {
	v.writeLock.Lock()
	defer v.writeLock.Unlock()

	var iovs [][]byte
	var chunkSize uint32
	for _, m := range msgs {
		// the messages after SetChunkSize use the new chunk size, so flush it.
		if chunkSize > 0 {
			if err = v.write(iovs); err != nil {
				return
			}
			iovs = nil
			v.encoder.SetChunkSize(chunkSize)
			ol.T(v.ctx, "output chunk size to", chunkSize)
			chunkSize = 0
		}

		var mi [][]byte
		if mi, err = v.encoder.Encode(m); err != nil {
			return
		}
		iovs = append(iovs, mi...)

		if m.Type == MsgSetChunkSize {
			p := &SetChunkSizePacket{}
			if err = p.UnmarshalBinary(m.Payload); err != nil {
				return
			}
			chunkSize = p.ChunkSize
		}
	}

	if err = v.write(iovs); err != nil {
		return
	}

	if chunkSize > 0 {
		v.encoder.SetChunkSize(chunkSize)
		ol.T(v.ctx, "output chunk size to", chunkSize)
	}
	return
}
