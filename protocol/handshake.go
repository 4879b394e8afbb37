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
	"encoding/binary"
	"fmt"
	oe "github.com/ossrs/go-oryx-lib/errors"
	"github.com/ossrs/go-oryx-rtmp/kernel"
	"time"
)

// The state of the client handshake, then the connection.
type HandshakeState int

const (
	HandshakeInitialized HandshakeState = iota
	HandshakeVersionSent
	HandshakeAckSent
	HandshakeDone
	HandshakeClosing
	HandshakeClosed
)

func (v HandshakeState) String() string {
	switch v {
	case HandshakeInitialized:
		return "Initialized"
	case HandshakeVersionSent:
		return "VersionSent"
	case HandshakeAckSent:
		return "AckSent"
	case HandshakeDone:
		return "HandshakeDone"
	case HandshakeClosing:
		return "Closing"
	case HandshakeClosed:
		return "Closed"
	default:
		return fmt.Sprintf("Unknown(%d)", int(v))
	}
}

const (
	// the plaintext version of rtmp.
	HandshakeVersion = 0x03
	// the size of C1/S1 and C2/S2.
	HandshakePacketSize = 1536
)

// The simple handshake of client, which never does IO.
// C0C1 is sent first, then feed S0S1S2 by Feed, which returns C2 to send.
type Handshake struct {
	state HandshakeState
	// 1 + 1536 + 1536 = 3073
	c0c1c2 []byte
	// the time when C1 created.
	starttime time.Time
}

func NewHandshake() *Handshake {
	return &Handshake{
		c0c1c2: make([]byte, 1+2*HandshakePacketSize),
	}
}

func (v *Handshake) State() HandshakeState {
	return v.state
}

func (v *Handshake) C0() []byte {
	return v.c0c1c2[:1]
}

func (v *Handshake) C1() []byte {
	return v.c0c1c2[1 : 1+HandshakePacketSize]
}

func (v *Handshake) C2() []byte {
	return v.c0c1c2[1+HandshakePacketSize:]
}

// Create the C0C1 to send, and the state is VersionSent.
// C1 is 4B time, 4B zero and 1528B random.
func (v *Handshake) C0C1() []byte {
	v.starttime = time.Now()

	v.C0()[0] = HandshakeVersion

	c1 := v.C1()
	binary.BigEndian.PutUint32(c1, uint32(v.starttime.Unix()))
	binary.BigEndian.PutUint32(c1[4:], 0)
	kernel.RandomFill(c1[8:])

	v.state = HandshakeVersionSent
	return v.c0c1c2[:1+HandshakePacketSize]
}

// Feed the bytes from server, return the consumed bytes and the C2 to send.
// When n is zero, need more bytes.
func (v *Handshake) Feed(p []byte) (n int, c2 []byte, err error) {
	switch v.state {
	case HandshakeVersionSent:
		// S0 and S1
		if len(p) < 1+HandshakePacketSize {
			return
		}
		if p[0] != HandshakeVersion {
			return 0, nil, oe.Wrapf(ErrHandshake, "s0 version %#x", p[0])
		}

		// C2 echo the S1, except the time2 which is the elapsed time.
		s1 := p[1 : 1+HandshakePacketSize]
		c2 = v.C2()
		copy(c2, s1)
		elapsed := time.Now().Sub(v.starttime) / time.Millisecond
		binary.BigEndian.PutUint32(c2[4:], uint32(elapsed))

		v.state = HandshakeAckSent
		return 1 + HandshakePacketSize, c2, nil
	case HandshakeAckSent:
		// S2, ignored.
		if len(p) < HandshakePacketSize {
			return
		}

		v.state = HandshakeDone
		return HandshakePacketSize, nil, nil
	case HandshakeInitialized:
		return 0, nil, oe.Wrap(ErrHandshake, "c0c1 not sent")
	}

	return
}
