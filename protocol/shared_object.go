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
	"bytes"
	"encoding/binary"
	"fmt"
	oe "github.com/ossrs/go-oryx-lib/errors"
	"github.com/ossrs/go-oryx-rtmp/amf"
)

// The type of shared object event.
type SharedObjectEventType uint8

const (
	SoUse           SharedObjectEventType = 1
	SoRelease       SharedObjectEventType = 2
	SoRequestChange SharedObjectEventType = 3
	SoChange        SharedObjectEventType = 4
	SoSuccess       SharedObjectEventType = 5
	SoSendMessage   SharedObjectEventType = 6
	SoStatus        SharedObjectEventType = 7
	SoClear         SharedObjectEventType = 8
	SoRemove        SharedObjectEventType = 9
	SoRequestRemove SharedObjectEventType = 10
	SoUseSuccess    SharedObjectEventType = 11
)

func (v SharedObjectEventType) String() string {
	switch v {
	case SoUse:
		return "Use"
	case SoRelease:
		return "Release"
	case SoRequestChange:
		return "RequestChange"
	case SoChange:
		return "Change"
	case SoSuccess:
		return "Success"
	case SoSendMessage:
		return "SendMessage"
	case SoStatus:
		return "Status"
	case SoClear:
		return "Clear"
	case SoRemove:
		return "Remove"
	case SoRequestRemove:
		return "RequestRemove"
	case SoUseSuccess:
		return "UseSuccess"
	default:
		return fmt.Sprintf("Unknown(%v)", uint8(v))
	}
}

// The event of shared object, the name and data are optional.
type SharedObjectEvent struct {
	Type SharedObjectEventType
	Name string
	// nil when event carries no data.
	Data amf.Value
}

func (v *SharedObjectEvent) String() string {
	return fmt.Sprintf("%v name=%v, data=%v", v.Type, v.Name, v.Data)
}

// The persistent shared object sets the first 4 flag bytes to 2 in big-endian.
const SoFlagPersistent = 0x02

// 3.3. Shared object message
// The payload is the name, version, flags and events, each event is:
//	type(1B), body length(4B), then name length(2B), name and data in body.
// An event without name and data has zero body length.
type SharedObjectPacket struct {
	ObjectEncoding amf.ObjectEncoding
	Name           string
	Version        uint32
	Flags          [8]byte
	Events         []*SharedObjectEvent
}

func (v *SharedObjectPacket) Persistent() bool {
	return v.Flags[3]&SoFlagPersistent != 0
}

func (v *SharedObjectPacket) MarshalBinary() (data []byte, err error) {
	if len(v.Name) > 0xffff {
		return nil, oe.Wrapf(ErrPacket, "so name %vB", len(v.Name))
	}

	var b bytes.Buffer
	binary.Write(&b, binary.BigEndian, uint16(len(v.Name)))
	b.WriteString(v.Name)
	binary.Write(&b, binary.BigEndian, v.Version)
	b.Write(v.Flags[:])

	for _, e := range v.Events {
		b.WriteByte(byte(e.Type))

		if len(e.Name) == 0 && e.Data == nil {
			binary.Write(&b, binary.BigEndian, uint32(0))
			continue
		}
		if len(e.Name) > 0xffff {
			return nil, oe.Wrapf(ErrPacket, "so event name %vB", len(e.Name))
		}

		var value []byte
		if e.Data != nil {
			if value, err = amf.Marshal(v.ObjectEncoding, e.Data); err != nil {
				return nil, oe.Wrapf(err, "so event %v", e.Name)
			}
		}

		binary.Write(&b, binary.BigEndian, uint32(2+len(e.Name)+len(value)))
		binary.Write(&b, binary.BigEndian, uint16(len(e.Name)))
		b.WriteString(e.Name)
		b.Write(value)
	}

	return b.Bytes(), nil
}

func (v *SharedObjectPacket) UnmarshalBinary(data []byte) (err error) {
	if len(data) < 2 {
		return oe.Wrap(ErrPacket, "so name")
	}
	n := int(binary.BigEndian.Uint16(data))
	data = data[2:]

	if len(data) < n+4+8 {
		return oe.Wrapf(ErrPacket, "so header require %vB, actual %vB", n+4+8, len(data))
	}
	v.Name = string(data[:n])
	v.Version = binary.BigEndian.Uint32(data[n:])
	copy(v.Flags[:], data[n+4:n+12])
	data = data[n+12:]

	v.Events = nil
	for len(data) > 0 {
		if len(data) < 5 {
			return oe.Wrapf(ErrPacket, "so event require 5B, actual %vB", len(data))
		}
		e := &SharedObjectEvent{Type: SharedObjectEventType(data[0])}
		size := int(binary.BigEndian.Uint32(data[1:]))
		data = data[5:]
		v.Events = append(v.Events, e)

		// no name and data.
		if size == 0 {
			continue
		}
		if size < 2 || len(data) < size {
			return oe.Wrapf(ErrPacket, "so event %v body %vB, actual %vB", e.Type, size, len(data))
		}

		body := data[:size]
		data = data[size:]

		n = int(binary.BigEndian.Uint16(body))
		if len(body) < 2+n {
			return oe.Wrapf(ErrPacket, "so event name %vB, actual %vB", n, len(body)-2)
		}
		e.Name = string(body[2 : 2+n])

		if body = body[2+n:]; len(body) > 0 {
			if e.Data, err = amf.NewDecoder(v.ObjectEncoding, body).Decode(); err != nil {
				return oe.Wrapf(err, "so event %v data", e.Name)
			}
		}
	}

	return
}

func (v *SharedObjectPacket) PreferCid() uint32 {
	return CidOverConnection
}

func (v *SharedObjectPacket) MessageType() MessageType {
	if v.ObjectEncoding == amf.AMF3 {
		return MsgAMF3SharedObject
	}
	return MsgAMF0SharedObject
}
