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
	oe "github.com/ossrs/go-oryx-lib/errors"
)

// The size of aggregate sub message header, same to FLV tag header.
const aggregateHeaderSize = 11

// 7.1.6. Aggregate Message (22)
// An aggregate message is a single message that contains a series of
// RTMP sub-messages, each is a FLV tag with a back pointer:
//	type(1B), size(3B), timestamp(3B), timestamp extended(1B), stream id(3B),
//	body(size), back pointer(4B).
// The timestamp of sub messages is rebased on the aggregate message.
type AggregatePacket struct {
	Messages []*Message
}

// Split the aggregate message to sub messages, each sub message
// inherits the stream id of aggregate message.
func SplitAggregate(m *Message) ([]*Message, error) {
	p := &AggregatePacket{}
	if err := p.UnmarshalBinary(m.Payload); err != nil {
		return nil, err
	}

	var base uint32
	for i, sm := range p.Messages {
		if i == 0 {
			base = sm.Timestamp
		}
		sm.Timestamp = m.Timestamp + (sm.Timestamp - base)
		sm.StreamID = m.StreamID
		sm.ChunkStreamID = m.ChunkStreamID
	}
	return p.Messages, nil
}

func (v *AggregatePacket) MarshalBinary() (data []byte, err error) {
	for _, m := range v.Messages {
		if len(m.Payload) > MaxMessageLength {
			return nil, oe.Wrapf(ErrMessageTooLarge, "sub message %vB", len(m.Payload))
		}

		size := uint32(len(m.Payload))
		h := make([]byte, aggregateHeaderSize)
		h[0] = byte(m.Type)
		h[1], h[2], h[3] = byte(size>>16), byte(size>>8), byte(size)
		h[4], h[5], h[6] = byte(m.Timestamp>>16), byte(m.Timestamp>>8), byte(m.Timestamp)
		h[7] = byte(m.Timestamp >> 24)
		h[8], h[9], h[10] = byte(m.StreamID>>16), byte(m.StreamID>>8), byte(m.StreamID)

		data = append(data, h...)
		data = append(data, m.Payload...)

		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, aggregateHeaderSize+size)
		data = append(data, b...)
	}
	return
}

func (v *AggregatePacket) UnmarshalBinary(data []byte) (err error) {
	v.Messages = nil

	for len(data) > 0 {
		if len(data) < aggregateHeaderSize {
			return oe.Wrapf(ErrPacket, "aggregate header %vB", len(data))
		}

		m := &Message{Type: MessageType(data[0])}
		size := int(data[1])<<16 | int(data[2])<<8 | int(data[3])
		m.Timestamp = uint32(data[7])<<24 | uint32(data[4])<<16 | uint32(data[5])<<8 | uint32(data[6])
		m.StreamID = uint32(data[8])<<16 | uint32(data[9])<<8 | uint32(data[10])
		data = data[aggregateHeaderSize:]

		if len(data) < size {
			return oe.Wrapf(ErrPacket, "aggregate body %vB, actual %vB", size, len(data))
		}
		m.Payload = data[:size]
		data = data[size:]

		// the back pointer is optional for the last one.
		if len(data) >= 4 {
			data = data[4:]
		} else if len(data) > 0 {
			return oe.Wrapf(ErrPacket, "aggregate back pointer %vB", len(data))
		}

		v.Messages = append(v.Messages, m)
	}

	return
}

func (v *AggregatePacket) PreferCid() uint32 {
	return CidOverStream
}

func (v *AggregatePacket) MessageType() MessageType {
	return MsgAggregate
}
