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
	"encoding"
	"encoding/binary"
	"fmt"
	oe "github.com/ossrs/go-oryx-lib/errors"
)

// The packet is the decoded message payload.
type Packet interface {
	// Marshal the packet to the message payload.
	encoding.BinaryMarshaler
	// Unmarshal the packet from the message payload.
	encoding.BinaryUnmarshaler
	// The cid to send the packet.
	PreferCid() uint32
	// The type of message to carry the packet.
	MessageType() MessageType
}

// Decode the message payload to packet, the unknown message is decoded
// to UnknownPacket without error.
func DecodePacket(m *Message) (p Packet, err error) {
	switch m.Type {
	case MsgSetChunkSize:
		p = &SetChunkSizePacket{}
	case MsgAbort:
		p = &AbortPacket{}
	case MsgAcknowledgement:
		p = &AcknowledgementPacket{}
	case MsgUserControl:
		p = &UserControlPacket{}
	case MsgWindowAcknowledgementSize:
		p = &WindowAcknowledgementSizePacket{}
	case MsgSetPeerBandwidth:
		p = &SetPeerBandwidthPacket{}
	case MsgAudio:
		p = &AudioPacket{}
	case MsgVideo:
		p = &VideoPacket{}
	case MsgAMF0Command, MsgAMF3Command:
		p = &CommandPacket{ObjectEncoding: objectEncodingOf(m.Type)}
	case MsgAMF0Data, MsgAMF3Data:
		p = &DataPacket{ObjectEncoding: objectEncodingOf(m.Type)}
	case MsgAMF0SharedObject, MsgAMF3SharedObject:
		p = &SharedObjectPacket{ObjectEncoding: objectEncodingOf(m.Type)}
	case MsgAggregate:
		p = &AggregatePacket{}
	default:
		p = &UnknownPacket{Type: m.Type}
	}

	if err = p.UnmarshalBinary(m.Payload); err != nil {
		return nil, oe.Wrapf(err, "decode %v", m.Type)
	}
	return
}

// Encode the packet to message, which is sent on the prefer cid of packet.
func EncodePacket(p Packet, streamID, timestamp uint32) (m *Message, err error) {
	var payload []byte
	if payload, err = p.MarshalBinary(); err != nil {
		return nil, oe.Wrapf(err, "encode %v", p.MessageType())
	}

	m = NewMessage(p.MessageType(), streamID, timestamp, payload)
	m.ChunkStreamID = p.PreferCid()
	return
}

func marshalUint32(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func unmarshalUint32(data []byte, v *uint32) error {
	if len(data) < 4 {
		return oe.Wrapf(ErrPacket, "require 4B, actual %vB", len(data))
	}
	*v = binary.BigEndian.Uint32(data)
	return nil
}

// 5.1. Set Chunk Size (1)
// Protocol control message 1, Set Chunk Size, is used to notify the
// peer about the new maximum chunk size.
type SetChunkSizePacket struct {
	// The maximum chunk size can be 65536 bytes. The chunk size is
	// maintained independently for each direction.
	ChunkSize uint32
}

func NewSetChunkSizePacket(size uint32) *SetChunkSizePacket {
	return &SetChunkSizePacket{ChunkSize: size}
}

func (v *SetChunkSizePacket) MarshalBinary() (data []byte, err error) {
	if v.ChunkSize == 0 || v.ChunkSize > 0x7fffffff {
		return nil, oe.Wrapf(ErrPacket, "chunk size %v", v.ChunkSize)
	}
	return marshalUint32(v.ChunkSize), nil
}

func (v *SetChunkSizePacket) UnmarshalBinary(data []byte) (err error) {
	if err = unmarshalUint32(data, &v.ChunkSize); err != nil {
		return
	}
	// the first bit MUST be zero.
	if v.ChunkSize == 0 || v.ChunkSize > 0x7fffffff {
		return oe.Wrapf(ErrPacket, "chunk size %v", v.ChunkSize)
	}
	return
}

func (v *SetChunkSizePacket) PreferCid() uint32 {
	return CidProtocolControl
}

func (v *SetChunkSizePacket) MessageType() MessageType {
	return MsgSetChunkSize
}

// 5.2. Abort Message (2)
// Protocol control message 2, Abort Message, is used to notify the peer
// if it is waiting for chunks to complete a message, then to discard
// the partially received message over a chunk stream.
type AbortPacket struct {
	ChunkStreamID uint32
}

func (v *AbortPacket) MarshalBinary() (data []byte, err error) {
	return marshalUint32(v.ChunkStreamID), nil
}

func (v *AbortPacket) UnmarshalBinary(data []byte) (err error) {
	return unmarshalUint32(data, &v.ChunkStreamID)
}

func (v *AbortPacket) PreferCid() uint32 {
	return CidProtocolControl
}

func (v *AbortPacket) MessageType() MessageType {
	return MsgAbort
}

// 5.3. Acknowledgement (3)
// The client or the server sends the acknowledgment to the peer after
// receiving bytes equal to the window size.
type AcknowledgementPacket struct {
	// the number of bytes received so far.
	SequenceNumber uint32
}

func (v *AcknowledgementPacket) MarshalBinary() (data []byte, err error) {
	return marshalUint32(v.SequenceNumber), nil
}

func (v *AcknowledgementPacket) UnmarshalBinary(data []byte) (err error) {
	return unmarshalUint32(data, &v.SequenceNumber)
}

func (v *AcknowledgementPacket) PreferCid() uint32 {
	return CidProtocolControl
}

func (v *AcknowledgementPacket) MessageType() MessageType {
	return MsgAcknowledgement
}

// 5.5. Window Acknowledgement Size (5)
// The client or the server sends this message to inform the peer which
// window size to use when sending acknowledgment.
type WindowAcknowledgementSizePacket struct {
	AcknowledgementWindowSize uint32
}

func (v *WindowAcknowledgementSizePacket) MarshalBinary() (data []byte, err error) {
	return marshalUint32(v.AcknowledgementWindowSize), nil
}

func (v *WindowAcknowledgementSizePacket) UnmarshalBinary(data []byte) (err error) {
	return unmarshalUint32(data, &v.AcknowledgementWindowSize)
}

func (v *WindowAcknowledgementSizePacket) PreferCid() uint32 {
	return CidProtocolControl
}

func (v *WindowAcknowledgementSizePacket) MessageType() MessageType {
	return MsgWindowAcknowledgementSize
}

// 5.6. Set Peer Bandwidth (6)
// The limit type of bandwidth.
type LimitType uint8

const (
	// The peer SHOULD limit its output bandwidth to the indicated window size.
	LimitHard LimitType = iota
	// The peer SHOULD limit its output bandwidth to the the window
	// indicated in this message or the limit already in effect,
	// whichever is smaller.
	LimitSoft
	// If the previous Limit Type was Hard, treat this message as though
	// it was marked Hard, otherwise ignore this message.
	LimitDynamic
)

func (v LimitType) String() string {
	switch v {
	case LimitHard:
		return "Hard"
	case LimitSoft:
		return "Soft"
	case LimitDynamic:
		return "Dynamic"
	default:
		return fmt.Sprintf("Unknown(%v)", uint8(v))
	}
}

// The client or the server sends this message to update the output
// bandwidth of the peer.
type SetPeerBandwidthPacket struct {
	Bandwidth uint32
	LimitType LimitType
}

func (v *SetPeerBandwidthPacket) MarshalBinary() (data []byte, err error) {
	return append(marshalUint32(v.Bandwidth), byte(v.LimitType)), nil
}

func (v *SetPeerBandwidthPacket) UnmarshalBinary(data []byte) (err error) {
	if len(data) < 5 {
		return oe.Wrapf(ErrPacket, "require 5B, actual %vB", len(data))
	}
	v.Bandwidth = binary.BigEndian.Uint32(data)
	v.LimitType = LimitType(data[4])
	return
}

func (v *SetPeerBandwidthPacket) PreferCid() uint32 {
	return CidProtocolControl
}

func (v *SetPeerBandwidthPacket) MessageType() MessageType {
	return MsgSetPeerBandwidth
}

// 3.7. User Control message
type UserControlEvent uint16

const (
	// 2bytes event-type and generally, 4bytes event-data

	// The server sends this event to notify the client
	// that a stream has become functional and can be
	// used for communication. The event data is 4-byte
	// and represents the stream ID of the stream that
	// became functional.
	PcucStreamBegin UserControlEvent = 0x00

	// The server sends this event to notify the client
	// that the playback of data is over as requested
	// on this stream. The 4 bytes of event data
	// represent the ID of the stream on which playback
	// has ended.
	PcucStreamEOF UserControlEvent = 0x01

	// The server sends this event to notify the client
	// that there is no more data on the stream.
	PcucStreamDry UserControlEvent = 0x02

	// The client sends this event to inform the server
	// of the buffer size (in milliseconds) that is
	// used to buffer any data coming over a stream.
	// The first 4 bytes of the event data represent
	// the stream ID and the next 4 bytes represent the
	// buffer length, in milliseconds.
	PcucSetBufferLength UserControlEvent = 0x03 // 8bytes event-data

	// The server sends this event to notify the client
	// that the stream is a recorded stream.
	PcucStreamIsRecorded UserControlEvent = 0x04

	// The server sends this event to test whether the
	// client is reachable. Event data is a 4-byte
	// timestamp, representing the local server time
	// when the server dispatched the command.
	PcucPingRequest UserControlEvent = 0x06

	// The client sends this event to the server in
	// response to the ping request. The event data is
	// a 4-byte timestamp, which was received with the
	// kMsgPingRequest request.
	PcucPingResponse UserControlEvent = 0x07

	// The server notifies the buffer of stream is empty or full,
	// the event data is the stream ID.
	PcucBufferEmpty UserControlEvent = 0x1f
	PcucBufferFull  UserControlEvent = 0x20
)

func (v UserControlEvent) String() string {
	switch v {
	case PcucStreamBegin:
		return "StreamBegin"
	case PcucStreamEOF:
		return "StreamEOF"
	case PcucStreamDry:
		return "StreamDry"
	case PcucSetBufferLength:
		return "SetBufferLength"
	case PcucStreamIsRecorded:
		return "StreamIsRecorded"
	case PcucPingRequest:
		return "PingRequest"
	case PcucPingResponse:
		return "PingResponse"
	case PcucBufferEmpty:
		return "BufferEmpty"
	case PcucBufferFull:
		return "BufferFull"
	default:
		return fmt.Sprintf("Unknown(%#x)", uint16(v))
	}
}

// 5.4. User Control Message (4)
//
// for the EventData is 4bytes.
// Stream Begin(=0)              4-bytes stream ID
// Stream EOF(=1)                4-bytes stream ID
// StreamDry(=2)                 4-bytes stream ID
// SetBufferLength(=3)           8-bytes 4bytes stream ID, 4bytes buffer length.
// StreamIsRecorded(=4)          4-bytes stream ID
// PingRequest(=6)               4-bytes timestamp local server time
// PingResponse(=7)              4-bytes timestamp received ping request.
//
// 3.7. User Control message
// +------------------------------+-------------------------
// | Event Type ( 2- bytes ) | Event Data
// +------------------------------+-------------------------
// Figure 5 Pay load for the 'User Control Message'.
type UserControlPacket struct {
	EventType UserControlEvent
	// the event data generally in 4bytes.
	EventData uint32
	// 4bytes if event_type is SetBufferLength; otherwise 0.
	ExtraData uint32
}

func (v *UserControlPacket) MarshalBinary() (data []byte, err error) {
	data = make([]byte, 6, 10)
	binary.BigEndian.PutUint16(data, uint16(v.EventType))
	binary.BigEndian.PutUint32(data[2:], v.EventData)
	if v.EventType == PcucSetBufferLength {
		data = append(data, marshalUint32(v.ExtraData)...)
	}
	return
}

func (v *UserControlPacket) UnmarshalBinary(data []byte) (err error) {
	if len(data) < 6 {
		return oe.Wrapf(ErrPacket, "user control require 6B, actual %vB", len(data))
	}
	v.EventType = UserControlEvent(binary.BigEndian.Uint16(data))
	v.EventData = binary.BigEndian.Uint32(data[2:])
	if v.EventType == PcucSetBufferLength {
		return unmarshalUint32(data[6:], &v.ExtraData)
	}
	return
}

func (v *UserControlPacket) PreferCid() uint32 {
	return CidProtocolControl
}

func (v *UserControlPacket) MessageType() MessageType {
	return MsgUserControl
}

// 3.4. Audio message, the payload is opaque.
type AudioPacket struct {
	Payload []byte
}

func (v *AudioPacket) MarshalBinary() (data []byte, err error) {
	return v.Payload, nil
}

func (v *AudioPacket) UnmarshalBinary(data []byte) (err error) {
	v.Payload = data
	return
}

func (v *AudioPacket) PreferCid() uint32 {
	return CidAudio
}

func (v *AudioPacket) MessageType() MessageType {
	return MsgAudio
}

// 3.5. Video message, the payload is opaque.
type VideoPacket struct {
	Payload []byte
}

func (v *VideoPacket) MarshalBinary() (data []byte, err error) {
	return v.Payload, nil
}

func (v *VideoPacket) UnmarshalBinary(data []byte) (err error) {
	v.Payload = data
	return
}

func (v *VideoPacket) PreferCid() uint32 {
	return CidVideo
}

func (v *VideoPacket) MessageType() MessageType {
	return MsgVideo
}

// The message of unknown type, kept but never dispatched.
type UnknownPacket struct {
	Type    MessageType
	Payload []byte
}

func (v *UnknownPacket) MarshalBinary() (data []byte, err error) {
	return v.Payload, nil
}

func (v *UnknownPacket) UnmarshalBinary(data []byte) (err error) {
	v.Payload = data
	return
}

func (v *UnknownPacket) PreferCid() uint32 {
	return CidOverConnection
}

func (v *UnknownPacket) MessageType() MessageType {
	return v.Type
}
