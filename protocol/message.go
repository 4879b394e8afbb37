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

import "fmt"

// 6.1.2. Chunk Message Header
// There are four different formats for the chunk message header,
// selected by the "fmt" field in the chunk basic header.
const (
	// 6.1.2.1. Type 0
	// Chunks of Type 0 are 11 bytes long. This type MUST be used at the
	// start of a chunk stream, and whenever the stream timestamp goes
	// backward (e.g., because of a backward seek).
	FmtType0 = iota
	// 6.1.2.2. Type 1
	// Chunks of Type 1 are 7 bytes long. The message stream ID is not
	// included; this chunk takes the same stream ID as the preceding chunk.
	FmtType1
	// 6.1.2.3. Type 2
	// Chunks of Type 2 are 3 bytes long. Neither the stream ID nor the
	// message length is included; this chunk has the same stream ID and
	// message length as the preceding chunk.
	FmtType2
	// 6.1.2.4. Type 3
	// Chunks of Type 3 have no header. Stream ID, message length and
	// timestamp delta are not present; chunks of this type take values from
	// the preceding chunk.
	FmtType3
)

// the message type.
type MessageType uint8

const (
	// 5. Protocol Control Messages
	// RTMP reserves message type IDs 1-7 for protocol control messages.
	// Protocol messages with IDs 1 & 2 are reserved for usage with RTM Chunk
	// Stream protocol. Protocol messages with IDs 3-6 are reserved for usage
	// of RTMP. Protocol message with ID 7 is used between edge server and
	// origin server.
	MsgSetChunkSize               MessageType = 0x01
	MsgAbort                      MessageType = 0x02
	MsgAcknowledgement            MessageType = 0x03
	MsgUserControl                MessageType = 0x04
	MsgWindowAcknowledgementSize  MessageType = 0x05
	MsgSetPeerBandwidth           MessageType = 0x06
	MsgEdgeAndOriginServerCommand MessageType = 0x07
	// 3.1. Command message
	// Command messages carry the AMF-encoded commands between the client
	// and the server. These messages have been assigned message type value
	// of 20 for AMF0 encoding and message type value of 17 for AMF3
	// encoding.
	MsgAMF3Command MessageType = 17 // 0x11
	MsgAMF0Command MessageType = 20 // 0x14
	// 3.2. Data message
	// The client or the server sends this message to send Metadata or any
	// user data to the peer. These messages have been assigned message type
	// value of 18 for AMF0 and message type value of 15 for AMF3.
	MsgAMF0Data MessageType = 18 // 0x12
	MsgAMF3Data MessageType = 15 // 0x0F
	// 3.3. Shared object message
	// The message types kMsgContainer=19 for AMF0 and kMsgContainerEx=16
	// for AMF3 are reserved for shared object events. Each message can
	// contain multiple events.
	MsgAMF3SharedObject MessageType = 16 // 0x10
	MsgAMF0SharedObject MessageType = 19 // 0x13
	// 3.4. Audio message
	MsgAudio MessageType = 8 // 0x08
	// 3.5. Video message
	// These messages are large and can delay the sending of other type of
	// messages. To avoid such a situation, the video message is assigned
	// the lowest priority.
	MsgVideo MessageType = 9 // 0x09
	// 3.6. Aggregate message
	// An aggregate message is a single message that contains a list of submessages.
	MsgAggregate MessageType = 22 // 0x16
)

func (v MessageType) String() string {
	switch v {
	case MsgSetChunkSize:
		return "SetChunkSize"
	case MsgAbort:
		return "Abort"
	case MsgAcknowledgement:
		return "Acknowledgement"
	case MsgUserControl:
		return "UserControl"
	case MsgWindowAcknowledgementSize:
		return "AcknowledgementSize"
	case MsgSetPeerBandwidth:
		return "SetPeerBandwidth"
	case MsgEdgeAndOriginServerCommand:
		return "EdgeOrigin"
	case MsgAMF3Command:
		return "Amf3Command"
	case MsgAMF0Command:
		return "Amf0Command"
	case MsgAMF0Data:
		return "Amf0Data"
	case MsgAMF3Data:
		return "Amf3Data"
	case MsgAMF3SharedObject:
		return "Amf3SharedObject"
	case MsgAMF0SharedObject:
		return "Amf0SharedObject"
	case MsgAudio:
		return "Audio"
	case MsgVideo:
		return "Video"
	case MsgAggregate:
		return "Aggregate"
	default:
		return fmt.Sprintf("Unknown(%v)", uint8(v))
	}
}

func (v MessageType) IsAudio() bool {
	return v == MsgAudio
}

func (v MessageType) IsVideo() bool {
	return v == MsgVideo
}

func (v MessageType) IsCommand() bool {
	return v == MsgAMF0Command || v == MsgAMF3Command
}

func (v MessageType) IsData() bool {
	return v == MsgAMF0Data || v == MsgAMF3Data
}

func (v MessageType) IsSharedObject() bool {
	return v == MsgAMF0SharedObject || v == MsgAMF3SharedObject
}

// Whether the payload is AMF3 encoded.
func (v MessageType) IsAmf3() bool {
	return v == MsgAMF3Command || v == MsgAMF3Data || v == MsgAMF3SharedObject
}

const (
	// the chunk stream id used for some under-layer message,
	// for example, the PC(protocol control) message.
	CidProtocolControl = 0x02 + iota
	// the AMF0/AMF3 command message, invoke method and return the result, over NetConnection.
	// generally use 0x03.
	CidOverConnection
	// the AMF0/AMF3 command message, invoke method and return the result, over NetConnection,
	// the midst state(we guess).
	// rarely used, e.g. onStatus(NetStream.Play.Reset).
	CidOverConnection2
	// the stream message(amf0/amf3), over NetStream.
	// generally use 0x05.
	CidOverStream
	// the stream message(amf0/amf3), over NetStream, the midst state(we guess).
	// rarely used, e.g. play("mp4:mystram.f4v")
	CidOverStream2
	// the stream message(video), over NetStream
	// generally use 0x07.
	CidVideo
	// the stream message(audio), over NetStream.
	// generally use 0x08.
	CidAudio
)

// The message, the unit of RTMP which is carried by chunks.
type Message struct {
	// the absolute timestamp in ms.
	Timestamp uint32
	Type      MessageType
	// the message stream id, 0 for NetConnection.
	StreamID uint32
	// the chunk stream id the message is received from, or to send on.
	ChunkStreamID uint32
	Payload       []byte
}

func NewMessage(t MessageType, streamID, timestamp uint32, payload []byte) *Message {
	return &Message{
		Type:      t,
		StreamID:  streamID,
		Timestamp: timestamp,
		Payload:   payload,
	}
}

func (v *Message) String() string {
	return fmt.Sprintf("%v stream=%v, cid=%v, ts=%v, size=%v",
		v.Type, v.StreamID, v.ChunkStreamID, v.Timestamp, len(v.Payload))
}
