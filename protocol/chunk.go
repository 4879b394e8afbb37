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
	"sync/atomic"
)

// 6.1. Chunk Format
// Extended timestamp: 0 or 4 bytes
// This field MUST be sent when the normal timsestamp is set to
// 0xffffff, it MUST NOT be sent if the normal timestamp is set to
// anything else.
const ExtendedTimestamp = 0xffffff

const (
	// 6. Chunking, RTMP protocol default chunk size.
	DefaultChunkSize = 128
	// the chunk size in [MinChunkSize, MaxChunkSize] is normal, or warn it.
	MinChunkSize = 128
	MaxChunkSize = 65536
	// the chunk size the client sets after connected.
	ClientChunkSize = 16 * 1024
)

const (
	// 6.1.1. Chunk Basic Header
	// The protocol supports up to 65597 streams with IDs 3-65599.
	MinChunkStreamID = 2
	MaxChunkStreamID = 65599
	// the message length is 3 bytes.
	MaxMessageLength = 0xffffff
)

// The message header size, index by fmt.
var mhSizes = [4]int{11, 7, 3, 0}

// 6.1.1. Chunk Basic Header
// Chunk stream IDs 2-63 can be encoded in the 1-byte version of this field.
// Chunk stream IDs 64-319 can be encoded in the 2-byte version of this
// field. ID is computed as (the second byte + 64).
// Chunk stream IDs 64-65599 can be encoded in the 3-byte version of this
// field. ID is computed as ((the third byte)*256 + the second byte + 64).
func EncodeBasicHeader(format uint8, cid uint32) ([]byte, error) {
	if format > FmtType3 {
		return nil, oe.Wrapf(ErrBasicHeader, "fmt %v", format)
	}

	switch {
	case cid < MinChunkStreamID:
		return nil, oe.Wrapf(ErrBasicHeader, "cid %v", cid)
	case cid < 64:
		return []byte{format<<6 | byte(cid)}, nil
	case cid < 320:
		return []byte{format << 6, byte(cid - 64)}, nil
	case cid <= MaxChunkStreamID:
		n := cid - 64
		return []byte{format<<6 | 0x01, byte(n), byte(n >> 8)}, nil
	}
	return nil, oe.Wrapf(ErrBasicHeader, "cid %v", cid)
}

// Decode the basic header, n is zero when need more bytes.
func DecodeBasicHeader(p []byte) (format uint8, cid uint32, n int) {
	if len(p) < 1 {
		return
	}

	format = (p[0] >> 6) & 0x03
	cid = uint32(p[0] & 0x3f)

	// 2-63, 1B chunk header
	if cid > 1 {
		return format, cid, 1
	}

	// 64-319, 2B chunk header
	if cid == 0 {
		if len(p) < 2 {
			return 0, 0, 0
		}
		return format, 64 + uint32(p[1]), 2
	}

	// 64-65599, 3B chunk header
	if len(p) < 3 {
		return 0, 0, 0
	}
	return format, 64 + uint32(p[1]) + uint32(p[2])<<8, 3
}

func readUint24(p []byte) uint32 {
	return uint32(p[0])<<16 | uint32(p[1])<<8 | uint32(p[2])
}

func putUint24(p []byte, v uint32) {
	p[0], p[1], p[2] = byte(v>>16), byte(v>>8), byte(v)
}

// incoming chunk stream maybe interlaced,
// use the chunk stream to cache the input RTMP chunk streams.
type chunkStream struct {
	// the fmt of the last basic header.
	fmt uint8
	// the calculated timestamp.
	timestamp uint32
	// the timestamp delta of fmt 1/2.
	delta uint32
	// whether the last message header has extended timestamp,
	// and the raw value of it.
	hasExtendedTimestamp bool
	extendedTimestamp    uint32
	// the message header.
	payloadLength uint32
	messageType   MessageType
	streamID      uint32
	// the message under construction, nil when no fragment.
	partial *Message
}

// The chunk decoder, reassembles the chunks to messages.
// It never does IO, the bytes are fed by caller who keeps the unconsumed bytes.
type ChunkDecoder struct {
	chunkSize uint32
	// key is the cid.
	streams map[uint32]*chunkStream
}

func NewChunkDecoder() *ChunkDecoder {
	return &ChunkDecoder{
		chunkSize: DefaultChunkSize,
		streams:   make(map[uint32]*chunkStream),
	}
}

// The chunk size is safe to read by other goroutines.
func (v *ChunkDecoder) ChunkSize() uint32 {
	return atomic.LoadUint32(&v.chunkSize)
}

func (v *ChunkDecoder) SetChunkSize(n uint32) {
	if n > 0 {
		atomic.StoreUint32(&v.chunkSize, n)
	}
}

// Drop the partial message of the chunk stream, for the abort message.
func (v *ChunkDecoder) Abort(cid uint32) bool {
	if cs, ok := v.streams[cid]; ok && cs.partial != nil {
		cs.partial = nil
		return true
	}
	return false
}

// The message stream id bound to the chunk stream by fmt 0.
func (v *ChunkDecoder) StreamID(cid uint32) (uint32, bool) {
	if cs, ok := v.streams[cid]; ok {
		return cs.streamID, true
	}
	return 0, false
}

// Decode a chunk from p, return the consumed bytes and the message when completed.
// When p is not a whole chunk, return n=0 without error and the caller should
// retry with more bytes.
func (v *ChunkDecoder) Decode(p []byte) (n int, m *Message, err error) {
	format, cid, pos := DecodeBasicHeader(p)
	if pos == 0 {
		return
	}

	cs, ok := v.streams[cid]

	// the first chunk of a chunk stream must be fmt 0,
	// but librtmp sends cid 2 with fmt 1 for the first packet.
	if !ok && format != FmtType0 {
		if format == FmtType3 {
			return 0, nil, oe.Wrapf(ErrChunkNoFragment, "cid=%v", cid)
		}
		if cid != CidProtocolControl || format != FmtType1 {
			return 0, nil, oe.Wrapf(ErrChunkNoBinding, "cid=%v, fmt=%v", cid, format)
		}
	}
	if ok && format == FmtType3 && cs.partial == nil {
		return 0, nil, oe.Wrapf(ErrChunkNoFragment, "cid=%v", cid)
	}
	if ok && format != FmtType3 && cs.partial != nil {
		return 0, nil, oe.Wrapf(ErrChunkPartial, "cid=%v, fmt=%v, got %v/%v",
			cid, format, len(cs.partial.Payload), cs.payloadLength)
	}

	mh := mhSizes[format]
	if len(p) < pos+mh {
		return
	}

	// parse the message header to local, commit it when the chunk is complete.
	h := chunkStream{}
	if ok {
		h = *cs
	}
	h.fmt = format

	if format <= FmtType2 {
		b := p[pos : pos+mh]
		ts := readUint24(b)
		if format <= FmtType1 {
			h.payloadLength = readUint24(b[3:])
			h.messageType = MessageType(b[6])
		}
		if format == FmtType0 {
			h.streamID = binary.LittleEndian.Uint32(b[7:])
		}
		pos += mh

		if h.hasExtendedTimestamp = ts >= ExtendedTimestamp; h.hasExtendedTimestamp {
			if len(p) < pos+4 {
				return 0, nil, nil
			}
			ts = binary.BigEndian.Uint32(p[pos:])
			h.extendedTimestamp = ts
			pos += 4
		}

		// 6.1.2.1. Type 0, the absolute timestamp.
		// 6.1.2.2. Type 1 and 6.1.2.3. Type 2, the timestamp delta.
		if format == FmtType0 {
			h.timestamp, h.delta = ts, 0
		} else {
			h.timestamp, h.delta = h.timestamp+ts, ts
		}
	} else if h.hasExtendedTimestamp {
		// Adobe and FMLE send the extended timestamp in fmt 3 chunks, while
		// some encoders not, so peek the 4 bytes and consume when matched.
		if len(p) < pos+4 {
			return 0, nil, nil
		}
		if binary.BigEndian.Uint32(p[pos:]) == h.extendedTimestamp {
			pos += 4
		}
	}

	// the payload of this chunk.
	var got uint32
	if h.partial != nil {
		got = uint32(len(h.partial.Payload))
	}
	size := h.payloadLength - got
	if chunkSize := v.ChunkSize(); size > chunkSize {
		size = chunkSize
	}
	if len(p) < pos+int(size) {
		return 0, nil, nil
	}

	// the whole chunk is ok, commit the header.
	if h.partial == nil {
		h.partial = &Message{
			Timestamp:     h.timestamp,
			Type:          h.messageType,
			StreamID:      h.streamID,
			ChunkStreamID: cid,
			Payload:       make([]byte, 0, int(h.payloadLength)),
		}
	}
	h.partial.Payload = append(h.partial.Payload, p[pos:pos+int(size)]...)
	pos += int(size)

	if uint32(len(h.partial.Payload)) == h.payloadLength {
		m, h.partial = h.partial, nil
	}

	if cs == nil {
		cs = &chunkStream{}
		v.streams[cid] = cs
	}
	*cs = h

	return pos, m, nil
}

// the last message header sent on the chunk stream.
type outChunkStream struct {
	timestamp     uint32
	payloadLength uint32
	messageType   MessageType
	streamID      uint32
}

// The chunk encoder, splits the message to chunks.
type ChunkEncoder struct {
	chunkSize uint32
	// key is the cid.
	streams map[uint32]*outChunkStream
}

func NewChunkEncoder() *ChunkEncoder {
	return &ChunkEncoder{
		chunkSize: DefaultChunkSize,
		streams:   make(map[uint32]*outChunkStream),
	}
}

func (v *ChunkEncoder) ChunkSize() uint32 {
	return v.chunkSize
}

func (v *ChunkEncoder) SetChunkSize(n uint32) {
	if n > 0 {
		v.chunkSize = n
	}
}

// Encode the message to chunks on its ChunkStreamID, the iovs refer to the payload
// of message, so never modify the payload before the iovs are written.
// The fmt 0 is used for the first message of chunk stream, when the stream id
// changes, when the timestamp goes backward or is extended; otherwise fmt 2
// when length and type are not changed, or fmt 1.
func (v *ChunkEncoder) Encode(m *Message) (iovs [][]byte, err error) {
	cid := m.ChunkStreamID
	if cid < MinChunkStreamID || cid > MaxChunkStreamID {
		return nil, oe.Wrapf(ErrBasicHeader, "cid %v", cid)
	}
	if len(m.Payload) > MaxMessageLength {
		return nil, oe.Wrapf(ErrMessageTooLarge, "payload %v", len(m.Payload))
	}
	length := uint32(len(m.Payload))

	format := uint8(FmtType0)
	var delta uint32
	prev, ok := v.streams[cid]
	if ok && prev.streamID == m.StreamID && m.Timestamp >= prev.timestamp && m.Timestamp < ExtendedTimestamp {
		delta = m.Timestamp - prev.timestamp
		if prev.payloadLength == length && prev.messageType == m.Type {
			format = FmtType2
		} else {
			format = FmtType1
		}
	}

	var c0 []byte
	if c0, err = EncodeBasicHeader(format, cid); err != nil {
		return
	}

	extended := format == FmtType0 && m.Timestamp >= ExtendedTimestamp
	header := make([]byte, len(c0), len(c0)+mhSizes[format]+4)
	copy(header, c0)

	mh := make([]byte, mhSizes[format])
	switch format {
	case FmtType0:
		if extended {
			putUint24(mh, ExtendedTimestamp)
		} else {
			putUint24(mh, m.Timestamp)
		}
		putUint24(mh[3:], length)
		mh[6] = byte(m.Type)
		binary.LittleEndian.PutUint32(mh[7:], m.StreamID)
	case FmtType1:
		putUint24(mh, delta)
		putUint24(mh[3:], length)
		mh[6] = byte(m.Type)
	case FmtType2:
		putUint24(mh, delta)
	}
	header = append(header, mh...)

	var ext []byte
	if extended {
		ext = make([]byte, 4)
		binary.BigEndian.PutUint32(ext, m.Timestamp)
		header = append(header, ext...)
	}

	// the continuation header, with extended timestamp when the first has it.
	var c3 []byte
	if c3, err = EncodeBasicHeader(FmtType3, cid); err != nil {
		return
	}
	c3 = append(c3, ext...)

	iovs = append(iovs, header)
	for p := m.Payload; ; {
		size := len(p)
		if size > int(v.chunkSize) {
			size = int(v.chunkSize)
		}
		if size > 0 {
			iovs = append(iovs, p[:size])
		}
		if p = p[size:]; len(p) == 0 {
			break
		}
		iovs = append(iovs, c3)
	}

	if !ok {
		prev = &outChunkStream{}
		v.streams[cid] = prev
	}
	prev.timestamp, prev.payloadLength = m.Timestamp, length
	prev.messageType, prev.streamID = m.Type, m.StreamID

	return
}
