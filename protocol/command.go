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
	"github.com/ossrs/go-oryx-rtmp/amf"
)

func objectEncodingOf(t MessageType) amf.ObjectEncoding {
	if t.IsAmf3() {
		return amf.AMF3
	}
	return amf.AMF0
}

// The encoder of AMF payload, for AMF3 message, the payload starts with
// a zero byte, then AMF0 values with AVM+ for complex values.
func newPayloadEncoder(encoding amf.ObjectEncoding) *amf.Encoder {
	e := amf.NewEncoder(amf.AMF0)
	if encoding == amf.AMF3 {
		e.WriteByte(0)
		e.AvmPlus = true
	}
	return e
}

func newPayloadDecoder(encoding amf.ObjectEncoding, data []byte) *amf.Decoder {
	d := amf.NewDecoder(amf.AMF0, data)
	if encoding == amf.AMF3 && len(data) > 0 && data[0] == 0 {
		d.Skip(1)
	}
	return d
}

// The name of commands.
const (
	CommandConnect       = "connect"
	CommandCreateStream  = "createStream"
	CommandCloseStream   = "closeStream"
	CommandDeleteStream  = "deleteStream"
	CommandPlay          = "play"
	CommandPause         = "pause"
	CommandSeek          = "seek"
	CommandPublish       = "publish"
	CommandReceiveAudio  = "receiveAudio"
	CommandReceiveVideo  = "receiveVideo"
	CommandOnStatus      = "onStatus"
	CommandResult        = "_result"
	CommandError         = "_error"
	CommandClose         = "close"
	CommandOnBWDone      = "onBWDone"
	CommandCheckBW       = "_checkbw"
	CommandReleaseStream = "releaseStream"
	CommandFCPublish     = "FCPublish"
	CommandFCUnpublish   = "FCUnpublish"
	CommandOnMetaData    = "onMetaData"
	CommandSetDataFrame  = "@setDataFrame"
)

// 4.1. NetConnection Commands and 4.2. NetStream Commands
// The command is [name, transaction id, command object, args...].
type CommandPacket struct {
	ObjectEncoding amf.ObjectEncoding
	Name           string
	TransactionID  float64
	// the command object, Object or Null.
	CommandObject amf.Value
	// the optional arguments.
	Args []amf.Value
	// the cid to send on, CidOverConnection when zero.
	Cid uint32
}

func NewCommandPacket(name string, tid float64, object amf.Value, args ...amf.Value) *CommandPacket {
	return &CommandPacket{
		Name:          name,
		TransactionID: tid,
		CommandObject: object,
		Args:          args,
	}
}

// The first argument, nil when no argument.
func (v *CommandPacket) Arg0() amf.Value {
	if len(v.Args) == 0 {
		return nil
	}
	return v.Args[0]
}

func (v *CommandPacket) MarshalBinary() (data []byte, err error) {
	e := newPayloadEncoder(v.ObjectEncoding)

	if err = e.Encode(amf.String(v.Name), amf.Number(v.TransactionID)); err != nil {
		return nil, oe.Wrap(err, "name and tid")
	}

	object := v.CommandObject
	if object == nil {
		object = amf.Null{}
	}
	if err = e.Encode(object); err != nil {
		return nil, oe.Wrap(err, "command object")
	}

	if err = e.Encode(v.Args...); err != nil {
		return nil, oe.Wrap(err, "args")
	}

	return e.Bytes(), nil
}

func (v *CommandPacket) UnmarshalBinary(data []byte) (err error) {
	d := newPayloadDecoder(v.ObjectEncoding, data)

	var value amf.Value
	if value, err = d.Decode(); err != nil {
		return oe.Wrap(err, "name")
	}
	if s, ok := value.(amf.String); !ok {
		return oe.Wrapf(ErrPacket, "name %v", value)
	} else {
		v.Name = string(s)
	}

	if value, err = d.Decode(); err != nil {
		return oe.Wrapf(err, "tid of %v", v.Name)
	}
	if n, ok := value.(amf.Number); !ok {
		return oe.Wrapf(ErrPacket, "tid %v of %v", value, v.Name)
	} else {
		v.TransactionID = float64(n)
	}

	// some server omit the command object.
	v.CommandObject = amf.Null{}
	if d.Len() > 0 {
		if v.CommandObject, err = d.Decode(); err != nil {
			return oe.Wrapf(err, "command object of %v", v.Name)
		}
	}

	if v.Args, err = d.DecodeAll(); err != nil {
		return oe.Wrapf(err, "args of %v", v.Name)
	}
	return
}

func (v *CommandPacket) PreferCid() uint32 {
	if v.Cid != 0 {
		return v.Cid
	}
	return CidOverConnection
}

func (v *CommandPacket) MessageType() MessageType {
	if v.ObjectEncoding == amf.AMF3 {
		return MsgAMF3Command
	}
	return MsgAMF0Command
}

// 3.2. Data message
// The data is [handler, args...], for example, onMetaData.
type DataPacket struct {
	ObjectEncoding amf.ObjectEncoding
	Handler        string
	Args           []amf.Value
}

func NewDataPacket(handler string, args ...amf.Value) *DataPacket {
	return &DataPacket{Handler: handler, Args: args}
}

func (v *DataPacket) MarshalBinary() (data []byte, err error) {
	e := newPayloadEncoder(v.ObjectEncoding)

	if err = e.Encode(amf.String(v.Handler)); err != nil {
		return nil, oe.Wrap(err, "handler")
	}
	if err = e.Encode(v.Args...); err != nil {
		return nil, oe.Wrap(err, "args")
	}
	return e.Bytes(), nil
}

func (v *DataPacket) UnmarshalBinary(data []byte) (err error) {
	d := newPayloadDecoder(v.ObjectEncoding, data)

	var value amf.Value
	if value, err = d.Decode(); err != nil {
		return oe.Wrap(err, "handler")
	}
	if s, ok := value.(amf.String); !ok {
		return oe.Wrapf(ErrPacket, "handler %v", value)
	} else {
		v.Handler = string(s)
	}

	if v.Args, err = d.DecodeAll(); err != nil {
		return oe.Wrapf(err, "args of %v", v.Handler)
	}
	return
}

func (v *DataPacket) PreferCid() uint32 {
	return CidOverStream
}

func (v *DataPacket) MessageType() MessageType {
	if v.ObjectEncoding == amf.AMF3 {
		return MsgAMF3Data
	}
	return MsgAMF0Data
}
