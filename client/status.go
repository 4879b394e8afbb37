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
	"fmt"
	"github.com/ossrs/go-oryx-rtmp/amf"
	"github.com/ossrs/go-oryx-rtmp/protocol"
)

// The level of status.
const (
	LevelStatus  = "status"
	LevelError   = "error"
	LevelWarning = "warning"
)

// The NetStatusEvent info.code of NetConnection.
const (
	NetConnectionCallBadVersion       = "NetConnection.Call.BadVersion"
	NetConnectionCallFailed           = "NetConnection.Call.Failed"
	NetConnectionCallProhibited       = "NetConnection.Call.Prohibited"
	NetConnectionConnectAppShutdown   = "NetConnection.Connect.AppShutdown"
	NetConnectionConnectClosed        = "NetConnection.Connect.Closed"
	NetConnectionConnectFailed        = "NetConnection.Connect.Failed"
	NetConnectionConnectIdleTimeOut   = "NetConnection.Connect.IdleTimeOut"
	NetConnectionConnectInvalidApp    = "NetConnection.Connect.InvalidApp"
	NetConnectionConnectNetworkChange = "NetConnection.Connect.NetworkChange"
	NetConnectionConnectRejected      = "NetConnection.Connect.Rejected"
	NetConnectionConnectSuccess       = "NetConnection.Connect.Success"
)

// The NetStatusEvent info.code of NetStream.
const (
	NetStreamBufferEmpty        = "NetStream.Buffer.Empty"
	NetStreamBufferFlush        = "NetStream.Buffer.Flush"
	NetStreamBufferFull         = "NetStream.Buffer.Full"
	NetStreamConnectClosed      = "NetStream.Connect.Closed"
	NetStreamConnectFailed      = "NetStream.Connect.Failed"
	NetStreamConnectRejected    = "NetStream.Connect.Rejected"
	NetStreamConnectSuccess     = "NetStream.Connect.Success"
	NetStreamFailed             = "NetStream.Failed"
	NetStreamPauseNotify        = "NetStream.Pause.Notify"
	NetStreamPlayFailed         = "NetStream.Play.Failed"
	NetStreamPlayReset          = "NetStream.Play.Reset"
	NetStreamPlayStart          = "NetStream.Play.Start"
	NetStreamPlayStop           = "NetStream.Play.Stop"
	NetStreamPlayStreamNotFound = "NetStream.Play.StreamNotFound"
	NetStreamPublishBadName     = "NetStream.Publish.BadName"
	NetStreamPublishIdle        = "NetStream.Publish.Idle"
	NetStreamPublishStart       = "NetStream.Publish.Start"
	NetStreamRecordStart        = "NetStream.Record.Start"
	NetStreamRecordStop         = "NetStream.Record.Stop"
	NetStreamSeekFailed         = "NetStream.Seek.Failed"
	NetStreamSeekNotify         = "NetStream.Seek.Notify"
	NetStreamUnpauseNotify      = "NetStream.Unpause.Notify"
	NetStreamUnpublishSuccess   = "NetStream.Unpublish.Success"
)

var levels = map[string]string{
	NetConnectionCallBadVersion:       LevelError,
	NetConnectionCallFailed:           LevelError,
	NetConnectionCallProhibited:       LevelError,
	NetConnectionConnectAppShutdown:   LevelStatus,
	NetConnectionConnectClosed:        LevelStatus,
	NetConnectionConnectFailed:        LevelError,
	NetConnectionConnectIdleTimeOut:   LevelStatus,
	NetConnectionConnectInvalidApp:    LevelError,
	NetConnectionConnectNetworkChange: LevelStatus,
	NetConnectionConnectRejected:      LevelStatus,
	NetConnectionConnectSuccess:       LevelStatus,

	NetStreamBufferEmpty:        LevelStatus,
	NetStreamBufferFlush:        LevelStatus,
	NetStreamBufferFull:         LevelStatus,
	NetStreamConnectClosed:      LevelStatus,
	NetStreamConnectFailed:      LevelError,
	NetStreamConnectRejected:    LevelError,
	NetStreamConnectSuccess:     LevelStatus,
	NetStreamFailed:             LevelError,
	NetStreamPauseNotify:        LevelStatus,
	NetStreamPlayFailed:         LevelError,
	NetStreamPlayReset:          LevelStatus,
	NetStreamPlayStart:          LevelStatus,
	NetStreamPlayStop:           LevelStatus,
	NetStreamPlayStreamNotFound: LevelError,
	NetStreamPublishBadName:     LevelError,
	NetStreamPublishIdle:        LevelStatus,
	NetStreamPublishStart:       LevelStatus,
	NetStreamRecordStart:        LevelStatus,
	NetStreamRecordStop:         LevelStatus,
	NetStreamSeekFailed:         LevelError,
	NetStreamSeekNotify:         LevelStatus,
	NetStreamUnpauseNotify:      LevelStatus,
	NetStreamUnpublishSuccess:   LevelStatus,
}

// The level of the code, empty for unknown code.
func LevelOf(code string) string {
	return levels[code]
}

// The status event, the info object of onStatus, _result or _error.
type Status struct {
	Code        string
	Level       string
	Description string
	// the raw info object, nil for local status.
	Info *amf.Object
}

// Create a local status, for example, the connection is closed.
func NewStatus(code, description string) *Status {
	return &Status{Code: code, Level: LevelOf(code), Description: description}
}

// Parse the status from the info object, nil if not object.
func StatusFromValue(v amf.Value) *Status {
	var info *amf.Object
	switch v := v.(type) {
	case *amf.Object:
		info = v
	case *amf.EcmaArray:
		// some server responses ecma array.
		info = amf.NewObject()
		v.Range(func(key string, value amf.Value) bool {
			info.Set(key, value)
			return true
		})
	default:
		return nil
	}

	s := &Status{Info: info}
	s.Code, _ = info.GetString("code")
	s.Level, _ = info.GetString("level")
	s.Description, _ = info.GetString("description")
	return s
}

// Parse the status from the first argument of command.
func StatusFromCommand(cmd *protocol.CommandPacket) *Status {
	if s := StatusFromValue(cmd.Arg0()); s != nil {
		return s
	}
	return &Status{Code: cmd.Name, Level: LevelError}
}

func (v *Status) IsError() bool {
	return v.Level == LevelError
}

func (v *Status) String() string {
	if v.Description == "" {
		return fmt.Sprintf("%v(%v)", v.Code, v.Level)
	}
	return fmt.Sprintf("%v(%v) %v", v.Code, v.Level, v.Description)
}

// The listener for status events.
type StatusListener func(s *Status)
