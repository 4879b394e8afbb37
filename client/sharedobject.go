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
	oe "github.com/ossrs/go-oryx-lib/errors"
	ol "github.com/ossrs/go-oryx-lib/logger"
	"github.com/ossrs/go-oryx-rtmp/amf"
	"github.com/ossrs/go-oryx-rtmp/protocol"
	"sync"
)

// The code of shared object change.
const (
	SoChangeCode  = "change"
	SoSuccessCode = "success"
	SoRejectCode  = "reject"
	SoClearCode   = "clear"
	SoDeleteCode  = "delete"
)

// The change of shared object, notified by sync.
type SharedObjectChange struct {
	Code string
	// empty for clear.
	Name string
	// the value before change, reject or delete, nil if none.
	OldValue amf.Value
}

func (v *SharedObjectChange) String() string {
	return fmt.Sprintf("%v name=%v, old=%v", v.Code, v.Name, v.OldValue)
}

// The listener of sync, called in receive goroutine.
type SyncListener func(changes []*SharedObjectChange)

// The remote shared object, whose data is synchronized by server.
type RemoteSharedObject struct {
	conn       *Conn
	name       string
	persistent bool

	lock sync.Mutex
	data *amf.Object
	// the version of server, and whether the use is success.
	version   uint32
	succeeded bool
	// whether user connects to it.
	using  bool
	onSync SyncListener
}

// Get the shared object of name, create it if not exists.
func (v *Conn) SharedObject(name string, persistent bool) *RemoteSharedObject {
	key := sharedObjectKey(name, persistent)

	so := &RemoteSharedObject{conn: v, name: name, persistent: persistent, data: amf.NewObject()}
	if !v.sharedObjects.SetIfAbsent(key, so) {
		if o, ok := v.sharedObjects.Get(key); ok {
			return o.(*RemoteSharedObject)
		}
	}
	return so
}

func sharedObjectKey(name string, persistent bool) string {
	return fmt.Sprintf("%v?persistent=%v", name, persistent)
}

func (v *Conn) onSharedObject(p *protocol.SharedObjectPacket) {
	o, ok := v.sharedObjects.Get(sharedObjectKey(p.Name, p.Persistent()))
	if !ok {
		ol.W(v.ctx, "ignore shared object", p.Name, "persistent", p.Persistent())
		return
	}
	o.(*RemoteSharedObject).onMessage(p)
}

func (v *RemoteSharedObject) Name() string {
	return v.name
}

func (v *RemoteSharedObject) Persistent() bool {
	return v.persistent
}

func (v *RemoteSharedObject) Version() uint32 {
	v.lock.Lock()
	defer v.lock.Unlock()
	return v.version
}

// Whether server responds the use.
func (v *RemoteSharedObject) Succeeded() bool {
	v.lock.Lock()
	defer v.lock.Unlock()
	return v.succeeded
}

// The snapshot of data.
func (v *RemoteSharedObject) Data() map[string]amf.Value {
	v.lock.Lock()
	defer v.lock.Unlock()

	data := make(map[string]amf.Value)
	v.data.Range(func(key string, value amf.Value) bool {
		data[key] = value
		return true
	})
	return data
}

// The value of property, nil if not exists.
func (v *RemoteSharedObject) Get(name string) amf.Value {
	v.lock.Lock()
	defer v.lock.Unlock()
	return v.data.Get(name)
}

func (v *RemoteSharedObject) OnSync(l SyncListener) {
	v.lock.Lock()
	defer v.lock.Unlock()
	v.onSync = l
}

// Connect to the shared object of server, the use is sent now
// if connection is connected, or after connected.
func (v *RemoteSharedObject) Connect() error {
	v.lock.Lock()
	v.using = true
	v.lock.Unlock()

	if !v.conn.Connected() {
		return nil
	}
	return v.use()
}

func (v *RemoteSharedObject) use() error {
	v.lock.Lock()
	if !v.using {
		v.lock.Unlock()
		return nil
	}
	v.succeeded = false
	p := v.packet(&protocol.SharedObjectEvent{Type: protocol.SoUse})
	v.lock.Unlock()

	return v.send(p)
}

// Update the property, send to server when use is success.
func (v *RemoteSharedObject) SetProperty(name string, value amf.Value) error {
	if value == nil {
		value = amf.Null{}
	}

	v.lock.Lock()
	v.data.Set(name, value)
	if !v.succeeded {
		v.lock.Unlock()
		return nil
	}
	p := v.packet(&protocol.SharedObjectEvent{Type: protocol.SoRequestChange, Name: name, Data: value})
	v.lock.Unlock()

	return v.send(p)
}

// Remove the property, send to server when use is success.
func (v *RemoteSharedObject) Remove(name string) error {
	v.lock.Lock()
	v.data.Delete(name)
	if !v.succeeded {
		v.lock.Unlock()
		return nil
	}
	p := v.packet(&protocol.SharedObjectEvent{Type: protocol.SoRequestRemove, Name: name})
	v.lock.Unlock()

	return v.send(p)
}

// Purge all data.
func (v *RemoteSharedObject) Clear() error {
	v.lock.Lock()
	v.data = amf.NewObject()
	using := v.using
	p := v.packet(&protocol.SharedObjectEvent{Type: protocol.SoClear})
	v.lock.Unlock()

	if !using || !v.conn.Connected() {
		return nil
	}
	return v.send(p)
}

// Release the shared object, and remove it from connection.
func (v *RemoteSharedObject) Close() error {
	v.lock.Lock()
	using := v.using
	v.using, v.succeeded = false, false
	v.data = amf.NewObject()
	p := v.packet(&protocol.SharedObjectEvent{Type: protocol.SoRelease})
	v.lock.Unlock()

	v.conn.sharedObjects.Remove(sharedObjectKey(v.name, v.persistent))

	if !using || !v.conn.Connected() {
		return nil
	}
	return v.send(p)
}

func (v *RemoteSharedObject) String() string {
	return fmt.Sprintf("so %v, persistent=%v, version=%v", v.name, v.persistent, v.Version())
}

// Build the packet in lock, the version is 0 after use is success.
func (v *RemoteSharedObject) packet(events ...*protocol.SharedObjectEvent) *protocol.SharedObjectPacket {
	p := &protocol.SharedObjectPacket{
		ObjectEncoding: v.conn.ObjectEncoding(),
		Name:           v.name,
		Events:         events,
	}
	if !v.succeeded {
		p.Version = v.version
	}
	v.version++

	if v.persistent {
		p.Flags[3] = protocol.SoFlagPersistent
	}
	return p
}

func (v *RemoteSharedObject) send(p *protocol.SharedObjectPacket) error {
	if err := v.conn.sendPacket(p, 0, 0); err != nil {
		return oe.Wrapf(err, "so %v", v.name)
	}
	return nil
}

func (v *RemoteSharedObject) onMessage(p *protocol.SharedObjectPacket) {
	ctx := v.conn.ctx

	var changes []*SharedObjectChange
	var resend []*protocol.SharedObjectEvent

	v.lock.Lock()
	v.version = p.Version
	for _, e := range p.Events {
		switch e.Type {
		case protocol.SoChange:
			old := v.data.Get(e.Name)
			v.data.Set(e.Name, e.Data)
			changes = append(changes, &SharedObjectChange{Code: SoChangeCode, Name: e.Name, OldValue: old})
		case protocol.SoSuccess:
			changes = append(changes, &SharedObjectChange{Code: SoSuccessCode, Name: e.Name})
		case protocol.SoStatus:
			old := v.data.Get(e.Name)
			v.data.Delete(e.Name)
			changes = append(changes, &SharedObjectChange{Code: SoRejectCode, Name: e.Name, OldValue: old})
		case protocol.SoClear:
			v.data = amf.NewObject()
			changes = append(changes, &SharedObjectChange{Code: SoClearCode})
		case protocol.SoRemove:
			old := v.data.Get(e.Name)
			v.data.Delete(e.Name)
			changes = append(changes, &SharedObjectChange{Code: SoDeleteCode, Name: e.Name, OldValue: old})
		case protocol.SoUseSuccess:
			v.succeeded = true
			// sync the local properties to server.
			v.data.Range(func(key string, value amf.Value) bool {
				resend = append(resend, &protocol.SharedObjectEvent{
					Type: protocol.SoRequestChange, Name: key, Data: value,
				})
				return true
			})
		default:
			ol.T(ctx, "so", v.name, "ignore event", e)
		}
	}
	listener := v.onSync

	var r *protocol.SharedObjectPacket
	if len(resend) > 0 {
		r = v.packet(resend...)
	}
	v.lock.Unlock()

	if r != nil {
		if err := v.send(r); err != nil {
			ol.W(ctx, "so", v.name, "sync failed, err is", err)
		}
	}

	if listener != nil && len(changes) > 0 {
		listener(changes)
	}
}

// The connection is closed, the use must be sent again.
func (v *RemoteSharedObject) onClosed() {
	v.lock.Lock()
	defer v.lock.Unlock()
	v.succeeded = false
}
