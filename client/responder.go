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
	"github.com/ossrs/go-oryx-rtmp/protocol"
	"sync"
)

// The responder of a command, which is resolved by the _result or _error
// of the same transaction id, at most once.
type Responder struct {
	// for _result.
	OnResult func(res *protocol.CommandPacket)
	// for _error, optional.
	OnStatus func(res *protocol.CommandPacket)
}

func (v *Responder) resolve(res *protocol.CommandPacket) {
	switch res.Name {
	case protocol.CommandResult:
		if v.OnResult != nil {
			v.OnResult(res)
		}
	case protocol.CommandError:
		if v.OnStatus != nil {
			v.OnStatus(res)
		}
	}
}

// The pending transactions, and the generator of transaction id.
type transactions struct {
	lock       sync.Mutex
	tid        float64
	responders map[float64]*Responder
	// when closed, never register.
	closed bool
}

func newTransactions() *transactions {
	return &transactions{responders: make(map[float64]*Responder)}
}

// Allocate the next transaction id, and register the responder if not nil.
func (v *transactions) next(r *Responder) (tid float64, ok bool) {
	v.lock.Lock()
	defer v.lock.Unlock()

	if v.closed {
		return 0, false
	}

	v.tid++
	if r != nil {
		v.responders[v.tid] = r
	}
	return v.tid, true
}

// Remove and return the responder of tid, nil if not found.
func (v *transactions) take(tid float64) *Responder {
	v.lock.Lock()
	defer v.lock.Unlock()

	r, ok := v.responders[tid]
	if ok {
		delete(v.responders, tid)
	}
	return r
}

func (v *transactions) pending() int {
	v.lock.Lock()
	defer v.lock.Unlock()
	return len(v.responders)
}

// Drop all responders without invoke.
func (v *transactions) clear() {
	v.lock.Lock()
	defer v.lock.Unlock()

	v.closed = true
	v.responders = make(map[float64]*Responder)
}
