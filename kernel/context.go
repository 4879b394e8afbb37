/*
The MIT License (MIT)

Copyright (c) 2016 winlin

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

/*
 This is the context for logger.
*/
package kernel

import (
	"fmt"
	"sync"
)

var globalContextId int = 100

var globalCidGeneratorLock *sync.Mutex = &sync.Mutex{}

// The context for logger, each connection or worker uses a context,
// and the cid is allocated when first used.
type Context struct {
	lock sync.Mutex
	cid  int
}

func NewContext() *Context {
	return &Context{}
}

// Create a context of the cid, for example, to log for an existed connection.
func NewContextWithCid(cid int) *Context {
	return &Context{cid: cid}
}

func (v *Context) Cid() int {
	v.lock.Lock()
	defer v.lock.Unlock()

	if v.cid == 0 {
		globalCidGeneratorLock.Lock()
		defer globalCidGeneratorLock.Unlock()

		v.cid = globalContextId
		globalContextId++
	}
	return v.cid
}

func (v *Context) String() string {
	return fmt.Sprintf("cid=%v", v.Cid())
}
