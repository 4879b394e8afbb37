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

package kernel

import (
	ol "github.com/ossrs/go-oryx-lib/logger"
	"math/rand"
	"runtime/debug"
	"sync"
	"time"
)

// the random object to fill bytes, not safe for concurrency so locked.
var random *rand.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
var randomLock sync.Mutex

// randome fill the bytes.
func RandomFill(b []byte) {
	randomLock.Lock()
	defer randomLock.Unlock()

	for i := 0; i < len(b); i++ {
		// the common value in [0x0f, 0xf0]
		b[i] = byte(0x0f + (random.Int() % (0xf0 - 0x0f + 1)))
	}
}

// The random uint32, for example, the client challenge.
func RandomUint32() uint32 {
	randomLock.Lock()
	defer randomLock.Unlock()
	return random.Uint32()
}

// invoke the f with recover.
// the name of goroutine, use empty to ignore.
func Recover(ctx ol.Context, name string, f func() error) {
	if name == "" {
		name = "goroutine"
	}

	defer func() {
		if r := recover(); r != nil {
			ol.W(ctx, name, "abort with", r)
			ol.E(ctx, string(debug.Stack()))
		}
	}()

	if err := f(); err != nil {
		ol.W(ctx, name, "terminated with", err)
	}
}
