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
 This is the sync objects for multiple goroutine to work together.
*/
package kernel

import (
	ol "github.com/ossrs/go-oryx-lib/logger"
	"os"
	"os/signal"
	"sync"
)

// The group of workers, quit all when any worker quit or signaled.
type WorkerGroup struct {
	closing  chan bool
	wait     *sync.WaitGroup
	lock     sync.Mutex
	cleanups []func()
	closed   bool
}

func NewWorkerGroup() *WorkerGroup {
	return &WorkerGroup{
		closing: make(chan bool, 1),
		wait:    &sync.WaitGroup{},
	}
}

// Notify all workers to quit by their cleanups, then wait for them.
func (v *WorkerGroup) Close() error {
	v.lock.Lock()
	if v.closed {
		v.lock.Unlock()
		return nil
	}
	v.closed = true
	cleanups := v.cleanups
	v.lock.Unlock()

	v.quit()

	for _, cleanup := range cleanups {
		cleanup()
	}

	v.wait.Wait()

	return nil
}

// Whether the group is closed, for workers to ignore the error when closing.
func (v *WorkerGroup) Closed() bool {
	v.lock.Lock()
	defer v.lock.Unlock()
	return v.closed
}

func (v *WorkerGroup) QuitForChan(closing chan bool) {
	go func() {
		for range closing {
			v.quit()
		}
	}()
}

func (v *WorkerGroup) QuitForSignals(ctx ol.Context, signals ...os.Signal) {
	go func() {
		ss := make(chan os.Signal, 1)
		signal.Notify(ss, signals...)
		for s := range ss {
			ol.W(ctx, "quit for signal", s)
			v.quit()
		}
	}()
}

// Start a worker, the group quits when the pfn returns,
// the cleanup is called when group closing to notify pfn to return.
func (v *WorkerGroup) ForkGoroutine(pfn func(), cleanup func()) {
	if cleanup == nil {
		panic("should specifies the cleanup.")
	}

	v.lock.Lock()
	v.cleanups = append(v.cleanups, cleanup)
	v.lock.Unlock()

	v.wait.Add(1)
	go func() {
		defer v.wait.Done()
		defer v.quit()

		pfn()
	}()
}

func (v *WorkerGroup) quit() {
	select {
	case v.closing <- true:
	default:
	}
}

// Wait for any worker to quit or any quit event.
func (v *WorkerGroup) Wait() {
	<-v.closing
	v.quit()
}
