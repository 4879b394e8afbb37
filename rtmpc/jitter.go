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

package main

import (
	"fmt"
	ol "github.com/ossrs/go-oryx-lib/logger"
)

// the time jitter algorithm:
// 1. full, to ensure stream start at zero, and ensure stream monotonically increasing.
// 2. zero, only ensure sttream start at zero, ignore timestamp jitter.
// 3. off, disable the time jitter algorithm, like atc.
type JitterAlgorithm uint8

const (
	JitterFull JitterAlgorithm = iota + 1
	JitterZero
	JitterOff
)

// time jitter detect and correct,
// to ensure the stream is monotonically.
type Jitter struct {
	ctx                        ol.Context
	lastPacketTimestamp        int64
	lastPacketCorrectTimestamp int64
}

func NewJitter(ctx ol.Context) *Jitter {
	return &Jitter{
		ctx:                        ctx,
		lastPacketTimestamp:        -1,
		lastPacketCorrectTimestamp: -1,
	}
}

const (
	maxJitterMs     = 250
	maxJitterMsNeg  = -250
	frameIntervalMs = 10
)

func (v *Jitter) Correct(ts uint32, ag JitterAlgorithm) uint32 {
	ctx := v.ctx

	switch ag {
	case JitterOff:
		return ts
	case JitterZero:
		// for the first time, last_pkt_correct_time is -1.
		if v.lastPacketCorrectTimestamp == -1 {
			v.lastPacketCorrectTimestamp = int64(ts)
		}
		return ts - uint32(v.lastPacketCorrectTimestamp)
	}

	/**
	* we use a very simple time jitter detect/correct algorithm:
	* 1. delta: ensure the delta is positive and valid,
	*     we set the delta to DEFAULT_FRAME_TIME_MS,
	*     if the delta of time is nagative or greater than CONST_MAX_JITTER_MS.
	* 2. last_pkt_time: specifies the original packet time,
	*     is used to detect next jitter.
	* 3. last_pkt_correct_time: simply add the positive delta,
	*     and enforce the time monotonically.
	 */
	time := int64(ts)
	delta := time - v.lastPacketTimestamp

	if v.lastPacketCorrectTimestamp == -1 {
		// set to -1+1 is zero.
		delta = 1
	} else if delta < maxJitterMsNeg || delta > maxJitterMs {
		// use default 10ms to notice the problem of stream.
		// @see https://github.com/ossrs/srs/issues/425
		delta = frameIntervalMs

		ol.T(ctx, fmt.Sprintf("jitter, last=%v, pts=%v, diff=%v, lastok=%v, ok=%v, delta=%v",
			v.lastPacketTimestamp, time, time-v.lastPacketTimestamp, v.lastPacketCorrectTimestamp,
			v.lastPacketCorrectTimestamp+delta, delta))
	}

	// correct message, never go back.
	if delta < 0 {
		delta = 0
	}
	v.lastPacketCorrectTimestamp += delta

	// update packet timestamp for next round-trip.
	v.lastPacketTimestamp = time

	return uint32(v.lastPacketCorrectTimestamp)
}
