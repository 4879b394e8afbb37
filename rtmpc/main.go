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
 This the main entrance of rtmpc, the rtmp client to play or publish.
*/
package main

import (
	"context"
	"fmt"
	oa "github.com/ossrs/go-oryx-lib/asprocess"
	oe "github.com/ossrs/go-oryx-lib/errors"
	oh "github.com/ossrs/go-oryx-lib/http"
	"github.com/ossrs/go-oryx-lib/kxps"
	ol "github.com/ossrs/go-oryx-lib/logger"
	oo "github.com/ossrs/go-oryx-lib/options"
	"github.com/ossrs/go-oryx-rtmp/client"
	"github.com/ossrs/go-oryx-rtmp/kernel"
	"github.com/ossrs/go-oryx-rtmp/protocol"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"
)

var signature = fmt.Sprintf("RTMPC/%v", kernel.Version())

// The source of kbps, by the bytes of connection.
type bytesSource func() uint64

func (v bytesSource) TotalBytes() uint64 {
	return v()
}

// The summary for api.
type summary struct {
	*client.Summary
	Kbps struct {
		Recv10s float64 `json:"recv_10s"`
		Send10s float64 `json:"send_10s"`
		Recv30s float64 `json:"recv_30s"`
		Send30s float64 `json:"send_30s"`
	} `json:"kbps"`
}

func main() {
	confFile := oo.ParseArgv("../conf/rtmpc.json", kernel.Version(), signature)
	fmt.Println("RTMPC is the rtmp client to play or publish, config is", confFile)

	conf := &RtmpcConfig{}
	if err := conf.Loads(confFile); err != nil {
		ol.E(nil, "Loads config failed, err is", err)
		return
	}
	defer conf.Close()

	ctx := kernel.NewContext()
	ol.T(ctx, fmt.Sprintf("Config ok, %v", conf))

	if err := run(ctx, conf); err != nil {
		ol.E(ctx, "run failed, err is", err)
		return
	}

	ol.T(ctx, "run ok")
}

func run(ctx *kernel.Context, conf *RtmpcConfig) (err error) {
	// rtmpc is a asprocess of shell.
	asq := make(chan bool, 1)
	oa.WatchNoExit(ctx, oa.Interval, asq)

	var tcUrl, stream string
	if tcUrl, stream, err = protocol.SplitStream(conf.Rtmp.Url); err != nil {
		return
	}

	opts := client.NewOptions()
	opts.ObjectEncoding = conf.ObjectEncoding()
	if conf.Rtmp.ChunkSize > 0 {
		opts.ChunkSize = conf.Rtmp.ChunkSize
	}
	opts.OnStatus = func(s *client.Status) {
		ol.T(ctx, "connection status", s)
	}

	var c *client.Conn
	if c, err = client.Dial(context.Background(), tcUrl, opts); err != nil {
		return oe.Wrapf(err, "dial %v", tcUrl)
	}
	defer c.Close()

	recv := kxps.NewKbps(ctx, bytesSource(c.InBytes))
	send := kxps.NewKbps(ctx, bytesSource(c.OutBytes))
	for _, k := range []kxps.Kbps{recv, send} {
		if err = k.Start(); err != nil {
			return oe.Wrap(err, "start kbps")
		}
		defer k.Close()
	}

	wg := kernel.NewWorkerGroup()
	defer ol.T(ctx, "serve ok")
	defer wg.Close()

	wg.QuitForChan(asq)
	wg.QuitForSignals(ctx, syscall.SIGINT, syscall.SIGTERM)

	// play or publish, quit when stream done.
	wg.ForkGoroutine(func() {
		var err error
		if conf.Rtmp.Mode == ModePublish {
			err = publish(ctx, c, stream, conf)
		} else {
			err = play(ctx, c, stream, conf)
		}

		if err != nil && !wg.Closed() {
			ol.E(ctx, conf.Rtmp.Mode, "failed, err is", err)
		}
	}, func() {
		c.Close()
	})

	// print the kbps.
	closing := make(chan bool)
	wg.ForkGoroutine(func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-closing:
				return
			case <-ticker.C:
				ol.T(ctx, fmt.Sprintf("kbps recv=%.1f send=%.1f, %v", recv.Kbps10s(), send.Kbps10s(), c))
			}
		}
	}, func() {
		close(closing)
	})

	if d := conf.Rtmp.Duration; d > 0 {
		timeout := make(chan bool)
		wg.ForkGoroutine(func() {
			select {
			case <-timeout:
			case <-time.After(time.Duration(d) * time.Second):
				ol.T(ctx, "quit for duration", d, "seconds")
			}
		}, func() {
			close(timeout)
		})
	}

	if conf.Api != "" {
		var l net.Listener
		apiAddr := strings.TrimPrefix(conf.Api, "tcp://")
		if l, err = net.Listen("tcp", apiAddr); err != nil {
			return oe.Wrapf(err, "listen %v", conf.Api)
		}
		defer l.Close()

		oh.Server = signature
		handler := http.NewServeMux()

		ol.T(ctx, fmt.Sprintf("handle http://%v/api/v1/version", apiAddr))
		handler.HandleFunc("/api/v1/version", func(w http.ResponseWriter, r *http.Request) {
			oh.WriteVersion(w, r, kernel.Version())
		})

		ol.T(ctx, fmt.Sprintf("handle http://%v/api/v1/summaries", apiAddr))
		handler.HandleFunc("/api/v1/summaries", func(w http.ResponseWriter, r *http.Request) {
			s := &summary{Summary: c.Summary()}
			s.Kbps.Recv10s, s.Kbps.Send10s = recv.Kbps10s(), send.Kbps10s()
			s.Kbps.Recv30s, s.Kbps.Send30s = recv.Kbps30s(), send.Kbps30s()
			oh.WriteData(kernel.NewContext(), w, r, s)
		})

		wg.ForkGoroutine(func() {
			ol.T(ctx, "api handler ready")
			defer ol.T(ctx, "api handler ok")

			server := &http.Server{Addr: apiAddr, Handler: handler}
			if err := server.Serve(l); err != nil && !wg.Closed() {
				ol.E(ctx, "api serve failed, err is", err)
			}
		}, func() {
			l.Close()
		})
	}

	wg.Wait()
	return
}
