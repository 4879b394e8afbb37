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
	"encoding/json"
	"fmt"
	oe "github.com/ossrs/go-oryx-lib/errors"
	oj "github.com/ossrs/go-oryx-lib/json"
	"github.com/ossrs/go-oryx-rtmp/amf"
	"github.com/ossrs/go-oryx-rtmp/kernel"
	"gopkg.in/yaml.v3"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	ModePlay    = "play"
	ModePublish = "publish"
)

// The config object for rtmpc.
type RtmpcConfig struct {
	kernel.Config `yaml:",inline"`
	// the http api, for example, tcp://127.0.0.1:19853, empty to disable.
	Api  string `json:"api" yaml:"api"`
	Rtmp struct {
		// the stream url, for example, rtmp://127.0.0.1/live/livestream
		Url  string `json:"url" yaml:"url"`
		Mode string `json:"mode" yaml:"mode"`
		// the flv file to publish, or to record when play, optional for play.
		Flv string `json:"flv" yaml:"flv"`
		// whether use AMF3 object encoding.
		Amf3      bool   `json:"amf3" yaml:"amf3"`
		ChunkSize uint32 `json:"chunk_size" yaml:"chunk_size"`
		// the seconds to run, 0 to run until stream end.
		Duration int `json:"duration" yaml:"duration"`
		// whether loop the flv file when publish.
		Loop bool `json:"loop" yaml:"loop"`
	} `json:"rtmp" yaml:"rtmp"`
}

func (v *RtmpcConfig) String() string {
	r := &v.Rtmp
	return fmt.Sprintf("%v, api=%v, rtmp(url=%v,mode=%v,flv=%v,encoding=%v,chunk=%v,duration=%v,loop=%v)",
		&v.Config, v.Api, r.Url, r.Mode, r.Flv, v.ObjectEncoding(), r.ChunkSize, r.Duration, r.Loop)
}

func (v *RtmpcConfig) ObjectEncoding() amf.ObjectEncoding {
	if v.Rtmp.Amf3 {
		return amf.AMF3
	}
	return amf.AMF0
}

// Load the config from the json+ or yaml file.
func (v *RtmpcConfig) Loads(c string) (err error) {
	var f *os.File
	if f, err = os.Open(c); err != nil {
		return oe.Wrapf(err, "open config %v", c)
	}
	defer f.Close()

	if err = v.Decode(f, filepath.Ext(c)); err != nil {
		return oe.Wrapf(err, "decode config %v", c)
	}

	if err = v.Config.OpenLogger(); err != nil {
		return oe.Wrap(err, "open logger")
	}

	return v.Validate()
}

// Decode by the extension of file, yaml for .yaml or .yml, otherwise json+.
func (v *RtmpcConfig) Decode(r io.Reader, ext string) error {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		return yaml.NewDecoder(r).Decode(v)
	default:
		return json.NewDecoder(oj.NewJsonPlusReader(r)).Decode(v)
	}
}

func (v *RtmpcConfig) Validate() (err error) {
	if err = v.Config.Validate(); err != nil {
		return
	}

	if v.Api != "" && !strings.HasPrefix(v.Api, "tcp://") {
		return oe.Errorf("api must be tcp://host:port, actual is %v", v.Api)
	}

	r := &v.Rtmp
	if r.Url == "" {
		return oe.New("no rtmp url")
	}
	if r.Mode == "" {
		r.Mode = ModePlay
	}
	if r.Mode != ModePlay && r.Mode != ModePublish {
		return oe.Errorf("rtmp mode must be play/publish, actual is %v", r.Mode)
	}
	if r.Mode == ModePublish && r.Flv == "" {
		return oe.New("no flv to publish")
	}
	if r.Duration < 0 {
		return oe.Errorf("invalid duration %v", r.Duration)
	}

	return
}
