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
 This is the basic config for oryx.
*/
package kernel

import (
	"fmt"
	oe "github.com/ossrs/go-oryx-lib/errors"
	ol "github.com/ossrs/go-oryx-lib/logger"
	"os"
)

const (
	LoggerTankConsole = "console"
	LoggerTankFile    = "file"
)

// The basic config, for all modules which will provides these config.
type Config struct {
	Logger struct {
		Tank     string `json:"tank" yaml:"tank"`
		FilePath string `json:"file" yaml:"file"`
	} `json:"logger" yaml:"logger"`
}

// The interface fmt.Stringer
func (v *Config) String() string {
	if v.Logger.Tank == LoggerTankFile {
		return fmt.Sprintf("logger(tank=%v,file=%v)", v.Logger.Tank, v.Logger.FilePath)
	}
	return fmt.Sprintf("logger(tank=%v)", v.Logger.Tank)
}

// The interface io.Closer
// Cleanup the resource open by config, for example, the logger file.
func (v *Config) Close() error {
	return ol.Close()
}

// Validate the logger, the tank default to console.
func (v *Config) Validate() error {
	if v.Logger.Tank == "" {
		v.Logger.Tank = LoggerTankConsole
	}

	switch v.Logger.Tank {
	case LoggerTankConsole:
	case LoggerTankFile:
		if v.Logger.FilePath == "" {
			return oe.New("logger file required")
		}
	default:
		return oe.Errorf("logger tank must be console/file, actual is %v", v.Logger.Tank)
	}
	return nil
}

// Open the logger, when tank is file, switch logger to file.
func (v *Config) OpenLogger() (err error) {
	if err = v.Validate(); err != nil {
		return
	}

	if v.Logger.Tank != LoggerTankFile {
		return
	}

	var f *os.File
	if f, err = os.OpenFile(v.Logger.FilePath, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644); err != nil {
		return oe.Wrapf(err, "open logger %v", v.Logger.FilePath)
	}

	_ = ol.Close()
	ol.Switch(f)

	return
}
