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

// The amf package is the value model and codecs of AMF0 and AMF3,
// @see: http://download.macromedia.com/pub/labs/amf/amf0_spec_121207.pdf
// @see: http://download.macromedia.com/pub/labs/amf/amf3_spec_121207.pdf
package amf

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// The object encoding of a message, 0 for AMF0 and 3 for AMF3.
type ObjectEncoding uint8

const (
	AMF0 ObjectEncoding = 0
	AMF3 ObjectEncoding = 3
)

func (v ObjectEncoding) String() string {
	switch v {
	case AMF0:
		return "AMF0"
	case AMF3:
		return "AMF3"
	default:
		return fmt.Sprintf("Unknown(%v)", uint8(v))
	}
}

// The value of AMF, one of Undefined, Null, Boolean, Number, String,
// *Date, *StrictArray, *EcmaArray, *Object, XMLDocument and XML.
type Value interface {
	fmt.Stringer
	// the kind of value, used to switch exhaustively.
	Kind() Kind
}

// The kind of value, independent of the codec.
type Kind uint8

const (
	KindUndefined Kind = iota
	KindNull
	KindBoolean
	KindNumber
	KindString
	KindDate
	KindStrictArray
	KindEcmaArray
	KindObject
	KindXMLDocument
	KindXML
)

type Undefined struct{}

func (v Undefined) Kind() Kind {
	return KindUndefined
}

func (v Undefined) String() string {
	return "Undefined"
}

type Null struct{}

func (v Null) Kind() Kind {
	return KindNull
}

func (v Null) String() string {
	return "Null"
}

type Boolean bool

func (v Boolean) Kind() Kind {
	return KindBoolean
}

func (v Boolean) String() string {
	if v {
		return "true"
	}
	return "false"
}

// The number is always a double, the AMF3 integer is decoded to number.
type Number float64

func (v Number) Kind() Kind {
	return KindNumber
}

func (v Number) String() string {
	return strconv.FormatFloat(float64(v), 'g', -1, 64)
}

type String string

func (v String) Kind() Kind {
	return KindString
}

func (v String) String() string {
	return string(v)
}

type XMLDocument string

func (v XMLDocument) Kind() Kind {
	return KindXMLDocument
}

func (v XMLDocument) String() string {
	return string(v)
}

type XML string

func (v XML) Kind() Kind {
	return KindXML
}

func (v XML) String() string {
	return string(v)
}

// The date in milliseconds since epoch, the timezone is ignored.
type Date struct {
	Millis float64
}

func NewDate(t time.Time) *Date {
	return &Date{Millis: float64(t.UnixNano() / int64(time.Millisecond))}
}

func (v *Date) Kind() Kind {
	return KindDate
}

func (v *Date) Time() time.Time {
	ms := int64(v.Millis)
	return time.Unix(ms/1000, (ms%1000)*int64(time.Millisecond))
}

func (v *Date) String() string {
	return v.Time().UTC().Format(time.RFC3339Nano)
}

type property struct {
	key   string
	value Value
}

// The ordered properties, the key keeps the first-seen order.
type properties struct {
	properties []*property
}

func (v *properties) Len() int {
	return len(v.properties)
}

func (v *properties) Keys() []string {
	keys := make([]string, 0, len(v.properties))
	for _, p := range v.properties {
		keys = append(keys, p.key)
	}
	return keys
}

// Get the value of key, nil if not exists.
func (v *properties) Get(key string) Value {
	for _, p := range v.properties {
		if p.key == key {
			return p.value
		}
	}
	return nil
}

// Get the value of key as string.
func (v *properties) GetString(key string) (string, bool) {
	if s, ok := v.Get(key).(String); ok {
		return string(s), true
	}
	return "", false
}

// Get the value of key as number.
func (v *properties) GetNumber(key string) (float64, bool) {
	if n, ok := v.Get(key).(Number); ok {
		return float64(n), true
	}
	return 0, false
}

// Update the value when key exists, or append it.
func (v *properties) set(key string, value Value) {
	if value == nil {
		value = Null{}
	}

	for _, p := range v.properties {
		if p.key == key {
			p.value = value
			return
		}
	}
	v.properties = append(v.properties, &property{key: key, value: value})
}

func (v *properties) Delete(key string) bool {
	for i, p := range v.properties {
		if p.key == key {
			v.properties = append(v.properties[:i], v.properties[i+1:]...)
			return true
		}
	}
	return false
}

// Visit each property in order, stop when fn returns false.
func (v *properties) Range(fn func(key string, value Value) bool) {
	for _, p := range v.properties {
		if !fn(p.key, p.value) {
			return
		}
	}
}

func (v *properties) describe() string {
	var s []string
	for _, p := range v.properties {
		s = append(s, fmt.Sprintf("%v: %v", p.key, p.value))
	}
	return strings.Join(s, ", ")
}

// The anonymous object, a set of ordered key-value pairs.
type Object struct {
	properties
}

func NewObject() *Object {
	return &Object{}
}

func (v *Object) Kind() Kind {
	return KindObject
}

func (v *Object) Set(key string, value Value) *Object {
	v.set(key, value)
	return v
}

func (v *Object) String() string {
	return fmt.Sprintf("Object{%v}", v.describe())
}

// The ecma array, dense values addressed by index and
// sparse values addressed by key.
type EcmaArray struct {
	Dense []Value
	properties
}

func NewEcmaArray() *EcmaArray {
	return &EcmaArray{}
}

func (v *EcmaArray) Kind() Kind {
	return KindEcmaArray
}

// Set the sparse value, or the dense value when key is an index.
func (v *EcmaArray) Set(key string, value Value) *EcmaArray {
	if index, ok := parseIndex(key); ok && v.dense(index) {
		return v.SetIndex(index, value)
	}
	v.set(key, value)
	return v
}

// Get the sparse value, or the dense value when key is an index.
func (v *EcmaArray) Get(key string) Value {
	if index, ok := parseIndex(key); ok && index < len(v.Dense) {
		return v.Dense[index]
	}
	return v.properties.Get(key)
}

// Whether the index goes to the dense part, which grows by appending,
// or by a small hole filled with Undefined.
func (v *EcmaArray) dense(index int) bool {
	return index <= len(v.Dense) || index <= maxDenseHole
}

// Set the dense value at index, grow with Undefined.
func (v *EcmaArray) SetIndex(index int, value Value) *EcmaArray {
	if value == nil {
		value = Null{}
	}
	for len(v.Dense) <= index {
		v.Dense = append(v.Dense, Undefined{})
	}
	v.Dense[index] = value
	return v
}

// Get the dense value at index, nil if out of range.
func (v *EcmaArray) Index(index int) Value {
	if index < 0 || index >= len(v.Dense) {
		return nil
	}
	return v.Dense[index]
}

func (v *EcmaArray) Append(values ...Value) *EcmaArray {
	v.Dense = append(v.Dense, values...)
	return v
}

func (v *EcmaArray) String() string {
	return fmt.Sprintf("EcmaArray{%v; %v}", v.Dense, v.describe())
}

// The index must be a canonical non-negative integer.
func parseIndex(key string) (int, bool) {
	if len(key) == 0 || (len(key) > 1 && key[0] == '0') {
		return 0, false
	}
	index, err := strconv.Atoi(key)
	if err != nil || index < 0 {
		return 0, false
	}
	return index, true
}

// Avoid allocating huge dense part for keys like "4294967295",
// such a key beyond the dense part is kept as sparse.
const maxDenseHole = 0xffff

// The strict array, the ordered values without key.
type StrictArray struct {
	Values []Value
}

func NewStrictArray(values ...Value) *StrictArray {
	return &StrictArray{Values: values}
}

func (v *StrictArray) Kind() Kind {
	return KindStrictArray
}

func (v *StrictArray) Len() int {
	return len(v.Values)
}

func (v *StrictArray) Index(index int) Value {
	if index < 0 || index >= len(v.Values) {
		return nil
	}
	return v.Values[index]
}

func (v *StrictArray) Append(values ...Value) *StrictArray {
	v.Values = append(v.Values, values...)
	return v
}

func (v *StrictArray) String() string {
	return fmt.Sprintf("StrictArray%v", v.Values)
}
