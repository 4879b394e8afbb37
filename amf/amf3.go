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

package amf

import (
	oe "github.com/ossrs/go-oryx-lib/errors"
	"math"
)

// AMF3 marker
const (
	amf3Undefined    = 0x00
	amf3Null         = 0x01
	amf3False        = 0x02
	amf3True         = 0x03
	amf3Integer      = 0x04
	amf3Double       = 0x05
	amf3String       = 0x06
	amf3XmlDocument  = 0x07
	amf3Date         = 0x08
	amf3Array        = 0x09
	amf3Object       = 0x0A
	amf3Xml          = 0x0B
	amf3ByteArray    = 0x0C
	amf3VectorInt    = 0x0D
	amf3VectorUint   = 0x0E
	amf3VectorDouble = 0x0F
	amf3VectorObject = 0x10
	amf3Dictionary   = 0x11
)

// The range of U29.
const (
	u29Max = 0x1fffffff
	// the max length or index, which is shift left by 1 for the reference flag.
	u29MaxLength = 0x0fffffff
	// the integer in [-2^28, 2^28) is encoded as U29.
	int29Min = -(1 << 28)
	int29Max = 1<<28 - 1
)

// The traits of anonymous dynamic object, U29O-traits=0x0B, that is
// inline object, inline traits, dynamic and 0 sealed members.
const amf3AnonymousTraits = 0x0b

// The reference tables of the encoder.
type amf3Writer struct {
	strings map[string]int
	// the complex objects, by identity.
	objects map[Value]int
	// the total objects, including the xml which is never referenced.
	nbObjects int
}

func (v *Encoder) writer3() *amf3Writer {
	if v.amf3 == nil {
		v.amf3 = &amf3Writer{
			strings: make(map[string]int),
			objects: make(map[Value]int),
		}
	}
	return v.amf3
}

// @see: 1.3.1 Variable Length Unsigned 29-bit Integer Encoding
func (v *Encoder) writeU29(n uint32) error {
	switch {
	case n < 0x80:
		v.b.WriteByte(byte(n))
	case n < 0x4000:
		v.b.WriteByte(byte(n>>7) | 0x80)
		v.b.WriteByte(byte(n & 0x7f))
	case n < 0x200000:
		v.b.WriteByte(byte(n>>14) | 0x80)
		v.b.WriteByte(byte(n>>7)&0x7f | 0x80)
		v.b.WriteByte(byte(n & 0x7f))
	case n <= u29Max:
		v.b.WriteByte(byte(n>>22) | 0x80)
		v.b.WriteByte(byte(n>>15)&0x7f | 0x80)
		v.b.WriteByte(byte(n>>8)&0x7f | 0x80)
		v.b.WriteByte(byte(n))
	default:
		return oe.Wrapf(ErrU29Overflow, "u29 %#x", n)
	}
	return nil
}

// Write the UTF-8-vr, the empty string is never referenced.
func (v *Encoder) writeString3(s string) error {
	if len(s) == 0 {
		return v.writeU29(0x01)
	}

	w := v.writer3()
	if index, ok := w.strings[s]; ok {
		return v.writeU29(uint32(index) << 1)
	}

	if len(s) > u29MaxLength {
		return oe.Wrapf(ErrTooLong, "amf3 string %vB", len(s))
	}
	w.strings[s] = len(w.strings)

	if err := v.writeU29(uint32(len(s))<<1 | 0x01); err != nil {
		return err
	}
	v.b.WriteString(s)
	return nil
}

// Write the reference when the object is written, or register it.
// Return true when the reference is written.
func (v *Encoder) writeReference3(value Value) (bool, error) {
	w := v.writer3()
	if index, ok := w.objects[value]; ok {
		return true, v.writeU29(uint32(index) << 1)
	}

	w.objects[value] = w.nbObjects
	w.nbObjects++
	return false, nil
}

func isInt29(n float64) bool {
	if n != math.Trunc(n) || n < int29Min || n > int29Max {
		return false
	}
	// the -0 must be a double.
	return n != 0 || !math.Signbit(n)
}

func (v *Encoder) encode3(value Value) (err error) {
	switch value := value.(type) {
	case Undefined:
		return v.b.WriteByte(amf3Undefined)
	case nil, Null:
		return v.b.WriteByte(amf3Null)
	case Boolean:
		if value {
			return v.b.WriteByte(amf3True)
		}
		return v.b.WriteByte(amf3False)
	case Number:
		if f := float64(value); isInt29(f) {
			v.b.WriteByte(amf3Integer)
			return v.writeU29(uint32(int32(f)) & u29Max)
		}
		v.b.WriteByte(amf3Double)
		v.writeF64(float64(value))
		return
	case String:
		v.b.WriteByte(amf3String)
		return v.writeString3(string(value))
	case XMLDocument:
		v.b.WriteByte(amf3XmlDocument)
		return v.writeXml3(string(value))
	case XML:
		v.b.WriteByte(amf3Xml)
		return v.writeXml3(string(value))
	case *Date:
		v.b.WriteByte(amf3Date)
		var ref bool
		if ref, err = v.writeReference3(value); err != nil || ref {
			return
		}
		if err = v.writeU29(0x01); err != nil {
			return
		}
		v.writeF64(value.Millis)
		return
	case *StrictArray:
		v.b.WriteByte(amf3Array)
		var ref bool
		if ref, err = v.writeReference3(value); err != nil || ref {
			return
		}
		if len(value.Values) > u29MaxLength {
			return oe.Wrapf(ErrTooLong, "amf3 array %v", len(value.Values))
		}
		if err = v.writeU29(uint32(len(value.Values))<<1 | 0x01); err != nil {
			return
		}
		// no associative values.
		if err = v.writeString3(""); err != nil {
			return
		}
		for _, e := range value.Values {
			if err = v.encode3(e); err != nil {
				return
			}
		}
		return
	case *EcmaArray:
		v.b.WriteByte(amf3Array)
		var ref bool
		if ref, err = v.writeReference3(value); err != nil || ref {
			return
		}
		if len(value.Dense) > u29MaxLength {
			return oe.Wrapf(ErrTooLong, "amf3 array %v", len(value.Dense))
		}
		if err = v.writeU29(uint32(len(value.Dense))<<1 | 0x01); err != nil {
			return
		}
		if err = v.writeDynamic3(&value.properties); err != nil {
			return
		}
		for _, e := range value.Dense {
			if err = v.encode3(e); err != nil {
				return
			}
		}
		return
	case *Object:
		v.b.WriteByte(amf3Object)
		var ref bool
		if ref, err = v.writeReference3(value); err != nil || ref {
			return
		}
		if err = v.writeU29(amf3AnonymousTraits); err != nil {
			return
		}
		// the class name of anonymous object is empty.
		if err = v.writeString3(""); err != nil {
			return
		}
		return v.writeDynamic3(&value.properties)
	}

	return oe.Wrapf(ErrUnsupported, "amf3 value %T", value)
}

// The xml is always inline, but it takes a slot of the object table.
func (v *Encoder) writeXml3(s string) error {
	w := v.writer3()
	w.nbObjects++

	if len(s) > u29MaxLength {
		return oe.Wrapf(ErrTooLong, "amf3 xml %vB", len(s))
	}
	if err := v.writeU29(uint32(len(s))<<1 | 0x01); err != nil {
		return err
	}
	v.b.WriteString(s)
	return nil
}

// Write the dynamic members, end with the empty string.
func (v *Encoder) writeDynamic3(p *properties) (err error) {
	for _, e := range p.properties {
		if len(e.key) == 0 {
			return oe.Wrap(ErrMarker, "empty key")
		}
		if err = v.writeString3(e.key); err != nil {
			return
		}
		if err = v.encode3(e.value); err != nil {
			return
		}
	}
	return v.writeString3("")
}

// The traits of object.
type amf3Traits struct {
	className string
	dynamic   bool
	members   []string
}

// The reference tables of the decoder.
type amf3Reader struct {
	strings []string
	objects []Value
	traits  []*amf3Traits
}

func (v *Decoder) reader3() *amf3Reader {
	if v.amf3 == nil {
		v.amf3 = &amf3Reader{}
	}
	return v.amf3
}

func (v *Decoder) readU29() (n uint32, err error) {
	for i := 0; i < 4; i++ {
		var b byte
		if b, err = v.readByte(); err != nil {
			return
		}

		// the 4th byte is 8 bits.
		if i == 3 {
			return n<<8 | uint32(b), nil
		}

		n = n<<7 | uint32(b&0x7f)
		if b&0x80 == 0 {
			return
		}
	}
	return
}

func (v *Decoder) readString3() (s string, err error) {
	var ref uint32
	if ref, err = v.readU29(); err != nil {
		return
	}

	r := v.reader3()
	if ref&0x01 == 0 {
		index := int(ref >> 1)
		if index >= len(r.strings) {
			return "", oe.Wrapf(ErrReference, "amf3 string %v of %v", index, len(r.strings))
		}
		return r.strings[index], nil
	}

	var b []byte
	if b, err = v.read(int(ref >> 1)); err != nil {
		return
	}
	if s = string(b); len(s) > 0 {
		r.strings = append(r.strings, s)
	}
	return
}

// Read the U29 header of complex object, return the referenced object
// when it is a reference.
func (v *Decoder) readReference3() (ref uint32, value Value, err error) {
	if ref, err = v.readU29(); err != nil {
		return
	}
	if ref&0x01 != 0 {
		return
	}

	r := v.reader3()
	index := int(ref >> 1)
	if index >= len(r.objects) || r.objects[index] == nil {
		return ref, nil, oe.Wrapf(ErrReference, "amf3 object %v of %v", index, len(r.objects))
	}
	return ref, r.objects[index], nil
}

func (v *Decoder) decode3() (value Value, err error) {
	if err = v.enter(); err != nil {
		return
	}
	defer v.leave()

	var marker byte
	if marker, err = v.readByte(); err != nil {
		return
	}

	switch marker {
	case amf3Undefined:
		return Undefined{}, nil
	case amf3Null:
		return Null{}, nil
	case amf3False:
		return Boolean(false), nil
	case amf3True:
		return Boolean(true), nil
	case amf3Integer:
		var n uint32
		if n, err = v.readU29(); err != nil {
			return
		}
		// sign extend the 29 bits.
		if n&0x10000000 != 0 {
			return Number(int32(n) - 0x20000000), nil
		}
		return Number(n), nil
	case amf3Double:
		var f float64
		if f, err = v.readF64(); err != nil {
			return
		}
		return Number(f), nil
	case amf3String:
		var s string
		if s, err = v.readString3(); err != nil {
			return
		}
		return String(s), nil
	case amf3XmlDocument, amf3Xml:
		return v.readXml3(marker)
	case amf3Date:
		if _, value, err = v.readReference3(); err != nil || value != nil {
			return
		}
		var ms float64
		if ms, err = v.readF64(); err != nil {
			return
		}
		d := &Date{Millis: ms}
		r := v.reader3()
		r.objects = append(r.objects, d)
		return d, nil
	case amf3Array:
		return v.readArray3()
	case amf3Object:
		return v.readObject3()
	case amf3ByteArray, amf3VectorInt, amf3VectorUint, amf3VectorDouble, amf3VectorObject, amf3Dictionary:
		return nil, oe.Wrapf(ErrUnsupported, "amf3 marker %#x", marker)
	}

	return nil, oe.Wrapf(ErrMarker, "amf3 marker %#x", marker)
}

func (v *Decoder) readXml3(marker byte) (value Value, err error) {
	var ref uint32
	if ref, value, err = v.readReference3(); err != nil || value != nil {
		return
	}

	var b []byte
	if b, err = v.read(int(ref >> 1)); err != nil {
		return
	}

	if marker == amf3Xml {
		value = XML(b)
	} else {
		value = XMLDocument(b)
	}

	r := v.reader3()
	r.objects = append(r.objects, value)
	return
}

// The array with only dense values is a strict array, or ecma array.
func (v *Decoder) readArray3() (value Value, err error) {
	var ref uint32
	if ref, value, err = v.readReference3(); err != nil || value != nil {
		return
	}
	count := int(ref >> 1)

	// take the slot before the members, it's set when the array is created.
	r := v.reader3()
	slot := len(r.objects)
	r.objects = append(r.objects, nil)

	var assoc properties
	for {
		var key string
		if key, err = v.readString3(); err != nil {
			return
		}
		if len(key) == 0 {
			break
		}

		var e Value
		if e, err = v.decode3(); err != nil {
			return
		}
		assoc.set(key, e)
	}

	// each value is at least 1 byte.
	if count > v.Len() {
		return nil, oe.Wrapf(ErrShort, "amf3 array count %v, left %v", count, v.Len())
	}
	var dense []Value
	if count > 0 {
		dense = make([]Value, 0, count)
	}

	if assoc.Len() == 0 {
		sa := &StrictArray{Values: dense}
		r.objects[slot] = sa
		for i := 0; i < count; i++ {
			var e Value
			if e, err = v.decode3(); err != nil {
				return
			}
			sa.Values = append(sa.Values, e)
		}
		return sa, nil
	}

	ea := &EcmaArray{Dense: dense, properties: assoc}
	r.objects[slot] = ea
	for i := 0; i < count; i++ {
		var e Value
		if e, err = v.decode3(); err != nil {
			return
		}
		ea.Dense = append(ea.Dense, e)
	}
	return ea, nil
}

func (v *Decoder) readTraits3(ref uint32) (t *amf3Traits, err error) {
	r := v.reader3()

	// U29O-traits-ref
	if ref&0x02 == 0 {
		index := int(ref >> 2)
		if index >= len(r.traits) {
			return nil, oe.Wrapf(ErrReference, "amf3 traits %v of %v", index, len(r.traits))
		}
		return r.traits[index], nil
	}

	// U29O-traits-ext
	if ref&0x04 != 0 {
		return nil, oe.Wrap(ErrUnsupported, "amf3 externalizable object")
	}

	t = &amf3Traits{dynamic: ref&0x08 != 0}
	if t.className, err = v.readString3(); err != nil {
		return
	}

	nbSealed := int(ref >> 4)
	for i := 0; i < nbSealed; i++ {
		var name string
		if name, err = v.readString3(); err != nil {
			return
		}
		t.members = append(t.members, name)
	}

	r.traits = append(r.traits, t)
	return
}

// The typed object is decoded as anonymous object.
func (v *Decoder) readObject3() (value Value, err error) {
	var ref uint32
	if ref, value, err = v.readReference3(); err != nil || value != nil {
		return
	}

	var t *amf3Traits
	if t, err = v.readTraits3(ref); err != nil {
		return
	}

	obj := NewObject()
	r := v.reader3()
	r.objects = append(r.objects, obj)

	for _, name := range t.members {
		var e Value
		if e, err = v.decode3(); err != nil {
			return
		}
		obj.set(name, e)
	}

	if !t.dynamic {
		return obj, nil
	}

	for {
		var key string
		if key, err = v.readString3(); err != nil {
			return
		}
		if len(key) == 0 {
			return obj, nil
		}

		var e Value
		if e, err = v.decode3(); err != nil {
			return
		}
		obj.set(key, e)
	}
}
