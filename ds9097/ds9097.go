// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package ds9097 implements a 1-Wire bus master on top of a plain UART, as
// found in DS9097 style serial adapters.
//
// A UART running at 115200 bps, 8-N-1, needs slightly more time to shift out
// one character than a 1-Wire time slot lasts. Writing 0xFF produces a short
// low pulse (a "write 1" or "read" slot), writing 0x00 produces a long one
// (a "write 0" slot). The character read back is the line as sampled by the
// UART: a device holding the line low during a read slot turns 0xFF into a
// smaller value. The reset pulse and presence detection use the same trick at
// 9600 bps with the 0xF0 character.
//
// Datasheet
//
// https://www.analog.com/en/technical-articles/using-a-uart-to-implement-a-1wire-bus-master.html
package ds9097

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/GermanBionicSystems/digitemp/owerr"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/onewire"
)

// Baud rates used on the channel.
const (
	DataBaud  = 115200 // bit time slots
	ResetBaud = 9600   // reset pulse and presence detect
)

// Port is the byte oriented half-duplex serial channel the master drives.
//
// Read must return a short count, not block forever, when no more bytes
// arrive within the channel's read timeout.
type Port interface {
	io.ReadWriteCloser
	// SetBaudRate changes the channel speed.
	SetBaudRate(baud int) error
	// ResetBuffers discards unread input and unsent output.
	ResetBuffers() error
}

// ErrNoDevice is the Adapter error Reset returns when no device answered the
// reset pulse.
var ErrNoDevice error = &owerr.Error{Kind: owerr.Adapter, Op: "reset", Msg: "no device present"}

// Dev is a handle to a UART based 1-Wire master.
//
// The bit, byte and ROM command methods do not lock. A 1-Wire command sequence
// (reset, ROM selection, function command) must run uninterrupted, so callers
// sharing a Dev hold its lock for the whole sequence. Tx and Search, the
// onewire.Bus methods, take the lock themselves.
type Dev struct {
	sync.Mutex // lock for the bus while a command sequence is in progress
	port       Port
	name       string
}

// New returns a master driving the 1-Wire bus through p, which must already
// run at DataBaud. name is only used for display.
func New(p Port, name string) *Dev {
	return &Dev{port: p, name: name}
}

// Name returns the name of the underlying channel.
func (d *Dev) Name() string {
	return d.name
}

func (d *Dev) String() string {
	return fmt.Sprintf("DS9097{%s}", d.name)
}

// Halt implements conn.Resource.
func (d *Dev) Halt() error {
	return nil
}

// Close closes the underlying channel.
func (d *Dev) Close() error {
	return owerr.Wrap("close "+d.name, d.port.Close())
}

// Reset issues a reset pulse and checks for a presence pulse.
//
// It returns ErrNoDevice if no device answered. The channel is switched
// back to DataBaud even if the exchange failed.
func (d *Dev) Reset() error {
	if err := d.port.ResetBuffers(); err != nil {
		return owerr.Wrap("reset", err)
	}
	if err := d.port.SetBaudRate(ResetBaud); err != nil {
		return owerr.Wrap("reset", err)
	}
	var b [1]byte
	n, err := d.exchange([]byte{resetPulse}, b[:])
	if err2 := d.port.SetBaudRate(DataBaud); err == nil {
		err = err2
	}
	if err != nil {
		return owerr.Wrap("reset", err)
	}
	if n != 1 {
		return owerr.Adapterf("reset", "read/write error")
	}
	switch v := b[0]; {
	case v == resetPulse:
		return ErrNoDevice
	case v >= 0x10 && v <= 0xe0:
		return nil
	default:
		return owerr.Adapterf("reset", "presence error: 0x%02x", v)
	}
}

// WriteBit writes one bit (0 or 1) on the bus.
//
// The character read back must match the one sent, otherwise something else is
// driving the line.
func (d *Dev) WriteBit(bit byte) error {
	w := [1]byte{slot0}
	if bit != 0 {
		w[0] = slot1
	}
	var r [1]byte
	if err := d.touch("write bit", "write", w[:], r[:]); err != nil {
		return err
	}
	if r[0] != w[0] {
		return owerr.Adapterf("write bit", "noise on the line")
	}
	return nil
}

// ReadBit reads one bit from the bus.
func (d *Dev) ReadBit() (byte, error) {
	var r [1]byte
	if err := d.touch("read bit", "read", []byte{slot1}, r[:]); err != nil {
		return 0, err
	}
	return decode(r[0]), nil
}

// WriteByte writes one byte on the bus, least significant bit first.
//
// The 8 slots are sent in a single channel write.
func (d *Dev) WriteByte(v byte) error {
	var w, r [8]byte
	for i := range w {
		if v&(1<<uint(i)) != 0 {
			w[i] = slot1
		}
	}
	if err := d.touch("write byte", "write", w[:], r[:]); err != nil {
		return err
	}
	if r != w {
		return owerr.Adapterf("write byte", "noise on the line")
	}
	return nil
}

// ReadByte reads one byte from the bus, least significant bit first.
func (d *Dev) ReadByte() (byte, error) {
	w := [8]byte{slot1, slot1, slot1, slot1, slot1, slot1, slot1, slot1}
	var r [8]byte
	if err := d.touch("read byte", "read", w[:], r[:]); err != nil {
		return 0, err
	}
	var v byte
	for i, c := range r {
		v |= decode(c) << uint(i)
	}
	return v, nil
}

// WriteBytes writes buf on the bus.
func (d *Dev) WriteBytes(buf []byte) error {
	for _, b := range buf {
		if err := d.WriteByte(b); err != nil {
			return err
		}
	}
	return nil
}

// ReadBytes reads n bytes from the bus.
func (d *Dev) ReadBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	for i := range buf {
		b, err := d.ReadByte()
		if err != nil {
			return nil, err
		}
		buf[i] = b
	}
	return buf, nil
}

//

// touch sends the slot characters in w and reads the same number of
// characters back into r. A short read is reported as a "<short> error".
func (d *Dev) touch(op, short string, w, r []byte) error {
	if err := d.port.ResetBuffers(); err != nil {
		return owerr.Wrap(op, err)
	}
	n, err := d.exchange(w, r)
	if err != nil {
		return owerr.Wrap(op, err)
	}
	if n != len(r) {
		return owerr.Adapterf(op, "%s error", short)
	}
	return nil
}

// exchange writes w and reads until r is full or the channel times out.
//
// A short write reads nothing back and returns 0, the caller reports it like a
// short read.
func (d *Dev) exchange(w, r []byte) (int, error) {
	if n, err := d.port.Write(w); err != nil {
		return 0, err
	} else if n != len(w) {
		return 0, nil
	}
	n := 0
	for n < len(r) {
		m, err := d.port.Read(r[n:])
		n += m
		if errors.Is(err, io.EOF) || (err == nil && m == 0) {
			// Read timeout.
			break
		}
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// decode turns a character read back from a read slot into a bit.
func decode(c byte) byte {
	if c == slot1 {
		return 1
	}
	return 0
}

const (
	slot0      = 0x00 // write 0 slot
	slot1      = 0xff // write 1 or read slot
	resetPulse = 0xf0 // reset pulse at ResetBaud

	cmdReadROM     = 0x33
	cmdMatchROM    = 0x55
	cmdSkipROM     = 0xcc
	cmdSearchROM   = 0xf0
	cmdAlarmSearch = 0xec
)

var _ conn.Resource = &Dev{}
var _ onewire.Bus = &Dev{}
var _ onewire.BusSearcher = &Dev{}
var _ sync.Locker = &Dev{}
