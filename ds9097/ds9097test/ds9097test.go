// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package ds9097test is meant to be used to test drivers over a simulated
// UART 1-Wire bus.
//
// Sim plays the UART and every device on the bus at the time slot level: each
// character written at 115200 bps is one slot, the character read back is the
// line as the devices left it (wired-AND). It implements ds9097.Port.
package ds9097test

import (
	"io"
	"sync"

	"github.com/GermanBionicSystems/digitemp/common"
	"github.com/GermanBionicSystems/digitemp/rom"
)

// resetBaud is the speed of reset pulses, any other speed runs data slots.
const resetBaud = 9600

// Device is a simulated 1-Wire temperature sensor.
type Device struct {
	ROM        rom.Code
	Alarm      bool    // answers ALARM SEARCH
	Parasitic  bool    // pulls the line low on READ POWER SUPPLY
	Scratchpad [8]byte // data bytes, the CRC is computed on read
	EEPROM     [3]byte // TH, TL, configuration

	// BusyPolls is the number of read slots an externally powered device
	// answers with 0 after CONVERT T, COPY SCRATCHPAD and RECALL E².
	BusyPolls int
	// BadReads is the number of upcoming READ SCRATCHPAD answers with a
	// corrupted CRC byte.
	BadReads int

	// Counters.
	Conversions int
	Copies      int
	Recalls     int

	tx []byte // bits left to transmit
}

// Sim is a simulated UART with 1-Wire devices attached.
type Sim struct {
	sync.Mutex
	Devices []*Device
	// Presence is the character returned for a reset pulse when at least one
	// device is attached. Defaults to 0xE0.
	Presence byte
	// Noise corrupts every character read back.
	Noise bool
	// Mute drops every character read back, as a disconnected adapter would.
	Mute bool

	// Record of the traffic.
	Bauds     []int  // every baud rate set
	Resets    int    // reset pulses
	Commands  []byte // ROM commands received
	Functions []byte // function commands received
	Closed    bool

	baud int
	out  []byte
	st   state
	next state
	rx   byte
	rxn  int
	pos  int
	sub  int
	sel  []*Device
	wr   int
	busy int
}

// Write implements io.Writer. Each character is one time slot.
func (s *Sim) Write(p []byte) (int, error) {
	s.Lock()
	defer s.Unlock()
	if s.Closed {
		return 0, io.ErrClosedPipe
	}
	for _, c := range p {
		var r byte
		if s.baud == resetBaud {
			r = s.reset(c)
		} else {
			r = s.slot(c)
		}
		if s.Noise {
			r ^= 0x01
		}
		if !s.Mute {
			s.out = append(s.out, r)
		}
	}
	return len(p), nil
}

// Read implements io.Reader. It returns a short count when the characters
// written so far have all been read, like a serial port timing out.
func (s *Sim) Read(p []byte) (int, error) {
	s.Lock()
	defer s.Unlock()
	if s.Closed {
		return 0, io.ErrClosedPipe
	}
	n := copy(p, s.out)
	s.out = s.out[n:]
	return n, nil
}

// SetBaudRate implements ds9097.Port.
func (s *Sim) SetBaudRate(baud int) error {
	s.Lock()
	defer s.Unlock()
	s.baud = baud
	s.Bauds = append(s.Bauds, baud)
	return nil
}

// ResetBuffers implements ds9097.Port.
func (s *Sim) ResetBuffers() error {
	s.Lock()
	defer s.Unlock()
	s.out = nil
	return nil
}

// Close implements io.Closer.
func (s *Sim) Close() error {
	s.Lock()
	defer s.Unlock()
	s.Closed = true
	return nil
}

//

type state int

const (
	stIdle     state = iota
	stCommand        // receiving a ROM command
	stMatch          // receiving the ROM code of MATCH ROM
	stSearch         // search triplets
	stFunction       // receiving a function command
	stWrite          // receiving WRITE SCRATCHPAD data
	stTx             // devices transmitting
	stBusy           // devices signalling an operation in progress
	stPower          // READ POWER SUPPLY slot
)

func (s *Sim) reset(c byte) byte {
	s.st = stIdle
	s.rx, s.rxn = 0, 0
	s.sel = nil
	s.busy = 0
	for _, d := range s.Devices {
		d.tx = nil
	}
	if c != 0xf0 {
		return c
	}
	s.Resets++
	if len(s.Devices) == 0 {
		return 0xf0
	}
	s.st = stCommand
	if s.Presence != 0 {
		return s.Presence
	}
	return 0xe0
}

// slot runs one time slot. c is the character sent by the master.
func (s *Sim) slot(c byte) byte {
	var m byte
	if c == 0xff {
		m = 1
	}
	line := m
	st := s.st
	switch st {
	case stTx:
		line &= s.transmit()
	case stSearch:
		if s.sub < 2 {
			for _, d := range s.sel {
				b := bit(d.ROM, s.pos)
				if s.sub == 1 {
					b ^= 1
				}
				line &= b
			}
		}
	case stBusy:
		if s.busy > 0 {
			s.busy--
			line = 0
		}
	case stPower:
		for _, d := range s.sel {
			if d.Parasitic {
				line = 0
			}
		}
		s.st = stIdle
	}
	if st != stTx && st != stPower {
		s.receive(m)
	}
	switch {
	case m == 0:
		return 0x00
	case line == 0:
		// A device held the line low for part of the character.
		return 0xf8
	default:
		return 0xff
	}
}

// transmit shifts out the next bit of every selected device.
func (s *Sim) transmit() byte {
	line := byte(1)
	done := true
	for _, d := range s.sel {
		if len(d.tx) == 0 {
			continue
		}
		line &= d.tx[0]
		d.tx = d.tx[1:]
		if len(d.tx) != 0 {
			done = false
		}
	}
	if done {
		s.st = s.next
	}
	return line
}

func (s *Sim) receive(m byte) {
	switch s.st {
	case stCommand, stFunction, stWrite:
		s.rx |= m << uint(s.rxn)
		s.rxn++
		if s.rxn < 8 {
			return
		}
		b := s.rx
		s.rx, s.rxn = 0, 0
		switch s.st {
		case stCommand:
			s.command(b)
		case stFunction:
			s.function(b)
		default:
			s.write(b)
		}
	case stMatch:
		s.filter(m)
		s.pos++
		if s.pos == rom.Bits {
			s.st = stFunction
		}
	case stSearch:
		if s.sub < 2 {
			s.sub++
			return
		}
		s.filter(m)
		s.sub = 0
		s.pos++
		if s.pos == rom.Bits {
			s.st = stFunction
		}
	}
}

func (s *Sim) filter(m byte) {
	keep := s.sel[:0]
	for _, d := range s.sel {
		if bit(d.ROM, s.pos) == m {
			keep = append(keep, d)
		}
	}
	s.sel = keep
}

func (s *Sim) command(b byte) {
	s.Commands = append(s.Commands, b)
	s.sel = append([]*Device(nil), s.Devices...)
	s.pos, s.sub = 0, 0
	switch b {
	case 0x33: // READ ROM
		for _, d := range s.sel {
			d.tx = d.ROM.Bits()
		}
		s.st, s.next = stTx, stFunction
	case 0x55: // MATCH ROM
		s.st = stMatch
	case 0xcc: // SKIP ROM
		s.st = stFunction
	case 0xf0: // SEARCH ROM
		s.st = stSearch
	case 0xec: // ALARM SEARCH
		keep := s.sel[:0]
		for _, d := range s.sel {
			if d.Alarm {
				keep = append(keep, d)
			}
		}
		s.sel = keep
		s.st = stSearch
	default:
		s.st = stIdle
	}
}

func (s *Sim) function(b byte) {
	s.Functions = append(s.Functions, b)
	switch b {
	case 0x44: // CONVERT T
		for _, d := range s.sel {
			d.Conversions++
		}
		s.startBusy()
	case 0xbe: // READ SCRATCHPAD
		for _, d := range s.sel {
			data := append(d.Scratchpad[:], common.CRC8(d.Scratchpad[:]))
			if d.BadReads > 0 {
				d.BadReads--
				data[8] ^= 0x5a
			}
			d.tx = d.tx[:0]
			for _, v := range data {
				for i := 0; i < 8; i++ {
					d.tx = append(d.tx, (v>>uint(i))&1)
				}
			}
		}
		s.st, s.next = stTx, stIdle
	case 0x4e: // WRITE SCRATCHPAD
		s.st = stWrite
		s.wr = 0
	case 0x48: // COPY SCRATCHPAD
		for _, d := range s.sel {
			copy(d.EEPROM[:], d.Scratchpad[2:5])
			d.Copies++
		}
		s.startBusy()
	case 0xb8: // RECALL E²
		for _, d := range s.sel {
			copy(d.Scratchpad[2:5], d.EEPROM[:])
			d.Recalls++
		}
		s.startBusy()
	case 0xb4: // READ POWER SUPPLY
		s.st = stPower
	default:
		s.st = stIdle
	}
}

func (s *Sim) write(b byte) {
	for _, d := range s.sel {
		if i := 2 + s.wr; i < 5 {
			d.Scratchpad[i] = b
		}
	}
	s.wr++
}

func (s *Sim) startBusy() {
	s.busy = 0
	for _, d := range s.sel {
		if !d.Parasitic && d.BusyPolls > s.busy {
			s.busy = d.BusyPolls
		}
	}
	s.st = stBusy
}

func bit(c rom.Code, i int) byte {
	return (c[i/8] >> uint(i%8)) & 1
}
