// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ds9097

import (
	"time"

	"github.com/GermanBionicSystems/digitemp/owerr"
	"go.bug.st/serial"
)

// Backends accepted in Opts.Backend.
const (
	BackendSerial   = "serial"   // go.bug.st/serial
	BackendTarm     = "tarm"     // github.com/tarm/serial
	BackendGoburrow = "goburrow" // github.com/goburrow/serial
)

// PortOpts contains options to open a serial channel.
type PortOpts struct {
	// ReadTimeout bounds how long a read waits for the slot characters to come
	// back.
	ReadTimeout time.Duration
}

// Opts contains options to pass to Open.
type Opts struct {
	Backend string // BackendSerial (default), BackendTarm or BackendGoburrow
	PortOpts
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{
	Backend:  BackendSerial,
	PortOpts: PortOpts{ReadTimeout: 3 * time.Second},
}

// Open opens the serial device name, takes an advisory exclusive lock on it and
// returns a master driving the bus through it.
func Open(name string, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	var p Port
	var err error
	switch opts.Backend {
	case "", BackendSerial:
		p, err = OpenPort(name, &opts.PortOpts)
	case BackendTarm:
		p, err = OpenTarmPort(name, &opts.PortOpts)
	case BackendGoburrow:
		p, err = OpenGoburrowPort(name, &opts.PortOpts)
	default:
		return nil, owerr.Devicef("open", "unknown serial backend %q", opts.Backend)
	}
	if err != nil {
		return nil, err
	}
	return New(p, name), nil
}

// OpenPort opens name with go.bug.st/serial at DataBaud, 8-N-1.
//
// DTR is raised while the port is open, some adapters draw their line driver
// supply from it.
func OpenPort(name string, opts *PortOpts) (Port, error) {
	if opts == nil {
		opts = &DefaultOpts.PortOpts
	}
	l, err := lockPort(name)
	if err != nil {
		return nil, err
	}
	p := &bugstPort{
		mode: serial.Mode{
			BaudRate: DataBaud,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		},
		lock: l,
	}
	if p.port, err = serial.Open(name, &p.mode); err != nil {
		_ = l.release()
		return nil, owerr.Wrap("open "+name, err)
	}
	if err := p.port.SetReadTimeout(opts.ReadTimeout); err != nil {
		_ = p.Close()
		return nil, owerr.Wrap("open "+name, err)
	}
	if err := p.port.SetDTR(true); err != nil {
		_ = p.Close()
		return nil, owerr.Wrap("open "+name, err)
	}
	return p, nil
}

// bugstPort implements Port with go.bug.st/serial.
type bugstPort struct {
	port serial.Port
	mode serial.Mode
	lock *portLock
}

func (p *bugstPort) Read(b []byte) (int, error) {
	return p.port.Read(b)
}

func (p *bugstPort) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

func (p *bugstPort) SetBaudRate(baud int) error {
	if p.mode.BaudRate == baud {
		return nil
	}
	p.mode.BaudRate = baud
	return p.port.SetMode(&p.mode)
}

func (p *bugstPort) ResetBuffers() error {
	if err := p.port.ResetOutputBuffer(); err != nil {
		return err
	}
	return p.port.ResetInputBuffer()
}

func (p *bugstPort) Close() error {
	_ = p.port.SetDTR(false)
	err := p.port.Close()
	if err2 := p.lock.release(); err == nil {
		err = err2
	}
	return err
}
