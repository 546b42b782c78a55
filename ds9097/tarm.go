// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ds9097

import (
	"io"

	"github.com/GermanBionicSystems/digitemp/owerr"
	"github.com/tarm/serial"
)

// OpenTarmPort opens name with github.com/tarm/serial at DataBaud, 8-N-1.
//
// tarm/serial cannot change the speed of an open port, SetBaudRate reopens
// it.
func OpenTarmPort(name string, opts *PortOpts) (Port, error) {
	if opts == nil {
		opts = &DefaultOpts.PortOpts
	}
	l, err := lockPort(name)
	if err != nil {
		return nil, err
	}
	p := &tarmPort{
		cfg: serial.Config{
			Name:        name,
			Baud:        DataBaud,
			ReadTimeout: opts.ReadTimeout,
			Size:        serial.DefaultSize,
			Parity:      serial.ParityNone,
			StopBits:    serial.Stop1,
		},
		lock: l,
	}
	if p.port, err = openTarm(&p.cfg); err != nil {
		_ = l.release()
		return nil, owerr.Wrap("open "+name, err)
	}
	return p, nil
}

var openTarm = serial.OpenPort

// tarmPort implements Port with github.com/tarm/serial.
//
// port is nil once closed, including after a failed reopen.
type tarmPort struct {
	cfg  serial.Config
	port *serial.Port
	lock *portLock
}

func (p *tarmPort) Read(b []byte) (int, error) {
	if p.port == nil {
		return 0, io.ErrClosedPipe
	}
	return p.port.Read(b)
}

func (p *tarmPort) Write(b []byte) (int, error) {
	if p.port == nil {
		return 0, io.ErrClosedPipe
	}
	return p.port.Write(b)
}

func (p *tarmPort) SetBaudRate(baud int) error {
	if p.port == nil {
		return io.ErrClosedPipe
	}
	if p.cfg.Baud == baud {
		return nil
	}
	err := p.port.Close()
	p.port = nil
	if err != nil {
		return err
	}
	p.cfg.Baud = baud
	port, err := openTarm(&p.cfg)
	if err != nil {
		return err
	}
	p.port = port
	return nil
}

func (p *tarmPort) ResetBuffers() error {
	if p.port == nil {
		return io.ErrClosedPipe
	}
	return p.port.Flush()
}

func (p *tarmPort) Close() error {
	var err error
	if p.port != nil {
		err = p.port.Close()
		p.port = nil
	}
	if p.lock != nil {
		if err2 := p.lock.release(); err == nil {
			err = err2
		}
		p.lock = nil
	}
	return err
}
