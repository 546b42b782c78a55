// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ds9097

import (
	"io"

	"github.com/GermanBionicSystems/digitemp/owerr"
	"github.com/goburrow/serial"
)

// OpenGoburrowPort opens name with github.com/goburrow/serial at DataBaud,
// 8-N-1.
//
// Like tarm/serial it cannot change the speed of an open port, SetBaudRate
// reopens it. It has no way to discard pending data so ResetBuffers does
// nothing.
func OpenGoburrowPort(name string, opts *PortOpts) (Port, error) {
	if opts == nil {
		opts = &DefaultOpts.PortOpts
	}
	l, err := lockPort(name)
	if err != nil {
		return nil, err
	}
	p := &goburrowPort{
		cfg: serial.Config{
			Address:  name,
			BaudRate: DataBaud,
			DataBits: 8,
			StopBits: 1,
			Parity:   "N",
			Timeout:  opts.ReadTimeout,
		},
		lock: l,
	}
	if p.port, err = openGoburrow(&p.cfg); err != nil {
		_ = l.release()
		return nil, owerr.Wrap("open "+name, err)
	}
	return p, nil
}

var openGoburrow = serial.Open

// goburrowPort implements Port with github.com/goburrow/serial.
//
// port is nil once closed, including after a failed reopen.
type goburrowPort struct {
	cfg  serial.Config
	port serial.Port
	lock *portLock
}

func (p *goburrowPort) Read(b []byte) (int, error) {
	if p.port == nil {
		return 0, io.ErrClosedPipe
	}
	return p.port.Read(b)
}

func (p *goburrowPort) Write(b []byte) (int, error) {
	if p.port == nil {
		return 0, io.ErrClosedPipe
	}
	return p.port.Write(b)
}

func (p *goburrowPort) SetBaudRate(baud int) error {
	if p.port == nil {
		return io.ErrClosedPipe
	}
	if p.cfg.BaudRate == baud {
		return nil
	}
	err := p.port.Close()
	p.port = nil
	if err != nil {
		return err
	}
	p.cfg.BaudRate = baud
	port, err := openGoburrow(&p.cfg)
	if err != nil {
		return err
	}
	p.port = port
	return nil
}

func (p *goburrowPort) ResetBuffers() error {
	if p.port == nil {
		return io.ErrClosedPipe
	}
	return nil
}

func (p *goburrowPort) Close() error {
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
