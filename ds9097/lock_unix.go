// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build unix

package ds9097

import (
	"github.com/GermanBionicSystems/digitemp/owerr"
	"golang.org/x/sys/unix"
)

// portLock is an advisory flock(2) on the serial device node.
type portLock struct {
	fd int
}

func lockPort(name string) (*portLock, error) {
	fd, err := unix.Open(name, unix.O_RDONLY|unix.O_NOCTTY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, owerr.Wrap("open "+name, err)
	}
	if err := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = unix.Close(fd)
		return nil, &owerr.Error{Kind: owerr.Device, Msg: "cannot lock serial port: " + name, Err: err}
	}
	return &portLock{fd: fd}, nil
}

func (l *portLock) release() error {
	if err := unix.Flock(l.fd, unix.LOCK_UN); err != nil {
		_ = unix.Close(l.fd)
		return &owerr.Error{Kind: owerr.Device, Msg: "cannot unlock serial port", Err: err}
	}
	return unix.Close(l.fd)
}
