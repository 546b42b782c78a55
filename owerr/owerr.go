// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package owerr defines the closed set of failures reported by the 1-Wire
// packages.
//
// Every error returned by rom, ds9097 and ds18x20 is an *Error carrying one
// Kind. Use KindOf or Is to discriminate:
//
//	if owerr.Is(err, owerr.CRC) {
//		// retry the read
//	}
package owerr

import (
	"errors"
	"fmt"
)

// Kind is the category of a 1-Wire failure.
type Kind uint8

const (
	// Unknown is returned by KindOf for errors not created by this package.
	Unknown Kind = iota
	// Format is a caller input error: malformed hex string, wrong-length byte
	// or bit buffer, structurally inconsistent register value.
	Format
	// CRC is a CRC8 mismatch on a ROM code or a scratchpad read.
	CRC
	// Adapter is a transport or protocol fault on the bus: no presence pulse,
	// noise, short reads, malformed search responses.
	Adapter
	// Device is a channel-level failure (open, lock, close, I/O) or a device
	// not matching the expected class.
	Device
)

func (k Kind) String() string {
	switch k {
	case Format:
		return "format error"
	case CRC:
		return "CRC error"
	case Adapter:
		return "adapter error"
	case Device:
		return "device error"
	default:
		return "unknown error"
	}
}

// Error is a 1-Wire failure.
type Error struct {
	Kind Kind
	Op   string // operation that failed, e.g. "reset"
	Msg  string
	Err  error // underlying cause, may be nil
}

func (e *Error) Error() string {
	s := e.Msg
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Err != nil {
		if e.Msg == "" {
			s += e.Err.Error()
		} else {
			s += ": " + e.Err.Error()
		}
	}
	return s
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// BusError implements onewire.BusError.
//
// CRC and adapter failures are faults of the 1-Wire bus itself, the host side
// is still operational.
func (e *Error) BusError() bool {
	return e.Kind == CRC || e.Kind == Adapter
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Is reports whether err carries the kind k.
func Is(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

// Formatf returns a Format error.
func Formatf(op, format string, a ...interface{}) error {
	return &Error{Kind: Format, Op: op, Msg: fmt.Sprintf(format, a...)}
}

// CRCf returns a CRC error.
func CRCf(op, format string, a ...interface{}) error {
	return &Error{Kind: CRC, Op: op, Msg: fmt.Sprintf(format, a...)}
}

// Adapterf returns an Adapter error.
func Adapterf(op, format string, a ...interface{}) error {
	return &Error{Kind: Adapter, Op: op, Msg: fmt.Sprintf(format, a...)}
}

// Devicef returns a Device error.
func Devicef(op, format string, a ...interface{}) error {
	return &Error{Kind: Device, Op: op, Msg: fmt.Sprintf(format, a...)}
}

// Wrap returns a Device error wrapping a channel failure. It returns nil if
// err is nil and err unchanged if it already carries a kind.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != Unknown {
		return err
	}
	return &Error{Kind: Device, Op: op, Err: err}
}
