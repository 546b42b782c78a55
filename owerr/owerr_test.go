// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package owerr

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"periph.io/x/conn/v3/onewire"
)

func TestError(t *testing.T) {
	var tests = []struct {
		err  error
		kind Kind
		msg  string
		bus  bool
	}{
		{Formatf("parse", "invalid length %d", 3), Format, "parse: invalid length 3", false},
		{CRCf("read ROM", "CRC error"), CRC, "read ROM: CRC error", true},
		{Adapterf("reset", "presence error: 0x%02x", 0x05), Adapter, "reset: presence error: 0x05", true},
		{Devicef("", "cannot lock serial port: %s", "/dev/ttyS0"), Device, "cannot lock serial port: /dev/ttyS0", false},
		{Wrap("write", io.ErrClosedPipe), Device, "write: io: read/write on closed pipe", false},
	}
	for _, test := range tests {
		if k := KindOf(test.err); k != test.kind {
			t.Errorf("%v: kind %s, expected %s", test.err, k, test.kind)
		}
		if s := test.err.Error(); s != test.msg {
			t.Errorf("message %q, expected %q", s, test.msg)
		}
		b, ok := test.err.(onewire.BusError)
		if !ok {
			t.Fatalf("%v does not implement onewire.BusError", test.err)
		}
		if b.BusError() != test.bus {
			t.Errorf("%v: BusError()=%t", test.err, b.BusError())
		}
	}
}

func TestKindOf_wrapped(t *testing.T) {
	err := fmt.Errorf("sensor 1: %w", CRCf("read scratchpad", "CRC error"))
	if !Is(err, CRC) {
		t.Fatal("wrapped CRC error not detected")
	}
	if Is(err, Adapter) {
		t.Fatal("wrong kind")
	}
	if KindOf(errors.New("plain")) != Unknown {
		t.Fatal("plain error has a kind")
	}
	if Is(nil, Unknown) {
		t.Fatal("nil carries no kind")
	}
}

func TestWrap(t *testing.T) {
	if Wrap("op", nil) != nil {
		t.Fatal("nil must stay nil")
	}
	orig := Adapterf("reset", "no device present")
	if Wrap("op", orig) != orig {
		t.Fatal("kinded errors must pass through")
	}
	if !errors.Is(Wrap("op", io.EOF), io.EOF) {
		t.Fatal("cause lost")
	}
}

func TestKind_String(t *testing.T) {
	for k, s := range map[Kind]string{Unknown: "unknown error", Format: "format error", CRC: "CRC error", Adapter: "adapter error", Device: "device error"} {
		if k.String() != s {
			t.Errorf("%d: %q", k, k.String())
		}
	}
}
