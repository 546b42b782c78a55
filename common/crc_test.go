// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package common

import (
	"testing"

	"periph.io/x/conn/v3/onewire"
)

func TestCRC8(t *testing.T) {
	var tests = []struct {
		bytes  []byte
		result byte
	}{
		{bytes: nil, result: 0x00},
		{bytes: []byte{0x10, 0xa7, 0x5c, 0xa8, 0x02, 0x08, 0x00}, result: 0x1a},
		{bytes: []byte{0x10, 0xa7, 0x5c, 0xa8, 0x02, 0x08, 0x00, 0x1a}, result: 0x00},
		{bytes: []byte{0x28, 0xac, 0x41, 0x0e, 0x07, 0x00, 0x00}, result: 0x74},
		{bytes: []byte{0xe0, 0x01, 0x00, 0x00, 0x3f, 0xff, 0x10, 0x10}, result: 0x3f},
	}
	for _, test := range tests {
		res := CRC8(test.bytes)
		if res != test.result {
			t.Errorf("CRC8(%#v)!=0x%02x received 0x%02x", test.bytes, test.result, res)
		}
	}
}

func TestCRC8_periph(t *testing.T) {
	buf := make([]byte, 0, 64)
	for i := 0; i < 64; i++ {
		buf = append(buf, byte(i*37+11))
		if got, want := CRC8(buf), onewire.CalcCRC(buf); got != want {
			t.Fatalf("len %d: got 0x%02x, periph 0x%02x", len(buf), got, want)
		}
	}
}

func TestChecksum(t *testing.T) {
	tab := MakeTable()
	data := []byte{0x01, 0x23, 0x45, 0x67, 0x89, 0xab, 0xcd, 0xef}
	if got, want := Checksum(data, tab), CRC8(data); got != want {
		t.Fatalf("table 0x%02x != bitwise 0x%02x", got, want)
	}
	if MakeTable() != tab {
		t.Fatal("table must be shared")
	}
}

func TestDigest(t *testing.T) {
	h := New()
	if h.Size() != 1 || h.BlockSize() != 1 {
		t.Fatal("unexpected sizes")
	}
	_, _ = h.Write([]byte{0x10, 0xa7, 0x5c})
	_, _ = h.Write([]byte{0xa8, 0x02, 0x08, 0x00})
	if s := h.Sum8(); s != 0x1a {
		t.Fatalf("Sum8 0x%02x", s)
	}
	if s := h.Sum([]byte{0xaa}); len(s) != 2 || s[1] != 0x1a {
		t.Fatalf("Sum %#v", s)
	}
	h.Reset()
	if h.Sum8() != 0 {
		t.Fatal("Reset")
	}
}

func TestCheckCRC8(t *testing.T) {
	if !CheckCRC8([]byte{0x10, 0xa7, 0x5c, 0xa8, 0x02, 0x08, 0x00, 0x1a}) {
		t.Fatal("valid ROM rejected")
	}
	if CheckCRC8([]byte{0x10, 0xa7, 0x5c, 0xa8, 0x02, 0x08, 0x00, 0x1b}) {
		t.Fatal("corrupted ROM accepted")
	}
	if CheckCRC8(nil) {
		t.Fatal("empty buffer has no CRC")
	}
}
