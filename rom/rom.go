// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package rom implements the 64-bit ROM code identifying every 1-Wire device.
//
//	byte 0     family code
//	bytes 1..6 48-bit serial number
//	byte 7     CRC8 of bytes 0..6
//
// The textual form is 16 uppercase hexadecimal characters with the family code
// first, e.g. "10A75CA80208001A".
package rom

import (
	"encoding/binary"
	"encoding/hex"
	"strings"

	"github.com/GermanBionicSystems/digitemp/common"
	"github.com/GermanBionicSystems/digitemp/owerr"
	"periph.io/x/conn/v3/onewire"
)

// Size is the length of a ROM code in bytes.
const Size = 8

// Bits is the length of a ROM code in bits.
const Bits = 8 * Size

// Code is a ROM code in its raw 8-byte form.
type Code [Size]byte

// New returns the ROM code made of family and serial, with the CRC byte
// computed.
func New(family byte, serial [6]byte) Code {
	var c Code
	c[0] = family
	copy(c[1:7], serial[:])
	c[7] = common.CRC8(c[:7])
	return c
}

// Parse decodes a 16 character hexadecimal string.
//
// Either case is accepted. The canonical form, returned by String, is upper
// case, so Parse(s).String() == s only holds for upper case s. The CRC is not
// verified, use Check for that.
func Parse(s string) (Code, error) {
	var c Code
	if len(s) != 2*Size {
		return c, owerr.Formatf("rom", "invalid ROM code %q: expected %d hex characters, got %d", s, 2*Size, len(s))
	}
	if _, err := hex.Decode(c[:], []byte(s)); err != nil {
		return c, owerr.Formatf("rom", "invalid ROM code %q: %v", s, err)
	}
	return c, nil
}

// FromBytes returns the ROM code held in b, which must be exactly 8 bytes.
func FromBytes(b []byte) (Code, error) {
	var c Code
	if len(b) != Size {
		return c, owerr.Formatf("rom", "bytes array length shall be %d, got %d", Size, len(b))
	}
	copy(c[:], b)
	return c, nil
}

// FromAddress converts a periph onewire.Address.
func FromAddress(a onewire.Address) Code {
	var c Code
	binary.LittleEndian.PutUint64(c[:], uint64(a))
	return c
}

// BytesToBits expands b, which must be exactly 8 bytes, into the 64 bit
// sequence sent on the bus during a search, least significant bit of byte 0
// first. Each element is 0 or 1.
func BytesToBits(b []byte) ([]byte, error) {
	c, err := FromBytes(b)
	if err != nil {
		return nil, err
	}
	return c.Bits(), nil
}

// FromBits is the inverse of Code.Bits. bits must contain exactly 64 elements,
// any non-zero element is a 1.
func FromBits(bits []byte) (Code, error) {
	var c Code
	if len(bits) != Bits {
		return c, owerr.Formatf("rom", "bits array length shall be %d, got %d", Bits, len(bits))
	}
	for i, b := range bits {
		if b != 0 {
			c[i/8] |= 1 << uint(i%8)
		}
	}
	return c, nil
}

// String returns the canonical uppercase hexadecimal form.
func (c Code) String() string {
	return strings.ToUpper(hex.EncodeToString(c[:]))
}

// Family returns the family code identifying the device type.
func (c Code) Family() byte {
	return c[0]
}

// Serial returns the 48-bit serial number.
func (c Code) Serial() [6]byte {
	var s [6]byte
	copy(s[:], c[1:7])
	return s
}

// Bits returns the 64 bit search form, least significant bit of byte 0 first.
func (c Code) Bits() []byte {
	bits := make([]byte, 0, Bits)
	for _, b := range c {
		for n := 0; n < 8; n++ {
			bits = append(bits, b&1)
			b >>= 1
		}
	}
	return bits
}

// Valid returns true if the last byte is the CRC8 of the first seven.
func (c Code) Valid() bool {
	return common.CheckCRC8(c[:])
}

// Check returns a CRC error if the code is not Valid.
func (c Code) Check() error {
	if !c.Valid() {
		return owerr.CRCf("rom", "%s: CRC error, expected 0x%02X", c, common.CRC8(c[:7]))
	}
	return nil
}

// Address returns the code as a periph onewire.Address.
func (c Code) Address() onewire.Address {
	return onewire.Address(binary.LittleEndian.Uint64(c[:]))
}
