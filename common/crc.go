// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package common contains functions used across multiple packages. For
// example, the Dallas/Maxim CRC8 protecting 1-Wire ROM codes and scratchpads.
package common

import (
	"hash"
	"sync"
)

// Size is the size of a CRC8 checksum in bytes.
const Size = 1

// Poly is the Dallas/Maxim polynomial x^8+x^5+x^4+1 (0x31) in reflected form.
const Poly = 0x8c

// Hash8 is the common interface implemented by all 8-bit hash functions.
type Hash8 interface {
	hash.Hash
	Sum8() byte
}

// Table is a 256-byte table representing the polynomial for efficient
// processing.
type Table [256]byte

var (
	maximTable *Table
	maximOnce  sync.Once
)

// MakeTable returns the Table for the Dallas/Maxim polynomial.
func MakeTable() *Table {
	maximOnce.Do(func() {
		t := new(Table)
		for i := range t {
			t[i] = CRC8([]byte{byte(i)})
		}
		maximTable = t
	})
	return maximTable
}

// CRC8 calculates the Dallas/Maxim 8-bit CRC of the byte slice parameter and
// returns the calculated value. It is used by every 1-Wire device to protect
// ROM codes and memory reads.
//
// Bits are processed least significant first, the CRC starts at 0.
func CRC8(bytes []byte) byte {
	var crc byte
	for _, val := range bytes {
		for range 8 {
			mix := (crc ^ val) & 0x01
			crc >>= 1
			if mix != 0 {
				crc ^= Poly
			}
			val >>= 1
		}
	}
	return crc
}

// Update returns the result of adding the bytes in p to the crc.
func Update(crc byte, tab *Table, p []byte) byte {
	for _, v := range p {
		crc = tab[crc^v]
	}
	return crc
}

// Checksum returns the CRC8 of data using the table.
func Checksum(data []byte, tab *Table) byte {
	return Update(0, tab, data)
}

// CheckCRC8 returns true if the last byte of buf is the CRC8 of the bytes
// preceding it.
func CheckCRC8(buf []byte) bool {
	if len(buf) == 0 {
		return false
	}
	return CRC8(buf[:len(buf)-1]) == buf[len(buf)-1]
}

// digest represents the partial evaluation of a checksum.
type digest struct {
	crc byte
	tab *Table
}

// New creates a new Hash8 computing the Dallas/Maxim CRC8.
func New() Hash8 { return &digest{0, MakeTable()} }

func (d *digest) Size() int { return Size }

func (d *digest) BlockSize() int { return 1 }

func (d *digest) Reset() { d.crc = 0 }

func (d *digest) Write(p []byte) (n int, err error) {
	d.crc = Update(d.crc, d.tab, p)
	return len(p), nil
}

func (d *digest) Sum8() byte { return d.crc }

func (d *digest) Sum(in []byte) []byte {
	return append(in, d.crc)
}
