// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ds9097

import (
	"github.com/GermanBionicSystems/digitemp/owerr"
	"github.com/GermanBionicSystems/digitemp/rom"
)

// ReadROM reads the ROM code of the only device on the bus (READ ROM, 0x33).
//
// If more than one device is present their answers collide and the result
// fails the CRC check.
func (d *Dev) ReadROM() (rom.Code, error) {
	var c rom.Code
	if err := d.Reset(); err != nil {
		return c, err
	}
	if err := d.WriteByte(cmdReadROM); err != nil {
		return c, err
	}
	b, err := d.ReadBytes(rom.Size)
	if err != nil {
		return c, err
	}
	copy(c[:], b)
	if !c.Valid() {
		return c, owerr.CRCf("read ROM", "CRC error")
	}
	return c, nil
}

// MatchROM addresses the device with the ROM code c (MATCH ROM, 0x55). All
// other devices wait for the next reset.
func (d *Dev) MatchROM(c rom.Code) error {
	if err := d.Reset(); err != nil {
		return err
	}
	if err := d.WriteByte(cmdMatchROM); err != nil {
		return err
	}
	return d.WriteBytes(c[:])
}

// SkipROM addresses all devices on the bus at once (SKIP ROM, 0xCC).
func (d *Dev) SkipROM() error {
	if err := d.Reset(); err != nil {
		return err
	}
	return d.WriteByte(cmdSkipROM)
}

// IsConnected returns true if the device with the ROM code c answers a search
// cycle that follows its code.
func (d *Dev) IsConnected(c rom.Code) (bool, error) {
	if err := d.Reset(); err != nil {
		return false, err
	}
	if err := d.WriteByte(cmdSearchROM); err != nil {
		return false, err
	}
	for _, bit := range c.Bits() {
		b1, b2, err := d.readPair()
		if err != nil {
			return false, err
		}
		if b1 == 1 && b2 == 1 {
			return false, nil
		}
		if err := d.WriteBit(bit); err != nil {
			return false, err
		}
	}
	return true, nil
}

// SearchROMs returns the ROM codes of all devices on the bus (SEARCH ROM,
// 0xF0) or, if alarmOnly is set, of the devices with their alarm flag set
// (ALARM SEARCH, 0xEC).
//
// Every search cycle follows one path in the tree of ROM codes. Where devices
// disagree on a bit the cycle continues with 0 and the path ending in 1 is
// queued, so each device is found by exactly one cycle.
//
// If an error occurs during the search the already-discovered devices are
// returned with the error.
func (d *Dev) SearchROMs(alarmOnly bool) ([]rom.Code, error) {
	cmd := byte(cmdSearchROM)
	if alarmOnly {
		cmd = cmdAlarmSearch
	}
	var found []rom.Code
	pending := [][]byte{{}}
	for len(pending) != 0 {
		prefix := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		path, forks, err := d.searchCycle(cmd, prefix)
		pending = append(pending, forks...)
		if err != nil {
			return found, err
		}
		if path == nil {
			// No more alarming devices down this path.
			continue
		}
		c, err := rom.FromBits(path)
		if err != nil {
			return found, err
		}
		if err := c.Check(); err != nil {
			return found, err
		}
		found = append(found, c)
	}
	return found, nil
}

// ConnectedROMs returns the ROM codes of all devices in textual form.
func (d *Dev) ConnectedROMs() ([]string, error) {
	return d.searchStrings(false)
}

// AlarmROMs returns the ROM codes of the alarming devices in textual form.
func (d *Dev) AlarmROMs() ([]string, error) {
	return d.searchStrings(true)
}

//

func (d *Dev) searchStrings(alarmOnly bool) ([]string, error) {
	codes, err := d.SearchROMs(alarmOnly)
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		out = append(out, c.String())
	}
	return out, err
}

// searchCycle runs one search cycle. It replays prefix, then resolves the
// remaining bits. It returns the 64 bit path, or nil if an alarm search ran out
// of devices, and the paths forked off at collisions.
func (d *Dev) searchCycle(cmd byte, prefix []byte) ([]byte, [][]byte, error) {
	if err := d.Reset(); err != nil {
		return nil, nil, err
	}
	if err := d.WriteByte(cmd); err != nil {
		return nil, nil, err
	}
	for _, bit := range prefix {
		if _, _, err := d.readPair(); err != nil {
			return nil, nil, err
		}
		if err := d.WriteBit(bit); err != nil {
			return nil, nil, err
		}
	}
	var forks [][]byte
	path := make([]byte, len(prefix), rom.Bits)
	copy(path, prefix)
	for len(path) < rom.Bits {
		b1, b2, err := d.readPair()
		if err != nil {
			return nil, forks, err
		}
		switch {
		case b1 != b2:
			// All remaining devices agree on this bit.
		case b1 == 0:
			// Collision: come back for the devices with a 1 later.
			fork := make([]byte, len(path)+1, rom.Bits)
			copy(fork, path)
			fork[len(path)] = 1
			forks = append(forks, fork)
		default:
			if cmd == cmdAlarmSearch {
				return nil, forks, nil
			}
			return nil, forks, owerr.Adapterf("search ROM", "unexpected double-one at bit %d", len(path))
		}
		path = append(path, b1)
		if err := d.WriteBit(b1); err != nil {
			return nil, forks, err
		}
	}
	return path, forks, nil
}

// readPair reads a bit and its complement.
func (d *Dev) readPair() (byte, byte, error) {
	b1, err := d.ReadBit()
	if err != nil {
		return 0, 0, err
	}
	b2, err := d.ReadBit()
	if err != nil {
		return 0, 0, err
	}
	return b1, b2, nil
}
