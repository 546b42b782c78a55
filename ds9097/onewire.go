// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ds9097

import (
	"periph.io/x/conn/v3/onewire"
)

// Tx performs a bus transaction: reset, write w, then read len(r) bytes into
// r.
//
// The UART cannot drive a strong pull-up, power is ignored. Parasitically
// powered devices need the line driver circuit to keep them supplied, and the
// caller must sleep for the duration of the operation.
func (d *Dev) Tx(w, r []byte, power onewire.Pullup) error {
	d.Lock()
	defer d.Unlock()

	if err := d.Reset(); err != nil {
		return err
	}
	if err := d.WriteBytes(w); err != nil {
		return err
	}
	if len(r) == 0 {
		return nil
	}
	b, err := d.ReadBytes(len(r))
	if err != nil {
		return err
	}
	copy(r, b)
	return nil
}

// Search performs a "search" cycle on the 1-wire bus and returns the addresses
// of all devices on the bus if alarmOnly is false and of all devices in alarm
// state if alarmOnly is true.
//
// If an error occurs during the search the already-discovered devices are
// returned with the error.
func (d *Dev) Search(alarmOnly bool) ([]onewire.Address, error) {
	d.Lock()
	defer d.Unlock()

	codes, err := d.SearchROMs(alarmOnly)
	addrs := make([]onewire.Address, 0, len(codes))
	for _, c := range codes {
		addrs = append(addrs, c.Address())
	}
	return addrs, err
}

// SearchTriplet reads a bit and its complement and writes the bit taken,
// which is direction when devices disagree.
//
// SearchTriplet should not be used directly, use Search instead. It lets
// onewire.Search drive this master.
func (d *Dev) SearchTriplet(direction byte) (onewire.TripletResult, error) {
	b1, b2, err := d.readPair()
	if err != nil {
		return onewire.TripletResult{}, err
	}
	tr := onewire.TripletResult{
		GotZero: b1 == 0,
		GotOne:  b2 == 0,
	}
	switch {
	case tr.GotZero && tr.GotOne:
		if direction != 0 {
			tr.Taken = 1
		}
	case tr.GotZero:
		tr.Taken = 0
	default:
		tr.Taken = 1
	}
	return tr, d.WriteBit(tr.Taken)
}
