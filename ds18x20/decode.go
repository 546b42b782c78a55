// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ds18x20

import (
	"math"

	"github.com/GermanBionicSystems/digitemp/owerr"
)

// DecodeDS18S20 returns the temperature in °C held in a DS18S20 scratchpad.
//
// The register has 0.5°C resolution. When precise is set the fraction is
// refined with COUNT_REMAIN (spad[6]) and COUNT_PER_C (spad[7]), datasheet
// p.6:
//
//	TEMPERATURE = TEMP_READ - 0.25 + (COUNT_PER_C - COUNT_REMAIN) / COUNT_PER_C
//
// where TEMP_READ is the register with the 0.5°C bit truncated. The result is
// rounded to 2 decimals.
func DecodeDS18S20(spad []byte, precise bool) (float64, error) {
	if err := checkLen(spad); err != nil {
		return 0, err
	}
	// The sign is extended over the whole MSB.
	if spad[1] != 0x00 && spad[1] != 0xff {
		return 0, owerr.Formatf("decode", "temperature sign error: 0x%02x", spad[1])
	}
	raw := int16(uint16(spad[1])<<8 | uint16(spad[0]))
	t := float64(raw) / 2
	if !precise {
		return t, nil
	}
	remain, perC := float64(spad[6]), float64(spad[7])
	if perC == 0 {
		return 0, owerr.Formatf("decode", "count per degree is 0")
	}
	t = math.Floor(t) - 0.25 + (perC-remain)/perC
	return math.RoundToEven(t*100) / 100, nil
}

// Decode12Bit returns the temperature in °C held in a DS18B20 or DS1822
// scratchpad.
//
// The register is sign extended 12 bits with 4 fractional bits, datasheet p.4.
// At lower resolutions the undefined low bits are reported as is.
func Decode12Bit(spad []byte) (float64, error) {
	if err := checkLen(spad); err != nil {
		return 0, err
	}
	raw := int16(uint16(spad[1])<<8 | uint16(spad[0]))
	// Bits 15..11 all hold the sign.
	if s := uint16(raw) >> 11; s != 0 && s != 0x1f {
		return 0, owerr.Formatf("decode", "temperature sign error: 0x%04x", uint16(raw))
	}
	return float64(raw) / 16, nil
}

func decode12Bit(spad []byte, _ bool) (float64, error) {
	return Decode12Bit(spad)
}

func checkLen(spad []byte) error {
	if len(spad) < ScratchpadSize {
		return owerr.Formatf("decode", "scratchpad needs %d bytes, got %d", ScratchpadSize, len(spad))
	}
	return nil
}
