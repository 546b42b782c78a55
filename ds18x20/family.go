// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ds18x20

import (
	"sort"
	"time"
)

// Family code of the specific device type
type Family byte

func (f Family) String() string {
	switch f {
	case DS18S20:
		return "DS18S20"
	case DS1822:
		return "DS1822"
	case DS18B20:
		return "DS18B20"
	default:
		return "unknown"
	}
}

const (
	DS18S20 Family = 0x10 // also DS1820 and DS1920
	DS1822  Family = 0x22
	DS18B20 Family = 0x28
)

// Decoder converts the 8 scratchpad data bytes into degrees Celsius.
//
// precise only matters for devices that report a count remain.
type Decoder func(spad []byte, precise bool) (float64, error)

// Model describes one supported device family.
type Model struct {
	Family      Family
	Description string
	Decode      Decoder
	// ConvTime is the temperature conversion time. For devices with a
	// configuration register it is derived from the resolution instead.
	ConvTime time.Duration
	// WriteTime is the EEPROM write time.
	WriteTime time.Duration
	// Configurable is set when the scratchpad carries a configuration
	// register selecting the resolution.
	Configurable bool
}

// Registry maps family codes to models. It is immutable once built.
type Registry struct {
	models map[Family]Model
}

// NewRegistry returns a registry of the given models. A later model replaces
// an earlier one with the same family.
func NewRegistry(models ...Model) *Registry {
	r := &Registry{models: make(map[Family]Model, len(models))}
	for _, m := range models {
		r.models[m.Family] = m
	}
	return r
}

// DefaultRegistry returns a registry of the thermometers this package knows.
func DefaultRegistry() *Registry {
	return NewRegistry(
		Model{
			Family:      DS18S20,
			Description: names[byte(DS18S20)],
			Decode:      DecodeDS18S20,
			ConvTime:    750 * time.Millisecond,
			WriteTime:   10 * time.Millisecond,
		},
		Model{
			Family:       DS1822,
			Description:  names[byte(DS1822)],
			Decode:       decode12Bit,
			ConvTime:     conversionTime(12),
			WriteTime:    10 * time.Millisecond,
			Configurable: true,
		},
		Model{
			Family:       DS18B20,
			Description:  names[byte(DS18B20)],
			Decode:       decode12Bit,
			ConvTime:     conversionTime(12),
			WriteTime:    10 * time.Millisecond,
			Configurable: true,
		},
	)
}

// Lookup returns the model for family f.
func (r *Registry) Lookup(f Family) (Model, bool) {
	m, ok := r.models[f]
	return m, ok
}

// Families returns the registered family codes in ascending order.
func (r *Registry) Families() []Family {
	out := make([]Family, 0, len(r.models))
	for f := range r.models {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// DeviceName returns a human readable name for a ROM family code.
func DeviceName(family byte) string {
	if n, ok := names[family]; ok {
		return n
	}
	return "Unknown 1-Wire device"
}

var names = map[byte]string{
	0x01: "DS2401 - Silicon Serial Number",
	0x10: "DS18S20 - High-precision Digital Thermometer",
	0x22: "DS1822 - Econo Digital Thermometer",
	0x28: "DS18B20 - Programmable Resolution Digital Thermometer",
}

// conversionTime returns the time a conversion takes at the given resolution:
// 9bits:93.75ms, 10bits:187.5ms, 11bits:375ms, 12bits:750ms, datasheet p.3.
func conversionTime(bits int) time.Duration {
	return (750 * time.Millisecond) >> uint(12-bits)
}
