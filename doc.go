// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package digitemp is a container for the packages reading 1-Wire
// thermometers through a serial port.
//
// ds9097 is the bus master driving the line with a UART, ds18x20 the
// DS18S20/DS1822/DS18B20 driver, rom and common the ROM code and CRC8 helpers.
// cmd/digitemp is the command line tool.
package digitemp
