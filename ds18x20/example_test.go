// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ds18x20_test

import (
	"fmt"
	"log"

	"github.com/GermanBionicSystems/digitemp/ds18x20"
	"github.com/GermanBionicSystems/digitemp/ds9097"
	"periph.io/x/host/v3"
)

func Example() {
	if _, err := host.Init(); err != nil {
		log.Fatal(err)
	}
	bus, err := ds9097.Open("/dev/ttyUSB0", nil)
	if err != nil {
		log.Fatal(err)
	}
	defer bus.Close()

	codes, err := bus.SearchROMs(false)
	if err != nil {
		log.Fatal(err)
	}
	for i := range codes {
		dev, err := ds18x20.New(bus, &codes[i], nil, nil)
		if err != nil {
			log.Println(err)
			continue
		}
		if t, ok := dev.GetTemperature(0); ok {
			fmt.Printf("%s: %.2f°C\n", dev, t)
		}
	}
}

func ExampleConvertAll() {
	if _, err := host.Init(); err != nil {
		log.Fatal(err)
	}
	bus, err := ds9097.Open("/dev/ttyUSB0", nil)
	if err != nil {
		log.Fatal(err)
	}
	defer bus.Close()

	dev, err := ds18x20.NewFromString(bus, "28AC410E07000074", nil, nil)
	if err != nil {
		log.Fatal(err)
	}
	// One conversion for every device on the bus, then read each of them.
	if err := ds18x20.ConvertAll(bus, 12); err != nil {
		log.Fatal(err)
	}
	t, err := dev.LastTemp()
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("%.4f°C\n", t)
}
