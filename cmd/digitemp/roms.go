// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"

	"github.com/GermanBionicSystems/digitemp/ds18x20"
	"github.com/GermanBionicSystems/digitemp/ds9097"
	"github.com/GermanBionicSystems/digitemp/rom"
	"github.com/spf13/cobra"
)

func newRomsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "roms",
		Short: "List the ROM codes of the devices on the bus",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSearch(false)
		},
	}
}

func newAlarmsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "alarms",
		Short: "List the ROM codes of the devices with an alarm condition",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSearch(true)
		},
	}
}

func (a *app) runSearch(alarmOnly bool) error {
	bus, err := a.openBus()
	if err != nil {
		return err
	}
	defer bus.Close()

	var roms []string
	if alarmOnly {
		roms, err = bus.AlarmROMs()
	} else {
		roms, err = bus.ConnectedROMs()
	}
	// An empty bus is a valid answer, not a failure.
	if err != nil && !(errors.Is(err, ds9097.ErrNoDevice) && len(roms) == 0) {
		return err
	}
	if len(roms) == 0 {
		if alarmOnly {
			fmt.Fprintln(a.out, "No device in alarm state")
		} else {
			fmt.Fprintln(a.out, "No device found")
		}
		return nil
	}
	for _, s := range roms {
		c, err := rom.Parse(s)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s  %s\n", s, ds18x20.DeviceName(c.Family()))
	}
	a.log.Verbose("%d device(s) on %s", len(roms), bus)
	return nil
}
