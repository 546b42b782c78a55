// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

type infoFlags struct {
	single bool
}

func newInfoCmd(a *app) *cobra.Command {
	flags := &infoFlags{}
	cmd := &cobra.Command{
		Use:   "info [ROM...]",
		Short: "Describe the temperature sensors",
		Long: `Describe the temperature sensors named on the command line, or the
configured ones, or else every sensor found on the bus.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInfo(args, flags)
		},
	}
	cmd.Flags().BoolVar(&flags.single, "single", false, "address the only device on the bus without its ROM code")
	return cmd
}

func (a *app) runInfo(args []string, flags *infoFlags) error {
	bus, err := a.openBus()
	if err != nil {
		return err
	}
	defer bus.Close()

	devs, err := a.devices(bus, args, flags.single)
	if err != nil {
		return err
	}
	for i, d := range devs {
		if i != 0 {
			fmt.Fprintln(a.out)
		}
		fmt.Fprintf(a.out, "Name: %s\n", a.cfg.Name(d.ROM()))
		fmt.Fprint(a.out, d.Info())
		if r := d.Resolution(); r != 0 {
			fmt.Fprintf(a.out, "Resolution: %d bits\n", r)
		}
		high, low, err := d.Alarms()
		if err != nil {
			a.log.Error("%s: %v", d, err)
			continue
		}
		fmt.Fprintf(a.out, "Alarms: %d°C..%d°C\n", low, high)
		if spad, err := d.Scratchpad(); err == nil {
			a.log.Hex(d.String(), spad[:])
		}
	}
	return nil
}
