// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

type readFlags struct {
	single   bool
	attempts int
}

func newReadCmd(a *app) *cobra.Command {
	flags := &readFlags{}
	cmd := &cobra.Command{
		Use:   "read [ROM...]",
		Short: "Read the temperature sensors once",
		Long: `Read the temperature sensors named on the command line, or the
configured ones, or else every sensor found on the bus. Failed readings are
logged and the remaining sensors are still read.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runRead(args, flags)
		},
	}
	cmd.Flags().BoolVar(&flags.single, "single", false, "address the only device on the bus without its ROM code")
	cmd.Flags().IntVar(&flags.attempts, "attempts", 0, "scratchpad reads on CRC errors, 0 uses the configured value")
	return cmd
}

func (a *app) runRead(args []string, flags *readFlags) error {
	if flags.attempts < 0 {
		return fmt.Errorf("invalid attempts %d", flags.attempts)
	}
	bus, err := a.openBus()
	if err != nil {
		return err
	}
	defer bus.Close()

	devs, err := a.devices(bus, args, flags.single)
	if err != nil {
		return err
	}
	ok := 0
	for _, d := range devs {
		t, valid := d.GetTemperature(flags.attempts)
		if !valid {
			fmt.Fprintf(a.out, "%s: error\n", a.cfg.Name(d.ROM()))
			continue
		}
		ok++
		fmt.Fprintf(a.out, "%s: %.2f°C\n", a.cfg.Name(d.ROM()), t)
	}
	if ok == 0 {
		return errors.New("no temperature read")
	}
	return nil
}
