// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"fmt"
	"math"
	"time"

	"github.com/GermanBionicSystems/digitemp/ds18x20"
	"github.com/GermanBionicSystems/digitemp/heatstrip"
	"github.com/spf13/cobra"
)

var convertAll = ds18x20.ConvertAll

type watchFlags struct {
	count    int
	interval time.Duration
	min, max float64
}

func newWatchCmd(a *app) *cobra.Command {
	flags := &watchFlags{}
	cmd := &cobra.Command{
		Use:   "watch [ROM...]",
		Short: "Read the temperature sensors periodically",
		Long: `Start a conversion on every sensor at once, then read them one by one and
show the readings as a heat strip. Runs until interrupted unless --count is
given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("interval") {
				flags.interval = a.cfg.Interval
			}
			return a.runWatch(cmd, args, flags)
		},
	}
	cmd.Flags().IntVar(&flags.count, "count", 0, "number of readings, 0 runs until interrupted")
	cmd.Flags().DurationVar(&flags.interval, "interval", 0, "time between readings, defaults to the configured interval")
	cmd.Flags().Float64Var(&flags.min, "min", heatstrip.DefaultOpts.Min, "temperature shown as the cold colour")
	cmd.Flags().Float64Var(&flags.max, "max", heatstrip.DefaultOpts.Max, "temperature shown as the hot colour")
	return cmd
}

func (a *app) runWatch(cmd *cobra.Command, args []string, flags *watchFlags) error {
	if flags.count < 0 {
		return fmt.Errorf("invalid count %d", flags.count)
	}
	if flags.interval <= 0 {
		return fmt.Errorf("invalid interval %s", flags.interval)
	}
	cold, hot, err := a.cfg.Colors.RGBA()
	if err != nil {
		return err
	}
	bus, err := a.openBus()
	if err != nil {
		return err
	}
	defer bus.Close()

	devs, err := a.devices(bus, args, false)
	if err != nil {
		return err
	}
	strip, err := heatstrip.New(&heatstrip.Opts{
		X:    len(devs),
		Cold: cold,
		Hot:  hot,
		Min:  flags.min,
		Max:  flags.max,
		W:    a.out,
	})
	if err != nil {
		return err
	}
	defer strip.Halt()

	// A single conversion serves every device, wait for the slowest one.
	bits := 9
	for _, d := range devs {
		r := d.Resolution()
		if r == 0 {
			r = 12
		}
		if r > bits {
			bits = r
		}
	}

	ctx := cmd.Context()
	temps := make([]float64, len(devs))
	for i := 0; flags.count == 0 || i < flags.count; i++ {
		if i != 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(flags.interval):
			}
		}
		if err := convertAll(bus, bits); err != nil {
			a.log.Error("convert: %v", err)
			continue
		}
		for j, d := range devs {
			t, err := d.LastTemp()
			if err != nil {
				a.log.Error("%s: %v", a.cfg.Name(d.ROM()), err)
				temps[j] = math.NaN()
				continue
			}
			temps[j] = t
			a.log.Verbose("%s: %.2f°C", a.cfg.Name(d.ROM()), t)
		}
		if err := strip.Show(temps); err != nil {
			return err
		}
	}
	return nil
}
