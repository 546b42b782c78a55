// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/GermanBionicSystems/digitemp/config"
	"github.com/GermanBionicSystems/digitemp/ds18x20"
	"github.com/spf13/cobra"
)

type initFlags struct {
	force bool
}

func newInitCmd(a *app) *cobra.Command {
	flags := &initFlags{}
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Search the bus and write the sensors to the configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInit(flags)
		},
	}
	cmd.Flags().BoolVar(&flags.force, "force", false, "overwrite an existing configuration file")
	return cmd
}

func (a *app) runInit(flags *initFlags) error {
	path := a.flags.config
	if _, err := os.Stat(path); err == nil && !flags.force {
		return fmt.Errorf("%s already exists, use --force to overwrite it", path)
	}
	bus, err := a.openBus()
	if err != nil {
		return err
	}
	defer bus.Close()

	codes, err := bus.SearchROMs(false)
	if err != nil {
		return err
	}
	reg := ds18x20.DefaultRegistry()
	cfg := *a.cfg
	cfg.Sensors = nil
	for _, c := range codes {
		if _, ok := reg.Lookup(ds18x20.Family(c.Family())); !ok {
			a.log.Verbose("skipping %s: %s", c, ds18x20.DeviceName(c.Family()))
			continue
		}
		cfg.Sensors = append(cfg.Sensors, config.Sensor{
			ROM:  c.String(),
			Name: fmt.Sprintf("sensor%d", len(cfg.Sensors)+1),
		})
	}
	if err := cfg.Save(path); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Wrote %d sensor(s) to %s\n", len(cfg.Sensors), path)
	return nil
}
