// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/GermanBionicSystems/digitemp/config"
	"github.com/GermanBionicSystems/digitemp/ds18x20"
	"github.com/GermanBionicSystems/digitemp/ds9097"
	"github.com/GermanBionicSystems/digitemp/logging"
	"github.com/GermanBionicSystems/digitemp/rom"
	"github.com/spf13/cobra"
)

type rootFlags struct {
	config   string
	device   string
	backend  string
	logLevel string
}

// app is the state shared by the subcommands.
type app struct {
	flags rootFlags
	cfg   *config.Config
	log   *logging.Logger
	out   io.Writer
	open  func(name string, opts *ds9097.Opts) (*ds9097.Dev, error)
}

func newApp(out io.Writer) *app {
	return &app{out: out, open: ds9097.Open}
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "digitemp",
		Short: "Read 1-Wire temperature sensors through a serial adapter",
		Long: `digitemp drives a 1-Wire bus through a UART adapter such as the DS9097,
lists the devices connected to it and reads DS18S20, DS1822 and DS18B20
thermometers.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.teardown()
		},
	}
	f := rootCmd.PersistentFlags()
	f.StringVar(&a.flags.config, "config", config.DefaultPath, "configuration file")
	f.StringVar(&a.flags.device, "device", "", "serial device of the adapter")
	f.StringVar(&a.flags.backend, "backend", "", "serial backend: serial, tarm or goburrow")
	f.StringVar(&a.flags.logLevel, "log-level", "", "silent, error, info, verbose or debug")

	rootCmd.AddCommand(newVersionCmd(a))
	rootCmd.AddCommand(newRomsCmd(a))
	rootCmd.AddCommand(newAlarmsCmd(a))
	rootCmd.AddCommand(newInfoCmd(a))
	rootCmd.AddCommand(newReadCmd(a))
	rootCmd.AddCommand(newWatchCmd(a))
	rootCmd.AddCommand(newInitCmd(a))
	return rootCmd
}

// setup loads the configuration, applies the flag overrides and creates the
// logger. A missing configuration file means the defaults.
func (a *app) setup(cmd *cobra.Command) error {
	cfg := config.Default()
	if _, err := os.Stat(a.flags.config); err == nil {
		if cfg, err = config.Load(a.flags.config, false); err != nil {
			return err
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("config: %w", err)
	}
	flags := cmd.Flags()
	if flags.Changed("device") {
		cfg.Device = a.flags.device
	}
	if flags.Changed("backend") {
		cfg.Backend = a.flags.backend
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.flags.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	l, err := logging.New(cfg.Level(), cfg.LogFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = l
	a.log.Debug("config %s: device %s, backend %s", a.flags.config, cfg.Device, cfg.Backend)
	return nil
}

func (a *app) teardown() error {
	if a.log == nil {
		return nil
	}
	return a.log.Close()
}

func (a *app) openBus() (*ds9097.Dev, error) {
	opts := a.cfg.BusOpts()
	bus, err := a.open(a.cfg.Device, &opts)
	if err != nil {
		return nil, err
	}
	a.log.Verbose("opened %s", bus)
	return bus, nil
}

// devices returns handles for the thermometers named by args, or the
// configured sensors, or else every supported device found on the bus.
// Devices that cannot be reached are logged and skipped.
func (a *app) devices(bus *ds9097.Dev, args []string, single bool) ([]*ds18x20.Dev, error) {
	reg := ds18x20.DefaultRegistry()
	opts := a.cfg.DeviceOpts(a.log)
	if single {
		d, err := ds18x20.New(bus, nil, reg, &opts)
		if err != nil {
			return nil, err
		}
		return []*ds18x20.Dev{d}, nil
	}
	var codes []rom.Code
	switch {
	case len(args) != 0:
		for _, s := range args {
			c, err := rom.Parse(s)
			if err != nil {
				return nil, err
			}
			codes = append(codes, c)
		}
	case len(a.cfg.Sensors) != 0:
		codes = a.cfg.Codes()
	default:
		found, err := bus.SearchROMs(false)
		if err != nil {
			return nil, err
		}
		for _, c := range found {
			if _, ok := reg.Lookup(ds18x20.Family(c.Family())); !ok {
				a.log.Verbose("skipping %s: %s", c, ds18x20.DeviceName(c.Family()))
				continue
			}
			codes = append(codes, c)
		}
	}
	var devs []*ds18x20.Dev
	for i := range codes {
		d, err := ds18x20.New(bus, &codes[i], reg, &opts)
		if err != nil {
			a.log.Error("%s: %v", codes[i], err)
			continue
		}
		devs = append(devs, d)
	}
	if len(devs) == 0 {
		return nil, errors.New("no temperature sensor found")
	}
	return devs, nil
}
