// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ds18x20

import (
	"fmt"
	"log"
	"math"
	"os"
	"sync"
	"time"

	"github.com/GermanBionicSystems/digitemp/common"
	"github.com/GermanBionicSystems/digitemp/owerr"
	"github.com/GermanBionicSystems/digitemp/rom"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/onewire"
	"periph.io/x/conn/v3/physic"
)

// Bus is the bit level 1-Wire master a Dev talks through.
//
// *ds9097.Dev implements it. A Dev holds the lock for every whole command
// sequence.
type Bus interface {
	sync.Locker
	Name() string
	ReadBit() (byte, error)
	WriteByte(v byte) error
	WriteBytes(buf []byte) error
	ReadBytes(n int) ([]byte, error)
	ReadROM() (rom.Code, error)
	MatchROM(c rom.Code) error
	SkipROM() error
	IsConnected(c rom.Code) (bool, error)
}

// Reporter receives the failures GetTemperature does not return.
//
// *log.Logger and *logging.Logger implement it.
type Reporter interface {
	Printf(format string, v ...interface{})
}

// Opts contains options to pass to New.
type Opts struct {
	// Precise enables the extended resolution of DS18S20 devices.
	Precise bool
	// Attempts is the number of scratchpad reads tried on CRC errors. 0 means
	// 3.
	Attempts int
	// Reporter receives GetTemperature failures. Defaults to stderr.
	Reporter Reporter
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{
	Precise:  true,
	Attempts: 3,
}

// ScratchpadSize is the number of scratchpad data bytes. They are followed by
// their CRC on the wire.
const ScratchpadSize = 8

// Scratchpad is the scratchpad data: temperature LSB and MSB, TH, TL, then
// configuration or reserved bytes, COUNT_REMAIN and COUNT_PER_C.
type Scratchpad [ScratchpadSize]byte

// PowerMode tells how a device is supplied.
type PowerMode int

const (
	External  PowerMode = iota // V_DD pin supplied, signals completion
	Parasitic                  // powered from the data line
)

func (p PowerMode) String() string {
	if p == Parasitic {
		return "parasitic"
	}
	return "external"
}

// Addressing tells how a device is selected before each function command.
type Addressing int

const (
	SingleDrop Addressing = iota // SKIP ROM, the device is alone on the bus
	MultiDrop                    // MATCH ROM
)

func (a Addressing) String() string {
	if a == SingleDrop {
		return "single-drop"
	}
	return "multidrop"
}

// New returns a handle to the thermometer with ROM code c on bus.
//
// If c is nil the device must be alone on the bus: its code is read with READ
// ROM and it is selected with SKIP ROM. Otherwise the device must answer a
// search for c and it is selected with MATCH ROM.
//
// The family must be in reg, DefaultRegistry() is used if reg is nil. The
// power mode is read once here.
func New(bus Bus, c *rom.Code, reg *Registry, opts *Opts) (*Dev, error) {
	if reg == nil {
		reg = DefaultRegistry()
	}
	if opts == nil {
		opts = &DefaultOpts
	}
	d := &Dev{bus: bus, opts: *opts}
	if d.opts.Attempts == 0 {
		d.opts.Attempts = DefaultOpts.Attempts
	}
	if d.opts.Reporter == nil {
		d.opts.Reporter = log.New(os.Stderr, "", log.LstdFlags)
	}

	bus.Lock()
	defer bus.Unlock()

	if c == nil {
		code, err := bus.ReadROM()
		if err != nil {
			return nil, err
		}
		d.code = code
		d.addressing = SingleDrop
		if err := d.setModel(reg); err != nil {
			return nil, err
		}
	} else {
		d.code = *c
		d.addressing = MultiDrop
		if err := d.setModel(reg); err != nil {
			return nil, err
		}
		ok, err := bus.IsConnected(d.code)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, owerr.Devicef("new", "device with ROM code %s not found", d.code)
		}
	}

	parasitic, err := d.readPowerSupply()
	if err != nil {
		return nil, err
	}
	if parasitic {
		d.power = Parasitic
	}

	d.convTime = d.model.ConvTime
	if d.model.Configurable {
		spad, err := d.readScratchpad(d.opts.Attempts)
		if err != nil {
			return nil, err
		}
		d.setResolution(resolution(spad))
	}
	return d, nil
}

// NewFromString is New with a ROM code in its 16 hex characters form.
func NewFromString(bus Bus, s string, reg *Registry, opts *Opts) (*Dev, error) {
	c, err := rom.Parse(s)
	if err != nil {
		return nil, err
	}
	return New(bus, &c, reg, opts)
}

// ConvertAll performs a conversion on all thermometers on the bus.
//
// During the conversion it places the bus in strong pull-up mode to power
// parasitic devices and returns when the conversions have completed. This time
// period is determined by the maximum resolution of all devices on the bus and
// must be provided. DS18S20 devices take as long as 12 bits.
//
// ConvertAll uses time.Sleep to wait for the conversion to finish, which takes
// from 93.75ms to 750ms.
func ConvertAll(o onewire.Bus, maxResolutionBits int) error {
	if maxResolutionBits < 9 || maxResolutionBits > 12 {
		return owerr.Formatf("convert all", "invalid resolution %d", maxResolutionBits)
	}
	if err := o.Tx([]byte{cmdSkipROM, cmdConvertT}, nil, onewire.StrongPullup); err != nil {
		return err
	}
	sleep(conversionTime(maxResolutionBits))
	return nil
}

// Dev is a handle to a DS18S20, DS1822 or DS18B20 temperature sensor on a
// 1-Wire bus.
type Dev struct {
	bus        Bus
	code       rom.Code
	model      Model
	power      PowerMode
	addressing Addressing
	resolution int           // 9..12, 0 if fixed
	convTime   time.Duration // current conversion time
	opts       Opts

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// ROM returns the device ROM code.
func (d *Dev) ROM() rom.Code {
	return d.code
}

// Family returns the device family.
func (d *Dev) Family() Family {
	return d.model.Family
}

// Model returns the description of the device family.
func (d *Dev) Model() Model {
	return d.model
}

// Power returns the power mode read at construction.
func (d *Dev) Power() PowerMode {
	return d.power
}

// Addressing returns how the device is selected.
func (d *Dev) Addressing() Addressing {
	return d.addressing
}

func (d *Dev) String() string {
	return d.Family().String() + "{" + d.code.String() + "}"
}

// Temperature starts a conversion, waits for it and returns the temperature in
// °C.
//
// The scratchpad is read up to attempts times while its CRC does not match,
// with 0 meaning the configured number of attempts. Any other error is
// returned at once.
func (d *Dev) Temperature(attempts int) (float64, error) {
	d.bus.Lock()
	defer d.bus.Unlock()

	if err := d.convert(); err != nil {
		return 0, err
	}
	spad, err := d.readScratchpad(attempts)
	if err != nil {
		return 0, err
	}
	return d.decode(spad)
}

// GetTemperature is Temperature that reports failures to the configured
// Reporter instead of returning them. It returns false when no temperature
// could be read.
func (d *Dev) GetTemperature(attempts int) (float64, bool) {
	t, err := d.Temperature(attempts)
	if err != nil {
		d.opts.Reporter.Printf("temperature sensor (%s) error: %v", d.code, err)
		return 0, false
	}
	return t, true
}

// LastTemp reads the temperature resulting from the last conversion from the
// device.
//
// It is useful in combination with ConvertAll.
func (d *Dev) LastTemp() (float64, error) {
	d.bus.Lock()
	defer d.bus.Unlock()

	spad, err := d.readScratchpad(0)
	if err != nil {
		return 0, err
	}
	return d.decode(spad)
}

// Scratchpad returns the scratchpad data.
func (d *Dev) Scratchpad() (Scratchpad, error) {
	d.bus.Lock()
	defer d.bus.Unlock()
	return d.readScratchpad(0)
}

// Info describes a device.
type Info struct {
	Bus        string
	Device     string
	ROM        rom.Code
	Power      PowerMode
	Addressing Addressing
}

func (i Info) String() string {
	return fmt.Sprintf("Bus: %s\nDevice: %s\nROM Code: %s\nPower Mode: %s\nConnection Mode: %s\n",
		i.Bus, i.Device, i.ROM, i.Power, i.Addressing)
}

// Info returns a description of the device.
func (d *Dev) Info() Info {
	return Info{
		Bus:        d.bus.Name(),
		Device:     DeviceName(d.code.Family()),
		ROM:        d.code,
		Power:      d.power,
		Addressing: d.addressing,
	}
}

// SaveEEPROM copies the alarm thresholds and configuration from the
// scratchpad to EEPROM.
func (d *Dev) SaveEEPROM() error {
	d.bus.Lock()
	defer d.bus.Unlock()
	return d.copyScratchpad()
}

// LoadEEPROM recalls the alarm thresholds and configuration from EEPROM into
// the scratchpad.
//
// It does nothing for a parasitic device, which cannot signal when the recall
// is done.
func (d *Dev) LoadEEPROM() error {
	d.bus.Lock()
	defer d.bus.Unlock()
	if err := d.recall(); err != nil {
		return err
	}
	if d.model.Configurable && d.power == External {
		spad, err := d.readScratchpad(0)
		if err != nil {
			return err
		}
		d.setResolution(resolution(spad))
	}
	return nil
}

// Alarms returns the high and low alarm thresholds in °C.
//
// A device takes part in an alarm search when its last measurement is above
// high or below low.
func (d *Dev) Alarms() (high, low int8, err error) {
	d.bus.Lock()
	defer d.bus.Unlock()
	spad, err := d.readScratchpad(0)
	if err != nil {
		return 0, 0, err
	}
	return int8(spad[2]), int8(spad[3]), nil
}

// SetAlarms writes the high and low alarm thresholds in °C to the scratchpad.
//
// Use SaveEEPROM to keep them across power cycles.
func (d *Dev) SetAlarms(high, low int8) error {
	if high < low {
		return owerr.Formatf("set alarms", "high %d below low %d", high, low)
	}
	d.bus.Lock()
	defer d.bus.Unlock()
	return d.writeScratchpad(byte(high), byte(low), d.resolution)
}

// Resolution returns the resolution in bits, or 0 for a device without
// configuration register.
func (d *Dev) Resolution() int {
	return d.resolution
}

// SetResolution writes the resolution to the configuration register.
//
// bits must be in the range 9..12 and determines how many bits of precision
// the readings have. The resolution affects the conversion time:
// 9bits:93.75ms, 10bits:187.5ms, 11bits:375ms, 12bits:750ms.
//
// A resolution of 10 bits corresponds to 0.25C and tends to be a good
// compromise between conversion time and the device's inherent accuracy of
// +/-0.5C.
func (d *Dev) SetResolution(bits int) error {
	if !d.model.Configurable {
		return owerr.Devicef("set resolution", "%s has a fixed resolution", d.model.Family)
	}
	if bits < 9 || bits > 12 {
		return owerr.Formatf("set resolution", "invalid resolution %d", bits)
	}
	d.bus.Lock()
	defer d.bus.Unlock()
	spad, err := d.readScratchpad(0)
	if err != nil {
		return err
	}
	if err := d.writeScratchpad(spad[2], spad[3], bits); err != nil {
		return err
	}
	d.setResolution(bits)
	return nil
}

// Halt implements conn.Resource.
//
// It stops continuous sensing.
func (d *Dev) Halt() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop != nil {
		close(d.stop)
		<-d.done
		d.stop, d.done = nil, nil
	}
	return nil
}

// Sense implements physic.SenseEnv.
func (d *Dev) Sense(e *physic.Env) error {
	t, err := d.Temperature(0)
	if err != nil {
		return err
	}
	e.Temperature = celsius(t)
	return nil
}

// SenseContinuous implements physic.SenseEnv.
//
// A failed measurement is reported and skipped. The channel is closed by
// Halt.
func (d *Dev) SenseContinuous(interval time.Duration) (<-chan physic.Env, error) {
	if interval <= 0 {
		return nil, owerr.Formatf("sense", "invalid interval %s", interval)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop != nil {
		return nil, owerr.Devicef("sense", "already sensing continuously")
	}
	d.stop = make(chan struct{})
	d.done = make(chan struct{})
	out := make(chan physic.Env)
	go d.sensingContinuous(interval, out, d.stop, d.done)
	return out, nil
}

// Precision implements physic.SenseEnv.
func (d *Dev) Precision(e *physic.Env) {
	switch {
	case d.resolution != 0:
		e.Temperature = physic.Kelvin >> uint(d.resolution-8)
	case d.opts.Precise:
		e.Temperature = physic.Kelvin / 100
	default:
		e.Temperature = physic.Kelvin / 2
	}
}

//

const (
	cmdSkipROM         = 0xcc
	cmdConvertT        = 0x44
	cmdReadScratchpad  = 0xbe
	cmdWriteScratchpad = 0x4e
	cmdCopyScratchpad  = 0x48
	cmdRecallEEPROM    = 0xb8
	cmdReadPower       = 0xb4
)

func (d *Dev) sensingContinuous(interval time.Duration, out chan<- physic.Env, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer close(out)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		var e physic.Env
		if err := d.Sense(&e); err != nil {
			d.opts.Reporter.Printf("temperature sensor (%s) error: %v", d.code, err)
		} else {
			select {
			case out <- e:
			case <-stop:
				return
			}
		}
		select {
		case <-t.C:
		case <-stop:
			return
		}
	}
}

func (d *Dev) setModel(reg *Registry) error {
	m, ok := reg.Lookup(Family(d.code.Family()))
	if !ok {
		return owerr.Devicef("new", "unsupported family code: 0x%02x", d.code.Family())
	}
	d.model = m
	return nil
}

func (d *Dev) setResolution(bits int) {
	d.resolution = bits
	d.convTime = conversionTime(bits)
}

// resolution returns the resolution held in the configuration register.
func resolution(spad Scratchpad) int {
	return 9 + int(spad[4]>>5)&3
}

// selectDevice addresses the device and issues the function command cmd.
func (d *Dev) selectDevice(cmd byte) error {
	var err error
	if d.addressing == SingleDrop {
		err = d.bus.SkipROM()
	} else {
		err = d.bus.MatchROM(d.code)
	}
	if err != nil {
		return err
	}
	return d.bus.WriteByte(cmd)
}

// wait waits for the operation in progress to complete.
//
// A parasitic device cannot signal completion, wait sleeps for dur. An
// externally powered device reads 0 until it is done, there is no timeout.
func (d *Dev) wait(dur time.Duration) error {
	if d.power == Parasitic {
		sleep(dur)
		return nil
	}
	for {
		b, err := d.bus.ReadBit()
		if err != nil {
			return err
		}
		if b == 1 {
			return nil
		}
	}
}

func (d *Dev) convert() error {
	if err := d.selectDevice(cmdConvertT); err != nil {
		return err
	}
	return d.wait(d.convTime)
}

// readScratchpad reads the 9 bytes of scratchpad and checks the CRC, up to
// attempts times while the CRC does not match. 0 means the configured number
// of attempts.
func (d *Dev) readScratchpad(attempts int) (Scratchpad, error) {
	if attempts == 0 {
		attempts = d.opts.Attempts
	}
	if attempts < 1 {
		attempts = 1
	}
	var spad Scratchpad
	for i := 0; i < attempts; i++ {
		if err := d.selectDevice(cmdReadScratchpad); err != nil {
			return spad, err
		}
		raw, err := d.bus.ReadBytes(ScratchpadSize + 1)
		if err != nil {
			return spad, err
		}
		if common.CheckCRC8(raw) {
			copy(spad[:], raw)
			return spad, nil
		}
	}
	return spad, owerr.CRCf("read scratchpad", "CRC error")
}

// writeScratchpad writes TH, TL and, when there is one, the configuration
// register for bits of resolution.
func (d *Dev) writeScratchpad(th, tl byte, bits int) error {
	if err := d.selectDevice(cmdWriteScratchpad); err != nil {
		return err
	}
	w := []byte{th, tl}
	if d.model.Configurable {
		w = append(w, byte((bits-9)<<5)|0x1f)
	}
	return d.bus.WriteBytes(w)
}

func (d *Dev) copyScratchpad() error {
	if err := d.selectDevice(cmdCopyScratchpad); err != nil {
		return err
	}
	return d.wait(d.model.WriteTime)
}

func (d *Dev) recall() error {
	if d.power == Parasitic {
		return nil
	}
	if err := d.selectDevice(cmdRecallEEPROM); err != nil {
		return err
	}
	return d.wait(d.model.WriteTime)
}

// readPowerSupply returns true if the device is parasitically powered, it then
// holds the line low.
func (d *Dev) readPowerSupply() (bool, error) {
	if err := d.selectDevice(cmdReadPower); err != nil {
		return false, err
	}
	b, err := d.bus.ReadBit()
	if err != nil {
		return false, err
	}
	return b == 0, nil
}

func (d *Dev) decode(spad Scratchpad) (float64, error) {
	return d.model.Decode(spad[:], d.opts.Precise)
}

// celsius converts °C into a physic.Temperature.
func celsius(t float64) physic.Temperature {
	return physic.Temperature(math.Round(t*1e6))*physic.MicroKelvin + physic.ZeroCelsius
}

var sleep = time.Sleep

var _ conn.Resource = &Dev{}
var _ physic.SenseEnv = &Dev{}
