// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ds9097

import (
	"errors"
	"io"
	"sort"
	"strings"
	"testing"

	"github.com/GermanBionicSystems/digitemp/ds9097/ds9097test"
	"github.com/GermanBionicSystems/digitemp/owerr"
	"github.com/GermanBionicSystems/digitemp/rom"
	"periph.io/x/conn/v3/onewire"
)

var _ Port = &ds9097test.Sim{}

func TestReset(t *testing.T) {
	data := []struct {
		name string
		sim  *ds9097test.Sim
		err  string
	}{
		{"present", &ds9097test.Sim{Devices: devices(0x28)}, ""},
		{"low presence", &ds9097test.Sim{Devices: devices(0x28), Presence: 0x10}, ""},
		{"no device", &ds9097test.Sim{}, "reset: no device present"},
		{"bad presence", &ds9097test.Sim{Devices: devices(0x28), Presence: 0x08}, "reset: presence error: 0x08"},
		{"noise", &ds9097test.Sim{Devices: devices(0x28), Noise: true}, "reset: presence error: 0xe1"},
		{"mute", &ds9097test.Sim{Devices: devices(0x28), Mute: true}, "reset: read/write error"},
	}
	for _, line := range data {
		t.Run(line.name, func(t *testing.T) {
			s := line.sim
			d := New(s, "sim")
			err := d.Reset()
			if line.err == "" {
				if err != nil {
					t.Fatal(err)
				}
			} else {
				if err == nil || err.Error() != line.err {
					t.Fatalf("want %q, got %v", line.err, err)
				}
				if !owerr.Is(err, owerr.Adapter) {
					t.Fatalf("want adapter error, got %v", owerr.KindOf(err))
				}
			}
			// The data speed is restored whatever the outcome.
			if len(s.Bauds) != 2 || s.Bauds[0] != ResetBaud || s.Bauds[1] != DataBaud {
				t.Fatalf("bauds: %v", s.Bauds)
			}
		})
	}
}

func TestBits(t *testing.T) {
	s := &ds9097test.Sim{Devices: devices(0x28)}
	d := New(s, "sim")
	if err := d.WriteBit(0); err != nil {
		t.Fatal(err)
	}
	if err := d.WriteBit(1); err != nil {
		t.Fatal(err)
	}
	// Nothing transmits while idle, the line stays high.
	if b, err := d.ReadBit(); err != nil || b != 1 {
		t.Fatal(b, err)
	}
	if b, err := d.ReadByte(); err != nil || b != 0xff {
		t.Fatal(b, err)
	}
	if err := d.WriteByte(0xa5); err != nil {
		t.Fatal(err)
	}
	if b, err := d.ReadBytes(3); err != nil || string(b) != "\xff\xff\xff" {
		t.Fatal(b, err)
	}
}

func TestBits_noise(t *testing.T) {
	s := &ds9097test.Sim{Devices: devices(0x28), Noise: true}
	d := New(s, "sim")
	if err := d.WriteBit(1); err == nil || err.Error() != "write bit: noise on the line" {
		t.Fatal(err)
	}
	if err := d.WriteByte(0x33); err == nil || err.Error() != "write byte: noise on the line" {
		t.Fatal(err)
	}
	// A read slot answered with anything but 0xFF reads as 0.
	if b, err := d.ReadByte(); err != nil || b != 0 {
		t.Fatal(b, err)
	}
}

func TestBits_mute(t *testing.T) {
	s := &ds9097test.Sim{Devices: devices(0x28), Mute: true}
	d := New(s, "sim")
	if err := d.WriteBit(1); err == nil || err.Error() != "write bit: write error" {
		t.Fatal(err)
	}
	if err := d.WriteBytes([]byte{1}); err == nil || err.Error() != "write byte: write error" {
		t.Fatal(err)
	}
	if _, err := d.ReadBit(); err == nil || err.Error() != "read bit: read error" {
		t.Fatal(err)
	}
	if _, err := d.ReadBytes(2); err == nil || err.Error() != "read byte: read error" {
		t.Fatal(err)
	}
	if _, err := d.ReadBit(); !owerr.Is(err, owerr.Adapter) {
		t.Fatal(err)
	}
}

func TestBits_closed(t *testing.T) {
	s := &ds9097test.Sim{Devices: devices(0x28)}
	d := New(s, "sim")
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	if !s.Closed {
		t.Fatal("port still open")
	}
	err := d.WriteBit(1)
	if !errors.Is(err, io.ErrClosedPipe) {
		t.Fatal(err)
	}
	if !owerr.Is(err, owerr.Device) {
		t.Fatal(owerr.KindOf(err))
	}
}

func TestBits_shortWrite(t *testing.T) {
	d := New(&shortPort{Sim: &ds9097test.Sim{Devices: devices(0x28)}}, "sim")
	var testData = []struct {
		name string
		f    func() error
		msg  string
	}{
		{"reset", d.Reset, "reset: read/write error"},
		{"write bit", func() error { return d.WriteBit(1) }, "write bit: write error"},
		{"read bit", func() error { _, err := d.ReadBit(); return err }, "read bit: read error"},
		{"write byte", func() error { return d.WriteByte(0xcc) }, "write byte: write error"},
		{"read byte", func() error { _, err := d.ReadByte(); return err }, "read byte: read error"},
	}
	for _, entry := range testData {
		t.Run(entry.name, func(t *testing.T) {
			err := entry.f()
			if err == nil || err.Error() != entry.msg {
				t.Fatalf("want %q, got %v", entry.msg, err)
			}
			if !owerr.Is(err, owerr.Adapter) {
				t.Fatal(owerr.KindOf(err))
			}
		})
	}
}

func TestReadROM(t *testing.T) {
	devs := devices(0x28)
	s := &ds9097test.Sim{Devices: devs}
	d := New(s, "sim")
	c, err := d.ReadROM()
	if err != nil {
		t.Fatal(err)
	}
	if c != devs[0].ROM {
		t.Fatalf("%s != %s", c, devs[0].ROM)
	}
	if string(s.Commands) != "\x33" {
		t.Fatalf("%x", s.Commands)
	}
}

func TestReadROM_collision(t *testing.T) {
	s := &ds9097test.Sim{Devices: []*ds9097test.Device{
		{ROM: rom.New(0x28, [6]byte{0x01})},
		{ROM: rom.New(0x28, [6]byte{0x02})},
	}}
	d := New(s, "sim")
	if _, err := d.ReadROM(); !owerr.Is(err, owerr.CRC) {
		t.Fatalf("want CRC error, got %v", err)
	}
}

func TestSearchROMs(t *testing.T) {
	devs := devices(0x10, 0x28, 0x22, 0x28, 0x01)
	s := &ds9097test.Sim{Devices: devs}
	d := New(s, "sim")
	got, err := d.SearchROMs(false)
	if err != nil {
		t.Fatal(err)
	}
	if want := codes(devs); !equal(got, want) {
		t.Fatalf("%v != %v", got, want)
	}
	// Every device is found by its own cycle.
	if len(s.Commands) != len(devs) {
		t.Fatalf("%d cycles", len(s.Commands))
	}
	for _, c := range s.Commands {
		if c != cmdSearchROM {
			t.Fatalf("%#x", c)
		}
	}
}

func TestSearchROMs_one(t *testing.T) {
	devs := devices(0x28)
	d := New(&ds9097test.Sim{Devices: devs}, "sim")
	got, err := d.SearchROMs(false)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != devs[0].ROM {
		t.Fatal(got)
	}
}

func TestSearchROMs_noDevice(t *testing.T) {
	d := New(&ds9097test.Sim{}, "sim")
	got, err := d.SearchROMs(false)
	if len(got) != 0 || err == nil || err.Error() != "reset: no device present" {
		t.Fatal(got, err)
	}
	if !errors.Is(err, ErrNoDevice) || !owerr.Is(err, owerr.Adapter) {
		t.Fatal(err)
	}
}

func TestSearchROMs_alarm(t *testing.T) {
	devs := devices(0x28, 0x28, 0x10, 0x22)
	devs[1].Alarm = true
	devs[3].Alarm = true
	s := &ds9097test.Sim{Devices: devs}
	d := New(s, "sim")
	got, err := d.SearchROMs(true)
	if err != nil {
		t.Fatal(err)
	}
	want := []rom.Code{devs[1].ROM, devs[3].ROM}
	if !equal(got, want) {
		t.Fatalf("%v != %v", got, want)
	}
	for _, c := range s.Commands {
		if c != cmdAlarmSearch {
			t.Fatalf("%#x", c)
		}
	}
	strs, err := d.AlarmROMs()
	if err != nil {
		t.Fatal(err)
	}
	sort.Strings(strs)
	if len(strs) != 2 || strs[0] != minString(want) {
		t.Fatal(strs)
	}
}

func TestSearchROMs_noAlarm(t *testing.T) {
	d := New(&ds9097test.Sim{Devices: devices(0x28, 0x10)}, "sim")
	got, err := d.SearchROMs(true)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatal(got)
	}
}

func TestSearchROMs_doubleOne(t *testing.T) {
	// A device present at reset that does not take part in the search.
	d := New(&ds9097test.Sim{Devices: devices(0x28)}, "sim")
	_, _, err := d.searchCycle(cmdSkipROM, nil)
	if err == nil || err.Error() != "search ROM: unexpected double-one at bit 0" {
		t.Fatal(err)
	}
	if !owerr.Is(err, owerr.Adapter) {
		t.Fatal(owerr.KindOf(err))
	}
}

func TestConnectedROMs(t *testing.T) {
	devs := devices(0x28, 0x10)
	d := New(&ds9097test.Sim{Devices: devs}, "sim")
	got, err := d.ConnectedROMs()
	if err != nil {
		t.Fatal(err)
	}
	sort.Strings(got)
	want := []string{devs[0].ROM.String(), devs[1].ROM.String()}
	sort.Strings(want)
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("%v != %v", got, want)
	}
	for _, s := range got {
		if strings.ToUpper(s) != s || len(s) != 16 {
			t.Fatal(s)
		}
	}
}

func TestIsConnected(t *testing.T) {
	devs := devices(0x28, 0x10, 0x22)
	d := New(&ds9097test.Sim{Devices: devs}, "sim")
	for _, dev := range devs {
		ok, err := d.IsConnected(dev.ROM)
		if err != nil || !ok {
			t.Fatalf("%s: %t %v", dev.ROM, ok, err)
		}
	}
	// Diverges on the family byte.
	ok, err := d.IsConnected(rom.New(0x01, [6]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}))
	if err != nil || ok {
		t.Fatal(ok, err)
	}
}

func TestMatchROM(t *testing.T) {
	devs := devices(0x28, 0x28)
	s := &ds9097test.Sim{Devices: devs}
	d := New(s, "sim")
	if err := d.MatchROM(devs[1].ROM); err != nil {
		t.Fatal(err)
	}
	if err := d.WriteByte(0x44); err != nil {
		t.Fatal(err)
	}
	if devs[0].Conversions != 0 || devs[1].Conversions != 1 {
		t.Fatal(devs[0].Conversions, devs[1].Conversions)
	}
	if err := d.SkipROM(); err != nil {
		t.Fatal(err)
	}
	if err := d.WriteByte(0x44); err != nil {
		t.Fatal(err)
	}
	if devs[0].Conversions != 1 || devs[1].Conversions != 2 {
		t.Fatal(devs[0].Conversions, devs[1].Conversions)
	}
	if string(s.Commands) != "\x55\xcc" {
		t.Fatalf("%x", s.Commands)
	}
}

func TestTx(t *testing.T) {
	devs := devices(0x28, 0x28)
	devs[0].Scratchpad = [8]byte{0x50, 0x05, 0x4b, 0x46, 0x7f, 0xff, 0x0c, 0x10}
	d := New(&ds9097test.Sim{Devices: devs}, "sim")
	dev := onewire.Dev{Bus: d, Addr: devs[0].ROM.Address()}
	var spad [9]byte
	if err := dev.Tx([]byte{0xbe}, spad[:]); err != nil {
		t.Fatal(err)
	}
	if !onewire.CheckCRC(spad[:]) {
		t.Fatalf("%x", spad)
	}
	if spad[0] != 0x50 || spad[1] != 0x05 {
		t.Fatalf("%x", spad)
	}
}

func TestSearch_periph(t *testing.T) {
	devs := devices(0x28, 0x10, 0x28, 0x22)
	d := New(&ds9097test.Sim{Devices: devs}, "sim")
	addrs, err := onewire.Search(d, false)
	if err != nil {
		t.Fatal(err)
	}
	var got []rom.Code
	for _, a := range addrs {
		got = append(got, rom.FromAddress(a))
	}
	if want := codes(devs); !equal(got, want) {
		t.Fatalf("%v != %v", got, want)
	}
	own, err := d.Search(false)
	if err != nil {
		t.Fatal(err)
	}
	if len(own) != len(addrs) {
		t.Fatal(own)
	}
}

func TestString(t *testing.T) {
	d := New(&ds9097test.Sim{}, "/dev/ttyUSB0")
	if s := d.String(); s != "DS9097{/dev/ttyUSB0}" {
		t.Fatal(s)
	}
	if d.Name() != "/dev/ttyUSB0" {
		t.Fatal(d.Name())
	}
	if err := d.Halt(); err != nil {
		t.Fatal(err)
	}
}

func TestOpen_badBackend(t *testing.T) {
	_, err := Open("/dev/null", &Opts{Backend: "usb"})
	if err == nil || err.Error() != `open: unknown serial backend "usb"` {
		t.Fatal(err)
	}
}

func TestOpen_missing(t *testing.T) {
	for _, backend := range []string{BackendSerial, BackendTarm, BackendGoburrow} {
		t.Run(backend, func(t *testing.T) {
			_, err := Open("/nonexistent/ttyUSB9", &Opts{Backend: backend})
			if err == nil {
				t.Fatal("expected error")
			}
			if !owerr.Is(err, owerr.Device) {
				t.Fatalf("%v: %s", err, owerr.KindOf(err))
			}
			if !strings.Contains(err.Error(), "/nonexistent/ttyUSB9") {
				t.Fatal(err)
			}
		})
	}
}

//

// shortPort accepts none of the bytes written to it.
type shortPort struct {
	*ds9097test.Sim
}

func (s *shortPort) Write(p []byte) (int, error) {
	return 0, nil
}

// devices returns simulated devices of the given families with distinct
// serial numbers.
func devices(families ...byte) []*ds9097test.Device {
	out := make([]*ds9097test.Device, len(families))
	for i, f := range families {
		serial := [6]byte{byte(0x31 * (i + 1)), byte(i), 0x5c, byte(0xa8 ^ i), 0x02, 0x08}
		out[i] = &ds9097test.Device{ROM: rom.New(f, serial)}
	}
	return out
}

func codes(devs []*ds9097test.Device) []rom.Code {
	out := make([]rom.Code, len(devs))
	for i, d := range devs {
		out[i] = d.ROM
	}
	return out
}

// equal compares a and b as sets.
func equal(a, b []rom.Code) bool {
	if len(a) != len(b) {
		return false
	}
	seen := map[rom.Code]int{}
	for _, c := range a {
		seen[c]++
	}
	for _, c := range b {
		if seen[c] == 0 {
			return false
		}
		seen[c]--
	}
	return true
}

func minString(c []rom.Code) string {
	s := make([]string, len(c))
	for i := range c {
		s[i] = c[i].String()
	}
	sort.Strings(s)
	return s[0]
}
