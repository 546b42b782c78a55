// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	var testData = []struct {
		s     string
		level Level
	}{
		{"silent", LevelSilent},
		{"error", LevelError},
		{"INFO", LevelInfo},
		{"Verbose", LevelVerbose},
		{"debug", LevelDebug},
	}
	for _, entry := range testData {
		l, err := ParseLevel(entry.s)
		if err != nil {
			t.Fatal(err)
		}
		if l != entry.level {
			t.Errorf("%s: got %s", entry.s, l)
		}
		if !strings.EqualFold(l.String(), entry.s) {
			t.Errorf("%s: String() = %s", entry.s, l)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatal("expected error")
	}
	if s := Level(9).String(); s != "Level(9)" {
		t.Fatal(s)
	}
}

func TestLevels(t *testing.T) {
	var testData = []struct {
		level  Level
		stdout string
		stderr string
	}{
		{LevelSilent, "", ""},
		{LevelError, "", "ERROR: e\nERROR: p\n"},
		{LevelInfo, "", "ERROR: e\nERROR: p\n"},
		{LevelVerbose, "INFO: i\nVERBOSE: v\n", "ERROR: e\nERROR: p\n"},
		{LevelDebug, "INFO: i\nVERBOSE: v\nDEBUG: d\nDEBUG: spad: 50 05\n", "ERROR: e\nERROR: p\n"},
	}
	for _, entry := range testData {
		t.Run(entry.level.String(), func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			l := newLogger(entry.level, &stdout, &stderr)
			l.Error("%s", "e")
			l.Printf("p")
			l.Info("i")
			l.Verbose("v")
			l.Debug("d")
			l.Hex("spad", []byte{0x50, 0x05})
			if s := stdout.String(); s != entry.stdout {
				t.Errorf("stdout: %q", s)
			}
			if s := stderr.String(); s != entry.stderr {
				t.Errorf("stderr: %q", s)
			}
		})
	}
}

func TestSetLevel(t *testing.T) {
	var stdout, stderr bytes.Buffer
	l := newLogger(LevelSilent, &stdout, &stderr)
	l.Error("hidden")
	l.SetLevel(LevelError)
	if l.Level() != LevelError {
		t.Fatal(l.Level())
	}
	l.Error("shown")
	if s := stderr.String(); s != "ERROR: shown\n" {
		t.Fatalf("%q", s)
	}
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "digitemp.log")
	l, err := New(LevelInfo, path)
	if err != nil {
		t.Fatal(err)
	}
	l.Info("28AC410E07000074: 25.06")
	l.Debug("not logged")
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
	// Closing twice is fine.
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if s := string(b); !strings.HasSuffix(s, "INFO: 28AC410E07000074: 25.06\n") || strings.Contains(s, "not logged") {
		t.Fatalf("%q", s)
	}
}

func TestFile_fail(t *testing.T) {
	if _, err := New(LevelInfo, "/nonexistent/dir/digitemp.log"); err == nil {
		t.Fatal("expected error for invalid path")
	}
}
