// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package logging implements the levelled logger of the digitemp command.
//
// Errors always go to stderr. Other messages go to stdout only at verbose
// level or higher. Everything enabled by the level is also written to the
// optional log file, with timestamps.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// Level is a logging level.
type Level int

const (
	LevelSilent Level = iota
	LevelError
	LevelInfo
	LevelVerbose
	LevelDebug
)

var levelNames = []string{"silent", "error", "info", "verbose", "debug"}

func (l Level) String() string {
	if l >= 0 && int(l) < len(levelNames) {
		return levelNames[l]
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

// ParseLevel returns the level named s, case insensitive.
func ParseLevel(s string) (Level, error) {
	for i, n := range levelNames {
		if strings.EqualFold(s, n) {
			return Level(i), nil
		}
	}
	return LevelSilent, fmt.Errorf("unknown log level %q, want one of %s", s, strings.Join(levelNames, ", "))
}

// Logger is a levelled logger safe for concurrent use.
type Logger struct {
	mu      sync.Mutex
	level   Level
	file    *os.File
	fileLog *log.Logger
	stdout  *log.Logger
	stderr  *log.Logger
}

// New returns a logger at level. If logFile is not empty the file is created
// and receives a copy of every message.
func New(level Level, logFile string) (*Logger, error) {
	l := newLogger(level, os.Stdout, os.Stderr)
	if logFile != "" {
		file, err := os.Create(logFile)
		if err != nil {
			return nil, fmt.Errorf("create log file: %w", err)
		}
		l.file = file
		l.fileLog = log.New(file, "", log.LstdFlags)
	}
	return l, nil
}

func newLogger(level Level, stdout, stderr io.Writer) *Logger {
	return &Logger{
		level:  level,
		stdout: log.New(stdout, "", 0),
		stderr: log.New(stderr, "", 0),
	}
}

// Close closes the log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		err := l.file.Close()
		l.file, l.fileLog = nil, nil
		return err
	}
	return nil
}

// Error logs an error message.
func (l *Logger) Error(format string, v ...interface{}) {
	l.log(LevelError, "ERROR: ", format, v...)
}

// Printf logs an error message. It lets a Logger stand in for a log.Logger.
func (l *Logger) Printf(format string, v ...interface{}) {
	l.log(LevelError, "ERROR: ", format, v...)
}

// Info logs an info message.
func (l *Logger) Info(format string, v ...interface{}) {
	l.log(LevelInfo, "INFO: ", format, v...)
}

// Verbose logs a verbose message.
func (l *Logger) Verbose(format string, v ...interface{}) {
	l.log(LevelVerbose, "VERBOSE: ", format, v...)
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, v ...interface{}) {
	l.log(LevelDebug, "DEBUG: ", format, v...)
}

// Hex logs data as space separated hex bytes at debug level.
func (l *Logger) Hex(label string, data []byte) {
	if l.Level() < LevelDebug {
		return
	}
	l.Debug("%s: % x", label, data)
}

// SetLevel sets the logging level.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// Level returns the logging level.
func (l *Logger) Level() Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

func (l *Logger) log(level Level, prefix, format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.level < level {
		return
	}
	msg := prefix + fmt.Sprintf(format, v...)
	if l.fileLog != nil {
		l.fileLog.Println(msg)
	}
	if level == LevelError {
		l.stderr.Println(msg)
	} else if l.level >= LevelVerbose {
		l.stdout.Println(msg)
	}
}
