// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build !unix

package ds9097

// portLock is a no-op where flock(2) is not available. The serial drivers
// already open the port exclusively on those systems.
type portLock struct{}

func lockPort(name string) (*portLock, error) {
	return &portLock{}, nil
}

func (l *portLock) release() error {
	return nil
}
