// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package scantools

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// LocalConn saves processed files straight into a directory on the
// local machine.
type LocalConn struct {
	// these should be set before running Init(), or left to defaults
	Dir    string
	Logger *log.Logger
}

// Init creates the output directory if needed
func (a *LocalConn) Init() error {
	if a.Dir == "" {
		a.Dir = "."
	}
	if a.Logger == nil {
		a.Logger = log.New(os.Stdout, "", 0)
	}
	err := os.MkdirAll(a.Dir, 0755)
	if err != nil {
		return fmt.Errorf("Error creating output directory %s: %v", a.Dir, err)
	}
	return nil
}

// WorkDir is the directory files should be written to
func (a *LocalConn) WorkDir() string {
	return a.Dir
}

// Save checks that a file written to WorkDir is in place; there is
// nothing more to do for a local directory.
func (a *LocalConn) Save(path string) error {
	if filepath.Dir(filepath.Clean(path)) != filepath.Clean(a.Dir) {
		return fmt.Errorf("Error saving %s: not in output directory %s", path, a.Dir)
	}
	_, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("Error saving %s: %v", path, err)
	}
	a.Logger.Println("Saved", path)
	return nil
}

// Log records an item with the Logger. Arguments are handled as
// with fmt.Println.
func (a *LocalConn) Log(v ...interface{}) {
	a.Logger.Println(v...)
}
