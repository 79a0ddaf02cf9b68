// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package photo

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
)

// ErrSameDir is returned when photos would be written over themselves
var ErrSameDir = errors.New("output directory must be different from the input directory")

// Inputs lists the photographs named by arg, which is either a single
// photo or a directory of them, along with the directory they are in.
// Files in a directory are sorted by name.
func Inputs(arg string) ([]string, string, error) {
	return InputsWithExts(arg, Exts)
}

// InputsWithExts is like Inputs, but lists the files in a directory
// with any of the extensions in exts.
func InputsWithExts(arg string, exts []string) ([]string, string, error) {
	fi, err := os.Stat(arg)
	if err != nil {
		return nil, "", fmt.Errorf("File or directory not found: %s", arg)
	}
	if !fi.IsDir() {
		return []string{arg}, filepath.Dir(arg), nil
	}

	entries, err := os.ReadDir(arg)
	if err != nil {
		return nil, "", fmt.Errorf("Error reading directory %s: %v", arg, err)
	}
	var paths []string
	for _, e := range entries {
		if e.Type().IsRegular() && hasExt(e.Name(), exts) {
			paths = append(paths, filepath.Join(arg, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, arg, nil
}

// checkDirs ensures outdir exists and is not indir
func checkDirs(indir, outdir string) error {
	fi, err := os.Stat(outdir)
	if err != nil || !fi.IsDir() {
		return fmt.Errorf("Output directory %s must be an existing directory", outdir)
	}
	a, err := filepath.Abs(indir)
	if err != nil {
		return err
	}
	b, err := filepath.Abs(outdir)
	if err != nil {
		return err
	}
	if a == b {
		return ErrSameDir
	}
	return nil
}

// Failure is a photo which could not be processed
type Failure struct {
	Name string
	Err  error
}

// Batch runs fn on each photo named by arg, writing into outdir. A
// failure is logged and the batch carries on; any photos that failed
// are returned along with their errors.
func Batch(arg string, outdir string, logger *log.Logger, fn func(path string, outdir string) (string, error)) ([]Failure, error) {
	paths, indir, err := Inputs(arg)
	if err != nil {
		return nil, err
	}
	err = checkDirs(indir, outdir)
	if err != nil {
		return nil, err
	}

	var failed []Failure
	for _, p := range paths {
		logger.Printf("%s...\n", filepath.Base(p))
		out, err := fn(p, outdir)
		if err != nil {
			logger.Printf("Error while processing %s: %v\n", p, err)
			failed = append(failed, Failure{Name: filepath.Base(p), Err: err})
			continue
		}
		logger.Println("Saved", out)
	}
	return failed, nil
}

// PrintFailed lists any photos that failed, with the reason
func PrintFailed(w io.Writer, failed []Failure) {
	if len(failed) == 0 {
		return
	}
	fmt.Fprintln(w, "Following files failed processing:")
	for _, f := range failed {
		fmt.Fprintf(w, "%s: %v\n", f.Name, f.Err)
	}
}
