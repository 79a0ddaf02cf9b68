// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package pipeline

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	_ "golang.org/x/image/tiff"
	"rescribe.xyz/scantools/imgio"
)

// null writer to enable non-verbose logging to be discarded
type NullWriter bool

func (w NullWriter) Write(p []byte) (n int, err error) {
	return len(p), nil
}

// ListInputs finds the images to process from a command line
// argument. A directory gives all images directly inside it, grouped
// by extension in the order of imgio.InputExts and sorted by name
// within each group. A file which exists gives just that file. A
// file which doesn't exist is treated as a GNOME Simple Scan save
// path, so name.png gives every name-*.png in the same directory.
func ListInputs(arg string, logger *log.Logger) ([]string, error) {
	info, err := os.Stat(arg)
	if err == nil && info.IsDir() {
		var files []string
		for _, ext := range imgio.InputExts {
			matches, err := filepath.Glob(filepath.Join(globEscape(arg), "*"+ext))
			if err != nil {
				return nil, fmt.Errorf("Error listing %s: %v", arg, err)
			}
			sort.Strings(matches)
			for _, m := range matches {
				if fi, err := os.Stat(m); err == nil && fi.Mode().IsRegular() {
					files = append(files, m)
				}
			}
		}
		return files, nil
	}

	if !imgio.IsInput(arg) {
		logger.Printf("Warning: unsupported file extension %q, %s will not be processed\n", filepath.Ext(arg), arg)
		return []string{}, nil
	}

	if err == nil {
		return []string{arg}, nil
	}

	ext := filepath.Ext(arg)
	stem := strings.TrimSuffix(filepath.Base(arg), ext)
	pattern := filepath.Join(globEscape(filepath.Dir(arg)), globEscape(stem)+"-*"+ext)
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("Error listing %s: %v", pattern, err)
	}
	sort.Strings(matches)
	return matches, nil
}

// globEscape escapes any characters in a path that filepath.Match
// would treat specially. Windows has no escape character, so paths
// are left alone there.
func globEscape(s string) string {
	if runtime.GOOS == "windows" {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// CheckImages checks that all of the given files are images that
// can be decoded, returning an error for the first that can't
func CheckImages(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return fmt.Errorf("No images found")
	}
	for _, path := range paths {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("Opening image %s failed: %v", path, err)
		}
		_, _, err = image.DecodeConfig(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("Decoding image %s failed: %v", path, err)
		}
	}
	return nil
}
