// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

// Package photo reads and rewrites the EXIF metadata of photographs,
// and resizes them to suit a digital photo frame.
package photo

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

// DateLayout is the format EXIF stores dates and times in
const DateLayout = "2006:01:02 15:04:05"

// Exts are the file extensions of photographs that can be modified
var Exts = []string{".jpg", ".jpeg"}

// ReadExts are the file extensions of images whose metadata can be
// read with ReadInfo
var ReadExts = []string{".jpg", ".jpeg", ".tiff", ".png"}

// Timestamp is an EXIF date and time, both as stored and parsed. Time
// is only meaningful if Valid is set.
type Timestamp struct {
	Raw   string
	Time  time.Time
	Valid bool
}

// Unix returns the timestamp in seconds since the epoch, treating the
// stored time as UTC
func (t Timestamp) Unix() int64 {
	return t.Time.Unix()
}

func parseTimestamp(raw string) Timestamp {
	raw = strings.TrimRight(raw, "\x00 ")
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return Timestamp{Raw: raw}
	}
	return Timestamp{Raw: raw, Time: t, Valid: true}
}

// Info is the metadata of a photograph
type Info struct {
	Filename          string
	HasExif           bool
	DateTime          Timestamp
	DateTimeOriginal  Timestamp
	DateTimeDigitized Timestamp
	HasGPS            bool
	Latitude          float64
	Longitude         float64
	// Orientation is the EXIF orientation flag, 1 when not set
	Orientation int
}

// ReadInfo decodes the EXIF metadata of a photograph. A photograph
// with no metadata is not an error, just an empty Info.
func ReadInfo(r io.Reader) (Info, error) {
	info := Info{Orientation: 1}

	b, err := io.ReadAll(r)
	if err != nil {
		return info, fmt.Errorf("Error reading photo: %v", err)
	}

	x, err := exif.Decode(bytes.NewReader(b))
	if err != nil && (x == nil || exif.IsCriticalError(err)) {
		return info, nil
	}
	info.HasExif = true

	for _, t := range []struct {
		name exif.FieldName
		ts   *Timestamp
	}{
		{exif.DateTime, &info.DateTime},
		{exif.DateTimeOriginal, &info.DateTimeOriginal},
		{exif.DateTimeDigitized, &info.DateTimeDigitized},
	} {
		tag, err := x.Get(t.name)
		if err != nil {
			continue
		}
		s, err := tag.StringVal()
		if err != nil {
			continue
		}
		*t.ts = parseTimestamp(s)
	}

	lat, lon, err := x.LatLong()
	if err == nil {
		info.HasGPS = true
		info.Latitude = lat
		info.Longitude = lon
	}

	if tag, err := x.Get(exif.Orientation); err == nil {
		if o, err := tag.Int(0); err == nil && o >= 1 && o <= 8 {
			info.Orientation = o
		}
	}

	return info, nil
}

// ReadFile reads the metadata of the photograph at path
func ReadFile(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("Error opening %s: %v", path, err)
	}
	defer f.Close()
	info, err := ReadInfo(f)
	info.Filename = filepath.Base(path)
	return info, err
}

// IsPhoto reports whether path has the extension of a photograph
// that can be modified
func IsPhoto(path string) bool {
	return hasExt(path, Exts)
}

// hasExt reports whether path ends in one of exts, ignoring case
func hasExt(path string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}
