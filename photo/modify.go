// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package photo

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	exif "github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"
	jis "github.com/dsoprea/go-jpeg-image-structure/v2"
)

const (
	ifdRoot = "IFD0"
	ifdExif = "IFD/Exif"
	ifdGPS  = "IFD/GPSInfo"

	// PrefixLayout is the format of the date prefixed to file names
	PrefixLayout = "20060102_150405"

	// seconds of arc are stored to this precision
	secondsDenominator = 1000
)

// ErrNoChange is returned by Modify when nothing was asked to change
var ErrNoChange = errors.New("no change requested")

// Options are the changes Modify makes to a photograph
type Options struct {
	// Offset shifts the time the photo was taken, if not zero
	Offset time.Duration
	// PrefixDate prefixes the output file name with the new time
	// taken, if Offset is set
	PrefixDate bool
	// Geotag sets the location, if set
	Geotag bool
	Lat    float64
	Lon    float64
	// KeepGPS leaves an existing location alone when geotagging
	KeepGPS bool
}

// Changes reports whether the options ask for any change
func (o Options) Changes() bool {
	return o.Offset != 0 || o.Geotag
}

// segments parses a jpeg into its segment list
func segments(b []byte) (*jis.SegmentList, error) {
	jmp := jis.NewJpegMediaParser()
	mc, err := jmp.ParseBytes(b)
	if err != nil {
		return nil, fmt.Errorf("Error parsing jpeg: %v", err)
	}
	sl, ok := mc.(*jis.SegmentList)
	if !ok {
		return nil, errors.New("Error parsing jpeg: no segment list")
	}
	return sl, nil
}

// newRootIb creates an empty EXIF builder
func newRootIb() (*exif.IfdBuilder, error) {
	im, err := exifcommon.NewIfdMappingWithStandard()
	if err != nil {
		return nil, fmt.Errorf("Error creating exif mapping: %v", err)
	}
	ti := exif.NewTagIndex()
	return exif.NewIfdBuilder(im, ti, exifcommon.IfdStandardIfdIdentity, exifcommon.EncodeDefaultByteOrder), nil
}

// setTag sets a standard tag in the IFD at ifdPath, creating the IFD
// if needed
func setTag(rootIb *exif.IfdBuilder, ifdPath string, name string, value interface{}) error {
	ib, err := exif.GetOrCreateIbFromRootIb(rootIb, ifdPath)
	if err != nil {
		return fmt.Errorf("Error finding %s: %v", ifdPath, err)
	}
	err = ib.SetStandardWithName(name, value)
	if err != nil {
		return fmt.Errorf("Error setting %s: %v", name, err)
	}
	return nil
}

// OffsetDateTime shifts the time a photo was taken by offset,
// overwriting DateTime, DateTimeOriginal and DateTimeDigitized with the
// new time. It returns the new time formatted with PrefixLayout.
func OffsetDateTime(rootIb *exif.IfdBuilder, info Info, offset time.Duration) (string, error) {
	if !info.DateTimeOriginal.Valid {
		return "", errors.New("No valid DateTimeOriginal to offset")
	}
	t := info.DateTimeOriginal.Time.Add(offset)
	s := t.Format(DateLayout)

	for _, tag := range []struct{ ifd, name string }{
		{ifdRoot, "DateTime"},
		{ifdExif, "DateTimeOriginal"},
		{ifdExif, "DateTimeDigitized"},
	} {
		err := setTag(rootIb, tag.ifd, tag.name, s)
		if err != nil {
			return "", err
		}
	}
	return t.Format(PrefixLayout), nil
}

// DMS splits degrees into whole degrees, whole minutes, and seconds
// to 1/1000 precision, as EXIF GPS rationals
func DMS(degrees float64) []exifcommon.Rational {
	degrees = math.Abs(degrees)
	d := math.Floor(degrees)
	minutes := (degrees - d) * 60
	m := math.Floor(minutes)
	s := math.Round((minutes - m) * 60 * secondsDenominator)
	return []exifcommon.Rational{
		{Numerator: uint32(d), Denominator: 1},
		{Numerator: uint32(m), Denominator: 1},
		{Numerator: uint32(s), Denominator: secondsDenominator},
	}
}

// GPS sets the location of a photo to a latitude and longitude in
// signed degrees, with an altitude of 23m above sea level. If keep
// is set a photo that already has a location is left alone.
func GPS(rootIb *exif.IfdBuilder, info Info, lat, lon float64, keep bool) error {
	if keep && info.HasGPS {
		return nil
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return fmt.Errorf("Invalid location %v, %v", lat, lon)
	}

	latRef := "N"
	if lat < 0 {
		latRef = "S"
	}
	lonRef := "E"
	if lon < 0 {
		lonRef = "W"
	}

	tags := []struct {
		name  string
		value interface{}
	}{
		{"GPSVersionID", []byte{2, 2, 0, 0}},
		{"GPSLatitudeRef", latRef},
		{"GPSLatitude", DMS(lat)},
		{"GPSLongitudeRef", lonRef},
		{"GPSLongitude", DMS(lon)},
		{"GPSAltitudeRef", []byte{0}},
		{"GPSAltitude", []exifcommon.Rational{{Numerator: 2300, Denominator: 100}}},
	}
	for _, t := range tags {
		err := setTag(rootIb, ifdGPS, t.name, t.value)
		if err != nil {
			return err
		}
	}
	return nil
}

// OutputName returns the name a modified photo is saved with
func OutputName(name string, prefix string) string {
	if prefix == "" {
		return name
	}
	return prefix + "_" + name
}

// Modify rewrites the EXIF metadata of the jpeg at in according to
// opts, saving it into outdir. The image data itself is copied
// untouched. It returns the path saved to.
func Modify(in string, outdir string, opts Options) (string, error) {
	if !opts.Changes() {
		return "", ErrNoChange
	}

	b, err := os.ReadFile(in)
	if err != nil {
		return "", fmt.Errorf("Error reading %s: %v", in, err)
	}
	info, err := ReadInfo(bytes.NewReader(b))
	if err != nil {
		return "", err
	}

	sl, err := segments(b)
	if err != nil {
		return "", err
	}
	var rootIb *exif.IfdBuilder
	if info.HasExif {
		rootIb, err = sl.ConstructExifBuilder()
		if err != nil {
			return "", fmt.Errorf("Error reading exif of %s: %v", in, err)
		}
	} else {
		rootIb, err = newRootIb()
		if err != nil {
			return "", err
		}
	}

	var prefix string
	if opts.Offset != 0 {
		prefix, err = OffsetDateTime(rootIb, info, opts.Offset)
		if err != nil {
			return "", fmt.Errorf("Error offsetting time of %s: %v", in, err)
		}
		if !opts.PrefixDate {
			prefix = ""
		}
	}

	if opts.Geotag {
		err = GPS(rootIb, info, opts.Lat, opts.Lon, opts.KeepGPS)
		if err != nil {
			return "", fmt.Errorf("Error geotagging %s: %v", in, err)
		}
	}

	err = sl.SetExif(rootIb)
	if err != nil {
		return "", fmt.Errorf("Error updating exif of %s: %v", in, err)
	}

	out := filepath.Join(outdir, OutputName(filepath.Base(in), prefix))
	return out, writeSegments(out, sl)
}

// writeSegments saves a jpeg segment list to path
func writeSegments(path string, sl *jis.SegmentList) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("Error creating %s: %v", path, err)
	}
	err = sl.Write(f)
	if err != nil {
		f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("Error writing %s: %v", path, err)
	}
	return f.Close()
}
