// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

// modifyexif shifts the times recorded in photographs and sets their
// location, for cameras with the wrong clock or no GPS.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"rescribe.xyz/scantools/internal/pipeline"
	"rescribe.xyz/scantools/photo"
)

const usage = `Usage: modifyexif [-v] [-offset secs] [-prefixdate] [-geotag lat,lon] [-keepgps] photo-or-dir outdir

Modifies the EXIF data of jpeg photos, saving copies in outdir,
which must exist and be different from the directory the photos
are in.

-offset shifts the DateTime, DateTimeOriginal and DateTimeDigitized
of each photo by a number of seconds, which may be negative or
fractional.
-geotag sets the GPS location to a latitude and longitude given in
decimal degrees, like 51.5,-0.1275.
`

// parseLatLon parses a location like "51.5,-0.1275"
func parseLatLon(s string) (float64, float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("Location must be latitude,longitude, got %q", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("Error parsing latitude %q: %v", parts[0], err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("Error parsing longitude %q: %v", parts[1], err)
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return 0, 0, fmt.Errorf("Location %v,%v is out of range", lat, lon)
	}
	return lat, lon, nil
}

// modifyOptions builds the photo.Options from the flag values
func modifyOptions(offset float64, prefix bool, geotag string, keep bool) (photo.Options, error) {
	opts := photo.Options{
		Offset:     time.Duration(math.Round(offset * float64(time.Second))),
		PrefixDate: prefix,
		KeepGPS:    keep,
	}
	if geotag != "" {
		lat, lon, err := parseLatLon(geotag)
		if err != nil {
			return opts, err
		}
		opts.Geotag = true
		opts.Lat = lat
		opts.Lon = lon
	}
	if !opts.Changes() {
		return opts, photo.ErrNoChange
	}
	return opts, nil
}

func main() {
	verbose := flag.Bool("v", false, "verbose")
	offset := flag.Float64("offset", 0, "seconds to shift the time taken by, like 3600 or -90.5")
	prefix := flag.Bool("prefixdate", false, "prefix each file name with the new time taken, like 20180311_232313_")
	geotag := flag.String("geotag", "", "set the location to lat,lon in decimal degrees")
	keep := flag.Bool("keepgps", false, "don't geotag photos which already have a location")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(1)
	}

	var verboselog *log.Logger
	if *verbose {
		verboselog = log.New(os.Stdout, "", 0)
	} else {
		var n pipeline.NullWriter
		verboselog = log.New(n, "", 0)
	}

	opts, err := modifyOptions(*offset, *prefix, *geotag, *keep)
	if err != nil {
		log.Fatalln("Error with options:", err)
	}

	failed, err := photo.Batch(flag.Arg(0), flag.Arg(1), verboselog, func(path string, outdir string) (string, error) {
		return photo.Modify(path, outdir, opts)
	})
	if err != nil {
		log.Fatalln(err)
	}
	photo.PrintFailed(os.Stdout, failed)
	if len(failed) > 0 {
		os.Exit(1)
	}
}
