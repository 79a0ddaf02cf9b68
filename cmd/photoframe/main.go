// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

// photoframe shrinks photographs to suit a digital photo frame.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"rescribe.xyz/scantools/internal/pipeline"
	"rescribe.xyz/scantools/photo"
)

const usage = `Usage: photoframe [-v] [-w width] [-h height] [-s scale] [-upright] photo-or-dir outdir

Resizes jpeg photos so they fit a photo frame of the given size,
times the -s scale, which leaves some room to zoom and crop. Photos
which are already small enough keep their size. Only the orientation
is kept from the EXIF data.
`

func main() {
	d := photo.DefaultFrameOptions()
	verbose := flag.Bool("v", false, "verbose")
	width := flag.Int("w", d.Width, "frame width in pixels")
	height := flag.Int("h", d.Height, "frame height in pixels")
	scale := flag.Float64("s", d.RefScale, "scale of the frame size to shrink photos to")
	upright := flag.Bool("upright", false, "rotate the pixels upright rather than keeping the orientation flag")

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

	opts := photo.FrameOptions{Width: *width, Height: *height, RefScale: *scale, Upright: *upright}
	if opts.Width <= 0 || opts.Height <= 0 || opts.RefScale <= 0 {
		log.Fatalln("Frame size and scale must be positive")
	}

	failed, err := photo.Batch(flag.Arg(0), flag.Arg(1), verboselog, func(path string, outdir string) (string, error) {
		return photo.ResizeForFrame(path, outdir, opts)
	})
	if err != nil {
		log.Fatalln(err)
	}
	photo.PrintFailed(os.Stdout, failed)
	if len(failed) > 0 {
		os.Exit(1)
	}
}
