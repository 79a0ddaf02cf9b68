// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

// pagegraph draws a graph of the grey levels of a scanned page, with
// the thresholds that would split it into a number of colours.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"rescribe.xyz/scantools"
	"rescribe.xyz/scantools/imgio"
	"rescribe.xyz/scantools/preproc"
)

const usage = `Usage: pagegraph [-n colours] [-contrast mode] page graph.png

Draws a histogram of the grey levels of a page after its contrast
is stretched, marking the Otsu thresholds that split it into the
given number of colours. These match the thresholds optimizescanned
picks with the same -n and -contrast, as long as no cropping, blur
or median filter is used.
`

// pageThresholds finds the histogram of the page at path after
// stretching its contrast, and the thresholds to split it into colours
func pageThresholds(path string, colours int, contrast preproc.Contrast) ([256]int, []uint8, error) {
	img, _, err := imgio.Open(path)
	if err != nil {
		return [256]int{}, nil, err
	}
	gray := preproc.ToGray(img)
	if lo, hi, ok := contrast.Quantiles(); ok {
		gray = preproc.Stretch(gray, lo, hi)
	}
	hist := preproc.Histogram(gray)
	if colours == 2 {
		return hist, []uint8{preproc.Otsu(hist)}, nil
	}
	thresholds, err := preproc.MultiOtsu(hist, colours)
	return hist, thresholds, err
}

func main() {
	colours := flag.Int("n", 2, "number of colours to find thresholds for")
	contrastmode := flag.String("contrast", string(preproc.ContrastAuto), "contrast stretch: auto, minmax or none")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(1)
	}
	if *colours < 2 || *colours > 256 {
		log.Fatalln("Number of colours must be between 2 and 256")
	}
	contrast, err := preproc.ParseContrast(*contrastmode)
	if err != nil {
		log.Fatalln(err)
	}

	hist, thresholds, err := pageThresholds(flag.Arg(0), *colours, contrast)
	if err != nil {
		log.Fatalln("Error finding thresholds of", flag.Arg(0)+":", err)
	}

	fn := flag.Arg(1)
	f, err := os.Create(fn)
	if err != nil {
		log.Fatalln("Error creating file", fn, err)
	}
	defer f.Close()
	err = scantools.HistogramGraph(hist, thresholds, filepath.Base(flag.Arg(0)), f)
	if err != nil {
		log.Fatalln("Error creating graph", err)
	}
}
