// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

// cleanupscan darkens faint text on scanned pages and reduces them to
// a few grey levels, with settings chosen by the weight of the font.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"rescribe.xyz/scantools/internal/pipeline"
	"rescribe.xyz/scantools/preproc"
)

const usage = `Usage: cleanupscan [-v] [-weight w] [-n colours] [-dpi n] [-crop size] input outdir

Cleans up scanned pages so that text is dark and crisp, by adjusting
brightness and contrast to suit the weight of the font, and then
posterizing to a few grey levels. Black and white pages are saved
as tiff, others as png.

Font weights are thin, normal, bold, bolder, or custom, which uses
the -radius, -brightness and -contrast flags.
`

func main() {
	verbose := flag.Bool("v", false, "verbose")
	weight := flag.String("weight", string(preproc.WeightNormal), "font weight: thin, normal, bold, bolder or custom")
	radius := flag.Float64("radius", 1, "blur radius for custom weight")
	brightness := flag.Float64("brightness", -70, "brightness for custom weight, -127 to 127")
	contrast := flag.Float64("contrast", 80, "contrast for custom weight, -127 to 127")
	colours := flag.Int("n", 2, "number of grey levels in the output, from 2 to 256")
	dpi := flag.Float64("dpi", 0, "set the resolution of every page")
	crop := flag.String("crop", "", "crop to a paper size: "+strings.Join(preproc.PaperNames(), ", "))
	pdf := flag.String("pdf", "", "also bundle the outputs into a pdf with this name")

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

	opts := pipeline.CleanupOptions{
		Params: preproc.CleanupParams{
			Weight:     preproc.Weight(*weight),
			Radius:     *radius,
			Brightness: *brightness,
			Contrast:   *contrast,
		},
		Colours: *colours,
		DPI:     *dpi,
		Crop:    *crop,
		PDF:     *pdf,
	}
	err := opts.Validate()
	if err != nil {
		log.Fatalln("Error with options:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	report, err := pipeline.RunBatch(ctx, flag.Arg(0), flag.Arg(1), verboselog, nil, func(ctx context.Context, inputs []string, conn pipeline.Saver, progress func(float64)) (pipeline.Report, error) {
		return pipeline.RunCleanup(ctx, inputs, conn, opts, verboselog, progress)
	})
	pipeline.PrintFailed(os.Stdout, report)
	if err != nil {
		log.Fatalln("Error processing", flag.Arg(0)+":", err)
	}
	fmt.Printf("Processed %d pages\n", len(report.Done))
}
