// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

// optimizescanned cleans up scanned pages, reducing them to a few
// grey levels so that they are easy to read and small to store.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"rescribe.xyz/scantools/imgio"
	"rescribe.xyz/scantools/internal/pipeline"
	"rescribe.xyz/scantools/preproc"
)

const usage = `Usage: optimizescanned [-v] [-preset file] [flags] input outdir

Cleans up scanned pages, by converting them to grayscale, cropping
them to a paper size, stretching their contrast, and thresholding
them to a few grey levels.

input can be a directory, a single image, or a name like scan.png
which stands for scan-1.png, scan-2.png and so on, as simple-scan
saves them. Either input or outdir can be an s3://bucket/prefix
location.

If no arguments are given a graphical interface is started.
`

// flags which don't correspond to an option
var notOptions = map[string]bool{
	"v":          true,
	"preset":     true,
	"savepreset": true,
}

// optionFlags defines a flag for each option, named as in presets
func optionFlags(fs *flag.FlagSet) {
	d := pipeline.DefaultOptions()
	fs.String("f", string(d.Format), "output format: "+fmt.Sprint(imgio.Formats))
	fs.Int("n", d.Colours, "number of grey levels in the output, from 2 to 256")
	fs.String("crop", d.Crop, "crop to a paper size: "+strings.Join(preproc.PaperNames(), ", "))
	fs.String("contrast", string(d.Contrast), "contrast stretch: auto, minmax or none")
	fs.Int("median", d.Median, "median filter kernel size, an odd number, or 0 for none")
	fs.String("blur", string(d.Blur), "blur before thresholding: none, gauss or selgauss")
	fs.Float64("blurradius", d.BlurRadius, "blur radius")
	fs.Int("blurdelta", d.BlurDelta, "maximum difference in grey level to blur for selgauss")
	fs.String("bin", d.Binarise, "binarization: otsu or sauvola")
	fs.Float64("k", d.SauvolaK, "sauvola k parameter")
	fs.Int("window", d.SauvolaWindow, "sauvola window size, or 0 to pick one from the image width")
	fs.Float64("dpi", d.DPI, "resolution to use for pages which don't record one")
	fs.Bool("keep", d.KeepOriginal, "keep a copy of each original, prefixed with orig_")
	fs.Bool("overwrite", d.Overwrite, "allow outputs to replace their inputs")
	fs.Bool("graph", d.Graph, "save a graph of each page's histogram and thresholds")
	fs.String("pdf", d.PDF, "also bundle the outputs into a pdf with this name")
}

// options builds the Options to use, from a preset if one is given,
// overridden by any flags in fs that were explicitly set
func options(fs *flag.FlagSet, preset string) (pipeline.Options, error) {
	opts := pipeline.DefaultOptions()
	if preset != "" {
		var err error
		opts, err = pipeline.LoadPreset(preset)
		if err != nil {
			return opts, err
		}
	}
	var err error
	fs.Visit(func(f *flag.Flag) {
		if err != nil || notOptions[f.Name] {
			return
		}
		err = opts.Set(f.Name, f.Value.String())
	})
	if err != nil {
		return opts, err
	}
	return opts, opts.Validate()
}

func process(ctx context.Context, input string, output string, opts pipeline.Options, logger *log.Logger, progress func(float64)) (pipeline.Report, error) {
	return pipeline.RunBatch(ctx, input, output, logger, progress, func(ctx context.Context, inputs []string, conn pipeline.Saver, progress func(float64)) (pipeline.Report, error) {
		return pipeline.Run(ctx, inputs, conn, opts, logger, progress)
	})
}

func main() {
	verbose := flag.Bool("v", false, "verbose")
	preset := flag.String("preset", "", "yaml file of options to use; any flags given override it")
	savepreset := flag.String("savepreset", "", "save the options used to a yaml file")
	optionFlags(flag.CommandLine)

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	var verboselog *log.Logger
	if *verbose {
		verboselog = log.New(os.Stdout, "", 0)
	} else {
		var n pipeline.NullWriter
		verboselog = log.New(n, "", 0)
	}

	opts, err := options(flag.CommandLine, *preset)
	if err != nil {
		log.Fatalln("Error with options:", err)
	}

	if *savepreset != "" {
		err = pipeline.SavePreset(*savepreset, opts)
		if err != nil {
			log.Fatalln("Error saving preset:", err)
		}
	}

	if flag.NArg() == 0 {
		err = startGui(opts)
		if err != nil {
			log.Fatalln("Error in gui:", err)
		}
		return
	}

	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	report, err := process(ctx, flag.Arg(0), flag.Arg(1), opts, verboselog, nil)
	pipeline.PrintFailed(os.Stdout, report)
	if err != nil {
		log.Fatalln("Error processing", flag.Arg(0)+":", err)
	}
	fmt.Printf("Processed %d pages\n", len(report.Done))
}
