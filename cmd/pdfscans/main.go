// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

// pdfscans bundles a set of scanned pages into a pdf.
package main

import (
	"flag"
	"fmt"
	"image"
	"log"
	"os"

	"rescribe.xyz/scantools"
	"rescribe.xyz/scantools/imgio"
	"rescribe.xyz/scantools/internal/pipeline"
)

const usage = `Usage: pdfscans [-v] [-dpi n] input out.pdf

Bundles scanned pages into a pdf, one page per image, sized by the
resolution recorded in each image. input can be a directory, a
single image, or a name like scan.png which stands for scan-1.png,
scan-2.png and so on.
`

type Pdfer interface {
	Setup() error
	AddPage(img image.Image, res imgio.Resolution) error
	Save(path string) error
}

// addPages adds each image to pdf, using dpi for any image which
// doesn't record its resolution
func addPages(pdf Pdfer, paths []string, dpi float64, logger *log.Logger) error {
	for _, p := range paths {
		img, res, err := imgio.Open(p)
		if err != nil {
			return err
		}
		if !res.Valid() && dpi > 0 {
			res = imgio.Uniform(dpi)
		}
		logger.Println("Adding", p)
		err = pdf.AddPage(img, res)
		if err != nil {
			return fmt.Errorf("Error adding %s to pdf: %v", p, err)
		}
	}
	return nil
}

func main() {
	verbose := flag.Bool("v", false, "verbose")
	dpi := flag.Float64("dpi", 0, "resolution to use for pages which don't record one")
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

	paths, err := pipeline.ListInputs(flag.Arg(0), verboselog)
	if err != nil {
		log.Fatalln(err)
	}

	pdf := new(scantools.Fpdf)
	err = pdf.Setup()
	if err != nil {
		log.Fatalln("Failed to set up pdf:", err)
	}

	err = addPages(pdf, paths, *dpi, verboselog)
	if err != nil {
		log.Fatalln(err)
	}

	err = pdf.Save(flag.Arg(1))
	if err != nil {
		log.Fatalln("Failed to save", flag.Arg(1)+":", err)
	}
	verboselog.Printf("Saved %d pages to %s\n", len(paths), flag.Arg(1))
}
