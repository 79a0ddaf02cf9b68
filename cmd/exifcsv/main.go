// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

// exifcsv lists the times and locations recorded in photographs.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"rescribe.xyz/scantools/internal/pipeline"
	"rescribe.xyz/scantools/photo"
)

const usage = `Usage: exifcsv [-v] photo-or-dir [out.csv]

Prints the times and location recorded in the EXIF data of each
image (.jpg, .jpeg, .tiff or .png) as csv, and optionally saves
them as a csv file, sorted by the time each photo was taken. The
saved file has an extra shift_mins column, the number of minutes
since the earliest photo was taken.
`

// readAll reads the info of each photo, logging any which can't be read
func readAll(paths []string, logger *log.Logger) []photo.Info {
	var infos []photo.Info
	for _, p := range paths {
		info, err := photo.ReadFile(p)
		if err != nil {
			logger.Printf("Error reading %s: %v\n", p, err)
			continue
		}
		infos = append(infos, info)
	}
	return infos
}

// printRows writes the metadata of each photo as csv, in the order
// given, without the shift_mins column which needs the whole set
func printRows(w io.Writer, infos []photo.Info) error {
	cw := csv.NewWriter(w)
	cols := len(photo.CSVHeader) - 1
	err := cw.Write(photo.CSVHeader[:cols])
	if err != nil {
		return err
	}
	for _, info := range infos {
		err = cw.Write(photo.Record(info, 0, false)[:cols])
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func main() {
	verbose := flag.Bool("v", false, "verbose")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 || flag.NArg() > 2 {
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

	paths, _, err := photo.InputsWithExts(flag.Arg(0), photo.ReadExts)
	if err != nil {
		log.Fatalln(err)
	}
	verboselog.Printf("Reading %d photos\n", len(paths))

	infos := readAll(paths, log.Default())
	err = printRows(os.Stdout, infos)
	if err != nil {
		log.Fatalln("Error printing photo details:", err)
	}

	if flag.NArg() < 2 {
		return
	}
	f, err := os.Create(flag.Arg(1))
	if err != nil {
		log.Fatalln("Error creating", flag.Arg(1)+":", err)
	}
	err = photo.WriteCSV(f, infos)
	if err != nil {
		f.Close()
		log.Fatalln("Error writing csv:", err)
	}
	err = f.Close()
	if err != nil {
		log.Fatalln("Error closing", flag.Arg(1)+":", err)
	}
	verboselog.Println("Saved", flag.Arg(1))
}
