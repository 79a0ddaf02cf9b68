// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"

	"rescribe.xyz/scantools/imgio"
	"rescribe.xyz/scantools/preproc"
)

// CleanupOptions control CleanupFile
type CleanupOptions struct {
	Params  preproc.CleanupParams
	Colours int
	// DPI replaces the resolution of every page when set
	DPI  float64
	Crop string
	PDF  string
}

// Validate checks that the options are usable
func (o CleanupOptions) Validate() error {
	if o.Colours < 2 || o.Colours > 256 {
		return fmt.Errorf("Number of colours must be between 2 and 256, got %d", o.Colours)
	}
	if o.Params.Weight != preproc.WeightCustom {
		if _, err := preproc.WeightPreset(o.Params.Weight); err != nil {
			return err
		}
	}
	if o.Crop != "" {
		if _, ok := preproc.PaperSizes[o.Crop]; !ok {
			return fmt.Errorf("Unknown crop size %q, use one of %v", o.Crop, preproc.PaperNames())
		}
	}
	if o.DPI < 0 {
		return fmt.Errorf("DPI cannot be negative, got %v", o.DPI)
	}
	return nil
}

// CleanupFormat is the format CleanupFile saves in: TIFF for black
// and white, PNG for anything with more colours
func (o CleanupOptions) CleanupFormat() imgio.Format {
	if o.Colours == 2 {
		return imgio.TIFF
	}
	return imgio.PNG
}

// CleanupFile darkens and posterizes a single scanned page according
// to the weight of its font, saving the result in outdir.
func CleanupFile(path string, outdir string, opts CleanupOptions, logger *log.Logger) (Result, error) {
	r := Result{Input: path}

	err := opts.Validate()
	if err != nil {
		return r, err
	}

	format := opts.CleanupFormat()
	r.Output = OutputPath(path, outdir, format)
	if samePath(r.Output, path) {
		return r, fmt.Errorf("Input and output file are the same (%s)", path)
	}

	logger.Println("Opening", path)
	img, res, err := imgio.Open(path)
	if err != nil {
		return r, err
	}

	logger.Println("Cleaning up with font weight", opts.Params.Weight)
	gray, err := preproc.Cleanup(preproc.ToGray(img), opts.Params)
	if err != nil {
		return r, err
	}

	if opts.DPI > 0 {
		res = imgio.Uniform(opts.DPI)
	}
	r.Resolution = res

	if opts.Crop != "" {
		cropped, err := preproc.Crop(gray, opts.Crop, res)
		switch {
		case errors.Is(err, preproc.ErrNoResolution), errors.Is(err, preproc.ErrUnknownPaper):
			logger.Printf("Warning: not cropping %s: %v\n", path, err)
		case err != nil:
			return r, fmt.Errorf("Error cropping %s: %v", path, err)
		default:
			gray = cropped
		}
	}

	out, err := preproc.Posterize(gray, opts.Colours)
	if err != nil {
		return r, err
	}
	r.Image = out

	err = imgio.Save(r.Output, out, format, res)
	if err != nil {
		return r, err
	}
	logger.Println("Saved", r.Output)
	return r, nil
}

// RunCleanup cleans up each of the inputs with CleanupFile, saving
// them with conn.
func RunCleanup(ctx context.Context, inputs []string, conn Saver, opts CleanupOptions, logger *log.Logger, progress func(float64)) (Report, error) {
	err := opts.Validate()
	if err != nil {
		return Report{}, err
	}
	process := func(path string, outdir string) (Result, error) {
		return CleanupFile(path, outdir, opts, logger)
	}
	return run(ctx, inputs, conn, process, opts.PDF, logger, progress)
}
