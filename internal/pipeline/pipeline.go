// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

// pipeline is a package used by the scantools commands, which
// handles the core functionality of cleaning up a batch of scanned
// pages. Note that it is considered an "internal" package, not
// intended for external use, and no guarantee is made of the
// stability of any interfaces provided.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"rescribe.xyz/scantools"
	"rescribe.xyz/scantools/imgio"
	"rescribe.xyz/scantools/preproc"
)

const (
	BinOtsu    = "otsu"
	BinSauvola = "sauvola"
)

// Saver is somewhere processed files can be saved to. Files are
// written into WorkDir and then passed to Save.
type Saver interface {
	WorkDir() string
	Save(path string) error
	Log(v ...interface{})
}

// Result describes the files written for one input
type Result struct {
	Input  string
	Output string
	// Extra holds any other files written, such as a kept original
	// or a histogram graph
	Extra      []string
	Thresholds []uint8
	Resolution imgio.Resolution
	Image      image.Image
}

// Failure is an input which could not be processed or saved
type Failure struct {
	Path string
	Err  error
}

// Report summarises a batch
type Report struct {
	Done   []Result
	Failed []Failure
}

// FailedPaths lists the inputs in Failed
func (r Report) FailedPaths() []string {
	var paths []string
	for _, f := range r.Failed {
		paths = append(paths, f.Path)
	}
	return paths
}

// OutputPath gives the path an input will be saved to in outdir
func OutputPath(path string, outdir string, format imgio.Format) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(outdir, stem+"."+string(format))
}

// samePath reports whether two paths refer to the same file
func samePath(a, b string) bool {
	aa, err1 := filepath.Abs(a)
	bb, err2 := filepath.Abs(b)
	if err1 != nil || err2 != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return aa == bb
}

// copyFile copies the file at src to dst, creating or truncating dst
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	_, err = io.Copy(out, in)
	if err != nil {
		out.Close()
		return err
	}
	info, err := in.Stat()
	if err == nil {
		_ = os.Chtimes(dst, info.ModTime(), info.ModTime())
	}
	return out.Close()
}

// paletteToGray converts a grey paletted image to 8 bit grayscale
func paletteToGray(p *image.Paletted) *image.Gray {
	var lut [256]uint8
	for i, c := range p.Palette {
		lut[i] = color.GrayModel.Convert(c).(color.Gray).Y
	}
	b := p.Bounds()
	gray := image.NewGray(b)
	for i, v := range p.Pix {
		gray.Pix[i] = lut[v]
	}
	return gray
}

// writeGraph saves a histogram graph next to an output
func writeGraph(output string, hist [256]int, thresholds []uint8) (string, error) {
	stem := strings.TrimSuffix(output, filepath.Ext(output))
	path := stem + ".hist.png"
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("Error creating graph file %s: %v", path, err)
	}
	err = scantools.HistogramGraph(hist, thresholds, filepath.Base(stem), f)
	if err != nil {
		f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("Error creating graph %s: %v", path, err)
	}
	return path, f.Close()
}

// ProcessFile cleans up a single scanned page, saving the result in
// outdir.
func ProcessFile(path string, outdir string, opts Options, logger *log.Logger) (Result, error) {
	r := Result{Input: path}

	err := opts.Validate()
	if err != nil {
		return r, err
	}

	r.Output = OutputPath(path, outdir, opts.Format)
	if samePath(r.Output, path) && !opts.Overwrite {
		return r, fmt.Errorf("Input and output file are the same (%s); change the output directory or allow overwriting", path)
	}

	if opts.KeepOriginal {
		orig := filepath.Join(outdir, "orig_"+filepath.Base(path))
		logger.Println("Keeping original as", orig)
		err = copyFile(path, orig)
		if err != nil {
			return r, fmt.Errorf("Error copying original to %s: %v", orig, err)
		}
		r.Extra = append(r.Extra, orig)
	}

	logger.Println("Opening", path)
	img, res, err := imgio.Open(path)
	if err != nil {
		return r, err
	}
	gray := preproc.ToGray(img)

	if !res.Valid() && opts.DPI > 0 {
		res = imgio.Uniform(opts.DPI)
	}
	r.Resolution = res

	if opts.Crop != "" {
		logger.Println("Cropping to", opts.Crop)
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

	if lo, hi, ok := opts.Contrast.Quantiles(); ok {
		logger.Printf("Stretching contrast between quantiles %.3f and %.3f\n", lo, hi)
		gray = preproc.Stretch(gray, lo, hi)
	}

	switch opts.Blur {
	case preproc.BlurGauss:
		logger.Println("Gaussian blurring with radius", opts.BlurRadius)
		gray = preproc.Gaussian(gray, opts.BlurRadius)
	case preproc.BlurSelective:
		logger.Println("Selective gaussian blurring with radius", opts.BlurRadius, "and max delta", opts.BlurDelta)
		gray = preproc.SelectiveGaussian(gray, opts.BlurRadius, opts.BlurDelta)
	}

	if opts.Median > 0 {
		logger.Println("Median filtering with kernel size", opts.Median)
		gray, err = preproc.Median(gray, opts.Median)
		if err != nil {
			return r, err
		}
	}

	hist := preproc.Histogram(gray)
	var out *image.Paletted
	if opts.Binarise == BinSauvola {
		logger.Println("Binarizing with Sauvola, k", opts.SauvolaK)
		out = preproc.Sauvola(gray, opts.SauvolaK, opts.SauvolaWindow)
	} else {
		r.Thresholds, out, err = preproc.Threshold(gray, opts.Colours)
		if err != nil {
			return r, fmt.Errorf("Error thresholding %s: %v", path, err)
		}
		logger.Println("Thresholded with", r.Thresholds)
	}

	var final image.Image = out
	if opts.Format == imgio.TIFF && opts.Colours > 2 {
		final = paletteToGray(out)
	}
	r.Image = final

	err = imgio.Save(r.Output, final, opts.Format, res)
	if err != nil {
		return r, err
	}
	logger.Println("Saved", r.Output)

	if opts.Graph {
		g, err := writeGraph(r.Output, hist, r.Thresholds)
		if err != nil {
			return r, err
		}
		r.Extra = append(r.Extra, g)
	}

	return r, nil
}

// processor runs on each file of a batch, writing into outdir
type processor func(path string, outdir string) (Result, error)

// run processes each input in turn, saving everything written with
// conn. A failure is logged and recorded in the report, and the next
// input is processed. Only cancellation of ctx stops the batch early.
// If pdfname is set, all outputs are also bundled into a PDF of that
// name. progress, if not nil, is called with the fraction done after
// each input.
func run(ctx context.Context, inputs []string, conn Saver, process processor, pdfname string, logger *log.Logger, progress func(float64)) (Report, error) {
	var report Report

	var pdf *scantools.Fpdf
	if pdfname != "" {
		pdf = &scantools.Fpdf{}
		err := pdf.Setup()
		if err != nil {
			return report, fmt.Errorf("Error setting up PDF: %v", err)
		}
	}

	for i, path := range inputs {
		select {
		case <-ctx.Done():
			return report, ctx.Err()
		default:
		}

		r, err := process(path, conn.WorkDir())
		if err != nil {
			conn.Log("Error processing", path+":", err)
			report.Failed = append(report.Failed, Failure{Path: path, Err: err})
			// save whatever extras were written, such as a kept original
			for _, e := range r.Extra {
				serr := conn.Save(e)
				if serr != nil {
					conn.Log("Error saving", e+":", serr)
				}
			}
		} else {
			if pdf != nil {
				err = pdf.AddPage(r.Image, r.Resolution)
				if err != nil {
					conn.Log("Error adding", path, "to PDF:", err)
				}
			}
			err = saveAll(conn, r)
			if err != nil {
				conn.Log("Error saving", path+":", err)
				report.Failed = append(report.Failed, Failure{Path: path, Err: err})
			} else {
				r.Image = nil
				report.Done = append(report.Done, r)
			}
		}

		if progress != nil {
			progress(float64(i+1) / float64(len(inputs)))
		}
	}

	if pdf != nil && pdf.Pages() > 0 {
		p := filepath.Join(conn.WorkDir(), filepath.Base(pdfname))
		logger.Println("Saving PDF", p)
		err := pdf.Save(p)
		if err != nil {
			return report, fmt.Errorf("Error saving PDF %s: %v", p, err)
		}
		err = conn.Save(p)
		if err != nil {
			return report, fmt.Errorf("Error saving PDF %s: %v", p, err)
		}
	}

	return report, nil
}

// saveAll passes every file written for a result to conn
func saveAll(conn Saver, r Result) error {
	for _, p := range append([]string{r.Output}, r.Extra...) {
		err := conn.Save(p)
		if err != nil {
			return err
		}
	}
	return nil
}

// Run cleans up each of the inputs with ProcessFile, saving them
// with conn.
func Run(ctx context.Context, inputs []string, conn Saver, opts Options, logger *log.Logger, progress func(float64)) (Report, error) {
	err := opts.Validate()
	if err != nil {
		return Report{}, err
	}
	process := func(path string, outdir string) (Result, error) {
		return ProcessFile(path, outdir, opts, logger)
	}
	return run(ctx, inputs, conn, process, opts.PDF, logger, progress)
}
