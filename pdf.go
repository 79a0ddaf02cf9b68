// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package scantools

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"

	"github.com/nickjwhite/gofpdf"
	"golang.org/x/image/draw"
	"rescribe.xyz/scantools/imgio"
)

const pageWidth = 8.5 // fallback pageWidth in inches
const ptPerInch = 72

// Fpdf bundles page images into a single PDF
type Fpdf struct {
	fpdf  *gofpdf.Fpdf
	pages int
}

// Setup creates a new PDF with appropriate settings
func (p *Fpdf) Setup() error {
	p.fpdf = gofpdf.New("P", "pt", "A4", "")
	p.fpdf.SetAutoPageBreak(false, float64(0))
	p.pages = 0
	return p.fpdf.Error()
}

// pageSize gives the size in points of an image printed at its
// resolution. Images without a resolution are scaled to pageWidth.
func pageSize(b image.Rectangle, res imgio.Resolution) (float64, float64) {
	if res.Valid() {
		return float64(b.Dx()) / res.X * ptPerInch, float64(b.Dy()) / res.Y * ptPerInch
	}
	scale := pageWidth * ptPerInch / float64(b.Dx())
	return pageWidth * ptPerInch, float64(b.Dy()) * scale
}

// AddPage adds a page to the pdf holding an image, sized to match
// its resolution
func (p *Fpdf) AddPage(img image.Image, res imgio.Resolution) error {
	if p.fpdf == nil {
		return errors.New("PDF not set up")
	}
	b := img.Bounds()
	if b.Empty() {
		return errors.New("Cannot add an empty image to a PDF")
	}

	var buf bytes.Buffer
	err := png.Encode(&buf, eightBit(img))
	if err != nil {
		return fmt.Errorf("Could not encode image for PDF: %v", err)
	}

	w, h := pageSize(b, res)
	p.pages++
	name := fmt.Sprintf("page%d", p.pages)
	p.fpdf.AddPageFormat("P", gofpdf.SizeType{Wd: w, Ht: h})
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	_ = p.fpdf.RegisterImageOptionsReader(name, opts, &buf)
	p.fpdf.ImageOptions(name, 0, 0, w, h, false, opts, 0, "")

	return p.fpdf.Error()
}

// eightBit converts images with 16 bit channels, which the PDF
// library cannot embed
func eightBit(img image.Image) image.Image {
	switch img.(type) {
	case *image.Gray, *image.Paletted, *image.RGBA, *image.NRGBA:
		return img
	}
	b := img.Bounds()
	new := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(new, new.Bounds(), img, b.Min, draw.Src)
	return new
}

// AddFile adds a page from an image file
func (p *Fpdf) AddFile(path string) error {
	img, res, err := imgio.Open(path)
	if err != nil {
		return err
	}
	return p.AddPage(img, res)
}

// Pages returns the number of pages added so far
func (p *Fpdf) Pages() int {
	return p.pages
}

// Save saves the PDF to the file at path
func (p *Fpdf) Save(path string) error {
	if p.pages == 0 {
		return errors.New("No pages in PDF")
	}
	return p.fpdf.OutputFileAndClose(path)
}
