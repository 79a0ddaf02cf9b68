// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

// Package preproc contains the image operations used to clean up
// scanned document pages: cropping, contrast stretching, denoising,
// thresholding and the brightness/contrast based cleanup.
//
// All operations work on *image.Gray and return a new image,
// leaving their input untouched.
package preproc

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// ToGray converts an image to 8 bit grayscale, with its bounds
// starting at the origin
func ToGray(img image.Image) *image.Gray {
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	return gray
}

// Histogram counts the number of pixels at each grey level
func Histogram(img *image.Gray) [256]int {
	var hist [256]int
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):img.PixOffset(b.Max.X, y)]
		for _, v := range row {
			hist[v]++
		}
	}
	return hist
}

// apply maps every pixel through a lookup table
func apply(img *image.Gray, lut [256]uint8) *image.Gray {
	b := img.Bounds()
	new := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			new.SetGray(x, y, color.Gray{lut[img.GrayAt(x, y).Y]})
		}
	}
	return new
}

// clamp rounds v and limits it to the 0-255 range
func clamp(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}

// greys returns n evenly spaced grey levels from black to white
func greys(n int) color.Palette {
	p := make(color.Palette, n)
	for i := range p {
		p[i] = color.Gray{uint8(255 * i / (n - 1))}
	}
	return p
}
