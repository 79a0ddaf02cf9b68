// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package preproc

import (
	"image"

	rpreproc "rescribe.xyz/preproc"
)

// TODO: check how well the width/60 guess holds up on 600dpi scans
func autowsize(bounds image.Rectangle) int {
	return bounds.Dx() / 60
}

// Sauvola binarizes img with Sauvola's adaptive threshold, which
// copes better than a global threshold with uneven lighting across
// a page. A windowsize of 0 picks one based on the image width.
func Sauvola(img *image.Gray, ksize float64, windowsize int) *image.Paletted {
	if windowsize == 0 {
		windowsize = autowsize(img.Bounds())
	}
	if windowsize%2 == 0 {
		windowsize++
	}

	bin := rpreproc.IntegralSauvola(img, ksize, windowsize)
	// the binarized image is pure black and white, so one threshold
	// maps it straight onto the 2 colour palette
	return Classify(bin, []uint8{127})
}
