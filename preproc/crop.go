// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package preproc

import (
	"errors"
	"fmt"
	"image"
	"math"
	"sort"

	"rescribe.xyz/scantools/imgio"
)

var (
	ErrUnknownPaper = errors.New("unknown paper size")
	ErrNoResolution = errors.New("image has no resolution")
)

// PaperSize is a page size in inches
type PaperSize struct {
	Width, Height float64
}

// PaperSizes are the sizes that scans can be cropped to
var PaperSizes = map[string]PaperSize{
	"A4":          {8.3, 11.7},
	"Half-A4":     {8.3, 5.85},
	"Letter":      {8.5, 11.0},
	"Half-Letter": {8.5, 5.5},
}

// PaperNames returns the names of all PaperSizes, sorted
func PaperNames() []string {
	var names []string
	for n := range PaperSizes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Crop keeps the top left region of img that corresponds to the
// named paper size at the given resolution. Scanners typically
// produce a full flatbed image, with the page aligned to the top
// left corner.
func Crop(img *image.Gray, paper string, res imgio.Resolution) (*image.Gray, error) {
	size, ok := PaperSizes[paper]
	if !ok {
		return img, fmt.Errorf("%w: %s", ErrUnknownPaper, paper)
	}
	if !res.Valid() {
		return img, ErrNoResolution
	}

	b := img.Bounds()
	w := int(math.Ceil(res.X * size.Width))
	h := int(math.Ceil(res.Y * size.Height))
	if w > b.Dx() {
		w = b.Dx()
	}
	if h > b.Dy() {
		h = b.Dy()
	}

	new := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		src := img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):img.PixOffset(b.Min.X+w, b.Min.Y+y)]
		copy(new.Pix[new.PixOffset(0, y):], src)
	}
	return new, nil
}
