// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package preproc

import (
	"fmt"
	"image"
	"math"
)

// Contrast selects how intensities are stretched before thresholding
type Contrast string

const (
	ContrastAuto   Contrast = "auto"
	ContrastMinMax Contrast = "minmax"
	ContrastNone   Contrast = "none"
)

// ParseContrast checks that s names a known contrast mode
func ParseContrast(s string) (Contrast, error) {
	switch c := Contrast(s); c {
	case ContrastAuto, ContrastMinMax, ContrastNone:
		return c, nil
	}
	return "", fmt.Errorf("Unknown contrast mode %q, use auto, minmax or none", s)
}

// Quantiles returns the low and high quantiles that a Contrast mode
// stretches between. ok is false for ContrastNone.
func (c Contrast) Quantiles() (lo, hi float64, ok bool) {
	switch c {
	case ContrastAuto:
		// the old gimp levels stretch default
		return 0.006, 0.994, true
	case ContrastMinMax:
		return 0, 1, true
	}
	return 0, 0, false
}

// Quantile finds the q quantile of the pixel values counted in hist,
// interpolating linearly between the two nearest values.
func Quantile(hist [256]int, q float64) float64 {
	n := 0
	for _, c := range hist {
		n += c
	}
	if n == 0 {
		return 0
	}
	if q < 0 {
		q = 0
	}
	if q > 1 {
		q = 1
	}
	pos := q * float64(n-1)
	k := int(math.Floor(pos))
	frac := pos - float64(k)

	lower := nth(hist, k)
	if frac == 0 || k+1 >= n {
		return float64(lower)
	}
	upper := nth(hist, k+1)
	return float64(lower) + frac*float64(upper-lower)
}

// nth returns the value at index i of the sorted pixel values
func nth(hist [256]int, i int) int {
	seen := 0
	for v, c := range hist {
		seen += c
		if seen > i {
			return v
		}
	}
	return 255
}

// Stretch linearly maps the lo and hi quantile intensities of img to
// black and white, clipping anything outside of them. An image with
// no spread between the quantiles is returned as an unchanged copy.
func Stretch(img *image.Gray, lo, hi float64) *image.Gray {
	hist := Histogram(img)
	min := Quantile(hist, lo)
	max := Quantile(hist, hi)

	lut := identity()
	if max <= min {
		return apply(img, lut)
	}

	for v := range lut {
		s := (float64(v) - min) / (max - min)
		if s < 0 {
			s = 0
		}
		if s > 1 {
			s = 1
		}
		lut[v] = uint8(255 * s)
	}
	return apply(img, lut)
}
