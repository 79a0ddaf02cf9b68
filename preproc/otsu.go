// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package preproc

import (
	"fmt"
	"image"
)

// occupied returns the lowest and highest grey levels present in
// hist. ok is false for an empty histogram.
func occupied(hist [256]int) (lo, hi int, ok bool) {
	lo, hi = -1, -1
	for v, c := range hist {
		if c == 0 {
			continue
		}
		if lo == -1 {
			lo = v
		}
		hi = v
	}
	return lo, hi, lo != -1
}

// Otsu finds the threshold which best separates the pixels counted
// in hist into two classes, by maximising the variance between them.
// Pixels above the threshold are the foreground. A histogram with
// only one grey level gives that level.
func Otsu(hist [256]int) uint8 {
	lo, hi, ok := occupied(hist)
	if !ok {
		return 0
	}
	if lo == hi {
		return uint8(lo)
	}

	var total, sum float64
	for v := lo; v <= hi; v++ {
		total += float64(hist[v])
		sum += float64(v * hist[v])
	}

	var w1, s1, best float64
	t := lo
	for v := lo; v < hi; v++ {
		w1 += float64(hist[v])
		s1 += float64(v * hist[v])
		w2 := total - w1
		if w1 == 0 || w2 == 0 {
			continue
		}
		m1 := s1 / w1
		m2 := (sum - s1) / w2
		variance := w1 * w2 * (m1 - m2) * (m1 - m2)
		if variance > best {
			best = variance
			t = v
		}
	}
	return uint8(t)
}

// MultiOtsu finds the classes-1 thresholds which split the pixels
// counted in hist into classes groups with the greatest variance
// between them. Each threshold is the highest grey level of its
// class. There must be at least as many grey levels present as
// there are classes.
func MultiOtsu(hist [256]int, classes int) ([]uint8, error) {
	if classes < 2 {
		return nil, fmt.Errorf("Need at least 2 classes, got %d", classes)
	}
	lo, hi, ok := occupied(hist)
	levels := 0
	for _, c := range hist {
		if c > 0 {
			levels++
		}
	}
	if !ok || levels < classes {
		return nil, fmt.Errorf("Cannot split %d grey levels into %d classes", levels, classes)
	}
	if classes == 2 {
		return []uint8{Otsu(hist)}, nil
	}

	// cumulative weight and first moment, with w[0] = 0
	n := hi - lo + 1
	w := make([]float64, n+1)
	s := make([]float64, n+1)
	for i := 0; i < n; i++ {
		c := float64(hist[lo+i])
		w[i+1] = w[i] + c
		s[i+1] = s[i] + c*float64(lo+i)
	}
	// score of a class holding bins a to b inclusive
	score := func(a, b int) float64 {
		cw := w[b+1] - w[a]
		if cw == 0 {
			return 0
		}
		cs := s[b+1] - s[a]
		return cs * cs / cw
	}

	best := make([][]float64, classes+1)
	from := make([][]int, classes+1)
	for j := range best {
		best[j] = make([]float64, n)
		from[j] = make([]int, n)
	}
	for b := 0; b < n; b++ {
		best[1][b] = score(0, b)
	}
	for j := 2; j <= classes; j++ {
		for b := j - 1; b < n; b++ {
			first := true
			for a := j - 2; a < b; a++ {
				v := best[j-1][a] + score(a+1, b)
				if first || v > best[j][b] {
					best[j][b] = v
					from[j][b] = a
					first = false
				}
			}
		}
	}

	thresholds := make([]uint8, classes-1)
	b := n - 1
	for j := classes; j >= 2; j-- {
		a := from[j][b]
		thresholds[j-2] = uint8(lo + a)
		b = a
	}
	return thresholds, nil
}

// Classify labels each pixel by the thresholds it reaches, giving an
// image with len(thresholds)+1 evenly spaced greys. A single threshold
// is the top of the dark class, so only values above it are light.
// With several, a value equal to a threshold joins the class above.
// thresholds must be sorted in increasing order.
func Classify(img *image.Gray, thresholds []uint8) *image.Paletted {
	multi := len(thresholds) > 1
	var lut [256]uint8
	for v := range lut {
		n := 0
		for _, t := range thresholds {
			if v > int(t) || (multi && v == int(t)) {
				n++
			}
		}
		lut[v] = uint8(n)
	}

	b := img.Bounds()
	new := image.NewPaletted(image.Rect(0, 0, b.Dx(), b.Dy()), greys(len(thresholds)+1))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			new.SetColorIndex(x-b.Min.X, y-b.Min.Y, lut[img.GrayAt(x, y).Y])
		}
	}
	return new
}

// Threshold runs Otsu or multi-Otsu thresholding, as appropriate for
// the number of colours wanted, returning the thresholds used along
// with the classified image.
func Threshold(img *image.Gray, colours int) ([]uint8, *image.Paletted, error) {
	hist := Histogram(img)
	var thresholds []uint8
	if colours == 2 {
		thresholds = []uint8{Otsu(hist)}
	} else {
		var err error
		thresholds, err = MultiOtsu(hist, colours)
		if err != nil {
			return nil, nil, err
		}
	}
	return thresholds, Classify(img, thresholds), nil
}
