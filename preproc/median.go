// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package preproc

import (
	"fmt"
	"image"
	"image/color"
)

// Median replaces each pixel with the median of the ksize x ksize
// window around it. Pixels outside of the image count as black, so
// dark values creep in from the edges with large windows.
func Median(img *image.Gray, ksize int) (*image.Gray, error) {
	if ksize < 1 || ksize%2 == 0 {
		return nil, fmt.Errorf("Median kernel size must be odd and positive, got %d", ksize)
	}
	b := img.Bounds()
	new := image.NewGray(b)
	step := ksize / 2
	half := ksize * ksize / 2

	at := func(x, y int) uint8 {
		if x < b.Min.X || x >= b.Max.X || y < b.Min.Y || y >= b.Max.Y {
			return 0
		}
		return img.GrayAt(x, y).Y
	}

	for y := b.Min.Y; y < b.Max.Y; y++ {
		var hist [256]int
		for wy := y - step; wy <= y+step; wy++ {
			for wx := b.Min.X - step; wx <= b.Min.X+step; wx++ {
				hist[at(wx, wy)]++
			}
		}
		for x := b.Min.X; x < b.Max.X; x++ {
			if x > b.Min.X {
				for wy := y - step; wy <= y+step; wy++ {
					hist[at(x-step-1, wy)]--
					hist[at(x+step, wy)]++
				}
			}
			seen := 0
			for v, c := range hist {
				seen += c
				if seen > half {
					new.SetGray(x, y, color.Gray{uint8(v)})
					break
				}
			}
		}
	}

	return new, nil
}
