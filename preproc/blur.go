// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package preproc

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// Blur selects an optional blur to run before thresholding
type Blur string

const (
	BlurNone      Blur = "none"
	BlurGauss     Blur = "gauss"
	BlurSelective Blur = "selgauss"
)

// sigma converts a blur radius, as given to the gimp gaussian
// blur filters, to a standard deviation
func sigma(radius float64) float64 {
	return math.Sqrt(-(radius * radius) / (2 * math.Log(1.0/255.0)))
}

// Gaussian blurs img isotropically with the given radius
func Gaussian(img *image.Gray, radius float64) *image.Gray {
	if radius <= 0 {
		return apply(img, identity())
	}
	return ToGray(imaging.Blur(img, sigma(radius)))
}

// SelectiveGaussian blurs img, only averaging each pixel with the
// neighbours whose value is within maxDelta of its own. This smooths
// paper texture while keeping the edges of text sharp.
func SelectiveGaussian(img *image.Gray, radius float64, maxDelta int) *image.Gray {
	radius = math.Abs(radius) + 1
	sd := sigma(radius)
	size := int(math.Ceil(radius))

	// weights for offsets 0..size in each direction
	kernel := make([]float64, size+1)
	for i := range kernel {
		kernel[i] = math.Exp(-float64(i*i) / (2 * sd * sd))
	}

	b := img.Bounds()
	new := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := int(img.GrayAt(x, y).Y)
			var sum, weights float64
			for dy := -size; dy <= size; dy++ {
				yy := y + dy
				if yy < b.Min.Y || yy >= b.Max.Y {
					continue
				}
				for dx := -size; dx <= size; dx++ {
					xx := x + dx
					if xx < b.Min.X || xx >= b.Max.X {
						continue
					}
					v := int(img.GrayAt(xx, yy).Y)
					d := v - c
					if d > maxDelta || -d > maxDelta {
						continue
					}
					w := kernel[abs(dx)] * kernel[abs(dy)]
					sum += w * float64(v)
					weights += w
				}
			}
			new.SetGray(x, y, color.Gray{clamp(sum / weights)})
		}
	}
	return new
}

func identity() [256]uint8 {
	var lut [256]uint8
	for v := range lut {
		lut[v] = uint8(v)
	}
	return lut
}

func abs(i int) int {
	if i < 0 {
		return -i
	}
	return i
}
