// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package preproc

import (
	"fmt"
	"image"
	"math"
)

// BrightnessContrast adjusts brightness and contrast in the way the
// gimp brightness-contrast tool does. Both values range from -127 to
// 127, with 0 leaving the image unchanged.
func BrightnessContrast(img *image.Gray, brightness, contrast float64) *image.Gray {
	b := brightness / 127 / 2
	slant := math.Tan((contrast/127 + 1) * math.Pi / 4)

	var lut [256]uint8
	for v := range lut {
		f := float64(v) / 255
		if b < 0 {
			f = f * (1 + b)
		} else {
			f = f + (1-f)*b
		}
		f = (f-0.5)*slant + 0.5
		lut[v] = clamp(f * 255)
	}
	return apply(img, lut)
}

// Posterize reduces img to the given number of evenly spaced grey
// levels, rounding each pixel to the nearest one.
func Posterize(img *image.Gray, levels int) (*image.Paletted, error) {
	if levels < 2 || levels > 256 {
		return nil, fmt.Errorf("Posterize levels must be between 2 and 256, got %d", levels)
	}
	var lut [256]uint8
	for v := range lut {
		lut[v] = uint8(math.Round(float64(v) / 255 * float64(levels-1)))
	}

	b := img.Bounds()
	new := image.NewPaletted(image.Rect(0, 0, b.Dx(), b.Dy()), greys(levels))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			new.SetColorIndex(x-b.Min.X, y-b.Min.Y, lut[img.GrayAt(x, y).Y])
		}
	}
	return new, nil
}

// Weight is the font weight of a scanned document, which sets how
// aggressively Cleanup darkens it
type Weight string

const (
	WeightThin   Weight = "thin"
	WeightNormal Weight = "normal"
	WeightBold   Weight = "bold"
	WeightBolder Weight = "bolder"
	WeightCustom Weight = "custom"
)

// CleanupParams configures Cleanup. Radius, Brightness and Contrast
// are only used with WeightCustom, as the other weights set them.
type CleanupParams struct {
	Weight     Weight
	Radius     float64
	Brightness float64
	Contrast   float64
}

// WeightPreset returns the cleanup parameters for a font weight
func WeightPreset(w Weight) (CleanupParams, error) {
	switch w {
	case WeightThin:
		return CleanupParams{Weight: w}, nil
	case WeightNormal:
		return CleanupParams{Weight: w, Radius: 2, Brightness: -40, Contrast: 60}, nil
	case WeightBold:
		return CleanupParams{Weight: w, Radius: 4, Brightness: -70, Contrast: 80}, nil
	case WeightBolder:
		return CleanupParams{Weight: w, Radius: 6.5, Brightness: -80, Contrast: 80}, nil
	case WeightCustom:
		return CleanupParams{Weight: w, Radius: 1, Brightness: -70, Contrast: 80}, nil
	}
	return CleanupParams{}, fmt.Errorf("Unknown font weight %q", w)
}

// Cleanup darkens and sharpens text ready for posterizing. Thin text
// gets a single gentle brightness/contrast adjustment; everything
// else is lightly adjusted, blurred to fill in broken strokes, then
// adjusted strongly.
func Cleanup(img *image.Gray, p CleanupParams) (*image.Gray, error) {
	if p.Weight == WeightThin {
		return BrightnessContrast(img, -22, 20), nil
	}
	if p.Weight != WeightCustom {
		preset, err := WeightPreset(p.Weight)
		if err != nil {
			return nil, err
		}
		p = preset
	}

	new := BrightnessContrast(img, -20, 8)
	if p.Radius > 0 {
		new = Gaussian(new, p.Radius)
	}
	return BrightnessContrast(new, p.Brightness, p.Contrast), nil
}
