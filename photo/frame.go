// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package photo

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"math"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

const (
	DefaultFrameWidth  = 1280
	DefaultFrameHeight = 800
	DefaultRefScale    = 1.3

	jpegQuality = 95
)

// DisplaySize returns the size a w by h image is shown at, given its
// EXIF orientation. Orientations 5 to 8 turn the image on its side.
func DisplaySize(w, h, orientation int) (int, int) {
	if orientation >= 5 && orientation <= 8 {
		return h, w
	}
	return w, h
}

// Orient transforms img as its EXIF orientation says it should be
// displayed, so that the result is upright
func Orient(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	}
	return img
}

func landscape(w, h int) bool {
	return w >= h
}

// RescaleFactor gives the factor to shrink an image shown at
// displayW by displayH by to suit a frame. An image the same way
// round as the frame is kept at least refScale times the frame size
// in one dimension, so it can be cropped or zoomed a little; one the
// other way round is fit to the frame's shorter side. Images are
// never enlarged.
func RescaleFactor(frameW, frameH, displayW, displayH int, refScale float64) float64 {
	var f float64
	switch {
	case landscape(frameW, frameH) == landscape(displayW, displayH):
		refW := float64(frameW) * refScale
		refH := float64(frameH) * refScale
		f = math.Max(refW/float64(displayW), refH/float64(displayH))
	case landscape(frameW, frameH):
		f = float64(frameW) / float64(displayW)
	default:
		f = float64(frameH) / float64(displayH)
	}
	return math.Min(1, f)
}

// FrameOptions control ResizeForFrame
type FrameOptions struct {
	Width    int
	Height   int
	RefScale float64
	// Upright rotates the pixels to their display orientation rather
	// than keeping the orientation flag
	Upright bool
}

// DefaultFrameOptions suit a common 1280x800 frame
func DefaultFrameOptions() FrameOptions {
	return FrameOptions{Width: DefaultFrameWidth, Height: DefaultFrameHeight, RefScale: DefaultRefScale}
}

// ResizeForFrame shrinks the jpeg at in to suit a photo frame, saving
// it into outdir with the same name. All metadata apart from the
// orientation is dropped. It returns the path saved to.
func ResizeForFrame(in string, outdir string, opts FrameOptions) (string, error) {
	if opts.Width <= 0 || opts.Height <= 0 || opts.RefScale <= 0 {
		return "", fmt.Errorf("Invalid frame size %dx%d, scale %v", opts.Width, opts.Height, opts.RefScale)
	}

	b, err := os.ReadFile(in)
	if err != nil {
		return "", fmt.Errorf("Error reading %s: %v", in, err)
	}
	info, err := ReadInfo(bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	img, err := jpeg.Decode(bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("Error decoding %s: %v", in, err)
	}

	orientation := info.Orientation
	if opts.Upright {
		img = Orient(img, orientation)
		orientation = 1
	}

	bounds := img.Bounds()
	dw, dh := DisplaySize(bounds.Dx(), bounds.Dy(), orientation)
	f := RescaleFactor(opts.Width, opts.Height, dw, dh, opts.RefScale)
	if f < 1 {
		w := int(math.Ceil(float64(bounds.Dx()) * f))
		h := int(math.Ceil(float64(bounds.Dy()) * f))
		img = imaging.Resize(img, w, h, imaging.Lanczos)
	}

	var buf bytes.Buffer
	err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality))
	if err != nil {
		return "", fmt.Errorf("Error encoding %s: %v", in, err)
	}

	sl, err := segments(buf.Bytes())
	if err != nil {
		return "", err
	}
	rootIb, err := newRootIb()
	if err != nil {
		return "", err
	}
	err = setTag(rootIb, ifdRoot, "Orientation", []uint16{uint16(orientation)})
	if err != nil {
		return "", err
	}
	err = sl.SetExif(rootIb)
	if err != nil {
		return "", fmt.Errorf("Error setting orientation of %s: %v", in, err)
	}

	out := filepath.Join(outdir, filepath.Base(in))
	return out, writeSegments(out, sl)
}
