// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

// imgio reads and writes page images along with the resolution
// (dots per inch) embedded in them, which the standard library
// codecs discard.
package imgio

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"io"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

const (
	metresPerInch = 0.0254
	cmPerInch     = 2.54

	tagXResolution    = 282
	tagYResolution    = 283
	tagResolutionUnit = 296

	unitInch = 2
	unitCm   = 3
)

var pngSig = []byte("\x89PNG\r\n\x1a\n")

// Resolution is the horizontal and vertical resolution of an image
// in dots per inch. The zero value means the resolution is unknown.
type Resolution struct {
	X, Y float64
}

// Valid reports whether both directions have a usable resolution
func (r Resolution) Valid() bool {
	return r.X > 0 && r.Y > 0
}

// Uniform returns a Resolution with the same dpi in both directions
func Uniform(dpi float64) Resolution {
	return Resolution{X: dpi, Y: dpi}
}

// DecodeResolution finds the resolution embedded in an encoded image.
// An image without resolution information gives a zero Resolution
// and no error.
func DecodeResolution(b []byte) (Resolution, error) {
	switch {
	case bytes.HasPrefix(b, pngSig):
		return pngResolution(b)
	case len(b) > 2 && b[0] == 0xff && b[1] == 0xd8:
		return jpegResolution(b)
	case bytes.HasPrefix(b, []byte("II*\x00")), bytes.HasPrefix(b, []byte("MM\x00*")):
		return tiffResolution(b)
	}
	return Resolution{}, nil
}

// pngResolution reads the pHYs chunk, if present
func pngResolution(b []byte) (Resolution, error) {
	r := bytes.NewReader(b[len(pngSig):])
	for {
		var hdr [8]byte
		_, err := io.ReadFull(r, hdr[:])
		if err == io.EOF {
			return Resolution{}, nil
		}
		if err != nil {
			return Resolution{}, errors.New("png: truncated chunk header")
		}
		length := binary.BigEndian.Uint32(hdr[:4])
		typ := string(hdr[4:])
		if typ == "IDAT" || typ == "IEND" {
			// pHYs must come before the image data
			return Resolution{}, nil
		}
		if typ != "pHYs" {
			_, err = r.Seek(int64(length)+4, io.SeekCurrent)
			if err != nil {
				return Resolution{}, err
			}
			continue
		}
		if length != 9 {
			return Resolution{}, errors.New("png: bad pHYs length")
		}
		var phys [9]byte
		_, err = io.ReadFull(r, phys[:])
		if err != nil {
			return Resolution{}, errors.New("png: truncated pHYs chunk")
		}
		if phys[8] != 1 {
			// aspect ratio only
			return Resolution{}, nil
		}
		x := float64(binary.BigEndian.Uint32(phys[0:4]))
		y := float64(binary.BigEndian.Uint32(phys[4:8]))
		return Resolution{X: x * metresPerInch, Y: y * metresPerInch}, nil
	}
}

// jpegResolution uses the JFIF density if it is given in absolute
// units, falling back to the EXIF resolution tags.
func jpegResolution(b []byte) (Resolution, error) {
	r := bufio.NewReader(bytes.NewReader(b[2:]))
	for {
		marker, err := r.ReadByte()
		if err != nil {
			break
		}
		if marker != 0xff {
			break
		}
		kind, err := r.ReadByte()
		if err != nil {
			break
		}
		if kind == 0xd8 || (kind >= 0xd0 && kind <= 0xd7) {
			continue
		}
		if kind == 0xda || kind == 0xd9 {
			break
		}
		var l [2]byte
		_, err = io.ReadFull(r, l[:])
		if err != nil {
			break
		}
		length := int(binary.BigEndian.Uint16(l[:])) - 2
		if length < 0 {
			break
		}
		seg := make([]byte, length)
		_, err = io.ReadFull(r, seg)
		if err != nil {
			break
		}
		if kind != 0xe0 || len(seg) < 12 || string(seg[:5]) != "JFIF\x00" {
			continue
		}
		units := seg[7]
		x := float64(binary.BigEndian.Uint16(seg[8:10]))
		y := float64(binary.BigEndian.Uint16(seg[10:12]))
		switch units {
		case 1:
			return Resolution{X: x, Y: y}, nil
		case 2:
			return Resolution{X: x * cmPerInch, Y: y * cmPerInch}, nil
		}
		break
	}

	x, err := exif.Decode(bytes.NewReader(b))
	if err != nil {
		// no usable exif is not an error for our purposes
		return Resolution{}, nil
	}
	xres, err := x.Get(exif.XResolution)
	if err != nil {
		return Resolution{}, nil
	}
	yres, err := x.Get(exif.YResolution)
	if err != nil {
		yres = xres
	}
	unit := unitInch
	if u, err := x.Get(exif.ResolutionUnit); err == nil {
		if v, err := u.Int(0); err == nil {
			unit = v
		}
	}
	return tagsResolution(xres, yres, unit)
}

// tiffResolution reads the resolution tags of the first IFD
func tiffResolution(b []byte) (Resolution, error) {
	t, err := tiff.Decode(bytes.NewReader(b))
	if err != nil {
		return Resolution{}, err
	}
	if len(t.Dirs) == 0 {
		return Resolution{}, nil
	}
	var xres, yres *tiff.Tag
	unit := unitInch
	for _, tag := range t.Dirs[0].Tags {
		switch tag.Id {
		case tagXResolution:
			xres = tag
		case tagYResolution:
			yres = tag
		case tagResolutionUnit:
			if v, err := tag.Int(0); err == nil {
				unit = v
			}
		}
	}
	if xres == nil {
		return Resolution{}, nil
	}
	if yres == nil {
		yres = xres
	}
	return tagsResolution(xres, yres, unit)
}

func tagsResolution(xres, yres *tiff.Tag, unit int) (Resolution, error) {
	xn, xd, err := xres.Rat2(0)
	if err != nil || xd == 0 {
		return Resolution{}, nil
	}
	yn, yd, err := yres.Rat2(0)
	if err != nil || yd == 0 {
		return Resolution{}, nil
	}
	res := Resolution{X: float64(xn) / float64(xd), Y: float64(yn) / float64(yd)}
	switch unit {
	case unitInch:
		return res, nil
	case unitCm:
		return Resolution{X: res.X * cmPerInch, Y: res.Y * cmPerInch}, nil
	}
	// unit 1 means no absolute unit, so the values are only an aspect ratio
	return Resolution{}, nil
}
