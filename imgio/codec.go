// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package imgio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"image"
	_ "image/jpeg"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/rwcarlsen/goexif/tiff"
	_ "golang.org/x/image/bmp"
	xtiff "golang.org/x/image/tiff"
)

// Format is an output image format
type Format string

const (
	PNG  Format = "png"
	TIFF Format = "tiff"
)

// Formats lists the supported output formats
var Formats = []Format{PNG, TIFF}

// InputExts are the file extensions of images that can be processed,
// in the order they are listed from a directory. They are lower case,
// as scanning software writes them.
var InputExts = []string{".png", ".tiff", ".jpg", ".jpeg"}

// IsInput reports whether path has one of the InputExts
func IsInput(path string) bool {
	ext := filepath.Ext(path)
	for _, e := range InputExts {
		if ext == e {
			return true
		}
	}
	return false
}

// ParseFormat converts a format name into a Format
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "png":
		return PNG, nil
	case "tiff", "tif":
		return TIFF, nil
	}
	return "", fmt.Errorf("Unsupported output format %q, use one of %v", s, Formats)
}

// Open decodes the image at path, returning it along with its
// embedded resolution.
func Open(path string) (image.Image, Resolution, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, Resolution{}, err
	}
	img, _, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, Resolution{}, fmt.Errorf("Could not decode image %s: %v", path, err)
	}
	res, err := DecodeResolution(b)
	if err != nil {
		// a damaged resolution block shouldn't stop the image being used
		return img, Resolution{}, nil
	}
	return img, res, nil
}

// Encode writes img to w in the given format, recording res in the
// file if it is valid.
func Encode(w io.Writer, img image.Image, format Format, res Resolution) error {
	var buf bytes.Buffer
	var err error
	switch format {
	case PNG:
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		err = enc.Encode(&buf, img)
		if err == nil && res.Valid() {
			err = addPhys(&buf, res)
		}
	case TIFF:
		err = xtiff.Encode(&buf, img, &xtiff.Options{Compression: xtiff.Deflate})
		if err == nil {
			err = setTiffResolution(buf.Bytes(), res)
		}
	default:
		err = fmt.Errorf("Unsupported output format %q", format)
	}
	if err != nil {
		return err
	}
	_, err = w.Write(buf.Bytes())
	return err
}

// Save encodes img into a new file at path
func Save(path string, img image.Image, format Format, res Resolution) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("Could not create file %s: %v", path, err)
	}
	err = Encode(f, img, format, res)
	if err != nil {
		f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("Could not encode image %s: %v", path, err)
	}
	return f.Close()
}

// addPhys inserts a pHYs chunk straight after the IHDR chunk of an
// encoded png
func addPhys(buf *bytes.Buffer, res Resolution) error {
	b := buf.Bytes()
	// signature, then IHDR: length(4) type(4) data(13) crc(4)
	ihdrEnd := len(pngSig) + 8 + 13 + 4
	if len(b) < ihdrEnd || string(b[len(pngSig)+4:len(pngSig)+8]) != "IHDR" {
		return errors.New("png: IHDR not found")
	}

	chunk := make([]byte, 8+9+4)
	binary.BigEndian.PutUint32(chunk[0:4], 9)
	copy(chunk[4:8], "pHYs")
	binary.BigEndian.PutUint32(chunk[8:12], uint32(math.Round(res.X/metresPerInch)))
	binary.BigEndian.PutUint32(chunk[12:16], uint32(math.Round(res.Y/metresPerInch)))
	chunk[16] = 1
	binary.BigEndian.PutUint32(chunk[17:21], crc32.ChecksumIEEE(chunk[4:17]))

	out := make([]byte, 0, len(b)+len(chunk))
	out = append(out, b[:ihdrEnd]...)
	out = append(out, chunk...)
	out = append(out, b[ihdrEnd:]...)
	buf.Reset()
	_, err := buf.Write(out)
	return err
}

// setTiffResolution overwrites the resolution rationals of an encoded
// tiff in place. The encoder always writes both tags, in inches, as
// 72dpi; an invalid res is written as 0 rather than leave that guess.
func setTiffResolution(b []byte, res Resolution) error {
	t, err := tiff.Decode(bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("Could not reread encoded tiff: %v", err)
	}
	if len(t.Dirs) == 0 {
		return errors.New("tiff: no image directory")
	}
	found := 0
	for _, tag := range t.Dirs[0].Tags {
		var dpi float64
		switch tag.Id {
		case tagXResolution:
			dpi = res.X
		case tagYResolution:
			dpi = res.Y
		default:
			continue
		}
		if !res.Valid() {
			dpi = 0
		}
		off := int(tag.ValOffset)
		if tag.ValOffset == 0 || off+8 > len(b) {
			return errors.New("tiff: resolution tag has no value offset")
		}
		num, den := rational(dpi)
		t.Order.PutUint32(b[off:off+4], num)
		t.Order.PutUint32(b[off+4:off+8], den)
		found++
	}
	if found != 2 {
		return errors.New("tiff: resolution tags not found")
	}
	return nil
}

// rational approximates v as a fraction, keeping whole numbers exact
func rational(v float64) (uint32, uint32) {
	if v == math.Trunc(v) {
		return uint32(v), 1
	}
	return uint32(math.Round(v * 1000)), 1000
}
