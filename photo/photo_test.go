// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package photo

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	exif "github.com/dsoprea/go-exif/v3"
	"github.com/google/go-cmp/cmp"
)

// StrLog is a simple logger that saves to a string,
// so it can be printed out only when needed.
type StrLog struct {
	log string
}

func (t *StrLog) Write(p []byte) (n int, err error) {
	t.log += string(p)
	return len(p), nil
}

func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x % 256), uint8(y % 256), 128, 255})
		}
	}
	return img
}

// writePhoto saves a w by h jpeg to path, with exif tags set by set
// if it is not nil
func writePhoto(t *testing.T, path string, w, h int, set func(*exif.IfdBuilder) error) {
	var buf bytes.Buffer
	err := jpeg.Encode(&buf, gradient(w, h), &jpeg.Options{Quality: 90})
	if err != nil {
		t.Fatalf("Could not encode jpeg: %v", err)
	}
	if set == nil {
		err = os.WriteFile(path, buf.Bytes(), 0644)
		if err != nil {
			t.Fatalf("Could not write %s: %v", path, err)
		}
		return
	}

	sl, err := segments(buf.Bytes())
	if err != nil {
		t.Fatalf("Could not parse jpeg: %v", err)
	}
	rootIb, err := newRootIb()
	if err != nil {
		t.Fatalf("Could not create exif: %v", err)
	}
	err = set(rootIb)
	if err != nil {
		t.Fatalf("Could not set exif: %v", err)
	}
	err = sl.SetExif(rootIb)
	if err != nil {
		t.Fatalf("Could not set exif: %v", err)
	}
	err = writeSegments(path, sl)
	if err != nil {
		t.Fatalf("Could not write %s: %v", path, err)
	}
}

func taken(when string) func(*exif.IfdBuilder) error {
	return func(rootIb *exif.IfdBuilder) error {
		for _, tag := range []struct{ ifd, name string }{
			{ifdRoot, "DateTime"},
			{ifdExif, "DateTimeOriginal"},
			{ifdExif, "DateTimeDigitized"},
		} {
			if err := setTag(rootIb, tag.ifd, tag.name, when); err != nil {
				return err
			}
		}
		return nil
	}
}

func oriented(o int, also func(*exif.IfdBuilder) error) func(*exif.IfdBuilder) error {
	return func(rootIb *exif.IfdBuilder) error {
		if also != nil {
			if err := also(rootIb); err != nil {
				return err
			}
		}
		return setTag(rootIb, ifdRoot, "Orientation", []uint16{uint16(o)})
	}
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-5
}

func TestReadInfo(t *testing.T) {
	dir := t.TempDir()

	plain := filepath.Join(dir, "plain.jpg")
	writePhoto(t, plain, 20, 10, nil)
	info, err := ReadFile(plain)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if info.HasExif || info.HasGPS || info.DateTimeOriginal.Valid || info.Orientation != 1 {
		t.Fatalf("Expected empty info for plain jpeg, got %+v", info)
	}
	if info.Filename != "plain.jpg" {
		t.Fatalf("Expected filename plain.jpg, got %s", info.Filename)
	}

	tagged := filepath.Join(dir, "tagged.jpg")
	writePhoto(t, tagged, 20, 10, oriented(6, func(rootIb *exif.IfdBuilder) error {
		if err := taken("2018:03:10 07:23:13")(rootIb); err != nil {
			return err
		}
		return GPS(rootIb, Info{}, 19.8968, -155.5828, false)
	}))
	info, err = ReadFile(tagged)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !info.HasExif {
		t.Fatalf("Expected exif to be found")
	}
	want := time.Date(2018, 3, 10, 7, 23, 13, 0, time.UTC)
	for _, ts := range []Timestamp{info.DateTime, info.DateTimeOriginal, info.DateTimeDigitized} {
		if !ts.Valid || !ts.Time.Equal(want) || ts.Raw != "2018:03:10 07:23:13" {
			t.Fatalf("Expected time %v, got %+v", want, ts)
		}
	}
	if info.DateTimeOriginal.Unix() != 1520666593 {
		t.Fatalf("Expected unix time 1520666593, got %d", info.DateTimeOriginal.Unix())
	}
	if !info.HasGPS || math.Abs(info.Latitude-19.8968) > 1e-5 || math.Abs(info.Longitude+155.5828) > 1e-5 {
		t.Fatalf("Expected location 19.8968, -155.5828, got %v %v %v", info.HasGPS, info.Latitude, info.Longitude)
	}
	if info.Orientation != 6 {
		t.Fatalf("Expected orientation 6, got %d", info.Orientation)
	}
}

func TestDMS(t *testing.T) {
	cases := []struct {
		deg  float64
		want [3]uint32
	}{
		{51.5, [3]uint32{51, 30, 0}},
		{-0.1275, [3]uint32{0, 7, 39000}},
		{40.7128, [3]uint32{40, 42, 46080}},
		{0, [3]uint32{0, 0, 0}},
	}
	for _, c := range cases {
		got := DMS(c.deg)
		if len(got) != 3 {
			t.Fatalf("Expected 3 values, got %v", got)
		}
		for i, r := range got {
			den := uint32(1)
			if i == 2 {
				den = secondsDenominator
			}
			if r.Numerator != c.want[i] || r.Denominator != den {
				t.Fatalf("Expected %v for %v, got %v", c.want, c.deg, got)
			}
		}
	}
}

func TestModify(t *testing.T) {
	indir := t.TempDir()
	outdir := t.TempDir()

	in := filepath.Join(indir, "IMG_1.jpg")
	writePhoto(t, in, 32, 24, taken("2018:03:10 07:23:13"))

	_, err := Modify(in, outdir, Options{})
	if !errors.Is(err, ErrNoChange) {
		t.Fatalf("Expected no change error, got %v", err)
	}

	out, err := Modify(in, outdir, Options{Offset: 40 * time.Hour, PrefixDate: true, Geotag: true, Lat: 40.7128, Lon: -74.006})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if filepath.Base(out) != "20180311_232313_IMG_1.jpg" {
		t.Fatalf("Expected prefixed name, got %s", out)
	}
	info, err := ReadFile(out)
	if err != nil {
		t.Fatalf("Could not read modified photo: %v", err)
	}
	for _, ts := range []Timestamp{info.DateTime, info.DateTimeOriginal, info.DateTimeDigitized} {
		if ts.Raw != "2018:03:11 23:23:13" {
			t.Fatalf("Expected all times to be offset, got %+v", info)
		}
	}
	if !info.HasGPS || math.Abs(info.Latitude-40.7128) > 1e-5 || math.Abs(info.Longitude+74.006) > 1e-5 {
		t.Fatalf("Expected location to be set, got %v %v %v", info.HasGPS, info.Latitude, info.Longitude)
	}

	a, err := os.ReadFile(in)
	if err != nil {
		t.Fatalf("Could not read %s: %v", in, err)
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("Could not read %s: %v", out, err)
	}
	ia, err := jpeg.Decode(bytes.NewReader(a))
	if err != nil {
		t.Fatalf("Could not decode original: %v", err)
	}
	ib, err := jpeg.Decode(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("Could not decode modified: %v", err)
	}
	if !bytes.Equal(ia.(*image.YCbCr).Y, ib.(*image.YCbCr).Y) {
		t.Fatalf("Image data changed")
	}

	// keep an existing location, and don't prefix
	out2dir := t.TempDir()
	out2, err := Modify(out, out2dir, Options{Offset: -time.Minute, Geotag: true, Lat: 1, Lon: 1, KeepGPS: true})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if filepath.Base(out2) != filepath.Base(out) {
		t.Fatalf("Expected unprefixed name %s, got %s", filepath.Base(out), out2)
	}
	info, err = ReadFile(out2)
	if err != nil {
		t.Fatalf("Could not read modified photo: %v", err)
	}
	if math.Abs(info.Latitude-40.7128) > 1e-5 {
		t.Fatalf("Expected location to be kept, got %v", info.Latitude)
	}
	if info.DateTimeOriginal.Raw != "2018:03:11 23:22:13" {
		t.Fatalf("Expected time to be offset, got %s", info.DateTimeOriginal.Raw)
	}

	// geotag a photo with no exif
	plain := filepath.Join(indir, "plain.jpg")
	writePhoto(t, plain, 32, 24, nil)
	out3, err := Modify(plain, outdir, Options{Geotag: true, Lat: -33.8688, Lon: 151.2093})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	info, err = ReadFile(out3)
	if err != nil {
		t.Fatalf("Could not read modified photo: %v", err)
	}
	if !info.HasGPS || info.Latitude > -33 || info.Longitude < 151 {
		t.Fatalf("Expected southern location to be set, got %v %v", info.Latitude, info.Longitude)
	}

	_, err = Modify(plain, outdir, Options{Offset: time.Hour})
	if err == nil {
		t.Fatalf("Expected error offsetting photo with no time taken")
	}
}

func TestCSV(t *testing.T) {
	ts := func(s string) Timestamp { return parseTimestamp(s) }
	infos := []Info{
		{Filename: "c.jpg", DateTimeOriginal: ts("2018:03:10 08:00:00")},
		{Filename: "none.jpg"},
		{Filename: "b.jpg", DateTime: ts("2018:03:10 07:30:00"), DateTimeOriginal: ts("2018:03:10 07:30:00"), HasGPS: true, Latitude: 51.5, Longitude: -0.1275},
		{Filename: "a.jpg", DateTimeOriginal: ts("2018:03:10 08:00:00")},
		{Filename: "bad.jpg", DateTimeOriginal: ts("yesterday")},
	}

	var buf bytes.Buffer
	err := WriteCSV(&buf, infos)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	want := strings.Join([]string{
		"filename,DateTime,DateTimeOriginal,DateTimeDigitized,DateTime_unix,DateTimeOriginal_unix,DateTimeDigitized_unix,latitude,longitude,shift_mins",
		"b.jpg,2018:03:10 07:30:00,2018:03:10 07:30:00,,1520667000,1520667000,,51.5,-0.1275,0",
		"a.jpg,,2018:03:10 08:00:00,,,1520668800,,,,30",
		"c.jpg,,2018:03:10 08:00:00,,,1520668800,,,,30",
		"bad.jpg,,yesterday,,,,,,,",
		"none.jpg,,,,,,,,,",
		"",
	}, "\n")
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Fatalf("CSV differs (-want +got):\n%s", diff)
	}
	if infos[0].Filename != "c.jpg" {
		t.Fatalf("WriteCSV should not reorder its input")
	}
}

func TestDisplaySize(t *testing.T) {
	for o := 1; o <= 8; o++ {
		w, h := DisplaySize(40, 30, o)
		if o >= 5 && (w != 30 || h != 40) {
			t.Fatalf("Expected orientation %d to swap size, got %dx%d", o, w, h)
		}
		if o < 5 && (w != 40 || h != 30) {
			t.Fatalf("Expected orientation %d to keep size, got %dx%d", o, w, h)
		}
	}
}

func TestOrient(t *testing.T) {
	red := color.NRGBA{255, 0, 0, 255}
	src := image.NewNRGBA(image.Rect(0, 0, 2, 3))
	for i := range src.Pix {
		src.Pix[i] = 255
	}
	src.SetNRGBA(0, 0, red)

	cases := []struct {
		o    int
		w, h int
		x, y int
	}{
		{1, 2, 3, 0, 0},
		{2, 2, 3, 1, 0},
		{3, 2, 3, 1, 2},
		{4, 2, 3, 0, 2},
		{5, 3, 2, 0, 0},
		{6, 3, 2, 2, 0},
		{7, 3, 2, 2, 1},
		{8, 3, 2, 0, 1},
	}
	for _, c := range cases {
		got := Orient(src, c.o)
		b := got.Bounds()
		if b.Dx() != c.w || b.Dy() != c.h {
			t.Fatalf("Orientation %d: expected %dx%d, got %v", c.o, c.w, c.h, b)
		}
		if r, g, _, _ := got.At(b.Min.X+c.x, b.Min.Y+c.y).RGBA(); r != 0xffff || g != 0 {
			t.Fatalf("Orientation %d: expected red corner at %d,%d", c.o, c.x, c.y)
		}
	}
}

func TestRescaleFactor(t *testing.T) {
	cases := []struct {
		name           string
		fw, fh, dw, dh int
		want           float64
	}{
		{"landscapebig", 1280, 800, 4000, 3000, 0.416},
		{"portraitonlandscape", 1280, 800, 3000, 4000, 1280.0 / 3000},
		{"landscapeonportrait", 800, 1280, 4000, 3000, 1280.0 / 3000},
		{"portraitbig", 800, 1280, 3000, 4000, 0.416},
		{"small", 1280, 800, 1000, 600, 1},
		{"square", 1280, 800, 1000, 1000, 1},
		{"squareframe", 1000, 1000, 4000, 2000, 0.65},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := RescaleFactor(c.fw, c.fh, c.dw, c.dh, DefaultRefScale)
			if !near(got, c.want) {
				t.Fatalf("Expected %v, got %v", c.want, got)
			}
		})
	}
}

func TestResizeForFrame(t *testing.T) {
	indir := t.TempDir()
	outdir := t.TempDir()
	opts := FrameOptions{Width: 80, Height: 50, RefScale: 1.25}

	cases := []struct {
		name        string
		orientation int
		upright     bool
		w, h        int
		outOrient   int
	}{
		{"normal", 1, false, 100, 80, 1},
		{"sideways", 6, false, 100, 80, 6},
		{"upright", 6, true, 80, 100, 1},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			in := filepath.Join(indir, c.name+".jpg")
			writePhoto(t, in, 400, 320, oriented(c.orientation, taken("2018:03:10 07:23:13")))

			o := opts
			o.Upright = c.upright
			out, err := ResizeForFrame(in, outdir, o)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if out != filepath.Join(outdir, c.name+".jpg") {
				t.Fatalf("Unexpected output path %s", out)
			}

			f, err := os.Open(out)
			if err != nil {
				t.Fatalf("Could not open output: %v", err)
			}
			defer f.Close()
			cfg, err := jpeg.DecodeConfig(f)
			if err != nil {
				t.Fatalf("Could not decode output: %v", err)
			}
			if cfg.Width != c.w || cfg.Height != c.h {
				t.Fatalf("Expected %dx%d, got %dx%d", c.w, c.h, cfg.Width, cfg.Height)
			}

			info, err := ReadFile(out)
			if err != nil {
				t.Fatalf("Could not read output metadata: %v", err)
			}
			if info.Orientation != c.outOrient {
				t.Fatalf("Expected orientation %d, got %d", c.outOrient, info.Orientation)
			}
			if info.DateTime.Raw != "" || info.DateTimeOriginal.Raw != "" {
				t.Fatalf("Expected other metadata to be dropped, got %+v", info)
			}
		})
	}

	small := filepath.Join(indir, "small.jpg")
	writePhoto(t, small, 60, 40, nil)
	out, err := ResizeForFrame(small, outdir, opts)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("Could not open output: %v", err)
	}
	defer f.Close()
	cfg, err := jpeg.DecodeConfig(f)
	if err != nil || cfg.Width != 60 || cfg.Height != 40 {
		t.Fatalf("Expected small photo to keep its size, got %v %v", cfg, err)
	}

	_, err = ResizeForFrame(small, outdir, FrameOptions{})
	if err == nil {
		t.Fatalf("Expected error for empty frame size")
	}
}

func TestBatch(t *testing.T) {
	indir := t.TempDir()
	outdir := t.TempDir()
	writePhoto(t, filepath.Join(indir, "b.jpg"), 20, 10, nil)
	writePhoto(t, filepath.Join(indir, "a.JPG"), 20, 10, nil)
	err := os.WriteFile(filepath.Join(indir, "broken.jpeg"), []byte("nope"), 0644)
	if err != nil {
		t.Fatalf("Could not write file: %v", err)
	}
	err = os.WriteFile(filepath.Join(indir, "notes.txt"), []byte("notes"), 0644)
	if err != nil {
		t.Fatalf("Could not write file: %v", err)
	}

	var slog StrLog
	logger := log.New(&slog, "", 0)
	var seen []string
	failed, err := Batch(indir, outdir, logger, func(p string, o string) (string, error) {
		seen = append(seen, filepath.Base(p))
		return ResizeForFrame(p, o, DefaultFrameOptions())
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"a.JPG", "b.jpg", "broken.jpeg"}, seen); diff != "" {
		t.Fatalf("Processed files differ (-want +got):\n%s", diff)
	}
	if len(failed) != 1 || failed[0].Name != "broken.jpeg" || failed[0].Err == nil {
		t.Fatalf("Expected broken.jpeg to fail with an error, got %v\nLog: %s", failed, slog.log)
	}
	var buf bytes.Buffer
	PrintFailed(&buf, failed)
	want := "Following files failed processing:\nbroken.jpeg: " + failed[0].Err.Error() + "\n"
	if buf.String() != want {
		t.Fatalf("Expected %q, got %q", want, buf.String())
	}
	buf.Reset()
	PrintFailed(&buf, nil)
	if buf.Len() != 0 {
		t.Fatalf("Expected nothing printed with no failures, got %q", buf.String())
	}

	_, err = Batch(indir, indir, logger, nil)
	if !errors.Is(err, ErrSameDir) {
		t.Fatalf("Expected same directory error, got %v", err)
	}
	_, err = Batch(filepath.Join(indir, "b.jpg"), indir, logger, nil)
	if !errors.Is(err, ErrSameDir) {
		t.Fatalf("Expected same directory error for a single file, got %v", err)
	}
	_, err = Batch(filepath.Join(indir, "missing"), outdir, logger, nil)
	if err == nil {
		t.Fatalf("Expected error for missing input")
	}
}

func TestInputsWithExts(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"c.png", "a.jpg", "b.TIFF", "d.txt", "e.jpeg"} {
		err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644)
		if err != nil {
			t.Fatalf("Could not write file: %v", err)
		}
	}

	cases := []struct {
		name string
		exts []string
		want []string
	}{
		{"photos", Exts, []string{"a.jpg", "e.jpeg"}},
		{"readable", ReadExts, []string{"a.jpg", "b.TIFF", "c.png", "e.jpeg"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			paths, indir, err := InputsWithExts(dir, c.exts)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if indir != dir {
				t.Fatalf("Expected input directory %s, got %s", dir, indir)
			}
			var got []string
			for _, p := range paths {
				got = append(got, filepath.Base(p))
			}
			if diff := cmp.Diff(c.want, got); diff != "" {
				t.Fatalf("Inputs differ (-want +got):\n%s", diff)
			}
		})
	}
}
