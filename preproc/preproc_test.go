// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package preproc

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math/rand"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"rescribe.xyz/scantools/imgio"
)

// grayFrom builds an image one row per slice
func grayFrom(rows [][]uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, len(rows[0]), len(rows)))
	for y, row := range rows {
		for x, v := range row {
			img.SetGray(x, y, color.Gray{v})
		}
	}
	return img
}

func noise(w, h int, seed int64) *image.Gray {
	r := rand.New(rand.NewSource(seed))
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = uint8(r.Intn(256))
	}
	return img
}

func flat(w, h int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func histOf(vals map[int]int) [256]int {
	var hist [256]int
	for v, c := range vals {
		hist[v] = c
	}
	return hist
}

func TestToGray(t *testing.T) {
	rgba := image.NewRGBA(image.Rect(10, 10, 14, 12))
	rgba.Set(10, 10, color.RGBA{255, 255, 255, 255})
	rgba.Set(13, 11, color.RGBA{255, 0, 0, 255})
	gray := ToGray(rgba)
	if gray.Bounds() != image.Rect(0, 0, 4, 2) {
		t.Fatalf("Expected bounds at origin, got %v", gray.Bounds())
	}
	if gray.GrayAt(0, 0).Y != 255 {
		t.Fatalf("Expected white, got %d", gray.GrayAt(0, 0).Y)
	}
	// 0.299 * 255
	if v := gray.GrayAt(3, 1).Y; v < 75 || v > 77 {
		t.Fatalf("Expected luma of red around 76, got %d", v)
	}
}

func TestCrop(t *testing.T) {
	img := noise(200, 300, 1)
	cases := []struct {
		paper string
		res   imgio.Resolution
		w, h  int
		err   error
	}{
		{"Letter", imgio.Uniform(20), 170, 220, nil},
		{"Half-Letter", imgio.Uniform(20), 170, 110, nil},
		{"A4", imgio.Uniform(100), 200, 300, nil},
		{"Letter", imgio.Resolution{X: 10, Y: 20}, 85, 220, nil},
		{"Legal", imgio.Uniform(20), 200, 300, ErrUnknownPaper},
		{"Letter", imgio.Resolution{}, 200, 300, ErrNoResolution},
	}

	for _, c := range cases {
		t.Run(fmt.Sprintf("%s_%.0fx%.0f", c.paper, c.res.X, c.res.Y), func(t *testing.T) {
			cropped, err := Crop(img, c.paper, c.res)
			if c.err != nil {
				if err == nil || !errors.Is(err, c.err) {
					t.Fatalf("Expected error %v, got %v", c.err, err)
				}
			} else if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if cropped.Bounds().Dx() != c.w || cropped.Bounds().Dy() != c.h {
				t.Fatalf("Expected %dx%d, got %v", c.w, c.h, cropped.Bounds())
			}
			for _, p := range []image.Point{{0, 0}, {c.w - 1, c.h - 1}, {c.w / 2, c.h / 3}} {
				if cropped.GrayAt(p.X, p.Y) != img.GrayAt(p.X, p.Y) {
					t.Fatalf("Pixel at %v differs from original", p)
				}
			}
		})
	}
}

func TestQuantile(t *testing.T) {
	hist := histOf(map[int]int{1: 1, 2: 1, 3: 1, 4: 1})
	cases := []struct {
		q    float64
		want float64
	}{
		{0, 1},
		{1, 4},
		{0.5, 2.5},
		{0.25, 1.75},
		{0.006, 1.018},
		{0.994, 3.982},
	}
	for _, c := range cases {
		t.Run(fmt.Sprintf("%v", c.q), func(t *testing.T) {
			got := Quantile(hist, c.q)
			if d := got - c.want; d > 1e-9 || d < -1e-9 {
				t.Fatalf("Expected %v, got %v", c.want, got)
			}
		})
	}

	var empty [256]int
	if got := Quantile(empty, 0.5); got != 0 {
		t.Fatalf("Expected 0 for an empty histogram, got %v", got)
	}
}

func TestStretch(t *testing.T) {
	img := grayFrom([][]uint8{{50, 100, 150}, {50, 75, 150}})
	got := Stretch(img, 0, 1)
	want := grayFrom([][]uint8{{0, 127, 255}, {0, 63, 255}})
	if diff := cmp.Diff(want.Pix, got.Pix); diff != "" {
		t.Fatalf("Stretched image differs (-want +got):\n%s", diff)
	}

	f := flat(4, 4, 90)
	got = Stretch(f, 0.006, 0.994)
	if diff := cmp.Diff(f.Pix, got.Pix); diff != "" {
		t.Fatalf("Flat image changed (-want +got):\n%s", diff)
	}
}

func TestParseContrast(t *testing.T) {
	for _, s := range []string{"auto", "minmax", "none"} {
		c, err := ParseContrast(s)
		if err != nil {
			t.Fatalf("Unexpected error for %s: %v", s, err)
		}
		_, _, ok := c.Quantiles()
		if ok != (c != ContrastNone) {
			t.Fatalf("Unexpected quantiles state for %s", s)
		}
	}
	_, err := ParseContrast("max")
	if err == nil {
		t.Fatalf("Expected error for unknown contrast mode")
	}
}

// naiveMedian sorts every zero padded window
func naiveMedian(img *image.Gray, ksize int) *image.Gray {
	b := img.Bounds()
	new := image.NewGray(b)
	step := ksize / 2
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			var w []int
			for wy := y - step; wy <= y+step; wy++ {
				for wx := x - step; wx <= x+step; wx++ {
					if (image.Point{wx, wy}).In(b) {
						w = append(w, int(img.GrayAt(wx, wy).Y))
					} else {
						w = append(w, 0)
					}
				}
			}
			sort.Ints(w)
			new.SetGray(x, y, color.Gray{uint8(w[len(w)/2])})
		}
	}
	return new
}

func TestMedian(t *testing.T) {
	img := noise(23, 17, 2)
	for _, k := range []int{1, 3, 5, 9} {
		t.Run(fmt.Sprintf("k%d", k), func(t *testing.T) {
			got, err := Median(img, k)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			want := naiveMedian(img, k)
			if diff := cmp.Diff(want.Pix, got.Pix); diff != "" {
				t.Fatalf("Median differs (-want +got):\n%s", diff)
			}
		})
	}

	got, err := Median(flat(5, 5, 200), 3)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got.GrayAt(0, 0).Y != 0 {
		t.Fatalf("Expected corner to be darkened by padding, got %d", got.GrayAt(0, 0).Y)
	}
	if got.GrayAt(2, 0).Y != 200 || got.GrayAt(2, 2).Y != 200 {
		t.Fatalf("Expected edge and centre to keep their value")
	}

	for _, k := range []int{0, 2, -3} {
		_, err := Median(img, k)
		if err == nil {
			t.Fatalf("Expected error for kernel size %d", k)
		}
	}
}

func TestBlur(t *testing.T) {
	f := flat(12, 12, 140)
	if diff := cmp.Diff(f.Pix, Gaussian(f, 4).Pix); diff != "" {
		t.Fatalf("Gaussian changed a flat image (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(f.Pix, SelectiveGaussian(f, 4, 50).Pix); diff != "" {
		t.Fatalf("SelectiveGaussian changed a flat image (-want +got):\n%s", diff)
	}

	// a sharp edge bigger than maxDelta must survive a selective blur
	edge := grayFrom([][]uint8{
		{20, 20, 20, 230, 230, 230},
		{20, 20, 20, 230, 230, 230},
		{20, 20, 20, 230, 230, 230},
	})
	sel := SelectiveGaussian(edge, 3, 50)
	if diff := cmp.Diff(edge.Pix, sel.Pix); diff != "" {
		t.Fatalf("SelectiveGaussian blurred across an edge (-want +got):\n%s", diff)
	}
	g := Gaussian(edge, 3)
	if g.GrayAt(2, 1).Y <= 20 || g.GrayAt(3, 1).Y >= 230 {
		t.Fatalf("Gaussian did not blur the edge: %d %d", g.GrayAt(2, 1).Y, g.GrayAt(3, 1).Y)
	}
}

func TestOtsu(t *testing.T) {
	cases := []struct {
		name string
		hist [256]int
		want uint8
	}{
		{"bimodal", histOf(map[int]int{20: 50, 200: 50}), 20},
		{"clusters", histOf(map[int]int{10: 5, 20: 9, 30: 5, 200: 5, 210: 9, 220: 5}), 30},
		{"uneven", histOf(map[int]int{0: 1, 100: 10, 110: 10, 255: 1}), 110},
		{"constant", histOf(map[int]int{77: 12}), 77},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := Otsu(c.hist)
			if got != c.want {
				t.Fatalf("Expected %d, got %d", c.want, got)
			}
		})
	}
}

func TestMultiOtsu(t *testing.T) {
	hist := histOf(map[int]int{10: 4, 12: 4, 100: 4, 102: 4, 200: 4, 202: 4})
	got, err := MultiOtsu(hist, 3)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if diff := cmp.Diff([]uint8{12, 102}, got); diff != "" {
		t.Fatalf("Thresholds differ (-want +got):\n%s", diff)
	}

	got, err = MultiOtsu(hist, 2)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(got) != 1 || got[0] != Otsu(hist) {
		t.Fatalf("Expected 2 classes to match Otsu, got %v", got)
	}

	_, err = MultiOtsu(histOf(map[int]int{10: 4, 200: 4}), 3)
	if err == nil {
		t.Fatalf("Expected error with fewer grey levels than classes")
	}
	_, err = MultiOtsu(hist, 1)
	if err == nil {
		t.Fatalf("Expected error with 1 class")
	}
}

func TestClassify(t *testing.T) {
	img := grayFrom([][]uint8{{10, 11, 12, 13, 101, 102, 103, 255}})
	p := Classify(img, []uint8{12, 102})
	if diff := cmp.Diff([]uint8{0, 0, 1, 1, 1, 2, 2, 2}, p.Pix); diff != "" {
		t.Fatalf("Labels differ (-want +got):\n%s", diff)
	}

	bin := Classify(grayFrom([][]uint8{{11, 12, 13}}), []uint8{12})
	if diff := cmp.Diff([]uint8{0, 0, 1}, bin.Pix); diff != "" {
		t.Fatalf("Binary labels differ (-want +got):\n%s", diff)
	}
	if len(p.Palette) != 3 {
		t.Fatalf("Expected 3 colours, got %d", len(p.Palette))
	}
	if p.Palette[0] != (color.Gray{0}) || p.Palette[1] != (color.Gray{127}) || p.Palette[2] != (color.Gray{255}) {
		t.Fatalf("Unexpected palette %v", p.Palette)
	}
}

func TestThreshold(t *testing.T) {
	img := grayFrom([][]uint8{{10, 10, 220, 220}, {12, 15, 225, 230}})
	thresh, bin, err := Threshold(img, 2)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(thresh) != 1 {
		t.Fatalf("Expected one threshold, got %v", thresh)
	}
	if diff := cmp.Diff([]uint8{0, 0, 1, 1, 0, 0, 1, 1}, bin.Pix); diff != "" {
		t.Fatalf("Binarized image differs (-want +got):\n%s", diff)
	}

	_, _, err = Threshold(flat(3, 3, 9), 4)
	if err == nil {
		t.Fatalf("Expected error thresholding a flat image into 4 colours")
	}
}

func TestBrightnessContrast(t *testing.T) {
	img := noise(16, 16, 3)
	if diff := cmp.Diff(img.Pix, BrightnessContrast(img, 0, 0).Pix); diff != "" {
		t.Fatalf("Zero adjustment changed the image (-want +got):\n%s", diff)
	}

	dark := BrightnessContrast(flat(2, 2, 200), -64, 0)
	if dark.Pix[0] >= 200 {
		t.Fatalf("Expected negative brightness to darken, got %d", dark.Pix[0])
	}
	contrast := BrightnessContrast(grayFrom([][]uint8{{100, 155}}), 0, 64)
	if contrast.Pix[0] >= 100 || contrast.Pix[1] <= 155 {
		t.Fatalf("Expected contrast to spread values, got %v", contrast.Pix)
	}
}

func TestPosterize(t *testing.T) {
	img := grayFrom([][]uint8{{0, 127, 128, 255}})
	p, err := Posterize(img, 2)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if diff := cmp.Diff([]uint8{0, 0, 1, 1}, p.Pix); diff != "" {
		t.Fatalf("Posterized image differs (-want +got):\n%s", diff)
	}
	p, err = Posterize(img, 3)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if diff := cmp.Diff([]uint8{0, 1, 1, 2}, p.Pix); diff != "" {
		t.Fatalf("Posterized image differs (-want +got):\n%s", diff)
	}
	_, err = Posterize(img, 1)
	if err == nil {
		t.Fatalf("Expected error for 1 level")
	}
}

func TestCleanup(t *testing.T) {
	img := noise(20, 20, 4)

	thin, err := Cleanup(img, CleanupParams{Weight: WeightThin})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if diff := cmp.Diff(BrightnessContrast(img, -22, 20).Pix, thin.Pix); diff != "" {
		t.Fatalf("Thin cleanup differs (-want +got):\n%s", diff)
	}

	// a preset weight ignores the custom values given
	bold, err := Cleanup(img, CleanupParams{Weight: WeightBold, Radius: 0, Brightness: 50})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	preset, _ := WeightPreset(WeightBold)
	custom, err := Cleanup(img, CleanupParams{Weight: WeightCustom, Radius: preset.Radius, Brightness: preset.Brightness, Contrast: preset.Contrast})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if diff := cmp.Diff(custom.Pix, bold.Pix); diff != "" {
		t.Fatalf("Bold preset differs from equivalent custom values (-want +got):\n%s", diff)
	}

	_, err = Cleanup(img, CleanupParams{Weight: "heavy"})
	if err == nil {
		t.Fatalf("Expected error for unknown weight")
	}
}

func TestSauvola(t *testing.T) {
	img := noise(120, 80, 5)
	bin := Sauvola(img, 0.5, 0)
	if bin.Bounds() != img.Bounds() {
		t.Fatalf("Expected bounds %v, got %v", img.Bounds(), bin.Bounds())
	}
	if len(bin.Palette) != 2 {
		t.Fatalf("Expected 2 colours, got %d", len(bin.Palette))
	}
	for _, v := range bin.Pix {
		if v > 1 {
			t.Fatalf("Unexpected palette index %d", v)
		}
	}
}
