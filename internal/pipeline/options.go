// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package pipeline

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
	"rescribe.xyz/scantools/imgio"
	"rescribe.xyz/scantools/preproc"
)

// Options control how ProcessFile cleans up a page. The yaml names
// match the command line flags of optimizescanned.
type Options struct {
	Format        imgio.Format     `yaml:"f"`
	Colours       int              `yaml:"n"`
	Crop          string           `yaml:"crop"`
	Contrast      preproc.Contrast `yaml:"contrast"`
	Median        int              `yaml:"median"`
	Blur          preproc.Blur     `yaml:"blur"`
	BlurRadius    float64          `yaml:"blurradius"`
	BlurDelta     int              `yaml:"blurdelta"`
	Binarise      string           `yaml:"bin"`
	SauvolaK      float64          `yaml:"k"`
	SauvolaWindow int              `yaml:"window"`
	DPI           float64          `yaml:"dpi"`
	KeepOriginal  bool             `yaml:"keep"`
	Overwrite     bool             `yaml:"overwrite"`
	Graph         bool             `yaml:"graph"`
	PDF           string           `yaml:"pdf"`
}

// DefaultOptions returns the Options used when nothing else is set
func DefaultOptions() Options {
	return Options{
		Format:     imgio.TIFF,
		Colours:    2,
		Contrast:   preproc.ContrastAuto,
		Blur:       preproc.BlurNone,
		BlurRadius: 4,
		BlurDelta:  50,
		Binarise:   BinOtsu,
		SauvolaK:   0.5,
	}
}

// Validate checks that the options are consistent and usable
func (o Options) Validate() error {
	if _, err := imgio.ParseFormat(string(o.Format)); err != nil {
		return err
	}
	if o.Colours < 2 || o.Colours > 256 {
		return fmt.Errorf("Number of colours must be between 2 and 256, got %d", o.Colours)
	}
	if o.Crop != "" {
		if _, ok := preproc.PaperSizes[o.Crop]; !ok {
			return fmt.Errorf("Unknown crop size %q, use one of %v", o.Crop, preproc.PaperNames())
		}
	}
	if _, err := preproc.ParseContrast(string(o.Contrast)); err != nil {
		return err
	}
	if o.Median < 0 || (o.Median > 0 && o.Median%2 == 0) {
		return fmt.Errorf("Median kernel size must be odd, got %d", o.Median)
	}
	switch o.Blur {
	case "", preproc.BlurNone, preproc.BlurGauss, preproc.BlurSelective:
	default:
		return fmt.Errorf("Unknown blur %q, use none, gauss or selgauss", o.Blur)
	}
	if o.Blur != "" && o.Blur != preproc.BlurNone && o.BlurRadius <= 0 {
		return fmt.Errorf("Blur radius must be positive, got %v", o.BlurRadius)
	}
	switch o.Binarise {
	case BinOtsu:
	case BinSauvola:
		if o.Colours != 2 {
			return fmt.Errorf("Sauvola binarization only produces 2 colours, not %d", o.Colours)
		}
	default:
		return fmt.Errorf("Unknown binarization %q, use otsu or sauvola", o.Binarise)
	}
	if o.DPI < 0 {
		return fmt.Errorf("DPI cannot be negative, got %v", o.DPI)
	}
	return nil
}

// Set changes the option with the given yaml name, parsing value as
// a command line flag value would be
func (o *Options) Set(name string, value string) error {
	var err error
	switch name {
	case "f":
		o.Format, err = imgio.ParseFormat(value)
	case "n":
		o.Colours, err = strconv.Atoi(value)
	case "crop":
		o.Crop = value
	case "contrast":
		o.Contrast, err = preproc.ParseContrast(value)
	case "median":
		o.Median, err = strconv.Atoi(value)
	case "blur":
		o.Blur = preproc.Blur(value)
	case "blurradius":
		o.BlurRadius, err = strconv.ParseFloat(value, 64)
	case "blurdelta":
		o.BlurDelta, err = strconv.Atoi(value)
	case "bin":
		o.Binarise = value
	case "k":
		o.SauvolaK, err = strconv.ParseFloat(value, 64)
	case "window":
		o.SauvolaWindow, err = strconv.Atoi(value)
	case "dpi":
		o.DPI, err = strconv.ParseFloat(value, 64)
	case "keep":
		o.KeepOriginal, err = strconv.ParseBool(value)
	case "overwrite":
		o.Overwrite, err = strconv.ParseBool(value)
	case "graph":
		o.Graph, err = strconv.ParseBool(value)
	case "pdf":
		o.PDF = value
	default:
		return fmt.Errorf("Unknown option %q", name)
	}
	if err != nil {
		return fmt.Errorf("Invalid value %q for %s: %v", value, name, err)
	}
	return nil
}

// LoadPreset reads Options from a yaml file. Anything the file
// doesn't set keeps its default value.
func LoadPreset(path string) (Options, error) {
	opts := DefaultOptions()
	b, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("Error reading preset %s: %v", path, err)
	}
	err = yaml.Unmarshal(b, &opts)
	if err != nil {
		return opts, fmt.Errorf("Error parsing preset %s: %v", path, err)
	}
	return opts, opts.Validate()
}

// SavePreset writes Options to a yaml file, so they can be loaded
// again with LoadPreset
func SavePreset(path string, opts Options) error {
	b, err := yaml.Marshal(opts)
	if err != nil {
		return fmt.Errorf("Error encoding preset: %v", err)
	}
	return os.WriteFile(path, b, 0644)
}
