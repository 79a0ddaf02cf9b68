// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"rescribe.xyz/scantools/imgio"
	"rescribe.xyz/scantools/internal/pipeline"
	"rescribe.xyz/scantools/preproc"
)

const noCrop = "none"
const guiPdfName = "scans.pdf"

// logWriter appends anything written to it to a text area
type logWriter struct {
	area *widget.Entry
}

func (w logWriter) Write(p []byte) (int, error) {
	w.area.SetText(w.area.Text + string(p))
	w.area.CursorRow = strings.Count(w.area.Text, "\n")
	return len(p), nil
}

// formatProgressBar returns the text to show on the progress bar
func formatProgressBar(bar *widget.ProgressBar) func() string {
	return func() string {
		switch {
		case bar.Value == 0:
			return ""
		case bar.Value >= 1:
			return "Done"
		}
		return fmt.Sprintf("Processing %.0f%%", bar.Value*100)
	}
}

// optionWidgets are the controls for each option shown in the gui
type optionWidgets struct {
	format   *widget.Select
	colours  *widget.Select
	crop     *widget.Select
	contrast *widget.Select
	blur     *widget.Select
	bin      *widget.Select
	keep     *widget.Check
	graph    *widget.Check
	pdf      *widget.Check
}

func newOptionWidgets(opts pipeline.Options) *optionWidgets {
	var formats []string
	for _, f := range imgio.Formats {
		formats = append(formats, string(f))
	}
	w := &optionWidgets{
		format:   widget.NewSelect(formats, nil),
		colours:  widget.NewSelect([]string{"2", "3", "4", "8", "16"}, nil),
		crop:     widget.NewSelect(append([]string{noCrop}, preproc.PaperNames()...), nil),
		contrast: widget.NewSelect([]string{string(preproc.ContrastAuto), string(preproc.ContrastMinMax), string(preproc.ContrastNone)}, nil),
		blur:     widget.NewSelect([]string{string(preproc.BlurNone), string(preproc.BlurGauss), string(preproc.BlurSelective)}, nil),
		bin:      widget.NewSelect([]string{pipeline.BinOtsu, pipeline.BinSauvola}, nil),
		keep:     widget.NewCheck("Keep originals", nil),
		graph:    widget.NewCheck("Save histogram graphs", nil),
		pdf:      widget.NewCheck("Bundle into a PDF", nil),
	}

	n := strconv.Itoa(opts.Colours)
	found := false
	for _, o := range w.colours.Options {
		found = found || o == n
	}
	if !found {
		w.colours.Options = append(w.colours.Options, n)
	}

	w.format.SetSelected(string(opts.Format))
	w.colours.SetSelected(n)
	crop := opts.Crop
	if crop == "" {
		crop = noCrop
	}
	w.crop.SetSelected(crop)
	w.contrast.SetSelected(string(opts.Contrast))
	blur := opts.Blur
	if blur == "" {
		blur = preproc.BlurNone
	}
	w.blur.SetSelected(string(blur))
	w.bin.SetSelected(opts.Binarise)
	w.keep.SetChecked(opts.KeepOriginal)
	w.graph.SetChecked(opts.Graph)
	w.pdf.SetChecked(opts.PDF != "")
	return w
}

// options returns base updated with the values chosen in the gui
func (w *optionWidgets) options(base pipeline.Options) (pipeline.Options, error) {
	opts := base
	crop := w.crop.Selected
	if crop == noCrop {
		crop = ""
	}
	for _, s := range [][2]string{
		{"f", w.format.Selected},
		{"n", w.colours.Selected},
		{"crop", crop},
		{"contrast", w.contrast.Selected},
		{"blur", w.blur.Selected},
		{"bin", w.bin.Selected},
	} {
		err := opts.Set(s[0], s[1])
		if err != nil {
			return opts, err
		}
	}
	opts.KeepOriginal = w.keep.Checked
	opts.Graph = w.graph.Checked
	switch {
	case !w.pdf.Checked:
		opts.PDF = ""
	case opts.PDF == "":
		opts.PDF = guiPdfName
	}
	return opts, opts.Validate()
}

func (w *optionWidgets) form() *widget.Form {
	return widget.NewForm(
		widget.NewFormItem("Format", w.format),
		widget.NewFormItem("Grey levels", w.colours),
		widget.NewFormItem("Crop to", w.crop),
		widget.NewFormItem("Contrast", w.contrast),
		widget.NewFormItem("Blur", w.blur),
		widget.NewFormItem("Binarization", w.bin),
	)
}

// folderChooser is an entry for a folder path with a button to pick
// one with a dialog
func folderChooser(win fyne.Window, placeholder string, onChanged func(string)) (*widget.Entry, *fyne.Container) {
	entry := widget.NewEntry()
	entry.SetPlaceHolder(placeholder)
	entry.OnChanged = onChanged
	btn := widget.NewButtonWithIcon("Choose folder", theme.FolderOpenIcon(), func() {
		dialog.ShowFolderOpen(func(uri fyne.ListableURI, err error) {
			if err == nil && uri != nil {
				entry.SetText(uri.Path())
			}
		}, win)
	})
	return entry, container.New(layout.NewGridLayout(2), entry, btn)
}

// startGui starts the gui process
func startGui(opts pipeline.Options) error {
	myApp := app.New()
	myWindow := myApp.NewWindow("Optimize scanned documents")

	var gobtn *widget.Button
	var indir, outdir *widget.Entry

	ready := func(string) {
		if indir.Text != "" && outdir.Text != "" {
			gobtn.Enable()
		} else {
			gobtn.Disable()
		}
	}
	indir, inopener := folderChooser(myWindow, "Folder of scans", ready)
	outdir, outopener := folderChooser(myWindow, "Folder to save to", ready)

	optw := newOptionWidgets(opts)

	progressBar := widget.NewProgressBar()
	progressBar.TextFormatter = formatProgressBar(progressBar)

	logarea := widget.NewMultiLineEntry()
	logarea.Disable()

	gobtn = widget.NewButtonWithIcon("Process", theme.MediaPlayIcon(), func() {
		if indir.Text == "" || outdir.Text == "" {
			return
		}
		o, err := optw.options(opts)
		if err != nil {
			dialog.ShowError(err, myWindow)
			return
		}

		gobtn.Disable()
		gobtn.SetText("Processing...")
		progressBar.SetValue(0)
		logarea.SetText("")
		logger := log.New(logWriter{logarea}, "", 0)

		go func() {
			report, err := process(context.Background(), indir.Text, outdir.Text, o, logger, progressBar.SetValue)
			pipeline.PrintFailed(logWriter{logarea}, report)
			if err != nil {
				dialog.ShowError(fmt.Errorf("Error processing %s: %v", indir.Text, err), myWindow)
			} else {
				progressBar.SetValue(1.0)
				logger.Printf("Processed %d pages\n", len(report.Done))
			}
			gobtn.SetText("Process")
			gobtn.Enable()
		}()
	})
	gobtn.Disable()

	checks := container.NewHBox(optw.keep, optw.graph, optw.pdf)
	content := container.NewVBox(inopener, outopener, optw.form(), checks, gobtn, progressBar, logarea)

	myWindow.SetContent(content)
	myWindow.Resize(fyne.NewSize(640, 480))

	myWindow.Show()
	myApp.Run()

	return nil
}
