// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

/*
The scantools package contains tools to clean up scanned documents,
producing small black and white (or few grey) images suitable for
archiving, and tools to read and modify the metadata of photographs.

Introduction

Scanners tend to produce large colour images of the whole flatbed, at a
resolution embedded in the file. The optimizescanned tool takes these,
crops them to the paper size, stretches the contrast, optionally blurs
or median filters them to remove paper texture, and then thresholds
them into 2 or more grey levels with Otsu's method. The result is saved
as a PNG or TIFF which keeps the original resolution, so that it prints
at the right size.

All of the tools will give information on what they do and how they
work with the '-h' flag, so for example to get usage information on
the optimizescanned tool simply run the following:
  optimizescanned -h

Inputs

The input to optimizescanned can be a directory, in which case every
.png, .tiff, .jpg and .jpeg file directly inside it is processed, or a
single file. If a file doesn't exist, it is treated as a "save path" of
the GNOME Simple Scan program, which writes multiple page scans as
name-1.png, name-2.png, and so on, and all of those pages are
processed.

Saving

Output can go to a local directory, or to an S3 bucket given as
s3://bucket/prefix, in which case the AWS credentials in ~/.aws are
used. Images can be bundled into a PDF, and a histogram graph can be
saved alongside each page to show how the thresholds were chosen.

Cleanup

The cleanupscan tool reproduces an older, simpler approach based on
brightness and contrast adjustments tuned to the weight of the font
in the document, followed by posterizing.

Other tools

pdfscans bundles a set of pages into a PDF without processing them, and
pagegraph draws the histogram of a single page with the thresholds that
optimizescanned would pick for it.

Photographs

The exifcsv, modifyexif and photoframe tools work on JPEG photographs.
exifcsv lists the date and location tags of a directory of photos as a
CSV file. modifyexif shifts the date tags of photos taken with a camera
set to the wrong time, and geotags them. photoframe shrinks photos to
suit the screen of a digital photo frame.
*/
package scantools
