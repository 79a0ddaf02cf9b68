// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package photo

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"
)

// CSVHeader names the columns written by WriteCSV
var CSVHeader = []string{
	"filename",
	"DateTime", "DateTimeOriginal", "DateTimeDigitized",
	"DateTime_unix", "DateTimeOriginal_unix", "DateTimeDigitized_unix",
	"latitude", "longitude",
	"shift_mins",
}

// SortByTaken sorts photos by the time they were taken, then by
// name. Photos with no valid time taken come last.
func SortByTaken(infos []Info) {
	sort.SliceStable(infos, func(i, j int) bool {
		a, b := infos[i].DateTimeOriginal, infos[j].DateTimeOriginal
		switch {
		case a.Valid && !b.Valid:
			return true
		case !a.Valid && b.Valid:
			return false
		case a.Valid && b.Valid && !a.Time.Equal(b.Time):
			return a.Time.Before(b.Time)
		}
		return infos[i].Filename < infos[j].Filename
	})
}

func unixField(t Timestamp) string {
	if !t.Valid {
		return ""
	}
	return strconv.FormatInt(t.Unix(), 10)
}

func floatField(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Record formats a photo's metadata as a CSV row. shift is the
// minutes since the earliest photo was taken, and is left empty if
// ok is false.
func Record(info Info, shift float64, ok bool) []string {
	var lat, lon, mins string
	if info.HasGPS {
		lat = floatField(info.Latitude)
		lon = floatField(info.Longitude)
	}
	if ok {
		mins = floatField(shift)
	}
	return []string{
		info.Filename,
		info.DateTime.Raw, info.DateTimeOriginal.Raw, info.DateTimeDigitized.Raw,
		unixField(info.DateTime), unixField(info.DateTimeOriginal), unixField(info.DateTimeDigitized),
		lat, lon,
		mins,
	}
}

// WriteCSV writes the metadata of a set of photos as CSV, sorted with
// SortByTaken. Missing values are left empty.
func WriteCSV(w io.Writer, infos []Info) error {
	sorted := append([]Info{}, infos...)
	SortByTaken(sorted)

	var earliest int64
	found := false
	for _, i := range sorted {
		if i.DateTimeOriginal.Valid {
			earliest = i.DateTimeOriginal.Unix()
			found = true
			break
		}
	}

	cw := csv.NewWriter(w)
	err := cw.Write(CSVHeader)
	if err != nil {
		return err
	}
	for _, i := range sorted {
		valid := found && i.DateTimeOriginal.Valid
		var shift float64
		if valid {
			shift = float64(i.DateTimeOriginal.Unix()-earliest) / 60
		}
		err = cw.Write(Record(i, shift, valid))
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
