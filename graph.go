// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package scantools

import (
	"fmt"
	"io"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const graphWidth = 1920
const graphHeight = 1080
const xtickevery = 16

// createLine creates a vertical line at a particular x value for a
// graph, spanning from 0 to top
func createLine(x float64, top float64, c drawing.Color) chart.ContinuousSeries {
	return chart.ContinuousSeries{
		XValues: []float64{x, x},
		YValues: []float64{0, top},
		Style: chart.Style{
			StrokeColor:     c,
			StrokeWidth:     2,
			StrokeDashArray: []float64{5.0, 5.0},
		},
	}
}

// HistogramGraph creates a graph of the number of pixels at each grey
// level of a page, with the thresholds chosen to split it marked
func HistogramGraph(hist [256]int, thresholds []uint8, title string, w io.Writer) error {
	var xvalues, yvalues []float64
	top := 1.0
	for v, c := range hist {
		xvalues = append(xvalues, float64(v))
		yvalues = append(yvalues, float64(c))
		if float64(c) > top {
			top = float64(c)
		}
	}

	var ticks []chart.Tick
	for i := 0; i < 256; i += xtickevery {
		ticks = append(ticks, chart.Tick{Value: float64(i), Label: fmt.Sprintf("%d", i)})
	}
	ticks = append(ticks, chart.Tick{Value: 255, Label: "255"})

	mainSeries := chart.ContinuousSeries{
		Style: chart.Style{
			StrokeColor: chart.ColorBlue,
			FillColor:   chart.ColorAlternateBlue,
		},
		XValues: xvalues,
		YValues: yvalues,
	}

	var annotations []chart.Value2
	graph := chart.Chart{
		Title:  title,
		Width:  graphWidth,
		Height: graphHeight,
		XAxis: chart.XAxis{
			Name: "Grey level",
			Range: &chart.ContinuousRange{
				Min: 0.0,
				Max: 255.0,
			},
			Ticks: ticks,
		},
		YAxis: chart.YAxis{
			Name: "Pixels",
			Range: &chart.ContinuousRange{
				Min: 0.0,
				Max: top,
			},
		},
		Series: []chart.Series{
			mainSeries,
		},
	}
	for _, t := range thresholds {
		graph.Series = append(graph.Series, createLine(float64(t), top, chart.ColorRed))
		annotations = append(annotations, chart.Value2{Label: fmt.Sprintf("%d", t), XValue: float64(t), YValue: top})
	}
	if len(annotations) > 0 {
		graph.Series = append(graph.Series, chart.AnnotationSeries{Annotations: annotations})
	}
	return graph.Render(chart.PNG, w)
}
