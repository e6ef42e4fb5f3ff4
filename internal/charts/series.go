// Package charts derives renderable series from upload rows and renders
// them to PNG.
package charts

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/isdelr/sheetcharts-be/internal/models"
)

// Series is the label/value pairing a chart is drawn from.
type Series struct {
	XAxis  string    `json:"xAxis"`
	YAxis  string    `json:"yAxis"`
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

// BuildSeries reads labels from the xAxis column and values from the yAxis
// column. Rows without a usable label are named "Row N"; values that are
// missing or not numeric count as 0.
func BuildSeries(rows []models.Row, xAxis, yAxis string) Series {
	s := Series{
		XAxis:  xAxis,
		YAxis:  yAxis,
		Labels: make([]string, len(rows)),
		Values: make([]float64, len(rows)),
	}
	for i, row := range rows {
		if c, ok := row[xAxis]; ok && c.Truthy() {
			s.Labels[i] = c.Text()
		} else {
			s.Labels[i] = "Row " + strconv.Itoa(i+1)
		}
		if c, ok := row[yAxis]; ok {
			if f, ok := c.Float(); ok && !math.IsNaN(f) && !math.IsInf(f, 0) {
				s.Values[i] = f
			}
		}
	}
	return s
}

// Len is the number of points in the series.
func (s Series) Len() int { return len(s.Values) }

type dataset struct {
	Label string    `json:"label"`
	Data  []float64 `json:"data"`
}

type trace struct {
	X    []string  `json:"x"`
	Y    []float64 `json:"y"`
	Z    []float64 `json:"z"`
	Type string    `json:"type"`
	Mode string    `json:"mode,omitempty"`
	Name string    `json:"name"`
}

// Payload encodes the series in the shape saved on a visualization: a list
// of datasets for 2D types and a list of traces for 3D types.
func (s Series) Payload(t models.ChartType) (json.RawMessage, error) {
	if t.Is3D() {
		tr := trace{
			X:    s.Labels,
			Y:    s.Values,
			Z:    make([]float64, len(s.Values)),
			Type: "scatter3d",
			Name: s.YAxis,
		}
		if t == models.Chart3DBar {
			tr.Type = "bar"
		} else {
			tr.Mode = "lines+markers"
		}
		return json.Marshal([]trace{tr})
	}
	return json.Marshal([]dataset{{Label: s.YAxis + " vs " + s.XAxis, Data: s.Values}})
}
