package models

import (
	"encoding/json"
	"strings"
	"time"
)

// ChartType is the fixed set of chart kinds a visualization can be saved as.
type ChartType string

const (
	Chart2DLine    ChartType = "2d-line"
	Chart2DBar     ChartType = "2d-bar"
	Chart2DPie     ChartType = "2d-pie"
	Chart2DScatter ChartType = "2d-scatter"
	Chart3DBar     ChartType = "3d-bar"
	Chart3DLine    ChartType = "3d-line"
)

var chartTypes = []ChartType{Chart2DLine, Chart2DBar, Chart2DPie, Chart2DScatter, Chart3DBar, Chart3DLine}

// ChartTypes lists every supported chart type.
func ChartTypes() []ChartType {
	out := make([]ChartType, len(chartTypes))
	copy(out, chartTypes)
	return out
}

// Valid reports whether t is one of the supported chart types.
func (t ChartType) Valid() bool {
	for _, ct := range chartTypes {
		if ct == t {
			return true
		}
	}
	return false
}

// Is3D reports whether t is rendered as a plotly trace.
func (t ChartType) Is3D() bool {
	return strings.HasPrefix(string(t), "3d-")
}

// Visualization is one saved chart, embedded in its parent Upload.
type Visualization struct {
	ID        string          `json:"id"`
	Type      ChartType       `json:"type"`
	Data      json.RawMessage `json:"data"`  // Always a JSON array
	XAxis     string          `json:"xAxis"` // Column of the parent upload
	YAxis     string          `json:"yAxis"`
	Image     string          `json:"visualizationImage,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}
