package charts

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/isdelr/sheetcharts-be/internal/models"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	DefaultWidth  = 800
	DefaultHeight = 450
)

var (
	// ErrEmptySeries is returned when there is nothing to draw.
	ErrEmptySeries = errors.New("series has no points")

	// ErrInvalidImage is returned for image payloads that are not base64
	// image data URLs.
	ErrInvalidImage = errors.New("image must be a base64 data URL")
)

var accent = drawing.ColorFromHex("4A90E2")

// Render draws the series as a PNG. 3D types are drawn as their 2D
// counterpart.
func Render(t models.ChartType, s Series, width, height int) ([]byte, error) {
	if s.Len() == 0 {
		return nil, ErrEmptySeries
	}
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	title := s.YAxis + " vs " + s.XAxis

	var buf bytes.Buffer
	var err error
	switch t {
	case models.Chart2DBar, models.Chart3DBar:
		err = renderBar(&buf, title, s, width, height)
	case models.Chart2DLine, models.Chart3DLine:
		err = renderContinuous(&buf, title, s, width, height, chart.Style{StrokeColor: accent, StrokeWidth: 2})
	case models.Chart2DScatter:
		err = renderContinuous(&buf, title, s, width, height, chart.Style{StrokeWidth: chart.Disabled, DotWidth: 5, DotColor: accent})
	case models.Chart2DPie:
		err = renderPie(&buf, title, s, width, height)
	default:
		return nil, fmt.Errorf("unsupported chart type %q", t)
	}
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", t, err)
	}
	return buf.Bytes(), nil
}

func renderBar(buf *bytes.Buffer, title string, s Series, width, height int) error {
	bars := make([]chart.Value, s.Len())
	for i := range s.Values {
		bars[i] = chart.Value{
			Label: s.Labels[i],
			Value: s.Values[i],
			Style: chart.Style{FillColor: accent.WithAlpha(80), StrokeColor: accent, StrokeWidth: 1},
		}
	}
	bc := chart.BarChart{
		Title:  title,
		Width:  width,
		Height: height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		YAxis: chart.YAxis{Range: valueRange(s.Values)},
		Bars:  bars,
	}
	return bc.Render(chart.PNG, buf)
}

func renderContinuous(buf *bytes.Buffer, title string, s Series, width, height int, style chart.Style) error {
	xs := make([]float64, s.Len())
	ticks := make([]chart.Tick, s.Len())
	for i := range xs {
		xs[i] = float64(i)
		ticks[i] = chart.Tick{Value: float64(i), Label: s.Labels[i]}
	}
	ys := s.Values
	// A continuous range needs two distinct x values.
	if len(xs) == 1 {
		xs = []float64{0, 1}
		ys = []float64{ys[0], ys[0]}
		ticks = append(ticks, chart.Tick{Value: 1, Label: ""})
	}

	ch := chart.Chart{
		Title:      title,
		Width:      width,
		Height:     height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 12, Bottom: 28}},
		XAxis:      chart.XAxis{Name: s.XAxis, Ticks: ticks},
		YAxis:      chart.YAxis{Name: s.YAxis, Range: valueRange(ys)},
		Series: []chart.Series{
			chart.ContinuousSeries{Name: s.YAxis, XValues: xs, YValues: ys, Style: style},
		},
	}
	return ch.Render(chart.PNG, buf)
}

func renderPie(buf *bytes.Buffer, title string, s Series, width, height int) error {
	var values []chart.Value
	for i, v := range s.Values {
		// Slices need a positive share.
		if v > 0 {
			values = append(values, chart.Value{Label: s.Labels[i], Value: v})
		}
	}
	if len(values) == 0 {
		return errors.New("pie chart needs at least one positive value")
	}
	pc := chart.PieChart{
		Title:  title,
		Width:  width,
		Height: height,
		Values: values,
	}
	return pc.Render(chart.PNG, buf)
}

// valueRange pins the y range when every value is equal, which the
// automatic ranging cannot handle.
func valueRange(values []float64) chart.Range {
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if lo != hi {
		if lo > 0 {
			lo = 0
		}
		return &chart.ContinuousRange{Min: lo, Max: hi}
	}
	if lo > 0 {
		return &chart.ContinuousRange{Min: 0, Max: hi}
	}
	if lo < 0 {
		return &chart.ContinuousRange{Min: lo, Max: 0}
	}
	return &chart.ContinuousRange{Min: 0, Max: 1}
}

// DataURL wraps PNG bytes as a data URL.
func DataURL(png []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}

// DecodeDataURL checks that s is a base64 image data URL and returns its
// bytes.
func DecodeDataURL(s string) ([]byte, error) {
	meta, payload, ok := strings.Cut(s, ",")
	if !ok || !strings.HasPrefix(meta, "data:image/") || !strings.HasSuffix(meta, ";base64") {
		return nil, ErrInvalidImage
	}
	b, err := base64.StdEncoding.DecodeString(payload)
	if err != nil || len(b) == 0 {
		return nil, ErrInvalidImage
	}
	return b, nil
}
