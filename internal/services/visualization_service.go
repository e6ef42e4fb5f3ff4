package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/sheetcharts-be/internal/apperr"
	"github.com/isdelr/sheetcharts-be/internal/charts"
	"github.com/isdelr/sheetcharts-be/internal/models"
	"github.com/rs/zerolog/log"
)

// VisualizationInput is what a client submits when saving a chart.
type VisualizationInput struct {
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data"`
	Image string          `json:"image"`
	XAxis string          `json:"xAxis"`
	YAxis string          `json:"yAxis"`
}

// VisualizationServiceProvider defines the interface for visualization services.
type VisualizationServiceProvider interface {
	Save(ctx context.Context, uploadID, callerID string, in VisualizationInput) ([]models.Visualization, error)
	RenderChart(ctx context.Context, uploadID, callerID string, chartType, xAxis, yAxis string) ([]byte, error)
}

// VisualizationService validates chart payloads and appends them to uploads.
type VisualizationService struct {
	uploads UploadServiceProvider
	events  EventRecorder
	render  func(models.ChartType, charts.Series, int, int) ([]byte, error)
	now     func() time.Time
}

// NewVisualizationService creates a new VisualizationService. events may be nil.
func NewVisualizationService(uploads UploadServiceProvider, events EventRecorder) *VisualizationService {
	return &VisualizationService{uploads: uploads, events: events, render: charts.Render, now: time.Now}
}

// Save validates the input against the caller's upload and appends it.
// A missing data series is derived from the upload rows and a missing
// image is rendered server-side.
func (s *VisualizationService) Save(ctx context.Context, uploadID, callerID string, in VisualizationInput) ([]models.Visualization, error) {
	chartType, xAxis, yAxis, err := checkChartRequest(in.Type, in.XAxis, in.YAxis)
	if err != nil {
		return nil, err
	}

	var image []byte
	if in.Image != "" {
		if image, err = charts.DecodeDataURL(in.Image); err != nil {
			return nil, apperr.Validation("Visualization image must be a base64 image data URL")
		}
	}

	data, err := normalizeSeriesData(in.Data)
	if err != nil {
		return nil, err
	}

	upload, err := s.uploads.GetUpload(ctx, uploadID, callerID)
	if err != nil {
		return nil, err
	}
	if err := checkAxes(upload, xAxis, yAxis); err != nil {
		return nil, err
	}

	viz := models.Visualization{
		ID:        uuid.New().String(),
		Type:      chartType,
		XAxis:     xAxis,
		YAxis:     yAxis,
		Data:      data,
		Image:     in.Image,
		CreatedAt: s.now().UTC(),
	}

	series := charts.BuildSeries(upload.Data, xAxis, yAxis)
	if viz.Data == nil {
		if viz.Data, err = series.Payload(chartType); err != nil {
			return nil, fmt.Errorf("derive series: %w", err)
		}
	}
	if image == nil {
		png, err := s.render(chartType, series, charts.DefaultWidth, charts.DefaultHeight)
		if err != nil {
			log.Warn().Err(err).Str("upload_id", uploadID).Str("type", string(chartType)).Msg("Failed to render visualization image, saving without one")
		} else {
			viz.Image = charts.DataURL(png)
		}
	}

	list, err := s.uploads.AppendVisualization(ctx, uploadID, callerID, viz)
	if err != nil {
		return nil, err
	}

	recordEvent(ctx, s.events, "visualization.save", "info",
		fmt.Sprintf("Saved %s chart of %s vs %s on '%s'", chartType, yAxis, xAxis, upload.Filename), callerID)
	return list, nil
}

// RenderChart draws a chart of the caller's upload without saving it.
func (s *VisualizationService) RenderChart(ctx context.Context, uploadID, callerID string, chartType, xAxis, yAxis string) ([]byte, error) {
	ct, x, y, err := checkChartRequest(chartType, xAxis, yAxis)
	if err != nil {
		return nil, err
	}
	upload, err := s.uploads.GetUpload(ctx, uploadID, callerID)
	if err != nil {
		return nil, err
	}
	if err := checkAxes(upload, x, y); err != nil {
		return nil, err
	}

	png, err := s.render(ct, charts.BuildSeries(upload.Data, x, y), charts.DefaultWidth, charts.DefaultHeight)
	if err != nil {
		return nil, apperr.Wrap(apperr.ValidationKind, "Unable to render chart for this data", err)
	}
	return png, nil
}

func checkChartRequest(chartType, xAxis, yAxis string) (models.ChartType, string, string, error) {
	ct := models.ChartType(strings.TrimSpace(chartType))
	if ct == "" {
		return "", "", "", apperr.Validation("Visualization type is required")
	}
	if !ct.Valid() {
		return "", "", "", apperr.Validation(fmt.Sprintf("Unsupported visualization type '%s'", chartType))
	}
	if xAxis == "" || yAxis == "" {
		return "", "", "", apperr.Validation("xAxis and yAxis are required")
	}
	return ct, xAxis, yAxis, nil
}

func checkAxes(upload models.Upload, xAxis, yAxis string) error {
	for _, axis := range []string{xAxis, yAxis} {
		if !upload.HasColumn(axis) {
			return apperr.Validation(fmt.Sprintf("Column '%s' does not exist in this upload", axis))
		}
	}
	return nil
}

// normalizeSeriesData returns nil when no series was supplied, the array
// unchanged, or a lone object wrapped in an array.
func normalizeSeriesData(raw json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if !json.Valid(trimmed) {
		return nil, apperr.Validation("Visualization data is not valid JSON")
	}
	switch trimmed[0] {
	case '[':
		return json.RawMessage(trimmed), nil
	case '{':
		wrapped := make([]byte, 0, len(trimmed)+2)
		wrapped = append(wrapped, '[')
		wrapped = append(wrapped, trimmed...)
		wrapped = append(wrapped, ']')
		return wrapped, nil
	}
	return nil, apperr.Validation("Visualization data must be an array or object")
}
