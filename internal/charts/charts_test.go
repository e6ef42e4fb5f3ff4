package charts

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/isdelr/sheetcharts-be/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func sampleRows() []models.Row {
	return []models.Row{
		{"Month": models.StringCell("Jan"), "Sales": models.NumberCell(12)},
		{"Month": models.StringCell("Feb"), "Sales": models.StringCell("7.5")},
		{"Sales": models.StringCell("n/a")},
	}
}

func TestBuildSeries(t *testing.T) {
	s := BuildSeries(sampleRows(), "Month", "Sales")

	assert.Equal(t, []string{"Jan", "Feb", "Row 3"}, s.Labels)
	assert.Equal(t, []float64{12, 7.5, 0}, s.Values)
}

func TestBuildSeriesMissingColumn(t *testing.T) {
	s := BuildSeries(sampleRows(), "Month", "Profit")
	assert.Equal(t, []float64{0, 0, 0}, s.Values)
}

func TestPayload2D(t *testing.T) {
	s := BuildSeries(sampleRows(), "Month", "Sales")
	raw, err := s.Payload(models.Chart2DBar)
	require.NoError(t, err)

	var out []map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	require.Len(t, out, 1)
	assert.Equal(t, "Sales vs Month", out[0]["label"])
	assert.Len(t, out[0]["data"], 3)
}

func TestPayload3D(t *testing.T) {
	s := BuildSeries(sampleRows(), "Month", "Sales")

	raw, err := s.Payload(models.Chart3DBar)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"type":"bar"`)
	assert.NotContains(t, string(raw), `"mode"`)

	raw, err = s.Payload(models.Chart3DLine)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"type":"scatter3d"`)
	assert.Contains(t, string(raw), `"mode":"lines+markers"`)
}

func TestRenderAllTypes(t *testing.T) {
	s := BuildSeries(sampleRows(), "Month", "Sales")
	for _, ct := range models.ChartTypes() {
		t.Run(string(ct), func(t *testing.T) {
			img, err := Render(ct, s, 400, 300)
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(img, pngMagic))
		})
	}
}

func TestRenderSinglePointAndFlatValues(t *testing.T) {
	s := Series{XAxis: "x", YAxis: "y", Labels: []string{"only"}, Values: []float64{0}}

	for _, ct := range []models.ChartType{models.Chart2DLine, models.Chart2DBar, models.Chart2DScatter} {
		img, err := Render(ct, s, 0, 0)
		require.NoError(t, err, ct)
		assert.True(t, bytes.HasPrefix(img, pngMagic))
	}
}

func TestRenderErrors(t *testing.T) {
	_, err := Render(models.Chart2DBar, Series{}, 0, 0)
	assert.ErrorIs(t, err, ErrEmptySeries)

	zeros := Series{Labels: []string{"a"}, Values: []float64{0}}
	_, err = Render(models.Chart2DPie, zeros, 0, 0)
	assert.Error(t, err)

	_, err = Render(models.ChartType("radar"), zeros, 0, 0)
	assert.Error(t, err)
}

func TestDataURLRoundTrip(t *testing.T) {
	url := DataURL([]byte("png-bytes"))
	assert.Equal(t, "data:image/png;base64,cG5nLWJ5dGVz", url)

	b, err := DecodeDataURL(url)
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), b)
}

func TestDecodeDataURLRejects(t *testing.T) {
	for _, in := range []string{
		"",
		"cG5n",
		"data:text/plain;base64,cG5n",
		"data:image/png,cG5n",
		"data:image/png;base64,***",
	} {
		_, err := DecodeDataURL(in)
		assert.ErrorIs(t, err, ErrInvalidImage, in)
	}
}
