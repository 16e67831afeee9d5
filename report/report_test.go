package report

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/ordboost/metrics"
	"github.com/YuminosukeSato/ordboost/pkg/errors"
)

func TestWriteAccuracy(t *testing.T) {
	tests := []struct {
		accuracy float64
		want     string
	}{
		{accuracy: 1, want: "Accuracy: 100.00%\n"},
		{accuracy: 146.0 / 150.0, want: "Accuracy: 97.33%\n"},
		{accuracy: 0, want: "Accuracy: 0.00%\n"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		require.NoError(t, WriteAccuracy(&buf, tt.accuracy))
		assert.Equal(t, tt.want, buf.String())
	}
}

func TestWriteConfusionMatrix(t *testing.T) {
	m := metrics.ConfusionMatrix{
		{50, 0, 0},
		{0, 48, 2},
		{0, 2, 48},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteConfusionMatrix(&buf, m))

	want := "\nConfusion Matrix:\n" +
		"Predicted →\n" +
		"Actual ↓  0    1    2\n" +
		"0        50   0    0    \n" +
		"1        0    48   2    \n" +
		"2        0    2    48   \n"
	assert.Equal(t, want, buf.String())
}

func TestWriteSummary(t *testing.T) {
	eval, err := metrics.Evaluate([]int{0, 1, 1}, []int{0, 1, 0}, 2)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, Summary{
		Evaluation: eval,
		Classes:    []string{"cold", "hot"},
		RawRMSE:    0.25,
	}))

	out := buf.String()
	assert.Contains(t, out, "Accuracy: 66.67%\n")
	assert.Contains(t, out, "0        1    1    \n")
	assert.Contains(t, out, "Classes:\n  0 = cold\n  1 = hot\n")
	assert.Contains(t, out, "Raw RMSE: 0.2500\n")

	buf.Reset()
	require.NoError(t, WriteSummary(&buf, Summary{Evaluation: eval, RawRMSE: math.NaN()}))
	assert.NotContains(t, buf.String(), "Raw RMSE")
	assert.NotContains(t, buf.String(), "Classes:")

	assert.Error(t, WriteSummary(&buf, Summary{}))
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteErrorsPropagate(t *testing.T) {
	assert.Error(t, WriteAccuracy(failingWriter{}, 0.5))
	assert.Error(t, WriteConfusionMatrix(failingWriter{}, metrics.NewConfusionMatrix(2)))
	assert.Error(t, WriteClassLegend(failingWriter{}, []string{"a"}))
}

func TestPlotPredictions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preds.png")
	raw := []float64{0.1, -0.2, 1.1, math.NaN(), 1.9}
	actual := []int{0, 0, 1, 1, 2}

	require.NoError(t, PlotPredictions(path, raw, actual, []string{"a", "b", "c"}))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	p, err := PredictionPlot(raw, actual, []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, "Raw predictions", p.Title.Text)
}

func TestPredictionPlotErrors(t *testing.T) {
	_, err := PredictionPlot([]float64{1}, []int{0, 1}, []string{"a", "b"})
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr))

	_, err = PredictionPlot(nil, nil, nil)
	var valErr *errors.ValidationError
	assert.True(t, errors.As(err, &valErr))
}
