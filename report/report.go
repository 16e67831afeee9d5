// Package report renders run results as console text and as a PNG plot.
package report

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/YuminosukeSato/ordboost/metrics"
	"github.com/YuminosukeSato/ordboost/pkg/errors"
)

// errWriter remembers the first write error so a block of Fprintf calls can
// be checked once.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

// WriteAccuracy writes the accuracy as a percentage with two decimals,
// e.g. "Accuracy: 97.33%".
func WriteAccuracy(w io.Writer, accuracy float64) error {
	ew := &errWriter{w: w}
	ew.printf("Accuracy: %.2f%%\n", accuracy*100)
	return ew.err
}

// WriteConfusionMatrix writes m with actual classes as rows and predicted
// classes as columns:
//
//	Confusion Matrix:
//	Predicted →
//	Actual ↓  0    1    2
//	0        50   0    0
func WriteConfusionMatrix(w io.Writer, m metrics.ConfusionMatrix) error {
	ew := &errWriter{w: w}
	ew.printf("\nConfusion Matrix:\n")
	ew.printf("Predicted →\n")

	var header strings.Builder
	for p := range m {
		fmt.Fprintf(&header, "%-5d", p)
	}
	ew.printf("Actual ↓  %s\n", strings.TrimRight(header.String(), " "))

	for a, row := range m {
		ew.printf("%d        ", a)
		for _, count := range row {
			ew.printf("%-4d ", count)
		}
		ew.printf("\n")
	}
	return ew.err
}

// WriteClassLegend writes one "code = name" line per class.
func WriteClassLegend(w io.Writer, names []string) error {
	ew := &errWriter{w: w}
	ew.printf("\nClasses:\n")
	for code, name := range names {
		ew.printf("  %d = %s\n", code, name)
	}
	return ew.err
}

// Summary is everything WriteSummary prints.
type Summary struct {
	Evaluation *metrics.Evaluation
	Classes    []string
	// RawRMSE is the RMSE of raw predictions against ordinal targets; NaN skips the line.
	RawRMSE float64
}

// WriteSummary writes accuracy, the confusion matrix, the class legend and,
// when available, the raw-prediction RMSE.
func WriteSummary(w io.Writer, s Summary) error {
	if s.Evaluation == nil {
		return errors.New("report: summary has no evaluation")
	}
	if err := WriteAccuracy(w, s.Evaluation.Accuracy); err != nil {
		return err
	}
	if err := WriteConfusionMatrix(w, s.Evaluation.Confusion); err != nil {
		return err
	}
	if len(s.Classes) > 0 {
		if err := WriteClassLegend(w, s.Classes); err != nil {
			return err
		}
	}
	if !math.IsNaN(s.RawRMSE) {
		ew := &errWriter{w: w}
		ew.printf("\nRaw RMSE: %.4f\n", s.RawRMSE)
		return ew.err
	}
	return nil
}
