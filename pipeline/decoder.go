package pipeline

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/ordboost/pkg/errors"
	"github.com/YuminosukeSato/ordboost/pkg/log"
)

// NearestClass maps a raw prediction to the code in [0, numClasses) with the
// smallest absolute distance. Codes are scanned in ascending order and only a
// strictly smaller distance replaces the current best, so the smaller code
// wins ties (1.5 decodes to 1). NaN compares false everywhere and decodes to 0.
func NearestClass(x float64, numClasses int) int {
	best := 0
	bestDist := math.Abs(x)
	for c := 1; c < numClasses; c++ {
		if d := math.Abs(x - float64(c)); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

// DecodeAll applies NearestClass to every raw prediction.
func DecodeAll(raw []float64, numClasses int) []int {
	out := make([]int, len(raw))
	for i, x := range raw {
		out[i] = NearestClass(x, numClasses)
	}
	return out
}

// Decoder turns a fitted Booster's raw output into ordinal class codes.
type Decoder struct {
	numClasses int
	logger     log.Logger
}

// NewDecoder returns a decoder over codes [0, numClasses).
func NewDecoder(numClasses int) *Decoder {
	return &Decoder{
		numClasses: numClasses,
		logger:     log.GetLoggerWithName("pipeline.decode"),
	}
}

// NumClasses returns the size of the code range.
func (d *Decoder) NumClasses() int {
	return d.numClasses
}

// Decode requests raw predictions for X and decodes them.
func (d *Decoder) Decode(b Booster, X mat.Matrix) ([]int, error) {
	_, decoded, err := d.Predict(b, X)
	return decoded, err
}

// Predict is Decode that also returns the raw predictions.
func (d *Decoder) Predict(b Booster, X mat.Matrix) (raw []float64, decoded []int, err error) {
	if d.numClasses <= 0 {
		return nil, nil, errors.NewValidationError("numClasses", "must be positive", d.numClasses)
	}
	rows, _ := X.Dims()

	raw, err = b.Predict(X, true)
	if err != nil {
		return nil, nil, errors.NewCollaboratorError("booster.predict", err)
	}
	if len(raw) != rows {
		return nil, nil, errors.NewCollaboratorError("booster.predict",
			errors.NewDimensionError("Predict", rows, len(raw), 0))
	}

	decoded = DecodeAll(raw, d.numClasses)
	d.logger.Debug("Predictions decoded",
		log.OperationKey, log.OperationDecode,
		log.PredsKey, len(decoded),
		log.ClassesKey, d.numClasses,
	)
	return raw, decoded, nil
}
