package pipeline

import (
	"context"
	"io"

	"github.com/YuminosukeSato/ordboost/core/model"
	"github.com/YuminosukeSato/ordboost/sklearn/boosting"
)

// Booster is the boosting capability the pipeline drives: one Fit, then any
// number of raw predictions. Predict must return exactly one value per row.
type Booster interface {
	model.Fitter
	model.RawPredictor
}

// ModelSaver is implemented by boosters that can serialize their fitted model.
type ModelSaver interface {
	SaveModel(w io.Writer) error
}

// BoosterFactory constructs an unfitted Booster from a loss selector and a
// training budget. ctx is the run context; implementations may use it to stop
// a long fit early.
type BoosterFactory func(ctx context.Context, loss string, budget float64) (Booster, error)

// GradientBoostingFactory returns a BoosterFactory backed by
// boosting.Regressor. A non-nil progress writer renders a progress bar during
// Fit.
func GradientBoostingFactory(progress io.Writer) BoosterFactory {
	return func(ctx context.Context, loss string, budget float64) (Booster, error) {
		r, err := boosting.New(loss, budget)
		if err != nil {
			return nil, err
		}
		if ctx != nil {
			r.WithContext(ctx)
		}
		if progress != nil {
			r.WithProgressBar(progress)
		}
		return r, nil
	}
}
