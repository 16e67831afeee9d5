package pipeline

import (
	"context"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/ordboost/pkg/errors"
	"github.com/YuminosukeSato/ordboost/pkg/log"
)

// Orchestrator builds a Booster for a fixed loss and budget and fits it once.
type Orchestrator struct {
	factory BoosterFactory
	loss    string
	budget  float64
	logger  log.Logger
}

// NewOrchestrator returns an orchestrator that creates boosters with factory.
func NewOrchestrator(factory BoosterFactory, loss string, budget float64) *Orchestrator {
	return &Orchestrator{
		factory: factory,
		loss:    loss,
		budget:  budget,
		logger:  log.GetLoggerWithName("pipeline.train"),
	}
}

// Train constructs a fresh Booster and calls Fit exactly once. The row count
// of X must equal len(y). Construction and fit failures come back as
// *errors.CollaboratorError; nothing is retried.
func (o *Orchestrator) Train(ctx context.Context, X mat.Matrix, y []float64) (Booster, error) {
	rows, cols := X.Dims()
	if len(y) != rows {
		return nil, errors.NewDimensionError("Train", rows, len(y), 0)
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.NewCollaboratorError("booster.fit", err)
	}

	booster, err := o.factory(ctx, o.loss, o.budget)
	if err != nil {
		return nil, errors.NewCollaboratorError("booster.new", err)
	}

	o.logger.Info("Fitting booster",
		log.PhaseKey, log.PhaseTraining,
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		log.ObjectiveKey, o.loss,
		log.BudgetKey, o.budget,
	)
	start := time.Now()
	if err := booster.Fit(X, y); err != nil {
		return nil, errors.NewCollaboratorError("booster.fit", err)
	}
	o.logger.Debug("Booster fitted", log.DurationMsKey, time.Since(start).Milliseconds())
	return booster, nil
}
