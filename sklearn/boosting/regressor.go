package boosting

import (
	"context"
	"io"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/ordboost/core/model"
	"github.com/YuminosukeSato/ordboost/core/parallel"
	"github.com/YuminosukeSato/ordboost/pkg/errors"
	"github.com/YuminosukeSato/ordboost/pkg/log"
)

const regressorName = "GradientBoostingRegressor"

// Regressor is a gradient-boosted tree regressor configured by a loss and a
// training budget.
type Regressor struct {
	state *model.StateManager

	params    TrainingParams
	budget    float64
	callbacks []Callback
	ctx       context.Context
	progress  io.Writer

	model   *Ensemble
	history map[string][]float64
	logger  log.Logger

	// Row count above which Predict fans out across goroutines.
	parallelThreshold int
}

var _ model.Regressor = (*Regressor)(nil)

// New creates a regressor for objective whose learning rate and iteration
// limit are derived from budget (see BudgetSchedule).
func New(objective string, budget float64) (*Regressor, error) {
	params := DefaultParams()
	if _, err := NewObjective(objective, params); err != nil {
		return nil, err
	}
	lr, iterations, err := BudgetSchedule(budget)
	if err != nil {
		return nil, err
	}
	params.Objective = objective
	params.LearningRate = lr
	params.NumIterations = iterations

	return &Regressor{
		state:             model.NewStateManager(),
		params:            params,
		budget:            budget,
		logger:            log.GetLoggerWithName("boosting.regressor"),
		parallelThreshold: parallel.DefaultThreshold,
	}, nil
}

// WithNumLeaves sets the maximum number of leaves per tree
func (r *Regressor) WithNumLeaves(n int) *Regressor {
	r.params.NumLeaves = n
	return r
}

// WithMaxDepth sets the maximum depth; non-positive means unlimited
func (r *Regressor) WithMaxDepth(d int) *Regressor {
	r.params.MaxDepth = d
	return r
}

// WithMinDataInLeaf sets the minimum number of rows per leaf
func (r *Regressor) WithMinDataInLeaf(n int) *Regressor {
	r.params.MinDataInLeaf = n
	return r
}

// WithLambda sets the L2 regularization on leaf values
func (r *Regressor) WithLambda(lambda float64) *Regressor {
	r.params.Lambda = lambda
	return r
}

// WithMinGainToSplit sets the minimum gain a split must exceed
func (r *Regressor) WithMinGainToSplit(g float64) *Regressor {
	r.params.MinGainToSplit = g
	return r
}

// WithHuberDelta sets delta for the huber objective
func (r *Regressor) WithHuberDelta(delta float64) *Regressor {
	r.params.HuberDelta = delta
	return r
}

// WithFairC sets c for the fair objective
func (r *Regressor) WithFairC(c float64) *Regressor {
	r.params.FairC = c
	return r
}

// WithPlateau sets the early-stopping window; rounds <= 0 disables it
func (r *Regressor) WithPlateau(rounds int, tolerance float64) *Regressor {
	r.params.PlateauRounds = rounds
	r.params.PlateauTolerance = tolerance
	return r
}

// WithCallbacks appends training callbacks
func (r *Regressor) WithCallbacks(callbacks ...Callback) *Regressor {
	r.callbacks = append(r.callbacks, callbacks...)
	return r
}

// WithContext makes Fit abort with ctx.Err() between iterations once ctx is done
func (r *Regressor) WithContext(ctx context.Context) *Regressor {
	r.ctx = ctx
	return r
}

// WithProgressBar renders a progress bar to w during Fit
func (r *Regressor) WithProgressBar(w io.Writer) *Regressor {
	r.progress = w
	return r
}

// WithParallelThreshold sets the row count above which Predict runs in parallel
func (r *Regressor) WithParallelThreshold(n int) *Regressor {
	r.parallelThreshold = n
	return r
}

// Params returns the effective hyperparameters.
func (r *Regressor) Params() TrainingParams {
	return r.params
}

// Fit trains the regressor. A previous fit is discarded first.
func (r *Regressor) Fit(X mat.Matrix, y []float64) (err error) {
	defer errors.Recover(&err, "Regressor.Fit")

	r.state.Reset()
	r.model = nil
	r.history = nil

	rows, cols := X.Dims()
	logger := r.logger.With(
		log.ModelNameKey, regressorName,
		log.OperationKey, log.OperationFit,
	)
	logger.Info("Training started",
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		log.ObjectiveKey, r.params.Objective,
		log.BudgetKey, r.budget,
		log.LearningRateKey, r.params.LearningRate,
		log.NumIterationKey, r.params.NumIterations,
	)
	start := time.Now()

	callbacks := []Callback{RecordEvaluation(&r.history), LogEvaluation(logger, 10)}
	if r.ctx != nil {
		callbacks = append(callbacks, WithContext(r.ctx))
	}
	if r.progress != nil {
		callbacks = append(callbacks, ProgressBar(r.progress))
	}
	callbacks = append(callbacks, r.callbacks...)

	trainer := NewTrainer(r.params).WithCallbacks(callbacks...)
	if err := trainer.Fit(X, y); err != nil {
		logger.Error("Training failed", err)
		return err
	}

	r.model = trainer.Model()
	r.state.SetFitted(cols, rows)

	if trainer.LimitReached() && r.params.PlateauRounds > 0 {
		errors.Warn(errors.NewConvergenceWarning(regressorName, len(r.model.Trees),
			"iteration limit reached before the training loss plateaued; raise the budget for more rounds"))
	}

	logger.Info("Training finished",
		log.NumIterationKey, len(r.model.Trees),
		log.LossKey, r.TrainingLoss(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// Predict returns one score per row of X. With raw, scores are the additive
// model output; otherwise the objective's transform is applied (sigmoid for
// binary, identity for the regression losses).
func (r *Regressor) Predict(X mat.Matrix, raw bool) (preds []float64, err error) {
	defer errors.Recover(&err, "Regressor.Predict")

	if err := r.state.RequireFitted(regressorName, "Predict"); err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	if err := r.state.RequireFeatures("Predict", cols); err != nil {
		return nil, err
	}

	transform := func(v float64) float64 { return v }
	if !raw {
		objective, err := NewObjective(r.model.Objective, r.params)
		if err != nil {
			return nil, err
		}
		transform = objective.Transform
	}

	preds = make([]float64, rows)
	err = parallel.ParallelizeWithThreshold(rows, r.parallelThreshold, func(start, end int) error {
		features := make([]float64, cols)
		for i := start; i < end; i++ {
			for j := 0; j < cols; j++ {
				features[j] = X.At(i, j)
			}
			preds[i] = transform(r.model.PredictRaw(features))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.Debug("Prediction completed",
		log.ModelNameKey, regressorName,
		log.OperationKey, log.OperationPredict,
		log.PredsKey, rows,
	)
	return preds, nil
}

// FeatureImportance returns normalized "split" or "gain" importances.
func (r *Regressor) FeatureImportance(importanceType string) ([]float64, error) {
	if err := r.state.RequireFitted(regressorName, "FeatureImportance"); err != nil {
		return nil, err
	}
	if importanceType != "split" && importanceType != "gain" {
		return nil, errors.NewValidationError("importance_type", "must be split or gain", importanceType)
	}
	return r.model.FeatureImportance(importanceType), nil
}

// NumTrees returns the number of trees in the fitted ensemble.
func (r *Regressor) NumTrees() int {
	if r.model == nil {
		return 0
	}
	return len(r.model.Trees)
}

// Model returns the fitted ensemble, or nil.
func (r *Regressor) Model() *Ensemble {
	return r.model
}

// SaveModel writes the fitted ensemble to w in gob format.
func (r *Regressor) SaveModel(w io.Writer) error {
	if err := r.state.RequireFitted(regressorName, "SaveModel"); err != nil {
		return err
	}
	return model.SaveModelToWriter(r.model, w)
}

// LoadRegressor reads an ensemble written by SaveModel and returns a fitted
// regressor that predicts with it.
func LoadRegressor(rd io.Reader) (*Regressor, error) {
	var ensemble Ensemble
	if err := model.LoadModelFromReader(&ensemble, rd); err != nil {
		return nil, err
	}
	if ensemble.NumFeatures <= 0 || !(ensemble.LearningRate > 0) {
		return nil, errors.NewValidationError("model", "not a fitted ensemble", ensemble.NumFeatures)
	}

	r, err := New(ensemble.Objective, -math.Log10(ensemble.LearningRate))
	if err != nil {
		return nil, err
	}
	r.model = &ensemble
	r.state.SetFitted(ensemble.NumFeatures, 0)
	return r, nil
}

// EvalHistory returns the per-iteration training metrics of the last fit.
func (r *Regressor) EvalHistory() map[string][]float64 {
	return r.history
}

// TrainingLoss returns the final mean training loss of the last fit, or NaN.
func (r *Regressor) TrainingLoss() float64 {
	losses := r.history[TrainingLossKey]
	if len(losses) == 0 {
		return math.NaN()
	}
	return losses[len(losses)-1]
}
