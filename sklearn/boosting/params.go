package boosting

import (
	"math"

	"github.com/YuminosukeSato/ordboost/pkg/errors"
)

// Budget schedule constants.
const (
	// MaxIterations caps the number of trees whatever the budget.
	MaxIterations = 10000
	// MinLearningRate is the smallest learning rate a budget maps to, so that
	// MaxIterations rounds still cover ten full steps.
	MinLearningRate = 10.0 / MaxIterations
	// PlateauTolerance is the relative training-loss improvement below which a
	// round counts as stalled.
	PlateauTolerance = 1e-6
	// PlateauRounds is how many consecutive stalled rounds end training.
	PlateauRounds = 10
)

// TrainingParams contains all training hyperparameters
type TrainingParams struct {
	// Basic parameters
	NumIterations int     `json:"num_iterations"`
	LearningRate  float64 `json:"learning_rate"`
	NumLeaves     int     `json:"num_leaves"`
	MaxDepth      int     `json:"max_depth"`
	MinDataInLeaf int     `json:"min_data_in_leaf"`

	// Regularization
	Lambda         float64 `json:"lambda_l2"`
	MinGainToSplit float64 `json:"min_gain_to_split"`

	// Objective
	Objective  string  `json:"objective"`
	HuberDelta float64 `json:"huber_delta"`
	FairC      float64 `json:"fair_c"`

	// Stopping. PlateauRounds <= 0 disables the plateau check.
	PlateauRounds    int     `json:"plateau_rounds"`
	PlateauTolerance float64 `json:"plateau_tolerance"`
}

// DefaultParams returns the parameters used when nothing is overridden.
// MinDataInLeaf is 1 so small tables can still be split.
func DefaultParams() TrainingParams {
	return TrainingParams{
		NumIterations:    100,
		LearningRate:     0.1,
		NumLeaves:        31,
		MaxDepth:         -1,
		MinDataInLeaf:    1,
		Lambda:           0,
		MinGainToSplit:   0,
		Objective:        ObjectiveRegression,
		HuberDelta:       1.0,
		FairC:            1.0,
		PlateauRounds:    PlateauRounds,
		PlateauTolerance: PlateauTolerance,
	}
}

// BudgetSchedule maps a training budget to a learning rate and an iteration
// limit: learning_rate = max(10^(-budget), MinLearningRate) and
// iterations = ceil(10 / learning_rate). A larger budget means smaller steps
// and more trees; budgets above 3 saturate at MinLearningRate and
// MaxIterations instead of shrinking the steps past what the cap can cover.
func BudgetSchedule(budget float64) (learningRate float64, iterations int, err error) {
	if math.IsNaN(budget) || math.IsInf(budget, 0) || budget < 0 {
		return 0, 0, errors.NewValidationError("budget", "must be a finite non-negative number", budget)
	}
	learningRate = math.Max(math.Pow(10, -budget), MinLearningRate)
	// the small offset keeps 10/0.1 from rounding up to 101
	n := int(math.Ceil(10/learningRate - 1e-9))
	if n > MaxIterations {
		n = MaxIterations
	}
	return learningRate, n, nil
}

// Validate checks the parameters before training.
func (p TrainingParams) Validate() error {
	if p.NumIterations <= 0 {
		return errors.NewValidationError("num_iterations", "must be positive", p.NumIterations)
	}
	if !(p.LearningRate > 0) || math.IsInf(p.LearningRate, 0) {
		return errors.NewValidationError("learning_rate", "must be a positive finite number", p.LearningRate)
	}
	if p.NumLeaves < 2 {
		return errors.NewValidationError("num_leaves", "must be at least 2", p.NumLeaves)
	}
	if p.MinDataInLeaf < 1 {
		return errors.NewValidationError("min_data_in_leaf", "must be at least 1", p.MinDataInLeaf)
	}
	if p.Lambda < 0 {
		return errors.NewValidationError("lambda_l2", "must be non-negative", p.Lambda)
	}
	if p.MinGainToSplit < 0 {
		return errors.NewValidationError("min_gain_to_split", "must be non-negative", p.MinGainToSplit)
	}
	return nil
}
