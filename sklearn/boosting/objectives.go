package boosting

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/ordboost/pkg/errors"
)

// Objective names accepted by NewObjective.
const (
	ObjectiveRegression   = "regression"
	ObjectiveRegressionL1 = "regression_l1"
	ObjectiveHuber        = "huber"
	ObjectiveFair         = "fair"
	ObjectiveBinary       = "binary"
)

// Objective is a differentiable loss. Gradient and Hessian are taken with
// respect to the raw score.
type Objective interface {
	Gradient(score, target float64) float64
	Hessian(score, target float64) float64
	Loss(score, target float64) float64
	// InitScore is the constant raw score every row starts from.
	InitScore(targets []float64) float64
	// Transform maps a raw score to the prediction space.
	Transform(score float64) float64
	Name() string
}

// NewObjective resolves an objective by name. "l2", "mse" and "squared" are
// aliases of "regression"; "l1" and "mae" of "regression_l1".
func NewObjective(name string, params TrainingParams) (Objective, error) {
	switch name {
	case ObjectiveRegression, "l2", "mse", "squared", "":
		return L2Objective{}, nil
	case ObjectiveRegressionL1, "l1", "mae":
		return L1Objective{}, nil
	case ObjectiveHuber:
		return NewHuberObjective(params.HuberDelta), nil
	case ObjectiveFair:
		return NewFairObjective(params.FairC), nil
	case ObjectiveBinary:
		return BinaryObjective{}, nil
	default:
		return nil, errors.NewValidationError("objective", "unsupported objective", name)
	}
}

// L2Objective is squared error. Its minimizer is the mean.
type L2Objective struct{}

func (L2Objective) Gradient(score, target float64) float64 { return score - target }
func (L2Objective) Hessian(_, _ float64) float64           { return 1.0 }
func (L2Objective) Transform(score float64) float64        { return score }
func (L2Objective) Name() string                           { return ObjectiveRegression }

func (L2Objective) Loss(score, target float64) float64 {
	diff := score - target
	return 0.5 * diff * diff
}

func (L2Objective) InitScore(targets []float64) float64 {
	if len(targets) == 0 {
		return 0
	}
	return stat.Mean(targets, nil)
}

// L1Objective is absolute error. The hessian is held at 1 so leaf values are
// the mean sign of the residuals.
type L1Objective struct{}

func (L1Objective) Hessian(_, _ float64) float64    { return 1.0 }
func (L1Objective) Transform(score float64) float64 { return score }
func (L1Objective) Name() string                    { return ObjectiveRegressionL1 }

func (L1Objective) Gradient(score, target float64) float64 {
	diff := score - target
	switch {
	case math.Abs(diff) < 1e-7:
		return 0
	case diff > 0:
		return 1
	default:
		return -1
	}
}

func (L1Objective) Loss(score, target float64) float64 {
	return math.Abs(score - target)
}

func (L1Objective) InitScore(targets []float64) float64 {
	return median(targets)
}

// HuberObjective is quadratic within Delta of the target and linear outside.
type HuberObjective struct {
	Delta float64
}

// NewHuberObjective returns a Huber loss; a non-positive delta becomes 1.
func NewHuberObjective(delta float64) HuberObjective {
	if delta <= 0 {
		delta = 1.0
	}
	return HuberObjective{Delta: delta}
}

func (o HuberObjective) Gradient(score, target float64) float64 {
	diff := score - target
	if math.Abs(diff) <= o.Delta {
		return diff
	}
	return math.Copysign(o.Delta, diff)
}

func (o HuberObjective) Hessian(score, target float64) float64 {
	if math.Abs(score-target) <= o.Delta {
		return 1.0
	}
	return 1e-7
}

func (o HuberObjective) Loss(score, target float64) float64 {
	diff := math.Abs(score - target)
	if diff <= o.Delta {
		return 0.5 * diff * diff
	}
	return o.Delta * (diff - 0.5*o.Delta)
}

func (HuberObjective) InitScore(targets []float64) float64 {
	if len(targets) == 0 {
		return 0
	}
	return stat.Mean(targets, nil)
}

func (HuberObjective) Transform(score float64) float64 { return score }
func (HuberObjective) Name() string                    { return ObjectiveHuber }

// FairObjective is c²(|x|/c - log(1+|x|/c)), a smooth robust loss.
type FairObjective struct {
	C float64
}

// NewFairObjective returns a Fair loss; a non-positive c becomes 1.
func NewFairObjective(c float64) FairObjective {
	if c <= 0 {
		c = 1.0
	}
	return FairObjective{C: c}
}

func (o FairObjective) Gradient(score, target float64) float64 {
	diff := score - target
	return o.C * diff / (math.Abs(diff) + o.C)
}

func (o FairObjective) Hessian(score, target float64) float64 {
	d := math.Abs(score-target) + o.C
	return o.C * o.C / (d * d)
}

func (o FairObjective) Loss(score, target float64) float64 {
	x := math.Abs(score-target) / o.C
	return o.C * o.C * (x - math.Log1p(x))
}

func (FairObjective) InitScore(targets []float64) float64 { return median(targets) }
func (FairObjective) Transform(score float64) float64     { return score }
func (FairObjective) Name() string                        { return ObjectiveFair }

// BinaryObjective is logistic loss on targets in {0, 1}. Raw scores are log-odds.
type BinaryObjective struct{}

func (BinaryObjective) Gradient(score, target float64) float64 {
	return sigmoid(score) - target
}

func (BinaryObjective) Hessian(score, _ float64) float64 {
	p := sigmoid(score)
	return math.Max(p*(1-p), 1e-16)
}

func (BinaryObjective) Loss(score, target float64) float64 {
	// log(1+exp(s)) - t*s, computed without overflow
	if score > 0 {
		return score + math.Log1p(math.Exp(-score)) - target*score
	}
	return math.Log1p(math.Exp(score)) - target*score
}

func (BinaryObjective) InitScore(targets []float64) float64 {
	if len(targets) == 0 {
		return 0
	}
	p := stat.Mean(targets, nil)
	p = math.Min(math.Max(p, 1e-15), 1-1e-15)
	return math.Log(p / (1 - p))
}

func (BinaryObjective) Transform(score float64) float64 { return sigmoid(score) }
func (BinaryObjective) Name() string                    { return ObjectiveBinary }

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + errors.StabilizeExp(-x))
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return stat.Quantile(0.5, stat.Empirical, sorted, nil)
}
