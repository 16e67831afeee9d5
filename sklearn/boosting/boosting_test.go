package boosting

import (
	"bytes"
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/ordboost/pkg/errors"
)

// separable returns 6 rows of 2 features where feature 0 (and feature 1)
// cleanly separates targets 0 and 1.
func separable() (*mat.Dense, []float64) {
	X := mat.NewDense(6, 2, []float64{
		0.0, 1.0,
		0.2, 0.8,
		0.4, 0.9,
		2.0, 0.1,
		2.2, 0.3,
		2.4, 0.2,
	})
	return X, []float64{0, 0, 0, 1, 1, 1}
}

type emptyMatrix struct{}

func (emptyMatrix) Dims() (int, int)    { return 0, 0 }
func (emptyMatrix) At(_, _ int) float64 { panic(mat.ErrIndexOutOfRange) }
func (m emptyMatrix) T() mat.Matrix     { return mat.Transpose{Matrix: m} }

func TestBudgetSchedule(t *testing.T) {
	tests := []struct {
		name      string
		budget    float64
		wantLR    float64
		wantIters int
		wantErr   bool
	}{
		{name: "zero", budget: 0, wantLR: 1, wantIters: 10},
		{name: "default", budget: 1, wantLR: 0.1, wantIters: 100},
		{name: "two", budget: 2, wantLR: 0.01, wantIters: 1000},
		{name: "three", budget: 3, wantLR: MinLearningRate, wantIters: MaxIterations},
		{name: "saturated", budget: 5, wantLR: MinLearningRate, wantIters: MaxIterations},
		{name: "far past saturation", budget: 12, wantLR: MinLearningRate, wantIters: MaxIterations},
		{name: "negative", budget: -1, wantErr: true},
		{name: "nan", budget: math.NaN(), wantErr: true},
		{name: "inf", budget: math.Inf(1), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lr, iters, err := BudgetSchedule(tt.budget)
			if tt.wantErr {
				var verr *errors.ValidationError
				assert.True(t, errors.As(err, &verr))
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.wantLR, lr, 1e-12)
			assert.Equal(t, tt.wantIters, iters)
		})
	}
}

func TestNewObjective(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"regression", ObjectiveRegression},
		{"squared", ObjectiveRegression},
		{"l2", ObjectiveRegression},
		{"mae", ObjectiveRegressionL1},
		{"huber", ObjectiveHuber},
		{"fair", ObjectiveFair},
		{"binary", ObjectiveBinary},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj, err := NewObjective(tt.name, DefaultParams())
			require.NoError(t, err)
			assert.Equal(t, tt.want, obj.Name())
		})
	}

	_, err := NewObjective("poisson", DefaultParams())
	assert.Error(t, err)
}

func TestObjectiveDerivatives(t *testing.T) {
	l2 := L2Objective{}
	assert.Equal(t, 0.5, l2.Gradient(1.5, 1))
	assert.Equal(t, 1.0, l2.Hessian(1.5, 1))
	assert.Equal(t, 0.125, l2.Loss(1.5, 1))
	assert.InDelta(t, 1.0, l2.InitScore([]float64{0, 1, 2}), 1e-12)

	l1 := L1Objective{}
	assert.Equal(t, -1.0, l1.Gradient(0, 2))
	assert.Equal(t, 0.0, l1.Gradient(2, 2))
	assert.Equal(t, 1.0, l1.InitScore([]float64{0, 1, 5}))

	huber := NewHuberObjective(1)
	assert.Equal(t, 0.5, huber.Gradient(0.5, 0))
	assert.Equal(t, 1.0, huber.Gradient(3, 0))
	assert.Equal(t, 2.5, huber.Loss(3, 0))

	fair := NewFairObjective(0)
	assert.Equal(t, 1.0, fair.C)
	assert.InDelta(t, 0.5, fair.Gradient(1, 0), 1e-12)

	bin := BinaryObjective{}
	assert.InDelta(t, 0.5, bin.Transform(0), 1e-12)
	assert.InDelta(t, -0.5, bin.Gradient(0, 1), 1e-12)
	assert.InDelta(t, 0.25, bin.Hessian(0, 1), 1e-12)
	assert.InDelta(t, math.Log(2), bin.Loss(0, 1), 1e-12)
	assert.False(t, math.IsInf(bin.Loss(1000, 0), 0))
	assert.InDelta(t, 0.0, bin.InitScore([]float64{0, 1}), 1e-12)
}

func TestRegressorFitsSeparableData(t *testing.T) {
	X, y := separable()

	reg, err := New("regression", 1.0)
	require.NoError(t, err)
	require.NoError(t, reg.Fit(X, y))

	assert.Equal(t, 100, reg.NumTrees())
	preds, err := reg.Predict(X, true)
	require.NoError(t, err)
	require.Len(t, preds, 6)
	for i := range y {
		assert.InDelta(t, y[i], preds[i], 1e-3, "row %d", i)
	}

	history := reg.EvalHistory()[TrainingLossKey]
	require.Len(t, history, reg.NumTrees())
	for i := 1; i < len(history); i++ {
		assert.LessOrEqual(t, history[i], history[i-1])
	}
	assert.Equal(t, history[len(history)-1], reg.TrainingLoss())

	importance, err := reg.FeatureImportance("gain")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, importance[0], 1e-9, "ties between features go to the lower index")
	_, err = reg.FeatureImportance("cover")
	assert.Error(t, err)
}

func TestRegressorPredictParallelMatchesSequential(t *testing.T) {
	X, y := separable()
	reg, err := New("huber", 1.0)
	require.NoError(t, err)
	require.NoError(t, reg.Fit(X, y))

	sequential, err := reg.Predict(X, true)
	require.NoError(t, err)
	parallelPreds, err := reg.WithParallelThreshold(0).Predict(X, true)
	require.NoError(t, err)
	assert.Equal(t, sequential, parallelPreds)
}

func TestRegressorBinaryTransform(t *testing.T) {
	X, y := separable()
	reg, err := New("binary", 1.0)
	require.NoError(t, err)
	require.NoError(t, reg.Fit(X, y))

	raw, err := reg.Predict(X, true)
	require.NoError(t, err)
	probs, err := reg.Predict(X, false)
	require.NoError(t, err)

	for i := range y {
		assert.InDelta(t, 1/(1+math.Exp(-raw[i])), probs[i], 1e-12)
		assert.True(t, probs[i] > 0 && probs[i] < 1)
		if y[i] == 1 {
			assert.Greater(t, probs[i], 0.5)
		} else {
			assert.Less(t, probs[i], 0.5)
		}
	}

	bad, err := New("binary", 1.0)
	require.NoError(t, err)
	err = bad.Fit(X, []float64{0, 1, 2, 0, 1, 2})
	var verr *errors.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestRegressorErrors(t *testing.T) {
	_, err := New("poisson", 1)
	assert.Error(t, err)
	_, err = New("regression", -2)
	assert.Error(t, err)

	reg, err := New("regression", 1)
	require.NoError(t, err)

	X, y := separable()
	_, err = reg.Predict(X, true)
	var notFitted *errors.NotFittedError
	assert.True(t, errors.As(err, &notFitted))

	var dim *errors.DimensionError
	err = reg.Fit(X, y[:5])
	require.True(t, errors.As(err, &dim))
	assert.Equal(t, 0, dim.Axis)

	err = reg.Fit(emptyMatrix{}, nil)
	assert.True(t, errors.Is(err, errors.ErrEmptyInput))

	err = reg.Fit(X, []float64{0, 0, math.NaN(), 1, 1, 1})
	var instability *errors.NumericalInstabilityError
	assert.True(t, errors.As(err, &instability))

	require.NoError(t, reg.Fit(X, y))
	_, err = reg.Predict(mat.NewDense(1, 3, nil), true)
	require.True(t, errors.As(err, &dim))
	assert.Equal(t, 2, dim.Expected)
}

func TestRegressorContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	X, y := separable()
	reg, err := New("regression", 1)
	require.NoError(t, err)

	err = reg.WithContext(ctx).Fit(X, y)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Zero(t, reg.NumTrees())
}

func TestRegressorConvergenceWarning(t *testing.T) {
	var warnings []error
	errors.SetWarningHandler(func(w error) { warnings = append(warnings, w) })
	defer errors.SetWarningHandler(nil)

	// targets far apart keep the loss well above the convergence floor for
	// all 32 rounds while it still improves by about half each round
	X, y := separable()
	for i := range y {
		y[i] *= 1e6
	}
	reg, err := New("regression", 0.5)
	require.NoError(t, err)
	require.NoError(t, reg.Fit(X, y))

	require.Len(t, warnings, 1)
	var cw *errors.ConvergenceWarning
	require.True(t, errors.As(warnings[0], &cw))
	assert.Equal(t, reg.NumTrees(), cw.Iterations)
}

func TestRegressorProgressBar(t *testing.T) {
	var buf bytes.Buffer
	X, y := separable()
	reg, err := New("regression", 0)
	require.NoError(t, err)

	require.NoError(t, reg.WithProgressBar(&buf).Fit(X, y))
	assert.NotEmpty(t, buf.String())
}

func TestTrainerPlateauStopsEarly(t *testing.T) {
	// one distinct feature value: no split exists and the loss stays at 0.125
	X := mat.NewDense(4, 1, []float64{1, 1, 1, 1})
	y := []float64{0, 1, 0, 1}

	trainer := NewTrainer(TrainingParams{
		NumIterations:    100,
		PlateauRounds:    PlateauRounds,
		PlateauTolerance: PlateauTolerance,
	})
	require.NoError(t, trainer.Fit(X, y))

	assert.Len(t, trainer.Model().Trees, PlateauRounds+1)
	assert.False(t, trainer.LimitReached())
	assert.Contains(t, trainer.StopReason(), "plateaued")
	assert.Equal(t, 0.5, trainer.Model().PredictRaw([]float64{1}))
}

func TestTrainerStopsWhenLossConverges(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	y := []float64{2, 2, 2, 2}

	trainer := NewTrainer(TrainingParams{
		NumIterations:    100,
		PlateauRounds:    PlateauRounds,
		PlateauTolerance: PlateauTolerance,
	})
	require.NoError(t, trainer.Fit(X, y))

	assert.Len(t, trainer.Model().Trees, 1)
	assert.False(t, trainer.LimitReached())
	assert.Contains(t, trainer.StopReason(), "converged")
	assert.Equal(t, 2.0, trainer.Model().PredictRaw([]float64{3}))
}

func TestRegressorPerfectFitDoesNotWarn(t *testing.T) {
	var warnings []error
	errors.SetWarningHandler(func(w error) { warnings = append(warnings, w) })
	defer errors.SetWarningHandler(nil)

	X, y := separable()
	reg, err := New("regression", 1)
	require.NoError(t, err)
	require.NoError(t, reg.Fit(X, y))

	assert.Empty(t, warnings)
	assert.Less(t, reg.NumTrees(), 100)
	assert.LessOrEqual(t, reg.TrainingLoss(), PlateauTolerance)
}

func TestHigherBudgetNeverFitsWorse(t *testing.T) {
	X := mat.NewDense(6, 1, []float64{0, 0, 5, 5, 10, 10})
	y := []float64{0, 0, 1, 1, 2, 2}

	losses := map[float64]float64{}
	for _, budget := range []float64{1, 3, 5, 8} {
		reg, err := New("regression", budget)
		require.NoError(t, err)
		require.NoError(t, reg.Fit(X, y))

		preds, err := reg.Predict(X, true)
		require.NoError(t, err)
		for i := range y {
			assert.InDelta(t, y[i], preds[i], 0.01, "budget %v row %d", budget, i)
		}
		losses[budget] = reg.TrainingLoss()
	}
	assert.Equal(t, losses[5], losses[8], "budgets past saturation train identically")
}

func TestTrainerRoutesMissingValuesRight(t *testing.T) {
	nan := math.NaN()
	X := mat.NewDense(6, 1, []float64{1, 2, nan, nan, 3, 4})
	y := []float64{0, 0, 1, 1, 0, 0}

	trainer := NewTrainer(TrainingParams{NumIterations: 30, LearningRate: 0.5})
	require.NoError(t, trainer.Fit(X, y))

	root := trainer.Model().Trees[0].Nodes[0]
	require.False(t, root.IsLeaf())
	assert.Equal(t, 4.0, root.Threshold)
	assert.False(t, root.DefaultLeft)

	m := trainer.Model()
	assert.InDelta(t, 1.0, m.PredictRaw([]float64{nan}), 1e-6)
	assert.InDelta(t, 0.0, m.PredictRaw([]float64{2.5}), 1e-6)
}

func TestTrainerTreeShapeLimits(t *testing.T) {
	n := 20
	X := mat.NewDense(n, 1, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i))
		y[i] = float64(i)
	}

	tests := []struct {
		name       string
		params     TrainingParams
		wantLeaves int
	}{
		{"num leaves", TrainingParams{NumIterations: 1, NumLeaves: 4}, 4},
		{"max depth", TrainingParams{NumIterations: 1, MaxDepth: 1}, 2},
		{"min data in leaf", TrainingParams{NumIterations: 1, MinDataInLeaf: 11}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trainer := NewTrainer(tt.params)
			require.NoError(t, trainer.Fit(X, y))
			tree := trainer.Model().Trees[0]
			assert.Equal(t, tt.wantLeaves, tree.NumLeaves)
			if tt.params.MaxDepth > 0 {
				assert.LessOrEqual(t, tree.Depth(), tt.params.MaxDepth)
			}
		})
	}
}

func TestCallbacks(t *testing.T) {
	X, y := separable()

	var history map[string][]float64
	stopAt := 3
	trainer := NewTrainer(TrainingParams{NumIterations: 50}).WithCallbacks(
		RecordEvaluation(&history),
		func(env *CallbackEnv) error {
			if env.Stage == StageAfterIteration && env.Iteration == stopAt-1 {
				env.StopTraining = true
				env.StopReason = "enough"
			}
			return nil
		},
	)
	require.NoError(t, trainer.Fit(X, y))

	assert.Len(t, trainer.Model().Trees, stopAt)
	assert.Len(t, history[TrainingLossKey], stopAt)
	assert.Equal(t, "enough", trainer.StopReason())

	failing := NewTrainer(TrainingParams{NumIterations: 5}).WithCallbacks(func(env *CallbackEnv) error {
		if env.Stage == StageBeforeIteration && env.Iteration == 2 {
			return errors.New("callback failed")
		}
		return nil
	})
	err := failing.Fit(X, y)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "iteration 2")
}

func TestEnsembleFeatureImportanceSplit(t *testing.T) {
	e := &Ensemble{
		NumFeatures: 3,
		Trees: []Tree{{
			ShrinkageRate: 1,
			Nodes: []Node{
				{LeftChild: 1, RightChild: 2, SplitFeature: 2, Gain: 3},
				{LeftChild: 3, RightChild: 4, SplitFeature: 0, Gain: 1},
				{LeftChild: -1, RightChild: -1, LeafValue: 1},
				{LeftChild: -1, RightChild: -1, LeafValue: 2},
				{LeftChild: -1, RightChild: -1, LeafValue: 3},
			},
		}},
	}
	assert.Equal(t, []float64{0.5, 0, 0.5}, e.FeatureImportance("split"))
	assert.Equal(t, []float64{0.25, 0, 0.75}, e.FeatureImportance("gain"))
}

func TestRegressorSaveAndLoad(t *testing.T) {
	X, y := separable()
	r, err := New(ObjectiveHuber, 0.5)
	require.NoError(t, err)

	var buf bytes.Buffer
	assert.Error(t, r.SaveModel(&buf), "unfitted model cannot be saved")

	require.NoError(t, r.Fit(X, y))
	require.NoError(t, r.SaveModel(&buf))

	loaded, err := LoadRegressor(&buf)
	require.NoError(t, err)
	assert.Equal(t, r.NumTrees(), loaded.NumTrees())
	assert.InDelta(t, r.Params().LearningRate, loaded.Params().LearningRate, 1e-12)

	want, err := r.Predict(X, true)
	require.NoError(t, err)
	got, err := loaded.Predict(X, true)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = loaded.Predict(mat.NewDense(1, 3, nil), true)
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr))

	_, err = LoadRegressor(bytes.NewBufferString("not gob"))
	assert.Error(t, err)
}

func TestTimeLimitStopsAfterOneTree(t *testing.T) {
	X, y := separable()
	trainer := NewTrainer(TrainingParams{NumIterations: 50}).WithCallbacks(TimeLimit(-time.Second))
	require.NoError(t, trainer.Fit(X, y))

	assert.Len(t, trainer.Model().Trees, 1)
	assert.Contains(t, trainer.StopReason(), "time limit")
	assert.False(t, trainer.LimitReached())
}
