package errors

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUnknownClassError(t *testing.T) {
	err := NewUnknownClassError("Iris-unknown", []string{"Iris-setosa", "Iris-virginica"})

	want := `ordboost: unknown class "Iris-unknown" (known classes: [Iris-setosa Iris-virginica])`
	assert.Equal(t, want, err.Error())

	var ucErr *UnknownClassError
	require.True(t, As(err, &ucErr))
	assert.Equal(t, "Iris-unknown", ucErr.Label)

	// スタックトレースの存在確認
	formatted := fmt.Sprintf("%+v", err)
	assert.Contains(t, formatted, "errors_test.go")
}

func TestNewDimensionError(t *testing.T) {
	tests := []struct {
		name string
		axis int
		want string
	}{
		{
			name: "rows",
			axis: 0,
			want: "ordboost: Train: dimension mismatch on axis 0 (rows). Expected 10, got 9",
		},
		{
			name: "features",
			axis: 1,
			want: "ordboost: Train: dimension mismatch on axis 1 (features). Expected 10, got 9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewDimensionError("Train", 10, 9, tt.axis)
			assert.Equal(t, tt.want, err.Error())

			var dimErr *DimensionError
			require.True(t, As(err, &dimErr))
			assert.Equal(t, 10, dimErr.Expected)
			assert.Equal(t, 9, dimErr.Got)
		})
	}
}

func TestNewEmptyInputError(t *testing.T) {
	err := NewEmptyInputError("Evaluate")

	assert.Equal(t, "ordboost: Evaluate: empty input", err.Error())
	assert.True(t, Is(err, ErrEmptyInput), "EmptyInputError should match ErrEmptyInput")
	assert.False(t, Is(NewDimensionError("Evaluate", 1, 2, 0), ErrEmptyInput))

	var emptyErr *EmptyInputError
	assert.True(t, As(err, &emptyErr))
}

func TestNewCollaboratorError(t *testing.T) {
	cause := fmt.Errorf("open resources/Iris.csv: no such file or directory")
	err := NewCollaboratorError("table", cause)

	assert.Equal(t, "ordboost: table failed: open resources/Iris.csv: no such file or directory", err.Error())
	assert.True(t, Is(err, cause), "cause should stay reachable through Unwrap")

	var collabErr *CollaboratorError
	require.True(t, As(err, &collabErr))
	assert.Equal(t, "table", collabErr.Collaborator)

	assert.NoError(t, NewCollaboratorError("table", nil))
}

func TestCollaboratorErrorKeepsTypedCause(t *testing.T) {
	err := NewCollaboratorError("booster.fit", NewNotFittedError("Regressor", "Predict"))

	var notFitted *NotFittedError
	require.True(t, As(err, &notFitted))
	assert.Equal(t, "Predict", notFitted.Method)
}

func TestNewNotFittedError(t *testing.T) {
	err := NewNotFittedError("Regressor", "Predict")

	want := "ordboost: Regressor: this model is not fitted yet. Call Fit() before using Predict()"
	assert.Equal(t, want, err.Error())
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("budget", "must be positive", -1.0)

	assert.Equal(t, "ordboost: validation failed for parameter 'budget': must be positive (got: -1)", err.Error())

	var valErr *ValidationError
	assert.True(t, As(err, &valErr))
}

func TestNewConvergenceWarning(t *testing.T) {
	warn := NewConvergenceWarning("GradientBoosting", 1000, "loss still decreasing")

	want := "GradientBoosting failed to converge after 1000 iterations: loss still decreasing"
	assert.Equal(t, want, warn.Error())
}

func TestWarnUsesHandler(t *testing.T) {
	var got []error
	SetWarningHandler(func(w error) { got = append(got, w) })
	defer SetWarningHandler(func(w error) {})

	Warn(NewConvergenceWarning("GradientBoosting", 10, ""))

	require.Len(t, got, 1)
	assert.True(t, strings.HasPrefix(got[0].Error(), "GradientBoosting failed to converge"))
}

func TestWrapf(t *testing.T) {
	wrapped := Wrapf(ErrEmptyInput, "in %s: expected %d, got %d", "Build", 10, 5)

	assert.True(t, Is(wrapped, ErrEmptyInput))
	assert.Contains(t, wrapped.Error(), "in Build: expected 10, got 5")
}

func TestCheckNumericalStability(t *testing.T) {
	assert.NoError(t, CheckNumericalStability("gradients", []float64{0.1, -2, 3}, 0))

	err := CheckNumericalStability("gradients", []float64{0.1, math.NaN()}, 7)
	require.Error(t, err)

	var numErr *NumericalInstabilityError
	require.True(t, As(err, &numErr))
	assert.Equal(t, 7, numErr.Iteration)
}
