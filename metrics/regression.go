package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/ordboost/pkg/errors"
)

// MSE は平均二乗誤差（Mean Squared Error）を計算する
func MSE(yTrue, yPred []float64) (float64, error) {
	if err := validateRegression("MSE", yTrue, yPred); err != nil {
		return 0, err
	}
	// MSE = (1/n) * Σ(yTrue - yPred)²
	d := floats.Distance(yTrue, yPred, 2)
	return d * d / float64(len(yTrue)), nil
}

// RMSE は平方根平均二乗誤差（Root Mean Squared Error）を計算する
func RMSE(yTrue, yPred []float64) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE は平均絶対誤差（Mean Absolute Error）を計算する
func MAE(yTrue, yPred []float64) (float64, error) {
	if err := validateRegression("MAE", yTrue, yPred); err != nil {
		return 0, err
	}
	return floats.Distance(yTrue, yPred, 1) / float64(len(yTrue)), nil
}

// R2Score は決定係数（R²）を計算する。yTrueが定数の場合は、完全一致なら1、それ以外は0を返す。
func R2Score(yTrue, yPred []float64) (float64, error) {
	if err := validateRegression("R2Score", yTrue, yPred); err != nil {
		return 0, err
	}

	mean := stat.Mean(yTrue, nil)
	var tss, rss float64
	for i := range yTrue {
		tss += (yTrue[i] - mean) * (yTrue[i] - mean)
		rss += (yTrue[i] - yPred[i]) * (yTrue[i] - yPred[i])
	}
	if tss == 0 {
		if rss == 0 {
			return 1, nil
		}
		return 0, nil
	}
	return 1 - rss/tss, nil
}

func validateRegression(op string, yTrue, yPred []float64) error {
	if len(yPred) != len(yTrue) {
		return errors.NewDimensionError(op, len(yTrue), len(yPred), 0)
	}
	if len(yTrue) == 0 {
		return errors.NewEmptyInputError(op)
	}
	return nil
}
