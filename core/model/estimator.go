package model

import "gonum.org/v1/gonum/mat"

// Fitter は実数の目的変数に対して学習するモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる。y の長さは X の行数と一致しなければならない。
	Fit(X mat.Matrix, y []float64) error
}

// RawPredictor は行ごとのスコアを返すモデルのインターフェース
type RawPredictor interface {
	// Predict は X の各行に対する予測を行う。raw が true の場合はリンク関数を適用しない生のスコアを返す。
	Predict(X mat.Matrix, raw bool) ([]float64, error)
}

// Regressor は学習と生スコア予測の両方を持つモデル
type Regressor interface {
	Fitter
	RawPredictor
}
