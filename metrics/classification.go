// Package metrics は予測結果の評価指標を提供します。
// 分類（正解率・混同行列）と、順序コードに対する生予測値の回帰指標を含みます。
package metrics

import (
	"github.com/YuminosukeSato/ordboost/pkg/errors"
)

// ConfusionMatrix は [実際のクラス][予測クラス] の件数を保持する正方行列です。
type ConfusionMatrix [][]int

// NewConfusionMatrix はゼロで初期化された numClasses×numClasses の混同行列を作成する
func NewConfusionMatrix(numClasses int) ConfusionMatrix {
	m := make(ConfusionMatrix, numClasses)
	cells := make([]int, numClasses*numClasses)
	for i := range m {
		m[i] = cells[i*numClasses : (i+1)*numClasses : (i+1)*numClasses]
	}
	return m
}

// NumClasses はクラス数を返す
func (m ConfusionMatrix) NumClasses() int {
	return len(m)
}

// Total は全セルの合計（評価行数）を返す
func (m ConfusionMatrix) Total() int {
	total := 0
	for a := range m {
		total += m.RowSum(a)
	}
	return total
}

// RowSum は実際のクラス a の行数を返す
func (m ConfusionMatrix) RowSum(a int) int {
	sum := 0
	for _, v := range m[a] {
		sum += v
	}
	return sum
}

// ColSum はクラス p と予測された行数を返す
func (m ConfusionMatrix) ColSum(p int) int {
	sum := 0
	for a := range m {
		sum += m[a][p]
	}
	return sum
}

// Trace は対角成分の合計（正解数）を返す
func (m ConfusionMatrix) Trace() int {
	sum := 0
	for c := range m {
		sum += m[c][c]
	}
	return sum
}

// IsDiagonal は対角成分以外がすべて0かどうかを返す
func (m ConfusionMatrix) IsDiagonal() bool {
	for a := range m {
		for p, v := range m[a] {
			if a != p && v != 0 {
				return false
			}
		}
	}
	return true
}

// Recall はクラス c の再現率を返す。該当行がない場合は0。
func (m ConfusionMatrix) Recall(c int) float64 {
	n := m.RowSum(c)
	if n == 0 {
		return 0
	}
	return float64(m[c][c]) / float64(n)
}

// Precision はクラス c の適合率を返す。該当予測がない場合は0。
func (m ConfusionMatrix) Precision(c int) float64 {
	n := m.ColSum(c)
	if n == 0 {
		return 0
	}
	return float64(m[c][c]) / float64(n)
}

// Evaluation は分類評価の結果です。
type Evaluation struct {
	Accuracy  float64
	Correct   int
	Total     int
	Confusion ConfusionMatrix
	// Support[c] は実際のクラスが c である行数（混同行列の行和）
	Support []int
}

// Evaluate は予測コードと正解コードから正解率と混同行列を計算する
//
// 長さが異なる場合はDimensionError、0行の場合はEmptyInputError、
// [0, numClasses) 外のコードはValidationErrorを返します。入力は変更しません。
func Evaluate(decoded, actual []int, numClasses int) (*Evaluation, error) {
	if err := validatePair("Evaluate", decoded, actual); err != nil {
		return nil, err
	}
	confusion, err := ConfusionMatrixOf(decoded, actual, numClasses)
	if err != nil {
		return nil, err
	}

	support := make([]int, numClasses)
	for a := range confusion {
		support[a] = confusion.RowSum(a)
	}
	correct := confusion.Trace()
	return &Evaluation{
		Accuracy:  float64(correct) / float64(len(actual)),
		Correct:   correct,
		Total:     len(actual),
		Confusion: confusion,
		Support:   support,
	}, nil
}

// Accuracy は予測コードが正解と一致する行の割合を計算する
func Accuracy(decoded, actual []int) (float64, error) {
	if err := validatePair("Accuracy", decoded, actual); err != nil {
		return 0, err
	}
	correct := 0
	for i := range actual {
		if decoded[i] == actual[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(actual)), nil
}

// ConfusionMatrixOf は [実際][予測] の件数行列を作成する
func ConfusionMatrixOf(decoded, actual []int, numClasses int) (ConfusionMatrix, error) {
	if numClasses <= 0 {
		return nil, errors.NewValidationError("numClasses", "must be positive", numClasses)
	}
	if len(decoded) != len(actual) {
		return nil, errors.NewDimensionError("ConfusionMatrix", len(actual), len(decoded), 0)
	}

	m := NewConfusionMatrix(numClasses)
	for i := range actual {
		a, p := actual[i], decoded[i]
		if a < 0 || a >= numClasses {
			return nil, errors.NewValidationError("actual", "code out of class range", a)
		}
		if p < 0 || p >= numClasses {
			return nil, errors.NewValidationError("decoded", "code out of class range", p)
		}
		m[a][p]++
	}
	return m, nil
}

func validatePair(op string, decoded, actual []int) error {
	if len(decoded) != len(actual) {
		return errors.NewDimensionError(op, len(actual), len(decoded), 0)
	}
	if len(actual) == 0 {
		return errors.NewEmptyInputError(op)
	}
	return nil
}
