package preprocessing

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/ordboost/pkg/errors"
	"github.com/YuminosukeSato/ordboost/pkg/log"
	"github.com/YuminosukeSato/ordboost/table"
)

// FeatureMatrix は列優先（column-major）で平坦化された特徴量行列です。
// data[j*rows+i] が行 i・特徴量 j の値で、欠損値はNaNとして保持されます。
// mat.Matrix を実装するため、gonumベースの推定器にコピーなしで渡せます。
type FeatureMatrix struct {
	data  []float64
	rows  int
	cols  int
	names []string
}

var _ mat.Matrix = (*FeatureMatrix)(nil)

// NewFeatureMatrix は列優先バッファから行列を作成する。len(data) == rows*cols でなければならない。
func NewFeatureMatrix(data []float64, rows, cols int, names []string) (*FeatureMatrix, error) {
	if rows < 0 || cols < 0 {
		return nil, errors.NewValidationError("dims", "must be non-negative", [2]int{rows, cols})
	}
	if len(data) != rows*cols {
		return nil, errors.NewDimensionError("NewFeatureMatrix", rows*cols, len(data), 0)
	}
	if names != nil && len(names) != cols {
		return nil, errors.NewDimensionError("NewFeatureMatrix", cols, len(names), 1)
	}
	return &FeatureMatrix{data: data, rows: rows, cols: cols, names: names}, nil
}

// Dims は (行数, 特徴量数) を返す
func (m *FeatureMatrix) Dims() (r, c int) {
	return m.rows, m.cols
}

// At は行 i・特徴量 j の値を返す
func (m *FeatureMatrix) At(i, j int) float64 {
	if i < 0 || i >= m.rows {
		panic(mat.ErrRowAccess)
	}
	if j < 0 || j >= m.cols {
		panic(mat.ErrColAccess)
	}
	return m.data[j*m.rows+i]
}

// T は転置ビューを返す
func (m *FeatureMatrix) T() mat.Matrix {
	return mat.Transpose{Matrix: m}
}

// RawData は列優先バッファを返す。呼び出し側は変更してはならない。
func (m *FeatureMatrix) RawData() []float64 {
	return m.data
}

// Column は特徴量 j の値を行順で返す（バッファの部分スライス）
func (m *FeatureMatrix) Column(j int) []float64 {
	if j < 0 || j >= m.cols {
		panic(mat.ErrColAccess)
	}
	return m.data[j*m.rows : (j+1)*m.rows]
}

// Names は特徴量名を返す
func (m *FeatureMatrix) Names() []string {
	return m.names
}

// Dense は行優先の *mat.Dense コピーを返す。空行列の場合はnil。
func (m *FeatureMatrix) Dense() *mat.Dense {
	if m.rows == 0 || m.cols == 0 {
		return nil
	}
	// cols×rows の行優先バッファは rows×cols の列優先バッファと同じ並び
	colMajor := mat.NewDense(m.cols, m.rows, m.data)
	return mat.DenseCopyOf(colMajor.T())
}

// FeatureMatrixBuilder は横長のテーブルから特徴量行列を構築する
type FeatureMatrixBuilder struct {
	features []string
	logger   log.Logger
}

// NewFeatureMatrixBuilder は特徴量列名の順序を指定してビルダーを作成する
func NewFeatureMatrixBuilder(features ...string) *FeatureMatrixBuilder {
	return &FeatureMatrixBuilder{
		features: append([]string(nil), features...),
		logger:   log.GetLoggerWithName("preprocessing.features"),
	}
}

// Features は特徴量列名を返す
func (b *FeatureMatrixBuilder) Features() []string {
	return append([]string(nil), b.features...)
}

// Build はテーブルを特徴量列でmeltし、value列を上から読んだものをそのまま列優先バッファとする。
//
// meltは「値列ごとのブロック（指定順）× ブロック内は元の行順」で行を並べるため、
// 明示的な転置やセル単位のコピーは不要です。この並び順の契約が崩れると長さを変えずに
// 行列が壊れるので、テストで明示的に検証しています。
func (b *FeatureMatrixBuilder) Build(t *table.Table) (*FeatureMatrix, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}

	long, err := t.Melt(b.features, nil)
	if err != nil {
		return nil, errors.NewCollaboratorError("reshape", err)
	}
	data, err := long.Floats(table.ValueColumn)
	if err != nil {
		return nil, errors.NewCollaboratorError("reshape", err)
	}

	return b.finish(data, t.Nrow())
}

// BuildDirect は melt を使わず、各特徴量列を直接取り出して連結する。Build と同じバッファになる。
func (b *FeatureMatrixBuilder) BuildDirect(t *table.Table) (*FeatureMatrix, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}

	rows := t.Nrow()
	data := make([]float64, 0, rows*len(b.features))
	for _, name := range b.features {
		col, err := t.Floats(name)
		if err != nil {
			return nil, errors.NewCollaboratorError("table", err)
		}
		data = append(data, col...)
	}

	return b.finish(data, rows)
}

func (b *FeatureMatrixBuilder) validate() error {
	if len(b.features) == 0 {
		return errors.NewValidationError("features", "at least one feature column is required", b.features)
	}
	seen := make(map[string]struct{}, len(b.features))
	for _, f := range b.features {
		if _, dup := seen[f]; dup {
			return errors.NewValidationError("features", "duplicate feature column "+f, b.features)
		}
		seen[f] = struct{}{}
	}
	return nil
}

func (b *FeatureMatrixBuilder) finish(data []float64, rows int) (*FeatureMatrix, error) {
	m, err := NewFeatureMatrix(data, rows, len(b.features), b.Features())
	if err != nil {
		return nil, err
	}
	b.logger.Debug("Feature matrix built",
		log.SamplesKey, rows,
		log.FeaturesKey, len(b.features),
	)
	return m, nil
}
