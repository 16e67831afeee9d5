package preprocessing

import (
	"github.com/YuminosukeSato/ordboost/pkg/errors"
	"github.com/YuminosukeSato/ordboost/table"
)

// ClassMap はクラス名から順序コード [0, numClasses) への固定の対応表です。
// コードは呼び出し側が指定した順序で割り当てられます（アルファベット順ではない）。
// 最近傍デコードは数値上の隣接関係に依存するため、順序は明示的かつ再現可能でなければなりません。
// 構築後は変更されません。
type ClassMap struct {
	names []string
	codes map[string]int
}

// NewClassMap は names の順にコード 0, 1, 2, ... を割り当てたClassMapを作成する
//
// 空のリスト、空文字列、重複した名前はValidationErrorになります。
//
// 使用例:
//
//	classes, err := preprocessing.NewClassMap("Iris-setosa", "Iris-versicolor", "Iris-virginica")
func NewClassMap(names ...string) (*ClassMap, error) {
	if len(names) == 0 {
		return nil, errors.NewValidationError("classes", "at least one class name is required", names)
	}
	codes := make(map[string]int, len(names))
	for i, name := range names {
		if name == "" {
			return nil, errors.NewValidationError("classes", "class names must be non-empty", names)
		}
		if _, dup := codes[name]; dup {
			return nil, errors.NewValidationError("classes", "duplicate class name "+name, names)
		}
		codes[name] = i
	}
	return &ClassMap{
		names: append([]string(nil), names...),
		codes: codes,
	}, nil
}

// NumClasses はクラス数を返す
func (m *ClassMap) NumClasses() int {
	return len(m.names)
}

// Names はコード順のクラス名のコピーを返す
func (m *ClassMap) Names() []string {
	return append([]string(nil), m.names...)
}

// LabelVector は行ごとの順序コード（元の行順）です。
type LabelVector []int

// Float64s はブースターの回帰目的変数として使うfloat64スライスを返す
func (v LabelVector) Float64s() []float64 {
	out := make([]float64, len(v))
	for i, c := range v {
		out[i] = float64(c)
	}
	return out
}

// LabelCodec はClassMapに基づいてクラス名と順序コードを相互変換する
type LabelCodec struct {
	classes *ClassMap
}

// NewLabelCodec は新しいLabelCodecを作成する
func NewLabelCodec(classes *ClassMap) *LabelCodec {
	return &LabelCodec{classes: classes}
}

// Classes は対応表を返す
func (c *LabelCodec) Classes() *ClassMap {
	return c.classes
}

// NumClasses はクラス数を返す
func (c *LabelCodec) NumClasses() int {
	return c.classes.NumClasses()
}

// Encode はクラス名を順序コードに変換する。未知のクラスはUnknownClassError。
func (c *LabelCodec) Encode(name string) (int, error) {
	code, ok := c.classes.codes[name]
	if !ok {
		return 0, errors.NewUnknownClassError(name, c.classes.Names())
	}
	return code, nil
}

// EncodeAll はラベル列を行順にエンコードする。最初の未知クラスで失敗する。
func (c *LabelCodec) EncodeAll(labels []string) (LabelVector, error) {
	out := make(LabelVector, len(labels))
	for i, label := range labels {
		code, err := c.Encode(label)
		if err != nil {
			return nil, errors.Wrapf(err, "row %d", i)
		}
		out[i] = code
	}
	return out, nil
}

// EncodeColumn はテーブルのラベル列を読み出してエンコードする
func (c *LabelCodec) EncodeColumn(t *table.Table, column string) (LabelVector, error) {
	labels, err := t.Strings(column)
	if err != nil {
		return nil, errors.NewCollaboratorError("table", err)
	}
	return c.EncodeAll(labels)
}

// Name は順序コードをクラス名に戻す（レポート用）
func (c *LabelCodec) Name(code int) (string, error) {
	if code < 0 || code >= len(c.classes.names) {
		return "", errors.NewValidationError("code", "out of class range", code)
	}
	return c.classes.names[code], nil
}
