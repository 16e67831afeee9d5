package model

import (
	"encoding/gob"
	"io"
	"os"

	"github.com/YuminosukeSato/ordboost/pkg/errors"
)

// SaveModel は学習済みモデルをgob形式でファイルに保存する
//
// 使用例:
//
//	ensemble := regressor.Model()
//	err := model.SaveModel(ensemble, "model.gob")
func SaveModel(m interface{}, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrapf(err, "create model file %s", filename)
	}

	if err := SaveModelToWriter(m, file); err != nil {
		_ = file.Close()
		return err
	}
	return errors.Wrap(file.Close(), "close model file")
}

// LoadModel はファイルからモデルを読み込む。m はポインタである必要がある。
func LoadModel(m interface{}, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return errors.Wrapf(err, "open model file %s", filename)
	}
	defer file.Close()

	return LoadModelFromReader(m, file)
}

// SaveModelToWriter はモデルをio.Writerにgob形式で書き出す
func SaveModelToWriter(m interface{}, w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(m); err != nil {
		return errors.Wrap(err, "encode model")
	}
	return nil
}

// LoadModelFromReader はio.Readerからモデルを読み込む
func LoadModelFromReader(m interface{}, r io.Reader) error {
	if err := gob.NewDecoder(r).Decode(m); err != nil {
		return errors.Wrap(err, "decode model")
	}
	return nil
}
