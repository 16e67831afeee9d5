// Package table is the tabular collaborator of the pipeline: CSV ingestion,
// column selection and the wide-to-long reshape (melt). It wraps a gota
// DataFrame and never mutates it after construction.
package table

import (
	"io"
	"os"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/YuminosukeSato/ordboost/pkg/errors"
)

// Column names produced by Melt.
const (
	VariableColumn = "variable"
	ValueColumn    = "value"
)

// Table is an immutable, rectangular, column-named dataset.
type Table struct {
	df dataframe.DataFrame
}

// ReadOption configures ReadCSV.
type ReadOption func(*readConfig)

type readConfig struct {
	types     map[string]series.Type
	delimiter rune
}

// WithFloatColumns forces the named columns to be parsed as float64. Values
// that do not parse become NaN.
func WithFloatColumns(names ...string) ReadOption {
	return func(c *readConfig) {
		for _, n := range names {
			c.types[n] = series.Float
		}
	}
}

// WithStringColumns forces the named columns to be kept as strings.
func WithStringColumns(names ...string) ReadOption {
	return func(c *readConfig) {
		for _, n := range names {
			c.types[n] = series.String
		}
	}
}

// WithDelimiter sets the field delimiter (default ',').
func WithDelimiter(d rune) ReadOption {
	return func(c *readConfig) {
		c.delimiter = d
	}
}

// ReadCSV reads a CSV file with a header row and restricts the result to
// columns, in the given order. A nil columns keeps every column.
func ReadCSV(path string, columns []string, opts ...ReadOption) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	return Read(f, columns, opts...)
}

// Read is ReadCSV over an arbitrary reader.
func Read(r io.Reader, columns []string, opts ...ReadOption) (*Table, error) {
	cfg := &readConfig{types: map[string]series.Type{}, delimiter: ','}
	for _, opt := range opts {
		opt(cfg)
	}

	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.WithTypes(cfg.types),
		dataframe.WithDelimiter(cfg.delimiter),
	)
	if df.Err != nil {
		return nil, errors.Wrap(df.Err, "parse csv")
	}

	t := &Table{df: df}
	if columns == nil {
		return t, nil
	}
	return t.Select(columns)
}

// FromSeries builds a table from gota series. All series must have the same length.
func FromSeries(cols ...series.Series) (*Table, error) {
	df := dataframe.New(cols...)
	if df.Err != nil {
		return nil, errors.Wrap(df.Err, "build table")
	}
	return &Table{df: df}, nil
}

// Nrow returns the number of rows.
func (t *Table) Nrow() int {
	return t.df.Nrow()
}

// Names returns the column names in order.
func (t *Table) Names() []string {
	return t.df.Names()
}

// Select returns a table restricted to columns, in the given order.
func (t *Table) Select(columns []string) (*Table, error) {
	if err := t.requireColumns(columns); err != nil {
		return nil, err
	}
	df := t.df.Select(columns)
	if df.Err != nil {
		return nil, errors.Wrap(df.Err, "select columns")
	}
	return &Table{df: df}, nil
}

// Floats returns a column as float64 values. Missing or unparseable cells are NaN.
func (t *Table) Floats(name string) ([]float64, error) {
	col, err := t.column(name)
	if err != nil {
		return nil, err
	}
	return col.Float(), nil
}

// Strings returns a column as strings in row order.
func (t *Table) Strings(name string) ([]string, error) {
	col, err := t.column(name)
	if err != nil {
		return nil, err
	}
	return col.Records(), nil
}

// Melt reshapes the table from wide to long form. The result has the id
// columns, then VariableColumn (the source column name) and ValueColumn (the
// cell as float64, NaN when missing). Rows are ordered by value column block,
// in the order of valueCols, and by original row order within a block, so the
// ValueColumn read top to bottom is the column-major layout of valueCols.
func (t *Table) Melt(valueCols, idCols []string) (*Table, error) {
	if len(valueCols) == 0 {
		return nil, errors.NewValidationError("valueCols", "at least one value column is required", valueCols)
	}
	for _, id := range idCols {
		if id == VariableColumn || id == ValueColumn {
			return nil, errors.NewValidationError("idCols", "collides with a melt output column", id)
		}
	}
	if err := t.requireColumns(append(append([]string{}, valueCols...), idCols...)); err != nil {
		return nil, err
	}

	n := t.df.Nrow()
	total := n * len(valueCols)

	values := make([]float64, 0, total)
	variables := make([]string, 0, total)
	for _, name := range valueCols {
		values = append(values, t.df.Col(name).Float()...)
		for i := 0; i < n; i++ {
			variables = append(variables, name)
		}
	}

	out := make([]series.Series, 0, len(idCols)+2)
	for _, id := range idCols {
		col := t.df.Col(id)
		records := col.Records()
		repeated := make([]string, 0, total)
		for range valueCols {
			repeated = append(repeated, records...)
		}
		out = append(out, series.New(repeated, col.Type(), id))
	}
	out = append(out,
		series.New(variables, series.String, VariableColumn),
		series.New(values, series.Float, ValueColumn),
	)

	return FromSeries(out...)
}

func (t *Table) column(name string) (series.Series, error) {
	if err := t.requireColumns([]string{name}); err != nil {
		return series.Series{}, err
	}
	col := t.df.Col(name)
	if col.Err != nil {
		return series.Series{}, errors.Wrapf(col.Err, "column %q", name)
	}
	return col, nil
}

func (t *Table) requireColumns(names []string) error {
	have := make(map[string]struct{}, t.df.Ncol())
	for _, n := range t.df.Names() {
		have[n] = struct{}{}
	}
	for _, n := range names {
		if _, ok := have[n]; !ok {
			return errors.Newf("unknown column %q (have %v)", n, t.df.Names())
		}
	}
	return nil
}
