package pipeline

import (
	"strings"
	"unicode/utf8"

	"github.com/magiconair/properties"

	"github.com/YuminosukeSato/ordboost/pkg/errors"
	"github.com/YuminosukeSato/ordboost/preprocessing"
	"github.com/YuminosukeSato/ordboost/sklearn/boosting"
	"github.com/YuminosukeSato/ordboost/table"
)

// Config describes one run. List values in a properties file are separated by
// semicolons. The defaults reproduce the Iris example; the data path has no
// default and must be set before Pipeline.Run.
type Config struct {
	DataPath string `properties:"data.path,default="`
	// Delimiter is the CSV field separator; empty means a comma.
	Delimiter string   `properties:"csv.delimiter,default="`
	Features  []string `properties:"features,default=SepalLengthCm;SepalWidthCm;PetalLengthCm;PetalWidthCm"`
	Label     string   `properties:"label,default=Species"`
	Classes   []string `properties:"classes,default=Iris-setosa;Iris-versicolor;Iris-virginica"`
	Loss      string   `properties:"loss,default=regression"`
	Budget    float64  `properties:"budget,default=1.0"`

	// PlotPath, when set, receives a PNG of raw predictions per row.
	PlotPath string `properties:"plot.path,default="`
	// ModelPath, when set, receives the fitted booster in gob format.
	ModelPath string `properties:"model.path,default="`
	Progress  bool   `properties:"progress,default=false"`

	LogLevel  string `properties:"log.level,default=info"`
	LogFormat string `properties:"log.format,default=console"`
}

// DefaultConfig returns the configuration with every default applied.
func DefaultConfig() Config {
	var cfg Config
	// decoding an empty property set only applies tag defaults and cannot fail
	if err := properties.NewProperties().Decode(&cfg); err != nil {
		panic(err)
	}
	return cfg
}

// LoadConfig reads a properties file and fills unset keys with defaults. An
// empty path yields DefaultConfig.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	p, err := properties.LoadFile(path, properties.UTF8)
	if err != nil {
		return Config{}, errors.Wrapf(err, "load config %s", path)
	}
	return decodeConfig(p)
}

// ParseConfig is LoadConfig over properties text.
func ParseConfig(text string) (Config, error) {
	p, err := properties.LoadString(text)
	if err != nil {
		return Config{}, errors.Wrap(err, "parse config")
	}
	return decodeConfig(p)
}

func decodeConfig(p *properties.Properties) (Config, error) {
	var cfg Config
	if err := p.Decode(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "decode config")
	}
	return cfg, nil
}

// Columns returns the feature columns followed by the label column.
func (c Config) Columns() []string {
	cols := make([]string, 0, len(c.Features)+1)
	cols = append(cols, c.Features...)
	return append(cols, c.Label)
}

// ReadOptions returns the table options for reading DataPath.
func (c Config) ReadOptions() []table.ReadOption {
	opts := []table.ReadOption{
		table.WithFloatColumns(c.Features...),
		table.WithStringColumns(c.Label),
	}
	if c.Delimiter != "" {
		r, _ := utf8.DecodeRuneInString(c.Delimiter)
		opts = append(opts, table.WithDelimiter(r))
	}
	return opts
}

// Validate checks the configuration before a run. DataPath is checked by
// Pipeline.Run, since RunTable does not read a file.
func (c Config) Validate() error {
	if c.Delimiter != "" && utf8.RuneCountInString(c.Delimiter) != 1 {
		return errors.NewValidationError("csv.delimiter", "must be a single character", c.Delimiter)
	}
	if len(c.Features) == 0 {
		return errors.NewValidationError("features", "at least one feature column is required", c.Features)
	}
	if strings.TrimSpace(c.Label) == "" {
		return errors.NewValidationError("label", "must not be empty", c.Label)
	}
	for _, f := range c.Features {
		if f == c.Label {
			return errors.NewValidationError("features", "label column cannot be a feature", f)
		}
	}
	if _, err := preprocessing.NewClassMap(c.Classes...); err != nil {
		return err
	}
	if _, err := boosting.NewObjective(c.Loss, boosting.DefaultParams()); err != nil {
		return err
	}
	if _, _, err := boosting.BudgetSchedule(c.Budget); err != nil {
		return err
	}
	return nil
}
