package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/ordboost/pkg/errors"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Empty(t, cfg.DataPath, "the data path has no default")
	assert.Empty(t, cfg.Delimiter)
	assert.Equal(t, []string{"SepalLengthCm", "SepalWidthCm", "PetalLengthCm", "PetalWidthCm"}, cfg.Features)
	assert.Equal(t, "Species", cfg.Label)
	assert.Equal(t, []string{"Iris-setosa", "Iris-versicolor", "Iris-virginica"}, cfg.Classes)
	assert.Equal(t, "regression", cfg.Loss)
	assert.Equal(t, 1.0, cfg.Budget)
	assert.Empty(t, cfg.PlotPath)
	assert.False(t, cfg.Progress)
	assert.NoError(t, cfg.Validate())

	assert.Equal(t,
		[]string{"SepalLengthCm", "SepalWidthCm", "PetalLengthCm", "PetalWidthCm", "Species"},
		cfg.Columns())
}

func TestParseConfigOverrides(t *testing.T) {
	cfg, err := ParseConfig(`
features = a;b
label = y
classes = low;mid;high
loss = huber
budget = 2.5
progress = true
csv.delimiter = ;
`)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, cfg.Features)
	assert.Equal(t, "y", cfg.Label)
	assert.Equal(t, []string{"low", "mid", "high"}, cfg.Classes)
	assert.Equal(t, "huber", cfg.Loss)
	assert.Equal(t, 2.5, cfg.Budget)
	assert.True(t, cfg.Progress)
	assert.Equal(t, ";", cfg.Delimiter)
	assert.Empty(t, cfg.DataPath, "unset keys keep defaults")
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.properties")
	require.NoError(t, os.WriteFile(path, []byte("data.path = /tmp/x.csv\nbudget = 0.5\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.csv", cfg.DataPath)
	assert.Equal(t, 0.5, cfg.Budget)

	cfg, err = LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.properties"))
	assert.Error(t, err)

	_, err = ParseConfig("budget = lots")
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		param  string
	}{
		{name: "long delimiter", mutate: func(c *Config) { c.Delimiter = ";;" }, param: "csv.delimiter"},
		{name: "no features", mutate: func(c *Config) { c.Features = nil }, param: "features"},
		{name: "no label", mutate: func(c *Config) { c.Label = "" }, param: "label"},
		{name: "label as feature", mutate: func(c *Config) { c.Features = append(c.Features, c.Label) }, param: "features"},
		{name: "no classes", mutate: func(c *Config) { c.Classes = nil }, param: "classes"},
		{name: "duplicate class", mutate: func(c *Config) { c.Classes = []string{"a", "a"} }, param: "classes"},
		{name: "unknown loss", mutate: func(c *Config) { c.Loss = "poisson" }, param: "objective"},
		{name: "negative budget", mutate: func(c *Config) { c.Budget = -1 }, param: "budget"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			var valErr *errors.ValidationError
			require.True(t, errors.As(err, &valErr), "got %v", err)
			assert.Equal(t, tt.param, valErr.ParamName)

			_, err = New(cfg)
			assert.Error(t, err)
		})
	}
}
