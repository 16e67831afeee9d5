// Command ordboost trains a gradient-boosted regressor on ordinal class codes
// of a CSV table and reports accuracy and the confusion matrix.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/alexflint/go-arg"

	"github.com/YuminosukeSato/ordboost/pipeline"
	"github.com/YuminosukeSato/ordboost/pkg/log"
)

type args struct {
	Config    string   `arg:"-c,--config" help:"properties file with run settings"`
	Data      string   `arg:"-d,--data" help:"CSV file with a header row"`
	Delimiter string   `arg:"--delimiter" help:"CSV field separator (default: comma)"`
	Features  []string `arg:"-f,--features" help:"feature columns"`
	Label     string   `arg:"-l,--label" help:"label column"`
	Classes   []string `arg:"--classes" help:"class names in ordinal order"`
	Loss      string   `arg:"--loss" help:"regression, regression_l1, huber, fair or binary"`
	Budget    *float64 `arg:"-b,--budget" help:"training budget; learning rate is 10^-budget"`
	Plot      string   `arg:"--plot" help:"write a PNG of raw predictions to this path"`
	Model     string   `arg:"--save-model" help:"write the fitted model to this path"`
	Progress  bool     `arg:"--progress" help:"show a progress bar while training"`
	LogLevel  string   `arg:"--log-level" help:"debug, info, warn or error"`
	JSONLogs  bool     `arg:"--json-logs" help:"log as JSON instead of console text"`
}

func (args) Version() string {
	return "ordboost 0.1.0"
}

func (args) Description() string {
	return "Multiclass classification by ordinal regression with gradient boosted trees."
}

// apply overrides cfg with every flag that was set.
func (a args) apply(cfg *pipeline.Config) {
	if a.Data != "" {
		cfg.DataPath = a.Data
	}
	if a.Delimiter != "" {
		cfg.Delimiter = a.Delimiter
	}
	if len(a.Features) > 0 {
		cfg.Features = a.Features
	}
	if a.Label != "" {
		cfg.Label = a.Label
	}
	if len(a.Classes) > 0 {
		cfg.Classes = a.Classes
	}
	if a.Loss != "" {
		cfg.Loss = a.Loss
	}
	if a.Budget != nil {
		cfg.Budget = *a.Budget
	}
	if a.Plot != "" {
		cfg.PlotPath = a.Plot
	}
	if a.Model != "" {
		cfg.ModelPath = a.Model
	}
	if a.Progress {
		cfg.Progress = true
	}
	if a.LogLevel != "" {
		cfg.LogLevel = a.LogLevel
	}
	if a.JSONLogs {
		cfg.LogFormat = "json"
	}
}

func main() {
	var a args
	arg.MustParse(&a)

	if err := run(a); err != nil {
		log.GetLogger().Error("ordboost failed", err)
		os.Exit(1)
	}
}

func run(a args) error {
	cfg, err := pipeline.LoadConfig(a.Config)
	if err != nil {
		return err
	}
	a.apply(&cfg)

	if err := log.SetupLogger(cfg.LogLevel, cfg.LogFormat); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	_, err = pipeline.Run(ctx, cfg, os.Stdout)
	return err
}
