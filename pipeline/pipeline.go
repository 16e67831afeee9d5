// Package pipeline runs ordinal-regression classification end to end: it
// shapes a labeled table into a feature matrix and ordinal targets, fits a
// regression booster once, decodes raw outputs to the nearest class and
// evaluates the result.
//
// A run is synchronous. Each stage consumes the whole output of the previous
// one, and the context is checked between stages and between boosting
// iterations.
package pipeline

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/YuminosukeSato/ordboost/metrics"
	"github.com/YuminosukeSato/ordboost/pkg/errors"
	"github.com/YuminosukeSato/ordboost/pkg/log"
	"github.com/YuminosukeSato/ordboost/preprocessing"
	"github.com/YuminosukeSato/ordboost/report"
	"github.com/YuminosukeSato/ordboost/table"
)

// Result holds the artifacts of one run.
type Result struct {
	RunID   string
	Rows    int
	Classes []string

	Actual     []int
	Raw        []float64
	Decoded    []int
	Evaluation *metrics.Evaluation
	// RawRMSE is the RMSE of raw predictions against ordinal targets.
	RawRMSE float64

	Booster Booster
}

// Pipeline wires the stages for one configuration.
type Pipeline struct {
	cfg      Config
	classes  *preprocessing.ClassMap
	factory  BoosterFactory
	progress io.Writer
	logger   log.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithBoosterFactory replaces the default gradient boosting factory.
func WithBoosterFactory(factory BoosterFactory) Option {
	return func(p *Pipeline) {
		p.factory = factory
	}
}

// WithProgress sets where the default factory draws its progress bar.
func WithProgress(w io.Writer) Option {
	return func(p *Pipeline) {
		p.progress = w
	}
}

// New validates cfg and returns a pipeline for it.
func New(cfg Config, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	classes, err := preprocessing.NewClassMap(cfg.Classes...)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		cfg:     cfg,
		classes: classes,
		logger:  log.GetLoggerWithName("pipeline"),
	}
	if cfg.Progress {
		p.progress = os.Stderr
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.factory == nil {
		p.factory = GradientBoostingFactory(p.progress)
	}
	return p, nil
}

// Run is New followed by Pipeline.Run.
func Run(ctx context.Context, cfg Config, out io.Writer, opts ...Option) (*Result, error) {
	p, err := New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return p.Run(ctx, out)
}

// Config returns the configuration the pipeline was built with.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// Run reads the configured CSV file and runs every stage on it.
func (p *Pipeline) Run(ctx context.Context, out io.Writer) (*Result, error) {
	if strings.TrimSpace(p.cfg.DataPath) == "" {
		return nil, errors.NewValidationError("data.path", "must not be empty; set data.path or pass --data", p.cfg.DataPath)
	}
	t, err := table.ReadCSV(p.cfg.DataPath, p.cfg.Columns(), p.cfg.ReadOptions()...)
	if err != nil {
		return nil, errors.NewCollaboratorError("table", err)
	}
	p.logger.Debug("Table loaded", log.PathKey, p.cfg.DataPath, log.SamplesKey, t.Nrow())
	return p.RunTable(ctx, t, out)
}

// RunTable runs every stage on an already loaded table. When out is non-nil
// the summary report is written to it; when PlotPath is set a PNG is saved.
func (p *Pipeline) RunTable(ctx context.Context, t *table.Table, out io.Writer) (*Result, error) {
	runID := uuid.New().String()
	logger := p.logger.With(log.RunIDKey, runID)
	start := time.Now()

	numClasses := p.classes.NumClasses()
	codec := preprocessing.NewLabelCodec(p.classes)
	builder := preprocessing.NewFeatureMatrixBuilder(p.cfg.Features...)

	logger.Info("Run started",
		log.PhaseKey, log.PhasePreprocessing,
		log.SamplesKey, t.Nrow(),
		log.FeaturesKey, len(p.cfg.Features),
		log.ClassesKey, numClasses,
	)

	X, err := builder.Build(t)
	if err != nil {
		return nil, err
	}
	y, err := codec.EncodeColumn(t, p.cfg.Label)
	if err != nil {
		return nil, err
	}
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	booster, err := NewOrchestrator(p.factory, p.cfg.Loss, p.cfg.Budget).Train(ctx, X, y.Float64s())
	if err != nil {
		logger.Error("Training failed", err)
		return nil, err
	}
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	raw, decoded, err := NewDecoder(numClasses).Predict(booster, X)
	if err != nil {
		logger.Error("Prediction failed", err)
		return nil, err
	}

	actual := []int(y)
	eval, err := metrics.Evaluate(decoded, actual, numClasses)
	if err != nil {
		return nil, err
	}
	rmse, err := metrics.RMSE(y.Float64s(), raw)
	if err != nil {
		return nil, err
	}

	result := &Result{
		RunID:      runID,
		Rows:       len(actual),
		Classes:    p.classes.Names(),
		Actual:     actual,
		Raw:        raw,
		Decoded:    decoded,
		Evaluation: eval,
		RawRMSE:    rmse,
		Booster:    booster,
	}

	logger.Info("Run finished",
		log.PhaseKey, log.PhaseEvaluation,
		log.AccuracyKey, eval.Accuracy,
		log.RMSEKey, rmse,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)

	if out != nil {
		if err := report.WriteSummary(out, report.Summary{
			Evaluation: eval,
			Classes:    result.Classes,
			RawRMSE:    rmse,
		}); err != nil {
			return nil, errors.Wrap(err, "write report")
		}
	}
	if p.cfg.PlotPath != "" {
		if err := report.PlotPredictions(p.cfg.PlotPath, raw, actual, result.Classes); err != nil {
			return nil, err
		}
		logger.Info("Prediction plot saved", log.PathKey, p.cfg.PlotPath)
	}
	if p.cfg.ModelPath != "" {
		if err := saveBooster(booster, p.cfg.ModelPath); err != nil {
			return nil, err
		}
		logger.Info("Model saved", log.PathKey, p.cfg.ModelPath)
	}
	return result, nil
}

func saveBooster(b Booster, path string) error {
	saver, ok := b.(ModelSaver)
	if !ok {
		return errors.NewValidationError("model.path", "booster cannot be saved", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if err := saver.SaveModel(f); err != nil {
		_ = f.Close()
		return err
	}
	return errors.Wrap(f.Close(), "close model file")
}

func checkContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.NewCollaboratorError("context", err)
	}
	return nil
}
