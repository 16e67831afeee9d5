package boosting

import (
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/cheggaaa/pb/v3"

	"github.com/YuminosukeSato/ordboost/pkg/log"
)

// Stage tells a callback where in the loop it is being called.
type Stage int

const (
	// StageBeforeIteration runs before the gradients of a round are computed.
	StageBeforeIteration Stage = iota
	// StageAfterIteration runs after the round's tree has been added.
	StageAfterIteration
	// StageTrainingEnd runs once when the loop exits, stopped or not.
	StageTrainingEnd
)

// TrainingLossKey is the EvalResults key for the mean training loss.
const TrainingLossKey = "training_loss"

// CallbackEnv contains the environment for callbacks
type CallbackEnv struct {
	Stage         Stage
	Iteration     int
	NumIterations int
	Model         *Ensemble
	BeginTime     time.Time
	EndTime       time.Time
	EvalResults   map[string]float64

	// Set by a callback to end training after the current stage.
	StopTraining bool
	StopReason   string
}

// Callback is a function that can be called during training. A returned
// error aborts Fit.
type Callback func(env *CallbackEnv) error

// CallbackList manages multiple callbacks
type CallbackList struct {
	callbacks []Callback
	env       *CallbackEnv
}

// NewCallbackList creates a new callback list
func NewCallbackList(numIterations int, callbacks ...Callback) *CallbackList {
	return &CallbackList{
		callbacks: callbacks,
		env: &CallbackEnv{
			NumIterations: numIterations,
			EvalResults:   make(map[string]float64),
		},
	}
}

// BeforeIteration calls callbacks before each iteration
func (cl *CallbackList) BeforeIteration(iteration int, model *Ensemble) error {
	cl.env.Stage = StageBeforeIteration
	cl.env.Iteration = iteration
	cl.env.Model = model
	cl.env.BeginTime = time.Now()
	for _, cb := range cl.callbacks {
		if err := cb(cl.env); err != nil {
			return err
		}
		if cl.env.StopTraining {
			break
		}
	}
	return nil
}

// AfterIteration calls callbacks after each iteration
func (cl *CallbackList) AfterIteration(iteration int, model *Ensemble, evalResults map[string]float64) error {
	cl.env.Stage = StageAfterIteration
	cl.env.Iteration = iteration
	cl.env.Model = model
	cl.env.EndTime = time.Now()
	cl.env.EvalResults = evalResults
	for _, cb := range cl.callbacks {
		if err := cb(cl.env); err != nil {
			return err
		}
	}
	return nil
}

// TrainingEnd calls every callback once after the loop.
func (cl *CallbackList) TrainingEnd(model *Ensemble) error {
	cl.env.Stage = StageTrainingEnd
	cl.env.Model = model
	for _, cb := range cl.callbacks {
		if err := cb(cl.env); err != nil {
			return err
		}
	}
	return nil
}

// ShouldStop returns whether training should stop
func (cl *CallbackList) ShouldStop() bool {
	return cl.env.StopTraining
}

// StopReason returns the reason given by the callback that stopped training.
func (cl *CallbackList) StopReason() string {
	return cl.env.StopReason
}

// LogEvaluation logs the evaluation results every period rounds at debug level.
func LogEvaluation(logger log.Logger, period int) Callback {
	if period <= 0 {
		period = 1
	}
	return func(env *CallbackEnv) error {
		if env.Stage != StageAfterIteration || env.Iteration%period != 0 {
			return nil
		}
		logger.Debug("Training progress",
			log.IterationKey, env.Iteration,
			log.LossKey, env.EvalResults[TrainingLossKey],
		)
		return nil
	}
}

// RecordEvaluation records evaluation history
func RecordEvaluation(history *map[string][]float64) Callback {
	return func(env *CallbackEnv) error {
		if env.Stage != StageAfterIteration {
			return nil
		}
		if *history == nil {
			*history = make(map[string][]float64)
		}
		for name, value := range env.EvalResults {
			(*history)[name] = append((*history)[name], value)
		}
		return nil
	}
}

// EarlyStopping stops training once the relative improvement of the training
// loss has stayed below tolerance for rounds consecutive iterations, or as
// soon as the loss itself is at most tolerance.
func EarlyStopping(rounds int, tolerance float64) Callback {
	prev := math.NaN()
	stalled := 0

	return func(env *CallbackEnv) error {
		if env.Stage != StageAfterIteration {
			return nil
		}
		loss, ok := env.EvalResults[TrainingLossKey]
		if !ok {
			return nil
		}
		if !math.IsNaN(prev) {
			improvement := 0.0
			if prev > 0 {
				improvement = (prev - loss) / prev
			}
			if improvement < tolerance {
				stalled++
			} else {
				stalled = 0
			}
		}
		prev = loss

		if loss <= tolerance {
			env.StopTraining = true
			env.StopReason = fmt.Sprintf("training loss %g converged below %g", loss, tolerance)
			return nil
		}
		if stalled >= rounds {
			env.StopTraining = true
			env.StopReason = fmt.Sprintf("training loss plateaued for %d rounds", rounds)
		}
		return nil
	}
}

// TimeLimit stops training after a specified duration
func TimeLimit(maxDuration time.Duration) Callback {
	var start time.Time
	return func(env *CallbackEnv) error {
		if start.IsZero() {
			start = time.Now()
		}
		if env.Stage == StageAfterIteration && time.Since(start) > maxDuration {
			env.StopTraining = true
			env.StopReason = fmt.Sprintf("time limit %s reached", maxDuration)
		}
		return nil
	}
}

// WithContext aborts training with ctx.Err() once ctx is done.
func WithContext(ctx context.Context) Callback {
	return func(env *CallbackEnv) error {
		if env.Stage != StageBeforeIteration {
			return nil
		}
		return ctx.Err()
	}
}

// ProgressBar renders training progress to w. The bar is sized to the
// iteration limit and finished early when training stops before it.
func ProgressBar(w io.Writer) Callback {
	var bar *pb.ProgressBar
	return func(env *CallbackEnv) error {
		switch env.Stage {
		case StageBeforeIteration:
			if bar == nil {
				bar = pb.New(env.NumIterations)
				bar.SetWriter(w)
				bar.Set("prefix", "boosting ")
				bar.Start()
			}
		case StageAfterIteration:
			if bar != nil {
				bar.Increment()
			}
		case StageTrainingEnd:
			if bar != nil {
				bar.Finish()
				bar = nil
			}
		}
		return nil
	}
}
