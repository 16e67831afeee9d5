// Package log defines standard attribute keys for pipeline runs.
//
// Keys follow a hierarchical naming convention ("model.name", "data.samples")
// so log analysis can filter by category.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the type of model, e.g. "GradientBoostingRegressor".
	ModelNameKey = "model.name"

	// RunIDKey identifies one pipeline run. Populated with a UUID.
	RunIDKey = "run.id"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "decode", "evaluate".
	OperationKey = "ml.operation"

	// ComponentKey identifies which component is logging.
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of the run.
	PhaseKey = "ml.phase"
)

// Data Shape and Characteristics
const (
	SamplesKey  = "data.samples"
	FeaturesKey = "data.features"
	ClassesKey  = "data.classes"
	PathKey     = "data.path"
)

// Performance Metrics
const (
	DurationMsKey = "perf.duration_ms"
	AccuracyKey   = "metrics.accuracy"
	LossKey       = "metrics.loss"
	RMSEKey       = "metrics.rmse"
	IterationKey  = "training.iteration"
)

// Prediction Context
const (
	PredsKey = "preds.count"
)

// Error Context
const (
	// ErrorKey holds the error value passed to Logger.Error.
	ErrorKey = "error"

	// StacktraceKey contains the stack trace recorded by cockroachdb/errors.
	StacktraceKey = "error.stacktrace"

	// ErrorTypeKey categorizes the error, e.g. "UnknownClassError".
	ErrorTypeKey = "error.type"
)

// Hyperparameters and Configuration
const (
	ObjectiveKey    = "hyperparams.objective"
	BudgetKey       = "hyperparams.budget"
	LearningRateKey = "hyperparams.learning_rate"
	NumIterationKey = "hyperparams.num_iterations"
)

// Standard attribute values.
const (
	OperationFit      = "fit"
	OperationPredict  = "predict"
	OperationDecode   = "decode"
	OperationEvaluate = "evaluate"

	PhasePreprocessing = "preprocessing"
	PhaseTraining      = "training"
	PhaseInference     = "inference"
	PhaseEvaluation    = "evaluation"
)
