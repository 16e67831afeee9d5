// Package boosting provides a pure Go gradient-boosted regression tree
// learner used as the pipeline's booster.
//
// Trees are grown leaf-wise with exact greedy splits over presorted feature
// values. Missing values (NaN) are kept in the data and always routed to the
// right child. The training loop caches raw scores, so each round costs one
// pass over the rows per split candidate rather than a replay of the ensemble.
//
// # Budget
//
// A Regressor is built from a loss name and a budget:
//
//	reg, err := boosting.New("regression", 1.0)
//	if err != nil {
//	    return err
//	}
//	if err := reg.Fit(X, y); err != nil {
//	    return err
//	}
//	scores, err := reg.Predict(X, true)
//
// The budget b sets learning_rate = max(10^(-b), MinLearningRate) and an
// iteration limit of ceil(10/learning_rate), so budgets above 3 all train at
// MaxIterations. Training stops early when the training loss drops to
// PlateauTolerance or its relative improvement stays below PlateauTolerance
// for PlateauRounds rounds. Reaching the limit first emits a
// ConvergenceWarning through pkg/errors.Warn.
//
// # Objectives
//
//	regression     squared error (aliases l2, mse, squared)
//	regression_l1  absolute error (aliases l1, mae)
//	huber          Huber loss, WithHuberDelta
//	fair           Fair loss, WithFairC
//	binary         logistic loss on {0, 1}; Predict(X, false) returns probabilities
//
// # Callbacks
//
// Callbacks run before and after every iteration and once at the end:
// EarlyStopping, RecordEvaluation, LogEvaluation, TimeLimit, WithContext and
// ProgressBar (github.com/cheggaaa/pb/v3).
package boosting
