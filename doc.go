// Package ordboost performs multiclass classification with a regression
// booster. Class names are mapped to ordinal codes 0..k-1, a gradient-boosted
// tree regressor is fitted on those codes, and every continuous prediction is
// decoded to the nearest code. Ties go to the smaller code.
//
// # Packages
//
//   - table: CSV ingestion and the wide-to-long reshape (gota)
//   - preprocessing: LabelCodec and the column-major FeatureMatrixBuilder
//   - sklearn/boosting: the gradient boosting regressor, budget driven
//   - pipeline: training orchestration, prediction decoding and full runs
//   - metrics: accuracy, confusion matrix and raw regression diagnostics
//   - report: console summary and prediction plot
//   - pkg/errors, pkg/log: typed errors and structured logging
//
// # Quick Start
//
// Run the Iris example from the command line:
//
//	go run ./cmd/ordboost --data resources/Iris.csv --budget 1.0
//
// or from Go:
//
//	cfg := pipeline.DefaultConfig()
//	cfg.DataPath = "data/iris.csv"
//	result, err := pipeline.Run(ctx, cfg, os.Stdout)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Evaluation.Accuracy)
//
// Output looks like:
//
//	Accuracy: 97.33%
//
//	Confusion Matrix:
//	Predicted →
//	Actual ↓  0    1    2
//	0        50   0    0
//	1        0    47   3
//	2        0    1    49
//
// # Budget
//
// The booster derives its learning rate as 10^-budget, floored at 1e-3, and
// allows ceil(10 / learning rate) trees. Training stops early once the
// training loss stops improving or falls below the plateau tolerance.
package ordboost
