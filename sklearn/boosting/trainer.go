package boosting

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/ordboost/pkg/errors"
	"github.com/YuminosukeSato/ordboost/pkg/log"
)

const hessianEpsilon = 1e-10

// columnar is implemented by matrices that store each feature contiguously.
type columnar interface {
	Column(j int) []float64
}

// Trainer grows an additive ensemble of regression trees by exact greedy
// leaf-wise splitting on per-feature presorted row orders.
type Trainer struct {
	params    TrainingParams
	objective Objective
	logger    log.Logger

	// Data, one slice per feature
	cols [][]float64
	y    []float64
	rows int

	// order[j] holds row indices sorted by feature j ascending, NaN rows last;
	// the first numeric[j] entries are the non-NaN rows.
	order   [][]int
	numeric []int

	// Gradient and Hessian
	gradients []float64
	hessians  []float64

	// Cached raw scores of the training rows and each row's leaf in the tree
	// being built.
	scores []float64
	leafOf []int

	model     *Ensemble
	callbacks []Callback

	stopReason   string
	limitReached bool
}

// SplitInfo contains information about a potential split
type SplitInfo struct {
	Feature    int
	Threshold  float64
	Gain       float64
	LeftCount  int
	RightCount int
}

func (s SplitInfo) valid() bool {
	return s.Feature >= 0
}

// NewTrainer creates a trainer. Zero-valued fields of params fall back to
// DefaultParams.
func NewTrainer(params TrainingParams) *Trainer {
	def := DefaultParams()
	if params.NumIterations == 0 {
		params.NumIterations = def.NumIterations
	}
	if params.LearningRate == 0 {
		params.LearningRate = def.LearningRate
	}
	if params.NumLeaves == 0 {
		params.NumLeaves = def.NumLeaves
	}
	if params.MaxDepth == 0 {
		params.MaxDepth = def.MaxDepth
	}
	if params.MinDataInLeaf == 0 {
		params.MinDataInLeaf = def.MinDataInLeaf
	}
	if params.Objective == "" {
		params.Objective = def.Objective
	}

	return &Trainer{
		params: params,
		logger: log.GetLoggerWithName("boosting.trainer"),
	}
}

// WithCallbacks sets the callbacks for training
func (t *Trainer) WithCallbacks(callbacks ...Callback) *Trainer {
	t.callbacks = callbacks
	return t
}

// Params returns the effective training parameters.
func (t *Trainer) Params() TrainingParams {
	return t.params
}

// Fit trains the ensemble on X and y. NaN features are allowed; NaN or
// infinite targets are not.
func (t *Trainer) Fit(X mat.Matrix, y []float64) error {
	if err := t.params.Validate(); err != nil {
		return err
	}
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return errors.NewEmptyInputError("Fit")
	}
	if len(y) != rows {
		return errors.NewDimensionError("Fit", rows, len(y), 0)
	}
	if err := errors.CheckNumericalStability("Fit targets", y, 0); err != nil {
		return err
	}

	objective, err := NewObjective(t.params.Objective, t.params)
	if err != nil {
		return err
	}
	if objective.Name() == ObjectiveBinary {
		for i, v := range y {
			if v != 0 && v != 1 {
				return errors.NewValidationError("y", "binary objective needs targets in {0, 1}", map[string]float64{"row": float64(i), "value": v})
			}
		}
	}
	t.objective = objective

	t.initialize(X, y)

	list := NewCallbackList(t.params.NumIterations, t.allCallbacks()...)
	defer func() {
		_ = list.TrainingEnd(t.model)
	}()

	stopped := false
	for iter := 0; iter < t.params.NumIterations; iter++ {
		if err := list.BeforeIteration(iter, t.model); err != nil {
			return errors.Wrapf(err, "callback error at iteration %d", iter)
		}
		if list.ShouldStop() {
			stopped = true
			break
		}

		t.calculateGradients()
		if err := errors.CheckNumericalStability("gradients", t.gradients, iter); err != nil {
			return err
		}

		tree := t.buildTree(iter)
		t.model.Trees = append(t.model.Trees, tree)
		t.updateScores(&tree)

		loss := t.calculateLoss()
		if err := errors.CheckScalar("training loss", loss, iter); err != nil {
			return err
		}

		evalResults := map[string]float64{TrainingLossKey: loss}
		if err := list.AfterIteration(iter, t.model, evalResults); err != nil {
			return errors.Wrapf(err, "callback error at iteration %d", iter)
		}
		if list.ShouldStop() {
			stopped = true
			break
		}
	}

	t.stopReason = list.StopReason()
	t.limitReached = !stopped
	if stopped {
		t.logger.Debug("Training stopped by callback",
			log.IterationKey, len(t.model.Trees),
			"reason", t.stopReason,
		)
	}
	return nil
}

func (t *Trainer) allCallbacks() []Callback {
	cbs := make([]Callback, 0, len(t.callbacks)+1)
	if t.params.PlateauRounds > 0 {
		cbs = append(cbs, EarlyStopping(t.params.PlateauRounds, t.params.PlateauTolerance))
	}
	return append(cbs, t.callbacks...)
}

// initialize copies the data into per-feature slices, presorts every feature
// and seeds the cached scores with the objective's init score.
func (t *Trainer) initialize(X mat.Matrix, y []float64) {
	rows, cols := X.Dims()
	t.rows = rows
	t.y = y

	t.cols = make([][]float64, cols)
	if c, ok := X.(columnar); ok {
		for j := 0; j < cols; j++ {
			t.cols[j] = c.Column(j)
		}
	} else {
		for j := 0; j < cols; j++ {
			t.cols[j] = mat.Col(nil, j, X)
		}
	}

	t.order = make([][]int, cols)
	t.numeric = make([]int, cols)
	for j := 0; j < cols; j++ {
		values := t.cols[j]
		idx := make([]int, rows)
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(a, b int) bool {
			va, vb := values[idx[a]], values[idx[b]]
			if math.IsNaN(va) {
				return false
			}
			if math.IsNaN(vb) {
				return true
			}
			return va < vb
		})
		n := rows
		for n > 0 && math.IsNaN(values[idx[n-1]]) {
			n--
		}
		t.order[j] = idx
		t.numeric[j] = n
	}

	t.gradients = make([]float64, rows)
	t.hessians = make([]float64, rows)
	t.leafOf = make([]int, rows)

	init := t.objective.InitScore(y)
	t.scores = make([]float64, rows)
	for i := range t.scores {
		t.scores[i] = init
	}

	t.model = &Ensemble{
		Objective:    t.objective.Name(),
		InitScore:    init,
		LearningRate: t.params.LearningRate,
		NumFeatures:  cols,
	}
	t.stopReason = ""
	t.limitReached = false
}

// calculateGradients computes gradients and hessians for current predictions
func (t *Trainer) calculateGradients() {
	for i := 0; i < t.rows; i++ {
		t.gradients[i] = t.objective.Gradient(t.scores[i], t.y[i])
		t.hessians[i] = t.objective.Hessian(t.scores[i], t.y[i])
	}
}

type leafStats struct {
	grad  float64
	hess  float64
	count int
}

type splitCandidate struct {
	node  int
	split SplitInfo
}

// buildTree grows one tree leaf-wise: the pending leaf with the largest gain
// is split until NumLeaves is reached or no split clears MinGainToSplit.
func (t *Trainer) buildTree(iter int) Tree {
	tree := Tree{
		TreeIndex:     iter,
		ShrinkageRate: t.params.LearningRate,
		Nodes: []Node{{
			NodeID:     0,
			ParentID:   -1,
			LeftChild:  -1,
			RightChild: -1,
			Count:      t.rows,
		}},
	}
	for i := range t.leafOf {
		t.leafOf[i] = 0
	}

	var pending []splitCandidate
	if split := t.findBestSplit(0); split.valid() {
		pending = append(pending, splitCandidate{node: 0, split: split})
	}

	leaves := 1
	for leaves < t.params.NumLeaves && len(pending) > 0 {
		best := 0
		for k := 1; k < len(pending); k++ {
			if pending[k].split.Gain > pending[best].split.Gain {
				best = k
			}
		}
		c := pending[best]
		pending = append(pending[:best], pending[best+1:]...)

		left, right := t.applySplit(&tree, c.node, c.split)
		leaves++

		depth := tree.Nodes[left].Depth
		if t.params.MaxDepth > 0 && depth >= t.params.MaxDepth {
			continue
		}
		for _, child := range [2]int{left, right} {
			if split := t.findBestSplit(child); split.valid() {
				pending = append(pending, splitCandidate{node: child, split: split})
			}
		}
	}

	stats := make([]leafStats, len(tree.Nodes))
	for i, leaf := range t.leafOf {
		stats[leaf].grad += t.gradients[i]
		stats[leaf].hess += t.hessians[i]
		stats[leaf].count++
	}
	for id := range tree.Nodes {
		node := &tree.Nodes[id]
		if node.IsLeaf() {
			node.LeafValue = t.calculateLeafValue(stats[id])
		}
	}
	tree.NumLeaves = leaves
	return tree
}

// applySplit turns leaf id into an internal node with two new leaf children
// and moves its rows. NaN rows always go right.
func (t *Trainer) applySplit(tree *Tree, id int, split SplitInfo) (left, right int) {
	left = len(tree.Nodes)
	right = left + 1
	depth := tree.Nodes[id].Depth + 1

	tree.Nodes = append(tree.Nodes,
		Node{NodeID: left, ParentID: id, LeftChild: -1, RightChild: -1, Depth: depth, Count: split.LeftCount},
		Node{NodeID: right, ParentID: id, LeftChild: -1, RightChild: -1, Depth: depth, Count: split.RightCount},
	)
	node := &tree.Nodes[id]
	node.LeftChild = left
	node.RightChild = right
	node.SplitFeature = split.Feature
	node.Threshold = split.Threshold
	node.DefaultLeft = false
	node.Gain = split.Gain

	values := t.cols[split.Feature]
	for i, leaf := range t.leafOf {
		if leaf != id {
			continue
		}
		v := values[i]
		if !math.IsNaN(v) && v <= split.Threshold {
			t.leafOf[i] = left
		} else {
			t.leafOf[i] = right
		}
	}
	return left, right
}

// findBestSplit finds the best split over all features for the rows of leaf
// node. Features are scanned in index order and only a strictly larger gain
// replaces the incumbent, so ties go to the lower feature index.
func (t *Trainer) findBestSplit(node int) SplitInfo {
	var total leafStats
	for i, leaf := range t.leafOf {
		if leaf == node {
			total.grad += t.gradients[i]
			total.hess += t.hessians[i]
			total.count++
		}
	}

	best := SplitInfo{Feature: -1, Gain: t.params.MinGainToSplit}
	if total.count < 2*t.params.MinDataInLeaf {
		return best
	}
	for j := range t.cols {
		t.findBestSplitForFeature(node, j, total, &best)
	}
	return best
}

// findBestSplitForFeature scans feature j in sorted order, trying a threshold
// between every pair of distinct adjacent values and, when the leaf holds NaN
// rows, the split that sends exactly the NaN rows right.
func (t *Trainer) findBestSplitForFeature(node, j int, total leafStats, best *SplitInfo) {
	values := t.cols[j]
	var left leafStats
	prev := 0.0
	seen := false

	consider := func(threshold float64) {
		rightCount := total.count - left.count
		if left.count < t.params.MinDataInLeaf || rightCount < t.params.MinDataInLeaf {
			return
		}
		gain := t.calculateSplitGain(left.grad, left.hess, total.grad-left.grad, total.hess-left.hess, total.grad, total.hess)
		if gain > best.Gain {
			*best = SplitInfo{
				Feature:    j,
				Threshold:  threshold,
				Gain:       gain,
				LeftCount:  left.count,
				RightCount: rightCount,
			}
		}
	}

	for _, i := range t.order[j][:t.numeric[j]] {
		if t.leafOf[i] != node {
			continue
		}
		v := values[i]
		if seen && v != prev {
			threshold := prev + (v-prev)/2
			if threshold >= v {
				threshold = prev
			}
			consider(threshold)
		}
		left.grad += t.gradients[i]
		left.hess += t.hessians[i]
		left.count++
		prev = v
		seen = true
	}
	if seen && left.count < total.count {
		consider(prev)
	}
}

// calculateSplitGain calculates the gain from a split
func (t *Trainer) calculateSplitGain(leftGrad, leftHess, rightGrad, rightHess, totalGrad, totalHess float64) float64 {
	lambda := t.params.Lambda + hessianEpsilon

	leftScore := (leftGrad * leftGrad) / (leftHess + lambda)
	rightScore := (rightGrad * rightGrad) / (rightHess + lambda)
	totalScore := (totalGrad * totalGrad) / (totalHess + lambda)

	return 0.5 * (leftScore + rightScore - totalScore)
}

// calculateLeafValue is the Newton step -G/(H+lambda).
func (t *Trainer) calculateLeafValue(s leafStats) float64 {
	if s.count == 0 {
		return 0
	}
	return -s.grad / (s.hess + t.params.Lambda + hessianEpsilon)
}

// updateScores adds the new tree's output to the cached training scores
// using the leaf assignment left behind by buildTree.
func (t *Trainer) updateScores(tree *Tree) {
	for i, leaf := range t.leafOf {
		t.scores[i] += tree.Nodes[leaf].LeafValue * tree.ShrinkageRate
	}
}

// calculateLoss returns the mean training loss
func (t *Trainer) calculateLoss() float64 {
	loss := 0.0
	for i := 0; i < t.rows; i++ {
		loss += t.objective.Loss(t.scores[i], t.y[i])
	}
	return loss / float64(t.rows)
}

// Model returns the trained ensemble, or nil before Fit.
func (t *Trainer) Model() *Ensemble {
	return t.model
}

// LimitReached reports whether the last Fit ran every allowed iteration
// without a callback stopping it.
func (t *Trainer) LimitReached() bool {
	return t.limitReached
}

// StopReason returns why the last Fit stopped early, or "".
func (t *Trainer) StopReason() string {
	return t.stopReason
}
