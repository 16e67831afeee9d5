package boosting

import "math"

// Node is one node of a regression tree. Children are indices into
// Tree.Nodes; a leaf has both set to -1.
type Node struct {
	NodeID     int
	ParentID   int // -1 for the root
	LeftChild  int
	RightChild int

	// Split information (internal nodes)
	SplitFeature int
	Threshold    float64 // rows with value <= Threshold go left
	DefaultLeft  bool    // direction for NaN feature values
	Gain         float64

	// Leaf information
	LeafValue float64
	Count     int
	Depth     int
}

// IsLeaf returns true if the node is a leaf node
func (n *Node) IsLeaf() bool {
	return n.LeftChild == -1 && n.RightChild == -1
}

// Tree is a single regression tree. Its output is already scaled by
// ShrinkageRate.
type Tree struct {
	TreeIndex     int
	NumLeaves     int
	ShrinkageRate float64
	Nodes         []Node
}

// Predict returns the shrunk leaf value reached by features.
func (t *Tree) Predict(features []float64) float64 {
	return t.Nodes[t.leafIndex(features)].LeafValue * t.ShrinkageRate
}

func (t *Tree) leafIndex(features []float64) int {
	id := 0
	for {
		node := &t.Nodes[id]
		if node.IsLeaf() {
			return id
		}
		v := features[node.SplitFeature]
		switch {
		case math.IsNaN(v):
			if node.DefaultLeft {
				id = node.LeftChild
			} else {
				id = node.RightChild
			}
		case v <= node.Threshold:
			id = node.LeftChild
		default:
			id = node.RightChild
		}
	}
}

// Depth returns the depth of the deepest leaf (a single leaf has depth 0).
func (t *Tree) Depth() int {
	d := 0
	for i := range t.Nodes {
		if t.Nodes[i].IsLeaf() && t.Nodes[i].Depth > d {
			d = t.Nodes[i].Depth
		}
	}
	return d
}

// Ensemble is a fitted additive model: InitScore plus the sum of tree outputs.
type Ensemble struct {
	Objective    string
	InitScore    float64
	LearningRate float64
	NumFeatures  int
	Trees        []Tree
}

// PredictRaw returns the raw score for one row.
func (e *Ensemble) PredictRaw(features []float64) float64 {
	score := e.InitScore
	for i := range e.Trees {
		score += e.Trees[i].Predict(features)
	}
	return score
}

// FeatureImportance sums per-feature split counts ("split") or split gains
// ("gain") over all trees, normalized to sum to 1 when non-zero.
func (e *Ensemble) FeatureImportance(importanceType string) []float64 {
	importance := make([]float64, e.NumFeatures)
	for _, tree := range e.Trees {
		for _, node := range tree.Nodes {
			if node.IsLeaf() {
				continue
			}
			switch importanceType {
			case "gain":
				importance[node.SplitFeature] += node.Gain
			default:
				importance[node.SplitFeature]++
			}
		}
	}

	total := 0.0
	for _, v := range importance {
		total += v
	}
	if total > 0 {
		for i := range importance {
			importance[i] /= total
		}
	}
	return importance
}
