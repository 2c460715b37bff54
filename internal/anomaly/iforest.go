package anomaly

import (
	"errors"
	"math"
	"math/rand"
)

// eulerGamma is used by the average path length normalisation c(n)
const eulerGamma = 0.5772156649

// IsolationForest is a small isolation forest over dense float feature vectors.
// Training is deterministic for a given seed.
type IsolationForest struct {
	trees       []*iNode
	numTrees    int
	sampleSize  int
	heightLimit int
	dims        int
	rng         *rand.Rand
}

// iNode keeps the bounding box of the samples that reached it so that a query
// falling outside the box is treated as isolated at that node.
type iNode struct {
	leaf     bool
	size     int
	dim      int
	splitVal float64
	min      []float64
	max      []float64
	left     *iNode
	right    *iNode
}

// NewIsolationForest creates an untrained forest.
// sampleSize is capped to the training set size at Fit time.
func NewIsolationForest(numTrees, sampleSize int, seed int64) *IsolationForest {
	if numTrees <= 0 {
		numTrees = 100
	}
	if sampleSize <= 0 {
		sampleSize = 256
	}
	return &IsolationForest{
		numTrees:   numTrees,
		sampleSize: sampleSize,
		rng:        rand.New(rand.NewSource(seed)),
	}
}

// Fit builds the trees from X. All rows must have the same length.
func (f *IsolationForest) Fit(X [][]float64) error {
	if len(X) == 0 {
		return errors.New("isolation forest: empty training set")
	}
	dims := len(X[0])
	if dims == 0 {
		return errors.New("isolation forest: zero-length feature vector")
	}
	for _, row := range X {
		if len(row) != dims {
			return errors.New("isolation forest: ragged training set")
		}
	}

	m := f.sampleSize
	if m > len(X) {
		m = len(X)
	}
	f.sampleSize = m
	f.dims = dims
	f.heightLimit = int(math.Ceil(math.Log2(float64(m))))
	if f.heightLimit < 1 {
		f.heightLimit = 1
	}

	f.trees = make([]*iNode, f.numTrees)
	for i := 0; i < f.numTrees; i++ {
		idxs := f.rng.Perm(len(X))
		sample := make([][]float64, m)
		for j := 0; j < m; j++ {
			sample[j] = X[idxs[j]]
		}
		f.trees[i] = f.build(sample, 0)
	}
	return nil
}

// Trained reports whether Fit has completed
func (f *IsolationForest) Trained() bool {
	return len(f.trees) > 0
}

func (f *IsolationForest) build(X [][]float64, h int) *iNode {
	node := &iNode{size: len(X), min: make([]float64, f.dims), max: make([]float64, f.dims)}
	copy(node.min, X[0])
	copy(node.max, X[0])
	for _, row := range X[1:] {
		for d, v := range row {
			if v < node.min[d] {
				node.min[d] = v
			}
			if v > node.max[d] {
				node.max[d] = v
			}
		}
	}

	if len(X) <= 1 || h >= f.heightLimit {
		node.leaf = true
		return node
	}

	// Only dimensions with spread can be split
	splittable := make([]int, 0, f.dims)
	for d := 0; d < f.dims; d++ {
		if node.max[d] > node.min[d] {
			splittable = append(splittable, d)
		}
	}
	if len(splittable) == 0 {
		node.leaf = true
		return node
	}

	dim := splittable[f.rng.Intn(len(splittable))]
	split := node.min[dim] + f.rng.Float64()*(node.max[dim]-node.min[dim])

	left := make([][]float64, 0, len(X))
	right := make([][]float64, 0, len(X))
	for _, row := range X {
		if row[dim] < split {
			left = append(left, row)
		} else {
			right = append(right, row)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		node.leaf = true
		return node
	}

	node.dim = dim
	node.splitVal = split
	node.left = f.build(left, h+1)
	node.right = f.build(right, h+1)
	return node
}

// cFactor is the average path length of an unsuccessful BST search over n items
func cFactor(n int) float64 {
	if n <= 1 {
		return 0
	}
	return 2.0*(math.Log(float64(n-1))+eulerGamma) - 2.0*float64(n-1)/float64(n)
}

func (n *iNode) contains(x []float64) bool {
	for d, v := range x {
		if v < n.min[d] || v > n.max[d] {
			return false
		}
	}
	return true
}

func pathLength(node *iNode, x []float64, h int) float64 {
	if !node.contains(x) {
		return float64(h) + 1
	}
	if node.leaf {
		return float64(h) + cFactor(node.size)
	}
	if x[node.dim] < node.splitVal {
		return pathLength(node.left, x, h+1)
	}
	return pathLength(node.right, x, h+1)
}

// Score returns the anomaly score in (0,1]; higher means more anomalous.
// An untrained forest scores everything 0.
func (f *IsolationForest) Score(x []float64) float64 {
	if !f.Trained() || len(x) != f.dims {
		return 0
	}
	sum := 0.0
	for _, t := range f.trees {
		sum += pathLength(t, x, 0)
	}
	eh := sum / float64(len(f.trees))
	c := cFactor(f.sampleSize)
	if c <= 0 {
		c = 1
	}
	return math.Pow(2, -eh/c)
}
