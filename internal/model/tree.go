package model

import (
	"math/rand"
	"sort"
)

// Node is one node of a regression tree. Leaves have Feature == -1.
type Node struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t,omitempty"`
	Left      int     `json:"l,omitempty"`
	Right     int     `json:"r,omitempty"`
	Value     float64 `json:"v"`
	Samples   int     `json:"n"`
	Impurity  float64 `json:"mse"`
}

// IsLeaf reports whether the node has no children.
func (n Node) IsLeaf() bool { return n.Feature < 0 }

// Tree is a CART regression tree stored as a flat node list; Nodes[0] is the root.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Predict walks the tree: x[f] <= threshold goes left.
func (t *Tree) Predict(x []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.IsLeaf() {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// Depth returns the number of edges on the longest root-to-leaf path.
func (t *Tree) Depth() int {
	var walk func(i int) int
	walk = func(i int) int {
		n := t.Nodes[i]
		if n.IsLeaf() {
			return 0
		}
		return 1 + max(walk(n.Left), walk(n.Right))
	}
	if len(t.Nodes) == 0 {
		return 0
	}
	return walk(0)
}

type treeBuilder struct {
	X           [][]float64
	target      []float64
	leafValue   func(idx []int) float64
	maxDepth    int
	maxFeatures int
	rng         *rand.Rand
	gains       []float64
	tree        *Tree
}

// build grows the tree on idx, splitting to minimize squared error of target.
func (b *treeBuilder) build(idx []int) *Tree {
	b.tree = &Tree{}
	b.grow(idx, 0)
	return b.tree
}

func (b *treeBuilder) grow(idx []int, depth int) int {
	sum, sq := 0.0, 0.0
	for _, i := range idx {
		sum += b.target[i]
		sq += b.target[i] * b.target[i]
	}
	n := float64(len(idx))
	sse := sq - sum*sum/n
	if sse < 0 {
		sse = 0
	}
	pos := len(b.tree.Nodes)
	b.tree.Nodes = append(b.tree.Nodes, Node{Feature: -1, Samples: len(idx), Impurity: sse / n})

	if depth >= b.maxDepth || len(idx) < 2 || sse <= 1e-12 {
		b.tree.Nodes[pos].Value = b.leafValue(idx)
		return pos
	}

	feat, thr, gain, ok := b.bestSplit(idx, sse)
	if !ok {
		b.tree.Nodes[pos].Value = b.leafValue(idx)
		return pos
	}
	var left, right []int
	for _, i := range idx {
		if b.X[i][feat] <= thr {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	b.gains[feat] += gain
	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	node := &b.tree.Nodes[pos]
	node.Feature, node.Threshold, node.Left, node.Right = feat, thr, l, r
	node.Value = b.leafValue(idx)
	return pos
}

func (b *treeBuilder) bestSplit(idx []int, parentSSE float64) (feat int, thr, gain float64, ok bool) {
	nf := len(b.X[0])
	cands := make([]int, nf)
	for i := range cands {
		cands[i] = i
	}
	if b.maxFeatures > 0 && b.maxFeatures < nf {
		perm := b.rng.Perm(nf)
		cands = perm[:b.maxFeatures]
	}

	order := make([]int, len(idx))
	for _, f := range cands {
		copy(order, idx)
		sort.SliceStable(order, func(a, c int) bool { return b.X[order[a]][f] < b.X[order[c]][f] })

		var totSum, totSq float64
		for _, i := range order {
			totSum += b.target[i]
			totSq += b.target[i] * b.target[i]
		}
		var lSum, lSq float64
		n := len(order)
		for k := 0; k < n-1; k++ {
			v := b.target[order[k]]
			lSum += v
			lSq += v * v
			x0, x1 := b.X[order[k]][f], b.X[order[k+1]][f]
			if x0 == x1 {
				continue
			}
			nl, nr := float64(k+1), float64(n-k-1)
			rSum, rSq := totSum-lSum, totSq-lSq
			sse := (lSq - lSum*lSum/nl) + (rSq - rSum*rSum/nr)
			g := parentSSE - sse
			if g > gain+1e-12 {
				feat, thr, gain, ok = f, x0+(x1-x0)/2, g, true
			}
		}
	}
	return feat, thr, gain, ok
}
