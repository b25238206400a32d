package mcts

import (
	"github.com/pbnjay/memory"
)

// approxNodeBytes is a rough per-node footprint: the node itself plus its
// edge in the parent's child list.
const approxNodeBytes = 64

// minMaxNodes is the node budget used when system memory cannot be read.
const minMaxNodes = 1 << 20

// Params tunes a search tree.
type Params struct {
	// CPuct weights the prior term under PUCT selection.
	CPuct float64
	// MaxNodes caps the tree size. Once reached, leaves are no longer
	// expanded and playouts fall back to rollouts from the leaf.
	MaxNodes int64
}

// DefaultParams allows the tree to grow into a quarter of system memory.
func DefaultParams() Params {
	return Params{
		CPuct:    1.5,
		MaxNodes: DefaultMaxNodes(0.25),
	}
}

// DefaultMaxNodes converts a fraction of total system memory into a node
// budget.
func DefaultMaxNodes(fractionOfMemory float64) int64 {
	total := memory.TotalMemory()
	n := int64(fractionOfMemory * float64(total) / approxNodeBytes)
	if n < minMaxNodes {
		return minMaxNodes
	}
	return n
}
