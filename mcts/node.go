package mcts

import (
	"math"
	"sync/atomic"

	"github.com/domino14/htmf/game"
)

// Node statistics live in one 64-bit word: the visit count in the high 32
// bits and the float32 reward sum in the low 32 bits. Every update is a CAS
// loop, so a reader never sees a visit without its matching reward word.
func pack(visits uint32, reward float32) uint64 {
	return uint64(visits)<<32 | uint64(math.Float32bits(reward))
}

func unpack(v uint64) (uint32, float32) {
	return uint32(v >> 32), math.Float32frombits(uint32(v))
}

// Edge is one labelled child.
type Edge struct {
	Move game.Move
	Node *Node
}

// Node is a position in the search tree. Rewards are stored from the point
// of view of the player who made the move leading into the node.
type Node struct {
	stats    atomic.Uint64
	prior    float32
	children atomic.Pointer[[]Edge]
}

func newNode(prior float32) *Node {
	return &Node{prior: prior}
}

// Stats returns a consistent (visits, reward sum) pair.
func (n *Node) Stats() (visits uint32, rewards float32) {
	return unpack(n.stats.Load())
}

func (n *Node) Visits() uint32 {
	v, _ := n.Stats()
	return v
}

func (n *Node) Prior() float32 {
	return n.prior
}

// Children returns the expanded child list, or nil for a leaf.
func (n *Node) Children() []Edge {
	c := n.children.Load()
	if c == nil {
		return nil
	}
	return *c
}

func (n *Node) update(dVisits uint32, dReward float32) {
	for {
		old := n.stats.Load()
		v, r := unpack(old)
		if n.stats.CompareAndSwap(old, pack(v+dVisits, r+dReward)) {
			return
		}
	}
}

// addVisit is the optimistic bump applied on the way down.
func (n *Node) addVisit() {
	n.update(1, 0)
}

func (n *Node) addReward(r float32) {
	n.update(0, r)
}

// publishChildren installs edges as the child list unless another goroutine
// got there first. It returns the list that won and whether it was ours.
func (n *Node) publishChildren(edges []Edge) ([]Edge, bool) {
	if n.children.CompareAndSwap(nil, &edges) {
		return edges, true
	}
	return *n.children.Load(), false
}

// countNodes returns the size of the subtree rooted at n.
func countNodes(n *Node) int64 {
	total := int64(1)
	for _, e := range n.Children() {
		total += countNodes(e.Node)
	}
	return total
}
