package tree

import (
	"fmt"

	"github.com/dshills/regtree/pkg/types"
)

// NoParent marks a root node
const NoParent = -1

// Node is one section in the arena together with its structural links
type Node struct {
	Index    int
	Parent   int // NoParent for roots
	Section  types.Section
	Children []int
}

// Forest is the hierarchy of one regulation, stored as an arena of nodes
// addressed by index. Nodes appear in source order.
type Forest struct {
	Nodes []Node
}

// Build links sections into a forest. The parent of each section is the
// nearest preceding section with a strictly smaller depth; sections with no
// such predecessor are roots.
//
// Build is a single sequential pass and runs in O(n) time.
func Build(sections []types.Section) *Forest {
	f := &Forest{Nodes: make([]Node, len(sections))}
	stack := make([]int, 0, types.NumRanks)

	for i, s := range sections {
		for len(stack) > 0 && f.Nodes[stack[len(stack)-1]].Section.Depth >= s.Depth {
			stack = stack[:len(stack)-1]
		}

		parent := NoParent
		if len(stack) > 0 {
			parent = stack[len(stack)-1]
			f.Nodes[parent].Children = append(f.Nodes[parent].Children, i)
		}

		f.Nodes[i] = Node{Index: i, Parent: parent, Section: s}
		stack = append(stack, i)
	}

	return f
}

// Len returns the number of nodes
func (f *Forest) Len() int {
	return len(f.Nodes)
}

// Roots returns the indices of all root nodes in source order
func (f *Forest) Roots() []int {
	roots := make([]int, 0)
	for _, n := range f.Nodes {
		if n.Parent == NoParent {
			roots = append(roots, n.Index)
		}
	}
	return roots
}

// Ancestors returns the indices of the ancestors of node i ordered from the
// root down to the direct parent. The result never contains i.
func (f *Forest) Ancestors(i int) []int {
	var chain []int
	for p := f.Nodes[i].Parent; p != NoParent; p = f.Nodes[p].Parent {
		chain = append(chain, p)
	}
	for l, r := 0, len(chain)-1; l < r; l, r = l+1, r-1 {
		chain[l], chain[r] = chain[r], chain[l]
	}
	return chain
}

// NearestKept walks up from the parent of node i and returns the first
// ancestor accepted by kept, or NoParent. The indexer uses it to re-attach
// the children of a section that was rejected before it could be stored.
func (f *Forest) NearestKept(i int, kept func(int) bool) int {
	for p := f.Nodes[i].Parent; p != NoParent; p = f.Nodes[p].Parent {
		if kept(p) {
			return p
		}
	}
	return NoParent
}

// Validate checks the structural invariants: every parent precedes its
// child and has a strictly smaller depth, and parent links are acyclic.
func (f *Forest) Validate() error {
	for _, n := range f.Nodes {
		if n.Parent == NoParent {
			continue
		}
		if n.Parent < 0 || n.Parent >= n.Index {
			return fmt.Errorf("%w: node %d has parent %d", types.ErrForestConsistency, n.Index, n.Parent)
		}
		parent := f.Nodes[n.Parent]
		if parent.Section.Depth >= n.Section.Depth {
			return fmt.Errorf("%w: node %d depth %d is not below parent %d depth %d",
				types.ErrForestConsistency, n.Index, n.Section.Depth, parent.Index, parent.Section.Depth)
		}
	}
	return nil
}
