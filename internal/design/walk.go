package design

import "fmt"

// MaxDepth bounds traversal so a malformed (cyclic) tree fails instead of
// recursing forever.
const MaxDepth = 1000

// StructuralError reports a tree that cannot be traversed
type StructuralError struct {
	NodeID string
	Depth  int
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("design tree too deep at node %q (depth %d > %d): cycle or malformed input", e.NodeID, e.Depth, MaxDepth)
}

// Walk visits root and every descendant depth-first in pre-order, passing
// the depth of each node (root = 0). Children are visited in their stored
// order.
func Walk(root *Node, visit func(n *Node, depth int)) error {
	if root == nil {
		return nil
	}
	return walk(root, 0, visit)
}

func walk(n *Node, depth int, visit func(*Node, int)) error {
	if depth > MaxDepth {
		return &StructuralError{NodeID: n.ID, Depth: depth}
	}
	visit(n, depth)
	for _, child := range n.Children {
		if child == nil {
			continue
		}
		if err := walk(child, depth+1, visit); err != nil {
			return err
		}
	}
	return nil
}
