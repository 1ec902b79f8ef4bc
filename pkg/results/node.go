package results

import (
	"encoding/json"
	"strings"
)

// Kind identifies the variant of a result tree node.
type Kind string

const (
	KindConjunction Kind = "and"  // all children must hold
	KindDisjunction Kind = "or"   // at least one child must hold
	KindNegation    Kind = "not"  // single child must not hold
	KindLeaf        Kind = "leaf" // opaque constraint
)

// Constraint is the opaque leaf value stored in a result tree.
// The builder never evaluates it; it only keeps it and renders it.
type Constraint interface {
	String() string
}

// Node is a node of a result tree. Nodes are created by a Builder and are
// read-only for everyone else: fields are unexported and accessors return copies.
type Node struct {
	kind       Kind
	children   []*Node
	constraint Constraint
}

func newNode(kind Kind) *Node {
	return &Node{kind: kind}
}

func newLeaf(c Constraint) *Node {
	return &Node{kind: KindLeaf, constraint: c}
}

// Kind returns the node variant.
func (n *Node) Kind() Kind {
	return n.kind
}

// IsCompound returns true for conjunctions and disjunctions.
func (n *Node) IsCompound() bool {
	return n.kind == KindConjunction || n.kind == KindDisjunction
}

// Constraint returns the leaf constraint, or nil for non-leaf nodes.
func (n *Node) Constraint() Constraint {
	return n.constraint
}

// Children returns a copy of the node's children in arrival order.
// A negation has at most one child; a leaf has none.
func (n *Node) Children() []*Node {
	if len(n.children) == 0 {
		return nil
	}
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// Len returns the number of children.
func (n *Node) Len() int {
	return len(n.children)
}

// Walk visits the node and its descendants depth-first. Returning false from
// fn skips the visited node's children.
func (n *Node) Walk(fn func(node *Node, depth int) bool) {
	n.walk(fn, 0)
}

func (n *Node) walk(fn func(*Node, int) bool, depth int) {
	if !fn(n, depth) {
		return
	}
	for _, child := range n.children {
		child.walk(fn, depth+1)
	}
}

// Leaves returns the constraints of every leaf under n, in tree order.
func (n *Node) Leaves() []Constraint {
	var out []Constraint
	n.Walk(func(node *Node, _ int) bool {
		if node.kind == KindLeaf {
			out = append(out, node.constraint)
		}
		return true
	})
	return out
}

// attach links child under n following the attach protocol.
func (n *Node) attach(child *Node) bool {
	if n.kind == KindNegation {
		if len(n.children) > 0 {
			return false
		}
		n.children = []*Node{child}
		return true
	}
	n.children = append(n.children, child)
	return true
}

// remove excises child from n. The most recent arrival is checked first
// since a closing child is almost always the last one attached.
func (n *Node) remove(child *Node) bool {
	for i := len(n.children) - 1; i >= 0; i-- {
		if n.children[i] == child {
			copy(n.children[i:], n.children[i+1:])
			n.children[len(n.children)-1] = nil
			n.children = n.children[:len(n.children)-1]
			return true
		}
	}
	return false
}

// String renders the tree as a readable predicate, e.g.
// "age >= 18 and (name required or nickname required)".
func (n *Node) String() string {
	var sb strings.Builder
	n.format(&sb, false)
	return sb.String()
}

func (n *Node) format(sb *strings.Builder, nested bool) {
	switch n.kind {
	case KindLeaf:
		if n.constraint == nil {
			sb.WriteString("<nil>")
			return
		}
		sb.WriteString(n.constraint.String())

	case KindNegation:
		sb.WriteString("not ")
		if len(n.children) == 0 {
			sb.WriteString("()")
			return
		}
		n.children[0].format(sb, true)

	case KindConjunction, KindDisjunction:
		if len(n.children) == 0 {
			sb.WriteString(string(n.kind))
			sb.WriteString("()")
			return
		}
		if len(n.children) == 1 {
			n.children[0].format(sb, nested)
			return
		}
		if nested {
			sb.WriteByte('(')
		}
		sep := " and "
		if n.kind == KindDisjunction {
			sep = " or "
		}
		for i, child := range n.children {
			if i > 0 {
				sb.WriteString(sep)
			}
			child.format(sb, true)
		}
		if nested {
			sb.WriteByte(')')
		}
	}
}

// jsonNode is the wire form of a Node.
type jsonNode struct {
	Kind       Kind        `json:"kind"`
	Constraint string      `json:"constraint,omitempty"`
	Children   []*jsonNode `json:"children,omitempty"`
}

func (n *Node) toJSON() *jsonNode {
	out := &jsonNode{Kind: n.kind}
	if n.constraint != nil {
		out.Constraint = n.constraint.String()
	}
	for _, child := range n.children {
		out.Children = append(out.Children, child.toJSON())
	}
	return out
}

// MarshalJSON encodes the tree with leaves rendered through their display form.
func (n *Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.toJSON())
}
