// Package results builds minimal "why this failed" trees while a rule engine
// evaluates nested logical rules against the properties of a subject.
//
// # Result Trees
//
// A result tree mirrors the rule being evaluated:
//
//	and  - Conjunction, every child must hold
//	or   - Disjunction, at least one child must hold
//	not  - Negation, its single child must not hold
//	leaf - an opaque constraint supplied by the rule engine
//
// # Push/Pop Protocol
//
// The evaluation driver reports its progress to a Builder:
//
//	b := results.NewBuilder()
//	b.SetPropertyName("age")
//	b.PushAnd()
//	b.Push(minAge)  // leaf
//	b.Pop(true)     // minAge held: pruned from the conjunction
//	b.Push(maxAge)
//	b.Pop(false)    // maxAge failed: kept
//	b.Pop(false)    // conjunction failed: stored for "age"
//
//	tree, ok := b.ResultsFor("age") // and[maxAge]
//
// Closing a nested node with a success removes it from its conjunction or
// disjunction parent. Nothing is removed while a negation is open: the whole
// subtree below a negation is what its outcome is derived from. Closing the root with a failure stores the tree;
// closing it with a success drops it and clears any stale entry for the property.
//
// # Leaf Modes
//
// In the default LeafPopped mode every leaf is opened on the stack and closed
// with its own Pop, so individual leaf outcomes are pruned. LeafAttached mode
// links leaves without opening them; only compound nodes are popped.
//
// # Misuse
//
// Protocol violations (Pop or Peek on an empty stack, a second child for a
// negation, a leaf without a parent in LeafAttached mode) panic with a
// *ProtocolError. A failing property is never an error; it is the output.
package results
