package results

import "maps"

// LeafMode selects how leaf constraints take part in the push/pop protocol.
type LeafMode int

const (
	// LeafPopped opens every pushed leaf on the build stack, so each Push is
	// matched by a Pop carrying the leaf's own outcome. Successful leaves are
	// then pruned like successful compounds. A leaf pushed with no open parent
	// becomes the root of the property's tree.
	LeafPopped LeafMode = iota

	// LeafAttached only links pushed leaves into the current top; leaves are
	// never popped and are never pruned individually. A leaf needs an open
	// parent, so drivers wrap bare leaf rules in a conjunction.
	LeafAttached
)

// String returns the mode name.
func (m LeafMode) String() string {
	switch m {
	case LeafPopped:
		return "popped"
	case LeafAttached:
		return "attached"
	default:
		return "unknown"
	}
}

// Option configures a Builder.
type Option func(*Builder)

// WithObserver registers an observer notified of every builder change.
func WithObserver(o Observer) Option {
	return func(b *Builder) {
		b.observer = o
	}
}

// WithLeafMode sets the leaf protocol. The default is LeafPopped.
func WithLeafMode(mode LeafMode) Option {
	return func(b *Builder) {
		b.leafMode = mode
	}
}

// Builder assembles the result tree of a rule evaluation and keeps, per
// property, the pruned tree explaining why the property failed.
//
// A driver calls SetPropertyName, then PushAnd/PushOr/PushNot when entering a
// compound rule, Push for each leaf constraint, and Pop with the outcome when
// a rule finishes. Closing a successful nested node excises it from its parent
// (unless a negation is open above it), so a stored tree only holds the
// sub-expressions responsible for the failure.
//
// A Builder is not safe for concurrent use. Use one builder per concurrent
// evaluation and merge their results.
type Builder struct {
	property string
	levels   []*Node
	top      *Node
	results  map[string]*Node
	observer Observer
	leafMode LeafMode
}

// NewBuilder creates an empty builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		results: make(map[string]*Node),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// LeafMode returns the builder's leaf protocol.
func (b *Builder) LeafMode() LeafMode {
	return b.leafMode
}

// PropertyName returns the property currently being evaluated.
func (b *Builder) PropertyName() string {
	return b.property
}

// SetPropertyName starts a new property. Any build in progress is abandoned.
func (b *Builder) SetPropertyName(name string) {
	b.property = name
	clear(b.levels)
	b.levels = b.levels[:0]
	b.top = nil
}

// Depth returns the number of open entries on the build stack.
func (b *Builder) Depth() int {
	return len(b.levels)
}

// PushAnd opens a conjunction.
func (b *Builder) PushAnd() {
	b.open(newNode(KindConjunction))
}

// PushOr opens a disjunction.
func (b *Builder) PushOr() {
	b.open(newNode(KindDisjunction))
}

// PushNot opens a negation.
func (b *Builder) PushNot() {
	b.open(newNode(KindNegation))
}

// Push adds a leaf constraint under the current top. In LeafPopped mode the
// leaf is also opened and must be closed with Pop.
func (b *Builder) Push(c Constraint) {
	leaf := newLeaf(c)
	if b.leafMode == LeafPopped {
		b.open(leaf)
		return
	}
	if b.top == nil {
		panic(&ProtocolError{Op: "push", Property: b.property, Reason: "leaf constraint has no open parent"})
	}
	b.attach("push", leaf)
}

// Peek returns the current top without changing it.
func (b *Builder) Peek() *Node {
	if b.top == nil {
		panic(&ProtocolError{Op: "peek", Property: b.property, Reason: "build stack is empty"})
	}
	return b.top
}

// Pop closes the current top with the outcome of its evaluation.
//
// Closing the root finishes the property: a failure stores the tree under the
// property name, replacing any earlier entry, and a success drops the tree and
// clears any earlier entry. Closing a nested node with a success excises it
// from a conjunction or disjunction parent. Nothing is excised while a
// negation is open, since everything below it is the basis of its outcome.
func (b *Builder) Pop(result bool) {
	if len(b.levels) == 0 {
		panic(&ProtocolError{Op: "pop", Property: b.property, Reason: "build stack is empty"})
	}

	last := len(b.levels) - 1
	p := b.levels[last]
	b.levels[last] = nil
	b.levels = b.levels[:last]
	b.notify(Event{Type: EventPop, Node: p, Result: result, Depth: len(b.levels)})

	if len(b.levels) == 0 {
		b.top = nil
		if !result {
			b.results[b.property] = p
			b.notify(Event{Type: EventStore, Node: p})
			return
		}
		delete(b.results, b.property)
		b.notify(Event{Type: EventDiscard, Node: p, Result: true})
		return
	}

	parent := b.levels[len(b.levels)-1]
	b.top = parent
	if !result || b.negated() {
		return
	}
	if !parent.remove(p) {
		panic(&ProtocolError{Op: "pop", Property: b.property, Reason: "closed node is not a child of the new top"})
	}
	b.notify(Event{Type: EventPrune, Node: p, Parent: parent, Result: true, Depth: len(b.levels)})
}

// Results returns a snapshot of the violation map. The trees are shared with
// the builder and must be treated as read-only.
func (b *Builder) Results() map[string]*Node {
	return maps.Clone(b.results)
}

// ResultsFor returns the stored tree for a property and whether one exists.
func (b *Builder) ResultsFor(property string) (*Node, bool) {
	n, ok := b.results[property]
	return n, ok
}

// Reset drops the violation map and any build in progress.
func (b *Builder) Reset() {
	b.SetPropertyName("")
	clear(b.results)
}

// negated reports whether a negation is open on the build stack.
func (b *Builder) negated() bool {
	for _, n := range b.levels {
		if n.kind == KindNegation {
			return true
		}
	}
	return false
}

func (b *Builder) open(n *Node) {
	if b.top != nil {
		b.attach("push", n)
	}
	b.levels = append(b.levels, n)
	b.top = n
	b.notify(Event{Type: EventOpen, Node: n, Depth: len(b.levels)})
}

func (b *Builder) attach(op string, n *Node) {
	parent := b.top
	if parent.kind == KindLeaf {
		panic(&ProtocolError{Op: op, Property: b.property, Reason: "leaf constraint cannot have children"})
	}
	if !parent.attach(n) {
		panic(&ProtocolError{Op: op, Property: b.property, Reason: "negation already has a child"})
	}
	eventType := EventAttach
	if parent.kind == KindNegation {
		eventType = EventNegate
	}
	b.notify(Event{Type: eventType, Node: n, Parent: parent, Depth: len(b.levels)})
}

func (b *Builder) notify(e Event) {
	if b.observer == nil {
		return
	}
	e.Property = b.property
	b.observer.Observe(e)
}
