package results

import (
	"context"
	"log/slog"
)

// EventType identifies a builder state change.
type EventType string

const (
	EventOpen    EventType = "open"    // node pushed onto the build stack
	EventAttach  EventType = "attach"  // node appended to a conjunction or disjunction
	EventNegate  EventType = "negate"  // node set as a negation's child
	EventPop     EventType = "pop"     // stack entry closed with a result
	EventPrune   EventType = "prune"   // successful node excised from its parent
	EventStore   EventType = "store"   // failing tree stored for the property
	EventDiscard EventType = "discard" // successful tree dropped for the property
)

// Event is delivered to an Observer after the builder has applied the change.
type Event struct {
	Type     EventType
	Property string
	Node     *Node
	Parent   *Node // nil for root-level events
	Result   bool  // meaningful for pop, prune, store and discard
	Depth    int   // stack depth after the change
}

// Observer receives builder events. Observers run synchronously on the
// builder's goroutine and must not call back into the builder.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

// Observe calls f(e).
func (f ObserverFunc) Observe(e Event) {
	f(e)
}

type multiObserver []Observer

func (m multiObserver) Observe(e Event) {
	for _, o := range m {
		o.Observe(e)
	}
}

// Observers combines observers into one, skipping nils.
func Observers(observers ...Observer) Observer {
	out := make(multiObserver, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			out = append(out, o)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	}
	return out
}

// LogObserver writes builder events to a structured logger at debug level.
type LogObserver struct {
	logger *slog.Logger
}

// NewLogObserver creates a log observer. A nil logger uses slog.Default().
func NewLogObserver(logger *slog.Logger) *LogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogObserver{logger: logger.With("component", "results.builder")}
}

// Observe logs the event when debug logging is enabled.
func (o *LogObserver) Observe(e Event) {
	if !o.logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}

	switch e.Type {
	case EventOpen:
		o.logger.Debug("predicate is at the top",
			"property", e.Property,
			"kind", e.Node.Kind(),
			"depth", e.Depth,
		)
	case EventAttach:
		o.logger.Debug("aggregating nested predicate",
			"property", e.Property,
			"predicate", e.Node.String(),
			"parent", e.Parent.Kind(),
		)
	case EventNegate:
		o.logger.Debug("negating predicate",
			"property", e.Property,
			"predicate", e.Node.String(),
		)
	case EventPop:
		o.logger.Debug("top popped",
			"property", e.Property,
			"predicate", e.Node.String(),
			"result", e.Result,
			"depth", e.Depth,
		)
	case EventPrune:
		o.logger.Debug("removing predicate, tested true",
			"property", e.Property,
			"predicate", e.Node.String(),
			"parent", e.Parent.Kind(),
		)
	case EventStore:
		o.logger.Debug("done collecting results",
			"property", e.Property,
			"results", e.Node.String(),
		)
	case EventDiscard:
		o.logger.Debug("property passed, results discarded",
			"property", e.Property,
		)
	}
}
