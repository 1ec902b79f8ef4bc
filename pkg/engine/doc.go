// Package engine validates subjects against rule sets and reports, per
// property, the minimal sub-expression responsible for each failure.
//
// The engine compiles each loaded rule set once, then walks a rule's condition
// tree for every subject, reporting its progress to a results.Builder:
// entering all/any/not opens a compound node, every leaf constraint is pushed,
// and each finished condition is popped with its outcome. The builder prunes
// the branches that held, so a Report carries only the reasons for failure:
//
//	eng, _ := engine.New(engine.DefaultConfig())
//	_ = eng.Load(ruleSets)
//	report, err := eng.Validate(ctx, "person", subject)
//	for _, line := range report.Messages() {
//	    fmt.Println(line) // age: age >= 18
//	}
//
// # Evaluation
//
// Every child of a conjunction or disjunction is evaluated so that reports list
// all failing branches; Config.ShortCircuit trades that for speed. Context
// cancellation is checked before each condition.
//
// # Fail-Safe Modes
//
// A constraint that cannot be evaluated (missing path, wrong value type) is
// handled according to Config.FailSafeMode: fail-open treats it as satisfied,
// fail-closed aborts with a *ConditionError, and fail-safe-default (the
// default) treats it as failed.
//
// # Concurrency
//
// Engine is safe for concurrent use. Load swaps rule sets atomically.
// ValidateBatch fans subjects out to at most Config.MaxConcurrency workers,
// each with its own builder.
package engine
