// Package source loads rule sets from disk and keeps an engine up to date as
// rule files change.
//
// FileSource parses a YAML file or a directory tree of YAML files and lints
// every rule set; a load fails as a whole when any file is broken. Watcher
// uses fsnotify to detect changes and debounces bursts of events (editors
// often write a file several times on save) into a single reload:
//
//	src := source.NewFileSource("rules/")
//	w, _ := source.NewWatcher(&source.WatcherConfig{Path: "rules/"}, logger)
//	defer w.Stop()
//	go w.Watch(ctx, func(ctx context.Context) error {
//	    return source.Reload(ctx, src, eng)
//	})
//
// A failed reload leaves the engine with its previous rule sets.
package source
