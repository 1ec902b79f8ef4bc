// Package logging builds the root *slog.Logger from configuration.
//
// Components never import this package; they take a *slog.Logger, default to
// slog.Default(), and attach a "component" attribute. The command wires the
// logger built here as the default:
//
//	logger, err := logging.New(logging.Config{Level: "debug", Format: "text"})
//	if err != nil {
//		return err
//	}
//	slog.SetDefault(logger)
//
// Records logged with a context carry its request ID and rule set name (see
// WithRequestID and WithRuleSet). Attributes whose key contains a redact key
// such as "token" are logged as "***".
package logging
