package export

import (
	"fmt"
	"strings"

	"mercator-hq/verity/pkg/history"
)

// Formats lists the supported export formats.
var Formats = []string{"json", "csv"}

// New returns the exporter for a format name. JSON output is indented when
// pretty is set; CSV output always has a header row.
func New(format string, pretty bool) (history.Exporter, error) {
	switch strings.ToLower(format) {
	case "json":
		return NewJSONExporter(pretty), nil
	case "csv":
		return NewCSVExporter(true), nil
	default:
		return nil, fmt.Errorf("unknown export format %q (supported: %s)", format, strings.Join(Formats, ", "))
	}
}
