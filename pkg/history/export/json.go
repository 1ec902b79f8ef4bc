package export

import (
	"context"
	"encoding/json"
	"io"

	"mercator-hq/verity/pkg/history"
)

// JSONExporter exports history records as a JSON array.
type JSONExporter struct {
	// Pretty enables indentation.
	Pretty bool
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(pretty bool) *JSONExporter {
	return &JSONExporter{Pretty: pretty}
}

// Export writes records to w as a JSON array. An empty input writes "[]".
func (e *JSONExporter) Export(ctx context.Context, records []*history.Record, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return history.NewExportError("json", len(records), err)
	}
	if records == nil {
		records = []*history.Record{}
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if e.Pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(records); err != nil {
		return history.NewExportError("json", len(records), err)
	}
	return nil
}
