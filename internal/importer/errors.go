package importer

import "fmt"

// MalformedRowError identifies one unusable source row. Row-scoped and
// non-fatal: the pipeline counts it and moves on.
type MalformedRowError struct {
	Row    int
	Field  string
	Reason string
}

func (e *MalformedRowError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
	}
	return fmt.Sprintf("row %d: %s: %s", e.Row, e.Field, e.Reason)
}

// UnsupportedEncodingError means no supported text encoding scored above the
// confidence threshold. Batch-fatal, raised before any row is decoded:
// failing fast beats silently importing corrupted text.
type UnsupportedEncodingError struct {
	Reason string
}

func (e *UnsupportedEncodingError) Error() string {
	return "unsupported encoding: " + e.Reason
}
