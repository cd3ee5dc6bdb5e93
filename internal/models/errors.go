package models

import "fmt"

// NoDataError signals that an analyzer was handed an empty input batch.
// It is recoverable: callers should treat it as "nothing to analyze yet",
// not as a bug. Analyzers never fetch data themselves, so supplying a
// non-empty batch is the caller's responsibility.
type NoDataError struct {
	Subject string
	Reason  string
}

func (e NoDataError) Error() string {
	return fmt.Sprintf("no data for %s: %s", e.Subject, e.Reason)
}
