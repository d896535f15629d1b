package parse

import "errors"

var (
	// ErrMalformedExport aborts a source: no message list, or an entry without id.
	ErrMalformedExport = errors.New("malformed export")

	// ErrUnparseableTimestamp leaves the timestamp unset; the record is kept.
	ErrUnparseableTimestamp = errors.New("unparseable timestamp")

	// ErrUnparseableMarkup keeps the text in its pre-conversion form.
	ErrUnparseableMarkup = errors.New("unparseable markup")
)
