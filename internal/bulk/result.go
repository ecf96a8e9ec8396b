// Package bulk implements the newline-delimited bulk ingestion processor,
// accounting for each item's outcome independently so a failure on one
// line never aborts the rest of the batch.
package bulk

// ItemStatus is the processing outcome of a single bulk item.
type ItemStatus string

// Bulk item status values.
const (
	StatusOK    ItemStatus = "ok"
	StatusError ItemStatus = "error"
)

// Result is the outcome of processing one action/payload pair.
type Result struct {
	Index   string
	ID      string
	Action  string
	Status  ItemStatus
	Code    int
	Version int64
	SeqNo   int64
	Err     error
}

// NewOK creates a successful item result.
func NewOK(action, index, id string, code int, version, seqNo int64) Result {
	return Result{Action: action, Index: index, ID: id, Status: StatusOK, Code: code, Version: version, SeqNo: seqNo}
}

// NewError creates a failed item result.
func NewError(action, index, id string, code int, err error) Result {
	return Result{Action: action, Index: index, ID: id, Status: StatusError, Code: code, Err: err}
}
