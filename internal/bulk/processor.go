package bulk

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/esfake/esfake/internal/apperr"
	"github.com/esfake/esfake/internal/docstore"
)

// actionLine mirrors one `{"index": {...}}` or `{"create": {...}}` line.
type actionLine struct {
	Index  *actionMeta `json:"index"`
	Create *actionMeta `json:"create"`
}

type actionMeta struct {
	Index string `json:"_index"`
	ID    string `json:"_id"`
}

// Outcome is the full response envelope for one bulk request.
type Outcome struct {
	TookMillis int64
	Errors     bool
	Items      []Result
}

// Process reads an NDJSON stream of alternating action/payload lines and
// applies each to reg, using defaultIndex when an action line omits
// "_index". Per-item failures do not abort the batch, including a
// malformed action line: it is recorded as a failed item alongside
// whatever items were already processed, and scanning stops there since
// there's no way to tell where the next action line begins.
func Process(reg *docstore.Registry, defaultIndex string, body io.Reader) (Outcome, error) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var results []Result
	for scanner.Scan() {
		actionBytes := bytes.TrimSpace(scanner.Bytes())
		if len(actionBytes) == 0 {
			// Trailing blank line is tolerated.
			continue
		}

		var line actionLine
		if err := json.Unmarshal(actionBytes, &line); err != nil {
			results = append(results, NewError("index", defaultIndex, "", http.StatusBadRequest,
				apperr.ParseExceptionf("malformed action/metadata line [%s]: %v", actionBytes, err)))
			break
		}

		action := "index"
		meta := line.Index
		if meta == nil {
			if line.Create == nil {
				results = append(results, NewError("index", defaultIndex, "", http.StatusBadRequest,
					apperr.ParseExceptionf("action line must contain exactly one of index/create")))
				break
			}
			action = "create"
			meta = line.Create
		}

		index := meta.Index
		if index == "" {
			index = defaultIndex
		}
		if index == "" {
			results = append(results, NewError(action, defaultIndex, meta.ID, http.StatusBadRequest,
				apperr.ActionRequestValidationf("an index is required for the action line")))
			break
		}

		if !scanner.Scan() {
			results = append(results, NewError(action, index, meta.ID, http.StatusBadRequest,
				apperr.ParseExceptionf("expected a document source line after action line")))
			break
		}
		sourceBytes := scanner.Bytes()

		var source map[string]any
		if err := json.Unmarshal(sourceBytes, &source); err != nil {
			results = append(results, NewError(action, index, meta.ID, http.StatusBadRequest,
				apperr.MapperParsingf("failed to parse source: %v", err)))
			continue
		}

		idx := reg.GetOrCreate(index)
		res, err := idx.Put(meta.ID, source)
		if err != nil {
			results = append(results, NewError(action, index, meta.ID, statusFor(err), err))
			continue
		}

		code := http.StatusCreated
		if res.Result == "updated" {
			code = http.StatusOK
		}
		results = append(results, NewOK(action, index, res.ID, code, res.Version, res.SeqNo))
	}
	if err := scanner.Err(); err != nil {
		return Outcome{}, fmt.Errorf("reading bulk body: %w", err)
	}

	errs := false
	for _, r := range results {
		if r.Status == StatusError {
			errs = true
			break
		}
	}
	return Outcome{Errors: errs, Items: results}, nil
}

func statusFor(err error) int {
	if ae, ok := err.(*apperr.Error); ok {
		return ae.Status()
	}
	return apperr.StatusFor(err)
}
