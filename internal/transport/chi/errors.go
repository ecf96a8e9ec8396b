package chi

import (
	"encoding/json"
	"net/http"

	"github.com/esfake/esfake/internal/apperr"
)

// errorBody is the wire shape of the top-level error envelope.
type errorBody struct {
	Type      string           `json:"type"`
	Reason    string           `json:"reason"`
	RootCause []errorRootCause `json:"root_cause"`
	Index     string           `json:"index,omitempty"`
	IndexUUID string           `json:"index_uuid,omitempty"`
}

type errorRootCause struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

type errorEnvelope struct {
	Error  errorBody `json:"error"`
	Status int       `json:"status"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError serializes err into the standard Elasticsearch-shaped error
// envelope. Bare (non-*apperr.Error) errors are reported as an internal
// error — the engine never panics on malformed input.
func writeError(w http.ResponseWriter, err error) {
	ae, ok := err.(*apperr.Error)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorEnvelope{
			Error: errorBody{
				Type:      "internal_error",
				Reason:    err.Error(),
				RootCause: []errorRootCause{{Type: "internal_error", Reason: err.Error()}},
			},
			Status: http.StatusInternalServerError,
		})
		return
	}
	writeJSON(w, ae.Status(), errorEnvelope{
		Error: errorBody{
			Type:      ae.Type(),
			Reason:    ae.Reason,
			RootCause: []errorRootCause{{Type: ae.Type(), Reason: ae.Reason}},
			Index:     ae.Index,
			IndexUUID: ae.IndexUUID,
		},
		Status: ae.Status(),
	})
}
