package assessapi

import (
	"errors"
	"net/http"

	"github.com/linnemanlabs/esitriage/internal/assess"
	"github.com/linnemanlabs/esitriage/internal/esi"
)

type localQueueResponse struct {
	Entries []esi.Entry `json:"entries"`
}

// handleLocalQueue serves the local snapshot. A failed load is an operator
// concern, already logged and counted by the store, so clients only ever see
// the entries.
func (a *API) handleLocalQueue(w http.ResponseWriter, _ *http.Request) {
	entries, _ := a.svc.LocalQueue()
	if entries == nil {
		entries = []esi.Entry{}
	}
	writeJSON(w, http.StatusOK, localQueueResponse{Entries: entries})
}

func (a *API) handleRemoteQueue(w http.ResponseWriter, r *http.Request) {
	rows, err := a.svc.RemoteQueue(r.Context())
	switch {
	case errors.Is(err, assess.ErrRemoteDisabled):
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if rows == nil {
		rows = []esi.RemoteRow{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (a *API) handleSymptoms(w http.ResponseWriter, r *http.Request) {
	found := a.svc.Symptoms(r.URL.Query().Get("q"))
	if found == nil {
		found = []esi.Symptom{}
	}
	writeJSON(w, http.StatusOK, found)
}
