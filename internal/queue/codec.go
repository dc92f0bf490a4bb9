package queue

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/linnemanlabs/esitriage/internal/esi"
)

// wireObservation shadows the symptom field so a malformed value on one
// entry does not fail the whole list.
type wireObservation struct {
	esi.Observation
	AdditionalSymptoms json.RawMessage `json:"additionalSymptoms"`
}

type wireEntry struct {
	ID        string          `json:"id"`
	Data      wireObservation `json:"data"`
	Result    esi.Outcome     `json:"result"`
	Timestamp string          `json:"timestamp"`
}

// EntryWarning reports a recoverable problem with one persisted entry.
type EntryWarning struct {
	Index int
	ID    string
	Err   error
}

func (w EntryWarning) Error() string {
	return fmt.Sprintf("entry %d (%s): %v", w.Index, w.ID, w.Err)
}

// Marshal serializes entries in the persisted record format. Symptom sets
// become plain string arrays.
func Marshal(entries []esi.Entry) ([]byte, error) {
	if entries == nil {
		entries = []esi.Entry{}
	}
	b, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("marshal queue: %w", err)
	}
	return b, nil
}

// Unmarshal parses a persisted entry list. A document that is not a JSON
// array of entries is an error. An entry whose additionalSymptoms is not an
// array keeps an empty set and is reported as a warning.
func Unmarshal(data []byte) ([]esi.Entry, []EntryWarning, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return []esi.Entry{}, nil, nil
	}

	var wire []wireEntry
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, nil, fmt.Errorf("unmarshal queue: %w", err)
	}

	entries := make([]esi.Entry, 0, len(wire))
	var warnings []EntryWarning
	for i, w := range wire {
		obs := w.Data.Observation
		obs.AdditionalSymptoms = esi.NewSymptomSet()
		if raw := bytes.TrimSpace(w.Data.AdditionalSymptoms); len(raw) > 0 {
			var set esi.SymptomSet
			if err := json.Unmarshal(raw, &set); err != nil {
				warnings = append(warnings, EntryWarning{Index: i, ID: w.ID, Err: err})
			} else if set != nil {
				obs.AdditionalSymptoms = set
			}
		}
		entries = append(entries, esi.Entry{
			ID:        w.ID,
			Data:      obs,
			Result:    w.Result,
			Timestamp: w.Timestamp,
		})
	}
	return entries, warnings, nil
}
