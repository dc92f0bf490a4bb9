package esi

import (
	"encoding/json"
	"fmt"
	"slices"
)

// SymptomSet is a set of additional symptom codes. It crosses the persistence
// and wire boundary as a sorted JSON string array; decoding accepts any order
// and collapses duplicates.
type SymptomSet map[string]struct{}

// NewSymptomSet returns a set holding codes.
func NewSymptomSet(codes ...string) SymptomSet {
	s := make(SymptomSet, len(codes))
	for _, c := range codes {
		s[c] = struct{}{}
	}
	return s
}

// Has reports whether code is selected.
func (s SymptomSet) Has(code string) bool {
	_, ok := s[code]
	return ok
}

// Toggle selects code if absent and deselects it if present, returning a new set.
func (s SymptomSet) Toggle(code string) SymptomSet {
	out := s.Clone()
	if out.Has(code) {
		delete(out, code)
	} else {
		out[code] = struct{}{}
	}
	return out
}

// Clone returns a copy of s. A nil set clones to an empty set.
func (s SymptomSet) Clone() SymptomSet {
	out := make(SymptomSet, len(s))
	for c := range s {
		out[c] = struct{}{}
	}
	return out
}

// Codes returns the codes in ascending order.
func (s SymptomSet) Codes() []string {
	out := make([]string, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	slices.Sort(out)
	return out
}

// Equal reports whether s and o hold the same codes.
func (s SymptomSet) Equal(o SymptomSet) bool {
	if len(s) != len(o) {
		return false
	}
	for c := range s {
		if !o.Has(c) {
			return false
		}
	}
	return true
}

// EncodeSymptoms converts the set to its ordered sequence form.
func EncodeSymptoms(s SymptomSet) []string {
	return s.Codes()
}

// DecodeSymptoms rebuilds a set from a sequence in any order.
func DecodeSymptoms(codes []string) SymptomSet {
	return NewSymptomSet(codes...)
}

// MarshalJSON implements json.Marshaler.
func (s SymptomSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(EncodeSymptoms(s))
}

// UnmarshalJSON implements json.Unmarshaler. null decodes to an empty set;
// anything other than an array of strings is an error.
func (s *SymptomSet) UnmarshalJSON(b []byte) error {
	var codes []string
	if err := json.Unmarshal(b, &codes); err != nil {
		return fmt.Errorf("symptom set must be an array of codes: %w", err)
	}
	*s = DecodeSymptoms(codes)
	return nil
}
