package esi

import (
	"fmt"
	"math"
	"strings"
)

// Accepted numeric ranges for the vitals entered on the form.
const (
	MinAge   = 0
	MaxAge   = 120
	MinPulse = 30
	MaxPulse = 200
)

// FieldError describes one invalid observation field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned when an observation is incomplete or out of
// range. It never reaches the predictor.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "invalid observation: " + strings.Join(parts, "; ")
}

// Validate checks that every required field is present and in range.
func (o Observation) Validate() error {
	var errs []FieldError
	add := func(field, format string, args ...any) {
		errs = append(errs, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(o.PatientID) == "" {
		add("patientId", "is required")
	}

	if strings.TrimSpace(o.Age) == "" {
		add("age", "is required")
	} else if age := parseNumber(o.Age); !finite(age) {
		add("age", "must be a number, got %q", o.Age)
	} else if age < MinAge || age > MaxAge {
		add("age", "must be %d..%d, got %v", MinAge, MaxAge, age)
	}

	if o.Gender == "" {
		add("gender", "is required")
	} else if !o.Gender.Valid() {
		add("gender", "must be Male, Female or Other, got %q", o.Gender)
	}

	if o.Consciousness == "" {
		add("consciousness", "is required")
	} else if !o.Consciousness.Valid() {
		add("consciousness", "must be Alert, Confused, Drowsy or Unconscious, got %q", o.Consciousness)
	}

	if strings.TrimSpace(o.PulseRate) == "" {
		add("pulseRate", "is required")
	} else if pulse := parseNumber(o.PulseRate); !finite(pulse) {
		add("pulseRate", "must be a number, got %q", o.PulseRate)
	} else if pulse < MinPulse || pulse > MaxPulse {
		add("pulseRate", "must be %d..%d, got %v", MinPulse, MaxPulse, pulse)
	}

	for code := range o.AdditionalSymptoms {
		if strings.TrimSpace(code) == "" {
			add("additionalSymptoms", "contains an empty code")
			break
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
