package esi

import (
	"math"
	"strconv"
	"strings"
)

// Predictor feature names.
const (
	FeaturePatientID    = "patientId"
	FeatureAge          = "age"
	FeatureGender       = "gender"
	FeaturePulse        = "pulse_last"
	FeatureChestPain    = "chestpain"
	FeatureFever        = "fuo"
	FeatureRespDistress = "respdistres"
	FeatureUnresponsive = "cc_unresponsive"
	FeatureCognitive    = "deliriumdementiaamnesticothercognitiv"
)

// Payload is the flat feature map sent to the predictor.
type Payload map[string]any

// Flag reports whether the payload carries feature set to 1.
func (p Payload) Flag(feature string) bool {
	v, ok := p[feature]
	if !ok {
		return false
	}
	n, ok := v.(int)
	return ok && n == 1
}

// Encode converts an observation into the predictor request payload. Boolean
// inputs only produce a key when true. Age and pulse are parsed from their
// text form; unparsable text becomes NaN, so callers validate first.
func Encode(o Observation) Payload {
	p := Payload{
		FeaturePatientID: o.PatientID,
		FeatureAge:       parseNumber(o.Age),
		FeatureGender:    string(o.Gender),
		FeaturePulse:     parseNumber(o.PulseRate),
	}

	if o.ChestPain {
		p[FeatureChestPain] = 1
	}
	if o.Fever {
		p[FeatureFever] = 1
	}
	if o.BreathingDifficulty {
		p[FeatureRespDistress] = 1
	}

	switch o.Consciousness {
	case ConsciousnessUnconscious:
		p[FeatureUnresponsive] = 1
	case ConsciousnessConfused, ConsciousnessDrowsy:
		p[FeatureCognitive] = 1
	}

	for code := range o.AdditionalSymptoms {
		p[code] = 1
	}

	return p
}

func parseNumber(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return math.NaN()
	}
	return f
}
