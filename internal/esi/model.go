package esi

import "time"

// Gender is the patient's recorded gender.
type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

// Valid reports whether g is one of the enumerated genders.
func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

// Consciousness is the observed level of consciousness.
type Consciousness string

const (
	ConsciousnessAlert       Consciousness = "Alert"
	ConsciousnessConfused    Consciousness = "Confused"
	ConsciousnessDrowsy      Consciousness = "Drowsy"
	ConsciousnessUnconscious Consciousness = "Unconscious"
)

// Valid reports whether c is one of the enumerated consciousness levels.
func (c Consciousness) Valid() bool {
	switch c {
	case ConsciousnessAlert, ConsciousnessConfused, ConsciousnessDrowsy, ConsciousnessUnconscious:
		return true
	}
	return false
}

// Level is an ESI level, 1 (most urgent) .. 5 (least urgent).
type Level int

const (
	LevelImmediate  Level = 1
	LevelEmergent   Level = 2
	LevelUrgent     Level = 3
	LevelLessUrgent Level = 4
	LevelNonUrgent  Level = 5
)

// Valid reports whether l is within 1..5.
func (l Level) Valid() bool {
	return l >= LevelImmediate && l <= LevelNonUrgent
}

// Critical reports whether l needs the resuscitation or acute area (ESI 1-2).
func (l Level) Critical() bool {
	return l.Valid() && l <= LevelEmergent
}

// Label returns the urgency label shown next to the level.
func (l Level) Label() string {
	switch l {
	case LevelImmediate:
		return "IMMEDIATE"
	case LevelEmergent:
		return "EMERGENT"
	case LevelUrgent:
		return "URGENT"
	case LevelLessUrgent:
		return "LESS URGENT"
	default:
		return "NON-URGENT"
	}
}

// Observation is the structured clinical input for one patient assessment.
// Age and PulseRate keep the raw text the clinician typed; they are parsed
// during encoding.
type Observation struct {
	PatientID           string        `json:"patientId"`
	Age                 string        `json:"age"`
	Gender              Gender        `json:"gender"`
	ChestPain           bool          `json:"chestPain"`
	Fever               bool          `json:"fever"`
	BreathingDifficulty bool          `json:"breathingDifficulty"`
	Consciousness       Consciousness `json:"consciousness"`
	PulseRate           string        `json:"pulseRate"`
	AdditionalSymptoms  SymptomSet    `json:"additionalSymptoms"`
}

// NewObservation returns the empty form template a new assessment starts from.
func NewObservation() Observation {
	return Observation{AdditionalSymptoms: NewSymptomSet()}
}

// Clone returns a deep copy of o.
func (o Observation) Clone() Observation {
	o.AdditionalSymptoms = o.AdditionalSymptoms.Clone()
	return o
}

// Outcome is the interpreted predictor answer.
type Outcome struct {
	Level   Level    `json:"esiLevel"`
	Actions []string `json:"actions"`
}

// NewOutcome builds the outcome for a level using the action catalog.
func NewOutcome(level Level) Outcome {
	return Outcome{Level: level, Actions: Actions(level)}
}

// Entry is one locally recorded assessment. Entries are immutable once created.
type Entry struct {
	ID        string      `json:"id"`
	Data      Observation `json:"data"`
	Result    Outcome     `json:"result"`
	Timestamp string      `json:"timestamp"`
}

// TimestampLayout is the display layout captured on each entry.
const TimestampLayout = "3:04:05 PM"

// NewEntry records a completed assessment for obs at time at.
func NewEntry(obs Observation, out Outcome, at time.Time) Entry {
	return Entry{
		ID:        obs.PatientID,
		Data:      obs.Clone(),
		Result:    Outcome{Level: out.Level, Actions: append([]string(nil), out.Actions...)},
		Timestamp: at.Format(TimestampLayout),
	}
}

// Clone returns a deep copy of e.
func (e Entry) Clone() Entry {
	e.Data = e.Data.Clone()
	e.Result.Actions = append([]string(nil), e.Result.Actions...)
	return e
}

// RemoteRow is one row of the server-side queue view.
type RemoteRow struct {
	ID             int64     `json:"id"`
	PatientID      string    `json:"patient_id"`
	Age            float64   `json:"age"`
	Gender         string    `json:"gender"`
	PredictedESI   Level     `json:"predicted_esi"`
	AssessmentTime time.Time `json:"assessment_time"`
}
