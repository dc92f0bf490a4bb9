package esi

// FallbackAction is the single action returned for any level outside 1..5.
const FallbackAction = "Follow standard hospital protocols."

var actionCatalog = [...][3]string{
	LevelImmediate:  {"Initiate immediate life-saving interventions", "Notify trauma team", "Prepare resuscitation bay"},
	LevelEmergent:   {"Fast-track to acute care area", "Continuous cardiac monitoring", "Alert charge nurse"},
	LevelUrgent:     {"Place in monitored observation area", "Comprehensive nursing assessment", "Physician evaluation within 30 mins"},
	LevelLessUrgent: {"Standard triage assessment", "Schedule routine physician evaluation", "Provide comfort measures"},
	LevelNonUrgent:  {"Basic assessment", "Schedule non-urgent evaluation", "Provide patient education"},
}

// Actions returns the recommended action checklist for level. The result is
// a fresh slice the caller may keep.
func Actions(level Level) []string {
	if !level.Valid() {
		return []string{FallbackAction}
	}
	a := actionCatalog[level]
	return []string{a[0], a[1], a[2]}
}
