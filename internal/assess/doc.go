// Package assess is the business boundary for triage assessments: it
// validates an observation, asks the predictor for a level, records the
// outcome in the local queue and notifies on critical levels.
package assess
