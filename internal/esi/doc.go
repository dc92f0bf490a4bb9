// Package esi holds the Emergency Severity Index domain: the clinician's
// observation, the predictor feature encoding, the per-level action catalog,
// the canonical symptom vocabulary and the queue entry records.
package esi
