package esi

import "testing"

func TestSearchSymptoms(t *testing.T) {
	t.Parallel()

	if got := SearchSymptoms(""); len(got) != len(Symptoms()) {
		t.Errorf("empty term = %d symptoms, want %d", len(got), len(Symptoms()))
	}

	got := SearchSymptoms("zzzzqq")
	if got == nil || len(got) != 0 {
		t.Errorf("no match = %#v, want empty non-nil slice", got)
	}
}
