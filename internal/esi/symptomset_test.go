package esi

import (
	"encoding/json"
	"math/rand/v2"
	"slices"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSymptomSet_RoundTripRandom(t *testing.T) {
	t.Parallel()

	r := rand.New(rand.NewPCG(1, 2))
	vocab := Symptoms()

	for i := range 200 {
		s := NewSymptomSet()
		for range r.IntN(12) {
			if r.IntN(4) == 0 {
				s[strings.Repeat("x", r.IntN(5)+1)] = struct{}{}
				continue
			}
			s[vocab[r.IntN(len(vocab))].ID] = struct{}{}
		}

		seq := EncodeSymptoms(s)
		r.Shuffle(len(seq), func(a, b int) { seq[a], seq[b] = seq[b], seq[a] })

		if got := DecodeSymptoms(seq); !got.Equal(s) {
			t.Fatalf("iteration %d: decode(shuffle(encode(%v))) = %v", i, s.Codes(), got.Codes())
		}
	}
}

func TestSymptomSet_JSON(t *testing.T) {
	t.Parallel()

	s := NewSymptomSet("syncope", "asthma", "burns")
	b, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(b) != `["asthma","burns","syncope"]` {
		t.Errorf("Marshal = %s, want sorted array", b)
	}

	var got SymptomSet
	if err := json.Unmarshal([]byte(`["burns","asthma","syncope","asthma"]`), &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !got.Equal(s) {
		t.Errorf("Unmarshal = %v, want %v", got.Codes(), s.Codes())
	}
}

func TestSymptomSet_UnmarshalNullAndEmpty(t *testing.T) {
	t.Parallel()

	for _, in := range []string{`null`, `[]`} {
		var got SymptomSet
		if err := json.Unmarshal([]byte(in), &got); err != nil {
			t.Fatalf("Unmarshal(%s): %v", in, err)
		}
		if len(got) != 0 {
			t.Errorf("Unmarshal(%s) = %v, want empty", in, got.Codes())
		}
	}
}

func TestSymptomSet_UnmarshalRejectsNonArray(t *testing.T) {
	t.Parallel()

	for _, in := range []string{`{}`, `"syncope"`, `42`, `[1,2]`} {
		var got SymptomSet
		if err := json.Unmarshal([]byte(in), &got); err == nil {
			t.Errorf("Unmarshal(%s) = nil error, want error", in)
		}
	}
}

func TestSymptomSet_Toggle(t *testing.T) {
	t.Parallel()

	s := NewSymptomSet("asthma")
	added := s.Toggle("burns")
	if !added.Has("burns") || !added.Has("asthma") {
		t.Errorf("Toggle add = %v", added.Codes())
	}
	if s.Has("burns") {
		t.Error("Toggle mutated the receiver")
	}
	removed := added.Toggle("asthma")
	if removed.Has("asthma") {
		t.Errorf("Toggle remove = %v", removed.Codes())
	}
}

func TestSymptoms_SortedAndSearch(t *testing.T) {
	t.Parallel()

	all := Symptoms()
	if !slices.IsSortedFunc(all, func(a, b Symptom) int { return strings.Compare(a.Name, b.Name) }) {
		t.Error("Symptoms() not sorted by name")
	}

	got := SearchSymptoms("FRACT")
	if len(got) != 3 {
		t.Fatalf("SearchSymptoms(FRACT) len = %d, want 3: %v", len(got), got)
	}
	for _, s := range got {
		if !strings.HasPrefix(s.ID, "fx") {
			t.Errorf("unexpected match %v", s)
		}
	}

	if got := SearchSymptoms("  "); len(got) != len(all) {
		t.Errorf("blank search len = %d, want %d", len(got), len(all))
	}
	if got := SearchSymptoms("zzzz"); len(got) != 0 {
		t.Errorf("no-match search = %v, want empty", got)
	}
}

func TestSymptomName(t *testing.T) {
	t.Parallel()

	if got := SymptomName("tia"); got != "Transient Ischemic Attack" {
		t.Errorf("SymptomName(tia) = %q", got)
	}
	if got := SymptomName("custom-code"); got != "custom-code" {
		t.Errorf("SymptomName(custom-code) = %q, want passthrough", got)
	}
	if KnownSymptom("custom-code") {
		t.Error("KnownSymptom(custom-code) = true")
	}
}

func FuzzSymptomSetRoundTrip(f *testing.F) {
	f.Add("asthma,burns,syncope")
	f.Add("")
	f.Add("a,a,b")
	f.Fuzz(func(t *testing.T, csv string) {
		if !utf8.ValidString(csv) {
			t.Skip("json replaces invalid utf-8")
		}
		s := NewSymptomSet(strings.Split(csv, ",")...)
		b, err := json.Marshal(s)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		var got SymptomSet
		if err := json.Unmarshal(b, &got); err != nil {
			t.Fatalf("Unmarshal: %v", err)
		}
		if !got.Equal(s) {
			t.Fatalf("round trip %v -> %v", s.Codes(), got.Codes())
		}
	})
}
