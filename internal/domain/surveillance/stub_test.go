package surveillance

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestStubber_Deterministic(t *testing.T) {
	s := NewStubber(func() time.Time { return fixedNow })

	a := s.Patient("Patient/missing-1")
	b := s.Patient("Patient/missing-1")
	if !reflect.DeepEqual(a, b) {
		t.Errorf("same reference produced different stubs:\n%+v\n%+v", a, b)
	}
	if !a.Synthetic {
		t.Error("stub patient must be marked synthetic")
	}
	if !strings.HasPrefix(a.ID, "synthetic-") {
		t.Errorf("stub id = %q, want synthetic- prefix", a.ID)
	}
	if len(a.Address) != 1 || a.Address[0].State == "" || a.Address[0].City == "" {
		t.Errorf("stub address = %+v", a.Address)
	}
	if age, ok := AgeAt(a.BirthDate, fixedNow); !ok || age < 0 {
		t.Errorf("stub birth date %q not usable", a.BirthDate)
	}

	e1 := s.Encounter("enc-9")
	e2 := NewStubber(func() time.Time { return fixedNow }).Encounter("enc-9")
	if !reflect.DeepEqual(e1, e2) {
		t.Errorf("encounter stubs differ across stubbers: %+v vs %+v", e1, e2)
	}
	if !e1.Synthetic || e1.ClassCode() == "" {
		t.Errorf("stub encounter = %+v", e1)
	}
}

func TestStubber_PatientAndEncounterKeysIndependent(t *testing.T) {
	s := NewStubber(func() time.Time { return fixedNow })
	if s.Patient("x").ID == s.Encounter("x").ID {
		t.Error("patient and encounter stubs for the same id must not share an id")
	}
}

func TestStubber_Spread(t *testing.T) {
	s := NewStubber(func() time.Time { return fixedNow })
	ages := map[string]bool{}
	for i := 0; i < 50; i++ {
		p := s.Patient("p" + string(rune('a'+i%26)) + string(rune('a'+i/26)))
		ages[p.BirthDate] = true
	}
	if len(ages) < 2 {
		t.Errorf("expected stubs to vary, got birth dates %v", ages)
	}
}
