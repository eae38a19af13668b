package health

import (
	"errors"
	"net/http"
	"testing"
)

func TestClassify_Pass(t *testing.T) {
	for _, o := range []Outcome{Bool(true), Pass, Text("pass")} {
		s, code := Classify(o, nil)
		if s != StatusPass || code != http.StatusOK {
			t.Fatalf("Classify(%v) = %s %d, want pass 200", o, s, code)
		}
	}
}

func TestClassify_Warn(t *testing.T) {
	s, code := Classify(Warn, nil)
	if s != StatusWarn || code != http.StatusOK {
		t.Fatalf("Classify(warn) = %s %d, want warn 200", s, code)
	}
}

func TestClassify_Fail(t *testing.T) {
	for _, o := range []Outcome{nil, Bool(false), Fail, Text("PASS"), Text(""), Other(1), Other([]int{1})} {
		s, code := Classify(o, nil)
		if s != StatusFail || code != http.StatusInternalServerError {
			t.Fatalf("Classify(%v) = %s %d, want fail 500", o, s, code)
		}
	}
}

func TestClassify_ErrorOverridesOutcome(t *testing.T) {
	s, code := Classify(Pass, errors.New("OMG"))
	if s != StatusFail || code != http.StatusInternalServerError {
		t.Fatalf("got %s %d, want fail 500", s, code)
	}
}

func TestStatus_HTTPStatus(t *testing.T) {
	if StatusPass.HTTPStatus() != 200 || StatusWarn.HTTPStatus() != 200 || StatusFail.HTTPStatus() != 500 {
		t.Fatal("unexpected status code mapping")
	}
	if Status("bogus").HTTPStatus() != 500 {
		t.Fatal("unknown status should map to 500")
	}
}

func TestOutcomeOf(t *testing.T) {
	if OutcomeOf(nil) != nil {
		t.Fatal("nil should stay absent")
	}
	if OutcomeOf(true) != Bool(true) {
		t.Fatal("bool should lift to Bool")
	}
	if OutcomeOf("warn") != Warn {
		t.Fatal("string should lift to Text")
	}
	if OutcomeOf(Pass) != Pass {
		t.Fatal("Outcome should pass through")
	}
	if s, _ := Classify(OutcomeOf(1), nil); s != StatusFail {
		t.Fatalf("numeric outcome should fail, got %s", s)
	}
}
