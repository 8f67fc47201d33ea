package invariant

import (
	"errors"
	"strings"
	"testing"
)

func TestCheckPassesSilently(t *testing.T) {
	Check(true, "never raised")
}

func TestCheckPanicsWithViolation(t *testing.T) {
	defer func() {
		r := recover()
		v, ok := r.(*Violation)
		if !ok {
			t.Fatalf("recovered %T, want *Violation", r)
		}
		if !strings.Contains(v.Error(), "vertex 7") {
			t.Errorf("message = %q, want it to mention vertex 7", v.Error())
		}
		if !strings.Contains(v.StackTrace(), "invariant_test.go") {
			t.Error("stack trace should include the raising test file")
		}
	}()
	Check(false, "vertex %d does not exist", 7)
}

func TestRecoverConvertsViolation(t *testing.T) {
	run := func() (err error) {
		defer Recover(&err)
		Fail("mesh %d already exists", 3)
		return nil
	}
	err := run()
	if err == nil {
		t.Fatal("expected error from recovered violation")
	}
	var v *Violation
	if !errors.As(err, &v) {
		t.Errorf("error %v does not wrap *Violation", err)
	}
}

func TestRecoverRepanicsForeignValues(t *testing.T) {
	defer func() {
		if r := recover(); r != "boom" {
			t.Errorf("recovered %v, want boom", r)
		}
	}()
	func() {
		var err error
		defer Recover(&err)
		panic("boom")
	}()
}
