package expr

import (
	"math"
	"testing"
)

func eval(t *testing.T, src string, vars Vars) float64 {
	t.Helper()
	prog, errs, _ := Compile(src)
	if len(errs) != 0 {
		t.Fatalf("Compile(%q) errors: %v", src, errs)
	}
	return prog.Eval(vars)
}

func TestArithmeticPrecedence(t *testing.T) {
	got := eval(t, "2 + 3 * 4", Vars{})
	if got != 14 {
		t.Errorf("2 + 3 * 4 = %v, want 14", got)
	}
}

func TestParensOverridePrecedence(t *testing.T) {
	got := eval(t, "(2 + 3) * 4", Vars{})
	if got != 20 {
		t.Errorf("(2 + 3) * 4 = %v, want 20", got)
	}
}

func TestVariables(t *testing.T) {
	got := eval(t, "x + t * dt", Vars{X: 1, T: 2, DT: 3})
	if got != 7 {
		t.Errorf("x + t*dt = %v, want 7", got)
	}
}

func TestFunctions(t *testing.T) {
	got := eval(t, "sin(0) + cos(0)", Vars{})
	if math.Abs(got-1) > 1e-9 {
		t.Errorf("sin(0)+cos(0) = %v, want 1", got)
	}
	got = eval(t, "clamp(5, 0, 1)", Vars{})
	if got != 1 {
		t.Errorf("clamp(5,0,1) = %v, want 1", got)
	}
}

func TestUnaryMinus(t *testing.T) {
	got := eval(t, "-x + 2", Vars{X: 5})
	if got != -3 {
		t.Errorf("-x+2 = %v, want -3", got)
	}
}

func TestCompileRejectsMalformed(t *testing.T) {
	_, errs, _ := Compile("x + * 2")
	if len(errs) == 0 {
		t.Errorf("expected errors compiling malformed expression")
	}
}

func TestCompileWarnsOnNoVariables(t *testing.T) {
	_, errs, warnings := Compile("1 + 2")
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(warnings) == 0 {
		t.Errorf("expected a warning for a constant expression")
	}
}

func TestPowerOperator(t *testing.T) {
	got := eval(t, "2 ^ 3", Vars{})
	if got != 8 {
		t.Errorf("2^3 = %v, want 8", got)
	}
}
