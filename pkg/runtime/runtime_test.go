package runtime

import (
	"bytes"
	"strings"
	"testing"

	"github.com/MatN23/Nexus-Lang/pkg/diagnostics"
	"github.com/MatN23/Nexus-Lang/pkg/value"
)

func newTestRuntime() (*Runtime, *bytes.Buffer) {
	var buf bytes.Buffer
	rt := New(WithStdout(&buf), WithRandSeed(1))
	return rt, &buf
}

func TestRun(t *testing.T) {
	rt, buf := newTestRuntime()
	err := rt.Run(`var x = 2 + 3; println(x);`, "test.nx")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if buf.String() != "5\n" {
		t.Errorf("output = %q", buf.String())
	}
}

func TestRunReportsDiagnostics(t *testing.T) {
	rt, _ := newTestRuntime()

	err := rt.Run(`var s = "unterminated`, "bad.nx")
	if err == nil {
		t.Fatal("expected a lex error")
	}
	diag := Diagnose(err)
	if diag.Code != diagnostics.ELex {
		t.Errorf("code = %s, want %s", diag.Code, diagnostics.ELex)
	}
	if diag.Pos == nil || diag.Pos.File != "bad.nx" {
		t.Error("diagnostic lost the file position")
	}

	err = rt.Run("println(ghost);", "bad.nx")
	if Diagnose(err).Code != diagnostics.EName {
		t.Errorf("code = %s, want %s", Diagnose(err).Code, diagnostics.EName)
	}
}

func TestStatePersistsAcrossRuns(t *testing.T) {
	rt, buf := newTestRuntime()
	if err := rt.Run("var counter = 1;", "a.nx"); err != nil {
		t.Fatal(err)
	}
	if err := rt.Run("counter = counter + 1; println(counter);", "b.nx"); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "2\n" {
		t.Errorf("output = %q", buf.String())
	}
}

func TestEval(t *testing.T) {
	rt, buf := newTestRuntime()

	v, err := rt.Eval("2 + 3 * 4")
	if err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	if v.(value.Number).Value != 14 {
		t.Errorf("got %v, want 14", v)
	}

	// statements yield nil and update the session
	v, err = rt.Eval("var x = 10;")
	if err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	if _, isNil := v.(value.Nil); !isNil {
		t.Errorf("statement result = %v, want nil", v)
	}
	v, err = rt.Eval("x * 2")
	if err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	if v.(value.Number).Value != 20 {
		t.Errorf("got %v, want 20", v)
	}

	// multi-statement lines run as statements
	if _, err := rt.Eval("println(1); println(2);"); err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	if buf.String() != "1\n2\n" {
		t.Errorf("output = %q", buf.String())
	}

	// assignment expressions yield the assigned value
	v, err = rt.Eval("x = 7")
	if err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	if v.(value.Number).Value != 7 {
		t.Errorf("got %v, want 7", v)
	}
}

func TestEvalErrorKeepsSession(t *testing.T) {
	rt, _ := newTestRuntime()
	if _, err := rt.Eval("var x = 5;"); err != nil {
		t.Fatal(err)
	}
	if _, err := rt.Eval("x + ghost"); err == nil {
		t.Fatal("expected a name error")
	}
	v, err := rt.Eval("x")
	if err != nil {
		t.Fatalf("session lost after error: %v", err)
	}
	if v.(value.Number).Value != 5 {
		t.Errorf("got %v, want 5", v)
	}
}

func TestCheck(t *testing.T) {
	rt, _ := newTestRuntime()

	if diags := rt.Check("var x = 1;", "ok.nx"); len(diags) != 0 {
		t.Errorf("valid source reported %v", diags)
	}

	diags := rt.Check(`var s = "oops`, "bad.nx")
	if len(diags) != 1 || diags[0].Code != diagnostics.ELex {
		t.Errorf("got %v, want one lex error", diags)
	}

	diags = rt.Check("function f() { if (true) { } ", "bad.nx")
	if len(diags) != 1 || diags[0].Code != diagnostics.ESyntax {
		t.Errorf("got %v, want one syntax error", diags)
	}

	diags = rt.Check("var x = (1 + 2];", "bad.nx")
	if len(diags) != 1 || diags[0].Code != diagnostics.ESyntax {
		t.Errorf("got %v, want one syntax error", diags)
	}

	// check never executes
	rtOut, buf := newTestRuntime()
	rtOut.Check(`println("side effect");`, "x.nx")
	if buf.Len() != 0 {
		t.Errorf("Check produced output %q", buf.String())
	}
}

func TestVarsAndLookup(t *testing.T) {
	rt, _ := newTestRuntime()
	if err := rt.Run("var alpha = 1; const beta = 2;", "x.nx"); err != nil {
		t.Fatal(err)
	}
	names := rt.Vars()
	found := 0
	for _, n := range names {
		if n == "alpha" || n == "beta" {
			found++
		}
	}
	if found != 2 {
		t.Errorf("Vars = %v, missing user bindings", names)
	}

	v, err := rt.Lookup("beta")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if v.(value.Number).Value != 2 {
		t.Errorf("beta = %v", v)
	}
}

func TestModels(t *testing.T) {
	rt, _ := newTestRuntime()
	if err := rt.Run("model net = [2, 3, 1];", "x.nx"); err != nil {
		t.Fatal(err)
	}
	names := rt.Models()
	if len(names) != 1 || names[0] != "net" {
		t.Errorf("Models = %v", names)
	}
	summary, err := rt.ModelSummary("net")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(summary, "2 3 1") {
		t.Errorf("summary = %q", summary)
	}
}

func TestReset(t *testing.T) {
	rt, _ := newTestRuntime()
	if err := rt.Run("var x = 1; model m = [2, 1];", "x.nx"); err != nil {
		t.Fatal(err)
	}
	rt.Reset()
	if _, err := rt.Lookup("x"); err == nil {
		t.Error("Reset kept variables")
	}
	if len(rt.Models()) != 0 {
		t.Error("Reset kept models")
	}
	// builtins come back after reset
	if err := rt.Run("println(len([1]));", "y.nx"); err != nil {
		t.Errorf("builtins missing after Reset: %v", err)
	}
}

func TestWithImporter(t *testing.T) {
	var buf bytes.Buffer
	rt := New(WithStdout(&buf), WithImporter(func(path string) (string, error) {
		return "var imported = \"" + path + "\";", nil
	}))
	if err := rt.Run(`import "mod.nx"; println(imported);`, "x.nx"); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "mod.nx\n" {
		t.Errorf("output = %q", buf.String())
	}
}
