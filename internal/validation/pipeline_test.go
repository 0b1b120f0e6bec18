package validation

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeChecker struct {
	name      string
	available bool
	exts      []string
	status    Status
	delay     time.Duration
	calls     atomic.Int32
	got       []string
}

func (f *fakeChecker) Name() string    { return f.name }
func (f *fakeChecker) Available() bool { return f.available }

func (f *fakeChecker) Applies(file string) bool {
	if len(f.exts) == 0 {
		return true
	}
	for _, e := range f.exts {
		if strings.HasSuffix(file, e) {
			return true
		}
	}
	return false
}

func (f *fakeChecker) Check(ctx context.Context, files []string) Result {
	f.calls.Add(1)
	f.got = files
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
		}
	}
	return Result{Status: f.status, Diagnostics: f.name + " output"}
}

func TestValidate_UnavailableTypecheckerFailingLinter(t *testing.T) {
	typecheck := &fakeChecker{name: "typecheck", available: false, status: StatusPass}
	lint := &fakeChecker{name: "lint", available: true, status: StatusFail}
	analyze := &fakeChecker{name: "analyze", available: true, status: StatusPass}

	run := NewPipeline([]Checker{typecheck, lint, analyze}).Validate(context.Background(), []string{"app.py"})

	if run.Overall != StatusFail {
		t.Fatalf("expected overall fail, got %s", run.Overall)
	}
	want := []Status{StatusSkipped, StatusFail, StatusPass}
	for i, r := range run.Results {
		if r.Status != want[i] {
			t.Errorf("result %d (%s): expected %s, got %s", i, r.Name, want[i], r.Status)
		}
	}
	if run.Results[0].Diagnostics != "not installed" {
		t.Errorf("expected not installed diagnostic, got %q", run.Results[0].Diagnostics)
	}
	if typecheck.calls.Load() != 0 {
		t.Error("unavailable checker must not run")
	}
	if run.ID == "" {
		t.Error("expected a run id")
	}
	if got := run.Failed(); len(got) != 1 || got[0].Name != "lint" {
		t.Errorf("expected only lint to fail, got %+v", got)
	}
}

func TestValidate_AllSkippedPasses(t *testing.T) {
	c := &fakeChecker{name: "lint", available: true, exts: []string{".py"}, status: StatusFail}
	run := NewPipeline([]Checker{c}).Validate(context.Background(), []string{"README.md"})

	if run.Overall != StatusPass {
		t.Errorf("expected pass when nothing applies, got %s", run.Overall)
	}
	if run.Results[0].Status != StatusSkipped {
		t.Errorf("expected skipped, got %s", run.Results[0].Status)
	}
}

func TestValidate_OnlyApplicableFilesPassed(t *testing.T) {
	c := &fakeChecker{name: "lint", available: true, exts: []string{".py"}, status: StatusPass}
	NewPipeline([]Checker{c}).Validate(context.Background(), []string{"a.py", "b.go", "c.py"})

	if len(c.got) != 2 || c.got[0] != "a.py" || c.got[1] != "c.py" {
		t.Errorf("expected only python files, got %v", c.got)
	}
}

func TestValidate_ParallelKeepsOrder(t *testing.T) {
	slow := &fakeChecker{name: "slow", available: true, status: StatusFail, delay: 80 * time.Millisecond}
	mid := &fakeChecker{name: "mid", available: true, status: StatusPass, delay: 40 * time.Millisecond}
	fast := &fakeChecker{name: "fast", available: true, status: StatusPass}

	run := NewPipeline([]Checker{slow, mid, fast}, WithParallel(true)).Validate(context.Background(), []string{"x.py"})

	names := []string{run.Results[0].Name, run.Results[1].Name, run.Results[2].Name}
	if strings.Join(names, ",") != "slow,mid,fast" {
		t.Errorf("expected fixed order, got %v", names)
	}
	if run.Overall != StatusFail {
		t.Errorf("expected fail, got %s", run.Overall)
	}
}

func TestValidate_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := &fakeChecker{name: "lint", available: true, status: StatusFail}

	run := NewPipeline([]Checker{c}).Validate(ctx, []string{"x.py"})
	if run.Results[0].Status != StatusSkipped || c.calls.Load() != 0 {
		t.Errorf("expected canceled checker to be skipped, got %+v", run.Results[0])
	}
}

func TestApplicable(t *testing.T) {
	p := NewPipeline([]Checker{
		&fakeChecker{name: "py", exts: []string{".py"}},
		&fakeChecker{name: "go", exts: []string{".go"}},
	})
	if !p.Applicable([]string{"README.md", "main.go"}) {
		t.Error("expected go file to be applicable")
	}
	if p.Applicable([]string{"README.md"}) {
		t.Error("expected markdown to be inapplicable")
	}
	if p.Applicable(nil) {
		t.Error("expected empty file list to be inapplicable")
	}
}

func TestFromSpecs(t *testing.T) {
	p, err := FromSpecs(DefaultSpecs())
	if err != nil {
		t.Fatalf("default specs: %v", err)
	}
	var names []string
	for _, c := range p.Checkers() {
		names = append(names, c.Name())
	}
	if strings.Join(names, ",") != "typecheck,lint,analyze" {
		t.Errorf("unexpected order %v", names)
	}

	_, err = FromSpecs([]Spec{{Name: "a", Command: "x"}, {Name: "a", Command: "y"}})
	if err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("expected duplicate error, got %v", err)
	}
	_, err = FromSpecs([]Spec{{Name: "a", Command: "x", Criterion: "vibes"}})
	if err == nil {
		t.Error("expected unknown criterion error")
	}
	_, err = FromSpecs([]Spec{{Name: "a"}})
	if err == nil {
		t.Error("expected missing command error")
	}
}
