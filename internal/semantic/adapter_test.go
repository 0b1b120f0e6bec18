package semantic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/gzhole/intentguard/internal/intent"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeBackend struct {
	available bool
	out       string
	err       error
	block     bool
	calls     int
	prompt    string
}

func (f *fakeBackend) Name() string    { return "fake" }
func (f *fakeBackend) Available() bool { return f.available }

func (f *fakeBackend) Complete(ctx context.Context, system, prompt string) (string, error) {
	f.calls++
	f.prompt = prompt
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.out, f.err
}

func TestAdapter_Unavailable(t *testing.T) {
	fb := &fakeBackend{available: false}
	a := NewAdapter(fb)

	res, err := a.Classify(context.Background(), intent.NewRequest("fix the login bug"))
	if res != nil {
		t.Errorf("expected no result, got %+v", res)
	}
	var ae *AdapterError
	if !errors.As(err, &ae) || ae.Kind != KindUnavailable {
		t.Fatalf("expected unavailable adapter error, got %v", err)
	}
	if !errors.Is(err, ErrUnavailable) {
		t.Error("expected error to wrap ErrUnavailable")
	}
	if fb.calls != 0 {
		t.Errorf("backend must not be invoked when unavailable, got %d calls", fb.calls)
	}
}

func TestAdapter_NilBackend(t *testing.T) {
	a := NewAdapter(nil)
	if a.Available() {
		t.Error("nil backend must not be available")
	}
	if _, err := a.Classify(context.Background(), intent.NewRequest("x")); err == nil {
		t.Error("expected error for nil backend")
	}
}

func TestAdapter_Timeout(t *testing.T) {
	fb := &fakeBackend{available: true, block: true}
	a := NewAdapter(fb, WithTimeout(50*time.Millisecond))

	start := time.Now()
	res, err := a.Classify(context.Background(), intent.NewRequest("refactor the parser"))
	elapsed := time.Since(start)

	if res != nil {
		t.Errorf("expected no partial result on timeout, got %+v", res)
	}
	var ae *AdapterError
	if !errors.As(err, &ae) || ae.Kind != KindTimeout {
		t.Fatalf("expected timeout adapter error, got %v", err)
	}
	if elapsed > 2*time.Second {
		t.Errorf("timeout not enforced, took %v", elapsed)
	}

	// The next call is not affected by the previous timeout.
	fb.block = false
	fb.out = `{"primary_intent":"refactor","confidence":0.9}`
	res, err = a.Classify(context.Background(), intent.NewRequest("refactor the parser"))
	if err != nil || res == nil {
		t.Fatalf("expected success after a timed out call, got %v", err)
	}
}

func TestAdapter_ParentCanceled(t *testing.T) {
	fb := &fakeBackend{available: true, block: true}
	a := NewAdapter(fb, WithTimeout(5*time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := a.Classify(ctx, intent.NewRequest("debug this"))
	var ae *AdapterError
	if !errors.As(err, &ae) || ae.Kind != KindCanceled {
		t.Fatalf("expected canceled adapter error, got %v", err)
	}
}

func TestAdapter_BackendFailureAndMalformed(t *testing.T) {
	tests := []struct {
		name string
		fb   *fakeBackend
		want Kind
	}{
		{"non-zero exit", &fakeBackend{available: true, err: fmt.Errorf("claude failed: exit status 1")}, KindFailed},
		{"unavailable at call time", &fakeBackend{available: true, err: fmt.Errorf("claude: %w", ErrUnavailable)}, KindUnavailable},
		{"malformed output", &fakeBackend{available: true, out: "not json"}, KindMalformed},
		{"schema violation", &fakeBackend{available: true, out: `{"primary_intent":"debug","confidence":7}`}, KindMalformed},
		{"unknown intent", &fakeBackend{available: true, out: `{"primary_intent":"bugfix","confidence":0.92}`}, KindMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := NewAdapter(tt.fb).Classify(context.Background(), intent.NewRequest("x"))
			if res != nil {
				t.Errorf("expected no result, got %+v", res)
			}
			var ae *AdapterError
			if !errors.As(err, &ae) {
				t.Fatalf("expected AdapterError, got %v", err)
			}
			if ae.Kind != tt.want {
				t.Errorf("expected kind %s, got %s", tt.want, ae.Kind)
			}
		})
	}
}

func TestAdapter_PromptIsRedacted(t *testing.T) {
	fb := &fakeBackend{available: true, out: `{"primary_intent":"debug","confidence":0.9}`}
	req := intent.NewRequest("login fails with api_key=abcdef0123456789abcdef set, why?")

	if _, err := NewAdapter(fb).Classify(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(fb.prompt, "abcdef0123456789abcdef") {
		t.Errorf("credential reached the backend: %q", fb.prompt)
	}
	if !strings.Contains(fb.prompt, "login fails with") || !strings.Contains(fb.prompt, "[REDACTED]") {
		t.Errorf("unexpected prompt %q", fb.prompt)
	}
}

func TestAdapter_GateRejectsQuestionAndGeneral(t *testing.T) {
	for _, primary := range []string{"question", "general", "Question"} {
		fb := &fakeBackend{available: true, out: fmt.Sprintf(`{"primary_intent":%q,"confidence":0.99}`, primary)}
		res, err := NewAdapter(fb).Classify(context.Background(), intent.NewRequest("what is a monad?"))
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", primary, err)
		}
		if res != nil {
			t.Errorf("%s: expected gate rejection, got %+v", primary, res)
		}
	}
}

func TestAdapter_Accepted(t *testing.T) {
	fb := &fakeBackend{
		available: true,
		out:       `{"primary_intent":"debug","confidence":0.75,"recommended_agents":["debug-investigation"]}`,
	}
	res, err := NewAdapter(fb, WithConfidenceFloor(0.7)).Classify(context.Background(), intent.NewRequest("it crashes"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res == nil {
		t.Fatal("expected an accepted result")
	}
	if res.Source != intent.SourceSemantic || res.Category != intent.CategoryDebug {
		t.Errorf("unexpected result: %+v", res)
	}
	if res.Target != "debug-investigation" {
		t.Errorf("expected recommended target, got %q", res.Target)
	}
}

func TestGate_Boundary(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	properties.Property("floor is accepted, floor-0.01 is rejected", prop.ForAll(
		func(hundredths int) bool {
			floor := float64(hundredths) / 100
			at := Response{PrimaryIntent: "feature", Confidence: floor}
			below := Response{PrimaryIntent: "feature", Confidence: floor - 0.01}
			return Gate(at, floor) && !Gate(below, floor)
		},
		gen.IntRange(1, 100),
	))

	properties.TestingRun(t)

	if !Gate(Response{PrimaryIntent: "debug", Confidence: 0.60}, DefaultConfidenceFloor) {
		t.Error("expected default floor to accept 0.60")
	}
	if Gate(Response{PrimaryIntent: "debug", Confidence: 0.59}, DefaultConfidenceFloor) {
		t.Error("expected default floor to reject 0.59")
	}
}
