package scoring

import (
	"strings"
	"testing"

	"github.com/gzhole/intentguard/internal/intent"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestScore_Categories(t *testing.T) {
	s := New()

	tests := []struct {
		name     string
		prompt   string
		wantCat  intent.Category
		wantTDD  bool
		minScore int
	}{
		{
			name:    "stack trace is strong debug signal",
			prompt:  "the login form crashes with TypeError: cannot read property 'id' of undefined",
			wantCat: intent.CategoryDebug,
		},
		{
			name:    "python traceback",
			prompt:  "Traceback (most recent call last) when I import the module",
			wantCat: intent.CategoryDebug,
		},
		{
			name:    "refactor phrases",
			prompt:  "refactor the payment module to reduce duplication",
			wantCat: intent.CategoryRefactor,
		},
		{
			name:    "feature phrases",
			prompt:  "implement a new endpoint for exporting invoices",
			wantCat: intent.CategoryFeature,
		},
		{
			name:    "feature with tdd",
			prompt:  "implement a new endpoint for exporting invoices, tests first",
			wantCat: intent.CategoryFeature,
			wantTDD: true,
		},
		{
			name:    "generic verb alone stays below threshold",
			prompt:  "make it nicer",
			wantCat: intent.CategoryNone,
		},
		{
			name:    "nothing relevant",
			prompt:  "good morning",
			wantCat: intent.CategoryNone,
		},
		{
			name:    "tdd attached to none result",
			prompt:  "tdd please",
			wantCat: intent.CategoryNone,
			wantTDD: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := s.Score(intent.NewRequest(tt.prompt))
			if res.Category != tt.wantCat {
				t.Errorf("expected category %s, got %s (signals %v)", tt.wantCat, res.Category, res.Signals)
			}
			if res.TDD != tt.wantTDD {
				t.Errorf("expected tdd=%v, got %v", tt.wantTDD, res.TDD)
			}
			if res.IsNone() {
				if res.Source != intent.SourceNone {
					t.Errorf("expected none source, got %s", res.Source)
				}
				return
			}
			if res.Source != intent.SourceScored {
				t.Errorf("expected scored source, got %s", res.Source)
			}
			if res.Confidence <= 0 || res.Confidence > 1 {
				t.Errorf("confidence out of range: %f", res.Confidence)
			}
		})
	}
}

func TestScore_TieBreakOrder(t *testing.T) {
	shared := []signalGroup{{id: "x", weight: 5, patterns: compilePatterns([]string{`\bx\b`})}}

	s := &Scorer{
		minScore:    4,
		tddMinScore: 3,
		groups: map[intent.Category][]signalGroup{
			intent.CategoryDebug:    shared,
			intent.CategoryRefactor: shared,
			intent.CategoryFeature:  shared,
		},
	}
	if got := s.Score(intent.NewRequest("x")).Category; got != intent.CategoryDebug {
		t.Errorf("expected debug to win a three-way tie, got %s", got)
	}

	s.groups[intent.CategoryDebug] = nil
	if got := s.Score(intent.NewRequest("x")).Category; got != intent.CategoryRefactor {
		t.Errorf("expected refactor to beat feature on a tie, got %s", got)
	}
}

func TestScore_ThresholdBoundary(t *testing.T) {
	// "implement" alone scores exactly 4 for feature.
	prompt := "implement"
	if got := New(WithMinScore(4)).Score(intent.NewRequest(prompt)); got.Category != intent.CategoryFeature {
		t.Errorf("expected acceptance at the threshold, got %s", got.Category)
	}
	if got := New(WithMinScore(5)).Score(intent.NewRequest(prompt)); !got.IsNone() {
		t.Errorf("expected rejection one below the threshold, got %s", got.Category)
	}
}

func TestScore_RepetitionDoesNotInflate(t *testing.T) {
	s := New()
	once := s.Explain("fix")
	many := s.Explain("fix fix fix fix fix fix")
	if once.Scores[intent.CategoryDebug] != many.Scores[intent.CategoryDebug] {
		t.Errorf("expected repeated words to count once, got %d vs %d",
			once.Scores[intent.CategoryDebug], many.Scores[intent.CategoryDebug])
	}
}

func TestScore_NeverAcceptsBelowMinimum(t *testing.T) {
	vocab := []string{
		"fix", "bug", "crash", "TypeError:", "panic:", "refactor", "clean", "duplication",
		"add", "implement", "endpoint", "new", "feature", "tests", "tdd", "the", "please",
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	properties.Property("accepted results meet the minimum score", prop.ForAll(
		func(idx []int, min int) bool {
			words := make([]string, len(idx))
			for i, n := range idx {
				words[i] = vocab[n]
			}
			text := strings.Join(words, " ")

			s := New(WithMinScore(min))
			res := s.Score(intent.NewRequest(text))
			if res.IsNone() {
				return true
			}
			return s.Explain(text).Scores[res.Category] >= min
		},
		gen.SliceOf(gen.IntRange(0, len(vocab)-1)),
		gen.IntRange(1, 12),
	))

	properties.Property("scoring is deterministic", prop.ForAll(
		func(idx []int) bool {
			words := make([]string, len(idx))
			for i, n := range idx {
				words[i] = vocab[n]
			}
			req := intent.NewRequest(strings.Join(words, " "))
			a, b := New().Score(req), New().Score(req)
			return a.Category == b.Category && a.Confidence == b.Confidence && a.TDD == b.TDD
		},
		gen.SliceOf(gen.IntRange(0, len(vocab)-1)),
	))

	properties.TestingRun(t)
}
