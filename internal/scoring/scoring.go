// Package scoring is the last classifier stage: weighted keyword scoring
// across the workflow categories, used only when neither the rule table nor
// the semantic classifier produced a decision.
//
// Each category accumulates points from independent signal groups. A group
// contributes its weight once if any of its patterns matches, so repeating a
// word does not inflate the score.
package scoring

import (
	"regexp"
	"strings"

	"github.com/gzhole/intentguard/internal/intent"
)

const (
	DefaultMinScore    = 4
	DefaultTDDMinScore = 3
)

// Weights for signal groups.
const (
	weightGeneric = 1
	weightPhrase  = 2
	weightStrong  = 4
)

// tieOrder is the fixed tie-break order, most urgent first.
var tieOrder = []intent.Category{intent.CategoryDebug, intent.CategoryRefactor, intent.CategoryFeature}

// Scorer is the scored fallback matcher. It is immutable and safe for
// concurrent use.
type Scorer struct {
	minScore    int
	tddMinScore int
	groups      map[intent.Category][]signalGroup
	tddGroups   []signalGroup
}

type signalGroup struct {
	id       string
	weight   int
	patterns []*regexp.Regexp
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithMinScore sets the minimum winning score for an accepted result.
func WithMinScore(n int) Option {
	return func(s *Scorer) {
		if n > 0 {
			s.minScore = n
		}
	}
}

// WithTDDMinScore sets the threshold for the tdd_mode signal.
func WithTDDMinScore(n int) Option {
	return func(s *Scorer) {
		if n > 0 {
			s.tddMinScore = n
		}
	}
}

// New returns a scorer with the built-in signal groups.
func New(opts ...Option) *Scorer {
	s := &Scorer{
		minScore:    DefaultMinScore,
		tddMinScore: DefaultTDDMinScore,
		groups: map[intent.Category][]signalGroup{
			intent.CategoryDebug:    debugGroups,
			intent.CategoryRefactor: refactorGroups,
			intent.CategoryFeature:  featureGroups,
		},
		tddGroups: tddGroups,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Breakdown is the full scoring detail for one request.
type Breakdown struct {
	Scores   map[intent.Category]int
	TDDScore int
	Winner   intent.Category
	Signals  []string
}

// Explain scores every category without applying the threshold.
func (s *Scorer) Explain(text string) Breakdown {
	lower := strings.ToLower(text)
	b := Breakdown{Scores: make(map[intent.Category]int, len(tieOrder)), Winner: intent.CategoryNone}

	best := 0
	for _, cat := range tieOrder {
		score := 0
		for _, g := range s.groups[cat] {
			if matchesAnyPattern(lower, g.patterns) {
				score += g.weight
				b.Signals = append(b.Signals, string(cat)+":"+g.id)
			}
		}
		b.Scores[cat] = score
		// Strictly greater: earlier categories in tieOrder keep ties.
		if score > best {
			best = score
			b.Winner = cat
		}
	}

	for _, g := range s.tddGroups {
		if matchesAnyPattern(lower, g.patterns) {
			b.TDDScore += g.weight
			b.Signals = append(b.Signals, "tdd:"+g.id)
		}
	}
	return b
}

// Score classifies the request. The result is none unless the winning
// category reaches the minimum score. The tdd flag is attached either way.
func (s *Scorer) Score(req intent.Request) intent.Result {
	b := s.Explain(req.MatchText())
	tdd := b.TDDScore >= s.tddMinScore

	if b.Winner == intent.CategoryNone || b.Scores[b.Winner] < s.minScore {
		res := intent.None()
		res.TDD = tdd
		res.Signals = b.Signals
		return res
	}

	score := b.Scores[b.Winner]
	confidence := float64(score) / float64(2*s.minScore)
	if confidence > 1 {
		confidence = 1
	}
	return intent.Result{
		Source:     intent.SourceScored,
		Category:   b.Winner,
		Confidence: confidence,
		TDD:        tdd,
		Signals:    b.Signals,
	}
}

// ---------------------------------------------------------------------------
// Signal groups
// ---------------------------------------------------------------------------

var debugGroups = []signalGroup{
	{id: "generic", weight: weightGeneric, patterns: compilePatterns([]string{
		`\b(fix|check|look at|wrong|issue|problem)\b`,
	})},
	{id: "failure-words", weight: weightPhrase, patterns: compilePatterns([]string{
		`\b(bug|error|errors|crash(es|ed|ing)?|broken|fail(s|ed|ing)?|failure|exception)\b`,
		`\b(doesn'?t|does not|isn'?t|not) work(ing)?\b`,
	})},
	{id: "investigation", weight: weightPhrase, patterns: compilePatterns([]string{
		`\b(debug|investigate|diagnose|troubleshoot|root cause|regression)\b`,
	})},
	{id: "stack-trace", weight: weightStrong, patterns: compilePatterns([]string{
		`\b\w+(error|exception)\b:`,
		`\btraceback \(most recent call last\)`,
		`\bpanic:`,
		`\bat \S+\.(js|ts|java|py|go|rb):\d+`,
		`\bline \d+\b`,
		`\b(segmentation fault|segfault|core dumped|stack trace|stacktrace|nil pointer|null pointer|undefined is not)\b`,
	})},
}

var refactorGroups = []signalGroup{
	{id: "generic", weight: weightGeneric, patterns: compilePatterns([]string{
		`\b(clean|improve|simplify|rename|move|split|reorganize)\b`,
	})},
	{id: "quality-words", weight: weightPhrase, patterns: compilePatterns([]string{
		`\b(readab(le|ility)|maintainab(le|ility)|duplicat(e|ed|ion)|messy|complex(ity)?|coupling|dead code)\b`,
	})},
	{id: "refactor-phrases", weight: weightStrong, patterns: compilePatterns([]string{
		`\brefactor(ing|ed)?\b`,
		`\brestructur(e|ing)\b`,
		`\bextract (a |the )?(method|function|class|interface|module)\b`,
		`\b(reduce|remove) (code )?duplication\b`,
		`\btech(nical)? debt\b`,
		`\bdecoupl(e|ing)\b`,
	})},
}

var featureGroups = []signalGroup{
	{id: "generic", weight: weightGeneric, patterns: compilePatterns([]string{
		`\b(add|create|make|build|write|new)\b`,
	})},
	{id: "artifact-words", weight: weightPhrase, patterns: compilePatterns([]string{
		`\b(endpoint|component|page|screen|button|form|api|feature|command|option|flag|integration|support)\b`,
	})},
	{id: "feature-phrases", weight: weightStrong, patterns: compilePatterns([]string{
		`\b(implement|introduce)\b`,
		`\bnew feature\b`,
		`\badd (support|an? option|an? endpoint|an? command) for\b`,
		`\b(build|create) (a|an|the) new\b`,
		`\ballow (users|the user|us) to\b`,
	})},
}

var tddGroups = []signalGroup{
	{id: "explicit", weight: weightStrong, patterns: compilePatterns([]string{
		`\btdd\b`,
		`\btest[- ]driven\b`,
		`\btests? first\b`,
		`\bred[- ]green\b`,
	})},
	{id: "test-phrases", weight: weightPhrase, patterns: compilePatterns([]string{
		`\b(failing|unit|integration) tests?\b`,
		`\btest coverage\b`,
	})},
	{id: "test-words", weight: weightGeneric, patterns: compilePatterns([]string{
		`\btests?\b`,
		`\bspecs?\b`,
	})},
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func compilePatterns(patterns []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		compiled[i] = regexp.MustCompile(p)
	}
	return compiled
}

func matchesAnyPattern(s string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}
