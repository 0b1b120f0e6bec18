package router

import (
	"testing"

	"github.com/gzhole/intentguard/internal/intent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func result(c intent.Category, conf float64) intent.Result {
	return intent.Result{Source: intent.SourcePattern, Category: c, Confidence: conf}
}

func TestRoute_NoneStaysNone(t *testing.T) {
	for _, th := range []Threshold{ThresholdLow, ThresholdMedium, ThresholdHigh} {
		d := Route(intent.None(), th)
		assert.True(t, d.IsNone(), "threshold %s", th)
		assert.Empty(t, d.TargetID)
	}
}

func TestRoute_UnknownCategory(t *testing.T) {
	d := Route(result("astrology", 1.0), ThresholdHigh)
	assert.True(t, d.IsNone())
	assert.Equal(t, "unknown category", d.Payload.Filtered)
}

func TestRoute_TargetTable(t *testing.T) {
	tests := []struct {
		category intent.Category
		tdd      bool
		wantType DecisionType
		wantID   string
	}{
		{intent.CategoryFileSearch, false, TypeUtility, "file-search"},
		{intent.CategoryCodeSearch, false, TypeUtility, "code-search"},
		{intent.CategoryTestRun, false, TypeUtility, "test-runner"},
		{intent.CategoryDependency, false, TypeUtility, "dependency-auditor"},
		{intent.CategoryDocsLookup, false, TypeUtility, "docs-lookup"},
		{intent.CategoryGitHistory, false, TypeUtility, "git-historian"},
		{intent.CategoryFeature, false, TypeWorkflow, "feature-development"},
		{intent.CategoryFeature, true, TypeWorkflow, "tdd-development"},
		{intent.CategoryDebug, false, TypeWorkflow, "debug-investigation"},
		{intent.CategoryRefactor, false, TypeWorkflow, "refactor-safely"},
		{intent.CategoryReview, false, TypeWorkflow, "code-review"},
		{intent.CategoryTest, false, TypeWorkflow, "test-authoring"},
		{intent.CategoryDocs, false, TypeWorkflow, "docs-writing"},
	}

	for _, tt := range tests {
		res := result(tt.category, 1.0)
		res.TDD = tt.tdd
		d := Route(res, ThresholdHigh)
		assert.Equal(t, tt.wantType, d.Type, "category %s", tt.category)
		assert.Equal(t, tt.wantID, d.TargetID, "category %s", tt.category)
		assert.Equal(t, tt.category, d.Payload.Category)
	}
}

func TestRoute_RecommendedTarget(t *testing.T) {
	res := result(intent.CategoryFeature, 0.9)
	res.Target = "tdd-development"
	d := Route(res, ThresholdHigh)
	assert.Equal(t, "tdd-development", d.TargetID)

	res.Target = "made-up-agent"
	d = Route(res, ThresholdHigh)
	assert.Equal(t, "feature-development", d.TargetID, "unknown recommendation must be ignored")

	// A utility recommendation cannot turn a workflow category into a utility.
	res.Target = "file-search"
	d = Route(res, ThresholdHigh)
	assert.Equal(t, TypeWorkflow, d.Type)
	assert.Equal(t, "feature-development", d.TargetID)
}

func TestRoute_AnnoyanceThreshold(t *testing.T) {
	tests := []struct {
		name      string
		category  intent.Category
		conf      float64
		threshold Threshold
		routed    bool
	}{
		{"low passes high urgency", intent.CategoryDebug, 0.6, ThresholdLow, true},
		{"low blocks medium urgency", intent.CategoryFeature, 0.99, ThresholdLow, false},
		{"low blocks low urgency", intent.CategoryReview, 1.0, ThresholdLow, false},
		{"medium passes medium urgency", intent.CategoryRefactor, 0.6, ThresholdMedium, true},
		{"medium blocks unsure low urgency", intent.CategoryDocs, 0.84, ThresholdMedium, false},
		{"medium passes confident low urgency", intent.CategoryDocs, 0.85, ThresholdMedium, true},
		{"high passes everything", intent.CategoryReview, 0.1, ThresholdHigh, true},
		{"unknown threshold acts as medium", intent.CategoryReview, 0.5, "loud", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Route(result(tt.category, tt.conf), tt.threshold)
			assert.Equal(t, tt.routed, !d.IsNone())
			if !tt.routed {
				assert.Contains(t, d.Payload.Filtered, "annoyance threshold")
			}
		})
	}
}

func TestRender(t *testing.T) {
	res := result(intent.CategoryFileSearch, 1.0)
	d := Route(res, ThresholdMedium)
	require.False(t, d.IsNone())

	suggest, ok := Render(d, ModeSuggest)
	require.True(t, ok)
	assert.False(t, suggest.SuppressOutput)
	assert.Contains(t, suggest.SystemMessage, "file-search")
	assert.Contains(t, suggest.SystemMessage, "file search request")

	inject, ok := Render(d, ModeInject)
	require.True(t, ok)
	assert.True(t, inject.SuppressOutput)
	assert.Contains(t, inject.SystemMessage, "Route this request to the file-search utility agent")

	_, ok = Render(d, ModeDisabled)
	assert.False(t, ok)

	_, ok = Render(Route(intent.None(), ThresholdHigh), ModeSuggest)
	assert.False(t, ok)
}

func TestRender_TDD(t *testing.T) {
	res := result(intent.CategoryFeature, 1.0)
	res.TDD = true
	d := Route(res, ThresholdMedium)

	out, ok := Render(d, ModeInject)
	require.True(t, ok)
	assert.Contains(t, out.SystemMessage, "tdd-development")
	assert.Contains(t, out.SystemMessage, "failing tests")
}

func TestTargets(t *testing.T) {
	all := Targets()
	assert.Len(t, all, 13)
	assert.Equal(t, TypeWorkflow, all[0].Type)
	assert.True(t, Known("git-historian"))
	assert.False(t, Known("nope"))
	assert.Equal(t, "low", UrgencyOf("unheard-of").String())
}
