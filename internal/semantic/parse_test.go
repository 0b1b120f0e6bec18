package semantic

import (
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantIntent string
		wantConf   float64
		wantErr    string
	}{
		{
			name:       "bare object",
			raw:        `{"primary_intent": "debug", "confidence": 0.82}`,
			wantIntent: "debug",
			wantConf:   0.82,
		},
		{
			name:       "intent is lowercased",
			raw:        `{"primary_intent": " Refactor ", "confidence": 0.7}`,
			wantIntent: "refactor",
			wantConf:   0.7,
		},
		{
			name:       "cli envelope with fenced text",
			raw:        `{"type":"result","is_error":false,"result":"` + "```json\\n" + `{\"primary_intent\":\"feature\",\"confidence\":0.9,\"tdd_mode\":true}` + "\\n```" + `"}`,
			wantIntent: "feature",
			wantConf:   0.9,
		},
		{
			name:       "envelope with content blocks",
			raw:        `{"result":{"content":[{"type":"text","text":"{\"primary_intent\":\"review\",\"confidence\":0.65}"}]}}`,
			wantIntent: "review",
			wantConf:   0.65,
		},
		{
			name:       "object embedded in prose",
			raw:        `Sure! {"primary_intent":"docs","confidence":1} hope that helps`,
			wantIntent: "docs",
			wantConf:   1,
		},
		{
			name:    "empty",
			raw:     "   ",
			wantErr: "empty response",
		},
		{
			name:    "no json",
			raw:     "I think this is a debugging task.",
			wantErr: "no JSON object",
		},
		{
			name:    "envelope error flag",
			raw:     `{"type":"result","is_error":true,"result":"rate limited"}`,
			wantErr: "reported an error",
		},
		{
			name:    "envelope error object",
			raw:     `{"error":{"type":"overloaded_error","message":"Overloaded"}}`,
			wantErr: "Overloaded",
		},
		{
			name:    "confidence above one",
			raw:     `{"primary_intent":"debug","confidence":1.5}`,
			wantErr: "schema validation failed",
		},
		{
			name:    "confidence as string",
			raw:     `{"primary_intent":"debug","confidence":"high"}`,
			wantErr: "schema validation failed",
		},
		{
			name:    "missing intent",
			raw:     `{"confidence":0.9}`,
			wantErr: "schema validation failed",
		},
		{
			name:    "agents not strings",
			raw:     `{"primary_intent":"debug","confidence":0.9,"recommended_agents":[1,2]}`,
			wantErr: "schema validation failed",
		},
		{
			name:    "intent outside the vocabulary",
			raw:     `{"primary_intent":"bugfix","confidence":0.92}`,
			wantErr: `unknown primary_intent "bugfix"`,
		},
		{
			name:    "truncated object",
			raw:     `{"primary_intent":"debug","confidence":`,
			wantErr: "invalid JSON",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := Parse(tt.raw)
			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("expected error containing %q, got response %+v", tt.wantErr, resp)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if resp.PrimaryIntent != tt.wantIntent {
				t.Errorf("expected intent %q, got %q", tt.wantIntent, resp.PrimaryIntent)
			}
			if resp.Confidence != tt.wantConf {
				t.Errorf("expected confidence %.2f, got %.2f", tt.wantConf, resp.Confidence)
			}
		})
	}
}

func TestParse_OptionalFields(t *testing.T) {
	resp, err := Parse(`{"primary_intent":"feature","confidence":0.8,"recommended_agents":["","tdd-development"],"tdd_mode":true}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res := resp.Result()
	if !res.TDD {
		t.Error("expected tdd flag")
	}
	if res.Target != "tdd-development" {
		t.Errorf("expected first non-empty agent as target, got %q", res.Target)
	}
}
