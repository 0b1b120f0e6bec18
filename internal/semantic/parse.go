package semantic

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gzhole/intentguard/internal/intent"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const responseSchemaURL = "https://intentguard.local/schemas/classification.schema.json"

const responseSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["primary_intent", "confidence"],
  "properties": {
    "primary_intent": {"type": "string", "minLength": 1},
    "confidence": {"type": "number", "minimum": 0, "maximum": 1},
    "recommended_agents": {"type": "array", "items": {"type": "string"}},
    "tdd_mode": {"type": "boolean"},
    "reasoning": {"type": "string"}
  }
}`

var responseSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(responseSchemaURL, strings.NewReader(responseSchemaJSON)); err != nil {
		panic(fmt.Sprintf("classification schema load failed: %v", err))
	}
	schema, err := c.Compile(responseSchemaURL)
	if err != nil {
		panic(fmt.Sprintf("classification schema compile failed: %v", err))
	}
	return schema
}

// cliEnvelope is the `claude --output-format json` wrapper. Result is
// either the assistant text or an object with content blocks.
type cliEnvelope struct {
	Type    string          `json:"type"`
	IsError bool            `json:"is_error"`
	Result  json.RawMessage `json:"result"`
	Error   *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Parse turns raw backend output into a validated Response. It accepts a
// bare classification object, a CLI envelope around it, and text with the
// object embedded (including fenced code blocks).
func Parse(raw string) (Response, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Response{}, errors.New("empty response")
	}

	text, err := unwrapEnvelope(raw)
	if err != nil {
		return Response{}, err
	}

	obj, err := extractObject(text)
	if err != nil {
		return Response{}, err
	}

	var doc interface{}
	if err := json.Unmarshal(obj, &doc); err != nil {
		return Response{}, fmt.Errorf("invalid JSON: %w (raw: %s)", err, truncateString(string(obj), 200))
	}
	if err := responseSchema.Validate(doc); err != nil {
		return Response{}, fmt.Errorf("schema validation failed: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(obj, &resp); err != nil {
		return Response{}, fmt.Errorf("invalid classification: %w", err)
	}
	resp.PrimaryIntent = strings.ToLower(strings.TrimSpace(resp.PrimaryIntent))
	if !intent.Category(resp.PrimaryIntent).Known() {
		return Response{}, fmt.Errorf("unknown primary_intent %q", resp.PrimaryIntent)
	}
	return resp, nil
}

func unwrapEnvelope(raw string) (string, error) {
	if !strings.HasPrefix(raw, "{") {
		return raw, nil
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &probe); err != nil {
		return raw, nil
	}
	if _, ok := probe["primary_intent"]; ok {
		return raw, nil
	}
	if _, ok := probe["result"]; !ok {
		if _, hasErr := probe["error"]; !hasErr {
			return raw, nil
		}
	}

	var env cliEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return "", fmt.Errorf("invalid envelope: %w", err)
	}
	if env.Error != nil {
		return "", fmt.Errorf("classifier error: %s (type: %s)", env.Error.Message, env.Error.Type)
	}
	if env.IsError {
		return "", fmt.Errorf("classifier reported an error: %s", truncateString(string(env.Result), 200))
	}

	result := bytes.TrimSpace(env.Result)
	if len(result) == 0 {
		return "", errors.New("envelope has no result")
	}

	var s string
	if err := json.Unmarshal(result, &s); err == nil {
		return s, nil
	}

	var blocks struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(result, &blocks); err == nil && len(blocks.Content) > 0 {
		var sb strings.Builder
		for _, c := range blocks.Content {
			if c.Type == "text" {
				sb.WriteString(c.Text)
			}
		}
		return sb.String(), nil
	}

	return string(result), nil
}

// extractObject returns the first complete JSON object in text.
func extractObject(text string) ([]byte, error) {
	start := strings.Index(text, "{")
	if start < 0 {
		return nil, fmt.Errorf("no JSON object in response (raw: %s)", truncateString(text, 200))
	}

	dec := json.NewDecoder(strings.NewReader(text[start:]))
	var obj json.RawMessage
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w (raw: %s)", err, truncateString(text, 200))
	}
	return obj, nil
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
