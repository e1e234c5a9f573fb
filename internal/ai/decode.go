package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/xeipuuv/gojsonschema"

	"github.com/devprep/feedback-engine/internal/evalerr"
)

// DecodeStructured turns a raw model response into the typed target.
// It extracts the outermost JSON object, decodes it with weak typing
// (models occasionally stringify numbers), then validates the decoded
// value against the schema. Every failure carries the parse kind so
// callers can tell a bad response from a transport problem.
func DecodeStructured(raw string, schema []byte, out any) error {
	doc := ExtractJSON(raw)
	if doc == "" {
		return evalerr.Newf(evalerr.KindParseFailed, "no JSON object in model response")
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(doc), &payload); err != nil {
		return evalerr.New(evalerr.KindParseFailed, fmt.Errorf("parse model response: %w", err))
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("build decoder: %w", err)
	}
	if err := decoder.Decode(payload); err != nil {
		return evalerr.New(evalerr.KindParseFailed, fmt.Errorf("decode model response: %w", err))
	}

	if len(schema) > 0 {
		if err := validateAgainstSchema(schema, out); err != nil {
			return evalerr.New(evalerr.KindParseFailed, err)
		}
	}

	return nil
}

func validateAgainstSchema(schema []byte, decoded any) error {
	doc, err := json.Marshal(decoded)
	if err != nil {
		return fmt.Errorf("marshal decoded response: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schema),
		gojsonschema.NewBytesLoader(doc),
	)
	if err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	if result.Valid() {
		return nil
	}

	var b strings.Builder
	b.WriteString("model response violates schema:")
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		fmt.Fprintf(&b, " %s: %s;", field, desc.Description())
	}

	return fmt.Errorf("%s", strings.TrimSuffix(b.String(), ";"))
}

// ExtractJSON returns the outermost JSON object in raw, tolerating
// markdown code fences and prose around the object. Braces inside
// quoted strings are skipped.
func ExtractJSON(raw string) string {
	raw = stripFences(raw)

	start := -1
	depth := 0
	inString := false
	escaped := false

	for i, ch := range raw {
		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' && inString {
			escaped = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		switch ch {
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			depth--
			if depth == 0 && start != -1 {
				return raw[start : i+1]
			}
		}
	}

	return ""
}

func stripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}

	return strings.TrimSpace(raw)
}
