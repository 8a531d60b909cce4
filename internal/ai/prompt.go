package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

const systemPrompt = `You are a UX analyst. You receive one screen of a product design: its screenshot and a JSON description of its text hierarchy, interactive elements, form fields and navigation.

Write a functional specification of the screen as a single JSON object with these keys:
- "purpose": one sentence describing what the screen is for
- "user_stories": array of strings in the form "As a <user>, I want <goal> so that <benefit>"
- "components": array of {"name", "type", "behavior"}
- "interactions": array of {"trigger", "element", "result"}
- "acceptance_criteria": array of strings

Only describe what is visible or present in the description. Respond ONLY with the JSON object, no explanation or markdown.`

func buildUserPrompt(req *Request) (string, error) {
	screenJSON, err := json.MarshalIndent(req.Screen, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal screen: %w", err)
	}
	var b strings.Builder
	b.WriteString("Screen:\n")
	b.Write(screenJSON)
	if req.Objective != "" {
		b.WriteString("\n\nProduct objective: ")
		b.WriteString(req.Objective)
	}
	return b.String(), nil
}

// parseSpecJSON extracts and parses a JSON object from a response that may contain surrounding text
func parseSpecJSON(response string) (map[string]any, error) {
	var spec map[string]any
	if err := json.Unmarshal([]byte(response), &spec); err == nil {
		return spec, nil
	}

	start := strings.Index(response, "{")
	if start == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	// Braces inside strings are skipped
	depth, end := 0, -1
	inString, escaped := false, false
	for i := start; i < len(response) && end == -1; i++ {
		c := response[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				end = i + 1
			}
		}
	}
	if end == -1 {
		return nil, fmt.Errorf("no matching closing brace found")
	}

	if err := json.Unmarshal([]byte(response[start:end]), &spec); err != nil {
		return nil, fmt.Errorf("failed to parse extracted JSON: %w", err)
	}
	return spec, nil
}
