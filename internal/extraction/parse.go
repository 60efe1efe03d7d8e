package extraction

import (
	"encoding/json"
	"fmt"
	"strings"

	"invoice-extractor/internal/invoice"
)

// envelope is the expected top-level shape of a model response
type envelope struct {
	LineItems []invoice.LineItem `json:"LineItems"`
}

// ParseLineItems parses a model response into line items. The response is
// expected to be a JSON object with a "LineItems" array; a missing or null
// array yields zero items rather than an error. Invalid JSON is an error
// the caller treats as page-level and recoverable.
func ParseLineItems(text string) ([]invoice.LineItem, error) {
	text = strings.TrimSpace(text)

	// Remove markdown code blocks if present
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	// Find the JSON object boundaries - look for first { and last }
	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}
	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}
	text = text[startIdx : endIdx+1]

	var env envelope
	if err := json.Unmarshal([]byte(text), &env); err != nil {
		return nil, fmt.Errorf("unmarshaling line items: %w", err)
	}

	if env.LineItems == nil {
		return []invoice.LineItem{}, nil
	}
	return env.LineItems, nil
}
