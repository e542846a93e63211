package discovery

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rootsofthevalley/content-collector/internal/collector"
)

// ErrNoJSON is returned when the provider text contains no JSON object.
var ErrNoJSON = errors.New("no json object found in response")

// searchPayload is the JSON shape the providers are instructed to return.
type searchPayload struct {
	News   []collector.DiscoveredItem `json:"news"`
	Events []collector.DiscoveredItem `json:"events"`
}

// ExtractJSON slices the first balanced JSON object out of freeform provider
// text. It scans for the first '{' and tracks brace depth, honoring string
// literals and escapes, so surrounding prose and code-fence markers do not
// break extraction. A truncated object (depth never returns to zero) is an
// error.
func ExtractJSON(text string) (string, error) {
	start := -1
	for i, r := range text {
		if r == '{' {
			start = i
			break
		}
	}
	if start < 0 {
		return "", ErrNoJSON
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("unbalanced json object: %w", ErrNoJSON)
}

// parseFindings extracts and decodes the provider response, tagging each item
// with its kind.
func parseFindings(text string) ([]collector.DiscoveredItem, []collector.DiscoveredItem, error) {
	raw, err := ExtractJSON(text)
	if err != nil {
		return nil, nil, err
	}
	var payload searchPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, nil, fmt.Errorf("decode search payload: %w", err)
	}
	for i := range payload.News {
		payload.News[i].Kind = collector.KindNews
	}
	for i := range payload.Events {
		payload.Events[i].Kind = collector.KindEvent
	}
	return payload.News, payload.Events, nil
}
