package classify

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

var fencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*\\n(.*?)```")

var errNoJSONArray = errors.New("no JSON array found in response")

// extractJSONArray pulls a JSON array out of a reasoner response that may
// wrap it in markdown fencing or surrounding prose. Strategies are tried in
// order; the first that parses wins.
func extractJSONArray(text string) ([]json.RawMessage, error) {
	text = strings.TrimSpace(text)

	if arr, ok := tryParseArray(text); ok {
		return arr, nil
	}

	if m := fencedBlock.FindStringSubmatch(text); m != nil {
		if arr, ok := tryParseArray(strings.TrimSpace(m[1])); ok {
			return arr, nil
		}
	}

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start >= 0 && end > start {
		if arr, ok := tryParseArray(text[start : end+1]); ok {
			return arr, nil
		}
	}

	return nil, errNoJSONArray
}

func tryParseArray(text string) ([]json.RawMessage, bool) {
	var arr []json.RawMessage
	if err := json.Unmarshal([]byte(text), &arr); err != nil {
		return nil, false
	}
	return arr, true
}
