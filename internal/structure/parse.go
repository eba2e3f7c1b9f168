// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package structure

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pdiddy/menu-engine/pkg/types"
)

var errMalformed = errors.New("malformed model response")

// CleanResponse strips Markdown code fences and any prose around the
// outermost JSON object.
func CleanResponse(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(s, "json")
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	if strings.HasPrefix(s, "{") && json.Valid([]byte(s)) {
		return s
	}
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

// ParseMenu decodes a model response into a Menu. A single top-level
// "menu" key wrapping the categories is unwrapped.
func ParseMenu(raw string) (types.Menu, error) {
	cleaned := CleanResponse(raw)
	if cleaned == "" {
		return nil, fmt.Errorf("%w: no JSON object in response", errMalformed)
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &top); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformed, err)
	}
	body := []byte(cleaned)
	if inner, ok := top["menu"]; ok && len(top) == 1 {
		body = inner
	}

	var m types.Menu
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformed, err)
	}
	return m, nil
}
