package codec

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/tendril/pkg/domain"
	"gopkg.in/yaml.v3"
)

// wrapperPaths lists where load responses have been seen to carry the bot object,
// in lookup order.
var wrapperPaths = [][]string{
	{"data", "bot"},
	{"data"},
	{"constructedBot"},
	{"bot"},
	{"config"},
}

// Unwrap locates the bot object inside a load response.
// The first wrapper carrying a node list wins; otherwise the first wrapper found,
// or the body itself, is returned so Normalize can report it as malformed.
func Unwrap(body map[string]any) map[string]any {
	var first map[string]any
	for _, path := range wrapperPaths {
		candidate, ok := lookup(body, path)
		if !ok {
			continue
		}
		if hasNodeList(candidate) {
			return candidate
		}
		if first == nil {
			first = candidate
		}
	}
	if hasNodeList(body) || first == nil {
		return body
	}
	return first
}

func lookup(body map[string]any, path []string) (map[string]any, bool) {
	cur := body
	for _, key := range path {
		next, ok := cur[key].(map[string]any)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

func hasNodeList(m map[string]any) bool {
	if _, ok := asList(m["nodes"]); ok {
		return true
	}
	_, ok := asList(m["node"])
	return ok
}

// DecodeJSON parses a JSON load response (wrapped or bare) into a canonical Bot.
func DecodeJSON(data []byte) (*domain.Bot, error) {
	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedGraph, err)
	}
	return Normalize(Unwrap(body))
}

// DecodeYAML parses a YAML bot document into a canonical Bot.
func DecodeYAML(data []byte) (*domain.Bot, error) {
	var body map[string]any
	if err := yaml.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedGraph, err)
	}
	return Normalize(Unwrap(body))
}
