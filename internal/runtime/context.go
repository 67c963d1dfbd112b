package runtime

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/aretw0/tendril/pkg/domain"
)

// SelectedKey is the context key holding the value of the last generated option chosen.
const SelectedKey = "selected"

var placeholder = regexp.MustCompile(`\{\{\s*([\w.\-]+)\s*\}\}`)

// interpolate replaces {{key}} placeholders with context values.
// Unknown keys are left as they are.
func interpolate(text string, ctx map[string]any) string {
	if !strings.Contains(text, "{{") {
		return text
	}
	return placeholder.ReplaceAllStringFunc(text, func(m string) string {
		key := placeholder.FindStringSubmatch(m)[1]
		v, ok := lookupContext(ctx, key)
		if !ok || v == nil {
			return m
		}
		return stringify(v)
	})
}

// lookupContext resolves key as a whole context key first, then as a dotted path.
func lookupContext(ctx map[string]any, key string) (any, bool) {
	if v, ok := ctx[key]; ok {
		return v, true
	}
	return lookupPath(ctx, key)
}

// lookupPath walks a dotted path through decoded JSON (objects and arrays).
// An empty path returns data itself.
func lookupPath(data any, path string) (any, bool) {
	if path == "" {
		return data, true
	}
	current := data
	for _, seg := range strings.Split(path, ".") {
		switch v := current.(type) {
		case map[string]any:
			next, ok := v[seg]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(v) {
				return nil, false
			}
			current = v[i]
		default:
			return nil, false
		}
	}
	return current, true
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

// generateOptions projects an api response into options using the node's mapping.
func generateOptions(node *domain.Node, resp any) ([]domain.GeneratedOption, error) {
	m := node.APIResponseMapping
	if m == nil {
		return nil, &UnhandledExecutorError{NodeID: node.ID, Executor: domain.ExecutorAPI, Cause: "dynamic options without apiResponseMapping"}
	}

	raw, ok := lookupPath(resp, m.DataField)
	items, isList := raw.([]any)
	if !ok || !isList {
		return nil, &UnhandledExecutorError{NodeID: node.ID, Executor: domain.ExecutorAPI, Cause: fmt.Sprintf("response field %q is not a list", m.DataField)}
	}

	out := make([]domain.GeneratedOption, 0, len(items))
	for i, item := range items {
		label := domain.FallbackOptionLabel
		if v, ok := lookupPath(item, m.LabelField); ok && v != nil {
			if _, nested := v.(map[string]any); !nested {
				label = stringify(v)
			}
		}
		value := item
		if m.ValueField != "" {
			value, _ = lookupPath(item, m.ValueField)
		}
		out = append(out, domain.GeneratedOption{
			ID:         fmt.Sprintf("dyn-%s-%d", node.ID, i),
			Label:      label,
			Value:      value,
			NextNodeID: m.NextNodeID,
		})
	}
	return out, nil
}
