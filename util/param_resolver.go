package util

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/oliveagle/jsonpath"
)

var tokenRegex = regexp.MustCompile("{(.*?)}")

// ResolveTemplate replaces every {$.path} token in tmpl with the value found at that
// jsonpath in data. Tokens that do not resolve are replaced with an empty string.
func ResolveTemplate(data map[string]any, tmpl string) string {
	tokens := tokenRegex.FindAllString(tmpl, -1)
	out := tmpl
	for _, token := range tokens {
		path := strings.TrimSuffix(strings.TrimPrefix(token, "{"), "}")
		if !strings.HasPrefix(path, "$") {
			continue
		}
		value, err := jsonpath.JsonPathLookup(data, path)
		if err != nil || value == nil {
			out = strings.ReplaceAll(out, token, "")
			continue
		}
		out = strings.ReplaceAll(out, token, fmt.Sprintf("%v", value))
	}
	return out
}

// ResolveParams walks params and resolves template tokens in every string it finds.
func ResolveParams(data map[string]any, params map[string]any) map[string]any {
	output := make(map[string]any, len(params))
	for k, v := range params {
		output[k] = resolveValue(data, v)
	}
	return output
}

func resolveValue(data map[string]any, v any) any {
	switch val := v.(type) {
	case map[string]any:
		return ResolveParams(data, val)
	case string:
		return ResolveTemplate(data, val)
	case []any:
		out := make([]any, 0, len(val))
		for _, item := range val {
			out = append(out, resolveValue(data, item))
		}
		return out
	default:
		return v
	}
}

// Lookup evaluates a jsonpath expression, accepting both "$.a.b" and "{$.a.b}".
func Lookup(data map[string]any, expression string) (any, error) {
	path := strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(expression), "{"), "}")
	return jsonpath.JsonPathLookup(data, path)
}

// CompilePath checks that expression is a valid jsonpath.
func CompilePath(expression string) error {
	path := strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(expression), "{"), "}")
	if !strings.HasPrefix(path, "$") {
		return fmt.Errorf("jsonpath %q must start with $", expression)
	}
	_, err := jsonpath.Compile(path)
	return err
}
