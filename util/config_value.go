package util

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

func GetString(config map[string]any, key string) (string, bool) {
	v, ok := config[key]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// GetFloat reads a numeric config value. Numeric strings are accepted because
// definitions may come from form fields.
func GetFloat(config map[string]any, key string) (float64, bool) {
	v, ok := config[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

// GetInt reads an integral config value. Fractional numbers are rejected.
func GetInt(config map[string]any, key string) (int, bool) {
	f, ok := GetFloat(config, key)
	if !ok || math.Trunc(f) != f || math.IsInf(f, 0) {
		return 0, false
	}
	return int(f), true
}

func GetStringSlice(config map[string]any, key string) ([]string, bool) {
	v, ok := config[key]
	if !ok || v == nil {
		return nil, false
	}
	switch list := v.(type) {
	case []string:
		return list, true
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			out = append(out, fmt.Sprintf("%v", item))
		}
		return out, true
	case string:
		return []string{list}, true
	}
	return nil, false
}
