package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// parseValue reads a command-line value as JSON, falling back to a plain
// string when it isn't valid JSON.
func parseValue(s string) any {
	if !json.Valid([]byte(s)) {
		return s
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	return v
}

func formatValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// parsePairs splits key=value arguments.
func parsePairs(args []string) (map[string]any, error) {
	items := make(map[string]any, len(args))
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("expected key=value, got %q", arg)
		}
		items[k] = parseValue(v)
	}
	return items, nil
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func percent(usage float64) string {
	return fmt.Sprintf("%.1f%%", usage*100)
}
