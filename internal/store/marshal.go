package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/cypherc/internal/canonical"
)

// marshalObject converts a map to canonical JSON TEXT for storage. A nil
// map is stored as null when nullable, as {} otherwise.
func marshalObject(m map[string]any, nullable bool) (string, error) {
	if m == nil {
		if nullable {
			return "null", nil
		}
		m = map[string]any{}
	}
	data, err := canonical.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// unmarshalObject parses canonical JSON TEXT. Numbers without a fraction or
// exponent decode as int64, others as float64, mirroring the canonical
// encoding so a round trip keeps integer and float values apart.
func unmarshalObject(data string) (map[string]any, error) {
	if data == "" || data == "null" {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("unmarshal object: %w", err)
	}
	out, err := numbers(raw)
	if err != nil {
		return nil, err
	}
	return out.(map[string]any), nil
}

func numbers(v any) (any, error) {
	switch x := v.(type) {
	case json.Number:
		if !strings.ContainsAny(x.String(), ".eE") {
			n, err := x.Int64()
			if err != nil {
				return nil, fmt.Errorf("integer %s: %w", x, err)
			}
			return n, nil
		}
		f, err := x.Float64()
		if err != nil {
			return nil, fmt.Errorf("float %s: %w", x, err)
		}
		return f, nil
	case []any:
		for i, item := range x {
			n, err := numbers(item)
			if err != nil {
				return nil, err
			}
			x[i] = n
		}
		return x, nil
	case map[string]any:
		for k, item := range x {
			n, err := numbers(item)
			if err != nil {
				return nil, err
			}
			x[k] = n
		}
		return x, nil
	default:
		return v, nil
	}
}
