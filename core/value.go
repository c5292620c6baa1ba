package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// ErrUnsupportedValue is returned for values the shared store cannot hold.
var ErrUnsupportedValue = errors.New("unsupported value")

// NormalizeValue converts v into the shared store's value model: nil,
// bool, int64, float64, string or map[string]any of those. Integral floats
// become int64 and nil map members are dropped, as the remote database does.
// Maps left empty normalize to nil.
func NormalizeValue(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case bool, string, int64:
		return t, nil
	case int:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case uint32:
		return int64(t), nil
	case float32:
		return normalizeFloat(float64(t))
	case float64:
		return normalizeFloat(t)
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n, nil
		}
		f, err := t.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", t, err)
		}
		return normalizeFloat(f)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, child := range t {
			if err := ValidateKey(k); err != nil {
				return nil, err
			}
			n, err := NormalizeValue(child)
			if err != nil {
				return nil, err
			}
			if n != nil {
				out[k] = n
			}
		}
		if len(out) == 0 {
			return nil, nil
		}
		return out, nil
	}
	// Anything else goes through its JSON form.
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %T: %v", ErrUnsupportedValue, v, err)
	}
	return DecodeValue(raw)
}

// DecodeValue parses JSON into the normalized value model.
func DecodeValue(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return normalizeDecoded(v)
}

func normalizeDecoded(v any) (any, error) {
	if arr, ok := v.([]any); ok {
		// Arrays are stored as objects keyed by index.
		m := make(map[string]any, len(arr))
		for i, el := range arr {
			m[fmt.Sprint(i)] = el
		}
		return NormalizeValue(m)
	}
	if m, ok := v.(map[string]any); ok {
		for k, child := range m {
			n, err := normalizeDecoded(child)
			if err != nil {
				return nil, err
			}
			m[k] = n
		}
	}
	return NormalizeValue(v)
}

func normalizeFloat(f float64) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%w: number %v", ErrUnsupportedValue, f)
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int64(f), nil
	}
	return f, nil
}

// CloneValue deep-copies a normalized value.
func CloneValue(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	out := make(map[string]any, len(m))
	for k, child := range m {
		out[k] = CloneValue(child)
	}
	return out
}
