package analytics

import (
	"encoding/json"
	"math"

	"GridAdvisor/internal/domain/models"
)

const (
	FieldLoad      = "load"
	FieldTimestamp = "timestamp"
)

// ValidateSeries normalizes a raw request mapping into a LoadSeries.
// Readings are coerced to float64 in their original order; nothing is sorted or dropped.
func ValidateSeries(raw map[string]interface{}, minLen int) (models.LoadSeries, error) {
	var series models.LoadSeries

	rawLoad, ok := raw[FieldLoad]
	if !ok || rawLoad == nil {
		return series, models.NewValidationError(FieldLoad, "is required")
	}
	load, err := coerceLoad(rawLoad)
	if err != nil {
		return series, err
	}
	if len(load) == 0 {
		return series, models.NewValidationError(FieldLoad, "must not be empty")
	}

	if rawTS, ok := raw[FieldTimestamp]; ok && rawTS != nil {
		ts, err := coerceTimestamps(rawTS)
		if err != nil {
			return series, err
		}
		if len(ts) != len(load) {
			return series, models.NewValidationError(FieldTimestamp,
				"length %d does not match load length %d", len(ts), len(load))
		}
		series.Timestamps = ts
	}

	if len(load) < minLen {
		return series, models.NewValidationError(FieldLoad,
			"needs at least %d readings, got %d", minLen, len(load))
	}

	series.Load = load
	return series, nil
}

func coerceLoad(v interface{}) ([]float64, error) {
	switch xs := v.(type) {
	case []float64:
		out := make([]float64, len(xs))
		for i, x := range xs {
			if err := checkFinite(i, x); err != nil {
				return nil, err
			}
			out[i] = x
		}
		return out, nil
	case []int:
		out := make([]float64, len(xs))
		for i, x := range xs {
			out[i] = float64(x)
		}
		return out, nil
	case []interface{}:
		out := make([]float64, len(xs))
		for i, x := range xs {
			f, err := toFloat(i, x)
			if err != nil {
				return nil, err
			}
			out[i] = f
		}
		return out, nil
	default:
		return nil, models.NewValidationError(FieldLoad, "must be a sequence of numbers, got %T", v)
	}
}

func toFloat(i int, v interface{}) (float64, error) {
	var f float64
	switch x := v.(type) {
	case nil:
		return 0, models.NewValidationError(FieldLoad, "value at index %d is null", i)
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0, models.NewValidationError(FieldLoad, "value at index %d is not numeric: %q", i, x.String())
		}
		f = parsed
	default:
		// bools and strings are rejected even when they look numeric
		return 0, models.NewValidationError(FieldLoad, "value at index %d is not numeric (%T)", i, v)
	}
	if err := checkFinite(i, f); err != nil {
		return 0, err
	}
	return f, nil
}

func checkFinite(i int, f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return models.NewValidationError(FieldLoad, "value at index %d is not finite", i)
	}
	return nil
}

func coerceTimestamps(v interface{}) ([]string, error) {
	switch xs := v.(type) {
	case []string:
		out := make([]string, len(xs))
		copy(out, xs)
		return out, nil
	case []interface{}:
		out := make([]string, len(xs))
		for i, x := range xs {
			s, ok := x.(string)
			if !ok {
				return nil, models.NewValidationError(FieldTimestamp, "value at index %d is not a string (%T)", i, x)
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, models.NewValidationError(FieldTimestamp, "must be a sequence of strings, got %T", v)
	}
}
