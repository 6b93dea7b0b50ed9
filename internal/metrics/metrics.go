// Package metrics normalizes server metric payloads and maps scores onto
// the quality bands shared by the result view and the catalog.
package metrics

import (
	"encoding/json"
	"fmt"
)

// ProblemType discriminates metric families.
type ProblemType string

const (
	Regression     ProblemType = "regression"
	Classification ProblemType = "classification"
	Auto           ProblemType = "auto"
)

// Set is the canonical metric set. Pointer fields distinguish "absent"
// from a genuine zero; zero is a valid metric value.
type Set struct {
	// Regression.
	R2   *float64
	MSE  *float64
	MAE  *float64
	RMSE *float64

	// Classification.
	Accuracy  *float64
	Precision *float64
	Recall    *float64
	F1        *float64
}

// Primary returns the headline metric for the problem type: R² for
// regression, accuracy for classification. Nil when absent.
func (s Set) Primary(problemType ProblemType) *float64 {
	if problemType == Classification {
		return s.Accuracy
	}
	return s.R2
}

// IsZero reports whether no metric is populated.
func (s Set) IsZero() bool {
	return s.R2 == nil && s.MSE == nil && s.MAE == nil && s.RMSE == nil &&
		s.Accuracy == nil && s.Precision == nil && s.Recall == nil && s.F1 == nil
}

// Normalize maps a raw server metrics payload into a Set.
//
// Server keys follow the training service's naming: r2_score, mse, mae,
// rmse for regression; accuracy, precision, recall, f1_score for
// classification. Absent keys stay nil; unknown keys are ignored.
// problemType selects which family is read so that a stray key from the
// other family never leaks into the result.
func Normalize(raw map[string]any, problemType ProblemType) Set {
	var set Set

	switch problemType {
	case Classification:
		set.Accuracy = numberAt(raw, "accuracy")
		set.Precision = numberAt(raw, "precision")
		set.Recall = numberAt(raw, "recall")
		set.F1 = numberAt(raw, "f1_score")
	default:
		set.R2 = numberAt(raw, "r2_score")
		set.MSE = numberAt(raw, "mse")
		set.MAE = numberAt(raw, "mae")
		set.RMSE = numberAt(raw, "rmse")
	}

	return set
}

// numberAt extracts a float from a decoded-JSON map value, accepting the
// numeric forms encoding/json can produce.
func numberAt(raw map[string]any, key string) *float64 {
	v, ok := raw[key]
	if !ok || v == nil {
		return nil
	}

	switch n := v.(type) {
	case float64:
		return &n
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return nil
		}
		return &f
	case int:
		f := float64(n)
		return &f
	default:
		return nil
	}
}

// FormatValue renders a metric value for display, or a dash when absent.
func FormatValue(v *float64) string {
	if v == nil {
		return "—"
	}
	return fmt.Sprintf("%.4f", *v)
}
