package metrics

import "fmt"

// modelLabels maps server model identifiers to display names.
var modelLabels = map[string]string{
	"linear_regression":   "Linear Regression",
	"ridge":               "Ridge Regression",
	"lasso":               "Lasso Regression",
	"random_forest":       "Random Forest",
	"gradient_boosting":   "Gradient Boosting",
	"decision_tree":       "Decision Tree",
	"logistic_regression": "Logistic Regression",
	"svm":                 "Support Vector Machine",
	"knn":                 "K-Nearest Neighbors",
	"naive_bayes":         "Naive Bayes",
}

// ModelLabel returns the display name for a server model identifier,
// falling back to the identifier itself.
func ModelLabel(modelType string) string {
	if label, ok := modelLabels[modelType]; ok {
		return label
	}
	return modelType
}

// ExplainAutoSelection describes why automatic model selection settled
// on the given model, tiered by the quality band of the run's headline
// metric. Empty when the user chose the model explicitly.
func ExplainAutoSelection(requested, selected string, s Set, problemType ProblemType) string {
	if requested != string(Auto) || selected == "" {
		return ""
	}

	label := ModelLabel(selected)
	primary := s.Primary(problemType)
	band := Quality(s, problemType)
	if primary == nil || band == BandUnknown {
		return "auto-selected " + label
	}

	metric := "R²"
	if problemType == Classification {
		metric = "accuracy"
	}
	return fmt.Sprintf("auto-selected %s: %s (%s %s)",
		label, band.Message(problemType), metric, FormatValue(primary))
}
