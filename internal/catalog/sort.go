package catalog

// Sort option identifiers. Metric sorts use the server's dotted paths
// into the metrics document.
const (
	SortCreatedAt    = "created_at"
	SortModelName    = "model_name"
	SortTrainingTime = "training_time"
	SortR2           = "metrics.r2_score"
	SortMAE          = "metrics.mae"
	SortRMSE         = "metrics.rmse"
	SortAccuracy     = "metrics.accuracy"
	SortF1           = "metrics.f1_score"

	OrderAsc  = "asc"
	OrderDesc = "desc"

	DefaultSortBy    = SortCreatedAt
	DefaultSortOrder = OrderDesc
)

// commonSorts are valid regardless of the problem-type filter.
var commonSorts = []string{SortCreatedAt, SortModelName, SortTrainingTime}

// metricSorts are the additional sorts available per problem type.
// With no problem-type filter, metric sorts are unavailable: they would
// silently drop every model of the other family from the ordering.
var metricSorts = map[string][]string{
	"regression":     {SortR2, SortMAE, SortRMSE},
	"classification": {SortAccuracy, SortF1},
}

// ValidSorts returns the sort options valid under the given
// problem-type filter, in display order.
func ValidSorts(problemType string) []string {
	sorts := make([]string, 0, len(commonSorts)+3)
	sorts = append(sorts, commonSorts...)
	sorts = append(sorts, metricSorts[problemType]...)
	return sorts
}

// SortValid reports whether sortBy is usable under the given
// problem-type filter.
func SortValid(sortBy, problemType string) bool {
	for _, s := range ValidSorts(problemType) {
		if s == sortBy {
			return true
		}
	}
	return false
}

// CorrectSort returns the sort unchanged when valid for the filter, or
// the default ordering when the filter change has invalidated it.
func CorrectSort(sortBy, sortOrder, problemType string) (string, string) {
	if SortValid(sortBy, problemType) {
		return sortBy, sortOrder
	}
	return DefaultSortBy, DefaultSortOrder
}

// sortLabels maps sort identifiers to display names.
var sortLabels = map[string]string{
	SortCreatedAt:    "Created",
	SortModelName:    "Name",
	SortTrainingTime: "Training time",
	SortR2:           "R²",
	SortMAE:          "MAE",
	SortRMSE:         "RMSE",
	SortAccuracy:     "Accuracy",
	SortF1:           "F1",
}

// SortLabel returns the display name for a sort identifier.
func SortLabel(sortBy string) string {
	if label, ok := sortLabels[sortBy]; ok {
		return label
	}
	return sortBy
}
