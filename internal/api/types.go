package api

import (
	"encoding/json"
	"fmt"
)

// envelope is the wrapper the training service puts around every
// successful response body.
type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

// StatusError reports a non-2xx response from the training service.
type StatusError struct {
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("server returned status %d", e.Code)
	}
	return fmt.Sprintf("server returned status %d: %s", e.Code, e.Detail)
}

// ModelSummary is one catalog entry as the service lists it.
type ModelSummary struct {
	ID           string             `json:"id"`
	ModelName    string             `json:"model_name"`
	ModelType    string             `json:"model_type"`
	ProblemType  string             `json:"problem_type"`
	TargetColumn string             `json:"target_column"`
	DatasetID    string             `json:"dataset_id"`
	DatasetName  string             `json:"dataset_name"`
	Metrics      map[string]any     `json:"metrics"`
	TrainingTime float64            `json:"training_time"`
	CreatedAt    string             `json:"created_at"`
	Description  string             `json:"description"`
	Features     []string           `json:"features,omitempty"`
	Hyperparams  map[string]any     `json:"hyperparameters,omitempty"`
	Importance   map[string]float64 `json:"feature_importance,omitempty"`
}

// CatalogSummary is the aggregate block the service computes over the
// caller's full catalog, independent of the current page.
type CatalogSummary struct {
	TotalModels         int      `json:"total_models"`
	AvgR2               *float64 `json:"avg_r2"`
	AvgAccuracy         *float64 `json:"avg_accuracy"`
	MostUsedDataset     string   `json:"most_used_dataset"`
	BestPerformingModel string   `json:"best_performing_model"`
	RegressionCount     int      `json:"regression_count"`
	ClassificationCount int      `json:"classification_count"`
}

// Pagination carries the service's paging block.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// ModelsPage is the full payload of a catalog listing.
type ModelsPage struct {
	Models     []ModelSummary  `json:"models"`
	Pagination Pagination      `json:"pagination"`
	Summary    *CatalogSummary `json:"summary,omitempty"`
}

// TrainRequest is the body submitted to start a training job.
type TrainRequest struct {
	UserID       string         `json:"user_id"`
	DatasetID    string         `json:"dataset_id"`
	TargetColumn string         `json:"target_column"`
	ModelType    string         `json:"model_type"`
	ModelName    string         `json:"model_name,omitempty"`
	AutoName     bool           `json:"auto_generate_name,omitempty"`
	ProblemType  string         `json:"problem_type,omitempty"`
	TestSize     float64        `json:"test_size,omitempty"`
	RandomSeed   *int64         `json:"random_seed,omitempty"`
	CrossVal     bool           `json:"cross_validation,omitempty"`
	CVFolds      int            `json:"cv_folds,omitempty"`
	Hyperparams  map[string]any `json:"hyperparameters,omitempty"`
	Description  string         `json:"description,omitempty"`
}

// TrainResponse is the completed-training payload.
type TrainResponse struct {
	ID            string         `json:"id"`
	ModelName     string         `json:"model_name"`
	ModelType     string         `json:"model_type"`
	ProblemType   string         `json:"problem_type"`
	TargetColumn  string         `json:"target_column"`
	Metrics       map[string]any `json:"metrics"`
	TrainingTime  float64        `json:"training_time"`
	Preprocessing map[string]any `json:"preprocessing_metadata,omitempty"`
}

// NameCheck reports whether a model name is already taken.
type NameCheck struct {
	Exists  bool   `json:"exists"`
	Message string `json:"message"`
}

// TargetAnalysis is the service's pre-training look at a target column.
type TargetAnalysis struct {
	TargetColumn      string         `json:"target_column"`
	DetectedType      string         `json:"detected_problem_type"`
	UniqueValues      int            `json:"unique_values"`
	MissingCount      int            `json:"missing_count"`
	RecommendedModels []string       `json:"recommended_models"`
	Warnings          []string       `json:"warnings,omitempty"`
	ClassDistribution map[string]int `json:"class_distribution,omitempty"`
}

// PredictionSchema describes the inputs a stored model expects.
type PredictionSchema struct {
	ModelID     string         `json:"model_id"`
	ModelName   string         `json:"model_name"`
	ProblemType string         `json:"problem_type"`
	Features    []FeatureField `json:"features"`
}

// FeatureField is one expected prediction input.
type FeatureField struct {
	Name    string   `json:"name"`
	Dtype   string   `json:"dtype"`
	Options []string `json:"options,omitempty"`
}

// Prediction is one prediction result row.
type Prediction struct {
	Value         any                `json:"prediction"`
	Probabilities map[string]float64 `json:"probabilities,omitempty"`
}

// FeatureImportance ranks a stored model's input features.
type FeatureImportance struct {
	ModelID string             `json:"model_id"`
	Ranking []string           `json:"ranking"`
	Scores  map[string]float64 `json:"scores"`
}

// Dataset is one uploaded dataset available for training.
type Dataset struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Columns  []string `json:"columns"`
	RowCount int      `json:"row_count"`
}

// ModelUpdate is the mutable subset of a catalog entry.
type ModelUpdate struct {
	ModelName   *string `json:"model_name,omitempty"`
	Description *string `json:"description,omitempty"`
}
