package studio_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/tablab/tablab/internal/api"
	"github.com/tablab/tablab/internal/config"
	"github.com/tablab/tablab/internal/studio"
)

// fakeService is a scriptable Service for screen tests.
type fakeService struct {
	listDatasets func(ctx context.Context, userID string) ([]api.Dataset, error)
	listModels   func(ctx context.Context, query api.CatalogQuery) (*api.ModelsPage, error)
	trainModel   func(ctx context.Context, req api.TrainRequest) (*api.TrainResponse, error)
	checkName    func(ctx context.Context, userID, name string) (*api.NameCheck, error)
	analyze      func(ctx context.Context, userID, datasetID, target string) (*api.TargetAnalysis, error)
	bundle       func(ctx context.Context, modelID string) *api.ResultBundle
	deleteModel  func(ctx context.Context, modelID string) error
	updateModel  func(ctx context.Context, modelID string, update api.ModelUpdate) (*api.ModelSummary, error)
	exportModel  func(ctx context.Context, modelID, format string) ([]byte, error)
}

func (f *fakeService) ListDatasets(ctx context.Context, userID string) ([]api.Dataset, error) {
	if f.listDatasets == nil {
		return nil, nil
	}
	return f.listDatasets(ctx, userID)
}

func (f *fakeService) ListModels(ctx context.Context, query api.CatalogQuery) (*api.ModelsPage, error) {
	if f.listModels == nil {
		return &api.ModelsPage{Pagination: api.Pagination{Page: 1, TotalPages: 1}}, nil
	}
	return f.listModels(ctx, query)
}

func (f *fakeService) TrainModel(ctx context.Context, req api.TrainRequest) (*api.TrainResponse, error) {
	if f.trainModel == nil {
		return nil, errors.New("trainModel not scripted")
	}
	return f.trainModel(ctx, req)
}

func (f *fakeService) CheckModelName(ctx context.Context, userID, name string) (*api.NameCheck, error) {
	if f.checkName == nil {
		return &api.NameCheck{Exists: false}, nil
	}
	return f.checkName(ctx, userID, name)
}

func (f *fakeService) AnalyzeTarget(ctx context.Context, userID, datasetID, target string) (*api.TargetAnalysis, error) {
	if f.analyze == nil {
		return nil, errors.New("analyze not scripted")
	}
	return f.analyze(ctx, userID, datasetID, target)
}

func (f *fakeService) FetchResultBundle(ctx context.Context, modelID string) *api.ResultBundle {
	if f.bundle == nil {
		return &api.ResultBundle{}
	}
	return f.bundle(ctx, modelID)
}

func (f *fakeService) DeleteModel(ctx context.Context, modelID string) error {
	if f.deleteModel == nil {
		return nil
	}
	return f.deleteModel(ctx, modelID)
}

func (f *fakeService) UpdateModel(ctx context.Context, modelID string, update api.ModelUpdate) (*api.ModelSummary, error) {
	if f.updateModel == nil {
		return nil, errors.New("updateModel not scripted")
	}
	return f.updateModel(ctx, modelID, update)
}

func (f *fakeService) ExportModel(ctx context.Context, modelID, format string) ([]byte, error) {
	if f.exportModel == nil {
		return []byte("artifact"), nil
	}
	return f.exportModel(ctx, modelID, format)
}

func testConfig() *config.Config {
	return &config.Config{
		BaseURL:        "http://localhost:8000",
		APIKey:         "k",
		UserID:         "u-1",
		DebounceWindow: config.Duration(5 * time.Millisecond),
		PageSize:       20,
	}
}

func newTestUI(t *testing.T, svc studio.Service) *studio.Model {
	t.Helper()
	m := studio.NewModel(studio.ModelParams{
		Config:  testConfig(),
		Service: svc,
		Fs:      afero.NewMemMapFs(),
	})
	return m
}

func sampleModels() *api.ModelsPage {
	avgR2 := 0.85
	return &api.ModelsPage{
		Models: []api.ModelSummary{
			{
				ID: "m-1", ModelName: "housing-v1", ModelType: "random_forest",
				ProblemType: "regression", DatasetName: "housing.csv",
				Metrics:   map[string]any{"r2_score": 0.91, "mae": 1.2},
				CreatedAt: "2026-08-01T10:00:00Z", TrainingTime: 3.4,
			},
			{
				ID: "m-2", ModelName: "churn-v2", ModelType: "logistic_regression",
				ProblemType: "classification", DatasetName: "churn.csv",
				Metrics:   map[string]any{"accuracy": 0.88, "f1_score": 0.84},
				CreatedAt: "2026-08-02T10:00:00Z", TrainingTime: 1.1,
			},
		},
		Pagination: api.Pagination{Page: 1, PageSize: 20, Total: 2, TotalPages: 1},
		Summary: &api.CatalogSummary{
			TotalModels: 2, AvgR2: &avgR2,
			RegressionCount: 1, ClassificationCount: 1,
			BestPerformingModel: "housing-v1",
		},
	}
}
